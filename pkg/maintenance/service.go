// Package maintenance stores scheduled maintenance visits and their
// checklists. Scope visibility mirrors the incidences package.
package maintenance

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/apperr"
	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/models"
	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/scope"
)

// Service implements maintenance operations over PostgreSQL.
type Service struct {
	db *sql.DB
}

// NewService creates a Service.
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// List returns maintenance records visible under sc, soonest first.
func (s *Service) List(ctx context.Context, sc scope.Descriptor, status *models.MaintenanceStatus, limit, offset int) ([]*models.Maintenance, error) {
	if sc.Empty() {
		return []*models.Maintenance{}, nil
	}

	query := `
		SELECT id, plant_id, assigned_to, description, status, scheduled_for, created_at, updated_at
		FROM maintenance
		WHERE 1=1
	`
	args := []interface{}{}
	if !sc.Unrestricted() {
		args = append(args, pq.Array(sc.PlantIDs()))
		query += fmt.Sprintf(" AND plant_id = ANY($%d)", len(args))
	}
	if status != nil {
		args = append(args, *status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query += fmt.Sprintf(" ORDER BY scheduled_for ASC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list maintenance: %w", err)
	}
	defer rows.Close()

	records := []*models.Maintenance{}
	for rows.Next() {
		m, err := scanMaintenance(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, m)
	}
	return records, rows.Err()
}

// Get returns one maintenance record with its checklist.
func (s *Service) Get(ctx context.Context, sc scope.Descriptor, id int64) (*models.Maintenance, error) {
	query := `
		SELECT id, plant_id, assigned_to, description, status, scheduled_for, created_at, updated_at
		FROM maintenance
		WHERE id = $1
	`
	row := s.db.QueryRowContext(ctx, query, id)
	m := &models.Maintenance{}
	var assignedTo sql.NullInt64
	err := row.Scan(&m.ID, &m.PlantID, &assignedTo, &m.Description, &m.Status,
		&m.ScheduledFor, &m.CreatedAt, &m.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("maintenance")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get maintenance: %w", err)
	}
	if assignedTo.Valid {
		id := assignedTo.Int64
		m.AssignedTo = &id
	}
	if !sc.Allows(m.PlantID) {
		return nil, apperr.NotFound("maintenance")
	}

	itemQuery := `
		SELECT id, maintenance_id, label, done
		FROM maintenance_checklist
		WHERE maintenance_id = $1
		ORDER BY id ASC
	`
	rows, err := s.db.QueryContext(ctx, itemQuery, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list checklist: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item models.ChecklistItem
		if err := rows.Scan(&item.ID, &item.MaintenanceID, &item.Label, &item.Done); err != nil {
			return nil, fmt.Errorf("failed to scan checklist item: %w", err)
		}
		m.Checklist = append(m.Checklist, item)
	}
	return m, rows.Err()
}

// Create schedules a visit with its checklist in one transaction.
func (s *Service) Create(ctx context.Context, sc scope.Descriptor, m *models.Maintenance) error {
	if !sc.Allows(m.PlantID) {
		return apperr.NotFound("plant")
	}
	if m.ScheduledFor.IsZero() {
		return apperr.Validation("scheduled_for is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO maintenance (plant_id, assigned_to, description, status, scheduled_for)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`
	m.Status = models.MaintenanceScheduled
	err = tx.QueryRowContext(ctx, query, m.PlantID, m.AssignedTo, m.Description, m.Status, m.ScheduledFor).
		Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create maintenance: %w", err)
	}

	for i := range m.Checklist {
		item := &m.Checklist[i]
		item.MaintenanceID = m.ID
		err := tx.QueryRowContext(ctx,
			`INSERT INTO maintenance_checklist (maintenance_id, label, done) VALUES ($1, $2, $3) RETURNING id`,
			item.MaintenanceID, item.Label, item.Done,
		).Scan(&item.ID)
		if err != nil {
			return fmt.Errorf("failed to create checklist item: %w", err)
		}
	}

	return tx.Commit()
}

// UpdateStatus transitions an in-scope maintenance record.
func (s *Service) UpdateStatus(ctx context.Context, sc scope.Descriptor, id int64, status models.MaintenanceStatus) (*models.Maintenance, error) {
	if !status.Valid() {
		return nil, apperr.Validation(fmt.Sprintf("invalid status %q", status))
	}

	current, err := s.Get(ctx, sc, id)
	if err != nil {
		return nil, err
	}

	query := `UPDATE maintenance SET status = $1, updated_at = NOW() WHERE id = $2`
	if _, err := s.db.ExecContext(ctx, query, status, id); err != nil {
		return nil, fmt.Errorf("failed to update maintenance status: %w", err)
	}
	current.Status = status
	current.UpdatedAt = time.Now()
	return current, nil
}

// SetChecklistItem marks a checklist item done or not done.
func (s *Service) SetChecklistItem(ctx context.Context, sc scope.Descriptor, maintenanceID, itemID int64, done bool) error {
	if _, err := s.Get(ctx, sc, maintenanceID); err != nil {
		return err
	}

	query := `UPDATE maintenance_checklist SET done = $1 WHERE id = $2 AND maintenance_id = $3`
	result, err := s.db.ExecContext(ctx, query, done, itemID, maintenanceID)
	if err != nil {
		return fmt.Errorf("failed to update checklist item: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return apperr.NotFound("checklist item")
	}
	return nil
}

// DueBetween returns scheduled visits in the window, for the scheduler's
// reminder job. Not scope-filtered: the scheduler runs unrestricted.
func (s *Service) DueBetween(ctx context.Context, from, to time.Time) ([]*models.Maintenance, error) {
	query := `
		SELECT id, plant_id, assigned_to, description, status, scheduled_for, created_at, updated_at
		FROM maintenance
		WHERE status = $1 AND scheduled_for >= $2 AND scheduled_for < $3
		ORDER BY scheduled_for ASC
	`
	rows, err := s.db.QueryContext(ctx, query, models.MaintenanceScheduled, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list due maintenance: %w", err)
	}
	defer rows.Close()

	records := []*models.Maintenance{}
	for rows.Next() {
		m, err := scanMaintenance(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, m)
	}
	return records, rows.Err()
}

func scanMaintenance(rows *sql.Rows) (*models.Maintenance, error) {
	m := &models.Maintenance{}
	var assignedTo sql.NullInt64
	if err := rows.Scan(&m.ID, &m.PlantID, &assignedTo, &m.Description, &m.Status,
		&m.ScheduledFor, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, fmt.Errorf("failed to scan maintenance: %w", err)
	}
	if assignedTo.Valid {
		id := assignedTo.Int64
		m.AssignedTo = &id
	}
	return m, nil
}
