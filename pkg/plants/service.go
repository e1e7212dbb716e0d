// Package plants provides plant CRUD with scope-filtered reads. Every list
// query is narrowed by the caller's scope descriptor through parameter-bound
// set membership; plant creation and deletion invalidate the dashboard cache
// globally because every viewer's plant-list aggregate may change.
package plants

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/apperr"
	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/cache"
	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/models"
	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/scope"
)

// Service implements plant operations over PostgreSQL.
type Service struct {
	db    *sql.DB
	cache cache.Cache
}

// NewService creates a Service.
func NewService(db *sql.DB, c cache.Cache) *Service {
	return &Service{db: db, cache: c}
}

// List returns the plants visible under sc, paginated. An empty restricted
// scope short-circuits to an empty result without touching the store.
func (s *Service) List(ctx context.Context, sc scope.Descriptor, limit, offset int) ([]*models.Plant, error) {
	if sc.Empty() {
		return []*models.Plant{}, nil
	}

	query := `
		SELECT id, name, location, client_id, created_at, updated_at
		FROM plants
	`
	args := []interface{}{}
	if !sc.Unrestricted() {
		query += ` WHERE id = ANY($1)`
		args = append(args, pq.Array(sc.PlantIDs()))
	}
	query += fmt.Sprintf(` ORDER BY id LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list plants: %w", err)
	}
	defer rows.Close()

	plants := []*models.Plant{}
	for rows.Next() {
		p := &models.Plant{}
		var clientID sql.NullInt64
		if err := rows.Scan(&p.ID, &p.Name, &p.Location, &clientID, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan plant: %w", err)
		}
		if clientID.Valid {
			id := clientID.Int64
			p.ClientID = &id
		}
		plants = append(plants, p)
	}
	return plants, rows.Err()
}

// Get returns one plant. An out-of-scope id reports not found, never
// forbidden, so callers cannot probe for existence.
func (s *Service) Get(ctx context.Context, sc scope.Descriptor, id int64) (*models.Plant, error) {
	if !sc.Allows(id) {
		return nil, apperr.NotFound("plant")
	}

	query := `
		SELECT id, name, location, client_id, created_at, updated_at
		FROM plants
		WHERE id = $1
	`
	p := &models.Plant{}
	var clientID sql.NullInt64
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.Name, &p.Location, &clientID, &p.CreatedAt, &p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("plant")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get plant: %w", err)
	}
	if clientID.Valid {
		cid := clientID.Int64
		p.ClientID = &cid
	}
	return p, nil
}

// Create inserts a plant and invalidates the cache globally.
func (s *Service) Create(ctx context.Context, p *models.Plant) error {
	query := `
		INSERT INTO plants (name, location, client_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`
	err := s.db.QueryRowContext(ctx, query, p.Name, p.Location, p.ClientID).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create plant: %w", err)
	}

	// Plant creation changes every viewer's plant list.
	_ = s.cache.InvalidateAll(ctx)
	return nil
}

// UpdateRequest carries partial plant updates; nil fields are left unchanged.
type UpdateRequest struct {
	Name     *string
	Location *string
}

// Update applies a partial update to an in-scope plant.
func (s *Service) Update(ctx context.Context, sc scope.Descriptor, id int64, updates UpdateRequest) error {
	if !sc.Allows(id) {
		return apperr.NotFound("plant")
	}

	setClauses := []string{}
	args := []interface{}{}
	argPos := 1

	if updates.Name != nil {
		setClauses = append(setClauses, fmt.Sprintf("name = $%d", argPos))
		args = append(args, *updates.Name)
		argPos++
	}
	if updates.Location != nil {
		setClauses = append(setClauses, fmt.Sprintf("location = $%d", argPos))
		args = append(args, *updates.Location)
		argPos++
	}
	if len(setClauses) == 0 {
		return nil
	}
	setClauses = append(setClauses, "updated_at = NOW()")

	args = append(args, id)
	query := fmt.Sprintf("UPDATE plants SET %s WHERE id = $%d", strings.Join(setClauses, ", "), argPos)

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update plant: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return apperr.NotFound("plant")
	}

	// Cached plant lists embed names and locations.
	_ = s.cache.InvalidateAll(ctx)
	return nil
}

// Delete removes a plant and its assignment rows, then invalidates globally.
func (s *Service) Delete(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM plant_users WHERE plant_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete plant assignments: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM plants WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete plant: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return apperr.NotFound("plant")
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit plant deletion: %w", err)
	}

	_ = s.cache.InvalidateAll(ctx)
	return nil
}

// GetPlantWithRelations returns the plant detail view: the plant row, its
// technicians and clients, and the latest sensor reading if any.
func (s *Service) GetPlantWithRelations(ctx context.Context, id int64) (*models.PlantWithRelations, error) {
	view := &models.PlantWithRelations{}

	query := `
		SELECT id, name, location, client_id, created_at, updated_at
		FROM plants
		WHERE id = $1
	`
	var clientID sql.NullInt64
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&view.ID, &view.Name, &view.Location, &clientID, &view.CreatedAt, &view.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("plant")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get plant: %w", err)
	}
	if clientID.Valid {
		cid := clientID.Int64
		view.ClientID = &cid
	}

	memberQuery := `
		SELECT u.id, u.name, u.email, u.role, u.verified, u.created_at, u.updated_at, pu.user_kind
		FROM users u
		JOIN plant_users pu ON u.id = pu.user_id
		WHERE pu.plant_id = $1
		ORDER BY pu.assigned_at ASC
	`
	rows, err := s.db.QueryContext(ctx, memberQuery, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list plant members: %w", err)
	}
	defer rows.Close()

	view.Technicians = []models.User{}
	view.Clients = []models.User{}
	for rows.Next() {
		var u models.User
		var kind models.Role
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.Verified, &u.CreatedAt, &u.UpdatedAt, &kind); err != nil {
			return nil, fmt.Errorf("failed to scan plant member: %w", err)
		}
		if kind == models.RoleClient {
			view.Clients = append(view.Clients, u)
		} else {
			view.Technicians = append(view.Technicians, u)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	datumQuery := `
		SELECT id, plant_id, level, flow_rate, chlorine, recorded_at
		FROM plant_data
		WHERE plant_id = $1
		ORDER BY recorded_at DESC
		LIMIT 1
	`
	datum := &models.PlantDatum{}
	err = s.db.QueryRowContext(ctx, datumQuery, id).Scan(
		&datum.ID, &datum.PlantID, &datum.Level, &datum.FlowRate, &datum.Chlorine, &datum.RecordedAt,
	)
	switch err {
	case nil:
		view.LatestDatum = datum
	case sql.ErrNoRows:
		// No readings yet.
	default:
		return nil, fmt.Errorf("failed to get latest datum: %w", err)
	}

	return view, nil
}
