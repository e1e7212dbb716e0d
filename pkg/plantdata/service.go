// Package plantdata stores sensor readings and computes the latest-reading
// metrics aggregate consumed by the dashboard.
package plantdata

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/apperr"
	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/models"
	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/scope"
)

// Service implements reading storage over PostgreSQL.
type Service struct {
	db *sql.DB
}

// NewService creates a Service.
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// List returns readings visible under sc, newest first. When plantID is set
// it must be in scope, otherwise the record set is reported not found.
func (s *Service) List(ctx context.Context, sc scope.Descriptor, plantID *int64, limit, offset int) ([]*models.PlantDatum, error) {
	if sc.Empty() {
		return []*models.PlantDatum{}, nil
	}
	if plantID != nil && !sc.Allows(*plantID) {
		return nil, apperr.NotFound("plant")
	}

	query := `
		SELECT id, plant_id, level, flow_rate, chlorine, recorded_at
		FROM plant_data
	`
	args := []interface{}{}
	switch {
	case plantID != nil:
		query += ` WHERE plant_id = $1`
		args = append(args, *plantID)
	case !sc.Unrestricted():
		query += ` WHERE plant_id = ANY($1)`
		args = append(args, pq.Array(sc.PlantIDs()))
	}
	query += fmt.Sprintf(` ORDER BY recorded_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list readings: %w", err)
	}
	defer rows.Close()

	data := []*models.PlantDatum{}
	for rows.Next() {
		d := &models.PlantDatum{}
		if err := rows.Scan(&d.ID, &d.PlantID, &d.Level, &d.FlowRate, &d.Chlorine, &d.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan reading: %w", err)
		}
		data = append(data, d)
	}
	return data, rows.Err()
}

// Insert records a reading.
func (s *Service) Insert(ctx context.Context, d *models.PlantDatum) error {
	query := `
		INSERT INTO plant_data (plant_id, level, flow_rate, chlorine, recorded_at)
		VALUES ($1, $2, $3, $4, COALESCE($5, NOW()))
		RETURNING id, recorded_at
	`
	var recordedAt interface{}
	if !d.RecordedAt.IsZero() {
		recordedAt = d.RecordedAt
	}
	err := s.db.QueryRowContext(ctx, query, d.PlantID, d.Level, d.FlowRate, d.Chlorine, recordedAt).
		Scan(&d.ID, &d.RecordedAt)
	if err != nil {
		return fmt.Errorf("failed to insert reading: %w", err)
	}
	return nil
}

// LatestMetrics returns the newest reading per in-scope plant.
func (s *Service) LatestMetrics(ctx context.Context, sc scope.Descriptor) ([]*models.PlantMetric, error) {
	if sc.Empty() {
		return []*models.PlantMetric{}, nil
	}

	query := `
		SELECT DISTINCT ON (d.plant_id)
		       d.plant_id, p.name, d.level, d.flow_rate, d.chlorine, d.recorded_at
		FROM plant_data d
		JOIN plants p ON p.id = d.plant_id
	`
	args := []interface{}{}
	if !sc.Unrestricted() {
		query += ` WHERE d.plant_id = ANY($1)`
		args = append(args, pq.Array(sc.PlantIDs()))
	}
	query += ` ORDER BY d.plant_id, d.recorded_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest metrics: %w", err)
	}
	defer rows.Close()

	metrics := []*models.PlantMetric{}
	for rows.Next() {
		m := &models.PlantMetric{}
		if err := rows.Scan(&m.PlantID, &m.PlantName, &m.Level, &m.FlowRate, &m.Chlorine, &m.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan metric: %w", err)
		}
		metrics = append(metrics, m)
	}
	return metrics, rows.Err()
}
