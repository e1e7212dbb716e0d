package reports

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/apperr"
	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/models"
	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/scope"
	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/storage"
)

// Generator renders a report document for a plant over a date range.
// The concrete renderer (PDF, CSV) is pluggable so the service stays
// independent of any particular document library.
type Generator interface {
	Generate(ctx context.Context, plant *models.Plant, data []models.PlantDatum, from, to time.Time) (body []byte, contentType string, ext string, err error)
}

// Service manages generated plant reports and their blob storage.
type Service struct {
	db    *sql.DB
	blobs storage.Blob
	gen   Generator
}

func NewService(db *sql.DB, blobs storage.Blob, gen Generator) *Service {
	return &Service{db: db, blobs: blobs, gen: gen}
}

// List returns reports for plants within the caller's scope, newest first.
func (s *Service) List(ctx context.Context, sc scope.Descriptor, limit, offset int) ([]models.Report, error) {
	if sc.Empty() {
		return []models.Report{}, nil
	}

	query := `
		SELECT id, plant_id, title, object_key, period_start, period_end, requested_by, generated_at
		FROM reports`
	args := []interface{}{}
	if !sc.Unrestricted() {
		query += ` WHERE plant_id = ANY($1)`
		args = append(args, pq.Array(sc.PlantIDs()))
	}
	query += fmt.Sprintf(` ORDER BY generated_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	reports := []models.Report{}
	for rows.Next() {
		var r models.Report
		if err := rows.Scan(&r.ID, &r.PlantID, &r.Title, &r.ObjectKey, &r.PeriodStart, &r.PeriodEnd, &r.RequestedBy, &r.GeneratedAt); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

// Get returns a single report. Reports for plants outside the caller's
// scope are reported as not found.
func (s *Service) Get(ctx context.Context, sc scope.Descriptor, id int64) (*models.Report, error) {
	var r models.Report
	err := s.db.QueryRowContext(ctx, `
		SELECT id, plant_id, title, object_key, period_start, period_end, requested_by, generated_at
		FROM reports WHERE id = $1`, id).
		Scan(&r.ID, &r.PlantID, &r.Title, &r.ObjectKey, &r.PeriodStart, &r.PeriodEnd, &r.RequestedBy, &r.GeneratedAt)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("report")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	if !sc.Allows(r.PlantID) {
		return nil, apperr.NotFound("report")
	}
	return &r, nil
}

// Generate renders a report for the given plant and period, uploads the
// document and records it. The plant must be within the caller's scope.
func (s *Service) Generate(ctx context.Context, sc scope.Descriptor, plantID, requestedBy int64, from, to time.Time) (*models.Report, error) {
	if !from.Before(to) {
		return nil, apperr.Validation("period start must be before period end")
	}
	if !sc.Allows(plantID) {
		return nil, apperr.NotFound("plant")
	}

	var plant models.Plant
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, location, client_id, created_at, updated_at
		FROM plants WHERE id = $1`, plantID).
		Scan(&plant.ID, &plant.Name, &plant.Location, &plant.ClientID, &plant.CreatedAt, &plant.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("plant")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get plant: %w", err)
	}

	data, err := s.periodData(ctx, plantID, from, to)
	if err != nil {
		return nil, err
	}

	body, contentType, ext, err := s.gen.Generate(ctx, &plant, data, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to generate report document: %w", err)
	}

	key := fmt.Sprintf("reports/%d/%s%s", plantID, uuid.NewString(), ext)
	if err := s.blobs.Put(ctx, key, bytes.NewReader(body), contentType); err != nil {
		return nil, fmt.Errorf("failed to store report document: %w", err)
	}

	title := fmt.Sprintf("%s %s - %s", plant.Name, from.Format("2006-01-02"), to.Format("2006-01-02"))
	var r models.Report
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO reports (plant_id, title, object_key, period_start, period_end, requested_by, generated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING id, plant_id, title, object_key, period_start, period_end, requested_by, generated_at`,
		plantID, title, key, from, to, requestedBy).
		Scan(&r.ID, &r.PlantID, &r.Title, &r.ObjectKey, &r.PeriodStart, &r.PeriodEnd, &r.RequestedBy, &r.GeneratedAt)
	if err != nil {
		// Best effort: don't leave an orphaned blob behind.
		_ = s.blobs.Delete(ctx, key)
		return nil, fmt.Errorf("failed to record report: %w", err)
	}
	return &r, nil
}

// Download streams the stored report document.
func (s *Service) Download(ctx context.Context, sc scope.Descriptor, id int64) (io.ReadCloser, error) {
	r, err := s.Get(ctx, sc, id)
	if err != nil {
		return nil, err
	}
	body, err := s.blobs.Get(ctx, r.ObjectKey)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch report document: %w", err)
	}
	return body, nil
}

// Delete removes a report row and its stored document.
func (s *Service) Delete(ctx context.Context, sc scope.Descriptor, id int64) error {
	r, err := s.Get(ctx, sc, id)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM reports WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete report: %w", err)
	}
	if err := s.blobs.Delete(ctx, r.ObjectKey); err != nil {
		return fmt.Errorf("failed to delete report document: %w", err)
	}
	return nil
}

// CleanupOlderThan removes reports created before the cutoff, along with
// their documents. Used by the scheduler; returns the number removed.
func (s *Service) CleanupOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, object_key FROM reports WHERE generated_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to list expired reports: %w", err)
	}
	defer rows.Close()

	type stale struct {
		id  int64
		key string
	}
	var expired []stale
	for rows.Next() {
		var s stale
		if err := rows.Scan(&s.id, &s.key); err != nil {
			return 0, fmt.Errorf("failed to scan expired report: %w", err)
		}
		expired = append(expired, s)
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}

	removed := 0
	for _, e := range expired {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM reports WHERE id = $1`, e.id); err != nil {
			return removed, fmt.Errorf("failed to delete expired report %d: %w", e.id, err)
		}
		if err := s.blobs.Delete(ctx, e.key); err != nil {
			return removed, fmt.Errorf("failed to delete expired report document %d: %w", e.id, err)
		}
		removed++
	}
	return removed, nil
}

func (s *Service) periodData(ctx context.Context, plantID int64, from, to time.Time) ([]models.PlantDatum, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, plant_id, level, flow_rate, chlorine, recorded_at
		FROM plant_data
		WHERE plant_id = $1 AND recorded_at >= $2 AND recorded_at < $3
		ORDER BY recorded_at ASC`, plantID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query plant data: %w", err)
	}
	defer rows.Close()

	data := []models.PlantDatum{}
	for rows.Next() {
		var d models.PlantDatum
		if err := rows.Scan(&d.ID, &d.PlantID, &d.Level, &d.FlowRate, &d.Chlorine, &d.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan plant datum: %w", err)
		}
		data = append(data, d)
	}
	return data, rows.Err()
}
