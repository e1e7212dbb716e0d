// Package incidents stores incidence records and their photo attachments.
// Authorization is decided by the gate at the call site; this package
// enforces scope visibility and the client ownership filter on reads.
package incidents

import (
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

// Service implements incidence operations over PostgreSQL and blob storage.
type Service struct {
	db    *sql.DB
	blobs storage.Blob
}

// NewService creates a Service.
func NewService(db *sql.DB, blobs storage.Blob) *Service {
	return &Service{db: db, blobs: blobs}
}

// ListFilter narrows List results. OwnerID is set for clients, who may only
// see incidences they reported.
type ListFilter struct {
	Status  *models.IncidenceStatus
	OwnerID *int64
}

// List returns incidences visible under sc, newest first.
func (s *Service) List(ctx context.Context, sc scope.Descriptor, filter ListFilter, limit, offset int) ([]*models.Incidence, error) {
	if sc.Empty() {
		return []*models.Incidence{}, nil
	}

	query := `
		SELECT id, plant_id, reported_by, title, description, status, created_at, updated_at
		FROM incidences
		WHERE 1=1
	`
	args := []interface{}{}
	if !sc.Unrestricted() {
		args = append(args, pq.Array(sc.PlantIDs()))
		query += fmt.Sprintf(" AND plant_id = ANY($%d)", len(args))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.OwnerID != nil {
		args = append(args, *filter.OwnerID)
		query += fmt.Sprintf(" AND reported_by = $%d", len(args))
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list incidences: %w", err)
	}
	defer rows.Close()

	incidences := []*models.Incidence{}
	for rows.Next() {
		inc := &models.Incidence{}
		if err := rows.Scan(&inc.ID, &inc.PlantID, &inc.ReportedBy, &inc.Title, &inc.Description,
			&inc.Status, &inc.CreatedAt, &inc.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan incidence: %w", err)
		}
		incidences = append(incidences, inc)
	}
	return incidences, rows.Err()
}

// Get returns one incidence with its photos. Out-of-scope records report not
// found.
func (s *Service) Get(ctx context.Context, sc scope.Descriptor, id int64) (*models.Incidence, error) {
	query := `
		SELECT id, plant_id, reported_by, title, description, status, created_at, updated_at
		FROM incidences
		WHERE id = $1
	`
	inc := &models.Incidence{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&inc.ID, &inc.PlantID, &inc.ReportedBy, &inc.Title, &inc.Description,
		&inc.Status, &inc.CreatedAt, &inc.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("incidence")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get incidence: %w", err)
	}
	if !sc.Allows(inc.PlantID) {
		return nil, apperr.NotFound("incidence")
	}

	photoQuery := `
		SELECT id, incidence_id, object_key, uploaded_at
		FROM incidence_photos
		WHERE incidence_id = $1
		ORDER BY uploaded_at ASC
	`
	rows, err := s.db.QueryContext(ctx, photoQuery, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list photos: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p models.IncidencePhoto
		if err := rows.Scan(&p.ID, &p.IncidenceID, &p.ObjectKey, &p.UploadedAt); err != nil {
			return nil, fmt.Errorf("failed to scan photo: %w", err)
		}
		inc.Photos = append(inc.Photos, p)
	}
	return inc, rows.Err()
}

// Create inserts the incidence with status pending. The plant must be in
// scope.
func (s *Service) Create(ctx context.Context, sc scope.Descriptor, inc *models.Incidence) error {
	if !sc.Allows(inc.PlantID) {
		return apperr.NotFound("plant")
	}
	if inc.Title == "" {
		return apperr.Validation("title is required")
	}

	query := `
		INSERT INTO incidences (plant_id, reported_by, title, description, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`
	inc.Status = models.IncidencePending
	err := s.db.QueryRowContext(ctx, query, inc.PlantID, inc.ReportedBy, inc.Title, inc.Description, inc.Status).
		Scan(&inc.ID, &inc.CreatedAt, &inc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create incidence: %w", err)
	}
	return nil
}

// UpdateStatus transitions an in-scope incidence.
func (s *Service) UpdateStatus(ctx context.Context, sc scope.Descriptor, id int64, status models.IncidenceStatus) (*models.Incidence, error) {
	if !status.Valid() {
		return nil, apperr.Validation(fmt.Sprintf("invalid status %q", status))
	}

	// Scope check first, through the same visibility path as reads.
	current, err := s.Get(ctx, sc, id)
	if err != nil {
		return nil, err
	}

	query := `UPDATE incidences SET status = $1, updated_at = NOW() WHERE id = $2`
	if _, err := s.db.ExecContext(ctx, query, status, id); err != nil {
		return nil, fmt.Errorf("failed to update incidence status: %w", err)
	}
	current.Status = status
	current.UpdatedAt = time.Now()
	return current, nil
}

// AttachPhoto uploads the photo to blob storage and records it.
func (s *Service) AttachPhoto(ctx context.Context, sc scope.Descriptor, incidenceID int64, body io.Reader, contentType string) (*models.IncidencePhoto, error) {
	if _, err := s.Get(ctx, sc, incidenceID); err != nil {
		return nil, err
	}

	key := fmt.Sprintf("incidences/%d/%s", incidenceID, uuid.NewString())
	if err := s.blobs.Put(ctx, key, body, contentType); err != nil {
		return nil, fmt.Errorf("failed to store photo: %w", err)
	}

	query := `
		INSERT INTO incidence_photos (incidence_id, object_key)
		VALUES ($1, $2)
		RETURNING id, uploaded_at
	`
	photo := &models.IncidencePhoto{IncidenceID: incidenceID, ObjectKey: key}
	if err := s.db.QueryRowContext(ctx, query, incidenceID, key).Scan(&photo.ID, &photo.UploadedAt); err != nil {
		return nil, fmt.Errorf("failed to record photo: %w", err)
	}
	return photo, nil
}

// CountOpen returns the number of unresolved incidences in scope, used by the
// dashboard aggregate.
func (s *Service) CountOpen(ctx context.Context, sc scope.Descriptor) (int64, error) {
	if sc.Empty() {
		return 0, nil
	}

	query := `SELECT COUNT(*) FROM incidences WHERE status <> $1`
	args := []interface{}{models.IncidenceResolved}
	if !sc.Unrestricted() {
		query += ` AND plant_id = ANY($2)`
		args = append(args, pq.Array(sc.PlantIDs()))
	}

	var count int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count open incidences: %w", err)
	}
	return count, nil
}
