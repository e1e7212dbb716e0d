// Package assignments maintains the many-to-many user/plant relation and the
// assign/unassign workflow. Technicians (and admins) may hold any number of
// assignments; a client holds at most one at any time, enforced inside a
// transaction before every write.
package assignments

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/apperr"
	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/models"
)

// Store provides queries over the plant_users relation.
type Store struct {
	db *sql.DB
}

// NewStore creates a Store over the given database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// PlantIDsForUser returns the ids of every plant assigned to the user. The
// result may be empty; callers must treat empty as "sees nothing".
func (s *Store) PlantIDsForUser(ctx context.Context, userID int64) ([]int64, error) {
	query := `SELECT plant_id FROM plant_users WHERE user_id = $1 ORDER BY plant_id`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list plant assignments: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan plant id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListForPlant returns every assignment row for a plant.
func (s *Store) ListForPlant(ctx context.Context, plantID int64) ([]models.PlantAssignment, error) {
	query := `
		SELECT user_id, plant_id, user_kind, assigned_at
		FROM plant_users
		WHERE plant_id = $1
		ORDER BY assigned_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, plantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list plant members: %w", err)
	}
	defer rows.Close()

	var out []models.PlantAssignment
	for rows.Next() {
		var a models.PlantAssignment
		if err := rows.Scan(&a.UserID, &a.PlantID, &a.UserKind, &a.AssignedAt); err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// GetUser loads a user record, translating absence to a NotFoundError.
func (s *Store) GetUser(ctx context.Context, id int64) (*models.User, error) {
	query := `
		SELECT id, name, email, role, verified, created_at, updated_at
		FROM users
		WHERE id = $1
	`
	user := &models.User{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID, &user.Name, &user.Email, &user.Role, &user.Verified,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("user")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// plantExists verifies the plant row within the workflow's transaction.
func plantExists(ctx context.Context, tx *sql.Tx, plantID int64) error {
	var id int64
	err := tx.QueryRowContext(ctx, `SELECT id FROM plants WHERE id = $1`, plantID).Scan(&id)
	if err == sql.ErrNoRows {
		return apperr.NotFound("plant")
	}
	if err != nil {
		return fmt.Errorf("failed to check plant: %w", err)
	}
	return nil
}

// clientPlantIDsForUpdate reads the client's current assignments under a row
// lock so concurrent assigns for the same client serialize.
func clientPlantIDsForUpdate(ctx context.Context, tx *sql.Tx, userID int64) ([]int64, error) {
	query := `SELECT plant_id FROM plant_users WHERE user_id = $1 FOR UPDATE`
	rows, err := tx.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock client assignments: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan plant id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
