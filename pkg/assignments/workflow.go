package assignments

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/apperr"
	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/auth"
	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/cache"
	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/models"
)

// PlantViewer supplies the refreshed plant-with-relations view returned after
// every successful mutation. Implemented by the plants service.
type PlantViewer interface {
	GetPlantWithRelations(ctx context.Context, plantID int64) (*models.PlantWithRelations, error)
}

// Workflow runs assignment mutations. Callers must have already passed the
// authorization gate (admin or superadmin); the workflow re-validates the
// data invariants, not the caller's role.
type Workflow struct {
	db     *sql.DB
	store  *Store
	plants PlantViewer
	cache  cache.Cache
	log    *logrus.Logger
}

// NewWorkflow creates a Workflow.
func NewWorkflow(db *sql.DB, store *Store, plants PlantViewer, c cache.Cache, log *logrus.Logger) *Workflow {
	return &Workflow{db: db, store: store, plants: plants, cache: c, log: log}
}

// Assign links the user to the plant and returns the refreshed plant view.
// For clients the single-plant cap is checked and the write performed inside
// one transaction, with the client's relation rows locked, so two concurrent
// assigns cannot both pass the cardinality check.
func (w *Workflow) Assign(ctx context.Context, userID, plantID int64, acting auth.Identity) (*models.PlantWithRelations, error) {
	user, err := w.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Role == models.RoleSuperAdmin {
		return nil, apperr.Conflict("superadmins cannot be assigned to plants")
	}

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := plantExists(ctx, tx, plantID); err != nil {
		return nil, err
	}

	kind := models.RoleTechnician
	if user.Role == models.RoleClient {
		kind = models.RoleClient

		current, err := clientPlantIDsForUpdate(ctx, tx, userID)
		if err != nil {
			return nil, err
		}
		for _, id := range current {
			if id == plantID {
				return nil, apperr.Conflict("already assigned")
			}
		}
		if len(current) > 0 {
			return nil, apperr.Conflict("client already has a plant")
		}

		insert := `INSERT INTO plant_users (user_id, plant_id, user_kind) VALUES ($1, $2, $3)`
		if _, err := tx.ExecContext(ctx, insert, userID, plantID, kind); err != nil {
			return nil, fmt.Errorf("failed to assign client: %w", err)
		}
	} else {
		// Staff assignment is plain set union; a duplicate insert is a no-op
		// at the database and a conflict to the caller.
		insert := `
			INSERT INTO plant_users (user_id, plant_id, user_kind)
			VALUES ($1, $2, $3)
			ON CONFLICT (user_id, plant_id) DO NOTHING
		`
		result, err := tx.ExecContext(ctx, insert, userID, plantID, kind)
		if err != nil {
			return nil, fmt.Errorf("failed to assign technician: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("failed to get rows affected: %w", err)
		}
		if affected == 0 {
			return nil, apperr.Conflict("already assigned")
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit assignment: %w", err)
	}

	w.invalidate(ctx, userID, acting)
	return w.plants.GetPlantWithRelations(ctx, plantID)
}

// Unassign removes the link and returns the refreshed plant view.
func (w *Workflow) Unassign(ctx context.Context, userID, plantID int64, acting auth.Identity) (*models.PlantWithRelations, error) {
	query := `DELETE FROM plant_users WHERE user_id = $1 AND plant_id = $2`
	result, err := w.db.ExecContext(ctx, query, userID, plantID)
	if err != nil {
		return nil, fmt.Errorf("failed to unassign user: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return nil, apperr.NotFound("assignment")
	}

	w.invalidate(ctx, userID, acting)
	return w.plants.GetPlantWithRelations(ctx, plantID)
}

// invalidate drops the mutated user's cache entries and then the whole store:
// other viewers' plant-list aggregates may include the affected plant, so
// plant-level changes invalidate globally. Cache failures are logged, never
// fatal; the cache is not a source of truth.
func (w *Workflow) invalidate(ctx context.Context, userID int64, acting auth.Identity) {
	if err := w.cache.InvalidateUser(ctx, userID); err != nil {
		w.log.WithError(err).WithField("user_id", userID).Warn("cache user invalidation failed")
	}
	if err := w.cache.InvalidateAll(ctx); err != nil {
		w.log.WithError(err).Warn("cache global invalidation failed")
	}
	w.log.WithFields(logrus.Fields{
		"user_id":   userID,
		"acting_id": acting.ID,
	}).Debug("assignment caches invalidated")
}
