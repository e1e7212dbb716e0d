package assignments

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/apperr"
	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/models"
)

func newTestStore(t *testing.T) (*Store, sqlmock.Sqlmock, *sql.DB) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return NewStore(db), mock, db
}

func TestPlantIDsForUser(t *testing.T) {
	store, mock, db := newTestStore(t)
	defer db.Close()

	t.Run("multiple assignments", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT plant_id FROM plant_users WHERE user_id = $1 ORDER BY plant_id`)).
			WithArgs(int64(3)).
			WillReturnRows(sqlmock.NewRows([]string{"plant_id"}).AddRow(10).AddRow(11))

		ids, err := store.PlantIDsForUser(context.Background(), 3)
		require.NoError(t, err)
		assert.Equal(t, []int64{10, 11}, ids)
	})

	t.Run("no assignments", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT plant_id FROM plant_users WHERE user_id = $1 ORDER BY plant_id`)).
			WithArgs(int64(4)).
			WillReturnRows(sqlmock.NewRows([]string{"plant_id"}))

		ids, err := store.PlantIDsForUser(context.Background(), 4)
		require.NoError(t, err)
		assert.Empty(t, ids)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListForPlant(t *testing.T) {
	store, mock, db := newTestStore(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT user_id, plant_id, user_kind, assigned_at`)).
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "plant_id", "user_kind", "assigned_at"}).
			AddRow(3, 10, models.RoleTechnician, now).
			AddRow(7, 10, models.RoleClient, now))

	list, err := store.ListForPlant(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, models.RoleTechnician, list[0].UserKind)
	assert.Equal(t, models.RoleClient, list[1].UserKind)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUserNotFound(t *testing.T) {
	store, mock, db := newTestStore(t)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, name, email, role, verified, created_at, updated_at`)).
		WithArgs(int64(99)).
		WillReturnError(sql.ErrNoRows)

	_, err := store.GetUser(context.Background(), 99)
	assert.True(t, apperr.IsNotFound(err))
	require.NoError(t, mock.ExpectationsWereMet())
}
