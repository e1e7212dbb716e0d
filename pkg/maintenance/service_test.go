package maintenance

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/apperr"
	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/models"
	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/scope"
)

func newTestService(t *testing.T) (*Service, sqlmock.Sqlmock, *sql.DB) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return NewService(db), mock, db
}

func maintenanceRow(assignedTo interface{}) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "plant_id", "assigned_to", "description", "status", "scheduled_for", "created_at", "updated_at"}).
		AddRow(8, 10, assignedTo, "Cambio de filtros", "scheduled", now.Add(24*time.Hour), now, now)
}

func TestListByStatus(t *testing.T) {
	svc, mock, db := newTestService(t)
	defer db.Close()

	status := models.MaintenanceScheduled
	mock.ExpectQuery(regexp.QuoteMeta(`AND status = $2`)).
		WithArgs(pq.Array([]int64{10}), status, 20, 0).
		WillReturnRows(maintenanceRow(3))

	list, err := svc.List(context.Background(), scope.RestrictedTo([]int64{10}), &status, 20, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].AssignedTo)
	assert.EqualValues(t, 3, *list[0].AssignedTo)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListEmptyScope(t *testing.T) {
	svc, mock, db := newTestService(t)
	defer db.Close()

	list, err := svc.List(context.Background(), scope.RestrictedTo(nil), nil, 20, 0)
	require.NoError(t, err)
	assert.Empty(t, list)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetWithChecklist(t *testing.T) {
	svc, mock, db := newTestService(t)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM maintenance`)).
		WithArgs(int64(8)).
		WillReturnRows(maintenanceRow(nil))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM maintenance_checklist`)).
		WithArgs(int64(8)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "maintenance_id", "label", "done"}).
			AddRow(1, 8, "Revisar presion", true).
			AddRow(2, 8, "Cambiar filtro", false))

	m, err := svc.Get(context.Background(), scope.Unrestricted(), 8)
	require.NoError(t, err)
	assert.Nil(t, m.AssignedTo)
	require.Len(t, m.Checklist, 2)
	assert.True(t, m.Checklist[0].Done)
	assert.False(t, m.Checklist[1].Done)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOutOfScope(t *testing.T) {
	svc, mock, db := newTestService(t)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM maintenance`)).
		WithArgs(int64(8)).
		WillReturnRows(maintenanceRow(nil))

	_, err := svc.Get(context.Background(), scope.RestrictedTo([]int64{99}), 8)
	assert.True(t, apperr.IsNotFound(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateWithChecklist(t *testing.T) {
	svc, mock, db := newTestService(t)
	defer db.Close()

	now := time.Now()
	scheduled := now.Add(48 * time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO maintenance`)).
		WithArgs(int64(10), nil, "Cambio de filtros", models.MaintenanceScheduled, scheduled).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(8, now, now))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO maintenance_checklist`)).
		WithArgs(int64(8), "Revisar presion", false).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO maintenance_checklist`)).
		WithArgs(int64(8), "Cambiar filtro", false).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))
	mock.ExpectCommit()

	m := &models.Maintenance{
		PlantID:      10,
		Description:  "Cambio de filtros",
		ScheduledFor: scheduled,
		Checklist: []models.ChecklistItem{
			{Label: "Revisar presion"},
			{Label: "Cambiar filtro"},
		},
	}
	require.NoError(t, svc.Create(context.Background(), scope.Unrestricted(), m))
	assert.EqualValues(t, 8, m.ID)
	assert.EqualValues(t, 1, m.Checklist[0].ID)
	assert.EqualValues(t, 8, m.Checklist[1].MaintenanceID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRequiresSchedule(t *testing.T) {
	svc, mock, db := newTestService(t)
	defer db.Close()

	m := &models.Maintenance{PlantID: 10, Description: "x"}
	err := svc.Create(context.Background(), scope.Unrestricted(), m)
	var ve *apperr.ValidationError
	assert.ErrorAs(t, err, &ve)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatus(t *testing.T) {
	svc, mock, db := newTestService(t)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM maintenance`)).
		WithArgs(int64(8)).
		WillReturnRows(maintenanceRow(nil))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM maintenance_checklist`)).
		WithArgs(int64(8)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "maintenance_id", "label", "done"}))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE maintenance SET status = $1`)).
		WithArgs(models.MaintenanceCompleted, int64(8)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	m, err := svc.UpdateStatus(context.Background(), scope.Unrestricted(), 8, models.MaintenanceCompleted)
	require.NoError(t, err)
	assert.Equal(t, models.MaintenanceCompleted, m.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSetChecklistItem(t *testing.T) {
	svc, mock, db := newTestService(t)
	defer db.Close()

	t.Run("marks item done", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`FROM maintenance`)).
			WithArgs(int64(8)).
			WillReturnRows(maintenanceRow(nil))
		mock.ExpectQuery(regexp.QuoteMeta(`FROM maintenance_checklist`)).
			WithArgs(int64(8)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "maintenance_id", "label", "done"}))
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE maintenance_checklist SET done = $1`)).
			WithArgs(true, int64(1), int64(8)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, svc.SetChecklistItem(context.Background(), scope.Unrestricted(), 8, 1, true))
	})

	t.Run("missing item", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`FROM maintenance`)).
			WithArgs(int64(8)).
			WillReturnRows(maintenanceRow(nil))
		mock.ExpectQuery(regexp.QuoteMeta(`FROM maintenance_checklist`)).
			WithArgs(int64(8)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "maintenance_id", "label", "done"}))
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE maintenance_checklist SET done = $1`)).
			WithArgs(true, int64(99), int64(8)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := svc.SetChecklistItem(context.Background(), scope.Unrestricted(), 8, 99, true)
		assert.True(t, apperr.IsNotFound(err))
	})
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDueBetween(t *testing.T) {
	svc, mock, db := newTestService(t)
	defer db.Close()

	from := time.Now()
	to := from.Add(24 * time.Hour)
	mock.ExpectQuery(regexp.QuoteMeta(`scheduled_for >= $2 AND scheduled_for < $3`)).
		WithArgs(models.MaintenanceScheduled, from, to).
		WillReturnRows(maintenanceRow(3))

	due, err := svc.DueBetween(context.Background(), from, to)
	require.NoError(t, err)
	require.Len(t, due, 1)
	require.NotNil(t, due[0].AssignedTo)
	require.NoError(t, mock.ExpectationsWereMet())
}
