package reports

import (
	"bytes"
	"context"
	"database/sql"
	"io"
	"regexp"
	"strings"
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

type memBlob struct {
	objects map[string][]byte
	puts    int
	deletes int
}

func newMemBlob() *memBlob { return &memBlob{objects: map[string][]byte{}} }

func (b *memBlob) Put(_ context.Context, key string, body io.Reader, _ string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	b.objects[key] = data
	b.puts++
	return nil
}

func (b *memBlob) Get(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := b.objects[key]
	if !ok {
		return nil, apperr.NotFound("object")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (b *memBlob) Delete(_ context.Context, key string) error {
	delete(b.objects, key)
	b.deletes++
	return nil
}

type stubGenerator struct{}

func (stubGenerator) Generate(_ context.Context, plant *models.Plant, data []models.PlantDatum, _, _ time.Time) ([]byte, string, string, error) {
	return []byte("report for " + plant.Name), "text/plain", ".txt", nil
}

func newTestService(t *testing.T) (*Service, sqlmock.Sqlmock, *memBlob, *sql.DB) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	blobs := newMemBlob()
	return NewService(db, blobs, stubGenerator{}), mock, blobs, db
}

func reportColumns() []string {
	return []string{"id", "plant_id", "title", "object_key", "period_start", "period_end", "requested_by", "generated_at"}
}

func TestListRestricted(t *testing.T) {
	svc, mock, _, db := newTestService(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE plant_id = ANY($1)`)).
		WithArgs(pq.Array([]int64{10}), 20, 0).
		WillReturnRows(sqlmock.NewRows(reportColumns()).
			AddRow(3, 10, "Planta Norte 2026-02-01 - 2026-03-01", "reports/10/abc.txt", now.AddDate(0, -1, 0), now, 2, now))

	reports, err := svc.List(context.Background(), scope.RestrictedTo([]int64{10}), 20, 0)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.EqualValues(t, 2, reports[0].RequestedBy)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOutOfScope(t *testing.T) {
	svc, mock, _, db := newTestService(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM reports WHERE id = $1`)).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(reportColumns()).
			AddRow(3, 10, "t", "reports/10/abc.txt", now, now, 2, now))

	_, err := svc.Get(context.Background(), scope.RestrictedTo([]int64{11}), 3)
	assert.True(t, apperr.IsNotFound(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGenerate(t *testing.T) {
	svc, mock, blobs, db := newTestService(t)
	defer db.Close()

	now := time.Now()
	from := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM plants WHERE id = $1`)).
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "location", "client_id", "created_at", "updated_at"}).
			AddRow(10, "Planta Norte", "Antofagasta", nil, now, now))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM plant_data`)).
		WithArgs(int64(10), from, to).
		WillReturnRows(sqlmock.NewRows([]string{"id", "plant_id", "level", "flow_rate", "chlorine", "recorded_at"}).
			AddRow(1, 10, 0.8, 12.5, 0.4, from.Add(time.Hour)))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO reports`)).
		WithArgs(int64(10), "Planta Norte 2026-02-01 - 2026-03-01", sqlmock.AnyArg(), from, to, int64(2)).
		WillReturnRows(sqlmock.NewRows(reportColumns()).
			AddRow(3, 10, "Planta Norte 2026-02-01 - 2026-03-01", "reports/10/abc.txt", from, to, 2, now))

	r, err := svc.Generate(context.Background(), scope.Unrestricted(), 10, 2, from, to)
	require.NoError(t, err)
	assert.EqualValues(t, 3, r.ID)
	assert.Equal(t, 1, blobs.puts)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGenerateValidatesPeriod(t *testing.T) {
	svc, mock, _, db := newTestService(t)
	defer db.Close()

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	_, err := svc.Generate(context.Background(), scope.Unrestricted(), 10, 2, from, from)
	var ve *apperr.ValidationError
	assert.ErrorAs(t, err, &ve)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGenerateCleansOrphanedBlob(t *testing.T) {
	svc, mock, blobs, db := newTestService(t)
	defer db.Close()

	now := time.Now()
	from := now.AddDate(0, -1, 0)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM plants WHERE id = $1`)).
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "location", "client_id", "created_at", "updated_at"}).
			AddRow(10, "Planta Norte", "Antofagasta", nil, now, now))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM plant_data`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "plant_id", "level", "flow_rate", "chlorine", "recorded_at"}))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO reports`)).
		WillReturnError(assert.AnError)

	_, err := svc.Generate(context.Background(), scope.Unrestricted(), 10, 2, from, now)
	require.Error(t, err)
	assert.Equal(t, 1, blobs.deletes)
	assert.Empty(t, blobs.objects)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDownload(t *testing.T) {
	svc, mock, blobs, db := newTestService(t)
	defer db.Close()

	now := time.Now()
	blobs.objects["reports/10/abc.txt"] = []byte("report for Planta Norte")
	mock.ExpectQuery(regexp.QuoteMeta(`FROM reports WHERE id = $1`)).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(reportColumns()).
			AddRow(3, 10, "t", "reports/10/abc.txt", now, now, 2, now))

	body, err := svc.Download(context.Background(), scope.Unrestricted(), 3)
	require.NoError(t, err)
	defer body.Close()
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "report for Planta Norte", string(data))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteRemovesDocument(t *testing.T) {
	svc, mock, blobs, db := newTestService(t)
	defer db.Close()

	now := time.Now()
	blobs.objects["reports/10/abc.txt"] = []byte("x")
	mock.ExpectQuery(regexp.QuoteMeta(`FROM reports WHERE id = $1`)).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(reportColumns()).
			AddRow(3, 10, "t", "reports/10/abc.txt", now, now, 2, now))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM reports WHERE id = $1`)).
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, svc.Delete(context.Background(), scope.Unrestricted(), 3))
	assert.Empty(t, blobs.objects)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCleanupOlderThan(t *testing.T) {
	svc, mock, blobs, db := newTestService(t)
	defer db.Close()

	cutoff := time.Now().AddDate(0, -3, 0)
	blobs.objects["reports/10/old1.txt"] = []byte("x")
	blobs.objects["reports/11/old2.txt"] = []byte("y")

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE generated_at < $1`)).
		WithArgs(cutoff).
		WillReturnRows(sqlmock.NewRows([]string{"id", "object_key"}).
			AddRow(1, "reports/10/old1.txt").
			AddRow(2, "reports/11/old2.txt"))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM reports WHERE id = $1`)).
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM reports WHERE id = $1`)).
		WithArgs(int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	removed, err := svc.CleanupOlderThan(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.Empty(t, blobs.objects)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCSVGenerator(t *testing.T) {
	gen := NewCSVGenerator()
	plant := &models.Plant{ID: 10, Name: "Planta Norte", Location: "Antofagasta"}
	from := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	data := []models.PlantDatum{
		{PlantID: 10, Level: 0.8, FlowRate: 12.5, Chlorine: 0.4, RecordedAt: from.Add(time.Hour)},
	}

	body, contentType, ext, err := gen.Generate(context.Background(), plant, data, from, to)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", contentType)
	assert.Equal(t, ".csv", ext)

	out := string(body)
	assert.Contains(t, out, "plant,Planta Norte")
	assert.Contains(t, out, "recorded_at,level,flow_rate,chlorine")
	assert.Contains(t, out, "0.8,12.5,0.4")
	assert.True(t, strings.HasSuffix(out, "\n"))
}
