package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pediatric-gfr-server/internal/domain"
)

var recordColumns = []string{
	"id", "patient_ref", "decline_model", "gfr_formula",
	"initial_gfr", "final_gfr", "ckd_stage", "progression_risk",
	"patient", "report", "created_at",
}

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	store, err := NewPostgresStore(db)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return store, mock
}

func TestNewPostgresStore_NilDB(t *testing.T) {
	_, err := NewPostgresStore(nil)
	assert.Error(t, err)
}

func TestPostgresStore_Save(t *testing.T) {
	store, mock := newMockStore(t)

	rec := NewRecord("chart-9", samplePatient(), sampleReport(80))
	mock.ExpectExec("INSERT INTO evaluations").
		WithArgs(rec.ID, "chart-9", "linear", "height-over-fixed-scr",
			80.0, 78.0, 3, 0.42,
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Save(context.Background(), rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Get(t *testing.T) {
	store, mock := newMockStore(t)

	patientJSON, err := json.Marshal(samplePatient())
	require.NoError(t, err)
	reportJSON, err := json.Marshal(sampleReport(80))
	require.NoError(t, err)
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(recordColumns).
		AddRow("abc", "chart-9", "exponential-mild", "height-over-creatinine",
			80.0, 78.0, 3, 0.42, string(patientJSON), string(reportJSON), created)
	mock.ExpectQuery(`SELECT (.+) FROM evaluations WHERE id = \$1`).
		WithArgs("abc").
		WillReturnRows(rows)

	rec, err := store.Get(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", rec.ID)
	assert.Equal(t, domain.ExponentialMild, rec.DeclineModel)
	assert.Equal(t, domain.HeightOverCreatinine, rec.GFRFormula)
	assert.Equal(t, domain.CKDStage3, rec.CKDStage)
	assert.Equal(t, created, rec.CreatedAt)
	assert.InDelta(t, 80.0, rec.Report.InitialGFR, 1e-9)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT (.+) FROM evaluations WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPostgresStore_Count(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM evaluations`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), count)
}

func TestPostgresStore_Delete(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`DELETE FROM evaluations WHERE id = \$1`).
		WithArgs("abc").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Delete(context.Background(), "abc"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListScanError(t *testing.T) {
	store, mock := newMockStore(t)

	rows := sqlmock.NewRows(recordColumns).
		AddRow("abc", "", "linear", "height-over-fixed-scr",
			80.0, 78.0, 3, 0.42, "{not json", "{}", time.Now())
	mock.ExpectQuery(`SELECT (.+) FROM evaluations ORDER BY created_at DESC`).
		WithArgs(10, 0).
		WillReturnRows(rows)

	_, err := store.List(context.Background(), 10, 0)
	assert.Error(t, err)
}
