package history

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pediatric-gfr-server/internal/domain"
)

func sampleReport(initial float64) *domain.EstimationReport {
	return &domain.EstimationReport{
		Config:          domain.DefaultEngineConfig(),
		InitialGFR:      initial,
		YearlyGFR:       []float64{initial, initial - 1, initial - 2},
		ProgressionRisk: 0.42,
		CKDStage:        domain.CKDStage3,
		Clinical: domain.ClinicalIndicators{
			QualityOfLife: []float64{100, 99, 98},
		},
	}
}

func samplePatient() domain.PatientInput {
	return domain.PatientInput{
		Age:             8,
		Gender:          domain.Female,
		HeightCM:        130,
		VesselDiastolic: 10,
		VesselSystolic:  15,
		Biomarkers:      domain.Biomarkers{IL10: 10},
		StageCategory:   domain.StageA,
		ProjectionYears: 2,
	}
}

func createTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestNewSQLiteStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "history.db")

	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer store.Close()

	_, err = os.Stat(dbPath)
	assert.NoError(t, err, "database file should exist")
	assert.Equal(t, dbPath, store.Path())
}

func TestSQLiteStore_SaveAndGet(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	rec := NewRecord("chart-17", samplePatient(), sampleReport(56.18))
	require.NoError(t, store.Save(ctx, rec))
	assert.NotEmpty(t, rec.ID)
	assert.False(t, rec.CreatedAt.IsZero())

	got, err := store.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "chart-17", got.PatientRef)
	assert.Equal(t, domain.LinearDecline, got.DeclineModel)
	assert.Equal(t, domain.HeightOverFixedScr, got.GFRFormula)
	assert.Equal(t, domain.CKDStage3, got.CKDStage)
	assert.InDelta(t, 56.18, got.InitialGFR, 1e-9)
	assert.InDelta(t, 54.18, got.FinalGFR, 1e-9)
	assert.Equal(t, domain.StageA, got.Patient.StageCategory)
	require.NotNil(t, got.Report)
	assert.Equal(t, rec.Report.YearlyGFR, got.Report.YearlyGFR)
}

func TestSQLiteStore_GetMissing(t *testing.T) {
	store := createTestStore(t)

	_, err := store.Get(context.Background(), "does-not-exist")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSQLiteStore_SaveWithoutReport(t *testing.T) {
	store := createTestStore(t)

	err := store.Save(context.Background(), &Record{PatientRef: "x"})
	assert.Error(t, err)
}

func TestSQLiteStore_ListCountDelete(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 3; i++ {
		rec := NewRecord("p", samplePatient(), sampleReport(float64(60+i)))
		rec.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, store.Save(ctx, rec))
		ids = append(ids, rec.ID)
	}

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	list, err := store.List(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, ids[2], list[0].ID, "newest first")
	assert.Equal(t, ids[1], list[1].ID)

	page, err := store.List(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, ids[0], page[0].ID)

	require.NoError(t, store.Delete(ctx, ids[1]))
	count, err = store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestSQLiteStore_ExportImport(t *testing.T) {
	src := createTestStore(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		require.NoError(t, src.Save(ctx, NewRecord("p", samplePatient(), sampleReport(70))))
	}

	var buf bytes.Buffer
	require.NoError(t, src.ExportJSON(ctx, &buf))
	assert.Contains(t, buf.String(), `"version": "1.0"`)
	assert.Contains(t, buf.String(), `"count": 2`)

	dst := createTestStore(t)
	imported, skipped, err := dst.ImportJSON(ctx, bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 2, imported)
	assert.Equal(t, 0, skipped)

	// a second import sees the same IDs
	imported, skipped, err = dst.ImportJSON(ctx, bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 0, imported)
	assert.Equal(t, 2, skipped)
}

func TestSQLiteStore_ImportInvalidJSON(t *testing.T) {
	store := createTestStore(t)

	_, _, err := store.ImportJSON(context.Background(), bytes.NewBufferString("{not json"))
	assert.Error(t, err)
}
