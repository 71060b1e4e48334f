// Package history stores completed GFR evaluations so they can be listed,
// re-rendered and exported later.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/pediatric-gfr-server/internal/domain"
)

// Record is one stored evaluation.
type Record struct {
	ID              string                   `json:"id"`
	PatientRef      string                   `json:"patient_ref,omitempty"` // Caller supplied reference, never a name
	DeclineModel    domain.DeclineModel      `json:"decline_model"`
	GFRFormula      domain.GFRFormula        `json:"gfr_formula"`
	InitialGFR      float64                  `json:"initial_gfr"`
	FinalGFR        float64                  `json:"final_gfr"`
	CKDStage        domain.CKDStage          `json:"ckd_stage"`
	ProgressionRisk float64                  `json:"progression_risk"`
	Patient         domain.PatientInput      `json:"patient"`
	Report          *domain.EstimationReport `json:"report"`
	CreatedAt       time.Time                `json:"created_at"`
}

// NewRecord builds a record with a fresh ID from an evaluated report.
func NewRecord(patientRef string, patient domain.PatientInput, report *domain.EstimationReport) *Record {
	return &Record{
		ID:              uuid.New().String(),
		PatientRef:      patientRef,
		DeclineModel:    report.Config.DeclineModel,
		GFRFormula:      report.Config.GFRFormula,
		InitialGFR:      report.InitialGFR,
		FinalGFR:        report.FinalGFR(),
		CKDStage:        report.CKDStage,
		ProgressionRisk: report.ProgressionRisk,
		Patient:         patient,
		Report:          report,
	}
}

// Store defines the interface for evaluation history storage.
type Store interface {
	// Save inserts a record. An empty ID is assigned a new UUID.
	Save(ctx context.Context, record *Record) error

	// Get returns the record with the given ID or domain.ErrNotFound.
	Get(ctx context.Context, id string) (*Record, error)

	// List returns records newest first.
	List(ctx context.Context, limit, offset int) ([]*Record, error)

	Count(ctx context.Context) (int64, error)

	Delete(ctx context.Context, id string) error

	// ExportJSON writes every record as a single JSON document.
	ExportJSON(ctx context.Context, writer io.Writer) error

	// ImportJSON reads an export document. Records whose ID already exists
	// are skipped.
	ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error)

	Close() error
}

// Export is the on-disk format of ExportJSON.
type Export struct {
	Version    string    `json:"version"`
	ExportedAt time.Time `json:"exported_at"`
	Count      int       `json:"count"`
	Records    []*Record `json:"records"`
}

const exportVersion = "1.0"

// maxExportLimit is the maximum number of records exported at once.
const maxExportLimit = 1000000

type scanner interface {
	Scan(dest ...interface{}) error
}

// scanRecord reads the column order shared by both stores.
func scanRecord(s scanner) (*Record, error) {
	rec := &Record{}
	var model, formula string
	var stage int
	var patientJSON, reportJSON string

	err := s.Scan(
		&rec.ID, &rec.PatientRef, &model, &formula,
		&rec.InitialGFR, &rec.FinalGFR, &stage, &rec.ProgressionRisk,
		&patientJSON, &reportJSON, &rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.DeclineModel = domain.DeclineModel(model)
	rec.GFRFormula = domain.GFRFormula(formula)
	rec.CKDStage = domain.CKDStage(stage)

	if err := json.Unmarshal([]byte(patientJSON), &rec.Patient); err != nil {
		return nil, fmt.Errorf("failed to decode patient: %w", err)
	}
	rec.Report = &domain.EstimationReport{}
	if err := json.Unmarshal([]byte(reportJSON), rec.Report); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}
	return rec, nil
}

// encodeRecord prepares the JSON columns and fills ID and CreatedAt.
func encodeRecord(rec *Record) (patientJSON, reportJSON string, err error) {
	if rec.Report == nil {
		return "", "", fmt.Errorf("record has no report")
	}
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	p, err := json.Marshal(rec.Patient)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode patient: %w", err)
	}
	r, err := json.Marshal(rec.Report)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode report: %w", err)
	}
	return string(p), string(r), nil
}

func writeExport(writer io.Writer, records []*Record) error {
	export := &Export{
		Version:    exportVersion,
		ExportedAt: time.Now(),
		Count:      len(records),
		Records:    records,
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}

// importRecords saves every record whose ID is not yet stored.
func importRecords(ctx context.Context, s Store, reader io.Reader) (imported int, skipped int, err error) {
	var export Export
	if err := json.NewDecoder(reader).Decode(&export); err != nil {
		return 0, 0, fmt.Errorf("failed to decode JSON: %w", err)
	}

	for _, rec := range export.Records {
		if rec.ID != "" {
			_, err := s.Get(ctx, rec.ID)
			if err == nil {
				skipped++
				continue
			}
			if !errors.Is(err, domain.ErrNotFound) {
				return imported, skipped, fmt.Errorf("failed to check existing: %w", err)
			}
		}

		if err := s.Save(ctx, rec); err != nil {
			return imported, skipped, fmt.Errorf("failed to save: %w", err)
		}
		imported++
	}

	return imported, skipped, nil
}
