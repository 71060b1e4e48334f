// Package engine implements the pediatric GFR estimation pipeline. Every
// function is pure: the same input and configuration always produce the same
// report, and nothing is retained between calls.
package engine

import (
	"fmt"

	"github.com/pediatric-gfr-server/internal/domain"
)

// Engine is the stateless domain.Evaluator implementation.
type Engine struct{}

// New returns an Engine.
func New() *Engine {
	return &Engine{}
}

// Evaluate implements domain.Evaluator.
func (Engine) Evaluate(patient domain.PatientInput, cfg domain.EngineConfig) (*domain.EstimationReport, error) {
	return Evaluate(patient, cfg)
}

// Evaluate validates the patient against cfg and builds the full report.
func Evaluate(patient domain.PatientInput, cfg domain.EngineConfig) (*domain.EstimationReport, error) {
	cfg, err := ValidateConfig(cfg)
	if err != nil {
		return nil, err
	}
	if err := ValidatePatient(patient, cfg); err != nil {
		return nil, err
	}

	profile := ResolveProfile(cfg)
	years := cfg.Horizon(patient)
	var warnings []string

	initial := InitialGFR(patient, cfg.GFRFormula, profile.Schwartz)
	if !isFinite(initial) {
		return nil, domain.NewOutOfDomain("initial_gfr", fmt.Sprintf("evaluates to %v", initial))
	}
	if initial == 0 {
		warnings = append(warnings, outOfDomain("initial_gfr", "estimated GFR clamped to zero"))
	}

	proj := NewProjection(patient, cfg.DeclineModel, initial, profile.Hazard)
	if !isFinite(proj.Rate) {
		return nil, domain.NewOutOfDomain("decline_rate_per_year", fmt.Sprintf("evaluates to %v", proj.Rate))
	}
	yearly := proj.Yearly(years)
	final := yearly[len(yearly)-1]
	if proj.Rate < 0 {
		warnings = append(warnings, outOfDomain("decline_rate", fmt.Sprintf("negative decline rate %.4f projects rising GFR", proj.Rate)))
	}
	if years > 0 && final == 0 {
		warnings = append(warnings, outOfDomain("yearly_gfr", "projected GFR clamped to zero"))
	}

	ri := ResistiveIndex(patient.VesselDiastolic, patient.VesselSystolic)

	report := &domain.EstimationReport{
		Config:              cfg,
		InitialGFR:          initial,
		YearlyGFR:           yearly,
		DeclineRatePerYear:  proj.Rate,
		ProgressionRisk:     ProgressionRisk(patient, initial, profile.Risk),
		MLProxy:             MLProxyScore(patient, ri, profile.ML),
		Biomarkers:          AnalyzeBiomarkers(patient),
		Treatments:          TreatmentEffectiveness(patient, initial, ri),
		CKDStage:            StageFor(initial, patient, cfg.StagingMode),
		ProjectedCKDStage:   StageFor(final, patient, cfg.StagingMode),
		AlbuminuriaCategory: AlbuminuriaCategoryFor(patient.Albuminuria),
		ResistiveIndex:      ri,
		ComplicationRisks:   ComplicationRisksAt(final),
		ESRDRisk5Y:          ESRDRisk(proj.At(5)),
		ESRDRisk10Y:         ESRDRisk(proj.At(10)),
		CVDRisk:             CVDRisk(initial, patient.Age),
		Reliability:         Reliability(initial, proj.Rate),
		Clinical:            clinicalIndicators(patient, proj, yearly),
		Warnings:            warnings,
	}
	if err := checkFinite(report); err != nil {
		return nil, err
	}
	return report, nil
}

func outOfDomain(field, message string) string {
	return (&domain.EngineError{Kind: domain.KindOutOfDomain, Field: field, Message: message}).Error()
}
