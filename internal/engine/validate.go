package engine

import (
	"fmt"
	"math"

	"github.com/pediatric-gfr-server/internal/domain"
)

const (
	defaultMaxAge             = 18.0
	defaultMaxProjectionYears = 50

	// Plausible pediatric measurement ranges.
	maxHeightCM        = 250.0
	minSerumCreatinine = 10.0 // µmol/L
	maxSerumCreatinine = 5000.0
)

// ValidateConfig rejects unknown enumerations. Empty optional fields are
// filled with their defaults in the returned copy.
func ValidateConfig(cfg domain.EngineConfig) (domain.EngineConfig, error) {
	if cfg.DeclineModel == "" {
		cfg.DeclineModel = domain.LinearDecline
	}
	if !cfg.DeclineModel.IsValid() {
		return cfg, domain.NewInvalidConfig("decline_model", "unknown decline model", string(cfg.DeclineModel))
	}
	if cfg.GFRFormula == "" {
		cfg.GFRFormula = domain.HeightOverFixedScr
	}
	if !cfg.GFRFormula.IsValid() {
		return cfg, domain.NewInvalidConfig("gfr_formula", "unknown GFR formula", string(cfg.GFRFormula))
	}
	if cfg.SchwartzProfile == "" {
		cfg.SchwartzProfile = domain.SchwartzClassic
	}
	if !cfg.SchwartzProfile.IsValid() {
		return cfg, domain.NewInvalidConfig("schwartz_profile", "unknown Schwartz profile", string(cfg.SchwartzProfile))
	}
	if cfg.ScoringProfile != "" && !cfg.ScoringProfile.IsValid() {
		return cfg, domain.NewInvalidConfig("scoring_profile", "unknown scoring profile", string(cfg.ScoringProfile))
	}
	if cfg.StagingMode == "" {
		cfg.StagingMode = domain.StagingGFROnly
	}
	if !cfg.StagingMode.IsValid() {
		return cfg, domain.NewInvalidConfig("staging_mode", "unknown staging mode", string(cfg.StagingMode))
	}
	if cfg.MaxAge == 0 {
		cfg.MaxAge = defaultMaxAge
	}
	if !isFinite(cfg.MaxAge) || cfg.MaxAge < 0 {
		return cfg, domain.NewInvalidConfig("max_age", "must be a non-negative number", cfg.MaxAge)
	}
	if cfg.MaxProjectionYears == 0 {
		cfg.MaxProjectionYears = defaultMaxProjectionYears
	}
	if cfg.MaxProjectionYears < 0 {
		return cfg, domain.NewInvalidConfig("max_projection_years", "must not be negative", cfg.MaxProjectionYears)
	}
	if cfg.ProjectionYears != nil {
		years := *cfg.ProjectionYears
		if years < 0 {
			return cfg, domain.NewInvalidConfig("projection_years", "must not be negative", years)
		}
		if years > cfg.MaxProjectionYears {
			return cfg, domain.NewInvalidConfig("projection_years", "exceeds the maximum projection horizon", years)
		}
	}
	return cfg, nil
}

// ValidatePatient checks every invariant the formulas rely on. cfg must
// already have passed ValidateConfig.
func ValidatePatient(p domain.PatientInput, cfg domain.EngineConfig) error {
	numbers := []struct {
		field string
		value float64
	}{
		{"age", p.Age},
		{"height_cm", p.HeightCM},
		{"weight_kg", p.WeightKG},
		{"serum_creatinine", p.SerumCreatinine},
		{"biomarkers.il1", p.Biomarkers.IL1},
		{"biomarkers.il6", p.Biomarkers.IL6},
		{"biomarkers.il8", p.Biomarkers.IL8},
		{"biomarkers.il10", p.Biomarkers.IL10},
		{"biomarkers.tnf", p.Biomarkers.TNF},
		{"biomarkers.tgf", p.Biomarkers.TGF},
		{"vd", p.VesselDiastolic},
		{"vs", p.VesselSystolic},
		{"albuminuria", p.Albuminuria},
	}
	for _, n := range numbers {
		if !isFinite(n.value) {
			return domain.NewInvalidInput(n.field, "must be a finite number", n.value)
		}
		if n.value < 0 {
			return domain.NewInvalidInput(n.field, "must not be negative", n.value)
		}
	}

	if p.Age > cfg.MaxAge {
		return domain.NewUnsupportedAge(p.Age, cfg.MaxAge)
	}
	if !p.Gender.IsValid() {
		return domain.NewInvalidInput("gender", "must be male or female", string(p.Gender))
	}
	if !p.StageCategory.IsValid() {
		return domain.NewInvalidInput("stage_category", "must be one of A, B, C, D", string(p.StageCategory))
	}
	if p.HeightCM == 0 {
		return domain.NewInvalidInput("height_cm", "must be greater than zero", p.HeightCM)
	}
	if p.HeightCM > maxHeightCM {
		return domain.NewInvalidInput("height_cm", fmt.Sprintf("must not exceed %.0f cm", maxHeightCM), p.HeightCM)
	}
	if p.VesselDiastolic == 0 {
		return domain.NewInvalidInput("vd", "must be greater than zero", p.VesselDiastolic)
	}
	if p.VesselSystolic == 0 {
		return domain.NewInvalidInput("vs", "must be greater than zero", p.VesselSystolic)
	}
	if p.Biomarkers.IL10 == 0 {
		return domain.NewInvalidInput("biomarkers.il10", "must be greater than zero", p.Biomarkers.IL10)
	}
	if cfg.GFRFormula == domain.HeightOverCreatinine {
		if p.SerumCreatinine == 0 {
			return domain.NewInvalidInput("serum_creatinine", "must be greater than zero for the height-over-creatinine formula", p.SerumCreatinine)
		}
		if p.SerumCreatinine < minSerumCreatinine || p.SerumCreatinine > maxSerumCreatinine {
			return domain.NewInvalidInput("serum_creatinine",
				fmt.Sprintf("must be between %.0f and %.0f µmol/L", minSerumCreatinine, maxSerumCreatinine), p.SerumCreatinine)
		}
	}
	if p.RenalInfectionCount < 0 {
		return domain.NewInvalidInput("renal_infection_count", "must not be negative", p.RenalInfectionCount)
	}

	years := cfg.Horizon(p)
	if years < 0 {
		return domain.NewInvalidInput("projection_years", "must not be negative", years)
	}
	if years > cfg.MaxProjectionYears {
		return domain.NewInvalidInput("projection_years", "exceeds the maximum projection horizon", years)
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
