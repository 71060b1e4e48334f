package engine

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pediatric-gfr-server/internal/domain"
)

// referencePatient is the worked example of the linear model.
func referencePatient() domain.PatientInput {
	return domain.PatientInput{
		Age:      8,
		Gender:   domain.Female,
		HeightCM: 130,
		Biomarkers: domain.Biomarkers{
			IL1: 2, IL6: 3, IL8: 2, IL10: 4, TNF: 10, TGF: 12,
		},
		VesselDiastolic: 10,
		VesselSystolic:  15,
		Albuminuria:     1,
		StageCategory:   domain.StageA,
		ProjectionYears: 5,
	}
}

func TestEvaluate_LinearScenario(t *testing.T) {
	report, err := Evaluate(referencePatient(), domain.DefaultEngineConfig())
	require.NoError(t, err)

	expectedInitial := 0.55 * 130 / 0.7 * 0.55
	expectedRate := 0.7 * (0.5 + 0.05*(7.0/3.0) + 0.03*11 - 0.1*4 + 0.05*1 - 0.02*1.5)

	assert.InDelta(t, 56.1786, report.InitialGFR, 1e-4)
	assert.InDelta(t, expectedInitial, report.InitialGFR, 1e-12)
	assert.InDelta(t, 0.39667, report.DeclineRatePerYear, 1e-5)
	assert.InDelta(t, expectedRate, report.DeclineRatePerYear, 1e-12)
	assert.Greater(t, report.DeclineRatePerYear, minLinearRate, "floor must not be hit")

	require.Len(t, report.YearlyGFR, 6)
	for year, g := range report.YearlyGFR {
		assert.InDelta(t, expectedInitial-expectedRate*float64(year), g, 1e-9, "year %d", year)
	}

	assert.Equal(t, domain.CKDStage3, report.CKDStage)
	assert.Equal(t, domain.CKDStage3, report.ProjectedCKDStage)
	assert.Equal(t, domain.AlbuminuriaA1, report.AlbuminuriaCategory)
	assert.InDelta(t, 1.0/3.0, report.ResistiveIndex, 1e-12)
	assert.InDelta(t, 10+(60-expectedInitial)*0.3-1, report.CVDRisk, 1e-9)
	assert.InDelta(t, 95-expectedRate/expectedInitial*100, report.Reliability, 1e-9)
	assert.Zero(t, report.ESRDRisk5Y)
	assert.Zero(t, report.ESRDRisk10Y)
	assert.Empty(t, report.Warnings)

	final := report.FinalGFR()
	assert.InDelta(t, 100-final, report.ComplicationRisks.Anemia, 1e-9)
	assert.InDelta(t, 130-1.3*final, report.ComplicationRisks.Acidosis, 1e-9)
}

func TestEvaluate_Idempotent(t *testing.T) {
	configs := []domain.EngineConfig{
		domain.DefaultEngineConfig(),
		{DeclineModel: domain.ExponentialMild, GFRFormula: domain.HeightOverCreatinine},
		{DeclineModel: domain.ExponentialAggressive, GFRFormula: domain.HeightOverCreatinine, SchwartzProfile: domain.SchwartzRevised, StagingMode: domain.StagingAlbuminuriaAware, ProjectionYears: domain.Years(12)},
	}

	patient := referencePatient()
	patient.SerumCreatinine = 45

	for _, cfg := range configs {
		t.Run(string(cfg.DeclineModel), func(t *testing.T) {
			first, err := Evaluate(patient, cfg)
			require.NoError(t, err)
			second, err := Evaluate(patient, cfg)
			require.NoError(t, err)

			assert.Equal(t, first, second)
			for i := range first.YearlyGFR {
				assert.Equal(t, math.Float64bits(first.YearlyGFR[i]), math.Float64bits(second.YearlyGFR[i]))
			}

			// Mutating one report must not leak into the next evaluation.
			first.YearlyGFR[0] = -1
			third, err := Evaluate(patient, cfg)
			require.NoError(t, err)
			assert.Equal(t, second.YearlyGFR, third.YearlyGFR)
		})
	}
}

func TestEvaluate_ZeroYears(t *testing.T) {
	for _, model := range []domain.DeclineModel{domain.LinearDecline, domain.ExponentialMild, domain.ExponentialAggressive} {
		t.Run(string(model), func(t *testing.T) {
			cfg := domain.DefaultEngineConfig()
			cfg.DeclineModel = model
			cfg.ProjectionYears = domain.Years(0)

			report, err := Evaluate(referencePatient(), cfg)
			require.NoError(t, err)
			require.Len(t, report.YearlyGFR, 1)
			assert.Equal(t, report.InitialGFR, report.YearlyGFR[0])
			assert.Equal(t, 0, report.Horizon())
			assert.Zero(t, report.Clinical.AnnualDeclinePercent)
		})
	}
}

func TestEvaluate_Invariants(t *testing.T) {
	patients := []domain.PatientInput{referencePatient()}

	severe := referencePatient()
	severe.Age = 17
	severe.Gender = domain.Male
	severe.HeightCM = 175
	severe.Albuminuria = 900
	severe.Hypertension = true
	severe.StageCategory = domain.StageD
	severe.RenalInfectionCount = 12
	severe.Biomarkers = domain.Biomarkers{IL1: 40, IL6: 60, IL8: 90, IL10: 0.2, TNF: 80, TGF: 150}
	severe.ProjectionYears = 30
	patients = append(patients, severe)

	infant := referencePatient()
	infant.Age = 0.5
	infant.HeightCM = 62
	infant.SerumCreatinine = 30
	infant.ProjectionYears = 10
	patients = append(patients, infant)

	models := []domain.DeclineModel{domain.LinearDecline, domain.ExponentialMild, domain.ExponentialAggressive}
	formulas := []domain.GFRFormula{domain.HeightOverFixedScr, domain.HeightOverCreatinine}

	for i, p := range patients {
		if p.SerumCreatinine == 0 {
			p.SerumCreatinine = 60
		}
		for _, model := range models {
			for _, formula := range formulas {
				cfg := domain.EngineConfig{DeclineModel: model, GFRFormula: formula}
				report, err := Evaluate(p, cfg)
				require.NoError(t, err, "patient %d %s %s", i, model, formula)

				assert.GreaterOrEqual(t, report.InitialGFR, 0.0)
				if formula == domain.HeightOverFixedScr {
					assert.LessOrEqual(t, report.InitialGFR, 120.0)
				}
				for year, g := range report.YearlyGFR {
					assert.GreaterOrEqual(t, g, 0.0, "year %d", year)
					if model.IsExponential() && report.DeclineRatePerYear >= 0 && year > 0 {
						assert.LessOrEqual(t, g, report.YearlyGFR[year-1])
					}
				}

				assert.Greater(t, report.ProgressionRisk, 0.0)
				assert.Less(t, report.ProgressionRisk, 1.0)
				assert.Greater(t, report.MLProxy.Risk, 0.0)
				assert.Less(t, report.MLProxy.Risk, 1.0)

				require.Len(t, report.Treatments, len(Treatments))
				for _, tr := range report.Treatments {
					assert.GreaterOrEqual(t, tr.Effectiveness, 0.0)
					assert.LessOrEqual(t, tr.Effectiveness, 0.95)
				}

				for _, v := range []float64{
					report.ComplicationRisks.Anemia,
					report.ComplicationRisks.Hyperphosphatemia,
					report.ComplicationRisks.Hyperparathyroidism,
					report.ComplicationRisks.Acidosis,
					report.ESRDRisk5Y,
					report.ESRDRisk10Y,
					report.CVDRisk,
				} {
					assert.GreaterOrEqual(t, v, 0.0)
					assert.LessOrEqual(t, v, 100.0)
				}
				assert.GreaterOrEqual(t, report.Reliability, 60.0)
				assert.LessOrEqual(t, report.Reliability, 95.0)
			}
		}
	}
}

func TestEvaluate_InvalidInput(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *domain.PatientInput, cfg *domain.EngineConfig)
		field  string
		target error
	}{
		{"Zero_IL10", func(p *domain.PatientInput, _ *domain.EngineConfig) { p.Biomarkers.IL10 = 0 }, "biomarkers.il10", domain.ErrInvalidInput},
		{"Zero_Vd", func(p *domain.PatientInput, _ *domain.EngineConfig) { p.VesselDiastolic = 0 }, "vd", domain.ErrInvalidInput},
		{"Zero_Vs", func(p *domain.PatientInput, _ *domain.EngineConfig) { p.VesselSystolic = 0 }, "vs", domain.ErrInvalidInput},
		{"Negative_Age", func(p *domain.PatientInput, _ *domain.EngineConfig) { p.Age = -1 }, "age", domain.ErrInvalidInput},
		{"NaN_Height", func(p *domain.PatientInput, _ *domain.EngineConfig) { p.HeightCM = math.NaN() }, "height_cm", domain.ErrInvalidInput},
		{"Infinite_TNF", func(p *domain.PatientInput, _ *domain.EngineConfig) { p.Biomarkers.TNF = math.Inf(1) }, "biomarkers.tnf", domain.ErrInvalidInput},
		{"Negative_Years", func(p *domain.PatientInput, _ *domain.EngineConfig) { p.ProjectionYears = -2 }, "projection_years", domain.ErrInvalidInput},
		{"Too_Many_Years", func(p *domain.PatientInput, _ *domain.EngineConfig) { p.ProjectionYears = 51 }, "projection_years", domain.ErrInvalidInput},
		{"Unknown_Gender", func(p *domain.PatientInput, _ *domain.EngineConfig) { p.Gender = "x" }, "gender", domain.ErrInvalidInput},
		{"Unknown_Stage", func(p *domain.PatientInput, _ *domain.EngineConfig) { p.StageCategory = "E" }, "stage_category", domain.ErrInvalidInput},
		{"Missing_Creatinine", func(p *domain.PatientInput, cfg *domain.EngineConfig) { cfg.GFRFormula = domain.HeightOverCreatinine }, "serum_creatinine", domain.ErrInvalidInput},
		{"Negative_Infections", func(p *domain.PatientInput, _ *domain.EngineConfig) { p.RenalInfectionCount = -1 }, "renal_infection_count", domain.ErrInvalidInput},
		{"Adult", func(p *domain.PatientInput, _ *domain.EngineConfig) { p.Age = 18.5 }, "age", domain.ErrUnsupportedAge},
		{"Unknown_Model", func(_ *domain.PatientInput, cfg *domain.EngineConfig) { cfg.DeclineModel = "quadratic" }, "decline_model", domain.ErrInvalidConfig},
		{"Unknown_Formula", func(_ *domain.PatientInput, cfg *domain.EngineConfig) { cfg.GFRFormula = "cystatin" }, "gfr_formula", domain.ErrInvalidConfig},
		{"Unknown_Scoring", func(_ *domain.PatientInput, cfg *domain.EngineConfig) { cfg.ScoringProfile = "extreme" }, "scoring_profile", domain.ErrInvalidConfig},
		{"Negative_Config_Years", func(_ *domain.PatientInput, cfg *domain.EngineConfig) { cfg.ProjectionYears = domain.Years(-1) }, "projection_years", domain.ErrInvalidConfig},
		{"Too_Tall", func(p *domain.PatientInput, _ *domain.EngineConfig) { p.HeightCM = 300 }, "height_cm", domain.ErrInvalidInput},
		{"Tiny_Creatinine", func(p *domain.PatientInput, cfg *domain.EngineConfig) {
			p.SerumCreatinine = 0.001
			p.ProjectionYears = 3
			cfg.DeclineModel = domain.ExponentialMild
			cfg.GFRFormula = domain.HeightOverCreatinine
		}, "serum_creatinine", domain.ErrInvalidInput},
		{"Huge_Creatinine", func(p *domain.PatientInput, cfg *domain.EngineConfig) {
			p.SerumCreatinine = 1e6
			cfg.GFRFormula = domain.HeightOverCreatinine
		}, "serum_creatinine", domain.ErrInvalidInput},
		{"Overflowing_Cytokines", func(p *domain.PatientInput, _ *domain.EngineConfig) {
			p.Biomarkers.IL1 = math.MaxFloat64
			p.Biomarkers.IL6 = math.MaxFloat64
			p.Biomarkers.IL8 = math.MaxFloat64
		}, "decline_rate_per_year", domain.ErrOutOfDomain},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := referencePatient()
			cfg := domain.DefaultEngineConfig()
			tt.mutate(&p, &cfg)

			report, err := Evaluate(p, cfg)
			require.Error(t, err)
			assert.Nil(t, report)
			assert.True(t, errors.Is(err, tt.target), "expected %v, got %v", tt.target, err)

			var engineErr *domain.EngineError
			require.True(t, errors.As(err, &engineErr))
			assert.Equal(t, tt.field, engineErr.Field)
		})
	}
}

func TestEvaluate_ExtremeValidInputsStayEncodable(t *testing.T) {
	tall := referencePatient()
	tall.Age = 17
	tall.Gender = domain.Male
	tall.HeightCM = 250
	tall.SerumCreatinine = 10
	tall.ProjectionYears = 50

	infant := referencePatient()
	infant.Age = 0.1
	infant.HeightCM = 45
	infant.SerumCreatinine = 5000
	infant.ProjectionYears = 50

	for _, p := range []domain.PatientInput{tall, infant} {
		for _, model := range []domain.DeclineModel{domain.LinearDecline, domain.ExponentialMild, domain.ExponentialAggressive} {
			cfg := domain.EngineConfig{DeclineModel: model, GFRFormula: domain.HeightOverCreatinine}

			report, err := Evaluate(p, cfg)
			require.NoError(t, err, "model %s, age %.1f", model, p.Age)
			for i, g := range report.YearlyGFR {
				assert.False(t, math.IsInf(g, 0) || math.IsNaN(g), "yearly_gfr[%d] = %v", i, g)
			}
			_, err = json.Marshal(report)
			assert.NoError(t, err, "model %s, age %.1f", model, p.Age)
		}
	}
}

func TestEvaluate_MaxAgeBoundary(t *testing.T) {
	p := referencePatient()
	p.Age = 18

	_, err := Evaluate(p, domain.DefaultEngineConfig())
	require.NoError(t, err)

	cfg := domain.DefaultEngineConfig()
	cfg.MaxAge = 16
	_, err = Evaluate(p, cfg)
	assert.ErrorIs(t, err, domain.ErrUnsupportedAge)
}

func TestEvaluate_ConfigHorizonOverridesPatient(t *testing.T) {
	cfg := domain.DefaultEngineConfig()
	cfg.ProjectionYears = domain.Years(2)

	report, err := Evaluate(referencePatient(), cfg)
	require.NoError(t, err)
	assert.Len(t, report.YearlyGFR, 3)
}

func TestEvaluate_ZeroValueConfigUsesPatientHorizon(t *testing.T) {
	report, err := Evaluate(referencePatient(), domain.EngineConfig{})
	require.NoError(t, err)
	assert.Len(t, report.YearlyGFR, referencePatient().ProjectionYears+1)
	assert.Nil(t, report.Config.ProjectionYears)
}

func TestEvaluate_ExponentialUsesHazard(t *testing.T) {
	p := referencePatient()
	p.SerumCreatinine = 50

	mild, err := Evaluate(p, domain.EngineConfig{DeclineModel: domain.ExponentialMild, GFRFormula: domain.HeightOverCreatinine, ProjectionYears: domain.Years(10)})
	require.NoError(t, err)
	aggressive, err := Evaluate(p, domain.EngineConfig{DeclineModel: domain.ExponentialAggressive, GFRFormula: domain.HeightOverCreatinine, ProjectionYears: domain.Years(10)})
	require.NoError(t, err)

	assert.InDelta(t, HazardRate(p, mild.InitialGFR, HazardMild), mild.DeclineRatePerYear, 1e-12)
	assert.Greater(t, aggressive.DeclineRatePerYear, mild.DeclineRatePerYear)
	assert.Less(t, aggressive.FinalGFR(), mild.FinalGFR())
	assert.Greater(t, aggressive.ProgressionRisk, mild.ProgressionRisk)

	for year, g := range mild.YearlyGFR {
		assert.InDelta(t, mild.InitialGFR*math.Exp(-mild.DeclineRatePerYear*float64(year)), g, 1e-9)
	}
}

func TestEvaluate_ClampedProjectionWarns(t *testing.T) {
	p := referencePatient()
	p.Albuminuria = 400
	p.ProjectionYears = 50

	report, err := Evaluate(p, domain.DefaultEngineConfig())
	require.NoError(t, err)

	assert.Zero(t, report.FinalGFR())
	require.NotEmpty(t, report.Warnings)
	assert.Contains(t, report.Warnings[0], string(domain.KindOutOfDomain))
	assert.Greater(t, report.ESRDRisk10Y, 0.0)
	assert.Equal(t, domain.CKDStage5, report.ProjectedCKDStage)
}

func TestEngine_ImplementsEvaluator(t *testing.T) {
	var evaluator domain.Evaluator = New()
	report, err := evaluator.Evaluate(referencePatient(), domain.DefaultEngineConfig())
	require.NoError(t, err)
	assert.NotNil(t, report)
}
