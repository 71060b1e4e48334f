package engine

import (
	"math"

	"github.com/pediatric-gfr-server/internal/domain"
)

var milestoneThresholds = []struct {
	stage     domain.CKDStage
	threshold float64
}{
	{domain.CKDStage3, 60},
	{domain.CKDStage4, 30},
	{domain.CKDStage5, 15},
}

// riskFactorWeights drive the risk-factor contribution chart.
var riskFactorWeights = []struct {
	name   string
	weight float64
	value  func(p domain.PatientInput) float64
}{
	{"IL-1", 0.05, func(p domain.PatientInput) float64 { return p.Biomarkers.IL1 }},
	{"IL-6", 0.03, func(p domain.PatientInput) float64 { return p.Biomarkers.IL6 }},
	{"IL-8", 0.02, func(p domain.PatientInput) float64 { return p.Biomarkers.IL8 }},
	{"TNF-α", 0.01, func(p domain.PatientInput) float64 { return p.Biomarkers.TNF }},
	{"TGF-β", 0.02, func(p domain.PatientInput) float64 { return p.Biomarkers.TGF }},
	{"Albuminuria", 0.005, func(p domain.PatientInput) float64 { return p.Albuminuria }},
	{"IL-10", -0.1, func(p domain.PatientInput) float64 { return p.Biomarkers.IL10 }},
	{"Vd", -0.01, func(p domain.PatientInput) float64 { return p.VesselDiastolic }},
	{"Vs", -0.005, func(p domain.PatientInput) float64 { return p.VesselSystolic }},
}

// QualityOfLife maps a GFR value onto a 0..100 score.
func QualityOfLife(gfr float64) float64 {
	return clamp(100-(90-gfr)*1.5, 0, 100)
}

// ProgressionLabelFor classifies an absolute yearly decline.
func ProgressionLabelFor(decline float64) domain.ProgressionLabel {
	switch {
	case decline <= 1:
		return domain.ProgressionLow
	case decline <= 2:
		return domain.ProgressionModerate
	case decline <= 4:
		return domain.ProgressionHigh
	default:
		return domain.ProgressionVeryHigh
	}
}

// RRTRisk is the renal replacement therapy risk at a projected GFR.
func RRTRisk(gfr, age float64) float64 {
	if gfr >= 30 {
		return 0
	}
	return math.Min(100, 100-gfr+math.Max(0, (age-10)*2))
}

// MedicationEffectivenessFor scales the retained fraction of the initial GFR
// per regimen.
func MedicationEffectivenessFor(initial, final float64) domain.MedicationEffectiveness {
	if initial <= 0 {
		return domain.MedicationEffectiveness{}
	}
	base := final / initial * 100
	return domain.MedicationEffectiveness{
		ACEi:     base * 1.2,
		ARB:      base * 1.15,
		Combined: base * 1.25,
	}
}

// BMI returns nil when weight was not recorded.
func BMI(weightKG, heightCM float64) *float64 {
	if weightKG <= 0 || heightCM <= 0 {
		return nil
	}
	m := heightCM / 100
	bmi := weightKG / (m * m)
	return &bmi
}

// RiskFactorContributions weights the raw inputs for charting.
func RiskFactorContributions(p domain.PatientInput) []domain.RiskFactorContribution {
	out := make([]domain.RiskFactorContribution, 0, len(riskFactorWeights))
	for _, f := range riskFactorWeights {
		out = append(out, domain.RiskFactorContribution{
			Factor:       f.name,
			Contribution: f.value(p) * f.weight,
		})
	}
	return out
}

// NormalDeclineReference is the expected age-related GFR curve.
func NormalDeclineReference(years int) []float64 {
	if years < 0 {
		years = 0
	}
	out := make([]float64, years+1)
	for t := range out {
		out[t] = 100 - float64(t)*0.5
	}
	return out
}

func clinicalIndicators(p domain.PatientInput, proj Projection, yearly []float64) domain.ClinicalIndicators {
	qol := make([]float64, len(yearly))
	for i, g := range yearly {
		qol[i] = QualityOfLife(g)
	}

	milestones := make([]domain.StageMilestone, 0, len(milestoneThresholds))
	for _, m := range milestoneThresholds {
		years := proj.YearsUntil(m.threshold)
		milestones = append(milestones, domain.StageMilestone{
			Stage:     m.stage,
			Threshold: m.threshold,
			Years:     years,
			Reached:   years != nil && *years == 0,
		})
	}

	horizon := len(yearly) - 1
	final := yearly[horizon]
	var annualPercent float64
	if horizon > 0 && proj.Initial > 0 {
		annualPercent = (proj.Initial - final) / proj.Initial / float64(horizon) * 100
	}

	return domain.ClinicalIndicators{
		QualityOfLife:           qol,
		StageMilestones:         milestones,
		AnnualDeclinePercent:    annualPercent,
		ProgressionLabel:        ProgressionLabelFor(proj.FirstYearDecline()),
		RRTRisk:                 RRTRisk(final, p.Age),
		MedicationEffectiveness: MedicationEffectivenessFor(proj.Initial, final),
		BMI:                     BMI(p.WeightKG, p.HeightCM),
		RiskFactorContributions: RiskFactorContributions(p),
	}
}
