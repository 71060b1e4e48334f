package engine

import (
	"fmt"

	"github.com/pediatric-gfr-server/internal/domain"
)

type finiteChecker struct {
	err error
}

func (c *finiteChecker) value(field string, v float64) {
	if c.err == nil && !isFinite(v) {
		c.err = domain.NewOutOfDomain(field, fmt.Sprintf("evaluates to %v", v))
	}
}

func (c *finiteChecker) series(field string, values []float64) {
	for i, v := range values {
		c.value(fmt.Sprintf("%s[%d]", field, i), v)
	}
}

// checkFinite rejects a report holding NaN or ±Inf anywhere. Such a report
// cannot be encoded, stored or published.
func checkFinite(r *domain.EstimationReport) error {
	c := &finiteChecker{}

	c.value("initial_gfr", r.InitialGFR)
	c.series("yearly_gfr", r.YearlyGFR)
	c.value("decline_rate_per_year", r.DeclineRatePerYear)
	c.value("progression_risk", r.ProgressionRisk)
	c.value("ml_proxy.gfr", r.MLProxy.GFR)
	c.value("ml_proxy.risk", r.MLProxy.Risk)

	c.value("biomarker_analysis.inflammation_index", r.Biomarkers.InflammationIndex)
	c.value("biomarker_analysis.fibrotic_index", r.Biomarkers.FibroticIndex)
	c.value("biomarker_analysis.cytokine_ratio", r.Biomarkers.CytokineRatio)
	for name, m := range r.Biomarkers.Markers {
		c.value("biomarker_analysis.markers."+name, m.Value)
	}
	for _, t := range r.Treatments {
		c.value("treatment_effectiveness."+t.Name, t.Effectiveness)
	}

	c.value("resistive_index", r.ResistiveIndex)
	c.value("complication_risks.anemia", r.ComplicationRisks.Anemia)
	c.value("complication_risks.hyperphosphatemia", r.ComplicationRisks.Hyperphosphatemia)
	c.value("complication_risks.hyperparathyroidism", r.ComplicationRisks.Hyperparathyroidism)
	c.value("complication_risks.acidosis", r.ComplicationRisks.Acidosis)
	c.value("esrd_risk_5y", r.ESRDRisk5Y)
	c.value("esrd_risk_10y", r.ESRDRisk10Y)
	c.value("cvd_risk", r.CVDRisk)
	c.value("reliability", r.Reliability)

	cl := r.Clinical
	c.series("clinical.quality_of_life", cl.QualityOfLife)
	for _, m := range cl.StageMilestones {
		if m.Years != nil {
			c.value(fmt.Sprintf("clinical.stage_milestones.%d", m.Stage), *m.Years)
		}
	}
	c.value("clinical.annual_decline_percent", cl.AnnualDeclinePercent)
	c.value("clinical.rrt_risk", cl.RRTRisk)
	c.value("clinical.medication_effectiveness.acei", cl.MedicationEffectiveness.ACEi)
	c.value("clinical.medication_effectiveness.arb", cl.MedicationEffectiveness.ARB)
	c.value("clinical.medication_effectiveness.combined", cl.MedicationEffectiveness.Combined)
	if cl.BMI != nil {
		c.value("clinical.bmi", *cl.BMI)
	}
	for _, f := range cl.RiskFactorContributions {
		c.value("clinical.risk_factor_contributions."+f.Factor, f.Contribution)
	}

	return c.err
}
