package report

import (
	"strconv"

	"github.com/pediatric-gfr-server/internal/domain"
	"github.com/pediatric-gfr-server/internal/engine"
)

// Chart kinds.
const (
	KindLine = "line"
	KindBar  = "bar"
)

// Series is one dataset of a chart. Values align with Chart.Labels.
type Series struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
}

// Chart is a renderer-neutral chart description.
type Chart struct {
	ID     string   `json:"id"`
	Title  string   `json:"title"`
	Kind   string   `json:"kind"`
	Unit   string   `json:"unit,omitempty"`
	Labels []string `json:"labels"`
	Series []Series `json:"series"`
}

// BuildCharts derives every chart of one evaluation. patient is needed to
// stage the yearly values in albuminuria-aware mode and for the risk
// factor breakdown. The result shares no state with other calls.
func BuildCharts(r *domain.EstimationReport, patient domain.PatientInput) []Chart {
	years := yearLabels(len(r.YearlyGFR))

	stages := make([]float64, len(r.YearlyGFR))
	anemia := make([]float64, len(r.YearlyGFR))
	phosphate := make([]float64, len(r.YearlyGFR))
	pth := make([]float64, len(r.YearlyGFR))
	acidosis := make([]float64, len(r.YearlyGFR))
	for i, g := range r.YearlyGFR {
		stages[i] = float64(engine.StageFor(g, patient, r.Config.StagingMode))
		risks := engine.ComplicationRisksAt(g)
		anemia[i] = risks.Anemia
		phosphate[i] = risks.Hyperphosphatemia
		pth[i] = risks.Hyperparathyroidism
		acidosis[i] = risks.Acidosis
	}

	charts := []Chart{
		{
			ID:     "gfr",
			Title:  "Projected GFR",
			Kind:   KindLine,
			Unit:   "mL/min/1.73m²",
			Labels: years,
			Series: []Series{
				{Name: "GFR", Values: append([]float64(nil), r.YearlyGFR...)},
				{Name: "Normal age-related decline", Values: engine.NormalDeclineReference(r.Horizon())},
			},
		},
		{
			ID:     "quality_of_life",
			Title:  "Quality of life",
			Kind:   KindLine,
			Unit:   "%",
			Labels: years,
			Series: []Series{{Name: "Quality of life", Values: append([]float64(nil), r.Clinical.QualityOfLife...)}},
		},
		{
			ID:     "ckd_stage",
			Title:  "CKD stage",
			Kind:   KindLine,
			Labels: years,
			Series: []Series{{Name: "CKD stage", Values: stages}},
		},
		{
			ID:     "complications",
			Title:  "Complication risks",
			Kind:   KindLine,
			Unit:   "%",
			Labels: years,
			Series: []Series{
				{Name: "Anemia", Values: anemia},
				{Name: "Hyperphosphatemia", Values: phosphate},
				{Name: "Hyperparathyroidism", Values: pth},
				{Name: "Acidosis", Values: acidosis},
			},
		},
		riskFactorChart(r.Clinical.RiskFactorContributions),
		treatmentChart(r.Treatments),
		biomarkerChart(r.Biomarkers),
	}
	return charts
}

func yearLabels(n int) []string {
	labels := make([]string, n)
	for i := range labels {
		labels[i] = "Year " + strconv.Itoa(i)
	}
	return labels
}

func riskFactorChart(contributions []domain.RiskFactorContribution) Chart {
	c := Chart{ID: "risk_factors", Title: "Contribution to GFR decline", Kind: KindBar}
	values := make([]float64, 0, len(contributions))
	for _, f := range contributions {
		c.Labels = append(c.Labels, f.Factor)
		values = append(values, f.Contribution)
	}
	c.Series = []Series{{Name: "Contribution", Values: values}}
	return c
}

func treatmentChart(treatments []domain.TreatmentEffect) Chart {
	c := Chart{ID: "treatments", Title: "Treatment effectiveness", Kind: KindBar, Unit: "%"}
	values := make([]float64, 0, len(treatments))
	for _, t := range treatments {
		c.Labels = append(c.Labels, t.Name)
		values = append(values, t.Effectiveness*100)
	}
	c.Series = []Series{{Name: "Effectiveness", Values: values}}
	return c
}

func biomarkerChart(a domain.BiomarkerAnalysis) Chart {
	c := Chart{ID: "biomarkers", Title: "Biomarkers", Kind: KindBar, Unit: "pg/mL"}
	var values, upper []float64
	for _, name := range engine.BiomarkerNames {
		m, ok := a.Markers[name]
		if !ok {
			continue
		}
		c.Labels = append(c.Labels, name)
		values = append(values, m.Value)
		upper = append(upper, m.NormalRange[1])
	}
	c.Series = []Series{
		{Name: "Value", Values: values},
		{Name: "Upper normal limit", Values: upper},
	}
	return c
}
