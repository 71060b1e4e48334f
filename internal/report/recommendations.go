// Package report turns an EstimationReport into presentation artefacts:
// a plain-text summary, a recommendation list and chart series.
package report

import (
	"github.com/pediatric-gfr-server/internal/domain"
	"github.com/pediatric-gfr-server/internal/engine"
)

// Recommendation categories.
const (
	CategoryGeneral      = "general"
	CategoryStage        = "stage"
	CategoryInflammation = "inflammation"
	CategoryFibrosis     = "fibrosis"
)

const (
	cytokineRatioThreshold = 2.0
	fibroticIndexThreshold = 1.5
)

// Recommendation is one follow-up suggestion.
type Recommendation struct {
	Category string          `json:"category"`
	MinStage domain.CKDStage `json:"min_stage,omitempty"`
	Text     string          `json:"text"`
}

var generalAdvice = []string{
	"Regular nephrology follow-up, with frequency set by CKD stage",
	"Blood pressure control (target below 130/80 mmHg)",
	"Limit salt intake to 5-6 g/day",
	"Maintain a normal body mass index",
}

var stageAdvice = []struct {
	minStage domain.CKDStage
	texts    []string
}{
	{domain.CKDStage2, []string{
		"Limit protein intake (0.8-1.0 g/kg/day for stages 2-3, 0.6-0.8 g/kg/day for stages 4-5)",
		"Consider an ACE inhibitor or angiotensin receptor blocker",
	}},
	{domain.CKDStage3, []string{
		"Monitor for anemia and prescribe iron supplements when needed",
		"Monitor and correct calcium-phosphate metabolism",
		"Prevent and treat metabolic acidosis",
	}},
	{domain.CKDStage4, []string{
		"Prepare for renal replacement therapy",
		"Vaccinate against hepatitis B",
		"Provide psychological support and patient education",
	}},
}

// Recommendations lists follow-up advice for the projected GFR at the end of
// the horizon and for elevated inflammatory or fibrotic indices. The stage
// used here is always the GFR-only stage of the final projected value.
func Recommendations(r *domain.EstimationReport) []Recommendation {
	var out []Recommendation
	for _, text := range generalAdvice {
		out = append(out, Recommendation{Category: CategoryGeneral, Text: text})
	}

	stage := engine.CKDStageFromGFR(r.FinalGFR())
	for _, advice := range stageAdvice {
		if stage < advice.minStage {
			continue
		}
		for _, text := range advice.texts {
			out = append(out, Recommendation{Category: CategoryStage, MinStage: advice.minStage, Text: text})
		}
	}

	if r.Biomarkers.CytokineRatio > cytokineRatioThreshold {
		out = append(out,
			Recommendation{Category: CategoryInflammation, Text: "Consider anti-inflammatory therapy"},
			Recommendation{Category: CategoryInflammation, Text: "Monitor inflammatory markers more closely"},
		)
	}
	if r.Biomarkers.FibroticIndex > fibroticIndexThreshold {
		out = append(out,
			Recommendation{Category: CategoryFibrosis, Text: "Consider antifibrotic therapy"},
			Recommendation{Category: CategoryFibrosis, Text: "Monitor CKD progression more frequently"},
		)
	}
	return out
}
