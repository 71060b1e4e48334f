package report

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/pediatric-gfr-server/internal/domain"
	"github.com/pediatric-gfr-server/internal/engine"
)

// Disclaimer closes every rendered report.
const Disclaimer = "Estimates are model projections for clinical decision support and do not replace measured GFR or specialist review."

// RenderText renders the report as a plain-text summary with recommendations.
func RenderText(r *domain.EstimationReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "PEDIATRIC GFR ESTIMATE\n")
	fmt.Fprintf(&b, "Model: %s, formula: %s, horizon: %d years\n\n", r.Config.DeclineModel, r.Config.GFRFormula, r.Horizon())

	fmt.Fprintf(&b, "Initial GFR:        %.1f mL/min/1.73m² (%s)\n", r.InitialGFR, r.CKDStage)
	fmt.Fprintf(&b, "Projected GFR:      %.1f mL/min/1.73m² (%s)\n", r.FinalGFR(), r.ProjectedCKDStage)
	fmt.Fprintf(&b, "Decline rate:       %.2f per year (%s progression)\n", r.DeclineRatePerYear, r.Clinical.ProgressionLabel)
	fmt.Fprintf(&b, "Annual decline:     %.1f%%\n", r.Clinical.AnnualDeclinePercent)
	fmt.Fprintf(&b, "Progression risk:   %.1f%%\n", r.ProgressionRisk*100)
	fmt.Fprintf(&b, "ML proxy:           GFR score %.3f, risk %.3f\n", r.MLProxy.GFR, r.MLProxy.Risk)
	fmt.Fprintf(&b, "Albuminuria:        %s\n", r.AlbuminuriaCategory)
	fmt.Fprintf(&b, "Resistive index:    %.3f\n", r.ResistiveIndex)
	fmt.Fprintf(&b, "Reliability:        %.1f%%\n", r.Reliability)
	if r.Clinical.BMI != nil {
		fmt.Fprintf(&b, "BMI:                %.1f kg/m²\n", *r.Clinical.BMI)
	}

	b.WriteString("\nYearly projection\n")
	tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Year\tGFR\tStage\tQuality of life")
	for i, g := range r.YearlyGFR {
		qol := 0.0
		if i < len(r.Clinical.QualityOfLife) {
			qol = r.Clinical.QualityOfLife[i]
		}
		fmt.Fprintf(tw, "%d\t%.1f\t%s\t%.0f%%\n", i, g, engine.CKDStageFromGFR(g), qol)
	}
	tw.Flush()

	b.WriteString("\nTime to stage thresholds\n")
	for _, m := range r.Clinical.StageMilestones {
		switch {
		case m.Reached:
			fmt.Fprintf(&b, "  %s (GFR < %.0f): already reached\n", m.Stage, m.Threshold)
		case m.Years == nil:
			fmt.Fprintf(&b, "  %s (GFR < %.0f): not reached\n", m.Stage, m.Threshold)
		default:
			fmt.Fprintf(&b, "  %s (GFR < %.0f): %.1f years\n", m.Stage, m.Threshold, *m.Years)
		}
	}

	b.WriteString("\nBiomarkers (" + r.Biomarkers.AgeBand + " reference ranges)\n")
	tw = tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Marker\tValue\tRange\tStatus")
	for _, name := range engine.BiomarkerNames {
		m, ok := r.Biomarkers.Markers[name]
		if !ok {
			continue
		}
		fmt.Fprintf(tw, "%s\t%.2f\t%.1f-%.1f\t%s\n", strings.ToUpper(name), m.Value, m.NormalRange[0], m.NormalRange[1], m.Status)
	}
	tw.Flush()
	fmt.Fprintf(&b, "Inflammation index %.2f, fibrotic index %.2f, cytokine ratio %.2f\n",
		r.Biomarkers.InflammationIndex, r.Biomarkers.FibroticIndex, r.Biomarkers.CytokineRatio)

	b.WriteString("\nTreatment effectiveness\n")
	for _, t := range r.Treatments {
		fmt.Fprintf(&b, "  %-9s %5.1f%%  %s\n", t.Name, t.Effectiveness*100, t.Explanation)
	}

	b.WriteString("\nRisks at end of horizon\n")
	fmt.Fprintf(&b, "  Anemia %.1f%%, hyperphosphatemia %.1f%%, hyperparathyroidism %.1f%%, acidosis %.1f%%\n",
		r.ComplicationRisks.Anemia, r.ComplicationRisks.Hyperphosphatemia,
		r.ComplicationRisks.Hyperparathyroidism, r.ComplicationRisks.Acidosis)
	fmt.Fprintf(&b, "  ESRD %.1f%% at 5 years, %.1f%% at 10 years\n", r.ESRDRisk5Y, r.ESRDRisk10Y)
	fmt.Fprintf(&b, "  Cardiovascular %.1f%%, renal replacement therapy %.1f%%\n", r.CVDRisk, r.Clinical.RRTRisk)
	fmt.Fprintf(&b, "  GFR retention on ACEi %.1f%%, ARB %.1f%%, combined %.1f%%\n",
		r.Clinical.MedicationEffectiveness.ACEi, r.Clinical.MedicationEffectiveness.ARB,
		r.Clinical.MedicationEffectiveness.Combined)

	if len(r.Warnings) > 0 {
		b.WriteString("\nWarnings\n")
		for _, w := range r.Warnings {
			fmt.Fprintf(&b, "  ! %s\n", w)
		}
	}

	b.WriteString("\nRecommendations\n")
	for _, rec := range Recommendations(r) {
		fmt.Fprintf(&b, "  - %s\n", rec.Text)
	}

	b.WriteString("\n" + Disclaimer + "\n")
	return b.String()
}
