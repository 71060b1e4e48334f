package engine

import (
	"fmt"
	"math"

	"github.com/pediatric-gfr-server/internal/domain"
)

const maxEffectiveness = 0.95

// TreatmentEffectiveness scores every treatment in Treatments order.
func TreatmentEffectiveness(p domain.PatientInput, initial, resistiveIndex float64) []domain.TreatmentEffect {
	effects := make([]domain.TreatmentEffect, 0, len(Treatments))
	for _, t := range Treatments {
		score := ScoreTreatment(p, initial, resistiveIndex, t)
		tier := TierFor(score)
		effects = append(effects, domain.TreatmentEffect{
			Name:          t.Name,
			Effectiveness: score,
			Tier:          tier,
			Explanation:   explainTreatment(t.Name, tier, score),
		})
	}
	return effects
}

// ScoreTreatment returns one treatment's effectiveness clamped to [0, 0.95].
func ScoreTreatment(p domain.PatientInput, initial, resistiveIndex float64, t TreatmentCoefficients) float64 {
	score := t.Base +
		t.Stage*float64(p.StageCategory.Ordinal()) +
		t.Albuminuria*p.Albuminuria +
		t.Hypertension*boolToFloat(p.Hypertension) +
		t.AgeOver10*math.Max(0, p.Age-10) +
		t.InitialGFR*initial +
		t.IL6*p.Biomarkers.IL6 +
		t.TNF*p.Biomarkers.TNF +
		t.ResistiveIndex*resistiveIndex
	return clamp(score, 0, maxEffectiveness)
}

// TierFor maps an effectiveness score onto a recommendation tier.
func TierFor(score float64) domain.RecommendationTier {
	switch {
	case score > 0.8:
		return domain.TierHigh
	case score > 0.6:
		return domain.TierModerate
	default:
		return domain.TierLow
	}
}

func explainTreatment(name string, tier domain.RecommendationTier, score float64) string {
	switch tier {
	case domain.TierHigh:
		return fmt.Sprintf("%s is strongly recommended (expected effectiveness %.0f%%).", name, score*100)
	case domain.TierModerate:
		return fmt.Sprintf("%s may be beneficial (expected effectiveness %.0f%%).", name, score*100)
	default:
		return fmt.Sprintf("%s is of limited expected benefit (expected effectiveness %.0f%%).", name, score*100)
	}
}
