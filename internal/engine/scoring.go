package engine

import (
	"math"

	"github.com/pediatric-gfr-server/internal/domain"
)

// ProgressionRisk is the logistic probability of CKD progression. It always
// lies strictly inside (0,1).
func ProgressionRisk(p domain.PatientInput, initial float64, c RiskCoefficients) float64 {
	b := p.Biomarkers
	z := c.Intercept +
		c.Age*p.Age +
		c.Albuminuria*p.Albuminuria +
		c.Hypertension*boolToFloat(p.Hypertension) +
		c.Stage*float64(p.StageCategory.Ordinal()) +
		c.Infections*float64(p.RenalInfectionCount) -
		c.InitialGFR*initial +
		c.IL6*b.IL6 +
		c.IL8*b.IL8 -
		c.IL10*b.IL10 +
		c.TNF*b.TNF +
		c.TGF*b.TGF +
		c.LogVesselRatio*math.Log(p.VesselDiastolic/p.VesselSystolic)
	return openUnit(sigmoid(z))
}

// MLProxyScore applies the fixed linear layer to the normalised features.
func MLProxyScore(p domain.PatientInput, resistiveIndex float64, w MLWeights) domain.MLProxy {
	features := mlFeatures(p, resistiveIndex)

	activation := w.Bias
	for i, x := range features {
		activation += w.Weights[i] * x / mlScales[i]
	}

	return domain.MLProxy{
		GFR:  120 * sigmoid(w.Steepness*activation),
		Risk: openUnit(sigmoid(4 * (1 - activation))),
	}
}

func mlFeatures(p domain.PatientInput, resistiveIndex float64) [mlFeatureCount]float64 {
	b := p.Biomarkers
	return [mlFeatureCount]float64{
		featAge:            p.Age,
		featHeight:         p.HeightCM,
		featCreatinine:     p.SerumCreatinine,
		featAlbuminuria:    p.Albuminuria,
		featHypertension:   boolToFloat(p.Hypertension),
		featStage:          float64(p.StageCategory.Ordinal()),
		featInfections:     float64(p.RenalInfectionCount),
		featIL1:            b.IL1,
		featIL6:            b.IL6,
		featIL8:            b.IL8,
		featIL10:           b.IL10,
		featTNF:            b.TNF,
		featTGF:            b.TGF,
		featResistiveIndex: resistiveIndex,
	}
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

// openUnit nudges a probability that rounded onto 0 or 1 back inside (0,1).
func openUnit(v float64) float64 {
	switch {
	case v <= 0:
		return math.SmallestNonzeroFloat64
	case v >= 1:
		return math.Nextafter(1, 0)
	}
	return v
}
