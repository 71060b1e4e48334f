package engine

import (
	"math"

	"github.com/pediatric-gfr-server/internal/domain"
)

const minLinearRate = 0.1

// Projection is a decline model bound to one patient.
type Projection struct {
	Model   domain.DeclineModel
	Initial float64
	Rate    float64
}

// NewProjection computes the decline rate for the configured model.
// hazard must be non-nil for the exponential models.
func NewProjection(p domain.PatientInput, model domain.DeclineModel, initial float64, hazard *HazardCoefficients) Projection {
	proj := Projection{Model: model, Initial: initial}
	if model.IsExponential() && hazard != nil {
		proj.Rate = HazardRate(p, initial, *hazard)
	} else {
		proj.Model = domain.LinearDecline
		proj.Rate = LinearRate(p)
	}
	return proj
}

// LinearRate is the empirical yearly decline in mL/min/1.73m².
func LinearRate(p domain.PatientInput) float64 {
	b := p.Biomarkers
	rate := 0.5 +
		0.05*mean(b.IL1, b.IL6, b.IL8) +
		0.03*mean(b.TNF, b.TGF) -
		0.1*b.IL10 +
		0.05*p.Albuminuria -
		0.02*(p.VesselSystolic/p.VesselDiastolic)

	switch {
	case p.Age < 5:
		rate *= 0.5
	case p.Age < 10:
		rate *= 0.7
	case p.Age < 15:
		rate *= 0.9
	}
	return math.Max(rate, minLinearRate)
}

// HazardRate is the yearly exponential hazard.
func HazardRate(p domain.PatientInput, initial float64, h HazardCoefficients) float64 {
	b := p.Biomarkers
	return h.Base +
		h.Albuminuria*p.Albuminuria +
		h.Hypertension*boolToFloat(p.Hypertension) +
		h.Stage*float64(p.StageCategory.Ordinal()) -
		h.InitialGFR*initial +
		h.IL6*b.IL6 +
		h.IL8*b.IL8 +
		h.TNF*b.TNF +
		h.TGF*b.TGF +
		h.LogAge*math.Log(p.Age+1)
}

// At returns the projected GFR after t years, clamped at zero.
func (pr Projection) At(t float64) float64 {
	var g float64
	if pr.Model.IsExponential() {
		g = pr.Initial * math.Exp(-pr.Rate*t)
	} else {
		g = pr.Initial - pr.Rate*t
	}
	return math.Max(g, 0)
}

// FirstYearDecline is the absolute GFR loss over the first year, before the
// zero clamp. For the linear model this is the rate itself.
func (pr Projection) FirstYearDecline() float64 {
	if pr.Model.IsExponential() {
		return pr.Initial * (1 - math.Exp(-pr.Rate))
	}
	return pr.Rate
}

// Yearly returns years+1 values, index 0 being the initial GFR.
func (pr Projection) Yearly(years int) []float64 {
	if years < 0 {
		years = 0
	}
	out := make([]float64, years+1)
	out[0] = math.Max(pr.Initial, 0)
	for t := 1; t <= years; t++ {
		out[t] = pr.At(float64(t))
	}
	return out
}

// YearsUntil returns the time until the projection falls to threshold, or nil
// if it never does. Zero means the threshold is already reached.
func (pr Projection) YearsUntil(threshold float64) *float64 {
	if pr.Initial <= threshold {
		zero := 0.0
		return &zero
	}
	if pr.Rate <= 0 {
		return nil
	}

	var years float64
	if pr.Model.IsExponential() {
		if threshold <= 0 {
			return nil
		}
		years = math.Log(pr.Initial/threshold) / pr.Rate
	} else {
		years = (pr.Initial - threshold) / pr.Rate
	}
	return &years
}

func mean(values ...float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
