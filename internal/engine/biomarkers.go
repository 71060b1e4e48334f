package engine

import (
	"github.com/pediatric-gfr-server/internal/domain"
)

// AgeBand returns the biomarker reference band for age.
func AgeBand(age float64) string {
	switch {
	case age < childBandAge:
		return BandInfant
	case age < adolescentBandAge:
		return BandChild
	default:
		return BandAdolescent
	}
}

// NormalRangeFor returns the reference interval of a biomarker in an age band.
func NormalRangeFor(marker, band string) (NormalRange, bool) {
	bands, ok := biomarkerRanges[marker]
	if !ok {
		return NormalRange{}, false
	}
	r, ok := bands[band]
	return r, ok
}

// Classify compares value against an inclusive range.
func Classify(value float64, r NormalRange) domain.BiomarkerStatus {
	switch {
	case value < r.Lo:
		return domain.StatusLow
	case value > r.Hi:
		return domain.StatusHigh
	default:
		return domain.StatusNormal
	}
}

// AnalyzeBiomarkers classifies the panel and derives the inflammation,
// fibrotic and cytokine indices. IL-10 must be positive.
func AnalyzeBiomarkers(p domain.PatientInput) domain.BiomarkerAnalysis {
	b := p.Biomarkers
	band := AgeBand(p.Age)

	values := map[string]float64{
		"il1":  b.IL1,
		"il6":  b.IL6,
		"il8":  b.IL8,
		"il10": b.IL10,
		"tnf":  b.TNF,
		"tgf":  b.TGF,
	}

	markers := make(map[string]domain.BiomarkerResult, len(BiomarkerNames))
	for _, name := range BiomarkerNames {
		r, _ := NormalRangeFor(name, band)
		markers[name] = domain.BiomarkerResult{
			Value:       values[name],
			Status:      Classify(values[name], r),
			NormalRange: [2]float64{r.Lo, r.Hi},
		}
	}

	return domain.BiomarkerAnalysis{
		AgeBand:           band,
		Markers:           markers,
		InflammationIndex: ((b.IL6/5 + b.IL8/10 + b.TNF/15) / (b.IL10 / 8)) * 1.2,
		FibroticIndex:     b.TGF / b.IL10,
		CytokineRatio:     (b.IL1 + b.IL6 + b.IL8 + b.TNF) / b.IL10,
	}
}
