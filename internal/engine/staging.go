package engine

import (
	"math"

	"github.com/pediatric-gfr-server/internal/domain"
)

type stageThresholds [4]float64

var (
	standardThresholds = stageThresholds{90, 60, 30, 15}
	infantThresholds   = stageThresholds{70, 45, 25, 12}
)

const (
	infantStagingAge       = 2.0
	albuminuriaDamageLevel = 30.0
	albuminuriaSevereLevel = 300.0
	esrdThreshold          = 15.0
)

// CKDStageFromGFR maps GFR onto stages 1..5 with inclusive lower bounds.
func CKDStageFromGFR(gfr float64) domain.CKDStage {
	return standardThresholds.stage(gfr)
}

func (th stageThresholds) stage(gfr float64) domain.CKDStage {
	for i, lower := range th {
		if gfr >= lower {
			return domain.CKDStage(i + 1)
		}
	}
	return domain.CKDStage5
}

// StageFor applies the staging mode. In albuminuria-aware mode infants use
// shifted thresholds and a normal GFR is stage 1 only with albuminuria.
func StageFor(gfr float64, p domain.PatientInput, mode domain.StagingMode) domain.CKDStage {
	if mode != domain.StagingAlbuminuriaAware {
		return CKDStageFromGFR(gfr)
	}

	th := standardThresholds
	if p.Age < infantStagingAge {
		th = infantThresholds
	}
	stage := th.stage(gfr)
	if stage == domain.CKDStage1 && p.Albuminuria <= albuminuriaDamageLevel {
		return domain.NoCKD
	}
	return stage
}

// AlbuminuriaCategoryFor returns the A1..A3 band.
func AlbuminuriaCategoryFor(albuminuria float64) domain.AlbuminuriaCategory {
	switch {
	case albuminuria < albuminuriaDamageLevel:
		return domain.AlbuminuriaA1
	case albuminuria < albuminuriaSevereLevel:
		return domain.AlbuminuriaA2
	default:
		return domain.AlbuminuriaA3
	}
}

// ResistiveIndex is (vs-vd)/vs. vs must be positive.
func ResistiveIndex(vd, vs float64) float64 {
	return (vs - vd) / vs
}

// ComplicationRisksAt returns percentage risks for a GFR value.
func ComplicationRisksAt(gfr float64) domain.ComplicationRisks {
	return domain.ComplicationRisks{
		Anemia:              clamp(100-gfr, 0, 100),
		Hyperphosphatemia:   clamp(120-gfr*1.2, 0, 100),
		Hyperparathyroidism: clamp(110-gfr*1.1, 0, 100),
		Acidosis:            clamp(130-gfr*1.3, 0, 100),
	}
}

// ESRDRisk is the end-stage renal disease risk for a projected GFR.
func ESRDRisk(projected float64) float64 {
	if projected < esrdThreshold {
		return clamp(100*(1-math.Exp(-0.1*(esrdThreshold-projected))), 0, 100)
	}
	return 0
}

// CVDRisk is the cardiovascular risk percentage from initial GFR and age.
func CVDRisk(initial, age float64) float64 {
	return clamp(10+(60-initial)*0.3+(age-10)*0.5, 0, 100)
}

// Reliability is the confidence in the projection, within [60,95].
func Reliability(initial, rate float64) float64 {
	if initial <= 0 {
		return 60
	}
	return clamp(95-math.Abs(rate)/initial*100, 60, 95)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
