// Package domain contains the core entities for pediatric glomerular filtration
// rate (GFR) estimation and projection: patient attributes, engine
// configuration, and the derived estimation report.
//
// The formulas behind these types are hand-authored constants carried over from
// the historical web-form calculators. They are not clinically validated and
// must not be used for medical decisions.
package domain

import (
	"fmt"
	"strings"
)

// Gender is the patient's gender as used by the height/creatinine formulas.
type Gender string

const (
	Male   Gender = "male"
	Female Gender = "female"
)

// IsValid reports whether g is a supported gender.
func (g Gender) IsValid() bool {
	switch g {
	case Male, Female:
		return true
	default:
		return false
	}
}

// String returns the string representation of the gender.
func (g Gender) String() string {
	return string(g)
}

// StageCategory is the ordinal TIPP disease-severity category (A..D).
type StageCategory string

const (
	StageA StageCategory = "A"
	StageB StageCategory = "B"
	StageC StageCategory = "C"
	StageD StageCategory = "D"
)

// IsValid reports whether s is one of A, B, C or D.
func (s StageCategory) IsValid() bool {
	return s.Ordinal() > 0
}

// Ordinal maps A..D onto 1..4. Unknown categories map to 0.
func (s StageCategory) Ordinal() int {
	switch s {
	case StageA:
		return 1
	case StageB:
		return 2
	case StageC:
		return 3
	case StageD:
		return 4
	default:
		return 0
	}
}

// String returns the string representation of the stage category.
func (s StageCategory) String() string {
	return string(s)
}

// ParseStageCategory parses a stage letter, case-insensitively.
func ParseStageCategory(value string) (StageCategory, error) {
	s := StageCategory(strings.ToUpper(strings.TrimSpace(value)))
	if !s.IsValid() {
		return "", fmt.Errorf("unknown stage category %q", value)
	}
	return s, nil
}

// DeclineModel selects how GFR is projected over the horizon.
type DeclineModel string

const (
	// LinearDecline subtracts an empirical yearly rate from the initial GFR.
	LinearDecline DeclineModel = "linear"
	// ExponentialMild applies a hazard rate built from the mild coefficient set.
	ExponentialMild DeclineModel = "exponential-mild"
	// ExponentialAggressive applies a hazard rate built from the aggressive coefficient set.
	ExponentialAggressive DeclineModel = "exponential-aggressive"
)

// IsValid reports whether m is a supported decline model.
func (m DeclineModel) IsValid() bool {
	switch m {
	case LinearDecline, ExponentialMild, ExponentialAggressive:
		return true
	default:
		return false
	}
}

// IsExponential reports whether the model projects with exp(-rate*t).
func (m DeclineModel) IsExponential() bool {
	return m == ExponentialMild || m == ExponentialAggressive
}

// String returns the string representation of the decline model.
func (m DeclineModel) String() string {
	return string(m)
}

// GFRFormula selects the initial GFR estimator.
type GFRFormula string

const (
	// HeightOverCreatinine is the Schwartz-style k*height/Scr estimator.
	HeightOverCreatinine GFRFormula = "height-over-creatinine"
	// HeightOverFixedScr assumes a serum creatinine of 0.7 mg/dL.
	HeightOverFixedScr GFRFormula = "height-over-fixed-scr"
)

// IsValid reports whether f is a supported formula.
func (f GFRFormula) IsValid() bool {
	switch f {
	case HeightOverCreatinine, HeightOverFixedScr:
		return true
	default:
		return false
	}
}

// String returns the string representation of the formula.
func (f GFRFormula) String() string {
	return string(f)
}

// SchwartzProfile names one of the two historical Schwartz constant sets.
type SchwartzProfile string

const (
	SchwartzClassic SchwartzProfile = "classic"
	SchwartzRevised SchwartzProfile = "revised"
)

// IsValid reports whether p is a known Schwartz profile.
func (p SchwartzProfile) IsValid() bool {
	return p == SchwartzClassic || p == SchwartzRevised
}

// ScoringProfile selects the logistic risk coefficients and the ML proxy weights.
type ScoringProfile string

const (
	ScoringMild       ScoringProfile = "mild"
	ScoringAggressive ScoringProfile = "aggressive"
)

// IsValid reports whether p is a known scoring profile.
func (p ScoringProfile) IsValid() bool {
	return p == ScoringMild || p == ScoringAggressive
}

// StagingMode selects how the CKD stage is derived.
type StagingMode string

const (
	// StagingGFROnly maps GFR thresholds straight onto stages 1..5.
	StagingGFROnly StagingMode = "gfr-only"
	// StagingAlbuminuriaAware shifts thresholds for infants and reports
	// "no CKD" for normal GFR without albuminuria.
	StagingAlbuminuriaAware StagingMode = "albuminuria-aware"
)

// IsValid reports whether m is a known staging mode.
func (m StagingMode) IsValid() bool {
	return m == StagingGFROnly || m == StagingAlbuminuriaAware
}

// BiomarkerStatus classifies a biomarker value against its normal range.
type BiomarkerStatus string

const (
	StatusLow    BiomarkerStatus = "Low"
	StatusNormal BiomarkerStatus = "Normal"
	StatusHigh   BiomarkerStatus = "High"
)

// AlbuminuriaCategory is the KDIGO albuminuria band.
type AlbuminuriaCategory string

const (
	AlbuminuriaA1 AlbuminuriaCategory = "A1"
	AlbuminuriaA2 AlbuminuriaCategory = "A2"
	AlbuminuriaA3 AlbuminuriaCategory = "A3"
)

// RecommendationTier is the qualitative label attached to a treatment score.
type RecommendationTier string

const (
	TierHigh     RecommendationTier = "high"
	TierModerate RecommendationTier = "moderate"
	TierLow      RecommendationTier = "low"
)

// ProgressionLabel is the qualitative speed of GFR decline.
type ProgressionLabel string

const (
	ProgressionLow      ProgressionLabel = "low"
	ProgressionModerate ProgressionLabel = "moderate"
	ProgressionHigh     ProgressionLabel = "high"
	ProgressionVeryHigh ProgressionLabel = "very-high"
)

// CKDStage is the chronic kidney disease stage. Zero means no CKD, which is
// only reported by the albuminuria-aware staging mode.
type CKDStage int

const (
	NoCKD CKDStage = iota
	CKDStage1
	CKDStage2
	CKDStage3
	CKDStage4
	CKDStage5
)

// String returns a human-readable stage label.
func (s CKDStage) String() string {
	if s == NoCKD {
		return "no CKD"
	}
	return fmt.Sprintf("stage %d", int(s))
}
