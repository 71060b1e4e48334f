package engine

import (
	"github.com/pediatric-gfr-server/internal/domain"
)

// SchwartzConstants are the k coefficients of the height/creatinine formula
// and the linear infant correction applied below age 2.
type SchwartzConstants struct {
	Name              domain.SchwartzProfile `json:"name"`
	KInfant           float64                `json:"k_infant"`
	KChild            float64                `json:"k_child"`
	KAdolescentMale   float64                `json:"k_adolescent_male"`
	KAdolescentFemale float64                `json:"k_adolescent_female"`
	InfantC0          float64                `json:"infant_c0"`
	InfantC1          float64                `json:"infant_c1"`
}

var (
	SchwartzClassicConstants = SchwartzConstants{
		Name:              domain.SchwartzClassic,
		KInfant:           0.45,
		KChild:            0.55,
		KAdolescentMale:   0.70,
		KAdolescentFemale: 0.55,
		InfantC0:          0.33,
		InfantC1:          0.45,
	}

	SchwartzRevisedConstants = SchwartzConstants{
		Name:              domain.SchwartzRevised,
		KInfant:           0.33,
		KChild:            0.55,
		KAdolescentMale:   0.70,
		KAdolescentFemale: 0.57,
		InfantC0:          0.33,
		InfantC1:          0.67,
	}
)

// HazardCoefficients parameterise the exponential decline rate.
type HazardCoefficients struct {
	Name         string  `json:"name"`
	Base         float64 `json:"base"`
	Albuminuria  float64 `json:"albuminuria"`
	Hypertension float64 `json:"hypertension"`
	Stage        float64 `json:"stage"`
	InitialGFR   float64 `json:"initial_gfr"` // subtracted
	IL6          float64 `json:"il6"`
	IL8          float64 `json:"il8"`
	TNF          float64 `json:"tnf"`
	TGF          float64 `json:"tgf"`
	LogAge       float64 `json:"log_age"`
}

var (
	HazardMild = HazardCoefficients{
		Name:         "mild",
		Base:         0.02,
		Albuminuria:  0.0001,
		Hypertension: 0.01,
		Stage:        0.005,
		InitialGFR:   0.0001,
		IL6:          0.001,
		IL8:          0.0005,
		TNF:          0.0008,
		TGF:          0.0005,
		LogAge:       0.003,
	}

	HazardAggressive = HazardCoefficients{
		Name:         "aggressive",
		Base:         0.03,
		Albuminuria:  0.0002,
		Hypertension: 0.015,
		Stage:        0.01,
		InitialGFR:   0.00015,
		IL6:          0.002,
		IL8:          0.001,
		TNF:          0.0015,
		TGF:          0.001,
		LogAge:       0.005,
	}
)

// RiskCoefficients are the logistic progression-risk weights. InitialGFR and
// IL10 enter the sum negated.
type RiskCoefficients struct {
	Name           domain.ScoringProfile `json:"name"`
	Intercept      float64               `json:"intercept"`
	Age            float64               `json:"age"`
	Albuminuria    float64               `json:"albuminuria"`
	Hypertension   float64               `json:"hypertension"`
	Stage          float64               `json:"stage"`
	Infections     float64               `json:"infections"`
	InitialGFR     float64               `json:"initial_gfr"`
	IL6            float64               `json:"il6"`
	IL8            float64               `json:"il8"`
	IL10           float64               `json:"il10"`
	TNF            float64               `json:"tnf"`
	TGF            float64               `json:"tgf"`
	LogVesselRatio float64               `json:"log_vessel_ratio"`
}

var (
	RiskMild = RiskCoefficients{
		Name:           domain.ScoringMild,
		Intercept:      -4.0,
		Age:            0.05,
		Albuminuria:    0.004,
		Hypertension:   0.5,
		Stage:          0.3,
		Infections:     0.2,
		InitialGFR:     0.02,
		IL6:            0.05,
		IL8:            0.02,
		IL10:           0.05,
		TNF:            0.03,
		TGF:            0.02,
		LogVesselRatio: 0.5,
	}

	RiskAggressive = RiskCoefficients{
		Name:           domain.ScoringAggressive,
		Intercept:      -3.0,
		Age:            0.07,
		Albuminuria:    0.006,
		Hypertension:   0.7,
		Stage:          0.45,
		Infections:     0.3,
		InitialGFR:     0.025,
		IL6:            0.07,
		IL8:            0.03,
		IL10:           0.07,
		TNF:            0.045,
		TGF:            0.03,
		LogVesselRatio: 0.7,
	}
)

// Feature order of the ML proxy layer.
const (
	featAge = iota
	featHeight
	featCreatinine
	featAlbuminuria
	featHypertension
	featStage
	featInfections
	featIL1
	featIL6
	featIL8
	featIL10
	featTNF
	featTGF
	featResistiveIndex
	mlFeatureCount
)

// mlScales normalise raw features before the linear layer.
var mlScales = [mlFeatureCount]float64{
	featAge:            18,
	featHeight:         180,
	featCreatinine:     150,
	featAlbuminuria:    300,
	featHypertension:   1,
	featStage:          4,
	featInfections:     10,
	featIL1:            10,
	featIL6:            10,
	featIL8:            20,
	featIL10:           10,
	featTNF:            20,
	featTGF:            30,
	featResistiveIndex: 1,
}

// MLWeights is one fixed weight vector of the ML proxy layer.
type MLWeights struct {
	Name      string                  `json:"name"`
	Bias      float64                 `json:"bias"`
	Weights   [mlFeatureCount]float64 `json:"weights"`
	Steepness float64                 `json:"steepness"`
}

var (
	MLStandard = MLWeights{
		Name: "standard",
		Bias: 0.8,
		Weights: [mlFeatureCount]float64{
			featAge:            -0.2,
			featHeight:         0.3,
			featCreatinine:     -1.2,
			featAlbuminuria:    -0.6,
			featHypertension:   -0.3,
			featStage:          -0.4,
			featInfections:     -0.2,
			featIL1:            -0.1,
			featIL6:            -0.15,
			featIL8:            -0.1,
			featIL10:           0.2,
			featTNF:            -0.15,
			featTGF:            -0.1,
			featResistiveIndex: -0.5,
		},
		Steepness: 2,
	}

	MLStrict = MLWeights{
		Name: "strict",
		Bias: 0.6,
		Weights: [mlFeatureCount]float64{
			featAge:            -0.25,
			featHeight:         0.35,
			featCreatinine:     -1.5,
			featAlbuminuria:    -0.8,
			featHypertension:   -0.4,
			featStage:          -0.5,
			featInfections:     -0.3,
			featIL1:            -0.15,
			featIL6:            -0.2,
			featIL8:            -0.15,
			featIL10:           0.25,
			featTNF:            -0.2,
			featTGF:            -0.15,
			featResistiveIndex: -0.7,
		},
		Steepness: 2.5,
	}
)

// TreatmentCoefficients score one treatment.
type TreatmentCoefficients struct {
	Name           string  `json:"name"`
	Base           float64 `json:"base"`
	Stage          float64 `json:"stage"`
	Albuminuria    float64 `json:"albuminuria"`
	Hypertension   float64 `json:"hypertension"`
	AgeOver10      float64 `json:"age_over_10"`
	InitialGFR     float64 `json:"initial_gfr"`
	IL6            float64 `json:"il6"`
	TNF            float64 `json:"tnf"`
	ResistiveIndex float64 `json:"resistive_index"`
}

// Treatments are evaluated in this order.
var Treatments = []TreatmentCoefficients{
	{Name: "ACEi", Base: 0.70, Stage: -0.03, Albuminuria: 0.0005, Hypertension: 0.08, AgeOver10: -0.005, InitialGFR: 0.001, IL6: -0.005, TNF: -0.003, ResistiveIndex: -0.1},
	{Name: "ARB", Base: 0.65, Stage: -0.025, Albuminuria: 0.0004, Hypertension: 0.07, AgeOver10: -0.004, InitialGFR: 0.001, IL6: -0.004, TNF: -0.002, ResistiveIndex: -0.08},
	{Name: "Diuretic", Base: 0.45, Stage: 0.02, Albuminuria: 0.0001, Hypertension: 0.12, AgeOver10: -0.002, InitialGFR: -0.0015, IL6: -0.002, TNF: -0.001, ResistiveIndex: -0.05},
	{Name: "Statin", Base: 0.35, Stage: 0.015, Albuminuria: 0.0002, Hypertension: 0.03, AgeOver10: 0.006, InitialGFR: 0.0005, IL6: -0.006, TNF: -0.004, ResistiveIndex: -0.03},
}

// NormalRange is an inclusive reference interval.
type NormalRange struct {
	Lo float64 `json:"lo"`
	Hi float64 `json:"hi"`
}

// Biomarker age bands.
const (
	BandInfant     = "infant"
	BandChild      = "child"
	BandAdolescent = "adolescent"

	childBandAge      = 5.0
	adolescentBandAge = 12.0
)

// BiomarkerNames lists the panel in report order.
var BiomarkerNames = []string{"il1", "il6", "il8", "il10", "tnf", "tgf"}

var biomarkerRanges = map[string]map[string]NormalRange{
	"il1":  {BandInfant: {0, 5}, BandChild: {0, 4}, BandAdolescent: {0, 3.9}},
	"il6":  {BandInfant: {0, 7}, BandChild: {0, 5.9}, BandAdolescent: {0, 4.4}},
	"il8":  {BandInfant: {0, 20}, BandChild: {0, 15}, BandAdolescent: {0, 12}},
	"il10": {BandInfant: {1, 10}, BandChild: {1, 9}, BandAdolescent: {1, 8}},
	"tnf":  {BandInfant: {0, 15}, BandChild: {0, 12}, BandAdolescent: {0, 8.1}},
	"tgf":  {BandInfant: {10, 40}, BandChild: {8, 35}, BandAdolescent: {5, 30}},
}

// Profile bundles every constant set selected by one EngineConfig.
type Profile struct {
	Schwartz SchwartzConstants   `json:"schwartz"`
	Hazard   *HazardCoefficients `json:"hazard,omitempty"`
	Risk     RiskCoefficients    `json:"risk"`
	ML       MLWeights           `json:"ml"`
}

// ResolveProfile returns the constant sets for cfg. cfg must be valid.
func ResolveProfile(cfg domain.EngineConfig) Profile {
	p := Profile{
		Schwartz: SchwartzClassicConstants,
		Risk:     RiskMild,
		ML:       MLStandard,
	}
	if cfg.SchwartzProfile == domain.SchwartzRevised {
		p.Schwartz = SchwartzRevisedConstants
	}
	if cfg.EffectiveScoringProfile() == domain.ScoringAggressive {
		p.Risk = RiskAggressive
		p.ML = MLStrict
	}
	switch cfg.DeclineModel {
	case domain.ExponentialMild:
		h := HazardMild
		p.Hazard = &h
	case domain.ExponentialAggressive:
		h := HazardAggressive
		p.Hazard = &h
	}
	return p
}

// Catalog describes every selectable option, for listing endpoints.
type Catalog struct {
	DeclineModels    []domain.DeclineModel   `json:"decline_models"`
	GFRFormulas      []domain.GFRFormula     `json:"gfr_formulas"`
	SchwartzProfiles []SchwartzConstants     `json:"schwartz_profiles"`
	ScoringProfiles  []domain.ScoringProfile `json:"scoring_profiles"`
	StagingModes     []domain.StagingMode    `json:"staging_modes"`
	Hazards          []HazardCoefficients    `json:"hazards"`
	Risks            []RiskCoefficients      `json:"risks"`
	MLWeights        []MLWeights             `json:"ml_weights"`
	Treatments       []TreatmentCoefficients `json:"treatments"`
}

// Profiles returns the full option catalog.
func Profiles() Catalog {
	return Catalog{
		DeclineModels:    []domain.DeclineModel{domain.LinearDecline, domain.ExponentialMild, domain.ExponentialAggressive},
		GFRFormulas:      []domain.GFRFormula{domain.HeightOverCreatinine, domain.HeightOverFixedScr},
		SchwartzProfiles: []SchwartzConstants{SchwartzClassicConstants, SchwartzRevisedConstants},
		ScoringProfiles:  []domain.ScoringProfile{domain.ScoringMild, domain.ScoringAggressive},
		StagingModes:     []domain.StagingMode{domain.StagingGFROnly, domain.StagingAlbuminuriaAware},
		Hazards:          []HazardCoefficients{HazardMild, HazardAggressive},
		Risks:            []RiskCoefficients{RiskMild, RiskAggressive},
		MLWeights:        []MLWeights{MLStandard, MLStrict},
		Treatments:       append([]TreatmentCoefficients(nil), Treatments...),
	}
}
