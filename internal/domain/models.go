package domain

// Biomarkers holds the inflammatory panel in pg/mL.
type Biomarkers struct {
	IL1  float64 `json:"il1"`
	IL6  float64 `json:"il6"`
	IL8  float64 `json:"il8"`
	IL10 float64 `json:"il10"`
	TNF  float64 `json:"tnf"`
	TGF  float64 `json:"tgf"`
}

// PatientInput is the immutable record evaluated by the engine.
type PatientInput struct {
	Age                 float64       `json:"age"`
	Gender              Gender        `json:"gender"`
	HeightCM            float64       `json:"height_cm"`
	WeightKG            float64       `json:"weight_kg,omitempty"`
	SerumCreatinine     float64       `json:"serum_creatinine,omitempty"` // µmol/L
	Biomarkers          Biomarkers    `json:"biomarkers"`
	VesselDiastolic     float64       `json:"vd"`
	VesselSystolic      float64       `json:"vs"`
	Albuminuria         float64       `json:"albuminuria"` // mg/g
	Hypertension        bool          `json:"hypertension"`
	StageCategory       StageCategory `json:"stage_category"`
	RenalInfectionCount int           `json:"renal_infection_count"`
	ProjectionYears     int           `json:"projection_years"`
}

// EngineConfig selects formulas and constant sets for one evaluation.
type EngineConfig struct {
	DeclineModel    DeclineModel    `json:"decline_model" mapstructure:"decline_model"`
	GFRFormula      GFRFormula      `json:"gfr_formula" mapstructure:"gfr_formula"`
	SchwartzProfile SchwartzProfile `json:"schwartz_profile,omitempty" mapstructure:"schwartz_profile"`
	// ScoringProfile may be empty, in which case it follows the decline model.
	ScoringProfile ScoringProfile `json:"scoring_profile,omitempty" mapstructure:"scoring_profile"`
	StagingMode    StagingMode    `json:"staging_mode,omitempty" mapstructure:"staging_mode"`
	// ProjectionYears nil means "use PatientInput.ProjectionYears".
	ProjectionYears    *int    `json:"projection_years,omitempty" mapstructure:"projection_years"`
	MaxAge             float64 `json:"max_age" mapstructure:"max_age"`
	MaxProjectionYears int     `json:"max_projection_years" mapstructure:"max_projection_years"`
}

// DefaultEngineConfig returns the linear model with the fixed-Scr formula,
// which is the behaviour of the original single-page calculator.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		DeclineModel:       LinearDecline,
		GFRFormula:         HeightOverFixedScr,
		SchwartzProfile:    SchwartzClassic,
		StagingMode:        StagingGFROnly,
		MaxAge:             18,
		MaxProjectionYears: 50,
	}
}

// EffectiveScoringProfile resolves an empty scoring profile from the decline model.
func (c EngineConfig) EffectiveScoringProfile() ScoringProfile {
	if c.ScoringProfile != "" {
		return c.ScoringProfile
	}
	if c.DeclineModel == ExponentialAggressive {
		return ScoringAggressive
	}
	return ScoringMild
}

// Horizon returns the number of projected years for the given patient.
func (c EngineConfig) Horizon(p PatientInput) int {
	if c.ProjectionYears != nil {
		return *c.ProjectionYears
	}
	return p.ProjectionYears
}

// Years returns a fixed projection horizon for EngineConfig.ProjectionYears.
func Years(n int) *int {
	return &n
}

// MLProxy is the output of the fixed linear layer.
type MLProxy struct {
	GFR  float64 `json:"gfr"`
	Risk float64 `json:"risk"`
}

// BiomarkerResult is the classification of a single biomarker.
type BiomarkerResult struct {
	Value       float64         `json:"value"`
	Status      BiomarkerStatus `json:"status"`
	NormalRange [2]float64      `json:"normal_range"`
}

// BiomarkerAnalysis is the per-marker classification plus derived indices.
type BiomarkerAnalysis struct {
	AgeBand           string                     `json:"age_band"`
	Markers           map[string]BiomarkerResult `json:"markers"`
	InflammationIndex float64                    `json:"inflammation_index"`
	FibroticIndex     float64                    `json:"fibrotic_index"`
	CytokineRatio     float64                    `json:"cytokine_ratio"`
}

// TreatmentEffect is the scored effectiveness of one treatment.
type TreatmentEffect struct {
	Name          string             `json:"name"`
	Effectiveness float64            `json:"effectiveness"`
	Tier          RecommendationTier `json:"tier"`
	Explanation   string             `json:"explanation"`
}

// ComplicationRisks are percentages in [0,100].
type ComplicationRisks struct {
	Anemia              float64 `json:"anemia"`
	Hyperphosphatemia   float64 `json:"hyperphosphatemia"`
	Hyperparathyroidism float64 `json:"hyperparathyroidism"`
	Acidosis            float64 `json:"acidosis"`
}

// StageMilestone is the projected time until GFR falls below a stage threshold.
type StageMilestone struct {
	Stage     CKDStage `json:"stage"`
	Threshold float64  `json:"threshold"`
	Years     *float64 `json:"years,omitempty"` // nil when the threshold is never reached
	Reached   bool     `json:"reached"`
}

// RiskFactorContribution is one bar of the risk-factor chart.
type RiskFactorContribution struct {
	Factor       string  `json:"factor"`
	Contribution float64 `json:"contribution"`
}

// MedicationEffectiveness is the projected GFR retention, in percent of the
// initial GFR, scaled per regimen.
type MedicationEffectiveness struct {
	ACEi     float64 `json:"acei"`
	ARB      float64 `json:"arb"`
	Combined float64 `json:"combined"`
}

// ClinicalIndicators are the auxiliary figures shown by the original calculator.
type ClinicalIndicators struct {
	QualityOfLife           []float64                `json:"quality_of_life"`
	StageMilestones         []StageMilestone         `json:"stage_milestones"`
	AnnualDeclinePercent    float64                  `json:"annual_decline_percent"`
	ProgressionLabel        ProgressionLabel         `json:"progression_label"`
	RRTRisk                 float64                  `json:"rrt_risk"`
	MedicationEffectiveness MedicationEffectiveness  `json:"medication_effectiveness"`
	BMI                     *float64                 `json:"bmi,omitempty"`
	RiskFactorContributions []RiskFactorContribution `json:"risk_factor_contributions"`
}

// EstimationReport is the aggregate produced by one evaluation. It is never
// mutated after construction.
type EstimationReport struct {
	Config              EngineConfig        `json:"config"`
	InitialGFR          float64             `json:"initial_gfr"`
	YearlyGFR           []float64           `json:"yearly_gfr"`
	DeclineRatePerYear  float64             `json:"decline_rate_per_year"`
	ProgressionRisk     float64             `json:"progression_risk"`
	MLProxy             MLProxy             `json:"ml_proxy"`
	Biomarkers          BiomarkerAnalysis   `json:"biomarker_analysis"`
	Treatments          []TreatmentEffect   `json:"treatment_effectiveness"`
	CKDStage            CKDStage            `json:"ckd_stage"`
	ProjectedCKDStage   CKDStage            `json:"projected_ckd_stage"`
	AlbuminuriaCategory AlbuminuriaCategory `json:"albuminuria_category"`
	ResistiveIndex      float64             `json:"resistive_index"`
	ComplicationRisks   ComplicationRisks   `json:"complication_risks"`
	ESRDRisk5Y          float64             `json:"esrd_risk_5y"`
	ESRDRisk10Y         float64             `json:"esrd_risk_10y"`
	CVDRisk             float64             `json:"cvd_risk"`
	Reliability         float64             `json:"reliability"`
	Clinical            ClinicalIndicators  `json:"clinical"`
	Warnings            []string            `json:"warnings,omitempty"`
}

// FinalGFR returns the projected GFR at the end of the horizon.
func (r *EstimationReport) FinalGFR() float64 {
	if len(r.YearlyGFR) == 0 {
		return r.InitialGFR
	}
	return r.YearlyGFR[len(r.YearlyGFR)-1]
}

// Horizon returns the number of projected years.
func (r *EstimationReport) Horizon() int {
	if len(r.YearlyGFR) == 0 {
		return 0
	}
	return len(r.YearlyGFR) - 1
}
