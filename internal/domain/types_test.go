package domain

import (
	"testing"
)

func TestStageCategoryOrdinal(t *testing.T) {
	tests := []struct {
		name     string
		value    StageCategory
		expected int
	}{
		{"A", StageA, 1},
		{"B", StageB, 2},
		{"C", StageC, 3},
		{"D", StageD, 4},
		{"Unknown", StageCategory("E"), 0},
		{"Lowercase is not canonical", StageCategory("a"), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value.Ordinal() != tt.expected {
				t.Errorf("Expected %d, got %d", tt.expected, tt.value.Ordinal())
			}
			if tt.value.IsValid() != (tt.expected > 0) {
				t.Errorf("Unexpected IsValid for %q", tt.value)
			}
		})
	}
}

func TestParseStageCategory(t *testing.T) {
	tests := []struct {
		input    string
		expected StageCategory
		wantErr  bool
	}{
		{"A", StageA, false},
		{" c ", StageC, false},
		{"d", StageD, false},
		{"", "", true},
		{"AB", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseStageCategory(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error for %q", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestDeclineModel(t *testing.T) {
	tests := []struct {
		value       DeclineModel
		valid       bool
		exponential bool
	}{
		{LinearDecline, true, false},
		{ExponentialMild, true, true},
		{ExponentialAggressive, true, true},
		{DeclineModel("quadratic"), false, false},
	}

	for _, tt := range tests {
		t.Run(tt.value.String(), func(t *testing.T) {
			if tt.value.IsValid() != tt.valid {
				t.Errorf("Expected IsValid %v", tt.valid)
			}
			if tt.value.IsExponential() != tt.exponential {
				t.Errorf("Expected IsExponential %v", tt.exponential)
			}
		})
	}
}

func TestCKDStageString(t *testing.T) {
	if NoCKD.String() != "no CKD" {
		t.Errorf("Expected 'no CKD', got %s", NoCKD.String())
	}
	if CKDStage3.String() != "stage 3" {
		t.Errorf("Expected 'stage 3', got %s", CKDStage3.String())
	}
}

func TestEngineConfigDefaults(t *testing.T) {
	cfg := DefaultEngineConfig()

	if cfg.EffectiveScoringProfile() != ScoringMild {
		t.Errorf("Expected mild scoring for linear model, got %s", cfg.EffectiveScoringProfile())
	}

	cfg.DeclineModel = ExponentialAggressive
	if cfg.EffectiveScoringProfile() != ScoringAggressive {
		t.Errorf("Expected aggressive scoring to follow decline model")
	}

	cfg.ScoringProfile = ScoringMild
	if cfg.EffectiveScoringProfile() != ScoringMild {
		t.Errorf("Expected explicit scoring profile to win")
	}

	patient := PatientInput{ProjectionYears: 7}
	if cfg.Horizon(patient) != 7 {
		t.Errorf("Expected horizon from patient, got %d", cfg.Horizon(patient))
	}
	cfg.ProjectionYears = Years(3)
	if cfg.Horizon(patient) != 3 {
		t.Errorf("Expected config horizon to override patient, got %d", cfg.Horizon(patient))
	}
	cfg.ProjectionYears = Years(0)
	if cfg.Horizon(patient) != 0 {
		t.Errorf("Expected explicit zero horizon to override patient, got %d", cfg.Horizon(patient))
	}
	if (EngineConfig{}).Horizon(patient) != 7 {
		t.Errorf("Expected zero-value config to use the patient horizon")
	}
}

func TestEstimationReportAccessors(t *testing.T) {
	empty := &EstimationReport{InitialGFR: 80}
	if empty.FinalGFR() != 80 || empty.Horizon() != 0 {
		t.Errorf("Empty series should fall back to initial GFR")
	}

	report := &EstimationReport{InitialGFR: 80, YearlyGFR: []float64{80, 79, 78}}
	if report.FinalGFR() != 78 {
		t.Errorf("Expected final GFR 78, got %v", report.FinalGFR())
	}
	if report.Horizon() != 2 {
		t.Errorf("Expected horizon 2, got %d", report.Horizon())
	}
}
