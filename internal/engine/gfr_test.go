package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pediatric-gfr-server/internal/domain"
)

func TestInitialGFR_FixedScr(t *testing.T) {
	tests := []struct {
		name     string
		age      float64
		gender   domain.Gender
		height   float64
		expected float64
	}{
		{"Infant_Female", 1, domain.Female, 75, 0.55 * 75 / 0.7 * 0.45},
		{"Child_Female", 8, domain.Female, 130, 0.55 * 130 / 0.7 * 0.55},
		{"Child_Male", 12.9, domain.Male, 150, 0.70 * 150 / 0.7 * 0.55},
		{"Adolescent_Male_Band", 13, domain.Male, 160, 0.70 * 160 / 0.7 * 0.65},
		{"Clipped", 17, domain.Male, 200, 120},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := domain.PatientInput{Age: tt.age, Gender: tt.gender, HeightCM: tt.height}
			got := InitialGFR(p, domain.HeightOverFixedScr, SchwartzClassicConstants)
			assert.InDelta(t, tt.expected, got, 1e-9)
		})
	}
}

func TestInitialGFR_HeightOverCreatinine(t *testing.T) {
	scr := 40.0
	scrMgDL := scr / 88.4

	tests := []struct {
		name     string
		age      float64
		gender   domain.Gender
		profile  SchwartzConstants
		expected float64
	}{
		{"Classic_Infant", 0.5, domain.Male, SchwartzClassicConstants, 0.45 * (0.33 + 0.45*0.5) * 100 / scrMgDL},
		{"Revised_Infant", 0.5, domain.Male, SchwartzRevisedConstants, 0.33 * (0.33 + 0.67*0.5) * 100 / scrMgDL},
		{"Classic_Toddler_Correction", 1.5, domain.Female, SchwartzClassicConstants, 0.55 * (0.33 + 0.45*1.5) * 100 / scrMgDL},
		{"Child", 6, domain.Female, SchwartzClassicConstants, 0.55 * 100 / scrMgDL},
		{"Child_Upper_Bound", 13, domain.Male, SchwartzClassicConstants, 0.55 * 100 / scrMgDL},
		{"Adolescent_Male", 15, domain.Male, SchwartzClassicConstants, 0.70 * 100 / scrMgDL},
		{"Adolescent_Female_Classic", 15, domain.Female, SchwartzClassicConstants, 0.55 * 100 / scrMgDL},
		{"Adolescent_Female_Revised", 15, domain.Female, SchwartzRevisedConstants, 0.57 * 100 / scrMgDL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := domain.PatientInput{Age: tt.age, Gender: tt.gender, HeightCM: 100, SerumCreatinine: scr}
			got := InitialGFR(p, domain.HeightOverCreatinine, tt.profile)
			assert.InDelta(t, tt.expected, got, 1e-9)
		})
	}
}

func TestInitialGFR_NeverNegative(t *testing.T) {
	p := domain.PatientInput{Age: 5, Gender: domain.Male, HeightCM: 110}
	assert.Zero(t, InitialGFR(p, domain.HeightOverCreatinine, SchwartzClassicConstants))
}
