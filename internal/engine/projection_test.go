package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pediatric-gfr-server/internal/domain"
)

func TestLinearRate_AgeBandsAndFloor(t *testing.T) {
	p := referencePatient()
	unscaled := 0.5 + 0.05*(7.0/3.0) + 0.33 - 0.4 + 0.05 - 0.03

	tests := []struct {
		age      float64
		expected float64
	}{
		{3, unscaled * 0.5},
		{8, unscaled * 0.7},
		{12, unscaled * 0.9},
		{16, unscaled},
	}
	for _, tt := range tests {
		p.Age = tt.age
		assert.InDelta(t, tt.expected, LinearRate(p), 1e-12, "age %v", tt.age)
	}

	p.Biomarkers.IL10 = 50
	assert.Equal(t, minLinearRate, LinearRate(p))
}

func TestProjection_Yearly(t *testing.T) {
	linear := Projection{Model: domain.LinearDecline, Initial: 10, Rate: 3}
	assert.Equal(t, []float64{10, 7, 4, 1, 0, 0}, linear.Yearly(5))
	assert.Equal(t, []float64{10}, linear.Yearly(0))

	exp := Projection{Model: domain.ExponentialMild, Initial: 100, Rate: 0.1}
	yearly := exp.Yearly(3)
	require.Len(t, yearly, 4)
	assert.InDelta(t, 100*math.Exp(-0.3), yearly[3], 1e-9)
	assert.InDelta(t, 100*math.Exp(-0.5), exp.At(5), 1e-9)
}

func TestProjection_YearsUntil(t *testing.T) {
	linear := Projection{Model: domain.LinearDecline, Initial: 90, Rate: 2}
	years := linear.YearsUntil(60)
	require.NotNil(t, years)
	assert.InDelta(t, 15, *years, 1e-12)

	reached := linear.YearsUntil(95)
	require.NotNil(t, reached)
	assert.Zero(t, *reached)

	exp := Projection{Model: domain.ExponentialMild, Initial: 90, Rate: 0.05}
	years = exp.YearsUntil(30)
	require.NotNil(t, years)
	assert.InDelta(t, math.Log(3)/0.05, *years, 1e-9)

	rising := Projection{Model: domain.ExponentialMild, Initial: 90, Rate: -0.01}
	assert.Nil(t, rising.YearsUntil(60))
}

func TestNewProjection_FallsBackToLinearWithoutHazard(t *testing.T) {
	p := referencePatient()
	proj := NewProjection(p, domain.ExponentialMild, 50, nil)
	assert.Equal(t, domain.LinearDecline, proj.Model)
	assert.Equal(t, LinearRate(p), proj.Rate)
}

func TestProjection_FirstYearDecline(t *testing.T) {
	linear := Projection{Model: domain.LinearDecline, Initial: 0.5, Rate: 3}
	assert.Equal(t, 3.0, linear.FirstYearDecline(), "not limited by the zero clamp")

	exp := Projection{Model: domain.ExponentialMild, Initial: 100, Rate: 0.1}
	assert.InDelta(t, 100*(1-math.Exp(-0.1)), exp.FirstYearDecline(), 1e-12)
}
