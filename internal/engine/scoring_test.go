package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pediatric-gfr-server/internal/domain"
)

func TestProgressionRisk_MatchesLogistic(t *testing.T) {
	p := referencePatient()
	initial := 56.0

	b := p.Biomarkers
	z := RiskMild.Intercept +
		RiskMild.Age*p.Age +
		RiskMild.Albuminuria*p.Albuminuria +
		RiskMild.Stage*1 -
		RiskMild.InitialGFR*initial +
		RiskMild.IL6*b.IL6 +
		RiskMild.IL8*b.IL8 -
		RiskMild.IL10*b.IL10 +
		RiskMild.TNF*b.TNF +
		RiskMild.TGF*b.TGF +
		RiskMild.LogVesselRatio*math.Log(10.0/15.0)

	assert.InDelta(t, 1/(1+math.Exp(-z)), ProgressionRisk(p, initial, RiskMild), 1e-12)
	assert.InDelta(t, 0.0165, ProgressionRisk(p, initial, RiskMild), 1e-3)
}

func TestProgressionRisk_StaysInsideOpenInterval(t *testing.T) {
	p := referencePatient()

	p.Albuminuria = 1e6
	high := ProgressionRisk(p, 0, RiskAggressive)
	assert.Less(t, high, 1.0)
	assert.Greater(t, high, 0.99)

	p.Albuminuria = 0
	low := ProgressionRisk(p, 1e6, RiskMild)
	assert.Greater(t, low, 0.0)
	assert.Less(t, low, 0.01)
}

func TestMLProxyScore(t *testing.T) {
	p := referencePatient()
	ri := ResistiveIndex(p.VesselDiastolic, p.VesselSystolic)

	standard := MLProxyScore(p, ri, MLStandard)
	strict := MLProxyScore(p, ri, MLStrict)

	for _, proxy := range []domain.MLProxy{standard, strict} {
		assert.Greater(t, proxy.GFR, 0.0)
		assert.Less(t, proxy.GFR, 120.0)
		assert.Greater(t, proxy.Risk, 0.0)
		assert.Less(t, proxy.Risk, 1.0)
	}

	activation := MLStandard.Bias
	features := mlFeatures(p, ri)
	for i := range features {
		activation += MLStandard.Weights[i] * features[i] / mlScales[i]
	}
	assert.InDelta(t, 120/(1+math.Exp(-2*activation)), standard.GFR, 1e-9)
	assert.InDelta(t, 1/(1+math.Exp(-4*(1-activation))), standard.Risk, 1e-12)
}

func TestMLProxyScore_Saturation(t *testing.T) {
	p := referencePatient()
	p.Albuminuria = 1e7

	proxy := MLProxyScore(p, 0.5, MLStrict)
	assert.Less(t, proxy.Risk, 1.0)
	assert.Greater(t, proxy.Risk, 0.0)
	assert.GreaterOrEqual(t, proxy.GFR, 0.0)
}

func TestResolveProfile(t *testing.T) {
	profile := ResolveProfile(domain.DefaultEngineConfig())
	assert.Equal(t, SchwartzClassicConstants, profile.Schwartz)
	assert.Equal(t, RiskMild, profile.Risk)
	assert.Equal(t, MLStandard, profile.ML)
	assert.Nil(t, profile.Hazard)

	profile = ResolveProfile(domain.EngineConfig{
		DeclineModel:    domain.ExponentialAggressive,
		SchwartzProfile: domain.SchwartzRevised,
	})
	assert.Equal(t, SchwartzRevisedConstants, profile.Schwartz)
	assert.Equal(t, RiskAggressive, profile.Risk)
	assert.Equal(t, MLStrict, profile.ML)
	if assert.NotNil(t, profile.Hazard) {
		assert.Equal(t, HazardAggressive, *profile.Hazard)
	}

	profile = ResolveProfile(domain.EngineConfig{
		DeclineModel:   domain.ExponentialAggressive,
		ScoringProfile: domain.ScoringMild,
	})
	assert.Equal(t, RiskMild, profile.Risk)
	assert.Equal(t, HazardAggressive, *profile.Hazard)
}

func TestProfilesCatalog(t *testing.T) {
	catalog := Profiles()
	assert.Len(t, catalog.DeclineModels, 3)
	assert.Len(t, catalog.GFRFormulas, 2)
	assert.Len(t, catalog.SchwartzProfiles, 2)
	assert.Len(t, catalog.Hazards, 2)
	assert.Len(t, catalog.Risks, 2)
	assert.Len(t, catalog.MLWeights, 2)
	assert.Len(t, catalog.Treatments, 4)

	catalog.Treatments[0].Base = 0
	assert.Equal(t, 0.70, Treatments[0].Base)
}
