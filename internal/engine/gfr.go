package engine

import (
	"math"

	"github.com/pediatric-gfr-server/internal/domain"
)

const (
	// creatinineUnitFactor converts µmol/L to mg/dL.
	creatinineUnitFactor = 88.4
	assumedCreatinine    = 0.7
	fixedScrUpperClip    = 120.0
)

// InitialGFR estimates GFR in mL/min/1.73m² with the configured formula.
// The result is never negative.
func InitialGFR(p domain.PatientInput, formula domain.GFRFormula, schwartz SchwartzConstants) float64 {
	var gfr float64
	switch formula {
	case domain.HeightOverCreatinine:
		gfr = heightOverCreatinine(p, schwartz)
	default:
		gfr = heightOverFixedScr(p)
	}
	return math.Max(gfr, 0)
}

func heightOverCreatinine(p domain.PatientInput, c SchwartzConstants) float64 {
	scr := p.SerumCreatinine / creatinineUnitFactor
	if scr <= 0 {
		return 0
	}

	k := schwartzK(p, c)
	if p.Age < 2 {
		k *= c.InfantC0 + c.InfantC1*p.Age
	}
	return k * p.HeightCM / scr
}

func schwartzK(p domain.PatientInput, c SchwartzConstants) float64 {
	switch {
	case p.Age <= 1:
		return c.KInfant
	case p.Age <= 13:
		return c.KChild
	case p.Gender == domain.Male:
		return c.KAdolescentMale
	default:
		return c.KAdolescentFemale
	}
}

func heightOverFixedScr(p domain.PatientInput) float64 {
	k := 0.55
	if p.Gender == domain.Male {
		k = 0.70
	}

	gfr := k * p.HeightCM / assumedCreatinine
	switch {
	case p.Age < 2:
		gfr *= 0.45
	case p.Age < 13:
		gfr *= 0.55
	default:
		gfr *= 0.65
	}
	return math.Min(gfr, fixedScrUpperClip)
}
