package service

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/pediatric-gfr-server/internal/domain"
)

// Form field names accepted by ParseForm.
const (
	FieldAge          = "age"
	FieldGender       = "gender"
	FieldHeight       = "height"
	FieldWeight       = "weight"
	FieldCreatinine   = "creatinine"
	FieldIL1          = "il1"
	FieldIL6          = "il6"
	FieldIL8          = "il8"
	FieldIL10         = "il10"
	FieldTNF          = "tnf"
	FieldTGF          = "tgf"
	FieldVd           = "vd"
	FieldVs           = "vs"
	FieldAlbuminuria  = "albuminuria"
	FieldHypertension = "hypertension"
	FieldStage        = "stage"
	FieldInfections   = "infections"
	FieldYears        = "years"
)

// InputParserService implements domain.InputParser for untrusted form values.
// Numbers are parsed strictly: surrounding whitespace is ignored but any
// other trailing text, NaN and infinities are rejected.
type InputParserService struct{}

// NewInputParserService creates a new input parser service
func NewInputParserService() *InputParserService {
	return &InputParserService{}
}

// formReader accumulates field errors so that every problem is reported at once.
type formReader struct {
	values map[string]string
	errs   domain.ValidationErrors
}

func (r *formReader) fail(field, message, value string) {
	r.errs = append(r.errs, domain.NewValidationError(field, message, value))
}

func (r *formReader) raw(field string, required bool) (string, bool) {
	v := strings.TrimSpace(r.values[field])
	if v == "" {
		if required {
			r.fail(field, "is required", "")
		}
		return "", false
	}
	return v, true
}

func (r *formReader) number(field string, required bool) float64 {
	v, ok := r.raw(field, required)
	if !ok {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		r.fail(field, "must be a finite number", v)
		return 0
	}
	if f < 0 {
		r.fail(field, "must not be negative", v)
		return 0
	}
	return f
}

func (r *formReader) count(field string, required bool) int {
	v, ok := r.raw(field, required)
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.fail(field, "must be a whole number", v)
		return 0
	}
	if n < 0 {
		r.fail(field, "must not be negative", v)
		return 0
	}
	return n
}

func (r *formReader) flag(field string) bool {
	v, ok := r.raw(field, false)
	if !ok {
		return false
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on", "y":
		return true
	case "0", "false", "no", "off", "n":
		return false
	}
	r.fail(field, "must be yes or no", v)
	return false
}

// ParseForm builds a PatientInput from form values. All field errors are
// returned together as domain.ValidationErrors.
func (ips *InputParserService) ParseForm(values map[string]string) (domain.PatientInput, error) {
	r := &formReader{values: values}

	p := domain.PatientInput{
		Age:             r.number(FieldAge, true),
		HeightCM:        r.number(FieldHeight, true),
		WeightKG:        r.number(FieldWeight, false),
		SerumCreatinine: r.number(FieldCreatinine, false),
		Biomarkers: domain.Biomarkers{
			IL1:  r.number(FieldIL1, true),
			IL6:  r.number(FieldIL6, true),
			IL8:  r.number(FieldIL8, true),
			IL10: r.number(FieldIL10, true),
			TNF:  r.number(FieldTNF, true),
			TGF:  r.number(FieldTGF, true),
		},
		VesselDiastolic:     r.number(FieldVd, true),
		VesselSystolic:      r.number(FieldVs, true),
		Albuminuria:         r.number(FieldAlbuminuria, true),
		Hypertension:        r.flag(FieldHypertension),
		RenalInfectionCount: r.count(FieldInfections, false),
		ProjectionYears:     r.count(FieldYears, true),
	}

	if v, ok := r.raw(FieldGender, true); ok {
		g := domain.Gender(strings.ToLower(v))
		if !g.IsValid() {
			r.fail(FieldGender, "must be male or female", v)
		}
		p.Gender = g
	}

	if v, ok := r.raw(FieldStage, true); ok {
		stage, err := domain.ParseStageCategory(v)
		if err != nil {
			r.fail(FieldStage, "must be one of A, B, C, D", v)
		}
		p.StageCategory = stage
	}

	if len(r.errs) > 0 {
		return domain.PatientInput{}, fmt.Errorf("parsing form: %w", r.errs)
	}
	return p, nil
}
