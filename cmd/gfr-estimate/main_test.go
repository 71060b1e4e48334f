package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/pediatric-gfr-server/internal/report"
)

func patientArgs() []string {
	return []string{
		"-age", "8", "-gender", "female", "-height", "130",
		"-il1", "2", "-il6", "3", "-il8", "2", "-il10", "4", "-tnf", "10", "-tgf", "12",
		"-vd", "10", "-vs", "15", "-albuminuria", "1", "-stage", "A", "-years", "5",
	}
}

func TestRun_Text(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(patientArgs(), &stdout, &stderr)

	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), report.Disclaimer)
}

func TestRun_JSON(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(append(patientArgs(), "-format", "json", "-model", "exponential-mild"), &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &out))
	assert.Contains(t, out, "result")
	assert.Len(t, out["charts"], 7)
}

func TestRun_YAML(t *testing.T) {
	var stdout, stderr bytes.Buffer
	historyPath := filepath.Join(t.TempDir(), "history.db")
	code := run(append(patientArgs(), "-format", "yaml", "-history", historyPath, "-ref", "case-3"), &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	var out struct {
		Result struct {
			PatientRef string `yaml:"patient_ref"`
			Stored     bool   `yaml:"stored"`
		} `yaml:"result"`
	}
	require.NoError(t, yaml.Unmarshal(stdout.Bytes(), &out))
	assert.Equal(t, "case-3", out.Result.PatientRef)
	assert.True(t, out.Result.Stored)
}

func TestRun_Errors(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"-age", "eight"}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "INVALID_INPUT")

	stderr.Reset()
	code = run(append(patientArgs(), "-age", "21"), &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "UNSUPPORTED_AGE")

	stderr.Reset()
	code = run(append(patientArgs(), "-format", "xml"), &stdout, &stderr)
	assert.Equal(t, 1, code)
}
