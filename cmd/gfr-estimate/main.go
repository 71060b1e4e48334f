// Command gfr-estimate evaluates a single patient from command-line flags
// and prints the report as text, JSON or YAML.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/pediatric-gfr-server/internal/config"
	"github.com/pediatric-gfr-server/internal/domain"
	"github.com/pediatric-gfr-server/internal/history"
	"github.com/pediatric-gfr-server/internal/report"
	"github.com/pediatric-gfr-server/internal/service"
)

// patientFlags are passed to the form parser under the same names.
var patientFlags = []struct {
	name, usage string
}{
	{service.FieldAge, "age in years"},
	{service.FieldGender, "male or female"},
	{service.FieldHeight, "height in cm"},
	{service.FieldWeight, "weight in kg (optional)"},
	{service.FieldCreatinine, "serum creatinine in umol/L (optional)"},
	{service.FieldIL1, "IL-1 in pg/mL"},
	{service.FieldIL6, "IL-6 in pg/mL"},
	{service.FieldIL8, "IL-8 in pg/mL"},
	{service.FieldIL10, "IL-10 in pg/mL"},
	{service.FieldTNF, "TNF-alpha in pg/mL"},
	{service.FieldTGF, "TGF-beta in ng/mL"},
	{service.FieldVd, "renal artery diastolic velocity in cm/s"},
	{service.FieldVs, "renal artery systolic velocity in cm/s"},
	{service.FieldAlbuminuria, "albumin/creatinine ratio in mg/g"},
	{service.FieldHypertension, "yes or no (optional)"},
	{service.FieldStage, "stage category A-D"},
	{service.FieldInfections, "renal infection count (optional)"},
	{service.FieldYears, "projection years"},
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("gfr-estimate", flag.ContinueOnError)
	fs.SetOutput(stderr)

	values := make(map[string]*string, len(patientFlags))
	for _, f := range patientFlags {
		values[f.name] = fs.String(f.name, "", f.usage)
	}

	var override service.ConfigOverride
	fs.StringVar(&override.DeclineModel, "model", "", "decline model: linear, exponential-mild, exponential-aggressive")
	fs.StringVar(&override.GFRFormula, "formula", "", "GFR formula: height-over-fixed-scr, height-over-creatinine")
	fs.StringVar(&override.SchwartzProfile, "schwartz", "", "Schwartz profile: classic, revised")
	fs.StringVar(&override.ScoringProfile, "scoring", "", "scoring profile: mild, aggressive")
	fs.StringVar(&override.StagingMode, "staging", "", "staging mode: gfr-only, albuminuria-aware")
	format := fs.String("format", "text", "output format: text, json, yaml")
	historyPath := fs.String("history", "", "SQLite file to record the evaluation in (optional)")
	patientRef := fs.String("ref", "", "patient reference stored with the evaluation")
	logLevel := fs.String("log-level", "warn", "log level")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	form := make(map[string]string)
	fs.Visit(func(f *flag.Flag) {
		if v, ok := values[f.Name]; ok {
			form[f.Name] = *v
		}
	})

	logger := config.NewLogger(*logLevel, "text")
	logger.SetOutput(stderr)

	patient, err := service.NewInputParserService().ParseForm(form)
	if err != nil {
		printError(stderr, err)
		return 1
	}

	var opts []service.Option
	if *historyPath != "" {
		store, err := history.NewSQLiteStore(*historyPath)
		if err != nil {
			fmt.Fprintf(stderr, "opening history: %v\n", err)
			return 1
		}
		defer store.Close()
		opts = append(opts, service.WithHistory(store))
	}

	svc := service.NewEstimationService(logger, nil, domain.DefaultEngineConfig(), opts...)
	result, err := svc.Evaluate(context.Background(), service.EvaluateRequest{
		Patient:    patient,
		Config:     &override,
		PatientRef: *patientRef,
	})
	if err != nil {
		printError(stderr, err)
		return 1
	}

	if err := render(stdout, *format, result, patient); err != nil {
		fmt.Fprintf(stderr, "rendering report: %v\n", err)
		return 1
	}
	logger.WithFields(logrus.Fields{"id": result.ID, "stored": result.Stored}).Debug("Evaluation written")
	return 0
}

type output struct {
	Result          *service.EvaluationResult `json:"result"`
	Recommendations []report.Recommendation   `json:"recommendations"`
	Charts          []report.Chart            `json:"charts"`
}

func render(w io.Writer, format string, result *service.EvaluationResult, patient domain.PatientInput) error {
	switch format {
	case "text":
		_, err := io.WriteString(w, report.RenderText(result.Report))
		return err
	case "json", "yaml":
	default:
		return fmt.Errorf("unknown format %q", format)
	}

	data, err := json.MarshalIndent(output{
		Result:          result,
		Recommendations: report.Recommendations(result.Report),
		Charts:          report.BuildCharts(result.Report, patient),
	}, "", "  ")
	if err != nil {
		return err
	}

	if format == "json" {
		_, err = w.Write(append(data, '\n'))
		return err
	}
	return writeYAML(w, data)
}

// writeYAML re-encodes a JSON document as block-style YAML, keeping the
// JSON field names and order.
func writeYAML(w io.Writer, jsonData []byte) error {
	var doc yaml.Node
	if err := yaml.Unmarshal(jsonData, &doc); err != nil {
		return err
	}
	clearFlowStyle(&doc)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}

func clearFlowStyle(n *yaml.Node) {
	n.Style &^= yaml.FlowStyle
	for _, child := range n.Content {
		clearFlowStyle(child)
	}
}

func printError(w io.Writer, err error) {
	apiErr := domain.APIErrorFrom(err, "")
	fmt.Fprintf(w, "%s: %s\n", apiErr.Code, apiErr.Message)

	if fields, ok := apiErr.Details.(domain.ValidationErrors); ok {
		for _, f := range fields {
			fmt.Fprintf(w, "  %s\n", f.Error())
		}
	}
}
