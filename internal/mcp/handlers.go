package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/pediatric-gfr-server/internal/domain"
	"github.com/pediatric-gfr-server/internal/report"
	"github.com/pediatric-gfr-server/internal/service"
)

// EstimateGFRParams defines parameters for the estimate_gfr tool
type EstimateGFRParams struct {
	Age                 float64 `json:"age" jsonschema:"age in years, at most 18"`
	Gender              string  `json:"gender" jsonschema:"male or female"`
	HeightCM            float64 `json:"height_cm" jsonschema:"height in centimetres"`
	WeightKG            float64 `json:"weight_kg,omitempty" jsonschema:"weight in kilograms"`
	SerumCreatinine     float64 `json:"serum_creatinine,omitempty" jsonschema:"serum creatinine in umol/L, required by the height-over-creatinine formula"`
	IL1                 float64 `json:"il1" jsonschema:"interleukin 1 in pg/mL"`
	IL6                 float64 `json:"il6" jsonschema:"interleukin 6 in pg/mL"`
	IL8                 float64 `json:"il8" jsonschema:"interleukin 8 in pg/mL"`
	IL10                float64 `json:"il10" jsonschema:"interleukin 10 in pg/mL, must be positive"`
	TNF                 float64 `json:"tnf" jsonschema:"tumour necrosis factor alpha in pg/mL"`
	TGF                 float64 `json:"tgf" jsonschema:"transforming growth factor beta in ng/mL"`
	Vd                  float64 `json:"vd" jsonschema:"renal artery diastolic velocity in cm/s"`
	Vs                  float64 `json:"vs" jsonschema:"renal artery systolic velocity in cm/s"`
	Albuminuria         float64 `json:"albuminuria" jsonschema:"albumin to creatinine ratio in mg/g"`
	Hypertension        bool    `json:"hypertension,omitempty"`
	StageCategory       string  `json:"stage_category" jsonschema:"clinical stage category A, B, C or D"`
	RenalInfectionCount int     `json:"renal_infection_count,omitempty"`
	ProjectionYears     int     `json:"projection_years" jsonschema:"number of years to project"`

	DeclineModel    string `json:"decline_model,omitempty" jsonschema:"linear, exponential-mild or exponential-aggressive"`
	GFRFormula      string `json:"gfr_formula,omitempty" jsonschema:"height-over-fixed-scr or height-over-creatinine"`
	SchwartzProfile string `json:"schwartz_profile,omitempty" jsonschema:"classic or revised"`
	ScoringProfile  string `json:"scoring_profile,omitempty" jsonschema:"mild or aggressive"`
	StagingMode     string `json:"staging_mode,omitempty" jsonschema:"gfr-only or albuminuria-aware"`

	PatientRef string `json:"patient_ref,omitempty" jsonschema:"opaque caller reference stored with the evaluation"`
	Format     string `json:"format,omitempty" jsonschema:"json (default) or text"`
}

// GetEvaluationParams defines parameters for the get_evaluation tool
type GetEvaluationParams struct {
	ID     string `json:"id" jsonschema:"evaluation ID returned by estimate_gfr"`
	Format string `json:"format,omitempty" jsonschema:"json (default) or text"`
}

// ListEvaluationsParams defines parameters for the list_evaluations tool
type ListEvaluationsParams struct {
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// ImportEvaluationsParams defines parameters for the import_evaluations tool
type ImportEvaluationsParams struct {
	FilePath string `json:"file_path" jsonschema:"path to the JSON export to import"`
}

// EmptyParams is used by tools without arguments.
type EmptyParams struct{}

// EstimateGFRResult is the JSON payload of estimate_gfr.
type EstimateGFRResult struct {
	*service.EvaluationResult
	Recommendations []report.Recommendation `json:"recommendations"`
}

// EvaluationSummary is one entry of list_evaluations.
type EvaluationSummary struct {
	ID         string    `json:"id"`
	PatientRef string    `json:"patient_ref,omitempty"`
	InitialGFR float64   `json:"initial_gfr"`
	FinalGFR   float64   `json:"final_gfr"`
	CKDStage   string    `json:"ckd_stage"`
	CreatedAt  time.Time `json:"created_at"`
}

// Patient converts the tool arguments into an engine input.
func (p EstimateGFRParams) Patient() domain.PatientInput {
	return domain.PatientInput{
		Age:             p.Age,
		Gender:          domain.Gender(strings.ToLower(strings.TrimSpace(p.Gender))),
		HeightCM:        p.HeightCM,
		WeightKG:        p.WeightKG,
		SerumCreatinine: p.SerumCreatinine,
		Biomarkers: domain.Biomarkers{
			IL1:  p.IL1,
			IL6:  p.IL6,
			IL8:  p.IL8,
			IL10: p.IL10,
			TNF:  p.TNF,
			TGF:  p.TGF,
		},
		VesselDiastolic:     p.Vd,
		VesselSystolic:      p.Vs,
		Albuminuria:         p.Albuminuria,
		Hypertension:        p.Hypertension,
		StageCategory:       domain.StageCategory(strings.ToUpper(strings.TrimSpace(p.StageCategory))),
		RenalInfectionCount: p.RenalInfectionCount,
		ProjectionYears:     p.ProjectionYears,
	}
}

// handleEstimateGFR handles the estimate_gfr tool invocation
func (s *LiteServer) handleEstimateGFR(ctx context.Context, req *mcp.CallToolRequest, params EstimateGFRParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", "estimate_gfr").Info("Tool invoked")

	result, err := s.service.Evaluate(ctx, service.EvaluateRequest{
		Patient: params.Patient(),
		Config: &service.ConfigOverride{
			DeclineModel:    params.DeclineModel,
			GFRFormula:      params.GFRFormula,
			SchwartzProfile: params.SchwartzProfile,
			ScoringProfile:  params.ScoringProfile,
			StagingMode:     params.StagingMode,
		},
		PatientRef: params.PatientRef,
	})
	if err != nil {
		return errorResult(err), nil, nil
	}

	if strings.EqualFold(params.Format, "text") {
		header := fmt.Sprintf("Evaluation %s\n\n", result.ID)
		return textResult(header + report.RenderText(result.Report)), nil, nil
	}
	return jsonResult(EstimateGFRResult{
		EvaluationResult: result,
		Recommendations:  report.Recommendations(result.Report),
	})
}

// handleListProfiles handles the list_profiles tool invocation
func (s *LiteServer) handleListProfiles(ctx context.Context, req *mcp.CallToolRequest, _ EmptyParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", "list_profiles").Debug("Tool invoked")

	return jsonResult(map[string]interface{}{
		"profiles": s.service.Profiles(),
		"defaults": s.service.Defaults(),
	})
}

// handleGetEvaluation handles the get_evaluation tool invocation
func (s *LiteServer) handleGetEvaluation(ctx context.Context, req *mcp.CallToolRequest, params GetEvaluationParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", "get_evaluation").Debug("Tool invoked")

	if params.ID == "" {
		return errorResult(domain.NewInvalidInput("id", "is required", nil)), nil, nil
	}

	rec, err := s.service.Get(ctx, params.ID)
	if err != nil {
		return errorResult(err), nil, nil
	}

	if strings.EqualFold(params.Format, "text") {
		return textResult(report.RenderText(rec.Report)), nil, nil
	}
	return jsonResult(map[string]interface{}{
		"evaluation":      rec,
		"recommendations": report.Recommendations(rec.Report),
		"charts":          report.BuildCharts(rec.Report, rec.Patient),
	})
}

// handleListEvaluations handles the list_evaluations tool invocation
func (s *LiteServer) handleListEvaluations(ctx context.Context, req *mcp.CallToolRequest, params ListEvaluationsParams) (*mcp.CallToolResult, any, error) {
	if params.Limit <= 0 || params.Limit > 100 {
		params.Limit = 20
	}
	if params.Offset < 0 {
		params.Offset = 0
	}

	records, total, err := s.service.List(ctx, params.Limit, params.Offset)
	if err != nil {
		return errorResult(err), nil, nil
	}

	summaries := make([]EvaluationSummary, 0, len(records))
	for _, rec := range records {
		summaries = append(summaries, EvaluationSummary{
			ID:         rec.ID,
			PatientRef: rec.PatientRef,
			InitialGFR: rec.InitialGFR,
			FinalGFR:   rec.FinalGFR,
			CKDStage:   rec.CKDStage.String(),
			CreatedAt:  rec.CreatedAt,
		})
	}

	return jsonResult(map[string]interface{}{
		"evaluations": summaries,
		"total":       total,
		"limit":       params.Limit,
		"offset":      params.Offset,
	})
}

// handleExportEvaluations handles the export_evaluations tool invocation
func (s *LiteServer) handleExportEvaluations(ctx context.Context, req *mcp.CallToolRequest, _ EmptyParams) (*mcp.CallToolResult, any, error) {
	exportDir := s.config.ExportDir()
	if err := os.MkdirAll(exportDir, 0755); err != nil {
		return errorResult(fmt.Errorf("creating export directory: %w", err)), nil, nil
	}

	filePath := filepath.Join(exportDir, fmt.Sprintf("evaluations_export_%s.json", time.Now().Format("20060102_150405")))
	file, err := os.Create(filePath)
	if err != nil {
		return errorResult(fmt.Errorf("creating export file: %w", err)), nil, nil
	}
	defer file.Close()

	if err := s.store.ExportJSON(ctx, file); err != nil {
		s.logger.WithError(err).Error("Failed to export evaluations")
		return errorResult(err), nil, nil
	}

	count, _ := s.store.Count(ctx)
	return jsonResult(map[string]interface{}{
		"file_path": filePath,
		"count":     count,
		"message":   fmt.Sprintf("Exported %d evaluations to %s", count, filePath),
	})
}

// handleImportEvaluations handles the import_evaluations tool invocation
func (s *LiteServer) handleImportEvaluations(ctx context.Context, req *mcp.CallToolRequest, params ImportEvaluationsParams) (*mcp.CallToolResult, any, error) {
	if params.FilePath == "" {
		return errorResult(domain.NewInvalidInput("file_path", "is required", nil)), nil, nil
	}

	file, err := os.Open(params.FilePath)
	if err != nil {
		return errorResult(domain.NewInvalidInput("file_path", err.Error(), params.FilePath)), nil, nil
	}
	defer file.Close()

	imported, skipped, err := s.store.ImportJSON(ctx, file)
	if err != nil {
		s.logger.WithError(err).Error("Failed to import evaluations")
		return errorResult(err), nil, nil
	}

	return jsonResult(map[string]interface{}{
		"imported": imported,
		"skipped":  skipped,
		"message":  fmt.Sprintf("Imported %d evaluations, skipped %d duplicates", imported, skipped),
	})
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func jsonResult(v interface{}) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("encoding tool result: %w", err)
	}
	return textResult(string(data)), nil, nil
}

// errorResult reports a failure as a tool error carrying the API error code.
func errorResult(err error) *mcp.CallToolResult {
	apiErr := domain.APIErrorFrom(err, "")
	data, marshalErr := json.Marshal(map[string]interface{}{"error": apiErr})
	if marshalErr != nil {
		data = []byte(fmt.Sprintf("Error: %s - %v", apiErr.Code, err))
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
		IsError: true,
	}
}
