package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pediatric-gfr-server/internal/domain"
	"github.com/pediatric-gfr-server/internal/middleware"
	"github.com/pediatric-gfr-server/internal/report"
	"github.com/pediatric-gfr-server/internal/service"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// EvaluateResponse is the body returned for a single evaluation.
type EvaluateResponse struct {
	Result          *service.EvaluationResult `json:"result"`
	Recommendations []report.Recommendation   `json:"recommendations"`
}

// BatchRequest wraps the requests of POST /evaluate/batch.
type BatchRequest struct {
	Requests []service.EvaluateRequest `json:"requests"`
}

// EvaluationSummary is one row of GET /evaluations.
type EvaluationSummary struct {
	ID              string              `json:"id"`
	PatientRef      string              `json:"patient_ref,omitempty"`
	DeclineModel    domain.DeclineModel `json:"decline_model"`
	GFRFormula      domain.GFRFormula   `json:"gfr_formula"`
	InitialGFR      float64             `json:"initial_gfr"`
	FinalGFR        float64             `json:"final_gfr"`
	CKDStage        string              `json:"ckd_stage"`
	ProgressionRisk float64             `json:"progression_risk"`
	CreatedAt       time.Time           `json:"created_at"`
}

func (s *Server) handleProfiles(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"profiles": s.service.Profiles(),
		"defaults": s.service.Defaults(),
	})
}

// handleEvaluate accepts an EvaluateRequest as JSON. With ?format=text the
// plain-text report is returned instead.
func (s *Server) handleEvaluate(c *gin.Context) {
	var req service.EvaluateRequest
	decoder := json.NewDecoder(c.Request.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		s.writeAPIError(c, http.StatusBadRequest, domain.NewAPIError(domain.CodeBadRequest, "invalid request body", err.Error(), requestID(c)))
		return
	}
	s.evaluate(c, req)
}

// handleEvaluateForm accepts the raw form fields of the input screen.
// Engine options are read from the query string.
func (s *Server) handleEvaluateForm(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		s.writeAPIError(c, http.StatusBadRequest, domain.NewAPIError(domain.CodeBadRequest, "invalid form body", err.Error(), requestID(c)))
		return
	}

	values := make(map[string]string, len(c.Request.PostForm))
	for key, v := range c.Request.PostForm {
		if len(v) > 0 {
			values[key] = v[0]
		}
	}

	patient, err := s.parser.ParseForm(values)
	if err != nil {
		s.writeError(c, err)
		return
	}

	override, err := overrideFromQuery(c)
	if err != nil {
		s.writeError(c, err)
		return
	}

	s.evaluate(c, service.EvaluateRequest{
		Patient:    patient,
		Config:     override,
		PatientRef: c.Query("patient_ref"),
	})
}

func (s *Server) evaluate(c *gin.Context, req service.EvaluateRequest) {
	result, err := s.service.Evaluate(c.Request.Context(), req)
	if err != nil {
		s.writeError(c, err)
		return
	}

	if c.Query("format") == "text" {
		c.String(http.StatusOK, report.RenderText(result.Report))
		return
	}

	c.JSON(http.StatusOK, EvaluateResponse{
		Result:          result,
		Recommendations: report.Recommendations(result.Report),
	})
}

func (s *Server) handleEvaluateBatch(c *gin.Context) {
	var req BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeAPIError(c, http.StatusBadRequest, domain.NewAPIError(domain.CodeBadRequest, "invalid request body", err.Error(), requestID(c)))
		return
	}

	items, err := s.service.EvaluateBatch(c.Request.Context(), req.Requests)
	if err != nil {
		s.writeError(c, err)
		return
	}

	failed := 0
	for _, item := range items {
		if item.Error != nil {
			failed++
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"items":      items,
		"total":      len(items),
		"successful": len(items) - failed,
		"failed":     failed,
	})
}

func (s *Server) handleListEvaluations(c *gin.Context) {
	limit, err := queryInt(c, "limit", defaultPageSize)
	if err != nil {
		s.writeError(c, err)
		return
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if limit <= 0 || limit > maxPageSize {
		limit = defaultPageSize
	}
	if offset < 0 {
		offset = 0
	}

	records, total, err := s.service.List(c.Request.Context(), limit, offset)
	if err != nil {
		s.writeError(c, err)
		return
	}

	summaries := make([]EvaluationSummary, 0, len(records))
	for _, rec := range records {
		summaries = append(summaries, EvaluationSummary{
			ID:              rec.ID,
			PatientRef:      rec.PatientRef,
			DeclineModel:    rec.DeclineModel,
			GFRFormula:      rec.GFRFormula,
			InitialGFR:      rec.InitialGFR,
			FinalGFR:        rec.FinalGFR,
			CKDStage:        rec.CKDStage.String(),
			ProgressionRisk: rec.ProgressionRisk,
			CreatedAt:       rec.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"evaluations": summaries,
		"total":       total,
		"limit":       limit,
		"offset":      offset,
	})
}

func (s *Server) handleGetEvaluation(c *gin.Context) {
	rec, err := s.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"evaluation":      rec,
		"recommendations": report.Recommendations(rec.Report),
	})
}

func (s *Server) handleGetCharts(c *gin.Context) {
	rec, err := s.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":     rec.ID,
		"charts": report.BuildCharts(rec.Report, rec.Patient),
	})
}

func (s *Server) handleGetReport(c *gin.Context) {
	rec, err := s.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.String(http.StatusOK, report.RenderText(rec.Report))
}

func (s *Server) handleStageCounts(c *gin.Context) {
	if s.stages == nil {
		s.writeAPIError(c, http.StatusNotFound, domain.NewAPIError(domain.CodeNotFound, "stage statistics are not available", nil, requestID(c)))
		return
	}

	counts, err := s.stages.StageCounts(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}

	out := make(map[string]int64, len(counts))
	for stage, n := range counts {
		out[stage.String()] = n
	}
	c.JSON(http.StatusOK, gin.H{"stages": out})
}

func overrideFromQuery(c *gin.Context) (*service.ConfigOverride, error) {
	override := &service.ConfigOverride{
		DeclineModel:    c.Query("decline_model"),
		GFRFormula:      c.Query("gfr_formula"),
		SchwartzProfile: c.Query("schwartz_profile"),
		ScoringProfile:  c.Query("scoring_profile"),
		StagingMode:     c.Query("staging_mode"),
	}
	if raw, ok := c.GetQuery("projection_years"); ok {
		years, err := strconv.Atoi(raw)
		if err != nil {
			return nil, domain.NewInvalidConfig("projection_years", "must be an integer", raw)
		}
		override.ProjectionYears = &years
	}
	return override, nil
}

func queryInt(c *gin.Context, key string, fallback int) (int, error) {
	raw, ok := c.GetQuery(key)
	if !ok || raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.NewInvalidInput(key, "must be an integer", raw)
	}
	return n, nil
}

func requestID(c *gin.Context) string {
	return c.GetString(middleware.CorrelationIDKey)
}

// statusFor maps an API error code to its HTTP status.
func statusFor(err error, apiErr *domain.APIError) int {
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	switch apiErr.Code {
	case string(domain.KindInvalidInput), string(domain.KindInvalidConfig), domain.CodeBadRequest:
		return http.StatusBadRequest
	case string(domain.KindUnsupportedAge), string(domain.KindOutOfDomain):
		return http.StatusUnprocessableEntity
	case domain.CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(c *gin.Context, err error) {
	apiErr := domain.APIErrorFrom(err, requestID(c))
	status := statusFor(err, apiErr)
	if status >= http.StatusInternalServerError {
		s.logger.WithError(err).WithField("path", c.FullPath()).Error("Request failed")
	}
	s.writeAPIError(c, status, apiErr)
}

func (s *Server) writeAPIError(c *gin.Context, status int, apiErr *domain.APIError) {
	c.AbortWithStatusJSON(status, gin.H{"error": apiErr})
}
