// Package events publishes evaluation-completed events for downstream
// consumers such as registries and dashboards.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/pediatric-gfr-server/internal/domain"
)

// EvaluationCompleted is the type of the event emitted after each evaluation.
const EvaluationCompleted = "evaluation.completed"

// Event is the message body written to the topic.
type Event struct {
	ID                string              `json:"id"`
	Type              string              `json:"type"`
	Source            string              `json:"source"`
	EvaluationID      string              `json:"evaluation_id,omitempty"`
	PatientRef        string              `json:"patient_ref,omitempty"`
	DeclineModel      domain.DeclineModel `json:"decline_model"`
	InitialGFR        float64             `json:"initial_gfr"`
	FinalGFR          float64             `json:"final_gfr"`
	CKDStage          domain.CKDStage     `json:"ckd_stage"`
	ProjectedCKDStage domain.CKDStage     `json:"projected_ckd_stage"`
	ProgressionRisk   float64             `json:"progression_risk"`
	Timestamp         time.Time           `json:"timestamp"`
}

// NewEvaluationEvent summarizes a report. The full report is not published.
func NewEvaluationEvent(source, evaluationID, patientRef string, report *domain.EstimationReport) Event {
	return Event{
		ID:                uuid.New().String(),
		Type:              EvaluationCompleted,
		Source:            source,
		EvaluationID:      evaluationID,
		PatientRef:        patientRef,
		DeclineModel:      report.Config.DeclineModel,
		InitialGFR:        report.InitialGFR,
		FinalGFR:          report.FinalGFR(),
		CKDStage:          report.CKDStage,
		ProjectedCKDStage: report.ProjectedCKDStage,
		ProgressionRisk:   report.ProgressionRisk,
		Timestamp:         time.Now().UTC(),
	}
}

// Publisher delivers events.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// NopPublisher discards every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error { return nil }
