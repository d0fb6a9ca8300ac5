package triage

import (
	"encoding/json"
	"time"

	"github.com/linnemanlabs/acuity/internal/patient"
)

// Status tracks where a triage run is in its lifecycle.
type Status string

const (
	// StatusPending means created, not yet started
	StatusPending Status = "pending"

	// StatusInProgress means currently being processed
	StatusInProgress Status = "in_progress"

	// StatusComplete means finished, possibly with degraded stages
	StatusComplete Status = "complete"

	// StatusFailed means the run itself could not execute
	StatusFailed Status = "failed"
)

// StageResult is one stage's outcome inside a run. A degraded stage carries
// a human-readable message instead of (or alongside) its payload; downstream
// stages read neutral defaults in that case.
type StageResult struct {
	Stage     string          `json:"stage"`
	Degraded  bool            `json:"degraded,omitempty"`
	Message   string          `json:"message,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	StartedAt time.Time       `json:"started_at"`
	Duration  float64         `json:"duration_seconds"`
}

// Result is the outcome of a triage run.
type Result struct {
	ID             string          `json:"id"`
	Fingerprint    string          `json:"fingerprint"`
	Status         Status          `json:"status"`
	Input          patient.Input   `json:"input"`
	Stages         []StageResult   `json:"stages,omitempty"`
	Recommendation *Recommendation `json:"recommendation,omitempty"`
	Error          string          `json:"error,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	CompletedAt    time.Time       `json:"completed_at,omitempty"`
	Duration       float64         `json:"duration_seconds,omitempty"`
}

// DegradedStages lists the names of stages that degraded in this run.
func (r *Result) DegradedStages() []string {
	var out []string
	for _, s := range r.Stages {
		if s.Degraded {
			out = append(out, s.Stage)
		}
	}
	return out
}
