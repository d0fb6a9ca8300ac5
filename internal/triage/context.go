package triage

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/linnemanlabs/acuity/internal/patient"
)

// Context is the shared record one pipeline run accumulates: stage name →
// published payload, append-only and first-write-wins. Only the single
// pipeline goroutine writes; observers (status polling, tests) may read
// concurrently, so reads take the read lock.
//
// Typed accessors return neutral defaults when a stage is absent or
// degraded, so downstream stages need no nil-checks.
type Context struct {
	mu    sync.RWMutex
	input patient.Input

	order   []string
	records map[string]stageRecord
}

type stageRecord struct {
	payload   any
	degraded  bool
	message   string
	startedAt time.Time
	duration  float64
}

// NewContext starts an empty context for one run over the given input.
func NewContext(in patient.Input) *Context {
	return &Context{
		input:   in,
		records: make(map[string]stageRecord),
	}
}

// Input returns the immutable patient intake.
func (c *Context) Input() patient.Input {
	return c.input
}

// publish records a stage outcome. A stage name can only be published once
// per run.
func (c *Context) publish(stage string, rec stageRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.records[stage]; exists {
		return fmt.Errorf("stage %q already published", stage)
	}
	c.records[stage] = rec
	c.order = append(c.order, stage)
	return nil
}

// Published reports whether the named stage has a record, and whether it
// degraded.
func (c *Context) Published(stage string) (ok, degraded bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rec, ok := c.records[stage]
	return ok, rec.degraded
}

// payloadOf returns the named stage's payload, nil when absent or when the
// stage degraded without one.
func (c *Context) payloadOf(stage string) any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.records[stage].payload
}

// Normalized returns the normalize stage's payload, or its zero value.
func (c *Context) Normalized() NormalizedInput {
	if p, ok := c.payloadOf(StageNormalize).(NormalizedInput); ok {
		return p
	}
	return NormalizedInput{}
}

// Risk returns the risk assessment, or the neutral moderate default when
// the stage is absent or degraded.
func (c *Context) Risk() RiskAssessment {
	if p, ok := c.payloadOf(StageRisk).(RiskAssessment); ok {
		return p
	}
	return NeutralRisk()
}

// Differential returns the diagnosis payload, or an empty list.
func (c *Context) Differential() Differential {
	if p, ok := c.payloadOf(StageDiagnosis).(Differential); ok {
		return p
	}
	return Differential{Marker: "no diagnosis available"}
}

// Treatment returns the treatment plan, or an empty plan.
func (c *Context) Treatment() TreatmentPlan {
	if p, ok := c.payloadOf(StageTreatment).(TreatmentPlan); ok {
		return p
	}
	return TreatmentPlan{}
}

// FollowUp returns the follow-up plan, or an empty plan.
func (c *Context) FollowUp() FollowUpPlan {
	if p, ok := c.payloadOf(StageFollowUp).(FollowUpPlan); ok {
		return p
	}
	return FollowUpPlan{}
}

// Safety returns the drug safety report. The neutral default is caution:
// an absent safety check must not read as an all-clear.
func (c *Context) Safety() SafetyReport {
	if p, ok := c.payloadOf(StageDrugs).(SafetyReport); ok {
		return p
	}
	return SafetyReport{SafetyLevel: SafetyLevelCaution}
}

// Specialists returns the referral payload, or an empty referral.
func (c *Context) Specialists() SpecialistReferral {
	if p, ok := c.payloadOf(StageSpecialist).(SpecialistReferral); ok {
		return p
	}
	return SpecialistReferral{}
}

// Quality returns the audit payload, or a zero report.
func (c *Context) Quality() QualityReport {
	if p, ok := c.payloadOf(StageAudit).(QualityReport); ok {
		return p
	}
	return QualityReport{}
}

// Forecast returns the complication forecast, or an empty one.
func (c *Context) Forecast() ComplicationForecast {
	if p, ok := c.payloadOf(StageForecast).(ComplicationForecast); ok {
		return p
	}
	return ComplicationForecast{}
}

// Visual returns the visualization payload, or an empty one.
func (c *Context) Visual() Visualization {
	if p, ok := c.payloadOf(StageVisualization).(Visualization); ok {
		return p
	}
	return Visualization{}
}

// Recommendation returns the final recommendation if published.
func (c *Context) Recommendation() (Recommendation, bool) {
	p, ok := c.payloadOf(StageRecommendation).(Recommendation)
	return p, ok
}

// Snapshot renders every published record, in publish order, with payloads
// marshalled for persistence. A payload that fails to marshal is recorded
// as degraded rather than dropped.
func (c *Context) Snapshot() []StageResult {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]StageResult, 0, len(c.order))
	for _, stage := range c.order {
		rec := c.records[stage]
		sr := StageResult{
			Stage:     stage,
			Degraded:  rec.degraded,
			Message:   rec.message,
			StartedAt: rec.startedAt,
			Duration:  rec.duration,
		}
		if rec.payload != nil {
			b, err := json.Marshal(rec.payload)
			if err != nil {
				sr.Degraded = true
				sr.Message = fmt.Sprintf("payload not serializable: %v", err)
			} else {
				sr.Payload = b
			}
		}
		out = append(out, sr)
	}
	return out
}
