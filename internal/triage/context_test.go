package triage

import (
	"strings"
	"testing"

	"github.com/linnemanlabs/acuity/internal/patient"
)

func TestContextPublishOnce(t *testing.T) {
	t.Parallel()

	tc := NewContext(patient.Input{Symptoms: "cough", Age: 40})
	if err := tc.publish(StageRisk, stageRecord{payload: RiskAssessment{Score: 0.8}}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := tc.publish(StageRisk, stageRecord{}); err == nil {
		t.Error("second publish of the same stage: want error")
	}

	ok, degraded := tc.Published(StageRisk)
	if !ok || degraded {
		t.Errorf("Published = (%v, %v), want (true, false)", ok, degraded)
	}
}

func TestContextNeutralDefaults(t *testing.T) {
	t.Parallel()

	tc := NewContext(patient.Input{Symptoms: "cough", Age: 40})

	if got := tc.Risk(); got.Score != NeutralRisk().Score {
		t.Errorf("Risk() = %+v, want neutral default", got)
	}
	if got := tc.Safety(); got.SafetyLevel != SafetyLevelCaution {
		t.Errorf("Safety().SafetyLevel = %q, want %q", got.SafetyLevel, SafetyLevelCaution)
	}
	if got := tc.Differential(); got.Marker != "no diagnosis available" {
		t.Errorf("Differential().Marker = %q", got.Marker)
	}
	if _, ok := tc.Recommendation(); ok {
		t.Error("Recommendation() ok = true on empty context")
	}
}

func TestContextDegradedStageYieldsDefault(t *testing.T) {
	t.Parallel()

	tc := NewContext(patient.Input{Symptoms: "cough", Age: 40})
	if err := tc.publish(StageRisk, stageRecord{degraded: true, message: "lookup failed"}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	// degraded stage has no payload, accessor falls back to neutral
	if got := tc.Risk(); got.Score != NeutralRisk().Score {
		t.Errorf("Risk() after degraded publish = %+v, want neutral default", got)
	}
	ok, degraded := tc.Published(StageRisk)
	if !ok || !degraded {
		t.Errorf("Published = (%v, %v), want (true, true)", ok, degraded)
	}
}

func TestContextSnapshotOrder(t *testing.T) {
	t.Parallel()

	tc := NewContext(patient.Input{Symptoms: "cough", Age: 40})
	_ = tc.publish(StageNormalize, stageRecord{payload: NormalizedInput{Summary: "1 symptom"}})
	_ = tc.publish(StageRisk, stageRecord{payload: RiskAssessment{Score: 0.2}})

	snap := tc.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("snapshot length = %d, want 2", len(snap))
	}
	if snap[0].Stage != StageNormalize || snap[1].Stage != StageRisk {
		t.Errorf("snapshot order = [%s, %s], want publish order", snap[0].Stage, snap[1].Stage)
	}
	if len(snap[0].Payload) == 0 {
		t.Error("snapshot payload empty, want marshalled record")
	}
}

func TestContextSnapshotUnserializablePayload(t *testing.T) {
	t.Parallel()

	tc := NewContext(patient.Input{Symptoms: "cough", Age: 40})
	_ = tc.publish("broken", stageRecord{payload: make(chan int)})

	snap := tc.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("snapshot length = %d, want 1", len(snap))
	}
	if !snap[0].Degraded {
		t.Error("unserializable payload should mark the record degraded")
	}
	if !strings.Contains(snap[0].Message, "payload not serializable") {
		t.Errorf("Message = %q", snap[0].Message)
	}
}

func TestResultDegradedStages(t *testing.T) {
	t.Parallel()

	r := &Result{Stages: []StageResult{
		{Stage: StageNormalize},
		{Stage: StageRisk, Degraded: true},
		{Stage: StageDiagnosis, Degraded: true},
	}}

	got := r.DegradedStages()
	if len(got) != 2 || got[0] != StageRisk || got[1] != StageDiagnosis {
		t.Errorf("DegradedStages() = %v", got)
	}

	if got := (&Result{}).DegradedStages(); len(got) != 0 {
		t.Errorf("DegradedStages() on empty result = %v, want none", got)
	}
}
