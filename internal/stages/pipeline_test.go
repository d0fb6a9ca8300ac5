package stages

import (
	"context"
	"encoding/json"
	"math"
	"testing"

	"github.com/linnemanlabs/acuity/internal/knowledge"
	"github.com/linnemanlabs/acuity/internal/patient"
	"github.com/linnemanlabs/acuity/internal/triage"
)

func newTestPipeline() *triage.Pipeline {
	return triage.NewPipeline(nil, triage.Hooks{}, All(&fakeLookup{source: knowledge.SourceLocal})...)
}

func decodePayload[T any](t *testing.T, out *triage.RunOutcome, stage string) T {
	t.Helper()
	for _, sr := range out.Stages {
		if sr.Stage != stage {
			continue
		}
		if sr.Degraded {
			t.Fatalf("stage %q degraded: %s", stage, sr.Message)
		}
		var v T
		if err := json.Unmarshal(sr.Payload, &v); err != nil {
			t.Fatalf("decode %q payload: %v", stage, err)
		}
		return v
	}
	t.Fatalf("stage %q not in outcome", stage)
	panic("unreachable")
}

func TestPipelineCriticalPresentation(t *testing.T) {
	t.Parallel()

	out := newTestPipeline().Run(context.Background(), patient.Input{
		Symptoms: "chest pain, shortness of breath",
		Vitals: patient.Vitals{
			"heart_rate":     "150",
			"temperature":    "39.8",
			"blood_pressure": "190/125",
		},
		Age: 70,
	})

	if len(out.Stages) != 11 {
		t.Fatalf("stages run = %d, want 11", len(out.Stages))
	}
	for _, sr := range out.Stages {
		if sr.Degraded {
			t.Errorf("stage %q degraded: %s", sr.Stage, sr.Message)
		}
	}

	rec := out.Recommendation
	if rec == nil {
		t.Fatal("no recommendation produced")
	}
	if rec.UrgencyLevel != "High" || rec.Priority != 1 || rec.ColorCode != "Red" {
		t.Errorf("disposition = %s/%d/%s, want High/1/Red", rec.UrgencyLevel, rec.Priority, rec.ColorCode)
	}
	if rec.RiskScore != 1.0 {
		t.Errorf("RiskScore = %v, want 1.0", rec.RiskScore)
	}
	if rec.RecommendedAction != "Immediate medical attention required" {
		t.Errorf("RecommendedAction = %q", rec.RecommendedAction)
	}
	if len(rec.NextSteps) != 3 || rec.NextSteps[0] != "Contact emergency services immediately" {
		t.Errorf("NextSteps = %v", rec.NextSteps)
	}
	if rec.NextSteps[2] != "Consider specialist consultation" {
		t.Errorf("NextSteps[2] = %q, want specialist consultation at high risk", rec.NextSteps[2])
	}
	if len(rec.DegradedStages) != 0 {
		t.Errorf("DegradedStages = %v, want none", rec.DegradedStages)
	}
}

func TestPipelineBenignPresentation(t *testing.T) {
	t.Parallel()

	out := newTestPipeline().Run(context.Background(), patient.Input{
		Symptoms: "mild headache",
		Age:      25,
	})

	rec := out.Recommendation
	if rec == nil {
		t.Fatal("no recommendation produced")
	}
	if rec.UrgencyLevel != "Low" || rec.Priority != 3 || rec.ColorCode != "Green" {
		t.Errorf("disposition = %s/%d/%s, want Low/3/Green", rec.UrgencyLevel, rec.Priority, rec.ColorCode)
	}
	if rec.NextSteps[2] != "Routine follow-up as needed" {
		t.Errorf("NextSteps[2] = %q, want routine follow-up", rec.NextSteps[2])
	}

	risk := decodePayload[triage.RiskAssessment](t, out, triage.StageRisk)
	if len(risk.CriticalFlags) != 0 {
		t.Errorf("CriticalFlags = %v, want none", risk.CriticalFlags)
	}
}

func TestPipelineLocalDiagnosisFallback(t *testing.T) {
	t.Parallel()

	// every external tier down: the lookup resolves via the local table
	out := newTestPipeline().Run(context.Background(), patient.Input{
		Symptoms: "chest pain, sweating",
		Vitals:   patient.Vitals{"heart_rate": "120"},
		Age:      62,
		Gender:   "male",
	})

	diff := decodePayload[triage.Differential](t, out, triage.StageDiagnosis)
	if len(diff.Candidates) != maxCandidates {
		t.Fatalf("candidates = %d, want %d", len(diff.Candidates), maxCandidates)
	}
	if diff.Source != knowledge.SourceLocal {
		t.Errorf("Source = %q, want %q", diff.Source, knowledge.SourceLocal)
	}
	if diff.Candidates[0].Confidence != 0.95 {
		t.Errorf("top confidence = %v, want 0.95", diff.Candidates[0].Confidence)
	}
}

func TestPipelineQualityAggregate(t *testing.T) {
	t.Parallel()

	out := newTestPipeline().Run(context.Background(), patient.Input{
		Symptoms: "chest pain, shortness of breath",
		Vitals: patient.Vitals{
			"heart_rate":     "150",
			"temperature":    "39.8",
			"blood_pressure": "190/125",
		},
		Age: 70,
	})

	q := decodePayload[triage.QualityReport](t, out, triage.StageAudit)

	want := math.Round((weightCompleteness*q.Completeness+
		weightConsistency*q.Consistency+
		weightSafety*q.Safety)*100) / 100
	if q.Aggregate != want {
		t.Errorf("Aggregate = %v, want weighted sum %v", q.Aggregate, want)
	}
	if q.Aggregate < 0.8 {
		t.Errorf("Aggregate = %v, want >= 0.8 for a complete run", q.Aggregate)
	}
	if q.Assessment != "High quality - recommendations are comprehensive and consistent" {
		t.Errorf("Assessment = %q", q.Assessment)
	}

	viz := decodePayload[triage.Visualization](t, out, triage.StageVisualization)
	if viz.QualityScores["aggregate"] != q.Aggregate {
		t.Errorf("QualityScores[aggregate] = %v, want %v", viz.QualityScores["aggregate"], q.Aggregate)
	}
	if viz.RiskGauge.Color != "Red" {
		t.Errorf("RiskGauge.Color = %q, want Red", viz.RiskGauge.Color)
	}
	if len(viz.VitalSeries) != 4 {
		t.Errorf("VitalSeries = %+v, want 4 points", viz.VitalSeries)
	}
}

func TestPipelineRunThrough(t *testing.T) {
	t.Parallel()

	p := newTestPipeline()

	out, err := p.RunThrough(context.Background(), patient.Input{Symptoms: "fever", Age: 40}, triage.StageRisk)
	if err != nil {
		t.Fatalf("RunThrough: %v", err)
	}
	if len(out.Stages) != 2 {
		t.Fatalf("stages run = %d, want 2 (normalize, risk)", len(out.Stages))
	}
	if out.Recommendation != nil {
		t.Errorf("Recommendation = %+v, want nil for partial run", out.Recommendation)
	}

	if _, err := p.RunThrough(context.Background(), patient.Input{}, "nonsense"); err == nil {
		t.Error("RunThrough with unknown stage: want error")
	}
}
