package stages

import (
	"context"
	"testing"

	"github.com/linnemanlabs/acuity/internal/knowledge"
	"github.com/linnemanlabs/acuity/internal/patient"
	"github.com/linnemanlabs/acuity/internal/triage"
)

// fakeLookup satisfies Lookup with a canned answer.
type fakeLookup struct {
	results []knowledge.Result
	source  string
}

func (f *fakeLookup) Lookup(context.Context, string) ([]knowledge.Result, string) {
	return f.results, f.source
}

func chestPainInput() patient.Input {
	return patient.Input{
		Symptoms: "chest pain, shortness of breath, sweating",
		Vitals:   patient.Vitals{"heart_rate": "120", "blood_pressure": "150/95"},
		Age:      62,
		Gender:   "male",
	}
}

func runDiagnosis(t *testing.T, lookup Lookup, in patient.Input) triage.Differential {
	t.Helper()
	tc := triage.NewContext(in)
	payload, err := NewDiagnosis(lookup).Run(context.Background(), tc)
	if err != nil {
		t.Fatalf("diagnosis stage failed: %v", err)
	}
	diff, ok := payload.(triage.Differential)
	if !ok {
		t.Fatalf("payload type = %T, want Differential", payload)
	}
	return diff
}

func TestDiagnosisInvariants(t *testing.T) {
	t.Parallel()

	diff := runDiagnosis(t, &fakeLookup{source: knowledge.SourceLocal}, chestPainInput())

	if len(diff.Candidates) == 0 || len(diff.Candidates) > maxCandidates {
		t.Fatalf("candidate count = %d, want 1..%d", len(diff.Candidates), maxCandidates)
	}
	for i, c := range diff.Candidates {
		if c.Confidence < 0.1 || c.Confidence > 0.95 {
			t.Errorf("candidate %d confidence = %v, want [0.1, 0.95]", i, c.Confidence)
		}
		if i > 0 && c.MatchScore > diff.Candidates[i-1].MatchScore {
			t.Errorf("candidates not sorted: [%d] %v > [%d] %v",
				i, c.MatchScore, i-1, diff.Candidates[i-1].MatchScore)
		}
	}
}

func TestDiagnosisAllTiersDown(t *testing.T) {
	t.Parallel()

	// lookup resolved only through the terminal local tier
	diff := runDiagnosis(t, &fakeLookup{source: knowledge.SourceLocal}, chestPainInput())

	if len(diff.Candidates) != maxCandidates {
		t.Fatalf("candidate count = %d, want %d from the local table", len(diff.Candidates), maxCandidates)
	}
	if diff.Source != knowledge.SourceLocal {
		t.Errorf("Source = %q, want %q", diff.Source, knowledge.SourceLocal)
	}
	if diff.Marker != "" {
		t.Errorf("Marker = %q, want empty", diff.Marker)
	}
}

func TestDiagnosisLocalRanksCardiacFirst(t *testing.T) {
	t.Parallel()

	in := chestPainInput()
	in.MedicalHistory = []string{"heart disease"}
	diff := runDiagnosis(t, &fakeLookup{source: knowledge.SourceLocal}, in)

	if got := diff.Candidates[0].Key; got != "myocardial_infarction" {
		t.Errorf("top candidate = %q, want myocardial_infarction", got)
	}
}

func TestDiagnosisExternalTier(t *testing.T) {
	t.Parallel()

	results := []knowledge.Result{
		{Title: "Acute coronary syndrome", Snippet: "chest pain radiating to arm", Code: "acs", Confidence: 0.9, Source: knowledge.SourceTerminology},
		{Title: "Costochondritis", Snippet: "localized chest wall pain", Code: "costo", Confidence: 0.5, Source: knowledge.SourceTerminology},
	}
	diff := runDiagnosis(t, &fakeLookup{results: results, source: knowledge.SourceTerminology}, chestPainInput())

	if diff.Source != knowledge.SourceTerminology {
		t.Fatalf("Source = %q, want %q", diff.Source, knowledge.SourceTerminology)
	}
	if len(diff.Candidates) != 2 {
		t.Fatalf("candidate count = %d, want 2", len(diff.Candidates))
	}
	if diff.Candidates[0].Key != "acs" {
		t.Errorf("top candidate = %q, want acs", diff.Candidates[0].Key)
	}
}

func TestDiagnosisSearchDenylist(t *testing.T) {
	t.Parallel()

	results := []knowledge.Result{
		{Title: "Chest pain - Wikipedia", Snippet: "encyclopedia article", Confidence: 0.9, Source: knowledge.SourceWebSearch},
		{Title: "Clinical practice guideline for chest pain", Snippet: "management overview", Confidence: 0.8, Source: knowledge.SourceWebSearch},
	}
	diff := runDiagnosis(t, &fakeLookup{results: results, source: knowledge.SourceWebSearch}, chestPainInput())

	// every search hit denied, so the stage falls through to the local table
	if diff.Source != knowledge.SourceLocal {
		t.Errorf("Source = %q, want local fallback", diff.Source)
	}
	if len(diff.Candidates) != maxCandidates {
		t.Errorf("candidate count = %d, want %d", len(diff.Candidates), maxCandidates)
	}
}

func TestDemographicAdjustment(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		key    string
		age    int
		gender string
		want   float64
	}{
		{"elderly cardiac boost", "myocardial_infarction", 70, "", 0.7},
		{"elderly male cardiac", "myocardial_infarction", 70, "male", 1.2},
		{"pediatric cardiac penalty", "myocardial_infarction", 12, "", -0.8},
		{"young adult pneumothorax", "pneumothorax", 24, "", 0.6},
		{"midlife anxiety", "anxiety_panic_attack", 40, "female", 0.8},
		{"no adjustment", "pneumonia", 40, "", 0},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := demographicAdjustment(tt.key, tt.age, tt.gender)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("demographicAdjustment(%q, %d, %q) = %v, want %v",
					tt.key, tt.age, tt.gender, got, tt.want)
			}
		})
	}
}

func TestHistoryAdjustment(t *testing.T) {
	t.Parallel()

	tests := []struct {
		key     string
		history []string
		want    float64
	}{
		{"hypertensive_crisis", []string{"hypertension"}, 0.6},
		{"asthma_exacerbation", []string{"childhood asthma"}, 0.7},
		{"pulmonary_embolism", []string{"prior blood clot", "copd"}, 1.0},
		{"pneumonia", []string{"diabetes type 2"}, 0.2},
		{"pneumonia", nil, 0},
	}
	for _, tt := range tests {
		got := historyAdjustment(tt.key, tt.history)
		if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("historyAdjustment(%q, %v) = %v, want %v", tt.key, tt.history, got, tt.want)
		}
	}
}
