package knowledge

import (
	"context"
	"testing"
)

func TestLocalProviderRanksBySymptomOverlap(t *testing.T) {
	t.Parallel()

	p := NewLocalProvider()
	results, err := p.Lookup(context.Background(), "chest pain, shortness of breath, sweating, nausea")
	if err != nil {
		t.Fatalf("Lookup() error = %v, want nil", err)
	}
	if len(results) == 0 {
		t.Fatal("Lookup() returned no results")
	}
	if results[0].Code != "myocardial_infarction" {
		t.Errorf("top result = %q, want myocardial_infarction", results[0].Code)
	}
	for i := 1; i < len(results); i++ {
		if results[i].Confidence > results[i-1].Confidence {
			t.Errorf("results not sorted by confidence at index %d", i)
		}
	}
}

func TestLocalProviderNeverEmpty(t *testing.T) {
	t.Parallel()

	p := NewLocalProvider()
	results, err := p.Lookup(context.Background(), "zzz unmatched complaint")
	if err != nil {
		t.Fatalf("Lookup() error = %v, want nil", err)
	}
	if len(results) < 4 {
		t.Fatalf("Lookup() returned %d results for unmatched query, want at least 4", len(results))
	}
	for _, r := range results {
		if r.Source != SourceLocal {
			t.Errorf("result %q source = %q, want %q", r.Title, r.Source, SourceLocal)
		}
		if r.Confidence < 0.1 || r.Confidence > 0.95 {
			t.Errorf("result %q confidence %v outside [0.1, 0.95]", r.Title, r.Confidence)
		}
	}
}
