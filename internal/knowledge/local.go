package knowledge

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/linnemanlabs/acuity/internal/textmatch"
)

// minLocalResults is the floor on local answers: even a query matching
// nothing still yields this many prevalence-ranked candidates, so the
// terminal tier can never come back empty.
const minLocalResults = 4

// LocalProvider answers lookups from the fixed condition table. It is the
// terminal fallback tier and never returns an error.
type LocalProvider struct {
	conditions []Condition
}

// NewLocalProvider returns a provider over the packaged condition table.
func NewLocalProvider() *LocalProvider {
	return &LocalProvider{conditions: Conditions}
}

func (p *LocalProvider) Name() string { return SourceLocal }

// Lookup scores every condition against the query text by symptom overlap
// and returns the ranked matches, padded with high-prevalence conditions up
// to the minimum result floor.
func (p *LocalProvider) Lookup(_ context.Context, query string) ([]Result, error) {
	type scored struct {
		cond  Condition
		score float64
	}

	matched := make([]scored, 0, len(p.conditions))
	var rest []scored
	for _, c := range p.conditions {
		s := symptomOverlap(query, c.Symptoms) * c.Prevalence
		if s > 0 {
			matched = append(matched, scored{c, s})
		} else {
			rest = append(rest, scored{c, 0})
		}
	}

	sort.SliceStable(matched, func(i, j int) bool { return matched[i].score > matched[j].score })
	sort.SliceStable(rest, func(i, j int) bool { return rest[i].cond.Prevalence > rest[j].cond.Prevalence })

	for len(matched) < minLocalResults && len(rest) > 0 {
		matched = append(matched, rest[0])
		rest = rest[1:]
	}

	out := make([]Result, 0, len(matched))
	for _, m := range matched {
		conf := m.score / 3.0
		if conf > 0.95 {
			conf = 0.95
		}
		if conf < 0.1 {
			conf = 0.1
		}
		out = append(out, Result{
			Title:      m.cond.Name,
			Snippet:    fmt.Sprintf("Common findings: %s.", strings.Join(m.cond.Symptoms, ", ")),
			Code:       m.cond.Key,
			Confidence: conf,
			Source:     SourceLocal,
		})
	}
	return out, nil
}

// symptomOverlap sums match weights of the condition's symptom terms against
// the query text: whole-term containment counts full, word overlap half.
func symptomOverlap(query string, symptoms []string) float64 {
	var total float64
	for _, sym := range symptoms {
		switch {
		case textmatch.Contains(query, sym):
			total += 1.0
		case textmatch.WordOverlap(query, sym):
			total += 0.5
		}
	}
	return total
}
