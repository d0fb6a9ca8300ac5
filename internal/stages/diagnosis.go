package stages

import (
	"context"
	"sort"

	"github.com/linnemanlabs/acuity/internal/knowledge"
	"github.com/linnemanlabs/acuity/internal/patient"
	"github.com/linnemanlabs/acuity/internal/textmatch"
	"github.com/linnemanlabs/acuity/internal/triage"
)

// maxCandidates caps the differential list.
const maxCandidates = 4

// minLocalScore is the floor for a locally scored condition to enter the
// differential on its own merit.
const minLocalScore = 0.5

// Match weights for the local condition scorer, strongest evidence first.
const (
	wSymptomExact   = 3.0
	wSymptomPartial = 1.5
	wCategoryExact  = 2.5
	wCategoryFuzzy  = 2.0
	wCategoryWord   = 1.0
	wConcernExact   = 3.0
	wConcernFuzzy   = 2.5
	wConcernPartial = 1.5
	wVitalIndicator = 1.2
)

// searchDenylist drops generic educational or reference content from the
// web-search tier; those hits describe conditions, they don't match them.
var searchDenylist = []string{
	"guideline", "overview", "education", "encyclopedia", "dictionary", "wikipedia", "news",
}

// Diagnosis ranks candidate conditions for the presentation. External lookup
// tiers are tried through the gateway; when the answer comes from the local
// table the stage re-scores the full condition database with the weighted
// matcher, so the differential reflects vitals, demographics, and history,
// not just text overlap.
type Diagnosis struct {
	lookup Lookup
}

func NewDiagnosis(lookup Lookup) *Diagnosis {
	return &Diagnosis{lookup: lookup}
}

func (*Diagnosis) Name() string { return triage.StageDiagnosis }

func (d *Diagnosis) Run(ctx context.Context, tc *triage.Context) (any, error) {
	in := tc.Input()
	norm := tc.Normalized()

	source := knowledge.SourceLocal
	var results []knowledge.Result
	if d.lookup != nil {
		results, source = d.lookup.Lookup(ctx, in.Symptoms)
	}

	var candidates []triage.Candidate
	if source != knowledge.SourceLocal {
		candidates = scoreExternal(results, norm, source)
	}
	if len(candidates) == 0 {
		// terminal path: the fixed table always yields a full differential
		source = knowledge.SourceLocal
		candidates = scoreLocal(in, norm)
	}

	candidates = rank(candidates)
	if len(candidates) == 0 {
		return triage.Differential{Marker: "no diagnosis available", Source: source}, nil
	}
	return triage.Differential{Candidates: candidates, Source: source}, nil
}

// rank sorts descending by match score, deduplicates by condition key, caps
// the list, and normalizes confidence against the top score.
func rank(candidates []triage.Candidate) []triage.Candidate {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].MatchScore > candidates[j].MatchScore
	})

	seen := make(map[string]struct{}, len(candidates))
	out := make([]triage.Candidate, 0, maxCandidates)
	for _, c := range candidates {
		if _, dup := seen[c.Key]; dup {
			continue
		}
		seen[c.Key] = struct{}{}
		out = append(out, c)
		if len(out) == maxCandidates {
			break
		}
	}

	if len(out) == 0 {
		return nil
	}
	top := out[0].MatchScore
	for i := range out {
		conf := 0.1
		if top > 0 {
			conf = out[i].MatchScore / top
		}
		if conf > 0.95 {
			conf = 0.95
		}
		if conf < 0.1 {
			conf = 0.1
		}
		out[i].Confidence = conf
	}
	return out
}

// scoreLocal scores every condition in the fixed table against the full
// presentation and pads with high-prevalence conditions so the differential
// never comes back short.
func scoreLocal(in patient.Input, norm triage.NormalizedInput) []triage.Candidate {
	scored := make([]triage.Candidate, 0, maxCandidates)
	var rest []knowledge.Condition

	for _, cond := range knowledge.Conditions {
		c := scoreCondition(cond, in, norm)
		if c.MatchScore > minLocalScore {
			scored = append(scored, c)
		} else {
			rest = append(rest, cond)
		}
	}

	if len(scored) < maxCandidates {
		sort.SliceStable(rest, func(i, j int) bool { return rest[i].Prevalence > rest[j].Prevalence })
		for _, cond := range rest {
			if len(scored) >= maxCandidates {
				break
			}
			scored = append(scored, triage.Candidate{
				Condition:  cond.Name,
				Key:        cond.Key,
				MatchScore: cond.Prevalence,
				Severity:   cond.Severity,
				Source:     knowledge.SourceLocal,
				Workup:     cond.Workup,
			})
		}
	}
	return scored
}

// scoreCondition computes the weighted match of one condition against the
// symptoms text, categorized symptoms, primary concerns, vital indicators,
// and demographic/history adjustments, scaled by prevalence.
func scoreCondition(cond knowledge.Condition, in patient.Input, norm triage.NormalizedInput) triage.Candidate {
	var score float64
	var matched []string
	taken := make(map[string]struct{}, len(cond.Symptoms))

	note := func(sym string, w float64) {
		if _, dup := taken[sym]; dup {
			return
		}
		taken[sym] = struct{}{}
		matched = append(matched, sym)
		score += w
	}

	for _, sym := range cond.Symptoms {
		switch {
		case textmatch.Contains(in.Symptoms, sym):
			note(sym, wSymptomExact)
		case textmatch.WordOverlap(in.Symptoms, sym):
			note(sym, wSymptomPartial)
		}
	}

	for _, catSymptoms := range norm.Categories {
		for _, catSym := range catSymptoms {
			for _, sym := range cond.Symptoms {
				if _, dup := taken[sym]; dup {
					continue
				}
				switch {
				case textmatch.Fold(catSym) == textmatch.Fold(sym):
					note(sym, wCategoryExact)
				case textmatch.Similar(catSym, sym):
					note(sym, wCategoryFuzzy)
				case textmatch.WordOverlap(catSym, sym):
					note(sym, wCategoryWord)
				}
			}
		}
	}

	for _, concern := range norm.PrimaryConcerns {
		for _, sym := range cond.Symptoms {
			if _, dup := taken[sym]; dup {
				continue
			}
			switch {
			case textmatch.Fold(concern.Name) == textmatch.Fold(sym):
				note(sym, wConcernExact)
			case textmatch.Similar(concern.Name, sym):
				note(sym, wConcernFuzzy)
			case textmatch.WordOverlap(concern.Name, sym):
				note(sym, wConcernPartial)
			}
		}
	}

	var matchedVitals []string
	for _, ind := range cond.VitalIndicators {
		if indicatorPresent(ind, norm.Vitals) {
			score += wVitalIndicator
			matchedVitals = append(matchedVitals, ind)
		}
	}

	score += demographicAdjustment(cond.Key, in.Age, in.Gender)
	score += historyAdjustment(cond.Key, in.MedicalHistory)

	score *= cond.Prevalence
	if score < 0 {
		score = 0
	}

	return triage.Candidate{
		Condition:       cond.Name,
		Key:             cond.Key,
		MatchScore:      score,
		Severity:        cond.Severity,
		Source:          knowledge.SourceLocal,
		MatchedSymptoms: matched,
		MatchedVitals:   matchedVitals,
		Workup:          cond.Workup,
	}
}

// scoreExternal maps lookup hits to candidates, scoring each by symptom
// overlap with the hit's title and snippet on top of the provider's own
// confidence. Web-search hits matching the denylist are dropped.
func scoreExternal(results []knowledge.Result, norm triage.NormalizedInput, source string) []triage.Candidate {
	out := make([]triage.Candidate, 0, len(results))
	for _, r := range results {
		if source == knowledge.SourceWebSearch && denied(r) {
			continue
		}

		score := r.Confidence * 5
		var matched []string
		for _, sym := range norm.Symptoms {
			switch {
			case textmatch.Similar(sym, r.Title):
				score += wSymptomPartial
				matched = append(matched, sym)
			case textmatch.WordOverlap(r.Snippet, sym):
				score += 0.5
				matched = append(matched, sym)
			}
		}

		key := r.Code
		if key == "" {
			key = textmatch.Fold(r.Title)
		}
		out = append(out, triage.Candidate{
			Condition:       r.Title,
			Key:             key,
			MatchScore:      score,
			Severity:        "moderate",
			Source:          source,
			MatchedSymptoms: matched,
			Description:     r.Snippet,
		})
	}
	return out
}

func denied(r knowledge.Result) bool {
	for _, term := range searchDenylist {
		if textmatch.Contains(r.Title, term) || textmatch.Contains(r.Snippet, term) {
			return true
		}
	}
	return false
}

// indicatorPresent checks one vital indicator against the parsed readings.
func indicatorPresent(indicator string, v triage.VitalReadings) bool {
	switch indicator {
	case knowledge.IndicatorFever:
		return v.TemperatureC != nil && *v.TemperatureC > 38.0
	case knowledge.IndicatorHighBloodPressure:
		return v.SystolicBP != nil && *v.SystolicBP > 140
	case knowledge.IndicatorRapidHeartRate:
		return v.HeartRate != nil && *v.HeartRate > 100
	case knowledge.IndicatorRapidBreathing:
		return v.RespiratoryRate != nil && *v.RespiratoryRate > 20
	case knowledge.IndicatorLowOxygen:
		return v.OxygenSaturation != nil && *v.OxygenSaturation < 95
	default:
		return false
	}
}

// demographicAdjustment shifts a condition's score by age band and gender.
func demographicAdjustment(key string, age int, gender string) float64 {
	var adj float64
	switch {
	case age > 65:
		switch key {
		case "myocardial_infarction", "hypertensive_crisis", "pericarditis":
			adj += 0.7
		case "pneumothorax", "anxiety_panic_attack":
			adj -= 0.3
		}
	case age < 18:
		switch key {
		case "hypertensive_crisis", "myocardial_infarction":
			adj -= 0.8
		case "bronchitis", "asthma_exacerbation":
			adj += 0.5
		}
	case age >= 30 && age <= 50:
		switch key {
		case "anxiety_panic_attack", "gastroesophageal_reflux":
			adj += 0.4
		}
	case age >= 18 && age < 30:
		if key == "pneumothorax" {
			adj += 0.6
		}
	}

	switch textmatch.Fold(gender) {
	case "male":
		switch key {
		case "myocardial_infarction":
			adj += 0.5
		case "anxiety_panic_attack":
			adj -= 0.2
		}
	case "female":
		switch key {
		case "anxiety_panic_attack":
			adj += 0.4
		case "myocardial_infarction":
			adj -= 0.3
		}
	}
	return adj
}

// historyAdjustment boosts conditions consistent with the stated medical
// history.
func historyAdjustment(key string, history []string) float64 {
	var adj float64
	for _, h := range history {
		if textmatch.Contains(h, "hypertension") && key == "hypertensive_crisis" {
			adj += 0.6
		}
		if textmatch.Contains(h, "asthma") && key == "asthma_exacerbation" {
			adj += 0.7
		}
		if textmatch.Contains(h, "heart") && key == "myocardial_infarction" {
			adj += 0.5
		}
		if textmatch.Contains(h, "blood clot") && key == "pulmonary_embolism" {
			adj += 0.6
		}
		if textmatch.Contains(h, "copd") && (key == "pneumonia" || key == "pulmonary_embolism") {
			adj += 0.4
		}
		if textmatch.Contains(h, "diabetes") {
			adj += 0.2
		}
	}
	return adj
}
