package stages

import (
	"context"
	"sort"

	"github.com/linnemanlabs/acuity/internal/textmatch"
	"github.com/linnemanlabs/acuity/internal/triage"
)

// complicationClass is one forecastable complication family: the history
// and symptom factors that raise it, the vital indicators that confirm it,
// and the prevention protocol.
type complicationClass struct {
	key        string
	name       string
	factors    []string
	indicators []string
	prevention []string
}

var complicationClasses = []complicationClass{
	{
		key:        "cardiac_complications",
		name:       "Cardiac Complications",
		factors:    []string{"chest_pain", "hypertension", "diabetes", "smoking", "age_over_65"},
		indicators: []string{"high_blood_pressure", "rapid_heart_rate", "low_oxygen"},
		prevention: []string{
			"Continuous ECG monitoring",
			"Frequent vital sign assessments",
			"Maintain adequate oxygenation",
			"Administer prescribed cardiac medications",
			"Monitor cardiac enzymes",
			"Ensure adequate perfusion",
		},
	},
	{
		key:        "respiratory_complications",
		name:       "Respiratory Complications",
		factors:    []string{"shortness_of_breath", "asthma", "copd", "smoking", "age_over_65"},
		indicators: []string{"rapid_breathing", "low_oxygen", "fever"},
		prevention: []string{
			"Pulmonary hygiene measures",
			"Incentive spirometry",
			"Adequate hydration",
			"Positioning for optimal lung expansion",
			"Monitor oxygen saturation",
			"Early ambulation when appropriate",
		},
	},
	{
		key:        "infectious_complications",
		name:       "Infectious Complications",
		factors:    []string{"fever", "immunocompromised", "diabetes", "recent_surgery", "age_over_65"},
		indicators: []string{"fever", "rapid_heart_rate", "low_oxygen"},
		prevention: []string{
			"Strict aseptic technique",
			"Hand hygiene compliance",
			"Wound care as indicated",
			"Monitor for signs of infection",
			"Maintain sterile environment",
			"Prophylactic antibiotics if indicated",
		},
	},
	{
		key:        "neurological_complications",
		name:       "Neurological Complications",
		factors:    []string{"headache", "dizziness", "hypertension", "diabetes", "age_over_65"},
		indicators: []string{"altered_mental_status", "high_blood_pressure"},
		prevention: []string{
			"Neurological assessments every 2 hours",
			"Monitor level of consciousness",
			"Assess pupils and motor function",
			"Maintain head elevation if indicated",
			"Monitor for signs of increased intracranial pressure",
			"Ensure safety precautions",
		},
	},
}

// Factor and indicator contribution weights.
const (
	factorWeight    = 1.0
	indicatorWeight = 0.5
)

// Forecast predicts likely complications from the presentation and history,
// ranked by risk score.
type Forecast struct{}

func NewForecast() *Forecast { return &Forecast{} }

func (*Forecast) Name() string { return triage.StageForecast }

func (*Forecast) Run(_ context.Context, tc *triage.Context) (any, error) {
	in := tc.Input()
	norm := tc.Normalized()

	var out []triage.Complication
	for _, class := range complicationClasses {
		var score float64
		var factors, indicators []string

		for _, f := range class.factors {
			if riskFactorPresent(f, in.Symptoms, in.Age, in.MedicalHistory) {
				score += factorWeight
				factors = append(factors, f)
			}
		}
		for _, ind := range class.indicators {
			if indicatorPresent(ind, norm.Vitals) {
				score += indicatorWeight
				indicators = append(indicators, ind)
			}
		}

		if score <= 0 {
			continue
		}
		out = append(out, triage.Complication{
			Class:      class.name,
			Likelihood: likelihood(score),
			Score:      score,
			Factors:    factors,
			Indicators: indicators,
			Prevention: class.prevention,
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return triage.ComplicationForecast{Complications: out}, nil
}

func likelihood(score float64) string {
	switch {
	case score >= 2.0:
		return "high"
	case score >= 1.0:
		return "moderate"
	default:
		return "low"
	}
}

// riskFactorPresent checks one factor against symptoms, age, and history.
func riskFactorPresent(factor, symptoms string, age int, history []string) bool {
	switch factor {
	case "age_over_65":
		return age > 65
	case "chest_pain":
		return textmatch.Contains(symptoms, "chest pain")
	case "shortness_of_breath":
		return textmatch.Contains(symptoms, "shortness of breath") ||
			textmatch.Contains(symptoms, "difficulty breathing")
	case "fever":
		return textmatch.Contains(symptoms, "fever")
	case "headache":
		return textmatch.Contains(symptoms, "headache")
	case "dizziness":
		return textmatch.Contains(symptoms, "dizziness")
	}

	for _, h := range history {
		switch factor {
		case "hypertension", "diabetes", "asthma":
			if textmatch.Contains(h, factor) {
				return true
			}
		case "smoking":
			if textmatch.Contains(h, "smoking") || textmatch.Contains(h, "smoker") {
				return true
			}
		case "copd":
			if textmatch.Contains(h, "copd") || textmatch.Contains(h, "chronic obstructive pulmonary") {
				return true
			}
		case "immunocompromised":
			if textmatch.Contains(h, "immunocompromised") || textmatch.Contains(h, "immunosuppressed") {
				return true
			}
		case "recent_surgery":
			if textmatch.Contains(h, "surgery") {
				return true
			}
		}
	}
	return false
}
