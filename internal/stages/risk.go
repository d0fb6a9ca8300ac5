package stages

import (
	"context"

	"github.com/linnemanlabs/acuity/internal/patient"
	"github.com/linnemanlabs/acuity/internal/textmatch"
	"github.com/linnemanlabs/acuity/internal/triage"
)

// Fixed combination weights for the three risk components.
const (
	weightVital       = 0.4
	weightSymptom     = 0.5
	weightDemographic = 0.1

	// criticalMultiplier escalates the combined score when any critical
	// vital or critical symptom was flagged, clamped to 1.0.
	criticalMultiplier = 1.2
)

// symptomSeverity grades symptom keywords by severity weight. A weight at
// the critical level also flags the whole assessment as critical.
var symptomSeverity = textmatch.Lexicon{
	{Term: "chest pain", Weight: 0.9},
	{Term: "shortness of breath", Weight: 0.9},
	{Term: "difficulty breathing", Weight: 0.9},
	{Term: "loss of consciousness", Weight: 0.9},
	{Term: "severe bleeding", Weight: 0.9},
	{Term: "stroke", Weight: 0.9},
	{Term: "seizure", Weight: 0.9},
	{Term: "fever", Weight: 0.6},
	{Term: "vomiting", Weight: 0.6},
	{Term: "severe pain", Weight: 0.6},
	{Term: "dizziness", Weight: 0.6},
	{Term: "confusion", Weight: 0.6},
	{Term: "headache", Weight: 0.3},
	{Term: "nausea", Weight: 0.3},
	{Term: "fatigue", Weight: 0.3},
	{Term: "cough", Weight: 0.3},
}

const criticalSymptomWeight = 0.9

// directives is the fixed risk-category → triage dispatch table.
var directives = map[string]triage.TriageDirective{
	triage.RiskCritical: {
		Priority:   1,
		Color:      "Red",
		Action:     "Immediate medical attention required",
		Facility:   "Emergency department",
		Specialist: "Emergency physician",
		Timeframe:  "Immediately",
	},
	triage.RiskHigh: {
		Priority:   2,
		Color:      "Orange",
		Action:     "Urgent medical evaluation required",
		Facility:   "Emergency department",
		Specialist: "Emergency physician",
		Timeframe:  "Within 30 minutes",
	},
	triage.RiskModerate: {
		Priority:   3,
		Color:      "Yellow",
		Action:     "Prompt medical evaluation recommended",
		Facility:   "Urgent care or emergency department",
		Specialist: "General practitioner",
		Timeframe:  "Within 2 hours",
	},
	triage.RiskLow: {
		Priority:   4,
		Color:      "Green",
		Action:     "Medical evaluation advised",
		Facility:   "Primary care clinic",
		Specialist: "General practitioner",
		Timeframe:  "Within 24 hours",
	},
	triage.RiskMinimal: {
		Priority:   5,
		Color:      "Green",
		Action:     "Routine care recommended",
		Facility:   "Primary care clinic",
		Specialist: "General practitioner",
		Timeframe:  "Routine scheduling",
	},
}

// Risk stratifies the patient into one of five ordinal categories from
// weighted vital, symptom, and demographic sub-scores. Deterministic:
// identical input always yields an identical assessment.
type Risk struct{}

func NewRisk() *Risk { return &Risk{} }

func (*Risk) Name() string { return triage.StageRisk }

func (*Risk) Run(_ context.Context, tc *triage.Context) (any, error) {
	return Score(tc.Input()), nil
}

// Score computes the full risk assessment for one intake.
func Score(in patient.Input) triage.RiskAssessment {
	vital, flags := vitalRisk(in.Vitals)

	symptom := 0.0
	if term, w, ok := symptomSeverity.MaxWeight(in.Symptoms); ok {
		symptom = w
		if w >= criticalSymptomWeight {
			flags = append(flags, "critical_symptom:"+textmatch.Fold(term))
		}
	}

	demographic := demographicRisk(in.Age)

	score := weightVital*vital + weightSymptom*symptom + weightDemographic*demographic
	if len(flags) > 0 {
		score *= criticalMultiplier
	}
	if score > 1.0 {
		score = 1.0
	}

	category := Categorize(score)
	return triage.RiskAssessment{
		Score:    score,
		Category: category,
		SubScores: triage.SubScores{
			Vital:       vital,
			Symptom:     symptom,
			Demographic: demographic,
		},
		CriticalFlags: flags,
		Directive:     directives[category],
	}
}

// Categorize maps a risk score to its ordinal band. Boundary values map to
// the higher category.
func Categorize(score float64) string {
	switch {
	case score >= 0.8:
		return triage.RiskCritical
	case score >= 0.6:
		return triage.RiskHigh
	case score >= 0.4:
		return triage.RiskModerate
	case score >= 0.2:
		return triage.RiskLow
	default:
		return triage.RiskMinimal
	}
}

// vitalRisk is the max deviation across heart rate, temperature, and blood
// pressure, each mapped through fixed clinical thresholds. Flags name every
// reading past a critical threshold.
func vitalRisk(v patient.Vitals) (score float64, flags []string) {
	bump := func(s float64) {
		if s > score {
			score = s
		}
	}

	if hr, ok := v.HeartRate(); ok {
		switch {
		case hr > 130:
			bump(0.9)
			flags = append(flags, "severe_tachycardia")
		case hr > 120:
			bump(0.7)
		case hr > 100:
			bump(0.4)
		case hr < 50:
			bump(0.8)
			flags = append(flags, "severe_bradycardia")
		case hr < 60:
			bump(0.3)
		}
	}

	if t, ok := v.Temperature(); ok {
		switch {
		case t > 39.5:
			bump(0.9)
			flags = append(flags, "high_fever")
		case t > 38.5:
			bump(0.7)
		case t > 38.0:
			bump(0.4)
		case t < 35.0:
			bump(0.8)
			flags = append(flags, "hypothermia")
		case t < 36.0:
			bump(0.3)
		}
	}

	if sys, dia, ok := v.BloodPressure(); ok {
		switch {
		case sys > 180 || dia > 120:
			bump(0.9)
			flags = append(flags, "hypertensive_crisis")
		case sys > 160:
			bump(0.7)
		case sys > 140:
			bump(0.4)
		case sys < 80:
			bump(0.8)
			flags = append(flags, "severe_hypotension")
		case sys < 90:
			bump(0.3)
		}
	}

	return score, flags
}

// demographicRisk is the age-banded component. Gender contributes nothing
// measurable and is deliberately ignored.
func demographicRisk(age int) float64 {
	switch {
	case age > 80:
		return 0.7
	case age > 65:
		return 0.5
	case age < 5:
		return 0.6
	default:
		return 0.1
	}
}
