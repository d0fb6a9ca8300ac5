package stages

import (
	"context"
	"fmt"
	"strings"

	"github.com/linnemanlabs/acuity/internal/patient"
	"github.com/linnemanlabs/acuity/internal/textmatch"
	"github.com/linnemanlabs/acuity/internal/triage"
)

// bodySystems maps each system to the symptom terms it covers. Ordered so
// categorization output is stable run to run.
var bodySystems = []struct {
	system string
	terms  []string
}{
	{"cardiovascular", []string{"chest pain", "chest discomfort", "chest tightness", "palpitations", "arm pain", "jaw pain"}},
	{"respiratory", []string{"shortness of breath", "difficulty breathing", "cough", "wheezing", "rapid breathing"}},
	{"neurological", []string{"headache", "dizziness", "confusion", "seizure", "loss of consciousness", "numbness", "blurred vision"}},
	{"gastrointestinal", []string{"nausea", "vomiting", "abdominal pain", "heartburn", "diarrhea"}},
	{"infectious", []string{"fever", "chills", "sweating"}},
	{"general", []string{"fatigue", "weakness", "malaise", "severe pain"}},
}

// concernLexicon grades symptom phrases by clinical significance.
var concernLexicon = []struct {
	term         string
	significance string
	critical     bool
}{
	{"chest pain", "critical", true},
	{"shortness of breath", "critical", true},
	{"difficulty breathing", "critical", true},
	{"loss of consciousness", "critical", true},
	{"severe bleeding", "critical", true},
	{"stroke", "critical", true},
	{"seizure", "critical", true},
	{"fever", "moderate", false},
	{"vomiting", "moderate", false},
	{"severe pain", "moderate", false},
	{"dizziness", "moderate", false},
	{"confusion", "moderate", false},
}

// Normalize parses the free-text intake into the structured form every
// downstream stage scores against: symptom phrases, body-system
// categorization, flagged concerns, and unit-normalized vitals.
type Normalize struct{}

func NewNormalize() *Normalize { return &Normalize{} }

func (*Normalize) Name() string { return triage.StageNormalize }

func (*Normalize) Run(_ context.Context, tc *triage.Context) (any, error) {
	in := tc.Input()

	symptoms := symptomPhrases(in.Symptoms)

	categories := make(map[string][]string)
	for _, bs := range bodySystems {
		if hits := textmatch.ExtractTerms(in.Symptoms, bs.terms); len(hits) > 0 {
			categories[bs.system] = hits
		}
	}

	var concerns []triage.Concern
	for _, c := range concernLexicon {
		if textmatch.Contains(in.Symptoms, c.term) {
			concerns = append(concerns, triage.Concern{
				Name:         c.term,
				Significance: c.significance,
				Critical:     c.critical,
			})
		}
	}

	readings := readVitals(in.Vitals)
	flags := criticalVitalFlags(readings)

	out := triage.NormalizedInput{
		Symptoms:        symptoms,
		Categories:      categories,
		PrimaryConcerns: concerns,
		Vitals:          readings,
		CriticalFlags:   flags,
		Summary: fmt.Sprintf("%d symptoms reported, %d primary concerns, %d critical vital findings",
			len(symptoms), len(concerns), len(flags)),
	}
	return out, nil
}

// symptomPhrases splits the intake text into individual symptom phrases.
func symptomPhrases(text string) []string {
	raw := strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == ';' || r == '\n'
	})
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		if f := textmatch.Fold(p); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// readVitals parses the raw readings into clinical units. Unparseable
// readings stay nil; a malformed vital never fails the stage.
func readVitals(v patient.Vitals) triage.VitalReadings {
	var out triage.VitalReadings
	if hr, ok := v.HeartRate(); ok {
		out.HeartRate = &hr
	}
	if t, ok := v.Temperature(); ok {
		out.TemperatureC = &t
	}
	if sys, dia, ok := v.BloodPressure(); ok {
		out.SystolicBP = &sys
		if dia > 0 {
			out.DiastolicBP = &dia
		}
	}
	if rr, ok := v.RespiratoryRate(); ok {
		out.RespiratoryRate = &rr
	}
	if o2, ok := v.OxygenSaturation(); ok {
		out.OxygenSaturation = &o2
	}
	return out
}

// criticalVitalFlags names every reading past its critical threshold.
func criticalVitalFlags(r triage.VitalReadings) []string {
	var flags []string
	if r.HeartRate != nil {
		switch hr := *r.HeartRate; {
		case hr > 130:
			flags = append(flags, "severe_tachycardia")
		case hr < 50:
			flags = append(flags, "severe_bradycardia")
		}
	}
	if r.TemperatureC != nil {
		switch t := *r.TemperatureC; {
		case t > 39.5:
			flags = append(flags, "high_fever")
		case t < 35.0:
			flags = append(flags, "hypothermia")
		}
	}
	if r.SystolicBP != nil {
		sys := *r.SystolicBP
		var dia float64
		if r.DiastolicBP != nil {
			dia = *r.DiastolicBP
		}
		switch {
		case sys > 180 || dia > 120:
			flags = append(flags, "hypertensive_crisis")
		case sys < 80:
			flags = append(flags, "severe_hypotension")
		}
	}
	return flags
}
