package stages

import (
	"context"
	"slices"

	"github.com/linnemanlabs/acuity/internal/patient"
	"github.com/linnemanlabs/acuity/internal/textmatch"
	"github.com/linnemanlabs/acuity/internal/triage"
)

// guideline is one condition's treatment protocol.
type guideline struct {
	key        string
	primary    []string
	secondary  []string
	followUp   []string
	highAcuity bool
}

// guidelines is the fixed treatment protocol table, in evaluation order.
var guidelines = []guideline{
	{
		key:        "chest_pain",
		highAcuity: true,
		primary: []string{
			"Nitroglycerin for acute relief",
			"Aspirin 325mg chewable",
			"Oxygen therapy if hypoxic",
		},
		secondary: []string{
			"ECG monitoring",
			"Cardiac enzymes panel",
			"IV access establishment",
		},
		followUp: []string{
			"Cardiology consultation within 24 hours",
			"Stress testing as indicated",
		},
	},
	{
		key:        "shortness_of_breath",
		highAcuity: true,
		primary: []string{
			"Oxygen therapy to maintain SpO2 >92%",
			"Bronchodilators for wheezing",
			"Diuretics for heart failure",
		},
		secondary: []string{
			"Chest X-ray",
			"Arterial blood gas analysis",
			"Complete blood count",
		},
		followUp: []string{
			"Pulmonology consultation for persistent symptoms",
			"Pulmonary function tests",
		},
	},
	{
		key: "fever",
		primary: []string{
			"Acetaminophen 650mg every 4 hours",
			"Adequate hydration",
			"Rest",
		},
		secondary: []string{
			"Blood cultures if >39°C",
			"Urinalysis",
			"Complete blood count",
		},
		followUp: []string{
			"Infectious disease consultation for persistent fever",
			"Antibiotic therapy as indicated",
		},
	},
	{
		key: "hypertension",
		primary: []string{
			"Lifestyle modifications",
			"ACE inhibitors or ARBs",
			"Calcium channel blockers",
		},
		secondary: []string{
			"Electrolyte panel",
			"Renal function tests",
			"Echocardiogram",
		},
		followUp: []string{
			"Cardiology follow-up in 2 weeks",
			"Home blood pressure monitoring",
		},
	},
}

// supportiveCare is the default plan when no condition protocol matched.
var supportiveCare = []string{
	"Monitor vital signs every 15 minutes",
	"Establish IV access",
	"Provide emotional support to patient",
}

// Treatment builds the treatment plan from the fixed protocol table for
// every matched condition, escalated by the risk assessment.
type Treatment struct{}

func NewTreatment() *Treatment { return &Treatment{} }

func (*Treatment) Name() string { return triage.StageTreatment }

func (*Treatment) Run(_ context.Context, tc *triage.Context) (any, error) {
	in := tc.Input()
	risk := tc.Risk()

	matched := matchGuidelines(in)

	plan := triage.TreatmentPlan{Urgency: "routine"}
	for _, g := range matched {
		plan.Primary = append(plan.Primary, g.primary...)
		plan.Secondary = append(plan.Secondary, g.secondary...)
		plan.FollowUp = append(plan.FollowUp, g.followUp...)
		plan.MatchedConditions = append(plan.MatchedConditions, g.key)
		if u := conditionUrgency(g, risk.Score); moreUrgent(u, plan.Urgency) {
			plan.Urgency = u
		}
	}

	if len(matched) == 0 {
		plan.Primary = slices.Clone(supportiveCare)
	}

	applyRiskModifiers(&plan, risk.Score)
	plan.Confidence = treatmentConfidence(len(matched))
	return plan, nil
}

// matchGuidelines identifies applicable protocols from symptoms and vitals.
func matchGuidelines(in patient.Input) []guideline {
	var out []guideline
	for _, g := range guidelines {
		if guidelineApplies(g.key, in) {
			out = append(out, g)
		}
	}
	return out
}

func guidelineApplies(key string, in patient.Input) bool {
	switch key {
	case "chest_pain":
		return textmatch.Contains(in.Symptoms, "chest pain")
	case "shortness_of_breath":
		return textmatch.Contains(in.Symptoms, "shortness of breath") ||
			textmatch.Contains(in.Symptoms, "difficulty breathing")
	case "fever":
		if textmatch.Contains(in.Symptoms, "fever") {
			return true
		}
		t, ok := in.Vitals.Temperature()
		return ok && t > 38.0
	case "hypertension":
		sys, dia, ok := in.Vitals.BloodPressure()
		return ok && (sys > 140 || dia > 90)
	default:
		return false
	}
}

// conditionUrgency grades one matched protocol by risk score. High-acuity
// conditions escalate faster.
func conditionUrgency(g guideline, risk float64) string {
	if g.highAcuity {
		switch {
		case risk > 0.7:
			return "immediate"
		case risk > 0.4:
			return "urgent"
		default:
			return "prompt"
		}
	}
	switch {
	case risk > 0.6:
		return "urgent"
	case risk > 0.3:
		return "prompt"
	default:
		return "routine"
	}
}

var urgencyRank = map[string]int{"routine": 0, "prompt": 1, "urgent": 2, "immediate": 3}

func moreUrgent(a, b string) bool { return urgencyRank[a] > urgencyRank[b] }

// applyRiskModifiers escalates the plan for elevated risk scores.
func applyRiskModifiers(plan *triage.TreatmentPlan, risk float64) {
	switch {
	case risk > 0.7:
		plan.Primary = append([]string{
			"Continuous cardiac monitoring",
			"Frequent neurologic assessments",
		}, plan.Primary...)
		plan.Secondary = append(plan.Secondary, "STAT cardiac enzymes")
	case risk > 0.4:
		plan.Primary = append([]string{"Hourly vital signs monitoring"}, plan.Primary...)
		plan.Secondary = append(plan.Secondary, "Repeat ECG in 30 minutes")
	}
}

// treatmentConfidence scales with the number of matched protocols.
func treatmentConfidence(n int) float64 {
	if n == 0 {
		return 0.3
	}
	boost := 0.1 * float64(n)
	if boost > 0.3 {
		boost = 0.3
	}
	conf := 0.7 + boost
	if conf > 0.95 {
		conf = 0.95
	}
	return conf
}
