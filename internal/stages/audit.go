package stages

import (
	"context"
	"fmt"
	"math"

	"github.com/linnemanlabs/acuity/internal/textmatch"
	"github.com/linnemanlabs/acuity/internal/triage"
)

// Quality aggregate weights.
const (
	weightCompleteness = 0.3
	weightConsistency  = 0.4
	weightSafety       = 0.3
)

// requiredStages must have published a healthy payload for the run to count
// as complete.
var requiredStages = []string{
	triage.StageNormalize,
	triage.StageRisk,
	triage.StageDiagnosis,
	triage.StageTreatment,
	triage.StageFollowUp,
	triage.StageDrugs,
	triage.StageSpecialist,
}

// requiredVitals must be present in the intake for a complete assessment.
var requiredVitals = []string{"heart_rate", "blood_pressure", "temperature"}

// criticalSymptoms are presentations that must never be under-triaged.
var criticalSymptoms = []string{"chest pain", "shortness of breath", "loss of consciousness"}

// conditionTreatments maps a diagnosed symptom category to the treatment
// classes expected in the plan.
var conditionTreatments = map[string][]string{
	"cardiovascular": {"aspirin", "nitroglycerin"},
	"respiratory":    {"oxygen"},
	"infectious":     {"antibiotic", "acetaminophen"},
}

// suggestionTexts maps fired issue types to improvement suggestions.
var suggestionTexts = map[string]string{
	"missing_sections":             "Ensure all required sections are completed before finalizing recommendations",
	"insufficient_recommendations": "Add more specific treatment recommendations based on diagnosed conditions",
	"missing_vitals":               "Collect all required vital signs for comprehensive assessment",
	"incomplete_followup":          "Extend the follow-up plan with immediate or short-term components",
	"risk_symptom_mismatch":        "Reassess risk score to ensure alignment with symptom severity",
	"treatment_condition_mismatch": "Review treatment recommendations to ensure they match diagnosed conditions",
	"followup_intensity_mismatch":  "Intensify follow-up scheduling for the case complexity",
	"under_triage":                 "Reassess patient urgency level given critical symptoms or vitals",
	"major_contraindications":      "Review and address all identified contraindications before implementation",
	"high_risk_interactions":       "Consult with clinical pharmacist to resolve high-risk drug interactions",
	"safety_check_missing":         "Complete the medication safety screening before implementation",
}

// Audit cross-validates the accumulated stage outputs for completeness,
// internal consistency, and safety. It reads everything and mutates
// nothing.
type Audit struct{}

func NewAudit() *Audit { return &Audit{} }

func (*Audit) Name() string { return triage.StageAudit }

func (*Audit) Run(_ context.Context, tc *triage.Context) (any, error) {
	completeness, cIssues := checkCompleteness(tc)
	consistency, nIssues := checkConsistency(tc)
	safety, sIssues := checkSafety(tc)

	issues := append(append(cIssues, nIssues...), sIssues...)

	aggregate := round2(weightCompleteness*completeness +
		weightConsistency*consistency +
		weightSafety*safety)

	report := triage.QualityReport{
		Completeness: completeness,
		Consistency:  consistency,
		Safety:       safety,
		Aggregate:    aggregate,
		Issues:       issues,
		Suggestions:  suggestions(issues),
		Assessment:   assessment(aggregate),
		Confidence:   math.Min(0.95, aggregate+0.05),
	}
	return report, nil
}

func checkCompleteness(tc *triage.Context) (float64, []triage.QualityIssue) {
	score := 1.0
	var issues []triage.QualityIssue

	missing := 0
	var missingNames []string
	for _, stage := range requiredStages {
		ok, degraded := tc.Published(stage)
		if !ok || degraded {
			missing++
			missingNames = append(missingNames, stage)
			score -= 0.15
		}
	}
	if missing > 0 {
		sev := "moderate"
		if missing > 2 {
			sev = "high"
		}
		issues = append(issues, triage.QualityIssue{
			Type:        "missing_sections",
			Description: fmt.Sprintf("%d required stage outputs missing or degraded: %v", missing, missingNames),
			Severity:    sev,
		})
	}

	plan := tc.Treatment()
	if n := len(plan.Primary); n < 3 {
		sev := "low"
		if n < 2 {
			sev = "moderate"
		}
		issues = append(issues, triage.QualityIssue{
			Type:        "insufficient_recommendations",
			Description: fmt.Sprintf("only %d primary treatment recommendations provided (minimum 3)", n),
			Severity:    sev,
		})
		score -= 0.1 * float64(3-n)
	}

	in := tc.Input()
	missingVitals := 0
	for _, name := range requiredVitals {
		if in.Vitals[name] == "" {
			missingVitals++
		}
	}
	if missingVitals > 0 {
		sev := "low"
		if missingVitals > 1 {
			sev = "moderate"
		}
		issues = append(issues, triage.QualityIssue{
			Type:        "missing_vitals",
			Description: fmt.Sprintf("%d required vital signs missing from intake", missingVitals),
			Severity:    sev,
		})
		score -= 0.05 * float64(missingVitals)
	}

	followUp := tc.FollowUp()
	if followUp.Immediate == nil && followUp.ShortTerm == nil {
		issues = append(issues, triage.QualityIssue{
			Type:        "incomplete_followup",
			Description: "follow-up plan lacks immediate or short-term components",
			Severity:    "moderate",
		})
		score -= 0.1
	}

	return clampScore(score), issues
}

func checkConsistency(tc *triage.Context) (float64, []triage.QualityIssue) {
	score := 1.0
	var issues []triage.QualityIssue

	risk := tc.Risk()
	severity := symptomSeverityEstimate(tc.Normalized())
	if (risk.Score > 0.7 && severity < 0.5) || (risk.Score < 0.3 && severity > 0.7) {
		issues = append(issues, triage.QualityIssue{
			Type:        "risk_symptom_mismatch",
			Description: fmt.Sprintf("risk score %.2f does not align with symptom severity %.1f", risk.Score, severity),
			Severity:    "high",
		})
		score -= 0.2
	}

	if !treatmentsMatchConditions(tc.Normalized(), tc.Treatment()) {
		issues = append(issues, triage.QualityIssue{
			Type:        "treatment_condition_mismatch",
			Description: "recommended treatments do not match diagnosed condition categories",
			Severity:    "moderate",
		})
		score -= 0.15
	}

	referral := tc.Specialists()
	followUp := tc.FollowUp()
	if referral.Complexity == complexityHigh && followUp.Immediate == nil {
		issues = append(issues, triage.QualityIssue{
			Type:        "followup_intensity_mismatch",
			Description: "high complexity case lacks immediate follow-up plan",
			Severity:    "moderate",
		})
		score -= 0.1
	}

	return clampScore(score), issues
}

func checkSafety(tc *triage.Context) (float64, []triage.QualityIssue) {
	score := 1.0
	var issues []triage.QualityIssue

	in := tc.Input()
	norm := tc.Normalized()
	risk := tc.Risk()

	_, hasCriticalSymptom := textmatch.ContainsAny(in.Symptoms, criticalSymptoms)
	if (hasCriticalSymptom || len(norm.CriticalFlags) > 0) && risk.Score < 0.7 {
		issues = append(issues, triage.QualityIssue{
			Type:        "under_triage",
			Description: "critical symptoms or vitals present but risk score is low",
			Severity:    "high",
		})
		score -= 0.3
	}

	safety := tc.Safety()
	major, high := 0, 0
	for _, c := range safety.Contraindications {
		if c.Severity == "major" {
			major++
		}
	}
	for _, i := range safety.Interactions {
		if i.Severity == "high" {
			high++
		}
	}
	if major > 0 {
		issues = append(issues, triage.QualityIssue{
			Type:        "major_contraindications",
			Description: fmt.Sprintf("%d major contraindications identified", major),
			Severity:    "high",
		})
		score -= 0.25 * float64(major)
	}
	if high > 0 {
		issues = append(issues, triage.QualityIssue{
			Type:        "high_risk_interactions",
			Description: fmt.Sprintf("%d high-risk drug interactions identified", high),
			Severity:    "high",
		})
		score -= 0.2 * float64(high)
	}

	if ok, degraded := tc.Published(triage.StageDrugs); !ok || degraded {
		issues = append(issues, triage.QualityIssue{
			Type:        "safety_check_missing",
			Description: "medication safety screening absent or degraded",
			Severity:    "moderate",
		})
		score -= 0.1
	}

	return clampScore(score), issues
}

// symptomSeverityEstimate derives an independent severity figure from the
// normalized concerns, for cross-checking against the risk score.
func symptomSeverityEstimate(norm triage.NormalizedInput) float64 {
	for _, c := range norm.PrimaryConcerns {
		if c.Critical {
			return 0.9
		}
	}
	switch n := len(norm.PrimaryConcerns); {
	case n > 2:
		return 0.7
	case n > 0:
		return 0.4
	default:
		return 0.1
	}
}

// treatmentsMatchConditions verifies every diagnosed category with an
// expected treatment class sees at least one of them in the plan.
func treatmentsMatchConditions(norm triage.NormalizedInput, plan triage.TreatmentPlan) bool {
	all := append(append([]string{}, plan.Primary...), plan.Secondary...)

	for category := range norm.Categories {
		expected, ok := conditionTreatments[category]
		if !ok {
			continue
		}
		found := false
		for _, want := range expected {
			for _, rec := range all {
				if textmatch.Contains(rec, want) {
					found = true
					break
				}
			}
			if found {
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func suggestions(issues []triage.QualityIssue) []string {
	var out []string
	seen := make(map[string]struct{}, len(issues))
	for _, issue := range issues {
		if _, dup := seen[issue.Type]; dup {
			continue
		}
		seen[issue.Type] = struct{}{}
		if text, ok := suggestionTexts[issue.Type]; ok {
			out = append(out, text)
		}
	}
	if len(out) == 0 {
		out = append(out,
			"All quality checks passed - recommendations appear comprehensive and consistent",
			"Continue with standard implementation procedures",
		)
	}
	return out
}

func assessment(aggregate float64) string {
	switch {
	case aggregate >= 0.8:
		return "High quality - recommendations are comprehensive and consistent"
	case aggregate >= 0.6:
		return "Moderate quality - some improvements needed"
	default:
		return "Low quality - significant issues identified requiring attention"
	}
}

func clampScore(s float64) float64 {
	if s < 0 {
		return 0
	}
	return round2(s)
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
