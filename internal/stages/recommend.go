package stages

import (
	"context"

	"github.com/linnemanlabs/acuity/internal/triage"
)

// Recommend merges every stage payload into the final recommendation. It
// tolerates any subset of stages being degraded: their neutral defaults are
// embedded and the stage names listed so the caller can see what is
// partial.
type Recommend struct{}

func NewRecommend() *Recommend { return &Recommend{} }

func (*Recommend) Name() string { return triage.StageRecommendation }

func (*Recommend) Run(_ context.Context, tc *triage.Context) (any, error) {
	risk := tc.Risk()
	diff := tc.Differential()
	treatment := tc.Treatment()
	followUp := tc.FollowUp()
	safety := tc.Safety()
	specialists := tc.Specialists()
	quality := tc.Quality()
	forecast := tc.Forecast()
	viz := tc.Visual()

	urgency, priority, color, action := disposition(risk.Score)

	rec := triage.Recommendation{
		UrgencyLevel:      urgency,
		Priority:          priority,
		ColorCode:         color,
		RiskScore:         risk.Score,
		RecommendedAction: action,
		Risk:              &risk,
		Differential:      &diff,
		Treatment:         &treatment,
		FollowUp:          &followUp,
		Safety:            &safety,
		Specialists:       &specialists,
		Quality:           &quality,
		Complications:     &forecast,
		Visualization:     &viz,
		NextSteps:         nextSteps(risk.Score),
		DegradedStages:    degradedStages(tc),
	}
	return rec, nil
}

// disposition maps the risk score to the headline urgency fields.
func disposition(risk float64) (urgency string, priority int, color, action string) {
	switch {
	case risk > 0.7:
		return "High", 1, "Red", "Immediate medical attention required"
	case risk > 0.4:
		return "Medium", 2, "Yellow", "Prompt medical evaluation recommended"
	default:
		return "Low", 3, "Green", "Routine care recommended"
	}
}

func nextSteps(risk float64) []string {
	first := "Monitor symptoms and follow up if needed"
	switch {
	case risk > 0.7:
		first = "Contact emergency services immediately"
	case risk > 0.4:
		first = "Schedule appointment with healthcare provider"
	}

	last := "Routine follow-up as needed"
	if risk > 0.5 {
		last = "Consider specialist consultation"
	}

	return []string{
		first,
		"Document all findings in patient record",
		last,
	}
}

func degradedStages(tc *triage.Context) []string {
	var out []string
	for _, stage := range requiredStages {
		if ok, degraded := tc.Published(stage); !ok || degraded {
			out = append(out, stage)
		}
	}
	for _, stage := range []string{triage.StageAudit, triage.StageForecast, triage.StageVisualization} {
		if ok, degraded := tc.Published(stage); !ok || degraded {
			out = append(out, stage)
		}
	}
	return out
}
