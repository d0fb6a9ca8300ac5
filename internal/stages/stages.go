package stages

import (
	"context"

	"github.com/linnemanlabs/acuity/internal/knowledge"
	"github.com/linnemanlabs/acuity/internal/triage"
)

// Lookup is the slice of the knowledge gateway the diagnosis stage needs.
type Lookup interface {
	Lookup(ctx context.Context, query string) ([]knowledge.Result, string)
}

// All returns the full stage list in pipeline order.
func All(lookup Lookup) []triage.Stage {
	return []triage.Stage{
		NewNormalize(),
		NewRisk(),
		NewDiagnosis(lookup),
		NewTreatment(),
		NewFollowUp(),
		NewDrugs(),
		NewSpecialist(),
		NewAudit(),
		NewForecast(),
		NewVisualization(),
		NewRecommend(),
	}
}
