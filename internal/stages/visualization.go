package stages

import (
	"context"

	"github.com/linnemanlabs/acuity/internal/triage"
)

// Visualization assembles chart-ready series from the accumulated context.
// Degraded upstream stages simply contribute empty series.
type Visualization struct{}

func NewVisualization() *Visualization { return &Visualization{} }

func (*Visualization) Name() string { return triage.StageVisualization }

func (*Visualization) Run(_ context.Context, tc *triage.Context) (any, error) {
	risk := tc.Risk()
	diff := tc.Differential()
	norm := tc.Normalized()
	quality := tc.Quality()

	viz := triage.Visualization{
		RiskGauge: triage.RiskGauge{
			Score:    risk.Score,
			Category: risk.Category,
			Color:    risk.Directive.Color,
		},
		VitalSeries: vitalSeries(norm.Vitals),
	}

	if len(diff.Candidates) > 0 {
		dist := make(map[string]int, len(diff.Candidates))
		for _, c := range diff.Candidates {
			dist[c.Severity]++
		}
		viz.SeverityDistribution = dist
	}

	if ok, degraded := tc.Published(triage.StageAudit); ok && !degraded {
		viz.QualityScores = map[string]float64{
			"completeness": quality.Completeness,
			"consistency":  quality.Consistency,
			"safety":       quality.Safety,
			"aggregate":    quality.Aggregate,
		}
	}

	return viz, nil
}

func vitalSeries(v triage.VitalReadings) []triage.VitalPoint {
	var out []triage.VitalPoint
	if v.HeartRate != nil {
		out = append(out, triage.VitalPoint{Name: "Heart Rate", Value: *v.HeartRate, Unit: "bpm"})
	}
	if v.SystolicBP != nil {
		out = append(out, triage.VitalPoint{Name: "Blood Pressure (Systolic)", Value: *v.SystolicBP, Unit: "mmHg"})
	}
	if v.DiastolicBP != nil {
		out = append(out, triage.VitalPoint{Name: "Blood Pressure (Diastolic)", Value: *v.DiastolicBP, Unit: "mmHg"})
	}
	if v.TemperatureC != nil {
		out = append(out, triage.VitalPoint{Name: "Temperature", Value: *v.TemperatureC, Unit: "°C"})
	}
	if v.RespiratoryRate != nil {
		out = append(out, triage.VitalPoint{Name: "Respiratory Rate", Value: *v.RespiratoryRate, Unit: "breaths/min"})
	}
	if v.OxygenSaturation != nil {
		out = append(out, triage.VitalPoint{Name: "Oxygen Saturation", Value: *v.OxygenSaturation, Unit: "%"})
	}
	return out
}
