package stages

import (
	"context"
	"slices"

	"github.com/linnemanlabs/acuity/internal/textmatch"
	"github.com/linnemanlabs/acuity/internal/triage"
)

// followUpProtocol is one condition's three-horizon follow-up schedule.
type followUpProtocol struct {
	key       string
	immediate triage.FollowUpProtocol
	shortTerm triage.FollowUpProtocol
	longTerm  triage.FollowUpProtocol
	category  string
	params    []string
}

// followUpProtocols is the fixed schedule table, in evaluation order. The
// first matched condition defines the horizons; monitoring parameters merge
// across all matches.
var followUpProtocols = []followUpProtocol{
	{
		key: "chest_pain",
		immediate: triage.FollowUpProtocol{
			Frequency: "2 hours", Duration: "24 hours",
			Parameters: []string{"ECG", "Cardiac enzymes", "Vital signs"},
			Urgency:    "continuous",
		},
		shortTerm: triage.FollowUpProtocol{
			Frequency: "daily", Duration: "1 week",
			Parameters: []string{"Chest pain assessment", "Medication compliance", "Activity tolerance"},
			Urgency:    "high",
		},
		longTerm: triage.FollowUpProtocol{
			Frequency: "weekly", Duration: "3 months",
			Parameters: []string{"Cardiac function", "Lifestyle modifications", "Risk factor management"},
			Urgency:    "routine",
		},
		category: "cardiac",
		params:   []string{"ecg", "cardiac_enzymes", "heart_sounds"},
	},
	{
		key: "shortness_of_breath",
		immediate: triage.FollowUpProtocol{
			Frequency: "4 hours", Duration: "12 hours",
			Parameters: []string{"Oxygen saturation", "Respiratory rate", "Breath sounds"},
			Urgency:    "frequent",
		},
		shortTerm: triage.FollowUpProtocol{
			Frequency: "every_other_day", Duration: "2 weeks",
			Parameters: []string{"Pulmonary function", "Medication response", "Symptom progression"},
			Urgency:    "moderate",
		},
		longTerm: triage.FollowUpProtocol{
			Frequency: "monthly", Duration: "6 months",
			Parameters: []string{"Pulmonary rehabilitation", "Trigger avoidance", "Quality of life"},
			Urgency:    "routine",
		},
		category: "respiratory",
		params:   []string{"oxygen_saturation", "breath_sounds", "respiratory_rate"},
	},
	{
		key: "fever",
		immediate: triage.FollowUpProtocol{
			Frequency: "6 hours", Duration: "48 hours",
			Parameters: []string{"Temperature monitoring", "Hydration status", "Response to antipyretics"},
			Urgency:    "frequent",
		},
		shortTerm: triage.FollowUpProtocol{
			Frequency: "daily", Duration: "1 week",
			Parameters: []string{"Source identification", "Antibiotic response", "Complication monitoring"},
			Urgency:    "high",
		},
		longTerm: triage.FollowUpProtocol{
			Frequency: "as_needed", Duration: "2 weeks",
			Parameters: []string{"Recovery assessment", "Return to normal activities", "Prevention education"},
			Urgency:    "routine",
		},
		category: "infectious",
		params:   []string{"temperature", "white_blood_cell_count", "inflammatory_markers"},
	},
	{
		key: "hypertension",
		immediate: triage.FollowUpProtocol{
			Frequency: "8 hours", Duration: "72 hours",
			Parameters: []string{"Blood pressure monitoring", "Medication side effects", "Symptom assessment"},
			Urgency:    "routine",
		},
		shortTerm: triage.FollowUpProtocol{
			Frequency: "weekly", Duration: "1 month",
			Parameters: []string{"Blood pressure control", "Medication titration", "Lifestyle adherence"},
			Urgency:    "moderate",
		},
		longTerm: triage.FollowUpProtocol{
			Frequency: "monthly", Duration: "indefinite",
			Parameters: []string{"Target organ damage", "Comorbidity management", "Quality of life"},
			Urgency:    "routine",
		},
		category: "cardiovascular",
		params:   []string{"blood_pressure", "heart_rate", "peripheral_edema"},
	},
}

// baseVitalParameters are monitored for every plan.
var baseVitalParameters = []string{
	"heart_rate", "blood_pressure", "temperature", "respiratory_rate", "oxygen_saturation",
}

// medicationMonitoring maps treatment keywords to the response parameter
// they warrant.
var medicationMonitoring = []struct {
	keyword string
	param   string
}{
	{"nitroglycerin", "medication_response:nitroglycerin"},
	{"aspirin", "medication_response:aspirin"},
	{"ace", "medication_response:ace_inhibitor"},
	{"oxygen", "medication_response:oxygen_therapy"},
}

// FollowUp schedules monitoring across immediate, short, and long horizons
// for the matched conditions, tightened by the risk assessment.
type FollowUp struct{}

func NewFollowUp() *FollowUp { return &FollowUp{} }

func (*FollowUp) Name() string { return triage.StageFollowUp }

func (*FollowUp) Run(_ context.Context, tc *triage.Context) (any, error) {
	in := tc.Input()
	risk := tc.Risk()
	treatment := tc.Treatment()

	var matched []followUpProtocol
	for _, p := range followUpProtocols {
		if guidelineApplies(p.key, in) {
			matched = append(matched, p)
		}
	}

	plan := triage.FollowUpPlan{
		MonitoringParameters: slices.Clone(baseVitalParameters),
	}
	if len(matched) > 0 {
		// the most acute matched condition defines the horizons
		lead := matched[0]
		imm, short, long := lead.immediate, lead.shortTerm, lead.longTerm
		plan.Immediate = &imm
		plan.ShortTerm = &short
		plan.LongTerm = &long
		for _, p := range matched {
			plan.MonitoringParameters = append(plan.MonitoringParameters, p.params...)
		}
	}

	for _, mm := range medicationMonitoring {
		for _, rec := range treatment.Primary {
			if textmatch.Contains(rec, mm.keyword) {
				plan.MonitoringParameters = append(plan.MonitoringParameters, mm.param)
				break
			}
		}
	}

	plan.SpecialConsiderations = specialConsiderations(in.Age, in.Gender, risk.Score)
	tightenSchedule(&plan, risk.Score)
	plan.Confidence = followUpConfidence(len(matched))
	return plan, nil
}

// specialConsiderations flags patient factors that change how the schedule
// is carried out.
func specialConsiderations(age int, gender string, risk float64) []string {
	var out []string
	if age > 65 {
		out = append(out, "Fall risk assessment and home safety evaluation")
	}
	if age > 75 {
		out = append(out, "Polypharmacy review at each visit")
	}
	if textmatch.Fold(gender) == "female" {
		out = append(out, "Consider reproductive health status in medication planning")
	}
	switch {
	case risk > 0.7:
		out = append(out, "High-risk patient: enhanced monitoring protocol")
	case risk > 0.4:
		out = append(out, "Moderate-risk patient: closer than routine observation")
	}
	return out
}

// tightenSchedule shortens follow-up intervals for elevated risk.
func tightenSchedule(plan *triage.FollowUpPlan, risk float64) {
	if plan.Immediate == nil {
		return
	}
	switch {
	case risk > 0.7:
		if plan.Immediate.Frequency != "continuous" {
			plan.Immediate.Frequency = "1 hour"
		}
		plan.Immediate.Urgency = "continuous"
	case risk > 0.4:
		switch plan.Immediate.Frequency {
		case "4 hours", "6 hours", "8 hours":
			plan.Immediate.Frequency = "2 hours"
		}
	}
}

func followUpConfidence(n int) float64 {
	if n == 0 {
		return 0.4
	}
	boost := 0.05 * float64(n)
	if boost > 0.2 {
		boost = 0.2
	}
	conf := 0.75 + boost
	if conf > 0.9 {
		conf = 0.9
	}
	return conf
}
