package stages

import (
	"context"
	"strings"

	"github.com/linnemanlabs/acuity/internal/patient"
	"github.com/linnemanlabs/acuity/internal/textmatch"
	"github.com/linnemanlabs/acuity/internal/triage"
)

// drugVocabulary maps medication keywords found in free text to their
// canonical table keys.
var drugVocabulary = []struct {
	keyword string
	key     string
}{
	{"aspirin", "aspirin"},
	{"nitroglycerin", "nitroglycerin"},
	{"warfarin", "warfarin"},
	{"clopidogrel", "clopidogrel"},
	{"ibuprofen", "ibuprofen"},
	{"sildenafil", "sildenafil"},
	{"tadalafil", "tadalafil"},
	{"vardenafil", "vardenafil"},
	{"ace inhibitors", "ace_inhibitors"},
	{"arb", "arb"},
	{"potassium", "potassium_supplements"},
	{"spironolactone", "spironolactone"},
	{"amiodarone", "amiodarone"},
	{"fluconazole", "fluconazole"},
	{"oxygen", "oxygen"},
	{"digoxin", "digoxin"},
	{"heparin", "heparin"},
	{"metronidazole", "metronidazole"},
	{"nsaid", "nsaids"},
	{"furosemide", "furosemide"},
}

type interaction struct {
	severity    string
	description string
	management  string
}

// interactionTable is the fixed pairwise interaction database, keyed by the
// proposed medication.
var interactionTable = map[string]map[string]interaction{
	"aspirin": {
		"warfarin": {
			severity:    "high",
			description: "Increased bleeding risk due to additive anticoagulant effects",
			management:  "Monitor INR closely, consider dose adjustment",
		},
		"clopidogrel": {
			severity:    "moderate",
			description: "Increased risk of bleeding",
			management:  "Use with caution, monitor for bleeding signs",
		},
		"ibuprofen": {
			severity:    "moderate",
			description: "Reduced antiplatelet effect of aspirin, increased GI bleeding risk",
			management:  "Avoid concurrent use, consider alternative NSAIDs",
		},
		"heparin": {
			severity:    "high",
			description: "Additive anticoagulant effect increases bleeding risk",
			management:  "Avoid concurrent use, monitor coagulation parameters",
		},
	},
	"nitroglycerin": {
		"sildenafil": {
			severity:    "high",
			description: "Severe hypotension due to synergistic vasodilation",
			management:  "Contraindicated, avoid concurrent use",
		},
		"tadalafil": {
			severity:    "high",
			description: "Severe hypotension due to synergistic vasodilation",
			management:  "Contraindicated, avoid concurrent use",
		},
		"vardenafil": {
			severity:    "high",
			description: "Severe hypotension due to synergistic vasodilation",
			management:  "Contraindicated, avoid concurrent use",
		},
	},
	"ace_inhibitors": {
		"potassium_supplements": {
			severity:    "high",
			description: "Risk of hyperkalemia",
			management:  "Monitor serum potassium levels, avoid potassium supplements",
		},
		"spironolactone": {
			severity:    "high",
			description: "Increased risk of hyperkalemia",
			management:  "Monitor serum potassium frequently, consider alternative therapy",
		},
		"nsaids": {
			severity:    "moderate",
			description: "Reduced antihypertensive effect, risk of renal impairment",
			management:  "Monitor blood pressure and renal function, avoid concurrent use if possible",
		},
	},
	"warfarin": {
		"amiodarone": {
			severity:    "high",
			description: "Increased INR due to CYP2C9 inhibition",
			management:  "Monitor INR frequently, reduce warfarin dose",
		},
		"fluconazole": {
			severity:    "high",
			description: "Increased INR due to CYP2C9 inhibition",
			management:  "Monitor INR frequently, reduce warfarin dose",
		},
		"metronidazole": {
			severity:    "moderate",
			description: "Increased INR due to CYP2C9 inhibition",
			management:  "Monitor INR, consider temporary discontinuation",
		},
	},
	"digoxin": {
		"amiodarone": {
			severity:    "moderate",
			description: "Increased digoxin levels, risk of toxicity",
			management:  "Monitor digoxin levels, reduce dose by 50%",
		},
	},
}

// historyContraindications maps a drug to the history conditions that rule
// it out.
var historyContraindications = map[string][]string{
	"aspirin":        {"active_bleeding", "severe_liver_disease", "allergy_to_nsaids", "peptic_ulcer_disease"},
	"nitroglycerin":  {"severe_anemia", "increased_intracranial_pressure", "phosphodiesterase_inhibitors"},
	"ace_inhibitors": {"pregnancy", "angioedema_history", "bilateral_renal_artery_stenosis", "hereditary_angioedema"},
	"warfarin":       {"active_bleeding", "severe_liver_disease", "pregnancy", "recent_surgery"},
	"digoxin":        {"ventricular_fibrillation", "hypertrophic_obstructive_cardiomyopathy"},
}

// majorFactors are the contraindication factors graded major; any one of
// them makes the overall level unsafe.
var majorFactors = map[string]struct{}{
	"active_bleeding":                 {},
	"severe_liver_disease":            {},
	"pregnancy":                       {},
	"severe_anemia":                   {},
	"phosphodiesterase_inhibitors":    {},
	"ventricular_fibrillation":        {},
	"increased_intracranial_pressure": {},
}

// Drugs screens the treatment plan for pairwise interactions with current
// medications and contraindications against the patient record.
type Drugs struct{}

func NewDrugs() *Drugs { return &Drugs{} }

func (*Drugs) Name() string { return triage.StageDrugs }

func (*Drugs) Run(_ context.Context, tc *triage.Context) (any, error) {
	in := tc.Input()
	plan := tc.Treatment()

	proposed := extractDrugs(append(append(append([]string{}, plan.Primary...), plan.Secondary...), plan.FollowUp...))
	current := extractDrugs(in.Medications)

	var interactions []triage.Interaction
	for _, p := range proposed {
		pairs, ok := interactionTable[p]
		if !ok {
			continue
		}
		for _, c := range current {
			if hit, found := pairs[c]; found {
				interactions = append(interactions, triage.Interaction{
					DrugA: p, DrugB: c,
					Severity:    hit.severity,
					Description: hit.description,
					Management:  hit.management,
				})
			}
		}
	}
	for i, a := range proposed {
		pairs, ok := interactionTable[a]
		if !ok {
			continue
		}
		for _, b := range proposed[i+1:] {
			if hit, found := pairs[b]; found {
				interactions = append(interactions, triage.Interaction{
					DrugA: a, DrugB: b,
					Severity:    hit.severity,
					Description: hit.description,
					Management:  hit.management,
				})
			}
		}
	}

	contras := checkContraindications(proposed, in)

	report := triage.SafetyReport{
		Interactions:        interactions,
		Contraindications:   contras,
		SafetyLevel:         safetyLevel(interactions, contras),
		ProposedMedications: proposed,
		Confidence:          safetyConfidence(interactions, contras),
	}
	return report, nil
}

// extractDrugs finds canonical medication keys in free text, deduplicated
// in vocabulary order.
func extractDrugs(texts []string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, v := range drugVocabulary {
		if _, dup := seen[v.key]; dup {
			continue
		}
		for _, text := range texts {
			if textmatch.Contains(text, v.keyword) {
				out = append(out, v.key)
				seen[v.key] = struct{}{}
				break
			}
		}
	}
	return out
}

func checkContraindications(proposed []string, in patient.Input) []triage.Contraindication {
	var out []triage.Contraindication

	for _, drug := range proposed {
		for _, cond := range historyContraindications[drug] {
			if historyMentions(in.MedicalHistory, cond) {
				out = append(out, triage.Contraindication{
					Drug:        drug,
					Factor:      cond,
					Severity:    factorSeverity(cond),
					Description: "Documented history: " + strings.ReplaceAll(cond, "_", " "),
				})
			}
		}
	}

	if in.Age > 75 {
		for _, drug := range proposed {
			if drug == "aspirin" || drug == "warfarin" {
				out = append(out, triage.Contraindication{
					Drug:        drug,
					Factor:      "advanced_age",
					Severity:    "moderate",
					Description: "Increased bleeding risk in elderly patients",
				})
			}
		}
	}

	if textmatch.Fold(in.Gender) == "female" && in.Age >= 12 && in.Age <= 50 {
		for _, drug := range proposed {
			if drug == "ace_inhibitors" || drug == "arb" {
				out = append(out, triage.Contraindication{
					Drug:        drug,
					Factor:      "pregnancy_potential",
					Severity:    "moderate",
					Description: "Contraindicated in pregnancy; patient of childbearing age",
				})
			}
		}
	}

	if textmatch.Contains(in.Symptoms, "active bleeding") {
		for _, drug := range proposed {
			switch drug {
			case "aspirin", "warfarin", "clopidogrel":
				out = append(out, triage.Contraindication{
					Drug:        drug,
					Factor:      "active_bleeding",
					Severity:    "major",
					Description: "Contraindicated in active bleeding",
				})
			}
		}
	}

	if sys, _, ok := in.Vitals.BloodPressure(); ok && sys < 80 {
		for _, drug := range proposed {
			if drug == "nitroglycerin" || drug == "ace_inhibitors" {
				out = append(out, triage.Contraindication{
					Drug:        drug,
					Factor:      "severe_hypotension",
					Severity:    "moderate",
					Description: "Contraindicated in severe hypotension",
				})
			}
		}
	}

	return out
}

func historyMentions(history []string, condition string) bool {
	phrase := strings.ReplaceAll(condition, "_", " ")
	for _, h := range history {
		if textmatch.Contains(h, phrase) || textmatch.Contains(h, condition) {
			return true
		}
	}
	return false
}

func factorSeverity(factor string) string {
	if _, major := majorFactors[factor]; major {
		return "major"
	}
	return "moderate"
}

// safetyLevel is unsafe on any high-severity interaction or major
// contraindication, caution on any other finding, safe when both lists are
// empty.
func safetyLevel(interactions []triage.Interaction, contras []triage.Contraindication) string {
	for _, i := range interactions {
		if i.Severity == "high" {
			return triage.SafetyLevelUnsafe
		}
	}
	for _, c := range contras {
		if c.Severity == "major" {
			return triage.SafetyLevelUnsafe
		}
	}
	if len(interactions) > 0 || len(contras) > 0 {
		return triage.SafetyLevelCaution
	}
	return triage.SafetyLevelSafe
}

// safetyConfidence starts at a fixed baseline, rises with high-severity
// findings (a more certain signal), and falls when the finding count is
// large enough to suggest noise.
func safetyConfidence(interactions []triage.Interaction, contras []triage.Contraindication) float64 {
	const base = 0.85

	high := 0
	for _, i := range interactions {
		if i.Severity == "high" {
			high++
		}
	}
	for _, c := range contras {
		if c.Severity == "major" {
			high++
		}
	}

	total := len(interactions) + len(contras)
	switch {
	case high > 0:
		conf := base + 0.05*float64(high)
		if conf > 0.95 {
			conf = 0.95
		}
		return conf
	case total > 5:
		conf := base - 0.03*float64(total)
		if conf < 0.6 {
			conf = 0.6
		}
		return conf
	default:
		return base
	}
}
