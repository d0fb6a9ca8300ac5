package stages

import (
	"context"
	"strings"

	"github.com/linnemanlabs/acuity/internal/patient"
	"github.com/linnemanlabs/acuity/internal/textmatch"
	"github.com/linnemanlabs/acuity/internal/triage"
)

// Complexity levels for specialist routing.
const (
	complexityHigh     = "high_complexity"
	complexityModerate = "moderate_complexity"
	complexityLow      = "low_complexity"
)

// specialty is one routing target: the conditions it covers, the wait
// expectation per urgency, and what to prepare for the consultation.
type specialty struct {
	name       string
	conditions []string
	urgency    map[string]string
	emergency  string
	routine    string
}

// specialties is the fixed routing registry, in presentation order.
var specialties = []specialty{
	{
		name:       "Cardiology",
		conditions: []string{"chest_pain", "heart_failure", "arrhythmia", "hypertension", "myocardial_infarction", "valvular_disease", "cardiomyopathy"},
		urgency: map[string]string{
			"immediate": "Within 15 minutes - Cardiac emergency",
			"urgent":    "Within 2 hours - High-risk cardiac condition",
			"routine":   "Within 24-48 hours - Stable cardiac condition",
		},
		emergency: "Prepare for possible cardiac catheterization",
		routine:   "Bring recent ECG and cardiac enzymes",
	},
	{
		name:       "Pulmonology",
		conditions: []string{"shortness_of_breath", "asthma", "copd", "pneumonia", "pulmonary_embolism", "lung_cancer", "pulmonary_hypertension"},
		urgency: map[string]string{
			"immediate": "Within 30 minutes - Respiratory emergency",
			"urgent":    "Within 4 hours - Significant respiratory compromise",
			"routine":   "Within 1-2 weeks - Stable respiratory condition",
		},
		emergency: "Prepare arterial blood gas results",
		routine:   "Bring chest X-ray and pulmonary function tests",
	},
	{
		name:       "Infectious Disease",
		conditions: []string{"fever", "sepsis", "pneumonia", "uti", "meningitis", "hiv", "tuberculosis", "hepatitis"},
		urgency: map[string]string{
			"immediate": "Within 1 hour - Suspected sepsis",
			"urgent":    "Within 4 hours - Persistent fever with complications",
			"routine":   "Within 1 week - Unresolved infection",
		},
		emergency: "Provide blood cultures and antibiotic sensitivity results",
		routine:   "Bring complete infection workup and imaging",
	},
	{
		name:       "Neurology",
		conditions: []string{"headache", "seizure", "stroke", "altered_mental_status", "migraine", "parkinsons", "multiple_sclerosis"},
		urgency: map[string]string{
			"immediate": "Within 15 minutes - Neurological emergency",
			"urgent":    "Within 2 hours - Significant neurological deficit",
			"routine":   "Within 1 week - Chronic neurological condition",
		},
		emergency: "Prepare for possible CT/MRI imaging",
		routine:   "Bring neurological examination findings",
	},
	{
		name:       "Emergency Medicine",
		conditions: []string{"trauma", "overdose", "acute_abdomen", "anaphylaxis", "cardiac_arrest", "shock", "respiratory_failure"},
		urgency: map[string]string{
			"immediate": "Immediately - Life-threatening emergency",
			"urgent":    "Within 1 hour - Serious acute condition",
			"routine":   "Within 24 hours - Stable acute condition",
		},
		emergency: "Activate trauma team if applicable",
		routine:   "Provide complete history and physical",
	},
	{
		name:       "Endocrinology",
		conditions: []string{"diabetes", "thyroid_disorder", "adrenal_insufficiency", "osteoporosis", "parathyroid_disorder"},
		urgency: map[string]string{
			"immediate": "Within 1 hour - Endocrine emergency",
			"urgent":    "Within 4 hours - Significant endocrine dysfunction",
			"routine":   "Within 1 week - Chronic endocrine condition",
		},
		emergency: "Provide recent glucose and electrolyte levels",
		routine:   "Bring endocrine function test results",
	},
	{
		name:       "Gastroenterology",
		conditions: []string{"gi_bleeding", "liver_disease", "pancreatitis", "inflammatory_bowel_disease", "gallstones", "cirrhosis"},
		urgency: map[string]string{
			"immediate": "Within 1 hour - GI emergency",
			"urgent":    "Within 4 hours - Significant GI condition",
			"routine":   "Within 1 week - Chronic GI condition",
		},
		emergency: "Prepare for possible endoscopy",
		routine:   "Bring recent liver function tests and imaging",
	},
	{
		name:       "Nephrology",
		conditions: []string{"kidney_disease", "renal_failure", "electrolyte_imbalance", "proteinuria", "hematuria"},
		urgency: map[string]string{
			"immediate": "Within 2 hours - Acute kidney injury",
			"urgent":    "Within 24 hours - Significant renal dysfunction",
			"routine":   "Within 1 week - Chronic kidney disease",
		},
		emergency: "Provide recent creatinine and electrolyte levels",
		routine:   "Bring renal function tests and urinalysis",
	},
	{
		name:       "Rheumatology",
		conditions: []string{"rheumatoid_arthritis", "lupus", "ankylosing_spondylitis", "gout", "vasculitis"},
		urgency: map[string]string{
			"immediate": "Within 24 hours - Severe inflammatory condition",
			"urgent":    "Within 1 week - Active autoimmune disease",
			"routine":   "Within 2 weeks - Chronic inflammatory condition",
		},
		emergency: "Provide inflammatory markers and autoantibody results",
		routine:   "Bring detailed joint examination findings",
	},
	{
		name:       "Hematology",
		conditions: []string{"anemia", "leukemia", "lymphoma", "bleeding_disorder", "thrombosis"},
		urgency: map[string]string{
			"immediate": "Within 2 hours - Hematologic emergency",
			"urgent":    "Within 24 hours - Significant hematologic abnormality",
			"routine":   "Within 1 week - Chronic hematologic condition",
		},
		emergency: "Provide complete blood count and coagulation studies",
		routine:   "Bring peripheral blood smear and bone marrow reports if available",
	},
	{
		name:       "Oncology",
		conditions: []string{"cancer", "tumor", "malignancy", "chemotherapy_complications"},
		urgency: map[string]string{
			"immediate": "Within 2 hours - Oncologic emergency",
			"urgent":    "Within 24 hours - New cancer diagnosis or complications",
			"routine":   "Within 1 week - Cancer follow-up or surveillance",
		},
		emergency: "Provide tumor markers and imaging results",
		routine:   "Bring pathology reports and previous treatment records",
	},
}

var criticalConditions = map[string]struct{}{
	"myocardial_infarction": {}, "stroke": {}, "pulmonary_embolism": {}, "cardiac_arrest": {}, "sepsis": {},
}

var severeConditions = map[string]struct{}{
	"heart_failure": {}, "pneumonia": {}, "meningitis": {}, "diabetes_ketoacidosis": {},
}

// routingMedications are medication mentions in primary recommendations
// that add treatment complexity.
var routingMedications = []string{
	"aspirin", "warfarin", "metformin", "lisinopril", "atorvastatin",
	"omeprazole", "albuterol", "insulin", "metoprolol", "losartan",
}

// Specialist routes the case to the specialties covering its identified
// conditions, graded by case complexity.
type Specialist struct{}

func NewSpecialist() *Specialist { return &Specialist{} }

func (*Specialist) Name() string { return triage.StageSpecialist }

func (*Specialist) Run(_ context.Context, tc *triage.Context) (any, error) {
	in := tc.Input()
	norm := tc.Normalized()
	risk := tc.Risk()
	treatment := tc.Treatment()

	conditions := identifyConditions(in)
	score := complexityScore(conditions, norm.CriticalFlags, risk.Score, treatment.Primary)
	level := complexityLevel(score)
	urgency := routingUrgency(risk.Score, level)

	var routed []triage.Specialist
	for _, sp := range specialties {
		hits := matchingConditions(conditions, sp.conditions)
		if len(hits) == 0 {
			continue
		}
		consult := sp.routine
		if urgency == "immediate" || urgency == "urgent" {
			consult = sp.emergency
		}
		desc, ok := sp.urgency[urgency]
		if !ok {
			desc = "Consult as clinically indicated"
		}
		routed = append(routed, triage.Specialist{
			Specialty:    sp.name,
			Reason:       "Patient presents with " + strings.Join(hits, ", ") + "; " + desc,
			Urgency:      urgency,
			Consultation: consult,
		})
	}

	if len(routed) == 0 {
		routed = append(routed, triage.Specialist{
			Specialty:    "Primary Care Physician",
			Reason:       "Patient requires ongoing primary care management",
			Urgency:      "routine",
			Consultation: "Bring all medical records and test results",
		})
	}

	return triage.SpecialistReferral{
		Specialists:     routed,
		Complexity:      level,
		ComplexityScore: score,
		Urgency:         urgency,
		Considerations:  complexityConsiderations(level),
		Confidence:      routingConfidence(conditions),
	}, nil
}

// identifyConditions derives routing condition keys from symptoms and
// vitals.
func identifyConditions(in patient.Input) []string {
	var out []string
	add := func(cond string) {
		for _, existing := range out {
			if existing == cond {
				return
			}
		}
		out = append(out, cond)
	}
	has := func(terms ...string) bool {
		_, ok := textmatch.ContainsAny(in.Symptoms, terms)
		return ok
	}

	if has("chest pain", "chest discomfort") {
		add("chest_pain")
	}
	if has("shortness of breath", "difficulty breathing") {
		add("shortness_of_breath")
	}
	if t, ok := in.Vitals.Temperature(); has("fever") || (ok && t > 38.0) {
		add("fever")
	}
	if has("headache") && has("severe") {
		add("headache")
	}
	if has("seizure", "convulsion") {
		add("seizure")
	}
	if has("diabetes", "hyperglycemia", "hypoglycemia") {
		add("diabetes")
	}
	if has("thyroid") {
		add("thyroid_disorder")
	}
	if has("bleeding") {
		add("gi_bleeding")
	}
	if has("jaundice", "yellow skin") {
		add("liver_disease")
	}
	if has("abdominal pain") {
		add("acute_abdomen")
	}
	if has("joint pain", "arthritis") {
		add("rheumatoid_arthritis")
	}
	if has("rash", "skin lesion") {
		add("lupus")
	}
	if has("back pain") && has("stiffness") {
		add("ankylosing_spondylitis")
	}
	if has("kidney", "renal") {
		add("kidney_disease")
	}
	if has("anemia") || (has("fatigue") && has("pallor")) {
		add("anemia")
	}
	if has("cancer", "tumor", "malignancy") {
		add("cancer")
	}
	if has("bone pain", "fracture") {
		add("osteoporosis")
	}

	if sys, dia, ok := in.Vitals.BloodPressure(); ok {
		if sys > 140 || dia > 90 {
			add("hypertension")
		}
		if sys < 90 {
			add("hypotension")
		}
	}
	if hr, ok := in.Vitals.HeartRate(); ok && (hr > 100 || hr < 60) {
		add("arrhythmia")
	}

	return out
}

func matchingConditions(conditions, covered []string) []string {
	var out []string
	for _, c := range conditions {
		for _, want := range covered {
			if c == want {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// complexityScore grades the case by risk band, condition severity,
// critical vitals, and treatment medication load.
func complexityScore(conditions, criticalFlags []string, risk float64, primaryRecs []string) int {
	score := 0

	switch {
	case risk > 0.85:
		score += 4
	case risk > 0.7:
		score += 3
	case risk > 0.5:
		score += 2
	case risk > 0.3:
		score += 1
	}

	critical, severe := 0, 0
	for _, c := range conditions {
		if _, ok := criticalConditions[c]; ok {
			critical++
		} else if _, ok := severeConditions[c]; ok {
			severe++
		}
	}
	score += critical*3 + severe*2 + (len(conditions) - critical - severe)

	severeVitals := 0
	for _, f := range criticalFlags {
		switch f {
		case "severe_hypotension", "severe_tachycardia", "hypertensive_crisis":
			severeVitals++
		}
	}
	score += severeVitals*2 + (len(criticalFlags) - severeVitals)

	meds := 0
	for _, med := range routingMedications {
		for _, rec := range primaryRecs {
			if textmatch.Contains(rec, med) {
				meds++
				break
			}
		}
	}
	switch {
	case meds > 6:
		score += 3
	case meds > 4:
		score += 2
	case meds > 2:
		score += 1
	}

	return score
}

func complexityLevel(score int) string {
	switch {
	case score >= 10:
		return complexityHigh
	case score >= 6:
		return complexityModerate
	default:
		return complexityLow
	}
}

func routingUrgency(risk float64, level string) string {
	switch {
	case risk > 0.8 || level == complexityHigh:
		return "immediate"
	case risk > 0.6 || level == complexityModerate:
		return "urgent"
	default:
		return "routine"
	}
}

func complexityConsiderations(level string) []string {
	switch level {
	case complexityHigh:
		return []string{
			"Consider multidisciplinary team consultation",
			"Prepare for possible ICU admission",
			"Ensure family notification and involvement",
			"Document advance care planning discussion",
		}
	case complexityModerate:
		return []string{
			"Schedule follow-up within 24-48 hours",
			"Provide patient education materials",
			"Arrange for home care services if needed",
			"Coordinate with outpatient services",
		}
	default:
		return []string{
			"Provide discharge instructions",
			"Schedule routine follow-up",
			"Educate patient on warning signs",
			"Ensure medication compliance",
		}
	}
}

var highSpecificityConditions = map[string]struct{}{
	"myocardial_infarction": {}, "stroke": {}, "pulmonary_embolism": {}, "meningitis": {}, "cardiac_arrest": {},
}

func routingConfidence(conditions []string) float64 {
	if len(conditions) == 0 {
		return 0.4
	}
	boost := 0.08 * float64(len(conditions))
	if boost > 0.2 {
		boost = 0.2
	}
	conf := 0.75 + boost
	for _, c := range conditions {
		if _, ok := highSpecificityConditions[c]; ok {
			conf += 0.1
			break
		}
	}
	if conf > 0.98 {
		conf = 0.98
	}
	return conf
}
