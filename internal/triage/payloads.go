package triage

// Stage names, in pipeline order.
const (
	StageNormalize      = "normalize"
	StageRisk           = "risk"
	StageDiagnosis      = "diagnosis"
	StageTreatment      = "treatment"
	StageFollowUp       = "follow-up"
	StageDrugs          = "drug-interactions"
	StageSpecialist     = "specialist-routing"
	StageAudit          = "consistency-audit"
	StageForecast       = "predictive-forecast"
	StageVisualization  = "visualization-assembly"
	StageRecommendation = "final-recommendation"
)

// Risk categories, ordinal from lowest to highest.
const (
	RiskMinimal  = "Minimal"
	RiskLow      = "Low"
	RiskModerate = "Moderate"
	RiskHigh     = "High"
	RiskCritical = "Critical"
)

// Safety levels for the drug interaction report.
const (
	SafetyLevelSafe    = "safe"
	SafetyLevelCaution = "caution"
	SafetyLevelUnsafe  = "unsafe"
)

// VitalReadings are the parsed, unit-normalized vitals. Absent or
// unparseable readings are nil.
type VitalReadings struct {
	HeartRate        *float64 `json:"heart_rate,omitempty"`
	TemperatureC     *float64 `json:"temperature_c,omitempty"`
	SystolicBP       *float64 `json:"systolic_bp,omitempty"`
	DiastolicBP      *float64 `json:"diastolic_bp,omitempty"`
	RespiratoryRate  *float64 `json:"respiratory_rate,omitempty"`
	OxygenSaturation *float64 `json:"oxygen_saturation,omitempty"`
}

// Concern is one finding the normalizer flagged as clinically significant.
type Concern struct {
	Name         string `json:"name"`
	Significance string `json:"significance"`
	Critical     bool   `json:"critical,omitempty"`
}

/// NormalizedInput is the normalize stage's payload: tokenized symptoms,
// body-system categorization, flagged concerns, and parsed vitals.
type NormalizedInput struct {
	Symptoms        []string            `json:"symptoms"`
	Categories      map[string][]string `json:"symptom_categories,omitempty"`
	PrimaryConcerns []Concern           `json:"primary_concerns,omitempty"`
	Vitals          VitalReadings       `json:"vitals"`
	CriticalFlags   []string            `json:"critical_flags,omitempty"`
	Summary         string              `json:"summary,omitempty"`
}

// SubScores are the independent risk components before weighting.
type SubScores struct {
	Vital       float64 `json:"vital"`
	Symptom     float64 `json:"symptom"`
	Demographic float64 `json:"demographic"`
}

// TriageDirective maps a risk category to concrete dispatch instructions.
type TriageDirective struct {
	Priority   int    `json:"priority"`
	Color      string `json:"color"`
	Action     string `json:"action"`
	Facility   string `json:"facility"`
	Specialist string `json:"specialist"`
	Timeframe  string `json:"timeframe"`
}

// RiskAssessment is the risk stage's payload. Derived deterministically from
// the input; never mutated after creation.
type RiskAssessment struct {
	Score         float64         `json:"risk_score"`
	Category      string          `json:"risk_category"`
	SubScores     SubScores       `json:"sub_scores"`
	CriticalFlags []string        `json:"critical_flags,omitempty"`
	Directive     TriageDirective `json:"triage_directive"`
}

// Candidate is one ranked differential diagnosis entry.
type Candidate struct {
	Condition       string   `json:"condition"`
	Key             string   `json:"condition_key,omitempty"`
	MatchScore      float64  `json:"match_score"`
	Confidence      float64  `json:"confidence_score"`
	Severity        string   `json:"severity"`
	Source          string   `json:"source"`
	MatchedSymptoms []string `json:"matched_symptoms,omitempty"`
	MatchedVitals   []string `json:"matched_vitals,omitempty"`
	Workup          []string `json:"recommendations,omitempty"`
	Description     string   `json:"description,omitempty"`
}

/// Differential is the diagnosis stage's payload: at most four candidates,
// sorted descending by match score. When every tier came back empty the list
// is empty and Marker explains why; the stage itself never fails.
type Differential struct {
	Candidates []Candidate `json:"differential_diagnosis"`
	Source     string      `json:"source,omitempty"`
	Marker     string      `json:"marker,omitempty"`
}

// TreatmentPlan is the treatment stage's payload.
type TreatmentPlan struct {
	Primary           []string `json:"primary_recommendations"`
	Secondary         []string `json:"secondary_recommendations,omitempty"`
	FollowUp          []string `json:"follow_up_recommendations,omitempty"`
	Urgency           string   `json:"urgency"`
	MatchedConditions []string `json:"matched_conditions,omitempty"`
	Confidence        float64  `json:"confidence"`
}

// FollowUpProtocol is one horizon of the follow-up plan.
type FollowUpProtocol struct {
	Frequency  string   `json:"frequency"`
	Duration   string   `json:"duration"`
	Parameters []string `json:"parameters,omitempty"`
	Urgency    string   `json:"urgency,omitempty"`
}

// FollowUpPlan is the follow-up stage's payload.
type FollowUpPlan struct {
	Immediate             *FollowUpProtocol `json:"immediate,omitempty"`
	ShortTerm             *FollowUpProtocol `json:"short_term,omitempty"`
	LongTerm              *FollowUpProtocol `json:"long_term,omitempty"`
	MonitoringParameters  []string          `json:"monitoring_parameters,omitempty"`
	SpecialConsiderations []string          `json:"special_considerations,omitempty"`
	Confidence            float64           `json:"confidence"`
}

// Interaction is one pairwise drug interaction finding.
type Interaction struct {
	DrugA       string `json:"drug_a"`
	DrugB       string `json:"drug_b"`
	Severity    string `json:"severity"`
	Description string `json:"description"`
	Management  string `json:"management,omitempty"`
}

// Contraindication is one drug-vs-patient finding.
type Contraindication struct {
	Drug        string `json:"drug"`
	Factor      string `json:"factor"`
	Severity    string `json:"severity"`
	Description string `json:"description"`
}

// SafetyReport is the drug interaction stage's payload.
type SafetyReport struct {
	Interactions        []Interaction      `json:"interactions"`
	Contraindications   []Contraindication `json:"contraindications"`
	SafetyLevel         string             `json:"safety_level"`
	ProposedMedications []string           `json:"proposed_medications,omitempty"`
	Confidence          float64            `json:"confidence"`
}

// Specialist is one routed referral.
type Specialist struct {
	Specialty    string `json:"specialty"`
	Reason       string `json:"reason"`
	Urgency      string `json:"urgency"`
	Consultation string `json:"consultation,omitempty"`
}

// SpecialistReferral is the specialist routing stage's payload.
type SpecialistReferral struct {
	Specialists     []Specialist `json:"specialists"`
	Complexity      string       `json:"complexity"`
	ComplexityScore int          `json:"complexity_score"`
	Urgency         string       `json:"urgency"`
	Considerations  []string     `json:"additional_considerations,omitempty"`
	Confidence      float64      `json:"confidence"`
}

// Complication is one forecast entry.
type Complication struct {
	Class      string   `json:"class"`
	Likelihood string   `json:"likelihood"`
	Score      float64  `json:"score"`
	Factors    []string `json:"risk_factors,omitempty"`
	Indicators []string `json:"indicators,omitempty"`
	Prevention []string `json:"prevention,omitempty"`
}

// ComplicationForecast is the predictive forecast stage's payload.
type ComplicationForecast struct {
	Complications []Complication `json:"complications"`
}

// QualityIssue is one finding of the consistency audit.
type QualityIssue struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
}

// QualityReport is the consistency audit stage's payload. Aggregate is the
// fixed weighted sum of the three component scores.
type QualityReport struct {
	Completeness float64        `json:"completeness_score"`
	Consistency  float64        `json:"consistency_score"`
	Safety       float64        `json:"safety_score"`
	Aggregate    float64        `json:"aggregate_score"`
	Issues       []QualityIssue `json:"issues,omitempty"`
	Suggestions  []string       `json:"suggestions,omitempty"`
	Assessment   string         `json:"assessment,omitempty"`
	Confidence   float64        `json:"confidence"`
}

// VitalPoint is one chart-ready vital reading.
type VitalPoint struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit,omitempty"`
}

// RiskGauge is the headline chart datum.
type RiskGauge struct {
	Score    float64 `json:"score"`
	Category string  `json:"category"`
	Color    string  `json:"color"`
}

// Visualization is the visualization assembly stage's payload: chart-ready
// series built from the accumulated context. Degraded upstream stages
// contribute empty series.
type Visualization struct {
	RiskGauge            RiskGauge          `json:"risk_gauge"`
	SeverityDistribution map[string]int     `json:"severity_distribution,omitempty"`
	VitalSeries          []VitalPoint       `json:"vital_series,omitempty"`
	QualityScores        map[string]float64 `json:"quality_scores,omitempty"`
}

// Recommendation is the final merged output of a run. Any subset of the
// embedded reports may come from degraded stages; DegradedStages names them.
type Recommendation struct {
	UrgencyLevel      string                `json:"urgency_level"`
	Priority          int                   `json:"priority"`
	ColorCode         string                `json:"color_code"`
	RiskScore         float64               `json:"risk_score"`
	RecommendedAction string                `json:"recommended_action"`
	Risk              *RiskAssessment       `json:"risk_assessment,omitempty"`
	Differential      *Differential         `json:"differential_diagnosis,omitempty"`
	Treatment         *TreatmentPlan        `json:"treatment_plan,omitempty"`
	FollowUp          *FollowUpPlan         `json:"follow_up_plan,omitempty"`
	Safety            *SafetyReport         `json:"safety_report,omitempty"`
	Specialists       *SpecialistReferral   `json:"specialist_recommendations,omitempty"`
	Quality           *QualityReport        `json:"quality_report,omitempty"`
	Complications     *ComplicationForecast `json:"predicted_complications,omitempty"`
	Visualization     *Visualization        `json:"visualization,omitempty"`
	NextSteps         []string              `json:"next_steps"`
	DegradedStages    []string              `json:"degraded_stages,omitempty"`
}

// NeutralRisk is the default downstream stages read when the risk stage is
/// absent or degraded: mid-scale score, moderate category.
func NeutralRisk() RiskAssessment {
	return RiskAssessment{
		Score:    0.5,
		Category: RiskModerate,
		SubScores: SubScores{
			Vital:       0.5,
			Symptom:     0.5,
			Demographic: 0.5,
		},
		Directive: TriageDirective{
			Priority:   3,
			Color:      "Yellow",
			Action:     "Prompt medical evaluation recommended",
			Facility:   "Urgent care or emergency department",
			Specialist: "General practitioner",
			Timeframe:  "Within 2 hours",
		},
	}
}
