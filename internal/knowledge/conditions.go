package knowledge

// Condition is one entry of the local clinical reference table: the terminal
// lookup tier and the scoring base for the differential diagnosis stage.
type Condition struct {
	Key             string
	Name            string
	Symptoms        []string
	VitalIndicators []string
	Prevalence      float64
	Severity        string
	AgeMin, AgeMax  int
	Workup          []string
}

// Vital indicator names used by Condition.VitalIndicators.
const (
	IndicatorFever             = "fever"
	IndicatorHighBloodPressure = "high_blood_pressure"
	IndicatorRapidHeartRate    = "rapid_heart_rate"
	IndicatorRapidBreathing    = "rapid_breathing"
	IndicatorLowOxygen         = "low_oxygen"
)

// Conditions is the fixed local reference table, ordered roughly by acuity.
var Conditions = []Condition{
	{
		Key:             "myocardial_infarction",
		Name:            "Myocardial Infarction (Heart Attack)",
		Symptoms:        []string{"chest pain", "shortness of breath", "nausea", "sweating", "arm pain", "jaw pain", "neck pain", "dizziness", "fatigue"},
		VitalIndicators: []string{IndicatorHighBloodPressure, IndicatorRapidHeartRate, IndicatorLowOxygen},
		Prevalence:      0.8,
		Severity:        "high",
		AgeMin:          30,
		AgeMax:          100,
		Workup: []string{
			"Immediate ECG monitoring",
			"Cardiac enzyme panel (troponin levels)",
			"IV access establishment",
			"Nitroglycerin for chest pain relief (if BP adequate)",
			"Aspirin 325mg chewable",
			"Oxygen therapy if hypoxic",
			"Morphine for pain if needed",
			"Continuous cardiac monitoring",
		},
	},
	{
		Key:             "pneumonia",
		Name:            "Pneumonia",
		Symptoms:        []string{"fever", "cough", "shortness of breath", "chest pain", "fatigue", "chills", "sputum production", "malaise"},
		VitalIndicators: []string{IndicatorFever, IndicatorRapidBreathing, IndicatorLowOxygen},
		Prevalence:      0.7,
		Severity:        "high",
		AgeMin:          0,
		AgeMax:          100,
		Workup: []string{
			"Chest X-ray",
			"Complete blood count with differential",
			"Sputum culture and sensitivity",
			"Blood cultures if febrile",
			"Antibiotic therapy pending culture results",
			"Oxygen therapy if hypoxic",
			"Hydration support",
		},
	},
	{
		Key:             "pulmonary_embolism",
		Name:            "Pulmonary Embolism",
		Symptoms:        []string{"shortness of breath", "chest pain", "cough", "leg swelling", "rapid heart rate", "fainting", "hemoptysis", "pleuritic pain"},
		VitalIndicators: []string{IndicatorRapidHeartRate, IndicatorLowOxygen, IndicatorRapidBreathing},
		Prevalence:      0.6,
		Severity:        "high",
		AgeMin:          20,
		AgeMax:          80,
		Workup: []string{
			"D-dimer test (age-adjusted if >50)",
			"CT pulmonary angiogram",
			"Ventilation-perfusion scan if contraindicated",
			"Anticoagulation therapy (heparin protocol)",
			"Oxygen therapy",
			"IV access",
			"Monitor for bleeding complications",
		},
	},
	{
		Key:             "asthma_exacerbation",
		Name:            "Asthma Exacerbation",
		Symptoms:        []string{"shortness of breath", "wheezing", "chest tightness", "cough", "difficulty speaking", "cyanosis"},
		VitalIndicators: []string{IndicatorRapidBreathing, IndicatorLowOxygen},
		Prevalence:      0.65,
		Severity:        "moderate",
		AgeMin:          0,
		AgeMax:          100,
		Workup: []string{
			"Peak flow measurement",
			"Albuterol nebulizer treatment",
			"Ipratropium bromide if severe",
			"Systemic steroid therapy",
			"Oxygen therapy if hypoxic",
			"Continuous monitoring of oxygen saturation",
			"Consider magnesium sulfate for severe cases",
		},
	},
	{
		Key:        "costochondritis",
		Name:       "Costochondritis",
		Symptoms:   []string{"chest pain", "tenderness", "pain with breathing", "pain with movement", "localized pain"},
		Prevalence: 0.5,
		Severity:   "low",
		AgeMin:     10,
		AgeMax:     60,
		Workup: []string{
			"Pain management with NSAIDs",
			"Physical examination for reproducible tenderness",
			"ECG to rule out cardiac causes",
			"Chest X-ray if trauma suspected",
			"Reassurance and education about benign nature",
		},
	},
	{
		Key:        "gastroesophageal_reflux",
		Name:       "Gastroesophageal Reflux Disease (GERD)",
		Symptoms:   []string{"chest pain", "heartburn", "acid reflux", "regurgitation", "difficulty swallowing", "sour taste"},
		Prevalence: 0.7,
		Severity:   "low",
		AgeMin:     20,
		AgeMax:     70,
		Workup: []string{
			"Antacid therapy for immediate relief",
			"Proton pump inhibitor trial",
			"ECG to rule out cardiac causes",
			"Dietary modifications (avoid trigger foods)",
			"Elevate head of bed",
			"Consider H. pylori testing if indicated",
		},
	},
	{
		Key:             "anxiety_panic_attack",
		Name:            "Anxiety/Panic Attack",
		Symptoms:        []string{"chest pain", "shortness of breath", "sweating", "dizziness", "palpitations", "tingling", "fear of dying", "numbness"},
		VitalIndicators: []string{IndicatorRapidHeartRate},
		Prevalence:      0.6,
		Severity:        "low",
		AgeMin:          15,
		AgeMax:          50,
		Workup: []string{
			"Reassurance and calming techniques",
			"Vital sign monitoring",
			"ECG to rule out cardiac causes",
			"Breathing exercises (paced breathing)",
			"Anxiolytic medication if indicated (benzodiazepines)",
			"Consider psychological support referral",
		},
	},
	{
		Key:             "hypertensive_crisis",
		Name:            "Hypertensive Crisis",
		Symptoms:        []string{"headache", "chest pain", "shortness of breath", "blurred vision", "nosebleed", "confusion", "seizure"},
		VitalIndicators: []string{IndicatorHighBloodPressure},
		Prevalence:      0.55,
		Severity:        "high",
		AgeMin:          40,
		AgeMax:          100,
		Workup: []string{
			"Immediate blood pressure monitoring every 5-15 min",
			"IV antihypertensive therapy (labetalol, nicardipine)",
			"ECG monitoring",
			"Neurological assessment",
			"Laboratory studies (creatinine, electrolytes, BUN)",
			"Ophthalmologic examination if visual symptoms",
			"Consider CT head if neurological symptoms",
		},
	},
	{
		Key:             "pneumothorax",
		Name:            "Pneumothorax (Collapsed Lung)",
		Symptoms:        []string{"sudden chest pain", "shortness of breath", "rapid breathing", "rapid heart rate", "cyanosis"},
		VitalIndicators: []string{IndicatorRapidBreathing, IndicatorRapidHeartRate, IndicatorLowOxygen},
		Prevalence:      0.4,
		Severity:        "high",
		AgeMin:          15,
		AgeMax:          40,
		Workup: []string{
			"Chest X-ray (PA and lateral views)",
			"Arterial blood gas analysis",
			"Oxygen therapy",
			"Consider chest tube placement if large",
			"Monitor respiratory status closely",
			"Surgical consultation for recurrent cases",
		},
	},
	{
		Key:             "pericarditis",
		Name:            "Pericarditis",
		Symptoms:        []string{"sharp chest pain", "fever", "fatigue", "shortness of breath", "pain when lying down", "pericardial friction rub"},
		VitalIndicators: []string{IndicatorFever, IndicatorRapidHeartRate},
		Prevalence:      0.35,
		Severity:        "moderate",
		AgeMin:          20,
		AgeMax:          60,
		Workup: []string{
			"ECG (look for diffuse ST elevations)",
			"Echocardiogram to assess for effusion",
			"Inflammatory markers (ESR, CRP)",
			"NSAIDs for pain and inflammation",
			"Colchicine for recurrent cases",
			"Rule out myocardial infarction",
		},
	},
	{
		Key:             "bronchitis",
		Name:            "Acute Bronchitis",
		Symptoms:        []string{"cough", "sputum production", "chest discomfort", "fatigue", "mild fever", "shortness of breath"},
		VitalIndicators: []string{IndicatorRapidBreathing},
		Prevalence:      0.6,
		Severity:        "low",
		AgeMin:          0,
		AgeMax:          100,
		Workup: []string{
			"Supportive care with rest and hydration",
			"Cough suppressants for symptom relief",
			"Chest X-ray if pneumonia suspected",
			"Bronchodilators if wheezing present",
		},
	},
	{
		Key:             "pleurisy",
		Name:            "Pleurisy",
		Symptoms:        []string{"sharp chest pain", "shortness of breath", "cough", "fever", "pleuritic pain"},
		VitalIndicators: []string{IndicatorRapidBreathing},
		Prevalence:      0.4,
		Severity:        "moderate",
		AgeMin:          20,
		AgeMax:          70,
		Workup: []string{
			"Chest X-ray to identify underlying cause",
			"NSAIDs for pleuritic pain",
			"Treat underlying infection if present",
			"Monitor for effusion development",
		},
	},
	{
		Key:             "pulmonary_edema",
		Name:            "Pulmonary Edema",
		Symptoms:        []string{"shortness of breath", "orthopnea", "paroxysmal nocturnal dyspnea", "cough", "pink frothy sputum", "wheezing"},
		VitalIndicators: []string{IndicatorRapidBreathing, IndicatorRapidHeartRate, IndicatorLowOxygen},
		Prevalence:      0.3,
		Severity:        "high",
		AgeMin:          40,
		AgeMax:          100,
		Workup: []string{
			"Immediate oxygen therapy",
			"ECG monitoring",
			"Chest X-ray",
			"BNP or NT-proBNP levels",
			"Diuretic therapy (furosemide)",
			"Non-invasive ventilation if severe",
			"Treat underlying cause",
			"Monitor electrolytes and renal function",
		},
	},
}

// ConditionByKey looks a condition up in the local table.
func ConditionByKey(key string) (Condition, bool) {
	for _, c := range Conditions {
		if c.Key == key {
			return c, true
		}
	}
	return Condition{}, false
}
