// Package patient defines the immutable intake record a triage run is
// created from: free-text symptoms, raw vital readings, demographics,
// history, and current medications. Vitals arrive with unit ambiguity
// (strings or numbers, with or without unit suffixes); the accessors here
// normalize them into clinical units.
package patient

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Input is one patient intake. Immutable once submitted; a triage run never
// writes back into it.
type Input struct {
	Symptoms       string   `json:"symptoms"`
	Vitals         Vitals   `json:"vitals,omitempty"`
	Age            int      `json:"age"`
	Gender         string   `json:"gender,omitempty"`
	MedicalHistory []string `json:"medical_history,omitempty"`
	Medications    []string `json:"medications,omitempty"`
	ImageRef       string   `json:"image_ref,omitempty"`
}

// Vitals maps reading name (heart_rate, temperature, blood_pressure,
// respiratory_rate, oxygen_saturation) to its raw value as submitted.
type Vitals map[string]string

// UnmarshalJSON accepts both string and numeric reading values, coercing
// numbers to their literal text so callers see one representation.
func (v *Vitals) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	out := make(Vitals, len(raw))
	for name, val := range raw {
		switch t := val.(type) {
		case string:
			out[name] = t
		case json.Number:
			out[name] = t.String()
		case nil:
			// dropped
		default:
			return fmt.Errorf("vital %q: unsupported value type %T", name, val)
		}
	}
	*v = out
	return nil
}

// Validate reports every problem that makes the input unusable for triage.
func (in *Input) Validate() error {
	var errs []error
	if strings.TrimSpace(in.Symptoms) == "" {
		errs = append(errs, errors.New("symptoms must not be empty"))
	}
	if in.Age < 0 || in.Age > 130 {
		errs = append(errs, fmt.Errorf("age %d out of range [0,130]", in.Age))
	}
	return errors.Join(errs...)
}

// Fingerprint returns a stable hash of the clinically relevant input fields.
// Two submissions with the same fingerprint describe the same presentation.
func (in *Input) Fingerprint() string {
	h := sha256.New()

	write := func(parts ...string) {
		for _, p := range parts {
			h.Write([]byte(strings.ToLower(strings.TrimSpace(p))))
			h.Write([]byte{0})
		}
	}

	write(in.Symptoms, strconv.Itoa(in.Age), in.Gender)

	names := make([]string, 0, len(in.Vitals))
	for name := range in.Vitals {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		write(name, in.Vitals[name])
	}

	write(in.MedicalHistory...)
	write(in.Medications...)

	return hex.EncodeToString(h.Sum(nil))
}

// HeartRate returns beats per minute.
func (v Vitals) HeartRate() (float64, bool) {
	return numeric(v["heart_rate"], "bpm")
}

// Temperature returns degrees Celsius. Readings above 100 are taken as
// Fahrenheit and converted.
func (v Vitals) Temperature() (float64, bool) {
	t, ok := numeric(v["temperature"], "°c", "°f", "c", "f")
	if !ok {
		return 0, false
	}
	if t > 100 {
		t = (t - 32) * 5 / 9
	}
	return t, true
}

// BloodPressure returns systolic and diastolic mmHg. A reading without a
// diastolic component ("120 mmHg") yields diastolic 0.
func (v Vitals) BloodPressure() (sys, dia float64, ok bool) {
	raw := strings.TrimSpace(v["blood_pressure"])
	if raw == "" {
		return 0, 0, false
	}
	parts := strings.SplitN(raw, "/", 2)
	sys, ok = numeric(parts[0], "mmhg")
	if !ok {
		return 0, 0, false
	}
	if len(parts) == 2 {
		// diastolic is best effort, a bare systolic is still usable
		dia, _ = numeric(parts[1], "mmhg")
	}
	return sys, dia, true
}

// RespiratoryRate returns breaths per minute.
func (v Vitals) RespiratoryRate() (float64, bool) {
	return numeric(v["respiratory_rate"], "breaths/min", "breaths")
}

// OxygenSaturation returns SpO2 percent.
func (v Vitals) OxygenSaturation() (float64, bool) {
	return numeric(v["oxygen_saturation"], "%", "sat")
}

// numeric strips unit suffixes and parses the remainder. Unparseable or
// absent readings report ok=false rather than an error; a malformed vital
// degrades the stage that needed it, it never fails the run.
func numeric(raw string, units ...string) (float64, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return 0, false
	}
	for _, u := range units {
		s = strings.ReplaceAll(s, u, "")
	}
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, ' '); i > 0 {
		s = s[:i]
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
