package pgstore_test

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/linnemanlabs/acuity/internal/patient"
	"github.com/linnemanlabs/acuity/internal/postgres"
	"github.com/linnemanlabs/acuity/internal/triage"
	"github.com/linnemanlabs/acuity/internal/triage/pgstore"
)

func openStore(t *testing.T) *pgstore.Store {
	t.Helper()
	dsn := os.Getenv("ACUITY_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("ACUITY_TEST_DATABASE_URL not set, skipping integration test")
	}
	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, dsn)
	if err != nil {
		t.Fatalf("postgres.NewPool: %v", err)
	}
	t.Cleanup(pool.Close)
	s, err := pgstore.New(ctx, pool)
	if err != nil {
		t.Fatalf("pgstore.New: %v", err)
	}
	return s
}

func TestPutAndGet(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	now := time.Now().Truncate(time.Microsecond).UTC()
	r := &triage.Result{
		ID:          "test-put-get-001",
		Fingerprint: "fp-put-get",
		Status:      triage.StatusComplete,
		Input: patient.Input{
			Symptoms: "chest pain, shortness of breath",
			Vitals:   patient.Vitals{"heart_rate": "120"},
			Age:      58,
		},
		Stages: []triage.StageResult{
			{Stage: triage.StageNormalize, Payload: json.RawMessage(`{"summary":"2 symptoms"}`), StartedAt: now, Duration: 0.01},
			{Stage: triage.StageRisk, Degraded: true, Message: "lookup timeout", StartedAt: now, Duration: 0.02},
		},
		Recommendation: &triage.Recommendation{
			UrgencyLevel: "High",
			Priority:     1,
			ColorCode:    "Red",
			RiskScore:    0.9,
		},
		CreatedAt:   now,
		CompletedAt: now.Add(time.Second),
		Duration:    1.23,
	}

	if err := s.Put(ctx, r); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok, err := s.Get(ctx, r.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("Get returned ok=false, want true")
	}

	assertEqual(t, "ID", r.ID, got.ID)
	assertEqual(t, "Fingerprint", r.Fingerprint, got.Fingerprint)
	assertEqual(t, "Status", string(r.Status), string(got.Status))
	assertEqual(t, "Input.Symptoms", r.Input.Symptoms, got.Input.Symptoms)
	assertEqual(t, "Input.Age", r.Input.Age, got.Input.Age)
	assertEqual(t, "Duration", r.Duration, got.Duration)

	if len(got.Stages) != 2 {
		t.Fatalf("Stages: got %d, want 2", len(got.Stages))
	}
	assertEqual(t, "Stages[0].Stage", triage.StageNormalize, got.Stages[0].Stage)
	assertEqual(t, "Stages[1].Degraded", true, got.Stages[1].Degraded)
	assertEqual(t, "Stages[1].Message", "lookup timeout", got.Stages[1].Message)

	if got.Recommendation == nil {
		t.Fatal("Recommendation is nil after round-trip")
	}
	assertEqual(t, "Recommendation.UrgencyLevel", "High", got.Recommendation.UrgencyLevel)
	assertEqual(t, "Recommendation.RiskScore", 0.9, got.Recommendation.RiskScore)
}

func TestGetMissing(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "nonexistent-id")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Error("Get returned ok=true for nonexistent ID")
	}
}

func TestGetByFingerprint(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	fp := "fp-by-fp-test"
	now := time.Now().Truncate(time.Microsecond).UTC()

	older := &triage.Result{
		ID:          "test-fp-older",
		Fingerprint: fp,
		Status:      triage.StatusComplete,
		Input:       patient.Input{Symptoms: "cough", Age: 30},
		CreatedAt:   now.Add(-time.Hour),
	}
	newer := &triage.Result{
		ID:          "test-fp-newer",
		Fingerprint: fp,
		Status:      triage.StatusPending,
		Input:       patient.Input{Symptoms: "cough", Age: 30},
		CreatedAt:   now,
	}

	if err := s.Put(ctx, older); err != nil {
		t.Fatalf("Put older: %v", err)
	}
	if err := s.Put(ctx, newer); err != nil {
		t.Fatalf("Put newer: %v", err)
	}

	got, ok, err := s.GetByFingerprint(ctx, fp)
	if err != nil {
		t.Fatalf("GetByFingerprint: %v", err)
	}
	if !ok {
		t.Fatal("GetByFingerprint returned ok=false")
	}
	if got.ID != newer.ID {
		t.Errorf("GetByFingerprint returned ID=%s, want %s", got.ID, newer.ID)
	}
}

func TestGetByFingerprintMissing(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	_, ok, err := s.GetByFingerprint(ctx, "nonexistent-fp")
	if err != nil {
		t.Fatalf("GetByFingerprint: %v", err)
	}
	if ok {
		t.Error("GetByFingerprint returned ok=true for nonexistent fingerprint")
	}
}

func TestUpsert(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	now := time.Now().Truncate(time.Microsecond).UTC()
	r := &triage.Result{
		ID:          "test-upsert-001",
		Fingerprint: "fp-upsert",
		Status:      triage.StatusPending,
		Input:       patient.Input{Symptoms: "fever", Age: 44},
		CreatedAt:   now,
	}
	if err := s.Put(ctx, r); err != nil {
		t.Fatalf("Put initial: %v", err)
	}

	r.Status = triage.StatusComplete
	r.CompletedAt = now.Add(time.Minute)
	r.Duration = 60.0
	r.Recommendation = &triage.Recommendation{UrgencyLevel: "Low", Priority: 3, ColorCode: "Green"}

	if err := s.Put(ctx, r); err != nil {
		t.Fatalf("Put update: %v", err)
	}

	got, ok, err := s.Get(ctx, r.ID)
	if err != nil {
		t.Fatalf("Get after upsert: %v", err)
	}
	if !ok {
		t.Fatal("Get returned ok=false after upsert")
	}

	assertEqual(t, "Status", string(triage.StatusComplete), string(got.Status))
	assertEqual(t, "Duration", 60.0, got.Duration)
	if got.Recommendation == nil || got.Recommendation.ColorCode != "Green" {
		t.Errorf("Recommendation = %+v, want Green disposition", got.Recommendation)
	}
}

func TestFailedRunRoundTrip(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	now := time.Now().Truncate(time.Microsecond).UTC()
	r := &triage.Result{
		ID:          "test-failed-001",
		Fingerprint: "fp-failed",
		Status:      triage.StatusFailed,
		Input:       patient.Input{Symptoms: "dizziness", Age: 61},
		Error:       "triage queue full",
		CreatedAt:   now,
	}
	if err := s.Put(ctx, r); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok, err := s.Get(ctx, r.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("Get returned ok=false")
	}
	assertEqual(t, "Status", string(triage.StatusFailed), string(got.Status))
	assertEqual(t, "Error", "triage queue full", got.Error)
	if !got.CompletedAt.IsZero() {
		t.Errorf("CompletedAt = %v, want zero for failed run without completion", got.CompletedAt)
	}
}

func assertEqual[T comparable](t *testing.T, field string, want, got T) {
	t.Helper()
	if want != got {
		t.Errorf("%s: got %v, want %v", field, got, want)
	}
}
