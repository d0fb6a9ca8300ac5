package triageapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/acuity/internal/patient"
	"github.com/linnemanlabs/acuity/internal/triage"
)

// fakeService satisfies TriageService with canned answers.
type fakeService struct {
	submitResult *triage.SubmitResult
	submitErr    error
	getResult    *triage.Result
	getOK        bool
	getErr       error
	stageResult  *triage.StageResult
	stageErr     error

	lastInput patient.Input
	lastStage string
}

func (f *fakeService) Submit(_ context.Context, in patient.Input) (*triage.SubmitResult, error) {
	f.lastInput = in
	return f.submitResult, f.submitErr
}

func (f *fakeService) Get(context.Context, string) (*triage.Result, bool, error) {
	return f.getResult, f.getOK, f.getErr
}

func (f *fakeService) RunStage(_ context.Context, in patient.Input, stage string) (*triage.StageResult, error) {
	f.lastInput = in
	f.lastStage = stage
	return f.stageResult, f.stageErr
}

func newTestRouter(t *testing.T, svc TriageService) chi.Router {
	t.Helper()
	r := chi.NewRouter()
	New(nil, svc).RegisterRoutes(r)
	return r
}

//  New / constructor

func TestNew_NilLogger(t *testing.T) {
	t.Parallel()

	api := New(nil, &fakeService{})
	if api == nil {
		t.Fatal("New(nil, svc) returned nil API")
	}
	if api.logger == nil {
		t.Fatal("New(nil, svc) left logger nil; expected Nop logger")
	}
}

func TestNew_WithLogger(t *testing.T) {
	t.Parallel()

	api := New(log.Nop(), &fakeService{})
	if api == nil {
		t.Fatal("New(logger, svc) returned nil API")
	}
}

func TestNew_NilService_Panics(t *testing.T) {
	t.Parallel()

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("New(nil, nil) did not panic; expected panic for nil service")
		}
	}()
	New(nil, nil)
}

// Submit

func TestSubmit_Accepted(t *testing.T) {
	t.Parallel()

	svc := &fakeService{submitResult: &triage.SubmitResult{ID: "01TESTULID"}}
	r := newTestRouter(t, svc)

	body := `{"symptoms":"chest pain","age":58,"vitals":{"heart_rate":120}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/triage", strings.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d (body: %s)", rec.Code, http.StatusAccepted, rec.Body.String())
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["id"] != "01TESTULID" {
		t.Errorf("id = %v, want 01TESTULID", resp["id"])
	}
	if _, dup := resp["duplicate"]; dup {
		t.Error("duplicate flag set on fresh submission")
	}
	if svc.lastInput.Symptoms != "chest pain" {
		t.Errorf("service saw symptoms %q, want chest pain", svc.lastInput.Symptoms)
	}
	// numeric vitals are coerced to text at decode time
	if svc.lastInput.Vitals["heart_rate"] != "120" {
		t.Errorf("heart_rate = %q, want 120", svc.lastInput.Vitals["heart_rate"])
	}
}

func TestSubmit_DuplicateReusesRun(t *testing.T) {
	t.Parallel()

	svc := &fakeService{submitResult: &triage.SubmitResult{ID: "01EXISTING", Skipped: true, Reason: "duplicate"}}
	r := newTestRouter(t, svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/triage", strings.NewReader(`{"symptoms":"chest pain","age":58}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusAccepted)
	}
	var resp map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["id"] != "01EXISTING" {
		t.Errorf("id = %v, want the existing run id", resp["id"])
	}
	if resp["duplicate"] != true {
		t.Errorf("duplicate = %v, want true", resp["duplicate"])
	}
}

func TestSubmit_QueueFull(t *testing.T) {
	t.Parallel()

	svc := &fakeService{submitErr: triage.ErrQueueFull}
	r := newTestRouter(t, svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/triage", strings.NewReader(`{"symptoms":"chest pain","age":58}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("Retry-After header missing on backpressure response")
	}
}

func TestSubmit_InvalidInput(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t, &fakeService{})

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{bad`},
		{"empty symptoms", `{"symptoms":"  ","age":30}`},
		{"age out of range", `{"symptoms":"cough","age":200}`},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodPost, "/api/v1/triage", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
		})
	}
}

// Get

func TestGet_Found(t *testing.T) {
	t.Parallel()

	svc := &fakeService{
		getResult: &triage.Result{
			ID:        "01TESTULID",
			Status:    triage.StatusComplete,
			CreatedAt: time.Now(),
			Recommendation: &triage.Recommendation{
				UrgencyLevel: "High",
				Priority:     1,
				ColorCode:    "Red",
			},
		},
		getOK: true,
	}
	r := newTestRouter(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/triage/01TESTULID", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var got triage.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Status != triage.StatusComplete {
		t.Errorf("Status = %q, want %q", got.Status, triage.StatusComplete)
	}
	if got.Recommendation == nil || got.Recommendation.UrgencyLevel != "High" {
		t.Errorf("Recommendation = %+v, want High urgency", got.Recommendation)
	}
}

func TestGet_NotFound(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t, &fakeService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/triage/missing", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

// RunStage

func TestRunStage_OK(t *testing.T) {
	t.Parallel()

	svc := &fakeService{
		stageResult: &triage.StageResult{
			Stage:   triage.StageRisk,
			Payload: json.RawMessage(`{"risk_score":0.9}`),
		},
	}
	r := newTestRouter(t, svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/stages/risk-stratification", strings.NewReader(`{"symptoms":"chest pain","age":58}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (body: %s)", rec.Code, http.StatusOK, rec.Body.String())
	}
	if svc.lastStage != "risk-stratification" {
		t.Errorf("service saw stage %q, want risk-stratification", svc.lastStage)
	}
	var got triage.StageResult
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Stage != triage.StageRisk {
		t.Errorf("Stage = %q, want %q", got.Stage, triage.StageRisk)
	}
}

func TestRunStage_Unknown(t *testing.T) {
	t.Parallel()

	svc := &fakeService{stageErr: errors.New(`unknown stage "nonsense"`)}
	r := newTestRouter(t, svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/stages/nonsense", strings.NewReader(`{"symptoms":"cough","age":30}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}
