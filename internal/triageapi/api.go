// Package triageapi exposes the triage service over HTTP: submit a patient
// for asynchronous triage, poll for the result, and run individual pipeline
// stages synchronously.
package triageapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/linnemanlabs/acuity/internal/patient"
	"github.com/linnemanlabs/acuity/internal/triage"
)

// TriageService defines the business operations the API needs.
type TriageService interface {
	Submit(ctx context.Context, in patient.Input) (*triage.SubmitResult, error)
	Get(ctx context.Context, id string) (*triage.Result, bool, error)
	RunStage(ctx context.Context, in patient.Input, stage string) (*triage.StageResult, error)
}

// API holds dependencies for HTTP handlers.
type API struct {
	logger log.Logger
	svc    TriageService
}

// New creates a new API handler.
func New(logger log.Logger, svc TriageService) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if svc == nil {
		panic(xerrors.New("triage service is required"))
	}
	return &API{
		logger: logger,
		svc:    svc,
	}
}

// RegisterRoutes attaches API endpoints to the router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/triage", a.handleSubmit)
		r.Get("/triage/{id}", a.handleGet)
		r.Post("/stages/{name}", a.handleRunStage)
	})
}

func (a *API) handleSubmit(w http.ResponseWriter, r *http.Request) {
	in, ok := a.decodeInput(w, r)
	if !ok {
		return
	}

	res, err := a.svc.Submit(r.Context(), in)
	if err != nil {
		if errors.Is(err, triage.ErrQueueFull) {
			w.Header().Set("Retry-After", "5")
			http.Error(w, `{"error":"triage queue full"}`, http.StatusServiceUnavailable)
			return
		}
		a.logger.Error(r.Context(), err, "triage submit failed")
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(
		attribute.String("acuity.triage.id", res.ID),
		attribute.Bool("acuity.triage.duplicate", res.Skipped),
	)

	body := map[string]any{"id": res.ID, "status": string(triage.StatusPending)}
	if res.Skipped {
		// an equivalent submission is already in flight; point the caller at it
		body["duplicate"] = true
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(body)
}

func (a *API) handleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("acuity.triage.id", id))

	result, ok, err := a.svc.Get(r.Context(), id)
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to get triage result", "id", id)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return
	}

	span.SetAttributes(attribute.String("acuity.triage.status", string(result.Status)))

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(result)
}

func (a *API) handleRunStage(w http.ResponseWriter, r *http.Request) {
	stage := chi.URLParam(r, "name")

	in, ok := a.decodeInput(w, r)
	if !ok {
		return
	}

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("acuity.stage.name", stage))

	result, err := a.svc.RunStage(r.Context(), in, stage)
	if err != nil {
		if strings.Contains(err.Error(), "unknown stage") {
			http.Error(w, `{"error":"unknown stage"}`, http.StatusNotFound)
			return
		}
		a.logger.Error(r.Context(), err, "stage run failed", "stage", stage)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(result)
}

// decodeInput parses and validates the intake body, writing the error
// response itself on failure.
func (a *API) decodeInput(w http.ResponseWriter, r *http.Request) (patient.Input, bool) {
	var in patient.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, `{"error":"invalid payload"}`, http.StatusBadRequest)
		return in, false
	}
	if err := in.Validate(); err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return in, false
	}
	return in, true
}
