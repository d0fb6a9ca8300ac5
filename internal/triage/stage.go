package triage

import (
	"context"
	"fmt"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/linnemanlabs/acuity/internal/patient"
)

// Stage is one computation unit of the pipeline. Run reads prior outputs
// from the shared context and returns its typed payload. A returned error
// degrades the stage; it never aborts the run. Stages must not write to the
// context themselves, the pipeline publishes on their behalf.
type Stage interface {
	Name() string
	Run(ctx context.Context, tc *Context) (any, error)
}

// Hooks let callers observe pipeline execution without coupling the
// pipeline to a metrics backend.
type Hooks struct {
	OnStage    func(stage string, degraded bool, duration float64)
	OnComplete func(e *CompleteEvent)
}

// CompleteEvent summarizes one finished run.
type CompleteEvent struct {
	Status         Status
	Duration       float64
	StagesDegraded int
}

// RunOutcome is what one pipeline execution produced.
type RunOutcome struct {
	Stages         []StageResult
	Recommendation *Recommendation
	Duration       float64
}

// Pipeline executes a fixed, ordered stage list over a fresh Context per
// run. Stage failures and panics become degraded stage results; the run
// itself always completes.
type Pipeline struct {
	stages []Stage
	logger log.Logger
	hooks  Hooks
}

// NewPipeline builds a pipeline over the given stages, executed in order.
func NewPipeline(lg log.Logger, hooks Hooks, stages ...Stage) *Pipeline {
	if lg == nil {
		lg = log.Nop()
	}
	return &Pipeline{
		stages: stages,
		logger: lg,
		hooks:  hooks,
	}
}

// StageNames returns the pipeline's stage order.
func (p *Pipeline) StageNames() []string {
	out := make([]string, len(p.stages))
	for i, st := range p.stages {
		out[i] = st.Name()
	}
	return out
}

// Run executes every stage over the input and assembles the outcome.
func (p *Pipeline) Run(ctx context.Context, in patient.Input) *RunOutcome {
	return p.run(ctx, in, "")
}

// RunThrough executes the pipeline prefix up to and including the named
// stage. Used by the standalone per-stage endpoints.
func (p *Pipeline) RunThrough(ctx context.Context, in patient.Input, stage string) (*RunOutcome, error) {
	for _, st := range p.stages {
		if st.Name() == stage {
			return p.run(ctx, in, stage), nil
		}
	}
	return nil, fmt.Errorf("unknown stage %q", stage)
}

func (p *Pipeline) run(ctx context.Context, in patient.Input, lastStage string) *RunOutcome {
	tracer := otel.Tracer("acuity/triage")
	ctx, span := tracer.Start(ctx, "pipeline.run")
	defer span.End()

	start := time.Now()
	tc := NewContext(in)

	degraded := 0
	for _, st := range p.stages {
		if p.runStage(ctx, st, tc) {
			degraded++
		}
		if lastStage != "" && st.Name() == lastStage {
			break
		}
	}

	duration := time.Since(start).Seconds()
	span.SetAttributes(
		attribute.Int("acuity.pipeline.stages_degraded", degraded),
		attribute.Float64("acuity.pipeline.duration_seconds", duration),
	)

	out := &RunOutcome{
		Stages:   tc.Snapshot(),
		Duration: duration,
	}
	if rec, ok := tc.Recommendation(); ok {
		out.Recommendation = &rec
	}

	if p.hooks.OnComplete != nil {
		p.hooks.OnComplete(&CompleteEvent{
			Status:         StatusComplete,
			Duration:       duration,
			StagesDegraded: degraded,
		})
	}
	return out
}

// runStage invokes one stage with panic recovery and publishes its record.
// Reports whether the stage degraded.
func (p *Pipeline) runStage(ctx context.Context, st Stage, tc *Context) bool {
	tracer := otel.Tracer("acuity/triage")
	ctx, span := tracer.Start(ctx, "pipeline.stage."+st.Name())
	defer span.End()

	start := time.Now()
	payload, err := p.invoke(ctx, st, tc)
	duration := time.Since(start).Seconds()

	rec := stageRecord{
		payload:   payload,
		startedAt: start,
		duration:  duration,
	}
	if err != nil {
		rec.degraded = true
		rec.message = err.Error()
		p.logger.Warn(ctx, "stage degraded", "stage", st.Name(), "error", err)
	}

	span.SetAttributes(
		attribute.String("acuity.stage.name", st.Name()),
		attribute.Bool("acuity.stage.degraded", rec.degraded),
	)

	if pubErr := tc.publish(st.Name(), rec); pubErr != nil {
		// duplicate stage names are a wiring bug, not a runtime condition
		p.logger.Error(ctx, pubErr, "stage publish failed", "stage", st.Name())
	}

	if p.hooks.OnStage != nil {
		p.hooks.OnStage(st.Name(), rec.degraded, duration)
	}
	return rec.degraded
}

// invoke calls the stage, converting a panic into a degradation error.
func (p *Pipeline) invoke(ctx context.Context, st Stage, tc *Context) (payload any, err error) {
	defer func() {
		if r := recover(); r != nil {
			payload = nil
			err = fmt.Errorf("stage panic: %v", r)
		}
	}()
	return st.Run(ctx, tc)
}
