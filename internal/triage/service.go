package triage

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"github.com/oklog/ulid/v2"

	"github.com/linnemanlabs/acuity/internal/patient"
)

// ErrQueueFull is returned by Submit when the worker queue cannot accept
// another run. Callers should surface it as backpressure, not failure.
var ErrQueueFull = errors.New("triage: worker queue full")

// Notifier is told about completed runs. Implementations decide which
// results are worth forwarding.
type Notifier interface {
	Notify(ctx context.Context, result *Result) error
}

// SubmitResult is the outcome of submitting a patient for triage.
type SubmitResult struct {
	ID      string
	Skipped bool
	Reason  string
}

// ServiceOptions size the worker pool that keeps blocking lookups off the
// request path.
type ServiceOptions struct {
	Workers   int
	QueueSize int
}

func (o ServiceOptions) withDefaults() ServiceOptions {
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.QueueSize <= 0 {
		o.QueueSize = 64
	}
	return o
}

// Service is the business boundary for triage operations: dedup, lifecycle,
// and async dispatch through a bounded worker pool.
type Service struct {
	store    Store
	pipeline *Pipeline
	logger   log.Logger
	metrics  *Metrics
	notifier Notifier

	jobs   chan job
	wg     sync.WaitGroup
	closed chan struct{}
}

type job struct {
	id    string
	input patient.Input
}

// NewService creates the triage service and starts its workers.
func NewService(store Store, pipeline *Pipeline, logger log.Logger, metrics *Metrics, notifier Notifier, opts ServiceOptions) *Service {
	if logger == nil {
		logger = log.Nop()
	}
	opts = opts.withDefaults()

	s := &Service{
		store:    store,
		pipeline: pipeline,
		logger:   logger,
		metrics:  metrics,
		notifier: notifier,
		jobs:     make(chan job, opts.QueueSize),
		closed:   make(chan struct{}),
	}

	for i := 0; i < opts.Workers; i++ {
		s.wg.Add(1)
		go s.worker()
	}
	return s
}

// Submit accepts a patient for triage, handling dedup and lifecycle. The
// run executes asynchronously; callers poll Get for the outcome.
func (s *Service) Submit(ctx context.Context, in patient.Input) (*SubmitResult, error) {
	select {
	case <-s.closed:
		return nil, errors.New("triage: service stopped")
	default:
	}

	fp := in.Fingerprint()

	// dedup: an equivalent submission already pending or running is reused
	if existing, ok, err := s.store.GetByFingerprint(ctx, fp); err != nil {
		return nil, err
	} else if ok && (existing.Status == StatusPending || existing.Status == StatusInProgress) {
		s.count("duplicate")
		return &SubmitResult{ID: existing.ID, Skipped: true, Reason: "duplicate"}, nil
	}

	id := ulid.Make().String()
	result := &Result{
		ID:          id,
		Fingerprint: fp,
		Status:      StatusPending,
		Input:       in,
		CreatedAt:   time.Now(),
	}

	if err := s.store.Put(ctx, result); err != nil {
		return nil, err
	}

	select {
	case s.jobs <- job{id: id, input: in}:
	default:
		// backpressure: mark the reserved record failed so pollers aren't
		// left with a pending run that will never execute
		result.Status = StatusFailed
		result.Error = "worker queue full"
		result.CompletedAt = time.Now()
		if err := s.store.Put(ctx, result); err != nil {
			s.logger.Error(ctx, err, "failed to mark queue-full run failed", "id", id)
		}
		s.count("queue_full")
		return nil, ErrQueueFull
	}

	s.count("accepted")
	s.gaugeQueue()
	return &SubmitResult{ID: id}, nil
}

// Get retrieves a triage run by ID.
func (s *Service) Get(ctx context.Context, id string) (*Result, bool, error) {
	return s.store.Get(ctx, id)
}

// RunStage executes the pipeline prefix ending at the named stage
// synchronously and returns that stage's result. Nothing is persisted.
func (s *Service) RunStage(ctx context.Context, in patient.Input, stage string) (*StageResult, error) {
	outcome, err := s.pipeline.RunThrough(ctx, in, stage)
	if err != nil {
		return nil, err
	}
	for i := range outcome.Stages {
		if outcome.Stages[i].Stage == stage {
			return &outcome.Stages[i], nil
		}
	}
	return nil, errors.New("stage produced no result")
}

// Stop drains the queue and waits for in-flight runs, bounded by ctx.
func (s *Service) Stop(ctx context.Context) error {
	close(s.closed)
	close(s.jobs)

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) worker() {
	defer s.wg.Done()
	// worker lifetime is bounded by Stop, not by any request context
	ctx := context.Background()
	for j := range s.jobs {
		s.gaugeQueue()
		s.run(ctx, j)
	}
}

func (s *Service) run(ctx context.Context, j job) {
	L := s.logger.With("triage_id", j.id)

	result, ok, err := s.store.Get(ctx, j.id)
	if err != nil || !ok {
		L.Error(ctx, err, "failed to fetch result for triage run")
		return
	}

	result.Status = StatusInProgress
	if err := s.store.Put(ctx, result); err != nil {
		L.Error(ctx, err, "failed to update status to in_progress")
		return
	}

	outcome := s.pipeline.Run(ctx, j.input)

	result.Status = StatusComplete
	result.Stages = outcome.Stages
	result.Recommendation = outcome.Recommendation
	result.CompletedAt = time.Now()
	result.Duration = outcome.Duration
	if outcome.Recommendation == nil {
		// only a runtime-level failure leaves no recommendation at all
		result.Status = StatusFailed
		result.Error = "pipeline produced no recommendation"
	}

	if err := s.store.Put(ctx, result); err != nil {
		L.Error(ctx, err, "failed to persist triage result")
		return
	}

	if s.metrics != nil {
		s.metrics.RunsTotal.WithLabelValues(string(result.Status)).Inc()
		s.metrics.RunDuration.WithLabelValues(string(result.Status)).Observe(result.Duration)
	}

	L.Info(ctx, "triage run complete",
		"status", result.Status,
		"duration", result.Duration,
		"stages", len(result.Stages),
		"degraded", len(result.DegradedStages()),
	)

	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, result); err != nil {
			L.Warn(ctx, "notifier failed", "error", err)
		}
	}
}

func (s *Service) count(outcome string) {
	if s.metrics != nil {
		s.metrics.SubmitsTotal.WithLabelValues(outcome).Inc()
	}
}

func (s *Service) gaugeQueue() {
	if s.metrics != nil {
		s.metrics.QueueDepth.Set(float64(len(s.jobs)))
	}
}
