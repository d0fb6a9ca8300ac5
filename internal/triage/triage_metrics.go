package triage

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for the triage subsystem.
type Metrics struct {
	RunsTotal      *prometheus.CounterVec
	RunDuration    *prometheus.HistogramVec
	StageDuration  *prometheus.HistogramVec
	StagesDegraded *prometheus.CounterVec
	SubmitsTotal   *prometheus.CounterVec
	QueueDepth     prometheus.Gauge
}

// NewMetrics registers and returns triage metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "acuity_triage_runs_total",
			Help: "Total triage runs by final status.",
		}, []string{"status"}),
		RunDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "acuity_triage_run_duration_seconds",
			Help:    "Duration of triage runs in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms .. ~200s
		}, []string{"status"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "acuity_stage_duration_seconds",
			Help:    "Duration of individual pipeline stages in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10), // 1ms .. ~260s
		}, []string{"stage"}),
		StagesDegraded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "acuity_stages_degraded_total",
			Help: "Total stage executions that degraded, by stage.",
		}, []string{"stage"}),
		SubmitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "acuity_submits_total",
			Help: "Total triage submissions by result.",
		}, []string{"result"}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "acuity_triage_queue_depth",
			Help: "Triage runs waiting in the worker queue.",
		}),
	}

	reg.MustRegister(
		m.RunsTotal,
		m.RunDuration,
		m.StageDuration,
		m.StagesDegraded,
		m.SubmitsTotal,
		m.QueueDepth,
	)

	return m
}

// Hooks returns pipeline Hooks that record the corresponding metrics.
func (m *Metrics) Hooks() Hooks {
	return Hooks{
		OnStage: func(stage string, degraded bool, duration float64) {
			m.StageDuration.WithLabelValues(stage).Observe(duration)
			if degraded {
				m.StagesDegraded.WithLabelValues(stage).Inc()
			}
		},
	}
}
