package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ElectionState — текущее состояние выборов (одно значение = 1).
	ElectionState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "exosphere_election_state",
		Help: "Current leader election state of this instance (1 for the active state)",
	}, []string{"state"})

	// ElectionTransitions — переходы между состояниями выборов.
	ElectionTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "exosphere_election_transitions_total",
		Help: "Leader election state transitions",
	}, []string{"from", "to"})

	// Reconciliations — запуски reconcile, result: noop|resolved|failed.
	Reconciliations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "exosphere_reconciliations_total",
		Help: "Primary reconciliation runs by result",
	}, []string{"result"})

	// ProbeLatency — задержка до хранилища.
	ProbeLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "exosphere_probe_latency_seconds",
		Help:    "Round-trip latency to the registry host",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
	})

	// ProbeFailures — неудачные замеры задержки.
	ProbeFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "exosphere_probe_failures_total",
		Help: "Failed latency probes",
	})

	// RegistryErrors — ошибки операций реестра.
	RegistryErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "exosphere_registry_errors_total",
		Help: "Registry store operation failures by operation",
	}, []string{"op"})

	// JobEvaluations — результаты проверки готовности jobs.
	JobEvaluations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "exosphere_job_evaluations_total",
		Help: "Job readiness evaluations by result",
	}, []string{"result"})

	// JobsPublished — опубликованные jobs, path: cron|trigger.
	JobsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "exosphere_jobs_published_total",
		Help: "Jobs handed to the queue by schedule path",
	}, []string{"path"})

	// PublishFailures — неудачные публикации.
	PublishFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "exosphere_publish_failures_total",
		Help: "Failed job publications",
	})

	// SweepDuration — длительность одного прохода по каталогу.
	SweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "exosphere_sweep_duration_seconds",
		Help:    "Duration of a full job catalog sweep",
		Buckets: prometheus.DefBuckets,
	})
)
