// Package metrics exposes the pipeline's Prometheus instrumentation:
// throughput per stream/stage, dedup hit rate, LLM call latency, and
// alert counts. Structured the way the teacher's observability.Metrics
// groups related counters/histograms behind named Track* helpers, but
// built on the real prometheus/client_golang registry rather than a
// hand-rolled exposition writer.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is the pipeline's Prometheus registry and named instruments.
type Metrics struct {
	registry *prometheus.Registry

	eventsProcessed  *prometheus.CounterVec
	eventsFailed     *prometheus.CounterVec
	dedupHits        prometheus.Counter
	dedupMisses      prometheus.Counter
	llmLatency       *prometheus.HistogramVec
	llmFailures      *prometheus.CounterVec
	relevanceScore   prometheus.Histogram
	alertsCreated    *prometheus.CounterVec
	streamLag        *prometheus.GaugeVec
}

// New builds a Metrics registry with every pipeline instrument
// registered.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		eventsProcessed: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "riskpipe_stage_events_processed_total",
			Help: "Records successfully processed by each pipeline stage.",
		}, []string{"stage"}),
		eventsFailed: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "riskpipe_stage_events_failed_total",
			Help: "Records that failed processing at each pipeline stage, by error kind.",
		}, []string{"stage", "error_kind"}),
		dedupHits: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "riskpipe_dedup_hits_total",
			Help: "Articles rejected as duplicates by the dedup index.",
		}),
		dedupMisses: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "riskpipe_dedup_misses_total",
			Help: "Articles accepted as novel by the dedup index.",
		}),
		llmLatency: promauto.With(registry).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "riskpipe_llm_call_duration_seconds",
			Help:    "LLM call latency by model tier.",
			Buckets: prometheus.DefBuckets,
		}, []string{"tier"}),
		llmFailures: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "riskpipe_llm_call_failures_total",
			Help: "LLM calls that returned an error, by model tier.",
		}, []string{"tier"}),
		relevanceScore: promauto.With(registry).NewHistogram(prometheus.HistogramOpts{
			Name:    "riskpipe_relevance_score",
			Help:    "Distribution of computed article relevance scores.",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		}),
		alertsCreated: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "riskpipe_alerts_created_total",
			Help: "Alerts created, by severity band.",
		}, []string{"severity_band"}),
		streamLag: promauto.With(registry).NewGaugeVec(prometheus.GaugeOpts{
			Name: "riskpipe_stream_pending_entries",
			Help: "Pending (unacked) entries per stream consumer group.",
		}, []string{"stream", "group"}),
	}

	return m
}

// Registry exposes the underlying registry for promhttp.HandlerFor.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) RecordProcessed(stage string) {
	m.eventsProcessed.WithLabelValues(stage).Inc()
}

func (m *Metrics) RecordFailed(stage, errorKind string) {
	m.eventsFailed.WithLabelValues(stage, errorKind).Inc()
}

func (m *Metrics) RecordDedup(isNovel bool) {
	if isNovel {
		m.dedupMisses.Inc()
		return
	}
	m.dedupHits.Inc()
}

func (m *Metrics) RecordLLMLatency(tier string, seconds float64) {
	m.llmLatency.WithLabelValues(tier).Observe(seconds)
}

func (m *Metrics) RecordLLMFailure(tier string) {
	m.llmFailures.WithLabelValues(tier).Inc()
}

func (m *Metrics) RecordRelevanceScore(score float64) {
	m.relevanceScore.Observe(score)
}

func (m *Metrics) RecordAlertCreated(severityBand string) {
	m.alertsCreated.WithLabelValues(severityBand).Inc()
}

func (m *Metrics) SetStreamLag(stream, group string, pending float64) {
	m.streamLag.WithLabelValues(stream, group).Set(pending)
}
