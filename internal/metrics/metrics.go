// Package metrics exposes Prometheus instrumentation for the backend.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	SessionsStarted  prometheus.Counter
	SessionsFinished prometheus.Counter
	ActiveSessions   prometheus.Gauge
	SessionDuration  prometheus.Histogram

	TokensRouted  *prometheus.CounterVec
	TokensDropped prometheus.Counter

	EntriesExported  prometheus.Counter
	RecognizerErrors prometheus.Counter
	WebhookFailures  prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SessionsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "duoscribe_sessions_started_total",
			Help: "Number of transcription sessions started.",
		}),
		SessionsFinished: factory.NewCounter(prometheus.CounterOpts{
			Name: "duoscribe_sessions_finished_total",
			Help: "Number of transcription sessions finished.",
		}),
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "duoscribe_active_sessions",
			Help: "Number of currently running transcription sessions.",
		}),
		SessionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "duoscribe_session_duration_seconds",
			Help:    "Duration of finished transcription sessions.",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10),
		}),
		TokensRouted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "duoscribe_tokens_routed_total",
			Help: "Number of recognized tokens routed into conversation views.",
		}, []string{"kind"}),
		TokensDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "duoscribe_tokens_dropped_total",
			Help: "Number of tokens dropped during normalization.",
		}),
		EntriesExported: factory.NewCounter(prometheus.CounterOpts{
			Name: "duoscribe_entries_exported_total",
			Help: "Number of conversation entries persisted at session end.",
		}),
		RecognizerErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "duoscribe_recognizer_errors_total",
			Help: "Number of errors reported by the speech recognition backend.",
		}),
		WebhookFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "duoscribe_webhook_failures_total",
			Help: "Number of failed conversation webhook deliveries.",
		}),
	}
}

func (m *Metrics) RecordSessionStart() {
	m.SessionsStarted.Inc()
	m.ActiveSessions.Inc()
}

func (m *Metrics) RecordSessionEnd(duration time.Duration) {
	m.SessionsFinished.Inc()
	m.ActiveSessions.Dec()
	m.SessionDuration.Observe(duration.Seconds())
}

func (m *Metrics) RecordToken(final bool) {
	kind := "partial"
	if final {
		kind = "final"
	}
	m.TokensRouted.WithLabelValues(kind).Inc()
}
