package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the Prometheus instruments used by the intake services.
type Metrics struct {
	TurnsProcessed  *prometheus.CounterVec
	LeadsSecured    prometheus.Counter
	NudgesEnqueued  prometheus.Counter
	SweepRuns       *prometheus.CounterVec
	LeadsFinalized  prometheus.Counter
	PendingFollowUp prometheus.Gauge
}

func New(namespace string) *Metrics {
	return &Metrics{
		TurnsProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Conversation turns processed, by resulting step.",
		}, []string{"step"}),
		LeadsSecured: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "leads_secured_total",
			Help:      "Leads that completed the full intake sequence.",
		}),
		NudgesEnqueued: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nudges_enqueued_total",
			Help:      "Proactive follow-up messages handed to the delivery queue.",
		}),
		SweepRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_runs_total",
			Help:      "Follow-up sweeps by result.",
		}, []string{"result"}),
		LeadsFinalized: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "declines_finalized_total",
			Help:      "Leads moved from the decline grace period to declined_final.",
		}),
		PendingFollowUp: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_followups",
			Help:      "Messages currently waiting in the delivery queue.",
		}),
	}
}

// The recording helpers are nil-safe so that services constructed without
// instrumentation (tests, scripts) need no stub registry.

func (m *Metrics) RecordTurn(step string) {
	if m == nil {
		return
	}
	m.TurnsProcessed.WithLabelValues(step).Inc()
}

func (m *Metrics) RecordSecured() {
	if m == nil {
		return
	}
	m.LeadsSecured.Inc()
}

func (m *Metrics) RecordNudge() {
	if m == nil {
		return
	}
	m.NudgesEnqueued.Inc()
}

func (m *Metrics) RecordSweep(result string) {
	if m == nil {
		return
	}
	m.SweepRuns.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordDeclineFinalized() {
	if m == nil {
		return
	}
	m.LeadsFinalized.Inc()
}

func (m *Metrics) SetPendingFollowUps(n int) {
	if m == nil {
		return
	}
	m.PendingFollowUp.Set(float64(n))
}

func Handler() http.Handler {
	return promhttp.Handler()
}
