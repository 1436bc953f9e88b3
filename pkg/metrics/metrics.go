// Package metrics exposes the accountability runtime's Prometheus
// instrumentation: Gate stage latency, Threshold collection time,
// Attention exhaustion events, and Journal append rate, per SPEC_FULL's
// domain stack. The teacher exports traces through OpenTelemetry; this
// runtime has no span-carrying RPC surface to propagate a trace context
// across (spec Non-goal: no second transport), so the pack's bare
// Prometheus client is wired directly instead of through an
// OTel-metrics bridge.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry bundles every collector the runtime registers. A nil *Registry
// is safe to call methods on — every method is a no-op — so callers that
// construct the runtime without a metrics endpoint configured don't need
// a second code path.
type Registry struct {
	gateStageDuration    *prometheus.HistogramVec
	gateDecisions        *prometheus.CounterVec
	thresholdCollectTime prometheus.Histogram
	attentionExhaustions *prometheus.CounterVec
	journalAppends       prometheus.Counter
}

// New registers the runtime's collectors against reg and returns the
// handle components use to record observations.
func New(reg prometheus.Registerer) *Registry {
	m := &Registry{
		gateStageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "accord",
			Subsystem: "gate",
			Name:      "stage_duration_seconds",
			Help:      "Duration of each Commitment Gate Pipeline stage.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
		gateDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "accord",
			Subsystem: "gate",
			Name:      "decisions_total",
			Help:      "Final Gate decisions by outcome.",
		}, []string{"decision"}),
		thresholdCollectTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "accord",
			Subsystem: "threshold",
			Name:      "collection_seconds",
			Help:      "Time to collect a quorum of co-signatures for a ThresholdCommitment.",
			Buckets:   prometheus.DefBuckets,
		}),
		attentionExhaustions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "accord",
			Subsystem: "attention",
			Name:      "exhaustion_events_total",
			Help:      "Attention budget exhaustion events by policy applied.",
		}, []string{"policy"}),
		journalAppends: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "accord",
			Subsystem: "journal",
			Name:      "appends_total",
			Help:      "Audit journal entries appended.",
		}),
	}

	reg.MustRegister(
		m.gateStageDuration,
		m.gateDecisions,
		m.thresholdCollectTime,
		m.attentionExhaustions,
		m.journalAppends,
	)
	return m
}

func (m *Registry) ObserveGateStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.gateStageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (m *Registry) RecordGateDecision(decision string) {
	if m == nil {
		return
	}
	m.gateDecisions.WithLabelValues(decision).Inc()
}

func (m *Registry) ObserveThresholdCollection(d time.Duration) {
	if m == nil {
		return
	}
	m.thresholdCollectTime.Observe(d.Seconds())
}

func (m *Registry) RecordAttentionExhaustion(policy string) {
	if m == nil {
		return
	}
	m.attentionExhaustions.WithLabelValues(policy).Inc()
}

func (m *Registry) RecordJournalAppend() {
	if m == nil {
		return
	}
	m.journalAppends.Inc()
}
