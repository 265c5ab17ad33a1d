package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Assistant request outcomes.
const (
	OutcomeReplied             = "replied"
	OutcomeFallbackUnavailable = "fallback_unavailable"
	OutcomeFallbackMalformed   = "fallback_malformed"
	OutcomeRejected            = "rejected"
)

// AssistantMetrics records per-request outcomes and event-sink drops.
type AssistantMetrics struct {
	requests        *prometheus.CounterVec
	eventsDropped   prometheus.Counter
	eventsPublished prometheus.Counter
}

// NewAssistantMetrics registers the assistant metrics on the provided registerer.
func NewAssistantMetrics(reg prometheus.Registerer) *AssistantMetrics {
	if reg == nil {
		return &AssistantMetrics{}
	}
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "assistant_requests_total",
		Help: "Assistant requests by outcome.",
	}, []string{"outcome"})
	dropped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "assistant_events_dropped_total",
		Help: "Interaction events dropped before reaching the sink.",
	})
	published := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "assistant_events_published_total",
		Help: "Interaction events delivered to the sink.",
	})
	reg.MustRegister(requests, dropped, published)
	return &AssistantMetrics{
		requests:        requests,
		eventsDropped:   dropped,
		eventsPublished: published,
	}
}

// IncOutcome increments the request counter for the given outcome.
func (m *AssistantMetrics) IncOutcome(outcome string) {
	if m == nil || m.requests == nil {
		return
	}
	if outcome == "" {
		outcome = "unknown"
	}
	m.requests.WithLabelValues(outcome).Inc()
}

// IncEventDropped increments the dropped-event counter.
func (m *AssistantMetrics) IncEventDropped() {
	if m == nil || m.eventsDropped == nil {
		return
	}
	m.eventsDropped.Inc()
}

// IncEventPublished increments the published-event counter.
func (m *AssistantMetrics) IncEventPublished() {
	if m == nil || m.eventsPublished == nil {
		return
	}
	m.eventsPublished.Inc()
}
