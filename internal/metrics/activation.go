// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	StageTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "castlog_stage_transitions_total",
		Help: "Committed activation stage transitions",
	}, []string{"from", "to", "event"})

	presentationState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "castlog_presentation_state",
		Help: "Current presentation state (active one is 1, others 0)",
	}, []string{"state"})

	EventsDiscardedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "castlog_events_discarded_total",
		Help: "Callbacks discarded by the activation coordinator",
	}, []string{"source", "reason"})
)

var presentationStates = []string{"initializing", "active", "standby", "disconnected"}

// RecordStageTransition counts a committed transition.
func RecordStageTransition(from, to, event string) {
	StageTransitionsTotal.WithLabelValues(from, to, event).Inc()
}

// SetPresentationState records the active presentation state.
func SetPresentationState(state string) {
	for _, s := range presentationStates {
		value := 0.0
		if s == state {
			value = 1.0
		}
		presentationState.WithLabelValues(s).Set(value)
	}
}

// RecordDiscarded counts a stage, network or timer callback dropped after lock.
func RecordDiscarded(source, reason string) {
	if reason == "" {
		reason = "unknown"
	}
	EventsDiscardedTotal.WithLabelValues(source, reason).Inc()
}
