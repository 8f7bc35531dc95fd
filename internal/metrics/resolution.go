// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Resolution sources.
const (
	SourceTemporary = "temporary"
	SourceFresh     = "fresh"
	SourceCached    = "cached"
	SourceInactive  = "inactive"
	SourceNone      = "none"
)

var (
	GatewayChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "castlog_gateway_checks_total",
		Help: "Validation gateway verdicts (granted, denied, error)",
	}, []string{"result"})

	ResolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "castlog_resolutions_total",
		Help: "Destination resolution outcomes by source",
	}, []string{"source"})

	UpstreamRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "castlog_upstream_requests_total",
		Help: "Outbound requests to attribution and destination endpoints",
	}, []string{"operation", "outcome"})

	ConnectivityChangesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "castlog_connectivity_changes_total",
		Help: "Connectivity transitions observed by the network watcher",
	}, []string{"connected"})
)

// RecordGatewayCheck counts a validation verdict.
func RecordGatewayCheck(result string) {
	GatewayChecksTotal.WithLabelValues(result).Inc()
}

// RecordResolution counts where a destination came from.
func RecordResolution(source string) {
	ResolutionsTotal.WithLabelValues(source).Inc()
}

// RecordUpstream counts an outbound call outcome ("ok" or an error class).
func RecordUpstream(operation, outcome string) {
	UpstreamRequestsTotal.WithLabelValues(operation, outcome).Inc()
}

// RecordConnectivityChange counts a watcher transition.
func RecordConnectivityChange(connected bool) {
	label := "false"
	if connected {
		label = "true"
	}
	ConnectivityChangesTotal.WithLabelValues(label).Inc()
}
