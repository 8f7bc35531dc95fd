// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package metrics_test

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ManuGH/castlog/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRecordResolution_Increments(t *testing.T) {
	before := testutil.ToFloat64(metrics.ResolutionsTotal.WithLabelValues(metrics.SourceCached))
	metrics.RecordResolution(metrics.SourceCached)
	after := testutil.ToFloat64(metrics.ResolutionsTotal.WithLabelValues(metrics.SourceCached))
	require.Equal(t, before+1, after)
}

func TestSetPresentationState_OneHot(t *testing.T) {
	metrics.SetPresentationState("standby")

	rec := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()

	require.True(t, strings.Contains(body, `castlog_presentation_state{state="standby"} 1`))
	require.True(t, strings.Contains(body, `castlog_presentation_state{state="active"} 0`))
}

func TestRecordDiscarded_DefaultsReason(t *testing.T) {
	metrics.RecordDiscarded("timer", "")
	require.GreaterOrEqual(t, testutil.ToFloat64(metrics.EventsDiscardedTotal.WithLabelValues("timer", "unknown")), 1.0)
}

func TestRecordConnectivityChange(t *testing.T) {
	before := testutil.ToFloat64(metrics.ConnectivityChangesTotal.WithLabelValues("false"))
	metrics.RecordConnectivityChange(false)
	require.Equal(t, before+1, testutil.ToFloat64(metrics.ConnectivityChangesTotal.WithLabelValues("false")))
}
