// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestNewProvider_Disabled(t *testing.T) {
	provider, err := NewProvider(context.Background(), Config{Enabled: false, ExporterType: "grpc"})
	require.NoError(t, err)
	require.Nil(t, provider.tp)
	require.NoError(t, provider.Shutdown(context.Background()))

	_, span := otel.Tracer("test").Start(context.Background(), "noop-check")
	require.False(t, span.IsRecording())
	span.End()
}

func TestNewProvider_InvalidExporter(t *testing.T) {
	_, err := NewProvider(context.Background(), Config{Enabled: true, ServiceName: "castlog", ExporterType: "invalid"})
	require.EqualError(t, err, "unsupported exporter type: invalid (supported: grpc, http)")
}

func TestSamplerFor(t *testing.T) {
	require.Contains(t, samplerFor(1).Description(), "AlwaysOnSampler")
	require.Contains(t, samplerFor(0).Description(), "AlwaysOffSampler")
	require.Contains(t, samplerFor(0.5).Description(), "TraceIDRatioBased")
}

func TestUpstreamAttributes(t *testing.T) {
	require.Len(t, UpstreamAttributes("resolve_destination", 0), 1)
	attrs := UpstreamAttributes("fetch_attribution", 502)
	require.Len(t, attrs, 2)
	require.Equal(t, int64(502), attrs[1].Value.AsInt64())
	require.Equal(t, "timeout", ErrorAttributes("timeout")[0].Value.AsString())
}
