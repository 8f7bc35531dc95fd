// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package log

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func configureBuffer(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	Reset()
	Configure(Config{Level: "debug", Output: &buf, Service: "castlog-test", Version: "v0.0.0"})
	t.Cleanup(Reset)
	return &buf
}

func TestWithComponent_AttachesServiceAndComponent(t *testing.T) {
	buf := configureBuffer(t)

	l := WithComponent("activation")
	l.Info().Str(FieldStage, "starting").Msg("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "castlog-test", entry["service"])
	require.Equal(t, "v0.0.0", entry["version"])
	require.Equal(t, "activation", entry[FieldComponent])
	require.Equal(t, "starting", entry[FieldStage])
}

func TestConfigure_FirstCallWins(t *testing.T) {
	buf := configureBuffer(t)

	var other bytes.Buffer
	Configure(Config{Output: &other, Service: "ignored"})
	base := Base()
	base.Info().Msg("x")

	require.NotZero(t, buf.Len())
	require.Zero(t, other.Len())
}

func TestWithContext_RequestID(t *testing.T) {
	buf := configureBuffer(t)

	ctx := ContextWithRequestID(context.Background(), "req-1")
	l := WithComponentFromContext(ctx, "api")
	l.Info().Msg("handled")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "req-1", entry[FieldRequestID])
	require.Equal(t, "", RequestIDFromContext(context.Background()))
}

func TestDerive_NilBuilder(t *testing.T) {
	buf := configureBuffer(t)

	l := Derive(nil)
	l.Info().Msg("plain")
	require.Contains(t, buf.String(), `"message":"plain"`)
}
