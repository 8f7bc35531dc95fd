// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ManuGH/castlog/internal/metrics"
	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	value string
	found bool
	err   error
	paths []string
}

func (s *stubSource) Lookup(_ context.Context, path string) (string, bool, error) {
	s.paths = append(s.paths, path)
	return s.value, s.found, s.err
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	m := &dto.Metric{}
	require.NoError(t, c.Write(m))
	return m.GetCounter().GetValue()
}

func TestCheckAccess_Verdicts(t *testing.T) {
	tests := []struct {
		name  string
		value string
		found bool
		want  bool
	}{
		{"absolute url", "https://dest.example/landing", true, true},
		{"custom scheme", "app://open", true, true},
		{"empty", "", true, false},
		{"missing", "", false, false},
		{"relative", "/landing", true, false},
		{"garbage", "not a url", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &stubSource{value: tt.value, found: tt.found}
			ok, err := New(src, "config/url").CheckAccess(context.Background())
			require.NoError(t, err)
			require.Equal(t, tt.want, ok)
			require.Equal(t, []string{"config/url"}, src.paths, "exactly one round trip")
		})
	}
}

func TestCheckAccess_FailureIsDistinctFromFalse(t *testing.T) {
	before := counterValue(t, metrics.GatewayChecksTotal.WithLabelValues("error"))

	src := &stubSource{err: errors.New("connection reset")}
	ok, err := New(src, "config/url").CheckAccess(context.Background())
	require.False(t, ok)
	require.ErrorIs(t, err, ErrGatewayFailure)
	require.NotErrorIs(t, err, ErrAccessDenied)

	require.Equal(t, before+1, counterValue(t, metrics.GatewayChecksTotal.WithLabelValues("error")))
}

func TestHTTPFlagSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/config/url.json":
			_, _ = w.Write([]byte(`"https://dest.example"`))
		case "/config/unset.json":
			_, _ = w.Write([]byte(`null`))
		case "/config/number.json":
			_, _ = w.Write([]byte(`42`))
		case "/config/broken.json":
			_, _ = w.Write([]byte(`{`))
		case "/config/down.json":
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	src := NewHTTPFlagSource(srv.URL+"/", srv.Client())
	ctx := context.Background()

	v, found, err := src.Lookup(ctx, "config/url")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "https://dest.example", v)

	_, found, err = src.Lookup(ctx, "/config/unset")
	require.NoError(t, err)
	require.False(t, found)

	v, found, err = src.Lookup(ctx, "config/number")
	require.NoError(t, err)
	require.True(t, found)
	require.Empty(t, v)

	_, found, err = src.Lookup(ctx, "config/missing")
	require.NoError(t, err)
	require.False(t, found)

	_, _, err = src.Lookup(ctx, "config/broken")
	require.Error(t, err)

	_, _, err = src.Lookup(ctx, "config/down")
	require.ErrorContains(t, err, "HTTP 503")
}

func TestRedisFlagSource(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	src := NewRedisFlagSource(client, "flags:")
	defer src.Close()

	ctx := context.Background()
	_, found, err := src.Lookup(ctx, "config/url")
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, mr.Set("flags:config/url", "https://dest.example"))
	ok, err := New(src, "config/url").CheckAccess(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	mr.Close()
	_, err = New(src, "config/url").CheckAccess(ctx)
	require.ErrorIs(t, err, ErrGatewayFailure)
}

func TestNewHTTPFlagSource_DefaultClientIsBounded(t *testing.T) {
	src := NewHTTPFlagSource("https://flags.example", nil)
	require.NotSame(t, http.DefaultClient, src.http)
	require.Equal(t, DefaultTimeout, src.http.Timeout)
}
