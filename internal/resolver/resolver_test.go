// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ManuGH/castlog/internal/domain/activation/model"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticIdentity struct {
	deviceID  string
	pushToken string
	err       error
}

func (s staticIdentity) DeviceID(context.Context) (string, error)  { return s.deviceID, s.err }
func (s staticIdentity) PushToken(context.Context) (string, error) { return s.pushToken, nil }

func newTestResolver(t *testing.T, h http.HandlerFunc, mutate func(*Config)) *Resolver {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	cfg := Config{
		AttributionURL: srv.URL + "/attribution",
		DestinationURL: srv.URL + "/destination",
		DevKey:         "dev-123",
		Timeout:        2 * time.Second,
		Device: DeviceInfo{
			OSName:   "iOS",
			BundleID: "com.example.castlog",
			StoreID:  "id000001",
			Locale:   "en_us",
		},
	}
	if mutate != nil {
		mutate(&cfg)
	}
	return New(cfg, staticIdentity{deviceID: "dev-uuid", pushToken: "tok"}, srv.Client())
}

func TestFetchAttribution_SendsQueryAndDecodes(t *testing.T) {
	r := newTestResolver(t, func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, http.MethodGet, req.Method)
		assert.Equal(t, "/attribution", req.URL.Path)
		assert.Equal(t, "dev-123", req.URL.Query().Get("devkey"))
		assert.Equal(t, "device-42", req.URL.Query().Get("device_id"))
		_, _ = w.Write([]byte(`{"af_status":"Non-organic","campaign":"spring","clicks":3}`))
	}, nil)

	got, err := r.FetchAttribution(context.Background(), "device-42")
	require.NoError(t, err)
	want := model.Attribution{"af_status": "Non-organic", "campaign": "spring", "clicks": float64(3)}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("attribution mismatch (-want +got):\n%s", diff)
	}
}

func TestFetchAttribution_NonSuccessIsServerError(t *testing.T) {
	r := newTestResolver(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}, nil)

	_, err := r.FetchAttribution(context.Background(), "device-42")
	require.ErrorIs(t, err, ErrServerError)

	var rerr *Error
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, http.StatusForbidden, rerr.Status)
	assert.Equal(t, opFetchAttribution, rerr.Operation)
	assert.Equal(t, "server_error", Outcome(err))
}

func TestFetchAttribution_MalformedURL(t *testing.T) {
	r := newTestResolver(t, func(http.ResponseWriter, *http.Request) {
		t.Fatal("no request expected")
	}, func(c *Config) { c.AttributionURL = "::not a url" })

	_, err := r.FetchAttribution(context.Background(), "device-42")
	require.ErrorIs(t, err, ErrMalformedURL)
}

func TestFetchAttribution_Timeout(t *testing.T) {
	release := make(chan struct{})
	r := newTestResolver(t, func(w http.ResponseWriter, req *http.Request) {
		select {
		case <-release:
		case <-req.Context().Done():
		}
	}, func(c *Config) { c.Timeout = 50 * time.Millisecond })
	defer close(release)

	_, err := r.FetchAttribution(context.Background(), "device-42")
	require.ErrorIs(t, err, ErrTimeout)
}

func TestResolveDestination_PayloadAndSuccess(t *testing.T) {
	var body map[string]any
	r := newTestResolver(t, func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, http.MethodPost, req.Method)
		assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(req.Body).Decode(&body))
		_, _ = w.Write([]byte(`{"ok":true,"url":"https://dest.example/landing"}`))
	}, nil)

	dest, err := r.ResolveDestination(context.Background(), model.Attribution{"campaign": "spring", "os": "spoofed"})
	require.NoError(t, err)
	assert.Equal(t, "https://dest.example/landing", dest)

	want := map[string]any{
		"campaign":   "spring",
		"os":         "iOS",
		"af_id":      "dev-uuid",
		"bundle_id":  "com.example.castlog",
		"store_id":   "id000001",
		"locale":     "en-US",
		"push_token": "tok",
	}
	if diff := cmp.Diff(want, body); diff != "" {
		t.Fatalf("payload mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveDestination_InvalidBodies(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		declined bool
	}{
		{"ok false", `{"ok":false,"url":"https://x.example"}`, true},
		{"missing ok", `{"url":"https://x.example"}`, false},
		{"missing url", `{"ok":true}`, false},
		{"relative url", `{"ok":true,"url":"/x"}`, false},
		{"not json", `<html>`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestResolver(t, func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}, nil)
			_, err := r.ResolveDestination(context.Background(), model.Attribution{})
			require.ErrorIs(t, err, ErrInvalidDestination)
			assert.Equal(t, tt.declined, errors.Is(err, ErrDestinationDeclined))
		})
	}
}

func TestResolveDestination_IdentityFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("no request expected")
	}))
	defer srv.Close()
	r := New(Config{DestinationURL: srv.URL}, staticIdentity{err: errors.New("store closed")}, srv.Client())

	_, err := r.ResolveDestination(context.Background(), nil)
	require.ErrorIs(t, err, ErrTransport)
}

func TestCanonicalLocale(t *testing.T) {
	assert.Equal(t, "en-US", CanonicalLocale("en_US"))
	assert.Equal(t, "de", CanonicalLocale(" de "))
	assert.Equal(t, "", CanonicalLocale(""))
	assert.Equal(t, "!!", CanonicalLocale("!!"))
}
