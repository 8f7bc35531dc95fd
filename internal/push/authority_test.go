// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package push

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type identity struct {
	id, token string
	err       error
}

func (i identity) DeviceID(context.Context) (string, error)  { return i.id, i.err }
func (i identity) PushToken(context.Context) (string, error) { return i.token, nil }

func TestRequestAuthorization_FollowsConfig(t *testing.T) {
	granted, err := New(Config{AutoGrant: true}, identity{}, nil).RequestAuthorization(context.Background())
	require.NoError(t, err)
	assert.True(t, granted)

	granted, err = New(Config{}, identity{}, nil).RequestAuthorization(context.Background())
	require.NoError(t, err)
	assert.False(t, granted)
}

func TestRegister_LocalOnly(t *testing.T) {
	a := New(Config{AutoGrant: true}, identity{id: "dev-1"}, nil)
	require.NoError(t, a.Register(context.Background()))
	assert.EqualValues(t, 1, a.Registrations())
}

func TestRegister_PostsToEndpoint(t *testing.T) {
	var got registration
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	a := New(Config{RegisterURL: srv.URL + "/register"}, identity{id: "dev-1", token: "tok"}, srv.Client())
	require.NoError(t, a.Register(context.Background()))
	assert.Equal(t, registration{DeviceID: "dev-1", PushToken: "tok"}, got)
}

func TestRegister_Failures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := New(Config{RegisterURL: srv.URL}, identity{id: "dev-1"}, srv.Client()).Register(context.Background())
	require.ErrorContains(t, err, "HTTP 502")

	err = New(Config{}, identity{err: errors.New("closed")}, nil).Register(context.Background())
	require.ErrorContains(t, err, "device id")
}

func TestNew_DefaultClientIsBounded(t *testing.T) {
	a := New(Config{}, nil, nil)
	require.NotSame(t, http.DefaultClient, a.http)
	assert.Equal(t, defaultTimeout, a.http.Timeout)
}
