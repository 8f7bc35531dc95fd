// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package push holds the notification permission authority.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	xglog "github.com/ManuGH/castlog/internal/log"
	"github.com/ManuGH/castlog/internal/metrics"
	"github.com/ManuGH/castlog/internal/platform/httpx"
	pnet "github.com/ManuGH/castlog/internal/platform/net"
	"github.com/rs/zerolog"
)

const defaultTimeout = 30 * time.Second

// Authority decides notification permission and performs platform
// registration once permission is granted.
type Authority interface {
	RequestAuthorization(ctx context.Context) (bool, error)
	Register(ctx context.Context) error
}

// Identity supplies the values sent with a registration.
type Identity interface {
	DeviceID(ctx context.Context) (string, error)
	PushToken(ctx context.Context) (string, error)
}

// Config configures the built-in authority.
type Config struct {
	// AutoGrant is the answer returned to every authorization request.
	AutoGrant bool
	// RegisterURL receives a JSON registration on Register. Empty means
	// registration is only logged.
	RegisterURL string
}

// ConfiguredAuthority answers authorization requests from configuration
// and optionally forwards registrations to an HTTP endpoint.
type ConfiguredAuthority struct {
	cfg      Config
	identity Identity
	http     *http.Client
	logger   zerolog.Logger

	registrations atomic.Int64
}

// New returns a ConfiguredAuthority. A nil client gets a traced client
// bounded by defaultTimeout.
func New(cfg Config, identity Identity, client *http.Client) *ConfiguredAuthority {
	if client == nil {
		client = httpx.NewClient(defaultTimeout)
	}
	return &ConfiguredAuthority{
		cfg:      cfg,
		identity: identity,
		http:     client,
		logger:   xglog.WithComponent("push"),
	}
}

func (a *ConfiguredAuthority) RequestAuthorization(context.Context) (bool, error) {
	return a.cfg.AutoGrant, nil
}

type registration struct {
	DeviceID  string `json:"device_id"`
	PushToken string `json:"push_token,omitempty"`
}

func (a *ConfiguredAuthority) Register(ctx context.Context) error {
	deviceID, err := a.identity.DeviceID(ctx)
	if err != nil {
		return fmt.Errorf("push: device id: %w", err)
	}
	token, err := a.identity.PushToken(ctx)
	if err != nil {
		return fmt.Errorf("push: token: %w", err)
	}
	a.registrations.Add(1)

	if a.cfg.RegisterURL == "" {
		a.logger.Info().Str(xglog.FieldDeviceID, deviceID).Bool("has_token", token != "").Msg("notification registration recorded")
		return nil
	}

	body, err := json.Marshal(registration{DeviceID: deviceID, PushToken: token})
	if err != nil {
		return fmt.Errorf("push: encode registration: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.RegisterURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("push: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := a.http.Do(req)
	if err != nil {
		metrics.RecordUpstream("push_register", "transport")
		return fmt.Errorf("push: register: %w", err)
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, res.Body)

	if res.StatusCode < 200 || res.StatusCode > 299 {
		metrics.RecordUpstream("push_register", "server_error")
		return fmt.Errorf("push: register %s: HTTP %d", pnet.SanitizeURL(a.cfg.RegisterURL), res.StatusCode)
	}
	metrics.RecordUpstream("push_register", "ok")
	a.logger.Info().Str(xglog.FieldDeviceID, deviceID).Msg("notification registration sent")
	return nil
}

// Registrations returns how many times Register ran.
func (a *ConfiguredAuthority) Registrations() int64 {
	return a.registrations.Load()
}
