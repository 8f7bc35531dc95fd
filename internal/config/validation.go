// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"errors"
	"fmt"

	pnet "github.com/ManuGH/castlog/internal/platform/net"
)

var (
	storeBackends   = map[string]bool{"sqlite": true, "badger": true, "file": true, "redis": true, "memory": true}
	gatewayBackends = map[string]bool{"http": true, "redis": true}
	exporters       = map[string]bool{"grpc": true, "http": true}
)

// Validate reports every problem in cfg, joined. Each wraps ErrInvalidConfig.
func Validate(cfg AppConfig) error {
	var errs []error
	fail := func(field, format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: %s: %s", ErrInvalidConfig, field, fmt.Sprintf(format, args...)))
	}

	if !storeBackends[cfg.Store.Backend] {
		fail("store.backend", "unsupported backend %q", cfg.Store.Backend)
	}
	if cfg.Store.Backend == "redis" && cfg.Store.Redis.Addr == "" {
		fail("store.redis.addr", "required for the redis backend")
	}

	switch {
	case !gatewayBackends[cfg.Gateway.Backend]:
		fail("gateway.backend", "unsupported backend %q", cfg.Gateway.Backend)
	case cfg.Gateway.Backend == "http":
		if _, ok := pnet.ParseDirectHTTPURL(cfg.Gateway.BaseURL); !ok {
			fail("gateway.baseUrl", "must be an http(s) URL, got %q", cfg.Gateway.BaseURL)
		}
	case cfg.Gateway.Backend == "redis":
		if cfg.Store.Redis.Addr == "" {
			fail("store.redis.addr", "required for the redis gateway")
		}
	}
	if cfg.Gateway.Path == "" {
		fail("gateway.path", "must not be empty")
	}

	if _, ok := pnet.ParseDirectHTTPURL(cfg.Attribution.Endpoint); !ok {
		fail("attribution.endpoint", "must be an http(s) URL, got %q", cfg.Attribution.Endpoint)
	}
	if _, ok := pnet.ParseDirectHTTPURL(cfg.Destination.Endpoint); !ok {
		fail("destination.endpoint", "must be an http(s) URL, got %q", cfg.Destination.Endpoint)
	}
	if cfg.Push.RegisterURL != "" {
		if _, ok := pnet.ParseDirectHTTPURL(cfg.Push.RegisterURL); !ok {
			fail("push.registerUrl", "must be an http(s) URL, got %q", cfg.Push.RegisterURL)
		}
	}

	positive := map[string]int64{
		"activation.bootTimeout":        int64(cfg.Activation.BootTimeout),
		"activation.refetchDelay":       int64(cfg.Activation.RefetchDelay),
		"activation.permissionCooldown": int64(cfg.Activation.PermissionCooldown),
		"activation.networkTimeout":     int64(cfg.Activation.NetworkTimeout),
		"network.interval":              int64(cfg.Network.Interval),
		"network.probeTimeout":          int64(cfg.Network.ProbeTimeout),
	}
	for field, v := range positive {
		if v <= 0 {
			fail(field, "must be positive")
		}
	}
	if cfg.Network.ProbeAddress == "" {
		fail("network.probeAddress", "must not be empty")
	}

	if cfg.API.ListenAddr == "" {
		fail("api.listenAddr", "must not be empty")
	}
	if cfg.API.RateLimit < 0 {
		fail("api.rateLimit", "must not be negative")
	}

	if cfg.Telemetry.Enabled {
		if !exporters[cfg.Telemetry.Exporter] {
			fail("telemetry.exporter", "unsupported exporter %q", cfg.Telemetry.Exporter)
		}
		if cfg.Telemetry.Endpoint == "" {
			fail("telemetry.endpoint", "required when telemetry is enabled")
		}
	}
	if cfg.Telemetry.SamplingRate < 0 || cfg.Telemetry.SamplingRate > 1 {
		fail("telemetry.samplingRate", "must be within [0, 1]")
	}

	return errors.Join(errs...)
}
