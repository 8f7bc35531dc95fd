// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Environment variable names.
const (
	EnvDataDir            = "CASTLOG_DATA_DIR"
	EnvLogLevel           = "CASTLOG_LOG_LEVEL"
	EnvStoreBackend       = "CASTLOG_STORE_BACKEND"
	EnvRedisAddr          = "CASTLOG_REDIS_ADDR"
	EnvRedisPassword      = "CASTLOG_REDIS_PASSWORD"
	EnvRedisDB            = "CASTLOG_REDIS_DB"
	EnvRedisPrefix        = "CASTLOG_REDIS_PREFIX"
	EnvGatewayBackend     = "CASTLOG_GATEWAY_BACKEND"
	EnvGatewayBaseURL     = "CASTLOG_GATEWAY_BASE_URL"
	EnvGatewayPath        = "CASTLOG_GATEWAY_PATH"
	EnvGatewayRedisPrefix = "CASTLOG_GATEWAY_REDIS_PREFIX"
	EnvAttributionURL     = "CASTLOG_ATTRIBUTION_URL"
	EnvDevKey             = "CASTLOG_DEV_KEY"
	EnvDestinationURL     = "CASTLOG_DESTINATION_URL"
	EnvDeviceOS           = "CASTLOG_DEVICE_OS"
	EnvBundleID           = "CASTLOG_BUNDLE_ID"
	EnvStoreID            = "CASTLOG_STORE_ID"
	EnvLocale             = "CASTLOG_LOCALE"
	EnvBootTimeout        = "CASTLOG_BOOT_TIMEOUT"
	EnvRefetchDelay       = "CASTLOG_REFETCH_DELAY"
	EnvPermissionCooldown = "CASTLOG_PERMISSION_COOLDOWN"
	EnvNetworkTimeout     = "CASTLOG_NETWORK_TIMEOUT"
	EnvProbeAddress       = "CASTLOG_PROBE_ADDRESS"
	EnvProbeInterval      = "CASTLOG_PROBE_INTERVAL"
	EnvProbeTimeout       = "CASTLOG_PROBE_TIMEOUT"
	EnvPushAutoGrant      = "CASTLOG_PUSH_AUTO_GRANT"
	EnvPushRegisterURL    = "CASTLOG_PUSH_REGISTER_URL"
	EnvListenAddr         = "CASTLOG_LISTEN_ADDR"
	EnvRateLimit          = "CASTLOG_RATE_LIMIT"
	EnvTelemetryEnabled   = "CASTLOG_TELEMETRY_ENABLED"
	EnvOTLPExporter       = "CASTLOG_OTLP_EXPORTER"
	EnvOTLPEndpoint       = "CASTLOG_OTLP_ENDPOINT"
	EnvTraceSampling      = "CASTLOG_TRACE_SAMPLING"
	EnvEnvironment        = "CASTLOG_ENVIRONMENT"
)

// Loader handles configuration loading with precedence ENV > file > defaults.
type Loader struct {
	configPath      string
	version         string
	ConsumedEnvKeys map[string]struct{}
}

// NewLoader creates a loader. An empty configPath skips the file stage.
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

func (l *Loader) envString(key, def string) string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseString(key, def)
}

func (l *Loader) envBool(key string, def bool) bool {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseBool(key, def)
}

func (l *Loader) envInt(key string, def int) int {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseInt(key, def)
}

func (l *Loader) envDuration(key string, def time.Duration) time.Duration {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseDuration(key, def)
}

func (l *Loader) envFloat(key string, def float64) float64 {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseFloat(key, def)
}

// Load runs defaults, strict file parse, env overrides, normalization and
// validation.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.configPath != "" {
		if err := l.loadFile(l.configPath, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	l.mergeEnv(&cfg)
	cfg.Version = l.version

	if err := normalize(&cfg); err != nil {
		return cfg, err
	}
	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// loadFile decodes path over cfg. Unknown fields are fatal.
func (l *Loader) loadFile(path string, cfg *AppConfig) error {
	path = filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return fmt.Errorf("%w: %v", ErrUnknownConfigField, err)
		}
		return fmt.Errorf("strict config parse error: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("config file contains multiple documents or trailing content")
	}
	return nil
}

func (l *Loader) mergeEnv(cfg *AppConfig) {
	cfg.DataDir = l.envString(EnvDataDir, cfg.DataDir)
	cfg.LogLevel = l.envString(EnvLogLevel, cfg.LogLevel)

	cfg.Store.Backend = l.envString(EnvStoreBackend, cfg.Store.Backend)
	cfg.Store.Redis.Addr = l.envString(EnvRedisAddr, cfg.Store.Redis.Addr)
	cfg.Store.Redis.Password = l.envString(EnvRedisPassword, cfg.Store.Redis.Password)
	cfg.Store.Redis.DB = l.envInt(EnvRedisDB, cfg.Store.Redis.DB)
	cfg.Store.Redis.Prefix = l.envString(EnvRedisPrefix, cfg.Store.Redis.Prefix)

	cfg.Gateway.Backend = l.envString(EnvGatewayBackend, cfg.Gateway.Backend)
	cfg.Gateway.BaseURL = l.envString(EnvGatewayBaseURL, cfg.Gateway.BaseURL)
	cfg.Gateway.Path = l.envString(EnvGatewayPath, cfg.Gateway.Path)
	cfg.Gateway.RedisPrefix = l.envString(EnvGatewayRedisPrefix, cfg.Gateway.RedisPrefix)

	cfg.Attribution.Endpoint = l.envString(EnvAttributionURL, cfg.Attribution.Endpoint)
	cfg.Attribution.DevKey = l.envString(EnvDevKey, cfg.Attribution.DevKey)
	cfg.Destination.Endpoint = l.envString(EnvDestinationURL, cfg.Destination.Endpoint)

	cfg.Device.OSName = l.envString(EnvDeviceOS, cfg.Device.OSName)
	cfg.Device.BundleID = l.envString(EnvBundleID, cfg.Device.BundleID)
	cfg.Device.StoreID = l.envString(EnvStoreID, cfg.Device.StoreID)
	cfg.Device.Locale = l.envString(EnvLocale, cfg.Device.Locale)

	cfg.Activation.BootTimeout = l.envDuration(EnvBootTimeout, cfg.Activation.BootTimeout)
	cfg.Activation.RefetchDelay = l.envDuration(EnvRefetchDelay, cfg.Activation.RefetchDelay)
	cfg.Activation.PermissionCooldown = l.envDuration(EnvPermissionCooldown, cfg.Activation.PermissionCooldown)
	cfg.Activation.NetworkTimeout = l.envDuration(EnvNetworkTimeout, cfg.Activation.NetworkTimeout)

	cfg.Network.ProbeAddress = l.envString(EnvProbeAddress, cfg.Network.ProbeAddress)
	cfg.Network.Interval = l.envDuration(EnvProbeInterval, cfg.Network.Interval)
	cfg.Network.ProbeTimeout = l.envDuration(EnvProbeTimeout, cfg.Network.ProbeTimeout)

	cfg.Push.AutoGrant = l.envBool(EnvPushAutoGrant, cfg.Push.AutoGrant)
	cfg.Push.RegisterURL = l.envString(EnvPushRegisterURL, cfg.Push.RegisterURL)

	cfg.API.ListenAddr = l.envString(EnvListenAddr, cfg.API.ListenAddr)
	cfg.API.RateLimit = l.envInt(EnvRateLimit, cfg.API.RateLimit)

	cfg.Telemetry.Enabled = l.envBool(EnvTelemetryEnabled, cfg.Telemetry.Enabled)
	cfg.Telemetry.Exporter = l.envString(EnvOTLPExporter, cfg.Telemetry.Exporter)
	cfg.Telemetry.Endpoint = l.envString(EnvOTLPEndpoint, cfg.Telemetry.Endpoint)
	cfg.Telemetry.SamplingRate = l.envFloat(EnvTraceSampling, cfg.Telemetry.SamplingRate)
	cfg.Telemetry.Environment = l.envString(EnvEnvironment, cfg.Telemetry.Environment)
}

func normalize(cfg *AppConfig) error {
	if cfg.DataDir != "" {
		if abs, err := filepath.Abs(cfg.DataDir); err == nil {
			cfg.DataDir = abs
		}
	}
	cfg.Store.Backend = strings.ToLower(strings.TrimSpace(cfg.Store.Backend))
	cfg.Gateway.Backend = strings.ToLower(strings.TrimSpace(cfg.Gateway.Backend))
	cfg.Telemetry.Exporter = strings.ToLower(strings.TrimSpace(cfg.Telemetry.Exporter))

	if cfg.Device.Locale != "" {
		tag, err := language.Parse(strings.ReplaceAll(strings.TrimSpace(cfg.Device.Locale), "_", "-"))
		if err != nil {
			return fmt.Errorf("%w: device.locale %q: %v", ErrInvalidConfig, cfg.Device.Locale, err)
		}
		cfg.Device.Locale = tag.String()
	}
	return nil
}
