// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package config loads the castlogd configuration from defaults, an optional
// YAML file and CASTLOG_* environment variables, in that order of precedence.
package config

import (
	"fmt"
	"time"
)

// AppConfig is the complete daemon configuration.
type AppConfig struct {
	Version  string `yaml:"-"`
	DataDir  string `yaml:"dataDir"`
	LogLevel string `yaml:"logLevel"`

	Store       StoreConfig       `yaml:"store"`
	Gateway     GatewayConfig     `yaml:"gateway"`
	Attribution AttributionConfig `yaml:"attribution"`
	Destination DestinationConfig `yaml:"destination"`
	Device      DeviceConfig      `yaml:"device"`
	Activation  ActivationConfig  `yaml:"activation"`
	Network     NetworkConfig     `yaml:"network"`
	Push        PushConfig        `yaml:"push"`
	API         APIConfig         `yaml:"api"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
}

// StoreConfig selects the durable settings backend.
type StoreConfig struct {
	Backend string      `yaml:"backend"` // sqlite, badger, file, redis, memory
	Redis   RedisConfig `yaml:"redis"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// GatewayConfig points the validation gateway at its flag store.
type GatewayConfig struct {
	Backend     string `yaml:"backend"` // http or redis
	BaseURL     string `yaml:"baseUrl"`
	Path        string `yaml:"path"`
	RedisPrefix string `yaml:"redisPrefix"`
}

type AttributionConfig struct {
	Endpoint string `yaml:"endpoint"`
	DevKey   string `yaml:"devKey"`
}

type DestinationConfig struct {
	Endpoint string `yaml:"endpoint"`
}

// DeviceConfig is the platform metadata sent with destination requests.
type DeviceConfig struct {
	OSName   string `yaml:"osName"`
	BundleID string `yaml:"bundleId"`
	StoreID  string `yaml:"storeId"`
	Locale   string `yaml:"locale"`
}

type ActivationConfig struct {
	BootTimeout        time.Duration `yaml:"bootTimeout"`
	RefetchDelay       time.Duration `yaml:"refetchDelay"`
	PermissionCooldown time.Duration `yaml:"permissionCooldown"`
	NetworkTimeout     time.Duration `yaml:"networkTimeout"`
}

// NetworkConfig configures the connectivity probe.
type NetworkConfig struct {
	ProbeAddress string        `yaml:"probeAddress"`
	Interval     time.Duration `yaml:"interval"`
	ProbeTimeout time.Duration `yaml:"probeTimeout"`
}

type PushConfig struct {
	AutoGrant   bool   `yaml:"autoGrant"`
	RegisterURL string `yaml:"registerUrl"`
}

type APIConfig struct {
	ListenAddr string `yaml:"listenAddr"`
	// RateLimit is the per-client limit on write endpoints, in requests per
	// minute. Zero disables limiting.
	RateLimit int `yaml:"rateLimit"`
}

type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"` // grpc or http
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"samplingRate"`
	Environment  string  `yaml:"environment"`
}

// Defaults returns the configuration used when nothing else is set.
func Defaults() AppConfig {
	return AppConfig{
		DataDir:  "data",
		LogLevel: "info",
		Store: StoreConfig{
			Backend: "sqlite",
			Redis:   RedisConfig{Prefix: "castlog:"},
		},
		Gateway: GatewayConfig{
			Backend:     "http",
			Path:        "config/url",
			RedisPrefix: "castlog:flags:",
		},
		Device: DeviceConfig{
			OSName: "iOS",
			Locale: "en-US",
		},
		Activation: ActivationConfig{
			BootTimeout:        30 * time.Second,
			RefetchDelay:       5 * time.Second,
			PermissionCooldown: 259200 * time.Second,
			NetworkTimeout:     30 * time.Second,
		},
		Network: NetworkConfig{
			ProbeAddress: "1.1.1.1:443",
			Interval:     5 * time.Second,
			ProbeTimeout: 3 * time.Second,
		},
		API: APIConfig{
			ListenAddr: "127.0.0.1:8787",
			RateLimit:  60,
		},
		Telemetry: TelemetryConfig{
			Exporter:     "grpc",
			Endpoint:     "localhost:4317",
			SamplingRate: 1.0,
			Environment:  "production",
		},
	}
}

// String renders the config for startup logs with secrets masked.
func (c AppConfig) String() string {
	return fmt.Sprintf("castlog{data=%s store=%s gateway=%s/%s attribution=%s devkey=%s destination=%s listen=%s}",
		c.DataDir, c.Store.Backend, c.Gateway.Backend, c.Gateway.Path,
		c.Attribution.Endpoint, mask(c.Attribution.DevKey), c.Destination.Endpoint, c.API.ListenAddr)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "***"
}
