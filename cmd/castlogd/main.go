// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Command castlogd runs the activation coordinator and serves its state
// over a loopback HTTP API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/ManuGH/castlog/internal/activation"
	"github.com/ManuGH/castlog/internal/api"
	"github.com/ManuGH/castlog/internal/config"
	"github.com/ManuGH/castlog/internal/domain/activation/model"
	"github.com/ManuGH/castlog/internal/gateway"
	"github.com/ManuGH/castlog/internal/health"
	"github.com/ManuGH/castlog/internal/kvstore"
	xglog "github.com/ManuGH/castlog/internal/log"
	"github.com/ManuGH/castlog/internal/netwatch"
	"github.com/ManuGH/castlog/internal/platform/httpx"
	"github.com/ManuGH/castlog/internal/push"
	"github.com/ManuGH/castlog/internal/resolver"
	"github.com/ManuGH/castlog/internal/settings"
	"github.com/ManuGH/castlog/internal/telemetry"
	"github.com/ManuGH/castlog/internal/version"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	printConfig := flag.Bool("print-config", false, "print the effective configuration and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		os.Exit(0)
	}

	// Safe defaults until config is loaded.
	xglog.Configure(xglog.Config{Level: "info", Service: "castlogd", Version: version.Version})
	logger := xglog.WithComponent("daemon")

	cfg, err := config.NewLoader(*configPath, version.Version).Load()
	if err != nil {
		logger.Fatal().Err(err).
			Str(xglog.FieldEvent, "config.load_failed").
			Str("config_path", *configPath).
			Msg("failed to load configuration")
	}
	if *printConfig {
		fmt.Println(cfg.String())
		os.Exit(0)
	}

	xglog.Reset()
	xglog.Configure(xglog.Config{Level: cfg.LogLevel, Service: "castlogd", Version: version.Version})
	logger = xglog.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Fatal().Err(err).Str(xglog.FieldEvent, "daemon.failed").Msg("castlogd stopped with error")
	}
	logger.Info().Str(xglog.FieldEvent, "daemon.stopped").Msg("castlogd stopped")
}

func run(ctx context.Context, cfg config.AppConfig) error {
	logger := xglog.WithComponent("daemon")

	if err := health.PerformStartupChecks(ctx, cfg); err != nil {
		return fmt.Errorf("startup checks: %w", err)
	}

	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "castlogd",
		ServiceVersion: version.Version,
		Environment:    cfg.Telemetry.Environment,
		ExporterType:   cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("telemetry shutdown failed")
		}
	}()

	store, err := kvstore.Open(ctx, kvstore.Config{
		Backend: cfg.Store.Backend,
		Dir:     cfg.DataDir,
		Redis: kvstore.RedisConfig{
			Addr:     cfg.Store.Redis.Addr,
			Password: cfg.Store.Redis.Password,
			DB:       cfg.Store.Redis.DB,
			Prefix:   cfg.Store.Redis.Prefix,
		},
	})
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn().Err(err).Msg("store close failed")
		}
	}()
	prefs := settings.New(store)

	source, closeSource, err := newFlagSource(cfg)
	if err != nil {
		return err
	}
	defer closeSource()

	client := httpx.NewClient(cfg.Activation.NetworkTimeout)
	res := resolver.New(resolver.Config{
		AttributionURL: cfg.Attribution.Endpoint,
		DestinationURL: cfg.Destination.Endpoint,
		DevKey:         cfg.Attribution.DevKey,
		Timeout:        cfg.Activation.NetworkTimeout,
		Device: resolver.DeviceInfo{
			OSName:   cfg.Device.OSName,
			BundleID: cfg.Device.BundleID,
			StoreID:  cfg.Device.StoreID,
			Locale:   cfg.Device.Locale,
		},
	}, prefs, client)

	watcher := netwatch.New(&netwatch.DialProber{Address: cfg.Network.ProbeAddress}, nil, netwatch.Config{
		Interval:     cfg.Network.Interval,
		ProbeTimeout: cfg.Network.ProbeTimeout,
	})

	coord, err := activation.New(activation.Config{
		BootTimeout:        cfg.Activation.BootTimeout,
		RefetchDelay:       cfg.Activation.RefetchDelay,
		PermissionCooldown: cfg.Activation.PermissionCooldown,
	}, activation.Deps{
		Gateway:   gateway.New(source, cfg.Gateway.Path),
		Resolver:  res,
		Watcher:   watcher,
		Authority: push.New(push.Config{AutoGrant: cfg.Push.AutoGrant, RegisterURL: cfg.Push.RegisterURL}, prefs, client),
		Settings:  prefs,
	})
	if err != nil {
		return fmt.Errorf("activation: %w", err)
	}
	defer coord.Close()

	unsubscribe := coord.Subscribe(logSettled())
	defer unsubscribe()

	hm := health.NewManager(version.Version)
	hm.RegisterChecker(health.NewStoreChecker("store", store))
	hm.RegisterChecker(health.NewActivationChecker(coord))

	srv := &http.Server{
		Addr: cfg.API.ListenAddr,
		Handler: api.New(api.Config{
			RateLimit:      cfg.API.RateLimit,
			TracingService: "castlogd",
		}, coord, hm).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().
			Str(xglog.FieldEvent, "api.listening").
			Str("addr", srv.Addr).
			Msg("API server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info().Str(xglog.FieldEvent, "api.shutdown").Msg("shutting down API server")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// newFlagSource builds the gateway flag store selected in cfg.
func newFlagSource(cfg config.AppConfig) (gateway.FlagSource, func(), error) {
	switch cfg.Gateway.Backend {
	case "redis":
		src := gateway.NewRedisFlagSource(redis.NewClient(&redis.Options{
			Addr:     cfg.Store.Redis.Addr,
			Password: cfg.Store.Redis.Password,
			DB:       cfg.Store.Redis.DB,
		}), cfg.Gateway.RedisPrefix)
		return src, func() { _ = src.Close() }, nil
	case "", "http":
		return gateway.NewHTTPFlagSource(cfg.Gateway.BaseURL, httpx.NewClient(cfg.Activation.NetworkTimeout)), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown gateway backend %q", cfg.Gateway.Backend)
	}
}

// logSettled logs once per distinct presentation state.
func logSettled() func(model.Snapshot) {
	logger := xglog.WithComponent("daemon")
	var (
		mu   sync.Mutex
		last model.PresentationState
	)
	return func(s model.Snapshot) {
		mu.Lock()
		changed := s.Presentation != last
		last = s.Presentation
		mu.Unlock()
		if !changed {
			return
		}
		logger.Info().
			Str(xglog.FieldEvent, "activation.presented").
			Str(xglog.FieldStage, string(s.Stage)).
			Str(xglog.FieldPresentation, string(s.Presentation)).
			Bool(xglog.FieldLocked, s.Locked).
			Msg("presentation state changed")
	}
}
