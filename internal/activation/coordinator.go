// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package activation owns the launch-time activation flow: it drives the
// lifecycle machine from attribution, validation, connectivity and a boot
// timeout, and locks the outcome once a destination is running.
package activation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ManuGH/castlog/internal/clock"
	"github.com/ManuGH/castlog/internal/domain/activation/lifecycle"
	"github.com/ManuGH/castlog/internal/domain/activation/model"
	xglog "github.com/ManuGH/castlog/internal/log"
	"github.com/ManuGH/castlog/internal/metrics"
	pnet "github.com/ManuGH/castlog/internal/platform/net"
	"github.com/ManuGH/castlog/internal/push"
	"github.com/ManuGH/castlog/internal/settings"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultBootTimeout        = 30 * time.Second
	DefaultRefetchDelay       = 5 * time.Second
	DefaultPermissionCooldown = 259200 * time.Second
)

// ErrClosed is returned by operations on a closed coordinator.
var ErrClosed = errors.New("activation: coordinator closed")

// Gateway is the validation check.
type Gateway interface {
	CheckAccess(ctx context.Context) (bool, error)
}

// Resolver fetches attribution and resolves destinations.
type Resolver interface {
	FetchAttribution(ctx context.Context, deviceID string) (model.Attribution, error)
	ResolveDestination(ctx context.Context, attribution model.Attribution) (string, error)
}

// Watcher reports connectivity changes until stopped.
type Watcher interface {
	Start(onChange func(connected bool)) error
	Stop()
}

// Config holds the activation timings.
type Config struct {
	BootTimeout        time.Duration
	RefetchDelay       time.Duration
	PermissionCooldown time.Duration
}

func (c *Config) applyDefaults() {
	if c.BootTimeout <= 0 {
		c.BootTimeout = DefaultBootTimeout
	}
	if c.RefetchDelay <= 0 {
		c.RefetchDelay = DefaultRefetchDelay
	}
	if c.PermissionCooldown <= 0 {
		c.PermissionCooldown = DefaultPermissionCooldown
	}
}

// Deps are the collaborators the coordinator owns or calls.
type Deps struct {
	Gateway   Gateway
	Resolver  Resolver
	Watcher   Watcher
	Authority push.Authority
	Settings  *settings.Settings
	Clock     clock.Clock
}

// Coordinator wires the lifecycle machine to its collaborators.
type Coordinator struct {
	cfg       Config
	gateway   Gateway
	resolver  Resolver
	watcher   Watcher
	authority push.Authority
	settings  *settings.Settings
	clock     clock.Clock
	logger    zerolog.Logger

	machine     *lifecycle.Machine
	unsubscribe func()
	bootTimer   *clock.Timer
	flight      singleflight.Group

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu                  sync.Mutex
	closed              bool
	locked              bool
	stage               model.Stage
	presentation        model.PresentationState
	permissionPending   bool
	permissionEvaluated bool
	attribution         model.Attribution
	deeplink            model.Attribution
	listeners           map[int]func(model.Snapshot)
	nextListener        int

	// deliverMu orders snapshot delivery; it is taken before mu.
	deliverMu sync.Mutex
}

// New builds the coordinator, starts the watcher, emits boot and arms the
// boot timeout.
func New(cfg Config, deps Deps) (*Coordinator, error) {
	if deps.Gateway == nil || deps.Resolver == nil || deps.Settings == nil {
		return nil, errors.New("activation: gateway, resolver and settings are required")
	}
	cfg.applyDefaults()
	if deps.Clock == nil {
		deps.Clock = clock.Real()
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Coordinator{
		cfg:          cfg,
		gateway:      deps.Gateway,
		resolver:     deps.Resolver,
		watcher:      deps.Watcher,
		authority:    deps.Authority,
		settings:     deps.Settings,
		clock:        deps.Clock,
		logger:       xglog.WithComponent("activation"),
		ctx:          ctx,
		cancel:       cancel,
		stage:        model.Dormant(),
		presentation: model.PresentationInitializing,
		listeners:    make(map[int]func(model.Snapshot)),
	}

	c.machine = lifecycle.NewMachine(lifecycle.WithHook(c.onTransition))
	c.unsubscribe = c.machine.Subscribe(c.onStage)

	if c.watcher != nil {
		if err := c.watcher.Start(c.onConnectivity); err != nil {
			c.unsubscribe()
			c.machine.Close()
			cancel()
			return nil, err
		}
	}

	c.machine.Emit(lifecycle.Boot())
	c.bootTimer = c.clock.AfterFunc(cfg.BootTimeout, c.onBootTimeout)
	return c, nil
}

// IngestAttribution stores the conversion payload, advances the machine and
// starts the validation flow in the background.
func (c *Coordinator) IngestAttribution(ctx context.Context, payload model.Attribution) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.locked {
		c.mu.Unlock()
		metrics.RecordDiscarded("attribution", "locked")
		c.logger.Debug().Msg("attribution ignored after lock")
		return nil
	}
	c.attribution = payload.Clone()
	merged := model.Merge(c.attribution, c.deeplink)
	c.wg.Add(1)
	c.mu.Unlock()

	if len(merged) > 0 {
		if err := c.settings.SetAttribution(ctx, merged); err != nil {
			c.logger.Warn().Err(err).Msg("persist attribution")
		}
	}

	c.machine.Emit(lifecycle.DataIngested(payload))
	go func() {
		defer c.wg.Done()
		_, _, _ = c.flight.Do("validate", func() (any, error) {
			c.validate(c.ctx)
			return nil, nil
		})
	}()
	return nil
}

// IngestDeeplink stores deeplink values for the next merge. It has no stage
// effect.
func (c *Coordinator) IngestDeeplink(payload model.Attribution) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.deeplink = model.Merge(payload, c.deeplink)
	return nil
}

// SetTemporaryDestination stores a one-shot override consumed by the next
// resolution.
func (c *Coordinator) SetTemporaryDestination(ctx context.Context, destination string) error {
	return c.settings.SetTemporaryDestination(ctx, destination)
}

// SetPushToken stores the platform push token sent with resolutions and
// registrations.
func (c *Coordinator) SetPushToken(ctx context.Context, token string) error {
	return c.settings.SetPushToken(ctx, token)
}

// Snapshot returns the current read model.
func (c *Coordinator) Snapshot() model.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// IsLocked reports whether a destination has been committed.
func (c *Coordinator) IsLocked() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.locked
}

// Subscribe delivers the current snapshot and then every change, in order.
// Callbacks may arrive on different goroutines but never concurrently, and
// must not call Subscribe.
func (c *Coordinator) Subscribe(fn func(model.Snapshot)) (unsubscribe func()) {
	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()

	c.mu.Lock()
	c.nextListener++
	id := c.nextListener
	c.listeners[id] = fn
	snap := c.snapshotLocked()
	c.mu.Unlock()

	fn(snap)
	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// Close stops the watcher, the machine and any in-flight flow.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	c.bootTimer.Stop()
	if c.watcher != nil {
		c.watcher.Stop()
	}
	c.unsubscribe()
	c.machine.Close()
	c.wg.Wait()
}

func (c *Coordinator) snapshotLocked() model.Snapshot {
	return model.Snapshot{
		Stage:             c.stage.Kind,
		Destination:       c.stage.Destination,
		Presentation:      c.presentation,
		PermissionPending: c.permissionPending,
		Locked:            c.locked,
	}
}

func (c *Coordinator) onTransition(from, to model.Stage, ev lifecycle.Event) {
	metrics.RecordStageTransition(string(from.Kind), string(to.Kind), ev.Kind.String())
	c.logger.Debug().
		Str(xglog.FieldOldStage, string(from.Kind)).
		Str(xglog.FieldNewStage, string(to.Kind)).
		Str(xglog.FieldEvent, ev.Kind.String()).
		Msg("stage transition")
}

// onStage runs on the machine goroutine.
func (c *Coordinator) onStage(stage model.Stage) {
	c.mu.Lock()
	if c.locked {
		c.mu.Unlock()
		metrics.RecordDiscarded("stage", "locked")
		return
	}
	c.stage = stage
	c.presentation = model.PresentationFor(stage)
	evaluate := false
	if stage.Kind == model.StageRunning {
		c.locked = true
		if !c.permissionEvaluated && !c.closed {
			c.permissionEvaluated = true
			evaluate = true
			c.wg.Add(1)
		}
	}
	presentation := c.presentation
	c.mu.Unlock()

	metrics.SetPresentationState(string(presentation))
	if stage.Kind == model.StageRunning {
		c.logger.Info().
			Str(xglog.FieldDestination, pnet.SanitizeURL(stage.Destination)).
			Bool(xglog.FieldLocked, true).
			Msg("destination activated")
	}
	c.notify()

	if evaluate {
		go func() {
			defer c.wg.Done()
			c.evaluatePermission(c.ctx)
		}()
	}
}

func (c *Coordinator) onConnectivity(connected bool) {
	if c.IsLocked() {
		metrics.RecordDiscarded("network", "locked")
		return
	}
	if connected {
		c.machine.Emit(lifecycle.ConnectivityRestored())
		return
	}
	c.machine.Emit(lifecycle.ConnectivityLost())
}

func (c *Coordinator) onBootTimeout() {
	if c.IsLocked() {
		metrics.RecordDiscarded("timeout", "locked")
		return
	}
	c.logger.Info().Dur("after", c.cfg.BootTimeout).Msg("boot timeout elapsed")
	c.machine.Emit(lifecycle.Timeout())
}

// notify takes the snapshot and delivers it under deliverMu, so listeners
// observe snapshots in the order they were taken.
func (c *Coordinator) notify() {
	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()

	c.mu.Lock()
	snap := c.snapshotLocked()
	fns := make([]func(model.Snapshot), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}
