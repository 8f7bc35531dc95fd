// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package netwatch observes connectivity and reports transitions.
package netwatch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ManuGH/castlog/internal/clock"
	xglog "github.com/ManuGH/castlog/internal/log"
	"github.com/ManuGH/castlog/internal/metrics"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	DefaultInterval     = 5 * time.Second
	DefaultProbeTimeout = 3 * time.Second
)

// ErrAlreadyStarted is returned by a second Start.
var ErrAlreadyStarted = errors.New("netwatch: monitor already started")

// Config controls probe cadence.
type Config struct {
	Interval     time.Duration
	ProbeTimeout time.Duration
}

// Monitor polls a Prober and invokes the callback only when the connected
// state changes. The first observation is always reported.
type Monitor struct {
	prober Prober
	clock  clock.Clock
	cfg    Config
	logger zerolog.Logger

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	failureLog rate.Sometimes
}

// New returns a stopped monitor.
func New(prober Prober, clk clock.Clock, cfg Config) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = DefaultProbeTimeout
	}
	if clk == nil {
		clk = clock.Real()
	}
	return &Monitor{
		prober:     prober,
		clock:      clk,
		cfg:        cfg,
		logger:     xglog.WithComponent("netwatch"),
		failureLog: rate.Sometimes{First: 1, Interval: time.Minute},
	}
}

// Start begins monitoring on a background goroutine. onChange runs on that
// goroutine and must not call Stop.
func (m *Monitor) Start(onChange func(connected bool)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return ErrAlreadyStarted
	}
	m.started = true

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	ticker := m.clock.NewTicker(m.cfg.Interval)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer ticker.Stop()
		m.run(ctx, ticker, onChange)
	}()
	return nil
}

// Stop ends monitoring and waits for the loop to exit. No callback fires
// after Stop returns. Safe to call more than once.
func (m *Monitor) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	m.cancel = nil
	m.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	m.wg.Wait()
}

func (m *Monitor) run(ctx context.Context, ticker *clock.Ticker, onChange func(bool)) {
	var (
		last  bool
		known bool
	)
	for {
		connected := m.probe(ctx)
		if ctx.Err() != nil {
			return
		}
		if !known || connected != last {
			known = true
			last = connected
			metrics.RecordConnectivityChange(connected)
			m.logger.Info().Bool(xglog.FieldConnected, connected).Msg("connectivity changed")
			onChange(connected)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (m *Monitor) probe(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.ProbeTimeout)
	defer cancel()
	err := m.prober.Probe(ctx)
	if err != nil {
		m.failureLog.Do(func() {
			m.logger.Debug().Err(err).Msg("connectivity probe failed")
		})
		return false
	}
	return true
}
