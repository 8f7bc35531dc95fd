// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package health

import (
	"context"
	"time"

	"github.com/ManuGH/castlog/internal/domain/activation/model"
)

const defaultPingTimeout = 2 * time.Second

// Pinger is anything that can report reachability (a kvstore.Store).
type Pinger interface {
	Ping(ctx context.Context) error
}

// StoreChecker pings the settings store.
type StoreChecker struct {
	name    string
	store   Pinger
	timeout time.Duration
}

func NewStoreChecker(name string, store Pinger) *StoreChecker {
	return &StoreChecker{name: name, store: store, timeout: defaultPingTimeout}
}

func (c *StoreChecker) Name() string { return c.name }

func (c *StoreChecker) Check(ctx context.Context) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.store.Ping(ctx); err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	return CheckResult{Status: StatusHealthy, Message: "reachable"}
}

// SnapshotSource exposes the activation read model.
type SnapshotSource interface {
	Snapshot() model.Snapshot
}

// ActivationChecker is not ready while activation is still initializing.
// The stable problem states (standby, disconnected) report degraded.
type ActivationChecker struct {
	source SnapshotSource
}

func NewActivationChecker(source SnapshotSource) *ActivationChecker {
	return &ActivationChecker{source: source}
}

func (c *ActivationChecker) Name() string { return "activation" }

func (c *ActivationChecker) Check(context.Context) CheckResult {
	snap := c.source.Snapshot()
	msg := string(snap.Stage)
	switch snap.Presentation {
	case model.PresentationActive:
		return CheckResult{Status: StatusHealthy, Message: msg}
	case model.PresentationInitializing:
		return CheckResult{Status: StatusUnhealthy, Message: msg, Error: "activation in progress"}
	default:
		return CheckResult{Status: StatusDegraded, Message: msg}
	}
}
