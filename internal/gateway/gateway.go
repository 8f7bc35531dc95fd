// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package gateway implements the validation check that decides whether the
// remote destination flow may run at all.
package gateway

import (
	"context"
	"errors"
	"fmt"

	xglog "github.com/ManuGH/castlog/internal/log"
	"github.com/ManuGH/castlog/internal/metrics"
	pnet "github.com/ManuGH/castlog/internal/platform/net"
	"github.com/ManuGH/castlog/internal/telemetry"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var (
	// ErrAccessDenied describes a negative verdict. CheckAccess itself reports
	// denial as (false, nil); callers use this sentinel when they need an error.
	ErrAccessDenied = errors.New("gateway: access denied")
	// ErrGatewayFailure wraps lookup failures so they stay distinct from a
	// negative verdict.
	ErrGatewayFailure = errors.New("gateway: flag lookup failed")
)

// FlagSource reads a single value from the remote flag store.
type FlagSource interface {
	Lookup(ctx context.Context, path string) (value string, found bool, err error)
}

// Gateway checks the remote access flag.
type Gateway struct {
	source FlagSource
	path   string
	logger zerolog.Logger
}

// New returns a gateway reading path from source.
func New(source FlagSource, path string) *Gateway {
	return &Gateway{
		source: source,
		path:   path,
		logger: xglog.WithComponent("gateway"),
	}
}

// CheckAccess performs one lookup. It returns true iff the flag holds a
// non-empty, well-formed absolute URL.
func (g *Gateway) CheckAccess(ctx context.Context) (bool, error) {
	ctx, span := telemetry.Tracer("castlog/gateway").Start(ctx, "gateway.check_access")
	defer span.End()
	span.SetAttributes(attribute.String(telemetry.FlagPathKey, g.path))

	value, found, err := g.source.Lookup(ctx, g.path)
	if err != nil {
		metrics.RecordGatewayCheck("error")
		span.RecordError(err)
		span.SetStatus(codes.Error, "lookup failed")
		return false, fmt.Errorf("%w: %s: %v", ErrGatewayFailure, g.path, err)
	}

	_, ok := pnet.ParseAbsoluteURL(value)
	granted := found && ok
	if granted {
		metrics.RecordGatewayCheck("granted")
	} else {
		metrics.RecordGatewayCheck("denied")
	}
	g.logger.Debug().
		Bool("found", found).
		Bool("granted", granted).
		Msg("access flag evaluated")
	return granted, nil
}
