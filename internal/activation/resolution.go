// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package activation

import (
	"context"
	"errors"

	"github.com/ManuGH/castlog/internal/domain/activation/lifecycle"
	"github.com/ManuGH/castlog/internal/domain/activation/model"
	xglog "github.com/ManuGH/castlog/internal/log"
	"github.com/ManuGH/castlog/internal/metrics"
	pnet "github.com/ManuGH/castlog/internal/platform/net"
	"github.com/ManuGH/castlog/internal/resolver"
	"github.com/ManuGH/castlog/internal/settings"
	"github.com/ManuGH/castlog/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// validate runs the gateway check and, on pass, the resolution chain. A
// negative verdict and a lookup failure both reject.
func (c *Coordinator) validate(ctx context.Context) {
	ctx, span := telemetry.Tracer("castlog/activation").Start(ctx, "activation.validate")
	defer span.End()
	c.mu.Lock()
	span.SetAttributes(attribute.Bool(telemetry.HasDeeplinkKey, len(c.deeplink) > 0))
	c.mu.Unlock()

	granted, err := c.gateway.CheckAccess(ctx)
	if ctx.Err() != nil {
		return
	}
	if err != nil || !granted {
		ev := c.logger.Info()
		if err != nil {
			ev = c.logger.Warn().Err(err)
		}
		ev.Bool("granted", granted).Msg("validation rejected")
		c.machine.Emit(lifecycle.ValidationRejected())
		return
	}
	c.logger.Info().Msg("validation passed")
	stage, ok := c.machine.EmitWait(ctx, lifecycle.ValidationPassed())
	if !ok {
		return
	}
	if stage.Kind != model.StageAuthorized {
		// settled while the gateway was answering
		c.logger.Info().Str(xglog.FieldStage, string(stage.Kind)).Msg("validation passed too late, skipping resolution")
		return
	}

	dest, source := c.resolve(ctx)
	span.SetAttributes(attribute.String(telemetry.SourceKey, source))
	if ctx.Err() != nil {
		return
	}
	if err := c.settings.MarkLaunched(ctx); err != nil {
		c.logger.Warn().Err(err).Msg("mark launched")
	}

	metrics.RecordResolution(source)
	c.logger.Info().
		Str(xglog.FieldSource, source).
		Str(xglog.FieldDestination, pnet.SanitizeURL(dest)).
		Msg("resolution finished")
	if dest == "" {
		c.machine.Emit(lifecycle.Timeout())
		return
	}
	c.machine.Emit(lifecycle.DestinationFound(dest))
}

// resolve picks the destination in priority order: temporary override,
// fresh resolution, cached destination. An empty result means timeout.
func (c *Coordinator) resolve(ctx context.Context) (string, string) {
	if dest, ok, err := c.settings.TakeTemporaryDestination(ctx); err != nil {
		c.logger.Warn().Err(err).Msg("read temporary destination")
	} else if ok {
		return dest, metrics.SourceTemporary
	}

	attribution := c.storedAttribution(ctx)
	if len(attribution) == 0 {
		return c.cached(ctx)
	}

	status, err := c.settings.Status(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("read status flag")
	}
	if status == settings.StatusInactive {
		return "", metrics.SourceInactive
	}

	first, err := c.settings.IsFirstLaunch(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("read first launch flag")
	}
	if first && attribution.IsOrganic() {
		refreshed, err := c.refetch(ctx, attribution)
		if err != nil {
			c.logger.Warn().Err(err).Msg("attribution refetch failed")
			return c.cached(ctx)
		}
		attribution = refreshed
	}

	dest, err := c.resolver.ResolveDestination(ctx, attribution)
	if err != nil {
		c.logger.Warn().Err(err).Msg("destination resolution failed")
		if errors.Is(err, resolver.ErrDestinationDeclined) {
			if err := c.settings.SetStatus(ctx, settings.StatusInactive); err != nil {
				c.logger.Warn().Err(err).Msg("store status flag")
			}
		}
		return c.cached(ctx)
	}

	if err := c.settings.SetCachedDestination(ctx, dest); err != nil {
		c.logger.Warn().Err(err).Msg("store cached destination")
	}
	if err := c.settings.SetStatus(ctx, settings.StatusActive); err != nil {
		c.logger.Warn().Err(err).Msg("store status flag")
	}
	return dest, metrics.SourceFresh
}

// refetch waits the refetch delay, fetches attribution again and merges it
// over the stored payload.
func (c *Coordinator) refetch(ctx context.Context, stored model.Attribution) (model.Attribution, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.clock.After(c.cfg.RefetchDelay):
	}

	deviceID, err := c.settings.DeviceID(ctx)
	if err != nil {
		return nil, err
	}
	fresh, err := c.resolver.FetchAttribution(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	return model.Merge(fresh, stored), nil
}

// storedAttribution is the session payload merged with deeplink values,
// falling back to the payload persisted by an earlier launch.
func (c *Coordinator) storedAttribution(ctx context.Context) model.Attribution {
	c.mu.Lock()
	merged := model.Merge(c.attribution, c.deeplink)
	c.mu.Unlock()
	if len(merged) > 0 {
		return merged
	}

	persisted, ok, err := c.settings.Attribution(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("read persisted attribution")
		return nil
	}
	if !ok {
		return nil
	}
	return persisted
}

func (c *Coordinator) cached(ctx context.Context) (string, string) {
	dest, ok, err := c.settings.CachedDestination(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("read cached destination")
		return "", metrics.SourceNone
	}
	if !ok {
		return "", metrics.SourceNone
	}
	return dest, metrics.SourceCached
}
