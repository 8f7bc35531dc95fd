// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package activation

import (
	"context"
	"errors"
)

// ErrNoAuthority is returned by GrantPermission when no authority is wired.
var ErrNoAuthority = errors.New("activation: no notification authority")

// ShouldShowPermissionRequest reports whether the presentation layer should
// prompt for notification permission. A previous grant or denial suppresses
// the prompt for good; a dismissal suppresses it for the cooldown period.
func (c *Coordinator) ShouldShowPermissionRequest(ctx context.Context) bool {
	granted, err := c.settings.PermissionGranted(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("read permission granted flag")
		return false
	}
	if granted {
		return false
	}
	denied, err := c.settings.PermissionDenied(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("read permission denied flag")
		return false
	}
	if denied {
		return false
	}

	last, ok, err := c.settings.LastPermissionRequest(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("read last permission request")
		return false
	}
	if ok && c.clock.Now().Sub(last) < c.cfg.PermissionCooldown {
		return false
	}
	return true
}

func (c *Coordinator) evaluatePermission(ctx context.Context) {
	pending := c.ShouldShowPermissionRequest(ctx)
	if ctx.Err() != nil {
		return
	}
	c.mu.Lock()
	c.permissionPending = pending
	c.mu.Unlock()
	c.logger.Debug().Bool("pending", pending).Msg("permission request evaluated")
	if pending {
		c.notify()
	}
}

// GrantPermission asks the authority for permission, records the answer and
// registers for notifications when granted.
func (c *Coordinator) GrantPermission(ctx context.Context) error {
	if c.authority == nil {
		return ErrNoAuthority
	}
	granted, err := c.authority.RequestAuthorization(ctx)
	if err != nil {
		return err
	}

	if granted {
		if err := c.settings.SetPermissionGranted(ctx, true); err != nil {
			return err
		}
		if err := c.authority.Register(ctx); err != nil {
			c.logger.Warn().Err(err).Msg("notification registration failed")
		}
	} else if err := c.settings.SetPermissionDenied(ctx, true); err != nil {
		return err
	}
	c.logger.Info().Bool("granted", granted).Msg("notification permission resolved")
	c.finalizePermission()
	return nil
}

// RejectPermission records a dismissal, which starts the cooldown.
func (c *Coordinator) RejectPermission(ctx context.Context) error {
	if err := c.settings.SetLastPermissionRequest(ctx, c.clock.Now()); err != nil {
		return err
	}
	c.logger.Info().Msg("notification permission dismissed")
	c.finalizePermission()
	return nil
}

// finalizePermission clears the pending flag. Stage transitions are already
// committed by the time permission resolves, so nothing else changes.
func (c *Coordinator) finalizePermission() {
	c.mu.Lock()
	changed := c.permissionPending
	c.permissionPending = false
	c.mu.Unlock()
	if changed {
		c.notify()
	}
}
