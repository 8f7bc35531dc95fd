// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package settings exposes the typed, durable values the activation flow
// reads and writes between launches.
package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/ManuGH/castlog/internal/domain/activation/model"
	"github.com/ManuGH/castlog/internal/kvstore"
	"github.com/google/uuid"
)

const (
	keyCachedDestination    = "cached_destination"
	keyStatus               = "status"
	keyFirstLaunchDone      = "first_launch_done"
	keyPermissionLastAsked  = "permission_last_request"
	keyPermissionGranted    = "permission_granted"
	keyPermissionDenied     = "permission_denied"
	keyTemporaryDestination = "temporary_destination"
	keyAttribution          = "attribution"
	keyDeviceID             = "device_id"
	keyPushToken            = "push_token"
)

// Status flag values.
const (
	StatusActive   = "Active"
	StatusInactive = "Inactive"
)

// Settings wraps a kvstore.Store with typed accessors. Absent keys read as
// zero values with found=false.
type Settings struct {
	store kvstore.Store
}

// New wraps store.
func New(store kvstore.Store) *Settings {
	return &Settings{store: store}
}

// Store returns the underlying key-value store.
func (s *Settings) Store() kvstore.Store { return s.store }

func (s *Settings) CachedDestination(ctx context.Context) (string, bool, error) {
	return s.nonEmpty(ctx, keyCachedDestination)
}

func (s *Settings) SetCachedDestination(ctx context.Context, destination string) error {
	return s.store.Set(ctx, keyCachedDestination, destination)
}

func (s *Settings) Status(ctx context.Context) (string, error) {
	v, _, err := s.store.Get(ctx, keyStatus)
	return v, err
}

func (s *Settings) SetStatus(ctx context.Context, status string) error {
	return s.store.Set(ctx, keyStatus, status)
}

// IsFirstLaunch reports true until MarkLaunched has been called once.
func (s *Settings) IsFirstLaunch(ctx context.Context) (bool, error) {
	done, _, err := s.boolValue(ctx, keyFirstLaunchDone)
	return !done, err
}

func (s *Settings) MarkLaunched(ctx context.Context) error {
	return s.store.Set(ctx, keyFirstLaunchDone, strconv.FormatBool(true))
}

func (s *Settings) LastPermissionRequest(ctx context.Context) (time.Time, bool, error) {
	raw, found, err := s.store.Get(ctx, keyPermissionLastAsked)
	if err != nil || !found || raw == "" {
		return time.Time{}, false, err
	}
	ts, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("settings: %s: %w", keyPermissionLastAsked, err)
	}
	return ts, true, nil
}

func (s *Settings) SetLastPermissionRequest(ctx context.Context, ts time.Time) error {
	return s.store.Set(ctx, keyPermissionLastAsked, ts.UTC().Format(time.RFC3339Nano))
}

func (s *Settings) PermissionGranted(ctx context.Context) (bool, error) {
	v, _, err := s.boolValue(ctx, keyPermissionGranted)
	return v, err
}

func (s *Settings) SetPermissionGranted(ctx context.Context, granted bool) error {
	return s.store.Set(ctx, keyPermissionGranted, strconv.FormatBool(granted))
}

func (s *Settings) PermissionDenied(ctx context.Context) (bool, error) {
	v, _, err := s.boolValue(ctx, keyPermissionDenied)
	return v, err
}

func (s *Settings) SetPermissionDenied(ctx context.Context, denied bool) error {
	return s.store.Set(ctx, keyPermissionDenied, strconv.FormatBool(denied))
}

// SetTemporaryDestination stores a one-shot override.
func (s *Settings) SetTemporaryDestination(ctx context.Context, destination string) error {
	return s.store.Set(ctx, keyTemporaryDestination, destination)
}

// TakeTemporaryDestination returns and clears the one-shot override.
func (s *Settings) TakeTemporaryDestination(ctx context.Context) (string, bool, error) {
	v, found, err := s.nonEmpty(ctx, keyTemporaryDestination)
	if err != nil || !found {
		return "", false, err
	}
	if err := s.store.Delete(ctx, keyTemporaryDestination); err != nil {
		return "", false, err
	}
	return v, true, nil
}

// Attribution returns the persisted attribution payload, if any.
func (s *Settings) Attribution(ctx context.Context) (model.Attribution, bool, error) {
	raw, found, err := s.nonEmpty(ctx, keyAttribution)
	if err != nil || !found {
		return nil, false, err
	}
	var out model.Attribution
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, false, fmt.Errorf("settings: %s: %w", keyAttribution, err)
	}
	return out, len(out) > 0, nil
}

func (s *Settings) SetAttribution(ctx context.Context, payload model.Attribution) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("settings: encode attribution: %w", err)
	}
	return s.store.Set(ctx, keyAttribution, string(raw))
}

// DeviceID returns the persisted device identifier, generating one on
// first use.
func (s *Settings) DeviceID(ctx context.Context) (string, error) {
	v, found, err := s.nonEmpty(ctx, keyDeviceID)
	if err != nil {
		return "", err
	}
	if found {
		return v, nil
	}
	id := uuid.New().String()
	if err := s.store.Set(ctx, keyDeviceID, id); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Settings) PushToken(ctx context.Context) (string, error) {
	v, _, err := s.store.Get(ctx, keyPushToken)
	return v, err
}

func (s *Settings) SetPushToken(ctx context.Context, token string) error {
	return s.store.Set(ctx, keyPushToken, token)
}

func (s *Settings) nonEmpty(ctx context.Context, key string) (string, bool, error) {
	v, found, err := s.store.Get(ctx, key)
	if err != nil {
		return "", false, err
	}
	return v, found && v != "", nil
}

func (s *Settings) boolValue(ctx context.Context, key string) (bool, bool, error) {
	raw, found, err := s.store.Get(ctx, key)
	if err != nil || !found {
		return false, false, err
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false, fmt.Errorf("settings: %s: %w", key, err)
	}
	return v, true, nil
}
