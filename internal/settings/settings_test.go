// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package settings

import (
	"context"
	"testing"
	"time"

	"github.com/ManuGH/castlog/internal/domain/activation/model"
	"github.com/ManuGH/castlog/internal/kvstore"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newSettings(t *testing.T) (*Settings, kvstore.Store) {
	t.Helper()
	store := kvstore.NewMemoryStore()
	return New(store), store
}

func TestTemporaryDestination_ReadOnce(t *testing.T) {
	ctx := context.Background()
	s, _ := newSettings(t)

	_, found, err := s.TakeTemporaryDestination(ctx)
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, s.SetTemporaryDestination(ctx, "https://promo.example"))
	v, found, err := s.TakeTemporaryDestination(ctx)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "https://promo.example", v)

	_, found, err = s.TakeTemporaryDestination(ctx)
	require.NoError(t, err)
	require.False(t, found, "override is consumed by the first read")
}

func TestFirstLaunch(t *testing.T) {
	ctx := context.Background()
	s, _ := newSettings(t)

	first, err := s.IsFirstLaunch(ctx)
	require.NoError(t, err)
	require.True(t, first)

	require.NoError(t, s.MarkLaunched(ctx))
	first, err = s.IsFirstLaunch(ctx)
	require.NoError(t, err)
	require.False(t, first)
}

func TestPermissionFlags(t *testing.T) {
	ctx := context.Background()
	s, store := newSettings(t)

	granted, err := s.PermissionGranted(ctx)
	require.NoError(t, err)
	require.False(t, granted)

	require.NoError(t, s.SetPermissionGranted(ctx, true))
	require.NoError(t, s.SetPermissionDenied(ctx, false))
	granted, _ = s.PermissionGranted(ctx)
	denied, _ := s.PermissionDenied(ctx)
	require.True(t, granted)
	require.False(t, denied)

	require.NoError(t, store.Set(ctx, keyPermissionDenied, "maybe"))
	_, err = s.PermissionDenied(ctx)
	require.Error(t, err)
}

func TestLastPermissionRequest_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s, _ := newSettings(t)

	_, found, err := s.LastPermissionRequest(ctx)
	require.NoError(t, err)
	require.False(t, found)

	ts := time.Date(2026, 3, 1, 12, 30, 0, 0, time.FixedZone("CET", 3600))
	require.NoError(t, s.SetLastPermissionRequest(ctx, ts))
	got, found, err := s.LastPermissionRequest(ctx)
	require.NoError(t, err)
	require.True(t, found)
	require.True(t, ts.Equal(got))
}

func TestAttribution_EmptyIsAbsent(t *testing.T) {
	ctx := context.Background()
	s, _ := newSettings(t)

	require.NoError(t, s.SetAttribution(ctx, model.Attribution{}))
	_, found, err := s.Attribution(ctx)
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, s.SetAttribution(ctx, model.Attribution{"af_status": "Organic", "n": 2}))
	got, found, err := s.Attribution(ctx)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "Organic", got["af_status"])
	require.Equal(t, float64(2), got["n"])
}

func TestDeviceID_StableAfterGeneration(t *testing.T) {
	ctx := context.Background()
	s, _ := newSettings(t)

	id, err := s.DeviceID(ctx)
	require.NoError(t, err)
	_, err = uuid.Parse(id)
	require.NoError(t, err)

	again, err := s.DeviceID(ctx)
	require.NoError(t, err)
	require.Equal(t, id, again)
}

func TestCachedDestinationAndStatus(t *testing.T) {
	ctx := context.Background()
	s, _ := newSettings(t)

	require.NoError(t, s.SetCachedDestination(ctx, "https://cached.example"))
	require.NoError(t, s.SetStatus(ctx, StatusInactive))
	require.NoError(t, s.SetPushToken(ctx, "tok"))

	d, found, err := s.CachedDestination(ctx)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "https://cached.example", d)

	status, err := s.Status(ctx)
	require.NoError(t, err)
	require.Equal(t, StatusInactive, status)

	tok, err := s.PushToken(ctx)
	require.NoError(t, err)
	require.Equal(t, "tok", tok)
}
