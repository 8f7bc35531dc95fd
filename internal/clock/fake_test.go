// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFake_AfterFuncFiresOnAdvance(t *testing.T) {
	c := Fake(epoch)
	fired := 0
	c.AfterFunc(30*time.Second, func() { fired++ })

	c.Advance(29 * time.Second)
	require.Equal(t, 0, fired)
	c.Advance(time.Second)
	require.Equal(t, 1, fired)
	c.Advance(time.Hour)
	require.Equal(t, 1, fired, "one-shot timers fire once")
}

func TestFake_StopPreventsFiring(t *testing.T) {
	c := Fake(epoch)
	fired := false
	timer := c.AfterFunc(time.Second, func() { fired = true })

	require.True(t, timer.Stop())
	require.False(t, timer.Stop())
	c.Advance(2 * time.Second)
	require.False(t, fired)
	require.Zero(t, c.PendingCount())
}

func TestFake_AfterAndWaitForTimers(t *testing.T) {
	c := Fake(epoch)
	got := make(chan time.Time, 1)
	go func() { got <- <-c.After(5 * time.Second) }()

	c.WaitForTimers(1)
	c.Advance(5 * time.Second)

	select {
	case ts := <-got:
		require.Equal(t, epoch.Add(5*time.Second), ts)
	case <-time.After(time.Second):
		t.Fatal("After did not fire")
	}
}

func TestFake_TickerReschedules(t *testing.T) {
	c := Fake(epoch)
	ticker := c.NewTicker(time.Second)
	defer ticker.Stop()

	c.Advance(time.Second)
	<-ticker.C
	c.Advance(time.Second)
	<-ticker.C
	require.Equal(t, 1, c.PendingCount())
}
