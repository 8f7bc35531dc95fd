// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package lifecycle

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ManuGH/castlog/internal/domain/activation/model"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recorder struct {
	mu     sync.Mutex
	stages []model.Stage
}

func (r *recorder) listen(s model.Stage) {
	r.mu.Lock()
	r.stages = append(r.stages, s)
	r.mu.Unlock()
}

func (r *recorder) snapshot() []model.Stage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Stage(nil), r.stages...)
}

func (r *recorder) waitLen(t *testing.T, n int) []model.Stage {
	t.Helper()
	require.Eventually(t, func() bool { return len(r.snapshot()) >= n }, time.Second, time.Millisecond)
	return r.snapshot()
}

func TestMachine_SubscribeReplaysCurrent(t *testing.T) {
	m := NewMachine()
	defer m.Close()

	rec := &recorder{}
	m.Subscribe(rec.listen)

	got := rec.waitLen(t, 1)
	require.Equal(t, []model.Stage{model.Dormant()}, got)
}

func TestMachine_BootOnlyOnce(t *testing.T) {
	m := NewMachine()
	defer m.Close()

	rec := &recorder{}
	m.Subscribe(rec.listen)
	m.Emit(Boot())
	m.Emit(Boot())
	m.Emit(Boot())
	// sentinel: proves the queue drained past the duplicates
	m.Emit(DataIngested(model.Attribution{"a": 1}))

	got := rec.waitLen(t, 3)
	require.Equal(t, []model.Stage{
		model.Dormant(),
		{Kind: model.StageStarting},
		{Kind: model.StageVerifying},
	}, got)
}

func TestMachine_NoOpDoesNotNotify(t *testing.T) {
	var hookCalls int
	var mu sync.Mutex
	m := NewMachine(WithHook(func(_, _ model.Stage, _ Event) {
		mu.Lock()
		hookCalls++
		mu.Unlock()
	}))
	defer m.Close()

	rec := &recorder{}
	m.Subscribe(rec.listen)
	m.Emit(ValidationPassed())
	m.Emit(DestinationFound("https://x.example"))
	m.Emit(ConnectivityRestored())
	m.Emit(Boot())

	got := rec.waitLen(t, 2)
	require.Len(t, got, 2)
	require.Equal(t, model.StageStarting, got[1].Kind)
	mu.Lock()
	require.Equal(t, 1, hookCalls)
	mu.Unlock()
}

func TestMachine_OfflineThenRestoredPauses(t *testing.T) {
	m := NewMachine()
	defer m.Close()

	rec := &recorder{}
	m.Subscribe(rec.listen)
	m.Emit(Boot())
	m.Emit(DataIngested(nil))
	m.Emit(ConnectivityLost())
	m.Emit(ConnectivityRestored())

	got := rec.waitLen(t, 5)
	require.Equal(t, model.StageVerifying, got[2].Kind)
	require.Equal(t, model.StageOffline, got[3].Kind)
	require.Equal(t, model.StagePaused, got[4].Kind)
}

func TestMachine_ConcurrentProducersSerialized(t *testing.T) {
	m := NewMachine()
	defer m.Close()

	rec := &recorder{}
	m.Subscribe(rec.listen)
	m.Emit(Boot())
	m.Emit(DataIngested(nil))
	m.Emit(ValidationPassed())

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(2)
		go func() { defer wg.Done(); m.Emit(Timeout()) }()
		go func() { defer wg.Done(); m.Emit(DestinationFound("https://race.example")) }()
	}
	wg.Wait()

	require.Eventually(t, func() bool { return m.Current().IsFinal() }, time.Second, time.Millisecond)
	// whichever terminal trigger won, exactly one terminal stage was published
	got := rec.snapshot()
	finals := 0
	for _, s := range got {
		if s.IsFinal() {
			finals++
		}
	}
	require.Equal(t, 1, finals)
}

func TestMachine_UnsubscribeStopsDelivery(t *testing.T) {
	m := NewMachine()
	defer m.Close()

	rec := &recorder{}
	unsubscribe := m.Subscribe(rec.listen)
	rec.waitLen(t, 1)
	unsubscribe()
	unsubscribe()

	other := &recorder{}
	m.Emit(Boot())
	m.Subscribe(other.listen)

	got := other.waitLen(t, 1)
	require.Equal(t, model.StageStarting, got[0].Kind)
	require.Len(t, rec.snapshot(), 1)
}

func TestMachine_EmitAfterCloseIsDropped(t *testing.T) {
	m := NewMachine()
	m.Close()
	m.Close()
	m.Emit(Boot())
	require.Equal(t, model.StageDormant, m.Current().Kind)
}

func TestMachine_WithInitialStage(t *testing.T) {
	m := NewMachine(WithInitialStage(model.Stage{Kind: model.StageAuthorized}))
	defer m.Close()

	m.Emit(DestinationFound("https://dest.example"))
	require.Eventually(t, func() bool { return m.Current().Kind == model.StageRunning }, time.Second, time.Millisecond)
	require.Equal(t, "https://dest.example", m.Current().Destination)
}

func TestMachine_EmitWaitReturnsCommittedStage(t *testing.T) {
	m := NewMachine()
	defer m.Close()

	rec := &recorder{}
	m.Subscribe(rec.listen)

	got, ok := m.EmitWait(context.Background(), Boot())
	require.True(t, ok)
	require.Equal(t, model.StageStarting, got.Kind)
	// listeners have already seen the stage when EmitWait returns
	require.Equal(t, model.StageStarting, rec.snapshot()[len(rec.snapshot())-1].Kind)

	m.Emit(Timeout())
	got, ok = m.EmitWait(context.Background(), ValidationPassed())
	require.True(t, ok)
	require.Equal(t, model.StagePaused, got.Kind, "no-op reports the unchanged stage")
}

func TestMachine_EmitWaitAfterClose(t *testing.T) {
	m := NewMachine()
	m.Close()

	_, ok := m.EmitWait(context.Background(), Boot())
	require.False(t, ok)
}

func TestMachine_EmitWaitHonorsContext(t *testing.T) {
	m := NewMachine()
	defer m.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// a cancelled context may still race with a fast reply; either is fine
	// as long as the call returns
	done := make(chan struct{})
	go func() {
		defer close(done)
		m.EmitWait(ctx, Boot())
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("EmitWait did not return")
	}
}
