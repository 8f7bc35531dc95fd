// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package lifecycle

import (
	"context"
	"sync"

	"github.com/ManuGH/castlog/internal/domain/activation/model"
)

// Listener receives published stages. Listeners run on the machine's loop
// goroutine and must not block; calling Emit from a listener is allowed,
// EmitWait is not.
type Listener func(model.Stage)

// Hook observes every committed transition before listeners are notified.
type Hook func(from, to model.Stage, ev Event)

// Option configures a Machine.
type Option func(*Machine)

// WithHook installs a transition observer (metrics, logging).
func WithHook(h Hook) Option {
	return func(m *Machine) { m.hook = h }
}

// WithInitialStage overrides the dormant starting stage.
func WithInitialStage(s model.Stage) Option {
	return func(m *Machine) { m.current = s }
}

type command struct {
	event       *Event
	reply       chan model.Stage
	subscribe   *subscription
	unsubscribe int
}

type subscription struct {
	id int
	fn Listener
}

// Machine serializes events through Next and publishes each new stage to its
// subscribers. Emission never blocks: events are queued without bound and
// consumed in order by a single goroutine.
type Machine struct {
	mu      sync.Mutex
	queue   []command
	current model.Stage
	closed  bool
	nextID  int

	// owned by the loop goroutine
	subs []subscription
	hook Hook

	wake chan struct{}
	done chan struct{}
	exit chan struct{}
}

// NewMachine starts a machine in the dormant stage. Close must be called to
// release its goroutine.
func NewMachine(opts ...Option) *Machine {
	m := &Machine{
		current: model.Dormant(),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		exit:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	go m.loop()
	return m
}

// Emit enqueues an event. Events emitted after Close are dropped.
func (m *Machine) Emit(ev Event) {
	m.enqueue(command{event: &ev})
}

// EmitWait enqueues an event and waits until it has been applied and every
// listener has seen the result. It returns the stage committed after the
// event, which equals the previous stage when the event was a no-op. ok is
// false when ctx ends or the machine closes first.
func (m *Machine) EmitWait(ctx context.Context, ev Event) (stage model.Stage, ok bool) {
	reply := make(chan model.Stage, 1)
	m.enqueue(command{event: &ev, reply: reply})
	select {
	case stage = <-reply:
		return stage, true
	case <-ctx.Done():
		return model.Stage{}, false
	case <-m.exit:
		return model.Stage{}, false
	}
}

// Subscribe registers fn and delivers the current stage to it as the first
// notification. The returned function unsubscribes.
func (m *Machine) Subscribe(fn Listener) (unsubscribe func()) {
	m.mu.Lock()
	m.nextID++
	id := m.nextID
	m.mu.Unlock()

	m.enqueue(command{subscribe: &subscription{id: id, fn: fn}})
	var once sync.Once
	return func() {
		once.Do(func() { m.enqueue(command{unsubscribe: id}) })
	}
}

// Current returns the latest committed stage.
func (m *Machine) Current() model.Stage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Close stops the loop and waits for it to exit. Queued but unprocessed
// events are discarded.
func (m *Machine) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		<-m.exit
		return
	}
	m.closed = true
	m.queue = nil
	m.mu.Unlock()
	close(m.done)
	<-m.exit
}

func (m *Machine) enqueue(cmd command) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.queue = append(m.queue, cmd)
	m.mu.Unlock()

	select {
	case m.wake <- struct{}{}:
	default:
	}
}

func (m *Machine) pop() (command, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || len(m.queue) == 0 {
		return command{}, false
	}
	cmd := m.queue[0]
	m.queue[0] = command{}
	m.queue = m.queue[1:]
	return cmd, true
}

func (m *Machine) loop() {
	defer close(m.exit)
	for {
		select {
		case <-m.done:
			return
		case <-m.wake:
		}
		for {
			cmd, ok := m.pop()
			if !ok {
				break
			}
			m.apply(cmd)
		}
	}
}

func (m *Machine) apply(cmd command) {
	switch {
	case cmd.event != nil:
		m.process(*cmd.event)
		if cmd.reply != nil {
			cmd.reply <- m.Current()
		}
	case cmd.subscribe != nil:
		m.subs = append(m.subs, *cmd.subscribe)
		cmd.subscribe.fn(m.Current())
	case cmd.unsubscribe != 0:
		out := m.subs[:0]
		for _, s := range m.subs {
			if s.id != cmd.unsubscribe {
				out = append(out, s)
			}
		}
		m.subs = out
	}
}

func (m *Machine) process(ev Event) {
	m.mu.Lock()
	from := m.current
	next, changed := Next(from, ev)
	if changed {
		m.current = next
	}
	m.mu.Unlock()
	if !changed {
		return
	}

	if m.hook != nil {
		m.hook(from, next, ev)
	}
	for _, s := range m.subs {
		s.fn(next)
	}
}
