package statemachine

import (
	"context"
	"fmt"
	"sync"
)

// Machine tracks the current state of one instance of a Definition.
// It is safe for concurrent use.
type Machine struct {
	def     *Definition
	mu      sync.Mutex
	current State
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Fire runs the first allowed transition for event and moves to its target.
func (m *Machine) Fire(ctx context.Context, event Event, data any) error {
	if event == "" {
		return ErrInvalidEvent
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	candidates := m.def.transitions[m.current][event]
	if len(candidates) == 0 {
		return &NoTransitionError{State: m.current, Event: event}
	}

	var chosen *Transition
	for i := range candidates {
		if candidates[i].allowed(ctx, event, data) {
			chosen = &candidates[i]
			break
		}
	}
	if chosen == nil {
		return &RejectedError{State: m.current, Event: event}
	}

	for _, action := range chosen.Actions {
		if err := action(ctx, m.current, chosen.To, event, data); err != nil {
			return fmt.Errorf("action failed: %w", err)
		}
	}

	m.current = chosen.To
	return nil
}

// CanFire reports whether Fire would find an allowed transition.
// Actions are not run.
func (m *Machine) CanFire(ctx context.Context, event Event, data any) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range m.def.transitions[m.current][event] {
		if t.allowed(ctx, event, data) {
			return true
		}
	}
	return false
}

// Done reports whether the machine reached a terminal state.
func (m *Machine) Done() bool {
	return m.def.Terminal(m.Current())
}

// Reset moves the machine back to the initial state.
func (m *Machine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = m.def.initial
}
