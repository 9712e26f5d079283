package statemachine

import "context"

// State names a node of the machine.
type State string

// Event names a trigger for a transition.
type Event string

// Action runs side effects during a transition. Returning an error aborts the transition
// and the machine stays in its current state.
type Action func(ctx context.Context, from, to State, event Event, data any) error

// Guard decides at fire time whether a transition may be taken.
type Guard func(ctx context.Context, from State, event Event, data any) bool

// Transition is a state change triggered by an event.
type Transition struct {
	From    State
	To      State
	Event   Event
	Guards  []Guard  // All must pass
	Actions []Action // Executed in order before the state changes
}

func (t Transition) allowed(ctx context.Context, event Event, data any) bool {
	for _, g := range t.Guards {
		if g != nil && !g(ctx, t.From, event, data) {
			return false
		}
	}
	return true
}
