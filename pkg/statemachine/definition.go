package statemachine

import (
	"fmt"
	"slices"
)

// Definition is an immutable transition table. Machines created from it
// share the table, so a definition is built once and a machine is
// restored per persisted session.
type Definition struct {
	initial     State
	states      map[State]struct{}
	transitions map[State]map[Event][]Transition
}

// Option configures a Definition.
type Option func(*Definition) error

// TransitionOption configures guards and actions of a single transition.
type TransitionOption func(*Transition)

// Define builds a Definition starting at initial.
func Define(initial State, opts ...Option) (*Definition, error) {
	if initial == "" {
		return nil, ErrInvalidState
	}
	d := &Definition{
		initial:     initial,
		states:      map[State]struct{}{initial: {}},
		transitions: make(map[State]map[Event][]Transition),
	}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// MustDefine is Define that panics on error. Meant for package-level tables.
func MustDefine(initial State, opts ...Option) *Definition {
	d, err := Define(initial, opts...)
	if err != nil {
		panic(fmt.Sprintf("statemachine: %v", err))
	}
	return d
}

// WithTransition adds from -> to on event. Several transitions may share
// from and event; the first one whose guards pass wins.
func WithTransition(from, to State, event Event, opts ...TransitionOption) Option {
	return func(d *Definition) error {
		if from == "" || to == "" || event == "" {
			return ErrInvalidTransition
		}
		t := Transition{From: from, To: to, Event: event}
		for _, opt := range opts {
			opt(&t)
		}
		if d.transitions[from] == nil {
			d.transitions[from] = make(map[Event][]Transition)
		}
		d.transitions[from][event] = append(d.transitions[from][event], t)
		d.states[from] = struct{}{}
		d.states[to] = struct{}{}
		return nil
	}
}

// WithGuard adds guards to a transition.
func WithGuard(guards ...Guard) TransitionOption {
	return func(t *Transition) {
		for _, g := range guards {
			if g != nil {
				t.Guards = append(t.Guards, g)
			}
		}
	}
}

// WithAction adds actions to a transition.
func WithAction(actions ...Action) TransitionOption {
	return func(t *Transition) {
		for _, a := range actions {
			if a != nil {
				t.Actions = append(t.Actions, a)
			}
		}
	}
}

// Initial returns the starting state.
func (d *Definition) Initial() State { return d.initial }

// Has reports whether s appears in any transition.
func (d *Definition) Has(s State) bool {
	_, ok := d.states[s]
	return ok
}

// Terminal reports whether no transition leaves s.
func (d *Definition) Terminal(s State) bool {
	return len(d.transitions[s]) == 0
}

// Events lists the events defined from s, sorted.
func (d *Definition) Events(s State) []Event {
	events := make([]Event, 0, len(d.transitions[s]))
	for e := range d.transitions[s] {
		events = append(events, e)
	}
	slices.Sort(events)
	return events
}

// New returns a machine in the initial state.
func (d *Definition) New() *Machine {
	return &Machine{def: d, current: d.initial}
}

// Restore returns a machine positioned at a previously persisted state.
func (d *Definition) Restore(s State) (*Machine, error) {
	if !d.Has(s) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownState, s)
	}
	return &Machine{def: d, current: s}, nil
}
