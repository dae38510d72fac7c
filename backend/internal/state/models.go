package state

import (
	"fmt"
)

// State is the decision state of a friend or group membership request.
type State string

const (
	Pending  State = "pending"
	Accepted State = "accepted"
	Denied   State = "denied"
)

// Of derives the state from the persisted accepted/denied flags.
func Of(accepted, denied bool) State {
	switch {
	case accepted:
		return Accepted
	case denied:
		return Denied
	default:
		return Pending
	}
}

// Terminal reports whether no further transition is allowed.
func (s State) Terminal() bool {
	return s == Accepted || s == Denied
}

// Flags returns the accepted/denied pair persisted for s.
func (s State) Flags() (accepted, denied bool) {
	return s == Accepted, s == Denied
}

// Transition validates a move from s to next.
// Only pending -> accepted and pending -> denied are legal.
func (s State) Transition(next State) (State, error) {
	if s.Terminal() {
		return s, ErrInvalidTransition{From: s, To: next}
	}
	if next != Accepted && next != Denied {
		return s, ErrInvalidTransition{From: s, To: next}
	}
	return next, nil
}

// Decision is the outcome recorded when a request leaves Pending.
type Decision struct {
	State State
	By    string
}

// Validate checks that a decision names a terminal state and a decider.
func (d Decision) Validate() error {
	if !d.State.Terminal() {
		return ErrInvalidDecision{Reason: fmt.Sprintf("state %q is not terminal", d.State)}
	}
	if d.By == "" {
		return ErrInvalidDecision{Reason: "decider cannot be empty"}
	}
	return nil
}

// Errors

type ErrInvalidTransition struct {
	From State
	To   State
}

func (e ErrInvalidTransition) Error() string {
	return fmt.Sprintf("invalid request transition: %s -> %s", e.From, e.To)
}

type ErrInvalidDecision struct {
	Reason string
}

func (e ErrInvalidDecision) Error() string {
	return fmt.Sprintf("invalid decision: %s", e.Reason)
}
