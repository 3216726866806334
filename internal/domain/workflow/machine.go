package workflow

import (
	"context"
	"errors"
)

var (
	ErrInvalidTransition = errors.New("step does not accept this action")
	ErrInvalidState      = errors.New("unknown wizard step")
	// ErrGuardFailed means the trigger is known but its condition is unmet
	ErrGuardFailed = errors.New("step condition not met")
)

// StateMachine tracks the current step and validates transitions
type StateMachine interface {
	// State returns the current state
	State() State

	// CanFire returns true if the trigger is configured for the current state.
	// Guards are not evaluated.
	CanFire(trigger Trigger) bool

	// Fire executes the trigger, moving to the first target whose guard passes
	Fire(ctx context.Context, trigger Trigger) error

	// PermittedTriggers returns the triggers configured for the current state
	PermittedTriggers() []Trigger
}

// WizardGuards supplies the conditions of the wizard graph
type WizardGuards struct {
	HeaderComplete GuardFunc
	HasLineItems   GuardFunc
}

// NewWizardMachine builds the Header -> Lines -> Finalized graph starting at initial
func NewWizardMachine(initial State, guards WizardGuards) (StateMachine, error) {
	if !initial.IsValid() {
		return nil, ErrInvalidState
	}

	b := NewBuilder()
	b.Configure(StateHeader).
		PermitIf(TriggerSubmitHeader, StateLines, guards.HeaderComplete)
	b.Configure(StateLines).
		PermitIf(TriggerFinalize, StateFinalized, guards.HasLineItems)

	return b.Build(initial), nil
}
