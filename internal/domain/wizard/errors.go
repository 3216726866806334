package wizard

import (
	"errors"
	"fmt"
	"strings"

	"github.com/garyjia/expense-wizard/internal/domain/workflow"
)

var (
	// ErrWrongStep is returned when an operation does not belong to the current step
	ErrWrongStep = errors.New("operation not allowed in current step")

	// ErrHeaderIncomplete is returned when the header lacks a required field
	ErrHeaderIncomplete = errors.New("header incomplete")

	// ErrReceiptRequired is returned when the standard policy rejects a line without a receipt
	ErrReceiptRequired = errors.New("Standard Policy Violation: Receipt is required for expenses over $75.")

	// ErrNoLineItems is returned when finalizing a report without lines
	ErrNoLineItems = errors.New("report has no line items")

	// ErrNotEditing is returned when an editor operation runs while the editor is idle
	ErrNotEditing = errors.New("no line is being edited")

	// ErrLineIndex is returned for a line index outside the report
	ErrLineIndex = errors.New("line index out of range")

	// ErrLineIncomplete is returned when a compliance check lacks amount or category
	ErrLineIncomplete = errors.New("line needs an amount and an expense item")

	// ErrInvalidField is returned when a patch carries an unacceptable value
	ErrInvalidField = errors.New("invalid field value")

	// ErrStaleEditor is returned when an asynchronous result targets an editor session that has moved on
	ErrStaleEditor = errors.New("editor changed since the request started")
)

// HeaderIncompleteError lists the missing header fields. It matches both
// ErrHeaderIncomplete and workflow.ErrGuardFailed.
type HeaderIncompleteError struct {
	Missing []string
	cause   error
}

func (e *HeaderIncompleteError) Error() string {
	return fmt.Sprintf("%s: missing %s", ErrHeaderIncomplete, strings.Join(e.Missing, ", "))
}

func (e *HeaderIncompleteError) Is(target error) bool {
	return target == ErrHeaderIncomplete
}

func (e *HeaderIncompleteError) Unwrap() error {
	if e.cause == nil {
		return workflow.ErrGuardFailed
	}
	return e.cause
}

func invalidField(field, reason string) error {
	return fmt.Errorf("%w: %s %s", ErrInvalidField, field, reason)
}
