package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrDefinition is the sentinel matched by every DefinitionError.
var ErrDefinition = errors.New("invalid machine definition")

// ErrInvalidEvent is the sentinel matched by every InvalidEventPayloadError.
var ErrInvalidEvent = errors.New("invalid event payload")

// ErrUsage is the sentinel matched by every UsageError.
var ErrUsage = errors.New("invalid usage")

// ErrSessionNotFound is returned when a session ID is unknown.
var ErrSessionNotFound = errors.New("session not found")

// ErrNoMachine is returned when an operation needs a loaded machine.
var ErrNoMachine = errors.New("no machine loaded")

// DefinitionError reports a malformed or unconstructible machine definition.
// It aggregates every issue found so authors can fix them in one pass.
type DefinitionError struct {
	Issues []string
	Err    error
}

func (e *DefinitionError) Error() string {
	switch {
	case len(e.Issues) == 1:
		return fmt.Sprintf("%s: %s", ErrDefinition, e.Issues[0])
	case len(e.Issues) > 1:
		var sb strings.Builder
		fmt.Fprintf(&sb, "%s: %d issues:\n", ErrDefinition, len(e.Issues))
		for i, issue := range e.Issues {
			fmt.Fprintf(&sb, "  %d. %s\n", i+1, issue)
		}
		return sb.String()
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", ErrDefinition, e.Err)
	}
	return ErrDefinition.Error()
}

// Is makes errors.Is(err, ErrDefinition) true.
func (e *DefinitionError) Is(target error) bool {
	return target == ErrDefinition
}

func (e *DefinitionError) Unwrap() error {
	return e.Err
}

// InvalidEventPayloadError reports a malformed event supplied to send or preview.
type InvalidEventPayloadError struct {
	Reason string
	Err    error
}

func (e *InvalidEventPayloadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", ErrInvalidEvent, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", ErrInvalidEvent, e.Reason)
}

func (e *InvalidEventPayloadError) Is(target error) bool {
	return target == ErrInvalidEvent
}

func (e *InvalidEventPayloadError) Unwrap() error {
	return e.Err
}

// UsageError reports an operation invoked while the interpreter was not in the required status.
type UsageError struct {
	Op     string
	Status string
}

func (e *UsageError) Error() string {
	return fmt.Sprintf("%s: cannot %s while interpreter is %s", ErrUsage, e.Op, e.Status)
}

func (e *UsageError) Is(target error) bool {
	return target == ErrUsage
}

// TransitionError reports a step of the run-to-completion algorithm that failed.
// The whole transition is rejected and the prior configuration is retained.
type TransitionError struct {
	Event  string
	NodeID string
	Stage  string // "guard" or "action"
	Err    error
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("event %q rejected: %s failed on node %s: %v", e.Event, e.Stage, e.NodeID, e.Err)
}

func (e *TransitionError) Unwrap() error {
	return e.Err
}
