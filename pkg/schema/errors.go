package schema

import (
	"errors"
	"fmt"
	"strings"
)

// FieldError reports one payload field that failed its schema.
type FieldError struct {
	Key    string
	Reason string
	Value  any
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %q: %s", e.Key, e.Reason)
}

// AggregateError groups every FieldError found in one payload.
type AggregateError struct {
	Errors []error
}

func (e *AggregateError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	parts := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		parts[i] = err.Error()
	}
	return fmt.Sprintf("%d fields invalid: %s", len(e.Errors), strings.Join(parts, "; "))
}

func (e *AggregateError) Unwrap() []error {
	return e.Errors
}

// FieldErrors returns the individual failures wrapped in err, if any.
func FieldErrors(err error) []*FieldError {
	var aggr *AggregateError
	if !errors.As(err, &aggr) {
		return nil
	}
	out := make([]*FieldError, 0, len(aggr.Errors))
	for _, e := range aggr.Errors {
		var fe *FieldError
		if errors.As(e, &fe) {
			out = append(out, fe)
		}
	}
	return out
}
