package flow

import (
	"errors"
	"fmt"
)

// ValidationError represents a single flow validation failure.
type ValidationError struct {
	Node   string // Node id ("" for document-level problems)
	Field  string // Field name within the node
	Reason string // Human-readable reason for failure
}

func (e *ValidationError) Error() string {
	switch {
	case e.Node == "":
		return fmt.Sprintf("field %q: %s", e.Field, e.Reason)
	case e.Field == "":
		return fmt.Sprintf("node %q: %s", e.Node, e.Reason)
	default:
		return fmt.Sprintf("node %q field %q: %s", e.Node, e.Field, e.Reason)
	}
}

// AggregateError represents multiple validation failures.
type AggregateError struct {
	Errors []error
}

func (e *AggregateError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msg := fmt.Sprintf("%d validation errors:\n", len(e.Errors))
	for i, err := range e.Errors {
		msg += fmt.Sprintf("  %d. %s\n", i+1, err.Error())
	}
	return msg
}

// Unwrap exposes the individual failures to errors.Is / errors.As.
func (e *AggregateError) Unwrap() []error {
	return e.Errors
}

// ValidationErrors returns all validation errors if err is an AggregateError.
// Otherwise returns nil.
func ValidationErrors(err error) []error {
	var aggr *AggregateError
	if errors.As(err, &aggr) {
		return aggr.Errors
	}
	return nil
}
