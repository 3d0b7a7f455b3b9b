package errors

import (
	"errors"
	"fmt"
)

// Category groups sync failures the way the orchestrator reports them.
type Category int

const (
	CategoryUnknown Category = iota
	// CategoryTransport covers network, auth and rate-limit failures returned by the OCI API.
	CategoryTransport
	// CategoryMalformed covers responses that could not be normalized or lack a required key.
	CategoryMalformed
	// CategoryGraphWrite covers constraint violations and connection loss on the graph side.
	CategoryGraphWrite
)

func (c Category) String() string {
	switch c {
	case CategoryTransport:
		return "transport"
	case CategoryMalformed:
		return "malformed"
	case CategoryGraphWrite:
		return "graph-write"
	default:
		return "unknown"
	}
}

// ParseError is returned when input handed to the normalizer is not structured data.
type ParseError struct {
	Input string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse %s: %v", e.Input, e.Err)
	}
	return fmt.Sprintf("parse %s", e.Input)
}

func (e *ParseError) Unwrap() error { return e.Err }

// MalformedError reports a normalized record that is missing an expected key
// or carries a value of the wrong shape.
type MalformedError struct {
	Field    string
	Resource string
	Reason   string
}

func (e *MalformedError) Error() string {
	if e.Resource != "" {
		return fmt.Sprintf("malformed record %s: field %q %s", e.Resource, e.Field, e.Reason)
	}
	return fmt.Sprintf("malformed record: field %q %s", e.Field, e.Reason)
}

// TransportError wraps a failure returned by an OCI API call.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// GraphWriteError wraps a failure returned by the graph database.
type GraphWriteError struct {
	Op  string
	Err error
}

func (e *GraphWriteError) Error() string {
	return fmt.Sprintf("graph %s: %v", e.Op, e.Err)
}

func (e *GraphWriteError) Unwrap() error { return e.Err }

func Transport(op string, err error) error {
	if err == nil {
		return nil
	}
	return &TransportError{Op: op, Err: err}
}

func GraphWrite(op string, err error) error {
	if err == nil {
		return nil
	}
	return &GraphWriteError{Op: op, Err: err}
}

func Missing(resource, field string) error {
	return &MalformedError{Resource: resource, Field: field, Reason: "is missing"}
}

func WrongType(resource, field string, got any) error {
	return &MalformedError{Resource: resource, Field: field, Reason: fmt.Sprintf("has unexpected type %T", got)}
}

// Classify returns the category of the first categorized error in err's chain.
func Classify(err error) Category {
	if err == nil {
		return CategoryUnknown
	}
	var (
		te *TransportError
		pe *ParseError
		me *MalformedError
		ge *GraphWriteError
	)
	switch {
	case errors.As(err, &te):
		return CategoryTransport
	case errors.As(err, &pe), errors.As(err, &me):
		return CategoryMalformed
	case errors.As(err, &ge):
		return CategoryGraphWrite
	}
	return CategoryUnknown
}
