package main

import (
	"fmt"
	"strings"
)

// ValidationError reports bad caller input. Raised synchronously
// before any external call; nothing is silently clamped.
type ValidationError struct {
	Field  string
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Detail)
}

// TransportError wraps a failed or timed-out model call. The only
// error kind the retry loop will retry.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("model call failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// FieldError records one evaluation the model returned in a shape
// that could not be used, naming the offending field.
type FieldError struct {
	PolicyID string
	Field    string
	Detail   string
}

func (e FieldError) Error() string {
	if e.PolicyID == "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Detail)
	}
	return fmt.Sprintf("%s (%s): %s", e.PolicyID, e.Field, e.Detail)
}

// MalformedResponseError reports model output that does not fit the
// grading schema. Never retried: the same prompt would likely produce
// the same malformed output. When Rejects is non-empty alongside a
// usable result, the caller received a best-effort partial result.
type MalformedResponseError struct {
	Detail  string
	Rejects []FieldError
}

func (e *MalformedResponseError) Error() string {
	if len(e.Rejects) == 0 {
		return fmt.Sprintf("malformed model response: %s", e.Detail)
	}
	parts := make([]string, len(e.Rejects))
	for i, r := range e.Rejects {
		parts[i] = r.Error()
	}
	return fmt.Sprintf("malformed model response: %s [%s]", e.Detail, strings.Join(parts, "; "))
}
