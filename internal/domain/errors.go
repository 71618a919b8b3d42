// Package domain contains the core business entities and rules.
// These types have no knowledge of databases, HTTP, or any infrastructure concerns.
package domain

import (
	"errors"
	"fmt"
)

// Errors for common domain-level failures.
var (
	ErrNotFound          = errors.New("not found")
	ErrAlreadyExists     = errors.New("already exists")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidStatus     = errors.New("invalid status")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrVersionMismatch   = errors.New("version mismatch")
	ErrNotEditable       = errors.New("not editable")
	ErrConflict          = errors.New("conflict")
)

// ValidationError represents one validation failure on a single field.
// An empty Field marks a root-level failure.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 1 {
		return e[0].Error()
	}
	return fmt.Sprintf("%d validation errors", len(e))
}

// Messages renders every failure as "<field>: <message>" (bare message for
// root-level failures).
func (e ValidationErrors) Messages() []string {
	out := make([]string, len(e))
	for i, v := range e {
		out[i] = v.Error()
	}
	return out
}

// FieldMap returns failures keyed by field path. Root-level failures are
// keyed under the empty string.
func (e ValidationErrors) FieldMap() map[string]string {
	m := make(map[string]string, len(e))
	for _, v := range e {
		if _, dup := m[v.Field]; !dup {
			m[v.Field] = v.Message
		}
	}
	return m
}
