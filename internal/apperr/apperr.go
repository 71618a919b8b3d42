// Package apperr provides the application error model shared by all layers.
//
// Every failure that crosses a layer boundary is carried as an *Error with a
// stable random identifier (for cross-log correlation), an immutable
// category, an optional fine-grained code, a severity, and an optional
// wrapped cause. Low-level store errors are translated into this model at
// the repository boundary and never exposed raw.
package apperr

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Category classifies an error at the coarse, routing level.
type Category string

const (
	CategoryValidation   Category = "validation"
	CategoryBusinessRule Category = "business-rule"
	CategoryNotFound     Category = "not-found"
	CategoryDataLayer    Category = "data-layer"
	CategoryAuth         Category = "auth"
	CategoryUnknown      Category = "unknown"
)

// Severity indicates how loudly an error should be routed and prioritized.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
	SeverityFatal  Severity = "fatal"
)

// Layer tags the layer an error originated from.
type Layer string

const (
	LayerDatastore  Layer = "datastore"
	LayerRepository Layer = "repository"
	LayerService    Layer = "service"
	LayerTransport  Layer = "transport"
)

// Error is the typed, chainable application error.
// ID and Category are set at construction and never change; the With*
// setters return the receiver so construction can be fluent.
type Error struct {
	ID          string
	Category    Category
	Code        string
	Severity    Severity
	Layer       Layer
	Message     string
	UserMessage string
	Context     map[string]any
	Cause       error
}

// New creates an error with a fresh correlation id and medium severity.
func New(category Category, message string) *Error {
	return &Error{
		ID:       uuid.NewString(),
		Category: category,
		Severity: SeverityMedium,
		Message:  message,
	}
}

// Newf is New with fmt.Sprintf formatting.
func Newf(category Category, format string, args ...any) *Error {
	return New(category, fmt.Sprintf(format, args...))
}

// Wrap creates an error that records cause for later unwrapping.
func Wrap(cause error, category Category, message string) *Error {
	e := New(category, message)
	e.Cause = cause
	return e
}

func (e *Error) WithCode(code string) *Error {
	e.Code = code
	return e
}

func (e *Error) WithSeverity(s Severity) *Error {
	e.Severity = s
	return e
}

func (e *Error) WithLayer(l Layer) *Error {
	e.Layer = l
	return e
}

// WithUser sets the safe, user-facing message.
func (e *Error) WithUser(msg string) *Error {
	e.UserMessage = msg
	return e
}

// WithContext attaches a single context key; the map is created lazily.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

func (e *Error) Error() string {
	s := string(e.Category)
	if e.Code != "" {
		s += "/" + e.Code
	}
	s += ": " + e.Message
	if e.Cause != nil {
		s += ": " + e.Cause.Error()
	}
	return s
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches two *Error values by category, so sentinels created with
// New(category, ...) work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Category == t.Category
}

// MarshalJSON flattens the cause chain into the technical message.
func (e *Error) MarshalJSON() ([]byte, error) {
	type wire struct {
		ID          string         `json:"id"`
		Category    Category       `json:"category"`
		Code        string         `json:"code,omitempty"`
		Severity    Severity       `json:"severity"`
		Layer       Layer          `json:"layer,omitempty"`
		Message     string         `json:"message"`
		UserMessage string         `json:"userMessage,omitempty"`
		Context     map[string]any `json:"context,omitempty"`
	}
	msg := e.Message
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return json.Marshal(wire{
		ID:          e.ID,
		Category:    e.Category,
		Code:        e.Code,
		Severity:    e.Severity,
		Layer:       e.Layer,
		Message:     msg,
		UserMessage: e.UserMessage,
		Context:     e.Context,
	})
}

// From extracts the outermost *Error in err's chain, or nil.
func From(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return nil
}

// Root walks the cause chain and returns the deepest *Error, or nil when
// the chain contains none.
func Root(err error) *Error {
	var deepest *Error
	for err != nil {
		var e *Error
		if errors.As(err, &e) {
			deepest = e
			err = e.Cause
			continue
		}
		err = errors.Unwrap(err)
	}
	return deepest
}

// RootCategory returns the deepest category in the chain, or CategoryUnknown.
func RootCategory(err error) Category {
	if e := Root(err); e != nil {
		return e.Category
	}
	return CategoryUnknown
}

// RootCode returns the deepest non-empty code in the chain.
func RootCode(err error) string {
	code := ""
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			break
		}
		if e.Code != "" {
			code = e.Code
		}
		err = e.Cause
	}
	return code
}

// RootMessage returns the deepest *Error message, falling back to
// err.Error() when the chain contains no *Error.
func RootMessage(err error) string {
	if e := Root(err); e != nil {
		return e.Message
	}
	if err != nil {
		return err.Error()
	}
	return ""
}
