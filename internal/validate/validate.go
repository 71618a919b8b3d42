// Package validate wraps schema validation behind a uniform result type.
//
// Validation never panics and never returns partial successes: callers get
// either the parsed value or a normalized list of field-level messages. Two
// layers run in order: go-playground/validator constraint tags on the input
// struct, then the entity's own Validate method when it has one.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/partnerdesk/partnerdesk/internal/apperr"
	"github.com/partnerdesk/partnerdesk/internal/domain"
)

// normalizer is implemented by inputs that trim/default themselves before
// validation.
type normalizer interface {
	Normalize()
}

// selfValidator is implemented by entities carrying their own business
// constraints.
type selfValidator interface {
	Validate() error
}

var constraints = newConstraintChecker()

func newConstraintChecker() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Field errors are keyed by the lower-camel field path, matching the
	// stored document field names.
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := lcFirst(field.Name)
		if strings.HasSuffix(name, "ID") {
			name = strings.TrimSuffix(name, "ID") + "Id"
		}
		return name
	})
	return v
}

// Result is the outcome of validating one value. On failure Errors holds
// every message rendered as "<dotted.path>: <message>" (bare message for
// root-level failures) and FieldErrors maps field paths to messages.
type Result[T any] struct {
	OK          bool
	Data        T
	Errors      []string
	FieldErrors map[string]string
}

// Validate normalizes and checks input, returning either success with the
// parsed data or the aggregated field errors. It never throws.
func Validate[T any](input T, label string) Result[T] {
	ptr := &input
	if n, ok := any(ptr).(normalizer); ok {
		n.Normalize()
	}

	fieldErrs := map[string]string{}
	var messages []string

	if err := constraints.Struct(ptr); err != nil {
		var invalid *validator.InvalidValidationError
		if errors.As(err, &invalid) {
			// Not a struct; tag constraints don't apply.
		} else {
			var verrs validator.ValidationErrors
			if errors.As(err, &verrs) {
				for _, fe := range verrs {
					path := tagPath(fe)
					if _, dup := fieldErrs[path]; !dup {
						fieldErrs[path] = tagMessage(fe)
					}
				}
			}
		}
	}

	if sv, ok := any(ptr).(selfValidator); ok {
		if err := sv.Validate(); err != nil {
			var verrs domain.ValidationErrors
			var verr domain.ValidationError
			switch {
			case errors.As(err, &verrs):
				for _, ve := range verrs {
					if _, dup := fieldErrs[ve.Field]; !dup {
						fieldErrs[ve.Field] = ve.Message
					}
				}
			case errors.As(err, &verr):
				if _, dup := fieldErrs[verr.Field]; !dup {
					fieldErrs[verr.Field] = verr.Message
				}
			default:
				messages = append(messages, err.Error())
			}
		}
	}

	if len(fieldErrs) == 0 && len(messages) == 0 {
		return Result[T]{OK: true, Data: input}
	}

	for path, msg := range fieldErrs {
		messages = append(messages, renderFieldError(path, msg))
	}
	sort.Strings(messages)
	return Result[T]{OK: false, Errors: messages, FieldErrors: fieldErrs}
}

// MustValidate is Validate with exception-style control flow: failures come
// back as a structured validation error.
func MustValidate[T any](input T, label string) (T, error) {
	res := Validate(input, label)
	if res.OK {
		return res.Data, nil
	}
	err := apperr.Newf(apperr.CategoryValidation, "%s failed validation: %s", label, strings.Join(res.Errors, "; ")).
		WithUser("The submitted " + label + " is invalid.").
		WithLayer(apperr.LayerService)
	for path, msg := range res.FieldErrors {
		err.WithContext("field:"+path, msg)
	}
	var zero T
	return zero, err
}

// Item is one entry in a batch validation.
type Item struct {
	Name  string
	Value any
}

// BatchResult aggregates a batch validation. All-or-nothing: when any item
// fails, no parsed values are returned.
type BatchResult struct {
	OK          bool
	Values      []any
	Errors      []string
	FieldErrors map[string]string
}

// ValidateBatch validates independent items, aggregating every field error
// keyed as "<name>.<field>".
func ValidateBatch(items []Item) BatchResult {
	out := BatchResult{OK: true, FieldErrors: map[string]string{}}
	for _, item := range items {
		res := Validate(item.Value, item.Name)
		if res.OK {
			out.Values = append(out.Values, res.Data)
			continue
		}
		out.OK = false
		for path, msg := range res.FieldErrors {
			out.FieldErrors[item.Name+"."+path] = msg
			out.Errors = append(out.Errors, renderFieldError(item.Name+"."+path, msg))
		}
	}
	if !out.OK {
		out.Values = nil
		sort.Strings(out.Errors)
	}
	return out
}

// renderFieldError renders "<dotted.path>: <message>", or the bare message
// for root-level errors.
func renderFieldError(path, msg string) string {
	if path == "" {
		return msg
	}
	return path + ": " + msg
}

// tagPath strips the leading struct name from the validator namespace,
// leaving the dotted field path.
func tagPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func tagMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "gte":
		return "must be >= " + fe.Param()
	case "lte":
		return "must be <= " + fe.Param()
	case "oneof":
		return "must be one of " + fe.Param()
	}
	return fmt.Sprintf("failed %s constraint", fe.Tag())
}

func lcFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}
