package errs

import "strings"

// FieldError represents a field-level validation error.
// Example:
//
//	{ "field": "attestationrunid", "error": "is required" }
type FieldError struct {
	// Field is the field name/key the error relates to (e.g. "personid").
	Field string `json:"field"`

	// Error is the human-readable error message.
	Error string `json:"error"`
}

// Kind classifies an Error. It is the value errors.Is compares.
type Kind string

const (
	KindBadRequest   Kind = "BAD_REQUEST"
	KindNotFound     Kind = "NOT_FOUND"
	KindConflict     Kind = "CONFLICT"
	KindPrecondition Kind = "PRECONDITION_FAILED"
	KindInternal     Kind = "INTERNAL"
)

// Error is the main custom error type of the application.
//
// Fields:
//   - Code: machine-friendly error code (e.g. "PHYSICAL_FLOW_ALREADY_EXISTS").
//   - Message: human-friendly message.
//   - Kind: the category callers branch on.
//   - Override: whether Message is safe to show to an end user as-is.
//   - Errors: list of per-field errors (validation).
type Error struct {
	Code     string       `json:"code"`
	Message  string       `json:"message"`
	Kind     Kind         `json:"kind"`
	Override bool         `json:"override"`
	Errors   []FieldError `json:"errors,omitempty"`
}

// Error makes *Error satisfy the built-in `error` interface.
func (e *Error) Error() string {
	return e.Message
}

// Is customizes how errors.Is(...) treats Error.
//
// A target *Error with an empty Kind matches any *Error; otherwise the
// kinds must be equal. Code and Message are not compared.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}

	return t.Kind == "" || t.Kind == e.Kind
}

// WithMessage returns a *copy* of this Error with Message replaced.
func (e *Error) WithMessage(message string) *Error {
	return &Error{
		Code:     e.Code,
		Message:  message,
		Kind:     e.Kind,
		Override: e.Override,
		Errors:   e.Errors,
	}
}

// Sentinels for errors.Is checks.
var (
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrConflict     = &Error{Kind: KindConflict}
	ErrPrecondition = &Error{Kind: KindPrecondition}
	ErrBadRequest   = &Error{Kind: KindBadRequest}
	ErrInternal     = &Error{Kind: KindInternal}
)

// MakeUpperCaseWithUnderscores converts a string into an UPPER_CASE_WITH_UNDERSCORES format.
//
// Example:
//
//	"Not Found" -> "NOT_FOUND"
func MakeUpperCaseWithUnderscores(str string) string {
	return strings.ToUpper(strings.ReplaceAll(str, " ", "_"))
}
