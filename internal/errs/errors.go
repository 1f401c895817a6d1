package errs

// NewBadRequestError creates a KindBadRequest Error.
//
// This supports extra payload:
//   - code: optional custom code string (if nil, defaults to "BAD_REQUEST")
//   - errors: optional slice of field errors (validation errors)
func NewBadRequestError(message string, override bool, code *string, errors []FieldError) *Error {
	formattedCode := string(KindBadRequest)
	if code != nil {
		formattedCode = *code
	}

	return &Error{
		Code:     formattedCode,
		Message:  message,
		Kind:     KindBadRequest,
		Override: override,
		Errors:   errors,
	}
}

// NewNotFoundError creates a KindNotFound Error.
func NewNotFoundError(message string, override bool, code *string) *Error {
	formattedCode := string(KindNotFound)
	if code != nil {
		formattedCode = *code
	}

	return &Error{
		Code:     formattedCode,
		Message:  message,
		Kind:     KindNotFound,
		Override: override,
	}
}

// NewConflictError creates a KindConflict Error.
//
// Used when a conditional write touched no rows because another writer
// got there first (e.g. a second attestation of the same instance).
func NewConflictError(message string, code *string) *Error {
	formattedCode := string(KindConflict)
	if code != nil {
		formattedCode = *code
	}

	return &Error{
		Code:     formattedCode,
		Message:  message,
		Kind:     KindConflict,
		Override: true,
	}
}

// NewPreconditionError creates a KindPrecondition Error.
//
// Precondition failures are programmer errors: an entity that already
// carries an id handed to a create method, a missing required field, etc.
func NewPreconditionError(message string, errors []FieldError) *Error {
	return &Error{
		Code:     string(KindPrecondition),
		Message:  message,
		Kind:     KindPrecondition,
		Override: false,
		Errors:   errors,
	}
}

// NewInternalError creates a KindInternal Error.
//
// The message is generic on purpose; the driver error is logged by the
// caller, not exposed.
func NewInternalError() *Error {
	return &Error{
		Code:     string(KindInternal),
		Message:  "Internal error",
		Kind:     KindInternal,
		Override: false,
	}
}
