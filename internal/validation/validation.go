// Package validation contains the logic for validating
// domain values and commands before they reach the database.
//
// It uses the `validator` library to enforce rules (like
// required fields or positive ids) defined in struct tags
// and extracts validation errors into errs.FieldError values
// that callers can understand.
package validation
