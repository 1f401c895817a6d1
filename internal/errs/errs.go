// Package errs defines the application error types shared by the
// repository and service layers.
//
// Errors carry a machine-friendly Code, a human-friendly Message and a
// Kind that callers switch on (not found, conflict, precondition...).
// They play nicely with the standard errors package: errors.Is matches
// on Kind, so errors.Is(err, errs.ErrPrecondition) works for any
// precondition failure regardless of its message.
package errs
