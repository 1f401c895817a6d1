// Package service contains the business logic.
//
// It sits above the repository layer. Services own transactions,
// translate driver errors into application errors (sqlerr) and log the
// outcome of writes. Repositories stay free of both concerns.
package service
