// Package model holds the immutable domain values read and written by
// the repository layer.
//
// Values are plain structs. Optional columns are pointers, so a nil
// pointer always means "no value in the database". Types that are
// written (instances, flows, commands) implement validation.Validatable.
package model
