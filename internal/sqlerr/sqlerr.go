// Package sqlerr specifically handles database driver errors.
//
// It parses the SQLSTATE codes reported by PostgreSQL and converts them
// into application errors (e.g. a "foreign key violation" becomes a
// bad request naming the missing entity).
package sqlerr

import "fmt"

// Code is a normalised category for a PostgreSQL SQLSTATE.
type Code string

const (
	Other                  Code = "other"
	NotNullViolation       Code = "not_null_violation"
	ForeignKeyViolation    Code = "foreign_key_violation"
	UniqueViolation        Code = "unique_violation"
	CheckViolation         Code = "check_violation"
	ExclusionViolation     Code = "exclusion_violation"
	SerializationFailure   Code = "serialization_failure"
	DeadlockDetected       Code = "deadlock_detected"
	InvalidTextRepr        Code = "invalid_text_representation"
	UndefinedTable         Code = "undefined_table"
	UndefinedColumn        Code = "undefined_column"
	QueryCanceled          Code = "query_canceled"
	TooManyConnections     Code = "too_many_connections"
	StringDataRightTrunc   Code = "string_data_right_truncation"
	NumericValueOutOfRange Code = "numeric_value_out_of_range"
)

var sqlStates = map[string]Code{
	"23502": NotNullViolation,
	"23503": ForeignKeyViolation,
	"23505": UniqueViolation,
	"23514": CheckViolation,
	"23P01": ExclusionViolation,
	"40001": SerializationFailure,
	"40P01": DeadlockDetected,
	"22P02": InvalidTextRepr,
	"22001": StringDataRightTrunc,
	"22003": NumericValueOutOfRange,
	"42P01": UndefinedTable,
	"42703": UndefinedColumn,
	"57014": QueryCanceled,
	"53300": TooManyConnections,
}

// MapCode maps a five character SQLSTATE to a Code. Unknown states are Other.
func MapCode(sqlState string) Code {
	if c, ok := sqlStates[sqlState]; ok {
		return c
	}
	return Other
}

// Severity mirrors the severity field of a PostgreSQL error response.
type Severity string

const (
	SeverityError   Severity = "ERROR"
	SeverityFatal   Severity = "FATAL"
	SeverityPanic   Severity = "PANIC"
	SeverityWarning Severity = "WARNING"
	SeverityNotice  Severity = "NOTICE"
	SeverityDebug   Severity = "DEBUG"
	SeverityInfo    Severity = "INFO"
	SeverityLog     Severity = "LOG"
)

// MapSeverity maps the raw severity string. Anything unrecognised is treated as ERROR.
func MapSeverity(s string) Severity {
	switch Severity(s) {
	case SeverityFatal, SeverityPanic, SeverityWarning, SeverityNotice,
		SeverityDebug, SeverityInfo, SeverityLog:
		return Severity(s)
	default:
		return SeverityError
	}
}

// Error is a driver error normalised into our enums, keeping the
// table/column/constraint metadata PostgreSQL reported.
type Error struct {
	Code           Code
	Severity       Severity
	DatabaseCode   string
	Message        string
	SchemaName     string
	TableName      string
	ColumnName     string
	DataTypeName   string
	ConstraintName string
	driverErr      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Severity, e.DatabaseCode, e.Message)
}

// Unwrap returns the original driver error.
func (e *Error) Unwrap() error {
	return e.driverErr
}
