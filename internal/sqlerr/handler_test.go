package sqlerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ro-rah/waltz/internal/errs"
)

func TestMapCode(t *testing.T) {
	assert.Equal(t, UniqueViolation, MapCode("23505"))
	assert.Equal(t, ForeignKeyViolation, MapCode("23503"))
	assert.Equal(t, Other, MapCode("XX000"))
}

func TestMapSeverity(t *testing.T) {
	assert.Equal(t, SeverityFatal, MapSeverity("FATAL"))
	assert.Equal(t, SeverityError, MapSeverity("something"))
}

func TestHandleError(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		assert.NoError(t, HandleError(nil))
	})

	t.Run("unique violation becomes conflict naming the column", func(t *testing.T) {
		err := fmt.Errorf("creating physical flow: %w", &pgconn.PgError{
			Code:           "23505",
			Severity:       "ERROR",
			TableName:      "physical_flow",
			ConstraintName: "physical_flow_external_key",
		})

		got := HandleError(err)

		var appErr *errs.Error
		require.ErrorAs(t, got, &appErr)
		assert.True(t, errors.Is(got, errs.ErrConflict))
		assert.Equal(t, "PHYSICAL_FLOW_ALREADY_EXISTS", appErr.Code)
		assert.Equal(t, "A Physical Flow with this External already exists", appErr.Message)
	})

	t.Run("foreign key violation names the referenced entity", func(t *testing.T) {
		got := HandleError(&pgconn.PgError{
			Code:       "23503",
			TableName:  "physical_flow",
			ColumnName: "logical_flow_id",
		})

		var appErr *errs.Error
		require.ErrorAs(t, got, &appErr)
		assert.Equal(t, errs.KindBadRequest, appErr.Kind)
		assert.Equal(t, "The referenced Logical Flow does not exist", appErr.Message)
	})

	t.Run("not null violation carries a field error", func(t *testing.T) {
		got := HandleError(&pgconn.PgError{
			Code:       "23502",
			TableName:  "entity_relationship",
			ColumnName: "provenance",
		})

		var appErr *errs.Error
		require.ErrorAs(t, got, &appErr)
		require.Len(t, appErr.Errors, 1)
		assert.Equal(t, "provenance", appErr.Errors[0].Field)
		assert.Equal(t, "ENTITY_RELATIONSHIP_REQUIRED", appErr.Code)
	})

	t.Run("no rows with table hint", func(t *testing.T) {
		got := HandleError(fmt.Errorf("table:survey_instance: %w", pgx.ErrNoRows))

		assert.True(t, errors.Is(got, errs.ErrNotFound))
		assert.Equal(t, "Survey Instance not found", got.Error())
	})

	t.Run("app errors pass through", func(t *testing.T) {
		in := errs.NewPreconditionError("id must not be set", nil)
		assert.Same(t, in, HandleError(fmt.Errorf("wrapped: %w", in)))
	})

	t.Run("unknown errors become internal", func(t *testing.T) {
		assert.True(t, errors.Is(HandleError(errors.New("boom")), errs.ErrInternal))
	})
}

func TestErrCode(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23514"}
	assert.Equal(t, CheckViolation, ErrCode(fmt.Errorf("x: %w", pgErr)))
	assert.Equal(t, CheckViolation, ErrCode(ConvertPgError(pgErr)))
	assert.Equal(t, Other, ErrCode(errors.New("plain")))
}
