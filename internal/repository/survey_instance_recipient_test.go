package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ro-rah/waltz/internal/errs"
	"github.com/ro-rah/waltz/internal/model"
)

func TestSurveyInstanceRecipientRepository_IsPersonInstanceRecipient(t *testing.T) {
	for _, want := range []bool{true, false} {
		mock := newTestPool(t)
		repo := NewSurveyInstanceRecipientRepository(mock, &testLogger)

		mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS ( SELECT 1 FROM survey_instance_recipient WHERE survey_instance_recipient.person_id = $1 AND survey_instance_recipient.survey_instance_id = $2 )")).
			WithArgs(int64(4), int64(9)).
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(want))

		got, err := repo.IsPersonInstanceRecipient(context.Background(), 4, 9)
		require.NoError(t, err)
		assert.Equal(t, want, got)
		require.NoError(t, mock.ExpectationsWereMet())
	}
}

func TestSurveyInstanceRecipientRepository_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the new id", func(t *testing.T) {
		mock := newTestPool(t)
		repo := NewSurveyInstanceRecipientRepository(mock, &testLogger)

		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO survey_instance_recipient (survey_instance_id,person_id) VALUES ($1,$2) RETURNING id")).
			WithArgs(int64(9), int64(4)).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(77)))

		id, err := repo.Create(ctx, model.SurveyInstanceRecipientCreateCommand{SurveyInstanceID: 9, PersonID: 4})
		require.NoError(t, err)
		assert.Equal(t, int64(77), id)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("person is required", func(t *testing.T) {
		mock := newTestPool(t)
		repo := NewSurveyInstanceRecipientRepository(mock, &testLogger)

		_, err := repo.Create(ctx, model.SurveyInstanceRecipientCreateCommand{SurveyInstanceID: 9})
		assert.ErrorIs(t, err, errs.ErrPrecondition)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSurveyInstanceRecipientRepository_Delete(t *testing.T) {
	for _, affected := range []int64{0, 1} {
		mock := newTestPool(t)
		repo := NewSurveyInstanceRecipientRepository(mock, &testLogger)

		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM survey_instance_recipient WHERE id = $1")).
			WithArgs(int64(77)).
			WillReturnResult(pgxmock.NewResult("DELETE", affected))

		ok, err := repo.Delete(context.Background(), 77)
		require.NoError(t, err)
		assert.Equal(t, affected == 1, ok)
	}
}

func TestSurveyInstanceRecipientRepository_DeleteForSurveyRun(t *testing.T) {
	mock := newTestPool(t)
	repo := NewSurveyInstanceRecipientRepository(mock, &testLogger)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM survey_instance_recipient WHERE survey_instance_id IN (SELECT survey_instance.id FROM survey_instance WHERE survey_instance.survey_run_id = $1)")).
		WithArgs(int64(3)).
		WillReturnResult(pgxmock.NewResult("DELETE", 6))

	n, err := repo.DeleteForSurveyRun(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, int64(6), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSurveyInstanceRecipientRepository_FindForSurveyInstance(t *testing.T) {
	mock := newTestPool(t)
	repo := NewSurveyInstanceRecipientRepository(mock, &testLogger)
	due := time.Date(2025, 9, 30, 0, 0, 0, 0, time.UTC)

	columns := []string{
		"id",
		"id", "survey_run_id", "entity_kind", "entity_id", "status", "due_date",
		"id", "employee_id", "display_name", "email", "user_principal_name", "department_name",
		"kind", "title", "organisational_unit_id", "is_removed",
	}

	mock.ExpectQuery(regexp.QuoteMeta("JOIN person ON person.id = survey_instance_recipient.person_id WHERE survey_instance_recipient.survey_instance_id = $1")).
		WithArgs(int64(9)).
		WillReturnRows(pgxmock.NewRows(columns).AddRow(
			int64(77),
			int64(9), int64(3), "APPLICATION", int64(12), "IN_PROGRESS", due,
			int64(4), "E123", "Jane Doe", "jane@example.com", nil, strPtr("Finance"),
			"EMPLOYEE", nil, int64Ptr(10), false,
		))

	recipients, err := repo.FindForSurveyInstance(context.Background(), 9)
	require.NoError(t, err)
	require.Len(t, recipients, 1)

	rec := recipients[0]
	assert.Equal(t, int64(77), rec.ID)
	assert.Equal(t, model.MkRef(model.EntityKindApplication, 12), rec.SurveyInstance.SurveyEntity)
	assert.Equal(t, model.SurveyInstanceStatusInProgress, rec.SurveyInstance.Status)
	assert.Equal(t, due, rec.SurveyInstance.DueDate)
	assert.Equal(t, "Jane Doe", rec.Person.DisplayName)
	assert.Nil(t, rec.Person.UserPrincipalName)
	assert.Equal(t, "Finance", *rec.Person.DepartmentName)
	assert.Equal(t, int64(10), *rec.Person.OrganisationalUnitID)
	require.NoError(t, mock.ExpectationsWereMet())
}
