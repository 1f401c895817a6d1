package repository

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/ro-rah/waltz/internal/database"
	"github.com/ro-rah/waltz/internal/model"
	"github.com/ro-rah/waltz/internal/validation"
)

var (
	surveyInstanceColumns = qualify("survey_instance",
		"id",
		"survey_run_id",
		"entity_kind",
		"entity_id",
		"status",
		"due_date",
	)

	personColumns = qualify("person",
		"id",
		"employee_id",
		"display_name",
		"email",
		"user_principal_name",
		"department_name",
		"kind",
		"title",
		"organisational_unit_id",
		"is_removed",
	)
)

type SurveyInstanceRecipientRepository struct {
	db     database.DBTX
	logger *zerolog.Logger
}

func NewSurveyInstanceRecipientRepository(db database.DBTX, logger *zerolog.Logger) *SurveyInstanceRecipientRepository {
	return &SurveyInstanceRecipientRepository{db: db, logger: logger}
}

// scanSurveyInstanceRecipient expects the recipient id, then
// surveyInstanceColumns, then personColumns.
func scanSurveyInstanceRecipient(row pgx.Row) (model.SurveyInstanceRecipient, error) {
	var (
		rec                model.SurveyInstanceRecipient
		entityID           int64
		entityKind, status string
	)

	err := row.Scan(
		&rec.ID,
		&rec.SurveyInstance.ID,
		&rec.SurveyInstance.SurveyRunID,
		&entityKind,
		&entityID,
		&status,
		&rec.SurveyInstance.DueDate,
		&rec.Person.ID,
		&rec.Person.EmployeeID,
		&rec.Person.DisplayName,
		&rec.Person.Email,
		&rec.Person.UserPrincipalName,
		&rec.Person.DepartmentName,
		&rec.Person.Kind,
		&rec.Person.Title,
		&rec.Person.OrganisationalUnitID,
		&rec.Person.IsRemoved,
	)
	if err != nil {
		return model.SurveyInstanceRecipient{}, err
	}

	rec.SurveyInstance.SurveyEntity = model.MkRef(model.EntityKind(entityKind), entityID)
	rec.SurveyInstance.Status = model.SurveyInstanceStatus(status)

	return rec, nil
}

func (r *SurveyInstanceRecipientRepository) IsPersonInstanceRecipient(ctx context.Context, personID, surveyInstanceID int64) (bool, error) {
	q := psql.Select("1").
		Prefix("SELECT EXISTS (").
		From("survey_instance_recipient").
		Where(sq.Eq{
			"survey_instance_recipient.survey_instance_id": surveyInstanceID,
			"survey_instance_recipient.person_id":          personID,
		}).
		Suffix(")")

	found, err := queryBool(ctx, r.db, q)
	if err != nil {
		return false, fmt.Errorf("checking person %d is recipient of survey instance %d: %w", personID, surveyInstanceID, err)
	}
	return found, nil
}

func (r *SurveyInstanceRecipientRepository) Create(ctx context.Context, cmd model.SurveyInstanceRecipientCreateCommand) (int64, error) {
	if err := validation.Check("survey instance recipient", cmd); err != nil {
		return 0, err
	}

	q := psql.Insert("survey_instance_recipient").
		Columns("survey_instance_id", "person_id").
		Values(cmd.SurveyInstanceID, cmd.PersonID)

	id, err := insertReturningID(ctx, r.db, q)
	if err != nil {
		return 0, fmt.Errorf("creating survey instance recipient: %w", err)
	}
	return id, nil
}

func (r *SurveyInstanceRecipientRepository) Delete(ctx context.Context, id int64) (bool, error) {
	n, err := execute(ctx, r.db, psql.Delete("survey_instance_recipient").Where(sq.Eq{"id": id}))
	if err != nil {
		return false, fmt.Errorf("deleting survey instance recipient %d: %w", id, err)
	}
	return n == 1, nil
}

// DeleteForSurveyRun removes the recipients of every instance of the run.
func (r *SurveyInstanceRecipientRepository) DeleteForSurveyRun(ctx context.Context, surveyRunID int64) (int64, error) {
	instances := sq.Select("survey_instance.id").
		From("survey_instance").
		Where(sq.Eq{"survey_instance.survey_run_id": surveyRunID})

	q := psql.Delete("survey_instance_recipient").
		Where(sq.Expr("survey_instance_id IN (?)", instances))

	n, err := execute(ctx, r.db, q)
	if err != nil {
		return 0, fmt.Errorf("deleting recipients of survey run %d: %w", surveyRunID, err)
	}
	return n, nil
}

func (r *SurveyInstanceRecipientRepository) FindForSurveyInstance(ctx context.Context, surveyInstanceID int64) ([]model.SurveyInstanceRecipient, error) {
	q := psql.Select("survey_instance_recipient.id").
		Columns(surveyInstanceColumns...).
		Columns(personColumns...).
		From("survey_instance_recipient").
		Join("survey_instance ON survey_instance.id = survey_instance_recipient.survey_instance_id").
		Join("person ON person.id = survey_instance_recipient.person_id").
		Where(sq.Eq{"survey_instance_recipient.survey_instance_id": surveyInstanceID})

	recipients, err := queryAll(ctx, r.db, q, scanSurveyInstanceRecipient)
	if err != nil {
		return nil, fmt.Errorf("finding recipients of survey instance %d: %w", surveyInstanceID, err)
	}
	return recipients, nil
}
