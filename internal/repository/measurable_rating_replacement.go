package repository

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/ro-rah/waltz/internal/database"
	"github.com/ro-rah/waltz/internal/errs"
	"github.com/ro-rah/waltz/internal/model"
)

var replacementColumns = qualify("measurable_rating_replacement",
	"id",
	"decommission_id",
	"entity_id",
	"entity_kind",
	"planned_commission_date",
	"created_at",
	"created_by",
	"updated_at",
	"updated_by",
)

var replacementEntityName = nameColumn(
	"measurable_rating_replacement.entity_id",
	"measurable_rating_replacement.entity_kind",
	replacementNameableKinds,
	"entity_name")

type MeasurableRatingReplacementRepository struct {
	db     database.DBTX
	logger *zerolog.Logger
	now    clock
}

func NewMeasurableRatingReplacementRepository(db database.DBTX, logger *zerolog.Logger) *MeasurableRatingReplacementRepository {
	return &MeasurableRatingReplacementRepository{db: db, logger: logger, now: utcNow}
}

func scanReplacement(row pgx.Row) (model.MeasurableRatingReplacement, error) {
	var (
		rep        model.MeasurableRatingReplacement
		entityID   int64
		entityKind string
		name       *string
	)

	err := row.Scan(
		&rep.ID,
		&rep.DecommissionID,
		&entityID,
		&entityKind,
		&rep.PlannedCommissionDate,
		&rep.CreatedAt,
		&rep.CreatedBy,
		&rep.LastUpdatedAt,
		&rep.LastUpdatedBy,
		&name,
	)
	if err != nil {
		return model.MeasurableRatingReplacement{}, err
	}

	rep.EntityReference = model.MkNamedRef(model.EntityKind(entityKind), entityID, name)
	return rep, nil
}

func (r *MeasurableRatingReplacementRepository) selectReplacements() sq.SelectBuilder {
	return psql.Select(replacementColumns...).
		Column(replacementEntityName).
		From("measurable_rating_replacement")
}

// replacementKey matches the natural key (decommission_id, entity_id, entity_kind).
func replacementKey(decommissionID int64, ref model.EntityReference) sq.Eq {
	return sq.Eq{
		"measurable_rating_replacement.decommission_id": decommissionID,
		"measurable_rating_replacement.entity_id":       ref.ID,
		"measurable_rating_replacement.entity_kind":     string(ref.Kind),
	}
}

func (r *MeasurableRatingReplacementRepository) GetByID(ctx context.Context, id int64) (*model.MeasurableRatingReplacement, error) {
	q := r.selectReplacements().Where(sq.Eq{"measurable_rating_replacement.id": id})

	rep, err := queryOne(ctx, r.db, q, scanReplacement)
	if err != nil {
		return nil, fmt.Errorf("getting replacement %d: %w", id, err)
	}
	return rep, nil
}

func (r *MeasurableRatingReplacementRepository) FetchByDecommissionID(ctx context.Context, decommissionID int64) ([]model.MeasurableRatingReplacement, error) {
	q := r.selectReplacements().Where(sq.Eq{"measurable_rating_replacement.decommission_id": decommissionID})

	reps, err := queryAll(ctx, r.db, q, scanReplacement)
	if err != nil {
		return nil, fmt.Errorf("fetching replacements for decommission %d: %w", decommissionID, err)
	}
	return reps, nil
}

func (r *MeasurableRatingReplacementRepository) FetchByDecommissionIDAndEntityRef(ctx context.Context, decommissionID int64, ref model.EntityReference) (*model.MeasurableRatingReplacement, error) {
	q := r.selectReplacements().Where(replacementKey(decommissionID, ref))

	rep, err := queryOne(ctx, r.db, q, scanReplacement)
	if err != nil {
		return nil, fmt.Errorf("fetching replacement %s for decommission %d: %w", ref, decommissionID, err)
	}
	return rep, nil
}

// FetchByEntityRef returns the replacements of every decommission planned
// for ref, i.e. ref is the entity being decommissioned, not the replacement.
func (r *MeasurableRatingReplacementRepository) FetchByEntityRef(ctx context.Context, ref model.EntityReference) ([]model.MeasurableRatingReplacement, error) {
	q := r.selectReplacements().
		Join("measurable_rating_planned_decommission ON measurable_rating_planned_decommission.id = measurable_rating_replacement.decommission_id").
		Where(sq.Eq{
			"measurable_rating_planned_decommission.entity_id":   ref.ID,
			"measurable_rating_planned_decommission.entity_kind": string(ref.Kind),
		})

	reps, err := queryAll(ctx, r.db, q, scanReplacement)
	if err != nil {
		return nil, fmt.Errorf("fetching replacements for %s: %w", ref, err)
	}
	return reps, nil
}

// Save updates the commission date of the replacement keyed by
// (decommissionID, ref) or inserts it when absent. The existence check and
// the write are separate statements, so two concurrent first saves of the
// same key can both insert.
func (r *MeasurableRatingReplacementRepository) Save(ctx context.Context, decommissionID int64, ref model.EntityReference, commissionDate time.Time, username string) (model.SaveResult, error) {
	if username == "" {
		return model.SaveResult{}, errs.NewPreconditionError("username cannot be empty", nil)
	}

	exists := psql.Select("1").
		Prefix("SELECT EXISTS (").
		From("measurable_rating_replacement").
		Where(replacementKey(decommissionID, ref)).
		Suffix(")")

	isUpdate, err := queryBool(ctx, r.db, exists)
	if err != nil {
		return model.SaveResult{}, fmt.Errorf("checking replacement %s exists: %w", ref, err)
	}

	now := r.now()

	if isUpdate {
		q := psql.Update("measurable_rating_replacement").
			Set("planned_commission_date", commissionDate).
			Set("updated_by", username).
			Set("updated_at", now).
			Where(replacementKey(decommissionID, ref))

		n, err := execute(ctx, r.db, q)
		if err != nil {
			return model.SaveResult{}, fmt.Errorf("updating replacement %s: %w", ref, err)
		}
		return model.SaveResult{Operation: model.OperationUpdate, Succeeded: n == 1}, nil
	}

	q := psql.Insert("measurable_rating_replacement").
		Columns("decommission_id", "entity_id", "entity_kind", "planned_commission_date", "created_at", "created_by", "updated_at", "updated_by").
		Values(decommissionID, ref.ID, string(ref.Kind), commissionDate, now, username, now, username)

	n, err := execute(ctx, r.db, q)
	if err != nil {
		return model.SaveResult{}, fmt.Errorf("inserting replacement %s: %w", ref, err)
	}
	return model.SaveResult{Operation: model.OperationAdd, Succeeded: n == 1}, nil
}

func (r *MeasurableRatingReplacementRepository) Remove(ctx context.Context, decommissionID, replacementID int64) (bool, error) {
	q := psql.Delete("measurable_rating_replacement").
		Where(sq.Eq{"decommission_id": decommissionID}).
		Where(sq.Eq{"id": replacementID})

	n, err := execute(ctx, r.db, q)
	if err != nil {
		return false, fmt.Errorf("removing replacement %d: %w", replacementID, err)
	}
	return n == 1, nil
}
