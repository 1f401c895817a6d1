package repository

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/ro-rah/waltz/internal/database"
	"github.com/ro-rah/waltz/internal/errs"
	"github.com/ro-rah/waltz/internal/model"
	"github.com/ro-rah/waltz/internal/validation"
)

var statisticValueColumns = qualify("esv",
	"id",
	"statistic_id",
	"entity_kind",
	"entity_id",
	"value",
	"outcome",
	"state",
	"reason",
	"created_at",
	"current",
	"provenance",
)

var applicationColumns = qualify("app",
	"id",
	"name",
	"description",
	"asset_code",
	"organisational_unit_id",
	"kind",
	"lifecycle_phase",
	"business_criticality",
	"overall_rating",
	"provenance",
	"entity_lifecycle_status",
	"is_removed",
)

type EntityStatisticValueRepository struct {
	db     database.DBTX
	logger *zerolog.Logger
}

func NewEntityStatisticValueRepository(db database.DBTX, logger *zerolog.Logger) *EntityStatisticValueRepository {
	return &EntityStatisticValueRepository{db: db, logger: logger}
}

// scanStatisticValue expects the application name followed by statisticValueColumns.
func scanStatisticValue(row pgx.Row) (model.EntityStatisticValue, error) {
	var (
		v                 model.EntityStatisticValue
		id, entityID      int64
		entityKind, state string
		name              *string
	)

	err := row.Scan(
		&name,
		&id,
		&v.StatisticID,
		&entityKind,
		&entityID,
		&v.Value,
		&v.Outcome,
		&state,
		&v.Reason,
		&v.CreatedAt,
		&v.Current,
		&v.Provenance,
	)
	if err != nil {
		return model.EntityStatisticValue{}, err
	}

	v.ID = &id
	v.Entity = model.MkNamedRef(model.EntityKind(entityKind), entityID, name)
	v.State = model.StatisticValueState(state)

	return v, nil
}

func scanApplication(row pgx.Row) (model.Application, error) {
	var (
		app                                          model.Application
		lifecyclePhase, criticality, lifecycleStatus string
	)

	err := row.Scan(
		&app.ID,
		&app.Name,
		&app.Description,
		&app.AssetCode,
		&app.OrganisationalUnitID,
		&app.ApplicationKind,
		&lifecyclePhase,
		&criticality,
		&app.OverallRating,
		&app.Provenance,
		&lifecycleStatus,
		&app.IsRemoved,
	)
	if err != nil {
		return model.Application{}, err
	}

	app.LifecyclePhase = model.LifecyclePhase(lifecyclePhase)
	app.BusinessCriticality = model.Criticality(criticality)
	app.EntityLifecycleStatus = model.EntityLifecycleStatus(lifecycleStatus)

	return app, nil
}

// BulkSaveValues inserts every value in a single batch round trip and
// returns the rows inserted per value, in order. The batch is not a
// transaction; wrap the call in database.WithTx if it must be atomic.
func (r *EntityStatisticValueRepository) BulkSaveValues(ctx context.Context, values []model.EntityStatisticValue) ([]int64, error) {
	if len(values) == 0 {
		return []int64{}, nil
	}

	batch := &pgx.Batch{}
	for i, v := range values {
		if v.ID != nil {
			return nil, errs.NewPreconditionError(fmt.Sprintf("statistic value %d must not have an id", i), nil)
		}
		if err := validation.Check("entity statistic value", v); err != nil {
			return nil, err
		}

		query, args, err := psql.Insert("entity_statistic_value").
			Columns("statistic_id", "entity_kind", "entity_id", "value", "outcome", "state", "reason", "created_at", "current", "provenance").
			Values(v.StatisticID, string(v.Entity.Kind), v.Entity.ID, v.Value, v.Outcome, string(v.State), v.Reason, v.CreatedAt, v.Current, v.Provenance).
			ToSql()
		if err != nil {
			return nil, fmt.Errorf("building statistic value insert: %w", err)
		}
		batch.Queue(query, args...)
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()

	counts := make([]int64, 0, len(values))
	for range values {
		tag, err := results.Exec()
		if err != nil {
			return nil, fmt.Errorf("bulk saving statistic values: %w", err)
		}
		counts = append(counts, tag.RowsAffected())
	}

	return counts, nil
}

// statisticSelectorCondition keeps current APPLICATION values of one statistic for the selected apps.
func statisticSelectorCondition(statisticID int64, appIDSelector IDSelector) sq.Sqlizer {
	return sq.And{
		sq.Eq{"esv.statistic_id": statisticID},
		sq.Eq{"esv.current": true},
		sq.Eq{"esv.entity_kind": string(model.EntityKindApplication)},
		sq.Expr("esv.entity_id IN (?)", appIDSelector),
	}
}

// GetStatisticValuesForAppIDSelector returns the current values of a
// statistic for the selected applications, named after the application.
func (r *EntityStatisticValueRepository) GetStatisticValuesForAppIDSelector(ctx context.Context, statisticID int64, appIDSelector IDSelector) ([]model.EntityStatisticValue, error) {
	if appIDSelector == nil {
		return nil, errs.NewPreconditionError("appIDSelector cannot be nil", nil)
	}

	q := psql.Select("app.name").
		Columns(statisticValueColumns...).
		From("entity_statistic_value esv").
		Join("application app ON esv.entity_id = app.id").
		Where(statisticSelectorCondition(statisticID, appIDSelector))

	values, err := queryAll(ctx, r.db, q, scanStatisticValue)
	if err != nil {
		return nil, fmt.Errorf("getting values of statistic %d: %w", statisticID, err)
	}
	return values, nil
}

// GetStatisticAppsForAppIDSelector returns the selected applications that
// have a current value for the statistic.
func (r *EntityStatisticValueRepository) GetStatisticAppsForAppIDSelector(ctx context.Context, statisticID int64, appIDSelector IDSelector) ([]model.Application, error) {
	if appIDSelector == nil {
		return nil, errs.NewPreconditionError("appIDSelector cannot be nil", nil)
	}

	q := psql.Select(applicationColumns...).
		Distinct().
		From("application app").
		Join("entity_statistic_value esv ON esv.entity_id = app.id").
		Where(statisticSelectorCondition(statisticID, appIDSelector))

	apps, err := queryAll(ctx, r.db, q, scanApplication)
	if err != nil {
		return nil, fmt.Errorf("getting applications of statistic %d: %w", statisticID, err)
	}
	return apps, nil
}
