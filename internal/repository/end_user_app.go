package repository

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/ro-rah/waltz/internal/database"
	"github.com/ro-rah/waltz/internal/model"
)

var endUserAppColumns = qualify("end_user_application",
	"id",
	"name",
	"description",
	"external_id",
	"kind",
	"organisational_unit_id",
	"lifecycle_phase",
	"risk_rating",
	"provenance",
	"is_promoted",
)

// notPromoted hides end user apps that have been promoted to full applications.
var notPromoted = sq.Eq{"end_user_application.is_promoted": false}

type EndUserAppRepository struct {
	db     database.DBTX
	logger *zerolog.Logger
}

func NewEndUserAppRepository(db database.DBTX, logger *zerolog.Logger) *EndUserAppRepository {
	return &EndUserAppRepository{db: db, logger: logger}
}

func scanEndUserApp(row pgx.Row) (model.EndUserApplication, error) {
	var (
		app                              model.EndUserApplication
		description                      *string
		kind, lifecyclePhase, riskRating string
	)

	err := row.Scan(
		&app.ID,
		&app.Name,
		&description,
		&app.ExternalID,
		&kind,
		&app.OrganisationalUnitID,
		&lifecyclePhase,
		&riskRating,
		&app.Provenance,
		&app.IsPromoted,
	)
	if err != nil {
		return model.EndUserApplication{}, err
	}

	if description != nil {
		app.Description = *description
	}
	app.ApplicationKind = kind
	app.LifecyclePhase = model.LifecyclePhase(lifecyclePhase)
	app.RiskRating = model.Criticality(riskRating)

	return app, nil
}

func (r *EndUserAppRepository) selectApps() sq.SelectBuilder {
	return psql.Select(endUserAppColumns...).From("end_user_application")
}

// CountByOrganisationalUnit tallies non promoted end user apps per org unit.
func (r *EndUserAppRepository) CountByOrganisationalUnit(ctx context.Context) ([]model.Tally[int64], error) {
	q := psql.Select("end_user_application.organisational_unit_id", "COUNT(*)").
		From("end_user_application").
		Where(notPromoted).
		GroupBy("end_user_application.organisational_unit_id")

	tallies, err := queryAll(ctx, r.db, q, func(row pgx.Row) (model.Tally[int64], error) {
		var (
			t     model.Tally[int64]
			count int64
		)
		if err := row.Scan(&t.ID, &count); err != nil {
			return t, err
		}
		t.Count = int(count)
		return t, nil
	})
	if err != nil {
		return nil, fmt.Errorf("counting end user apps by org unit: %w", err)
	}
	return tallies, nil
}

// FindByOrganisationalUnitSelector returns non promoted apps owned by the
// selected org units.
//
// Deprecated: use FindBySelector with an end user app id selector.
func (r *EndUserAppRepository) FindByOrganisationalUnitSelector(ctx context.Context, selector IDSelector) ([]model.EndUserApplication, error) {
	q := r.selectApps().
		Where(sq.Expr("end_user_application.organisational_unit_id IN (?)", selector)).
		Where(notPromoted)

	apps, err := queryAll(ctx, r.db, q, scanEndUserApp)
	if err != nil {
		return nil, fmt.Errorf("finding end user apps by org unit selector: %w", err)
	}
	return apps, nil
}

// FindBySelector returns the non promoted apps among the selected ids.
func (r *EndUserAppRepository) FindBySelector(ctx context.Context, selector IDSelector) ([]model.EndUserApplication, error) {
	q := r.selectApps().
		Where(sq.Expr("end_user_application.id IN (?)", selector)).
		Where(notPromoted)

	apps, err := queryAll(ctx, r.db, q, scanEndUserApp)
	if err != nil {
		return nil, fmt.Errorf("finding end user apps by selector: %w", err)
	}
	return apps, nil
}

// UpdateIsPromotedFlag marks the app promoted. Promotion is one way.
func (r *EndUserAppRepository) UpdateIsPromotedFlag(ctx context.Context, id int64) (int64, error) {
	q := psql.Update("end_user_application").
		Set("is_promoted", true).
		Where(sq.Eq{"id": id})

	n, err := execute(ctx, r.db, q)
	if err != nil {
		return 0, fmt.Errorf("promoting end user app %d: %w", id, err)
	}
	return n, nil
}

// GetByID fetches an app whether or not it has been promoted.
func (r *EndUserAppRepository) GetByID(ctx context.Context, id int64) (*model.EndUserApplication, error) {
	q := r.selectApps().Where(sq.Eq{"end_user_application.id": id})

	app, err := queryOne(ctx, r.db, q, scanEndUserApp)
	if err != nil {
		return nil, fmt.Errorf("getting end user app %d: %w", id, err)
	}
	return app, nil
}

func (r *EndUserAppRepository) FindAll(ctx context.Context) ([]model.EndUserApplication, error) {
	q := r.selectApps().Where(notPromoted)

	apps, err := queryAll(ctx, r.db, q, scanEndUserApp)
	if err != nil {
		return nil, fmt.Errorf("finding end user apps: %w", err)
	}
	return apps, nil
}
