package repository

import (
	"context"
	"regexp"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ro-rah/waltz/internal/model"
)

var endUserAppRowColumns = []string{
	"id", "name", "description", "external_id", "kind", "organisational_unit_id",
	"lifecycle_phase", "risk_rating", "provenance", "is_promoted",
}

func TestEndUserAppRepository_FindAll(t *testing.T) {
	mock := newTestPool(t)
	repo := NewEndUserAppRepository(mock, &testLogger)

	mock.ExpectQuery(regexp.QuoteMeta("FROM end_user_application WHERE end_user_application.is_promoted = $1")).
		WithArgs(false).
		WillReturnRows(pgxmock.NewRows(endUserAppRowColumns).
			AddRow(int64(1), "Risk model", nil, strPtr("EUC-1"), "EXCEL", int64(20), "PRODUCTION", "HIGH", "waltz", false))

	apps, err := repo.FindAll(context.Background())
	require.NoError(t, err)
	require.Len(t, apps, 1)

	app := apps[0]
	assert.Equal(t, "Risk model", app.Name)
	assert.Equal(t, "", app.Description, "a null description reads as empty")
	assert.Equal(t, "EUC-1", *app.ExternalID)
	assert.Equal(t, "EXCEL", app.ApplicationKind)
	assert.Equal(t, model.LifecyclePhaseProduction, app.LifecyclePhase)
	assert.Equal(t, model.CriticalityHigh, app.RiskRating)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEndUserAppRepository_GetByID(t *testing.T) {
	ctx := context.Background()

	t.Run("promoted apps are still returned", func(t *testing.T) {
		mock := newTestPool(t)
		repo := NewEndUserAppRepository(mock, &testLogger)

		mock.ExpectQuery(regexp.QuoteMeta("WHERE end_user_application.id = $1")).
			WithArgs(int64(1)).
			WillReturnRows(pgxmock.NewRows(endUserAppRowColumns).
				AddRow(int64(1), "Risk model", strPtr("pricing"), nil, "EXCEL", int64(20), "RETIRED", "LOW", "waltz", true))

		app, err := repo.GetByID(ctx, 1)
		require.NoError(t, err)
		require.NotNil(t, app)
		assert.True(t, app.IsPromoted)
		assert.Equal(t, "pricing", app.Description)
		assert.Nil(t, app.ExternalID)
	})

	t.Run("unknown id", func(t *testing.T) {
		mock := newTestPool(t)
		repo := NewEndUserAppRepository(mock, &testLogger)

		mock.ExpectQuery("FROM end_user_application").
			WithArgs(int64(2)).
			WillReturnRows(pgxmock.NewRows(endUserAppRowColumns))

		app, err := repo.GetByID(ctx, 2)
		require.NoError(t, err)
		assert.Nil(t, app)
	})
}

func TestEndUserAppRepository_CountByOrganisationalUnit(t *testing.T) {
	mock := newTestPool(t)
	repo := NewEndUserAppRepository(mock, &testLogger)

	mock.ExpectQuery(regexp.QuoteMeta("GROUP BY end_user_application.organisational_unit_id")).
		WithArgs(false).
		WillReturnRows(pgxmock.NewRows([]string{"organisational_unit_id", "count"}).
			AddRow(int64(10), int64(4)).
			AddRow(int64(11), int64(1)))

	tallies, err := repo.CountByOrganisationalUnit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []model.Tally[int64]{{ID: 10, Count: 4}, {ID: 11, Count: 1}}, tallies)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEndUserAppRepository_FindBySelector(t *testing.T) {
	mock := newTestPool(t)
	repo := NewEndUserAppRepository(mock, &testLogger)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE end_user_application.id IN (SELECT unnest($1::bigint[])) AND end_user_application.is_promoted = $2")).
		WithArgs([]int64{3}, false).
		WillReturnRows(pgxmock.NewRows(endUserAppRowColumns))

	apps, err := repo.FindBySelector(context.Background(), SelectIDs(3))
	require.NoError(t, err)
	assert.Empty(t, apps)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEndUserAppRepository_FindByOrganisationalUnitSelector(t *testing.T) {
	mock := newTestPool(t)
	repo := NewEndUserAppRepository(mock, &testLogger)

	mock.ExpectQuery(regexp.QuoteMeta("end_user_application.organisational_unit_id IN (WITH RECURSIVE ou_tree(id)")).
		WithArgs(int64(10), false).
		WillReturnRows(pgxmock.NewRows(endUserAppRowColumns))

	apps, err := repo.FindByOrganisationalUnitSelector(context.Background(), OrgUnitIDsForTree(10))
	require.NoError(t, err)
	assert.Empty(t, apps)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEndUserAppRepository_UpdateIsPromotedFlag(t *testing.T) {
	mock := newTestPool(t)
	repo := NewEndUserAppRepository(mock, &testLogger)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE end_user_application SET is_promoted = $1 WHERE id = $2")).
		WithArgs(true, int64(8)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	n, err := repo.UpdateIsPromotedFlag(context.Background(), 8)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	require.NoError(t, mock.ExpectationsWereMet())
}
