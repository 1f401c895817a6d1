package repository

import (
	"bytes"
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ro-rah/waltz/internal/errs"
	"github.com/ro-rah/waltz/internal/model"
)

var physicalFlowRowColumns = []string{
	"id", "logical_flow_id", "specification_id", "basis_offset", "frequency", "criticality",
	"transport", "description", "provenance", "freshness_indicator", "specification_definition_id",
	"last_updated_by", "last_updated_at", "last_attested_by", "last_attested_at", "is_removed",
	"external_id", "entity_lifecycle_status", "created_at", "created_by",
}

var flowTimestamp = time.Date(2024, 7, 1, 8, 0, 0, 0, time.UTC)

func physicalFlowRow(rows *pgxmock.Rows, id int64, freshness string) *pgxmock.Rows {
	return rows.AddRow(
		id, int64(20), int64(30), int32(0), "DAILY", "HIGH",
		"FILE_TRANSPORT", "nightly extract", "waltz", freshness, nil,
		"admin", flowTimestamp, nil, nil, false,
		strPtr("EXT-1"), "ACTIVE", flowTimestamp.Add(-time.Hour), "creator",
	)
}

func TestPhysicalFlowRepository_GetByID(t *testing.T) {
	ctx := context.Background()

	t.Run("maps every column", func(t *testing.T) {
		mock := newTestPool(t)
		repo := NewPhysicalFlowRepository(mock, &testLogger)

		mock.ExpectQuery(regexp.QuoteMeta("FROM physical_flow WHERE physical_flow.id = $1")).
			WithArgs(int64(1)).
			WillReturnRows(physicalFlowRow(pgxmock.NewRows(physicalFlowRowColumns), 1, "RECENTLY_OBSERVED"))

		flow, err := repo.GetByID(ctx, 1)
		require.NoError(t, err)
		require.NotNil(t, flow)

		assert.Equal(t, int64(1), *flow.ID)
		assert.Equal(t, int64(20), flow.LogicalFlowID)
		assert.Equal(t, model.FrequencyDaily, flow.Frequency)
		assert.Equal(t, model.CriticalityHigh, flow.Criticality)
		assert.Equal(t, model.FreshnessRecentlyObserved, flow.FreshnessIndicator)
		assert.Nil(t, flow.SpecificationDefinitionID)
		assert.Nil(t, flow.LastAttestedAt)
		assert.Equal(t, "EXT-1", *flow.ExternalID)
		assert.Equal(t, model.EntityLifecycleStatusActive, flow.EntityLifecycleStatus)
		require.NotNil(t, flow.Created)
		assert.Equal(t, "creator", flow.Created.By)
		assert.Equal(t, flowTimestamp.Add(-time.Hour), flow.Created.At)
	})

	t.Run("unknown freshness falls back to never observed", func(t *testing.T) {
		mock := newTestPool(t)
		repo := NewPhysicalFlowRepository(mock, &testLogger)

		mock.ExpectQuery("FROM physical_flow").
			WithArgs(int64(1)).
			WillReturnRows(physicalFlowRow(pgxmock.NewRows(physicalFlowRowColumns), 1, "SOMETIMES"))

		flow, err := repo.GetByID(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, model.FreshnessNeverObserved, flow.FreshnessIndicator)
	})

	t.Run("missing", func(t *testing.T) {
		mock := newTestPool(t)
		repo := NewPhysicalFlowRepository(mock, &testLogger)

		mock.ExpectQuery("FROM physical_flow").
			WithArgs(int64(2)).
			WillReturnRows(pgxmock.NewRows(physicalFlowRowColumns))

		flow, err := repo.GetByID(ctx, 2)
		require.NoError(t, err)
		assert.Nil(t, flow)
	})
}

func TestPhysicalFlowRepository_FindByEntityReference(t *testing.T) {
	mock := newTestPool(t)
	repo := NewPhysicalFlowRepository(mock, &testLogger)
	ref := model.MkRef(model.EntityKindApplication, 5)

	notRemoved := []any{false, "REMOVED", false, "REMOVED"}
	args := append([]any{int64(5), "APPLICATION"}, notRemoved...)
	args = append(args, int64(5), "APPLICATION")
	args = append(args, notRemoved...)

	mock.ExpectQuery(regexp.QuoteMeta(") UNION (SELECT DISTINCT physical_flow.id")).
		WithArgs(args...).
		WillReturnRows(physicalFlowRow(pgxmock.NewRows(physicalFlowRowColumns), 1, "NEVER_OBSERVED"))

	flows, err := repo.FindByEntityReference(context.Background(), ref)
	require.NoError(t, err)
	assert.Len(t, flows, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPhysicalFlowRepository_FindByProducerAndConsumer(t *testing.T) {
	mock := newTestPool(t)
	repo := NewPhysicalFlowRepository(mock, &testLogger)

	producer := model.MkRef(model.EntityKindActor, 1)
	consumer := model.MkRef(model.EntityKindApplication, 2)

	mock.ExpectQuery(regexp.QuoteMeta("logical_flow.source_entity_id = $1 AND logical_flow.source_entity_kind = $2 AND logical_flow.target_entity_id = $3 AND logical_flow.target_entity_kind = $4")).
		WithArgs(int64(1), "ACTOR", int64(2), "APPLICATION", "REMOVED").
		WillReturnRows(pgxmock.NewRows(physicalFlowRowColumns))

	flows, err := repo.FindByProducerAndConsumer(context.Background(), producer, consumer)
	require.NoError(t, err)
	assert.Empty(t, flows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPhysicalFlowRepository_FindByExternalID(t *testing.T) {
	mock := newTestPool(t)
	repo := NewPhysicalFlowRepository(mock, &testLogger)

	mock.ExpectQuery(regexp.QuoteMeta("LEFT JOIN external_identifier ON external_identifier.entity_id = physical_flow.id AND external_identifier.entity_kind = $1 WHERE (physical_flow.external_id = $2 OR external_identifier.external_id = $3)")).
		WithArgs("PHYSICAL_FLOW", "EXT-1", "EXT-1").
		WillReturnRows(physicalFlowRow(pgxmock.NewRows(physicalFlowRowColumns), 1, "NEVER_OBSERVED"))

	flows, err := repo.FindByExternalID(context.Background(), "EXT-1")
	require.NoError(t, err)
	assert.Len(t, flows, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPhysicalFlowRepository_MatchPhysicalFlow(t *testing.T) {
	ctx := context.Background()
	flow := model.PhysicalFlow{
		LogicalFlowID:   20,
		SpecificationID: 30,
		Frequency:       model.FrequencyDaily,
		Transport:       "FILE_TRANSPORT",
		Criticality:     model.CriticalityHigh,
	}
	attrArgs := []any{int32(0), "HIGH", "DAILY", int64(20), int64(30), "FILE_TRANSPORT"}

	t.Run("without id", func(t *testing.T) {
		mock := newTestPool(t)
		repo := NewPhysicalFlowRepository(mock, &testLogger)

		mock.ExpectQuery("FROM physical_flow WHERE").
			WithArgs(attrArgs...).
			WillReturnRows(physicalFlowRow(pgxmock.NewRows(physicalFlowRowColumns), 9, "NEVER_OBSERVED"))

		found, err := repo.MatchPhysicalFlow(ctx, flow)
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, int64(9), *found.ID)
	})

	t.Run("with id", func(t *testing.T) {
		mock := newTestPool(t)
		repo := NewPhysicalFlowRepository(mock, &testLogger)

		withID := flow
		withID.ID = int64Ptr(9)
		mock.ExpectQuery(regexp.QuoteMeta("AND physical_flow.id = $7")).
			WithArgs(append(attrArgs, int64(9))...).
			WillReturnRows(pgxmock.NewRows(physicalFlowRowColumns))

		found, err := repo.MatchPhysicalFlow(ctx, withID)
		require.NoError(t, err)
		assert.Nil(t, found)
	})
}

func TestPhysicalFlowRepository_Create(t *testing.T) {
	ctx := context.Background()
	flow := model.PhysicalFlow{
		LogicalFlowID:   20,
		SpecificationID: 30,
		BasisOffset:     1,
		Frequency:       model.FrequencyDaily,
		Criticality:     model.CriticalityHigh,
		Transport:       "FILE_TRANSPORT",
		Description:     "nightly extract",
		Provenance:      "upload",
		LastUpdatedBy:   "admin",
		LastUpdatedAt:   flowTimestamp,
	}

	t.Run("creation stamp defaults to the last update", func(t *testing.T) {
		mock := newTestPool(t)
		repo := NewPhysicalFlowRepository(mock, &testLogger)

		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO physical_flow")).
			WithArgs(
				int64(20), int64(30), "DAILY", "FILE_TRANSPORT", int32(1), "HIGH", "nightly extract",
				"admin", flowTimestamp, (*string)(nil), (*time.Time)(nil), false, "waltz", (*string)(nil),
				flowTimestamp, "admin",
			).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(101)))

		id, err := repo.Create(ctx, flow)
		require.NoError(t, err)
		assert.Equal(t, int64(101), id)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("explicit creation stamp", func(t *testing.T) {
		mock := newTestPool(t)
		repo := NewPhysicalFlowRepository(mock, &testLogger)

		created := flowTimestamp.Add(-24 * time.Hour)
		withCreated := flow
		withCreated.Created = &model.UserTimestamp{By: "importer", At: created}

		mock.ExpectQuery("INSERT INTO physical_flow").
			WithArgs(
				int64(20), int64(30), "DAILY", "FILE_TRANSPORT", int32(1), "HIGH", "nightly extract",
				"admin", flowTimestamp, (*string)(nil), (*time.Time)(nil), false, "waltz", (*string)(nil),
				created, "importer",
			).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(102)))

		id, err := repo.Create(ctx, withCreated)
		require.NoError(t, err)
		assert.Equal(t, int64(102), id)
	})

	t.Run("flow with an id", func(t *testing.T) {
		mock := newTestPool(t)
		repo := NewPhysicalFlowRepository(mock, &testLogger)

		withID := flow
		withID.ID = int64Ptr(1)
		_, err := repo.Create(ctx, withID)
		assert.ErrorIs(t, err, errs.ErrPrecondition)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPhysicalFlowRepository_CleanupOrphans(t *testing.T) {
	mock := newTestPool(t)
	var logs bytes.Buffer
	logger := zerolog.New(&logs)
	repo := NewPhysicalFlowRepository(mock, &logger)

	orphanArgs := []any{false, "REMOVED", false}

	mock.ExpectQuery(regexp.QuoteMeta("SELECT physical_flow.id FROM physical_flow WHERE (physical_flow.is_removed = $1 AND (physical_flow.logical_flow_id NOT IN (SELECT logical_flow.id FROM logical_flow")).
		WithArgs(orphanArgs...).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(3)).AddRow(int64(4)))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE physical_flow SET is_removed = $1 WHERE (physical_flow.is_removed = $2")).
		WithArgs(append([]any{true}, orphanArgs...)...).
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))

	n, err := repo.CleanupOrphans(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	require.NoError(t, mock.ExpectationsWereMet())
	assert.Contains(t, logs.String(), `"ids":[3,4]`)
}

func TestPhysicalFlowRepository_UpdateSpecDefinition(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("only when the definition changes", func(t *testing.T) {
		mock := newTestPool(t)
		repo := NewPhysicalFlowRepository(mock, &testLogger)
		repo.now = fixedClock(now)

		mock.ExpectExec(regexp.QuoteMeta("WHERE id = $4 AND (specification_definition_id IS NULL OR specification_definition_id <> $5)")).
			WithArgs(int64(8), "jdoe", now, int64(1), int64(8)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		n, err := repo.UpdateSpecDefinition(ctx, "jdoe", 1, 8)
		require.NoError(t, err)
		assert.Equal(t, int64(0), n)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("username is required", func(t *testing.T) {
		mock := newTestPool(t)
		repo := NewPhysicalFlowRepository(mock, &testLogger)

		_, err := repo.UpdateSpecDefinition(ctx, "", 1, 8)
		assert.ErrorIs(t, err, errs.ErrPrecondition)
	})
}

func TestPhysicalFlowRepository_UpdateTransport(t *testing.T) {
	ctx := context.Background()

	t.Run("known transport", func(t *testing.T) {
		mock := newTestPool(t)
		repo := NewPhysicalFlowRepository(mock, &testLogger)

		mock.ExpectExec(regexp.QuoteMeta("UPDATE physical_flow SET transport = $1 WHERE id = $2 AND EXISTS (SELECT 1 FROM enum_value WHERE enum_value.key = $3 AND enum_value.type = $4)")).
			WithArgs("MESSAGING", int64(1), "MESSAGING", TransportKindEnum).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		n, err := repo.UpdateTransport(ctx, 1, "MESSAGING")
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("unknown transport updates nothing", func(t *testing.T) {
		mock := newTestPool(t)
		repo := NewPhysicalFlowRepository(mock, &testLogger)

		mock.ExpectExec("UPDATE physical_flow SET transport").
			WithArgs("CARRIER_PIGEON", int64(1), "CARRIER_PIGEON", TransportKindEnum).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		n, err := repo.UpdateTransport(ctx, 1, "CARRIER_PIGEON")
		require.NoError(t, err)
		assert.Equal(t, int64(0), n)
	})
}

func TestPhysicalFlowRepository_UpdateEntityLifecycleStatus(t *testing.T) {
	tests := []struct {
		status      model.EntityLifecycleStatus
		wantRemoved bool
	}{
		{status: model.EntityLifecycleStatusRemoved, wantRemoved: true},
		{status: model.EntityLifecycleStatusActive, wantRemoved: false},
		{status: model.EntityLifecycleStatusPending, wantRemoved: false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			mock := newTestPool(t)
			repo := NewPhysicalFlowRepository(mock, &testLogger)

			mock.ExpectExec(regexp.QuoteMeta("UPDATE physical_flow SET entity_lifecycle_status = $1, is_removed = $2 WHERE id = $3")).
				WithArgs(string(tt.status), tt.wantRemoved, int64(6)).
				WillReturnResult(pgxmock.NewResult("UPDATE", 1))

			n, err := repo.UpdateEntityLifecycleStatus(context.Background(), 6, tt.status)
			require.NoError(t, err)
			assert.Equal(t, int64(1), n)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPhysicalFlowRepository_SimpleUpdates(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		column string
		value  any
		update func(*PhysicalFlowRepository) (int64, error)
	}{
		{
			name:   "criticality",
			column: "criticality",
			value:  "LOW",
			update: func(r *PhysicalFlowRepository) (int64, error) {
				return r.UpdateCriticality(ctx, 2, model.CriticalityLow)
			},
		},
		{
			name:   "frequency",
			column: "frequency",
			value:  "WEEKLY",
			update: func(r *PhysicalFlowRepository) (int64, error) {
				return r.UpdateFrequency(ctx, 2, model.FrequencyWeekly)
			},
		},
		{
			name:   "basis offset",
			column: "basis_offset",
			value:  int32(-1),
			update: func(r *PhysicalFlowRepository) (int64, error) {
				return r.UpdateBasisOffset(ctx, 2, -1)
			},
		},
		{
			name:   "description",
			column: "description",
			value:  "weekly extract",
			update: func(r *PhysicalFlowRepository) (int64, error) {
				return r.UpdateDescription(ctx, 2, "weekly extract")
			},
		},
		{
			name:   "external id",
			column: "external_id",
			value:  strPtr("EXT-2"),
			update: func(r *PhysicalFlowRepository) (int64, error) {
				return r.UpdateExternalID(ctx, 2, strPtr("EXT-2"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newTestPool(t)
			repo := NewPhysicalFlowRepository(mock, &testLogger)

			mock.ExpectExec(regexp.QuoteMeta("UPDATE physical_flow SET "+tt.column+" = $1 WHERE id = $2")).
				WithArgs(tt.value, int64(2)).
				WillReturnResult(pgxmock.NewResult("UPDATE", 1))

			n, err := tt.update(repo)
			require.NoError(t, err)
			assert.Equal(t, int64(1), n)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPhysicalFlowRepository_HasPhysicalFlows(t *testing.T) {
	for _, want := range []bool{true, false} {
		mock := newTestPool(t)
		repo := NewPhysicalFlowRepository(mock, &testLogger)

		mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS ( SELECT 1 FROM physical_flow WHERE physical_flow.logical_flow_id = $1 AND physical_flow.is_removed = $2 )")).
			WithArgs(int64(20), false).
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(want))

		got, err := repo.HasPhysicalFlows(context.Background(), 20)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestPhysicalFlowRepository_Delete(t *testing.T) {
	mock := newTestPool(t)
	repo := NewPhysicalFlowRepository(mock, &testLogger)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM physical_flow WHERE id = $1")).
		WithArgs(int64(3)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	n, err := repo.Delete(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
