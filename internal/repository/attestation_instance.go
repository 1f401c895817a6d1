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
	"github.com/ro-rah/waltz/internal/validation"
)

var attestationInstanceColumns = qualify("attestation_instance",
	"id",
	"attestation_run_id",
	"parent_entity_kind",
	"parent_entity_id",
	"attested_at",
	"attested_by",
	"attested_entity_kind",
)

var attestationEntityName = nameColumn(
	"attestation_instance.parent_entity_id",
	"attestation_instance.parent_entity_kind",
	attestationNameableKinds,
	"entity_name")

type AttestationInstanceRepository struct {
	db     database.DBTX
	logger *zerolog.Logger
}

func NewAttestationInstanceRepository(db database.DBTX, logger *zerolog.Logger) *AttestationInstanceRepository {
	return &AttestationInstanceRepository{db: db, logger: logger}
}

func scanAttestationInstance(row pgx.Row) (model.AttestationInstance, error) {
	var (
		id, runID, parentID      int64
		parentKind, attestedKind string
		attestedAt               *time.Time
		attestedBy, name         *string
	)

	if err := row.Scan(&id, &runID, &parentKind, &parentID, &attestedAt, &attestedBy, &attestedKind, &name); err != nil {
		return model.AttestationInstance{}, err
	}

	return model.AttestationInstance{
		ID:                 &id,
		AttestationRunID:   runID,
		ParentEntity:       model.MkNamedRef(model.EntityKind(parentKind), parentID, name),
		AttestedAt:         attestedAt,
		AttestedBy:         attestedBy,
		AttestedEntityKind: model.EntityKind(attestedKind),
	}, nil
}

func (r *AttestationInstanceRepository) selectInstances() sq.SelectBuilder {
	return psql.Select(attestationInstanceColumns...).
		Column(attestationEntityName).
		From("attestation_instance")
}

func (r *AttestationInstanceRepository) GetByID(ctx context.Context, id int64) (*model.AttestationInstance, error) {
	q := r.selectInstances().Where(sq.Eq{"attestation_instance.id": id})

	inst, err := queryOne(ctx, r.db, q, scanAttestationInstance)
	if err != nil {
		return nil, fmt.Errorf("getting attestation instance %d: %w", id, err)
	}
	return inst, nil
}

// Create inserts a pending instance. The instance must not carry an id and
// any attested fields are ignored.
func (r *AttestationInstanceRepository) Create(ctx context.Context, inst model.AttestationInstance) (int64, error) {
	if inst.ID != nil {
		return 0, errs.NewPreconditionError("attestation instance must not have an id", nil)
	}
	if err := validation.Check("attestation instance", inst); err != nil {
		return 0, err
	}

	q := psql.Insert("attestation_instance").
		Columns("attestation_run_id", "parent_entity_kind", "parent_entity_id", "attested_entity_kind").
		Values(inst.AttestationRunID, string(inst.ParentEntity.Kind), inst.ParentEntity.ID, string(inst.AttestedEntityKind))

	id, err := insertReturningID(ctx, r.db, q)
	if err != nil {
		return 0, fmt.Errorf("creating attestation instance: %w", err)
	}
	return id, nil
}

// AddRecipient lets userID attest the instance.
func (r *AttestationInstanceRepository) AddRecipient(ctx context.Context, instanceID int64, userID string) (int64, error) {
	if userID == "" {
		return 0, errs.NewPreconditionError("userID cannot be empty", nil)
	}

	q := psql.Insert("attestation_instance_recipient").
		Columns("attestation_instance_id", "user_id").
		Values(instanceID, userID)

	id, err := insertReturningID(ctx, r.db, q)
	if err != nil {
		return 0, fmt.Errorf("adding recipient to attestation instance %d: %w", instanceID, err)
	}
	return id, nil
}

func (r *AttestationInstanceRepository) FindByRecipient(ctx context.Context, userID string, unattestedOnly bool) ([]model.AttestationInstance, error) {
	q := r.selectInstances().
		Join("attestation_instance_recipient ON attestation_instance_recipient.attestation_instance_id = attestation_instance.id").
		Where(sq.Eq{"attestation_instance_recipient.user_id": userID})

	if unattestedOnly {
		q = q.Where(sq.Eq{"attestation_instance.attested_at": nil})
	}

	insts, err := queryAll(ctx, r.db, q, scanAttestationInstance)
	if err != nil {
		return nil, fmt.Errorf("finding attestation instances for recipient: %w", err)
	}
	return insts, nil
}

// FindHistoricalForPendingByUserID returns the completed attestations of
// every parent entity that currently has an attestation pending for userID,
// most recent first.
func (r *AttestationInstanceRepository) FindHistoricalForPendingByUserID(ctx context.Context, userID string) ([]model.AttestationInstance, error) {
	pending := sq.Select("attestation_instance.parent_entity_kind", "attestation_instance.parent_entity_id").
		Distinct().
		From("attestation_instance").
		Join("attestation_instance_recipient ON attestation_instance_recipient.attestation_instance_id = attestation_instance.id").
		Where(sq.Eq{"attestation_instance_recipient.user_id": userID}).
		Where(sq.Eq{"attestation_instance.attested_at": nil})

	q := r.selectInstances().
		JoinClause(sq.Expr("INNER JOIN (?) pending ON pending.parent_entity_kind = attestation_instance.parent_entity_kind"+
			" AND pending.parent_entity_id = attestation_instance.parent_entity_id", pending)).
		Where(sq.NotEq{"attestation_instance.attested_at": nil}).
		OrderBy("attestation_instance.attested_at DESC")

	insts, err := queryAll(ctx, r.db, q, scanAttestationInstance)
	if err != nil {
		return nil, fmt.Errorf("finding historical attestations for pending: %w", err)
	}
	return insts, nil
}

func (r *AttestationInstanceRepository) FindByEntityReference(ctx context.Context, ref model.EntityReference) ([]model.AttestationInstance, error) {
	q := r.selectInstances().
		Where(sq.Eq{
			"attestation_instance.parent_entity_kind": string(ref.Kind),
			"attestation_instance.parent_entity_id":   ref.ID,
		})

	insts, err := queryAll(ctx, r.db, q, scanAttestationInstance)
	if err != nil {
		return nil, fmt.Errorf("finding attestation instances for %s: %w", ref, err)
	}
	return insts, nil
}

// AttestInstance records the attestation if, and only if, the instance is
// still pending. A second attestation of the same instance returns false.
func (r *AttestationInstanceRepository) AttestInstance(ctx context.Context, instanceID int64, attestedBy string, at time.Time) (bool, error) {
	q := psql.Update("attestation_instance").
		Set("attested_by", attestedBy).
		Set("attested_at", at).
		Where(sq.Eq{"id": instanceID}).
		Where(sq.Eq{"attested_at": nil})

	n, err := execute(ctx, r.db, q)
	if err != nil {
		return false, fmt.Errorf("attesting instance %d: %w", instanceID, err)
	}
	return n == 1, nil
}

func (r *AttestationInstanceRepository) FindByRunID(ctx context.Context, runID int64) ([]model.AttestationInstance, error) {
	q := r.selectInstances().Where(sq.Eq{"attestation_instance.attestation_run_id": runID})

	insts, err := queryAll(ctx, r.db, q, scanAttestationInstance)
	if err != nil {
		return nil, fmt.Errorf("finding attestation instances for run %d: %w", runID, err)
	}
	return insts, nil
}

// orphanAttestationIDs selects pending instances whose parent application
// is missing, soft deleted or has lifecycle status REMOVED.
func orphanAttestationIDs() sq.SelectBuilder {
	return sq.Select("attestation_instance.id").
		Distinct().
		From("attestation_instance").
		LeftJoin("application ON application.id = attestation_instance.parent_entity_id").
		Where(sq.Eq{"attestation_instance.attested_at": nil}).
		Where(sq.Eq{"attestation_instance.parent_entity_kind": string(model.EntityKindApplication)}).
		Where(sq.Or{
			sq.Eq{"application.id": nil},
			sq.Eq{"application.entity_lifecycle_status": string(model.EntityLifecycleStatusRemoved)},
			sq.Eq{"application.is_removed": true},
		})
}

// CleanupOrphans deletes orphaned pending instances, recipients first.
// Returns the number of instances deleted. Run it inside a transaction
// (database.WithTx) when both deletes must land together.
func (r *AttestationInstanceRepository) CleanupOrphans(ctx context.Context) (int64, error) {
	recipients := psql.Delete("attestation_instance_recipient").
		Where(sq.Expr("attestation_instance_id IN (?)", orphanAttestationIDs()))

	removedRecipients, err := execute(ctx, r.db, recipients)
	if err != nil {
		return 0, fmt.Errorf("removing recipients of orphaned attestation instances: %w", err)
	}

	instances := psql.Delete("attestation_instance").
		Where(sq.Expr("id IN (?)", orphanAttestationIDs()))

	removed, err := execute(ctx, r.db, instances)
	if err != nil {
		return 0, fmt.Errorf("removing orphaned attestation instances: %w", err)
	}

	r.logger.Info().
		Int64("instances", removed).
		Int64("recipients", removedRecipients).
		Msg("attestation instance cleanupOrphans")

	return removed, nil
}

// FindForEntityByRecipient returns the instances of runs attesting
// cmd.AttestedEntityKind for cmd.EntityReference that userID may attest.
func (r *AttestationInstanceRepository) FindForEntityByRecipient(ctx context.Context, cmd model.AttestEntityCommand, userID string, unattestedOnly bool) ([]model.AttestationInstance, error) {
	if err := validation.Check("attest entity command", cmd); err != nil {
		return nil, err
	}

	q := r.selectInstances().
		Join("attestation_run ON attestation_run.id = attestation_instance.attestation_run_id").
		Join("attestation_instance_recipient ON attestation_instance_recipient.attestation_instance_id = attestation_instance.id").
		Where(sq.Eq{"attestation_instance_recipient.user_id": userID}).
		Where(sq.Eq{
			"attestation_run.attested_entity_kind":    string(cmd.AttestedEntityKind),
			"attestation_instance.parent_entity_id":   cmd.EntityReference.ID,
			"attestation_instance.parent_entity_kind": string(cmd.EntityReference.Kind),
		})

	if unattestedOnly {
		q = q.Where(sq.Eq{"attestation_instance.attested_at": nil})
	}

	insts, err := queryAll(ctx, r.db, q, scanAttestationInstance)
	if err != nil {
		return nil, fmt.Errorf("finding attestation instances for entity by recipient: %w", err)
	}
	return insts, nil
}

// FindByIDSelector returns the attested instances among the selected ids.
func (r *AttestationInstanceRepository) FindByIDSelector(ctx context.Context, selector IDSelector) ([]model.AttestationInstance, error) {
	q := r.selectInstances().
		Where(sq.Expr("attestation_instance.id IN (?)", selector)).
		Where(sq.NotEq{"attestation_instance.attested_at": nil})

	insts, err := queryAll(ctx, r.db, q, scanAttestationInstance)
	if err != nil {
		return nil, fmt.Errorf("finding attestation instances by selector: %w", err)
	}
	return insts, nil
}
