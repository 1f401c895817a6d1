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

// TransportKindEnum is the enum_value type holding the permitted transports.
const TransportKindEnum = "TransportKind"

var physicalFlowColumns = qualify("physical_flow",
	"id",
	"logical_flow_id",
	"specification_id",
	"basis_offset",
	"frequency",
	"criticality",
	"transport",
	"description",
	"provenance",
	"freshness_indicator",
	"specification_definition_id",
	"last_updated_by",
	"last_updated_at",
	"last_attested_by",
	"last_attested_at",
	"is_removed",
	"external_id",
	"entity_lifecycle_status",
	"created_at",
	"created_by",
)

var (
	physicalFlowNotRemoved = sq.And{
		sq.Eq{"physical_flow.is_removed": false},
		sq.NotEq{"physical_flow.entity_lifecycle_status": string(model.EntityLifecycleStatusRemoved)},
	}

	logicalFlowNotRemoved = sq.And{
		sq.Eq{"logical_flow.is_removed": false},
		sq.NotEq{"logical_flow.entity_lifecycle_status": string(model.EntityLifecycleStatusRemoved)},
	}
)

type PhysicalFlowRepository struct {
	db     database.DBTX
	logger *zerolog.Logger
	now    clock
}

func NewPhysicalFlowRepository(db database.DBTX, logger *zerolog.Logger) *PhysicalFlowRepository {
	return &PhysicalFlowRepository{db: db, logger: logger, now: utcNow}
}

func scanPhysicalFlow(row pgx.Row) (model.PhysicalFlow, error) {
	var (
		f                      model.PhysicalFlow
		id                     int64
		frequency, criticality string
		freshness, status      string
		createdAt              time.Time
		createdBy              string
	)

	err := row.Scan(
		&id,
		&f.LogicalFlowID,
		&f.SpecificationID,
		&f.BasisOffset,
		&frequency,
		&criticality,
		&f.Transport,
		&f.Description,
		&f.Provenance,
		&freshness,
		&f.SpecificationDefinitionID,
		&f.LastUpdatedBy,
		&f.LastUpdatedAt,
		&f.LastAttestedBy,
		&f.LastAttestedAt,
		&f.IsRemoved,
		&f.ExternalID,
		&status,
		&createdAt,
		&createdBy,
	)
	if err != nil {
		return model.PhysicalFlow{}, err
	}

	f.ID = &id
	f.Frequency = model.FrequencyKind(frequency)
	f.Criticality = model.Criticality(criticality)
	f.FreshnessIndicator = model.ParseFreshnessIndicator(freshness)
	f.EntityLifecycleStatus = model.EntityLifecycleStatus(status)
	f.Created = &model.UserTimestamp{By: createdBy, At: createdAt}

	return f, nil
}

func (r *PhysicalFlowRepository) selectFlows() sq.SelectBuilder {
	return psql.Select(physicalFlowColumns...).From("physical_flow")
}

func (r *PhysicalFlowRepository) findByCondition(ctx context.Context, cond sq.Sqlizer) ([]model.PhysicalFlow, error) {
	return queryAll(ctx, r.db, r.selectFlows().Where(cond), scanPhysicalFlow)
}

// producerQuery selects live flows whose logical flow originates at producer.
func producerQuery(producer model.EntityReference) sq.SelectBuilder {
	return psql.Select(physicalFlowColumns...).
		Distinct().
		From("physical_flow").
		Join("physical_specification ON physical_specification.id = physical_flow.specification_id").
		Join("logical_flow ON logical_flow.id = physical_flow.logical_flow_id").
		Where(sq.Eq{
			"logical_flow.source_entity_id":   producer.ID,
			"logical_flow.source_entity_kind": string(producer.Kind),
		}).
		Where(logicalFlowNotRemoved).
		Where(physicalFlowNotRemoved)
}

// consumerQuery selects live flows whose logical flow ends at consumer.
func consumerQuery(consumer model.EntityReference) sq.SelectBuilder {
	return psql.Select(physicalFlowColumns...).
		Distinct().
		From("physical_flow").
		Join("logical_flow ON logical_flow.id = physical_flow.logical_flow_id").
		Where(sq.Eq{
			"logical_flow.target_entity_id":   consumer.ID,
			"logical_flow.target_entity_kind": string(consumer.Kind),
		}).
		Where(logicalFlowNotRemoved).
		Where(physicalFlowNotRemoved)
}

// FindByEntityReference returns the flows ref produces or consumes.
func (r *PhysicalFlowRepository) FindByEntityReference(ctx context.Context, ref model.EntityReference) ([]model.PhysicalFlow, error) {
	flows, err := queryAll(ctx, r.db, union(consumerQuery(ref), producerQuery(ref)), scanPhysicalFlow)
	if err != nil {
		return nil, fmt.Errorf("finding physical flows for %s: %w", ref, err)
	}
	return flows, nil
}

func (r *PhysicalFlowRepository) FindByProducer(ctx context.Context, ref model.EntityReference) ([]model.PhysicalFlow, error) {
	flows, err := queryAll(ctx, r.db, producerQuery(ref), scanPhysicalFlow)
	if err != nil {
		return nil, fmt.Errorf("finding physical flows produced by %s: %w", ref, err)
	}
	return flows, nil
}

func (r *PhysicalFlowRepository) FindByConsumer(ctx context.Context, ref model.EntityReference) ([]model.PhysicalFlow, error) {
	flows, err := queryAll(ctx, r.db, consumerQuery(ref), scanPhysicalFlow)
	if err != nil {
		return nil, fmt.Errorf("finding physical flows consumed by %s: %w", ref, err)
	}
	return flows, nil
}

// FindByProducerAndConsumer returns the flows between producer and consumer
// whose logical flow is not REMOVED. Removed physical flows are included.
func (r *PhysicalFlowRepository) FindByProducerAndConsumer(ctx context.Context, producer, consumer model.EntityReference) ([]model.PhysicalFlow, error) {
	q := r.selectFlows().
		Join("logical_flow ON logical_flow.id = physical_flow.logical_flow_id").
		Where(sq.Eq{
			"logical_flow.source_entity_id":   producer.ID,
			"logical_flow.source_entity_kind": string(producer.Kind),
			"logical_flow.target_entity_id":   consumer.ID,
			"logical_flow.target_entity_kind": string(consumer.Kind),
		}).
		Where(sq.NotEq{"logical_flow.entity_lifecycle_status": string(model.EntityLifecycleStatusRemoved)})

	flows, err := queryAll(ctx, r.db, q, scanPhysicalFlow)
	if err != nil {
		return nil, fmt.Errorf("finding physical flows from %s to %s: %w", producer, consumer, err)
	}
	return flows, nil
}

// FindByExternalID matches the flow's own external id or any external
// identifier registered for it.
func (r *PhysicalFlowRepository) FindByExternalID(ctx context.Context, externalID string) ([]model.PhysicalFlow, error) {
	q := psql.Select(physicalFlowColumns...).
		Distinct().
		From("physical_flow").
		LeftJoin("external_identifier ON external_identifier.entity_id = physical_flow.id AND external_identifier.entity_kind = ?",
			string(model.EntityKindPhysicalFlow)).
		Where(sq.Or{
			sq.Eq{"physical_flow.external_id": externalID},
			sq.Eq{"external_identifier.external_id": externalID},
		})

	flows, err := queryAll(ctx, r.db, q, scanPhysicalFlow)
	if err != nil {
		return nil, fmt.Errorf("finding physical flows by external id: %w", err)
	}
	return flows, nil
}

func (r *PhysicalFlowRepository) GetByID(ctx context.Context, id int64) (*model.PhysicalFlow, error) {
	flow, err := queryOne(ctx, r.db, r.selectFlows().Where(sq.Eq{"physical_flow.id": id}), scanPhysicalFlow)
	if err != nil {
		return nil, fmt.Errorf("getting physical flow %d: %w", id, err)
	}
	return flow, nil
}

func (r *PhysicalFlowRepository) FindBySpecificationID(ctx context.Context, specificationID int64) ([]model.PhysicalFlow, error) {
	flows, err := r.findByCondition(ctx, sq.Eq{"physical_flow.specification_id": specificationID})
	if err != nil {
		return nil, fmt.Errorf("finding physical flows for specification %d: %w", specificationID, err)
	}
	return flows, nil
}

func (r *PhysicalFlowRepository) FindBySelector(ctx context.Context, selector IDSelector) ([]model.PhysicalFlow, error) {
	flows, err := r.findByCondition(ctx, sq.Expr("physical_flow.id IN (?)", selector))
	if err != nil {
		return nil, fmt.Errorf("finding physical flows by selector: %w", err)
	}
	return flows, nil
}

// FindByAttributesAndSpecification returns flows sharing the logical flow,
// specification, basis offset, frequency and transport of flow.
func (r *PhysicalFlowRepository) FindByAttributesAndSpecification(ctx context.Context, flow model.PhysicalFlow) ([]model.PhysicalFlow, error) {
	flows, err := r.findByCondition(ctx, sq.Eq{
		"physical_flow.specification_id": flow.SpecificationID,
		"physical_flow.basis_offset":     flow.BasisOffset,
		"physical_flow.frequency":        string(flow.Frequency),
		"physical_flow.transport":        flow.Transport,
		"physical_flow.logical_flow_id":  flow.LogicalFlowID,
	})
	if err != nil {
		return nil, fmt.Errorf("finding physical flows by attributes: %w", err)
	}
	return flows, nil
}

// GetByParsedFlow resolves an uploaded flow description to the live flow
// it describes, or nil.
func (r *PhysicalFlowRepository) GetByParsedFlow(ctx context.Context, flow model.PhysicalFlowParsed) (*model.PhysicalFlow, error) {
	q := r.selectFlows().
		Join("logical_flow ON logical_flow.id = physical_flow.logical_flow_id").
		Join("physical_specification ON physical_specification.id = physical_flow.specification_id").
		Join("physical_spec_data_type ON physical_spec_data_type.specification_id = physical_specification.id").
		Where(sq.Eq{
			"logical_flow.source_entity_id":   flow.Source.ID,
			"logical_flow.source_entity_kind": string(flow.Source.Kind),
			"logical_flow.target_entity_id":   flow.Target.ID,
			"logical_flow.target_entity_kind": string(flow.Target.Kind),
		}).
		Where(sq.NotEq{"logical_flow.entity_lifecycle_status": string(model.EntityLifecycleStatusRemoved)}).
		Where(sq.Eq{
			"physical_specification.owning_entity_id":   flow.Owner.ID,
			"physical_specification.owning_entity_kind": string(flow.Owner.Kind),
			"physical_specification.format":             flow.Format,
			"physical_specification.name":               flow.Name,
			"physical_specification.is_removed":         false,
		}).
		Where(sq.Eq{
			"physical_flow.basis_offset": flow.BasisOffset,
			"physical_flow.frequency":    string(flow.Frequency),
			"physical_flow.transport":    flow.Transport,
			"physical_flow.criticality":  string(flow.Criticality),
		}).
		Where(physicalFlowNotRemoved).
		Where(sq.Eq{"physical_spec_data_type.data_type_id": flow.DataType.ID})

	found, err := queryOne(ctx, r.db, q, scanPhysicalFlow)
	if err != nil {
		return nil, fmt.Errorf("getting physical flow by parsed flow: %w", err)
	}
	return found, nil
}

// MatchPhysicalFlow returns the stored flow equal to flow on every
// attribute, and on id when flow carries one.
func (r *PhysicalFlowRepository) MatchPhysicalFlow(ctx context.Context, flow model.PhysicalFlow) (*model.PhysicalFlow, error) {
	q := r.selectFlows().
		Where(sq.Eq{
			"physical_flow.logical_flow_id":  flow.LogicalFlowID,
			"physical_flow.specification_id": flow.SpecificationID,
			"physical_flow.basis_offset":     flow.BasisOffset,
			"physical_flow.frequency":        string(flow.Frequency),
			"physical_flow.transport":        flow.Transport,
			"physical_flow.criticality":      string(flow.Criticality),
		})

	if flow.ID != nil {
		q = q.Where(sq.Eq{"physical_flow.id": *flow.ID})
	}

	found, err := queryOne(ctx, r.db, q, scanPhysicalFlow)
	if err != nil {
		return nil, fmt.Errorf("matching physical flow: %w", err)
	}
	return found, nil
}

// Delete hard deletes the flow. Use UpdateEntityLifecycleStatus to soft delete.
func (r *PhysicalFlowRepository) Delete(ctx context.Context, flowID int64) (int64, error) {
	n, err := execute(ctx, r.db, psql.Delete("physical_flow").Where(sq.Eq{"id": flowID}))
	if err != nil {
		return 0, fmt.Errorf("deleting physical flow %d: %w", flowID, err)
	}
	return n, nil
}

// Create inserts flow with provenance "waltz". Freshness, specification
// definition and lifecycle status are left to their column defaults
// (NEVER_OBSERVED, NULL, ACTIVE). When flow.Created is nil the creation
// stamp is taken from the last update.
func (r *PhysicalFlowRepository) Create(ctx context.Context, flow model.PhysicalFlow) (int64, error) {
	if flow.ID != nil {
		return 0, errs.NewPreconditionError("flow must not have an id", nil)
	}
	if err := validation.Check("physical flow", flow); err != nil {
		return 0, err
	}

	created := model.UserTimestamp{By: flow.LastUpdatedBy, At: flow.LastUpdatedAt}
	if flow.Created != nil {
		created = *flow.Created
	}

	q := psql.Insert("physical_flow").
		Columns(
			"logical_flow_id",
			"specification_id",
			"frequency",
			"transport",
			"basis_offset",
			"criticality",
			"description",
			"last_updated_by",
			"last_updated_at",
			"last_attested_by",
			"last_attested_at",
			"is_removed",
			"provenance",
			"external_id",
			"created_at",
			"created_by",
		).
		Values(
			flow.LogicalFlowID,
			flow.SpecificationID,
			string(flow.Frequency),
			flow.Transport,
			flow.BasisOffset,
			string(flow.Criticality),
			flow.Description,
			flow.LastUpdatedBy,
			flow.LastUpdatedAt,
			flow.LastAttestedBy,
			flow.LastAttestedAt,
			flow.IsRemoved,
			"waltz",
			flow.ExternalID,
			created.At,
			created.By,
		)

	id, err := insertReturningID(ctx, r.db, q)
	if err != nil {
		return 0, fmt.Errorf("creating physical flow: %w", err)
	}
	return id, nil
}

// UpdateSpecDefinition points the flow at a new specification definition.
// Nothing is written when the flow already uses that definition.
func (r *PhysicalFlowRepository) UpdateSpecDefinition(ctx context.Context, username string, flowID, specDefinitionID int64) (int64, error) {
	if username == "" {
		return 0, errs.NewPreconditionError("username cannot be empty", nil)
	}

	q := psql.Update("physical_flow").
		Set("specification_definition_id", specDefinitionID).
		Set("last_updated_by", username).
		Set("last_updated_at", r.now()).
		Where(sq.Eq{"id": flowID}).
		Where(sq.Or{
			sq.Eq{"specification_definition_id": nil},
			sq.NotEq{"specification_definition_id": specDefinitionID},
		})

	n, err := execute(ctx, r.db, q)
	if err != nil {
		return 0, fmt.Errorf("updating spec definition of physical flow %d: %w", flowID, err)
	}
	return n, nil
}

// orphanedPhysicalFlows matches live flows whose logical flow or
// specification is missing or removed.
func orphanedPhysicalFlows() sq.Sqlizer {
	liveLogicalFlows := sq.Select("logical_flow.id").
		From("logical_flow").
		Where(sq.NotEq{"logical_flow.entity_lifecycle_status": string(model.EntityLifecycleStatusRemoved)})

	liveSpecifications := sq.Select("physical_specification.id").
		From("physical_specification").
		Where(sq.Eq{"physical_specification.is_removed": false})

	return sq.And{
		sq.Eq{"physical_flow.is_removed": false},
		sq.Or{
			sq.Expr("physical_flow.logical_flow_id NOT IN (?)", liveLogicalFlows),
			sq.Expr("physical_flow.specification_id NOT IN (?)", liveSpecifications),
		},
	}
}

// CleanupOrphans soft removes flows left behind by a removed logical flow
// or specification and returns how many were marked removed.
func (r *PhysicalFlowRepository) CleanupOrphans(ctx context.Context) (int64, error) {
	idQuery := psql.Select("physical_flow.id").From("physical_flow").Where(orphanedPhysicalFlows())

	ids, err := queryAll(ctx, r.db, idQuery, func(row pgx.Row) (int64, error) {
		var id int64
		err := row.Scan(&id)
		return id, err
	})
	if err != nil {
		return 0, fmt.Errorf("finding orphaned physical flows: %w", err)
	}

	r.logger.Info().
		Ints64("ids", ids).
		Msg("physical flow cleanupOrphans, marking flows with missing endpoints as removed")

	q := psql.Update("physical_flow").
		Set("is_removed", true).
		Where(orphanedPhysicalFlows())

	n, err := execute(ctx, r.db, q)
	if err != nil {
		return 0, fmt.Errorf("removing orphaned physical flows: %w", err)
	}
	return n, nil
}

func (r *PhysicalFlowRepository) updateColumn(ctx context.Context, flowID int64, column string, value any) (int64, error) {
	q := psql.Update("physical_flow").
		Set(column, value).
		Where(sq.Eq{"id": flowID})

	n, err := execute(ctx, r.db, q)
	if err != nil {
		return 0, fmt.Errorf("updating %s of physical flow %d: %w", column, flowID, err)
	}
	return n, nil
}

func (r *PhysicalFlowRepository) UpdateCriticality(ctx context.Context, flowID int64, criticality model.Criticality) (int64, error) {
	return r.updateColumn(ctx, flowID, "criticality", string(criticality))
}

func (r *PhysicalFlowRepository) UpdateFrequency(ctx context.Context, flowID int64, frequency model.FrequencyKind) (int64, error) {
	return r.updateColumn(ctx, flowID, "frequency", string(frequency))
}

// UpdateExternalID sets the external id; nil clears it.
func (r *PhysicalFlowRepository) UpdateExternalID(ctx context.Context, flowID int64, externalID *string) (int64, error) {
	return r.updateColumn(ctx, flowID, "external_id", externalID)
}

// UpdateTransport changes the transport only if it is a known TransportKind
// enum value. An unknown transport updates nothing.
func (r *PhysicalFlowRepository) UpdateTransport(ctx context.Context, flowID int64, transport string) (int64, error) {
	if transport == "" {
		return 0, errs.NewPreconditionError("transport cannot be empty", nil)
	}

	known := sq.Select("1").
		From("enum_value").
		Where(sq.Eq{"enum_value.type": TransportKindEnum, "enum_value.key": transport})

	q := psql.Update("physical_flow").
		Set("transport", transport).
		Where(sq.Eq{"id": flowID}).
		Where(sq.Expr("EXISTS (?)", known))

	n, err := execute(ctx, r.db, q)
	if err != nil {
		return 0, fmt.Errorf("updating transport of physical flow %d: %w", flowID, err)
	}
	return n, nil
}

func (r *PhysicalFlowRepository) UpdateBasisOffset(ctx context.Context, flowID int64, basisOffset int32) (int64, error) {
	return r.updateColumn(ctx, flowID, "basis_offset", basisOffset)
}

func (r *PhysicalFlowRepository) UpdateDescription(ctx context.Context, flowID int64, description string) (int64, error) {
	return r.updateColumn(ctx, flowID, "description", description)
}

// UpdateEntityLifecycleStatus also keeps is_removed in step: REMOVED sets
// it, any other status clears it.
func (r *PhysicalFlowRepository) UpdateEntityLifecycleStatus(ctx context.Context, flowID int64, status model.EntityLifecycleStatus) (int64, error) {
	q := psql.Update("physical_flow").
		Set("entity_lifecycle_status", string(status)).
		Set("is_removed", status == model.EntityLifecycleStatusRemoved).
		Where(sq.Eq{"id": flowID})

	n, err := execute(ctx, r.db, q)
	if err != nil {
		return 0, fmt.Errorf("updating lifecycle status of physical flow %d: %w", flowID, err)
	}
	return n, nil
}

// HasPhysicalFlows reports whether the logical flow has any flow that is not removed.
func (r *PhysicalFlowRepository) HasPhysicalFlows(ctx context.Context, logicalFlowID int64) (bool, error) {
	q := psql.Select("1").
		Prefix("SELECT EXISTS (").
		From("physical_flow").
		Where(sq.Eq{"physical_flow.logical_flow_id": logicalFlowID}).
		Where(sq.Eq{"physical_flow.is_removed": false}).
		Suffix(")")

	found, err := queryBool(ctx, r.db, q)
	if err != nil {
		return false, fmt.Errorf("checking physical flows of logical flow %d: %w", logicalFlowID, err)
	}
	return found, nil
}
