package model

import "fmt"

// EntityKind discriminates the addressable domain objects. It is stored
// in the database as its string form (e.g. "APPLICATION").
type EntityKind string

const (
	EntityKindActor                  EntityKind = "ACTOR"
	EntityKindAppGroup               EntityKind = "APP_GROUP"
	EntityKindApplication            EntityKind = "APPLICATION"
	EntityKindAttestation            EntityKind = "ATTESTATION"
	EntityKindAttestationRun         EntityKind = "ATTESTATION_RUN"
	EntityKindChangeInitiative       EntityKind = "CHANGE_INITIATIVE"
	EntityKindDataType               EntityKind = "DATA_TYPE"
	EntityKindEndUserApplication     EntityKind = "END_USER_APPLICATION"
	EntityKindEntityStatistic        EntityKind = "ENTITY_STATISTIC"
	EntityKindFlowDiagram            EntityKind = "FLOW_DIAGRAM"
	EntityKindLogicalDataFlow        EntityKind = "LOGICAL_DATA_FLOW"
	EntityKindMeasurable             EntityKind = "MEASURABLE"
	EntityKindMeasurableCategory     EntityKind = "MEASURABLE_CATEGORY"
	EntityKindOrgUnit                EntityKind = "ORG_UNIT"
	EntityKindPerson                 EntityKind = "PERSON"
	EntityKindPhysicalFlow           EntityKind = "PHYSICAL_FLOW"
	EntityKindPhysicalSpecification  EntityKind = "PHYSICAL_SPECIFICATION"
	EntityKindPlannedDecommission    EntityKind = "MEASURABLE_RATING_PLANNED_DECOMMISSION"
	EntityKindReplacementApplication EntityKind = "MEASURABLE_RATING_REPLACEMENT"
	EntityKindSurveyInstance         EntityKind = "SURVEY_INSTANCE"
	EntityKindSurveyRun              EntityKind = "SURVEY_RUN"
)

// AllEntityKinds lists every kind in declaration order.
var AllEntityKinds = []EntityKind{
	EntityKindActor,
	EntityKindAppGroup,
	EntityKindApplication,
	EntityKindAttestation,
	EntityKindAttestationRun,
	EntityKindChangeInitiative,
	EntityKindDataType,
	EntityKindEndUserApplication,
	EntityKindEntityStatistic,
	EntityKindFlowDiagram,
	EntityKindLogicalDataFlow,
	EntityKindMeasurable,
	EntityKindMeasurableCategory,
	EntityKindOrgUnit,
	EntityKindPerson,
	EntityKindPhysicalFlow,
	EntityKindPhysicalSpecification,
	EntityKindPlannedDecommission,
	EntityKindReplacementApplication,
	EntityKindSurveyInstance,
	EntityKindSurveyRun,
}

// EntityReference is a (kind, id) pair identifying any addressable
// domain object, plus its display name when one was resolved.
type EntityReference struct {
	Kind EntityKind `json:"kind" validate:"required"`
	ID   int64      `json:"id" validate:"gt=0"`
	Name *string    `json:"name,omitempty"`
}

// MkRef builds an unnamed reference.
func MkRef(kind EntityKind, id int64) EntityReference {
	return EntityReference{Kind: kind, ID: id}
}

// MkNamedRef builds a reference; a nil name stays nil.
func MkNamedRef(kind EntityKind, id int64, name *string) EntityReference {
	return EntityReference{Kind: kind, ID: id, Name: name}
}

// WithName returns a copy of the reference carrying name.
func (r EntityReference) WithName(name string) EntityReference {
	r.Name = &name
	return r
}

// SameAs reports whether both references point at the same row, ignoring names.
func (r EntityReference) SameAs(other EntityReference) bool {
	return r.Kind == other.Kind && r.ID == other.ID
}

func (r EntityReference) String() string {
	return fmt.Sprintf("%s/%d", r.Kind, r.ID)
}

// EntityLifecycleStatus is the soft-delete aware lifecycle of an entity.
type EntityLifecycleStatus string

const (
	EntityLifecycleStatusActive  EntityLifecycleStatus = "ACTIVE"
	EntityLifecycleStatusPending EntityLifecycleStatus = "PENDING"
	EntityLifecycleStatusRemoved EntityLifecycleStatus = "REMOVED"
)

// Criticality rates importance or risk.
type Criticality string

const (
	CriticalityLow      Criticality = "LOW"
	CriticalityMedium   Criticality = "MEDIUM"
	CriticalityHigh     Criticality = "HIGH"
	CriticalityVeryHigh Criticality = "VERY_HIGH"
	CriticalityNone     Criticality = "NONE"
	CriticalityUnknown  Criticality = "UNKNOWN"
)

// LifecyclePhase of an application.
type LifecyclePhase string

const (
	LifecyclePhaseProduction  LifecyclePhase = "PRODUCTION"
	LifecyclePhaseDevelopment LifecyclePhase = "DEVELOPMENT"
	LifecyclePhaseConceptual  LifecyclePhase = "CONCEPTUAL"
	LifecyclePhaseRetired     LifecyclePhase = "RETIRED"
)

// Operation tags which branch of a write was taken.
type Operation string

const (
	OperationAdd    Operation = "ADD"
	OperationUpdate Operation = "UPDATE"
	OperationRemove Operation = "REMOVE"
)

// Tally is a count grouped by some key.
type Tally[K comparable] struct {
	ID    K   `json:"id"`
	Count int `json:"count"`
}
