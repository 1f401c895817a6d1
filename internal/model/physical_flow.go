package model

import (
	"time"

	"github.com/ro-rah/waltz/internal/validation"
)

// FrequencyKind is how often a physical flow runs.
type FrequencyKind string

const (
	FrequencyOnDemand   FrequencyKind = "ON_DEMAND"
	FrequencyRealTime   FrequencyKind = "REAL_TIME"
	FrequencyIntraDay   FrequencyKind = "INTRA_DAY"
	FrequencyDaily      FrequencyKind = "DAILY"
	FrequencyWeekly     FrequencyKind = "WEEKLY"
	FrequencyMonthly    FrequencyKind = "MONTHLY"
	FrequencyQuarterly  FrequencyKind = "QUARTERLY"
	FrequencyBiannually FrequencyKind = "BIANNUALLY"
	FrequencyYearly     FrequencyKind = "YEARLY"
	FrequencyUnknown    FrequencyKind = "UNKNOWN"
)

// FreshnessIndicator says how recently a flow was seen in the wild.
type FreshnessIndicator string

const (
	FreshnessNeverObserved        FreshnessIndicator = "NEVER_OBSERVED"
	FreshnessHistoricallyObserved FreshnessIndicator = "HISTORICALLY_OBSERVED"
	FreshnessRecentlyObserved     FreshnessIndicator = "RECENTLY_OBSERVED"
)

// ParseFreshnessIndicator maps a stored value, falling back to
// FreshnessNeverObserved for anything unrecognised.
func ParseFreshnessIndicator(s string) FreshnessIndicator {
	switch v := FreshnessIndicator(s); v {
	case FreshnessNeverObserved, FreshnessHistoricallyObserved, FreshnessRecentlyObserved:
		return v
	default:
		return FreshnessNeverObserved
	}
}

// UserTimestamp records who did something and when.
type UserTimestamp struct {
	By string    `json:"by"`
	At time.Time `json:"at"`
}

// PhysicalFlow is the concrete realisation of a logical flow using a
// physical specification.
type PhysicalFlow struct {
	ID                        *int64                `json:"id,omitempty"`
	LogicalFlowID             int64                 `json:"logicalFlowId" validate:"gt=0"`
	SpecificationID           int64                 `json:"specificationId" validate:"gt=0"`
	BasisOffset               int32                 `json:"basisOffset"`
	Frequency                 FrequencyKind         `json:"frequency" validate:"required"`
	Criticality               Criticality           `json:"criticality" validate:"required"`
	Transport                 string                `json:"transport" validate:"required"`
	Description               string                `json:"description"`
	Provenance                string                `json:"provenance"`
	FreshnessIndicator        FreshnessIndicator    `json:"freshnessIndicator"`
	SpecificationDefinitionID *int64                `json:"specificationDefinitionId,omitempty"`
	LastUpdatedBy             string                `json:"lastUpdatedBy" validate:"required"`
	LastUpdatedAt             time.Time             `json:"lastUpdatedAt" validate:"required"`
	LastAttestedBy            *string               `json:"lastAttestedBy,omitempty"`
	LastAttestedAt            *time.Time            `json:"lastAttestedAt,omitempty"`
	IsRemoved                 bool                  `json:"isRemoved"`
	ExternalID                *string               `json:"externalId,omitempty"`
	EntityLifecycleStatus     EntityLifecycleStatus `json:"entityLifecycleStatus"`
	Created                   *UserTimestamp        `json:"created,omitempty"`
}

// Validate checks the flow is fit for insertion.
func (f PhysicalFlow) Validate() error {
	return validation.Struct(f)
}

// PhysicalFlowParsed is a flow described by its endpoints and
// specification attributes, as read from a bulk upload, rather than by ids.
type PhysicalFlowParsed struct {
	Source      EntityReference `json:"source"`
	Target      EntityReference `json:"target"`
	Owner       EntityReference `json:"owner"`
	Name        string          `json:"name" validate:"required"`
	Format      string          `json:"format" validate:"required"`
	DataType    EntityReference `json:"dataType"`
	BasisOffset int32           `json:"basisOffset"`
	Frequency   FrequencyKind   `json:"frequency" validate:"required"`
	Transport   string          `json:"transport" validate:"required"`
	Criticality Criticality     `json:"criticality" validate:"required"`
}

// Validate checks the parsed flow.
func (f PhysicalFlowParsed) Validate() error {
	return validation.Struct(f)
}
