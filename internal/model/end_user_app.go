package model

// EndUserApplication is a lightweight, usually user-built, application.
//
// Once IsPromoted is set the record has become a full application and is
// excluded from end-user application queries.
type EndUserApplication struct {
	ID                   int64          `json:"id"`
	Name                 string         `json:"name"`
	Description          string         `json:"description"`
	ExternalID           *string        `json:"externalId,omitempty"`
	ApplicationKind      string         `json:"applicationKind"`
	OrganisationalUnitID int64          `json:"organisationalUnitId"`
	LifecyclePhase       LifecyclePhase `json:"lifecyclePhase"`
	RiskRating           Criticality    `json:"riskRating"`
	Provenance           string         `json:"provenance"`
	IsPromoted           bool           `json:"isPromoted"`
}
