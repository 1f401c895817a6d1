package model

// Application is the read model of a registered application, as needed
// by the statistic lookups.
type Application struct {
	ID                    int64                 `json:"id"`
	Name                  string                `json:"name"`
	Description           string                `json:"description"`
	AssetCode             *string               `json:"assetCode,omitempty"`
	OrganisationalUnitID  int64                 `json:"organisationalUnitId"`
	ApplicationKind       string                `json:"applicationKind"`
	LifecyclePhase        LifecyclePhase        `json:"lifecyclePhase"`
	BusinessCriticality   Criticality           `json:"businessCriticality"`
	OverallRating         string                `json:"overallRating"`
	Provenance            string                `json:"provenance"`
	EntityLifecycleStatus EntityLifecycleStatus `json:"entityLifecycleStatus"`
	IsRemoved             bool                  `json:"isRemoved"`
}
