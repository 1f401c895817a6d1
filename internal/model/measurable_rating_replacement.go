package model

import "time"

// MeasurableRatingReplacement names the entity that takes over from a
// planned decommission, and when.
type MeasurableRatingReplacement struct {
	ID                    int64           `json:"id"`
	DecommissionID        int64           `json:"decommissionId"`
	EntityReference       EntityReference `json:"entityReference"`
	PlannedCommissionDate time.Time       `json:"plannedCommissionDate"`
	CreatedAt             time.Time       `json:"createdAt"`
	CreatedBy             string          `json:"createdBy"`
	LastUpdatedAt         time.Time       `json:"lastUpdatedAt"`
	LastUpdatedBy         string          `json:"lastUpdatedBy"`
}

// SaveResult reports which branch of an upsert ran and whether it wrote
// exactly one row.
type SaveResult struct {
	Operation Operation `json:"operation"`
	Succeeded bool      `json:"succeeded"`
}
