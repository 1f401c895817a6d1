package model

import (
	"time"

	"github.com/ro-rah/waltz/internal/validation"
)

// StatisticValueState says whether a statistic value was measured.
type StatisticValueState string

const (
	StatisticValueStateProvided    StatisticValueState = "PROVIDED"
	StatisticValueStateExempt      StatisticValueState = "EXEMPT"
	StatisticValueStateNotRequired StatisticValueState = "NOT_REQUIRED"
	StatisticValueStateNotProvided StatisticValueState = "NOT_PROVIDED"
)

// EntityStatisticValue is one timestamped measurement of a statistic for
// an entity. Several may exist per (statistic, entity); Current marks the
// latest. Keeping a single current value is the writer's job.
type EntityStatisticValue struct {
	ID          *int64              `json:"id,omitempty"`
	StatisticID int64               `json:"statisticId" validate:"gt=0"`
	Entity      EntityReference     `json:"entity"`
	Value       *string             `json:"value,omitempty"`
	Outcome     *string             `json:"outcome,omitempty"`
	State       StatisticValueState `json:"state" validate:"required"`
	Reason      *string             `json:"reason,omitempty"`
	CreatedAt   time.Time           `json:"createdAt" validate:"required"`
	Current     bool                `json:"current"`
	Provenance  string              `json:"provenance" validate:"required"`
}

// Validate checks the value is fit for insertion. A PROVIDED value must
// carry a value.
func (v EntityStatisticValue) Validate() error {
	if err := validation.Struct(v); err != nil {
		return err
	}

	if v.State == StatisticValueStateProvided && (v.Value == nil || *v.Value == "") {
		return validation.CustomValidationErrors{
			{Field: "value", Message: "is required when state is PROVIDED"},
		}
	}

	return nil
}
