package model

import (
	"time"

	"github.com/ro-rah/waltz/internal/validation"
)

// AttestationInstance links a parent entity to an attestation run.
//
// AttestedAt and AttestedBy stay nil until the instance is attested; the
// transition is one-way.
type AttestationInstance struct {
	ID                 *int64          `json:"id,omitempty"`
	AttestationRunID   int64           `json:"attestationRunId" validate:"gt=0"`
	ParentEntity       EntityReference `json:"parentEntity"`
	AttestedAt         *time.Time      `json:"attestedAt,omitempty"`
	AttestedBy         *string         `json:"attestedBy,omitempty"`
	AttestedEntityKind EntityKind      `json:"attestedEntityKind" validate:"required"`
}

// IsAttested reports whether the instance has been signed off.
func (a AttestationInstance) IsAttested() bool {
	return a.AttestedAt != nil
}

// Validate checks the instance is fit for insertion.
func (a AttestationInstance) Validate() error {
	return validation.Struct(a)
}

// AttestEntityCommand identifies what a user wants to attest: the kind
// of entity being attested for a given parent.
type AttestEntityCommand struct {
	EntityReference    EntityReference `json:"entityReference"`
	AttestedEntityKind EntityKind      `json:"attestedEntityKind" validate:"required"`
}

// Validate checks the command.
func (c AttestEntityCommand) Validate() error {
	return validation.Struct(c)
}
