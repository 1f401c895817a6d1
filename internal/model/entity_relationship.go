package model

import (
	"time"

	"github.com/ro-rah/waltz/internal/validation"
)

// RelationshipKind describes how A relates to B.
type RelationshipKind string

const (
	RelationshipKindHas            RelationshipKind = "HAS"
	RelationshipKindDuplicates     RelationshipKind = "DUPLICATES"
	RelationshipKindParticipates   RelationshipKind = "PARTICIPATES_IN"
	RelationshipKindRelatesTo      RelationshipKind = "RELATES_TO"
	RelationshipKindSupports       RelationshipKind = "SUPPORTS"
	RelationshipKindApplicationNew RelationshipKind = "APPLICATION_NEW"
)

// EntityRelationship is a pair of references stored as (a, b). Lookups
// treat the pair as unordered; the natural key keeps the order.
type EntityRelationship struct {
	A             EntityReference  `json:"a"`
	B             EntityReference  `json:"b"`
	Relationship  RelationshipKind `json:"relationship" validate:"required"`
	Description   *string          `json:"description,omitempty"`
	Provenance    string           `json:"provenance" validate:"required"`
	LastUpdatedBy string           `json:"lastUpdatedBy" validate:"required"`
	LastUpdatedAt time.Time        `json:"lastUpdatedAt" validate:"required"`
}

// ToKey extracts the natural key.
func (r EntityRelationship) ToKey() EntityRelationshipKey {
	return EntityRelationshipKey{
		A:                r.A,
		B:                r.B,
		RelationshipKind: r.Relationship,
	}
}

// Validate checks the relationship is fit for insertion.
func (r EntityRelationship) Validate() error {
	return validation.Struct(r)
}

// EntityRelationshipKey is the composite natural key
// (id_a, kind_a, id_b, kind_b, relationship).
type EntityRelationshipKey struct {
	A                EntityReference  `json:"a"`
	B                EntityReference  `json:"b"`
	RelationshipKind RelationshipKind `json:"relationshipKind" validate:"required"`
}

// Validate checks the key.
func (k EntityRelationshipKey) Validate() error {
	return validation.Struct(k)
}

// UpdateEntityRelationshipParams are the mutable parts of a relationship.
type UpdateEntityRelationshipParams struct {
	RelationshipKind RelationshipKind `json:"relationshipKind" validate:"required"`
	Description      *string          `json:"description,omitempty"`
}

// Validate checks the params.
func (p UpdateEntityRelationshipParams) Validate() error {
	return validation.Struct(p)
}
