package repository

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/ro-rah/waltz/internal/database"
	"github.com/ro-rah/waltz/internal/model"
	"github.com/ro-rah/waltz/internal/validation"
)

const (
	relIDA   = "entity_relationship.id_a"
	relKindA = "entity_relationship.kind_a"
	relIDB   = "entity_relationship.id_b"
	relKindB = "entity_relationship.kind_b"
)

var entityRelationshipColumns = qualify("entity_relationship",
	"id_a",
	"kind_a",
	"id_b",
	"kind_b",
	"relationship",
	"description",
	"provenance",
	"last_updated_by",
	"last_updated_at",
)

var (
	relationshipNameA = nameColumn(relIDA, relKindA, relationshipNameableKinds, "name_a")
	relationshipNameB = nameColumn(relIDB, relKindB, relationshipNameableKinds, "name_b")
)

// EntityRelationshipRepository stores relationships keyed by their natural
// key (id_a, kind_a, id_b, kind_b, relationship). Selector and reference
// lookups match either end of the stored pair.
type EntityRelationshipRepository struct {
	db     database.DBTX
	logger *zerolog.Logger
	now    clock
}

func NewEntityRelationshipRepository(db database.DBTX, logger *zerolog.Logger) *EntityRelationshipRepository {
	return &EntityRelationshipRepository{db: db, logger: logger, now: utcNow}
}

func scanEntityRelationship(row pgx.Row) (model.EntityRelationship, error) {
	var (
		rel                  model.EntityRelationship
		idA, idB             int64
		kindA, kindB, relKnd string
		nameA, nameB         *string
	)

	err := row.Scan(
		&idA,
		&kindA,
		&idB,
		&kindB,
		&relKnd,
		&rel.Description,
		&rel.Provenance,
		&rel.LastUpdatedBy,
		&rel.LastUpdatedAt,
		&nameA,
		&nameB,
	)
	if err != nil {
		return model.EntityRelationship{}, err
	}

	rel.A = model.MkNamedRef(model.EntityKind(kindA), idA, nameA)
	rel.B = model.MkNamedRef(model.EntityKind(kindB), idB, nameB)
	rel.Relationship = model.RelationshipKind(relKnd)

	return rel, nil
}

func exactKeyCondition(key model.EntityRelationshipKey) sq.Eq {
	return sq.Eq{
		relIDA:                             key.A.ID,
		relKindA:                           string(key.A.Kind),
		relIDB:                             key.B.ID,
		relKindB:                           string(key.B.Kind),
		"entity_relationship.relationship": string(key.RelationshipKind),
	}
}

func (r *EntityRelationshipRepository) find(ctx context.Context, cond sq.Sqlizer) ([]model.EntityRelationship, error) {
	q := psql.Select(entityRelationshipColumns...).
		Columns(relationshipNameA, relationshipNameB).
		From("entity_relationship").
		Where(cond)

	return queryAll(ctx, r.db, q, scanEntityRelationship)
}

// FindForGenericEntitySelector returns relationships with either end in the selector.
func (r *EntityRelationshipRepository) FindForGenericEntitySelector(ctx context.Context, selector GenericSelector) ([]model.EntityRelationship, error) {
	rels, err := r.find(ctx, genericSelectorCondition(relIDA, relKindA, relIDB, relKindB, selector))
	if err != nil {
		return nil, fmt.Errorf("finding relationships for %s selector: %w", selector.Kind, err)
	}
	return rels, nil
}

// FindRelationshipsInvolving returns relationships with ref at either end.
func (r *EntityRelationshipRepository) FindRelationshipsInvolving(ctx context.Context, ref model.EntityReference) ([]model.EntityRelationship, error) {
	rels, err := r.find(ctx, exactRefCondition(relIDA, relKindA, relIDB, relKindB, ref))
	if err != nil {
		return nil, fmt.Errorf("finding relationships involving %s: %w", ref, err)
	}
	return rels, nil
}

// TallyRelationshipsInvolving counts, per kind, the entities on the other
// end of relationships involving ref.
func (r *EntityRelationshipRepository) TallyRelationshipsInvolving(ctx context.Context, ref model.EntityReference) (map[model.EntityKind]int, error) {
	asA := sq.Select(relKindB, "COUNT(*)").
		From("entity_relationship").
		Where(sq.Eq{relKindA: string(ref.Kind), relIDA: ref.ID}).
		GroupBy(relKindB)

	asB := sq.Select(relKindA, "COUNT(*)").
		From("entity_relationship").
		Where(sq.Eq{relKindB: string(ref.Kind), relIDB: ref.ID}).
		GroupBy(relKindA)

	rows, err := queryAll(ctx, r.db, unionAll(asA, asB), func(row pgx.Row) (model.Tally[string], error) {
		var (
			t     model.Tally[string]
			count int64
		)
		if err := row.Scan(&t.ID, &count); err != nil {
			return t, err
		}
		t.Count = int(count)
		return t, nil
	})
	if err != nil {
		return nil, fmt.Errorf("tallying relationships involving %s: %w", ref, err)
	}

	tallies := make(map[model.EntityKind]int, len(rows))
	for _, t := range rows {
		tallies[model.EntityKind(t.ID)] += t.Count
	}
	return tallies, nil
}

func (r *EntityRelationshipRepository) exists(ctx context.Context, key model.EntityRelationshipKey) (bool, error) {
	q := psql.Select("1").
		Prefix("SELECT EXISTS (").
		From("entity_relationship").
		Where(exactKeyCondition(key)).
		Suffix(")")

	return queryBool(ctx, r.db, q)
}

func (r *EntityRelationshipRepository) insert(ctx context.Context, rel model.EntityRelationship) (int64, error) {
	q := psql.Insert("entity_relationship").
		Columns("id_a", "kind_a", "id_b", "kind_b", "relationship", "description", "provenance", "last_updated_by", "last_updated_at").
		Values(rel.A.ID, string(rel.A.Kind), rel.B.ID, string(rel.B.Kind), string(rel.Relationship),
			rel.Description, rel.Provenance, rel.LastUpdatedBy, rel.LastUpdatedAt)

	return execute(ctx, r.db, q)
}

// Save inserts rel unless a relationship with the same key exists.
// Returns the number of rows inserted.
//
// Deprecated: use Create.
func (r *EntityRelationshipRepository) Save(ctx context.Context, rel model.EntityRelationship) (int64, error) {
	if err := validation.Check("entity relationship", rel); err != nil {
		return 0, err
	}

	found, err := r.exists(ctx, rel.ToKey())
	if err != nil {
		return 0, fmt.Errorf("checking relationship exists: %w", err)
	}
	if found {
		return 0, nil
	}

	n, err := r.insert(ctx, rel)
	if err != nil {
		return 0, fmt.Errorf("saving relationship: %w", err)
	}
	return n, nil
}

func (r *EntityRelationshipRepository) Create(ctx context.Context, rel model.EntityRelationship) (bool, error) {
	if err := validation.Check("entity relationship", rel); err != nil {
		return false, err
	}

	n, err := r.insert(ctx, rel)
	if err != nil {
		return false, fmt.Errorf("creating relationship: %w", err)
	}
	return n == 1, nil
}

// Remove deletes the relationship with exactly this key.
func (r *EntityRelationshipRepository) Remove(ctx context.Context, key model.EntityRelationshipKey) (bool, error) {
	if err := validation.Check("entity relationship key", key); err != nil {
		return false, err
	}

	n, err := execute(ctx, r.db, psql.Delete("entity_relationship").Where(exactKeyCondition(key)))
	if err != nil {
		return false, fmt.Errorf("removing relationship: %w", err)
	}
	return n == 1, nil
}

// Update changes the kind and description of the relationship with key and
// stamps it with username.
func (r *EntityRelationshipRepository) Update(ctx context.Context, key model.EntityRelationshipKey, params model.UpdateEntityRelationshipParams, username string) (bool, error) {
	if err := validation.Check("entity relationship key", key); err != nil {
		return false, err
	}
	if err := validation.Check("entity relationship params", params); err != nil {
		return false, err
	}

	q := psql.Update("entity_relationship").
		Set("relationship", string(params.RelationshipKind)).
		Set("description", params.Description).
		Set("last_updated_by", username).
		Set("last_updated_at", r.now()).
		Where(exactKeyCondition(key))

	n, err := execute(ctx, r.db, q)
	if err != nil {
		return false, fmt.Errorf("updating relationship: %w", err)
	}
	return n == 1, nil
}

func (r *EntityRelationshipRepository) DeleteForGenericEntitySelector(ctx context.Context, selector GenericSelector) (int64, error) {
	q := psql.Delete("entity_relationship").
		Where(genericSelectorCondition(relIDA, relKindA, relIDB, relKindB, selector))

	n, err := execute(ctx, r.db, q)
	if err != nil {
		return 0, fmt.Errorf("deleting relationships for %s selector: %w", selector.Kind, err)
	}
	return n, nil
}

func (r *EntityRelationshipRepository) RemoveAnyInvolving(ctx context.Context, ref model.EntityReference) (int64, error) {
	q := psql.Delete("entity_relationship").
		Where(exactRefCondition(relIDA, relKindA, relIDB, relKindB, ref))

	n, err := execute(ctx, r.db, q)
	if err != nil {
		return 0, fmt.Errorf("removing relationships involving %s: %w", ref, err)
	}
	return n, nil
}
