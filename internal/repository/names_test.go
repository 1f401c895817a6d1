package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ro-rah/waltz/internal/model"
)

func TestEntityNameField(t *testing.T) {
	tests := []struct {
		name  string
		kinds []model.EntityKind
		want  string
	}{
		{
			name:  "single kind",
			kinds: []model.EntityKind{model.EntityKindApplication},
			want:  "CASE t.kind WHEN 'APPLICATION' THEN (SELECT n.name FROM application n WHERE n.id = t.id) END",
		},
		{
			name:  "uses the registry name column",
			kinds: []model.EntityKind{model.EntityKindPerson, model.EntityKindActor},
			want: "CASE t.kind WHEN 'PERSON' THEN (SELECT n.display_name FROM person n WHERE n.id = t.id)" +
				" WHEN 'ACTOR' THEN (SELECT n.name FROM actor n WHERE n.id = t.id) END",
		},
		{
			name:  "skips kinds without a name source and duplicates",
			kinds: []model.EntityKind{model.EntityKindLogicalDataFlow, model.EntityKindMeasurable, model.EntityKindMeasurable},
			want:  "CASE t.kind WHEN 'MEASURABLE' THEN (SELECT n.name FROM measurable n WHERE n.id = t.id) END",
		},
		{
			name:  "nothing nameable",
			kinds: []model.EntityKind{model.EntityKindPhysicalFlow},
			want:  "CAST(NULL AS TEXT)",
		},
		{
			name: "empty",
			want: "CAST(NULL AS TEXT)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, entityNameField("t.id", "t.kind", tt.kinds))
		})
	}
}

func TestAttestationNamesCoverTheRegistry(t *testing.T) {
	field := entityNameField("i", "k", attestationNameableKinds)
	for kind := range entityNameSources {
		assert.Contains(t, field, "WHEN '"+string(kind)+"'")
	}
}

func TestRelationshipNamesExcludeOtherKinds(t *testing.T) {
	field := entityNameField("i", "k", relationshipNameableKinds)
	assert.Contains(t, field, "'CHANGE_INITIATIVE'")
	assert.NotContains(t, field, "'PERSON'")
	assert.NotContains(t, field, "'DATA_TYPE'")
}
