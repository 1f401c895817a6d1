package repository

import (
	"fmt"
	"strings"

	"github.com/ro-rah/waltz/internal/model"
)

// nameSource says where the display name of one entity kind lives.
type nameSource struct {
	table      string
	idColumn   string
	nameColumn string
}

// entityNameSources is the registry of kinds whose names can be resolved.
var entityNameSources = map[model.EntityKind]nameSource{
	model.EntityKindActor:                 {table: "actor", idColumn: "id", nameColumn: "name"},
	model.EntityKindAppGroup:              {table: "application_group", idColumn: "id", nameColumn: "name"},
	model.EntityKindApplication:           {table: "application", idColumn: "id", nameColumn: "name"},
	model.EntityKindChangeInitiative:      {table: "change_initiative", idColumn: "id", nameColumn: "name"},
	model.EntityKindDataType:              {table: "data_type", idColumn: "id", nameColumn: "name"},
	model.EntityKindEndUserApplication:    {table: "end_user_application", idColumn: "id", nameColumn: "name"},
	model.EntityKindFlowDiagram:           {table: "flow_diagram", idColumn: "id", nameColumn: "name"},
	model.EntityKindMeasurable:            {table: "measurable", idColumn: "id", nameColumn: "name"},
	model.EntityKindMeasurableCategory:    {table: "measurable_category", idColumn: "id", nameColumn: "name"},
	model.EntityKindOrgUnit:               {table: "organisational_unit", idColumn: "id", nameColumn: "name"},
	model.EntityKindPerson:                {table: "person", idColumn: "id", nameColumn: "display_name"},
	model.EntityKindPhysicalSpecification: {table: "physical_specification", idColumn: "id", nameColumn: "name"},
	model.EntityKindSurveyRun:             {table: "survey_run", idColumn: "id", nameColumn: "name"},
}

// entityNameField builds one SQL expression resolving the name of the
// entity identified by the idCol/kindCol pair:
//
//	CASE kindCol
//	    WHEN 'APPLICATION' THEN (SELECT n.name FROM application n WHERE n.id = idCol)
//	    ...
//	END
//
// Kinds that are not in kinds, or not in the registry, and ids with no
// matching row all resolve to NULL. The expression has no bind arguments so
// it can be used in SELECT and ORDER BY alike.
func entityNameField(idCol, kindCol string, kinds []model.EntityKind) string {
	var b strings.Builder
	seen := make(map[model.EntityKind]bool, len(kinds))

	for _, k := range kinds {
		src, ok := entityNameSources[k]
		if !ok || seen[k] {
			continue
		}
		seen[k] = true

		if b.Len() == 0 {
			fmt.Fprintf(&b, "CASE %s", kindCol)
		}
		fmt.Fprintf(&b, " WHEN '%s' THEN (SELECT n.%s FROM %s n WHERE n.%s = %s)",
			k, src.nameColumn, src.table, src.idColumn, idCol)
	}

	if b.Len() == 0 {
		return "CAST(NULL AS TEXT)"
	}

	b.WriteString(" END")
	return b.String()
}

// nameColumn returns entityNameField aliased for use in a column list.
func nameColumn(idCol, kindCol string, kinds []model.EntityKind, alias string) string {
	return entityNameField(idCol, kindCol, kinds) + " AS " + alias
}

// Nameable sets per repository.
var (
	attestationNameableKinds = model.AllEntityKinds

	relationshipNameableKinds = []model.EntityKind{
		model.EntityKindApplication,
		model.EntityKindAppGroup,
		model.EntityKindActor,
		model.EntityKindMeasurable,
		model.EntityKindChangeInitiative,
	}

	replacementNameableKinds = []model.EntityKind{
		model.EntityKindApplication,
	}
)
