package repository

import (
	sq "github.com/Masterminds/squirrel"

	"github.com/ro-rah/waltz/internal/model"
)

// IDSelector is a query yielding a single column of ids. It is only ever
// used as the operand of IN (...) / NOT IN (...), so it is built with '?'
// placeholders and renumbered by the enclosing statement.
type IDSelector = sq.Sqlizer

// GenericSelector scopes a query to the ids of one entity kind reachable
// under some precomputed scope (an org unit subtree, a run, an explicit list).
type GenericSelector struct {
	Kind     model.EntityKind
	Selector IDSelector
}

// SelectIDs selects exactly the given ids. An empty list selects nothing.
func SelectIDs(ids ...int64) IDSelector {
	if ids == nil {
		ids = []int64{}
	}
	return sq.Expr("SELECT unnest(?::bigint[])", ids)
}

// orgUnitTree selects orgUnitID and every organisational unit beneath it.
func orgUnitTree(orgUnitID int64) IDSelector {
	return sq.Expr(`WITH RECURSIVE ou_tree(id) AS (
    SELECT id FROM organisational_unit WHERE id = ?
    UNION
    SELECT child.id FROM organisational_unit child JOIN ou_tree parent ON child.parent_id = parent.id
) SELECT id FROM ou_tree`, orgUnitID)
}

// OrgUnitIDsForTree selects an organisational unit and all its descendants.
func OrgUnitIDsForTree(orgUnitID int64) IDSelector {
	return orgUnitTree(orgUnitID)
}

// ApplicationIDsForOrgUnit selects the live applications owned by the org
// unit or any unit beneath it.
func ApplicationIDsForOrgUnit(orgUnitID int64) IDSelector {
	return sq.Select("application.id").
		From("application").
		Where(sq.Expr("application.organisational_unit_id IN (?)", orgUnitTree(orgUnitID))).
		Where(sq.Eq{"application.is_removed": false}).
		Where(sq.NotEq{"application.entity_lifecycle_status": string(model.EntityLifecycleStatusRemoved)})
}

// AttestationInstanceIDsForRun selects the instances created by one attestation run.
func AttestationInstanceIDsForRun(runID int64) IDSelector {
	return sq.Select("attestation_instance.id").
		From("attestation_instance").
		Where(sq.Eq{"attestation_instance.attestation_run_id": runID})
}

// genericSelectorCondition matches a pair table row when either end is in
// the selector with the selector's kind.
func genericSelectorCondition(idA, kindA, idB, kindB string, selector GenericSelector) sq.Sqlizer {
	return sq.Or{
		sq.And{
			sq.Expr(idA+" IN (?)", selector.Selector),
			sq.Eq{kindA: string(selector.Kind)},
		},
		sq.And{
			sq.Expr(idB+" IN (?)", selector.Selector),
			sq.Eq{kindB: string(selector.Kind)},
		},
	}
}

// exactRefCondition matches a pair table row when either end is ref.
func exactRefCondition(idA, kindA, idB, kindB string, ref model.EntityReference) sq.Sqlizer {
	return sq.Or{
		sq.Eq{idA: ref.ID, kindA: string(ref.Kind)},
		sq.Eq{idB: ref.ID, kindB: string(ref.Kind)},
	}
}
