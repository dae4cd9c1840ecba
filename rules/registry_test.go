package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/itemgrid/fieldflow/types"
)

func TestRegisterAndLookup(t *testing.T) {
	reg := NewRegistry()
	reg.Register(types.Scope{EntityType: "order", TabName: "general"}, []types.DependencyRule{
		{DependentField: "state", DependentFieldID: "c1", TriggerField: "country", Operator: types.OpEquals, ExpectedValues: "US", Action: types.ActionToggleVisibility},
		{DependentField: "zip", DependentFieldID: "c2", TriggerField: "country", Operator: types.OpEquals, ExpectedValues: "US", Action: types.ActionToggleVisibility},
	})
	reg.Register(types.Scope{EntityType: "order", TabName: "shipping"}, []types.DependencyRule{
		{DependentField: "carrier", DependentFieldID: "c3", TriggerField: "country", Operator: types.OpIsNotEmpty, Action: types.ActionRefresh},
	})

	matched := reg.DependentsFor("order", "country")
	assert.Len(t, matched, 3, "rules are collected across all tabs of the entity type")
	assert.Equal(t, "general", matched[0].Tab)
	assert.Equal(t, "state", matched[0].Rule.DependentField)
	assert.Equal(t, "zip", matched[1].Rule.DependentField)
	assert.Equal(t, "shipping", matched[2].Tab)

	assert.Empty(t, reg.DependentsFor("order", "unknown"))
	assert.Empty(t, reg.DependentsFor("invoice", "country"))
}

func TestRegisterReplacesScope(t *testing.T) {
	reg := NewRegistry()
	scope := types.Scope{EntityType: "order", TabName: "general"}
	reg.Register(scope, []types.DependencyRule{
		{DependentField: "state", TriggerField: "country", Operator: types.OpEquals, ExpectedValues: "US", Action: types.ActionToggleVisibility},
	})

	// Re-registration after a tab reload fully replaces the index.
	reg.Register(scope, []types.DependencyRule{
		{DependentField: "region", TriggerField: "continent", Operator: types.OpEquals, ExpectedValues: "EU", Action: types.ActionToggleVisibility},
	})

	assert.Empty(t, reg.DependentsFor("order", "country"), "stale rules must not survive re-registration")
	assert.Len(t, reg.DependentsFor("order", "continent"), 1)
}

func TestNoOpDeclarationsIgnored(t *testing.T) {
	reg := NewRegistry()
	reg.Register(types.Scope{EntityType: "order", TabName: "general"}, []types.DependencyRule{
		{DependentField: "state"}, // no trigger: no-op
		{DependentField: "zip", TriggerField: "country", Operator: types.OpEquals, ExpectedValues: "US", Action: types.ActionToggleVisibility},
	})
	assert.Len(t, reg.DependentsFor("order", "country"), 1)
	assert.Equal(t, map[string]string{"zip": ""}, reg.Dependents("order", "general"))
}

func TestResetScope(t *testing.T) {
	reg := NewRegistry()
	reg.Register(types.Scope{EntityType: "order", TabName: "general"}, []types.DependencyRule{
		{DependentField: "state", TriggerField: "country", Operator: types.OpEquals, ExpectedValues: "US", Action: types.ActionToggleVisibility},
	})
	reg.ResetScope("order", "general")
	assert.Empty(t, reg.DependentsFor("order", "country"))
	assert.Nil(t, reg.Dependents("order", "general"))
}
