package rules

import (
	"sync"

	"github.com/itemgrid/fieldflow/types"
)

// ScopedRule is a dependency rule together with the tab it was registered
// under; rules on tab B may fire for a trigger on tab A.
type ScopedRule struct {
	Tab  string
	Rule types.DependencyRule
}

type scopeIndex struct {
	tab        string
	byTrigger  map[string][]types.DependencyRule
	triggers   []string          // registration order of trigger names
	dependents map[string]string // dependent field name -> container id
}

// Registry indexes, per (entityType, tabName), which fields declare
// depends-on rules, keyed by the field they depend on. Registration fully
// replaces the index for a scope key; indexes are never patched, so a tab
// reload can never leave stale rules behind.
type Registry struct {
	mu       sync.RWMutex
	entities map[string]map[string]*scopeIndex // entityType -> tabName -> index
	tabOrder map[string][]string               // entityType -> tab registration order
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		entities: make(map[string]map[string]*scopeIndex),
		tabOrder: make(map[string][]string),
	}
}

// Register replaces the dependency index for the (entityType, tabName) pair
// of the scope with the given declarations. Declarations with an empty
// trigger are no-ops and are ignored. Registration is idempotent.
func (r *Registry) Register(scope types.Scope, decls []types.DependencyRule) {
	idx := &scopeIndex{
		tab:        scope.TabName,
		byTrigger:  make(map[string][]types.DependencyRule),
		dependents: make(map[string]string),
	}
	for _, d := range decls {
		if d.TriggerField == "" {
			continue
		}
		if _, seen := idx.byTrigger[d.TriggerField]; !seen {
			idx.triggers = append(idx.triggers, d.TriggerField)
		}
		idx.byTrigger[d.TriggerField] = append(idx.byTrigger[d.TriggerField], d)
		if d.DependentField != "" {
			idx.dependents[d.DependentField] = d.DependentFieldID
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	tabs, ok := r.entities[scope.EntityType]
	if !ok {
		tabs = make(map[string]*scopeIndex)
		r.entities[scope.EntityType] = tabs
	}
	if _, seen := tabs[scope.TabName]; !seen {
		r.tabOrder[scope.EntityType] = append(r.tabOrder[scope.EntityType], scope.TabName)
	}
	tabs[scope.TabName] = idx
}

// ResetScope discards the index for one (entityType, tabName) pair.
func (r *Registry) ResetScope(entityType, tabName string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tabs, ok := r.entities[entityType]
	if !ok {
		return
	}
	delete(tabs, tabName)
	order := r.tabOrder[entityType]
	for i, t := range order {
		if t == tabName {
			r.tabOrder[entityType] = append(order[:i], order[i+1:]...)
			break
		}
	}
}

// DependentsFor collects every rule across all tabs of the entity type
// whose trigger equals the changed field's name, in tab registration order
// and, within a tab, in declaration order.
func (r *Registry) DependentsFor(entityType, triggerField string) []ScopedRule {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tabs, ok := r.entities[entityType]
	if !ok {
		return nil
	}
	var out []ScopedRule
	for _, tab := range r.tabOrder[entityType] {
		idx, ok := tabs[tab]
		if !ok {
			continue
		}
		for _, rule := range idx.byTrigger[triggerField] {
			out = append(out, ScopedRule{Tab: tab, Rule: rule})
		}
	}
	return out
}

// Dependents returns the rule-controlled fields of one tab, keyed by field
// name with their container ids.
func (r *Registry) Dependents(entityType, tabName string) map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx, ok := r.entities[entityType][tabName]
	if !ok {
		return nil
	}
	out := make(map[string]string, len(idx.dependents))
	for name, id := range idx.dependents {
		out[name] = id
	}
	return out
}
