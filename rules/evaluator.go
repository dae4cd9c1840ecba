// Package rules implements the dependency engine: a registry of
// depends-on declarations per (entityType, tabName) scope and an evaluator
// that, on every field change, re-decides visibility and data-source
// refreshes for all dependents of the changed field.
package rules

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/itemgrid/fieldflow/events"
	"github.com/itemgrid/fieldflow/fields"
	"github.com/itemgrid/fieldflow/tracker"
	"github.com/itemgrid/fieldflow/types"
)

// Evaluator applies dependency rules. It never returns an error from
// OnValueChanged: a rule that cannot be evaluated is logged and skipped,
// and evaluation of the remaining rules continues.
type Evaluator struct {
	registry *Registry
	tracker  *tracker.Tracker
	provider types.FieldProvider
	windows  types.WindowManager
	cond     Condition
	bus      *events.Bus
	logger   *slog.Logger

	mu     sync.Mutex
	vis    map[string]map[string]bool // state key -> dependent field -> visible
	free   map[string]int             // state key -> count of rule-free fields
	tabVis map[string]bool            // state key -> last cascaded tab visibility
}

// stateKey isolates derived visibility state per open window. Rules are
// shared across windows of an entity type, visibility counts are not: two
// windows showing the same tab each cascade independently.
func stateKey(scope types.Scope) string {
	return scope.Key() + "|" + scope.WindowID
}

// EvaluatorOption configures an Evaluator.
type EvaluatorOption func(*Evaluator)

// WithLogger sets the diagnostic logger.
func WithLogger(logger *slog.Logger) EvaluatorOption {
	return func(e *Evaluator) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithBus attaches an event bus for visibility/refresh notifications.
func WithBus(bus *events.Bus) EvaluatorOption {
	return func(e *Evaluator) {
		e.bus = bus
	}
}

// WithCondition overrides the expression-operator evaluator.
func WithCondition(cond Condition) EvaluatorOption {
	return func(e *Evaluator) {
		if cond != nil {
			e.cond = cond
		}
	}
}

// NewEvaluator wires the evaluator to its registry, tracker and
// collaborators. windows may be nil when the embedder has no tab chrome;
// tab cascade and active-tab lookup are then disabled.
func NewEvaluator(registry *Registry, trk *tracker.Tracker, provider types.FieldProvider, windows types.WindowManager, opts ...EvaluatorOption) *Evaluator {
	e := &Evaluator{
		registry: registry,
		tracker:  trk,
		provider: provider,
		windows:  windows,
		cond:     NewExprCondition(),
		logger:   slog.Default(),
		vis:      make(map[string]map[string]bool),
		free:     make(map[string]int),
		tabVis:   make(map[string]bool),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// OnValueChanged evaluates every rule across all tabs of the field's
// entity type whose trigger is the changed field, applying visibility and
// refresh side effects. activeTab, when non-empty, overrides the field's
// own tab; it covers the case where the active tab must be read off a
// tab-strip the engine does not own.
func (e *Evaluator) OnValueChanged(ctx context.Context, field types.Field, newValue interface{}, activeTab string) {
	scope := field.Scope
	if activeTab != "" {
		scope.TabName = activeTab
	} else if scope.TabName == "" && e.windows != nil {
		tab, ok := e.windows.ActiveTab(scope.WindowID)
		if !ok {
			e.logger.Warn("no active tab for window, using field scope as-is",
				"window", scope.WindowID, "field", field.Name)
		} else {
			scope.TabName = tab
		}
	}

	e.tracker.Update(scope.WindowID, field.Name, newValue)

	matched := e.registry.DependentsFor(scope.EntityType, field.Name)
	if len(matched) == 0 {
		return
	}

	value := fields.Normalize(newValue)

	for _, sr := range matched {
		ruleScope := types.Scope{
			EntityType: scope.EntityType,
			TabName:    sr.Tab,
			WindowID:   scope.WindowID,
		}
		show, err := e.match(sr.Rule, value, scope.WindowID)
		if err != nil {
			e.logger.Warn("dependency rule skipped",
				"trigger", field.Name, "dependent", sr.Rule.DependentField,
				"operator", string(sr.Rule.Operator), "error", err)
			e.publish(ctx, events.Event{
				Type:  events.RuleSkipped,
				Scope: ruleScope.Key(),
				Data:  map[string]interface{}{"dependent": sr.Rule.DependentField, "error": err.Error()},
			})
			if sr.Rule.Action != types.ActionRefresh {
				continue
			}
		}

		switch sr.Rule.Action {
		case types.ActionToggleVisibility:
			e.toggleVisibility(ctx, ruleScope, sr.Rule, show)
		case types.ActionRefresh:
			// Refresh fires whenever the trigger fired, regardless of
			// the match outcome.
			if err := e.provider.RefreshDataSource(ctx, ruleScope, sr.Rule.DependentField); err != nil {
				e.logger.Warn("data source refresh failed",
					"field", sr.Rule.DependentField, "error", err)
				continue
			}
			e.publish(ctx, events.Event{
				Type:  events.RefreshRequested,
				Scope: ruleScope.Key(),
				Data:  map[string]interface{}{"field": sr.Rule.DependentField},
			})
		default:
			e.logger.Warn("unknown rule action, rule skipped",
				"action", string(sr.Rule.Action), "dependent", sr.Rule.DependentField)
		}
	}
}

// EvaluateAll seeds the tracker with every field's original value and runs
// the rules once per field with its current value, so a freshly rendered
// tab starts with correct visibility without waiting for user input. The
// tracker bucket for the window is reset, not merged.
func (e *Evaluator) EvaluateAll(ctx context.Context, scope types.Scope) error {
	flds, err := e.provider.Fields(ctx, scope)
	if err != nil {
		return err
	}

	e.tracker.Reset(scope.WindowID)
	for _, f := range flds {
		e.tracker.Seed(scope.WindowID, f.Name, f.Value)
	}

	dependents := e.registry.Dependents(scope.EntityType, scope.TabName)
	key := stateKey(scope)
	e.mu.Lock()
	// Dependents start out cached as visible. A dependent whose trigger
	// lives on a tab that has not rendered yet keeps this optimistic
	// default until that tab's own EvaluateAll or a trigger change runs.
	vis := make(map[string]bool, len(dependents))
	for name := range dependents {
		vis[name] = true
	}
	free := 0
	for _, f := range flds {
		if _, controlled := dependents[f.Name]; !controlled {
			free++
		}
	}
	e.vis[key] = vis
	e.free[key] = free
	e.tabVis[key] = true
	e.mu.Unlock()

	for _, f := range flds {
		e.OnValueChanged(ctx, f, f.Value, scope.TabName)
	}
	return nil
}

// ResetScope drops the rules for one (entityType, tabName) pair and the
// derived visibility state of every window showing it; invoked on every
// tab/window teardown.
func (e *Evaluator) ResetScope(entityType, tabName string) {
	e.registry.ResetScope(entityType, tabName)
	prefix := types.Scope{EntityType: entityType, TabName: tabName}.Key() + "|"
	e.mu.Lock()
	for key := range e.tabVis {
		if strings.HasPrefix(key, prefix) {
			delete(e.vis, key)
			delete(e.free, key)
			delete(e.tabVis, key)
		}
	}
	e.mu.Unlock()
}

// match evaluates one rule against the normalized trigger value.
func (e *Evaluator) match(rule types.DependencyRule, value interface{}, windowID string) (bool, error) {
	if rule.Operator == types.OpExpression {
		env := e.tracker.CurrentValues(windowID)
		env["value"] = value
		return e.cond.Evaluate(rule.ExpectedValues, env)
	}
	return Apply(rule.Operator, value, rule.ExpectedValues)
}

// toggleVisibility applies the dependent's visibility and recomputes the
// derived visibility of its owning tab page: the tab is visible iff at
// least one field inside it is.
func (e *Evaluator) toggleVisibility(ctx context.Context, scope types.Scope, rule types.DependencyRule, show bool) {
	if err := e.provider.SetVisible(ctx, scope, rule.DependentFieldID, show); err != nil {
		e.logger.Warn("visibility toggle failed",
			"field", rule.DependentField, "container", rule.DependentFieldID, "error", err)
		return
	}

	eventType := events.FieldHidden
	if show {
		eventType = events.FieldShown
	}
	e.publish(ctx, events.Event{
		Type:  eventType,
		Scope: scope.Key(),
		Data:  map[string]interface{}{"field": rule.DependentField},
	})

	key := stateKey(scope)
	e.mu.Lock()
	vis, ok := e.vis[key]
	if !ok {
		vis = make(map[string]bool)
		e.vis[key] = vis
		e.tabVis[key] = true
	}
	vis[rule.DependentField] = show

	tabVisible := e.free[key] > 0
	if !tabVisible {
		for _, v := range vis {
			if v {
				tabVisible = true
				break
			}
		}
	}
	changed := e.tabVis[key] != tabVisible
	e.tabVis[key] = tabVisible
	e.mu.Unlock()

	if e.windows == nil {
		return
	}
	if err := e.windows.SetTabVisible(ctx, scope, tabVisible); err != nil {
		e.logger.Warn("tab visibility cascade failed", "tab", scope.TabName, "error", err)
		return
	}
	if changed {
		e.publish(ctx, events.Event{
			Type:  events.TabToggled,
			Scope: key,
			Data:  map[string]interface{}{"tab": scope.TabName, "visible": tabVisible},
		})
	}
}

func (e *Evaluator) publish(ctx context.Context, event events.Event) {
	if e.bus == nil {
		return
	}
	// Best effort; a saturated bus never fails evaluation.
	_ = e.bus.Publish(ctx, event)
}
