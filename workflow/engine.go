// Package workflow interprets declarative, ordered lists of action
// descriptors for a single user trigger: it collects user parameters once
// per name, binds selected grid rows into the shared parameter map,
// substitutes placeholders and executes each step against external
// collaborators, failing fast on the first fatal error.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/songzhibin97/gkit/generator"

	"github.com/itemgrid/fieldflow/events"
	"github.com/itemgrid/fieldflow/rules"
	"github.com/itemgrid/fieldflow/types"
)

var (
	// ErrUnknownAction indicates an action kind outside the closed set.
	ErrUnknownAction = errors.New("unknown action kind")
	// ErrMissingParameter indicates a required user parameter resolved empty.
	ErrMissingParameter = errors.New("missing required workflow parameter")
	// ErrCollaboratorNotWired indicates an action needs a collaborator the
	// embedder did not supply.
	ErrCollaboratorNotWired = errors.New("collaborator not wired")
)

// RemoteError carries the best human-readable description of a failed
// collaborator call: a server-supplied message is preferred over a
// transport status text, which is preferred over the underlying error.
type RemoteError struct {
	ServerMessage string
	StatusText    string
	Err           error
}

func (e *RemoteError) Error() string {
	if e.ServerMessage != "" {
		return e.ServerMessage
	}
	if e.StatusText != "" {
		return e.StatusText
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "remote call failed"
}

func (e *RemoteError) Unwrap() error { return e.Err }

// Collaborators bundles the external surfaces the engine executes against.
// Only the ones an invocation's action kinds touch need to be non-nil.
type Collaborators struct {
	Fields       types.FieldProvider
	Queries      types.QueryExecutor
	Prompter     types.Prompter
	Windows      types.WindowManager
	Grid         types.GridProvider
	Links        types.LinkAPI
	Integrations types.Integrator
	Documents    types.DocumentService
	Files        types.FileSink
	Notify       types.Notifier
}

// Engine interprets workflows. It is not safe for concurrent Run calls;
// the embedder serializes user-triggered runs (cooperative event model).
type Engine struct {
	collab   Collaborators
	cond     rules.Condition
	bus      *events.Bus
	logger   *slog.Logger
	generate generator.Generator
}

// Option configures an Engine.
type Option func(*Engine)

// WithBus attaches an event bus for run lifecycle events.
func WithBus(bus *events.Bus) Option {
	return func(e *Engine) { e.bus = bus }
}

// WithLogger sets the diagnostic logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithGenerator overrides the run-ID generator.
func WithGenerator(g generator.Generator) Option {
	return func(e *Engine) {
		if g != nil {
			e.generate = g
		}
	}
}

// WithCondition overrides the step-condition evaluator.
func WithCondition(cond rules.Condition) Option {
	return func(e *Engine) {
		if cond != nil {
			e.cond = cond
		}
	}
}

// NewEngine creates a workflow engine over the given collaborators.
func NewEngine(collab Collaborators, opts ...Option) *Engine {
	e := &Engine{
		collab:   collab,
		cond:     rules.NewExprCondition(),
		logger:   slog.Default(),
		generate: generator.NewSnowflake(time.Now().Add(-1*time.Second), 1),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Invocation is one user-triggered workflow run: the ordered action list,
// any pre-resolved parameters, the subject record, and the grid selection.
// Subject and PropertyID are exposed to step conditions as `item` and
// `propertyId`.
type Invocation struct {
	Actions    []types.ActionDescriptor
	Params     map[string]string
	Subject    map[string]interface{}
	PropertyID string
	WindowID   string
	Rows       []types.SelectedRow
	TriggerID  string
}

// runState is the mutable per-run context shared by every step.
type runState struct {
	id         uint64
	params     map[string]string
	rows       []types.SelectedRow
	subject    map[string]interface{}
	propertyID string
	windowID   string
	lastQuery  *types.QueryResult
}

// Run executes the invocation's actions strictly in list order and reports
// whether every step completed. It returns false and stops at the first
// fatal error or the first query step reporting failure; a user cancelling
// a dialog resolves the whole run to false without an error report. Run
// never panics or returns an error: failures surface through the Prompter
// and the event bus.
func (e *Engine) Run(ctx context.Context, inv Invocation) bool {
	id, err := e.generate.NextID()
	if err != nil {
		id = uint64(time.Now().UnixNano())
	}

	st := &runState{
		id:         id,
		params:     make(map[string]string, len(inv.Params)),
		rows:       inv.Rows,
		subject:    inv.Subject,
		propertyID: inv.PropertyID,
		windowID:   inv.WindowID,
	}
	for k, v := range inv.Params {
		st.params[k] = v
	}

	e.publish(ctx, events.Event{
		Type: events.WorkflowStarted, RunID: id,
		Data: map[string]interface{}{"steps": len(inv.Actions), "rows": len(inv.Rows)},
	})

	if err := e.elicit(ctx, st, inv.Actions); err != nil {
		return e.finish(ctx, st, err)
	}

	for i, act := range inv.Actions {
		if act.Condition != "" {
			run, err := e.cond.Evaluate(act.Condition, envOf(st))
			if err != nil {
				return e.finish(ctx, st, fmt.Errorf("step %d condition: %w", i, err))
			}
			if !run {
				e.logger.Debug("step skipped by condition", "run_id", st.id, "step", i, "kind", string(act.Kind))
				continue
			}
		}

		if !act.Kind.Valid() {
			return e.finish(ctx, st, fmt.Errorf("%w: %q", ErrUnknownAction, act.Kind))
		}

		if err := e.execute(ctx, st, act); err != nil {
			return e.finish(ctx, st, fmt.Errorf("step %d (%s): %w", i, act.Kind, err))
		}
	}

	if len(st.rows) > 0 && e.collab.Grid != nil {
		if err := e.collab.Grid.Reload(ctx); err != nil {
			e.logger.Warn("grid reload after workflow failed", "run_id", st.id, "error", err)
		}
	}

	e.publish(ctx, events.Event{Type: events.WorkflowCompleted, RunID: st.id})
	return true
}

// finish reports a run's failure or cancellation and always returns false.
// Side effects of already-completed steps are not rolled back; there is no
// transactional guarantee across steps, only fail-fast.
func (e *Engine) finish(ctx context.Context, st *runState, err error) bool {
	if errors.Is(err, types.ErrCancelled) {
		e.logger.Debug("workflow cancelled by user", "run_id", st.id)
		e.publish(ctx, events.Event{Type: events.WorkflowCancelled, RunID: st.id})
		return false
	}

	msg := humanMessage(err)
	e.logger.Error("workflow failed", "run_id", st.id, "error", err)
	if e.collab.Prompter != nil {
		e.collab.Prompter.ShowError(ctx, msg)
	}
	e.publish(ctx, events.Event{
		Type: events.WorkflowFailed, RunID: st.id,
		Data: map[string]interface{}{"message": msg},
	})
	return false
}

// humanMessage extracts the best user-facing description of an error.
func humanMessage(err error) string {
	var remote *RemoteError
	if errors.As(err, &remote) {
		return remote.Error()
	}
	return err.Error()
}

// envOf builds the step-condition environment: every resolved parameter by
// name, plus the subject record under `item` and the triggering property
// under `propertyId`.
func envOf(st *runState) map[string]interface{} {
	env := make(map[string]interface{}, len(st.params)+2)
	for k, v := range st.params {
		env[k] = v
	}
	if st.subject != nil {
		env["item"] = st.subject
	}
	if st.propertyID != "" {
		env["propertyId"] = st.propertyID
	}
	return env
}

func (e *Engine) publish(ctx context.Context, event events.Event) {
	if e.bus == nil {
		return
	}
	_ = e.bus.Publish(ctx, event)
}
