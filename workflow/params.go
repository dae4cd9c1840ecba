package workflow

import (
	"context"
	"fmt"

	"github.com/spf13/cast"

	"github.com/itemgrid/fieldflow/fields"
	"github.com/itemgrid/fieldflow/types"
)

// elicit resolves every user parameter declared by any action in the list,
// before any action executes. Each parameter name is resolved at most
// once; the resolved value is shared by all subsequent steps and rows.
func (e *Engine) elicit(ctx context.Context, st *runState, actions []types.ActionDescriptor) error {
	var inputs map[string]string

	for _, act := range actions {
		for _, up := range act.UserParameters {
			if up.Name == "" {
				continue
			}
			if _, done := st.params[up.Name]; done {
				continue
			}
			if inputs == nil {
				inputs = selectionInputs(st.rows)
			}
			value, err := e.resolveParameter(ctx, st, up, inputs)
			if err != nil {
				return err
			}
			st.params[up.Name] = value
		}
	}
	return nil
}

// resolveParameter prompts the user for one parameter, optionally fetching
// a remote default value and choice list first. The parameter-backing
// queries receive the selection inputs so the server can tailor its answer
// to the current rows.
func (e *Engine) resolveParameter(ctx context.Context, st *runState, up types.UserParameter, inputs map[string]string) (string, error) {
	if e.collab.Prompter == nil {
		return "", fmt.Errorf("%w: prompter (parameter %q)", ErrCollaboratorNotWired, up.Name)
	}

	defaultValue := up.DefaultValue
	if up.DefaultQueryID != 0 {
		res, err := e.runParamQuery(ctx, up.DefaultQueryID, inputs)
		if err != nil {
			return "", err
		}
		if v := defaultFromResult(res, up.Name); v != "" {
			defaultValue = v
		}
	}

	var choices []string
	if up.ChoiceQueryID != 0 {
		res, err := e.runParamQuery(ctx, up.ChoiceQueryID, inputs)
		if err != nil {
			return "", err
		}
		choices = choicesFromResult(res)
	}

	value, err := e.collab.Prompter.Prompt(ctx, up, choices, defaultValue)
	if err != nil {
		return "", err
	}

	s := fields.Stringify(value)
	if s == "" && up.Required {
		return "", fmt.Errorf("%w: %q", ErrMissingParameter, up.Name)
	}
	return s, nil
}

func (e *Engine) runParamQuery(ctx context.Context, queryID int, inputs map[string]string) (types.QueryResult, error) {
	if e.collab.Queries == nil {
		return types.QueryResult{}, fmt.Errorf("%w: query executor (query %d)", ErrCollaboratorNotWired, queryID)
	}
	res, err := e.collab.Queries.Execute(ctx, queryID, inputs)
	if err != nil {
		return types.QueryResult{}, &RemoteError{Err: err}
	}
	if !res.Success {
		return types.QueryResult{}, &RemoteError{
			ServerMessage: res.Message,
			StatusText:    fmt.Sprintf("parameter query %d failed", queryID),
		}
	}
	return res, nil
}

// defaultFromResult picks a default value out of a query result: the entry
// named after the parameter wins, then a generic "value" entry, then the
// textual result.
func defaultFromResult(res types.QueryResult, paramName string) string {
	if v, ok := res.Data[paramName]; ok {
		return fields.Stringify(v)
	}
	if v, ok := res.Data["value"]; ok {
		return fields.Stringify(v)
	}
	return res.Text
}

func choicesFromResult(res types.QueryResult) []string {
	if v, ok := res.Data["options"]; ok {
		if opts, err := cast.ToStringSliceE(v); err == nil {
			return opts
		}
	}
	return nil
}
