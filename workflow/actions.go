package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"

	"github.com/itemgrid/fieldflow/fields"
	"github.com/itemgrid/fieldflow/types"
)

// decodeParams maps an action's raw parameter map onto its kind-specific
// struct. Weak typing tolerates strings where the configuration source
// (YAML, JSON, hand-written maps) was loose about scalar types.
func decodeParams[T any](raw map[string]interface{}) (T, error) {
	var out T
	if len(raw) == 0 {
		return out, nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return out, err
	}
	if err := dec.Decode(raw); err != nil {
		return out, fmt.Errorf("invalid action params: %w", err)
	}
	return out, nil
}

type openURLParams struct {
	URL      string `mapstructure:"url"`
	Embedded bool   `mapstructure:"embedded"`
}

type queryParams struct {
	QueryID int `mapstructure:"queryId"`
}

type openWindowParams struct {
	ItemID   string `mapstructure:"itemId"`
	ItemType string `mapstructure:"itemType"`
	Title    string `mapstructure:"title"`
}

type textFileParams struct {
	QueryID  int    `mapstructure:"queryId"`
	Filename string `mapstructure:"filename"`
}

type emailSpec struct {
	To                string   `mapstructure:"to"`
	Subject           string   `mapstructure:"subject"`
	Body              string   `mapstructure:"body"`
	AttachTemplateIDs []string `mapstructure:"attachTemplateIds"`
}

type generateFileParams struct {
	TemplateIDs []string   `mapstructure:"templateIds"`
	ExportPDF   bool       `mapstructure:"exportPdf"`
	Email       *emailSpec `mapstructure:"email"`
}

type updateLinkParams struct {
	TargetID string `mapstructure:"targetId"`
	LinkType string `mapstructure:"linkType"`
}

type apiCallParams struct {
	Name string `mapstructure:"name"`
}

type pusherParams struct {
	Channel string `mapstructure:"channel"`
	Event   string `mapstructure:"event"`
	Message string `mapstructure:"message"`
}

type confirmParams struct {
	Message string `mapstructure:"message"`
}

// execute runs one action descriptor. Per-row kinds execute once per
// selected row with that row's fields bound; combined kinds execute once
// over the merged selection.
func (e *Engine) execute(ctx context.Context, st *runState, act types.ActionDescriptor) error {
	switch act.Kind {
	case types.KindOpenURL:
		return e.openURL(ctx, st, act, false)
	case types.KindOpenURLOnce:
		return e.openURL(ctx, st, act, true)
	case types.KindExecuteQuery:
		return e.executeQuery(ctx, st, act, false)
	case types.KindExecuteQueryOnce:
		return e.executeQuery(ctx, st, act, true)
	case types.KindOpenWindow:
		return e.openWindow(ctx, st, act)
	case types.KindGenerateTextFile:
		return e.generateTextFile(ctx, st, act)
	case types.KindGenerateFile:
		return e.generateFile(ctx, st, act)
	case types.KindUpdateItemLink:
		return e.updateItemLink(ctx, st, act)
	case types.KindRefreshItem:
		if e.collab.Windows == nil {
			return fmt.Errorf("%w: window manager", ErrCollaboratorNotWired)
		}
		return e.collab.Windows.ReloadWindow(ctx, st.windowID)
	case types.KindRefreshAllWindows:
		if e.collab.Windows == nil {
			return fmt.Errorf("%w: window manager", ErrCollaboratorNotWired)
		}
		return e.collab.Windows.ReloadAll(ctx)
	case types.KindAPICall:
		return e.apiCall(ctx, st, act)
	case types.KindPusher:
		return e.pusher(ctx, st, act)
	case types.KindConfirmDialog:
		return e.confirmDialog(ctx, st, act)
	case types.KindCustom:
		// Marker only: the side effect already happened via externally
		// injected code.
		e.logger.Debug("custom action marker", "run_id", st.id)
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownAction, act.Kind)
}

// openURL resolves and opens the URL template; with multiple selected rows
// the non-once form opens one URL per row.
func (e *Engine) openURL(ctx context.Context, st *runState, act types.ActionDescriptor, once bool) error {
	if e.collab.Windows == nil {
		return fmt.Errorf("%w: window manager", ErrCollaboratorNotWired)
	}
	p, err := decodeParams[openURLParams](act.Params)
	if err != nil {
		return err
	}
	if p.URL == "" {
		return fmt.Errorf("openUrl: url template is required")
	}

	if once || len(st.rows) == 0 {
		if once {
			bindCombined(st.params, st.rows)
		}
		return e.collab.Windows.OpenURL(ctx, st.substitute(p.URL, true), p.Embedded)
	}

	for _, row := range st.rows {
		bindRow(st.params, row)
		if err := e.collab.Windows.OpenURL(ctx, st.substitute(p.URL, true), p.Embedded); err != nil {
			return err
		}
	}
	return nil
}

// executeQuery invokes the stored query; per-row in the non-once form,
// exactly once over the combined selection otherwise. A server-reported
// failure aborts the remaining steps.
func (e *Engine) executeQuery(ctx context.Context, st *runState, act types.ActionDescriptor, once bool) error {
	if e.collab.Queries == nil {
		return fmt.Errorf("%w: query executor", ErrCollaboratorNotWired)
	}
	p, err := decodeParams[queryParams](act.Params)
	if err != nil {
		return err
	}

	if once || len(st.rows) == 0 {
		if once {
			bindCombined(st.params, st.rows)
		}
		return e.runQuery(ctx, st, p.QueryID)
	}

	for _, row := range st.rows {
		bindRow(st.params, row)
		if err := e.runQuery(ctx, st, p.QueryID); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) runQuery(ctx context.Context, st *runState, queryID int) error {
	res, err := e.collab.Queries.Execute(ctx, queryID, cloneParams(st.params))
	if err != nil {
		return &RemoteError{Err: err}
	}
	if !res.Success {
		return &RemoteError{
			ServerMessage: res.Message,
			StatusText:    fmt.Sprintf("query %d failed", queryID),
		}
	}
	st.lastQuery = &res
	return nil
}

// openWindow opens a linked record, recognizing ids produced by a prior
// query step via the reserved {itemId} token.
func (e *Engine) openWindow(ctx context.Context, st *runState, act types.ActionDescriptor) error {
	if e.collab.Windows == nil {
		return fmt.Errorf("%w: window manager", ErrCollaboratorNotWired)
	}
	p, err := decodeParams[openWindowParams](act.Params)
	if err != nil {
		return err
	}

	expr := p.ItemID
	if expr == "" {
		expr = "{" + tokenItemID + "}"
	}
	itemID := st.substitute(expr, true)
	if itemID == "" || strings.Contains(itemID, "{") {
		return fmt.Errorf("openWindow: no item id resolved from %q", expr)
	}

	return e.collab.Windows.OpenWindow(ctx, types.WindowRef{
		ItemID:   itemID,
		ItemType: st.substitute(p.ItemType, false),
		Title:    st.substitute(p.Title, false),
	})
}

// generateTextFile triggers a client-side download of a query's textual
// result.
func (e *Engine) generateTextFile(ctx context.Context, st *runState, act types.ActionDescriptor) error {
	if e.collab.Queries == nil {
		return fmt.Errorf("%w: query executor", ErrCollaboratorNotWired)
	}
	if e.collab.Files == nil {
		return fmt.Errorf("%w: file sink", ErrCollaboratorNotWired)
	}
	p, err := decodeParams[textFileParams](act.Params)
	if err != nil {
		return err
	}

	res, err := e.collab.Queries.Execute(ctx, p.QueryID, cloneParams(st.params))
	if err != nil {
		return &RemoteError{Err: err}
	}
	if !res.Success {
		return &RemoteError{ServerMessage: res.Message, StatusText: fmt.Sprintf("query %d failed", p.QueryID)}
	}
	st.lastQuery = &res

	name := st.substitute(p.Filename, false)
	if name == "" {
		name = "export.txt"
	}
	return e.collab.Files.Download(ctx, name, []byte(res.Text))
}

// generateFile renders one or more server-side templates into a preview
// surface, optionally followed by PDF export or e-mail dispatch with
// additionally rendered attachments.
func (e *Engine) generateFile(ctx context.Context, st *runState, act types.ActionDescriptor) error {
	if e.collab.Documents == nil {
		return fmt.Errorf("%w: document service", ErrCollaboratorNotWired)
	}
	p, err := decodeParams[generateFileParams](act.Params)
	if err != nil {
		return err
	}
	if len(p.TemplateIDs) == 0 {
		return fmt.Errorf("generateFile: at least one template id is required")
	}

	params := cloneParams(st.params)
	var rendered []string
	for _, tpl := range p.TemplateIDs {
		ref, err := e.collab.Documents.Render(ctx, tpl, params)
		if err != nil {
			return &RemoteError{Err: err}
		}
		rendered = append(rendered, ref)
		if p.ExportPDF {
			if err := e.collab.Documents.ExportPDF(ctx, ref); err != nil {
				return &RemoteError{Err: err}
			}
		}
	}

	if p.Email == nil {
		return nil
	}

	attachments := rendered
	for _, tpl := range p.Email.AttachTemplateIDs {
		ref, err := e.collab.Documents.Render(ctx, tpl, params)
		if err != nil {
			return &RemoteError{Err: err}
		}
		attachments = append(attachments, ref)
	}

	to := splitRecipients(st.substitute(p.Email.To, false))
	if len(to) == 0 {
		return fmt.Errorf("generateFile: no e-mail recipients resolved")
	}
	return e.collab.Documents.SendEmail(ctx, types.Email{
		To:          to,
		Subject:     st.substitute(p.Email.Subject, false),
		Body:        st.substitute(p.Email.Body, false),
		Attachments: attachments,
	})
}

// updateItemLink repoints each selected row's link to a new target.
func (e *Engine) updateItemLink(ctx context.Context, st *runState, act types.ActionDescriptor) error {
	if e.collab.Links == nil {
		return fmt.Errorf("%w: link api", ErrCollaboratorNotWired)
	}
	p, err := decodeParams[updateLinkParams](act.Params)
	if err != nil {
		return err
	}
	if len(st.rows) == 0 {
		return fmt.Errorf("updateItemLink: no rows selected")
	}

	for _, row := range st.rows {
		bindRow(st.params, row)
		linkID, ok := fields.LookupLinkID(row.Fields)
		if !ok {
			return fmt.Errorf("updateItemLink: selected row has no link id")
		}
		target := st.substitute(p.TargetID, true)
		if target == "" || strings.Contains(target, "{") {
			return fmt.Errorf("updateItemLink: no target id resolved from %q", p.TargetID)
		}
		if err := e.collab.Links.UpdateLink(ctx, linkID, target, p.LinkType); err != nil {
			return &RemoteError{Err: err}
		}
	}
	return nil
}

func (e *Engine) apiCall(ctx context.Context, st *runState, act types.ActionDescriptor) error {
	if e.collab.Integrations == nil {
		return fmt.Errorf("%w: integrator", ErrCollaboratorNotWired)
	}
	p, err := decodeParams[apiCallParams](act.Params)
	if err != nil {
		return err
	}
	if p.Name == "" {
		return fmt.Errorf("apiCall: integration name is required")
	}
	if err := e.collab.Integrations.Call(ctx, p.Name, cloneParams(st.params)); err != nil {
		return &RemoteError{Err: err}
	}
	return nil
}

func (e *Engine) pusher(ctx context.Context, st *runState, act types.ActionDescriptor) error {
	if e.collab.Notify == nil {
		return fmt.Errorf("%w: notifier", ErrCollaboratorNotWired)
	}
	p, err := decodeParams[pusherParams](act.Params)
	if err != nil {
		return err
	}
	return e.collab.Notify.Push(ctx, types.Notification{
		ID:      uuid.NewString(),
		Channel: st.substitute(p.Channel, false),
		Event:   p.Event,
		Message: st.substitute(p.Message, false),
	})
}

// confirmDialog is a pure user gate: declining aborts the remainder of the
// workflow as a clean cancellation, not a failure.
func (e *Engine) confirmDialog(ctx context.Context, st *runState, act types.ActionDescriptor) error {
	if e.collab.Prompter == nil {
		return fmt.Errorf("%w: prompter", ErrCollaboratorNotWired)
	}
	p, err := decodeParams[confirmParams](act.Params)
	if err != nil {
		return err
	}
	ok, err := e.collab.Prompter.Confirm(ctx, st.substitute(p.Message, false))
	if err != nil {
		return err
	}
	if !ok {
		return types.ErrCancelled
	}
	return nil
}

func cloneParams(params map[string]string) map[string]string {
	out := make(map[string]string, len(params))
	for k, v := range params {
		out[k] = v
	}
	return out
}

func splitRecipients(raw string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ';' }) {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
