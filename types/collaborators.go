package types

import (
	"context"
	"errors"
)

// The engines consume and produce only these contracts; widget rendering,
// transport and window chrome live entirely behind them.

// ErrCancelled signals that the user dismissed a dialog. Cancellation is
// not an error condition: the engines treat it as a clean, silent abort.
var ErrCancelled = errors.New("cancelled by user")

// FieldProvider reads and mutates fields regardless of which underlying
// widget holds them.
type FieldProvider interface {
	// Value returns the current typed value of the named field.
	Value(ctx context.Context, scope Scope, fieldName string) (interface{}, error)

	// Fields lists every field currently rendered in the scope.
	Fields(ctx context.Context, scope Scope) ([]Field, error)

	// SetVisible toggles the visual container identified by containerID.
	SetVisible(ctx context.Context, scope Scope, containerID string, visible bool) error

	// RefreshDataSource asks the named field's widget to reload its
	// remote data source.
	RefreshDataSource(ctx context.Context, scope Scope, fieldName string) error
}

// QueryExecutor invokes stored, server-side parametrized queries.
type QueryExecutor interface {
	Execute(ctx context.Context, queryID int, params map[string]string) (QueryResult, error)
}

// Prompter renders modal dialogs. Prompt must return ErrCancelled (or an
// error wrapping it) when the user dismisses the dialog.
type Prompter interface {
	Prompt(ctx context.Context, param UserParameter, choices []string, defaultValue string) (interface{}, error)
	Confirm(ctx context.Context, message string) (bool, error)
	ShowError(ctx context.Context, message string)
}

// WindowManager opens records, reloads surfaces and reports the active tab
// when the caller cannot supply it.
type WindowManager interface {
	OpenWindow(ctx context.Context, ref WindowRef) error
	OpenURL(ctx context.Context, url string, embedded bool) error
	ReloadWindow(ctx context.Context, windowID string) error
	ReloadAll(ctx context.Context) error
	ActiveTab(windowID string) (string, bool)
	SetTabVisible(ctx context.Context, scope Scope, visible bool) error
}

// GridProvider supplies grid selections and reloads the grid after a
// workflow completes.
type GridProvider interface {
	SelectedRows(ctx context.Context) ([]SelectedRow, error)
	Reload(ctx context.Context) error
}

// LinkAPI repoints an existing relationship to a new target record.
type LinkAPI interface {
	UpdateLink(ctx context.Context, linkID, targetID, linkType string) error
}

// Integrator delegates to an externally configured integration call.
type Integrator interface {
	Call(ctx context.Context, name string, params map[string]string) error
}

// DocumentService renders server-side templates into a preview surface and
// handles PDF export and e-mail dispatch of generated documents.
type DocumentService interface {
	Render(ctx context.Context, templateID string, params map[string]string) (string, error)
	ExportPDF(ctx context.Context, documentRef string) error
	SendEmail(ctx context.Context, mail Email) error
}

// FileSink receives client-side downloads.
type FileSink interface {
	Download(ctx context.Context, filename string, content []byte) error
}

// Notifier pushes near-real-time notifications to other users.
type Notifier interface {
	Push(ctx context.Context, n Notification) error
}
