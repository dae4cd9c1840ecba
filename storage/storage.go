// Package storage persists named workflow definitions and unsaved-draft
// snapshots for embedders that want configured workflows and crash
// recovery of edits. The engines never call a Store themselves; it is a
// sidecar the embedding application wires in.
package storage

import (
	"context"
	"errors"

	"github.com/itemgrid/fieldflow/types"
)

var (
	// ErrDefinitionNotFound is returned for an unknown workflow name.
	ErrDefinitionNotFound = errors.New("workflow definition not found")
	// ErrDraftNotFound is returned for a window without a saved draft.
	ErrDraftNotFound = errors.New("draft not found")
)

// Store persists workflow definitions keyed by name and tracked-value
// drafts keyed by window id.
type Store interface {
	// SaveDefinition stores a named ordered action list, replacing any
	// previous definition under the same name.
	SaveDefinition(ctx context.Context, name string, actions []types.ActionDescriptor) error

	// GetDefinition retrieves a named action list.
	GetDefinition(ctx context.Context, name string) ([]types.ActionDescriptor, error)

	// SaveDraft stores a window's tracked-value snapshot.
	SaveDraft(ctx context.Context, windowID string, values []types.TrackedValue) error

	// GetDraft retrieves a window's tracked-value snapshot.
	GetDraft(ctx context.Context, windowID string) ([]types.TrackedValue, error)

	// DeleteDraft removes a window's snapshot after a confirmed save.
	DeleteDraft(ctx context.Context, windowID string) error
}

// withContext is a standalone generic helper wrapping a lookup in context
// cancellation handling.
func withContext[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	default:
		return fn()
	}
}

// withContextError handles context cancellation for operations that only
// return an error.
func withContextError(ctx context.Context, fn func() error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return fn()
	}
}
