package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/itemgrid/fieldflow/types"
)

func sampleActions() []types.ActionDescriptor {
	return []types.ActionDescriptor{
		{Kind: types.KindExecuteQuery, Params: map[string]interface{}{"queryId": 5}},
		{Kind: types.KindOpenWindow, Params: map[string]interface{}{"itemId": "{itemId}"}},
	}
}

func sampleDraft(windowID string) []types.TrackedValue {
	return []types.TrackedValue{
		{WindowID: windowID, FieldName: "country", Original: "US", Current: "CA"},
		{WindowID: windowID, FieldName: "qty", Original: 1, Current: 3},
	}
}

func TestMemoryStore(t *testing.T) {
	t.Run("NewMemoryStore", func(t *testing.T) {
		store := NewMemoryStore()
		assert.NotNil(t, store)
		assert.Empty(t, store.definitions)
		assert.Empty(t, store.drafts)
	})

	t.Run("SaveAndGetDefinition", func(t *testing.T) {
		store := NewMemoryStore()
		ctx := context.Background()

		actions := sampleActions()
		assert.NoError(t, store.SaveDefinition(ctx, "create-order", actions))

		got, err := store.GetDefinition(ctx, "create-order")
		assert.NoError(t, err)
		assert.Equal(t, actions, got)

		_, err = store.GetDefinition(ctx, "missing")
		assert.ErrorIs(t, err, ErrDefinitionNotFound)
	})

	t.Run("DefinitionReplacedOnSave", func(t *testing.T) {
		store := NewMemoryStore()
		ctx := context.Background()

		assert.NoError(t, store.SaveDefinition(ctx, "wf", sampleActions()))
		assert.NoError(t, store.SaveDefinition(ctx, "wf", []types.ActionDescriptor{{Kind: types.KindCustom}}))

		got, err := store.GetDefinition(ctx, "wf")
		assert.NoError(t, err)
		assert.Len(t, got, 1)
		assert.Equal(t, types.KindCustom, got[0].Kind)
	})

	t.Run("GetReturnsCopy", func(t *testing.T) {
		store := NewMemoryStore()
		ctx := context.Background()

		assert.NoError(t, store.SaveDefinition(ctx, "wf", sampleActions()))

		got, err := store.GetDefinition(ctx, "wf")
		assert.NoError(t, err)
		got[0].Kind = types.KindPusher

		again, err := store.GetDefinition(ctx, "wf")
		assert.NoError(t, err)
		assert.Equal(t, types.KindExecuteQuery, again[0].Kind)
	})

	t.Run("SaveGetDeleteDraft", func(t *testing.T) {
		store := NewMemoryStore()
		ctx := context.Background()

		draft := sampleDraft("w1")
		assert.NoError(t, store.SaveDraft(ctx, "w1", draft))

		got, err := store.GetDraft(ctx, "w1")
		assert.NoError(t, err)
		assert.Equal(t, draft, got)

		assert.NoError(t, store.DeleteDraft(ctx, "w1"))
		_, err = store.GetDraft(ctx, "w1")
		assert.ErrorIs(t, err, ErrDraftNotFound)

		// Deleting a missing draft is a no-op.
		assert.NoError(t, store.DeleteDraft(ctx, "w1"))
	})

	t.Run("CancelledContext", func(t *testing.T) {
		store := NewMemoryStore()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		assert.Error(t, store.SaveDefinition(ctx, "wf", sampleActions()))
		_, err := store.GetDefinition(ctx, "wf")
		assert.Error(t, err)
	})
}
