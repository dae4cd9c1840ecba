package storage

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itemgrid/fieldflow/types"
)

func newTestRedisStore(t *testing.T) *RedisStore {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStoreWithClient(client)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRedisStore(t *testing.T) {
	t.Run("SaveAndGetDefinition", func(t *testing.T) {
		store := newTestRedisStore(t)
		ctx := context.Background()

		actions := []types.ActionDescriptor{
			{
				Kind:   types.KindExecuteQuery,
				Params: map[string]interface{}{"queryId": "5"},
				UserParameters: []types.UserParameter{
					{Name: "qty", Question: "How many?", Kind: types.ParamNumber, Required: true},
				},
			},
		}
		require.NoError(t, store.SaveDefinition(ctx, "create-order", actions))

		got, err := store.GetDefinition(ctx, "create-order")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, types.KindExecuteQuery, got[0].Kind)
		assert.Equal(t, "5", got[0].Params["queryId"])
		assert.Equal(t, "qty", got[0].UserParameters[0].Name)
		assert.True(t, got[0].UserParameters[0].Required)
	})

	t.Run("GetMissingDefinition", func(t *testing.T) {
		store := newTestRedisStore(t)

		_, err := store.GetDefinition(context.Background(), "missing")
		assert.ErrorIs(t, err, ErrDefinitionNotFound)
	})

	t.Run("SaveGetDeleteDraft", func(t *testing.T) {
		store := newTestRedisStore(t)
		ctx := context.Background()

		draft := []types.TrackedValue{
			{WindowID: "w1", FieldName: "country", Original: "US", Current: "CA"},
		}
		require.NoError(t, store.SaveDraft(ctx, "w1", draft))

		got, err := store.GetDraft(ctx, "w1")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "country", got[0].FieldName)
		assert.Equal(t, "CA", got[0].Current)

		require.NoError(t, store.DeleteDraft(ctx, "w1"))
		_, err = store.GetDraft(ctx, "w1")
		assert.ErrorIs(t, err, ErrDraftNotFound)
	})

	t.Run("DraftsAreIsolatedByWindow", func(t *testing.T) {
		store := newTestRedisStore(t)
		ctx := context.Background()

		require.NoError(t, store.SaveDraft(ctx, "w1", []types.TrackedValue{{WindowID: "w1", FieldName: "a"}}))
		require.NoError(t, store.SaveDraft(ctx, "w2", []types.TrackedValue{{WindowID: "w2", FieldName: "b"}}))

		got, err := store.GetDraft(ctx, "w2")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "b", got[0].FieldName)
	})

	t.Run("CancelledContext", func(t *testing.T) {
		store := newTestRedisStore(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := store.SaveDefinition(ctx, "wf", nil)
		assert.Error(t, err)
	})
}
