package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/itemgrid/fieldflow/types"
)

// MemoryStore is an in-memory implementation of the Store interface.
type MemoryStore struct {
	definitions map[string][]types.ActionDescriptor
	drafts      map[string][]types.TrackedValue
	mu          sync.RWMutex
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		definitions: make(map[string][]types.ActionDescriptor),
		drafts:      make(map[string][]types.TrackedValue),
	}
}

// getItem is a standalone generic lookup helper.
func getItem[T any](ctx context.Context, mu *sync.RWMutex, m map[string][]T, key string, errNotFound error) ([]T, error) {
	return withContext(ctx, func() ([]T, error) {
		mu.RLock()
		defer mu.RUnlock()
		item, ok := m[key]
		if !ok {
			return nil, fmt.Errorf("%w: %s", errNotFound, key)
		}
		out := make([]T, len(item))
		copy(out, item)
		return out, nil
	})
}

// SaveDefinition stores a named action list, replacing any previous one.
func (s *MemoryStore) SaveDefinition(ctx context.Context, name string, actions []types.ActionDescriptor) error {
	return withContextError(ctx, func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		stored := make([]types.ActionDescriptor, len(actions))
		copy(stored, actions)
		s.definitions[name] = stored
		return nil
	})
}

// GetDefinition retrieves a named action list.
func (s *MemoryStore) GetDefinition(ctx context.Context, name string) ([]types.ActionDescriptor, error) {
	return getItem(ctx, &s.mu, s.definitions, name, ErrDefinitionNotFound)
}

// SaveDraft stores a window's tracked-value snapshot.
func (s *MemoryStore) SaveDraft(ctx context.Context, windowID string, values []types.TrackedValue) error {
	return withContextError(ctx, func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		stored := make([]types.TrackedValue, len(values))
		copy(stored, values)
		s.drafts[windowID] = stored
		return nil
	})
}

// GetDraft retrieves a window's tracked-value snapshot.
func (s *MemoryStore) GetDraft(ctx context.Context, windowID string) ([]types.TrackedValue, error) {
	return getItem(ctx, &s.mu, s.drafts, windowID, ErrDraftNotFound)
}

// DeleteDraft removes a window's snapshot.
func (s *MemoryStore) DeleteDraft(ctx context.Context, windowID string) error {
	return withContextError(ctx, func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.drafts, windowID)
		return nil
	})
}
