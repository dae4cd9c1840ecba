// Package tracker maintains, per window, the original and current value of
// every tracked field so that "has this changed" can be answered without
// re-reading the whole form.
package tracker

import (
	"sync"

	"github.com/itemgrid/fieldflow/fields"
	"github.com/itemgrid/fieldflow/types"
)

type entry struct {
	original interface{}
	current  interface{}
	dirty    bool
}

// Tracker holds one bucket of tracked values per window. Buckets are fully
// replaced via Reset on every window (re)initialization; values from a
// previously closed window with the same id must never leak into the next.
type Tracker struct {
	mu      sync.RWMutex
	windows map[string]map[string]*entry
	order   map[string][]string
}

// New creates an empty Tracker.
func New() *Tracker {
	return &Tracker{
		windows: make(map[string]map[string]*entry),
		order:   make(map[string][]string),
	}
}

// Reset discards every tracked value for the window.
func (t *Tracker) Reset(windowID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.windows[windowID] = make(map[string]*entry)
	t.order[windowID] = nil
}

// Seed records a field's original value. The original is set once per load
// and only overwritten by Commit after a confirmed save, or by the next
// Reset/Seed cycle.
func (t *Tracker) Seed(windowID, fieldName string, value interface{}) {
	t.mu.Lock()
	defer t.mu.Unlock()
	bucket, ok := t.windows[windowID]
	if !ok {
		bucket = make(map[string]*entry)
		t.windows[windowID] = bucket
	}
	if _, seen := bucket[fieldName]; !seen {
		t.order[windowID] = append(t.order[windowID], fieldName)
	}
	bucket[fieldName] = &entry{original: value, current: value}
}

// Update sets a field's current value and returns whether the field is now
// dirty, i.e. the value differs from the tracked original. Unseeded fields
// are seeded with the new value and are not dirty.
func (t *Tracker) Update(windowID, fieldName string, value interface{}) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	bucket, ok := t.windows[windowID]
	if !ok {
		bucket = make(map[string]*entry)
		t.windows[windowID] = bucket
	}
	e, ok := bucket[fieldName]
	if !ok {
		bucket[fieldName] = &entry{original: value, current: value}
		t.order[windowID] = append(t.order[windowID], fieldName)
		return false
	}
	e.current = value
	e.dirty = !fields.Equal(e.original, value)
	return e.dirty
}

// Original returns the value the field had when the window loaded.
func (t *Tracker) Original(windowID, fieldName string) (interface{}, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if e, ok := t.windows[windowID][fieldName]; ok {
		return e.original, true
	}
	return nil, false
}

// Current returns the field's last recorded value.
func (t *Tracker) Current(windowID, fieldName string) (interface{}, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if e, ok := t.windows[windowID][fieldName]; ok {
		return e.current, true
	}
	return nil, false
}

// IsDirty reports whether any field in the window changed since load.
func (t *Tracker) IsDirty(windowID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, e := range t.windows[windowID] {
		if e.dirty {
			return true
		}
	}
	return false
}

// Changed lists the dirty fields of a window in seed order.
func (t *Tracker) Changed(windowID string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var names []string
	for _, name := range t.order[windowID] {
		if e, ok := t.windows[windowID][name]; ok && e.dirty {
			names = append(names, name)
		}
	}
	return names
}

// Commit folds current values into originals after a confirmed save; every
// field in the window becomes clean.
func (t *Tracker) Commit(windowID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, e := range t.windows[windowID] {
		e.original = e.current
		e.dirty = false
	}
}

// CurrentValues returns the window's current values keyed by field name,
// used as the environment for expression operators.
func (t *Tracker) CurrentValues(windowID string) map[string]interface{} {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]interface{}, len(t.windows[windowID]))
	for name, e := range t.windows[windowID] {
		out[name] = e.current
	}
	return out
}

// Snapshot exports the window's bucket for draft persistence.
func (t *Tracker) Snapshot(windowID string) []types.TrackedValue {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []types.TrackedValue
	for _, name := range t.order[windowID] {
		e, ok := t.windows[windowID][name]
		if !ok {
			continue
		}
		out = append(out, types.TrackedValue{
			WindowID:  windowID,
			FieldName: name,
			Original:  e.original,
			Current:   e.current,
		})
	}
	return out
}

// Restore replaces the window's bucket with a previously exported snapshot.
func (t *Tracker) Restore(windowID string, values []types.TrackedValue) {
	t.Reset(windowID)
	t.mu.Lock()
	defer t.mu.Unlock()
	bucket := t.windows[windowID]
	for _, v := range values {
		bucket[v.FieldName] = &entry{
			original: v.Original,
			current:  v.Current,
			dirty:    !fields.Equal(v.Original, v.Current),
		}
		t.order[windowID] = append(t.order[windowID], v.FieldName)
	}
}
