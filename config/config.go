// Package config loads declarative rule sets and workflow definitions
// from YAML, so the behavior of a form can ship as data next to the
// entity metadata instead of being wired in code.
package config

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/itemgrid/fieldflow/rules"
	"github.com/itemgrid/fieldflow/storage"
	"github.com/itemgrid/fieldflow/types"
)

// File is one declarative behavior definition file.
type File struct {
	Entities  []Entity   `yaml:"entities"`
	Workflows []Workflow `yaml:"workflows"`
}

// Entity groups per-tab rule sets of one entity type.
type Entity struct {
	EntityType string `yaml:"entityType"`
	Tabs       []Tab  `yaml:"tabs"`
}

// Tab holds the depends-on declarations of one tab page.
type Tab struct {
	Name  string                 `yaml:"name"`
	Rules []types.DependencyRule `yaml:"rules"`
}

// Workflow is a named ordered action list.
type Workflow struct {
	Name    string                   `yaml:"name"`
	Actions []types.ActionDescriptor `yaml:"actions"`
}

// Load reads and parses a definition file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse unmarshals and validates a definition document.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate rejects operators, rule actions and action kinds outside their
// closed sets, and duplicate workflow names.
func (f *File) Validate() error {
	for _, e := range f.Entities {
		if e.EntityType == "" {
			return fmt.Errorf("entity with empty entityType")
		}
		for _, tab := range e.Tabs {
			for _, r := range tab.Rules {
				if r.TriggerField == "" {
					return fmt.Errorf("%s/%s: rule without trigger", e.EntityType, tab.Name)
				}
				if !r.Operator.Valid() {
					return fmt.Errorf("%s/%s: unknown operator %q", e.EntityType, tab.Name, r.Operator)
				}
				if r.Action != types.ActionToggleVisibility && r.Action != types.ActionRefresh {
					return fmt.Errorf("%s/%s: unknown rule action %q", e.EntityType, tab.Name, r.Action)
				}
			}
		}
	}

	names := make(map[string]bool)
	for _, wf := range f.Workflows {
		if wf.Name == "" {
			return fmt.Errorf("workflow without name")
		}
		if names[wf.Name] {
			return fmt.Errorf("duplicate workflow name %q", wf.Name)
		}
		names[wf.Name] = true
		for i, act := range wf.Actions {
			if !act.Kind.Valid() {
				return fmt.Errorf("workflow %q step %d: unknown action kind %q", wf.Name, i, act.Kind)
			}
		}
	}
	return nil
}

// Apply registers every entity's tab rule sets with the registry. Each
// (entityType, tab) index is fully replaced, matching the registration
// contract.
func (f *File) Apply(registry *rules.Registry) {
	for _, e := range f.Entities {
		for _, tab := range e.Tabs {
			registry.Register(types.Scope{EntityType: e.EntityType, TabName: tab.Name}, tab.Rules)
		}
	}
}

// StoreDefinitions saves every named workflow into the store.
func (f *File) StoreDefinitions(ctx context.Context, store storage.Store) error {
	for _, wf := range f.Workflows {
		if err := store.SaveDefinition(ctx, wf.Name, wf.Actions); err != nil {
			return fmt.Errorf("store workflow %q: %w", wf.Name, err)
		}
	}
	return nil
}
