package tools

import (
	"sort"
	"sync"

	"trusio/pkg/errors"
)

// Registry stores tools by name for discovery and lookup. Registration
// happens during startup only; Freeze is called before the registry is
// served and later registrations fail.
type Registry struct {
	tools  map[string]Tool
	frozen bool
	mu     sync.RWMutex
}

// NewRegistry constructs an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// Register adds a tool under its name. Duplicate names and post-freeze
// registrations are startup faults.
func (r *Registry) Register(t Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return errors.Wrapf(errors.ErrCatalogFrozen, "cannot register tool %q", t.Name())
	}
	if t.Name() == "" {
		return errors.NewValidationError("name", "tool name must not be empty", "")
	}
	if !t.RiskLevel().Valid() {
		return errors.NewValidationError("risk_level", "invalid risk level", string(t.RiskLevel()))
	}
	if _, exists := r.tools[t.Name()]; exists {
		return errors.Wrapf(errors.ErrAlreadyExists, "tool %q", t.Name())
	}

	r.tools[t.Name()] = t
	return nil
}

// Freeze marks the registry read-only.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

// Get retrieves a tool by name if registered.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// List returns registered tools ordered by name, optionally filtered by
// category. An empty category returns everything.
func (r *Registry) List(category string) []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		if category != "" && t.Category() != category {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Names returns all registered tool names ordered alphabetically.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
