package agents

import (
	"sort"
	"sync"

	"trusio/internal/tools"
	"trusio/pkg/errors"
	"trusio/pkg/logger"
)

// Catalog holds the agent definitions. Registration happens during startup
// only; Freeze checks referential integrity and makes the catalog immutable,
// so reads afterwards need no locking discipline beyond the map being frozen.
type Catalog struct {
	mu     sync.RWMutex
	agents map[string]*Definition
	frozen bool
	log    *logger.Logger
}

// NewCatalog constructs an empty agent catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		agents: make(map[string]*Definition),
		log:    logger.Get().With("component", "agent_catalog"),
	}
}

// Register adds a definition. Fails after Freeze or on duplicate names.
func (c *Catalog) Register(def *Definition) error {
	if err := def.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.frozen {
		return errors.Wrapf(errors.ErrCatalogFrozen, "register agent %q", def.Name)
	}
	if _, exists := c.agents[def.Name]; exists {
		return errors.Wrapf(errors.ErrAlreadyExists, "agent %q", def.Name)
	}
	c.agents[def.Name] = def
	return nil
}

// Freeze validates every cross-reference and locks the catalog. Startup must
// fail on the first dangling tool or handoff target rather than discover it
// on a live request.
func (c *Catalog) Freeze(registry *tools.Registry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for name, def := range c.agents {
		for _, toolName := range def.Tools {
			if _, ok := registry.Get(toolName); !ok {
				return errors.Wrapf(errors.ErrToolNotFound,
					"agent %q references tool %q", name, toolName)
			}
		}
		for _, target := range def.HandoffTargets {
			if target == name {
				return errors.Wrapf(errors.ErrInvalidAgents,
					"agent %q lists itself as a handoff target", name)
			}
			if _, ok := c.agents[target]; !ok {
				return errors.Wrapf(errors.ErrAgentNotFound,
					"agent %q references handoff target %q", name, target)
			}
		}
	}

	c.frozen = true
	c.log.Infof("agent catalog frozen with %d agents", len(c.agents))
	return nil
}

// Get returns the named definition.
func (c *Catalog) Get(name string) (*Definition, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	def, ok := c.agents[name]
	if !ok {
		return nil, errors.Wrapf(errors.ErrAgentNotFound, "agent %q", name)
	}
	return def, nil
}

// List returns all definitions ordered by priority, then name.
func (c *Catalog) List() []*Definition {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*Definition, 0, len(c.agents))
	for _, def := range c.agents {
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Names returns the registered agent names sorted alphabetically.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.agents))
	for name := range c.agents {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
