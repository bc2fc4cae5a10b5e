package tool

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/agentstudio/logging"
	"github.com/hupe1980/agentstudio/model"
)

var (
	// ErrDuplicateTool is returned when a tool id is registered twice.
	ErrDuplicateTool = errors.New("tool already registered")
	// ErrToolIDEmpty is returned when a factory produces a tool without id.
	ErrToolIDEmpty = errors.New("tool id is empty")
	// ErrNilFactory is returned when registering a nil factory.
	ErrNilFactory = errors.New("tool factory is nil")
	// ErrToolNotFound is returned by mutating calls on unknown ids.
	ErrToolNotFound = errors.New("tool not found")
	// ErrInvalidParameter is returned when a descriptor declares a malformed parameter.
	ErrInvalidParameter = errors.New("invalid parameter spec")
)

// RegistryOptions configure a Registry.
type RegistryOptions struct {
	Logger logging.Logger
}

type entry struct {
	factory    Factory
	descriptor Descriptor
	disabled   atomic.Bool
	uses       atomic.Int64
}

func (e *entry) snapshot() Descriptor {
	d := e.descriptor.clone()
	d.Disabled = e.disabled.Load()
	d.UseCount = e.uses.Load()
	return d
}

// Registry is a concurrency safe catalog mapping tool ids to factories.
// Iteration follows registration order.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
	order   []string
	logger  logging.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(optFns ...func(o *RegistryOptions)) *Registry {
	opts := RegistryOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &Registry{entries: map[string]*entry{}, logger: opts.Logger}
}

// Register adds a factory. The tool id is taken from the descriptor of a
// default (nil config) instance.
func (r *Registry) Register(f Factory) error {
	if f == nil {
		return ErrNilFactory
	}
	t := f(nil)
	if t == nil {
		return ErrNilFactory
	}
	d := t.Descriptor()
	if d.ID == "" {
		return ErrToolIDEmpty
	}
	if d.Name == "" {
		d.Name = d.ID
	}
	if d.Version == "" {
		d.Version = DefaultVersion
	}
	for _, p := range d.Parameters {
		if p.Name == "" || !p.Type.Valid() {
			return fmt.Errorf("%w: tool %s parameter %q type %q", ErrInvalidParameter, d.ID, p.Name, p.Type)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[d.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, d.ID)
	}

	e := &entry{factory: f, descriptor: d.clone()}
	e.disabled.Store(d.Disabled)
	r.entries[d.ID] = e
	r.order = append(r.order, d.ID)

	r.logger.Debug("tool.registered", "tool_id", d.ID, "category", d.Category)

	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(f Factory) {
	if err := r.Register(f); err != nil {
		panic(err)
	}
}

// Unregister removes a tool. Removing an unknown id is a no-op.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[id]; !ok {
		return
	}
	delete(r.entries, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i:i], r.order[i+1:]...)
			break
		}
	}

	r.logger.Debug("tool.unregistered", "tool_id", id)
}

// Factory returns the factory registered under id.
func (r *Registry) Factory(id string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[id]
	if !ok {
		return nil, false
	}
	return e.factory, true
}

// Instantiate builds a configured tool. Unknown ids yield (nil, false).
func (r *Registry) Instantiate(id string, cfg Config) (Tool, bool) {
	f, ok := r.Factory(id)
	if !ok {
		return nil, false
	}
	t := f(cfg)
	if t == nil {
		return nil, false
	}
	return t, true
}

// Descriptor returns the metadata of a registered tool.
func (r *Registry) Descriptor(id string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[id]
	if !ok {
		return Descriptor{}, false
	}
	return e.snapshot(), true
}

// Has reports whether id is registered.
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.entries[id]
	return ok
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.entries)
}

// SetEnabled switches a tool on or off.
func (r *Registry) SetEnabled(id string, enabled bool) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrToolNotFound, id)
	}
	e.disabled.Store(!enabled)
	return nil
}

// Filter narrows List results.
type Filter struct {
	// Category keeps only tools of this category when non-empty.
	Category string
	// IncludeDisabled also returns disabled tools.
	IncludeDisabled bool
}

// List returns descriptors in registration order. By default only enabled
// tools are listed.
func (r *Registry) List(filter Filter) []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Descriptor, 0, len(r.order))
	for _, id := range r.order {
		d := r.entries[id].snapshot()
		if filter.Category != "" && d.Category != filter.Category {
			continue
		}
		if !filter.IncludeDisabled && d.Disabled {
			continue
		}
		out = append(out, d)
	}
	return out
}

// ToolDefinitions exports function-calling schemas. With no ids every
// enabled tool is exported in registration order; otherwise the given ids
// are exported in the given order and unknown ids are skipped.
func (r *Registry) ToolDefinitions(ids ...string) []model.ToolDefinition {
	if len(ids) == 0 {
		descs := r.List(Filter{})
		defs := make([]model.ToolDefinition, 0, len(descs))
		for _, d := range descs {
			defs = append(defs, d.ToolDefinition())
		}
		return defs
	}

	defs := make([]model.ToolDefinition, 0, len(ids))
	for _, id := range ids {
		if d, ok := r.Descriptor(id); ok {
			defs = append(defs, d.ToolDefinition())
		}
	}
	return defs
}

// Stats summarises the registry contents.
type Stats struct {
	Total      int            `json:"total_tools"`
	Enabled    int            `json:"enabled_tools"`
	Disabled   int            `json:"disabled_tools"`
	Categories map[string]int `json:"categories"`
	ToolIDs    []string       `json:"tool_ids"`
}

// Stats returns counts per state and category.
func (r *Registry) Stats() Stats {
	descs := r.List(Filter{IncludeDisabled: true})
	s := Stats{Total: len(descs), Categories: map[string]int{}, ToolIDs: make([]string, 0, len(descs))}
	for _, d := range descs {
		if d.Disabled {
			s.Disabled++
		} else {
			s.Enabled++
		}
		s.Categories[d.Category]++
		s.ToolIDs = append(s.ToolIDs, d.ID)
	}
	sort.Strings(s.ToolIDs)
	return s
}

func (r *Registry) recordUse(id string) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if e, ok := r.entries[id]; ok {
		e.uses.Add(1)
	}
}
