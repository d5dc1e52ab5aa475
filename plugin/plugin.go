// Package plugin implements the static plugin registry from spec.md
// §6 and DESIGN NOTES §9 ("plugin loading -> static registry +
// build-time feature flags, avoid run-time code loading"). Grounded
// on the registration-table idiom in
// internal/plugins/runtime_registry.go (haasonsaas-nexus) — a
// map[string]entry keyed by plugin identity, populated before use —
// narrowed to build-time Register calls instead of that file's
// runtime *.so loading, which this package deliberately does not do.
package plugin

import (
	"fmt"
	"sync"
)

// Type names the category a plugin Descriptor belongs to.
type Type string

const (
	TypeMemory   Type = "memory"
	TypeToolpack Type = "toolpack"
	TypeProvider Type = "provider"
	TypeOther    Type = "other"
)

// Descriptor is one entry of the plugin registry file (spec.md §6):
// `plugins: [{id, type, impl, enabled, settings}]`.
type Descriptor struct {
	ID       string         `yaml:"id" json:"id"`
	Type     Type           `yaml:"type" json:"type"`
	Impl     string         `yaml:"impl" json:"impl"`
	Enabled  bool           `yaml:"enabled" json:"enabled"`
	Settings map[string]any `yaml:"settings" json:"settings"`
}

// Constructor builds a plugin instance from its Descriptor's settings.
// The returned value is typed per Descriptor.Type by convention: a
// memory.Store for TypeMemory, a tracesvc.LLMClient for TypeProvider,
// and so on — callers type-assert after Resolve.
type Constructor func(settings map[string]any) (any, error)

var (
	registryMu   sync.Mutex
	constructors = map[string]Constructor{}
)

// Register adds a build-time constructor for the given impl identifier
// ("module:symbol" in spec.md's source vocabulary, here simply a
// stable string such as "memory/redis" or "providers/anthropicclient").
// Intended to be called from adapter packages' init() functions, not
// at run time against user-controlled input. Panics on a duplicate
// impl, mirroring the fail-fast behaviour of Go's own
// database/sql.Register and image.RegisterFormat.
func Register(impl string, ctor Constructor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := constructors[impl]; exists {
		panic(fmt.Sprintf("plugin: impl %q already registered", impl))
	}
	constructors[impl] = ctor
}

// lookup returns the constructor registered for impl, if any.
func lookup(impl string) (Constructor, bool) {
	registryMu.Lock()
	defer registryMu.Unlock()
	ctor, ok := constructors[impl]
	return ctor, ok
}

// Sentinel errors returned by Registry.Resolve.
var (
	ErrUnknownID   = fmt.Errorf("plugin: unknown descriptor id")
	ErrDisabled    = fmt.Errorf("plugin: descriptor is disabled")
	ErrUnknownImpl = fmt.Errorf("plugin: impl has no registered constructor")
)

// Registry holds the descriptors loaded from a plugin registry file
// and resolves them against the build-time constructor table.
type Registry struct {
	descriptors map[string]Descriptor
	order       []string
}

// NewRegistry indexes descriptors by ID, preserving their original
// order for ResolveEnabled.
func NewRegistry(descriptors []Descriptor) *Registry {
	r := &Registry{
		descriptors: make(map[string]Descriptor, len(descriptors)),
		order:       make([]string, 0, len(descriptors)),
	}
	for _, d := range descriptors {
		r.descriptors[d.ID] = d
		r.order = append(r.order, d.ID)
	}
	return r
}

// Descriptor returns the descriptor for id, if present.
func (r *Registry) Descriptor(id string) (Descriptor, bool) {
	d, ok := r.descriptors[id]
	return d, ok
}

// Resolve instantiates the plugin named by id: it must exist, be
// enabled, and have a constructor registered for its Impl.
func (r *Registry) Resolve(id string) (any, error) {
	d, ok := r.descriptors[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownID, id)
	}
	if !d.Enabled {
		return nil, fmt.Errorf("%w: %q", ErrDisabled, id)
	}
	ctor, ok := lookup(d.Impl)
	if !ok {
		return nil, fmt.Errorf("%w: %q (descriptor %q)", ErrUnknownImpl, d.Impl, id)
	}
	instance, err := ctor(d.Settings)
	if err != nil {
		return nil, fmt.Errorf("plugin: resolve %q: %w", id, err)
	}
	return instance, nil
}

// ResolveEnabled instantiates every enabled descriptor, in registry
// file order, stopping at the first error.
func (r *Registry) ResolveEnabled() (map[string]any, error) {
	out := make(map[string]any)
	for _, id := range r.order {
		d := r.descriptors[id]
		if !d.Enabled {
			continue
		}
		instance, err := r.Resolve(id)
		if err != nil {
			return nil, err
		}
		out[id] = instance
	}
	return out, nil
}

// ByType returns the IDs of descriptors matching typ, in registry file
// order.
func (r *Registry) ByType(typ Type) []string {
	var ids []string
	for _, id := range r.order {
		if r.descriptors[id].Type == typ {
			ids = append(ids, id)
		}
	}
	return ids
}
