// Package spawn implements §4.4: serializing and applying entity
// materialization across peers, keyed by a stable type-name-to-factory
// table populated at process start (§9: "Runtime type lookup by fully
// qualified name ... requires a type registry. Replace with a small
// central map from stable type-name strings to entity factory
// closures.").
package spawn

import (
	"reflect"

	"github.com/SilvaMendes/netrpc/entity"
)

// Factory constructs a fresh, uninitialized entity value of one
// registered type. entity.NewProxy wires its identity afterward.
type Factory func() entity.Entity

// Registry is the process-wide type-name-to-factory table every peer
// populates identically at startup, so a spawn frame naming a type one
// peer registered can be materialized by any other.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates an empty type registry.
func NewRegistry() *Registry {
	return &Registry{factories: map[string]Factory{}}
}

// Register associates name with factory. Call once per entity type
// during startup, identically on every peer.
func (r *Registry) Register(name string, factory Factory) {
	r.factories[name] = factory
}

// Lookup resolves name to its factory, if registered.
func (r *Registry) Lookup(name string) (Factory, bool) {
	f, ok := r.factories[name]
	return f, ok
}

// TypeName derives the stable wire type name for t: its package path and
// type name, pointer indirection stripped. This stands in for the
// source's fully-qualified .NET type name, with the proxy wrapper's
// prefix already absent since Go has no generated proxy subclass (§9).
func TypeName(t reflect.Type) string {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.PkgPath() + "." + t.Name()
}
