// Package registry holds the process-wide map from network-object-id to
// entity instance, plus the per-type cache of RPC method descriptors
// every entity's type must pass validation against before first use
// (§4.2).
package registry

import (
	"reflect"

	"github.com/SilvaMendes/netrpc/netrpcerr"
	"github.com/SilvaMendes/netrpc/rpcattr"
)

// Descriptor is the cached metadata for one RPC method: its name,
// declared parameter types in order, and the attribute that tagged it.
type Descriptor struct {
	Name       string
	ParamTypes []reflect.Type
	Attr       rpcattr.Attr
}

// Handle is the minimal surface the registry needs from a networked
// entity: its stable network-object-id and a reflect.Type to key the
// descriptor cache by. entity.Base implements this.
type Handle interface {
	NetworkObjectID() uint32
	EntityType() reflect.Type
}

// Registry maps network-object-id to entity and caches each entity
// type's RPC descriptor table. The driver owns exactly one Registry;
// per §5 it is mutated only on the driver thread and needs no locking.
type Registry struct {
	entities    map[uint32]Handle
	descriptors map[reflect.Type][]Descriptor
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		entities:    map[uint32]Handle{},
		descriptors: map[reflect.Type][]Descriptor{},
	}
}

// Get looks up the entity bound to id, if any.
func (r *Registry) Get(id uint32) (Handle, bool) {
	e, ok := r.entities[id]
	return e, ok
}

// All returns every registered entity, in no particular order.
func (r *Registry) All() []Handle {
	out := make([]Handle, 0, len(r.entities))
	for _, e := range r.entities {
		out = append(out, e)
	}
	return out
}

// Insert binds entity under id, replacing any prior binding at that id
// silently — the spawn protocol relies on this when reassigning a
// locally-created id to the server-issued one (§4.4 step 4).
func (r *Registry) Insert(id uint32, entity Handle) {
	r.entities[id] = entity
}

// Remove unbinds id, if bound.
func (r *Registry) Remove(id uint32) {
	delete(r.entities, id)
}

// CacheDescriptors verifies that every method named in declared is
// overridable on typ, and caches declared as typ's descriptor table.
// Idempotent per type: a second call for the same typ is a no-op
// returning the cached table. declared is the author-provided table (see
// entity.Entity's RPCTable)
// rather than a runtime-reflected one, since Go has no attribute
// reflection equivalent to the source language's (§9).
func (r *Registry) CacheDescriptors(typ reflect.Type, declared []Descriptor) ([]Descriptor, error) {
	if cached, ok := r.descriptors[typ]; ok {
		return cached, nil
	}
	for _, d := range declared {
		if !methodOverridable(typ, d.Name) {
			return nil, netrpcerr.New(netrpcerr.Configuration, typ.String()+"."+d.Name, netrpcerr.ErrNotOverridable)
		}
	}
	r.descriptors[typ] = declared
	return declared, nil
}

// Descriptors returns the cached descriptor table for typ, if any has
// been built yet.
func (r *Registry) Descriptors(typ reflect.Type) ([]Descriptor, bool) {
	d, ok := r.descriptors[typ]
	return d, ok
}

// methodOverridable reports whether typ exposes an exported method named
// name that a wrapping proxy could intercept. In Go every exported
// pointer-receiver method on an interceptable type satisfies this by
// construction (there is no "final method" concept to violate), so this
// is a structural existence check: the method must actually exist on
// typ, matching §4.2's requirement that every cached descriptor names a
// real, overridable method.
func methodOverridable(typ reflect.Type, name string) bool {
	_, ok := typ.MethodByName(name)
	return ok
}
