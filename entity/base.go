// Package entity provides the networked-entity base type and its call
// interceptor: the decision, per invocation, of whether an RPC-tagged
// method runs locally, is forwarded to the server, or is broadcast to
// clients (§4.3).
package entity

import (
	"reflect"

	"github.com/SilvaMendes/netrpc/registry"
	"github.com/SilvaMendes/netrpc/rpcattr"
	"github.com/SilvaMendes/netrpc/wire"
)

// Entity is implemented by every networked entity type. Authors embed
// Base by value, which promotes NetworkObjectID, EntityType, OnSpawned,
// Init and Route automatically; RPCTable is overridden to declare the
// type's RPC descriptors (§9: "a small trait/interface requiring
// entities to declare their RPC table", in place of reflection-driven
// attributes).
type Entity interface {
	NetworkObjectID() uint32
	OwnerClientID() uint32
	EntityType() reflect.Type
	OnSpawned()
	RPCTable() []registry.Descriptor
	Init(net Network, entityType reflect.Type, id, owner uint32, descriptors []registry.Descriptor)
}

// Base is the unit of replication every networked entity type embeds.
// Direct construction of a type embedding Base, without going through
// NewProxy, leaves Init uncalled: NetworkObjectID stays 0 and Route
// always passes through, silently bypassing interception — §6 calls
// this "unsupported" rather than guarding against it at runtime, since
// the framework has no way to observe how a Go value was constructed.
type Base struct {
	id         uint32
	owner      uint32
	net        Network
	entityType reflect.Type
	rpcIndex   map[string]registry.Descriptor
}

var _ Entity = (*Base)(nil)

// NetworkObjectID returns the entity's stable id, or 0 if it was never
// spawned/proxied.
func (b *Base) NetworkObjectID() uint32 { return b.id }

// OwnerClientID returns the client-id that owns this entity.
func (b *Base) OwnerClientID() uint32 { return b.owner }

// EntityType returns the concrete type NewProxy constructed, used as the
// registry's descriptor-cache key and the spawn protocol's type-name
// source.
func (b *Base) EntityType() reflect.Type { return b.entityType }

// OnSpawned is the spawn-hook notification (§4.4 step 5). The zero value
// no-ops; entity authors override it by defining their own OnSpawned
// method on the embedding type — ordinary Go method shadowing stands in
// for the source's virtual dispatch (§9).
func (b *Base) OnSpawned() {}

// RPCTable is the entity's declared RPC descriptor table. The zero
// value declares no RPCs; entity authors override it.
func (b *Base) RPCTable() []registry.Descriptor { return nil }

// Init wires the entity's identity and network facade. Called exactly
// once, by NewProxy (which both spawn.Create and spawn.Receive use).
func (b *Base) Init(net Network, entityType reflect.Type, id, owner uint32, descriptors []registry.Descriptor) {
	b.net = net
	b.entityType = entityType
	b.id = id
	b.owner = owner
	b.rpcIndex = make(map[string]registry.Descriptor, len(descriptors))
	for _, d := range descriptors {
		b.rpcIndex[d.Name] = d
	}
}

// Route is called by an RPC-tagged method's own body, as its first
// statement, with the method's own name and arguments. It implements the
// six-row interceptor decision table of §4.3.
//
// suppress reports whether the caller must return immediately without
// running the rest of its body. When suppress is false the caller
// should fall through to its normal logic — Route may already have
// performed a broadcast in that case (client-bound on host).
func (b *Base) Route(method string, args ...interface{}) (suppress bool, err error) {
	desc, ok := b.rpcIndex[method]
	if !ok {
		// No annotation: passthrough.
		return false, nil
	}
	role := RoleDisconnected
	if b.net != nil {
		role = b.net.Role()
	}
	switch desc.Attr.Direction {
	case rpcattr.ServerBound:
		return b.routeServerBound(desc, role, args)
	case rpcattr.ClientBound:
		return b.routeClientBound(desc, role, args)
	default:
		return false, nil
	}
}

func (b *Base) routeServerBound(desc registry.Descriptor, role Role, args []interface{}) (bool, error) {
	switch role {
	case RoleHost:
		return false, nil
	case RoleClient:
		if desc.Attr.RequireOwnership && b.net.LocalClientID() != b.owner {
			return true, nil
		}
		data, err := wire.EncodeRPC(desc.Name, b.id, args)
		if err != nil {
			return true, err
		}
		b.net.SendToServer(data, desc.Attr.Delivery)
		return true, nil
	default: // disconnected
		return true, nil
	}
}

func (b *Base) routeClientBound(desc registry.Descriptor, role Role, args []interface{}) (bool, error) {
	switch role {
	case RoleHost:
		if desc.Attr.RequireOwnership && b.net.LocalClientID() != b.owner {
			return true, nil
		}
		data, err := wire.EncodeRPC(desc.Name, b.id, args)
		if err != nil {
			return true, err
		}
		b.net.Broadcast(data, desc.Attr.Delivery)
		return false, nil
	case RoleClient:
		return false, nil
	default:
		return true, nil
	}
}
