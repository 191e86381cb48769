package spawn

import (
	"github.com/SilvaMendes/netrpc/entity"
	"github.com/SilvaMendes/netrpc/netrpcerr"
	"github.com/SilvaMendes/netrpc/registry"
	"github.com/SilvaMendes/netrpc/wire"
)

// Create performs the host-initiated half of §4.4: proxy-construct an
// entity of the type construct builds, bind it into reg under id with
// the given owner, and return both the live entity and the spawn frame
// to broadcast reliably. id is supplied by the caller (the manager's
// process-wide monotonic counter) rather than generated here, keeping
// the counter's ownership on the single driver thread per §5.
func Create(reg *registry.Registry, net entity.Network, construct Factory, id, owner uint32) (entity.Entity, []byte, error) {
	e, err := entity.NewProxy(reg, net, func() entity.Entity { return construct() }, id, owner)
	if err != nil {
		return nil, nil, err
	}
	reg.Insert(id, e)
	frame := wire.EncodeSpawn(TypeName(e.EntityType()), id, owner)
	return e, frame, nil
}

// Receive applies an inbound spawn frame per §4.4's five-step receipt
// procedure:
//
//  1. an entity already bound at frame.EntityID makes this a no-op
//     (idempotent joiner sync, §8's spawn-idempotence law);
//  2. frame.TypeName is resolved against factories;
//  3. a fresh proxied entity is constructed;
//  4. it is bound into reg directly under frame.EntityID with
//     frame.OwnerClientID (the source's "assign then reinsert" dance
//     collapses to one Insert here, since entity.NewProxy can be handed
//     the final id up front — the observable registry state is
//     identical either way);
//  5. its spawn hook fires.
func Receive(reg *registry.Registry, net entity.Network, factories *Registry, frame *wire.SpawnFrame) (entity.Entity, error) {
	if _, exists := reg.Get(frame.EntityID); exists {
		return nil, nil
	}
	construct, ok := factories.Lookup(frame.TypeName)
	if !ok {
		return nil, netrpcerr.New(netrpcerr.Decode, "spawn.Receive", netrpcerr.ErrUnknownEntityType)
	}
	e, err := entity.NewProxy(reg, net, func() entity.Entity { return construct() }, frame.EntityID, frame.OwnerClientID)
	if err != nil {
		return nil, err
	}
	reg.Insert(frame.EntityID, e)
	e.OnSpawned()
	return e, nil
}

// LateJoinSync encodes a spawn frame for every entity currently in reg,
// invoking send once per frame in registry-enumeration order. The
// manager calls this with a sender bound to the single newly connected
// peer over the reliable channel (§4.4's late-joiner sync, §5's ordering
// guarantee that spawn frames precede any RPC addressed to that entity).
func LateJoinSync(reg *registry.Registry, send func(frame []byte)) {
	for _, h := range reg.All() {
		e, ok := h.(entity.Entity)
		if !ok {
			continue
		}
		send(wire.EncodeSpawn(TypeName(e.EntityType()), e.NetworkObjectID(), e.OwnerClientID()))
	}
}
