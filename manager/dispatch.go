package manager

import (
	"reflect"

	"github.com/SilvaMendes/netrpc/entity"
	"github.com/SilvaMendes/netrpc/registry"
	"github.com/SilvaMendes/netrpc/rpcattr"
	"github.com/SilvaMendes/netrpc/spawn"
	"github.com/SilvaMendes/netrpc/transport"
	"github.com/SilvaMendes/netrpc/wire"
)

// handleData implements §4.5's inbound dispatch: classify the frame by
// its leading discriminator and route it to the client-id handshake,
// the spawn protocol, or RPC execution.
func (m *Manager) handleData(data []byte, sender transport.PeerID) {
	switch {
	case len(data) == 5 && wire.IsClientIDAssign(data) && m.role == entity.RoleClient:
		m.applyClientIDAssign(data)
	case wire.IsHandshakePing(data):
		// ignored beyond routing
	case wire.IsTypeTable(data) && m.role == entity.RoleClient:
		m.applyTypeTable(data)
	case wire.IsSpawn(data):
		m.applySpawn(data)
	case wire.IsRPC(data):
		m.applyRPC(data, sender)
	default:
		m.log.Debug().Msg("dropped frame with unrecognized discriminator")
	}
}

// applyTypeTable compares the host's fallback type-name list with the
// names registered locally and logs each host name this client lacks.
// Nothing is stored: the application is still responsible for
// RegisterFallbackType on both peers (§4.1); this exchange only lets a
// client detect a mismatch.
func (m *Manager) applyTypeTable(data []byte) {
	names, err := wire.DecodeTypeTableFrame(data)
	if err != nil {
		m.log.Debug().Err(err).Msg("malformed type table")
		return
	}
	known := map[string]bool{}
	for _, n := range wire.FallbackTypeNames() {
		known[n] = true
	}
	for _, n := range names {
		if !known[n] {
			m.log.Debug().Str("type", n).Msg("host fallback type not registered locally")
		}
	}
}

func (m *Manager) applyClientIDAssign(data []byte) {
	id, err := wire.DecodeClientIDAssign(data)
	if err != nil {
		m.log.Debug().Err(err).Msg("malformed client-id assignment")
		return
	}
	m.localClientID = id
	m.state = stateConnected
	m.log.Debug().Uint32("client_id", id).Msg("assigned client-id")
	if m.onConnectedToServer != nil {
		m.onConnectedToServer()
	}
}

func (m *Manager) applySpawn(data []byte) {
	frame, err := wire.DecodeSpawn(data)
	if err != nil {
		m.log.Debug().Err(err).Msg("malformed spawn frame")
		return
	}
	if _, err := spawn.Receive(m.reg, m, m.factories, frame); err != nil {
		m.log.Debug().Err(err).Str("type", frame.TypeName).Msg("spawn receive failed")
	}
}

func (m *Manager) applyRPC(data []byte, sender transport.PeerID) {
	frame, err := wire.DecodeRPC(data)
	if err != nil {
		m.log.Debug().Err(err).Msg("malformed rpc frame")
		return
	}
	handle, ok := m.reg.Get(frame.EntityID)
	if !ok {
		m.log.Debug().Uint32("entity_id", frame.EntityID).Str("method", frame.Method).Msg("rpc targets unknown entity")
		return
	}
	e, ok := handle.(entity.Entity)
	if !ok {
		return
	}
	descriptors, ok := m.reg.Descriptors(e.EntityType())
	if !ok {
		return
	}
	var desc *registry.Descriptor
	for i := range descriptors {
		if descriptors[i].Name == frame.Method {
			desc = &descriptors[i]
			break
		}
	}
	if desc == nil {
		m.log.Debug().Str("method", frame.Method).Msg("rpc names unregistered method")
		return
	}
	if !m.roleMayExecute(desc.Attr.Direction) {
		m.log.Debug().Str("method", frame.Method).Str("direction", desc.Attr.Direction.String()).Msg("rpc direction does not match local role")
		return
	}
	if desc.Attr.Direction == rpcattr.ServerBound && desc.Attr.RequireOwnership {
		senderClient, ok := m.peersByClient[sender]
		if !ok || senderClient != e.OwnerClientID() {
			m.log.Debug().Str("method", frame.Method).Uint32("entity_id", frame.EntityID).Msg("rpc failed ownership check")
			return
		}
	}
	args, err := convertParams(frame.Params, desc.ParamTypes)
	if err != nil {
		m.log.Debug().Err(err).Str("method", frame.Method).Msg("rpc parameter conversion failed")
		return
	}
	m.invoke(e, frame.Method, args)
}

// roleMayExecute implements the role gate of §8: a server-bound frame
// runs only on the host, a client-bound frame only on a client (the
// host only ever runs client-bound bodies locally, via Route, never
// from an inbound frame).
func (m *Manager) roleMayExecute(dir rpcattr.Direction) bool {
	switch m.role {
	case entity.RoleHost:
		return dir == rpcattr.ServerBound
	case entity.RoleClient:
		return dir == rpcattr.ClientBound
	default:
		return false
	}
}

func (m *Manager) invoke(e entity.Entity, method string, args []reflect.Value) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error().Interface("panic", r).Str("method", method).Msg("rpc invocation panicked")
		}
	}()
	v := reflect.ValueOf(e)
	fn := v.MethodByName(method)
	if !fn.IsValid() {
		m.log.Debug().Str("method", method).Msg("rpc method missing on entity value")
		return
	}
	fn.Call(args)
}
