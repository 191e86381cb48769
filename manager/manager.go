// Package manager composes the wire codec, registry, entity interceptor,
// and spawn protocol into the single driver-facing type: it owns the
// transport, drives inbound dispatch, and tracks the connection
// lifecycle state machine of §4.5.
package manager

import (
	"github.com/SilvaMendes/netrpc/entity"
	"github.com/SilvaMendes/netrpc/netrpcconfig"
	"github.com/SilvaMendes/netrpc/netrpcerr"
	"github.com/SilvaMendes/netrpc/registry"
	"github.com/SilvaMendes/netrpc/rpcattr"
	"github.com/SilvaMendes/netrpc/spawn"
	"github.com/SilvaMendes/netrpc/transport"
	"github.com/SilvaMendes/netrpc/wire"
	"github.com/rs/zerolog"
)

// Manager composes the registry, entity interceptor plumbing, and spawn
// protocol over a transport.Transport. The driver constructs exactly one
// per process and calls Update() from a single thread (§5).
type Manager struct {
	tr        transport.Transport
	reg       *registry.Registry
	factories *spawn.Registry
	cfg       netrpcconfig.Config
	log       zerolog.Logger

	state         state
	role          entity.Role
	localClientID uint32

	nextClientID uint32
	nextEntityID uint32

	clientsByID   map[uint32]transport.PeerID
	peersByClient map[transport.PeerID]uint32

	onClientConnected        func(clientID uint32)
	onClientDisconnected     func(clientID uint32)
	onConnectedToServer      func()
	onDisconnectedFromServer func()
}

var _ entity.Network = (*Manager)(nil)

// New constructs a Manager bound to tr (uninitialized until
// StartServer/StartClient) and factories (the spawn protocol's
// type-name-to-constructor table, populated identically on every peer
// before the first Update).
func New(tr transport.Transport, factories *spawn.Registry, opts ...netrpcconfig.Option) *Manager {
	cfg := netrpcconfig.New(opts...)
	return &Manager{
		tr:            tr,
		reg:           registry.New(),
		factories:     factories,
		cfg:           cfg,
		log:           cfg.Logger.With().Str("component", "manager").Logger(),
		state:         stateUninitialized,
		role:          entity.RoleDisconnected,
		nextClientID:  1,
		nextEntityID:  1,
		clientsByID:   map[uint32]transport.PeerID{},
		peersByClient: map[transport.PeerID]uint32{},
	}
}

// Registry exposes the entity registry, mainly so application code can
// enumerate or look up entities outside of an RPC dispatch.
func (m *Manager) Registry() *registry.Registry { return m.reg }

// Role returns the manager's current role, satisfying entity.Network.
func (m *Manager) Role() entity.Role { return m.role }

// LocalClientID returns this process's client-id: 0 on the host, the
// server-assigned id on a connected client, satisfying entity.Network.
func (m *Manager) LocalClientID() uint32 { return m.localClientID }

// OnClientConnected registers a callback fired once a new client
// finishes the connect handshake (host side only).
func (m *Manager) OnClientConnected(f func(clientID uint32)) { m.onClientConnected = f }

// OnClientDisconnected registers a callback fired once a client
// disconnects (host side only).
func (m *Manager) OnClientDisconnected(f func(clientID uint32)) { m.onClientDisconnected = f }

// OnConnectedToServer registers a callback fired once the client
// handshake completes and LocalClientID becomes valid.
func (m *Manager) OnConnectedToServer(f func()) { m.onConnectedToServer = f }

// OnDisconnectedFromServer registers a callback fired once the
// transport reports the server connection lost.
func (m *Manager) OnDisconnectedFromServer(f func()) { m.onDisconnectedFromServer = f }

// StartServer transitions Uninitialized → Hosting, per §4.5.
func (m *Manager) StartServer(port int) error {
	if m.state != stateUninitialized {
		return netrpcerr.New(netrpcerr.Misuse, "StartServer", netrpcerr.ErrAlreadyInitialized)
	}
	m.tr.OnClientConnected(m.handleClientConnected)
	m.tr.OnClientDisconnected(m.handleClientDisconnected)
	m.tr.OnDataReceived(m.handleData)
	if err := m.tr.StartServer(port, m.cfg.MaxClients); err != nil {
		return netrpcerr.New(netrpcerr.Transport, "StartServer", err)
	}
	m.state = stateHosting
	m.role = entity.RoleHost
	m.localClientID = 0
	return nil
}

// StartClient transitions Uninitialized → Connecting, per §4.5. The
// manager stays Connecting until the 0x01 client-id assignment control
// frame arrives (handleData), not merely on transport connect.
func (m *Manager) StartClient(hostIdentifier string, port int) error {
	if m.state != stateUninitialized {
		return netrpcerr.New(netrpcerr.Misuse, "StartClient", netrpcerr.ErrAlreadyInitialized)
	}
	m.tr.OnConnectedToServer(func() {})
	m.tr.OnDisconnectedFromServer(m.handleDisconnectedFromServer)
	m.tr.OnDataReceived(m.handleData)
	if err := m.tr.StartClient(hostIdentifier, port); err != nil {
		return netrpcerr.New(netrpcerr.Transport, "StartClient", err)
	}
	m.state = stateConnecting
	m.role = entity.RoleClient
	return nil
}

// Update drains one round of pending transport events. Call it once per
// tick from a single driver thread (§5); it never blocks.
func (m *Manager) Update() {
	m.tr.Update()
}

// Stop transitions Hosting or Connected back to Uninitialized (§4.5).
func (m *Manager) Stop() error {
	if m.state == stateUninitialized {
		return nil
	}
	err := m.tr.Stop()
	m.state = stateUninitialized
	m.role = entity.RoleDisconnected
	m.localClientID = 0
	m.clientsByID = map[uint32]transport.PeerID{}
	m.peersByClient = map[transport.PeerID]uint32{}
	if err != nil {
		return netrpcerr.New(netrpcerr.Transport, "Stop", err)
	}
	return nil
}

// Dispose releases the manager's resources. Safe to call after Stop, or
// instead of it.
func (m *Manager) Dispose() error {
	return m.Stop()
}

// Spawn is the server-initiated half of §4.4: it creates a proxied
// instance via construct, assigns it the next network-object-id,
// inserts it into the registry, and broadcasts a spawn frame reliably.
// Calling Spawn while not hosting is API misuse (§7 kind 6), surfaced
// synchronously rather than swallowed.
func (m *Manager) Spawn(construct spawn.Factory, ownerClientID ...uint32) (entity.Entity, error) {
	if m.state != stateHosting {
		return nil, netrpcerr.New(netrpcerr.Misuse, "Spawn", netrpcerr.ErrNotHost)
	}
	owner := uint32(0)
	if len(ownerClientID) > 0 {
		owner = ownerClientID[0]
		if owner != 0 {
			if _, ok := m.clientsByID[owner]; !ok {
				return nil, netrpcerr.New(netrpcerr.Misuse, "Spawn", netrpcerr.ErrNotHost)
			}
		}
	}
	id := m.nextEntityID
	m.nextEntityID++
	e, frame, err := spawn.Create(m.reg, m, construct, id, owner)
	if err != nil {
		return nil, err
	}
	m.Broadcast(frame, rpcattr.Reliable)
	return e, nil
}

// SendToServer implements entity.Network: used by an RPC interceptor on
// the client side to forward a server-bound call. A no-op once stopped
// (§7 kind 5: sends on a stopped transport are no-ops).
func (m *Manager) SendToServer(data []byte, mode rpcattr.DeliveryMode) {
	if m.state == stateUninitialized {
		return
	}
	if err := m.tr.SendToServer(data, mode); err != nil {
		m.log.Debug().Err(err).Msg("send to server failed")
	}
}

// Broadcast implements entity.Network: used by an RPC interceptor on the
// host side for a client-bound call, and by Spawn/late-join sync.
func (m *Manager) Broadcast(data []byte, mode rpcattr.DeliveryMode) {
	if m.state != stateHosting {
		return
	}
	if err := m.tr.SendToAll(data, mode); err != nil {
		m.log.Debug().Err(err).Msg("broadcast failed")
	}
}

func (m *Manager) handleClientConnected(peer transport.PeerID) {
	id := m.nextClientID
	m.nextClientID++
	m.clientsByID[id] = peer
	m.peersByClient[peer] = id
	m.log.Debug().Uint32("client_id", id).Msg("client connected")
	if m.onClientConnected != nil {
		m.onClientConnected(id)
	}
	if err := m.tr.SendToClient(peer, wire.EncodeClientIDAssign(id), rpcattr.Reliable); err != nil {
		m.log.Debug().Err(err).Msg("send client-id assignment failed")
		return
	}
	if tableFrame, err := wire.EncodeTypeTableFrame(wire.FallbackTypeNames()); err != nil {
		m.log.Debug().Err(err).Msg("encode type table failed")
	} else if err := m.tr.SendToClient(peer, tableFrame, rpcattr.Reliable); err != nil {
		m.log.Debug().Err(err).Msg("send type table failed")
	}
	spawn.LateJoinSync(m.reg, func(frame []byte) {
		if err := m.tr.SendToClient(peer, frame, rpcattr.Reliable); err != nil {
			m.log.Debug().Err(err).Msg("late-join spawn sync failed")
		}
	})
}

func (m *Manager) handleClientDisconnected(peer transport.PeerID) {
	id, ok := m.peersByClient[peer]
	if !ok {
		return
	}
	delete(m.peersByClient, peer)
	delete(m.clientsByID, id)
	m.log.Debug().Uint32("client_id", id).Msg("client disconnected")
	if m.onClientDisconnected != nil {
		m.onClientDisconnected(id)
	}
}

func (m *Manager) handleDisconnectedFromServer() {
	m.state = stateUninitialized
	m.role = entity.RoleDisconnected
	m.localClientID = 0
	if m.onDisconnectedFromServer != nil {
		m.onDisconnectedFromServer()
	}
}
