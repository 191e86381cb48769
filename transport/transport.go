// Package transport specifies the pluggable datagram transport contract
// netrpc's manager drives each tick. Concrete implementations live in
// subpackages (loopback for tests, udp for a minimal net.UDPConn-backed
// reference); neither is the transport the framework assumes production
// deployments will bring themselves.
package transport

import "github.com/SilvaMendes/netrpc/rpcattr"

// PeerID identifies a connected remote endpoint from the transport's
// point of view. The manager maps PeerIDs to its own client-ids; the two
// id spaces are unrelated.
type PeerID uint32

// Transport abstracts connection lifecycle and datagram delivery with
// the three delivery modes of rpcattr.DeliveryMode (§4.6).
type Transport interface {
	// StartServer begins listening for inbound connections.
	StartServer(port int, maxClients int) error
	// StartClient begins connecting to a remote host.
	StartClient(hostIdentifier string, port int) error
	// Update polls for and dispatches pending transport events. Must not
	// block; the driver calls it once per tick.
	Update()
	// SendToClient delivers bytes to exactly one connected peer.
	SendToClient(id PeerID, data []byte, mode rpcattr.DeliveryMode) error
	// SendToAll delivers bytes to every connected peer (host side only).
	SendToAll(data []byte, mode rpcattr.DeliveryMode) error
	// SendToServer delivers bytes to the host (client side only).
	SendToServer(data []byte, mode rpcattr.DeliveryMode) error
	// Stop tears down all connections and releases resources.
	Stop() error

	// OnClientConnected registers a callback fired once per newly
	// accepted peer (host side).
	OnClientConnected(func(PeerID))
	// OnClientDisconnected registers a callback fired once per peer that
	// drops (host side).
	OnClientDisconnected(func(PeerID))
	// OnDataReceived registers a callback fired once per inbound
	// datagram, with the sending peer's id.
	OnDataReceived(func(data []byte, sender PeerID))
	// OnConnectedToServer registers a callback fired once the client
	// transport has a live connection to the host.
	OnConnectedToServer(func())
	// OnDisconnectedFromServer registers a callback fired once the
	// client transport loses its connection to the host.
	OnDisconnectedFromServer(func())
}
