// Package loopback implements an in-process transport.Transport backed
// by per-peer event queues instead of real sockets. It exists so the
// manager, entity, and spawn packages can be exercised end to end in
// tests without a real UDP socket (transport/udp provides that).
package loopback

import (
	"github.com/SilvaMendes/netrpc/rpcattr"
	"github.com/SilvaMendes/netrpc/transport"
)

type eventKind int

const (
	evData eventKind = iota
	evClientConnected
	evClientDisconnected
	evConnectedToServer
	evDisconnectedFromServer
)

type event struct {
	kind eventKind
	data []byte
	peer transport.PeerID
}

// Network is the shared hub a host Peer and any number of client Peers
// are created against. Call NewNetwork once per test/demo topology.
type Network struct {
	host    *Peer
	clients map[transport.PeerID]*Peer
	nextID  uint32
}

// NewNetwork creates an empty loopback network.
func NewNetwork() *Network {
	return &Network{clients: map[transport.PeerID]*Peer{}}
}

// NewPeer creates an unattached Peer against this network. Call
// StartServer or StartClient on it to join the network as host or
// client, same as any transport.Transport.
func (n *Network) NewPeer() *Peer {
	return &Peer{net: n}
}

// Peer is one endpoint in a loopback Network, implementing
// transport.Transport.
type Peer struct {
	net    *Network
	id     transport.PeerID
	isHost bool

	inbox []event

	onClientConnected        func(transport.PeerID)
	onClientDisconnected     func(transport.PeerID)
	onDataReceived           func([]byte, transport.PeerID)
	onConnectedToServer      func()
	onDisconnectedFromServer func()
}

var _ transport.Transport = (*Peer)(nil)

// StartServer marks this peer as the network's host. port and
// maxClients are accepted for interface compatibility; loopback has no
// socket to bind and does not enforce a connection cap.
func (p *Peer) StartServer(port int, maxClients int) error {
	p.isHost = true
	p.net.host = p
	return nil
}

// StartClient connects this peer to the network's host, queuing the
// connection events both sides observe on their next Update. The
// hostIdentifier and port are accepted for interface compatibility and
// ignored — a Network has exactly one host.
func (p *Peer) StartClient(hostIdentifier string, port int) error {
	n := p.net
	n.nextID++
	p.id = transport.PeerID(n.nextID)
	n.clients[p.id] = p
	if n.host != nil {
		n.host.inbox = append(n.host.inbox, event{kind: evClientConnected, peer: p.id})
	}
	p.inbox = append(p.inbox, event{kind: evConnectedToServer})
	return nil
}

// Update drains this peer's queued events in arrival order, invoking the
// matching callback for each.
func (p *Peer) Update() {
	pending := p.inbox
	p.inbox = nil
	for _, e := range pending {
		switch e.kind {
		case evData:
			if p.onDataReceived != nil {
				p.onDataReceived(e.data, e.peer)
			}
		case evClientConnected:
			if p.onClientConnected != nil {
				p.onClientConnected(e.peer)
			}
		case evClientDisconnected:
			if p.onClientDisconnected != nil {
				p.onClientDisconnected(e.peer)
			}
		case evConnectedToServer:
			if p.onConnectedToServer != nil {
				p.onConnectedToServer()
			}
		case evDisconnectedFromServer:
			if p.onDisconnectedFromServer != nil {
				p.onDisconnectedFromServer()
			}
		}
	}
}

// SendToClient queues data for delivery to the named client peer on its
// next Update. mode is accepted for interface compatibility — loopback
// delivers every mode reliably and in order, since it models a single
// process with no real loss or reordering.
func (p *Peer) SendToClient(id transport.PeerID, data []byte, mode rpcattr.DeliveryMode) error {
	target, ok := p.net.clients[id]
	if !ok {
		return nil
	}
	target.inbox = append(target.inbox, event{kind: evData, data: cloneBytes(data)})
	return nil
}

// SendToAll queues data for delivery to every connected client peer.
func (p *Peer) SendToAll(data []byte, mode rpcattr.DeliveryMode) error {
	for _, c := range p.net.clients {
		c.inbox = append(c.inbox, event{kind: evData, data: cloneBytes(data)})
	}
	return nil
}

// SendToServer queues data for delivery to the network's host peer,
// tagged with this peer's id as sender.
func (p *Peer) SendToServer(data []byte, mode rpcattr.DeliveryMode) error {
	if p.net.host == nil {
		return nil
	}
	p.net.host.inbox = append(p.net.host.inbox, event{kind: evData, data: cloneBytes(data), peer: p.id})
	return nil
}

// Stop detaches this peer from the network.
func (p *Peer) Stop() error {
	if p.isHost {
		p.net.host = nil
	} else {
		delete(p.net.clients, p.id)
	}
	return nil
}

func (p *Peer) OnClientConnected(f func(transport.PeerID))      { p.onClientConnected = f }
func (p *Peer) OnClientDisconnected(f func(transport.PeerID))   { p.onClientDisconnected = f }
func (p *Peer) OnDataReceived(f func([]byte, transport.PeerID)) { p.onDataReceived = f }
func (p *Peer) OnConnectedToServer(f func())                    { p.onConnectedToServer = f }
func (p *Peer) OnDisconnectedFromServer(f func())               { p.onDisconnectedFromServer = f }

func cloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
