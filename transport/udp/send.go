package udp

import (
	"net"
	"time"

	"github.com/SilvaMendes/netrpc/rpcattr"
	"github.com/SilvaMendes/netrpc/transport"
)

// SendToClient sends data to the given peer, host side only, framed per
// mode: Reliable is tracked in pendingReliable and retransmitted by
// Update until acked, UnreliableSequenced is stamped with an increasing
// sequence number so the receiver drops anything not newer than the last
// one it delivered from this sender (single-slot-most-recent-wins, §9),
// Unreliable fires once.
func (t *Transport) SendToClient(id transport.PeerID, data []byte, mode rpcattr.DeliveryMode) error {
	return t.send(t.addrOf(id), id, data, mode)
}

// SendToAll fans SendToClient out to every connected peer, host side only.
func (t *Transport) SendToAll(data []byte, mode rpcattr.DeliveryMode) error {
	var firstErr error
	for id := range t.peerToAddr {
		if err := t.SendToClient(id, data, mode); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// SendToServer sends data to the host, client side only.
func (t *Transport) SendToServer(data []byte, mode rpcattr.DeliveryMode) error {
	return t.send(t.serverAddr, 0, data, mode)
}

func (t *Transport) send(addr *net.UDPAddr, peer transport.PeerID, data []byte, mode rpcattr.DeliveryMode) error {
	if addr == nil {
		return nil
	}
	switch mode {
	case rpcattr.Reliable:
		t.nextReliableSeq[peer]++
		seq := t.nextReliableSeq[peer]
		frame := encodeHeader(modeReliable, seq, data)
		t.pendingReliable[pendingKey{peer: peer, seq: seq}] = &pendingSend{data: frame}
		return t.sendPending(addr, pendingKey{peer: peer, seq: seq})
	case rpcattr.UnreliableSequenced:
		t.nextSequencedSeq++
		seq := t.nextSequencedSeq
		return t.sendRaw(addr, encodeHeader(modeSequenced, seq, data))
	default:
		return t.sendRaw(addr, encodeHeader(modeUnreliable, 0, data))
	}
}

func (t *Transport) sendPending(addr *net.UDPAddr, key pendingKey) error {
	p, ok := t.pendingReliable[key]
	if !ok {
		return nil
	}
	p.lastSent = time.Now()
	return t.sendRaw(addr, p.data)
}

// flushPendingReliable retransmits any reliable send still unacked after
// retransmitInterval. Called once per Update, host and client alike —
// a peer whose address is no longer resolvable (disconnected client) is
// left in the map; its sends stop being retransmitted once the caller
// tears down the Transport.
func (t *Transport) flushPendingReliable() {
	now := time.Now()
	for key, p := range t.pendingReliable {
		if now.Sub(p.lastSent) < retransmitInterval {
			continue
		}
		addr := t.addrOf(key.peer)
		if addr == nil {
			continue
		}
		p.lastSent = now
		_ = t.sendRaw(addr, p.data)
	}
}
