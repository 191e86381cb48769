package udp

import (
	"net"

	"github.com/SilvaMendes/netrpc/transport"
)

type datagram struct {
	data []byte
	addr *net.UDPAddr
}

// recvBuffer is large enough for any single netrpc frame this module
// produces; a real transport would size this from the path MTU.
const recvBuffer = 65536

// listen runs in its own goroutine reading datagrams off the socket and
// feeding them to ch. It never touches Transport state directly — all
// mutation happens back on the driver thread inside Update — so this is
// the one piece of netrpc that is not single-threaded, by necessity: a
// blocking socket read cannot live on the cooperative driver thread.
func listen(conn *net.UDPConn, ch chan<- datagram) {
	for {
		buf := make([]byte, recvBuffer)
		n, addr, err := conn.ReadFromUDP(buf)
		if err != nil {
			close(ch)
			return
		}
		ch <- datagram{data: buf[:n], addr: addr}
	}
}

// Update drains every datagram received since the last call, applying
// transport framing (ack bookkeeping, reliable ordering/dedupe, sequenced
// drop-old) before invoking the registered callbacks. Never blocks.
func (t *Transport) Update() {
	if t.conn == nil {
		return
	}
	if t.recvCh == nil {
		t.recvCh = make(chan datagram, 1024)
		go listen(t.conn, t.recvCh)
	}
	for {
		select {
		case d, ok := <-t.recvCh:
			if !ok {
				t.recvCh = nil
				t.handleSocketClosed()
				return
			}
			t.handleDatagram(d)
		default:
			t.flushPendingReliable()
			return
		}
	}
}

func (t *Transport) handleSocketClosed() {
	if t.isHost {
		return
	}
	if t.onDisconnectedFromServer != nil {
		t.onDisconnectedFromServer()
	}
}

func (t *Transport) handleDatagram(d datagram) {
	if len(d.data) >= 1 && d.data[0] == 0x00 {
		t.handleHandshake(d.addr, string(d.data[1:]))
		return
	}
	if len(d.data) < 5 {
		return
	}
	mode := d.data[0]
	seq := leUint32(d.data[1:5])
	payload := d.data[5:]

	peer := t.peerFor(d.addr)

	switch mode {
	case modeAck:
		delete(t.pendingReliable, pendingKey{peer: peer, seq: seq})
	case modeReliable:
		t.sendRaw(d.addr, encodeHeader(modeAck, seq, nil))
		t.deliverReliable(peer, seq, payload)
	case modeSequenced:
		if seq <= t.lastSequencedSeq[peer] && t.lastSequencedSeq[peer] != 0 {
			return
		}
		t.lastSequencedSeq[peer] = seq
		t.deliver(payload, peer)
	default: // modeUnreliable
		t.deliver(payload, peer)
	}
}

func (t *Transport) handleHandshake(addr *net.UDPAddr, cookie string) {
	if !t.isHost {
		return
	}
	key := addr.String()
	if _, exists := t.addrToPeer[key]; exists {
		return
	}
	if t.maxClients > 0 && len(t.addrToPeer) >= t.maxClients {
		t.log.Debug().Str("addr", key).Msg("rejecting connection: max clients reached")
		return
	}
	t.nextPeerID++
	id := transport.PeerID(t.nextPeerID)
	t.addrToPeer[key] = id
	t.peerToAddr[id] = addr
	t.log.Debug().Str("addr", key).Str("cookie", cookie).Uint32("peer_id", uint32(id)).Msg("accepted handshake")
	if t.onClientConnected != nil {
		t.onClientConnected(id)
	}
}

func (t *Transport) peerFor(addr *net.UDPAddr) transport.PeerID {
	if !t.isHost {
		return 0
	}
	return t.addrToPeer[addr.String()]
}

// deliverReliable enforces reliable-ordered delivery for §4.6/§5: a
// reliable frame is handed to onDataReceived only once every lower-seq
// frame from the same peer has already been delivered. A frame that
// arrives ahead of its predecessor (reordering, or a retransmit racing a
// fresh send) is held until the gap closes; a frame at or below the
// next-expected seq has already been delivered once and is dropped as a
// duplicate.
func (t *Transport) deliverReliable(peer transport.PeerID, seq uint32, payload []byte) {
	next, ok := t.nextExpectedReliable[peer]
	if !ok {
		next = 1
	}
	if seq < next {
		return
	}
	held, ok := t.heldReliable[peer]
	if !ok {
		held = map[uint32][]byte{}
		t.heldReliable[peer] = held
	}
	if seq > next {
		if _, dup := held[seq]; !dup {
			cp := make([]byte, len(payload))
			copy(cp, payload)
			held[seq] = cp
		}
		return
	}
	t.deliver(payload, peer)
	next++
	for {
		buffered, ok := held[next]
		if !ok {
			break
		}
		delete(held, next)
		t.deliver(buffered, peer)
		next++
	}
	t.nextExpectedReliable[peer] = next
}

func (t *Transport) deliver(payload []byte, peer transport.PeerID) {
	if t.onDataReceived == nil {
		return
	}
	cp := make([]byte, len(payload))
	copy(cp, payload)
	t.onDataReceived(cp, peer)
}

func leUint32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
