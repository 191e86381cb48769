// Package udp is a minimal net.UDPConn-backed transport.Transport,
// grounded on the teacher's Engine/Client dial pattern (functional
// options, zerolog debug logging on dial failure, a per-session UUID
// cookie) generalized from a single TCP/UDP RTP-engine connection to
// many concurrent UDP peers.
//
// It is a reference implementation, not a production transport — §4.6
// of the specification this module implements deliberately leaves the
// transport unspecified beyond its interface contract.
package udp

import (
	"encoding/binary"
	"net"
	"strconv"
	"time"

	"github.com/SilvaMendes/netrpc/transport"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Frame-level mode byte prepended to every outbound UDP datagram, ahead
// of the application payload the wire package produced. This is a
// transport concern layered under the RPC/spawn/control discriminator,
// not part of it. 0x00 is left free: it marks the unframed handshake ping.
const (
	modeUnreliable byte = 4
	modeReliable   byte = 1
	modeAck        byte = 2
	modeSequenced  byte = 3
)

// retransmitInterval is how long a reliable send waits for an ack
// before resending.
const retransmitInterval = 200 * time.Millisecond

// Transport is a UDP-backed transport.Transport. Construct one with New,
// call StartServer XOR StartClient, and Update it from the driver loop.
type Transport struct {
	log zerolog.Logger

	conn       *net.UDPConn
	isHost     bool
	maxClients int

	cookie string

	nextPeerID uint32
	addrToPeer map[string]transport.PeerID
	peerToAddr map[transport.PeerID]*net.UDPAddr
	serverAddr *net.UDPAddr

	nextReliableSeq      map[transport.PeerID]uint32
	pendingReliable      map[pendingKey]*pendingSend
	nextExpectedReliable map[transport.PeerID]uint32
	heldReliable         map[transport.PeerID]map[uint32][]byte

	nextSequencedSeq uint32
	lastSequencedSeq map[transport.PeerID]uint32

	recvCh chan datagram

	onClientConnected        func(transport.PeerID)
	onClientDisconnected     func(transport.PeerID)
	onDataReceived           func([]byte, transport.PeerID)
	onConnectedToServer      func()
	onDisconnectedFromServer func()
}

var _ transport.Transport = (*Transport)(nil)

type pendingKey struct {
	peer transport.PeerID
	seq  uint32
}

type pendingSend struct {
	data     []byte
	lastSent time.Time
}

// Option customizes a Transport built by New, following the teacher's
// ClientOption/ParametrosOption functional-options idiom.
type Option func(*Transport)

// WithLogger overrides the default package logger.
func WithLogger(l zerolog.Logger) Option {
	return func(t *Transport) { t.log = l }
}

// New builds an unstarted Transport.
func New(opts ...Option) *Transport {
	t := &Transport{
		log:                  log.Logger.With().Str("component", "transport/udp").Logger(),
		cookie:               uuid.NewString(),
		addrToPeer:           map[string]transport.PeerID{},
		peerToAddr:           map[transport.PeerID]*net.UDPAddr{},
		nextReliableSeq:      map[transport.PeerID]uint32{},
		pendingReliable:      map[pendingKey]*pendingSend{},
		nextExpectedReliable: map[transport.PeerID]uint32{},
		heldReliable:         map[transport.PeerID]map[uint32][]byte{},
		lastSequencedSeq:     map[transport.PeerID]uint32{},
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// StartServer opens a UDP socket bound to port and begins accepting
// datagrams from up to maxClients distinct remote addresses.
func (t *Transport) StartServer(port int, maxClients int) error {
	t.isHost = true
	t.maxClients = maxClients
	conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: port})
	if err != nil {
		t.log.Debug().Str("debug", "listen").Msg(err.Error())
		return err
	}
	t.conn = conn
	return nil
}

// StartClient dials hostIdentifier:port and sends the initial handshake
// ping. hostIdentifier is resolved the same way the teacher's
// WithClientDns resolves a DNS name to an address.
func (t *Transport) StartClient(hostIdentifier string, port int) error {
	t.isHost = false
	addr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(hostIdentifier, strconv.Itoa(port)))
	if err != nil {
		t.log.Debug().Str("debug", "resolve").Msg(err.Error())
		return err
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		t.log.Debug().Str("debug", "dial").Msg(err.Error())
		return err
	}
	t.conn = conn
	t.serverAddr = addr
	ping := append([]byte{0x00}, []byte(t.cookie)...)
	if _, err := conn.Write(ping); err != nil {
		t.log.Debug().Str("debug", "handshake").Msg(err.Error())
		return err
	}
	t.log.Debug().Str("cookie", t.cookie).Msg("sent handshake ping")
	if t.onConnectedToServer != nil {
		t.onConnectedToServer()
	}
	return nil
}

// Stop closes the UDP socket.
func (t *Transport) Stop() error {
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	return err
}

func (t *Transport) OnClientConnected(f func(transport.PeerID))      { t.onClientConnected = f }
func (t *Transport) OnClientDisconnected(f func(transport.PeerID))   { t.onClientDisconnected = f }
func (t *Transport) OnDataReceived(f func([]byte, transport.PeerID)) { t.onDataReceived = f }
func (t *Transport) OnConnectedToServer(f func())                    { t.onConnectedToServer = f }
func (t *Transport) OnDisconnectedFromServer(f func())               { t.onDisconnectedFromServer = f }

func (t *Transport) addrOf(id transport.PeerID) *net.UDPAddr {
	if t.isHost {
		return t.peerToAddr[id]
	}
	return t.serverAddr
}

func (t *Transport) sendRaw(addr *net.UDPAddr, data []byte) error {
	if t.conn == nil || addr == nil {
		return nil
	}
	if t.isHost {
		_, err := t.conn.WriteToUDP(data, addr)
		return err
	}
	_, err := t.conn.Write(data)
	return err
}

func encodeHeader(mode byte, seq uint32, payload []byte) []byte {
	buf := make([]byte, 5+len(payload))
	buf[0] = mode
	binary.LittleEndian.PutUint32(buf[1:5], seq)
	copy(buf[5:], payload)
	return buf
}
