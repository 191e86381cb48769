package manager_test

import (
	"reflect"
	"testing"

	"github.com/SilvaMendes/netrpc/entity"
	"github.com/SilvaMendes/netrpc/manager"
	"github.com/SilvaMendes/netrpc/registry"
	"github.com/SilvaMendes/netrpc/rpcattr"
	"github.com/SilvaMendes/netrpc/spawn"
	"github.com/SilvaMendes/netrpc/transport/loopback"
	"github.com/SilvaMendes/netrpc/wire"
	"github.com/stretchr/testify/require"
)

// Waypoint has no entry in wire's closed scalar/vector type table, so an
// RPC parameter of this type exercises the type-255 JSON-fallback path.
type Waypoint struct {
	Label string
	X, Y  float32
}

type actor struct {
	entity.Base
	x, y     float32
	messages []string
	home     Waypoint
}

func (a *actor) RPCTable() []registry.Descriptor {
	return []registry.Descriptor{
		{
			Name:       "Move",
			ParamTypes: []reflect.Type{reflect.TypeOf(float32(0)), reflect.TypeOf(float32(0))},
			Attr:       rpcattr.ServerRPC(),
		},
		{
			Name:       "Say",
			ParamTypes: []reflect.Type{reflect.TypeOf("")},
			Attr:       rpcattr.ClientRPC(),
		},
		{
			Name:       "SetHome",
			ParamTypes: []reflect.Type{reflect.TypeOf(Waypoint{})},
			Attr:       rpcattr.ServerRPC(),
		},
	}
}

func (a *actor) Move(x, y float32) {
	if suppress, _ := a.Route("Move", x, y); suppress {
		return
	}
	a.x, a.y = x, y
}

func (a *actor) Say(msg string) {
	if suppress, _ := a.Route("Say", msg); suppress {
		return
	}
	a.messages = append(a.messages, msg)
}

func (a *actor) SetHome(w Waypoint) {
	if suppress, _ := a.Route("SetHome", w); suppress {
		return
	}
	a.home = w
}

func newActor() entity.Entity { return &actor{} }

func init() {
	typ := reflect.TypeOf(Waypoint{})
	wire.RegisterFallbackType(typ.PkgPath()+"."+typ.Name(), Waypoint{})
}

func newFactories() *spawn.Registry {
	r := spawn.NewRegistry()
	r.Register(spawn.TypeName(reflect.TypeOf(&actor{})), newActor)
	return r
}

// pumpUntil ticks every manager in order, up to maxTicks times, stopping
// as soon as cond reports true. Loopback delivery is immediate within a
// single Update, so a handful of ticks is always enough to settle any of
// these scenarios.
func pumpUntil(t *testing.T, cond func() bool, tick func()) {
	t.Helper()
	for i := 0; i < 10; i++ {
		tick()
		if cond() {
			return
		}
	}
	require.True(t, cond(), "condition did not settle within 10 ticks")
}

func newHostAndClient(t *testing.T) (host *manager.Manager, client *manager.Manager, hostPeer, clientPeer *loopback.Peer) {
	net := loopback.NewNetwork()
	hostPeer = net.NewPeer()
	clientPeer = net.NewPeer()

	host = manager.New(hostPeer, newFactories())
	client = manager.New(clientPeer, newFactories())

	require.NoError(t, host.StartServer(0))
	require.NoError(t, client.StartClient("loopback", 0))

	pumpUntil(t, func() bool { return client.LocalClientID() != 0 }, func() {
		host.Update()
		client.Update()
	})
	return host, client, hostPeer, clientPeer
}

func TestServerBoundRPCEchoesOwnerOnly(t *testing.T) {
	host, client, _, _ := newHostAndClient(t)

	spawned, err := host.Spawn(newActor, client.LocalClientID())
	require.NoError(t, err)
	pumpUntil(t, func() bool {
		_, ok := client.Registry().Get(spawned.NetworkObjectID())
		return ok
	}, func() { host.Update(); client.Update() })

	handle, _ := client.Registry().Get(spawned.NetworkObjectID())
	clientActor := handle.(*actor)
	clientActor.Move(3, 4)

	pumpUntil(t, func() bool {
		return spawned.(*actor).x == 3 && spawned.(*actor).y == 4
	}, func() { host.Update(); client.Update() })
}

func TestClientBoundRPCBroadcastsToAllConnectedClients(t *testing.T) {
	host, client, _, _ := newHostAndClient(t)

	spawned, err := host.Spawn(newActor)
	require.NoError(t, err)
	pumpUntil(t, func() bool {
		_, ok := client.Registry().Get(spawned.NetworkObjectID())
		return ok
	}, func() { host.Update(); client.Update() })

	hostActor := spawned.(*actor)
	hostActor.Say("hello")

	pumpUntil(t, func() bool {
		handle, ok := client.Registry().Get(spawned.NetworkObjectID())
		if !ok {
			return false
		}
		return len(handle.(*actor).messages) == 1
	}, func() { host.Update(); client.Update() })

	require.Equal(t, []string{"hello"}, hostActor.messages)
}

func TestServerBoundRPCFromNonOwnerIsRejected(t *testing.T) {
	host, client, _, _ := newHostAndClient(t)

	spawned, err := host.Spawn(newActor) // owner stays 0, client owns nothing
	require.NoError(t, err)
	pumpUntil(t, func() bool {
		_, ok := client.Registry().Get(spawned.NetworkObjectID())
		return ok
	}, func() { host.Update(); client.Update() })

	handle, _ := client.Registry().Get(spawned.NetworkObjectID())
	handle.(*actor).Move(9, 9)

	for i := 0; i < 5; i++ {
		host.Update()
		client.Update()
	}
	require.Equal(t, float32(0), spawned.(*actor).x)
}

func TestLateJoinerReceivesExistingEntities(t *testing.T) {
	net := loopback.NewNetwork()
	hostPeer := net.NewPeer()
	host := manager.New(hostPeer, newFactories())
	require.NoError(t, host.StartServer(0))

	_, err := host.Spawn(newActor)
	require.NoError(t, err)
	host.Update()

	latePeer := net.NewPeer()
	late := manager.New(latePeer, newFactories())
	require.NoError(t, late.StartClient("loopback", 0))

	pumpUntil(t, func() bool { return len(late.Registry().All()) == 1 }, func() {
		host.Update()
		late.Update()
	})
}

func TestNullArgumentRoundTrips(t *testing.T) {
	host, client, _, _ := newHostAndClient(t)

	spawned, err := host.Spawn(newActor)
	require.NoError(t, err)
	pumpUntil(t, func() bool {
		_, ok := client.Registry().Get(spawned.NetworkObjectID())
		return ok
	}, func() { host.Update(); client.Update() })

	// Say's Go signature cannot take nil, so the null argument is handed
	// to Route directly: it is encoded with the null type-id and the
	// client converts it to Say's zero-value string before invoking.
	hostActor := spawned.(*actor)
	_, err = hostActor.Route("Say", nil)
	require.NoError(t, err)

	pumpUntil(t, func() bool {
		handle, ok := client.Registry().Get(spawned.NetworkObjectID())
		return ok && len(handle.(*actor).messages) == 1
	}, func() { host.Update(); client.Update() })
}

func TestFallbackTypeParameterRoundTrips(t *testing.T) {
	host, client, _, _ := newHostAndClient(t)

	spawned, err := host.Spawn(newActor, client.LocalClientID())
	require.NoError(t, err)
	pumpUntil(t, func() bool {
		_, ok := client.Registry().Get(spawned.NetworkObjectID())
		return ok
	}, func() { host.Update(); client.Update() })

	handle, _ := client.Registry().Get(spawned.NetworkObjectID())
	handle.(*actor).SetHome(Waypoint{Label: "base", X: 1, Y: 2})

	pumpUntil(t, func() bool {
		return spawned.(*actor).home.Label == "base"
	}, func() { host.Update(); client.Update() })
	require.Equal(t, Waypoint{Label: "base", X: 1, Y: 2}, spawned.(*actor).home)
}
