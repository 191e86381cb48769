package entity_test

import (
	"reflect"
	"testing"

	"github.com/SilvaMendes/netrpc/entity"
	"github.com/SilvaMendes/netrpc/registry"
	"github.com/SilvaMendes/netrpc/rpcattr"
	"github.com/stretchr/testify/require"
)

type fakeNetwork struct {
	role          entity.Role
	localClientID uint32
	sentToServer  [][]byte
	broadcasts    [][]byte
}

func (n *fakeNetwork) Role() entity.Role        { return n.role }
func (n *fakeNetwork) LocalClientID() uint32    { return n.localClientID }
func (n *fakeNetwork) SendToServer(data []byte, mode rpcattr.DeliveryMode) {
	n.sentToServer = append(n.sentToServer, data)
}
func (n *fakeNetwork) Broadcast(data []byte, mode rpcattr.DeliveryMode) {
	n.broadcasts = append(n.broadcasts, data)
}

type thing struct {
	entity.Base
	moved bool
	said  bool
}

func (t *thing) RPCTable() []registry.Descriptor {
	return []registry.Descriptor{
		{Name: "ServerMove", Attr: rpcattr.ServerRPC()},
		{Name: "ClientSay", Attr: rpcattr.ClientRPC()},
		{Name: "ServerMoveUnowned", Attr: rpcattr.ServerRPC(rpcattr.WithOwnership(false))},
	}
}

func (t *thing) ServerMove() {
	if suppress, _ := t.Route("ServerMove"); suppress {
		return
	}
	t.moved = true
}

func (t *thing) ClientSay() {
	if suppress, _ := t.Route("ClientSay"); suppress {
		return
	}
	t.said = true
}

func (t *thing) ServerMoveUnowned() {
	if suppress, _ := t.Route("ServerMoveUnowned"); suppress {
		return
	}
	t.moved = true
}

func newThing(t *testing.T, net entity.Network, owner uint32) *thing {
	e, err := entity.NewProxy(registry.New(), net, func() entity.Entity { return &thing{} }, 1, owner)
	require.NoError(t, err)
	return e.(*thing)
}

func TestRouteServerBoundOnHostRunsLocally(t *testing.T) {
	net := &fakeNetwork{role: entity.RoleHost}
	th := newThing(t, net, 0)

	suppress, err := th.Route("ServerMove")
	require.NoError(t, err)
	require.False(t, suppress)
}

func TestRouteServerBoundOnOwningClientForwards(t *testing.T) {
	net := &fakeNetwork{role: entity.RoleClient, localClientID: 5}
	th := newThing(t, net, 5)

	suppress, err := th.Route("ServerMove")
	require.NoError(t, err)
	require.True(t, suppress)
	require.Len(t, net.sentToServer, 1)
}

func TestRouteServerBoundOnNonOwningClientIsRejected(t *testing.T) {
	net := &fakeNetwork{role: entity.RoleClient, localClientID: 5}
	th := newThing(t, net, 9)

	suppress, err := th.Route("ServerMove")
	require.NoError(t, err)
	require.True(t, suppress)
	require.Empty(t, net.sentToServer)
}

func TestRouteServerBoundWithoutOwnershipForwardsRegardlessOfOwner(t *testing.T) {
	net := &fakeNetwork{role: entity.RoleClient, localClientID: 5}
	th := newThing(t, net, 9)

	suppress, err := th.Route("ServerMoveUnowned")
	require.NoError(t, err)
	require.True(t, suppress)
	require.Len(t, net.sentToServer, 1)
}

func TestRouteServerBoundWhileDisconnectedIsRejected(t *testing.T) {
	th := newThing(t, nil, 0)

	suppress, err := th.Route("ServerMove")
	require.NoError(t, err)
	require.True(t, suppress)
}

func TestRouteClientBoundOnHostBroadcastsAndRunsLocally(t *testing.T) {
	net := &fakeNetwork{role: entity.RoleHost}
	th := newThing(t, net, 0)

	suppress, err := th.Route("ClientSay")
	require.NoError(t, err)
	require.False(t, suppress)
	require.Len(t, net.broadcasts, 1)
}

func TestRouteClientBoundOnClientRunsLocally(t *testing.T) {
	net := &fakeNetwork{role: entity.RoleClient}
	th := newThing(t, net, 0)

	suppress, err := th.Route("ClientSay")
	require.NoError(t, err)
	require.False(t, suppress)
}

func TestRouteUnknownMethodPassesThrough(t *testing.T) {
	net := &fakeNetwork{role: entity.RoleHost}
	th := newThing(t, net, 0)

	suppress, err := th.Route("NotInTable")
	require.NoError(t, err)
	require.False(t, suppress)
}

func TestNewProxyWiresIdentity(t *testing.T) {
	net := &fakeNetwork{role: entity.RoleHost}
	reg := registry.New()
	e, err := entity.NewProxy(reg, net, func() entity.Entity { return &thing{} }, 10, 3)
	require.NoError(t, err)
	require.Equal(t, uint32(10), e.NetworkObjectID())
	require.Equal(t, uint32(3), e.OwnerClientID())
	require.Equal(t, reflect.TypeOf(&thing{}), e.EntityType())
}
