package spawn_test

import (
	"reflect"
	"testing"

	"github.com/SilvaMendes/netrpc/entity"
	"github.com/SilvaMendes/netrpc/registry"
	"github.com/SilvaMendes/netrpc/rpcattr"
	"github.com/SilvaMendes/netrpc/spawn"
	"github.com/SilvaMendes/netrpc/wire"
	"github.com/stretchr/testify/require"
)

type fakeNetwork struct{}

func (fakeNetwork) Role() entity.Role     { return entity.RoleHost }
func (fakeNetwork) LocalClientID() uint32 { return 0 }
func (fakeNetwork) SendToServer([]byte, rpcattr.DeliveryMode) {}
func (fakeNetwork) Broadcast([]byte, rpcattr.DeliveryMode)    {}

type widget struct {
	entity.Base
	spawnCount int
}

func (w *widget) OnSpawned() { w.spawnCount++ }

func newWidget() entity.Entity { return &widget{} }

func TestCreateBindsEntityAndEncodesFrame(t *testing.T) {
	reg := registry.New()
	e, frame, err := spawn.Create(reg, fakeNetwork{}, newWidget, 1, 0)
	require.NoError(t, err)
	require.Equal(t, uint32(1), e.NetworkObjectID())

	decoded, err := wire.DecodeSpawn(frame)
	require.NoError(t, err)
	require.Equal(t, spawn.TypeName(e.EntityType()), decoded.TypeName)
	require.Equal(t, uint32(1), decoded.EntityID)

	_, ok := reg.Get(1)
	require.True(t, ok)
}

func TestReceiveMaterializesEntityAndFiresOnSpawned(t *testing.T) {
	reg := registry.New()
	factories := spawn.NewRegistry()
	typeName := spawn.TypeName(reflect.TypeOf(&widget{}))
	factories.Register(typeName, newWidget)

	frame := &wire.SpawnFrame{TypeName: typeName, EntityID: 5, OwnerClientID: 2}
	e, err := spawn.Receive(reg, fakeNetwork{}, factories, frame)
	require.NoError(t, err)
	require.Equal(t, uint32(5), e.NetworkObjectID())
	require.Equal(t, uint32(2), e.OwnerClientID())
	require.Equal(t, 1, e.(*widget).spawnCount)
}

func TestReceiveIsIdempotentOnReplay(t *testing.T) {
	reg := registry.New()
	factories := spawn.NewRegistry()
	typeName := spawn.TypeName(reflect.TypeOf(&widget{}))
	factories.Register(typeName, newWidget)

	frame := &wire.SpawnFrame{TypeName: typeName, EntityID: 5, OwnerClientID: 2}
	first, err := spawn.Receive(reg, fakeNetwork{}, factories, frame)
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := spawn.Receive(reg, fakeNetwork{}, factories, frame)
	require.NoError(t, err)
	require.Nil(t, second)
	require.Equal(t, 1, first.(*widget).spawnCount)
}

func TestReceiveUnknownTypeIsDecodeError(t *testing.T) {
	reg := registry.New()
	factories := spawn.NewRegistry()

	frame := &wire.SpawnFrame{TypeName: "nonexistent.Type", EntityID: 1}
	_, err := spawn.Receive(reg, fakeNetwork{}, factories, frame)
	require.Error(t, err)
}

func TestLateJoinSyncSendsOneFramePerEntity(t *testing.T) {
	reg := registry.New()
	_, _, err := spawn.Create(reg, fakeNetwork{}, newWidget, 1, 0)
	require.NoError(t, err)
	_, _, err = spawn.Create(reg, fakeNetwork{}, newWidget, 2, 0)
	require.NoError(t, err)

	var frames [][]byte
	spawn.LateJoinSync(reg, func(frame []byte) {
		frames = append(frames, frame)
	})
	require.Len(t, frames, 2)
}
