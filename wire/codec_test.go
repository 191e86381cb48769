package wire

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRPCRoundTrip(t *testing.T) {
	params := []interface{}{
		true, uint8(200), int8(-5), int16(-1000), uint16(1000),
		int32(-100000), uint32(100000), int64(-1), uint64(1),
		float32(1.5), float64(2.5), "hello", Vector2{X: 1, Y: 2}, Vector3{X: 1, Y: 2, Z: 3},
		nil,
	}
	data, err := EncodeRPC("Move", 42, params)
	require.NoError(t, err)

	frame, err := DecodeRPC(data)
	require.NoError(t, err)
	require.Equal(t, "Move", frame.Method)
	require.Equal(t, uint32(42), frame.EntityID)
	require.Equal(t, params, frame.Params)
}

func TestEncodeDecodeRPCEmptyParams(t *testing.T) {
	data, err := EncodeRPC("Ping", 1, nil)
	require.NoError(t, err)

	frame, err := DecodeRPC(data)
	require.NoError(t, err)
	require.Empty(t, frame.Params)
}

func TestDecodeRPCMalformed(t *testing.T) {
	_, err := DecodeRPC([]byte{0x01})
	require.Error(t, err)
}

func TestEncodeDecodeSpawn(t *testing.T) {
	data := EncodeSpawn("game.Player", 7, 3)
	require.True(t, IsSpawn(data))

	frame, err := DecodeSpawn(data)
	require.NoError(t, err)
	require.Equal(t, "game.Player", frame.TypeName)
	require.Equal(t, uint32(7), frame.EntityID)
	require.Equal(t, uint32(3), frame.OwnerClientID)
}

func TestDecodeSpawnRejectsWrongDiscriminator(t *testing.T) {
	_, err := DecodeSpawn([]byte{0x00})
	require.Error(t, err)
}

func TestClientIDAssignRoundTrip(t *testing.T) {
	data := EncodeClientIDAssign(9)
	require.True(t, IsClientIDAssign(data))

	id, err := DecodeClientIDAssign(data)
	require.NoError(t, err)
	require.Equal(t, uint32(9), id)
}

func TestHandshakePing(t *testing.T) {
	data := EncodeHandshakePing()
	require.True(t, IsHandshakePing(data))
	require.False(t, IsClientIDAssign(data))
	require.False(t, IsSpawn(data))
}

type vec2Alias struct {
	X, Y float64
}

func TestFallbackParamRoundTrip(t *testing.T) {
	typ := reflect.TypeOf(vec2Alias{})
	RegisterFallbackType(typ.PkgPath()+"."+typ.Name(), vec2Alias{})

	data, err := EncodeRPC("SetHome", 1, []interface{}{vec2Alias{X: 3.5, Y: 4.5}})
	require.NoError(t, err)

	frame, err := DecodeRPC(data)
	require.NoError(t, err)
	require.Equal(t, vec2Alias{X: 3.5, Y: 4.5}, frame.Params[0])
}

func TestFallbackParamUnresolvedType(t *testing.T) {
	data, err := EncodeRPC("SetHome", 1, []interface{}{struct{ Z int }{Z: 1}})
	require.NoError(t, err)

	_, err = DecodeRPC(data)
	require.Error(t, err)
}
