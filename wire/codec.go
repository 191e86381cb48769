// Package wire implements the RPC, spawn, and control frame wire format:
// a leading discriminator byte, 7-bit-varint-length-prefixed strings, and
// a closed table of 14 built-in scalar/vector parameter types plus a
// JSON-fallback escape hatch for everything else.
package wire

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"math"
	"reflect"

	"github.com/SilvaMendes/netrpc/netrpcerr"
	"github.com/mitchellh/mapstructure"
)

// Discriminator byte values recognized on a frame's first byte (§3, §6).
const (
	DiscHandshakePing  byte = 0x00
	DiscClientIDAssign byte = 0x01
	DiscTypeTable      byte = 0x02
	DiscRPC            byte = 0x03
	DiscSpawn          byte = 0xFF
)

// RPCFrame is a decoded RPC invocation: method name, target entity, and
// its ordered parameters (each a native Go value; a JSON-fallback
// parameter is a value of its registered type, not a pointer).
type RPCFrame struct {
	Method   string
	EntityID uint32
	Params   []interface{}
}

// EncodeRPC serializes an RPC invocation per the §4.1 RPC frame layout.
func EncodeRPC(method string, entityID uint32, params []interface{}) ([]byte, error) {
	buf := &bytes.Buffer{}
	buf.WriteByte(DiscRPC)
	writeString(buf, method)
	binary.Write(buf, binary.LittleEndian, entityID)
	binary.Write(buf, binary.LittleEndian, int32(len(params)))
	for _, p := range params {
		if err := encodeParam(buf, p); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// DecodeRPC parses bytes previously produced by EncodeRPC, including the
// leading RPC discriminator byte.
func DecodeRPC(data []byte) (*RPCFrame, error) {
	if len(data) == 0 || data[0] != DiscRPC {
		return nil, netrpcerr.New(netrpcerr.Decode, "DecodeRPC", netrpcerr.ErrMalformedFrame)
	}
	r := bytes.NewReader(data[1:])
	method, err := readString(r)
	if err != nil {
		return nil, netrpcerr.New(netrpcerr.Decode, "DecodeRPC", err)
	}
	var entityID uint32
	if err := binary.Read(r, binary.LittleEndian, &entityID); err != nil {
		return nil, netrpcerr.New(netrpcerr.Decode, "DecodeRPC", netrpcerr.ErrMalformedFrame)
	}
	var count int32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, netrpcerr.New(netrpcerr.Decode, "DecodeRPC", netrpcerr.ErrMalformedFrame)
	}
	if count < 0 {
		return nil, netrpcerr.New(netrpcerr.Decode, "DecodeRPC", netrpcerr.ErrMalformedFrame)
	}
	params := make([]interface{}, 0, count)
	for i := int32(0); i < count; i++ {
		v, err := decodeParam(r)
		if err != nil {
			return nil, netrpcerr.New(netrpcerr.Decode, "DecodeRPC", err)
		}
		params = append(params, v)
	}
	return &RPCFrame{Method: method, EntityID: entityID, Params: params}, nil
}

// EncodeSpawn serializes an entity-spawn frame per §4.1.
func EncodeSpawn(typeName string, entityID, ownerClientID uint32) []byte {
	buf := &bytes.Buffer{}
	buf.WriteByte(DiscSpawn)
	writeString(buf, typeName)
	binary.Write(buf, binary.LittleEndian, entityID)
	binary.Write(buf, binary.LittleEndian, ownerClientID)
	return buf.Bytes()
}

// SpawnFrame is a decoded entity-spawn announcement.
type SpawnFrame struct {
	TypeName      string
	EntityID      uint32
	OwnerClientID uint32
}

// DecodeSpawn parses bytes previously produced by EncodeSpawn, including
// the leading 0xFF discriminator.
func DecodeSpawn(data []byte) (*SpawnFrame, error) {
	if len(data) == 0 || data[0] != DiscSpawn {
		return nil, netrpcerr.New(netrpcerr.Decode, "DecodeSpawn", netrpcerr.ErrMalformedFrame)
	}
	r := bytes.NewReader(data[1:])
	typeName, err := readString(r)
	if err != nil {
		return nil, netrpcerr.New(netrpcerr.Decode, "DecodeSpawn", err)
	}
	var id, owner uint32
	if err := binary.Read(r, binary.LittleEndian, &id); err != nil {
		return nil, netrpcerr.New(netrpcerr.Decode, "DecodeSpawn", netrpcerr.ErrMalformedFrame)
	}
	if err := binary.Read(r, binary.LittleEndian, &owner); err != nil {
		return nil, netrpcerr.New(netrpcerr.Decode, "DecodeSpawn", netrpcerr.ErrMalformedFrame)
	}
	return &SpawnFrame{TypeName: typeName, EntityID: id, OwnerClientID: owner}, nil
}

// EncodeClientIDAssign serializes the 0x01 control frame.
func EncodeClientIDAssign(clientID uint32) []byte {
	buf := make([]byte, 5)
	buf[0] = DiscClientIDAssign
	binary.LittleEndian.PutUint32(buf[1:], clientID)
	return buf
}

// DecodeClientIDAssign parses a 0x01 control frame, returning the
// assigned client-id.
func DecodeClientIDAssign(data []byte) (uint32, error) {
	if len(data) != 5 || data[0] != DiscClientIDAssign {
		return 0, netrpcerr.New(netrpcerr.Decode, "DecodeClientIDAssign", netrpcerr.ErrMalformedFrame)
	}
	return binary.LittleEndian.Uint32(data[1:]), nil
}

// EncodeHandshakePing serializes the single-byte 0x00 control frame.
func EncodeHandshakePing() []byte {
	return []byte{DiscHandshakePing}
}

// IsHandshakePing reports whether data is the 0x00 control frame.
func IsHandshakePing(data []byte) bool {
	return len(data) == 1 && data[0] == DiscHandshakePing
}

// IsClientIDAssign reports whether data is shaped like a 0x01 control
// frame (used by the manager's inbound dispatch before decoding).
func IsClientIDAssign(data []byte) bool {
	return len(data) == 5 && data[0] == DiscClientIDAssign
}

// IsSpawn reports whether data's leading byte is the spawn discriminator.
func IsSpawn(data []byte) bool {
	return len(data) > 0 && data[0] == DiscSpawn
}

// IsRPC reports whether data's leading byte is the RPC discriminator.
func IsRPC(data []byte) bool {
	return len(data) > 0 && data[0] == DiscRPC
}

// IsTypeTable reports whether data's leading byte is the fallback
// type-table control frame.
func IsTypeTable(data []byte) bool {
	return len(data) > 0 && data[0] == DiscTypeTable
}

// EncodeTypeTableFrame wraps a bencode-encoded fallback type table (see
// EncodeTypeTable) with its control discriminator for transmission.
func EncodeTypeTableFrame(names []string) ([]byte, error) {
	body, err := EncodeTypeTable(names)
	if err != nil {
		return nil, err
	}
	return append([]byte{DiscTypeTable}, body...), nil
}

// DecodeTypeTableFrame strips the control discriminator and parses the
// remaining bencode payload as produced by EncodeTypeTableFrame.
func DecodeTypeTableFrame(data []byte) ([]string, error) {
	if len(data) == 0 || data[0] != DiscTypeTable {
		return nil, netrpcerr.New(netrpcerr.Decode, "DecodeTypeTableFrame", netrpcerr.ErrMalformedFrame)
	}
	return DecodeTypeTable(data[1:])
}

func encodeParam(buf *bytes.Buffer, v interface{}) error {
	switch val := v.(type) {
	case nil:
		buf.WriteByte(typeNull)
	case bool:
		buf.WriteByte(typeBool)
		if val {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
	case uint8:
		buf.WriteByte(typeU8)
		buf.WriteByte(val)
	case int8:
		buf.WriteByte(typeI8)
		buf.WriteByte(byte(val))
	case int16:
		buf.WriteByte(typeI16)
		binary.Write(buf, binary.LittleEndian, val)
	case uint16:
		buf.WriteByte(typeU16)
		binary.Write(buf, binary.LittleEndian, val)
	case int32:
		buf.WriteByte(typeI32)
		binary.Write(buf, binary.LittleEndian, val)
	case uint32:
		buf.WriteByte(typeU32)
		binary.Write(buf, binary.LittleEndian, val)
	case int64:
		buf.WriteByte(typeI64)
		binary.Write(buf, binary.LittleEndian, val)
	case uint64:
		buf.WriteByte(typeU64)
		binary.Write(buf, binary.LittleEndian, val)
	case float32:
		buf.WriteByte(typeF32)
		binary.Write(buf, binary.LittleEndian, math.Float32bits(val))
	case float64:
		buf.WriteByte(typeF64)
		binary.Write(buf, binary.LittleEndian, math.Float64bits(val))
	case string:
		buf.WriteByte(typeString)
		writeString(buf, val)
	case Vector2:
		buf.WriteByte(typeVector2)
		binary.Write(buf, binary.LittleEndian, math.Float32bits(val.X))
		binary.Write(buf, binary.LittleEndian, math.Float32bits(val.Y))
	case Vector3:
		buf.WriteByte(typeVector3)
		binary.Write(buf, binary.LittleEndian, math.Float32bits(val.X))
		binary.Write(buf, binary.LittleEndian, math.Float32bits(val.Y))
		binary.Write(buf, binary.LittleEndian, math.Float32bits(val.Z))
	default:
		return encodeFallback(buf, v)
	}
	return nil
}

// encodeFallback writes a type-255 parameter: the assembly-qualified
// type name and the JSON document, both length-prefixed.
func encodeFallback(buf *bytes.Buffer, v interface{}) error {
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	name := t.PkgPath() + "." + t.Name()
	doc, err := json.Marshal(v)
	if err != nil {
		return netrpcerr.New(netrpcerr.Decode, "encodeFallback", err)
	}
	buf.WriteByte(typeFallback)
	writeString(buf, name)
	writeString(buf, string(doc))
	return nil
}

func decodeParam(r *bytes.Reader) (interface{}, error) {
	id, err := r.ReadByte()
	if err != nil {
		return nil, netrpcerr.ErrMalformedFrame
	}
	switch id {
	case typeNull:
		return nil, nil
	case typeBool:
		b, err := r.ReadByte()
		if err != nil {
			return nil, netrpcerr.ErrMalformedFrame
		}
		return b != 0, nil
	case typeU8:
		b, err := r.ReadByte()
		if err != nil {
			return nil, netrpcerr.ErrMalformedFrame
		}
		return b, nil
	case typeI8:
		b, err := r.ReadByte()
		if err != nil {
			return nil, netrpcerr.ErrMalformedFrame
		}
		return int8(b), nil
	case typeI16:
		var v int16
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return nil, netrpcerr.ErrMalformedFrame
		}
		return v, nil
	case typeU16:
		var v uint16
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return nil, netrpcerr.ErrMalformedFrame
		}
		return v, nil
	case typeI32:
		var v int32
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return nil, netrpcerr.ErrMalformedFrame
		}
		return v, nil
	case typeU32:
		var v uint32
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return nil, netrpcerr.ErrMalformedFrame
		}
		return v, nil
	case typeI64:
		var v int64
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return nil, netrpcerr.ErrMalformedFrame
		}
		return v, nil
	case typeU64:
		var v uint64
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return nil, netrpcerr.ErrMalformedFrame
		}
		return v, nil
	case typeF32:
		var bits uint32
		if err := binary.Read(r, binary.LittleEndian, &bits); err != nil {
			return nil, netrpcerr.ErrMalformedFrame
		}
		return math.Float32frombits(bits), nil
	case typeF64:
		var bits uint64
		if err := binary.Read(r, binary.LittleEndian, &bits); err != nil {
			return nil, netrpcerr.ErrMalformedFrame
		}
		return math.Float64frombits(bits), nil
	case typeString:
		return readString(r)
	case typeVector2:
		var xb, yb uint32
		if err := binary.Read(r, binary.LittleEndian, &xb); err != nil {
			return nil, netrpcerr.ErrMalformedFrame
		}
		if err := binary.Read(r, binary.LittleEndian, &yb); err != nil {
			return nil, netrpcerr.ErrMalformedFrame
		}
		return Vector2{X: math.Float32frombits(xb), Y: math.Float32frombits(yb)}, nil
	case typeVector3:
		var xb, yb, zb uint32
		if err := binary.Read(r, binary.LittleEndian, &xb); err != nil {
			return nil, netrpcerr.ErrMalformedFrame
		}
		if err := binary.Read(r, binary.LittleEndian, &yb); err != nil {
			return nil, netrpcerr.ErrMalformedFrame
		}
		if err := binary.Read(r, binary.LittleEndian, &zb); err != nil {
			return nil, netrpcerr.ErrMalformedFrame
		}
		return Vector3{X: math.Float32frombits(xb), Y: math.Float32frombits(yb), Z: math.Float32frombits(zb)}, nil
	case typeFallback:
		return decodeFallback(r)
	default:
		return nil, netrpcerr.ErrUnknownTypeID
	}
}

// decodeFallback reads a type-255 parameter and, if its type name has
// been registered via RegisterFallbackType, decodes the JSON document
// into a loose map and then mapstructure's it into a fresh instance of
// the registered type — the same loose-decode-then-mapstructure two step
// the codec uses for the control-frame type table.
func decodeFallback(r *bytes.Reader) (interface{}, error) {
	name, err := readString(r)
	if err != nil {
		return nil, err
	}
	doc, err := readString(r)
	if err != nil {
		return nil, err
	}
	typ, ok := fallbackTypes[name]
	if !ok {
		return nil, netrpcerr.ErrUnresolvedFallbackType
	}
	var loose interface{}
	if err := json.Unmarshal([]byte(doc), &loose); err != nil {
		return nil, netrpcerr.New(netrpcerr.Decode, "decodeFallback", err)
	}
	out := reflect.New(typ)
	cfg := &mapstructure.DecoderConfig{Result: out.Interface(), TagName: "json"}
	dec, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return nil, netrpcerr.New(netrpcerr.Decode, "decodeFallback", err)
	}
	if err := dec.Decode(loose); err != nil {
		return nil, netrpcerr.New(netrpcerr.Decode, "decodeFallback", err)
	}
	return out.Elem().Interface(), nil
}
