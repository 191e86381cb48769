package wire

// Vector2 is the wire type-id 13 value: two packed float32s.
type Vector2 struct {
	X, Y float32
}

// Vector3 is the wire type-id 14 value: three packed float32s.
type Vector3 struct {
	X, Y, Z float32
}

// Type-id byte values for the closed RPC parameter table (§4.1).
const (
	typeNull     byte = 0
	typeBool     byte = 1
	typeU8       byte = 2
	typeI8       byte = 3
	typeI16      byte = 4
	typeU16      byte = 5
	typeI32      byte = 6
	typeU32      byte = 7
	typeI64      byte = 8
	typeU64      byte = 9
	typeF32      byte = 10
	typeF64      byte = 11
	typeString   byte = 12
	typeVector2  byte = 13
	typeVector3  byte = 14
	typeFallback byte = 255
)
