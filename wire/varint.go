package wire

import (
	"bytes"
	"io"

	"github.com/SilvaMendes/netrpc/netrpcerr"
)

// writeVarUint writes v using the host platform's 7-bit variable-length
// encoding (.NET BinaryWriter.Write7BitEncodedInt compatible): seven bits
// of value per byte, top bit set iff more bytes follow.
func writeVarUint(buf *bytes.Buffer, v uint64) {
	for v >= 0x80 {
		buf.WriteByte(byte(v&0x7f) | 0x80)
		v >>= 7
	}
	buf.WriteByte(byte(v))
}

func readVarUint(r *bytes.Reader) (uint64, error) {
	var result uint64
	var shift uint
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, netrpcerr.ErrMalformedFrame
		}
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			break
		}
		shift += 7
		if shift > 63 {
			return 0, netrpcerr.ErrMalformedFrame
		}
	}
	return result, nil
}

// writeString writes a length-prefixed UTF-8 string.
func writeString(buf *bytes.Buffer, s string) {
	writeVarUint(buf, uint64(len(s)))
	buf.WriteString(s)
}

func readString(r *bytes.Reader) (string, error) {
	n, err := readVarUint(r)
	if err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", netrpcerr.ErrMalformedFrame
	}
	return string(b), nil
}
