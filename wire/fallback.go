package wire

import (
	"reflect"

	"github.com/SilvaMendes/netrpc/netrpcerr"
	bencode "github.com/anacrolix/torrent/bencode"
	"github.com/mitchellh/mapstructure"
	ben "github.com/stefanovazzocell/bencode"
)

// fallbackTypes maps an assembly-qualified type name to the concrete Go
// type a type-255 parameter should decode into. Populated once at
// process start by application code via RegisterFallbackType; read-only
// thereafter, so (like registry's descriptor cache) it needs no locking
// under the single-threaded driver model.
var fallbackTypes = map[string]reflect.Type{}

// RegisterFallbackType associates name (the assembly-qualified type name
// that will appear on the wire) with the Go type of sample. Call once per
// type during application startup, before any manager.Update runs.
func RegisterFallbackType(name string, sample interface{}) {
	fallbackTypes[name] = reflect.TypeOf(sample)
}

// FallbackTypeNames returns the currently registered fallback type names,
// in no particular order.
func FallbackTypeNames() []string {
	names := make([]string, 0, len(fallbackTypes))
	for name := range fallbackTypes {
		names = append(names, name)
	}
	return names
}

// typeTable is the bencode-shaped side table the manager may exchange
// with a newly connected peer so both sides agree on which fallback type
// names are resolvable before any type-255 RPC is decoded. Mirrors the
// teacher's two-bencode-library split: Marshal with the anacrolix
// encoder, parse loosely with the stefanovazzocell parser, then decode
// into the typed struct with mapstructure.
type typeTable struct {
	Types []string `bencode:"types"`
}

// EncodeTypeTable bencode-encodes the given fallback type names for
// transmission as a control payload.
func EncodeTypeTable(names []string) ([]byte, error) {
	return bencode.Marshal(typeTable{Types: names})
}

// DecodeTypeTable parses a bencode-encoded type table as produced by
// EncodeTypeTable.
func DecodeTypeTable(data []byte) ([]string, error) {
	raw, err := ben.NewParserFromString(string(data)).AsDict()
	if err != nil {
		return nil, netrpcerr.New(netrpcerr.Decode, "DecodeTypeTable", err)
	}
	var tt typeTable
	cfg := &mapstructure.DecoderConfig{Result: &tt, TagName: "bencode"}
	dec, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return nil, netrpcerr.New(netrpcerr.Decode, "DecodeTypeTable", err)
	}
	if err := dec.Decode(raw); err != nil {
		return nil, netrpcerr.New(netrpcerr.Decode, "DecodeTypeTable", err)
	}
	return tt.Types, nil
}
