package manager

import (
	"reflect"

	"github.com/SilvaMendes/netrpc/netrpcerr"
)

// convertParams builds the reflect.Value argument list for an RPC
// method call from its decoded wire parameters, widening each to its
// declared parameter type where the source's ChangeType would have:
// integer→wider-integer, integer→float, f32→f64 (§9). A value whose
// decoded type already matches passes through unchanged; anything else
// that cannot be widened is a decode error and drops the frame.
func convertParams(raw []interface{}, declared []reflect.Type) ([]reflect.Value, error) {
	if len(raw) != len(declared) {
		return nil, netrpcerr.ErrMalformedFrame
	}
	out := make([]reflect.Value, len(raw))
	for i, v := range raw {
		cv, err := convertParam(v, declared[i])
		if err != nil {
			return nil, err
		}
		out[i] = cv
	}
	return out, nil
}

func convertParam(v interface{}, declared reflect.Type) (reflect.Value, error) {
	if v == nil {
		return reflect.Zero(declared), nil
	}
	rv := reflect.ValueOf(v)
	if rv.Type() == declared {
		return rv, nil
	}
	if rv.Type().ConvertibleTo(declared) && widenable(rv.Type(), declared) {
		return rv.Convert(declared), nil
	}
	return reflect.Value{}, netrpcerr.ErrMalformedFrame
}

// widenable restricts reflect's general ConvertibleTo to the widening
// directions §9 sanctions: wider integers of the same signedness,
// integer-to-float, and f32-to-f64. It exists so a lossy narrowing
// conversion (e.g. int64→int8) is treated as a decode error rather than
// silently truncated.
func widenable(from, to reflect.Type) bool {
	switch from.Kind() {
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		switch to.Kind() {
		case reflect.Int16, reflect.Int32, reflect.Int64, reflect.Float32, reflect.Float64:
			return bitSize(to) >= bitSize(from) || isFloat(to)
		}
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		switch to.Kind() {
		case reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Float32, reflect.Float64:
			return bitSize(to) >= bitSize(from) || isFloat(to)
		}
	case reflect.Float32:
		return to.Kind() == reflect.Float64
	}
	return false
}

func isFloat(t reflect.Type) bool {
	return t.Kind() == reflect.Float32 || t.Kind() == reflect.Float64
}

func bitSize(t reflect.Type) int {
	switch t.Kind() {
	case reflect.Int8, reflect.Uint8:
		return 8
	case reflect.Int16, reflect.Uint16:
		return 16
	case reflect.Int32, reflect.Uint32, reflect.Float32:
		return 32
	case reflect.Int64, reflect.Uint64, reflect.Float64:
		return 64
	default:
		return 0
	}
}
