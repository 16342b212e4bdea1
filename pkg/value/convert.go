package value

import (
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
)

// FromGo converts a native Go value (as produced by YAML/JSON decoding or
// passed as a query parameter) into a Value.
func FromGo(x any) (Value, error) {
	switch v := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return v, nil
	case bool:
		return Bool(v), nil
	case int:
		return Int(int64(v)), nil
	case int32:
		return Int(int64(v)), nil
	case int64:
		return Int(v), nil
	case uint32:
		return Int(int64(v)), nil
	case uint64:
		return Int(int64(v)), nil
	case float32:
		return Float(float64(v)), nil
	case float64:
		return Float(v), nil
	case string:
		return String(v), nil
	case time.Time:
		return Int(v.Unix()), nil
	case []any:
		items := make([]Value, len(v))
		for i, item := range v {
			cv, err := FromGo(item)
			if err != nil {
				return Null(), fmt.Errorf("list element %d: %w", i, err)
			}
			items[i] = cv
		}
		return List(items...), nil
	case map[string]any:
		m := make(map[string]Value, len(v))
		for k, item := range v {
			cv, err := FromGo(item)
			if err != nil {
				return Null(), fmt.Errorf("map entry %q: %w", k, err)
			}
			m[k] = cv
		}
		return Map(m), nil
	default:
		return Null(), fmt.Errorf("unsupported value type %T", x)
	}
}

// MustFromGo is FromGo for values known to be convertible.
func MustFromGo(x any) Value {
	v, err := FromGo(x)
	if err != nil {
		panic(err)
	}
	return v
}

// Go converts v back to a native Go value.
func (v Value) Go() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	case KindList:
		out := make([]any, len(v.l))
		for i, item := range v.l {
			out[i] = item.Go()
		}
		return out
	case KindMap:
		out := make(map[string]any, len(v.m))
		for k, item := range v.m {
			out[k] = item.Go()
		}
		return out
	default:
		return nil
	}
}

// WriteHash feeds a canonical encoding of v into d. Values that are
// Equivalent hash identically; integral floats hash like integers.
func (v Value) WriteHash(d *xxhash.Digest) {
	var tag [1]byte
	switch v.kind {
	case KindNull:
		tag[0] = 'n'
		d.Write(tag[:])
	case KindBool:
		tag[0] = 'f'
		if v.b {
			tag[0] = 't'
		}
		d.Write(tag[:])
	case KindInt:
		tag[0] = 'i'
		d.Write(tag[:])
		d.WriteString(fmt.Sprint(v.i))
	case KindFloat:
		if v.f == float64(int64(v.f)) {
			tag[0] = 'i'
			d.Write(tag[:])
			d.WriteString(fmt.Sprint(int64(v.f)))
			return
		}
		tag[0] = 'd'
		d.Write(tag[:])
		d.WriteString(fmt.Sprint(v.f))
	case KindString:
		tag[0] = 's'
		d.Write(tag[:])
		d.WriteString(fmt.Sprint(len(v.s)))
		d.WriteString(":")
		d.WriteString(v.s)
	case KindList:
		tag[0] = '['
		d.Write(tag[:])
		for _, item := range v.l {
			item.WriteHash(d)
		}
		d.WriteString("]")
	case KindMap:
		tag[0] = '{'
		d.Write(tag[:])
		for _, k := range SortedKeys(v.m) {
			d.WriteString(k)
			d.WriteString("=")
			v.m[k].WriteHash(d)
		}
		d.WriteString("}")
	}
}

// Hash returns the xxhash of v's canonical encoding.
func (v Value) Hash() uint64 {
	d := xxhash.New()
	v.WriteHash(d)
	return d.Sum64()
}
