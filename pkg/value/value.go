// Package value defines the scalar values that flow through query
// evaluation: property values, literals, parameters and computed results.
package value

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Kind represents the type of a value
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindList
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "NULL"
	case KindBool:
		return "BOOLEAN"
	case KindInt:
		return "INTEGER"
	case KindFloat:
		return "FLOAT"
	case KindString:
		return "STRING"
	case KindList:
		return "LIST"
	case KindMap:
		return "MAP"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Value is an immutable tagged scalar. The zero Value is null.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	l    []Value
	m    map[string]Value
}

// Helper functions to create typed values
func Null() Value { return Value{} }

func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

func Int(i int64) Value { return Value{kind: KindInt, i: i} }

func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

func String(s string) Value { return Value{kind: KindString, s: s} }

func List(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: KindList, l: items}
}

func Map(m map[string]Value) Value {
	if m == nil {
		m = map[string]Value{}
	}
	return Value{kind: KindMap, m: m}
}

// Kind returns the dynamic type of v.
func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

// IsNumber reports whether v is an integer or a float.
func (v Value) IsNumber() bool { return v.kind == KindInt || v.kind == KindFloat }

// Decode methods
func (v Value) AsBool() (bool, error) {
	if v.kind != KindBool {
		return false, fmt.Errorf("value is not a boolean: %s", v.kind)
	}
	return v.b, nil
}

func (v Value) AsInt() (int64, error) {
	if v.kind != KindInt {
		return 0, fmt.Errorf("value is not an integer: %s", v.kind)
	}
	return v.i, nil
}

// AsFloat widens integers.
func (v Value) AsFloat() (float64, error) {
	switch v.kind {
	case KindFloat:
		return v.f, nil
	case KindInt:
		return float64(v.i), nil
	default:
		return 0, fmt.Errorf("value is not a number: %s", v.kind)
	}
}

func (v Value) AsString() (string, error) {
	if v.kind != KindString {
		return "", fmt.Errorf("value is not a string: %s", v.kind)
	}
	return v.s, nil
}

func (v Value) AsList() ([]Value, error) {
	if v.kind != KindList {
		return nil, fmt.Errorf("value is not a list: %s", v.kind)
	}
	return v.l, nil
}

func (v Value) AsMap() (map[string]Value, error) {
	if v.kind != KindMap {
		return nil, fmt.Errorf("value is not a map: %s", v.kind)
	}
	return v.m, nil
}

// Equal reports value equality. Integers and floats compare numerically;
// null is equal to nothing, not even null (use IsNull for that).
func (v Value) Equal(o Value) bool {
	if v.kind == KindNull || o.kind == KindNull {
		return false
	}
	return v.same(o)
}

// same is Equal with null == null, used for grouping and DISTINCT.
func (v Value) same(o Value) bool {
	if v.IsNumber() && o.IsNumber() {
		if v.kind == KindInt && o.kind == KindInt {
			return v.i == o.i
		}
		a, _ := v.AsFloat()
		b, _ := o.AsFloat()
		return a == b
	}
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindString:
		return v.s == o.s
	case KindList:
		if len(v.l) != len(o.l) {
			return false
		}
		for i := range v.l {
			if !v.l[i].same(o.l[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(v.m) != len(o.m) {
			return false
		}
		for k, a := range v.m {
			b, ok := o.m[k]
			if !ok || !a.same(b) {
				return false
			}
		}
		return true
	}
	return false
}

// Equivalent reports equality where null is equivalent to null.
func Equivalent(a, b Value) bool { return a.same(b) }

// orderRank places kinds in ORDER BY order; null sorts last.
func orderRank(k Kind) int {
	switch k {
	case KindMap:
		return 0
	case KindList:
		return 1
	case KindString:
		return 2
	case KindBool:
		return 3
	case KindInt, KindFloat:
		return 4
	default:
		return 5
	}
}

// Compare defines the total order used by ORDER BY, min and max.
func Compare(a, b Value) int {
	ra, rb := orderRank(a.kind), orderRank(b.kind)
	if ra != rb {
		return ra - rb
	}
	switch a.kind {
	case KindInt, KindFloat:
		if a.kind == KindInt && b.kind == KindInt {
			return cmpInt(a.i, b.i)
		}
		x, _ := a.AsFloat()
		y, _ := b.AsFloat()
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	case KindString:
		return strings.Compare(a.s, b.s)
	case KindBool:
		switch {
		case a.b == b.b:
			return 0
		case !a.b:
			return -1
		}
		return 1
	case KindList:
		for i := 0; i < len(a.l) && i < len(b.l); i++ {
			if c := Compare(a.l[i], b.l[i]); c != 0 {
				return c
			}
		}
		return len(a.l) - len(b.l)
	case KindMap:
		return len(a.m) - len(b.m)
	}
	return 0
}

// Comparable reports whether a < b style comparison is defined between the
// two values. Comparisons across incompatible kinds evaluate to null.
func Comparable(a, b Value) bool {
	if a.IsNull() || b.IsNull() {
		return false
	}
	if a.IsNumber() && b.IsNumber() {
		return true
	}
	return a.kind == b.kind && (a.kind == KindString || a.kind == KindBool)
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// String returns the display form of v. Strings are unquoted at top level.
func (v Value) String() string {
	if v.kind == KindString {
		return v.s
	}
	return v.Literal()
}

// Literal returns v rendered as a query literal (strings quoted).
func (v Value) Literal() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		if math.IsInf(v.f, 0) || math.IsNaN(v.f) {
			return strconv.FormatFloat(v.f, 'g', -1, 64)
		}
		s := strconv.FormatFloat(v.f, 'f', -1, 64)
		if !strings.ContainsAny(s, ".e") {
			s += ".0"
		}
		return s
	case KindString:
		return strconv.Quote(v.s)
	case KindList:
		parts := make([]string, len(v.l))
		for i, item := range v.l {
			parts[i] = item.Literal()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindMap:
		keys := SortedKeys(v.m)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + ": " + v.m[k].Literal()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	return "?"
}

// SortedKeys returns the keys of m in lexical order.
func SortedKeys(m map[string]Value) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// CopyMap returns a shallow copy of a property map.
func CopyMap(m map[string]Value) map[string]Value {
	out := make(map[string]Value, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
