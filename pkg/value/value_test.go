package value

import (
	"sort"
	"testing"
)

func TestEqual_NumericCrossKind(t *testing.T) {
	if !Int(3).Equal(Float(3.0)) {
		t.Error("Int(3) should equal Float(3.0)")
	}
	if Int(3).Equal(Float(3.5)) {
		t.Error("Int(3) should not equal Float(3.5)")
	}
	if Int(1).Equal(String("1")) {
		t.Error("Int(1) should not equal String(\"1\")")
	}
}

func TestEqual_NullNeverEqual(t *testing.T) {
	if Null().Equal(Null()) {
		t.Error("null = null must not be true")
	}
	if !Equivalent(Null(), Null()) {
		t.Error("null should be equivalent to null for grouping")
	}
}

func TestCompare_Ordering(t *testing.T) {
	vals := []Value{Null(), Int(2), String("b"), Float(1.5), Bool(true), String("a"), List(Int(1))}
	sort.SliceStable(vals, func(i, j int) bool { return Compare(vals[i], vals[j]) < 0 })

	want := []string{"[1]", `"a"`, `"b"`, "true", "1.5", "2", "null"}
	for i, v := range vals {
		if v.Literal() != want[i] {
			t.Errorf("position %d: got %s, want %s", i, v.Literal(), want[i])
		}
	}
}

func TestComparable(t *testing.T) {
	tests := []struct {
		a, b Value
		want bool
	}{
		{Int(1), Float(2), true},
		{String("a"), String("b"), true},
		{String("a"), Int(1), false},
		{Null(), Int(1), false},
		{List(), List(), false},
	}
	for _, tt := range tests {
		if got := Comparable(tt.a, tt.b); got != tt.want {
			t.Errorf("Comparable(%s, %s) = %v, want %v", tt.a.Literal(), tt.b.Literal(), got, tt.want)
		}
	}
}

func TestLiteral(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{Null(), "null"},
		{Int(-4), "-4"},
		{Float(2), "2.0"},
		{Float(0.25), "0.25"},
		{String(`it's`), `"it's"`},
		{List(Int(1), String("x")), `[1, "x"]`},
		{Map(map[string]Value{"b": Int(2), "a": Int(1)}), "{a: 1, b: 2}"},
	}
	for _, tt := range tests {
		if got := tt.v.Literal(); got != tt.want {
			t.Errorf("Literal() = %s, want %s", got, tt.want)
		}
	}
	if String("plain").String() != "plain" {
		t.Error("String() should not quote top-level strings")
	}
}

func TestHash_EquivalentValuesCollide(t *testing.T) {
	if Int(7).Hash() != Float(7).Hash() {
		t.Error("Int(7) and Float(7) should hash identically")
	}
	if Int(7).Hash() == String("7").Hash() {
		t.Error("Int(7) and String(\"7\") should not hash identically")
	}
	a := Map(map[string]Value{"x": Int(1), "y": List(Bool(true))})
	b := Map(map[string]Value{"y": List(Bool(true)), "x": Int(1)})
	if a.Hash() != b.Hash() {
		t.Error("map hash should not depend on insertion order")
	}
}

func TestFromGo_RoundTrip(t *testing.T) {
	in := map[string]any{
		"name":  "alice",
		"age":   30,
		"score": 1.5,
		"tags":  []any{"a", "b"},
		"nil":   nil,
	}
	v, err := FromGo(in)
	if err != nil {
		t.Fatalf("FromGo failed: %v", err)
	}
	m, err := v.AsMap()
	if err != nil {
		t.Fatalf("AsMap failed: %v", err)
	}
	if age, _ := m["age"].AsInt(); age != 30 {
		t.Errorf("age = %d, want 30", age)
	}
	if !m["nil"].IsNull() {
		t.Error("nil should convert to null")
	}
	out := v.Go().(map[string]any)
	if out["name"] != "alice" {
		t.Errorf("name = %v, want alice", out["name"])
	}

	if _, err := FromGo(struct{}{}); err == nil {
		t.Error("expected error for unsupported type")
	}
}

func TestDecode_WrongKind(t *testing.T) {
	if _, err := String("x").AsInt(); err == nil {
		t.Error("AsInt on string should fail")
	}
	if f, err := Int(2).AsFloat(); err != nil || f != 2 {
		t.Errorf("AsFloat widening: got %v, %v", f, err)
	}
}
