package types

import "testing"

func TestTruthy(t *testing.T) {
	cases := []struct {
		v    Value
		want bool
	}{
		{Null, false},
		{NewBool(false), false},
		{NewBool(true), true},
		{NewInt(0), false},
		{NewInt(1), true},
		{NewDouble(0), false},
		{NewDouble(0.1), true},
		{NewString(""), false},
		{NewString("x"), true},
		{NewList(nil), false},
		{NewList([]Value{NewInt(1)}), true},
		{NewMap(NewOrderedMap()), false},
		{NewHandle("task", nil), true},
	}
	for _, c := range cases {
		if got := c.v.Truthy(); got != c.want {
			t.Errorf("Truthy(%v) = %v, want %v", c.v, got, c.want)
		}
	}
	m := NewOrderedMap()
	m.Set("a", NewInt(1))
	if !NewMap(m).Truthy() {
		t.Error("expected a non-empty map to be truthy")
	}
}

func TestEqualNumericCoercion(t *testing.T) {
	if !NewInt(3).Equal(NewDouble(3.0)) {
		t.Error("expected int 3 to equal double 3.0")
	}
	if NewInt(3).Equal(NewString("3")) {
		t.Error("did not expect int 3 to equal string \"3\"")
	}
	if !NewString("a").Equal(NewString("a")) {
		t.Error("expected equal strings to compare equal")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	m := NewOrderedMap()
	m.Set("x", NewInt(1))
	original := NewMap(m)
	clone := original.Clone()

	clone.AsMap().Set("x", NewInt(2))

	v, _ := original.AsMap().Get("x")
	if v.AsInt() != 1 {
		t.Errorf("expected original map to be unaffected by clone mutation, got %v", v)
	}
}

func TestOrderedMapPreservesInsertionOrder(t *testing.T) {
	m := NewOrderedMap()
	m.Set("z", NewInt(1))
	m.Set("a", NewInt(2))
	m.Set("m", NewInt(3))
	keys := m.Keys()
	want := []string{"z", "a", "m"}
	for i, k := range want {
		if keys[i] != k {
			t.Errorf("Keys()[%d] = %q, want %q", i, keys[i], k)
		}
	}
}

func TestOrderedMapDeleteKeepsOrder(t *testing.T) {
	m := NewOrderedMap()
	m.Set("a", NewInt(1))
	m.Set("b", NewInt(2))
	m.Set("c", NewInt(3))
	m.Delete("b")
	keys := m.Keys()
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "c" {
		t.Errorf("expected [a c] after deleting b, got %v", keys)
	}
	if _, ok := m.Get("b"); ok {
		t.Error("expected b to be gone after Delete")
	}
}

func TestValueFromJSONHandlesYAMLInterfaceMap(t *testing.T) {
	// yaml.v3 decodes nested maps as map[interface{}]interface{} rather than
	// map[string]interface{}; ValueFromJSON must handle both.
	raw := map[interface{}]interface{}{
		"name": "widget",
		"qty":  3,
	}
	v := ValueFromJSON(raw)
	if v.Type() != TypeMap {
		t.Fatalf("expected a map value, got %v", v.Type())
	}
	name, ok := v.AsMap().Get("name")
	if !ok || name.AsString() != "widget" {
		t.Errorf("expected name == widget, got %v", name)
	}
}

func TestAsNumber(t *testing.T) {
	if n, ok := NewInt(5).AsNumber(); !ok || n != 5 {
		t.Errorf("expected AsNumber() on int to be (5, true), got (%v, %v)", n, ok)
	}
	if n, ok := NewDouble(2.5).AsNumber(); !ok || n != 2.5 {
		t.Errorf("expected AsNumber() on double to be (2.5, true), got (%v, %v)", n, ok)
	}
	if _, ok := NewString("x").AsNumber(); ok {
		t.Error("expected AsNumber() on a non-numeric string to fail")
	}
}
