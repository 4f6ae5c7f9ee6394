// Package types defines the dynamic value space shared by every LexFlow
// component: the parser, evaluator, executor, and opcode registry all trade
// in types.Value rather than Go's interface{}, so that truthiness, equality,
// and JSON projection stay centralized in one place.
package types

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
)

// ValueType tags the variant held by a Value.
type ValueType int

const (
	TypeNull ValueType = iota
	TypeBool
	TypeInt
	TypeDouble
	TypeString
	TypeList
	TypeMap
	TypeHandle
)

// String returns the name surfaced by introspection and error messages.
func (t ValueType) String() string {
	switch t {
	case TypeNull:
		return "null"
	case TypeBool:
		return "bool"
	case TypeInt:
		return "int"
	case TypeDouble:
		return "double"
	case TypeString:
		return "string"
	case TypeList:
		return "list"
	case TypeMap:
		return "map"
	case TypeHandle:
		return "handle"
	default:
		return "unknown"
	}
}

// Handle is an opaque engine-managed object (a Channel, a LexFlowTask, or a
// user-registered object) carried by a Value without the types package
// needing to know its shape. Kind is a short discriminator ("channel",
// "task", ...) used by error messages and introspection; Obj is recovered
// with a type assertion by the package that produced it.
type Handle struct {
	Kind string
	Obj  interface{}
}

// Value is a tagged union over the LexFlow value space: integers, floats,
// booleans, strings, ordered sequences, string-keyed mappings, opaque
// handles, and a null/unit marker.
type Value struct {
	typ       ValueType
	boolVal   bool
	intVal    int64
	doubleVal float64
	stringVal string
	listVal   []Value
	mapVal    *OrderedMap
	handleVal Handle
}

// OrderedMap preserves insertion order for map keys, so that iteration and
// JSON projection are deterministic regardless of Go's randomized map order.
type OrderedMap struct {
	keys   []string
	values map[string]Value
}

// NewOrderedMap creates a new empty ordered map.
func NewOrderedMap() *OrderedMap {
	return &OrderedMap{
		keys:   make([]string, 0),
		values: make(map[string]Value),
	}
}

// Get retrieves a value by key. Returns the value and whether it exists.
func (m *OrderedMap) Get(key string) (Value, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Set adds or updates a key-value pair, preserving insertion order.
func (m *OrderedMap) Set(key string, val Value) {
	if _, exists := m.values[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.values[key] = val
}

// Delete removes a key from the map.
func (m *OrderedMap) Delete(key string) {
	if _, exists := m.values[key]; !exists {
		return
	}
	delete(m.values, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in insertion order.
func (m *OrderedMap) Keys() []string {
	result := make([]string, len(m.keys))
	copy(result, m.keys)
	return result
}

// Len returns the number of entries.
func (m *OrderedMap) Len() int {
	return len(m.keys)
}

// Clone creates a deep copy of the ordered map.
func (m *OrderedMap) Clone() *OrderedMap {
	c := NewOrderedMap()
	for _, k := range m.keys {
		c.Set(k, m.values[k].Clone())
	}
	return c
}

// Null is the singleton null value.
var Null = Value{typ: TypeNull}

func NewBool(v bool) Value     { return Value{typ: TypeBool, boolVal: v} }
func NewInt(v int64) Value     { return Value{typ: TypeInt, intVal: v} }
func NewDouble(v float64) Value { return Value{typ: TypeDouble, doubleVal: v} }
func NewString(v string) Value { return Value{typ: TypeString, stringVal: v} }
func NewList(v []Value) Value  { return Value{typ: TypeList, listVal: v} }
func NewMap(v *OrderedMap) Value { return Value{typ: TypeMap, mapVal: v} }

// NewHandle wraps an opaque engine object (Channel, LexFlowTask, ...) as a Value.
func NewHandle(kind string, obj interface{}) Value {
	return Value{typ: TypeHandle, handleVal: Handle{Kind: kind, Obj: obj}}
}

// NewMapFromGoMap creates a map value from a Go map (keys sorted alphabetically
// for determinism, since Go map iteration order is randomized).
func NewMapFromGoMap(m map[string]Value) Value {
	om := NewOrderedMap()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		om.Set(k, m[k])
	}
	return Value{typ: TypeMap, mapVal: om}
}

func (v Value) Type() ValueType { return v.typ }
func (v Value) IsNull() bool    { return v.typ == TypeNull }

func (v Value) AsBool() bool {
	if v.typ != TypeBool {
		panic(fmt.Sprintf("AsBool called on %s value", v.typ))
	}
	return v.boolVal
}

func (v Value) AsInt() int64 {
	if v.typ != TypeInt {
		panic(fmt.Sprintf("AsInt called on %s value", v.typ))
	}
	return v.intVal
}

func (v Value) AsDouble() float64 {
	if v.typ != TypeDouble {
		panic(fmt.Sprintf("AsDouble called on %s value", v.typ))
	}
	return v.doubleVal
}

func (v Value) AsString() string {
	if v.typ != TypeString {
		panic(fmt.Sprintf("AsString called on %s value", v.typ))
	}
	return v.stringVal
}

func (v Value) AsList() []Value {
	if v.typ != TypeList {
		panic(fmt.Sprintf("AsList called on %s value", v.typ))
	}
	return v.listVal
}

func (v Value) AsMap() *OrderedMap {
	if v.typ != TypeMap {
		panic(fmt.Sprintf("AsMap called on %s value", v.typ))
	}
	return v.mapVal
}

func (v Value) AsHandle() Handle {
	if v.typ != TypeHandle {
		panic(fmt.Sprintf("AsHandle called on %s value", v.typ))
	}
	return v.handleVal
}

// AsNumber returns the numeric value as float64. Works for int and double types.
func (v Value) AsNumber() (float64, bool) {
	switch v.typ {
	case TypeInt:
		return float64(v.intVal), true
	case TypeDouble:
		return v.doubleVal, true
	default:
		return 0, false
	}
}

// Truthy implements the host-language's standard truthiness: non-zero
// numbers, non-empty sequences/mappings, non-empty strings, non-null handles.
// Null, false, zero numbers, the empty string and empty lists/maps are falsy.
func (v Value) Truthy() bool {
	switch v.typ {
	case TypeNull:
		return false
	case TypeBool:
		return v.boolVal
	case TypeInt:
		return v.intVal != 0
	case TypeDouble:
		return v.doubleVal != 0
	case TypeString:
		return v.stringVal != ""
	case TypeList:
		return len(v.listVal) > 0
	case TypeMap:
		return v.mapVal.Len() > 0
	case TypeHandle:
		return true
	default:
		return true
	}
}

// Clone creates a deep copy of the value. Handles are reference-shared, not
// copied: a Channel or Task is the same engine-managed object wherever it is
// bound.
func (v Value) Clone() Value {
	switch v.typ {
	case TypeList:
		items := make([]Value, len(v.listVal))
		for i, item := range v.listVal {
			items[i] = item.Clone()
		}
		return NewList(items)
	case TypeMap:
		return NewMap(v.mapVal.Clone())
	default:
		return v
	}
}

// Equal tests deep equality between two values. Int and double compare
// numerically across types.
func (v Value) Equal(other Value) bool {
	if v.typ != other.typ {
		if (v.typ == TypeInt || v.typ == TypeDouble) && (other.typ == TypeInt || other.typ == TypeDouble) {
			a, _ := v.AsNumber()
			b, _ := other.AsNumber()
			return a == b
		}
		return false
	}
	switch v.typ {
	case TypeNull:
		return true
	case TypeBool:
		return v.boolVal == other.boolVal
	case TypeInt:
		return v.intVal == other.intVal
	case TypeDouble:
		return v.doubleVal == other.doubleVal
	case TypeString:
		return v.stringVal == other.stringVal
	case TypeList:
		if len(v.listVal) != len(other.listVal) {
			return false
		}
		for i := range v.listVal {
			if !v.listVal[i].Equal(other.listVal[i]) {
				return false
			}
		}
		return true
	case TypeMap:
		if v.mapVal.Len() != other.mapVal.Len() {
			return false
		}
		for _, k := range v.mapVal.Keys() {
			ov, ok := other.mapVal.Get(k)
			if !ok {
				return false
			}
			mv, _ := v.mapVal.Get(k)
			if !mv.Equal(ov) {
				return false
			}
		}
		return true
	case TypeHandle:
		return v.handleVal.Kind == other.handleVal.Kind && v.handleVal.Obj == other.handleVal.Obj
	}
	return false
}

// String returns a human-readable representation of the value for debugging
// and for opcodes (such as Throw) that need the value's string form.
func (v Value) String() string {
	switch v.typ {
	case TypeNull:
		return "null"
	case TypeBool:
		if v.boolVal {
			return "true"
		}
		return "false"
	case TypeInt:
		return fmt.Sprintf("%d", v.intVal)
	case TypeDouble:
		if v.doubleVal == math.Trunc(v.doubleVal) && !math.IsInf(v.doubleVal, 0) {
			return fmt.Sprintf("%.1f", v.doubleVal)
		}
		return fmt.Sprintf("%g", v.doubleVal)
	case TypeString:
		return v.stringVal
	case TypeList:
		parts := make([]string, len(v.listVal))
		for i, item := range v.listVal {
			parts[i] = item.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case TypeMap:
		parts := make([]string, 0, v.mapVal.Len())
		for _, k := range v.mapVal.Keys() {
			val, _ := v.mapVal.Get(k)
			parts = append(parts, fmt.Sprintf("%s: %s", k, val.String()))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case TypeHandle:
		return fmt.Sprintf("<%s>", v.handleVal.Kind)
	}
	return "<unknown>"
}

// MarshalJSON projects a Value to JSON. Handles have no JSON form and marshal
// as a descriptive string, matching how the metrics/introspection surfaces
// report them.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.typ {
	case TypeNull:
		return []byte("null"), nil
	case TypeBool:
		if v.boolVal {
			return []byte("true"), nil
		}
		return []byte("false"), nil
	case TypeInt:
		return json.Marshal(v.intVal)
	case TypeDouble:
		return json.Marshal(v.doubleVal)
	case TypeString:
		return json.Marshal(v.stringVal)
	case TypeList:
		items := make([]json.RawMessage, len(v.listVal))
		for i, item := range v.listVal {
			b, err := item.MarshalJSON()
			if err != nil {
				return nil, err
			}
			items[i] = b
		}
		return json.Marshal(items)
	case TypeMap:
		buf := []byte{'{'}
		for i, k := range v.mapVal.Keys() {
			if i > 0 {
				buf = append(buf, ',')
			}
			keyBytes, err := json.Marshal(k)
			if err != nil {
				return nil, err
			}
			buf = append(buf, keyBytes...)
			buf = append(buf, ':')
			val, _ := v.mapVal.Get(k)
			valBytes, err := val.MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf = append(buf, valBytes...)
		}
		buf = append(buf, '}')
		return buf, nil
	case TypeHandle:
		return json.Marshal(v.String())
	}
	return nil, fmt.Errorf("cannot marshal unknown type %d", v.typ)
}

// ValueFromJSON converts a Go interface{} (from json.Unmarshal or yaml.v3's
// decode-to-interface{} mode) into a Value.
func ValueFromJSON(v interface{}) Value {
	if v == nil {
		return Null
	}
	switch val := v.(type) {
	case bool:
		return NewBool(val)
	case int:
		return NewInt(int64(val))
	case int64:
		return NewInt(val)
	case float64:
		if val == math.Trunc(val) && !math.IsInf(val, 0) && val >= math.MinInt64 && val <= math.MaxInt64 {
			return NewInt(int64(val))
		}
		return NewDouble(val)
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return NewInt(i)
		}
		if f, err := val.Float64(); err == nil {
			return NewDouble(f)
		}
		return NewString(val.String())
	case string:
		return NewString(val)
	case []interface{}:
		items := make([]Value, len(val))
		for i, item := range val {
			items[i] = ValueFromJSON(item)
		}
		return NewList(items)
	case []Value:
		return NewList(val)
	case map[string]interface{}:
		m := NewOrderedMap()
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			m.Set(k, ValueFromJSON(val[k]))
		}
		return NewMap(m)
	// yaml.v3's Unmarshal-to-interface{} mode produces map[interface{}]interface{}
	// for nested mappings rather than map[string]interface{}.
	case map[interface{}]interface{}:
		m := NewOrderedMap()
		keys := make([]string, 0, len(val))
		keyed := make(map[string]interface{}, len(val))
		for k, vv := range val {
			ks := fmt.Sprintf("%v", k)
			keys = append(keys, ks)
			keyed[ks] = vv
		}
		sort.Strings(keys)
		for _, k := range keys {
			m.Set(k, ValueFromJSON(keyed[k]))
		}
		return NewMap(m)
	default:
		return NewString(fmt.Sprintf("%v", val))
	}
}

// ToGoValue converts a Value to a plain Go interface{} suitable for JSON marshaling.
func (v Value) ToGoValue() interface{} {
	switch v.typ {
	case TypeNull:
		return nil
	case TypeBool:
		return v.boolVal
	case TypeInt:
		return v.intVal
	case TypeDouble:
		return v.doubleVal
	case TypeString:
		return v.stringVal
	case TypeList:
		result := make([]interface{}, len(v.listVal))
		for i, item := range v.listVal {
			result[i] = item.ToGoValue()
		}
		return result
	case TypeMap:
		result := make(map[string]interface{}, v.mapVal.Len())
		for _, k := range v.mapVal.Keys() {
			val, _ := v.mapVal.Get(k)
			result[k] = val.ToGoValue()
		}
		return result
	case TypeHandle:
		return v.String()
	}
	return nil
}
