package stdlib

import (
	"context"

	"github.com/lemonberrylabs/lexflow/pkg/runtime"
	"github.com/lemonberrylabs/lexflow/pkg/types"
)

// registerMap installs the dict_* opcodes over LexFlow's OrderedMap.
// dict_set/dict_update/dict_clear return the same map they were given
// (OrderedMap is a reference type, same as opcodes.py's in-place dict
// mutations returning the mutated dict for chaining); dict_pop removes the
// key in place and returns the removed value (or the given default).
func registerMap(r *runtime.OpcodeRegistry) {
	r.RegisterCategorized("dict_create", 0, -1, "dict", dictCreate)
	r.RegisterCategorized("dict_from_lists", 2, 2, "dict", dictFromLists)
	r.RegisterCategorized("dict_set", 3, 3, "dict", dictSet)
	r.RegisterCategorized("dict_get", 2, 3, "dict", dictGet)
	r.RegisterCategorized("dict_pop", 2, 3, "dict", dictPop)
	r.RegisterCategorized("dict_update", 2, 2, "dict", dictUpdate)
	r.RegisterCategorized("dict_clear", 1, 1, "dict", dictClear)
	r.RegisterCategorized("dict_copy", 1, 1, "dict", func(_ context.Context, args []types.Value) (types.Value, error) {
		m, err := requireMap("dict_copy", args[0])
		if err != nil {
			return types.Null, err
		}
		return types.NewMap(m.Clone()), nil
	})
	r.RegisterCategorized("dict_keys", 1, 1, "dict", dictKeys)
	r.RegisterCategorized("dict_values", 1, 1, "dict", func(_ context.Context, args []types.Value) (types.Value, error) {
		m, err := requireMap("dict_values", args[0])
		if err != nil {
			return types.Null, err
		}
		keys := m.Keys()
		out := make([]types.Value, len(keys))
		for i, k := range keys {
			v, _ := m.Get(k)
			out[i] = v
		}
		return types.NewList(out), nil
	})
	r.RegisterCategorized("dict_items", 1, 1, "dict", func(_ context.Context, args []types.Value) (types.Value, error) {
		m, err := requireMap("dict_items", args[0])
		if err != nil {
			return types.Null, err
		}
		keys := m.Keys()
		out := make([]types.Value, len(keys))
		for i, k := range keys {
			v, _ := m.Get(k)
			out[i] = types.NewList([]types.Value{types.NewString(k), v})
		}
		return types.NewList(out), nil
	})
	r.RegisterCategorized("dict_contains", 2, 2, "dict", func(_ context.Context, args []types.Value) (types.Value, error) {
		m, err := requireMap("dict_contains", args[0])
		if err != nil {
			return types.Null, err
		}
		_, ok := m.Get(args[1].String())
		return types.NewBool(ok), nil
	})
	r.RegisterCategorized("dict_len", 1, 1, "dict", func(_ context.Context, args []types.Value) (types.Value, error) {
		m, err := requireMap("dict_len", args[0])
		if err != nil {
			return types.Null, err
		}
		return types.NewInt(int64(m.Len())), nil
	})
	r.RegisterCategorized("dict_is_empty", 1, 1, "dict", func(_ context.Context, args []types.Value) (types.Value, error) {
		m, err := requireMap("dict_is_empty", args[0])
		if err != nil {
			return types.Null, err
		}
		return types.NewBool(m.Len() == 0), nil
	})
	r.RegisterCategory(runtime.Category{ID: "dict", Label: "Maps", NamePrefix: "dict_", Color: "amber", DisplayOrder: 5})
}

func dictKeys(_ context.Context, args []types.Value) (types.Value, error) {
	m, err := requireMap("dict_keys", args[0])
	if err != nil {
		return types.Null, err
	}
	keys := m.Keys()
	out := make([]types.Value, len(keys))
	for i, k := range keys {
		out[i] = types.NewString(k)
	}
	return types.NewList(out), nil
}

func requireMap(name string, v types.Value) (*types.OrderedMap, error) {
	if v.Type() != types.TypeMap {
		return nil, types.NewTypeError(name + " requires a map argument")
	}
	return v.AsMap(), nil
}

func dictCreate(_ context.Context, args []types.Value) (types.Value, error) {
	if len(args)%2 != 0 {
		return types.Null, types.NewValueError("dict_create requires an even number of arguments (key-value pairs)")
	}
	m := types.NewOrderedMap()
	for i := 0; i < len(args); i += 2 {
		m.Set(args[i].String(), args[i+1])
	}
	return types.NewMap(m), nil
}

func dictFromLists(_ context.Context, args []types.Value) (types.Value, error) {
	keys, err := requireList("dict_from_lists", args[0])
	if err != nil {
		return types.Null, err
	}
	values, err := requireList("dict_from_lists", args[1])
	if err != nil {
		return types.Null, err
	}
	m := types.NewOrderedMap()
	for i, k := range keys {
		if i >= len(values) {
			break
		}
		m.Set(k.String(), values[i])
	}
	return types.NewMap(m), nil
}

func dictSet(_ context.Context, args []types.Value) (types.Value, error) {
	m, err := requireMap("dict_set", args[0])
	if err != nil {
		return types.Null, err
	}
	m.Set(args[1].String(), args[2])
	return types.NewMap(m), nil
}

func dictGet(_ context.Context, args []types.Value) (types.Value, error) {
	m, err := requireMap("dict_get", args[0])
	if err != nil {
		return types.Null, err
	}
	if v, ok := m.Get(args[1].String()); ok {
		return v, nil
	}
	if len(args) == 3 {
		return args[2], nil
	}
	return types.Null, nil
}

func dictPop(_ context.Context, args []types.Value) (types.Value, error) {
	m, err := requireMap("dict_pop", args[0])
	if err != nil {
		return types.Null, err
	}
	key := args[1].String()
	v, ok := m.Get(key)
	if !ok {
		if len(args) == 3 {
			return args[2], nil
		}
		return types.Null, types.NewKeyError("dict_pop: key not found: " + key)
	}
	m.Delete(key)
	return v, nil
}

func dictUpdate(_ context.Context, args []types.Value) (types.Value, error) {
	m, err := requireMap("dict_update", args[0])
	if err != nil {
		return types.Null, err
	}
	other, err := requireMap("dict_update", args[1])
	if err != nil {
		return types.Null, err
	}
	for _, k := range other.Keys() {
		v, _ := other.Get(k)
		m.Set(k, v)
	}
	return types.NewMap(m), nil
}

func dictClear(_ context.Context, args []types.Value) (types.Value, error) {
	m, err := requireMap("dict_clear", args[0])
	if err != nil {
		return types.Null, err
	}
	for _, k := range m.Keys() {
		m.Delete(k)
	}
	return types.NewMap(m), nil
}
