package stdlib

import (
	"context"

	"github.com/lemonberrylabs/lexflow/pkg/runtime"
	"github.com/lemonberrylabs/lexflow/pkg/types"
)

// registerList installs the list_* opcodes. list_append and friends return
// a new list rather than mutating in place, matching a Value's copy-on-write
// Clone semantics and opcodes.py's list_append (which copies before
// appending).
func registerList(r *runtime.OpcodeRegistry) {
	r.RegisterCategorized("list_length", 1, 1, "list", func(_ context.Context, args []types.Value) (types.Value, error) {
		items, err := requireList("list_length", args[0])
		if err != nil {
			return types.Null, err
		}
		return types.NewInt(int64(len(items))), nil
	})
	r.RegisterCategorized("list_get", 2, 2, "list", listGet)
	r.RegisterCategorized("list_append", 2, 2, "list", listAppend)
	r.RegisterCategorized("list_contains", 2, 2, "list", listContains)
	r.RegisterCategorized("list_range", 1, 3, "list", listRange)
	r.RegisterCategorized("list_pluck", 2, 2, "list", listPluck)
	r.RegisterCategorized("list_enumerate", 1, 2, "list", listEnumerate)
	r.RegisterCategory(runtime.Category{ID: "list", Label: "Lists", NamePrefix: "list_", Color: "blue", DisplayOrder: 4})
}

func requireList(name string, v types.Value) ([]types.Value, error) {
	if v.Type() != types.TypeList {
		return nil, types.NewTypeError(name + " requires a list argument")
	}
	return v.AsList(), nil
}

func listGet(_ context.Context, args []types.Value) (types.Value, error) {
	items, err := requireList("list_get", args[0])
	if err != nil {
		return types.Null, err
	}
	idx, ok := args[1].AsNumber()
	if !ok {
		return types.Null, types.NewTypeError("list_get requires a numeric index")
	}
	i := int(idx)
	if i < 0 || i >= len(items) {
		return types.Null, types.NewIndexError("list index out of range")
	}
	return items[i], nil
}

func listAppend(_ context.Context, args []types.Value) (types.Value, error) {
	items, err := requireList("list_append", args[0])
	if err != nil {
		return types.Null, err
	}
	out := make([]types.Value, len(items)+1)
	copy(out, items)
	out[len(items)] = args[1]
	return types.NewList(out), nil
}

func listContains(_ context.Context, args []types.Value) (types.Value, error) {
	items, err := requireList("list_contains", args[0])
	if err != nil {
		return types.Null, err
	}
	for _, v := range items {
		if v.Equal(args[1]) {
			return types.NewBool(true), nil
		}
	}
	return types.NewBool(false), nil
}

func listRange(_ context.Context, args []types.Value) (types.Value, error) {
	var start, stop int64
	step := int64(1)
	if len(args) == 1 {
		stop = args[0].AsInt()
	} else {
		start = args[0].AsInt()
		stop = args[1].AsInt()
		if len(args) == 3 {
			step = args[2].AsInt()
		}
	}
	if step == 0 {
		return types.Null, types.NewValueError("list_range: step must not be zero")
	}
	var out []types.Value
	if step > 0 {
		for i := start; i < stop; i += step {
			out = append(out, types.NewInt(i))
		}
	} else {
		for i := start; i > stop; i += step {
			out = append(out, types.NewInt(i))
		}
	}
	if out == nil {
		out = []types.Value{}
	}
	return types.NewList(out), nil
}

func listPluck(_ context.Context, args []types.Value) (types.Value, error) {
	items, err := requireList("list_pluck", args[0])
	if err != nil {
		return types.Null, err
	}
	key := args[1].String()
	out := make([]types.Value, 0, len(items))
	for _, item := range items {
		if item.Type() != types.TypeMap {
			return types.Null, types.NewTypeError("list_pluck requires a list of maps")
		}
		v, ok := item.AsMap().Get(key)
		if !ok {
			return types.Null, types.NewKeyError("list_pluck: key not found: " + key)
		}
		out = append(out, v)
	}
	return types.NewList(out), nil
}

func listEnumerate(_ context.Context, args []types.Value) (types.Value, error) {
	items, err := requireList("list_enumerate", args[0])
	if err != nil {
		return types.Null, err
	}
	start := int64(0)
	if len(args) == 2 {
		start = args[1].AsInt()
	}
	out := make([]types.Value, len(items))
	for i, item := range items {
		out[i] = types.NewList([]types.Value{types.NewInt(start + int64(i)), item})
	}
	return types.NewList(out), nil
}
