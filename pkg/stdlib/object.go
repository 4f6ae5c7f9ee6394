package stdlib

import (
	"context"

	"github.com/lemonberrylabs/lexflow/pkg/runtime"
	"github.com/lemonberrylabs/lexflow/pkg/types"
)

// registerObject installs object_* opcodes. The original's SimpleNamespace
// distinction between dict and object collapses here: LexFlow has one map
// value kind, so object_* is simply a property-access-flavored view over
// the same OrderedMap that dict_* uses.
func registerObject(r *runtime.OpcodeRegistry) {
	r.RegisterCategorized("object_create", 0, 0, "object", func(_ context.Context, _ []types.Value) (types.Value, error) {
		return types.NewMap(types.NewOrderedMap()), nil
	})
	r.RegisterCategorized("object_from_dict", 1, 1, "object", func(_ context.Context, args []types.Value) (types.Value, error) {
		m, err := requireMap("object_from_dict", args[0])
		if err != nil {
			return types.Null, err
		}
		return types.NewMap(m.Clone()), nil
	})
	r.RegisterCategorized("object_get", 2, 3, "object", dictGet)
	r.RegisterCategorized("object_set", 3, 3, "object", dictSet)
	r.RegisterCategorized("object_has", 2, 2, "object", func(_ context.Context, args []types.Value) (types.Value, error) {
		m, err := requireMap("object_has", args[0])
		if err != nil {
			return types.Null, err
		}
		_, ok := m.Get(args[1].String())
		return types.NewBool(ok), nil
	})
	r.RegisterCategorized("object_remove", 2, 2, "object", func(_ context.Context, args []types.Value) (types.Value, error) {
		m, err := requireMap("object_remove", args[0])
		if err != nil {
			return types.Null, err
		}
		m.Delete(args[1].String())
		return types.NewMap(m), nil
	})
	r.RegisterCategorized("object_keys", 1, 1, "object", dictKeys)
	r.RegisterCategorized("object_to_dict", 1, 1, "object", func(_ context.Context, args []types.Value) (types.Value, error) {
		m, err := requireMap("object_to_dict", args[0])
		if err != nil {
			return types.Null, err
		}
		return types.NewMap(m.Clone()), nil
	})
	r.RegisterCategory(runtime.Category{ID: "object", Label: "Objects", NamePrefix: "object_", Color: "green", DisplayOrder: 6})
}
