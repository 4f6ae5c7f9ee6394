package stdlib

import (
	"context"

	"github.com/lemonberrylabs/lexflow/pkg/runtime"
	"github.com/lemonberrylabs/lexflow/pkg/types"
)

// registerThrowAssert installs the throw_*/assert_* opcodes. Unlike
// control_throw (a statement the parser lowers to ast.Throw, always
// raising RuntimeError with a plain message), these are ordinary opcodes
// that raise a specific error Kind, for use from reporter position inside
// an expression tree.
func registerThrowAssert(r *runtime.OpcodeRegistry) {
	r.RegisterCategorized("throw_value_error", 1, 1, "throw", func(_ context.Context, args []types.Value) (types.Value, error) {
		return types.Null, types.NewValueError(args[0].String())
	})
	r.RegisterCategorized("throw_type_error", 1, 1, "throw", func(_ context.Context, args []types.Value) (types.Value, error) {
		return types.Null, types.NewTypeError(args[0].String())
	})
	r.RegisterCategorized("throw_assertion_error", 1, 1, "throw", func(_ context.Context, args []types.Value) (types.Value, error) {
		return types.Null, types.NewAssertionError(args[0].String())
	})
	r.RegisterCategory(runtime.Category{ID: "throw", Label: "Errors", NamePrefix: "throw_", Color: "red", DisplayOrder: 8})

	r.RegisterCategorized("assert_true", 1, 2, "assert", func(_ context.Context, args []types.Value) (types.Value, error) {
		if !args[0].Truthy() {
			msg := "Assertion failed"
			if len(args) == 2 {
				msg = args[1].String()
			}
			return types.Null, types.NewAssertionError(msg)
		}
		return types.Null, nil
	})
	r.RegisterCategorized("assert_equals", 2, 3, "assert", func(_ context.Context, args []types.Value) (types.Value, error) {
		if !args[0].Equal(args[1]) {
			msg := "Values not equal"
			if len(args) == 3 {
				msg = args[2].String()
			}
			return types.Null, types.NewAssertionError(msg + ": " + args[0].String() + " != " + args[1].String())
		}
		return types.Null, nil
	})
	r.RegisterCategory(runtime.Category{ID: "assert", Label: "Assertions", NamePrefix: "assert_", Color: "orange", DisplayOrder: 9})
}
