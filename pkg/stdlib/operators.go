package stdlib

import (
	"context"

	"github.com/lemonberrylabs/lexflow/pkg/runtime"
	"github.com/lemonberrylabs/lexflow/pkg/types"
)

// registerOperators installs the arithmetic, comparison, and logical
// operator opcodes every reporter node compiled from a binary expression
// resolves to. Grounded on opcodes.py's operator_* family: numeric
// coercion is permissive (operator_add falls back to string concatenation
// on non-numeric operands rather than raising TypeError).
func registerOperators(r *runtime.OpcodeRegistry) {
	r.RegisterCategorized("operator_add", 2, 2, "operator", opAdd)
	r.RegisterCategorized("operator_subtract", 2, 2, "operator", opArith("operator_subtract", func(a, b float64) float64 { return a - b }))
	r.RegisterCategorized("operator_multiply", 2, 2, "operator", opArith("operator_multiply", func(a, b float64) float64 { return a * b }))
	r.RegisterCategorized("operator_divide", 2, 2, "operator", opDivide)
	r.RegisterCategorized("operator_modulo", 2, 2, "operator", opModulo)

	r.RegisterCategorized("operator_equals", 2, 2, "operator", opEquals)
	r.RegisterCategorized("operator_not_equals", 2, 2, "operator", opNotEquals)
	r.RegisterCategorized("operator_less_than", 2, 2, "operator", opCompare("operator_less_than", func(a, b float64) bool { return a < b }))
	r.RegisterCategorized("operator_greater_than", 2, 2, "operator", opCompare("operator_greater_than", func(a, b float64) bool { return a > b }))
	r.RegisterCategorized("operator_less_than_or_equals", 2, 2, "operator", opCompare("operator_less_than_or_equals", func(a, b float64) bool { return a <= b }))
	r.RegisterCategorized("operator_greater_than_or_equals", 2, 2, "operator", opCompare("operator_greater_than_or_equals", func(a, b float64) bool { return a >= b }))

	r.RegisterCategorized("operator_and", 2, 2, "operator", func(_ context.Context, args []types.Value) (types.Value, error) {
		return types.NewBool(args[0].Truthy() && args[1].Truthy()), nil
	})
	r.RegisterCategorized("operator_or", 2, 2, "operator", func(_ context.Context, args []types.Value) (types.Value, error) {
		return types.NewBool(args[0].Truthy() || args[1].Truthy()), nil
	})
	r.RegisterCategorized("operator_not", 1, 1, "operator", func(_ context.Context, args []types.Value) (types.Value, error) {
		return types.NewBool(!args[0].Truthy()), nil
	})

	r.RegisterCategory(runtime.Category{ID: "operator", Label: "Operators", NamePrefix: "operator_", DisplayOrder: 1})
}

func bothNumeric(a, b types.Value) (float64, float64, bool) {
	na, ok := a.AsNumber()
	if !ok {
		return 0, 0, false
	}
	nb, ok := b.AsNumber()
	if !ok {
		return 0, 0, false
	}
	return na, nb, true
}

func bothInt(a, b types.Value) bool {
	return a.Type() == types.TypeInt && b.Type() == types.TypeInt
}

// opAdd mirrors operator_add's try/except fallback: numeric add when both
// sides coerce to a number, otherwise string concatenation of both sides'
// String() representation.
func opAdd(_ context.Context, args []types.Value) (types.Value, error) {
	a, b := args[0], args[1]
	if na, nb, ok := bothNumeric(a, b); ok {
		if bothInt(a, b) {
			return types.NewInt(a.AsInt() + b.AsInt()), nil
		}
		return types.NewDouble(na + nb), nil
	}
	return types.NewString(a.String() + b.String()), nil
}

func opArith(name string, fn func(a, b float64) float64) runtime.OpcodeFunc {
	return func(_ context.Context, args []types.Value) (types.Value, error) {
		a, b := args[0], args[1]
		na, nb, ok := bothNumeric(a, b)
		if !ok {
			return types.Null, types.NewTypeError(name + " requires numeric operands")
		}
		if bothInt(a, b) {
			return types.NewInt(int64(fn(na, nb))), nil
		}
		return types.NewDouble(fn(na, nb)), nil
	}
}

func opDivide(_ context.Context, args []types.Value) (types.Value, error) {
	na, nb, ok := bothNumeric(args[0], args[1])
	if !ok {
		return types.Null, types.NewTypeError("operator_divide requires numeric operands")
	}
	if nb == 0 {
		return types.Null, types.NewZeroDivisionError()
	}
	return types.NewDouble(na / nb), nil
}

func opModulo(_ context.Context, args []types.Value) (types.Value, error) {
	a, b := args[0], args[1]
	na, nb, ok := bothNumeric(a, b)
	if !ok {
		return types.Null, types.NewTypeError("operator_modulo requires numeric operands")
	}
	if nb == 0 {
		return types.Null, types.NewZeroDivisionError()
	}
	if bothInt(a, b) {
		return types.NewInt(a.AsInt() % b.AsInt()), nil
	}
	return types.NewDouble(float64(int64(na) % int64(nb))), nil
}

// opEquals coerces both operands to numbers for comparison when possible,
// truncating each to an integer before comparing — matching operator_equals'
// int(left) == int(right), under which 1 and 1.5 compare equal — and falls
// back to Value.Equal when either side isn't numeric.
func opEquals(_ context.Context, args []types.Value) (types.Value, error) {
	a, b := args[0], args[1]
	if na, nb, ok := bothNumeric(a, b); ok {
		return types.NewBool(int64(na) == int64(nb)), nil
	}
	return types.NewBool(a.Equal(b)), nil
}

func opNotEquals(ctx context.Context, args []types.Value) (types.Value, error) {
	v, err := opEquals(ctx, args)
	if err != nil {
		return types.Null, err
	}
	return types.NewBool(!v.AsBool()), nil
}

func opCompare(name string, fn func(a, b float64) bool) runtime.OpcodeFunc {
	return func(_ context.Context, args []types.Value) (types.Value, error) {
		na, nb, ok := bothNumeric(args[0], args[1])
		if ok {
			return types.NewBool(fn(na, nb)), nil
		}
		if args[0].Type() == types.TypeString && args[1].Type() == types.TypeString {
			switch name {
			case "operator_less_than":
				return types.NewBool(args[0].AsString() < args[1].AsString()), nil
			case "operator_greater_than":
				return types.NewBool(args[0].AsString() > args[1].AsString()), nil
			case "operator_less_than_or_equals":
				return types.NewBool(args[0].AsString() <= args[1].AsString()), nil
			case "operator_greater_than_or_equals":
				return types.NewBool(args[0].AsString() >= args[1].AsString()), nil
			}
		}
		return types.Null, types.NewTypeError(name + " requires comparable operands")
	}
}
