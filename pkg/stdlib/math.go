package stdlib

import (
	"context"
	"crypto/rand"
	"math"
	"math/big"

	"github.com/lemonberrylabs/lexflow/pkg/runtime"
	"github.com/lemonberrylabs/lexflow/pkg/types"
)

// registerMath installs the math_* opcodes. Grounded on opcodes.py's
// math_random/math_abs/math_pow/math_sqrt/math_floor/math_ceil, using
// crypto/rand rather than math/rand for math_random since a workflow
// engine's randomness has no reason to be predictable across runs.
func registerMath(r *runtime.OpcodeRegistry) {
	r.RegisterCategorized("math_random", 2, 2, "math", mathRandom)
	r.RegisterCategorized("math_abs", 1, 1, "math", mathAbs)
	r.RegisterCategorized("math_pow", 2, 2, "math", mathPow)
	r.RegisterCategorized("math_sqrt", 1, 1, "math", mathSqrt)
	r.RegisterCategorized("math_floor", 1, 1, "math", mathFloor)
	r.RegisterCategorized("math_ceil", 1, 1, "math", mathCeil)
	r.RegisterCategory(runtime.Category{ID: "math", Label: "Math", NamePrefix: "math_", Color: "violet", DisplayOrder: 2})
}

func mathRandom(_ context.Context, args []types.Value) (types.Value, error) {
	lo, ok := args[0].AsNumber()
	if !ok {
		return types.Null, types.NewTypeError("math_random requires numeric bounds")
	}
	hi, ok := args[1].AsNumber()
	if !ok {
		return types.Null, types.NewTypeError("math_random requires numeric bounds")
	}
	min, max := int64(lo), int64(hi)
	if max < min {
		return types.Null, types.NewValueError("math_random: max must be >= min")
	}
	span := max - min + 1
	n, err := rand.Int(rand.Reader, big.NewInt(span))
	if err != nil {
		return types.Null, types.NewRuntimeError("math_random: " + err.Error())
	}
	return types.NewInt(min + n.Int64()), nil
}

func mathAbs(_ context.Context, args []types.Value) (types.Value, error) {
	v := args[0]
	switch v.Type() {
	case types.TypeInt:
		i := v.AsInt()
		if i < 0 {
			return types.NewInt(-i), nil
		}
		return v, nil
	case types.TypeDouble:
		return types.NewDouble(math.Abs(v.AsDouble())), nil
	default:
		return types.Null, types.NewTypeError("math_abs requires a number argument")
	}
}

func mathPow(_ context.Context, args []types.Value) (types.Value, error) {
	a, b := args[0], args[1]
	na, nb, ok := bothNumeric(a, b)
	if !ok {
		return types.Null, types.NewTypeError("math_pow requires numeric operands")
	}
	if bothInt(a, b) && nb >= 0 {
		return types.NewInt(int64(math.Pow(na, nb))), nil
	}
	return types.NewDouble(math.Pow(na, nb)), nil
}

func mathSqrt(_ context.Context, args []types.Value) (types.Value, error) {
	n, ok := args[0].AsNumber()
	if !ok {
		return types.Null, types.NewTypeError("math_sqrt requires a number argument")
	}
	if n < 0 {
		return types.Null, types.NewValueError("math_sqrt: negative argument")
	}
	return types.NewDouble(math.Sqrt(n)), nil
}

func mathFloor(_ context.Context, args []types.Value) (types.Value, error) {
	v := args[0]
	if v.Type() == types.TypeInt {
		return v, nil
	}
	n, ok := v.AsNumber()
	if !ok {
		return types.Null, types.NewTypeError("math_floor requires a number argument")
	}
	return types.NewInt(int64(math.Floor(n))), nil
}

func mathCeil(_ context.Context, args []types.Value) (types.Value, error) {
	v := args[0]
	if v.Type() == types.TypeInt {
		return v, nil
	}
	n, ok := v.AsNumber()
	if !ok {
		return types.Null, types.NewTypeError("math_ceil requires a number argument")
	}
	return types.NewInt(int64(math.Ceil(n))), nil
}
