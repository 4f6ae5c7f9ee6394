package stdlib

import (
	"context"
	"strconv"

	"github.com/lemonberrylabs/lexflow/pkg/runtime"
	"github.com/lemonberrylabs/lexflow/pkg/types"
)

// registerConversions installs the conversion opcodes plus the bare
// len/range helpers under the "type" category, all unprefixed
// ("str"/"int"/"float"/"bool"/"len"/"range"/"type", matching the teacher's
// convention of leaving generic helpers unprefixed rather than forcing a
// category prefix onto them).
func registerConversions(r *runtime.OpcodeRegistry) {
	r.RegisterCategorized("str", 1, 1, "type", func(_ context.Context, args []types.Value) (types.Value, error) {
		return types.NewString(args[0].String()), nil
	})
	r.RegisterCategorized("int", 1, 1, "type", toInt)
	r.RegisterCategorized("float", 1, 1, "type", toFloat)
	r.RegisterCategorized("bool", 1, 1, "type", func(_ context.Context, args []types.Value) (types.Value, error) {
		return types.NewBool(args[0].Truthy()), nil
	})
	r.RegisterCategorized("len", 1, 1, "type", lengthOf)
	r.RegisterCategorized("range", 1, 3, "type", listRange)
	r.RegisterCategorized("type", 1, 1, "type", func(_ context.Context, args []types.Value) (types.Value, error) {
		return types.NewString(args[0].Type().String()), nil
	})
	r.RegisterCategory(runtime.Category{ID: "type", Label: "Type Conversions", NamePrefix: "", Color: "gray", DisplayOrder: 7})
}

func toInt(_ context.Context, args []types.Value) (types.Value, error) {
	v := args[0]
	switch v.Type() {
	case types.TypeInt:
		return v, nil
	case types.TypeDouble:
		return types.NewInt(int64(v.AsDouble())), nil
	case types.TypeBool:
		if v.AsBool() {
			return types.NewInt(1), nil
		}
		return types.NewInt(0), nil
	case types.TypeString:
		i, err := strconv.ParseInt(v.AsString(), 10, 64)
		if err == nil {
			return types.NewInt(i), nil
		}
		f, ferr := strconv.ParseFloat(v.AsString(), 64)
		if ferr != nil {
			return types.Null, types.NewValueError("cannot convert " + strconv.Quote(v.AsString()) + " to int")
		}
		return types.NewInt(int64(f)), nil
	default:
		return types.Null, types.NewTypeError("cannot convert value to int")
	}
}

func toFloat(_ context.Context, args []types.Value) (types.Value, error) {
	v := args[0]
	switch v.Type() {
	case types.TypeDouble:
		return v, nil
	case types.TypeInt:
		return types.NewDouble(float64(v.AsInt())), nil
	case types.TypeBool:
		if v.AsBool() {
			return types.NewDouble(1), nil
		}
		return types.NewDouble(0), nil
	case types.TypeString:
		f, err := strconv.ParseFloat(v.AsString(), 64)
		if err != nil {
			return types.Null, types.NewValueError("cannot convert " + strconv.Quote(v.AsString()) + " to float")
		}
		return types.NewDouble(f), nil
	default:
		return types.Null, types.NewTypeError("cannot convert value to float")
	}
}

func lengthOf(_ context.Context, args []types.Value) (types.Value, error) {
	switch args[0].Type() {
	case types.TypeString:
		return types.NewInt(int64(len([]rune(args[0].AsString())))), nil
	case types.TypeList:
		return types.NewInt(int64(len(args[0].AsList()))), nil
	case types.TypeMap:
		return types.NewInt(int64(args[0].AsMap().Len())), nil
	default:
		return types.Null, types.NewTypeError("len() not supported for this value")
	}
}

