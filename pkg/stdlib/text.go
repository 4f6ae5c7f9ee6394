package stdlib

import (
	"context"
	"strings"

	"github.com/lemonberrylabs/lexflow/pkg/runtime"
	"github.com/lemonberrylabs/lexflow/pkg/types"
)

// registerText installs the string_* opcodes, grounded on opcodes.py's
// string_length/upper/lower/trim/split/join/contains/replace/substring/
// index_of/starts_with/ends_with.
func registerText(r *runtime.OpcodeRegistry) {
	r.RegisterCategorized("string_length", 1, 1, "string", textUnary(func(s string) types.Value { return types.NewInt(int64(len(s))) }))
	r.RegisterCategorized("string_upper", 1, 1, "string", textUnary(func(s string) types.Value { return types.NewString(strings.ToUpper(s)) }))
	r.RegisterCategorized("string_lower", 1, 1, "string", textUnary(func(s string) types.Value { return types.NewString(strings.ToLower(s)) }))
	r.RegisterCategorized("string_trim", 1, 1, "string", textUnary(func(s string) types.Value { return types.NewString(strings.TrimSpace(s)) }))
	r.RegisterCategorized("string_split", 1, 2, "string", stringSplit)
	r.RegisterCategorized("string_join", 1, 2, "string", stringJoin)
	r.RegisterCategorized("string_contains", 2, 2, "string", func(_ context.Context, args []types.Value) (types.Value, error) {
		return types.NewBool(strings.Contains(args[0].String(), args[1].String())), nil
	})
	r.RegisterCategorized("string_replace", 3, 3, "string", func(_ context.Context, args []types.Value) (types.Value, error) {
		return types.NewString(strings.ReplaceAll(args[0].String(), args[1].String(), args[2].String())), nil
	})
	r.RegisterCategorized("string_substring", 2, 3, "string", stringSubstring)
	r.RegisterCategorized("string_index_of", 2, 2, "string", func(_ context.Context, args []types.Value) (types.Value, error) {
		return types.NewInt(int64(strings.Index(args[0].String(), args[1].String()))), nil
	})
	r.RegisterCategorized("string_starts_with", 2, 2, "string", func(_ context.Context, args []types.Value) (types.Value, error) {
		return types.NewBool(strings.HasPrefix(args[0].String(), args[1].String())), nil
	})
	r.RegisterCategorized("string_ends_with", 2, 2, "string", func(_ context.Context, args []types.Value) (types.Value, error) {
		return types.NewBool(strings.HasSuffix(args[0].String(), args[1].String())), nil
	})
	r.RegisterCategory(runtime.Category{ID: "string", Label: "Strings", NamePrefix: "string_", Color: "pink", DisplayOrder: 3})
}

func textUnary(fn func(s string) types.Value) runtime.OpcodeFunc {
	return func(_ context.Context, args []types.Value) (types.Value, error) {
		return fn(args[0].String()), nil
	}
}

func stringSplit(_ context.Context, args []types.Value) (types.Value, error) {
	delim := " "
	if len(args) == 2 {
		delim = args[1].String()
	}
	parts := strings.Split(args[0].String(), delim)
	out := make([]types.Value, len(parts))
	for i, p := range parts {
		out[i] = types.NewString(p)
	}
	return types.NewList(out), nil
}

func stringJoin(_ context.Context, args []types.Value) (types.Value, error) {
	if args[0].Type() != types.TypeList {
		return types.Null, types.NewTypeError("string_join requires a list argument")
	}
	delim := ""
	if len(args) == 2 {
		delim = args[1].String()
	}
	items := args[0].AsList()
	parts := make([]string, len(items))
	for i, v := range items {
		parts[i] = v.String()
	}
	return types.NewString(strings.Join(parts, delim)), nil
}

func stringSubstring(_ context.Context, args []types.Value) (types.Value, error) {
	runes := []rune(args[0].String())
	start, ok := args[1].AsNumber()
	if !ok {
		return types.Null, types.NewTypeError("string_substring requires numeric indices")
	}
	startIdx := int(start)
	endIdx := len(runes)
	if len(args) == 3 && !args[2].IsNull() {
		end, ok := args[2].AsNumber()
		if !ok {
			return types.Null, types.NewTypeError("string_substring requires numeric indices")
		}
		endIdx = int(end)
	}
	if startIdx < 0 || endIdx > len(runes) || startIdx > endIdx {
		return types.Null, types.NewIndexError("string_substring: index out of range")
	}
	return types.NewString(string(runes[startIdx:endIdx])), nil
}
