package stdlib

import (
	"context"
	"encoding/base64"

	"github.com/lemonberrylabs/lexflow/pkg/runtime"
	"github.com/lemonberrylabs/lexflow/pkg/types"
)

// registerBase64 installs base64_encode/base64_decode.
func registerBase64(r *runtime.OpcodeRegistry) {
	r.RegisterCategorized("base64_encode", 1, 1, "io", func(_ context.Context, args []types.Value) (types.Value, error) {
		if args[0].Type() != types.TypeString {
			return types.Null, types.NewTypeError("base64_encode requires a string argument")
		}
		return types.NewString(base64.StdEncoding.EncodeToString([]byte(args[0].AsString()))), nil
	})
	r.RegisterCategorized("base64_decode", 1, 1, "io", func(_ context.Context, args []types.Value) (types.Value, error) {
		if args[0].Type() != types.TypeString {
			return types.Null, types.NewTypeError("base64_decode requires a string argument")
		}
		decoded, err := base64.StdEncoding.DecodeString(args[0].AsString())
		if err != nil {
			decoded, err = base64.URLEncoding.DecodeString(args[0].AsString())
			if err != nil {
				return types.Null, types.NewValueError("base64_decode: invalid base64: " + err.Error())
			}
		}
		return types.NewString(string(decoded)), nil
	})
}
