package stdlib

import (
	"context"
	"encoding/json"

	"github.com/lemonberrylabs/lexflow/pkg/runtime"
	"github.com/lemonberrylabs/lexflow/pkg/types"
)

// registerJSON installs json_encode/json_decode, grounded on opcodes.py's
// json.encode/json.decode but LexFlow-cased and returning strings: there is
// no bytes value kind in LexFlow's Value model, so encoded JSON is always a
// string.
func registerJSON(r *runtime.OpcodeRegistry) {
	r.RegisterCategorized("json_decode", 1, 1, "io", func(_ context.Context, args []types.Value) (types.Value, error) {
		if args[0].Type() != types.TypeString {
			return types.Null, types.NewTypeError("json_decode requires a string argument")
		}
		var raw interface{}
		if err := json.Unmarshal([]byte(args[0].AsString()), &raw); err != nil {
			return types.Null, types.NewValueError("json_decode: invalid JSON: " + err.Error())
		}
		return types.ValueFromJSON(raw), nil
	})
	r.RegisterCategorized("json_encode", 1, 1, "io", func(_ context.Context, args []types.Value) (types.Value, error) {
		b, err := args[0].MarshalJSON()
		if err != nil {
			return types.Null, types.NewRuntimeError("json_encode: " + err.Error())
		}
		return types.NewString(string(b)), nil
	})
}
