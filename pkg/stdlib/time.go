package stdlib

import (
	"context"
	"time"

	"github.com/lemonberrylabs/lexflow/pkg/runtime"
	"github.com/lemonberrylabs/lexflow/pkg/types"
)

// registerTime installs time_now/sleep. sleep honors ctx cancellation so a
// sleeping opcode call inside an async_timeout body unblocks as soon as the
// deadline fires rather than running the full duration to completion.
func registerTime(r *runtime.OpcodeRegistry) {
	r.RegisterCategorized("time_now", 0, 0, "io", func(_ context.Context, _ []types.Value) (types.Value, error) {
		return types.NewDouble(float64(time.Now().UnixNano()) / 1e9), nil
	})
	r.RegisterCategorized("sleep", 1, 1, "io", func(ctx context.Context, args []types.Value) (types.Value, error) {
		seconds, ok := args[0].AsNumber()
		if !ok {
			return types.Null, types.NewTypeError("sleep requires a numeric duration")
		}
		if seconds <= 0 {
			return types.Null, nil
		}
		timer := time.NewTimer(time.Duration(seconds * float64(time.Second)))
		defer timer.Stop()
		select {
		case <-timer.C:
			return types.Null, nil
		case <-ctx.Done():
			return types.Null, ctx.Err()
		}
	})
}
