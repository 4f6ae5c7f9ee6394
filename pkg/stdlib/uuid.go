package stdlib

import (
	"context"

	"github.com/google/uuid"

	"github.com/lemonberrylabs/lexflow/pkg/runtime"
	"github.com/lemonberrylabs/lexflow/pkg/types"
)

// registerUUID installs uuid, matching google/uuid's use elsewhere in the
// runtime (Channel and TaskManager ids) rather than hand-rolling v4
// generation the way the teacher's stdlib does.
func registerUUID(r *runtime.OpcodeRegistry) {
	r.RegisterCategorized("uuid", 0, 0, "io", func(_ context.Context, _ []types.Value) (types.Value, error) {
		return types.NewString(uuid.NewString()), nil
	})
}
