package stdlib

import (
	"context"
	"fmt"

	"github.com/lemonberrylabs/lexflow/pkg/runtime"
	"github.com/lemonberrylabs/lexflow/pkg/types"
)

// registerIO installs io_print, the one opcode a workflow graph uses to
// produce observable side effects on stdout. It writes to the output sink
// bound into ctx by Engine.Run (runtime.WithOutput), falling back to
// os.Stdout when none was bound, so a host can capture or redirect a run's
// output without reconfiguring the process's global stdout.
func registerIO(r *runtime.OpcodeRegistry) {
	r.RegisterCategorized("io_print", 0, -1, "io", func(ctx context.Context, args []types.Value) (types.Value, error) {
		parts := make([]interface{}, len(args))
		for i, a := range args {
			parts[i] = a.String()
		}
		fmt.Fprintln(runtime.OutputWriter(ctx), parts...)
		return types.Null, nil
	})
	r.RegisterCategory(runtime.Category{ID: "io", Label: "Input/Output", NamePrefix: "io_", Color: "cyan", DisplayOrder: 0})
}
