// Package stdlib provides LexFlow's default opcode set: arithmetic and
// comparison operators, io/text/list/map/math helpers, the handful of
// encoding/hashing/identifier utilities a workflow graph commonly reaches
// for, and the two privileged placeholders (introspect_context and
// runtime.ToolHandleOpcode) a host injects a real implementation for via
// runtime.WithContextProvider. Hosts are also free to Inject over any
// non-privileged opcode (e.g. to sandbox io_print).
package stdlib

import (
	"github.com/lemonberrylabs/lexflow/pkg/runtime"
)

// NewRegistry builds an OpcodeRegistry with the full default opcode set
// installed, the same way the teacher's stdlib.NewRegistry wires its
// registrants together. Callers that want a bare registry (e.g. to register
// only a handpicked opcode set for a sandboxed host) should call
// runtime.NewOpcodeRegistry directly instead.
func NewRegistry() *runtime.OpcodeRegistry {
	r := runtime.NewOpcodeRegistry()
	registerOperators(r)
	registerIO(r)
	registerMath(r)
	registerText(r)
	registerList(r)
	registerMap(r)
	registerObject(r)
	registerConversions(r)
	registerJSON(r)
	registerBase64(r)
	registerHash(r)
	registerUUID(r)
	registerTime(r)
	registerThrowAssert(r)

	// Both privileged opcodes are placeholders until the host injects a real
	// implementation via runtime.WithContextProvider; calling either without
	// injection raises a RuntimeError naming the opcode.
	r.RegisterPrivileged("introspect_context")
	r.RegisterPrivileged(runtime.ToolHandleOpcode)
	return r
}
