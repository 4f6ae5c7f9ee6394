package runtime

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/lemonberrylabs/lexflow/pkg/ast"
	"github.com/lemonberrylabs/lexflow/pkg/types"
)

// ToolHandleOpcode is the invented name for the spec's second privileged
// opcode, "an internal handle provider for workflow-as-tool access" — the
// spec describes its purpose but never names it. Chosen to read as a noun
// phrase alongside introspect_context rather than as a verb, since it hands
// back a callable handle rather than performing an action itself.
const ToolHandleOpcode = "workflow_tool_handle"

// outputKey is the context key under which Engine.Run stashes the run's
// output sink, so opcode implementations that only receive a context.Context
// (e.g. io_print) can recover it without widening OpcodeFunc's signature.
type outputKey struct{}

// OutputWriter recovers the output sink bound by Engine.Run for ctx, falling
// back to os.Stdout if none was bound (e.g. in opcode unit tests that call
// Call directly against a bare context.Background()).
func OutputWriter(ctx context.Context) io.Writer {
	if w, ok := ctx.Value(outputKey{}).(io.Writer); ok {
		return w
	}
	return os.Stdout
}

// Engine owns the full set of collaborators needed to run a parsed Program:
// the opcode registry, the evaluator/executor pair, the workflow manager,
// the shared call-stack depth counter, the task manager backing Spawn, and
// the metrics sink. One Engine runs one Program; Run may be called more than
// once against fresh inputs.
type Engine struct {
	program    *ast.Program
	opcodes    *OpcodeRegistry
	eval       *Evaluator
	exec       *Executor
	wfs        *WorkflowManager
	calls      *CallStack
	tasks      *TaskManager
	metrics    Metrics
	log        *slog.Logger
	output     io.Writer
	introspect OpcodeFunc
	toolHandle OpcodeFunc
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithMetrics installs a recording or no-op Metrics sink. Defaults to
// NullMetrics when not supplied.
func WithMetrics(m Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithLogger installs a structured logger for engine lifecycle events.
// Defaults to slog.Default() when not supplied.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithOpcodes installs a pre-populated opcode registry (e.g. from
// stdlib.NewRegistry()) instead of an empty one.
func WithOpcodes(r *OpcodeRegistry) Option {
	return func(e *Engine) { e.opcodes = r }
}

// WithOutput redirects the io_print opcode's output to w for the duration of
// the run instead of the process's os.Stdout. Defaults to os.Stdout when not
// supplied.
func WithOutput(w io.Writer) Option {
	return func(e *Engine) { e.output = w }
}

// WithContextProvider injects real implementations for the spec's two
// privileged opcodes — introspect_context and ToolHandleOpcode — at
// construction time. Either argument may be nil to leave that opcode as an
// uninjected placeholder (it will raise a RuntimeError if a workflow calls
// it, per RegisterPrivileged).
func WithContextProvider(introspect, toolHandle OpcodeFunc) Option {
	return func(e *Engine) {
		e.introspect = introspect
		e.toolHandle = toolHandle
	}
}

// NewEngine wires an Engine around program. Grounded on the source's
// Runtime/Interpreter wiring in runtime.py, translated to Go's stricter
// compile-time import graph via the two SetX post-construction hooks.
func NewEngine(program *ast.Program, opts ...Option) *Engine {
	e := &Engine{
		program: program,
		opcodes: NewOpcodeRegistry(),
		metrics: NullMetrics{},
		calls:   NewCallStack(),
		tasks:   NewTaskManager(),
		log:     slog.Default(),
		output:  os.Stdout,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.introspect != nil {
		e.opcodes.Inject("introspect_context", e.introspect)
	}
	if e.toolHandle != nil {
		e.opcodes.Inject(ToolHandleOpcode, e.toolHandle)
	}

	e.eval = NewEvaluator(e.opcodes, e.metrics)
	e.wfs = NewWorkflowManager(e.program, e.calls, e.metrics)
	e.exec = NewExecutor(e.eval, e.tasks, e.metrics)
	e.eval.SetWorkflowManager(e.wfs)
	e.wfs.SetExecutor(e.exec)
	return e
}

// Opcodes returns the engine's opcode registry, for registering stdlib or
// host-specific opcodes before Run is called.
func (e *Engine) Opcodes() *OpcodeRegistry { return e.opcodes }

// Metrics returns the engine's metrics sink.
func (e *Engine) Metrics() Metrics { return e.metrics }

// Tasks returns the engine's task manager, for introspection opcodes that
// need to list or cancel outstanding background tasks.
func (e *Engine) Tasks() *TaskManager { return e.tasks }

// Run executes the program's main workflow with inputs bound onto its
// declared params (an input key that names no declared param is rejected
// with a ValueError before anything runs; a missing input keeps main's
// locals default, if any). The top-level invocation runs main's body directly
// against a fresh root scope — unlike WorkflowManager.Call, it pushes no
// call-stack frame, since depth accounting exists to bound nested calls, not
// the entry point itself. TaskManager.Cleanup always runs before returning,
// so no spawned background work outlives the run.
func (e *Engine) Run(ctx context.Context, inputs map[string]types.Value) (types.Value, error) {
	if e.program.Main == nil {
		return types.Null, types.NewValueError("program has no main workflow")
	}
	if err := checkUnknownInputs(inputs, e.program.Main.Params); err != nil {
		return types.Null, err
	}
	e.metrics.StartExecution()
	defer e.metrics.EndExecution()
	defer e.tasks.Cleanup(ctx)

	e.log.Info("run started", "workflow", "main")

	ctx = context.WithValue(ctx, outputKey{}, e.output)

	root := NewScope()
	for k, v := range e.program.Globals {
		root.Bind(k, v)
	}
	for k, v := range e.program.Main.Locals {
		root.Bind(k, v)
	}
	for _, p := range e.program.Main.Params {
		if v, ok := inputs[p]; ok {
			root.Bind(p, v)
		}
	}

	stack := NewStack()
	signal, err := e.exec.Exec(ctx, root, stack, e.program.Main.Body)
	if err != nil {
		e.log.Error("run failed", "error", err)
		return types.Null, err
	}

	if signal == SignalReturn && stack.Len() > 0 {
		if stack.Len() == 1 {
			return stack.Pop()
		}
		values, perr := stack.PopN(stack.Len())
		if perr != nil {
			return types.Null, perr
		}
		result := make([]types.Value, len(values))
		copy(result, values)
		e.log.Info("run finished", "workflow", "main")
		return types.NewList(result), nil
	}
	e.log.Info("run finished", "workflow", "main")
	return types.Null, nil
}

// checkUnknownInputs rejects any key in inputs that is not one of params,
// naming the offending keys and the accepted params in the error message.
func checkUnknownInputs(inputs map[string]types.Value, params []string) error {
	if len(inputs) == 0 {
		return nil
	}
	accepted := make(map[string]bool, len(params))
	for _, p := range params {
		accepted[p] = true
	}
	var unknown []string
	for k := range inputs {
		if !accepted[k] {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return types.NewValueError(fmt.Sprintf(
		"unknown input(s) %s; accepted params are %s",
		strings.Join(unknown, ", "), strings.Join(params, ", "),
	))
}
