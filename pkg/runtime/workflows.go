package runtime

import (
	"context"
	"time"

	"github.com/lemonberrylabs/lexflow/pkg/ast"
	"github.com/lemonberrylabs/lexflow/pkg/types"
)

// MaxCallDepth bounds the number of outstanding workflow calls, matching the
// teacher's MaxCallStackDepth resource limit.
const MaxCallDepth = 64

// WorkflowManager resolves workflow calls by name and drives the executor
// over the callee's body inside a fresh call frame and child scope.
// Grounded on the source's WorkflowManager in workflows.py.
type WorkflowManager struct {
	program  *ast.Program
	executor *Executor
	calls    *CallStack
	metrics  Metrics
}

// NewWorkflowManager creates a WorkflowManager. SetExecutor must be called
// before Call is used, breaking the Evaluator->WorkflowManager->Executor
// initialization cycle (the evaluator needs the manager for Call
// expressions, and the manager needs the executor to run a callee's body).
func NewWorkflowManager(program *ast.Program, calls *CallStack, metrics Metrics) *WorkflowManager {
	return &WorkflowManager{program: program, calls: calls, metrics: metrics}
}

// SetExecutor wires the Executor.
func (wm *WorkflowManager) SetExecutor(ex *Executor) {
	wm.executor = ex
}

// Call resolves name, binds args positionally onto its params (extras
// ignored; missing params keep their locals default), opens a child scope
// chained to callerScope, executes the body, and captures the returned
// values (if any) as the result. The frame is always popped, even on error.
// callerScope nil means "no parent". The engine's top-level main invocation
// does not go through WorkflowManager at all (see Engine.Run).
func (wm *WorkflowManager) Call(ctx context.Context, callerScope *Scope, name string, args []types.Value) (types.Value, error) {
	start := time.Now()
	defer func() {
		wm.metrics.Record("workflow_call", name, time.Since(start), nil)
	}()

	wf, ok := wm.program.Lookup(name)
	if !ok {
		return types.Null, types.NewValueError("unknown workflow: " + name)
	}

	if _, err := wm.calls.Push(name, MaxCallDepth); err != nil {
		return types.Null, err
	}
	defer wm.calls.Pop()

	callScope := NewScope()
	if callerScope != nil {
		callScope = callerScope.NewChildScope()
	}
	for k, v := range wf.Locals {
		callScope.Bind(k, v)
	}
	for i, pname := range wf.Params {
		if i < len(args) {
			callScope.Bind(pname, args[i])
		}
	}

	stack := NewStack()
	signal, err := wm.executor.Exec(ctx, callScope, stack, wf.Body)
	if err != nil {
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
		return types.NewList(result), nil
	}
	return types.Null, nil
}
