package runtime

import (
	"context"
	"time"

	"github.com/lemonberrylabs/lexflow/pkg/ast"
	"github.com/lemonberrylabs/lexflow/pkg/types"
)

// Evaluator resolves expressions to values. Every opcode or workflow call is
// a suspension point (see spec §5); evaluation within one expression tree is
// strictly sequential, left to right, with no implicit parallelism.
type Evaluator struct {
	opcodes   *OpcodeRegistry
	workflows *WorkflowManager // set post-construction to avoid an import cycle with WorkflowManager
	metrics   Metrics
}

// NewEvaluator creates an Evaluator. SetWorkflowManager must be called
// before Eval is used for Call expressions.
func NewEvaluator(opcodes *OpcodeRegistry, metrics Metrics) *Evaluator {
	return &Evaluator{opcodes: opcodes, metrics: metrics}
}

// SetWorkflowManager wires the WorkflowManager, breaking the
// Evaluator<->WorkflowManager initialization cycle.
func (e *Evaluator) SetWorkflowManager(wm *WorkflowManager) {
	e.workflows = wm
}

// Eval evaluates one expression to a value.
func (e *Evaluator) Eval(ctx context.Context, scope *Scope, expr ast.Expression) (types.Value, error) {
	start := time.Now()
	kind := exprKindName(expr)
	defer func() {
		e.metrics.Record("expression", kind, time.Since(start), nil)
	}()

	switch ex := expr.(type) {
	case *ast.Literal:
		return ex.Value, nil

	case *ast.Variable:
		return scope.Lookup(ex.Name)

	case *ast.Opcode:
		args, err := e.evalArgs(ctx, scope, ex.Args)
		if err != nil {
			return types.Null, err
		}
		opStart := time.Now()
		result, err := e.opcodes.Call(ctx, ex.Name, args)
		e.metrics.Record("opcode", ex.Name, time.Since(opStart), nil)
		return result, err

	case *ast.Call:
		args, err := e.evalArgs(ctx, scope, ex.Args)
		if err != nil {
			return types.Null, err
		}
		return e.workflows.Call(ctx, scope, ex.Name, args)

	default:
		return types.Null, types.NewRuntimeError("unknown expression variant")
	}
}

func (e *Evaluator) evalArgs(ctx context.Context, scope *Scope, exprs []ast.Expression) ([]types.Value, error) {
	args := make([]types.Value, len(exprs))
	for i, a := range exprs {
		v, err := e.Eval(ctx, scope, a)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return args, nil
}

func exprKindName(expr ast.Expression) string {
	switch expr.(type) {
	case *ast.Literal:
		return "Literal"
	case *ast.Variable:
		return "Variable"
	case *ast.Opcode:
		return "Opcode"
	case *ast.Call:
		return "Call"
	default:
		return "Unknown"
	}
}
