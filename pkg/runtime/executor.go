package runtime

import (
	"context"
	"sync"
	"time"

	"github.com/lemonberrylabs/lexflow/pkg/ast"
	"github.com/lemonberrylabs/lexflow/pkg/types"
)

// Signal is the control-flow result of executing a statement — modeled as an
// ordinary enum return value rather than an exception, per the source's Flow
// enum, to keep the hot path cheap and to preserve the distinction from
// user-raised errors caught by Try.
type Signal int

const (
	SignalNext Signal = iota
	SignalBreak
	SignalContinue
	SignalReturn
)

// Resource is the acquire/release protocol a With statement's resource value
// must expose. A Handle's Obj implements this to be usable in a With.
type Resource interface {
	Acquire(ctx context.Context) (types.Value, error)
	Release(ctx context.Context) error
}

// Executor interprets statements: control flow, concurrency, exceptions,
// and resource scoping, driving the Evaluator for every expression it
// encounters. Grounded on the source's Executor in executor.py.
type Executor struct {
	eval    *Evaluator
	tasks   *TaskManager
	metrics Metrics
}

// NewExecutor creates an Executor.
func NewExecutor(eval *Evaluator, tasks *TaskManager, metrics Metrics) *Executor {
	return &Executor{eval: eval, tasks: tasks, metrics: metrics}
}

// Exec dispatches on stmt's variant. Every dispatch records a "statement"
// metric (and, if the statement carries a node id, a "node" metric too).
func (ex *Executor) Exec(ctx context.Context, scope *Scope, stack *Stack, stmt ast.Statement) (Signal, error) {
	start := time.Now()
	kind := stmtKindName(stmt)
	defer func() {
		d := time.Since(start)
		ex.metrics.Record("statement", kind, d, nil)
		if id := stmt.NodeID(); id != "" {
			ex.metrics.Record("node", id, d, nil)
		}
	}()

	switch s := stmt.(type) {
	case *ast.Assign:
		v, err := ex.eval.Eval(ctx, scope, s.Value)
		if err != nil {
			return SignalNext, err
		}
		scope.Bind(s.Name, v)
		return SignalNext, nil

	case *ast.Block:
		for _, child := range s.Statements {
			sig, err := ex.Exec(ctx, scope, stack, child)
			if err != nil {
				return SignalNext, err
			}
			if sig != SignalNext {
				return sig, nil
			}
		}
		return SignalNext, nil

	case *ast.If:
		cond, err := ex.eval.Eval(ctx, scope, s.Cond)
		if err != nil {
			return SignalNext, err
		}
		if cond.Truthy() {
			return ex.Exec(ctx, scope, stack, s.Then)
		}
		if s.Else != nil {
			return ex.Exec(ctx, scope, stack, s.Else)
		}
		return SignalNext, nil

	case *ast.While:
		for {
			cond, err := ex.eval.Eval(ctx, scope, s.Cond)
			if err != nil {
				return SignalNext, err
			}
			if !cond.Truthy() {
				return SignalNext, nil
			}
			sig, err := ex.Exec(ctx, scope, stack, s.Body)
			if err != nil {
				return SignalNext, err
			}
			switch sig {
			case SignalBreak:
				return SignalNext, nil
			case SignalReturn:
				return SignalReturn, nil
			}
		}

	case *ast.For:
		return ex.execFor(ctx, scope, stack, s)

	case *ast.ForEach:
		v, err := ex.eval.Eval(ctx, scope, s.Iterable)
		if err != nil {
			return SignalNext, err
		}
		return ex.iterate(ctx, scope, stack, v, s.Var, s.Body)

	case *ast.AsyncForEach:
		return ex.execAsyncForEach(ctx, scope, stack, s)

	case *ast.Fork:
		return ex.execFork(ctx, scope, s)

	case *ast.Spawn:
		return ex.execSpawn(ctx, scope, s)

	case *ast.Timeout:
		return ex.execTimeout(ctx, scope, stack, s)

	case *ast.With:
		return ex.execWith(ctx, scope, stack, s)

	case *ast.Try:
		return ex.execTry(ctx, scope, stack, s)

	case *ast.Throw:
		v, err := ex.eval.Eval(ctx, scope, s.Value)
		if err != nil {
			return SignalNext, err
		}
		return SignalNext, types.NewRuntimeError(v.String())

	case *ast.Return:
		for _, e := range s.Values {
			v, err := ex.eval.Eval(ctx, scope, e)
			if err != nil {
				return SignalNext, err
			}
			stack.Push(v)
		}
		return SignalReturn, nil

	case *ast.ExprStmt:
		_, err := ex.eval.Eval(ctx, scope, s.Expr)
		return SignalNext, err

	case *ast.OpStmt:
		args := make([]types.Value, len(s.Args))
		for i, a := range s.Args {
			v, err := ex.eval.Eval(ctx, scope, a)
			if err != nil {
				return SignalNext, err
			}
			args[i] = v
		}
		_, err := ex.eval.opcodes.Call(ctx, s.Name, args)
		return SignalNext, err

	default:
		return SignalNext, types.NewRuntimeError("unknown statement variant")
	}
}

func (ex *Executor) execFor(ctx context.Context, scope *Scope, stack *Stack, s *ast.For) (Signal, error) {
	startV, err := ex.eval.Eval(ctx, scope, s.Start)
	if err != nil {
		return SignalNext, err
	}
	endV, err := ex.eval.Eval(ctx, scope, s.End)
	if err != nil {
		return SignalNext, err
	}
	step := int64(1)
	if s.Step != nil {
		stepV, err := ex.eval.Eval(ctx, scope, s.Step)
		if err != nil {
			return SignalNext, err
		}
		step = asInt(stepV)
	}
	if startV.Type() != types.TypeInt && startV.Type() != types.TypeDouble {
		return SignalNext, types.NewTypeError("for loop start must be numeric")
	}
	start, end := asInt(startV), asInt(endV)
	if step == 0 {
		return SignalNext, types.NewValueError("for loop step must be non-zero")
	}

	for i := start; (step > 0 && i < end) || (step < 0 && i > end); i += step {
		scope.Bind(s.Var, types.NewInt(i))
		sig, err := ex.Exec(ctx, scope, stack, s.Body)
		if err != nil {
			return SignalNext, err
		}
		switch sig {
		case SignalBreak:
			return SignalNext, nil
		case SignalReturn:
			return SignalReturn, nil
		}
	}
	return SignalNext, nil
}

func asInt(v types.Value) int64 {
	switch v.Type() {
	case types.TypeInt:
		return v.AsInt()
	case types.TypeDouble:
		return int64(v.AsDouble())
	default:
		return 0
	}
}

// iterate runs body once per element of v (a List's values, or a Map's
// keys), binding varName to each.
func (ex *Executor) iterate(ctx context.Context, scope *Scope, stack *Stack, v types.Value, varName string, body ast.Statement) (Signal, error) {
	var items []types.Value
	switch v.Type() {
	case types.TypeList:
		items = v.AsList()
	case types.TypeMap:
		for _, k := range v.AsMap().Keys() {
			items = append(items, types.NewString(k))
		}
	default:
		return SignalNext, types.NewTypeError("foreach requires a list or map")
	}
	for _, item := range items {
		scope.Bind(varName, item)
		sig, err := ex.Exec(ctx, scope, stack, body)
		if err != nil {
			return SignalNext, err
		}
		switch sig {
		case SignalBreak:
			return SignalNext, nil
		case SignalReturn:
			return SignalReturn, nil
		}
	}
	return SignalNext, nil
}

// execAsyncForEach consumes a Channel handle as a lazy async sequence,
// receiving until it is closed and drained; any other iterable falls back
// to synchronous ForEach behavior.
func (ex *Executor) execAsyncForEach(ctx context.Context, scope *Scope, stack *Stack, s *ast.AsyncForEach) (Signal, error) {
	v, err := ex.eval.Eval(ctx, scope, s.Iterable)
	if err != nil {
		return SignalNext, err
	}
	if v.Type() == types.TypeHandle {
		if ch, ok := v.AsHandle().Obj.(*Channel); ok {
			for {
				item, err := ch.Receive(ctx, 0)
				if err != nil {
					we := types.AsWorkflowError(err)
					if we != nil && we.Kind == types.KindRuntimeError {
						return SignalNext, nil // closed and drained: iteration complete
					}
					return SignalNext, err
				}
				scope.Bind(s.Var, item)
				sig, err := ex.Exec(ctx, scope, stack, s.Body)
				if err != nil {
					return SignalNext, err
				}
				switch sig {
				case SignalBreak:
					return SignalNext, nil
				case SignalReturn:
					return SignalReturn, nil
				}
			}
		}
	}
	return ex.iterate(ctx, scope, stack, v, s.Var, s.Body)
}

// execFork launches every branch concurrently over the shared scope, each
// with its own data stack (see Stack's doc comment), and joins them. The
// first branch observed to have raised aborts the fork (siblings are
// cancelled via forkCtx); a Return signal from any branch propagates;
// Break degrades to Next.
func (ex *Executor) execFork(ctx context.Context, scope *Scope, f *ast.Fork) (Signal, error) {
	forkCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type outcome struct {
		sig Signal
		err error
	}
	results := make([]outcome, len(f.Branches))
	var (
		errOnce  sync.Once
		firstErr error
	)
	var wg sync.WaitGroup
	for i, branch := range f.Branches {
		wg.Add(1)
		go func(i int, branch ast.Statement) {
			defer wg.Done()
			branchStack := NewStack()
			sig, err := ex.Exec(forkCtx, scope, branchStack, branch)
			results[i] = outcome{sig, err}
			if err != nil {
				errOnce.Do(func() { firstErr = err })
				cancel()
			}
		}(i, branch)
	}
	wg.Wait()

	if firstErr != nil {
		return SignalNext, firstErr
	}
	for _, r := range results {
		if r.sig == SignalReturn {
			return SignalReturn, nil
		}
	}
	return SignalNext, nil
}

// execSpawn starts body as a detached background task sharing the current
// scope by reference; it does not await, so control continues immediately.
func (ex *Executor) execSpawn(ctx context.Context, scope *Scope, s *ast.Spawn) (Signal, error) {
	handle := ex.tasks.Spawn(ctx, "", func(taskCtx context.Context) (types.Value, error) {
		taskStack := NewStack()
		_, err := ex.Exec(taskCtx, scope, taskStack, s.Body)
		return types.Null, err
	})
	if s.Var != "" {
		scope.Bind(s.Var, types.NewHandle("task", handle))
	}
	return SignalNext, nil
}

// execTimeout runs body with a deadline; if it fires first, the body's
// goroutine is cancelled and awaited to settle before OnTimeout (or a
// Timeout error) runs, so the two never touch the shared stack at once.
func (ex *Executor) execTimeout(ctx context.Context, scope *Scope, stack *Stack, s *ast.Timeout) (Signal, error) {
	secV, err := ex.eval.Eval(ctx, scope, s.Seconds)
	if err != nil {
		return SignalNext, err
	}
	secs, ok := secV.AsNumber()
	if !ok {
		return SignalNext, types.NewTypeError("timeout seconds must be numeric")
	}
	deadlineCtx, cancel := context.WithTimeout(ctx, time.Duration(secs*float64(time.Second)))
	defer cancel()

	type outcome struct {
		sig Signal
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		sig, err := ex.Exec(deadlineCtx, scope, stack, s.Body)
		done <- outcome{sig, err}
	}()

	select {
	case r := <-done:
		return r.sig, r.err
	case <-deadlineCtx.Done():
		<-done // wait for the body to observe cancellation before reusing stack
		if s.OnTimeout != nil {
			return ex.Exec(ctx, scope, stack, s.OnTimeout)
		}
		return SignalNext, types.NewTimeoutErr("timeout deadline exceeded")
	}
}

// execWith evaluates Resource (must be a Handle exposing Resource), binds
// its acquired value, and guarantees Release runs on every exit path.
func (ex *Executor) execWith(ctx context.Context, scope *Scope, stack *Stack, s *ast.With) (Signal, error) {
	rv, err := ex.eval.Eval(ctx, scope, s.Resource)
	if err != nil {
		return SignalNext, err
	}
	if rv.Type() != types.TypeHandle {
		return SignalNext, types.NewTypeError("with resource must be a handle exposing acquire/release")
	}
	res, ok := rv.AsHandle().Obj.(Resource)
	if !ok {
		return SignalNext, types.NewTypeError("handle does not implement acquire/release")
	}
	acquired, err := res.Acquire(ctx)
	if err != nil {
		return SignalNext, err
	}
	scope.Bind(s.Var, acquired)

	sig, bodyErr := ex.Exec(ctx, scope, stack, s.Body)
	relErr := res.Release(ctx)
	if bodyErr != nil {
		return sig, bodyErr
	}
	if relErr != nil {
		return sig, relErr
	}
	return sig, nil
}

// execTry runs Body; on a raised error, the first matching handler (kind
// equal, or declared with no kind as catch-all) runs with the error's
// message bound to its variable. Finally always runs afterward; an error it
// raises, or a signal other than Next, takes precedence over whatever
// Body/handler produced; otherwise that earlier outcome is returned.
func (ex *Executor) execTry(ctx context.Context, scope *Scope, stack *Stack, t *ast.Try) (Signal, error) {
	sig, err := ex.Exec(ctx, scope, stack, t.Body)
	if err != nil {
		we := types.AsWorkflowError(err)
		for _, h := range t.Handlers {
			if h.Kind != "" && h.Kind != we.Kind {
				continue
			}
			if h.Var != "" {
				scope.Bind(h.Var, types.NewString(we.Message))
			}
			sig, err = ex.Exec(ctx, scope, stack, h.Body)
			break
		}
	}
	if t.Finally != nil {
		fsig, ferr := ex.Exec(ctx, scope, stack, t.Finally)
		if ferr != nil {
			return fsig, ferr
		}
		if fsig != SignalNext {
			return fsig, nil
		}
	}
	return sig, err
}

func stmtKindName(stmt ast.Statement) string {
	switch stmt.(type) {
	case *ast.Assign:
		return "Assign"
	case *ast.Block:
		return "Block"
	case *ast.If:
		return "If"
	case *ast.While:
		return "While"
	case *ast.For:
		return "For"
	case *ast.ForEach:
		return "ForEach"
	case *ast.AsyncForEach:
		return "AsyncForEach"
	case *ast.Fork:
		return "Fork"
	case *ast.Spawn:
		return "Spawn"
	case *ast.Timeout:
		return "Timeout"
	case *ast.With:
		return "With"
	case *ast.Try:
		return "Try"
	case *ast.Throw:
		return "Throw"
	case *ast.Return:
		return "Return"
	case *ast.ExprStmt:
		return "ExprStmt"
	case *ast.OpStmt:
		return "OpStmt"
	default:
		return "Unknown"
	}
}
