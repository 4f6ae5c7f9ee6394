package runtime

import (
	"sync"

	"github.com/lemonberrylabs/lexflow/pkg/types"
)

// Stack is the LIFO used for workflow-call return plumbing. Each top-level
// Engine.Run and each WorkflowManager.call owns its own Stack instance
// rather than sharing one Runtime-wide stack: since two goroutines (Fork
// branches, Spawn bodies) may each be mid-call at once, a single shared
// stack would let unrelated pushes and pops interleave and corrupt each
// other. Scoping one Stack per call keeps the literal LIFO push/pop/peek
// semantics the specification asks for while making concurrent calls safe
// with no synchronization on the stack itself, because no two goroutines
// ever hold the same *Stack.
type Stack struct {
	values []types.Value
}

// NewStack creates an empty data stack.
func NewStack() *Stack {
	return &Stack{}
}

// Push appends a value.
func (s *Stack) Push(v types.Value) {
	s.values = append(s.values, v)
}

// Pop removes and returns the top value. An empty stack is a fatal runtime
// error: "Stack underflow" per the error-handling design.
func (s *Stack) Pop() (types.Value, error) {
	if len(s.values) == 0 {
		return types.Null, types.NewRuntimeError("stack underflow: pop on empty data stack")
	}
	n := len(s.values) - 1
	v := s.values[n]
	s.values = s.values[:n]
	return v, nil
}

// Peek returns the top value without removing it.
func (s *Stack) Peek() (types.Value, error) {
	if len(s.values) == 0 {
		return types.Null, types.NewRuntimeError("stack underflow: peek on empty data stack")
	}
	return s.values[len(s.values)-1], nil
}

// Len reports the number of values currently on the stack.
func (s *Stack) Len() int {
	return len(s.values)
}

// PopN pops the top n values and returns them in push order (bottom of the
// popped run first), for WorkflowManager's multi-value return capture.
func (s *Stack) PopN(n int) ([]types.Value, error) {
	if n == 0 {
		return nil, nil
	}
	if len(s.values) < n {
		return nil, types.NewRuntimeError("stack underflow: cannot pop multi-value return")
	}
	start := len(s.values) - n
	out := make([]types.Value, n)
	copy(out, s.values[start:])
	s.values = s.values[:start]
	return out, nil
}

// Frame names one outstanding workflow call, used only for introspection
// (the recursion-limit error names only the maximum depth). Scope restore on return is handled by Go's
// own call stack (the caller's *Scope is simply a local variable in the
// calling function) — Frame does not need to carry it.
type Frame struct {
	FuncName string
	Depth    int
}

// CallStack tracks the number of outstanding workflow calls. Call depth is a
// whole-program resource bound (MaxCallDepth), so — unlike the data stack —
// one CallStack is shared by the whole Engine and every concurrently
// executing path through it (main body, Fork branches, Spawn bodies), guarded
// by its own mutex.
type CallStack struct {
	mu     sync.Mutex
	frames []Frame
}

// NewCallStack creates an empty call-frame stack.
func NewCallStack() *CallStack {
	return &CallStack{}
}

// Push records a new outstanding call, returning the depth it was pushed at
// (1-indexed) and an error if depth would exceed maxDepth.
func (c *CallStack) Push(funcName string, maxDepth int) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	depth := len(c.frames) + 1
	if depth > maxDepth {
		return depth, types.NewRecursionError(maxDepth)
	}
	c.frames = append(c.frames, Frame{FuncName: funcName, Depth: depth})
	return depth, nil
}

// Pop removes the most recently pushed frame of the shared stack, whichever
// concurrent path pushed it; frames are not tracked per path, so only the
// depth, not the frame names, is exact while paths run concurrently.
func (c *CallStack) Pop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.frames) == 0 {
		return types.NewRuntimeError("call-stack underflow: pop on empty call stack")
	}
	c.frames = c.frames[:len(c.frames)-1]
	return nil
}

// Len reports the current outstanding call depth.
func (c *CallStack) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.frames)
}

// Snapshot returns a copy of the current frames, most recent last, for
// introspection opcodes.
func (c *CallStack) Snapshot() []Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Frame, len(c.frames))
	copy(out, c.frames)
	return out
}
