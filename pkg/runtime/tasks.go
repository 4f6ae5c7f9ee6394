package runtime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lemonberrylabs/lexflow/pkg/types"
)

// LexFlowTask is a handle to a background task started by Spawn. Grounded on
// the source's tasks.py LexFlowTask dataclass: done/cancelled status plus
// result()/exception() inspection of the settled outcome.
type LexFlowTask struct {
	ID   uuid.UUID
	Name string

	mu        sync.Mutex
	done      bool
	cancelled bool
	result    types.Value
	err       error

	cancel context.CancelFunc
	settle chan struct{}
}

// Done reports whether the task has finished (normally, with an error, or
// via cancellation).
func (t *LexFlowTask) Done() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done
}

// Cancelled reports whether the task was cancelled.
func (t *LexFlowTask) Cancelled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancelled
}

// Result returns the task's completed value, blocking until it settles.
// Returns the task's error if it failed; a cancelled task yields null with
// no error (see Cancelled). If ctx ends first, returns a CancelledError.
func (t *LexFlowTask) Result(ctx context.Context) (types.Value, error) {
	select {
	case <-t.settle:
	case <-ctx.Done():
		return types.Null, types.NewCancelledError("wait cancelled")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancelled {
		return types.Null, nil
	}
	if t.err != nil {
		return types.Null, t.err
	}
	return t.result, nil
}

// Exception returns the error the task settled with, or nil if it completed
// normally or was cancelled (cancellation is not surfaced as an exception).
func (t *LexFlowTask) Exception() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancelled {
		return nil
	}
	return t.err
}

func (t *LexFlowTask) settleValue(v types.Value, err error, cancelled bool) {
	t.mu.Lock()
	if t.done {
		t.mu.Unlock()
		return
	}
	t.done = true
	t.cancelled = cancelled
	t.result = v
	t.err = err
	t.mu.Unlock()
	close(t.settle)
}

// TaskManager assigns each Spawn a uuid, retains its handle, and supports
// cancel/wait/get/list/cleanup over the whole population. Grounded on the
// source's TaskManager in tasks.py.
type TaskManager struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]*LexFlowTask
	seq   int
}

// NewTaskManager creates an empty task manager.
func NewTaskManager() *TaskManager {
	return &TaskManager{tasks: make(map[uuid.UUID]*LexFlowTask)}
}

// Spawn starts fn in a new goroutine under a cancellable context derived
// from parent, registers a LexFlowTask handle for it, and returns the handle
// immediately without waiting for fn to complete.
func (tm *TaskManager) Spawn(parent context.Context, name string, fn func(ctx context.Context) (types.Value, error)) *LexFlowTask {
	tm.mu.Lock()
	tm.seq++
	if name == "" {
		name = fmt.Sprintf("task_%d", tm.seq)
	}
	ctx, cancel := context.WithCancel(parent)
	t := &LexFlowTask{ID: uuid.New(), Name: name, cancel: cancel, settle: make(chan struct{})}
	tm.tasks[t.ID] = t
	tm.mu.Unlock()

	go func() {
		v, err := fn(ctx)
		cancelled := ctx.Err() != nil && err != nil
		t.settleValue(v, err, cancelled)
	}()
	return t
}

// Cancel requests cancellation of the named task. Returns false if no such
// task is tracked.
func (tm *TaskManager) Cancel(id uuid.UUID) bool {
	tm.mu.Lock()
	t, ok := tm.tasks[id]
	tm.mu.Unlock()
	if !ok {
		return false
	}
	t.cancel()
	return true
}

// Wait blocks until the named task settles or timeout elapses (timeout <= 0
// means no timeout). Errors with a KeyError if the id is not tracked.
func (tm *TaskManager) Wait(ctx context.Context, id uuid.UUID, timeout time.Duration) (types.Value, error) {
	tm.mu.Lock()
	t, ok := tm.tasks[id]
	tm.mu.Unlock()
	if !ok {
		return types.Null, types.NewKeyError("unknown task id")
	}
	waitCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return t.Result(waitCtx)
}

// Get returns the handle for id, or (nil, false) if untracked.
func (tm *TaskManager) Get(id uuid.UUID) (*LexFlowTask, bool) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	t, ok := tm.tasks[id]
	return t, ok
}

// List returns all tracked task handles.
func (tm *TaskManager) List() []*LexFlowTask {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	out := make([]*LexFlowTask, 0, len(tm.tasks))
	for _, t := range tm.tasks {
		out = append(out, t)
	}
	return out
}

// Cleanup cancels every undone task and waits for all tasks to settle. Must
// be called on engine shutdown so no spawned work outlives the run.
func (tm *TaskManager) Cleanup(ctx context.Context) {
	tm.mu.Lock()
	all := make([]*LexFlowTask, 0, len(tm.tasks))
	for _, t := range tm.tasks {
		all = append(all, t)
	}
	tm.mu.Unlock()

	for _, t := range all {
		if !t.Done() {
			t.cancel()
		}
	}
	for _, t := range all {
		_, _ = t.Result(ctx)
	}

	tm.mu.Lock()
	tm.tasks = make(map[uuid.UUID]*LexFlowTask)
	tm.mu.Unlock()
}
