package runtime

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lemonberrylabs/lexflow/pkg/types"
)

func TestTaskManagerSpawnAndWait(t *testing.T) {
	tm := NewTaskManager()
	task := tm.Spawn(context.Background(), "greeter", func(ctx context.Context) (types.Value, error) {
		return types.NewString("hi"), nil
	})

	v, err := tm.Wait(context.Background(), task.ID, 0)
	if err != nil || v.AsString() != "hi" {
		t.Fatalf("expected result \"hi\", got %v, err %v", v, err)
	}
	if !task.Done() {
		t.Error("expected task to be Done after Wait returns")
	}
	if task.Cancelled() {
		t.Error("did not expect task to be marked cancelled")
	}
}

func TestTaskManagerSpawnAutoNamesTasks(t *testing.T) {
	tm := NewTaskManager()
	task := tm.Spawn(context.Background(), "", func(ctx context.Context) (types.Value, error) {
		return types.Null, nil
	})
	if task.Name == "" {
		t.Error("expected an auto-generated name when none is given")
	}
	tm.Wait(context.Background(), task.ID, 0)
}

func TestTaskManagerTaskFailureSurfacesAsException(t *testing.T) {
	tm := NewTaskManager()
	boom := errors.New("boom")
	task := tm.Spawn(context.Background(), "failer", func(ctx context.Context) (types.Value, error) {
		return types.Null, boom
	})

	_, err := tm.Wait(context.Background(), task.ID, 0)
	if !errors.Is(err, boom) {
		t.Fatalf("expected Wait to surface the task's error, got %v", err)
	}
	if ex := task.Exception(); !errors.Is(ex, boom) {
		t.Errorf("expected Exception() to return the task's error, got %v", ex)
	}
}

func TestTaskManagerCancel(t *testing.T) {
	tm := NewTaskManager()
	started := make(chan struct{})
	task := tm.Spawn(context.Background(), "blocker", func(ctx context.Context) (types.Value, error) {
		close(started)
		<-ctx.Done()
		return types.Null, ctx.Err()
	})
	<-started

	if ok := tm.Cancel(task.ID); !ok {
		t.Fatal("expected Cancel to find the task")
	}
	tm.Wait(context.Background(), task.ID, time.Second)
	if !task.Cancelled() {
		t.Error("expected task to be marked cancelled after Cancel")
	}
	if ex := task.Exception(); ex != nil {
		t.Errorf("expected Exception() to be nil for a cancelled task, got %v", ex)
	}
}

func TestTaskManagerCancelUnknownID(t *testing.T) {
	tm := NewTaskManager()
	if ok := tm.Cancel(uuid.New()); ok {
		t.Error("expected Cancel on an unknown id to report false")
	}
}

func TestTaskManagerWaitUnknownIDIsKeyError(t *testing.T) {
	tm := NewTaskManager()
	_, err := tm.Wait(context.Background(), uuid.New(), 0)
	if err == nil {
		t.Fatal("expected Wait on an unknown id to fail")
	}
	if k := types.AsWorkflowError(err).Kind; k != types.KindKeyError {
		t.Errorf("expected a KeyError, got %s", k)
	}
}

func TestTaskManagerWaitTimesOut(t *testing.T) {
	tm := NewTaskManager()
	task := tm.Spawn(context.Background(), "slow", func(ctx context.Context) (types.Value, error) {
		select {
		case <-time.After(time.Second):
		case <-ctx.Done():
		}
		return types.Null, ctx.Err()
	})

	_, err := tm.Wait(context.Background(), task.ID, 10*time.Millisecond)
	if err == nil {
		t.Fatal("expected Wait to time out before the task settles")
	}
}

func TestTaskManagerGetAndList(t *testing.T) {
	tm := NewTaskManager()
	task := tm.Spawn(context.Background(), "x", func(ctx context.Context) (types.Value, error) {
		return types.Null, nil
	})
	tm.Wait(context.Background(), task.ID, 0)

	got, ok := tm.Get(task.ID)
	if !ok || got != task {
		t.Fatal("expected Get to return the spawned task handle")
	}
	if _, ok := tm.Get(uuid.New()); ok {
		t.Error("expected Get on an unknown id to report false")
	}
	if len(tm.List()) != 1 {
		t.Errorf("expected List() to contain 1 task, got %d", len(tm.List()))
	}
}

func TestTaskManagerCleanupCancelsOutstandingTasks(t *testing.T) {
	tm := NewTaskManager()
	started := make(chan struct{})
	task := tm.Spawn(context.Background(), "blocker", func(ctx context.Context) (types.Value, error) {
		close(started)
		<-ctx.Done()
		return types.Null, ctx.Err()
	})
	<-started

	tm.Cleanup(context.Background())

	if !task.Done() {
		t.Error("expected Cleanup to wait for the task to settle")
	}
	if len(tm.List()) != 0 {
		t.Error("expected Cleanup to clear the tracked task set")
	}
}
