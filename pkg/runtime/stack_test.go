package runtime

import (
	"testing"

	"github.com/lemonberrylabs/lexflow/pkg/types"
)

func TestStackPushPopPeek(t *testing.T) {
	s := NewStack()
	s.Push(types.NewInt(1))
	s.Push(types.NewInt(2))

	if s.Len() != 2 {
		t.Fatalf("expected Len() == 2, got %d", s.Len())
	}
	top, err := s.Peek()
	if err != nil || top.AsInt() != 2 {
		t.Fatalf("expected Peek() == 2, got %v, err %v", top, err)
	}
	if s.Len() != 2 {
		t.Error("expected Peek to not remove the value")
	}

	v, err := s.Pop()
	if err != nil || v.AsInt() != 2 {
		t.Fatalf("expected Pop() == 2, got %v, err %v", v, err)
	}
	if s.Len() != 1 {
		t.Errorf("expected Len() == 1 after Pop, got %d", s.Len())
	}
}

func TestStackPopUnderflow(t *testing.T) {
	s := NewStack()
	if _, err := s.Pop(); err == nil {
		t.Fatal("expected an error popping an empty stack")
	}
}

func TestStackPeekUnderflow(t *testing.T) {
	s := NewStack()
	if _, err := s.Peek(); err == nil {
		t.Fatal("expected an error peeking an empty stack")
	}
}

func TestStackPopN(t *testing.T) {
	s := NewStack()
	s.Push(types.NewInt(1))
	s.Push(types.NewInt(2))
	s.Push(types.NewInt(3))

	vals, err := s.PopN(2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vals) != 2 || vals[0].AsInt() != 2 || vals[1].AsInt() != 3 {
		t.Errorf("expected [2 3] in push order, got %v", vals)
	}
	if s.Len() != 1 {
		t.Errorf("expected 1 remaining value, got %d", s.Len())
	}
}

func TestStackPopNZero(t *testing.T) {
	s := NewStack()
	vals, err := s.PopN(0)
	if err != nil || vals != nil {
		t.Errorf("expected PopN(0) to return (nil, nil), got (%v, %v)", vals, err)
	}
}

func TestStackPopNUnderflow(t *testing.T) {
	s := NewStack()
	s.Push(types.NewInt(1))
	if _, err := s.PopN(2); err == nil {
		t.Fatal("expected an error popping more values than are on the stack")
	}
}

func TestCallStackPushPop(t *testing.T) {
	c := NewCallStack()
	depth, err := c.Push("a", 10)
	if err != nil || depth != 1 {
		t.Fatalf("expected first push to report depth 1, got %d, err %v", depth, err)
	}
	depth, err = c.Push("b", 10)
	if err != nil || depth != 2 {
		t.Fatalf("expected second push to report depth 2, got %d, err %v", depth, err)
	}
	if c.Len() != 2 {
		t.Fatalf("expected Len() == 2, got %d", c.Len())
	}
	if err := c.Pop(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Len() != 1 {
		t.Errorf("expected Len() == 1 after Pop, got %d", c.Len())
	}
}

func TestCallStackPushExceedsMaxDepth(t *testing.T) {
	c := NewCallStack()
	for i := 0; i < 3; i++ {
		if _, err := c.Push("f", 3); err != nil {
			t.Fatalf("unexpected error at depth %d: %v", i+1, err)
		}
	}
	if _, err := c.Push("f", 3); err == nil {
		t.Fatal("expected a recursion error once maxDepth is exceeded")
	}
}

func TestCallStackPopUnderflow(t *testing.T) {
	c := NewCallStack()
	if err := c.Pop(); err == nil {
		t.Fatal("expected an error popping an empty call stack")
	}
}

func TestCallStackSnapshotIsACopy(t *testing.T) {
	c := NewCallStack()
	c.Push("a", 10)
	snap := c.Snapshot()
	snap[0].FuncName = "mutated"

	fresh := c.Snapshot()
	if fresh[0].FuncName != "a" {
		t.Errorf("expected Snapshot to return an independent copy, got %q", fresh[0].FuncName)
	}
}
