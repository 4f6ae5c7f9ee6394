package runtime

import (
	"testing"

	"github.com/lemonberrylabs/lexflow/pkg/types"
)

func TestScopeBindAndLookup(t *testing.T) {
	s := NewScope()
	s.Bind("x", types.NewInt(1))
	v, err := s.Lookup("x")
	if err != nil || v.AsInt() != 1 {
		t.Fatalf("expected Lookup(x) == 1, got %v, err %v", v, err)
	}
}

func TestScopeLookupMissingIsKeyError(t *testing.T) {
	s := NewScope()
	_, err := s.Lookup("missing")
	if err == nil {
		t.Fatal("expected an error looking up an unbound name")
	}
	if k := types.AsWorkflowError(err).Kind; k != types.KindKeyError {
		t.Errorf("expected a KeyError, got %s", k)
	}
}

func TestScopeLookupSearchesParentChain(t *testing.T) {
	parent := NewScope()
	parent.Bind("x", types.NewInt(42))
	child := parent.NewChildScope()
	v, err := child.Lookup("x")
	if err != nil || v.AsInt() != 42 {
		t.Fatalf("expected child Lookup(x) to find parent's binding, got %v, err %v", v, err)
	}
}

func TestScopeBindShadowsParentWithoutMutatingIt(t *testing.T) {
	parent := NewScope()
	parent.Bind("x", types.NewInt(1))
	child := parent.NewChildScope()
	child.Bind("x", types.NewInt(2))

	cv, _ := child.Lookup("x")
	if cv.AsInt() != 2 {
		t.Errorf("expected child's own binding to shadow parent, got %v", cv)
	}
	pv, _ := parent.Lookup("x")
	if pv.AsInt() != 1 {
		t.Errorf("expected parent's binding to be unaffected by child Bind, got %v", pv)
	}
}

func TestScopeSetUpdatesNearestExistingBinding(t *testing.T) {
	parent := NewScope()
	parent.Bind("x", types.NewInt(1))
	child := parent.NewChildScope()

	if err := child.Set("x", types.NewInt(99)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pv, _ := parent.Lookup("x")
	if pv.AsInt() != 99 {
		t.Errorf("expected Set to update the parent's binding through the chain, got %v", pv)
	}
}

func TestScopeSetMissingIsKeyError(t *testing.T) {
	s := NewScope()
	err := s.Set("undeclared", types.NewInt(1))
	if err == nil {
		t.Fatal("expected Set on an undeclared variable to fail")
	}
	if k := types.AsWorkflowError(err).Kind; k != types.KindKeyError {
		t.Errorf("expected a KeyError, got %s", k)
	}
}

func TestScopeExists(t *testing.T) {
	parent := NewScope()
	parent.Bind("x", types.NewInt(1))
	child := parent.NewChildScope()

	if !child.Exists("x") {
		t.Error("expected Exists to search the parent chain")
	}
	if child.Exists("y") {
		t.Error("expected Exists(y) to be false")
	}
}
