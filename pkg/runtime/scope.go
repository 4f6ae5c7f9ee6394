// Package runtime implements the LexFlow execution engine: scope chain, data
// stack, call frames, evaluator, executor, opcode registry, workflow
// manager, task manager, channels, and metrics.
package runtime

import (
	"sync"

	"github.com/lemonberrylabs/lexflow/pkg/types"
)

// Scope is a mapping of name to value with a parent pointer, forming a
// chain. A new Scope is created only at a workflow-call boundary; every
// other construct (If, While, For, ForEach, Fork, Spawn, With, Try) runs
// statements directly against the scope it was entered with, per the
// lookup/set/bind distinction below.
//
// Scopes are heap-allocated and reference-shared rather than stack-embedded,
// so that a Spawn body observes the creator's scope by reference: mutations
// from either side are visible to the other. The scope's own mutex is what
// makes concurrent access from Fork branches or a Spawn body memory-safe;
// the specification's "shared-resource policy" only promises that such
// concurrent writes are legal, not that their relative ordering is defined.
type Scope struct {
	parent *Scope
	vars   map[string]types.Value
	mu     sync.RWMutex
}

// NewScope creates a new root scope.
func NewScope() *Scope {
	return &Scope{vars: make(map[string]types.Value)}
}

// NewChildScope creates a child scope chained to this one. Used only when a
// workflow call opens a new frame.
func (s *Scope) NewChildScope() *Scope {
	return &Scope{parent: s, vars: make(map[string]types.Value)}
}

// Lookup searches the chain for name, starting at this scope. Errors with a
// KeyError if no scope in the chain binds it.
func (s *Scope) Lookup(name string) (types.Value, error) {
	for cur := s; cur != nil; cur = cur.parent {
		cur.mu.RLock()
		v, ok := cur.vars[name]
		cur.mu.RUnlock()
		if ok {
			return v, nil
		}
	}
	return types.Null, types.NewKeyError("variable '" + name + "' not found")
}

// Exists reports whether name is bound anywhere in the chain.
func (s *Scope) Exists(name string) bool {
	for cur := s; cur != nil; cur = cur.parent {
		cur.mu.RLock()
		_, ok := cur.vars[name]
		cur.mu.RUnlock()
		if ok {
			return true
		}
	}
	return false
}

// Set updates the nearest scope in the chain that already binds name.
// Errors with a KeyError if no scope binds it — assigning to an undeclared
// name is not allowed via Set (use Bind to declare it).
func (s *Scope) Set(name string, value types.Value) error {
	for cur := s; cur != nil; cur = cur.parent {
		cur.mu.Lock()
		if _, ok := cur.vars[name]; ok {
			cur.vars[name] = value
			cur.mu.Unlock()
			return nil
		}
		cur.mu.Unlock()
	}
	return types.NewKeyError("cannot assign to undefined variable '" + name + "'")
}

// Bind creates or overwrites name in the current scope only, never touching
// a parent. This is how Assign, loop variables, Spawn/With/Try bindings all
// write — no statement besides a workflow call ever creates a new scope, so
// Bind is simply "write here."
func (s *Scope) Bind(name string, value types.Value) {
	s.mu.Lock()
	s.vars[name] = value
	s.mu.Unlock()
}
