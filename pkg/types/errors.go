package types

import (
	"fmt"
)

// Kind is the name of an error as it is matched in Try handlers — the
// "user-observable names" the specification requires Try to match against.
const (
	KindValueError        = "ValueError"
	KindTypeError          = "TypeError"
	KindKeyError           = "KeyError"
	KindIndexError         = "IndexError"
	KindRuntimeError       = "RuntimeError"
	KindAssertionError     = "AssertionError"
	KindZeroDivisionError  = "ZeroDivisionError"
	KindAttributeError     = "AttributeError"
	KindTimeout            = "Timeout"
	KindRecursionError     = "RecursionError"
	KindCancelledError     = "CancelledError"
)

// WorkflowError is a raised LexFlow error: a message plus the kind name Try
// handlers match on, with room for structured extras (e.g. a channel's
// closed state) carried alongside the message.
type WorkflowError struct {
	Message string
	Kind    string
	Extra   map[string]Value
}

// Error implements the standard error interface.
func (e *WorkflowError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// ToValue projects a WorkflowError to a map value, for opcodes that want to
// inspect a caught error's full shape rather than just its message.
func (e *WorkflowError) ToValue() Value {
	m := NewOrderedMap()
	m.Set("kind", NewString(e.Kind))
	m.Set("message", NewString(e.Message))
	for k, v := range e.Extra {
		m.Set(k, v)
	}
	return NewMap(m)
}

func newErr(kind, msg string) *WorkflowError {
	return &WorkflowError{Kind: kind, Message: msg}
}

func NewValueError(msg string) *WorkflowError       { return newErr(KindValueError, msg) }
func NewTypeError(msg string) *WorkflowError        { return newErr(KindTypeError, msg) }
func NewKeyError(msg string) *WorkflowError         { return newErr(KindKeyError, msg) }
func NewIndexError(msg string) *WorkflowError       { return newErr(KindIndexError, msg) }
func NewRuntimeError(msg string) *WorkflowError     { return newErr(KindRuntimeError, msg) }
func NewAssertionError(msg string) *WorkflowError   { return newErr(KindAssertionError, msg) }
func NewAttributeError(msg string) *WorkflowError   { return newErr(KindAttributeError, msg) }
func NewTimeoutErr(msg string) *WorkflowError       { return newErr(KindTimeout, msg) }
func NewCancelledError(msg string) *WorkflowError   { return newErr(KindCancelledError, msg) }

// NewZeroDivisionError matches the fixed wording of Python's ZeroDivisionError,
// which the source opcodes mirror.
func NewZeroDivisionError() *WorkflowError {
	return newErr(KindZeroDivisionError, "division by zero")
}

// NewRecursionError is raised when the call-frame stack exceeds its depth
// limit; the message is required to name the depth per the error-handling
// design's "include ... depth in the message" rule.
func NewRecursionError(maxDepth int) *WorkflowError {
	return newErr(KindRecursionError, fmt.Sprintf("call stack depth limit exceeded (max %d)", maxDepth))
}

// AsWorkflowError recovers a *WorkflowError from an arbitrary error value,
// wrapping foreign errors as a RuntimeError so that Try's catch-all handlers
// still see a well-formed kind.
func AsWorkflowError(err error) *WorkflowError {
	if err == nil {
		return nil
	}
	if we, ok := err.(*WorkflowError); ok {
		return we
	}
	return NewRuntimeError(err.Error())
}
