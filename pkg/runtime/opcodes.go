package runtime

import (
	"context"
	"fmt"
	"reflect"

	"github.com/lemonberrylabs/lexflow/pkg/types"
)

// OpcodeFunc is a registered opcode implementation. It receives the engine
// context (for cancellation) and the already-evaluated positional
// arguments.
type OpcodeFunc func(ctx context.Context, args []types.Value) (types.Value, error)

// Category is pure metadata for external documentation tooling; the core
// only stores and returns it.
type Category struct {
	ID           string
	Label        string
	NamePrefix   string
	Color        string
	Icon         string
	DisplayOrder int
	InstallExtra string
}

type registration struct {
	fn         OpcodeFunc
	category   string
	privileged bool
	// defaults are supplied only when fn is registered via RegisterReflective,
	// which infers arity/defaults from a native Go function signature.
	minArgs, maxArgs int // maxArgs < 0 means variadic
}

// OpcodeRegistry holds the mapping from opcode name to implementation, plus
// privileged placeholders and category metadata. Grounded on the source's
// OpcodeRegistry (core/opcodes.py) and the teacher's pkg/stdlib.Registry.
type OpcodeRegistry struct {
	entries    map[string]registration
	categories map[string]Category
	injected   map[string]OpcodeFunc
}

// NewOpcodeRegistry creates an empty registry.
func NewOpcodeRegistry() *OpcodeRegistry {
	return &OpcodeRegistry{
		entries:    make(map[string]registration),
		categories: make(map[string]Category),
		injected:   make(map[string]OpcodeFunc),
	}
}

// Register adds an opcode taking between minArgs and maxArgs positional
// arguments (maxArgs < 0 for variadic).
func (r *OpcodeRegistry) Register(name string, minArgs, maxArgs int, fn OpcodeFunc) {
	r.entries[name] = registration{fn: fn, minArgs: minArgs, maxArgs: maxArgs}
}

// RegisterCategorized adds an opcode tagged with a documentation category.
func (r *OpcodeRegistry) RegisterCategorized(name string, minArgs, maxArgs int, category string, fn OpcodeFunc) {
	r.entries[name] = registration{fn: fn, minArgs: minArgs, maxArgs: maxArgs, category: category}
}

// RegisterPrivileged registers a placeholder that raises until the host
// injects a real implementation via Inject. The spec defines two privileged
// opcodes: introspect_context and an internal workflow-as-tool handle
// provider.
func (r *OpcodeRegistry) RegisterPrivileged(name string) {
	r.entries[name] = registration{privileged: true}
}

// Inject supplies the implementation for a privileged opcode, for the
// duration of the engine that owns this registry.
func (r *OpcodeRegistry) Inject(name string, fn OpcodeFunc) {
	r.injected[name] = fn
}

// RegisterCategory stores category metadata by id.
func (r *OpcodeRegistry) RegisterCategory(c Category) {
	r.categories[c.ID] = c
}

// Categories returns all registered category metadata.
func (r *OpcodeRegistry) Categories() []Category {
	out := make([]Category, 0, len(r.categories))
	for _, c := range r.categories {
		out = append(out, c)
	}
	return out
}

// Has reports whether name is registered (placeholder or not).
func (r *OpcodeRegistry) Has(name string) bool {
	_, ok := r.entries[name]
	return ok
}

// List returns every registered opcode name.
func (r *OpcodeRegistry) List() []string {
	out := make([]string, 0, len(r.entries))
	for name := range r.entries {
		out = append(out, name)
	}
	return out
}

// Call invokes the named opcode with already-evaluated args. An injected
// override, if present, takes priority over the registered implementation.
func (r *OpcodeRegistry) Call(ctx context.Context, name string, args []types.Value) (types.Value, error) {
	if fn, ok := r.injected[name]; ok {
		return fn(ctx, args)
	}
	reg, ok := r.entries[name]
	if !ok {
		return types.Null, types.NewValueError(fmt.Sprintf("unknown opcode: %s", name))
	}
	if reg.privileged {
		return types.Null, types.NewRuntimeError(fmt.Sprintf("opcode %q requires host injection before use", name))
	}
	if len(args) < reg.minArgs || (reg.maxArgs >= 0 && len(args) > reg.maxArgs) {
		return types.Null, types.NewValueError(fmt.Sprintf("%s requires %d arguments, got %d", name, reg.minArgs, len(args)))
	}
	return reg.fn(ctx, args)
}

// RegisterReflective adapts a native Go function (fn's first parameter may
// be context.Context, remaining parameters types.Value or []types.Value for
// a trailing variadic) into an OpcodeFunc, inferring its arity via
// reflection the way the source's register() decorator introspects a
// function's signature. defaults, if non-nil, supplies fallback values for
// trailing parameters that were not supplied by the caller.
func RegisterReflective(r *OpcodeRegistry, name string, fn interface{}, defaults map[int]types.Value) {
	v := reflect.ValueOf(fn)
	t := v.Type()
	hasCtx := t.NumIn() > 0 && t.In(0) == reflect.TypeOf((*context.Context)(nil)).Elem()
	start := 0
	if hasCtx {
		start = 1
	}
	variadic := t.IsVariadic()
	numParams := t.NumIn() - start
	minArgs := numParams
	if variadic {
		minArgs = numParams - 1
	}
	for i := range defaults {
		if i < minArgs {
			minArgs = i
		}
	}
	maxArgs := numParams
	if variadic {
		maxArgs = -1
	}

	r.entries[name] = registration{minArgs: minArgs, maxArgs: maxArgs, fn: func(ctx context.Context, args []types.Value) (types.Value, error) {
		callArgs := make([]reflect.Value, 0, numParams+start)
		if hasCtx {
			callArgs = append(callArgs, reflect.ValueOf(ctx))
		}
		fixed := numParams
		if variadic {
			fixed = numParams - 1
		}
		for i := 0; i < fixed; i++ {
			if i < len(args) {
				callArgs = append(callArgs, reflect.ValueOf(args[i]))
			} else if d, ok := defaults[i]; ok {
				callArgs = append(callArgs, reflect.ValueOf(d))
			} else {
				return types.Null, types.NewValueError(fmt.Sprintf("%s requires %d arguments, got %d", name, minArgs, len(args)))
			}
		}
		if variadic {
			for i := fixed; i < len(args); i++ {
				callArgs = append(callArgs, reflect.ValueOf(args[i]))
			}
		}
		results := v.Call(callArgs)
		var result types.Value
		var err error
		if len(results) > 0 {
			if rv, ok := results[0].Interface().(types.Value); ok {
				result = rv
			}
		}
		if len(results) > 1 {
			if e, ok := results[1].Interface().(error); ok {
				err = e
			}
		}
		return result, err
	}}
}
