package runtime

import (
	"context"
	"testing"

	"github.com/lemonberrylabs/lexflow/pkg/types"
)

func TestOpcodeRegistryCallBasic(t *testing.T) {
	r := NewOpcodeRegistry()
	r.Register("double", 1, 1, func(_ context.Context, args []types.Value) (types.Value, error) {
		return types.NewInt(args[0].AsInt() * 2), nil
	})
	v, err := r.Call(context.Background(), "double", []types.Value{types.NewInt(3)})
	if err != nil || v.AsInt() != 6 {
		t.Fatalf("expected 6, got %v, err %v", v, err)
	}
}

func TestOpcodeRegistryUnknownOpcode(t *testing.T) {
	r := NewOpcodeRegistry()
	_, err := r.Call(context.Background(), "nope", nil)
	if err == nil {
		t.Fatal("expected an error calling an unregistered opcode")
	}
}

func TestOpcodeRegistryArityChecking(t *testing.T) {
	r := NewOpcodeRegistry()
	r.Register("needs_two", 2, 2, func(_ context.Context, args []types.Value) (types.Value, error) {
		return types.Null, nil
	})
	if _, err := r.Call(context.Background(), "needs_two", []types.Value{types.NewInt(1)}); err == nil {
		t.Fatal("expected an arity error with too few args")
	}
	if _, err := r.Call(context.Background(), "needs_two", []types.Value{types.NewInt(1), types.NewInt(2), types.NewInt(3)}); err == nil {
		t.Fatal("expected an arity error with too many args")
	}
}

func TestOpcodeRegistryVariadicAcceptsAnyCount(t *testing.T) {
	r := NewOpcodeRegistry()
	r.Register("variadic", 0, -1, func(_ context.Context, args []types.Value) (types.Value, error) {
		return types.NewInt(len(args)), nil
	})
	v, err := r.Call(context.Background(), "variadic", []types.Value{types.NewInt(1), types.NewInt(2), types.NewInt(3), types.NewInt(4)})
	if err != nil || v.AsInt() != 4 {
		t.Fatalf("expected variadic opcode to accept 4 args, got %v, err %v", v, err)
	}
}

func TestOpcodeRegistryPrivilegedRequiresInjection(t *testing.T) {
	r := NewOpcodeRegistry()
	r.RegisterPrivileged("introspect_context")
	if _, err := r.Call(context.Background(), "introspect_context", nil); err == nil {
		t.Fatal("expected calling an uninjected privileged opcode to fail")
	}

	r.Inject("introspect_context", func(_ context.Context, args []types.Value) (types.Value, error) {
		return types.NewString("injected"), nil
	})
	v, err := r.Call(context.Background(), "introspect_context", nil)
	if err != nil || v.AsString() != "injected" {
		t.Fatalf("expected the injected implementation to run, got %v, err %v", v, err)
	}
}

func TestOpcodeRegistryInjectOverridesRegistered(t *testing.T) {
	r := NewOpcodeRegistry()
	r.Register("io_print", 0, -1, func(_ context.Context, args []types.Value) (types.Value, error) {
		return types.NewString("real"), nil
	})
	r.Inject("io_print", func(_ context.Context, args []types.Value) (types.Value, error) {
		return types.NewString("overridden"), nil
	})
	v, _ := r.Call(context.Background(), "io_print", nil)
	if v.AsString() != "overridden" {
		t.Errorf("expected Inject to take priority over the registered implementation, got %v", v)
	}
}

func TestOpcodeRegistryHasAndList(t *testing.T) {
	r := NewOpcodeRegistry()
	r.Register("foo", 0, 0, func(_ context.Context, args []types.Value) (types.Value, error) {
		return types.Null, nil
	})
	if !r.Has("foo") {
		t.Error("expected Has(foo) to be true")
	}
	if r.Has("bar") {
		t.Error("expected Has(bar) to be false")
	}
	if list := r.List(); len(list) != 1 || list[0] != "foo" {
		t.Errorf("expected List() == [foo], got %v", list)
	}
}

func TestOpcodeRegistryCategories(t *testing.T) {
	r := NewOpcodeRegistry()
	r.RegisterCategory(Category{ID: "math", Label: "Math", NamePrefix: "math_", DisplayOrder: 2})
	cats := r.Categories()
	if len(cats) != 1 || cats[0].ID != "math" {
		t.Fatalf("expected one registered category 'math', got %v", cats)
	}
}

func TestRegisterReflectiveInfersArityAndDefaults(t *testing.T) {
	r := NewOpcodeRegistry()
	add := func(ctx context.Context, a, b types.Value) (types.Value, error) {
		return types.NewInt(a.AsInt() + b.AsInt()), nil
	}
	RegisterReflective(r, "add_with_default", add, map[int]types.Value{1: types.NewInt(10)})

	v, err := r.Call(context.Background(), "add_with_default", []types.Value{types.NewInt(1), types.NewInt(2)})
	if err != nil || v.AsInt() != 3 {
		t.Fatalf("expected 3 with both args supplied, got %v, err %v", v, err)
	}

	v, err = r.Call(context.Background(), "add_with_default", []types.Value{types.NewInt(1)})
	if err != nil || v.AsInt() != 11 {
		t.Fatalf("expected 11 using the default for the second arg, got %v, err %v", v, err)
	}
}

func TestRegisterReflectiveVariadic(t *testing.T) {
	r := NewOpcodeRegistry()
	sum := func(ctx context.Context, nums ...types.Value) (types.Value, error) {
		total := int64(0)
		for _, n := range nums {
			total += n.AsInt()
		}
		return types.NewInt(total), nil
	}
	RegisterReflective(r, "sum", sum, nil)

	v, err := r.Call(context.Background(), "sum", []types.Value{types.NewInt(1), types.NewInt(2), types.NewInt(3)})
	if err != nil || v.AsInt() != 6 {
		t.Fatalf("expected 6, got %v, err %v", v, err)
	}
}
