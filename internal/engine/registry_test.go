package engine

import (
	"errors"
	"reflect"
	"testing"

	"github.com/rheijn/flume/pkg/api"
)

func newTestOpRegistry(t *testing.T) *Registry[api.Operation] {
	t.Helper()
	reg := NewRegistry[api.Operation]()
	register := func(name, doc string, factory func() api.Operation) {
		if err := reg.Register(name, doc, factory); err != nil {
			t.Fatalf("Register %s failed: %v", name, err)
		}
	}
	register("TESTS.Const", "emits a constant", func() api.Operation { return newConstOp(2.5) })
	register("TESTS.Double", "doubles a value", func() api.Operation { return newDoubleOp() })
	register("TESTS.Sum", "adds a list of values", func() api.Operation { return newSumOp() })
	return reg
}

func TestRegistryStartsDeactivated(t *testing.T) {
	reg := newTestOpRegistry(t)

	if reg.Enabled("TESTS.Const") {
		t.Fatal("expected fresh entries deactivated")
	}
	_, err := reg.Instantiate("TESTS.Const")
	if !errors.Is(err, api.ErrDisabled) {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}

	if err := reg.SetEnabled("TESTS.Const", true); err != nil {
		t.Fatalf("SetEnabled failed: %v", err)
	}
	if _, err := reg.Instantiate("TESTS.Const"); err != nil {
		t.Fatalf("Instantiate after enable failed: %v", err)
	}
}

func TestRegistryUnknownName(t *testing.T) {
	reg := newTestOpRegistry(t)

	if _, err := reg.Instantiate("TESTS.Missing"); !errors.Is(err, api.ErrNotRegistered) {
		t.Fatalf("expected ErrNotRegistered, got %v", err)
	}
	if err := reg.SetEnabled("TESTS.Missing", true); !errors.Is(err, api.ErrNotRegistered) {
		t.Fatalf("expected ErrNotRegistered, got %v", err)
	}
}

func TestRegistryDuplicateName(t *testing.T) {
	reg := newTestOpRegistry(t)

	err := reg.Register("TESTS.Const", "again", func() api.Operation { return newConstOp(0) })
	if !errors.Is(err, api.ErrDuplicateURI) {
		t.Fatalf("expected ErrDuplicateURI, got %v", err)
	}
}

func TestRegistryFreshInstances(t *testing.T) {
	reg := newTestOpRegistry(t)
	if err := reg.SetEnabled("TESTS.Double", true); err != nil {
		t.Fatalf("SetEnabled failed: %v", err)
	}

	a, err := reg.Instantiate("TESTS.Double")
	if err != nil {
		t.Fatalf("Instantiate failed: %v", err)
	}
	b, err := reg.Instantiate("TESTS.Double")
	if err != nil {
		t.Fatalf("Instantiate failed: %v", err)
	}
	if a == b {
		t.Fatal("expected distinct instances per Instantiate")
	}
	a.Core().SetInput("x", 1.0)
	if b.Core().Input("x") != nil {
		t.Fatal("expected instances not to share state")
	}
}

func TestRegistryNamesAndDocs(t *testing.T) {
	reg := newTestOpRegistry(t)

	want := []string{"TESTS.Const", "TESTS.Double", "TESTS.Sum"}
	if got := reg.Names(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected registration order %v, got %v", want, got)
	}
	if doc := reg.Doc("TESTS.Sum"); doc != "adds a list of values" {
		t.Fatalf("unexpected doc: %q", doc)
	}
}

func TestRegistryActivationFlags(t *testing.T) {
	reg := newTestOpRegistry(t)
	if err := reg.SetEnabled("TESTS.Double", true); err != nil {
		t.Fatalf("SetEnabled failed: %v", err)
	}

	flags := reg.ActivationFlags()
	want := map[string]bool{
		"TESTS.Const":  false,
		"TESTS.Double": true,
		"TESTS.Sum":    false,
	}
	if !reflect.DeepEqual(flags, want) {
		t.Fatalf("expected %v, got %v", want, flags)
	}
}
