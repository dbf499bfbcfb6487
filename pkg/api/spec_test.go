package api

import (
	"reflect"
	"testing"
)

func TestParseInputKindRoundTrip(t *testing.T) {
	for _, kind := range []InputKind{KindLiteral, KindFilePath, KindRuntime, KindWorkflowItem} {
		parsed, err := ParseInputKind(kind.String())
		if err != nil {
			t.Fatalf("ParseInputKind(%q) failed: %v", kind, err)
		}
		if parsed != kind {
			t.Fatalf("expected %v, got %v", kind, parsed)
		}
	}
	if _, err := ParseInputKind("telepathy"); err == nil {
		t.Fatal("expected unknown kind to fail")
	}
}

func TestLocatorSpecDropsRuntimeValue(t *testing.T) {
	spec := LocatorSpec(Runtime([]float64{1, 2, 3}))
	if spec.Kind != "runtime" {
		t.Fatalf("unexpected kind: %q", spec.Kind)
	}
	if spec.Value != nil {
		t.Fatalf("expected runtime value dropped, got %v", spec.Value)
	}

	spec = LocatorSpec(Literal(42))
	if spec.Kind != "literal" || spec.Value != 42 {
		t.Fatalf("unexpected literal spec: %+v", spec)
	}
}

func TestSpecLocatorNormalizesURIList(t *testing.T) {
	// YAML hands back []any for string lists.
	loc, err := SpecLocator(InputSpec{Kind: "workflow_item", Value: []any{"a.outputs.x", "b.outputs.x"}})
	if err != nil {
		t.Fatalf("SpecLocator failed: %v", err)
	}
	want := []string{"a.outputs.x", "b.outputs.x"}
	if !reflect.DeepEqual(loc.URIs(), want) {
		t.Fatalf("expected %v, got %v", want, loc.URIs())
	}

	loc, err = SpecLocator(InputSpec{Kind: "workflow_item", Value: "a.outputs.x"})
	if err != nil {
		t.Fatalf("SpecLocator single failed: %v", err)
	}
	if !reflect.DeepEqual(loc.URIs(), []string{"a.outputs.x"}) {
		t.Fatalf("unexpected uris: %v", loc.URIs())
	}

	if _, err := SpecLocator(InputSpec{Kind: "workflow_item", Value: []any{42}}); err == nil {
		t.Fatal("expected non-string uri to fail")
	}
	if _, err := SpecLocator(InputSpec{Kind: "sideband"}); err == nil {
		t.Fatal("expected unknown kind to fail")
	}
}

func TestCheckVersion(t *testing.T) {
	cases := []struct {
		saved, current string
		warn           bool
	}{
		{"1.2.0", "1.2.0", false},
		{"1.2.9", "1.2.0", false},
		{"1.1.0", "1.2.0", true},
		{"0.9.4", "1.2.0", true},
		{"2.0.0", "1.2.0", false},
		{"garbage", "1.2.0", true},
		{"1.2.0", "garbage", false},
	}
	for _, tc := range cases {
		w := CheckVersion(tc.saved, tc.current)
		if (w != nil) != tc.warn {
			t.Errorf("CheckVersion(%q, %q): expected warn=%v, got %v", tc.saved, tc.current, tc.warn, w)
		}
	}
}

func TestVersionWarningMessage(t *testing.T) {
	w := CheckVersion("1.0.0", "1.2.0")
	if w == nil {
		t.Fatal("expected a warning")
	}
	if w.SavedVersion != "1.0.0" || w.CurrentVersion != "1.2.0" {
		t.Fatalf("unexpected warning fields: %+v", w)
	}
	if w.String() == "" {
		t.Fatal("expected a message")
	}
}
