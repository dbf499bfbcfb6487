package tree

import (
	"errors"
	"reflect"
	"testing"

	"github.com/rheijn/flume/pkg/api"
)

func TestTagAndURIValidation(t *testing.T) {
	valid := []string{"read", "read_csv", "fit-2", "ROOT", "a.b.c", "op_0.inputs.x"}
	for _, uri := range valid {
		if !IsValidURI(uri) {
			t.Errorf("expected %q to be a valid uri", uri)
		}
	}
	invalid := []string{"", ".", "a..b", "a b", "a/b", "read.", ".read"}
	for _, uri := range invalid {
		if IsValidURI(uri) {
			t.Errorf("expected %q to be rejected", uri)
		}
	}
	if IsValidTag("a.b") {
		t.Error("tags must not contain the separator")
	}
}

func TestSetGetLeaf(t *testing.T) {
	store := NewTreeStore()

	if err := store.Set("wavelength", 0.9184); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	v, err := store.Get("wavelength")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if v != 0.9184 {
		t.Fatalf("expected 0.9184, got %v", v)
	}
}

func TestSetExpandsMapsAndSlices(t *testing.T) {
	store := NewTreeStore()

	header := map[string]any{
		"temperature": 291.5,
		"exposures":   []any{0.1, 0.5, 2.0},
	}
	if err := store.Set("header", header); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	v, err := store.Get("header.temperature")
	if err != nil {
		t.Fatalf("Get temperature failed: %v", err)
	}
	if v != 291.5 {
		t.Fatalf("expected 291.5, got %v", v)
	}

	// Slice members are addressable by position.
	v, err = store.Get("header.exposures.1")
	if err != nil {
		t.Fatalf("Get exposures.1 failed: %v", err)
	}
	if v != 0.5 {
		t.Fatalf("expected 0.5, got %v", v)
	}
}

func TestSetRequiresExistingParent(t *testing.T) {
	store := NewTreeStore()

	err := store.Set("run.header", map[string]any{"n": 1})
	if !errors.Is(err, api.ErrPathNotFound) {
		t.Fatalf("expected ErrPathNotFound, got %v", err)
	}
}

func TestGetRejectsInvalidURI(t *testing.T) {
	store := NewTreeStore()

	_, err := store.Get("bad uri")
	if !errors.Is(err, api.ErrInvalidURI) {
		t.Fatalf("expected ErrInvalidURI, got %v", err)
	}
}

func TestInteriorResolvesToSnapshot(t *testing.T) {
	store := NewTreeStore()

	if err := store.Set("calib", map[string]any{"d0": 1.2, "d1": 3.4}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	v, err := store.Get("calib")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	snap, ok := v.(map[string]any)
	if !ok {
		t.Fatalf("expected map snapshot, got %T", v)
	}
	if snap["d0"] != 1.2 || snap["d1"] != 3.4 {
		t.Fatalf("unexpected snapshot: %v", snap)
	}
}

func TestDeletePrunesSubtreeAndRegistry(t *testing.T) {
	store := NewTreeStore()

	if err := store.Set("scan", map[string]any{"frames": []any{1, 2}}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := store.Set("scan.label", "scan_042"); err != nil {
		t.Fatalf("Set label failed: %v", err)
	}
	if !store.Contains("scan") || !store.Contains("scan.label") {
		t.Fatal("expected both uris registered")
	}

	if err := store.Delete("scan"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if store.Contains("scan") || store.Contains("scan.label") {
		t.Fatal("expected registry pruned under deleted path")
	}
	if _, err := store.Get("scan.frames.0"); !errors.Is(err, api.ErrPathNotFound) {
		t.Fatalf("expected ErrPathNotFound after delete, got %v", err)
	}
}

func TestDeleteMissingPath(t *testing.T) {
	store := NewTreeStore()
	if err := store.Delete("ghost"); !errors.Is(err, api.ErrPathNotFound) {
		t.Fatalf("expected ErrPathNotFound, got %v", err)
	}
}

func TestRootTagsKeepInsertionOrder(t *testing.T) {
	store := NewTreeStore()
	for _, tag := range []string{"read", "subtract", "fit"} {
		if err := store.Set(tag, tag); err != nil {
			t.Fatalf("Set %s failed: %v", tag, err)
		}
	}
	got := store.RootTags()
	want := []string{"read", "subtract", "fit"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestListURIsParentsBeforeChildren(t *testing.T) {
	store := NewTreeStore()
	if err := store.Set("fit", map[string]any{"params": map[string]any{"amp": 1.0}}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	uris, err := store.ListURIs("")
	if err != nil {
		t.Fatalf("ListURIs failed: %v", err)
	}
	want := []string{"fit", "fit.params", "fit.params.amp"}
	if !reflect.DeepEqual(uris, want) {
		t.Fatalf("expected %v, got %v", want, uris)
	}

	uris, err = store.ListURIs("fit.params")
	if err != nil {
		t.Fatalf("ListURIs rooted failed: %v", err)
	}
	want = []string{"fit.params", "fit.params.amp"}
	if !reflect.DeepEqual(uris, want) {
		t.Fatalf("expected %v, got %v", want, uris)
	}
}

func TestMakeUniqueURI(t *testing.T) {
	store := NewTreeStore()

	if got := store.MakeUniqueURI("op"); got != "op_0" {
		t.Fatalf("expected op_0, got %q", got)
	}
	// Register op_0 and the next candidate moves on.
	if err := store.Set("op_0", 1); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if got := store.MakeUniqueURI("op"); got != "op_1" {
		t.Fatalf("expected op_1, got %q", got)
	}
	// Unregistered gaps are filled first.
	if err := store.Set("op_2", 1); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if got := store.MakeUniqueURI("op"); got != "op_1" {
		t.Fatalf("expected deterministic op_1, got %q", got)
	}
}

func TestFreshStoresShareNothing(t *testing.T) {
	a := NewTreeStore()
	b := NewTreeStore()
	if err := a.Set("only_in_a", 1); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if _, err := b.Get("only_in_a"); !errors.Is(err, api.ErrPathNotFound) {
		t.Fatalf("expected independent stores, got %v", err)
	}
}

func TestUpdateReplacesShape(t *testing.T) {
	store := NewTreeStore()
	if err := store.Set("result", map[string]any{"old": 1}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := store.Set("result", map[string]any{"mean": 2.5, "sigma": 0.1}); err != nil {
		t.Fatalf("second Set failed: %v", err)
	}
	if _, err := store.Get("result.old"); !errors.Is(err, api.ErrPathNotFound) {
		t.Fatalf("expected stale child gone, got %v", err)
	}
	v, err := store.Get("result.mean")
	if err != nil {
		t.Fatalf("Get mean failed: %v", err)
	}
	if v != 2.5 {
		t.Fatalf("expected 2.5, got %v", v)
	}
}

func TestBuildTreeDataOrdersMapKeys(t *testing.T) {
	d, ok := BuildTreeData(map[string]any{"b": 2, "a": 1, "c": 3}).(*TreeData)
	if !ok {
		t.Fatal("expected *TreeData")
	}
	if !reflect.DeepEqual(d.Keys(), []string{"a", "b", "c"}) {
		t.Fatalf("expected sorted keys, got %v", d.Keys())
	}
}
