package tree

import (
	"errors"
	"reflect"
	"testing"

	"github.com/rheijn/flume/pkg/api"
)

func TestSetItemBuildsMatchingNodes(t *testing.T) {
	ix := NewNodeIndex()

	err := ix.SetItem("read", map[string]any{
		"inputs":  map[string]any{"path": "data/scan.csv"},
		"outputs": map[string]any{"data": nil},
	})
	if err != nil {
		t.Fatalf("SetItem failed: %v", err)
	}

	node, err := ix.NodeAt("read.inputs.path")
	if err != nil {
		t.Fatalf("NodeAt failed: %v", err)
	}
	if node.Tag() != "path" {
		t.Fatalf("expected tag path, got %q", node.Tag())
	}
	if got := ix.URIFor(node); got != "read.inputs.path" {
		t.Fatalf("URIFor round trip failed: %q", got)
	}
}

func TestReconcileReusesNodesAndFlags(t *testing.T) {
	ix := NewNodeIndex()

	if err := ix.SetItem("fit", map[string]any{"inputs": map[string]any{"x": 1}}); err != nil {
		t.Fatalf("SetItem failed: %v", err)
	}
	node, err := ix.NodeAt("fit")
	if err != nil {
		t.Fatalf("NodeAt failed: %v", err)
	}
	node.SetFlag("enabled", true)

	// Updating the item keeps the same node, so flags survive.
	if err := ix.SetItem("fit", map[string]any{"inputs": map[string]any{"x": 2}}); err != nil {
		t.Fatalf("second SetItem failed: %v", err)
	}
	again, err := ix.NodeAt("fit")
	if err != nil {
		t.Fatalf("NodeAt after update failed: %v", err)
	}
	if again != node {
		t.Fatal("expected node to be reused across updates")
	}
	if !again.Flag("enabled") {
		t.Fatal("expected flag to survive the update")
	}
}

func TestReconcilePrunesStaleChildren(t *testing.T) {
	ix := NewNodeIndex()

	if err := ix.SetItem("hdr", map[string]any{"a": 1, "b": 2}); err != nil {
		t.Fatalf("SetItem failed: %v", err)
	}
	if err := ix.SetItem("hdr", map[string]any{"b": 3}); err != nil {
		t.Fatalf("second SetItem failed: %v", err)
	}
	if _, err := ix.NodeAt("hdr.a"); !errors.Is(err, api.ErrPathNotFound) {
		t.Fatalf("expected stale node pruned, got %v", err)
	}
	if _, err := ix.NodeAt("hdr.b"); err != nil {
		t.Fatalf("expected surviving node, got %v", err)
	}
}

func TestRemoveItemExcisesNode(t *testing.T) {
	ix := NewNodeIndex()

	if err := ix.SetItem("tmp", 42); err != nil {
		t.Fatalf("SetItem failed: %v", err)
	}
	if err := ix.RemoveItem("tmp"); err != nil {
		t.Fatalf("RemoveItem failed: %v", err)
	}
	if _, err := ix.NodeAt("tmp"); !errors.Is(err, api.ErrPathNotFound) {
		t.Fatalf("expected node gone, got %v", err)
	}
	if _, err := ix.Get("tmp"); !errors.Is(err, api.ErrPathNotFound) {
		t.Fatalf("expected value gone, got %v", err)
	}
	if err := ix.RemoveItem("tmp"); !errors.Is(err, api.ErrPathNotFound) {
		t.Fatalf("expected second remove to fail, got %v", err)
	}
}

func TestNewNodeHookInstallsDefaults(t *testing.T) {
	ix := NewNodeIndex()
	ix.NewNode = func(parent *Node, tag string) *Node {
		n := NewNode(parent, tag)
		n.SetFlag("enabled", true)
		return n
	}

	if err := ix.SetItem("op", 1); err != nil {
		t.Fatalf("SetItem failed: %v", err)
	}
	node, err := ix.NodeAt("op")
	if err != nil {
		t.Fatalf("NodeAt failed: %v", err)
	}
	if !node.Flag("enabled") {
		t.Fatal("expected hook-installed flag")
	}
}

type probe struct {
	label string
	value float64
}

func TestBuildDataHookExpandsDomainObjects(t *testing.T) {
	ix := NewNodeIndex()
	ix.BuildData = func(v any) any {
		if p, ok := v.(probe); ok {
			d := NewTreeData()
			d.Set("label", p.label)
			d.Set("value", p.value)
			return d
		}
		return BuildTreeData(v)
	}

	if err := ix.SetItem("det", probe{label: "pilatus", value: 1.5}); err != nil {
		t.Fatalf("SetItem failed: %v", err)
	}

	// The raw object stays resolvable at the item uri.
	v, err := ix.Get("det")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if p, ok := v.(probe); !ok || p.label != "pilatus" {
		t.Fatalf("expected raw probe, got %#v", v)
	}

	// The expanded members are addressable underneath it.
	v, err = ix.Get("det.label")
	if err != nil {
		t.Fatalf("Get member failed: %v", err)
	}
	if v != "pilatus" {
		t.Fatalf("expected pilatus, got %v", v)
	}
}

func TestBuildToURICreatesPlaceholders(t *testing.T) {
	ix := NewNodeIndex()

	node, err := ix.BuildToURI("a.b.c")
	if err != nil {
		t.Fatalf("BuildToURI failed: %v", err)
	}
	if got := ix.URIFor(node); got != "a.b.c" {
		t.Fatalf("expected a.b.c, got %q", got)
	}
	// Placeholder interiors accept children immediately.
	if err := ix.Set("a.b.c", 7); err != nil {
		t.Fatalf("Set under placeholder failed: %v", err)
	}
}

func TestNodeChildOrder(t *testing.T) {
	ix := NewNodeIndex()
	for _, tag := range []string{"first", "second", "third"} {
		if err := ix.SetItem(tag, tag); err != nil {
			t.Fatalf("SetItem %s failed: %v", tag, err)
		}
	}
	var tags []string
	for _, c := range ix.Root().Children() {
		tags = append(tags, c.Tag())
	}
	if !reflect.DeepEqual(tags, []string{"first", "second", "third"}) {
		t.Fatalf("unexpected child order: %v", tags)
	}
}
