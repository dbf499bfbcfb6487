package tree

import (
	"fmt"
	"strings"

	"github.com/rheijn/flume/pkg/api"
)

// RootTag is the tag of the index root node. The root has no parent and is
// not part of any URI.
const RootTag = "ROOT"

// Node is one index entry mirroring a TreeStore position. It owns its
// ordered children; the parent pointer is a non-owning back-reference.
// Flags carry per-node metadata such as "enabled" and "selected".
type Node struct {
	tag      string
	parent   *Node
	children []*Node
	flags    map[string]bool
}

// NewNode creates an index node under parent. It is primarily for NewNode
// hooks in specialized indexes; SetItem and BuildToURI create nodes through
// the hook automatically.
func NewNode(parent *Node, tag string) *Node {
	return &Node{tag: tag, parent: parent}
}

// Tag returns the node's segment of the URI.
func (n *Node) Tag() string { return n.tag }

// Parent returns the owning node, or nil for the root.
func (n *Node) Parent() *Node { return n.parent }

// Children returns the node's ordered children.
func (n *Node) Children() []*Node { return n.children }

// Flag returns the named flag; absent flags read as false.
func (n *Node) Flag(name string) bool { return n.flags[name] }

// SetFlag sets the named flag.
func (n *Node) SetFlag(name string, v bool) {
	if n.flags == nil {
		n.flags = make(map[string]bool)
	}
	n.flags[name] = v
}

func (n *Node) child(tag string) *Node {
	for _, c := range n.children {
		if c.tag == tag {
			return c
		}
	}
	return nil
}

// NodeIndex layers a tree of Nodes over a TreeStore, giving O(depth)
// navigation and per-node flags alongside the stored data.
//
// Two hooks specialize the index:
//
//   - BuildData translates an arbitrary value into tree-shaped data before
//     indexing. When nil, BuildTreeData is used. A workflow overrides this
//     to expand an operation into synthetic "inputs"/"outputs" subtrees.
//   - NewNode creates index nodes, letting a specialization install default
//     flags. When nil, bare nodes are created.
type NodeIndex struct {
	BuildData func(v any) any
	NewNode   func(parent *Node, tag string) *Node

	store *TreeStore
	root  *Node
}

// NewNodeIndex returns an index over a freshly allocated TreeStore.
func NewNodeIndex() *NodeIndex {
	return &NodeIndex{
		store: NewTreeStore(),
		root:  &Node{tag: RootTag},
	}
}

// Store returns the underlying TreeStore.
func (ix *NodeIndex) Store() *TreeStore { return ix.store }

// Root returns the index root node.
func (ix *NodeIndex) Root() *Node { return ix.root }

func (ix *NodeIndex) build(v any) any {
	if ix.BuildData != nil {
		return ix.BuildData(v)
	}
	return BuildTreeData(v)
}

func (ix *NodeIndex) newNode(parent *Node, tag string) *Node {
	if ix.NewNode != nil {
		return ix.NewNode(parent, tag)
	}
	return &Node{tag: tag, parent: parent}
}

// SetItem stores data at uri and reconciles the index to match its shape.
// Ancestor nodes are created as needed (BuildToURI); existing child nodes
// are reused by tag so their flags and positions survive updates.
func (ix *NodeIndex) SetItem(uri string, data any) error {
	if !IsValidURI(uri) {
		return fmt.Errorf("%w: %s", api.ErrInvalidURI, URIErrorMessage(uri))
	}
	parent := ix.root
	tag := uri
	if i := strings.LastIndex(uri, Separator); i >= 0 {
		p, err := ix.BuildToURI(uri[:i])
		if err != nil {
			return err
		}
		parent = p
		tag = uri[i+1:]
	}
	shape := ix.build(data)
	ix.reconcile(parent, tag, shape)
	return ix.store.SetWithShape(uri, data, shape)
}

// reconcile makes parent.children[tag] exist and match the shape of data,
// reusing existing nodes by tag rather than recreating them.
func (ix *NodeIndex) reconcile(parent *Node, tag string, data any) *Node {
	node := parent.child(tag)
	if node == nil {
		node = ix.newNode(parent, tag)
		parent.children = append(parent.children, node)
	}
	if d, ok := data.(*TreeData); ok {
		for _, key := range d.Keys() {
			ix.reconcile(node, key, d.Get(key))
		}
		// Drop index nodes for children no longer present in the data.
		kept := node.children[:0]
		for _, c := range node.children {
			if _, ok := d.items[c.tag]; ok {
				kept = append(kept, c)
			}
		}
		node.children = kept
	} else {
		node.children = nil
	}
	return node
}

// RemoveItem deletes the stored item at uri and excises the corresponding
// node from its parent's child sequence.
func (ix *NodeIndex) RemoveItem(uri string) error {
	node, err := ix.NodeAt(uri)
	if err != nil {
		return err
	}
	if err := ix.store.Delete(uri); err != nil {
		return err
	}
	parent := node.parent
	for i, c := range parent.children {
		if c == node {
			parent.children = append(parent.children[:i], parent.children[i+1:]...)
			break
		}
	}
	node.parent = nil
	return nil
}

// NodeAt returns the index node at uri.
func (ix *NodeIndex) NodeAt(uri string) (*Node, error) {
	if !IsValidURI(uri) {
		return nil, fmt.Errorf("%w: %s", api.ErrInvalidURI, URIErrorMessage(uri))
	}
	node := ix.root
	for _, tag := range strings.Split(uri, Separator) {
		next := node.child(tag)
		if next == nil {
			return nil, fmt.Errorf("%w: %s", api.ErrPathNotFound, uri)
		}
		node = next
	}
	return node, nil
}

// BuildToURI fills the index out with empty placeholder nodes (and matching
// interior store nodes) until a node exists at uri, returning it.
func (ix *NodeIndex) BuildToURI(uri string) (*Node, error) {
	if !IsValidURI(uri) {
		return nil, fmt.Errorf("%w: %s", api.ErrInvalidURI, URIErrorMessage(uri))
	}
	node := ix.root
	for _, tag := range strings.Split(uri, Separator) {
		next := node.child(tag)
		if next == nil {
			next = ix.newNode(node, tag)
			node.children = append(node.children, next)
		}
		node = next
	}
	if err := ix.store.EnsureInterior(uri); err != nil {
		return nil, err
	}
	return node, nil
}

// URIFor builds the URI of an index node by concatenating tags from root to
// node. The root itself maps to the empty URI.
func (ix *NodeIndex) URIFor(n *Node) string {
	if n == ix.root {
		return ""
	}
	uri := n.tag
	for p := n.parent; p != nil && p != ix.root; p = p.parent {
		uri = p.tag + Separator + uri
	}
	return uri
}

// Get returns the stored value at uri.
func (ix *NodeIndex) Get(uri string) (any, error) { return ix.store.Get(uri) }

// Set stores a value at uri without reshaping the index; use SetItem when
// the shape may change.
func (ix *NodeIndex) Set(uri string, v any) error { return ix.store.Set(uri, v) }

// RootTags returns the tags of the top-level items in insertion order.
func (ix *NodeIndex) RootTags() []string { return ix.store.RootTags() }

// ListURIs lists resolvable URIs under rootURI, parents before children.
func (ix *NodeIndex) ListURIs(rootURI string) ([]string, error) {
	return ix.store.ListURIs(rootURI)
}

// MakeUniqueURI delegates to the underlying store.
func (ix *NodeIndex) MakeUniqueURI(prefix string) string {
	return ix.store.MakeUniqueURI(prefix)
}

// Contains reports whether uri was explicitly written.
func (ix *NodeIndex) Contains(uri string) bool { return ix.store.Contains(uri) }
