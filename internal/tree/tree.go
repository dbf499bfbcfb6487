// Package tree implements the hierarchically-addressed store underneath a
// workflow: an ordered, nested key/value store addressed by dot-delimited
// URIs (TreeStore), and a parallel index of lightweight nodes carrying
// per-node flags (NodeIndex).
package tree

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/rheijn/flume/pkg/api"
)

// Separator joins the tag segments of a URI.
const Separator = "."

// IsValidTag reports whether tag is usable as a single URI segment.
// Tags may contain letters, digits, underscores and dashes; the '.'
// separator is forbidden inside a tag.
func IsValidTag(tag string) bool {
	if tag == "" {
		return false
	}
	for _, r := range tag {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
		case r == '_' || r == '-':
		default:
			return false
		}
	}
	return true
}

// IsValidURI reports whether uri is a non-empty sequence of valid tags
// joined by the '.' separator.
func IsValidURI(uri string) bool {
	if uri == "" {
		return false
	}
	for _, tag := range strings.Split(uri, Separator) {
		if !IsValidTag(tag) {
			return false
		}
	}
	return true
}

// URIErrorMessage returns a human-readable reason why uri is invalid, for
// surfacing in caller-facing diagnostics.
func URIErrorMessage(uri string) string {
	if uri == "" {
		return "uri is empty"
	}
	for _, tag := range strings.Split(uri, Separator) {
		if tag == "" {
			return fmt.Sprintf("uri %q contains an empty tag", uri)
		}
		if !IsValidTag(tag) {
			return fmt.Sprintf("uri %q contains forbidden characters in tag %q", uri, tag)
		}
	}
	return fmt.Sprintf("unspecified error for uri %q", uri)
}

// TreeData is ordered tree-shaped data: the form values are translated into
// before being indexed. Interior positions hold *TreeData, leaves hold
// arbitrary values.
type TreeData struct {
	keys  []string
	items map[string]any
	list  bool
}

// NewTreeData returns an empty ordered mapping.
func NewTreeData() *TreeData {
	return &TreeData{items: make(map[string]any)}
}

// Set stores v under key, appending the key if it is new.
func (d *TreeData) Set(key string, v any) {
	if _, ok := d.items[key]; !ok {
		d.keys = append(d.keys, key)
	}
	d.items[key] = v
}

// Get returns the value stored under key, or nil.
func (d *TreeData) Get(key string) any { return d.items[key] }

// Keys returns the keys in insertion order.
func (d *TreeData) Keys() []string { return append([]string(nil), d.keys...) }

// Len returns the number of keys.
func (d *TreeData) Len() int { return len(d.keys) }

// BuildTreeData translates an arbitrary value into tree-shaped data.
// Maps become interior nodes with sorted keys; slices become interior nodes
// indexed by position; everything else is a leaf. Specialized stores wrap
// this to expand their own domain objects first.
func BuildTreeData(v any) any {
	switch x := v.(type) {
	case *TreeData:
		d := NewTreeData()
		d.list = x.list
		for _, k := range x.keys {
			d.Set(k, BuildTreeData(x.items[k]))
		}
		return d
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		d := NewTreeData()
		for _, k := range keys {
			d.Set(k, BuildTreeData(x[k]))
		}
		return d
	case []any:
		d := NewTreeData()
		d.list = true
		for i, item := range x {
			d.Set(strconv.Itoa(i), BuildTreeData(item))
		}
		return d
	default:
		return v
	}
}

// treeNode is one position in the store. Interior nodes carry ordered
// children; leaves carry an opaque payload. A node produced by expanding a
// domain object keeps the raw object in value alongside its children.
type treeNode struct {
	tag      string
	value    any
	leaf     bool
	list     bool
	children []*treeNode
}

func (n *treeNode) child(tag string) *treeNode {
	for _, c := range n.children {
		if c.tag == tag {
			return c
		}
	}
	return nil
}

func (n *treeNode) removeChild(tag string) bool {
	for i, c := range n.children {
		if c.tag == tag {
			n.children = append(n.children[:i], n.children[i+1:]...)
			return true
		}
	}
	return false
}

// TreeStore is an ordered, nested key/value store addressed by dot-delimited
// URIs. It retains a flat registry of every URI ever written, used to test
// uniqueness and to generate unique names.
//
// TreeStore is not goroutine-safe; concurrent writers must serialize access
// (the workflow execution driver holds one writer lock per pipeline).
type TreeStore struct {
	root   *treeNode
	uris   []string
	uriSet map[string]struct{}
}

// NewTreeStore returns an empty store. Every store gets its own freshly
// allocated root; nothing is shared between instances.
func NewTreeStore() *TreeStore {
	return &TreeStore{
		root:   &treeNode{},
		uriSet: make(map[string]struct{}),
	}
}

func (t *TreeStore) resolve(uri string) (*treeNode, error) {
	node := t.root
	for _, tag := range strings.Split(uri, Separator) {
		next := node.child(tag)
		if next == nil {
			return nil, fmt.Errorf("%w: %s", api.ErrPathNotFound, uri)
		}
		node = next
	}
	return node, nil
}

// Get returns the value stored at uri. Interior nodes resolve to the raw
// object they were expanded from when one exists, otherwise to a snapshot of
// their children: []any for nodes expanded from a slice, map[string]any for
// everything else.
func (t *TreeStore) Get(uri string) (any, error) {
	if !IsValidURI(uri) {
		return nil, fmt.Errorf("%w: %s", api.ErrInvalidURI, URIErrorMessage(uri))
	}
	node, err := t.resolve(uri)
	if err != nil {
		return nil, err
	}
	return nodeValue(node), nil
}

func nodeValue(n *treeNode) any {
	if n.leaf {
		return n.value
	}
	if n.value != nil {
		return n.value
	}
	if n.list {
		items := make([]any, 0, len(n.children))
		for _, c := range n.children {
			items = append(items, nodeValue(c))
		}
		return items
	}
	snapshot := make(map[string]any, len(n.children))
	for _, c := range n.children {
		snapshot[c.tag] = nodeValue(c)
	}
	return snapshot
}

// Set stores v at uri. Intermediate nodes must already exist; only the final
// segment is created. Map and slice values are expanded into interior nodes
// so their members are addressable by URI.
func (t *TreeStore) Set(uri string, v any) error {
	return t.SetWithShape(uri, v, BuildTreeData(v))
}

// SetWithShape stores raw at uri using shape (from BuildTreeData or a
// specialized expansion) to lay out addressable children. When shape is a
// *TreeData the node becomes an interior node whose children mirror the
// shape; raw is kept as the node's resolved value unless it is itself a
// plain map or slice.
func (t *TreeStore) SetWithShape(uri string, raw, shape any) error {
	if !IsValidURI(uri) {
		return fmt.Errorf("%w: %s", api.ErrInvalidURI, URIErrorMessage(uri))
	}
	parent := t.root
	if i := strings.LastIndex(uri, Separator); i >= 0 {
		p, err := t.resolve(uri[:i])
		if err != nil {
			return err
		}
		parent = p
	}
	tag := uri[strings.LastIndex(uri, Separator)+1:]
	node := parent.child(tag)
	if node == nil {
		node = &treeNode{tag: tag}
		parent.children = append(parent.children, node)
	}
	applyShape(node, raw, shape)
	t.register(uri)
	return nil
}

func applyShape(node *treeNode, raw, shape any) {
	data, ok := shape.(*TreeData)
	if !ok {
		node.leaf = true
		node.value = raw
		node.children = nil
		return
	}
	node.leaf = false
	node.list = data.list
	switch raw.(type) {
	case map[string]any, []any, *TreeData, nil:
		// Plain containers are materialized from children on Get.
		node.value = nil
	default:
		node.value = raw
	}
	// Rebuild children in shape order, reusing existing nodes by tag.
	rebuilt := make([]*treeNode, 0, data.Len())
	for _, key := range data.keys {
		child := node.child(key)
		if child == nil {
			child = &treeNode{tag: key}
		}
		childShape := data.items[key]
		childRaw := childShape
		if _, ok := childShape.(*TreeData); ok {
			childRaw = nil
		}
		applyShape(child, childRaw, childShape)
		rebuilt = append(rebuilt, child)
	}
	node.children = rebuilt
}

// EnsureInterior creates empty interior nodes along uri so that children can
// be set beneath it. Existing nodes are left untouched.
func (t *TreeStore) EnsureInterior(uri string) error {
	if !IsValidURI(uri) {
		return fmt.Errorf("%w: %s", api.ErrInvalidURI, URIErrorMessage(uri))
	}
	node := t.root
	for _, tag := range strings.Split(uri, Separator) {
		next := node.child(tag)
		if next == nil {
			next = &treeNode{tag: tag}
			node.children = append(node.children, next)
		}
		node = next
	}
	return nil
}

// Delete removes the item at uri along with everything nested under it, and
// prunes every previously registered URI under the deleted path. It is
// allowed to be linear in the number of stored URIs.
func (t *TreeStore) Delete(uri string) error {
	if !IsValidURI(uri) {
		return fmt.Errorf("%w: %s", api.ErrInvalidURI, URIErrorMessage(uri))
	}
	parent := t.root
	if i := strings.LastIndex(uri, Separator); i >= 0 {
		p, err := t.resolve(uri[:i])
		if err != nil {
			return err
		}
		parent = p
	}
	tag := uri[strings.LastIndex(uri, Separator)+1:]
	if !parent.removeChild(tag) {
		return fmt.Errorf("%w: %s", api.ErrPathNotFound, uri)
	}
	prefix := uri + Separator
	kept := t.uris[:0]
	for _, u := range t.uris {
		if u == uri || strings.HasPrefix(u, prefix) {
			delete(t.uriSet, u)
			continue
		}
		kept = append(kept, u)
	}
	t.uris = kept
	return nil
}

// Contains reports whether uri was explicitly written to the store.
// Items reachable only through an expanded parent are resolvable via Get
// but not registered.
func (t *TreeStore) Contains(uri string) bool {
	_, ok := t.uriSet[uri]
	return ok
}

func (t *TreeStore) register(uri string) {
	if _, ok := t.uriSet[uri]; ok {
		return
	}
	t.uriSet[uri] = struct{}{}
	t.uris = append(t.uris, uri)
}

// RootTags returns the tags of the store's top-level items in insertion
// order.
func (t *TreeStore) RootTags() []string {
	tags := make([]string, 0, len(t.root.children))
	for _, c := range t.root.children {
		tags = append(tags, c.tag)
	}
	return tags
}

// ListURIs returns every resolvable URI under rootURI, depth-first with
// parents before children. An empty rootURI lists the whole store.
func (t *TreeStore) ListURIs(rootURI string) ([]string, error) {
	start := t.root
	prefix := ""
	if rootURI != "" {
		node, err := t.resolve(rootURI)
		if err != nil {
			return nil, err
		}
		start = node
		prefix = rootURI
	}
	var uris []string
	if prefix != "" {
		uris = append(uris, prefix)
	}
	var walk func(n *treeNode, base string)
	walk = func(n *treeNode, base string) {
		for _, c := range n.children {
			uri := c.tag
			if base != "" {
				uri = base + Separator + c.tag
			}
			uris = append(uris, uri)
			walk(c, uri)
		}
	}
	walk(start, prefix)
	return uris, nil
}

// MakeUniqueURI generates the next unused URI from prefix by appending "_x",
// where x is the minimal nonnegative integer. The result is deterministic
// for a fixed store state and never collides with a registered URI.
func (t *TreeStore) MakeUniqueURI(prefix string) string {
	for suffix := 0; ; suffix++ {
		candidate := prefix + "_" + strconv.Itoa(suffix)
		if _, ok := t.uriSet[candidate]; !ok {
			return candidate
		}
	}
}
