package api

import (
	"context"
	"fmt"
)

// InputKind describes how the value for a named operation input is obtained.
type InputKind int

const (
	// KindLiteral means the locator carries the value itself.
	KindLiteral InputKind = iota

	// KindFilePath means the locator carries a filesystem path string;
	// the operation itself decides how to read it.
	KindFilePath

	// KindRuntime means the locator carries a runtime-only value, such as a
	// live plugin handle. Runtime values are never serialized.
	KindRuntime

	// KindWorkflowItem means the locator carries a URI (or list of URIs)
	// referencing items inside the owning workflow's tree.
	KindWorkflowItem
)

var kindNames = map[InputKind]string{
	KindLiteral:      "literal",
	KindFilePath:     "filepath",
	KindRuntime:      "runtime",
	KindWorkflowItem: "workflow_item",
}

func (k InputKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseInputKind converts a serialized kind name back to an InputKind.
func ParseInputKind(name string) (InputKind, error) {
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown input kind %q", name)
}

// InputLocator describes how to obtain the current value for one named input.
// For KindWorkflowItem the value is a URI string or a []string of URIs;
// a list locator resolves to a list of looked-up values.
type InputLocator struct {
	Kind  InputKind
	Value any
}

// Literal builds a locator that carries the value itself.
func Literal(v any) InputLocator { return InputLocator{Kind: KindLiteral, Value: v} }

// FilePath builds a locator carrying a filesystem path.
func FilePath(p string) InputLocator { return InputLocator{Kind: KindFilePath, Value: p} }

// Runtime builds a locator carrying a runtime-only value.
// Runtime locators are serialized as kind only, with a null value.
func Runtime(v any) InputLocator { return InputLocator{Kind: KindRuntime, Value: v} }

// WorkflowItem builds a locator referencing one or more URIs inside the
// owning workflow. With a single URI the locator resolves to that item's
// value; with several it resolves to a list of values.
func WorkflowItem(uris ...string) InputLocator {
	if len(uris) == 1 {
		return InputLocator{Kind: KindWorkflowItem, Value: uris[0]}
	}
	return InputLocator{Kind: KindWorkflowItem, Value: uris}
}

// URIs returns the workflow-item references carried by the locator.
// It returns nil for other locator kinds.
func (l InputLocator) URIs() []string {
	if l.Kind != KindWorkflowItem {
		return nil
	}
	switch v := l.Value.(type) {
	case string:
		return []string{v}
	case []string:
		return v
	}
	return nil
}

// Operation is the contract every computational unit satisfies. Concrete
// operations embed an OpCore, declare their ports once at construction, and
// implement Run.
//
// Run consumes the already-resolved values in the core's inputs and writes
// its outputs. It must be idempotent with respect to re-invocation with the
// same resolved inputs. A missing required input is not an error: Run should
// leave the outputs in an explicit empty state (see OpCore.ClearOutputs) so
// callers can distinguish a skipped operation from a failed one.
type Operation interface {
	Core() *OpCore
	Run(ctx context.Context) error
}

// OpCore holds the declared ports of an operation: input names with their
// locators and last-resolved values, output names with their last-produced
// values, and per-port documentation. Declaration order is preserved.
//
// The zero OpCore is ready to use.
type OpCore struct {
	inputNames  []string
	outputNames []string

	locators  map[string]InputLocator
	inputs    map[string]any
	outputs   map[string]any
	inputDoc  map[string]string
	outputDoc map[string]string
}

// DeclareInput registers a named input with its documentation and default
// locator. Inputs are declared once, at construction; re-declaring a name
// replaces its doc and locator but keeps its position.
func (c *OpCore) DeclareInput(name, doc string, loc InputLocator) {
	c.init()
	if _, ok := c.locators[name]; !ok {
		c.inputNames = append(c.inputNames, name)
	}
	c.locators[name] = loc
	c.inputDoc[name] = doc
}

// DeclareOutput registers a named output with its documentation.
func (c *OpCore) DeclareOutput(name, doc string) {
	c.init()
	if _, ok := c.outputDoc[name]; !ok {
		c.outputNames = append(c.outputNames, name)
	}
	c.outputDoc[name] = doc
}

func (c *OpCore) init() {
	if c.locators == nil {
		c.locators = make(map[string]InputLocator)
		c.inputs = make(map[string]any)
		c.outputs = make(map[string]any)
		c.inputDoc = make(map[string]string)
		c.outputDoc = make(map[string]string)
	}
}

// Core returns the core itself, so embedding an OpCore satisfies the
// Operation contract's Core method.
func (c *OpCore) Core() *OpCore { return c }

// InputNames returns the input names in declaration order.
func (c *OpCore) InputNames() []string { return append([]string(nil), c.inputNames...) }

// OutputNames returns the output names in declaration order.
func (c *OpCore) OutputNames() []string { return append([]string(nil), c.outputNames...) }

// Locator returns the locator for a declared input.
func (c *OpCore) Locator(name string) (InputLocator, bool) {
	loc, ok := c.locators[name]
	return loc, ok
}

// SetLocator replaces the locator for a declared input.
func (c *OpCore) SetLocator(name string, loc InputLocator) error {
	if _, ok := c.locators[name]; !ok {
		return fmt.Errorf("input %q is not declared", name)
	}
	c.locators[name] = loc
	return nil
}

// SetInput stores a resolved value for a declared input.
func (c *OpCore) SetInput(name string, v any) {
	c.init()
	c.inputs[name] = v
}

// Input returns the last-resolved value for an input, or nil.
func (c *OpCore) Input(name string) any { return c.inputs[name] }

// SetOutput stores a produced value for a declared output.
func (c *OpCore) SetOutput(name string, v any) {
	c.init()
	c.outputs[name] = v
}

// Output returns the last-produced value for an output, or nil.
func (c *OpCore) Output(name string) any { return c.outputs[name] }

// ClearOutputs resets every declared output to nil. Operations call this to
// record an explicit no-op result when a required input is missing.
func (c *OpCore) ClearOutputs() {
	c.init()
	for _, name := range c.outputNames {
		c.outputs[name] = nil
	}
}

// InputDoc returns the documentation string for a declared input.
func (c *OpCore) InputDoc(name string) string { return c.inputDoc[name] }

// OutputDoc returns the documentation string for a declared output.
func (c *OpCore) OutputDoc(name string) string { return c.outputDoc[name] }

// Plugin is a persistent, engine-opaque value managed by the orchestrator.
// The engine stores plugins and hands them out to operations but never
// inspects their internals beyond the configured inputs used to
// reconstruct them.
type Plugin interface {
	// InputNames returns the configuration input names in declaration order.
	InputNames() []string

	// SetInput stores a configuration value before Start.
	SetInput(name string, v any)

	// Input returns a configuration value.
	Input(name string) any

	// Start brings the plugin to a usable state.
	Start(ctx context.Context) error

	// Stop releases any resources held by the plugin. It is idempotent.
	Stop() error

	// Content returns the opaque value exposed to workflows.
	Content() any
}

// PluginCore is a minimal configuration holder for embedding in concrete
// plugins, mirroring OpCore.
type PluginCore struct {
	names  []string
	inputs map[string]any
}

// DeclareInput registers a configuration input with a default value.
func (c *PluginCore) DeclareInput(name string, def any) {
	c.SetInput(name, def)
}

func (c *PluginCore) InputNames() []string { return append([]string(nil), c.names...) }

func (c *PluginCore) SetInput(name string, v any) {
	if c.inputs == nil {
		c.inputs = make(map[string]any)
	}
	if _, ok := c.inputs[name]; !ok {
		c.names = append(c.names, name)
	}
	c.inputs[name] = v
}

func (c *PluginCore) Input(name string) any { return c.inputs[name] }
