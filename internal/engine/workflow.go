// Package engine implements the flume scheduling core: the Workflow type
// with its dependency resolver and execution driver, the Registry catalogs,
// and the Orchestrator that owns named pipelines and their persistence.
package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rheijn/flume/internal/tree"
	"github.com/rheijn/flume/pkg/api"
)

const (
	// InputsTag and OutputsTag name the synthetic subtrees an operation is
	// expanded into when stored in a workflow.
	InputsTag  = "inputs"
	OutputsTag = "outputs"

	// FlagEnabled and FlagSelected are the node flags carried by every
	// operation entry.
	FlagEnabled  = "enabled"
	FlagSelected = "selected"
)

// Workflow is one pipeline instance: a NodeIndex whose top-level children
// are tagged operations, plus named external input/output ports. It owns the
// dependency resolver (BuildPlan) and the execution driver (Execute).
//
// A Workflow's methods are safe for concurrent use during execution only in
// the ways the driver itself uses them; configuration (adding operations,
// changing locators) is expected to happen before Execute.
type Workflow struct {
	*tree.NodeIndex

	name     string
	observer api.Observer

	// mu serializes tree writes from operations running concurrently
	// within one stage.
	mu sync.Mutex

	wfInputs   map[string][]string
	wfOutputs  map[string][]string
	inputOrder []string
	outOrder   []string
}

// NewWorkflow returns an empty workflow with a freshly allocated tree.
func NewWorkflow() *Workflow {
	wf := &Workflow{
		NodeIndex: tree.NewNodeIndex(),
		observer:  api.NoopObserver{},
		wfInputs:  make(map[string][]string),
		wfOutputs: make(map[string][]string),
	}
	wf.NodeIndex.BuildData = wf.buildData
	wf.NodeIndex.NewNode = func(parent *tree.Node, tag string) *tree.Node {
		n := tree.NewNode(parent, tag)
		n.SetFlag(FlagEnabled, true)
		n.SetFlag(FlagSelected, false)
		return n
	}
	return wf
}

// SetName sets the pipeline name used in observer callbacks and errors.
func (wf *Workflow) SetName(name string) { wf.name = name }

// Name returns the pipeline name.
func (wf *Workflow) Name() string { return wf.name }

// SetObserver installs the observer notified by the execution driver.
// A nil observer resets to the no-op default.
func (wf *Workflow) SetObserver(obs api.Observer) {
	if obs == nil {
		obs = api.NoopObserver{}
	}
	wf.observer = obs
}

// buildData expands an operation into its synthetic inputs/outputs subtrees
// so that every port is addressable by URI; other values fall through to the
// generic translation.
func (wf *Workflow) buildData(v any) any {
	op, ok := v.(api.Operation)
	if !ok {
		return tree.BuildTreeData(v)
	}
	core := op.Core()
	in := tree.NewTreeData()
	for _, name := range core.InputNames() {
		in.Set(name, tree.BuildTreeData(core.Input(name)))
	}
	out := tree.NewTreeData()
	for _, name := range core.OutputNames() {
		out.Set(name, tree.BuildTreeData(core.Output(name)))
	}
	d := tree.NewTreeData()
	d.Set(InputsTag, in)
	d.Set(OutputsTag, out)
	return d
}

// AddOperation inserts op under tag as a top-level workflow entry. The tag
// must be a valid single segment and unused; the operation is enabled by
// default.
func (wf *Workflow) AddOperation(tag string, op api.Operation) error {
	if !tree.IsValidTag(tag) {
		return fmt.Errorf("%w: %q is not a valid operation tag", api.ErrInvalidTag, tag)
	}
	for _, existing := range wf.OperationTags() {
		if existing == tag {
			return fmt.Errorf("%w: operation %q already present", api.ErrDuplicateURI, tag)
		}
	}
	return wf.SetItem(tag, op)
}

// RemoveOperation deletes the operation and all of its stored ports.
func (wf *Workflow) RemoveOperation(tag string) error {
	if _, err := wf.Operation(tag); err != nil {
		return err
	}
	return wf.RemoveItem(tag)
}

// Operation returns the operation stored under tag.
func (wf *Workflow) Operation(tag string) (api.Operation, error) {
	v, err := wf.Get(tag)
	if err != nil {
		return nil, err
	}
	op, ok := v.(api.Operation)
	if !ok {
		return nil, fmt.Errorf("%w: %q does not hold an operation", api.ErrPathNotFound, tag)
	}
	return op, nil
}

// OperationTags returns the tags of the workflow's operations in insertion
// order.
func (wf *Workflow) OperationTags() []string { return wf.RootTags() }

// SetOpEnabled flips the node flag read by the resolver. Disabling never
// removes the operation or its data.
func (wf *Workflow) SetOpEnabled(tag string, enabled bool) error {
	node, err := wf.NodeAt(tag)
	if err != nil {
		return err
	}
	node.SetFlag(FlagEnabled, enabled)
	return nil
}

// OpEnabled reports the resolver-visible enabled flag.
func (wf *Workflow) OpEnabled(tag string) (bool, error) {
	node, err := wf.NodeAt(tag)
	if err != nil {
		return false, err
	}
	return node.Flag(FlagEnabled), nil
}

// SetLocator replaces the locator of one operation input and dereferences
// any previously resolved value.
func (wf *Workflow) SetLocator(opTag, input string, loc api.InputLocator) error {
	op, err := wf.Operation(opTag)
	if err != nil {
		return err
	}
	if err := op.Core().SetLocator(input, loc); err != nil {
		return fmt.Errorf("operation %s: %w", opTag, err)
	}
	op.Core().SetInput(input, nil)
	return nil
}

// ConnectInput registers a named external input port pointing at one or
// more internal URIs (conventionally of the form op.inputs.name).
func (wf *Workflow) ConnectInput(name string, uris ...string) {
	if _, ok := wf.wfInputs[name]; !ok {
		wf.inputOrder = append(wf.inputOrder, name)
	}
	wf.wfInputs[name] = append([]string(nil), uris...)
}

// ConnectOutput registers a named external output port pointing at one or
// more internal URIs (conventionally op.outputs.name).
func (wf *Workflow) ConnectOutput(name string, uris ...string) {
	if _, ok := wf.wfOutputs[name]; !ok {
		wf.outOrder = append(wf.outOrder, name)
	}
	wf.wfOutputs[name] = append([]string(nil), uris...)
}

// DisconnectInput removes an external input port.
func (wf *Workflow) DisconnectInput(name string) {
	delete(wf.wfInputs, name)
	wf.inputOrder = removeName(wf.inputOrder, name)
}

// DisconnectOutput removes an external output port.
func (wf *Workflow) DisconnectOutput(name string) {
	delete(wf.wfOutputs, name)
	wf.outOrder = removeName(wf.outOrder, name)
}

func removeName(names []string, name string) []string {
	for i, n := range names {
		if n == name {
			return append(names[:i], names[i+1:]...)
		}
	}
	return names
}

// InputNames returns the external input port names in registration order.
func (wf *Workflow) InputNames() []string { return append([]string(nil), wf.inputOrder...) }

// OutputNames returns the external output port names in registration order.
func (wf *Workflow) OutputNames() []string { return append([]string(nil), wf.outOrder...) }

// SetInput pushes a value to every operation input locator connected to the
// named external port. The connected URIs must have the form op.inputs.name.
// Only the locator value is replaced; its kind is preserved, so a filepath or
// workflow-item port stays a filepath or workflow-item port.
func (wf *Workflow) SetInput(name string, v any) error {
	uris, ok := wf.wfInputs[name]
	if !ok {
		return fmt.Errorf("%w: workflow input %q", api.ErrPathNotFound, name)
	}
	for _, uri := range uris {
		opTag, input, err := splitPortURI(uri, InputsTag)
		if err != nil {
			return err
		}
		op, err := wf.Operation(opTag)
		if err != nil {
			return err
		}
		loc, ok := op.Core().Locator(input)
		if !ok {
			return fmt.Errorf("%w: operation %s has no input %s", api.ErrPathNotFound, opTag, input)
		}
		loc.Value = v
		if err := wf.SetLocator(opTag, input, loc); err != nil {
			return err
		}
	}
	return nil
}

// Outputs collects the current values of every connected external output
// port. Ports connected to multiple URIs yield a list.
func (wf *Workflow) Outputs() (map[string]any, error) {
	out := make(map[string]any, len(wf.wfOutputs))
	for _, name := range wf.outOrder {
		uris := wf.wfOutputs[name]
		if len(uris) == 1 {
			v, err := wf.Get(uris[0])
			if err != nil {
				return nil, err
			}
			out[name] = v
			continue
		}
		vals := make([]any, 0, len(uris))
		for _, uri := range uris {
			v, err := wf.Get(uri)
			if err != nil {
				return nil, err
			}
			vals = append(vals, v)
		}
		out[name] = vals
	}
	return out, nil
}

func splitPortURI(uri, portTag string) (opTag, port string, err error) {
	parts := strings.Split(uri, tree.Separator)
	if len(parts) != 3 || parts[1] != portTag {
		return "", "", fmt.Errorf("%w: %q is not an op.%s.name uri", api.ErrInvalidURI, uri, portTag)
	}
	return parts[0], parts[2], nil
}

// setOpItem writes an operation sub-item (a resolved input or a produced
// output) into the tree under the operation's subtree.
func (wf *Workflow) setOpItem(opTag, itemURI string, v any) error {
	return wf.SetItem(opTag+tree.Separator+itemURI, v)
}

// lockedSetOpItem is setOpItem under the workflow writer lock, for use by
// operations running concurrently within a stage.
func (wf *Workflow) lockedSetOpItem(opTag, itemURI string, v any) error {
	wf.mu.Lock()
	defer wf.mu.Unlock()
	return wf.setOpItem(opTag, itemURI, v)
}

// Execute builds an execution plan and runs it to completion.
func (wf *Workflow) Execute(ctx context.Context) error {
	return wf.ExecutePlan(ctx, wf.BuildPlan())
}

// ExecutePlan runs the plan stage by stage. Within a stage, operations run
// in parallel goroutines; all tree writes are serialized through the
// workflow's writer lock. Inputs are resolved sequentially at the start of
// each stage, so resolution reads happen before any write from that stage.
// The first operation error aborts the remaining plan, wrapped as an
// *api.OpError carrying the failing tag.
func (wf *Workflow) ExecutePlan(ctx context.Context, plan *api.Plan) error {
	wf.observer.OnPipelineStart(ctx, wf.name)
	for i, stage := range plan.Stages {
		if err := ctx.Err(); err != nil {
			wf.observer.OnPipelineFailed(ctx, wf.name, err)
			return err
		}
		wf.observer.OnStageStart(ctx, wf.name, i, stage)
		if err := wf.runStage(ctx, stage); err != nil {
			wf.observer.OnPipelineFailed(ctx, wf.name, err)
			return err
		}
	}
	wf.observer.OnPipelineCompleted(ctx, wf.name)
	return nil
}

func (wf *Workflow) runStage(ctx context.Context, stage []string) error {
	ops := make(map[string]api.Operation, len(stage))
	for _, tag := range stage {
		op, err := wf.Operation(tag)
		if err != nil {
			return err
		}
		if err := wf.resolveInputs(tag, op); err != nil {
			return err
		}
		ops[tag] = op
	}

	if len(stage) == 1 {
		tag := stage[0]
		return wf.runOp(ctx, tag, ops[tag], wf.setOpItem)
	}

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	for _, tag := range stage {
		wg.Add(1)
		go func(tag string, op api.Operation) {
			defer wg.Done()
			if err := wf.runOp(ctx, tag, op, wf.lockedSetOpItem); err != nil {
				errOnce.Do(func() { firstErr = err })
			}
		}(tag, ops[tag])
	}
	wg.Wait()
	return firstErr
}

// resolveInputs re-resolves every input of op from its locator and writes
// the value into both the operation and the tree, so inputs are inspectable
// after the run.
func (wf *Workflow) resolveInputs(tag string, op api.Operation) error {
	core := op.Core()
	for _, name := range core.InputNames() {
		loc, _ := core.Locator(name)
		v, err := wf.locate(loc)
		if err != nil {
			return fmt.Errorf("operation %s input %s: %w", tag, name, err)
		}
		core.SetInput(name, v)
		if err := wf.setOpItem(tag, InputsTag+tree.Separator+name, v); err != nil {
			return err
		}
	}
	return nil
}

// locate fetches the current value a locator refers to. Workflow-item
// locators with a list of URIs resolve to a list of looked-up values.
func (wf *Workflow) locate(loc api.InputLocator) (any, error) {
	if loc.Kind != api.KindWorkflowItem {
		return loc.Value, nil
	}
	uris := loc.URIs()
	if len(uris) == 1 {
		return wf.Get(uris[0])
	}
	vals := make([]any, 0, len(uris))
	for _, uri := range uris {
		v, err := wf.Get(uri)
		if err != nil {
			return nil, err
		}
		vals = append(vals, v)
	}
	return vals, nil
}

type setItemFunc func(opTag, itemURI string, v any) error

func (wf *Workflow) runOp(ctx context.Context, tag string, op api.Operation, set setItemFunc) error {
	wf.observer.OnOpStart(ctx, wf.name, tag)
	start := time.Now()
	err := op.Run(ctx)
	wf.observer.OnOpCompleted(ctx, wf.name, tag, err, time.Since(start))
	if err != nil {
		return &api.OpError{Tag: tag, Type: fmt.Sprintf("%T", op), Err: err}
	}
	core := op.Core()
	for _, name := range core.OutputNames() {
		if err := set(tag, OutputsTag+tree.Separator+name, core.Output(name)); err != nil {
			return err
		}
	}
	return nil
}
