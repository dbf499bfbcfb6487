package flume

import (
	"fmt"

	"github.com/rheijn/flume/pkg/api"
)

// PipelineBuilder provides a fluent API for assembling pipelines:
//
//	wf, err := flume.NewPipeline("reduce").
//	    Op("read", NewReadCSV()).
//	    Op("fit", NewFitCurve()).
//	    Input("read", "path", flume.FilePath("data/run_042.csv")).
//	    Connect("fit", "samples", "read.outputs.data").
//	    ExposeOutput("result", "fit.outputs.params").
//	    Build()
//
//	if err := wf.Execute(ctx); err != nil {
//	    log.Fatal(err)
//	}
type PipelineBuilder struct {
	name    string
	ops     []builderOp
	inputs  []builderPort
	outputs []builderPort
}

type builderOp struct {
	tag string
	op  api.Operation
}

type builderPort struct {
	name string
	uris []string
}

// NewPipeline creates a new pipeline builder with the given name.
func NewPipeline(name string) *PipelineBuilder {
	return &PipelineBuilder{name: name}
}

// Name returns the pipeline name.
func (b *PipelineBuilder) Name() string {
	return b.name
}

// Op appends an operation under tag. Tags are applied in call order, so
// earlier operations are listed first in the built pipeline.
func (b *PipelineBuilder) Op(tag string, op Operation) *PipelineBuilder {
	if tag == "" {
		panic("flume: operation tag must not be empty")
	}
	if op == nil {
		panic(fmt.Sprintf("flume: operation %q is nil", tag))
	}
	b.ops = append(b.ops, builderOp{tag: tag, op: op})
	return b
}

// Input sets the locator for one operation input.
func (b *PipelineBuilder) Input(opTag, input string, loc InputLocator) *PipelineBuilder {
	for i := range b.ops {
		if b.ops[i].tag == opTag {
			if err := b.ops[i].op.Core().SetLocator(input, loc); err != nil {
				panic(fmt.Sprintf("flume: operation %q: %v", opTag, err))
			}
			return b
		}
	}
	panic(fmt.Sprintf("flume: input for unknown operation %q", opTag))
}

// Connect wires an operation input to one or more pipeline item addresses,
// such as "read.outputs.data". With several addresses the input receives a
// list.
func (b *PipelineBuilder) Connect(opTag, input string, uris ...string) *PipelineBuilder {
	return b.Input(opTag, input, WorkflowItem(uris...))
}

// ExposeInput names a pipeline-level input that fans out to the given item
// addresses.
func (b *PipelineBuilder) ExposeInput(name string, uris ...string) *PipelineBuilder {
	b.inputs = append(b.inputs, builderPort{name: name, uris: uris})
	return b
}

// ExposeOutput names a pipeline-level output read from the given item
// addresses.
func (b *PipelineBuilder) ExposeOutput(name string, uris ...string) *PipelineBuilder {
	b.outputs = append(b.outputs, builderPort{name: name, uris: uris})
	return b
}

// Build assembles a standalone Workflow from the recorded operations and
// wiring.
func (b *PipelineBuilder) Build() (*Workflow, error) {
	wf := NewWorkflow()
	wf.SetName(b.name)
	for _, bo := range b.ops {
		if err := wf.AddOperation(bo.tag, bo.op); err != nil {
			return nil, err
		}
	}
	for _, p := range b.inputs {
		wf.ConnectInput(p.name, p.uris...)
	}
	for _, p := range b.outputs {
		wf.ConnectOutput(p.name, p.uris...)
	}
	return wf, nil
}

// AddTo builds the pipeline inside an Orchestrator. The pipeline name is
// auto-uniquified on collision; the actual name is returned.
func (b *PipelineBuilder) AddTo(o *Orchestrator) (string, *Workflow, error) {
	name, wf := o.AddWorkflow(b.name)
	for _, bo := range b.ops {
		if err := wf.AddOperation(bo.tag, bo.op); err != nil {
			return "", nil, err
		}
	}
	for _, p := range b.inputs {
		wf.ConnectInput(p.name, p.uris...)
	}
	for _, p := range b.outputs {
		wf.ConnectOutput(p.name, p.uris...)
	}
	return name, wf, nil
}
