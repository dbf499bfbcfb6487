// Package flume provides a lightweight, embeddable dataflow engine for Go.
//
// Flume is designed for programs that assemble data-processing pipelines
// out of reusable operations: load, transform, fit, reduce, save. Pipelines
// are declared as operations wired together by named inputs and outputs,
// and the engine works out the execution order from those connections. It
// runs fully in Go and integrates cleanly into existing codebases.
//
// # Core Concepts
//
// The Flume programming model is intentionally small:
//
//  1. Operation
//  2. Workflow
//  3. Orchestrator
//  4. Registries
//  5. Specifications
//
// # Operation
//
// An Operation is the fundamental executable unit. It declares ordered,
// named inputs and outputs, and implements a single Run method:
//
//	type Operation interface {
//	    Core() *OpCore
//	    Run(ctx context.Context) error
//	}
//
// Implementations embed OpCore and declare their ports in the constructor:
//
//	type Double struct{ flume.OpCore }
//
//	func NewDouble() *Double {
//	    d := &Double{}
//	    d.DeclareInput("x", "value to double", flume.Literal(nil))
//	    d.DeclareOutput("y", "twice the input")
//	    return d
//	}
//
//	func (d *Double) Run(ctx context.Context) error {
//	    x := d.Input("x").(float64)
//	    d.SetOutput("y", 2*x)
//	    return nil
//	}
//
// Each input carries a locator describing where its value comes from: a
// literal value, a file path, a runtime-supplied value, or the address of
// another operation's item inside the same pipeline.
//
// # Workflow
//
// A Workflow is one pipeline: a tree of operations addressed by dot URIs
// such as "read.outputs.data". Connecting an input to another operation's
// output creates a dependency; Execute builds a stage plan from those
// dependencies and runs each stage, independent operations concurrently.
// Operations whose inputs cannot be satisfied are reported in the plan's
// diagnostics rather than failing the build.
//
// # Orchestrator
//
// The Orchestrator owns named pipelines and live plugin instances. It runs
// pipelines synchronously, asynchronously via RunHandle channels, or all at
// once, and converts its entire state to and from a portable specification.
//
// # Registries
//
// Operation and plugin types are registered by name into catalogs. A type
// must be registered and activated before it can be instantiated; saved
// specifications record the activation flags so a restored session offers
// the same catalog.
//
// # Specifications
//
// The full orchestrator state (activation flags, pipelines, operation
// wiring, plugins) round-trips through a YAML .wfl document:
//
//	if err := flume.Save(o, "session.wfl"); err != nil { ... }
//	if err := flume.Load(ctx, o, "session.wfl"); err != nil { ... }
//
// Documents saved by older engine versions load with a warning; operations
// whose types are missing from the current catalog are skipped, not fatal.
// Specifications can also be kept in a SpecStore backed by memory or SQLite.
//
// For examples, see the /examples directory or the project README.
package flume
