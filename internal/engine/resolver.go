package engine

import (
	"fmt"

	"github.com/rheijn/flume/internal/tree"
	"github.com/rheijn/flume/pkg/api"
)

// BuildPlan computes an execution plan over the workflow's operations.
//
// The resolver repeatedly scans the not-yet-scheduled operations, growing a
// set of legitimate resolution targets: initially empty, extended by each
// scheduled operation's own URI, its inputs/outputs sub-URIs, and every
// individual port URI it exposes. An operation is ready when every
// workflow-item input refers to a URI already in that set. Disabled
// operations are permanently excluded and recorded in the diagnostics.
//
// When a round schedules nothing while enabled operations remain, the
// remainder is unreachable (a cycle or a genuinely missing reference); the
// plan built so far is returned with Complete=false and a diagnostic per
// blocked input. This is recoverable, not a hard failure.
func (wf *Workflow) BuildPlan() *api.Plan {
	plan := &api.Plan{Diagnostics: make(api.Diagnostics)}
	resolvable := make(map[string]bool)
	scheduled := make(map[string]bool)

	tags := wf.OperationTags()
	enabled := make([]string, 0, len(tags))
	for _, tag := range tags {
		on, err := wf.OpEnabled(tag)
		if err == nil && on {
			enabled = append(enabled, tag)
			continue
		}
		plan.Diagnostics[tag] = "operation is disabled"
	}

	for len(scheduled) < len(enabled) {
		var ready []string
		for _, tag := range enabled {
			if scheduled[tag] {
				continue
			}
			op, err := wf.Operation(tag)
			if err != nil {
				plan.Diagnostics[tag] = err.Error()
				continue
			}
			if wf.opReady(tag, op, resolvable, plan.Diagnostics) {
				ready = append(ready, tag)
			}
		}
		if len(ready) == 0 {
			return plan
		}
		plan.Stages = append(plan.Stages, ready)
		for _, tag := range ready {
			scheduled[tag] = true
			op, _ := wf.Operation(tag)
			for _, uri := range resolvableURIs(tag, op) {
				resolvable[uri] = true
			}
		}
	}
	plan.Complete = true
	return plan
}

// opReady classifies one operation, recording a diagnostic per input that
// names the first unresolved reference.
func (wf *Workflow) opReady(tag string, op api.Operation, resolvable map[string]bool, diag api.Diagnostics) bool {
	core := op.Core()
	ready := true
	for _, name := range core.InputNames() {
		loc, _ := core.Locator(name)
		inputURI := tag + tree.Separator + InputsTag + tree.Separator + name
		msg := ""
		if loc.Kind == api.KindWorkflowItem {
			for _, ref := range loc.URIs() {
				if !resolvable[ref] {
					msg = fmt.Sprintf("input %s (=%s) not yet resolvable", name, ref)
					ready = false
					break
				}
			}
		}
		diag[inputURI] = msg
	}
	return ready
}

// resolvableURIs lists the URIs a scheduled operation makes legitimate as
// downstream references: the operation itself, its two port subtrees, and
// each individual port.
func resolvableURIs(tag string, op api.Operation) []string {
	uris := []string{
		tag,
		tag + tree.Separator + InputsTag,
		tag + tree.Separator + OutputsTag,
	}
	core := op.Core()
	for _, name := range core.OutputNames() {
		uris = append(uris, tag+tree.Separator+OutputsTag+tree.Separator+name)
	}
	for _, name := range core.InputNames() {
		uris = append(uris, tag+tree.Separator+InputsTag+tree.Separator+name)
	}
	return uris
}
