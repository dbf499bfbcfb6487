package api

// Plan is the result of dependency resolution over a workflow's operations.
//
// Stages lists sets of operation tags in execution order. Operations within
// one stage are mutually data-independent and may run concurrently; a later
// stage's readiness depends on an earlier stage's outputs having been
// written.
//
// A plan that could not schedule every enabled operation is returned with
// Complete set to false and the accumulated Diagnostics explaining each
// blocked input. This is not a hard failure: the caller can fix the pipeline
// and rebuild.
type Plan struct {
	Stages      [][]string
	Diagnostics Diagnostics
	Complete    bool
}

// Scheduled reports whether the given operation tag appears in any stage.
func (p *Plan) Scheduled(tag string) bool {
	for _, stage := range p.Stages {
		for _, t := range stage {
			if t == tag {
				return true
			}
		}
	}
	return false
}

// Size returns the total number of scheduled operations.
func (p *Plan) Size() int {
	n := 0
	for _, stage := range p.Stages {
		n += len(stage)
	}
	return n
}
