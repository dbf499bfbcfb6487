package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/rheijn/flume/pkg/api"
)

// Orchestrator owns a set of named pipelines and the live plugin instances
// they may reference, coordinates execution across them, and converts the
// whole state to and from a portable specification.
//
// Distinct pipelines own independent trees, so the orchestrator may run them
// concurrently; the registries are read-mostly after startup and treated as
// immutable during execution.
type Orchestrator struct {
	ops     *Registry[api.Operation]
	plugins *Registry[api.Plugin]

	observer api.Observer
	logger   *slog.Logger
	version  string

	mu          sync.Mutex
	wfNames     []string
	workflows   map[string]*Workflow
	opTypes     map[string]map[string]string // pipeline -> tag -> registered type
	pluginTags  []string
	pluginInsts map[string]api.Plugin
	pluginTypes map[string]string
}

// Config describes how to construct an Orchestrator. Zero-valued fields get
// working defaults: empty registries, a no-op observer, slog.Default(), the
// engine version.
type Config struct {
	Operations *Registry[api.Operation]
	Plugins    *Registry[api.Plugin]
	Observer   api.Observer
	Logger     *slog.Logger
	Version    string
}

// NewOrchestrator constructs an Orchestrator from cfg.
func NewOrchestrator(cfg Config) *Orchestrator {
	if cfg.Operations == nil {
		cfg.Operations = NewRegistry[api.Operation]()
	}
	if cfg.Plugins == nil {
		cfg.Plugins = NewRegistry[api.Plugin]()
	}
	if cfg.Observer == nil {
		cfg.Observer = api.NoopObserver{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Version == "" {
		cfg.Version = api.Version
	}
	return &Orchestrator{
		ops:         cfg.Operations,
		plugins:     cfg.Plugins,
		observer:    cfg.Observer,
		logger:      cfg.Logger,
		version:     cfg.Version,
		workflows:   make(map[string]*Workflow),
		opTypes:     make(map[string]map[string]string),
		pluginInsts: make(map[string]api.Plugin),
		pluginTypes: make(map[string]string),
	}
}

// Operations returns the operation catalog.
func (o *Orchestrator) Operations() *Registry[api.Operation] { return o.ops }

// Plugins returns the plugin catalog.
func (o *Orchestrator) Plugins() *Registry[api.Plugin] { return o.plugins }

// AddWorkflow creates an empty pipeline under name. On a name collision the
// next unique name is generated by appending "_1", "_2", and so on; the
// actual name is returned along with the new workflow.
func (o *Orchestrator) AddWorkflow(name string) (string, *Workflow) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.addWorkflowLocked(name)
}

func (o *Orchestrator) addWorkflowLocked(name string) (string, *Workflow) {
	actual := name
	for idx := 1; ; idx++ {
		if _, taken := o.workflows[actual]; !taken {
			break
		}
		actual = fmt.Sprintf("%s_%d", name, idx)
	}
	wf := NewWorkflow()
	wf.SetName(actual)
	wf.SetObserver(o.observer)
	o.workflows[actual] = wf
	o.wfNames = append(o.wfNames, actual)
	o.opTypes[actual] = make(map[string]string)
	return actual, wf
}

// Workflow returns the pipeline stored under name.
func (o *Orchestrator) Workflow(name string) (*Workflow, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	wf, ok := o.workflows[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", api.ErrUnknownWorkflow, name)
	}
	return wf, nil
}

// RemoveWorkflow deletes a pipeline and all of its state.
func (o *Orchestrator) RemoveWorkflow(name string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.workflows[name]; !ok {
		return fmt.Errorf("%w: %s", api.ErrUnknownWorkflow, name)
	}
	delete(o.workflows, name)
	delete(o.opTypes, name)
	o.wfNames = removeName(o.wfNames, name)
	return nil
}

// WorkflowNames returns the pipeline names in creation order.
func (o *Orchestrator) WorkflowNames() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.wfNames...)
}

// AddOperation instantiates the registered operation type and inserts it
// into a pipeline under tag. The type must be registered and activated.
func (o *Orchestrator) AddOperation(pipeline, tag, typeName string) error {
	wf, err := o.Workflow(pipeline)
	if err != nil {
		return err
	}
	op, err := o.ops.Instantiate(typeName)
	if err != nil {
		return err
	}
	if err := wf.AddOperation(tag, op); err != nil {
		return err
	}
	o.mu.Lock()
	o.opTypes[pipeline][tag] = typeName
	o.mu.Unlock()
	return nil
}

// RemoveOperation removes an operation instance from a pipeline.
func (o *Orchestrator) RemoveOperation(pipeline, tag string) error {
	wf, err := o.Workflow(pipeline)
	if err != nil {
		return err
	}
	if err := wf.RemoveOperation(tag); err != nil {
		return err
	}
	o.mu.Lock()
	delete(o.opTypes[pipeline], tag)
	o.mu.Unlock()
	return nil
}

// AddPlugin instantiates the registered plugin type, starts it, and stores
// the live instance under tag. Plugin tags are unique; a collision is an
// error rather than an auto-rename, since callers reference plugins by tag.
func (o *Orchestrator) AddPlugin(ctx context.Context, tag, typeName string) (api.Plugin, error) {
	o.mu.Lock()
	if _, taken := o.pluginInsts[tag]; taken {
		o.mu.Unlock()
		return nil, fmt.Errorf("%w: plugin %q already present", api.ErrDuplicateURI, tag)
	}
	o.mu.Unlock()
	p, err := o.plugins.Instantiate(typeName)
	if err != nil {
		return nil, err
	}
	if err := p.Start(ctx); err != nil {
		return nil, fmt.Errorf("plugin %s (%s): %w", tag, typeName, err)
	}
	o.mu.Lock()
	o.pluginInsts[tag] = p
	o.pluginTypes[tag] = typeName
	o.pluginTags = append(o.pluginTags, tag)
	o.mu.Unlock()
	return p, nil
}

// Plugin returns the live plugin instance stored under tag.
func (o *Orchestrator) Plugin(tag string) (api.Plugin, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	p, ok := o.pluginInsts[tag]
	if !ok {
		return nil, fmt.Errorf("%w: %s", api.ErrUnknownPlugin, tag)
	}
	return p, nil
}

// RemovePlugin stops and discards a plugin instance.
func (o *Orchestrator) RemovePlugin(tag string) error {
	o.mu.Lock()
	p, ok := o.pluginInsts[tag]
	if ok {
		delete(o.pluginInsts, tag)
		delete(o.pluginTypes, tag)
		o.pluginTags = removeName(o.pluginTags, tag)
	}
	o.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", api.ErrUnknownPlugin, tag)
	}
	return p.Stop()
}

// PluginTags returns the plugin tags in creation order.
func (o *Orchestrator) PluginTags() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.pluginTags...)
}

// Run executes the named pipeline synchronously.
func (o *Orchestrator) Run(ctx context.Context, name string) error {
	wf, err := o.Workflow(name)
	if err != nil {
		return err
	}
	return wf.Execute(ctx)
}

// RunHandle tracks one asynchronous pipeline run. The Done channel closes
// when the run finishes; Err is valid afterwards.
type RunHandle struct {
	ID       uuid.UUID
	Pipeline string

	done chan struct{}
	err  error
}

// Done returns a channel closed when the run has finished.
func (h *RunHandle) Done() <-chan struct{} { return h.done }

// Err returns the run's outcome. It must only be called after Done is
// closed.
func (h *RunHandle) Err() error { return h.err }

// Wait blocks until the run finishes or ctx is cancelled.
func (h *RunHandle) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-h.done:
		return h.err
	}
}

// RunAsync starts the named pipeline on its own goroutine and returns a
// handle whose channel replaces any polling: callers block on or select
// over Done.
func (o *Orchestrator) RunAsync(ctx context.Context, name string) (*RunHandle, error) {
	wf, err := o.Workflow(name)
	if err != nil {
		return nil, err
	}
	h := &RunHandle{
		ID:       uuid.New(),
		Pipeline: name,
		done:     make(chan struct{}),
	}
	go func() {
		defer close(h.done)
		h.err = wf.Execute(ctx)
	}()
	return h, nil
}

// RunAll executes every pipeline concurrently, one worker per pipeline, and
// returns the joined errors.
func (o *Orchestrator) RunAll(ctx context.Context) error {
	names := o.WorkflowNames()
	handles := make([]*RunHandle, 0, len(names))
	for _, name := range names {
		h, err := o.RunAsync(ctx, name)
		if err != nil {
			return err
		}
		handles = append(handles, h)
	}
	var errs []error
	for _, h := range handles {
		<-h.Done()
		if err := h.Err(); err != nil {
			errs = append(errs, fmt.Errorf("pipeline %s: %w", h.Pipeline, err))
		}
	}
	return errors.Join(errs...)
}

// Snapshot converts the full orchestrator state to a portable
// specification: activation flags for every registered operation, every
// pipeline's operation set with locator kinds and values, and every
// plugin's type and configured inputs.
func (o *Orchestrator) Snapshot() *api.Spec {
	o.mu.Lock()
	defer o.mu.Unlock()

	spec := &api.Spec{
		Version:      o.version,
		OpActivation: o.ops.ActivationFlags(),
	}
	for _, name := range o.wfNames {
		wf := o.workflows[name]
		wfSpec := api.WorkflowSpec{Name: name}
		for _, tag := range wf.OperationTags() {
			op, err := wf.Operation(tag)
			if err != nil {
				continue
			}
			core := op.Core()
			opSpec := api.OpSpec{
				Tag:    tag,
				Type:   o.opTypes[name][tag],
				Inputs: make(map[string]api.InputSpec, len(core.InputNames())),
			}
			for _, input := range core.InputNames() {
				loc, _ := core.Locator(input)
				opSpec.Inputs[input] = api.LocatorSpec(loc)
			}
			wfSpec.Ops = append(wfSpec.Ops, opSpec)
		}
		spec.Workflows = append(spec.Workflows, wfSpec)
	}
	for _, tag := range o.pluginTags {
		p := o.pluginInsts[tag]
		pSpec := api.PluginSpec{
			Tag:    tag,
			Type:   o.pluginTypes[tag],
			Inputs: make(map[string]any, len(p.InputNames())),
		}
		for _, input := range p.InputNames() {
			pSpec.Inputs[input] = p.Input(input)
		}
		spec.Plugins = append(spec.Plugins, pSpec)
	}
	return spec
}

// Restore rebuilds the orchestrator state from a specification. Unknown
// operation or plugin types are skipped with a log message rather than
// failing the whole load; a stale spec version is surfaced as a logged
// warning, never an error. Existing pipelines with a restored name are
// replaced.
func (o *Orchestrator) Restore(ctx context.Context, spec *api.Spec) error {
	if w := api.CheckVersion(spec.Version, o.version); w != nil {
		o.logger.Warn("loading specification from an older engine",
			slog.String("saved_version", w.SavedVersion),
			slog.String("current_version", w.CurrentVersion),
		)
	}
	for name, enabled := range spec.OpActivation {
		if err := o.ops.SetEnabled(name, enabled); err != nil {
			o.logger.Warn("skipping activation flag for unknown operation",
				slog.String("op", name))
		}
	}
	for _, wfSpec := range spec.Workflows {
		if err := o.restoreWorkflow(wfSpec); err != nil {
			return err
		}
	}
	for _, pSpec := range spec.Plugins {
		if err := o.restorePlugin(ctx, pSpec); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) restoreWorkflow(wfSpec api.WorkflowSpec) error {
	name := wfSpec.Name
	o.mu.Lock()
	if _, exists := o.workflows[name]; exists {
		delete(o.workflows, name)
		delete(o.opTypes, name)
		o.wfNames = removeName(o.wfNames, name)
	}
	actual, wf := o.addWorkflowLocked(name)
	o.mu.Unlock()

	for _, opSpec := range wfSpec.Ops {
		op, err := o.ops.Instantiate(opSpec.Type)
		if err != nil {
			if errors.Is(err, api.ErrNotRegistered) || errors.Is(err, api.ErrDisabled) {
				o.logger.Warn("skipping operation while restoring pipeline",
					slog.String("pipeline", actual),
					slog.String("tag", opSpec.Tag),
					slog.String("type", opSpec.Type),
					slog.Any("reason", err),
				)
				continue
			}
			return err
		}
		if err := wf.AddOperation(opSpec.Tag, op); err != nil {
			return err
		}
		o.mu.Lock()
		o.opTypes[actual][opSpec.Tag] = opSpec.Type
		o.mu.Unlock()
		for input, inSpec := range opSpec.Inputs {
			loc, err := api.SpecLocator(inSpec)
			if err != nil {
				return fmt.Errorf("pipeline %s op %s: %w", actual, opSpec.Tag, err)
			}
			if err := wf.SetLocator(opSpec.Tag, input, loc); err != nil {
				o.logger.Warn("skipping unknown input while restoring operation",
					slog.String("pipeline", actual),
					slog.String("tag", opSpec.Tag),
					slog.String("input", input),
				)
			}
		}
	}
	return nil
}

func (o *Orchestrator) restorePlugin(ctx context.Context, pSpec api.PluginSpec) error {
	tag := pSpec.Tag
	if _, err := o.Plugin(tag); err == nil {
		if err := o.RemovePlugin(tag); err != nil {
			return err
		}
	}
	p, err := o.plugins.Instantiate(pSpec.Type)
	if err != nil {
		if errors.Is(err, api.ErrNotRegistered) || errors.Is(err, api.ErrDisabled) {
			o.logger.Warn("skipping plugin while restoring state",
				slog.String("tag", tag),
				slog.String("type", pSpec.Type),
				slog.Any("reason", err),
			)
			return nil
		}
		return err
	}
	for input, v := range pSpec.Inputs {
		p.SetInput(input, v)
	}
	if err := p.Start(ctx); err != nil {
		return fmt.Errorf("plugin %s (%s): %w", tag, pSpec.Type, err)
	}
	o.mu.Lock()
	o.pluginInsts[tag] = p
	o.pluginTypes[tag] = pSpec.Type
	o.pluginTags = append(o.pluginTags, tag)
	o.mu.Unlock()
	return nil
}
