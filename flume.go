package flume

import (
	"context"
	"database/sql"

	"github.com/rheijn/flume/internal/engine"
	"github.com/rheijn/flume/internal/persistence"
	"github.com/rheijn/flume/pkg/api"
)

// Re-export key types so users don't need to dig into pkg/api.

type (
	Operation            = api.Operation
	OpCore               = api.OpCore
	Plugin               = api.Plugin
	PluginCore           = api.PluginCore
	InputLocator         = api.InputLocator
	InputKind            = api.InputKind
	Plan                 = api.Plan
	Diagnostics          = api.Diagnostics
	OpError              = api.OpError
	Spec                 = api.Spec
	VersionWarning       = api.VersionWarning
	Observer             = api.Observer
	LoggingObserver      = api.LoggingObserver
	BasicMetrics         = api.BasicMetrics
	BasicMetricsSnapshot = api.BasicMetricsSnapshot
	CompositeObserver    = api.CompositeObserver
	NoopObserver         = api.NoopObserver

	Orchestrator = engine.Orchestrator
	Config       = engine.Config
	Workflow     = engine.Workflow
	RunHandle    = engine.RunHandle
	SpecStore    = persistence.SpecStore
)

// OperationRegistry catalogs operation types by name.
type OperationRegistry = engine.Registry[api.Operation]

// PluginRegistry catalogs plugin types by name.
type PluginRegistry = engine.Registry[api.Plugin]

// Re-export locator constructors and observer helpers.

var (
	Literal              = api.Literal
	FilePath             = api.FilePath
	Runtime              = api.Runtime
	WorkflowItem         = api.WorkflowItem
	NewLoggingObserver   = api.NewLoggingObserver
	NewCompositeObserver = api.NewCompositeObserver
)

// Re-export sentinel errors for errors.Is checks.

var (
	ErrInvalidURI      = api.ErrInvalidURI
	ErrInvalidTag      = api.ErrInvalidTag
	ErrPathNotFound    = api.ErrPathNotFound
	ErrDuplicateURI    = api.ErrDuplicateURI
	ErrNotRegistered   = api.ErrNotRegistered
	ErrDisabled        = api.ErrDisabled
	ErrUnknownWorkflow = api.ErrUnknownWorkflow
	ErrUnknownPlugin   = api.ErrUnknownPlugin
	ErrSpecNotFound    = persistence.ErrSpecNotFound
)

// Re-export locator kinds for convenience.

const (
	KindLiteral      = api.KindLiteral
	KindFilePath     = api.KindFilePath
	KindRuntime      = api.KindRuntime
	KindWorkflowItem = api.KindWorkflowItem
)

// Version is the engine version recorded in saved specifications.
const Version = api.Version

// Orchestrator constructors
// These wrap the internal/engine package so external callers
// never need to import internal packages.

// NewOrchestrator returns an Orchestrator with fresh, empty registries.
func NewOrchestrator() *Orchestrator {
	return engine.NewOrchestrator(engine.Config{})
}

// NewOrchestratorWithConfig returns an Orchestrator built from cfg.
func NewOrchestratorWithConfig(cfg Config) *Orchestrator {
	return engine.NewOrchestrator(cfg)
}

// NewOrchestratorWithObserver returns an Orchestrator reporting execution
// events to obs.
func NewOrchestratorWithObserver(obs Observer) *Orchestrator {
	return engine.NewOrchestrator(engine.Config{Observer: obs})
}

// NewOperationRegistry returns an empty operation catalog.
func NewOperationRegistry() *OperationRegistry {
	return engine.NewRegistry[api.Operation]()
}

// NewPluginRegistry returns an empty plugin catalog.
func NewPluginRegistry() *PluginRegistry {
	return engine.NewRegistry[api.Plugin]()
}

// NewWorkflow returns a standalone pipeline not owned by any Orchestrator.
// Most callers should create pipelines through Orchestrator.AddWorkflow.
func NewWorkflow() *Workflow {
	return engine.NewWorkflow()
}

// Spec stores
// These wrap internal/persistence for callers that persist specifications
// somewhere other than .wfl files.

// NewInMemorySpecStore returns a SpecStore backed by process memory.
func NewInMemorySpecStore() SpecStore {
	return persistence.NewInMemoryStore()
}

// NewSQLiteSpecStore returns a SpecStore that persists specifications in a
// SQLite database. The caller imports the driver, e.g.:
//
//	import _ "modernc.org/sqlite"
func NewSQLiteSpecStore(db *sql.DB) (SpecStore, error) {
	return persistence.NewSQLiteSpecStore(db)
}

// Convenience helpers that just forward to the underlying Orchestrator.

// Run runs a named pipeline synchronously.
func Run(ctx context.Context, o *Orchestrator, name string) error {
	return o.Run(ctx, name)
}

// RunAll runs every pipeline concurrently and joins their errors.
func RunAll(ctx context.Context, o *Orchestrator) error {
	return o.RunAll(ctx)
}

// Save writes the orchestrator state to a .wfl document at path.
func Save(o *Orchestrator, path string) error {
	return o.SaveFile(path)
}

// Load restores orchestrator state from a .wfl document at path.
func Load(ctx context.Context, o *Orchestrator, path string) error {
	return o.LoadFile(ctx, path)
}
