package api

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Observer receives callbacks from the execution driver for logging and
// metrics.
//
// Implementations should be fast and non-blocking; heavy work should be done
// asynchronously so as not to delay pipeline execution.
type Observer interface {
	// OnPipelineStart is called once per Execute, before the first stage.
	OnPipelineStart(ctx context.Context, pipeline string)

	// OnPipelineCompleted is called when every scheduled stage has finished.
	OnPipelineCompleted(ctx context.Context, pipeline string)

	// OnPipelineFailed is called when execution aborts on an operation error
	// or cancellation.
	OnPipelineFailed(ctx context.Context, pipeline string, err error)

	// OnStageStart is called before the operations of a stage are started.
	// stageIndex is the 0-based index into Plan.Stages.
	OnStageStart(ctx context.Context, pipeline string, stageIndex int, tags []string)

	// OnOpStart is called before invoking an operation's Run.
	OnOpStart(ctx context.Context, pipeline string, tag string)

	// OnOpCompleted is called after Run returns, for both successes and
	// failures (err != nil).
	OnOpCompleted(ctx context.Context, pipeline string, tag string, err error, duration time.Duration)
}

// NoopObserver is an Observer that does nothing.
// It is used as the default when no observer is configured.
type NoopObserver struct{}

func (NoopObserver) OnPipelineStart(ctx context.Context, pipeline string)                 {}
func (NoopObserver) OnPipelineCompleted(ctx context.Context, pipeline string)             {}
func (NoopObserver) OnPipelineFailed(ctx context.Context, pipeline string, err error)     {}
func (NoopObserver) OnStageStart(ctx context.Context, pipeline string, i int, t []string) {}
func (NoopObserver) OnOpStart(ctx context.Context, pipeline string, tag string)           {}
func (NoopObserver) OnOpCompleted(ctx context.Context, pipeline string, tag string, err error, d time.Duration) {
}

// CompositeObserver fans out events to multiple observers.
type CompositeObserver struct {
	observers []Observer
}

// NewCompositeObserver creates an Observer that forwards events to each
// non-nil observer in obs.
func NewCompositeObserver(obs ...Observer) Observer {
	filtered := make([]Observer, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			filtered = append(filtered, o)
		}
	}
	if len(filtered) == 0 {
		return NoopObserver{}
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &CompositeObserver{observers: filtered}
}

func (c *CompositeObserver) OnPipelineStart(ctx context.Context, pipeline string) {
	for _, o := range c.observers {
		o.OnPipelineStart(ctx, pipeline)
	}
}

func (c *CompositeObserver) OnPipelineCompleted(ctx context.Context, pipeline string) {
	for _, o := range c.observers {
		o.OnPipelineCompleted(ctx, pipeline)
	}
}

func (c *CompositeObserver) OnPipelineFailed(ctx context.Context, pipeline string, err error) {
	for _, o := range c.observers {
		o.OnPipelineFailed(ctx, pipeline, err)
	}
}

func (c *CompositeObserver) OnStageStart(ctx context.Context, pipeline string, i int, tags []string) {
	for _, o := range c.observers {
		o.OnStageStart(ctx, pipeline, i, tags)
	}
}

func (c *CompositeObserver) OnOpStart(ctx context.Context, pipeline string, tag string) {
	for _, o := range c.observers {
		o.OnOpStart(ctx, pipeline, tag)
	}
}

func (c *CompositeObserver) OnOpCompleted(ctx context.Context, pipeline string, tag string, err error, d time.Duration) {
	for _, o := range c.observers {
		o.OnOpCompleted(ctx, pipeline, tag, err, d)
	}
}

// LoggingObserver writes structured logs using log/slog.
type LoggingObserver struct {
	Logger *slog.Logger
}

// NewLoggingObserver creates an Observer that logs pipeline / operation
// lifecycle events using the provided slog.Logger. If logger is nil,
// slog.Default() is used.
func NewLoggingObserver(logger *slog.Logger) Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingObserver{Logger: logger}
}

func (o *LoggingObserver) OnPipelineStart(ctx context.Context, pipeline string) {
	o.Logger.InfoContext(ctx, "pipeline_start",
		slog.String("pipeline", pipeline),
	)
}

func (o *LoggingObserver) OnPipelineCompleted(ctx context.Context, pipeline string) {
	o.Logger.InfoContext(ctx, "pipeline_completed",
		slog.String("pipeline", pipeline),
	)
}

func (o *LoggingObserver) OnPipelineFailed(ctx context.Context, pipeline string, err error) {
	o.Logger.ErrorContext(ctx, "pipeline_failed",
		slog.String("pipeline", pipeline),
		slog.Any("error", err),
	)
}

func (o *LoggingObserver) OnStageStart(ctx context.Context, pipeline string, i int, tags []string) {
	o.Logger.DebugContext(ctx, "stage_start",
		slog.String("pipeline", pipeline),
		slog.Int("stage", i),
		slog.Any("operations", tags),
	)
}

func (o *LoggingObserver) OnOpStart(ctx context.Context, pipeline string, tag string) {
	o.Logger.DebugContext(ctx, "op_start",
		slog.String("pipeline", pipeline),
		slog.String("op", tag),
	)
}

func (o *LoggingObserver) OnOpCompleted(ctx context.Context, pipeline string, tag string, err error, d time.Duration) {
	level := slog.LevelDebug
	if err != nil {
		level = slog.LevelError
	}
	o.Logger.Log(ctx, level, "op_completed",
		slog.String("pipeline", pipeline),
		slog.String("op", tag),
		slog.Duration("duration", d),
		slog.Any("error", err),
	)
}

// BasicMetrics collects simple counters and aggregate operation durations.
// It implements Observer, and can be combined with LoggingObserver via
// NewCompositeObserver.
type BasicMetrics struct {
	NoopObserver

	pipelinesStarted   atomic.Int64
	pipelinesCompleted atomic.Int64
	pipelinesFailed    atomic.Int64
	opsCompleted       atomic.Int64
	totalOpDuration    atomic.Int64 // nanoseconds
}

// BasicMetricsSnapshot is an immutable snapshot of BasicMetrics.
type BasicMetricsSnapshot struct {
	PipelinesStarted   int64
	PipelinesCompleted int64
	PipelinesFailed    int64
	RunningPipelines   int64

	OpsCompleted  int64
	AvgOpDuration time.Duration
}

func (m *BasicMetrics) OnPipelineStart(ctx context.Context, pipeline string) {
	m.pipelinesStarted.Add(1)
}

func (m *BasicMetrics) OnPipelineCompleted(ctx context.Context, pipeline string) {
	m.pipelinesCompleted.Add(1)
}

func (m *BasicMetrics) OnPipelineFailed(ctx context.Context, pipeline string, err error) {
	m.pipelinesFailed.Add(1)
}

func (m *BasicMetrics) OnOpCompleted(ctx context.Context, pipeline string, tag string, err error, d time.Duration) {
	// Only count successful operations for average duration.
	if err == nil {
		m.opsCompleted.Add(1)
		m.totalOpDuration.Add(d.Nanoseconds())
	}
}

// Snapshot returns a snapshot of the current metrics.
func (m *BasicMetrics) Snapshot() BasicMetricsSnapshot {
	started := m.pipelinesStarted.Load()
	completed := m.pipelinesCompleted.Load()
	failed := m.pipelinesFailed.Load()
	ops := m.opsCompleted.Load()
	totalNs := m.totalOpDuration.Load()

	var avg time.Duration
	if ops > 0 {
		avg = time.Duration(totalNs / ops)
	}

	return BasicMetricsSnapshot{
		PipelinesStarted:   started,
		PipelinesCompleted: completed,
		PipelinesFailed:    failed,
		RunningPipelines:   started - completed - failed,
		OpsCompleted:       ops,
		AvgOpDuration:      avg,
	}
}
