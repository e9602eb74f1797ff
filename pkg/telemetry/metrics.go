package telemetry

import (
	"context"
	stderrors "errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/quaero-ai/quaero/pkg/errors"
)

// PipelineMetrics tracks research pipeline activity for production monitoring.
type PipelineMetrics struct {
	tasksStarted   metric.Int64Counter
	tasksCompleted metric.Int64Counter
	tasksFailed    metric.Int64Counter
	stageDuration  metric.Float64Histogram
	errorCounter   metric.Int64Counter
}

// NewPipelineMetrics creates a pipeline metrics tracker on the global meter.
func NewPipelineMetrics() (*PipelineMetrics, error) {
	meter := otel.Meter("quaero/pipeline")

	tasksStarted, err := meter.Int64Counter(
		"quaero.tasks.started",
		metric.WithDescription("Research tasks started"),
	)
	if err != nil {
		return nil, err
	}

	tasksCompleted, err := meter.Int64Counter(
		"quaero.tasks.completed",
		metric.WithDescription("Research tasks completed successfully"),
	)
	if err != nil {
		return nil, err
	}

	tasksFailed, err := meter.Int64Counter(
		"quaero.tasks.failed",
		metric.WithDescription("Research tasks that ended in failure"),
	)
	if err != nil {
		return nil, err
	}

	stageDuration, err := meter.Float64Histogram(
		"quaero.stage.duration",
		metric.WithDescription("Pipeline stage duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	errorCounter, err := meter.Int64Counter(
		"quaero.errors.total",
		metric.WithDescription("Errors by code and component"),
	)
	if err != nil {
		return nil, err
	}

	return &PipelineMetrics{
		tasksStarted:   tasksStarted,
		tasksCompleted: tasksCompleted,
		tasksFailed:    tasksFailed,
		stageDuration:  stageDuration,
		errorCounter:   errorCounter,
	}, nil
}

// RecordTaskStarted increments the started counter.
func (pm *PipelineMetrics) RecordTaskStarted(ctx context.Context) {
	if pm == nil {
		return
	}
	pm.tasksStarted.Add(ctx, 1)
}

// RecordTaskCompleted increments the completed counter with the overall
// confidence bucketed as an attribute.
func (pm *PipelineMetrics) RecordTaskCompleted(ctx context.Context, confidence float64) {
	if pm == nil {
		return
	}
	pm.tasksCompleted.Add(ctx, 1,
		metric.WithAttributes(attribute.String("confidence.bucket", confidenceBucket(confidence))))
}

// RecordTaskFailed increments the failed counter.
func (pm *PipelineMetrics) RecordTaskFailed(ctx context.Context) {
	if pm == nil {
		return
	}
	pm.tasksFailed.Add(ctx, 1)
}

// RecordStageDuration records how long one pipeline stage took.
func (pm *PipelineMetrics) RecordStageDuration(ctx context.Context, stage string, d time.Duration) {
	if pm == nil {
		return
	}
	pm.stageDuration.Record(ctx, d.Seconds(),
		metric.WithAttributes(attribute.String("stage", stage)))
}

// RecordError increments the error counter for the given error and component.
func (pm *PipelineMetrics) RecordError(ctx context.Context, err error, component string) {
	if pm == nil || err == nil {
		return
	}
	code := "UNKNOWN"
	recoverable := "unknown"
	// Stage failures arrive wrapped, so walk the chain.
	var qe *errors.QuaeroError
	if stderrors.As(err, &qe) {
		code = string(qe.Code)
		if qe.Recoverable {
			recoverable = "true"
		} else {
			recoverable = "false"
		}
	}
	pm.errorCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("error.code", code),
			attribute.String("component", component),
			attribute.String("recoverable", recoverable),
		),
	)
}

func confidenceBucket(confidence float64) string {
	switch {
	case confidence >= 0.8:
		return "high"
	case confidence >= 0.5:
		return "medium"
	default:
		return "low"
	}
}
