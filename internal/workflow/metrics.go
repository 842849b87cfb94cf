package workflow

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Stage counters. The global meter provider is a no-op until a deployment
// installs an exporter.
var (
	stageCompleted metric.Int64Counter
	stageFailed    metric.Int64Counter
	readRetries    metric.Int64Counter
)

func init() {
	meter := otel.Meter("github.com/reliefmesh/reliefmesh/internal/workflow")
	stageCompleted, _ = meter.Int64Counter("workflow.stage.completed",
		metric.WithDescription("Stage runs that stored their record"))
	stageFailed, _ = meter.Int64Counter("workflow.stage.failed",
		metric.WithDescription("Stage runs that ended in failure"))
	readRetries, _ = meter.Int64Counter("workflow.read.retries",
		metric.WithDescription("Extra read attempts spent waiting for an upstream record"))
}

func recordStage(ctx context.Context, stage string, err error) {
	attrs := metric.WithAttributes(attribute.String("stage", stage))
	if err != nil {
		stageFailed.Add(ctx, 1, attrs)
		return
	}
	stageCompleted.Add(ctx, 1, attrs)
}
