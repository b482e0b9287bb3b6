package exec

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// Metrics counts executed batches and failed fits. The counters go to the
// globally registered meter provider, a no-op unless the embedding process
// installs one.
type Metrics struct {
	batches    metric.Int64Counter
	failedFits metric.Int64Counter
}

func NewMetrics() (*Metrics, error) {
	meter := otel.Meter("calibration-engine/exec")
	batches, err := meter.Int64Counter("calibration.batches",
		metric.WithDescription("backend batches executed"))
	if err != nil {
		return nil, err
	}
	failedFits, err := meter.Int64Counter("calibration.failed_fits",
		metric.WithDescription("series whose fit attempts all failed"))
	if err != nil {
		return nil, err
	}
	return &Metrics{batches: batches, failedFits: failedFits}, nil
}

func (m *Metrics) AddBatch(ctx context.Context) {
	m.batches.Add(ctx, 1)
}

func (m *Metrics) AddFailedFits(ctx context.Context, n int64) {
	if n > 0 {
		m.failedFits.Add(ctx, n)
	}
}
