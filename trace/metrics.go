package trace

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/atomic"
)

// Lifecycle counters. These are process-wide and always maintained; they
// only become observable once RegisterMetrics wires them to a meter.
var (
	spansStarted  = atomic.NewInt64(0)
	spansSampled  = atomic.NewInt64(0)
	spansEnded    = atomic.NewInt64(0)
	spansExported = atomic.NewInt64(0)
	spansStored   = atomic.NewInt64(0)
)

// RegisterMetrics registers the tracing core's lifecycle counters as
// observable instruments on the given meter.
func RegisterMetrics(meter metric.Meter) error {
	counters := []struct {
		name        string
		description string
		value       *atomic.Int64
	}{
		{"tracecore.spans_started", "Number of spans started", spansStarted},
		{"tracecore.spans_sampled", "Number of spans that were sampled", spansSampled},
		{"tracecore.spans_ended", "Number of recording spans ended", spansEnded},
		{"tracecore.spans_exported", "Number of spans handed to exporters", spansExported},
		{"tracecore.spans_stored", "Number of spans forwarded to span stores", spansStored},
	}

	for _, c := range counters {
		value := c.value
		_, err := meter.Int64ObservableCounter(
			c.name,
			metric.WithDescription(c.description),
			metric.WithUnit("{spans}"),
			metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
				o.Observe(value.Load())
				return nil
			}),
		)
		if err != nil {
			return fmt.Errorf("failed to register %s: %w", c.name, err)
		}
	}
	return nil
}
