// Package spanlog provides a trace exporter that logs every ended span
// through a zap logger. It is intended for development and debugging, not as
// a production trace backend.
package spanlog

import (
	"go.uber.org/zap"

	"github.com/deepaksharma/tracecore/trace"
)

// Exporter logs completed spans. Register it with trace.RegisterExporter.
type Exporter struct {
	logger *zap.Logger
}

// New creates a span logging exporter. If logger is nil, the global tracing
// configuration's logger is used.
func New(logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = trace.LoadConfig().Logger
	}
	return &Exporter{logger: logger}
}

// ExportSpan logs a single completed span at Info level.
func (e *Exporter) ExportSpan(sd *trace.SpanData) {
	fields := []zap.Field{
		zap.Stringer("trace_id", sd.SpanContext.TraceID),
		zap.Stringer("span_id", sd.SpanContext.SpanID),
		zap.Stringer("kind", sd.SpanKind),
		zap.Duration("duration", sd.EndTime.Sub(sd.StartTime)),
		zap.Int("attributes", len(sd.Attributes)),
	}
	if sd.ParentSpanID != (trace.SpanID{}) {
		fields = append(fields, zap.Stringer("parent_span_id", sd.ParentSpanID))
	}
	if sd.Status != nil {
		fields = append(fields,
			zap.Stringer("status", sd.Status.Code),
			zap.String("status_message", sd.Status.Message),
		)
	}
	if sd.HasRemoteParent {
		fields = append(fields, zap.Bool("remote_parent", true))
	}
	e.logger.Info("span "+sd.Name, fields...)
}
