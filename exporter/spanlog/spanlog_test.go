package spanlog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/deepaksharma/tracecore/trace"
)

func TestExportSpanLogsFields(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	e := New(zap.New(core))

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	e.ExportSpan(&trace.SpanData{
		SpanContext: trace.SpanContext{
			TraceID:      trace.TraceID{1},
			SpanID:       trace.SpanID{2},
			TraceOptions: 1,
		},
		ParentSpanID: trace.SpanID{3},
		SpanKind:     trace.SpanKindServer,
		Name:         "handler",
		StartTime:    start,
		EndTime:      start.Add(5 * time.Millisecond),
		Attributes:   map[string]interface{}{"k": "v"},
		Status: &trace.Status{
			Code:    trace.StatusCodeUnavailable,
			Message: "backend down",
		},
		HasRemoteParent: true,
	})

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "span handler", entry.Message)

	fields := entry.ContextMap()
	assert.Equal(t, "01000000000000000000000000000000", fields["trace_id"])
	assert.Equal(t, "0200000000000000", fields["span_id"])
	assert.Equal(t, "0300000000000000", fields["parent_span_id"])
	assert.Equal(t, "Server", fields["kind"])
	assert.Equal(t, 5*time.Millisecond, fields["duration"])
	assert.Equal(t, "Unavailable", fields["status"])
	assert.Equal(t, "backend down", fields["status_message"])
	assert.Equal(t, true, fields["remote_parent"])
}

func TestExportSpanOmitsOptionalFields(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	e := New(zap.New(core))

	start := time.Now()
	e.ExportSpan(&trace.SpanData{
		Name:      "root",
		StartTime: start,
		EndTime:   start.Add(time.Millisecond),
	})

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.NotContains(t, fields, "parent_span_id")
	assert.NotContains(t, fields, "status")
	assert.NotContains(t, fields, "remote_parent")
}

func TestRegisteredWithTracer(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	e := New(zap.New(core))
	trace.RegisterExporter(e)
	defer trace.UnregisterExporter(e)

	_, span := trace.StartSpan(context.Background(), "TestRegisteredWithTracer/span",
		trace.WithSampler(trace.AlwaysSample()))
	span.End()

	require.Equal(t, 1, logs.Len())
}
