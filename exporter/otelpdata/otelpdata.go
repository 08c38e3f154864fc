// Package otelpdata bridges completed spans into the OpenTelemetry
// collector's pdata model, forwarding them to any consumer.Traces. It
// decouples span completion from the consumer with a bounded queue so
// ExportSpan never blocks the instrumented caller.
package otelpdata

import (
	"context"
	"strings"
	"sync"

	"go.opentelemetry.io/collector/consumer"
	"go.opentelemetry.io/collector/pdata/pcommon"
	"go.opentelemetry.io/collector/pdata/ptrace"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/deepaksharma/tracecore/trace"
)

const defaultQueueSize = 1024

const scopeName = "github.com/deepaksharma/tracecore"

// Bridge converts SpanData into ptrace.Traces and forwards them to a
// consumer.Traces on a worker goroutine. Register it with
// trace.RegisterExporter and call Shutdown when done.
type Bridge struct {
	next    consumer.Traces
	queue   chan *trace.SpanData
	dropped *atomic.Int64
	logger  *zap.Logger

	mu     sync.RWMutex // guards closed
	closed bool
	done   chan struct{}
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithQueueSize sets the capacity of the bridge's span queue.
func WithQueueSize(n int) Option {
	return func(b *Bridge) {
		if n > 0 {
			b.queue = make(chan *trace.SpanData, n)
		}
	}
}

// WithLogger sets the logger used for drop and consume-failure diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(b *Bridge) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// New creates a bridge forwarding spans to next.
func New(next consumer.Traces, opts ...Option) *Bridge {
	b := &Bridge{
		next:    next,
		queue:   make(chan *trace.SpanData, defaultQueueSize),
		dropped: atomic.NewInt64(0),
		logger:  trace.LoadConfig().Logger,
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	go b.run()
	return b
}

// ExportSpan enqueues a completed span for conversion. If the queue is full
// or the bridge has been shut down, the span is dropped and counted.
func (b *Bridge) ExportSpan(sd *trace.SpanData) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		b.drop(sd)
		return
	}
	select {
	case b.queue <- sd:
	default:
		b.drop(sd)
	}
}

func (b *Bridge) drop(sd *trace.SpanData) {
	b.dropped.Inc()
	b.logger.Debug("dropping span",
		zap.Stringer("trace_id", sd.SpanContext.TraceID),
		zap.String("name", sd.Name),
	)
}

// Dropped returns the number of spans dropped due to queue overflow or
// shutdown.
func (b *Bridge) Dropped() int64 {
	return b.dropped.Load()
}

// Shutdown stops accepting spans, drains the queue, and waits for the
// worker to finish or for ctx to be cancelled.
func (b *Bridge) Shutdown(ctx context.Context) error {
	b.mu.Lock()
	if !b.closed {
		b.closed = true
		close(b.queue)
	}
	b.mu.Unlock()
	select {
	case <-b.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Bridge) run() {
	defer close(b.done)
	for sd := range b.queue {
		td := Traces(sd)
		if err := b.next.ConsumeTraces(context.Background(), td); err != nil {
			b.logger.Warn("failed to consume span",
				zap.Stringer("trace_id", sd.SpanContext.TraceID),
				zap.String("name", sd.Name),
				zap.Error(err),
			)
		}
	}
}

// Traces converts a single completed span into a ptrace.Traces holding one
// resource with one scope span.
func Traces(sd *trace.SpanData) ptrace.Traces {
	td := ptrace.NewTraces()
	ss := td.ResourceSpans().AppendEmpty().ScopeSpans().AppendEmpty()
	ss.Scope().SetName(scopeName)

	span := ss.Spans().AppendEmpty()
	span.SetTraceID(pcommon.TraceID(sd.SpanContext.TraceID))
	span.SetSpanID(pcommon.SpanID(sd.SpanContext.SpanID))
	if sd.ParentSpanID != (trace.SpanID{}) {
		span.SetParentSpanID(pcommon.SpanID(sd.ParentSpanID))
	}
	span.SetName(sd.Name)
	span.SetKind(spanKind(sd.SpanKind))
	span.SetStartTimestamp(pcommon.NewTimestampFromTime(sd.StartTime))
	span.SetEndTimestamp(pcommon.NewTimestampFromTime(sd.EndTime))
	span.TraceState().FromRaw(tracestateRaw(sd))

	putAttributes(span.Attributes(), sd.Attributes)

	for _, a := range sd.Annotations {
		ev := span.Events().AppendEmpty()
		ev.SetName(a.Message)
		ev.SetTimestamp(pcommon.NewTimestampFromTime(a.Time))
		putAttributes(ev.Attributes(), a.Attributes)
	}
	for _, me := range sd.MessageEvents {
		ev := span.Events().AppendEmpty()
		ev.SetTimestamp(pcommon.NewTimestampFromTime(me.Time))
		if me.EventType == trace.MessageEventTypeRecv {
			ev.SetName("message_receive")
		} else {
			ev.SetName("message_send")
		}
		ev.Attributes().PutInt("message.id", me.MessageID)
		ev.Attributes().PutInt("message.uncompressed_size", me.UncompressedByteSize)
		ev.Attributes().PutInt("message.compressed_size", me.CompressedByteSize)
	}
	for _, l := range sd.Links {
		link := span.Links().AppendEmpty()
		link.SetTraceID(pcommon.TraceID(l.TraceID))
		link.SetSpanID(pcommon.SpanID(l.SpanID))
		putAttributes(link.Attributes(), l.Attributes)
	}
	if sd.Status != nil {
		if sd.Status.Code == trace.StatusCodeOK {
			span.Status().SetCode(ptrace.StatusCodeOk)
		} else {
			span.Status().SetCode(ptrace.StatusCodeError)
		}
		span.Status().SetMessage(sd.Status.Message)
	}
	return td
}

func spanKind(k trace.SpanKind) ptrace.SpanKind {
	switch k {
	case trace.SpanKindServer:
		return ptrace.SpanKindServer
	case trace.SpanKindClient:
		return ptrace.SpanKindClient
	default:
		return ptrace.SpanKindUnspecified
	}
}

func putAttributes(m pcommon.Map, attrs map[string]interface{}) {
	for k, v := range attrs {
		switch val := v.(type) {
		case string:
			m.PutStr(k, val)
		case bool:
			m.PutBool(k, val)
		case int64:
			m.PutInt(k, val)
		}
	}
}

// tracestateRaw renders the span's tracestate in W3C list form, most recent
// entry first.
func tracestateRaw(sd *trace.SpanData) string {
	ts := sd.SpanContext.Tracestate
	if ts.Len() == 0 {
		return ""
	}
	var sb strings.Builder
	for i, e := range ts.Entries() {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(e.Key.String())
		sb.WriteByte('=')
		sb.WriteString(e.Value.String())
	}
	return sb.String()
}
