package trace

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/deepaksharma/tracecore/trace/tracestate"
)

// SpanContext contains the state that must propagate across process
// boundaries.
type SpanContext struct {
	// TraceID is the id of the trace the span belongs to.
	TraceID TraceID
	// SpanID is the id of the span.
	SpanID SpanID
	// TraceOptions holds the option bits for the span; bit 0 is the sampled
	// bit.
	TraceOptions TraceOptions
	// Tracestate is the vendor state carried with the span, if any.
	Tracestate *tracestate.Tracestate
}

// IsSampled reports whether the span will be exported.
func (sc SpanContext) IsSampled() bool {
	return sc.TraceOptions.IsSampled()
}

func (sc *SpanContext) setIsSampled(sampled bool) {
	if sampled {
		sc.TraceOptions |= optionSampled
	} else {
		sc.TraceOptions &^= optionSampled
	}
}

// Span represents a span of a trace. It has an associated SpanContext, and
// stores data accumulated while the span is active.
//
// Ideally users should interact with Spans by calling the functions in this
// package that take a context.Context parameter.
type Span struct {
	// data contains information recorded about the span.
	//
	// It will be non-nil if we are exporting the span or recording events
	// for it. Otherwise, data is nil, and the Span is simply a carrier for
	// the SpanContext, so that the trace ID is propagated.
	data        *SpanData
	mu          sync.RWMutex // guards data
	spanContext SpanContext
	spanStore   *SpanStore
	endOnce     sync.Once
}

// StartOptions contains options concerning how a span is started.
type StartOptions struct {
	// Sampler to consult for this Span. If provided, it is always consulted.
	//
	// If not provided, then the behavior differs based on whether the parent
	// of this Span is remote, local, or there is no parent. In the case of a
	// remote parent or no parent, the default sampler (see Config) will be
	// consulted. Otherwise, when there is a non-remote parent, no new
	// sampling decision will be made: we will preserve the sampling of the
	// parent.
	Sampler Sampler

	// SpanKind represents the kind of a span. Defaults to
	// SpanKindUnspecified.
	SpanKind SpanKind
}

// StartOption applies changes to StartOptions.
type StartOption func(*StartOptions)

// WithSpanKind makes new spans to be created with the given kind.
func WithSpanKind(spanKind SpanKind) StartOption {
	return func(o *StartOptions) {
		o.SpanKind = spanKind
	}
}

// WithSampler makes new spans to be created with a custom sampler.
func WithSampler(sampler Sampler) StartOption {
	return func(o *StartOptions) {
		o.Sampler = sampler
	}
}

// StartSpan starts a new child span of the current span in the context. If
// there is no span in the context, it creates a new trace and span.
//
// The returned context contains the new span; pass it to operations that
// should be attributed to the span.
func StartSpan(ctx context.Context, name string, o ...StartOption) (context.Context, *Span) {
	var opts StartOptions
	var parent *SpanContext
	if p := FromContext(ctx); p != nil {
		parent = &p.spanContext
	}
	for _, op := range o {
		op(&opts)
	}
	span := startSpanInternal(name, parent, false, opts)
	return NewContext(ctx, span), span
}

// StartSpanWithRemoteParent starts a new child span of the span from the
// given parent, received from another process boundary.
//
// If the incoming context contains a parent, it ignores it. This is relevant
// when a server receives a request and the span context is carried in the
// request rather than in the ambient context.
func StartSpanWithRemoteParent(ctx context.Context, name string, parent SpanContext, o ...StartOption) (context.Context, *Span) {
	var opts StartOptions
	for _, op := range o {
		op(&opts)
	}
	span := startSpanInternal(name, &parent, true, opts)
	return NewContext(ctx, span), span
}

func startSpanInternal(name string, parent *SpanContext, remoteParent bool, o StartOptions) *Span {
	var sc SpanContext
	if parent != nil {
		sc = *parent
	}

	cfg := LoadConfig()
	gen := cfg.IDGenerator

	if parent == nil {
		sc.TraceID = gen.NewTraceID()
	}
	sc.SpanID = gen.NewSpanID()
	if parent != nil {
		// The child's span id must differ from the parent's.
		for sc.SpanID == parent.SpanID {
			sc.SpanID = gen.NewSpanID()
		}
	}

	if parent == nil || remoteParent || o.Sampler != nil {
		sampler := cfg.DefaultSampler
		if o.Sampler != nil {
			sampler = o.Sampler
		}
		sc.setIsSampled(sampler.Sample(SamplingParameters{
			ParentContext:   parent,
			TraceID:         sc.TraceID,
			SpanID:          sc.SpanID,
			Name:            name,
			HasRemoteParent: remoteParent,
		}).Sample)
	}

	spansStarted.Inc()
	if !sc.IsSampled() {
		return &Span{spanContext: sc}
	}
	spansSampled.Inc()

	data := &SpanData{
		SpanContext:     sc,
		SpanKind:        o.SpanKind,
		Name:            name,
		StartTime:       time.Now(),
		Attributes:      make(map[string]interface{}),
		HasRemoteParent: remoteParent,
	}
	if parent != nil {
		data.ParentSpanID = parent.SpanID
	}

	return &Span{
		data:        data,
		spanContext: sc,
		spanStore:   spanStoreForNameCreateIfNew(name),
	}
}

// IsRecordingEvents reports whether the span is recording events: a span
// that was not sampled carries only its SpanContext and records nothing.
func (s *Span) IsRecordingEvents() bool {
	if s == nil {
		return false
	}
	return s.data != nil
}

// SpanContext returns the SpanContext of the span.
func (s *Span) SpanContext() SpanContext {
	if s == nil {
		return SpanContext{}
	}
	return s.spanContext
}

// End closes the span, exports it to all registered exporters if it was
// sampled, and forwards it to the span store for its name.
//
// End is idempotent: the export and store insertion happen exactly once no
// matter how many times, or from how many goroutines, it is called.
func (s *Span) End() {
	if !s.IsRecordingEvents() {
		return
	}
	s.endOnce.Do(func() {
		spansEnded.Inc()
		exp := loadExporters()
		mustExport := s.spanContext.IsSampled() && len(exp) > 0
		if s.spanStore == nil && !mustExport {
			return
		}
		sd := s.makeSpanData()
		sd.EndTime = time.Now()
		// Export first so the store cannot observe, or mutate, the data an
		// exporter is still reading.
		if mustExport {
			for _, e := range exp {
				e.ExportSpan(sd)
			}
			spansExported.Inc()
		}
		if s.spanStore != nil {
			s.spanStore.finished(sd)
			spansStored.Inc()
		}
	})
}

// makeSpanData returns a deep snapshot of the span's record.
func (s *Span) makeSpanData() *SpanData {
	s.mu.RLock()
	sd := s.data.clone()
	s.mu.RUnlock()
	return sd
}

// SetName sets the name of the span, if it is recording events.
func (s *Span) SetName(name string) {
	if !s.IsRecordingEvents() {
		return
	}
	s.mu.Lock()
	s.data.Name = name
	s.mu.Unlock()
}

// SetStatus sets the status of the span, if it is recording events.
func (s *Span) SetStatus(status Status) {
	if !s.IsRecordingEvents() {
		return
	}
	s.mu.Lock()
	s.data.Status = &status
	s.mu.Unlock()
}

// AddAttributes sets attributes in the span, if it is recording events.
// Existing attributes with the same keys are overwritten.
func (s *Span) AddAttributes(attributes ...Attribute) {
	if !s.IsRecordingEvents() {
		return
	}
	s.mu.Lock()
	for _, attr := range attributes {
		s.data.Attributes[attr.key] = attr.value
	}
	s.mu.Unlock()
}

// Annotate adds an annotation with attributes to the span, if it is
// recording events.
func (s *Span) Annotate(attributes []Attribute, message string) {
	if !s.IsRecordingEvents() {
		return
	}
	var attrs map[string]interface{}
	if len(attributes) > 0 {
		attrs = make(map[string]interface{}, len(attributes))
		for _, attr := range attributes {
			attrs[attr.key] = attr.value
		}
	}
	s.mu.Lock()
	s.data.Annotations = append(s.data.Annotations, Annotation{
		Time:       time.Now(),
		Message:    message,
		Attributes: attrs,
	})
	s.mu.Unlock()
}

// AddMessageSendEvent adds a message send event to the span, if it is
// recording events.
//
// messageID is an identifier for the message, which is recommended to be
// unique in this span and the same between the send event and the matching
// receive event (this allows to identify a message between the sender and
// receiver). For example, this could be a sequence id.
func (s *Span) AddMessageSendEvent(messageID, uncompressedByteSize, compressedByteSize int64) {
	s.addMessageEvent(MessageEventTypeSent, messageID, uncompressedByteSize, compressedByteSize)
}

// AddMessageReceiveEvent adds a message receive event to the span, if it is
// recording events.
func (s *Span) AddMessageReceiveEvent(messageID, uncompressedByteSize, compressedByteSize int64) {
	s.addMessageEvent(MessageEventTypeRecv, messageID, uncompressedByteSize, compressedByteSize)
}

func (s *Span) addMessageEvent(eventType MessageEventType, messageID, uncompressedByteSize, compressedByteSize int64) {
	if !s.IsRecordingEvents() {
		return
	}
	s.mu.Lock()
	s.data.MessageEvents = append(s.data.MessageEvents, MessageEvent{
		Time:                 time.Now(),
		EventType:            eventType,
		MessageID:            messageID,
		UncompressedByteSize: uncompressedByteSize,
		CompressedByteSize:   compressedByteSize,
	})
	s.mu.Unlock()
}

// AddLink adds a link to the span, if it is recording events.
func (s *Span) AddLink(l Link) {
	if !s.IsRecordingEvents() {
		return
	}
	s.mu.Lock()
	s.data.Links = append(s.data.Links, l)
	s.mu.Unlock()
}

// String returns a human-readable description of the span.
func (s *Span) String() string {
	if s == nil {
		return "<nil>"
	}
	if s.data == nil {
		return fmt.Sprintf("span %s", s.spanContext.SpanID)
	}
	s.mu.RLock()
	str := fmt.Sprintf("span %s %q", s.spanContext.SpanID, s.data.Name)
	s.mu.RUnlock()
	return str
}

type contextKey struct{}

// FromContext returns the Span stored in a context, or nil if there isn't
// one.
func FromContext(ctx context.Context) *Span {
	s, _ := ctx.Value(contextKey{}).(*Span)
	return s
}

// NewContext returns a new context with the given Span attached.
func NewContext(parent context.Context, s *Span) context.Context {
	return context.WithValue(parent, contextKey{}, s)
}
