package trace

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepaksharma/tracecore/trace/tracestate"
)

type testExporter struct {
	mu    sync.Mutex
	spans []*SpanData
}

func (e *testExporter) ExportSpan(sd *SpanData) {
	e.mu.Lock()
	e.spans = append(e.spans, sd)
	e.mu.Unlock()
}

func (e *testExporter) exported() []*SpanData {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*SpanData(nil), e.spans...)
}

func TestContextRoundTrip(t *testing.T) {
	want := &Span{spanContext: SpanContext{TraceID: tid, SpanID: sid}}
	ctx := NewContext(context.Background(), want)
	got := FromContext(ctx)
	require.NotNil(t, got)
	assert.Equal(t, want.SpanContext(), got.SpanContext())

	assert.Nil(t, FromContext(context.Background()), "empty context carries no span")
}

func TestStartSpanDoesNotRecordByDefault(t *testing.T) {
	// The default sampler has probability 1e-4; a fresh trace is almost
	// never sampled, but pin the decision to keep this deterministic.
	ctx, span := StartSpan(context.Background(), "TestStartSpanDoesNotRecordByDefault",
		WithSampler(NeverSample()))
	assert.False(t, span.IsRecordingEvents())
	assert.Same(t, span, FromContext(ctx))

	// Mutators and End are no-ops on a non-recording span.
	span.SetName("renamed")
	span.SetStatus(Status{Code: StatusCodeInternal})
	span.AddAttributes(BoolAttribute("k", true))
	span.Annotate(nil, "note")
	span.AddLink(Link{TraceID: tid, SpanID: sid})
	span.End()
	assert.False(t, span.IsRecordingEvents())
}

func TestSamplingSetsTraceOptions(t *testing.T) {
	type parentKind int
	const (
		parentRemote parentKind = iota
		parentLocal
		parentNone
	)

	tests := []struct {
		name        string
		parent      parentKind
		parentOpts  TraceOptions
		sampler     Sampler
		wantOptions TraceOptions
	}{
		{"remote unsampled no sampler", parentRemote, 0, nil, 0},
		{"remote sampled no sampler", parentRemote, 1, nil, 1},
		{"remote unsampled never", parentRemote, 0, NeverSample(), 0},
		{"remote sampled never", parentRemote, 1, NeverSample(), 0},
		{"remote unsampled always", parentRemote, 0, AlwaysSample(), 1},
		{"remote sampled always", parentRemote, 1, AlwaysSample(), 1},
		{"local unsampled never", parentLocal, 0, NeverSample(), 0},
		{"local sampled never", parentLocal, 1, NeverSample(), 0},
		{"local unsampled always", parentLocal, 0, AlwaysSample(), 1},
		{"local sampled always", parentLocal, 1, AlwaysSample(), 1},
		{"no parent never", parentNone, 0, NeverSample(), 0},
		{"no parent always", parentNone, 0, AlwaysSample(), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var opts []StartOption
			if tt.sampler != nil {
				opts = append(opts, WithSampler(tt.sampler))
			}

			var span *Span
			switch tt.parent {
			case parentRemote:
				sc := SpanContext{TraceID: tid, SpanID: sid, TraceOptions: tt.parentOpts}
				_, span = StartSpanWithRemoteParent(context.Background(), "foo", sc, opts...)
			case parentLocal:
				parentSampler := NeverSample()
				if tt.parentOpts.IsSampled() {
					parentSampler = AlwaysSample()
				}
				ctx, _ := StartSpan(context.Background(), "foo", WithSampler(parentSampler))
				_, span = StartSpan(ctx, "foo", opts...)
			case parentNone:
				_, span = StartSpan(context.Background(), "foo", opts...)
			}

			sc := span.SpanContext()
			assert.NotEqual(t, SpanID{}, sc.SpanID, "span id must be assigned")
			assert.Equal(t, tt.wantOptions, sc.TraceOptions)
		})
	}
}

func TestLocalChildNeverResamples(t *testing.T) {
	orig := LoadConfig()
	defer SetDefaultSampler(orig.DefaultSampler)

	// Even with a default sampler that samples everything, a local child
	// with no per-call override inherits the parent's unsampled bit.
	SetDefaultSampler(AlwaysSample())
	ctx, parent := StartSpan(context.Background(), "parent", WithSampler(NeverSample()))
	_, child := StartSpan(ctx, "child")
	assert.False(t, parent.SpanContext().IsSampled())
	assert.False(t, child.SpanContext().IsSampled())
	assert.False(t, child.IsRecordingEvents())

	// And a sampled parent's child stays sampled under a never-sampling
	// default.
	SetDefaultSampler(NeverSample())
	ctx, parent = StartSpan(context.Background(), "parent", WithSampler(AlwaysSample()))
	_, child = StartSpan(ctx, "child")
	assert.True(t, parent.SpanContext().IsSampled())
	assert.True(t, child.SpanContext().IsSampled())
}

func TestStartSpanWithRemoteParent(t *testing.T) {
	checkChild := func(t *testing.T, parent SpanContext, child *Span) {
		t.Helper()
		sc := child.SpanContext()
		assert.Equal(t, parent.TraceID, sc.TraceID, "child must join the parent's trace")
		assert.NotEqual(t, parent.SpanID, sc.SpanID, "child must get its own span id")
		assert.Equal(t, parent.TraceOptions, sc.TraceOptions)
		assert.Equal(t, parent.Tracestate, sc.Tracestate)
	}

	sc := SpanContext{TraceID: tid, SpanID: sid}
	ctx, span := StartSpanWithRemoteParent(context.Background(), "remote", sc)
	checkChild(t, sc, span)

	key, err := tracestate.NewKey("foo")
	require.NoError(t, err)
	value, err := tracestate.NewValue("bar")
	require.NoError(t, err)
	ts, err := tracestate.New(nil, tracestate.Entry{Key: key, Value: value})
	require.NoError(t, err)

	sc = SpanContext{TraceID: tid, SpanID: sid, Tracestate: ts}
	ctx, span = StartSpanWithRemoteParent(context.Background(), "remote", sc)
	checkChild(t, sc, span)

	// A local child of the remote child inherits the same trace.
	parent := FromContext(ctx).SpanContext()
	_, child := StartSpan(ctx, "local")
	checkChild(t, parent, child)
}

func TestEndIdempotent(t *testing.T) {
	te := &testExporter{}
	RegisterExporter(te)
	defer UnregisterExporter(te)

	const name = "TestEndIdempotent/span"
	_, span := StartSpan(context.Background(), name, WithSampler(AlwaysSample()))
	require.True(t, span.IsRecordingEvents())

	span.End()
	span.End()
	span.End()

	assert.Len(t, te.exported(), 1, "repeated End calls must export exactly once")

	store := SpanStoreForName(name)
	require.NotNil(t, store)
	total := 0
	for _, n := range store.Summary().Latency {
		total += n
	}
	for _, n := range store.Summary().Errors {
		total += n
	}
	assert.Equal(t, 1, total, "repeated End calls must insert exactly one record")
}

func TestEndConcurrent(t *testing.T) {
	te := &testExporter{}
	RegisterExporter(te)
	defer UnregisterExporter(te)

	const name = "TestEndConcurrent/span"
	_, span := StartSpan(context.Background(), name, WithSampler(AlwaysSample()))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			span.End()
		}()
	}
	wg.Wait()

	assert.Len(t, te.exported(), 1, "concurrent End calls must export exactly once")
}

func TestSpanData(t *testing.T) {
	te := &testExporter{}
	RegisterExporter(te)
	defer UnregisterExporter(te)

	parent := SpanContext{TraceID: tid, SpanID: sid, TraceOptions: 1}
	_, span := StartSpanWithRemoteParent(context.Background(), "TestSpanData/span", parent,
		WithSpanKind(SpanKindClient))
	require.True(t, span.IsRecordingEvents())
	require.True(t, span.SpanContext().IsSampled(), "remote sampled parent forces sampling")

	span.AddAttributes(StringAttribute("key1", "value1"))
	span.AddAttributes(Int64Attribute("key2", 10), BoolAttribute("key1", true))
	span.Annotate([]Attribute{Int64Attribute("n", 1)}, "checkpoint")
	span.AddMessageSendEvent(7, 1024, 512)
	span.AddMessageReceiveEvent(8, 2048, 1024)
	span.AddLink(Link{TraceID: tid, SpanID: sid, Type: LinkTypeParent})
	span.SetStatus(Status{Code: StatusCodeOK})
	span.SetName("TestSpanData/renamed")
	span.End()

	exported := te.exported()
	require.Len(t, exported, 1)
	got := exported[0]

	assert.Equal(t, tid, got.SpanContext.TraceID)
	assert.Equal(t, sid, got.ParentSpanID)
	assert.Equal(t, SpanKindClient, got.SpanKind)
	assert.Equal(t, "TestSpanData/renamed", got.Name)
	assert.True(t, got.HasRemoteParent)
	assert.False(t, got.StartTime.IsZero())
	assert.False(t, got.EndTime.IsZero())
	assert.False(t, got.EndTime.Before(got.StartTime), "end time must not precede start time")

	// AddAttributes merges; the later bool overwrote the string.
	assert.Equal(t, map[string]interface{}{"key1": true, "key2": int64(10)}, got.Attributes)

	require.Len(t, got.Annotations, 1)
	assert.Equal(t, "checkpoint", got.Annotations[0].Message)
	assert.Equal(t, map[string]interface{}{"n": int64(1)}, got.Annotations[0].Attributes)

	require.Len(t, got.MessageEvents, 2)
	assert.Equal(t, MessageEventTypeSent, got.MessageEvents[0].EventType)
	assert.Equal(t, int64(7), got.MessageEvents[0].MessageID)
	assert.Equal(t, MessageEventTypeRecv, got.MessageEvents[1].EventType)

	require.Len(t, got.Links, 1)
	assert.Equal(t, LinkTypeParent, got.Links[0].Type)

	require.NotNil(t, got.Status)
	assert.Equal(t, StatusCodeOK, got.Status.Code)
}

func TestChildSpanIDDistinctFromParent(t *testing.T) {
	// A generator that repeats the parent's span id once forces the retry
	// path.
	gen := &replayGenerator{ids: []SpanID{sid, {9, 9, 9, 9, 9, 9, 9, 9}}}
	orig := LoadConfig()
	SetIDGenerator(gen)
	defer SetIDGenerator(orig.IDGenerator)

	parent := SpanContext{TraceID: tid, SpanID: sid}
	_, span := StartSpanWithRemoteParent(context.Background(), "child", parent)
	assert.NotEqual(t, sid, span.SpanContext().SpanID)
}

type replayGenerator struct {
	mu  sync.Mutex
	ids []SpanID
}

func (g *replayGenerator) NewTraceID() TraceID {
	return tid
}

func (g *replayGenerator) NewSpanID() SpanID {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.ids) == 0 {
		return SpanID{1}
	}
	id := g.ids[0]
	if len(g.ids) > 1 {
		g.ids = g.ids[1:]
	}
	return id
}

func TestSpanString(t *testing.T) {
	var nilSpan *Span
	assert.Equal(t, "<nil>", nilSpan.String())

	span := &Span{spanContext: SpanContext{SpanID: sid}}
	assert.Equal(t, "span 0102040810204080", span.String())

	_, recording := StartSpan(context.Background(), "TestSpanString/span",
		WithSampler(AlwaysSample()))
	defer recording.End()
	assert.Contains(t, recording.String(), "TestSpanString/span")
}
