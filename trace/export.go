package trace

import (
	"sync"
	"time"
)

// Exporter is implemented by types that receive sampled trace spans.
//
// ExportSpan must be safe for concurrent use and must return quickly; if an
// Exporter takes a significant amount of time to process a SpanData, that
// work should be done on another goroutine.
type Exporter interface {
	ExportSpan(sd *SpanData)
}

var exporters = struct {
	sync.RWMutex
	m map[Exporter]struct{}
}{
	m: make(map[Exporter]struct{}),
}

// RegisterExporter adds to the list of Exporters that will receive sampled
// trace spans. Registering the same exporter twice is a no-op.
//
// Binaries can register exporters, libraries shouldn't register exporters.
func RegisterExporter(e Exporter) {
	if e == nil {
		return
	}
	exporters.Lock()
	exporters.m[e] = struct{}{}
	exporters.Unlock()
}

// UnregisterExporter removes from the list of Exporters the Exporter that
// was registered with the given value. Unregistering an exporter that was
// never registered is a no-op.
func UnregisterExporter(e Exporter) {
	exporters.Lock()
	delete(exporters.m, e)
	exporters.Unlock()
}

// loadExporters returns a snapshot of the registered exporters. The registry
// lock is released before the snapshot is handed to the caller so that
// exporters never run under it.
func loadExporters() []Exporter {
	exporters.RLock()
	if len(exporters.m) == 0 {
		exporters.RUnlock()
		return nil
	}
	out := make([]Exporter, 0, len(exporters.m))
	for e := range exporters.m {
		out = append(out, e)
	}
	exporters.RUnlock()
	return out
}

// SpanData contains all the information collected by a Span.
type SpanData struct {
	SpanContext  SpanContext
	ParentSpanID SpanID
	SpanKind     SpanKind
	Name         string
	StartTime    time.Time
	// EndTime is zero while the span is still running.
	EndTime time.Time
	// Attributes holds the span attributes; values have type string, bool,
	// or int64.
	Attributes    map[string]interface{}
	Annotations   []Annotation
	MessageEvents []MessageEvent
	// Status is nil until SetStatus is called.
	Status          *Status
	Links           []Link
	HasRemoteParent bool
}

// clone returns a deep copy of the span data so that buckets and exporters
// never alias a live span's record.
func (sd *SpanData) clone() *SpanData {
	out := *sd
	out.Attributes = cloneAttributes(sd.Attributes)
	if sd.Annotations != nil {
		out.Annotations = make([]Annotation, len(sd.Annotations))
		for i, a := range sd.Annotations {
			out.Annotations[i] = a
			out.Annotations[i].Attributes = cloneAttributes(a.Attributes)
		}
	}
	if sd.MessageEvents != nil {
		out.MessageEvents = append([]MessageEvent(nil), sd.MessageEvents...)
	}
	if sd.Status != nil {
		status := *sd.Status
		out.Status = &status
	}
	if sd.Links != nil {
		out.Links = make([]Link, len(sd.Links))
		for i, l := range sd.Links {
			out.Links[i] = l
			out.Links[i].Attributes = cloneAttributes(l.Attributes)
		}
	}
	return &out
}

func cloneAttributes(attrs map[string]interface{}) map[string]interface{} {
	if attrs == nil {
		return nil
	}
	out := make(map[string]interface{}, len(attrs))
	for k, v := range attrs {
		out[k] = v
	}
	return out
}
