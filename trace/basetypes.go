package trace

import (
	"fmt"
	"time"
)

// TraceID is a 16-byte identifier for a set of spans.
type TraceID [16]byte

// SpanID is an 8-byte identifier for a single span.
type SpanID [8]byte

// String returns the lowercase hex encoding of the trace ID.
func (t TraceID) String() string {
	return fmt.Sprintf("%02x", t[:])
}

// String returns the lowercase hex encoding of the span ID.
func (s SpanID) String() string {
	return fmt.Sprintf("%02x", s[:])
}

// TraceOptions contains options associated with a trace span.
type TraceOptions uint32

const optionSampled TraceOptions = 1

// IsSampled reports whether the span will be exported.
func (t TraceOptions) IsSampled() bool {
	return t&optionSampled == optionSampled
}

// Annotation represents a text annotation with a set of attributes and a
// timestamp.
type Annotation struct {
	Time       time.Time
	Message    string
	Attributes map[string]interface{}
}

// Attribute is a key-value pair attached to a span, link or annotation.
// The value has type string, bool, or int64; use the typed constructors.
type Attribute struct {
	key   string
	value interface{}
}

// Key returns the attribute's key.
func (a Attribute) Key() string {
	return a.key
}

// Value returns the attribute's value.
func (a Attribute) Value() interface{} {
	return a.value
}

// BoolAttribute returns a bool-valued attribute.
func BoolAttribute(key string, value bool) Attribute {
	return Attribute{key: key, value: value}
}

// Int64Attribute returns an int64-valued attribute.
func Int64Attribute(key string, value int64) Attribute {
	return Attribute{key: key, value: value}
}

// StringAttribute returns a string-valued attribute.
func StringAttribute(key string, value string) Attribute {
	return Attribute{key: key, value: value}
}

// LinkType specifies the relationship between the span that had the link
// added, and the linked span.
type LinkType int32

const (
	// LinkTypeUnspecified means the relationship of the two spans is unknown.
	LinkTypeUnspecified LinkType = iota
	// LinkTypeChild means the current span is a child of the linked span.
	LinkTypeChild
	// LinkTypeParent means the current span is a parent of the linked span.
	LinkTypeParent
)

// Link represents a reference from one span to another span.
type Link struct {
	TraceID TraceID
	SpanID  SpanID
	Type    LinkType
	// Attributes is a set of attributes on the link.
	Attributes map[string]interface{}
}

// MessageEventType specifies the type of message event.
type MessageEventType int32

const (
	// MessageEventTypeUnspecified is an unknown event type.
	MessageEventTypeUnspecified MessageEventType = iota
	// MessageEventTypeSent indicates a sent RPC message.
	MessageEventTypeSent
	// MessageEventTypeRecv indicates a received RPC message.
	MessageEventTypeRecv
)

// MessageEvent represents an event describing a message sent or received on
// the network.
type MessageEvent struct {
	Time                 time.Time
	EventType            MessageEventType
	MessageID            int64
	UncompressedByteSize int64
	CompressedByteSize   int64
}

// Status is the status of a Span.
type Status struct {
	// Code is a status code; see the StatusCode constants.
	Code StatusCode
	// Message is a user-visible description of the status.
	Message string
}

// SpanKind represents the kind of a span.
type SpanKind int

const (
	// SpanKindUnspecified is the default span kind.
	SpanKindUnspecified SpanKind = iota
	// SpanKindServer marks a span covering the server side of an RPC.
	SpanKindServer
	// SpanKindClient marks a span covering the client side of an RPC.
	SpanKindClient
)

// String returns the name of the span kind.
func (k SpanKind) String() string {
	switch k {
	case SpanKindServer:
		return "Server"
	case SpanKindClient:
		return "Client"
	default:
		return "Unspecified"
	}
}
