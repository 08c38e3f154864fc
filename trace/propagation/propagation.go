// Package propagation implements the binary wire format for carrying a span
// context across process boundaries.
package propagation

import "github.com/deepaksharma/tracecore/trace"

// Binary format:
//
//	binary value: <version_id><version_format>
//	version_id: 1 byte representing the version id.
//
// For version_id = 0:
//
//	version_format: <field><field><field>
//	field_format: <field_id><field_value>
//
// Fields:
//
//	TraceID:      field_id = 0, len = 16
//	SpanID:       field_id = 1, len = 8
//	TraceOptions: field_id = 2, len = 1
//
// Fields must be encoded in field id order, giving a fixed 29-byte layout.
// The tracestate is not part of the binary format.

// Binary returns the binary format representation of a SpanContext.
func Binary(sc trace.SpanContext) []byte {
	b := make([]byte, 29)
	copy(b[2:18], sc.TraceID[:])
	b[18] = 1
	copy(b[19:27], sc.SpanID[:])
	b[27] = 2
	b[28] = byte(sc.TraceOptions)
	return b
}

// FromBinary returns the SpanContext represented by b.
//
// Decoding is all-or-nothing: if b has an unsupported version id, a missing
// or misordered field tag, or is truncated at any point, FromBinary returns
// with ok==false and a zero SpanContext. A successfully decoded context
// carries no tracestate.
func FromBinary(b []byte) (sc trace.SpanContext, ok bool) {
	if len(b) == 0 || b[0] != 0 {
		return trace.SpanContext{}, false
	}
	b = b[1:]
	if len(b) >= 17 && b[0] == 0 {
		copy(sc.TraceID[:], b[1:17])
		b = b[17:]
	} else {
		return trace.SpanContext{}, false
	}
	if len(b) >= 9 && b[0] == 1 {
		copy(sc.SpanID[:], b[1:9])
		b = b[9:]
	} else {
		return trace.SpanContext{}, false
	}
	if len(b) >= 2 && b[0] == 2 {
		sc.TraceOptions = trace.TraceOptions(b[1])
	} else {
		return trace.SpanContext{}, false
	}
	return sc, true
}
