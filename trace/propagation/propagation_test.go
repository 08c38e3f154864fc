package propagation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepaksharma/tracecore/trace"
)

var (
	tid = trace.TraceID{64, 65, 66, 67, 68, 69, 70, 71, 72, 73, 74, 75, 76, 77, 78, 79}
	sid = trace.SpanID{97, 98, 99, 100, 101, 102, 103, 104}

	validData = []byte{
		0,
		0, 64, 65, 66, 67, 68, 69, 70, 71, 72, 73, 74, 75, 76, 77, 78, 79,
		1, 97, 98, 99, 100, 101, 102, 103, 104,
		2, 1,
	}
)

func TestBinary(t *testing.T) {
	sc := trace.SpanContext{TraceID: tid, SpanID: sid, TraceOptions: 1}
	got := Binary(sc)
	assert.Equal(t, validData, got)
	assert.Len(t, got, 29, "the defined field set always encodes to 29 bytes")
}

func TestRoundTrip(t *testing.T) {
	contexts := []trace.SpanContext{
		{TraceID: tid, SpanID: sid, TraceOptions: 1},
		{TraceID: tid, SpanID: sid, TraceOptions: 0},
		{},
		{TraceID: trace.TraceID{0xff}, SpanID: trace.SpanID{0x80}, TraceOptions: 0xff},
	}
	for _, sc := range contexts {
		got, ok := FromBinary(Binary(sc))
		require.True(t, ok)
		assert.Equal(t, sc.TraceID, got.TraceID)
		assert.Equal(t, sc.SpanID, got.SpanID)
		assert.Equal(t, sc.TraceOptions&0xff, got.TraceOptions,
			"only the low byte of trace options is carried")
		assert.Nil(t, got.Tracestate, "tracestate is not part of the binary format")
	}
}

func TestFromBinaryRejectsMalformedInput(t *testing.T) {
	badVersion := append([]byte(nil), validData...)
	badVersion[0] = 1

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"unsupported version", badVersion},
		{"missing trace id tag", []byte{0, 1, 97, 98, 99, 100, 101, 102, 103, 104, 2, 1}},
		{"truncated trace id", []byte{0, 0, 64, 65, 66, 67, 68, 69, 70, 71, 72, 73, 74, 75, 76, 77}},
		{"wrong tag after version", []byte{0, 1, 64, 65, 66, 67, 68, 69, 70, 71, 72, 73, 74, 75, 76, 77}},
		{"missing span id field", validData[:18]},
		{"truncated span id", validData[:22]},
		{"missing trace options field", validData[:27]},
		{"truncated trace options", validData[:28]},
		{"wrong span id tag", func() []byte {
			b := append([]byte(nil), validData...)
			b[18] = 9
			return b
		}()},
		{"wrong trace options tag", func() []byte {
			b := append([]byte(nil), validData...)
			b[27] = 9
			return b
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FromBinary(tt.data)
			assert.False(t, ok)
			assert.Equal(t, trace.SpanContext{}, got, "failed decode must not return a partial result")
		})
	}
}

func TestFromBinaryValid(t *testing.T) {
	got, ok := FromBinary(validData)
	require.True(t, ok)
	assert.Equal(t, tid, got.TraceID)
	assert.Equal(t, sid, got.SpanID)
	assert.Equal(t, trace.TraceOptions(1), got.TraceOptions)
}

func BenchmarkBinary(b *testing.B) {
	sc := trace.SpanContext{TraceID: tid, SpanID: sid, TraceOptions: 1}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		Binary(sc)
	}
}

func BenchmarkFromBinary(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		FromBinary(validData)
	}
}
