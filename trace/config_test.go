package trace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestConfigRoundTrip(t *testing.T) {
	orig := LoadConfig()
	defer func() {
		SetDefaultSampler(orig.DefaultSampler)
		SetIDGenerator(orig.IDGenerator)
		SetLogger(orig.Logger)
	}()

	sampler := AlwaysSample()
	gen := UUIDGenerator{}
	logger := zap.NewNop()

	SetDefaultSampler(sampler)
	SetIDGenerator(gen)
	SetLogger(logger)

	cfg := LoadConfig()
	assert.Equal(t, sampler, cfg.DefaultSampler)
	assert.Equal(t, gen, cfg.IDGenerator)
	assert.Same(t, logger, cfg.Logger)
}

func TestConfigIgnoresNil(t *testing.T) {
	before := LoadConfig()
	SetDefaultSampler(nil)
	SetIDGenerator(nil)
	SetLogger(nil)
	after := LoadConfig()

	assert.Equal(t, before.DefaultSampler, after.DefaultSampler)
	assert.Equal(t, before.IDGenerator, after.IDGenerator)
	assert.Same(t, before.Logger, after.Logger)
}

func TestDefaultIDGenerator(t *testing.T) {
	gen := newDefaultIDGenerator()
	seen := make(map[TraceID]bool)
	for i := 0; i < 100; i++ {
		id := gen.NewTraceID()
		assert.False(t, seen[id], "trace id %s repeated", id)
		seen[id] = true
		assert.NotEqual(t, SpanID{}, gen.NewSpanID(), "span ids must be nonzero")
	}
}

func TestUUIDGenerator(t *testing.T) {
	gen := UUIDGenerator{}
	assert.NotEqual(t, TraceID{}, gen.NewTraceID())
	assert.NotEqual(t, SpanID{}, gen.NewSpanID())
	assert.NotEqual(t, gen.NewTraceID(), gen.NewTraceID())
}
