package trace

import (
	"encoding/binary"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
)

// IDGenerator produces new trace and span identifiers. Implementations must
// be safe for concurrent use.
type IDGenerator interface {
	NewTraceID() TraceID
	NewSpanID() SpanID
}

// defaultIDGenerator is a seeded PRNG behind a mutex. It is not
// cryptographically secure, which is acceptable for identifiers but not for
// security tokens.
type defaultIDGenerator struct {
	mu     sync.Mutex
	random *rand.Rand
}

func newDefaultIDGenerator() *defaultIDGenerator {
	return &defaultIDGenerator{
		random: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (g *defaultIDGenerator) NewTraceID() TraceID {
	var tid TraceID
	g.mu.Lock()
	binary.LittleEndian.PutUint64(tid[:8], g.random.Uint64())
	binary.LittleEndian.PutUint64(tid[8:], g.random.Uint64())
	g.mu.Unlock()
	return tid
}

func (g *defaultIDGenerator) NewSpanID() SpanID {
	var sid SpanID
	g.mu.Lock()
	// A zero span ID reads as "no span"; retry until nonzero.
	for sid == (SpanID{}) {
		binary.LittleEndian.PutUint64(sid[:], g.random.Uint64())
	}
	g.mu.Unlock()
	return sid
}

// UUIDGenerator derives identifiers from random (version 4) UUIDs. It can be
// installed with SetIDGenerator when identifiers must be drawn from a
// stronger random source than the default PRNG.
type UUIDGenerator struct{}

// NewTraceID returns the 16 random bytes of a new UUID as a trace ID.
func (UUIDGenerator) NewTraceID() TraceID {
	return TraceID(uuid.New())
}

// NewSpanID returns the first 8 bytes of a new UUID as a span ID.
func (UUIDGenerator) NewSpanID() SpanID {
	var sid SpanID
	for sid == (SpanID{}) {
		id := uuid.New()
		copy(sid[:], id[:8])
	}
	return sid
}
