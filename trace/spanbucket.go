package trace

import "time"

// samplePeriod is the minimum time between accepting spans in a single
// bucket.
const samplePeriod = time.Second

// defaultLatencies contains the default latency bucket bounds. Latencies at
// or above the last bound share the final bucket, so there is one more
// bucket than there are bounds.
var defaultLatencies = [...]time.Duration{
	10 * time.Microsecond,
	100 * time.Microsecond,
	time.Millisecond,
	10 * time.Millisecond,
	100 * time.Millisecond,
	time.Second,
	10 * time.Second,
	60 * time.Second,
}

// NumLatencyBuckets is the number of latency ranges a span store groups
// successful spans into.
const NumLatencyBuckets = len(defaultLatencies) + 1

// bucket is a fixed-capacity circular buffer holding the most recent
// completed spans for a particular error code or latency range. It is not
// safe for concurrent use; the owning SpanStore serializes access.
type bucket struct {
	// nextTime is the next time we can accept a span.
	nextTime time.Time
	// buffer is a circular buffer of spans.
	buffer []*SpanData
	// nextIndex is the location next SpanData should be placed in buffer.
	nextIndex int
	// overflow reports whether the circular buffer has wrapped around.
	overflow bool
}

func makeBucket(bufferSize int) bucket {
	return bucket{
		buffer: make([]*SpanData, bufferSize),
	}
}

// add accepts a completed span into the bucket, displacing the oldest entry
// once the buffer has wrapped. Spans without an end time, and buckets with
// zero capacity, reject silently.
//
// The nextTime watermark is advanced on every accepted span but is not
// consulted before acceptance; it records when the next span could be
// admitted under a one-per-samplePeriod policy.
func (b *bucket) add(s *SpanData) {
	if s.EndTime.IsZero() {
		return
	}
	if len(b.buffer) == 0 {
		return
	}
	b.nextTime = s.EndTime.Add(samplePeriod)
	b.buffer[b.nextIndex] = s
	b.nextIndex++
	if b.nextIndex == len(b.buffer) {
		b.nextIndex = 0
		b.overflow = true
	}
}

// size returns the number of spans logically held.
func (b *bucket) size() int {
	if b.overflow {
		return len(b.buffer)
	}
	return b.nextIndex
}

// span returns the i'th span in chronological order, 0 being the oldest.
func (b *bucket) span(i int) *SpanData {
	if !b.overflow {
		return b.buffer[i]
	}
	if i < len(b.buffer)-b.nextIndex {
		return b.buffer[b.nextIndex+i]
	}
	return b.buffer[b.nextIndex+i-len(b.buffer)]
}

// spans returns the held spans in chronological order.
func (b *bucket) spans() []*SpanData {
	sz := b.size()
	if sz == 0 {
		return nil
	}
	out := make([]*SpanData, sz)
	for i := 0; i < sz; i++ {
		out[i] = b.span(i)
	}
	return out
}

// resize changes the bucket's capacity to newSize, preserving the most
// recent spans in chronological order.
func (b *bucket) resize(newSize int) {
	current := b.size()
	if current < newSize {
		buf := make([]*SpanData, newSize)
		for i := 0; i < current; i++ {
			buf[i] = b.span(i)
		}
		b.buffer = buf
		b.nextIndex = current
		b.overflow = false
		return
	}
	buf := make([]*SpanData, newSize)
	for i := 0; i < newSize; i++ {
		buf[i] = b.span(i + current - newSize)
	}
	b.buffer = buf
	b.nextIndex = 0
	b.overflow = true
}

// latencyBucket returns the index of the latency range containing latency.
func latencyBucket(latency time.Duration) int {
	i := 0
	for i < len(defaultLatencies) && latency >= defaultLatencies[i] {
		i++
	}
	return i
}

// LatencyBucketBounds returns the lower and upper bounds of the latency
// range at the given index. The first range has a zero lower bound and the
// last has an effectively unbounded upper bound.
func LatencyBucketBounds(index int) (lower, upper time.Duration) {
	if index == 0 {
		return 0, defaultLatencies[0]
	}
	if index == len(defaultLatencies) {
		return defaultLatencies[index-1], 1<<63 - 1
	}
	return defaultLatencies[index-1], defaultLatencies[index]
}
