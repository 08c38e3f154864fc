package trace

import (
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"
)

const (
	maxBucketSize     = 100000
	defaultBucketSize = 10
)

// SpanStore keeps a bounded sample of completed spans for a particular span
// name: a sample of spans for failed requests, categorized by status code,
// and a sample of spans for successful requests, bucketed by latency.
//
// Stores exist for local inspection only; they never evict by age and live
// for the life of the process.
type SpanStore struct {
	name string

	mu                     sync.Mutex // guards everything below
	errors                 map[StatusCode]*bucket
	latency                []bucket
	maxSpansPerErrorBucket int
}

// newSpanStore creates a span store holding up to latencyBucketSize spans
// per latency range and errorBucketSize spans per error code.
func newSpanStore(name string, latencyBucketSize, errorBucketSize int) *SpanStore {
	latency := make([]bucket, NumLatencyBuckets)
	for i := range latency {
		latency[i] = makeBucket(latencyBucketSize)
	}
	return &SpanStore{
		name:                   name,
		errors:                 make(map[StatusCode]*bucket),
		latency:                latency,
		maxSpansPerErrorBucket: errorBucketSize,
	}
}

// Name returns the span name this store aggregates.
func (s *SpanStore) Name() string {
	return s.name
}

// finished routes a completed span into the store: OK spans go to the
// latency bucket containing their duration, everything else to a
// per-status-code error bucket created on first use. The store keeps its own
// deep copy of the data.
func (s *SpanStore) finished(sd *SpanData) {
	endTime := sd.EndTime
	if endTime.IsZero() {
		endTime = time.Now()
	}
	latency := endTime.Sub(sd.StartTime)
	code := StatusCodeUnknown
	if sd.Status != nil {
		code = sd.Status.Code
	}

	sd = sd.clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	if code == StatusCodeOK {
		s.latency[latencyBucket(latency)].add(sd)
		return
	}
	b, ok := s.errors[code]
	if !ok {
		nb := makeBucket(s.maxSpansPerErrorBucket)
		b = &nb
		s.errors[code] = b
	}
	b.add(sd)
}

// Resize applies new capacities to every bucket in the store, preserving the
// most recent spans in each.
func (s *SpanStore) Resize(latencyBucketSize, errorBucketSize int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.latency {
		s.latency[i].resize(latencyBucketSize)
	}
	for _, b := range s.errors {
		b.resize(errorBucketSize)
	}
	s.maxSpansPerErrorBucket = errorBucketSize
}

// SpansByLatency returns the sampled successful spans whose latency falls in
// the range at the given index, in chronological order. It returns nil for
// an out-of-range index.
func (s *SpanStore) SpansByLatency(index int) []*SpanData {
	if index < 0 || index >= NumLatencyBuckets {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latency[index].spans()
}

// SpansByError returns the sampled spans that completed with the given
// non-OK status code, in chronological order.
func (s *SpanStore) SpansByError(code StatusCode) []*SpanData {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.errors[code]
	if !ok {
		return nil
	}
	return b.spans()
}

// Summary describes how many spans a store currently holds per category.
type Summary struct {
	// Latency holds the number of sampled successful spans per latency
	// range.
	Latency [NumLatencyBuckets]int
	// Errors holds the number of sampled spans per non-OK status code.
	Errors map[StatusCode]int
}

// Summary returns the current per-bucket occupancy of the store.
func (s *SpanStore) Summary() Summary {
	var sum Summary
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.latency {
		sum.Latency[i] = s.latency[i].size()
	}
	if len(s.errors) > 0 {
		sum.Errors = make(map[StatusCode]int, len(s.errors))
		for code, b := range s.errors {
			sum.Errors[code] = b.size()
		}
	}
	return sum
}

// The store registry is sharded by name hash so unrelated span names do not
// contend on one lock.
const spanStoreShards = 16

type spanStoreShard struct {
	mu     sync.RWMutex
	stores map[string]*SpanStore
}

var spanStores [spanStoreShards]spanStoreShard

func init() {
	for i := range spanStores {
		spanStores[i].stores = make(map[string]*SpanStore)
	}
}

func spanStoreShardFor(name string) *spanStoreShard {
	return &spanStores[xxhash.Sum64String(name)%spanStoreShards]
}

// SpanStoreForName returns the span store for the given span name, or nil if
// no span with that name has been recorded.
func SpanStoreForName(name string) *SpanStore {
	shard := spanStoreShardFor(name)
	shard.mu.RLock()
	store := shard.stores[name]
	shard.mu.RUnlock()
	return store
}

// spanStoreForNameCreateIfNew returns the store for name, creating it on
// first use with the default bucket sizes.
func spanStoreForNameCreateIfNew(name string) *SpanStore {
	if store := SpanStoreForName(name); store != nil {
		return store
	}
	shard := spanStoreShardFor(name)
	shard.mu.Lock()
	defer shard.mu.Unlock()
	// Another goroutine may have created the store while we were waiting
	// for the write lock.
	if store, ok := shard.stores[name]; ok {
		return store
	}
	store := newSpanStore(name, defaultBucketSize, defaultBucketSize)
	shard.stores[name] = store
	LoadConfig().Logger.Debug("created span store",
		zap.String("name", name),
		zap.Int("latency_bucket_size", defaultBucketSize),
		zap.Int("error_bucket_size", defaultBucketSize),
	)
	return store
}

// SpanStoreNames returns the names of all span stores created so far.
func SpanStoreNames() []string {
	var names []string
	for i := range spanStores {
		shard := &spanStores[i]
		shard.mu.RLock()
		for name := range shard.stores {
			names = append(names, name)
		}
		shard.mu.RUnlock()
	}
	return names
}

// SpanStoreSetSize resizes the store for the given name, creating it with
// the requested sizes if it does not exist yet. Sizes are capped at
// maxBucketSize.
func SpanStoreSetSize(name string, latencyBucketSize, errorBucketSize int) {
	if latencyBucketSize > maxBucketSize {
		latencyBucketSize = maxBucketSize
	}
	if errorBucketSize > maxBucketSize {
		errorBucketSize = maxBucketSize
	}
	shard := spanStoreShardFor(name)
	shard.mu.Lock()
	store, ok := shard.stores[name]
	if !ok {
		store = newSpanStore(name, latencyBucketSize, errorBucketSize)
		shard.stores[name] = store
		shard.mu.Unlock()
		return
	}
	shard.mu.Unlock()
	store.Resize(latencyBucketSize, errorBucketSize)
}
