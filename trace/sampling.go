package trace

import "encoding/binary"

// defaultSamplingProbability is the sampling fraction used when no sampler
// has been configured.
const defaultSamplingProbability = 1e-4

// Sampler decides whether a trace should be sampled and exported.
//
// Implementations must be free of side effects and safe for concurrent use:
// span creation may invoke a sampler from many goroutines at once.
type Sampler interface {
	Sample(p SamplingParameters) SamplingDecision
}

// SamplingParameters contains the values passed to a Sampler.
type SamplingParameters struct {
	// ParentContext is the context of the parent span, if any.
	ParentContext *SpanContext
	// TraceID is the unique id of the trace.
	TraceID TraceID
	// SpanID is the unique id of the span.
	SpanID SpanID
	// Name is the name of the span.
	Name string
	// HasRemoteParent indicates whether the span has a remote parent.
	HasRemoteParent bool
}

// SamplingDecision contains the result of a sampling decision.
type SamplingDecision struct {
	// Sample indicates whether the span should be sampled.
	Sample bool
}

type alwaysSampler struct{}

func (alwaysSampler) Sample(SamplingParameters) SamplingDecision {
	return SamplingDecision{Sample: true}
}

type neverSampler struct{}

func (neverSampler) Sample(SamplingParameters) SamplingDecision {
	return SamplingDecision{Sample: false}
}

// AlwaysSample returns a Sampler that samples every trace.
//
// Be careful about using this sampler in a production application with
// significant traffic: a new trace will be started and exported for every
// request.
func AlwaysSample() Sampler {
	return alwaysSampler{}
}

// NeverSample returns a Sampler that samples no traces.
func NeverSample() Sampler {
	return neverSampler{}
}

type probabilitySampler struct {
	traceIDUpperBound uint64
}

// ProbabilitySampler returns a Sampler that samples a given fraction of
// traces. It also samples spans whose parents are sampled.
//
// The decision is a deterministic function of the trace ID, so all spans of a
// trace sample identically even when the decision is re-evaluated in another
// process.
func ProbabilitySampler(fraction float64) Sampler {
	if fraction >= 1 {
		return AlwaysSample()
	}
	if fraction < 0 {
		fraction = 0
	}
	return probabilitySampler{
		traceIDUpperBound: uint64(fraction * (1 << 63)),
	}
}

func (s probabilitySampler) Sample(p SamplingParameters) SamplingDecision {
	if p.ParentContext != nil && p.ParentContext.IsSampled() {
		return SamplingDecision{Sample: true}
	}
	x := binary.BigEndian.Uint64(p.TraceID[:8]) >> 1
	return SamplingDecision{Sample: x < s.traceIDUpperBound}
}
