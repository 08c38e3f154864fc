// Package trace contains the core of a distributed tracing instrumentation
// library: span identity and lifecycle, sampling, and a per-name aggregation
// store of completed spans for local inspection.
//
// # Exporting traces
//
// To export collected tracing data, register at least one exporter:
//
//	trace.RegisterExporter(exporter)
//
// By default, traces will be sampled relatively rarely. To change the
// sampling frequency for your entire program, call SetDefaultSampler. Use a
// ProbabilitySampler to sample a subset of traces, or use AlwaysSample to
// collect a trace on every run:
//
//	trace.SetDefaultSampler(trace.AlwaysSample())
//
// Be careful about using AlwaysSample in a production application with
// significant traffic: a new trace will be started and exported for every
// request.
//
// # Adding spans to a trace
//
// A trace consists of a tree of spans. The current span is carried in a
// context.Context:
//
//	ctx, span := trace.StartSpan(ctx, "example.com/Run")
//	defer span.End()
//
// StartSpan creates a new top-level span if the context doesn't carry
// another span, otherwise it creates a child span. A span context received
// from another process is attached with StartSpanWithRemoteParent; the
// trace/propagation package carries span contexts across process
// boundaries.
package trace
