// Command tracedemo runs a synthetic tracing workload: it starts parent and
// child spans across several workers, round-trips remote parents through the
// binary propagation format, and periodically reports span store contents.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/collector/consumer/consumertest"
	"go.uber.org/zap"

	"github.com/deepaksharma/tracecore/exporter/otelpdata"
	"github.com/deepaksharma/tracecore/exporter/spanlog"
	"github.com/deepaksharma/tracecore/trace"
	"github.com/deepaksharma/tracecore/trace/propagation"
	"github.com/deepaksharma/tracecore/trace/tracestate"
)

func main() {
	var (
		fraction = flag.Float64("fraction", 1.0, "sampling fraction for the default sampler")
		workers  = flag.Int("workers", 4, "number of concurrent span-producing workers")
		duration = flag.Duration("duration", 30*time.Second, "how long to run the workload")
		report   = flag.String("report", "@every 5s", "cron schedule for span store reports")
		verbose  = flag.Bool("verbose", false, "log every exported span")
		otel     = flag.Bool("otel", false, "also bridge spans into an in-memory OTel sink")
	)
	flag.Parse()

	logger, err := newLogger(*verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	trace.SetLogger(logger)
	trace.SetDefaultSampler(trace.ProbabilitySampler(*fraction))

	if *verbose {
		trace.RegisterExporter(spanlog.New(logger))
	}

	var bridge *otelpdata.Bridge
	var sink *consumertest.TracesSink
	if *otel {
		sink = new(consumertest.TracesSink)
		bridge = otelpdata.New(sink, otelpdata.WithLogger(logger))
		trace.RegisterExporter(bridge)
	}

	c := cron.New()
	if _, err := c.AddFunc(*report, func() { reportStores(logger) }); err != nil {
		logger.Fatal("invalid report schedule", zap.String("schedule", *report), zap.Error(err))
	}
	c.Start()
	defer c.Stop()

	logger.Info("starting workload",
		zap.Float64("fraction", *fraction),
		zap.Int("workers", *workers),
		zap.Duration("duration", *duration),
	)

	done := make(chan struct{})
	time.AfterFunc(*duration, func() { close(done) })

	var wg sync.WaitGroup
	for i := 0; i < *workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			work(id, done)
		}(i)
	}
	wg.Wait()

	if bridge != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := bridge.Shutdown(ctx); err != nil {
			logger.Warn("bridge shutdown did not drain", zap.Error(err))
		}
		logger.Info("otel sink totals",
			zap.Int("spans", sink.SpanCount()),
			zap.Int64("dropped", bridge.Dropped()),
		)
	}
	reportStores(logger)
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// work produces request-shaped traces until done is closed: a server span
// started from a remote parent carried through the binary format, with a
// client child, occasional error statuses, and a vendor tracestate entry.
func work(id int, done <-chan struct{}) {
	rnd := rand.New(rand.NewSource(int64(id) + 1))
	for {
		select {
		case <-done:
			return
		default:
		}

		remote := remoteParent(rnd)
		ctx, server := trace.StartSpanWithRemoteParent(context.Background(), "demo/handle",
			remote, trace.WithSpanKind(trace.SpanKindServer))
		server.AddAttributes(
			trace.Int64Attribute("worker.id", int64(id)),
			trace.StringAttribute("peer.address", "10.0.0.1:7946"),
		)
		server.AddMessageReceiveEvent(1, 512, 256)

		_, client := trace.StartSpan(ctx, "demo/backend",
			trace.WithSpanKind(trace.SpanKindClient))
		client.Annotate([]trace.Attribute{
			trace.BoolAttribute("cache.hit", rnd.Intn(2) == 0),
		}, "backend call")
		time.Sleep(time.Duration(rnd.Intn(2000)) * time.Microsecond)
		if rnd.Intn(10) == 0 {
			client.SetStatus(trace.Status{
				Code:    trace.StatusCodeUnavailable,
				Message: "backend unavailable",
			})
		} else {
			client.SetStatus(trace.Status{Code: trace.StatusCodeOK})
		}
		client.End()

		server.AddMessageSendEvent(2, 1024, 512)
		server.SetStatus(trace.Status{Code: trace.StatusCodeOK})
		server.End()
	}
}

// remoteParent fabricates an upstream span context and round-trips it
// through the binary propagation format, as a real RPC boundary would.
func remoteParent(rnd *rand.Rand) trace.SpanContext {
	var sc trace.SpanContext
	rnd.Read(sc.TraceID[:])
	rnd.Read(sc.SpanID[:])
	if rnd.Intn(2) == 0 {
		sc.TraceOptions = 1
	}
	if key, err := tracestate.NewKey("demo@vendor"); err == nil {
		if value, err := tracestate.NewValue("upstream"); err == nil {
			sc.Tracestate, _ = tracestate.New(nil, tracestate.Entry{Key: key, Value: value})
		}
	}
	decoded, ok := propagation.FromBinary(propagation.Binary(sc))
	if !ok {
		return sc
	}
	decoded.Tracestate = sc.Tracestate
	return decoded
}

func reportStores(logger *zap.Logger) {
	for _, name := range trace.SpanStoreNames() {
		store := trace.SpanStoreForName(name)
		if store == nil {
			continue
		}
		sum := store.Summary()
		total := 0
		for _, n := range sum.Latency {
			total += n
		}
		fields := []zap.Field{
			zap.String("name", name),
			zap.Int("ok_spans", total),
		}
		for code, n := range sum.Errors {
			fields = append(fields, zap.Int("errors_"+code.String(), n))
		}
		logger.Info("span store", fields...)
	}
}
