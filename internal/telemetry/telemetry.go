// Package telemetry wires the broker's counters and traces through
// OpenCensus stats/view and trace packages, applied directly to
// application-level events - publishes, pulls, active connections, and
// append latency - since there is no RPC framework here to instrument
// through a grpc-specific plugin.
package telemetry

import (
	"context"
	"sync/atomic"

	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
	"go.opencensus.io/trace"
)

var (
	MPublishes         = stats.Int64("broker/publishes", "messages published", stats.UnitDimensionless)
	MPulls             = stats.Int64("broker/pulls", "successful pulls", stats.UnitDimensionless)
	MPullMisses        = stats.Int64("broker/pull_misses", "pulls that found nothing", stats.UnitDimensionless)
	MConnectionsOpened = stats.Int64("broker/connections_opened", "accepted connections", stats.UnitDimensionless)
	MAppendLatencyMs   = stats.Float64("broker/append_latency_ms", "segmented log append latency", stats.UnitMilliseconds)

	keyTopic, _ = tag.NewKey("topic")

	views = []*view.View{
		{Name: "broker/publishes", Measure: MPublishes, Aggregation: view.Count(), TagKeys: []tag.Key{keyTopic}},
		{Name: "broker/pulls", Measure: MPulls, Aggregation: view.Count(), TagKeys: []tag.Key{keyTopic}},
		{Name: "broker/pull_misses", Measure: MPullMisses, Aggregation: view.Count()},
		{Name: "broker/connections_opened", Measure: MConnectionsOpened, Aggregation: view.Count()},
		{Name: "broker/append_latency_ms", Measure: MAppendLatencyMs, Aggregation: view.Distribution(0, 1, 5, 10, 50, 100, 500)},
	}

	activeConnections int64
)

// Register installs the broker's OpenCensus views. Call once at startup.
func Register() error {
	return view.Register(views...)
}

// RecordPublish increments the publish counter for topic.
func RecordPublish(ctx context.Context, topicName string) {
	ctx, err := tag.New(ctx, tag.Insert(keyTopic, topicName))
	if err != nil {
		stats.Record(context.Background(), MPublishes.M(1))
		return
	}
	stats.Record(ctx, MPublishes.M(1))
}

// RecordPull increments the pull or pull-miss counter for topic.
func RecordPull(ctx context.Context, topicName string, hit bool) {
	ctx, err := tag.New(ctx, tag.Insert(keyTopic, topicName))
	if err != nil {
		ctx = context.Background()
	}
	if hit {
		stats.Record(ctx, MPulls.M(1))
		return
	}
	stats.Record(ctx, MPullMisses.M(1))
}

// RecordAppendLatency records how long a SegmentedLog.Append call took.
func RecordAppendLatency(ctx context.Context, ms float64) {
	stats.Record(ctx, MAppendLatencyMs.M(ms))
}

// ConnectionOpened records a new accepted connection and returns a span
// that should be ended when the connection closes.
func ConnectionOpened(ctx context.Context) (context.Context, *trace.Span) {
	atomic.AddInt64(&activeConnections, 1)
	stats.Record(ctx, MConnectionsOpened.M(1))
	return trace.StartSpan(ctx, "broker.connection")
}

// ConnectionClosed ends the connection's span and decrements the active
// connection counter.
func ConnectionClosed(span *trace.Span) {
	atomic.AddInt64(&activeConnections, -1)
	span.End()
}

// ActiveConnections reports the number of connections currently open.
func ActiveConnections() int64 {
	return atomic.LoadInt64(&activeConnections)
}
