// Package pipeline implements the pipeline model (spec.md §3): stream,
// pump, source-reader and sink-writer definitions, the AlterPipelineCommand
// the (out-of-scope) planner hands the engine, and the versioned
// CurrentPipeline snapshot the reconfig coordinator swaps atomically.
package pipeline

import "github.com/zzl221000/springql/row"

// StreamKind distinguishes the three stream roles of spec.md §3.
type StreamKind int

const (
	StreamSource StreamKind = iota
	StreamIntermediate
	StreamSink
)

// StreamModel is the named shape of a source, intermediate, or sink stream.
type StreamModel struct {
	Name  string
	Kind  StreamKind
	Shape *row.StreamShape
}

// WindowSpec describes the windowed aggregation of a pump, when present.
type WindowSpec struct {
	Type          string // "sliding" (the only kind spec.md §4.9 describes)
	Length        int64  // nanoseconds
	Period        int64  // nanoseconds
	AllowedDelay  int64  // nanoseconds; 0 means no allowed delay (config.Config.AllowedDelayMillis is not applied)
	GroupByFields []string
}

// AggregateExpr is one aggregated output column of a windowed pump.
type AggregateExpr struct {
	Function   string // "AVG", "SUM", "COUNT", "MIN", "MAX"
	InputField string
	OutputName string
}

// QueryPlan is a pump's projection, filter, and optional window/aggregate.
type QueryPlan struct {
	// ProjectExprs maps each output column name to a scalar expression
	// string evaluated against the upstream tuple's fields (expr.Compile).
	ProjectExprs map[string]string
	// ProjectOrder fixes the output column order (map iteration isn't
	// stable); indexes into ProjectExprs by key.
	ProjectOrder []string
	// Filter is an optional WHERE expression string; empty means "no
	// filter, admit everything".
	Filter string
	Window *WindowSpec
	// Aggregates is populated only when Window != nil.
	Aggregates []AggregateExpr
}

// PumpModel is a pump: one or more upstream streams, one downstream stream,
// and the query that transforms rows flowing between them.
type PumpModel struct {
	Name       string
	Upstreams  []string // stream names
	Downstream string   // stream name
	Query      QueryPlan

	// OutputShape is the downstream stream's shape, resolved once at
	// pipeline.Apply time so pump execution never has to look it up through
	// the model again.
	OutputShape *row.StreamShape
}

// ReaderKind / WriterKind tag the transport a reader/writer binds to. Only
// InMemory is implemented by this engine; other tags are accepted in models
// so a host's foreign adapter registry can recognize them; a task for one
// gets no in-memory port, and its RunOnce reports no work done.
type ReaderKind string

const (
	ReaderInMemoryQueue ReaderKind = "in_memory_queue"
	ReaderNet           ReaderKind = "net"
)

type WriterKind string

const (
	WriterInMemoryQueue WriterKind = "in_memory_queue"
	WriterNet           WriterKind = "net"
)

// SourceReaderModel binds a source stream to a reader adapter and its
// options (spec.md §3 "Source Reader / Sink Writer Models").
type SourceReaderModel struct {
	Name    string
	Stream  string
	Kind    ReaderKind
	Options map[string]string
}

// SinkWriterModel binds a sink stream to a writer adapter and its options.
type SinkWriterModel struct {
	Name    string
	Stream  string
	Kind    WriterKind
	Options map[string]string
}
