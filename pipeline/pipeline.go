package pipeline

import "github.com/zzl221000/springql/springqlerr"

// Model is the complete, applied set of streams, pumps, readers and writers
// that make up one pipeline version (spec.md §3). There is no DROP: a
// stream/pump/reader/writer, once created, exists until process teardown
// (spec.md §3 "Lifecycles"; Non-goal per §9 Open Questions).
type Model struct {
	Streams map[string]*StreamModel
	Pumps   map[string]*PumpModel
	Readers map[string]*SourceReaderModel
	Writers map[string]*SinkWriterModel

	// *Order record registration order. Since there is no DROP, this is
	// append-only and gives the task graph builder and scheduler the
	// stable "leftmost outgoing edge" tie-break spec.md §4.5 requires.
	StreamOrder []string
	PumpOrder   []string
	ReaderOrder []string
	WriterOrder []string
}

// NewModel returns an empty pipeline model.
func NewModel() *Model {
	return &Model{
		Streams: map[string]*StreamModel{},
		Pumps:   map[string]*PumpModel{},
		Readers: map[string]*SourceReaderModel{},
		Writers: map[string]*SinkWriterModel{},
	}
}

// clone returns a shallow copy whose top-level maps are independent, so
// Apply never mutates a Model another goroutine might still be reading
// through a live CurrentPipeline snapshot (spec.md §4.6 step 3: "applying
// the command to a copy").
func (m *Model) clone() *Model {
	n := NewModel()
	for k, v := range m.Streams {
		n.Streams[k] = v
	}
	for k, v := range m.Pumps {
		n.Pumps[k] = v
	}
	for k, v := range m.Readers {
		n.Readers[k] = v
	}
	for k, v := range m.Writers {
		n.Writers[k] = v
	}
	n.StreamOrder = append([]string(nil), m.StreamOrder...)
	n.PumpOrder = append([]string(nil), m.PumpOrder...)
	n.ReaderOrder = append([]string(nil), m.ReaderOrder...)
	n.WriterOrder = append([]string(nil), m.WriterOrder...)
	return n
}

// Apply returns a new Model with cmd applied on top of m, without mutating
// m. Fails with Sql when a command refers to an undefined stream.
func (m *Model) Apply(cmd AlterPipelineCommand) (*Model, error) {
	next := m.clone()

	switch cmd.Kind {
	case CreateSourceStream, CreateSinkStream, CreateStream:
		s := cmd.Stream
		if _, exists := next.Streams[s.Name]; exists {
			return nil, springqlerr.New(springqlerr.Sql, "stream %q already exists", s.Name)
		}
		next.Streams[s.Name] = s
		next.StreamOrder = append(next.StreamOrder, s.Name)

	case CreateSourceReader:
		r := cmd.SourceReader
		if _, ok := next.Streams[r.Stream]; !ok {
			return nil, springqlerr.New(springqlerr.Sql, "source reader %q refers to undefined stream %q", r.Name, r.Stream)
		}
		next.Readers[r.Name] = r
		next.ReaderOrder = append(next.ReaderOrder, r.Name)

	case CreateSinkWriter:
		w := cmd.SinkWriter
		if _, ok := next.Streams[w.Stream]; !ok {
			return nil, springqlerr.New(springqlerr.Sql, "sink writer %q refers to undefined stream %q", w.Name, w.Stream)
		}
		next.Writers[w.Name] = w
		next.WriterOrder = append(next.WriterOrder, w.Name)

	case CreatePump:
		p := cmd.Pump
		for _, up := range p.Upstreams {
			if _, ok := next.Streams[up]; !ok {
				return nil, springqlerr.New(springqlerr.Sql, "pump %q refers to undefined upstream stream %q", p.Name, up)
			}
		}
		downstream, ok := next.Streams[p.Downstream]
		if !ok {
			return nil, springqlerr.New(springqlerr.Sql, "pump %q refers to undefined downstream stream %q", p.Name, p.Downstream)
		}
		p.OutputShape = downstream.Shape
		next.Pumps[p.Name] = p
		next.PumpOrder = append(next.PumpOrder, p.Name)

	default:
		return nil, springqlerr.New(springqlerr.Sql, "unknown command kind %d", cmd.Kind)
	}

	return next, nil
}

// StreamsWithoutOutgoingEdge reports non-sink streams that no pump reads
// and no writer is bound to — a violation of the invariant
// in spec.md §4.3 ("every stream has at least one outgoing edge unless it
// is a sink stream with a writer").
func (m *Model) StreamsWithoutOutgoingEdge() []string {
	hasOutgoing := map[string]bool{}
	for _, p := range m.Pumps {
		for _, up := range p.Upstreams {
			hasOutgoing[up] = true
		}
	}
	for _, w := range m.Writers {
		hasOutgoing[w.Stream] = true
	}
	var bad []string
	for name, s := range m.Streams {
		if s.Kind == StreamSink {
			continue // a sink stream's outgoing edge is optional (drains to host/writer directly)
		}
		if !hasOutgoing[name] {
			bad = append(bad, name)
		}
	}
	return bad
}
