package pipeline

// CommandKind tags the variant of an AlterPipelineCommand, matching the
// six DDL statements the (out-of-scope) planner can produce from spec.md §6.
type CommandKind int

const (
	CreateSourceStream CommandKind = iota
	CreateSourceReader
	CreateStream
	CreateSinkStream
	CreateSinkWriter
	CreatePump
)

// AlterPipelineCommand is the single value the planner hands the engine;
// the engine consumes only this, never SQL text, per spec.md §1.
type AlterPipelineCommand struct {
	Kind CommandKind

	Stream       *StreamModel
	SourceReader *SourceReaderModel
	SinkWriter   *SinkWriterModel
	Pump         *PumpModel
}

func NewCreateSourceStream(s *StreamModel) AlterPipelineCommand {
	return AlterPipelineCommand{Kind: CreateSourceStream, Stream: s}
}

func NewCreateSinkStream(s *StreamModel) AlterPipelineCommand {
	return AlterPipelineCommand{Kind: CreateSinkStream, Stream: s}
}

func NewCreateStream(s *StreamModel) AlterPipelineCommand {
	return AlterPipelineCommand{Kind: CreateStream, Stream: s}
}

func NewCreateSourceReader(r *SourceReaderModel) AlterPipelineCommand {
	return AlterPipelineCommand{Kind: CreateSourceReader, SourceReader: r}
}

func NewCreateSinkWriter(w *SinkWriterModel) AlterPipelineCommand {
	return AlterPipelineCommand{Kind: CreateSinkWriter, SinkWriter: w}
}

func NewCreatePump(p *PumpModel) AlterPipelineCommand {
	return AlterPipelineCommand{Kind: CreatePump, Pump: p}
}
