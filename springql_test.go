package springql

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zzl221000/springql/config"
	"github.com/zzl221000/springql/pipeline"
	"github.com/zzl221000/springql/row"
	"github.com/zzl221000/springql/value"
)

func numShape(name string) *row.StreamShape {
	return &row.StreamShape{StreamName: name, Columns: []row.ColumnDef{{Name: "v", Tag: value.TagI64}}}
}

func TestOpenCommandPushPopRoundTrip(t *testing.T) {
	p := Open(config.WithNWorkers(2), config.WithWorkerPollInterval(time.Millisecond))
	defer p.Close()

	require.NoError(t, p.Command(pipeline.NewCreateSourceStream(&pipeline.StreamModel{Name: "in", Kind: pipeline.StreamSource, Shape: numShape("in")})))
	require.NoError(t, p.Command(pipeline.NewCreateSinkStream(&pipeline.StreamModel{Name: "out", Kind: pipeline.StreamSink, Shape: numShape("out")})))
	require.NoError(t, p.Command(pipeline.NewCreatePump(&pipeline.PumpModel{
		Name: "double", Upstreams: []string{"in"}, Downstream: "out",
		Query: pipeline.QueryPlan{ProjectOrder: []string{"v"}, ProjectExprs: map[string]string{"v": "v * 2"}},
	})))
	require.NoError(t, p.Command(pipeline.NewCreateSourceReader(&pipeline.SourceReaderModel{Name: "r", Stream: "in", Kind: pipeline.ReaderInMemoryQueue})))
	require.NoError(t, p.Command(pipeline.NewCreateSinkWriter(&pipeline.SinkWriterModel{Name: "w", Stream: "out", Kind: pipeline.WriterInMemoryQueue})))

	require.NoError(t, p.Push("r", row.SchemalessRow{"v": int64(21)}))

	r, err := p.Pop("w")
	require.NoError(t, err)
	v, err := r.Get(0)
	require.NoError(t, err)
	i, err := v.AsI64()
	require.NoError(t, err)
	assert.EqualValues(t, 42, i)
}

func TestPopNonBlockingReportsEmptyImmediately(t *testing.T) {
	p := Open(config.WithNWorkers(1), config.WithWorkerPollInterval(time.Millisecond))
	defer p.Close()

	require.NoError(t, p.Command(pipeline.NewCreateSourceStream(&pipeline.StreamModel{Name: "in", Kind: pipeline.StreamSource, Shape: numShape("in")})))
	require.NoError(t, p.Command(pipeline.NewCreateSinkStream(&pipeline.StreamModel{Name: "out", Kind: pipeline.StreamSink, Shape: numShape("out")})))
	require.NoError(t, p.Command(pipeline.NewCreatePump(&pipeline.PumpModel{
		Name: "passthrough", Upstreams: []string{"in"}, Downstream: "out",
		Query: pipeline.QueryPlan{ProjectOrder: []string{"v"}, ProjectExprs: map[string]string{"v": "v"}},
	})))
	require.NoError(t, p.Command(pipeline.NewCreateSinkWriter(&pipeline.SinkWriterModel{Name: "w", Stream: "out", Kind: pipeline.WriterInMemoryQueue})))

	_, ok := p.PopNonBlocking("w")
	assert.False(t, ok)
}

func TestPushToUnknownReaderFails(t *testing.T) {
	p := Open()
	defer p.Close()

	err := p.Push("no-such-reader", row.SchemalessRow{"v": int64(1)})
	assert.Error(t, err)
}

func TestCommandRejectsUndefinedStreamReference(t *testing.T) {
	p := Open()
	defer p.Close()

	err := p.Command(pipeline.NewCreateSourceReader(&pipeline.SourceReaderModel{Name: "r", Stream: "missing", Kind: pipeline.ReaderInMemoryQueue}))
	assert.Error(t, err)
}
