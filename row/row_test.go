package row

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zzl221000/springql/value"
)

func fixtureShape() *StreamShape {
	return &StreamShape{
		StreamName: "s",
		Columns: []ColumnDef{
			{Name: "id", Tag: value.TagI64},
			{Name: "name", Tag: value.TagText, Nullable: true},
		},
	}
}

func TestNewRowFromSchemalessBindsPresentColumns(t *testing.T) {
	r, err := NewRowFromSchemaless(fixtureShape(), SchemalessRow{"id": int64(1), "name": "alice"})
	require.NoError(t, err)

	v, err := r.GetByName("name")
	require.NoError(t, err)
	s, err := v.AsText()
	require.NoError(t, err)
	assert.Equal(t, "alice", s)
}

func TestNewRowFromSchemalessFillsNullableMissingColumn(t *testing.T) {
	r, err := NewRowFromSchemaless(fixtureShape(), SchemalessRow{"id": int64(1)})
	require.NoError(t, err)

	v, err := r.GetByName("name")
	require.NoError(t, err)
	assert.True(t, v.IsNull())
}

func TestNewRowFromSchemalessRejectsMissingRequiredColumn(t *testing.T) {
	_, err := NewRowFromSchemaless(fixtureShape(), SchemalessRow{"name": "alice"})
	assert.Error(t, err)
}

func TestNewRowFromSchemalessRejectsUnknownColumn(t *testing.T) {
	_, err := NewRowFromSchemaless(fixtureShape(), SchemalessRow{"id": int64(1), "bogus": "x"})
	assert.Error(t, err)
}

func TestTakeConsumesOnce(t *testing.T) {
	r, err := NewRowFromSchemaless(fixtureShape(), SchemalessRow{"id": int64(1), "name": "alice"})
	require.NoError(t, err)

	_, err = r.Take(0)
	require.NoError(t, err)

	_, err = r.Take(0)
	assert.Error(t, err, "a second Take of the same column must fail")

	// Get never consumes, so it keeps working after a different column's Take.
	v, err := r.Get(1)
	require.NoError(t, err)
	assert.False(t, v.IsNull())
}

func TestRowtimeResolvedFromShapeColumn(t *testing.T) {
	shape := &StreamShape{
		StreamName:    "events",
		Columns:       []ColumnDef{{Name: "ts", Tag: value.TagTimestamp}},
		RowtimeColumn: "ts",
	}
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	r, err := NewRowFromSchemaless(shape, SchemalessRow{"ts": now})
	require.NoError(t, err)

	rt, ok := r.Rowtime()
	require.True(t, ok)
	assert.True(t, rt.Equal(now))
}

func TestRowWithoutRowtimeColumnHasNone(t *testing.T) {
	r, err := NewRowFromSchemaless(fixtureShape(), SchemalessRow{"id": int64(1)})
	require.NoError(t, err)
	_, ok := r.Rowtime()
	assert.False(t, ok)
}

func TestToSchemalessOmitsNullColumns(t *testing.T) {
	r, err := NewRowFromSchemaless(fixtureShape(), SchemalessRow{"id": int64(1)})
	require.NoError(t, err)

	out := r.ToSchemaless()
	assert.Equal(t, int64(1), out["id"])
	_, present := out["name"]
	assert.False(t, present, "a Null column must be omitted from the schemaless projection")
}

func TestShapeIndexOfAndHasRowtime(t *testing.T) {
	s := fixtureShape()
	assert.Equal(t, 0, s.IndexOf("id"))
	assert.Equal(t, -1, s.IndexOf("missing"))
	assert.False(t, s.HasRowtime())
}
