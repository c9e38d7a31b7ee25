package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zzl221000/springql/row"
	"github.com/zzl221000/springql/value"
)

func shape() *row.StreamShape {
	return &row.StreamShape{
		StreamName: "s",
		Columns: []row.ColumnDef{
			{Name: "id", Tag: value.TagI64},
			{Name: "name", Tag: value.TagText, Nullable: true},
		},
	}
}

func TestDecodeSourceRow(t *testing.T) {
	out, err := DecodeSourceRow([]byte(`{"id": 7, "name": "bob"}`))
	require.NoError(t, err)
	assert.EqualValues(t, 7, out["id"])
	assert.Equal(t, "bob", out["name"])
}

func TestDecodeSourceRowRejectsNestedObject(t *testing.T) {
	_, err := DecodeSourceRow([]byte(`{"id": 1, "nested": {"x": 1}}`))
	assert.Error(t, err)
}

func TestDecodeSourceRowRejectsNestedArray(t *testing.T) {
	_, err := DecodeSourceRow([]byte(`{"id": 1, "nested": [1, 2]}`))
	assert.Error(t, err)
}

func TestDecodeSourceRowRejectsMalformedJSON(t *testing.T) {
	_, err := DecodeSourceRow([]byte(`not json`))
	assert.Error(t, err)
}

func TestEncodeSinkRowOmitsNullColumns(t *testing.T) {
	r, err := row.NewRowFromSchemaless(shape(), row.SchemalessRow{"id": int64(3)})
	require.NoError(t, err)

	data, err := EncodeSinkRow(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id": 3}`, string(data))
}

func TestRoundTripDecodeThenEncode(t *testing.T) {
	out, err := DecodeSourceRow([]byte(`{"id": 9, "name": "carol"}`))
	require.NoError(t, err)

	r, err := row.NewRowFromSchemaless(shape(), out)
	require.NoError(t, err)

	data, err := EncodeSinkRow(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id": 9, "name": "carol"}`, string(data))
}
