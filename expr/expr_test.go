package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zzl221000/springql/row"
	"github.com/zzl221000/springql/value"
)

func testRow(t *testing.T) *row.Row {
	t.Helper()
	shape := &row.StreamShape{
		StreamName: "s",
		Columns: []row.ColumnDef{
			{Name: "a", Tag: value.TagI64},
			{Name: "b", Tag: value.TagF64},
			{Name: "name", Tag: value.TagText},
			{Name: "flag", Tag: value.TagBool, Nullable: true},
		},
	}
	r := row.NewRowFromValues(shape, []value.Value{
		value.NewI64(10),
		value.NewF64(2.5),
		value.NewText("hello"),
		value.Null(),
	})
	return r
}

func evalStr(t *testing.T, src string, r *row.Row) value.Value {
	t.Helper()
	n, err := Compile(src)
	require.NoError(t, err)
	v, err := Eval(n, r)
	require.NoError(t, err)
	return v
}

func TestArithmetic(t *testing.T) {
	r := testRow(t)

	tests := []struct {
		src  string
		want float64
	}{
		{"a + b", 12.5},
		{"a - b", 7.5},
		{"a * b", 25},
		{"a / b", 4},
		{"32.0 + a * 1.8", 50},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			v := evalStr(t, tt.src, r)
			f, err := v.AsF64()
			require.NoError(t, err)
			assert.InDelta(t, tt.want, f, 1e-9)
		})
	}
}

func TestComparisonAndLogic(t *testing.T) {
	r := testRow(t)

	assertBool := func(t *testing.T, src string, want bool) {
		t.Helper()
		v := evalStr(t, src, r)
		b, err := v.AsBool()
		require.NoError(t, err)
		assert.Equal(t, want, b)
	}

	assertBool(t, "a > b", true)
	assertBool(t, "a = 10", true)
	assertBool(t, "name = 'hello'", true)
	assertBool(t, "name <> 'bye'", true)
	assertBool(t, "a > b AND name = 'hello'", true)
	assertBool(t, "a < b OR name = 'hello'", true)
	assertBool(t, "NOT (a < b)", true)
}

func TestNullPropagation(t *testing.T) {
	r := testRow(t)

	t.Run("comparison with null column is null", func(t *testing.T) {
		n, err := Compile("flag = flag")
		require.NoError(t, err)
		v, err := Eval(n, r)
		require.NoError(t, err)
		assert.True(t, v.IsNull())
	})

	t.Run("null AND false is false", func(t *testing.T) {
		n, err := Compile("flag AND (a < 0)")
		require.NoError(t, err)
		v, err := Eval(n, r)
		require.NoError(t, err)
		b, err := v.AsBool()
		require.NoError(t, err)
		assert.False(t, b)
	})

	t.Run("null OR true is true", func(t *testing.T) {
		n, err := Compile("flag OR (a > 0)")
		require.NoError(t, err)
		v, err := Eval(n, r)
		require.NoError(t, err)
		b, err := v.AsBool()
		require.NoError(t, err)
		assert.True(t, b)
	})

	t.Run("null AND true is null", func(t *testing.T) {
		n, err := Compile("flag AND (a > 0)")
		require.NoError(t, err)
		v, err := Eval(n, r)
		require.NoError(t, err)
		assert.True(t, v.IsNull())
	})
}

func TestDivisionByZero(t *testing.T) {
	r := testRow(t)
	n, err := Compile("a / 0")
	require.NoError(t, err)
	_, err = Eval(n, r)
	assert.Error(t, err)
}

func TestCompileErrors(t *testing.T) {
	_, err := Compile("a +")
	assert.Error(t, err)

	_, err = Compile("a b")
	assert.Error(t, err)
}

func TestPrecedence(t *testing.T) {
	r := testRow(t)
	v := evalStr(t, "a + b * 2", r)
	f, err := v.AsF64()
	require.NoError(t, err)
	assert.InDelta(t, 15, f, 1e-9)
}
