package window

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zzl221000/springql/aggregate"
	"github.com/zzl221000/springql/value"
)

func ts(sec int64) time.Time { return time.Unix(sec, 0).UTC() }

func TestWatermarkAdvancesMonotonically(t *testing.T) {
	wm := NewWatermark(2 * time.Second)
	wm.Update(ts(10))
	assert.Equal(t, ts(8), wm.AsTimestamp())

	wm.Update(ts(5)) // older row does not move the watermark back
	assert.Equal(t, ts(8), wm.AsTimestamp())

	wm.Update(ts(20))
	assert.Equal(t, ts(18), wm.AsTimestamp())
}

func TestPaneAcceptableAndClose(t *testing.T) {
	p := newPane(ts(0), ts(5), aggregate.Avg)
	assert.True(t, p.IsAcceptable(ts(0)))
	assert.True(t, p.IsAcceptable(ts(4)))
	assert.False(t, p.IsAcceptable(ts(5)), "half-open: CloseAt itself is excluded")
	assert.False(t, p.IsAcceptable(ts(-1)))

	assert.False(t, p.ShouldClose(ts(4)))
	assert.True(t, p.ShouldClose(ts(5)))
	assert.True(t, p.ShouldClose(ts(6)))
}

func TestPaneAccumulateAndFinalize(t *testing.T) {
	p := newPane(ts(0), ts(10), aggregate.Sum)
	keyA := []value.Value{value.NewText("a")}
	keyB := []value.Value{value.NewText("b")}

	require.NoError(t, p.Accumulate(keyA, value.NewI64(1)))
	require.NoError(t, p.Accumulate(keyA, value.NewI64(2)))
	require.NoError(t, p.Accumulate(keyB, value.NewI64(10)))
	require.NoError(t, p.Accumulate(keyB, value.Null())) // ignored

	results, err := p.Finalize()
	require.NoError(t, err)
	require.Len(t, results, 2)

	aVal, err := results[0].Result.AsI64()
	require.NoError(t, err)
	assert.EqualValues(t, 3, aVal)

	bVal, err := results[1].Result.AsI64()
	require.NoError(t, err)
	assert.EqualValues(t, 10, bVal)
}

func TestPanesSlidingGeneratesFiveWindows(t *testing.T) {
	ps := NewPanes(Params{Kind: Sliding, Length: 5 * time.Second, Period: time.Second}, aggregate.Count)
	dispatch := ps.PanesToDispatch(ts(10))
	assert.Len(t, dispatch, 5)

	wantOpens := []time.Time{ts(6), ts(7), ts(8), ts(9), ts(10)}
	gotOpens := make([]time.Time, len(dispatch))
	for i, p := range dispatch {
		gotOpens[i] = p.OpenAt
	}
	assert.ElementsMatch(t, wantOpens, gotOpens)
}

func TestPanesTumblingGeneratesOneWindow(t *testing.T) {
	ps := NewPanes(Params{Kind: Tumbling, Length: 5 * time.Second, Period: 5 * time.Second}, aggregate.Count)
	dispatch := ps.PanesToDispatch(ts(12))
	require.Len(t, dispatch, 1)
	assert.Equal(t, ts(10), dispatch[0].OpenAt)
	assert.Equal(t, ts(15), dispatch[0].CloseAt)
}

func TestPanesReuseExistingPaneAcrossRows(t *testing.T) {
	ps := NewPanes(Params{Kind: Tumbling, Length: 5 * time.Second, Period: 5 * time.Second}, aggregate.Count)
	first := ps.PanesToDispatch(ts(11))
	second := ps.PanesToDispatch(ts(13))
	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Same(t, first[0], second[0], "a row landing in an already-generated pane must reuse it, not create a duplicate")
}

func TestPanesRemovePanesToClose(t *testing.T) {
	ps := NewPanes(Params{Kind: Tumbling, Length: 5 * time.Second, Period: 5 * time.Second}, aggregate.Count)
	ps.PanesToDispatch(ts(2))  // pane [0,5)
	ps.PanesToDispatch(ts(7))  // pane [5,10)
	ps.PanesToDispatch(ts(12)) // pane [10,15)

	closed := ps.RemovePanesToClose(ts(6))
	require.Len(t, closed, 1)
	assert.Equal(t, ts(0), closed[0].OpenAt)

	remaining := ps.PanesToDispatch(ts(7))
	assert.Len(t, remaining, 1, "the still-open pane for [5,10) must remain after eviction")
}
