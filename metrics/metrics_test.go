package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIncTaskRunAndErrorAreIndependentPerTask(t *testing.T) {
	m := New()
	m.IncTaskRun("a")
	m.IncTaskRun("a")
	m.IncTaskError("a")
	m.IncTaskRun("b")

	assert.EqualValues(t, 2, m.TaskRuns("a"))
	assert.EqualValues(t, 1, m.TaskErrors("a"))
	assert.EqualValues(t, 1, m.TaskRuns("b"))
	assert.EqualValues(t, 0, m.TaskErrors("b"))
}

func TestUnknownTaskCountersAreZero(t *testing.T) {
	m := New()
	assert.EqualValues(t, 0, m.TaskRuns("never-seen"))
	assert.EqualValues(t, 0, m.TaskErrors("never-seen"))
}

func TestSnapshotReflectsCurrentCounters(t *testing.T) {
	m := New()
	m.IncTaskRun("a")
	m.IncTaskError("a")

	snap := m.Snapshot()
	assert.EqualValues(t, 1, snap["a:runs"])
	assert.EqualValues(t, 1, snap["a:errors"])
}
