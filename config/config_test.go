package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultMatchesDocumentedValues(t *testing.T) {
	c := Default()
	assert.Equal(t, 2, c.NWorkerThreads)
	assert.Equal(t, 1000, c.QueueCapacityRows)
	assert.Equal(t, 1<<20, c.QueueCapacityBytes)
	assert.Equal(t, time.Duration(0), c.AllowedDelay())
}

func TestNewAppliesOptionsOverDefault(t *testing.T) {
	c := New(WithNWorkers(8), WithQueueCapacity(50, 4096), WithAllowedDelay(250*time.Millisecond), WithWorkerPollInterval(time.Microsecond), WithUpdateLockTimeout(time.Minute))
	assert.Equal(t, 8, c.NWorkerThreads)
	assert.Equal(t, 50, c.QueueCapacityRows)
	assert.Equal(t, 4096, c.QueueCapacityBytes)
	assert.Equal(t, 250*time.Millisecond, c.AllowedDelay())
	assert.Equal(t, time.Microsecond, c.WorkerPollInterval)
	assert.Equal(t, time.Minute, c.UpdateLockTimeout)
}

func TestWithNWorkersIgnoresNonPositive(t *testing.T) {
	c := New(WithNWorkers(0))
	assert.Equal(t, Default().NWorkerThreads, c.NWorkerThreads)

	c = New(WithNWorkers(-3))
	assert.Equal(t, Default().NWorkerThreads, c.NWorkerThreads)
}

func TestWithQueueCapacityIgnoresNonPositiveField(t *testing.T) {
	c := New(WithQueueCapacity(0, 2048))
	assert.Equal(t, Default().QueueCapacityRows, c.QueueCapacityRows)
	assert.Equal(t, 2048, c.QueueCapacityBytes)
}
