package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zzl221000/springql/pipeline"
)

func TestPublishFanOutReachesEverySubscriber(t *testing.T) {
	q := NewQueue()
	a := q.Subscribe()
	b := q.Subscribe()

	q.Publish(Event{Kind: UpdatePipeline, PipelineVersion: pipeline.Version(3)})

	evA, ok := a.Next()
	require.True(t, ok)
	assert.Equal(t, pipeline.Version(3), evA.PipelineVersion)

	evB, ok := b.Next()
	require.True(t, ok)
	assert.Equal(t, pipeline.Version(3), evB.PipelineVersion)
}

func TestNextIsNonBlockingWhenEmpty(t *testing.T) {
	q := NewQueue()
	sub := q.Subscribe()
	_, ok := sub.Next()
	assert.False(t, ok)
}

func TestCloseUnsubscribes(t *testing.T) {
	q := NewQueue()
	sub := q.Subscribe()
	sub.Close()

	q.Publish(Event{Kind: UpdatePipeline})
	assert.Empty(t, q.subs)
}

func TestPublishOrderIsPreservedPerSubscriber(t *testing.T) {
	q := NewQueue()
	sub := q.Subscribe()

	q.Publish(Event{Kind: UpdatePipeline, PipelineVersion: 1})
	q.Publish(Event{Kind: UpdatePipeline, PipelineVersion: 2})

	first, ok := sub.Next()
	require.True(t, ok)
	assert.EqualValues(t, 1, first.PipelineVersion)

	second, ok := sub.Next()
	require.True(t, ok)
	assert.EqualValues(t, 2, second.PipelineVersion)
}
