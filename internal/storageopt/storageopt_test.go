package storageopt

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSlowQueryDetector(t *testing.T) {
	var got []string
	d := NewSlowQueryDetector(SlowQueryOptions[string]{
		Threshold: 100 * time.Millisecond,
		Hook:      func(_ context.Context, info string) { got = append(got, info) },
	})
	ctx := context.Background()

	assert.False(t, d.MaybeSlowQuery(ctx, "fast", 99*time.Millisecond))
	assert.True(t, d.MaybeSlowQuery(ctx, "edge", 100*time.Millisecond))
	assert.True(t, d.MaybeSlowQuery(ctx, "slow", time.Second))

	assert.Equal(t, []string{"edge", "slow"}, got)
	assert.Equal(t, int64(2), d.Count())
	assert.Equal(t, 100*time.Millisecond, d.Threshold())
}

func TestSlowQueryDetector_Disabled(t *testing.T) {
	d := NewSlowQueryDetector(SlowQueryOptions[int]{Threshold: -time.Second})
	assert.False(t, d.MaybeSlowQuery(context.Background(), 1, time.Hour))
	assert.Zero(t, d.Threshold())

	var nilDetector *SlowQueryDetector[int]
	assert.False(t, nilDetector.MaybeSlowQuery(context.Background(), 1, time.Hour))
	assert.Zero(t, nilDetector.Count())
	assert.Zero(t, nilDetector.Threshold())
}

func TestSlowQueryDetector_NilHookCounts(t *testing.T) {
	d := NewSlowQueryDetector(SlowQueryOptions[int]{Threshold: time.Millisecond})
	assert.True(t, d.MaybeSlowQuery(context.Background(), 1, time.Second))
	assert.Equal(t, int64(1), d.Count())
}

func TestCounters(t *testing.T) {
	var q QueryCounter
	q.AddQueries(3)
	q.IncQueryError()
	q.IncChunk()
	q.IncChunk()
	assert.Equal(t, int64(3), q.QueryCount())
	assert.Equal(t, int64(1), q.QueryErrors())
	assert.Equal(t, int64(2), q.ChunkCount())

	var h HealthCounter
	h.IncPing()
	h.IncPingError()
	assert.Equal(t, int64(1), h.PingCount())
	assert.Equal(t, int64(1), h.PingErrors())

	assert.GreaterOrEqual(t, MeasureOperation(time.Now().Add(-time.Second)), time.Second)
}
