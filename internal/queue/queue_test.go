package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testQueue(t *testing.T) *Queue {
	t.Helper()
	mr := miniredis.RunT(t)
	q, err := New(context.Background(), Config{Addr: mr.Addr(), KeyPrefix: "test"})
	require.NoError(t, err)
	t.Cleanup(func() { q.Close() })
	return q
}

func TestEnqueueFetchAck(t *testing.T) {
	q := testQueue(t)
	ctx := context.Background()

	id, err := q.Enqueue(ctx, map[string]string{"company": "甲公司"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	item, err := q.FetchOne(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, id, item.ID)
	assert.JSONEq(t, `{"company":"甲公司"}`, string(item.Payload))

	require.NoError(t, q.Ack(ctx, item.ID))

	n, err := q.PendingCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	// Acked payload is gone; a second fetch times out empty.
	item, err = q.FetchOne(ctx, 50*time.Millisecond)
	require.NoError(t, err)
	assert.Nil(t, item)
}

func TestFetchTimesOutEmpty(t *testing.T) {
	q := testQueue(t)

	item, err := q.FetchOne(context.Background(), 50*time.Millisecond)
	require.NoError(t, err)
	assert.Nil(t, item)
}

func TestFailRollbackRedelivers(t *testing.T) {
	q := testQueue(t)
	ctx := context.Background()

	id, err := q.EnqueueRaw(ctx, []byte(`{"x":1}`))
	require.NoError(t, err)

	item, err := q.FetchOne(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, item)

	require.NoError(t, q.FailRollback(ctx, item.ID))

	again, err := q.FetchOne(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, again)
	assert.Equal(t, id, again.ID)
	assert.Equal(t, item.Payload, again.Payload)
}

func TestFailRollbackCountsFailures(t *testing.T) {
	q := testQueue(t)
	ctx := context.Background()

	_, err := q.EnqueueRaw(ctx, []byte(`not json`))
	require.NoError(t, err)

	for want := 0; want < 3; want++ {
		item, err := q.FetchOne(ctx, time.Second)
		require.NoError(t, err)
		require.NotNil(t, item)
		assert.Equal(t, want, item.Failures)
		require.NoError(t, q.FailRollback(ctx, item.ID))
	}
}

func TestRollbackUnprocessed(t *testing.T) {
	q := testQueue(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := q.EnqueueRaw(ctx, []byte(`{}`))
		require.NoError(t, err)
	}
	// Strand two ids in processing, as if a consumer crashed mid-flight.
	for i := 0; i < 2; i++ {
		item, err := q.FetchOne(ctx, time.Second)
		require.NoError(t, err)
		require.NotNil(t, item)
	}

	moved, err := q.RollbackUnprocessed(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, moved)

	n, err := q.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestDanglingIDSkipped(t *testing.T) {
	q := testQueue(t)
	ctx := context.Background()

	// An id on the pending list with no payload hash behind it.
	require.NoError(t, q.client.LPush(ctx, q.pendingKey(), "ghost").Err())
	id, err := q.EnqueueRaw(ctx, []byte(`{"ok":true}`))
	require.NoError(t, err)

	item, err := q.FetchOne(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, id, item.ID)
}
