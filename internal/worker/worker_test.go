package worker

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JustIsQi/supplierchainsgraph/internal/engine"
	"github.com/JustIsQi/supplierchainsgraph/internal/graph"
	"github.com/JustIsQi/supplierchainsgraph/internal/queue"
)

// noopStore satisfies engine.Store; handle tests only exercise queue
// settlement, not graph writes.
type noopStore struct{}

func (noopStore) VertexExists(context.Context, string) (bool, error) { return false, nil }
func (noopStore) InsertVertex(context.Context, string, string, graph.Props) error {
	return nil
}
func (noopStore) EdgeExists(context.Context, string, graph.Props, string, graph.Props, string, int64, graph.Props) (bool, error) {
	return false, nil
}
func (noopStore) InsertEdge(context.Context, string, string, string, int64, graph.Props) error {
	return nil
}

func testPool(t *testing.T) (*Pool, *queue.Queue) {
	t.Helper()
	mr := miniredis.RunT(t)
	q, err := queue.New(context.Background(), queue.Config{Addr: mr.Addr(), KeyPrefix: "test"})
	require.NoError(t, err)
	t.Cleanup(func() { q.Close() })
	return New(q, nil, &engine.Stats{}, Config{}), q
}

func TestHandleAcksProcessedRecord(t *testing.T) {
	p, q := testPool(t)
	ctx := context.Background()

	_, err := q.EnqueueRaw(ctx, []byte(`{"company_info":{"company_name":"甲公司"},"report_last_date":"2023-12-31"}`))
	require.NoError(t, err)

	item, err := q.FetchOne(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, item)

	upserter := engine.New(noopStore{}, &engine.Stats{}, engine.Config{})
	p.handle(ctx, upserter, logrus.WithField("test", t.Name()), item)

	n, err := q.PendingCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

// A payload that never decodes must not circulate forever: after the
// redelivery cap it is discarded instead of rolled back.
func TestHandleDiscardsPoisonRecord(t *testing.T) {
	p, q := testPool(t)
	ctx := context.Background()
	upserter := engine.New(noopStore{}, &engine.Stats{}, engine.Config{})
	log := logrus.WithField("test", t.Name())

	_, err := q.EnqueueRaw(ctx, []byte(`{{not json`))
	require.NoError(t, err)

	for attempt := 0; attempt < maxDecodeAttempts; attempt++ {
		item, err := q.FetchOne(ctx, time.Second)
		require.NoError(t, err, "attempt %d", attempt)
		require.NotNil(t, item, "attempt %d", attempt)
		p.handle(ctx, upserter, log, item)
	}

	// Discarded: nothing pending, nothing left to fetch.
	n, err := q.PendingCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	item, err := q.FetchOne(ctx, 50*time.Millisecond)
	require.NoError(t, err)
	assert.Nil(t, item)
}
