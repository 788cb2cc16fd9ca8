// Package worker runs the queue consumer pool: each worker owns one graph
// session and drains records from the Redis queue into the upsert engine.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/JustIsQi/supplierchainsgraph/internal/engine"
	"github.com/JustIsQi/supplierchainsgraph/internal/graph"
	"github.com/JustIsQi/supplierchainsgraph/internal/queue"
	"github.com/JustIsQi/supplierchainsgraph/internal/record"
)

// maxDecodeAttempts bounds redeliveries of a record whose payload will
// not decode. Without a cap, a poison record on an otherwise drained
// queue is re-popped immediately and the worker spins on it forever.
const maxDecodeAttempts = 3

// Config tunes the consumer pool.
type Config struct {
	Concurrency  int
	PollInterval time.Duration
	Engine       engine.Config
}

// Pool consumes queued extraction records until its context is canceled.
type Pool struct {
	queue  *queue.Queue
	client *graph.Client
	stats  *engine.Stats
	cfg    Config
	log    *logrus.Entry
}

// New assembles a consumer pool. stats is shared across all workers.
func New(q *queue.Queue, client *graph.Client, stats *engine.Stats, cfg Config) *Pool {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	return &Pool{
		queue:  q,
		client: client,
		stats:  stats,
		cfg:    cfg,
		log:    logrus.WithField("component", "worker"),
	}
}

// Run restores any records stranded in the processing list by a previous
// crash, then consumes until ctx is canceled. Returns nil on a clean
// shutdown.
func (p *Pool) Run(ctx context.Context) error {
	restored, err := p.queue.RollbackUnprocessed(ctx)
	if err != nil {
		return fmt.Errorf("startup rollback: %w", err)
	}
	if restored > 0 {
		p.log.WithField("count", restored).Info("Restored stranded records to pending")
	}

	p.log.WithFields(logrus.Fields{
		"concurrency":   p.cfg.Concurrency,
		"poll_interval": p.cfg.PollInterval,
	}).Info("Starting consumer pool")

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < p.cfg.Concurrency; i++ {
		id := i
		g.Go(func() error {
			return p.consume(ctx, id)
		})
	}
	err = g.Wait()

	p.log.WithFields(logrus.Fields{
		"vertices_inserted": p.stats.Snapshot().VerticesInserted,
		"edges_inserted":    p.stats.Snapshot().EdgesInserted,
		"pair_defects":      p.stats.Snapshot().PairDefects,
	}).Info("Consumer pool stopped")

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// consume is one worker's loop. Each worker opens its own store session;
// sessions are not safe for concurrent use.
func (p *Pool) consume(ctx context.Context, id int) error {
	store, err := p.client.NewStore()
	if err != nil {
		return fmt.Errorf("worker %d session: %w", id, err)
	}
	defer store.Close()

	upserter := engine.New(store, p.stats, p.cfg.Engine)
	log := p.log.WithField("worker", id)
	log.Debug("Worker started")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		item, err := p.queue.FetchOne(ctx, p.cfg.PollInterval)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.WithError(err).Error("Queue fetch failed, backing off")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.cfg.PollInterval):
			}
			continue
		}
		if item == nil {
			continue
		}

		p.handle(ctx, upserter, log, item)
	}
}

// handle processes one record and settles it with the queue. A decode
// failure rolls the record back for another attempt until the redelivery
// cap, after which it is discarded. Processing outcomes ack: the engine
// skips per-section failures internally and a record that is structurally
// unusable will not improve on redelivery.
func (p *Pool) handle(ctx context.Context, upserter *engine.Upserter, log *logrus.Entry, item *queue.Item) {
	rec, err := record.Decode(item.Payload)
	if err != nil {
		if item.Failures+1 >= maxDecodeAttempts {
			log.WithError(err).WithFields(logrus.Fields{
				"id":       item.ID,
				"attempts": item.Failures + 1,
			}).Error("Record decode failed repeatedly, discarding")
			if ackErr := p.queue.Ack(ctx, item.ID); ackErr != nil {
				log.WithError(ackErr).WithField("id", item.ID).Error("Discard failed")
			}
			return
		}
		log.WithError(err).WithField("id", item.ID).Error("Record decode failed, rolling back")
		if rbErr := p.queue.FailRollback(ctx, item.ID); rbErr != nil {
			log.WithError(rbErr).WithField("id", item.ID).Error("Rollback failed")
		}
		return
	}

	if err := upserter.ProcessRecord(ctx, rec); err != nil {
		if errors.Is(err, engine.ErrNoCompany) {
			log.WithField("id", item.ID).Warn("Record has no company anchor, discarding")
		} else {
			log.WithError(err).WithField("id", item.ID).Error("Record partially processed")
		}
	}

	if err := p.queue.Ack(ctx, item.ID); err != nil {
		log.WithError(err).WithField("id", item.ID).Error("Ack failed")
	}
}
