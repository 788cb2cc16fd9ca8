// Package queue is a reliable Redis work queue for extraction records.
// Records wait on a pending list; a consumer atomically moves an id to a
// processing list before reading the payload, so a crashed consumer never
// loses work. Acking removes the id and payload; failing rolls the id
// back to pending for redelivery.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	payloadField = "payload"
	failureField = "failures"
)

// Config holds Redis connection and key settings.
type Config struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// Queue wraps a Redis client with the pending/processing list protocol.
type Queue struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

// Item is one queued record: an opaque id, the raw JSON payload and how
// many times this record has already been rolled back.
type Item struct {
	ID       string
	Payload  []byte
	Failures int
}

// New connects to Redis and verifies connectivity before returning.
func New(ctx context.Context, cfg Config) (*Queue, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "graphd"
	}
	return &Queue{
		client: client,
		prefix: prefix,
		logger: slog.Default().With("component", "queue"),
	}, nil
}

func (q *Queue) pendingKey() string    { return q.prefix + ":pending" }
func (q *Queue) processingKey() string { return q.prefix + ":processing" }
func (q *Queue) dataKey(id string) string {
	return q.prefix + ":data:" + id
}

// Enqueue stores the record payload and pushes its id onto the pending
// list. The value must be JSON-serializable.
func (q *Queue) Enqueue(ctx context.Context, value any) (string, error) {
	payload, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("marshal record: %w", err)
	}
	return q.EnqueueRaw(ctx, payload)
}

// EnqueueRaw enqueues an already-serialized payload.
func (q *Queue) EnqueueRaw(ctx context.Context, payload []byte) (string, error) {
	id := uuid.NewString()
	if err := q.client.HSet(ctx, q.dataKey(id), payloadField, payload).Err(); err != nil {
		return "", fmt.Errorf("store payload %s: %w", id, err)
	}
	if err := q.client.LPush(ctx, q.pendingKey(), id).Err(); err != nil {
		return "", fmt.Errorf("push pending %s: %w", id, err)
	}
	q.logger.Debug("record enqueued", "id", id, "bytes", len(payload))
	return id, nil
}

// FetchOne blocks up to timeout for the next record, moving its id to the
// processing list before reading the payload. Returns (nil, nil) when the
// wait times out with nothing pending. An id whose payload has vanished is
// dropped from processing and the wait continues.
func (q *Queue) FetchOne(ctx context.Context, timeout time.Duration) (*Item, error) {
	for {
		id, err := q.client.BRPopLPush(ctx, q.pendingKey(), q.processingKey(), timeout).Result()
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("pop pending: %w", err)
		}

		fields, err := q.client.HGetAll(ctx, q.dataKey(id)).Result()
		if err != nil {
			return nil, fmt.Errorf("read payload %s: %w", id, err)
		}
		payload, ok := fields[payloadField]
		if !ok {
			q.logger.Warn("dangling queue id without payload, dropping", "id", id)
			q.client.LRem(ctx, q.processingKey(), 1, id)
			continue
		}
		failures, _ := strconv.Atoi(fields[failureField])
		return &Item{ID: id, Payload: []byte(payload), Failures: failures}, nil
	}
}

// Ack marks the item fully processed: its id leaves the processing list
// and its payload is deleted.
func (q *Queue) Ack(ctx context.Context, id string) error {
	pipe := q.client.Pipeline()
	pipe.LRem(ctx, q.processingKey(), 1, id)
	pipe.Del(ctx, q.dataKey(id))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("ack %s: %w", id, err)
	}
	return nil
}

// FailRollback returns a failed item to the pending list, keeping its
// payload, so another consumer can retry it. Each rollback bumps the
// record's failure count so consumers can stop redelivering a record
// that keeps failing.
func (q *Queue) FailRollback(ctx context.Context, id string) error {
	pipe := q.client.Pipeline()
	pipe.HIncrBy(ctx, q.dataKey(id), failureField, 1)
	pipe.LRem(ctx, q.processingKey(), 1, id)
	pipe.LPush(ctx, q.pendingKey(), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("rollback %s: %w", id, err)
	}
	q.logger.Warn("record rolled back to pending", "id", id)
	return nil
}

// RollbackUnprocessed drains the processing list back to pending. Run at
// startup to recover ids stranded by a previous crash.
func (q *Queue) RollbackUnprocessed(ctx context.Context) (int, error) {
	moved := 0
	for {
		id, err := q.client.RPop(ctx, q.processingKey()).Result()
		if errors.Is(err, redis.Nil) {
			break
		}
		if err != nil {
			return moved, fmt.Errorf("drain processing: %w", err)
		}
		if err := q.client.LPush(ctx, q.pendingKey(), id).Err(); err != nil {
			return moved, fmt.Errorf("restore %s to pending: %w", id, err)
		}
		moved++
	}
	if moved > 0 {
		q.logger.Info("stranded records restored to pending", "count", moved)
	}
	return moved, nil
}

// PendingCount returns the length of the pending list.
func (q *Queue) PendingCount(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.pendingKey()).Result()
}

// Close releases the underlying Redis client.
func (q *Queue) Close() error {
	return q.client.Close()
}
