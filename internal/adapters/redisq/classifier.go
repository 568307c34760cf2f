// Package redisq hands discovered items to the classification pipeline over a
// Redis list. The push is an explicit, error-returning emit: the caller
// decides what to do with a failed hand-off instead of it vanishing into a
// fire-and-forget call.
package redisq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sairevanth-zz/signalsloop-sub011/internal/domain"
)

const DefaultQueueKey = "classify:pending"

type Queue struct {
	rdb *redis.Client
	key string
}

func New(rdb *redis.Client, key string) *Queue {
	if key == "" {
		key = DefaultQueueKey
	}
	return &Queue{rdb: rdb, key: key}
}

type envelope struct {
	ScanID   string           `json:"scan_id"`
	Items    []domain.RawItem `json:"items"`
	QueuedAt time.Time        `json:"queued_at"`
}

func (q *Queue) Classify(ctx context.Context, scanID string, items []domain.RawItem) error {
	if len(items) == 0 {
		return nil
	}
	payload, err := json.Marshal(envelope{ScanID: scanID, Items: items, QueuedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal classification batch: %w", err)
	}
	if err := q.rdb.RPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("push classification batch: %w", err)
	}
	return nil
}
