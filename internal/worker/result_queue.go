package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stemsi/lms-backend/internal/config"
	"github.com/stemsi/lms-backend/internal/model"
)

// ResultQueue carries graded results from the request path to ResultWorker
// through a Redis list.
type ResultQueue struct {
	rdb *redis.Client
	key string
}

// NewResultQueue creates a queue on the persist results list.
func NewResultQueue(rdb *redis.Client) *ResultQueue {
	return &ResultQueue{rdb: rdb, key: config.WorkerKey.PersistResultsQueue}
}

// Publish appends a result to the queue.
func (q *ResultQueue) Publish(ctx context.Context, result model.ExamResult) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return q.rdb.RPush(ctx, q.key, raw).Err()
}

// Requeue puts a result back for a later attempt.
func (q *ResultQueue) Requeue(ctx context.Context, result model.ExamResult) error {
	return q.Publish(ctx, result)
}

// Pop blocks up to timeout for the next result. It returns (nil, nil) when
// the queue stayed empty.
func (q *ResultQueue) Pop(ctx context.Context, timeout time.Duration) (*model.ExamResult, error) {
	item, err := q.rdb.BLPop(ctx, timeout, q.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	if len(item) < 2 {
		return nil, nil
	}
	return decodeResult([]byte(item[1]))
}

func decodeResult(raw []byte) (*model.ExamResult, error) {
	var result model.ExamResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidPayload, err)
	}
	if result.SessionID == "" || result.Attempt <= 0 {
		return nil, fmt.Errorf("%w: missing session or attempt", errInvalidPayload)
	}
	return &result, nil
}

var errInvalidPayload = errors.New("invalid result payload")
