package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"smartCart/business/orchestrator"
	"smartCart/domain"

	"github.com/redis/go-redis/v9"
)

// CycleQueue is a FIFO of decision-cycle jobs on a redis list.
type CycleQueue struct {
	client *redis.Client
	key    string
}

var _ orchestrator.JobQueue = (*CycleQueue)(nil)

func NewCycleQueue(client *redis.Client, key string) *CycleQueue {
	return &CycleQueue{client: client, key: key}
}

func (q *CycleQueue) Push(ctx context.Context, job domain.CycleJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.LPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("push job: %w", err)
	}
	return nil
}

// Pop blocks until a job arrives or ctx ends.
func (q *CycleQueue) Pop(ctx context.Context) (domain.CycleJob, error) {
	for {
		if err := ctx.Err(); err != nil {
			return domain.CycleJob{}, err
		}

		res, err := q.client.BRPop(ctx, time.Second, q.key).Result()
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				if ctx.Err() != nil {
					return domain.CycleJob{}, ctx.Err()
				}
				continue
			}
			if errors.Is(err, redis.Nil) {
				continue
			}
			return domain.CycleJob{}, err
		}
		if len(res) != 2 {
			return domain.CycleJob{}, errors.New("cycle queue: unexpected response")
		}

		var job domain.CycleJob
		if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
			return domain.CycleJob{}, fmt.Errorf("decode job: %w", err)
		}
		return job, nil
	}
}
