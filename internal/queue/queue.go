package queue

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Kind identifies the work a task carries.
type Kind string

const (
	KindDeliverSMS             Kind = "deliver_sms"
	KindDeliverEmail           Kind = "deliver_email"
	KindTransmitBroadcastEvent Kind = "transmit_broadcast_event"
	KindSimulateResponse       Kind = "simulate_response"
)

// Task is the unit of asynchronous work. Payloads carry ids only; executors
// re-read full state from the database so queued data can never go stale.
type Task struct {
	ID         uuid.UUID       `json:"id"`
	Kind       Kind            `json:"kind"`
	Payload    json.RawMessage `json:"payload"`
	Attempt    int             `json:"attempt"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

// Enqueuer is the narrow interface the request path and the retry path use.
type Enqueuer interface {
	Enqueue(ctx context.Context, task Task, delay time.Duration) error
}

// RedisQueue is a delayed task queue on a Redis sorted set: the score is the
// due timestamp, so a plain range query yields everything ready to run.
// Delivery is at-least-once; executors are guarded by status preconditions.
type RedisQueue struct {
	client *redis.Client
	key    string
	clock  func() time.Time
}

func NewRedisQueue(client *redis.Client, key string) *RedisQueue {
	return &RedisQueue{client: client, key: key, clock: time.Now}
}

func (q *RedisQueue) Enqueue(ctx context.Context, task Task, delay time.Duration) error {
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	task.EnqueuedAt = q.clock().UTC()

	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	due := q.clock().Add(delay)
	return q.client.ZAdd(ctx, q.key, redis.Z{
		Score:  float64(due.UnixMilli()),
		Member: data,
	}).Err()
}

// PollDue claims up to limit tasks whose due time has passed. A task counts
// as claimed only when its ZRem succeeds, so two workers never both run it.
func (q *RedisQueue) PollDue(ctx context.Context, limit int) ([]Task, error) {
	now := q.clock().UnixMilli()
	members, err := q.client.ZRangeByScore(ctx, q.key, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now, 10),
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, err
	}

	tasks := make([]Task, 0, len(members))
	for _, m := range members {
		removed, err := q.client.ZRem(ctx, q.key, m).Result()
		if err != nil || removed == 0 {
			continue
		}
		var t Task
		if err := json.Unmarshal([]byte(m), &t); err != nil {
			continue
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}
