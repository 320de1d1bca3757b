// Package queue is the durable hand-off between update creation and summary
// generation: a Redis list worked by a single consumer loop with bounded
// retries.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultKey = "summaries:pending"

// Task is one unit of summary work. Attempts counts deliveries so the
// worker can stop requeueing a poisoned task.
type Task struct {
	UpdateID string `json:"update_id"`
	Attempts int    `json:"attempts"`
}

type RedisQueue struct {
	client *redis.Client
	key    string
}

func NewRedisQueue(redisURL string) (*RedisQueue, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisQueueWithClient(client), nil
}

func NewRedisQueueWithClient(client *redis.Client) *RedisQueue {
	return &RedisQueue{client: client, key: defaultKey}
}

func (q *RedisQueue) Close() error {
	return q.client.Close()
}

// Enqueue pushes a fresh task for the update.
func (q *RedisQueue) Enqueue(ctx context.Context, updateID string) error {
	return q.push(ctx, Task{UpdateID: updateID})
}

// Requeue puts a failed task back with its attempt count bumped.
func (q *RedisQueue) Requeue(ctx context.Context, task Task) error {
	task.Attempts++
	return q.push(ctx, task)
}

func (q *RedisQueue) push(ctx context.Context, task Task) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}
	if err := q.client.LPush(ctx, q.key, data).Err(); err != nil {
		return fmt.Errorf("enqueue task: %w", err)
	}
	return nil
}

// Dequeue blocks up to timeout for the next task. A zero timeout blocks
// until a task arrives or the context ends; an empty queue within the
// timeout returns redis.Nil.
func (q *RedisQueue) Dequeue(ctx context.Context, timeout time.Duration) (Task, error) {
	res, err := q.client.BRPop(ctx, timeout, q.key).Result()
	if err != nil {
		return Task{}, err
	}
	// BRPop returns [key, value].
	var task Task
	if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
		return Task{}, fmt.Errorf("unmarshal task: %w", err)
	}
	return task, nil
}

// Len reports how many tasks are waiting.
func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.key).Result()
}
