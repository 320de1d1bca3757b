package queue

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Handler processes one task. A nil return acknowledges the task; an error
// sends it back for another attempt until MaxAttempts is reached.
type Handler func(ctx context.Context, updateID string) error

type Worker struct {
	Queue       *RedisQueue
	Handle      Handler
	MaxAttempts int
	PollTimeout time.Duration
	Logger      *slog.Logger
}

func (w *Worker) logger() *slog.Logger {
	if w.Logger != nil {
		return w.Logger
	}
	return slog.Default()
}

// Run consumes tasks until the context is canceled. Tasks are delivered at
// least once: a crash between dequeue and completion loses at most the task
// in flight, and handlers are written to tolerate re-delivery.
func (w *Worker) Run(ctx context.Context) {
	maxAttempts := w.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	poll := w.PollTimeout
	if poll <= 0 {
		poll = 5 * time.Second
	}
	logger := w.logger()

	for {
		if ctx.Err() != nil {
			return
		}

		task, err := w.Queue.Dequeue(ctx, poll)
		if err != nil {
			if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) {
				continue
			}
			logger.Error("queue: dequeue failed", "err", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		if err := w.Handle(ctx, task.UpdateID); err != nil {
			if task.Attempts+1 >= maxAttempts {
				logger.Error("queue: task dropped after max attempts",
					"update_id", task.UpdateID, "attempts", task.Attempts+1, "err", err)
				continue
			}
			logger.Warn("queue: task failed, requeueing",
				"update_id", task.UpdateID, "attempts", task.Attempts+1, "err", err)
			if qErr := w.Queue.Requeue(ctx, task); qErr != nil {
				logger.Error("queue: requeue failed", "update_id", task.UpdateID, "err", qErr)
			}
		}
	}
}
