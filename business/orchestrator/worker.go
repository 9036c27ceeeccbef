package orchestrator

import (
	"context"
	"errors"
	"time"

	"smartCart/domain"
	"smartCart/pkg/logger"
	"smartCart/pkg/trace"
)

type CycleRunner interface {
	RunCycle(ctx context.Context, userID uint) (domain.CycleSession, error)
}

// Worker drains the cycle queue and runs one decision cycle per job.
type Worker struct {
	queue   JobQueue
	runner  CycleRunner
	backoff time.Duration
}

func NewWorker(queue JobQueue, runner CycleRunner) *Worker {
	return &Worker{queue: queue, runner: runner, backoff: time.Second}
}

// Run blocks until ctx is canceled.
func (w *Worker) Run(ctx context.Context) {
	for {
		job, err := w.queue.Pop(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			logger.Error("cycle worker: queue read failed", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(w.backoff):
			}
			continue
		}

		if job.UserID == 0 {
			logger.Warn("cycle worker: job without user, skipping", "job_id", job.ID)
			continue
		}

		jobCtx := trace.WithTraceID(ctx, job.ID)
		session, err := w.runner.RunCycle(jobCtx, job.UserID)
		if err != nil {
			logger.Error("cycle worker: cycle failed",
				"job_id", job.ID,
				"user_id", job.UserID,
				"source", job.Source,
				"error", err,
			)
			continue
		}
		logger.Debug("cycle worker: job done",
			"job_id", job.ID,
			"user_id", job.UserID,
			"source", job.Source,
			"outcome", session.Outcome,
			"queued_for", time.Since(job.EnqueuedAt).String(),
		)
	}
}
