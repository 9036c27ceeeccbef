package scheduler

import (
	"context"
	"fmt"
	"time"

	"smartCart/domain"
	"smartCart/pkg/logger"

	"github.com/robfig/cron/v3"
)

// ActiveUserSource lists users with cart activity since a point in time.
type ActiveUserSource interface {
	RecentCartUsers(ctx context.Context, since time.Time) ([]uint, error)
}

type CycleEnqueuer interface {
	Enqueue(ctx context.Context, userID uint, source domain.CycleSource) (domain.CycleJob, error)
}

// Scheduler periodically enqueues decision cycles for recently active carts.
type Scheduler struct {
	Cron     *cron.Cron
	Users    ActiveUserSource
	Cycles   CycleEnqueuer
	Lookback time.Duration
	Ctx      context.Context

	now func() time.Time
}

func NewScheduler(ctx context.Context, users ActiveUserSource, cycles CycleEnqueuer, lookback time.Duration) *Scheduler {
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds()),
		Users:    users,
		Cycles:   cycles,
		Lookback: lookback,
		Ctx:      ctx,
		now:      time.Now,
	}
}

// Register adds the auto-action sweep on the given six-field cron spec.
func (s *Scheduler) Register(sweepCron string) error {
	if _, err := s.Cron.AddFunc(sweepCron, s.sweepTask); err != nil {
		return fmt.Errorf("register sweep task: %w", err)
	}
	return nil
}

func (s *Scheduler) Start() {
	s.Cron.Start()
	logger.Info("scheduler started", "entries", len(s.Cron.Entries()))
}

// Stop stops the cron and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	logger.Info("scheduler stopped")
}

func (s *Scheduler) sweepTask() {
	if _, err := s.Sweep(s.Ctx); err != nil {
		logger.Error("auto-action sweep failed", "error", err)
	}
}

// Sweep enqueues one cycle per user with cart activity inside the lookback
// window and returns how many were enqueued.
func (s *Scheduler) Sweep(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("context error: %w", err)
	}

	since := s.now().Add(-s.Lookback)
	users, err := s.Users.RecentCartUsers(ctx, since)
	if err != nil {
		return 0, fmt.Errorf("list active carts: %w", err)
	}

	enqueued := 0
	for _, userID := range users {
		if _, err := s.Cycles.Enqueue(ctx, userID, domain.CycleSourceSweep); err != nil {
			logger.Warn("sweep enqueue failed", "user_id", userID, "error", err)
			continue
		}
		enqueued++
	}

	logger.Info("auto-action sweep done", "active_users", len(users), "enqueued", enqueued)
	return enqueued, nil
}
