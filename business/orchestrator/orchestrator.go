package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"smartCart/domain"
	"smartCart/pkg/cache"
	"smartCart/pkg/logger"
	"smartCart/pkg/metrics"
	"smartCart/pkg/trace"

	"github.com/google/uuid"
)

type SignalSource interface {
	Snapshot(ctx context.Context, userID uint) (domain.CartSnapshot, error)
	AnalyzeCart(ctx context.Context, userID uint) ([]domain.CartSignal, error)
}

type StrategySource interface {
	GetStrategicRecommendations(ctx context.Context, userID uint, snap domain.CartSnapshot) ([]domain.StrategyResult, error)
}

type RecommendationSource interface {
	GetSmartRecommendations(ctx context.Context, userID uint, limit int) ([]domain.Recommendation, error)
}

type ActionExecutor interface {
	ExecuteAutoAction(ctx context.Context, req domain.AutoActionRequest) (domain.AutoActionResult, error)
}

// Locker grants exclusive sections keyed by name. Acquire returns
// domain.ErrLockNotHeld when someone else holds the key.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (string, error)
	Release(ctx context.Context, key, token string) error
}

type JobQueue interface {
	Push(ctx context.Context, job domain.CycleJob) error
	Pop(ctx context.Context) (domain.CycleJob, error)
}

type Orchestrator struct {
	signals  SignalSource
	strategy StrategySource
	recos    RecommendationSource
	executor ActionExecutor
	sessions cache.Store
	queue    JobQueue
	locker   Locker
	cfg      Config
	now      func() time.Time
}

type Deps struct {
	Signals         SignalSource
	Strategies      StrategySource
	Recommendations RecommendationSource
	Executor        ActionExecutor
	Sessions        cache.Store
	Queue           JobQueue
	// Locker is optional; without it concurrent cycles for one user may each act once.
	Locker Locker
}

func New(deps Deps, cfg Config) *Orchestrator {
	return &Orchestrator{
		signals:  deps.Signals,
		strategy: deps.Strategies,
		recos:    deps.Recommendations,
		executor: deps.Executor,
		sessions: deps.Sessions,
		queue:    deps.Queue,
		locker:   deps.Locker,
		cfg:      cfg,
		now:      time.Now,
	}
}

func sessionKey(userID uint) string {
	return fmt.Sprintf("session:cycle:%d", userID)
}

func cycleLockKey(userID uint) string {
	return fmt.Sprintf("lock:cycle:%d", userID)
}

// RunCycle evaluates the user's cart and applies at most one auto action.
func (o *Orchestrator) RunCycle(ctx context.Context, userID uint) (domain.CycleSession, error) {
	if err := ctx.Err(); err != nil {
		return domain.CycleSession{}, fmt.Errorf("context error: %w", err)
	}

	session := domain.CycleSession{
		ID:        uuid.New(),
		UserID:    userID,
		StartedAt: o.now(),
	}

	if o.locker != nil {
		token, err := o.locker.Acquire(ctx, cycleLockKey(userID), o.cfg.LockTTL)
		if err != nil {
			if errors.Is(err, domain.ErrLockNotHeld) {
				session.Outcome = domain.CycleLocked
				session.FinishedAt = o.now()
				metrics.DecisionCycles.WithLabelValues(string(domain.CycleLocked)).Inc()
				logger.Info("decision cycle skipped, another cycle in flight", "user_id", userID)
				return session, nil
			}
			metrics.DecisionCycles.WithLabelValues("error").Inc()
			return session, fmt.Errorf("acquire cycle lock: %w", err)
		}
		defer func() {
			// release must run even when the cycle ctx is already canceled
			if err := o.locker.Release(context.WithoutCancel(ctx), cycleLockKey(userID), token); err != nil {
				logger.Warn("release cycle lock failed", "user_id", userID, "error", err)
			}
		}()
	}

	if err := o.run(ctx, &session); err != nil {
		metrics.DecisionCycles.WithLabelValues("error").Inc()
		logger.Error("decision cycle failed",
			"trace_id", trace.TraceIDFromContext(ctx),
			"user_id", userID,
			"error", err,
		)
		return session, err
	}

	session.FinishedAt = o.now()
	metrics.DecisionCycles.WithLabelValues(string(session.Outcome)).Inc()
	o.saveSession(ctx, session)

	logger.Info("decision cycle finished",
		"trace_id", trace.TraceIDFromContext(ctx),
		"user_id", userID,
		"session_id", session.ID,
		"outcome", session.Outcome,
		"signals", len(session.Signals),
	)
	return session, nil
}

func (o *Orchestrator) run(ctx context.Context, session *domain.CycleSession) error {
	snap, err := o.signals.Snapshot(ctx, session.UserID)
	if err != nil {
		return fmt.Errorf("snapshot cart: %w", err)
	}
	session.Snapshot = snap

	signals, err := o.signals.AnalyzeCart(ctx, session.UserID)
	if err != nil {
		return fmt.Errorf("analyze cart: %w", err)
	}
	session.Signals = signals
	if len(signals) == 0 {
		session.Outcome = domain.CycleNoSignal
		return nil
	}

	p := &planner{o: o, userID: session.UserID, snap: snap}
	for _, sig := range RankSignals(signals) {
		req, ok, err := p.plan(ctx, sig)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}

		selected := sig.Type
		session.SelectedSignal = &selected
		session.Request = &req

		res, err := o.executor.ExecuteAutoAction(ctx, req)
		if err != nil {
			return fmt.Errorf("execute %s: %w", req.ActionType, err)
		}
		session.Result = &res
		session.Outcome = domain.CycleDenied
		if res.Success {
			session.Outcome = domain.CycleExecuted
		}
		return nil
	}

	session.Outcome = domain.CycleNoAction
	return nil
}

// RankSignals orders signals by severity, then by signal type priority.
// The input is not modified.
func RankSignals(signals []domain.CartSignal) []domain.CartSignal {
	out := make([]domain.CartSignal, len(signals))
	copy(out, signals)
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := out[i].Severity.Rank(), out[j].Severity.Rank()
		if ri != rj {
			return ri > rj
		}
		return out[i].Type.Priority() < out[j].Type.Priority()
	})
	return out
}

func (o *Orchestrator) saveSession(ctx context.Context, session domain.CycleSession) {
	if o.sessions == nil {
		return
	}
	if err := cache.SetJSON(ctx, o.sessions, sessionKey(session.UserID), session, o.cfg.SessionTTL); err != nil {
		logger.Warn("save cycle session failed", "user_id", session.UserID, "error", err)
	}
}

// LastCycle returns the most recent cycle session still held by the cache.
func (o *Orchestrator) LastCycle(ctx context.Context, userID uint) (domain.CycleSession, error) {
	if err := ctx.Err(); err != nil {
		return domain.CycleSession{}, fmt.Errorf("context error: %w", err)
	}
	if o.sessions == nil {
		return domain.CycleSession{}, domain.ErrNotFound
	}
	session, ok, err := cache.GetJSON[domain.CycleSession](ctx, o.sessions, sessionKey(userID))
	if err != nil {
		return domain.CycleSession{}, err
	}
	if !ok {
		return domain.CycleSession{}, domain.ErrNotFound
	}
	return session, nil
}

// Enqueue schedules an asynchronous cycle for the user.
func (o *Orchestrator) Enqueue(ctx context.Context, userID uint, source domain.CycleSource) (domain.CycleJob, error) {
	if err := ctx.Err(); err != nil {
		return domain.CycleJob{}, fmt.Errorf("context error: %w", err)
	}
	if o.queue == nil {
		return domain.CycleJob{}, errors.New("cycle queue not configured")
	}
	job := domain.CycleJob{
		ID:         uuid.NewString(),
		UserID:     userID,
		Source:     source,
		EnqueuedAt: o.now(),
	}
	if err := o.queue.Push(ctx, job); err != nil {
		return domain.CycleJob{}, fmt.Errorf("enqueue cycle: %w", err)
	}
	return job, nil
}
