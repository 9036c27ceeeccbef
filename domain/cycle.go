package domain

import (
	"time"

	"github.com/google/uuid"
)

type CycleOutcome string

const (
	CycleExecuted CycleOutcome = "executed"
	CycleDenied   CycleOutcome = "denied"
	CycleNoSignal CycleOutcome = "no_signal"
	CycleNoAction CycleOutcome = "no_action"
	CycleLocked   CycleOutcome = "locked"
)

type CycleSource string

const (
	CycleSourceAPI   CycleSource = "api"
	CycleSourceSweep CycleSource = "sweep"
)

// CycleJob asks a worker to run one decision cycle for a user.
type CycleJob struct {
	ID         string      `json:"id"`
	UserID     uint        `json:"user_id"`
	Source     CycleSource `json:"source"`
	EnqueuedAt time.Time   `json:"enqueued_at"`
}

// CycleSession records what one decision cycle saw and did. Sessions live in
// the TTL cache only.
type CycleSession struct {
	ID             uuid.UUID          `json:"id"`
	UserID         uint               `json:"user_id"`
	Outcome        CycleOutcome       `json:"outcome"`
	Snapshot       CartSnapshot       `json:"snapshot"`
	Signals        []CartSignal       `json:"signals"`
	SelectedSignal *SignalType        `json:"selected_signal,omitempty"`
	Request        *AutoActionRequest `json:"request,omitempty"`
	Result         *AutoActionResult  `json:"result,omitempty"`
	StartedAt      time.Time          `json:"started_at"`
	FinishedAt     time.Time          `json:"finished_at"`
}
