package latescan

import (
	"context"
	"time"
)

// Trigger names what started a sweep.
type Trigger string

const (
	TriggerSchedule Trigger = "schedule"
	TriggerManual   Trigger = "manual"
)

const (
	StatusRunning   = "RUNNING"
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
)

// Run is the recorded outcome of one sweep.
type Run struct {
	ID         int64
	Trigger    Trigger
	Status     string
	StartedAt  time.Time
	FinishedAt *time.Time
	LateLoans  int
	Recipients int
	Dispatched bool
	Error      string
}

// RunRepository keeps the sweep history.
type RunRepository interface {
	CreateRun(ctx context.Context, run *Run) error
	UpdateRun(ctx context.Context, run *Run) error
	// ListRuns returns the most recent runs first.
	ListRuns(ctx context.Context, limit int) ([]Run, error)
}
