// Package latescan runs the daily sweep that notifies customers holding
// overdue loans.
package latescan

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"lendingapi/internal/loan"
	"lendingapi/internal/platform/clock"
)

// ErrSweepInProgress is returned when a sweep is requested while another runs.
var ErrSweepInProgress = errors.New("late-loan sweep already in progress")

const (
	DefaultSubject = "Late loan"
	DefaultMessage = "You have a late loan. Please return the book as soon as possible."
)

// LateLoanFinder lists the loans that are currently late.
type LateLoanFinder interface {
	FindLate(ctx context.Context) ([]loan.Loan, error)
}

// Notifier sends one message to many recipients.
type Notifier interface {
	SendBatch(ctx context.Context, subject, message string, recipients []string) error
}

type Config struct {
	At      TimeOfDay
	Subject string
	Message string
	// NotifyEmpty dispatches even when no loan is late.
	NotifyEmpty bool
}

// Result summarises one sweep.
type Result struct {
	RunID      int64 `json:"run_id,omitempty"`
	LateLoans  int   `json:"late_loans"`
	Recipients int   `json:"recipients"`
	Dispatched bool  `json:"dispatched"`
}

type Scanner struct {
	finder   LateLoanFinder
	notifier Notifier
	runs     RunRepository
	cfg      Config
	clock    clock.Clock
	logger   *slog.Logger

	running sync.Mutex
}

// New creates a scanner. runs may be nil, in which case no history is kept.
func New(finder LateLoanFinder, notifier Notifier, runs RunRepository, cfg Config, clk clock.Clock, logger *slog.Logger) *Scanner {
	if cfg.Subject == "" {
		cfg.Subject = DefaultSubject
	}
	if cfg.Message == "" {
		cfg.Message = DefaultMessage
	}
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{
		finder:   finder,
		notifier: notifier,
		runs:     runs,
		cfg:      cfg,
		clock:    clk,
		logger:   logger.With("component", "latescan"),
	}
}

// RunOnce performs one sweep. It never overlaps with itself: a call made
// while another sweep is running fails with ErrSweepInProgress.
func (s *Scanner) RunOnce(ctx context.Context, trigger Trigger) (Result, error) {
	if !s.running.TryLock() {
		return Result{}, ErrSweepInProgress
	}
	defer s.running.Unlock()

	run := s.startRun(ctx, trigger)
	res, err := s.sweepLate(ctx)
	s.finishRun(ctx, run, res, err)
	if run != nil {
		res.RunID = run.ID
	}
	return res, err
}

func (s *Scanner) sweepLate(ctx context.Context) (Result, error) {
	loans, err := s.finder.FindLate(ctx)
	if err != nil {
		return Result{}, err
	}

	recipients := Recipients(loans)
	res := Result{LateLoans: len(loans), Recipients: len(recipients)}
	if len(recipients) == 0 && !s.cfg.NotifyEmpty {
		s.logger.Info("no late loans")
		return res, nil
	}

	if err := s.notifier.SendBatch(ctx, s.cfg.Subject, s.cfg.Message, recipients); err != nil {
		return res, err
	}
	res.Dispatched = true
	return res, nil
}

// History failures are logged and never fail the sweep itself.
func (s *Scanner) startRun(ctx context.Context, trigger Trigger) *Run {
	if s.runs == nil {
		return nil
	}
	run := &Run{Trigger: trigger, Status: StatusRunning, StartedAt: s.clock.Now()}
	if err := s.runs.CreateRun(ctx, run); err != nil {
		s.logger.Warn("cannot record sweep start", "error", err)
		return nil
	}
	return run
}

func (s *Scanner) finishRun(ctx context.Context, run *Run, res Result, err error) {
	if run == nil {
		return
	}
	now := s.clock.Now()
	run.FinishedAt = &now
	run.LateLoans = res.LateLoans
	run.Recipients = res.Recipients
	run.Dispatched = res.Dispatched
	run.Status = StatusCompleted
	if err != nil {
		run.Status = StatusFailed
		run.Error = err.Error()
	}
	if updateErr := s.runs.UpdateRun(ctx, run); updateErr != nil {
		s.logger.Warn("cannot record sweep result", "run_id", run.ID, "error", updateErr)
	}
}

// History returns the most recent sweeps, newest first.
func (s *Scanner) History(ctx context.Context, limit int) ([]Run, error) {
	if s.runs == nil {
		return []Run{}, nil
	}
	return s.runs.ListRuns(ctx, limit)
}

// Recipients projects loans to their customers' addresses. Unlike a plain
// projection it drops repeated addresses, keeping the first occurrence, so a
// customer with several late loans is addressed once.
func Recipients(loans []loan.Loan) []string {
	seen := make(map[string]struct{}, len(loans))
	out := make([]string, 0, len(loans))
	for _, l := range loans {
		if _, ok := seen[l.Email]; ok {
			continue
		}
		seen[l.Email] = struct{}{}
		out = append(out, l.Email)
	}
	return out
}

// Start sweeps once a day at the configured time until ctx is cancelled.
// A sweep that has started is allowed to finish.
func (s *Scanner) Start(ctx context.Context) {
	for {
		next := NextRun(s.clock.Now(), s.cfg.At)
		s.logger.Info("next late-loan sweep scheduled", "at", next.Format(time.RFC3339))

		timer := time.NewTimer(next.Sub(s.clock.Now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("late-loan scanner stopped")
			return
		case <-timer.C:
		}

		s.sweep(context.WithoutCancel(ctx))
	}
}

func (s *Scanner) sweep(ctx context.Context) {
	start := time.Now()
	res, err := s.RunOnce(ctx, TriggerSchedule)
	if err != nil {
		s.logger.Error("late-loan sweep failed",
			"run_id", res.RunID,
			"late_loans", res.LateLoans,
			"error", err,
		)
		return
	}
	s.logger.Info("late-loan sweep done",
		"run_id", res.RunID,
		"late_loans", res.LateLoans,
		"recipients", res.Recipients,
		"dispatched", res.Dispatched,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
