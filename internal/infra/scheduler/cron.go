package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"staybook/internal/app/commands"
	remindersapp "staybook/internal/app/handlers/reminders"
)

// Job is a unit of scheduled work. Errors are logged; the schedule keeps running.
type Job func(ctx context.Context) error

// Scheduler runs jobs on cron expressions evaluated in the business time zone.
type Scheduler struct {
	cron    *cron.Cron
	logger  *slog.Logger
	timeout time.Duration
}

func New(loc *time.Location, logger *slog.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger)),
	)
	return &Scheduler{cron: c, logger: logger, timeout: 10 * time.Minute}
}

// Add registers job under name. spec is a standard five field expression.
func (s *Scheduler) Add(name, spec string, job Job) error {
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		start := time.Now()
		if err := job(ctx); err != nil {
			s.logger.Error("scheduled job failed", "job", name, "error", err)
			return
		}
		s.logger.Info("scheduled job finished", "job", name, "duration", time.Since(start))
	})
	if err != nil {
		return fmt.Errorf("scheduler: add %s (%q): %w", name, spec, err)
	}
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop prevents new runs and waits for running jobs until ctx ends.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

// ReminderSweep dispatches the daily reminder sweep for today.
func ReminderSweep(bus commands.Bus, logger *slog.Logger) Job {
	return func(ctx context.Context) error {
		res, err := commands.Dispatch[remindersapp.RunSweepCommand, *remindersapp.SweepResult](ctx, bus, remindersapp.RunSweepCommand{})
		if err != nil {
			return err
		}
		if logger != nil {
			logger.Info("reminder sweep", "day", res.Day, "skipped", res.Skipped, "reminders", res.Reminders)
		}
		return nil
	}
}
