// Package scheduler runs due sources on a cron schedule.
package scheduler

import (
	"context"

	"github.com/robfig/cron/v3"

	"github.com/jonesrussell/goharvest/internal/logger"
	"github.com/jonesrussell/goharvest/internal/orchestrator"
)

// triggeredBySchedule marks executions started by the scheduler.
const triggeredBySchedule = "schedule"

// Scheduler wraps a cron runner around the orchestrator's due-source sweep.
// Sweeps do not overlap: a tick that fires while the previous sweep is still
// running is skipped.
type Scheduler struct {
	cron  *cron.Cron
	orch  *orchestrator.Orchestrator
	log   logger.Logger
	spec  string
	runCh chan struct{}
}

// New creates a scheduler with the given cron spec (standard 5-field format).
func New(orch *orchestrator.Orchestrator, spec string, log logger.Logger) *Scheduler {
	return &Scheduler{
		cron:  cron.New(),
		orch:  orch,
		log:   log,
		spec:  spec,
		runCh: make(chan struct{}, 1),
	}
}

// Start registers the sweep job and starts the cron loop. The ctx bounds
// every sweep; cancelling it stops in-flight work at the next check point.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		select {
		case s.runCh <- struct{}{}:
		default:
			s.log.Warn("Skipping scheduled sweep, previous sweep still running")
			return
		}
		defer func() { <-s.runCh }()

		s.sweep(ctx)
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.log.Info("Scheduler started", logger.String("spec", s.spec))
	return nil
}

// Stop halts the cron loop and waits for a running job to finish.
func (s *Scheduler) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.log.Info("Scheduler stopped")
}

func (s *Scheduler) sweep(ctx context.Context) {
	results, err := s.orch.RunAllDue(ctx, triggeredBySchedule)
	if err != nil {
		s.log.Error("Scheduled sweep failed", logger.Error(err))
		return
	}
	s.log.Info("Scheduled sweep finished", logger.Int("executions", len(results)))
}
