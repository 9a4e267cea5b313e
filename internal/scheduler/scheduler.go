// internal/scheduler/scheduler.go
package scheduler

import (
	"context"

	xerrors "rebill-service/internal/pkg/errors"
	"rebill-service/internal/service/billing"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Runner is the slice of the cycle processor the scheduler needs.
type Runner interface {
	Run(ctx context.Context) (*billing.RunSummary, error)
}

// Scheduler triggers billing cycle runs on a cron schedule.
type Scheduler struct {
	cron   *cron.Cron
	runner Runner
	logger *zap.Logger
}

func New(spec string, runner Runner, logger *zap.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:   cron.New(),
		runner: runner,
		logger: logger,
	}

	if _, err := s.cron.AddFunc(spec, s.runOnce); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) runOnce() {
	summary, err := s.runner.Run(context.Background())
	if err != nil {
		if xerrors.Is(err, xerrors.ErrRunInProgress) {
			s.logger.Info("scheduled billing run skipped, run already in progress")
			return
		}
		s.logger.Error("scheduled billing run failed", zap.Error(err))
		return
	}
	s.logger.Info("scheduled billing run completed",
		zap.String("run_id", summary.RunID),
		zap.Int("considered", summary.Considered))
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop waits for an in-flight scheduled run to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
