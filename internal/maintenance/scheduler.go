package maintenance

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

type Job interface {
	Run(ctx context.Context) (*Report, error)
}

// Scheduler runs a job on a cron spec. Overlapping runs are skipped.
type Scheduler struct {
	cron   *cron.Cron
	job    Job
	spec   string
	logger *slog.Logger
	runs   chan *Report
}

func NewScheduler(spec string, job Job, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		job:    job,
		spec:   spec,
		logger: logger,
	}
}

// Reports delivers every finished run when non-nil; sends never block.
func (s *Scheduler) Reports(ch chan *Report) {
	s.runs = ch
}

func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		report, err := s.job.Run(ctx)
		if err != nil {
			s.logger.Error("scheduled job failed", "spec", s.spec, "error", err)
			return
		}
		if s.runs != nil {
			select {
			case s.runs <- report:
			default:
			}
		}
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", s.spec, err)
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "spec", s.spec)
	return nil
}

// Stop waits for a running job to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("scheduler stop timed out")
	}
}
