package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/hospital-reports/internal/domain/models"
	"github.com/mamadbah2/hospital-reports/internal/service/dispatch"
)

// Runner executes one pass over the due schedules.
type Runner interface {
	Run(ctx context.Context) (models.RunSummary, error)
}

// Scheduler triggers report runs from an in-process cron timer.
type Scheduler struct {
	cron     *cron.Cron
	runner   Runner
	spec     string
	timeout  time.Duration
	logger   *zap.Logger
	entryID  cron.EntryID
	hasEntry bool
}

// NewScheduler creates a new scheduler instance. Expressions use the standard
// five field cron syntax evaluated in loc.
func NewScheduler(runner Runner, spec string, loc *time.Location, timeout time.Duration, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}

	return &Scheduler{
		cron:    cron.New(cron.WithLocation(loc)),
		runner:  runner,
		spec:    spec,
		timeout: timeout,
		logger:  logger,
	}
}

// Start registers the run job and starts the timer. An empty expression
// leaves the timer disabled.
func (s *Scheduler) Start() error {
	if s.spec == "" {
		s.logger.Info("in-process scheduler disabled")
		return nil
	}

	id, err := s.cron.AddFunc(s.spec, s.runOnce)
	if err != nil {
		return fmt.Errorf("schedule report run %q: %w", s.spec, err)
	}
	s.entryID, s.hasEntry = id, true

	s.cron.Start()
	next, _ := s.Next()
	s.logger.Info("scheduler started", zap.String("schedule", s.spec), zap.Time("next_run", next))
	return nil
}

// Stop stops the timer and waits for a running job to return.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

// Next reports the next planned run, if the timer is enabled.
func (s *Scheduler) Next() (time.Time, bool) {
	if !s.hasEntry {
		return time.Time{}, false
	}
	return s.cron.Entry(s.entryID).Next, true
}

func (s *Scheduler) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	summary, err := s.runner.Run(ctx)
	switch {
	case errors.Is(err, dispatch.ErrRunInProgress):
		s.logger.Warn("skipping scheduled run, previous run still active")
	case err != nil:
		s.logger.Error("scheduled report run failed", zap.Error(err))
	default:
		s.logger.Info("scheduled report run completed", zap.String("run_id", summary.RunID), zap.Int("processed", summary.Processed))
	}
}
