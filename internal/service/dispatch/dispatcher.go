package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mamadbah2/hospital-reports/internal/domain/models"
	"github.com/mamadbah2/hospital-reports/internal/metrics"
	repo "github.com/mamadbah2/hospital-reports/internal/repository/mongodb"
	"github.com/mamadbah2/hospital-reports/internal/service/schedule"
	"github.com/mamadbah2/hospital-reports/pkg/clients/mailer"
)

// ErrRunInProgress is returned when a run is requested while another one is
// still going in this process.
var ErrRunInProgress = errors.New("a report run is already in progress")

// DeliveryError wraps a mail gateway failure for one schedule.
type DeliveryError struct {
	ScheduleID string
	Err        error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver schedule %s: %v", e.ScheduleID, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Aggregator builds a report model for a category.
type Aggregator interface {
	Generate(ctx context.Context, category models.Category, filters models.ReportFilters) (models.ReportModel, error)
}

// Renderers encodes a report model in the requested format.
type Renderers interface {
	Render(format models.Format, model models.ReportModel, filters models.ReportFilters) (models.RenderedReport, error)
}

// Dependencies groups the collaborators of a Dispatcher.
type Dependencies struct {
	Schedules  repo.ScheduleStore
	Aggregator Aggregator
	Renderers  Renderers
	Mail       mailer.Gateway
	Metrics    *metrics.Recorder
	// Location is where run timestamps and next runs are computed. Nil means UTC.
	Location *time.Location
}

// Dispatcher runs every due schedule once, sequentially.
type Dispatcher struct {
	resolver   *schedule.Resolver
	aggregator Aggregator
	renderers  Renderers
	mail       mailer.Gateway
	metrics    *metrics.Recorder
	logger     *zap.Logger
	now        func() time.Time
	newRunID   func() string

	mu sync.Mutex
}

// NewDispatcher wires a dispatcher.
func NewDispatcher(deps Dependencies, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}

	return &Dispatcher{
		resolver:   schedule.NewResolver(deps.Schedules, logger.Named("schedule")),
		aggregator: deps.Aggregator,
		renderers:  deps.Renderers,
		mail:       deps.Mail,
		metrics:    deps.Metrics,
		logger:     logger,
		now:        func() time.Time { return time.Now().In(loc) },
		newRunID:   uuid.NewString,
	}
}

// Run processes the due set. Per schedule failures are reported in the
// summary; only a failure to load the due set, or an overlapping run, returns
// an error.
func (d *Dispatcher) Run(ctx context.Context) (models.RunSummary, error) {
	if !d.mu.TryLock() {
		return models.RunSummary{}, ErrRunInProgress
	}
	defer d.mu.Unlock()

	started := d.now()
	summary := models.RunSummary{RunID: d.newRunID(), StartedAt: started}
	logger := d.logger.With(zap.String("run_id", summary.RunID))

	due, err := d.resolver.DueSet(ctx, started)
	if err != nil {
		d.metrics.RunFinished(metrics.OutcomeFailure, time.Since(started).Seconds())
		logger.Error("failed to load due schedules", zap.Error(err))
		return models.RunSummary{}, err
	}

	logger.Info("report run started", zap.Int("due", len(due)))

	summary.Results = make([]models.DispatchResult, 0, len(due))
	failed := 0
	for _, s := range due {
		result := d.process(ctx, logger, s)
		if !result.Success {
			failed++
		}
		d.metrics.ItemProcessed(result.Format, result.Success)
		summary.Results = append(summary.Results, result)
	}
	summary.Processed = len(summary.Results)

	d.metrics.RunFinished(metrics.OutcomeSuccess, time.Since(started).Seconds())
	logger.Info("report run finished", zap.Int("processed", summary.Processed), zap.Int("failed", failed))
	return summary, nil
}

func (d *Dispatcher) process(ctx context.Context, logger *zap.Logger, s models.ScheduledReport) models.DispatchResult {
	format := models.ParseFormat(s.Format)
	result := models.DispatchResult{ID: s.ID, Name: s.Name, Format: string(format)}
	logger = logger.With(zap.String("schedule_id", s.ID), zap.String("format", result.Format))

	if err := d.deliver(ctx, logger, s, format); err != nil {
		result.Error = err.Error()
		logger.Error("scheduled report failed", zap.Error(err))
		return result
	}

	result.Success = true
	logger.Info("scheduled report sent", zap.Int("recipients", len(s.Recipients)))
	return result
}

func (d *Dispatcher) deliver(ctx context.Context, logger *zap.Logger, s models.ScheduledReport, format models.Format) error {
	filters, err := models.ParseFilters(s.Filters)
	if err != nil {
		logger.Warn("unreadable filters, using defaults", zap.Error(err))
	}

	report, err := d.aggregator.Generate(ctx, s.Category(), filters)
	if err != nil {
		return fmt.Errorf("generate report: %w", err)
	}

	rendered, err := d.renderers.Render(format, report, filters)
	if err != nil {
		return fmt.Errorf("render %s: %w", format, err)
	}

	msg, err := composeMessage(s, report, rendered)
	if err != nil {
		return err
	}
	if err := d.mail.Send(ctx, msg); err != nil {
		return &DeliveryError{ScheduleID: s.ID, Err: err}
	}

	next, err := d.resolver.Advance(ctx, s, d.now())
	if err != nil {
		return err
	}
	logger.Debug("schedule advanced", zap.Time("next_run", next))
	return nil
}
