package schedule

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/hospital-reports/internal/domain/models"
	repo "github.com/mamadbah2/hospital-reports/internal/repository/mongodb"
)

// RunHour is the local hour every computed next run lands on.
const RunHour = 8

// NextRun returns the next 08:00 occurrence for a frequency, evaluated in
// now's location. Unknown frequencies advance like daily schedules.
func NextRun(freq models.Frequency, now time.Time) time.Time {
	y, m, d := now.Date()
	loc := now.Location()

	switch freq {
	case models.FrequencyWeekly:
		return time.Date(y, m, d+7, RunHour, 0, 0, 0, loc)
	case models.FrequencyBiweekly:
		return time.Date(y, m, d+14, RunHour, 0, 0, 0, loc)
	case models.FrequencyMonthly:
		return time.Date(y, m+1, 1, RunHour, 0, 0, 0, loc)
	case models.FrequencyQuarterly:
		return time.Date(y, m+3, 1, RunHour, 0, 0, 0, loc)
	default:
		return time.Date(y, m, d+1, RunHour, 0, 0, 0, loc)
	}
}

// Resolver selects the schedules due at a given instant.
type Resolver struct {
	store  repo.ScheduleStore
	logger *zap.Logger
}

// NewResolver wraps a schedule store.
func NewResolver(store repo.ScheduleStore, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{store: store, logger: logger}
}

// DueSet returns every schedule whose next run is at or before now, oldest
// first. The result is a snapshot; nothing is locked.
func (r *Resolver) DueSet(ctx context.Context, now time.Time) ([]models.ScheduledReport, error) {
	due, err := r.store.DueSchedules(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("load due schedules: %w", err)
	}

	r.logger.Debug("resolved due schedules", zap.Int("count", len(due)), zap.Time("now", now))
	return due, nil
}

// Advance records a successful run at now and moves the schedule forward.
func (r *Resolver) Advance(ctx context.Context, s models.ScheduledReport, now time.Time) (time.Time, error) {
	next := NextRun(s.Frequency, now)
	if err := r.store.MarkRun(ctx, s.ID, now, next); err != nil {
		return time.Time{}, fmt.Errorf("advance schedule %s: %w", s.ID, err)
	}
	return next, nil
}
