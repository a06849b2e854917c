package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/qualitysquare/fieldops-backend/internal/timeclock"
	"github.com/qualitysquare/fieldops-backend/pkg/logger"
	"github.com/qualitysquare/fieldops-backend/pkg/metrics"
)

const defaultStaleAfter = 16 * time.Hour

type activeEntries interface {
	ActiveEntries(ctx context.Context) ([]timeclock.ClockRecord, error)
}

type StaleClockJobParams struct {
	Logger     *logger.Logger
	Entries    activeEntries
	Metrics    *metrics.CronJobMetrics
	StaleAfter time.Duration
}

// NewStaleClockJob flags employees who have been clocked in longer than a
// shift could last. Entries are reported, never closed.
func NewStaleClockJob(params StaleClockJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Entries == nil {
		return nil, fmt.Errorf("time clock required")
	}
	staleAfter := params.StaleAfter
	if staleAfter <= 0 {
		staleAfter = defaultStaleAfter
	}
	return &staleClockJob{
		logg:       params.Logger,
		entries:    params.Entries,
		metrics:    params.Metrics,
		staleAfter: staleAfter,
		now:        time.Now,
	}, nil
}

type staleClockJob struct {
	logg       *logger.Logger
	entries    activeEntries
	metrics    *metrics.CronJobMetrics
	staleAfter time.Duration
	now        func() time.Time
}

func (j *staleClockJob) Name() string { return "stale-clock-ins" }

func (j *staleClockJob) Run(ctx context.Context) error {
	records, err := j.entries.ActiveEntries(ctx)
	if err != nil {
		return fmt.Errorf("stale clock-ins: %w", err)
	}
	cutoff := j.now().Add(-j.staleAfter)
	stale := 0
	for _, record := range records {
		if !record.ClockInTime.Before(cutoff) {
			continue
		}
		stale++
		entryCtx := j.logg.WithFields(j.logg.WithEmployeeID(ctx, record.EmployeeID), map[string]any{
			"entry_id":      record.ID,
			"employee_name": record.EmployeeName,
			"clock_in":      record.ClockInTime,
			"open_hours":    timeclock.HoursBetween(record.ClockInTime, j.now()).StringFixed(2),
		})
		j.logg.Warn(entryCtx, "timeclock.stale_entry")
	}
	j.metrics.SetStaleEntries(stale)
	return nil
}
