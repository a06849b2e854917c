package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/qualitysquare/fieldops-backend/pkg/enums"
	"github.com/qualitysquare/fieldops-backend/pkg/logger"
	"github.com/qualitysquare/fieldops-backend/pkg/metrics"
)

const (
	defaultEventRetention = 30 * 24 * time.Hour
	defaultDLQRetention   = 90 * 24 * time.Hour
	defaultGiveUpAttempts = 10

	tableOutboxEvents = "outbox_events"
	tableOutboxDLQ    = "outbox_dlq"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEventPruner interface {
	DeletePublishedBefore(ctx context.Context, tx *gorm.DB, aggregate enums.OutboxAggregateType, cutoff time.Time, minAttemptCount int) (int64, error)
}

type deadLetterPruner interface {
	DeleteFailedBefore(ctx context.Context, tx *gorm.DB, aggregate enums.OutboxAggregateType, cutoff time.Time) (int64, error)
}

type OutboxRetentionJobParams struct {
	Logger         *logger.Logger
	DB             txRunner
	Events         outboxEventPruner
	DeadLetters    deadLetterPruner
	Metrics        *metrics.CronJobMetrics
	EventRetention time.Duration
	DLQRetention   time.Duration
	GiveUpAttempts int
}

// NewOutboxRetentionJob prunes job, plate and clock events the publisher is
// done with, and dead letters old enough that nobody will replay them.
// DeadLetters is optional.
func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Events == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	job := &outboxRetentionJob{
		logg:           params.Logger,
		db:             params.DB,
		events:         params.Events,
		deadLetters:    params.DeadLetters,
		metrics:        params.Metrics,
		eventRetention: params.EventRetention,
		dlqRetention:   params.DLQRetention,
		giveUpAttempts: params.GiveUpAttempts,
		aggregates:     enums.OutboxAggregateTypes(),
		now:            time.Now,
	}
	if job.eventRetention <= 0 {
		job.eventRetention = defaultEventRetention
	}
	if job.dlqRetention <= 0 {
		job.dlqRetention = defaultDLQRetention
	}
	if job.giveUpAttempts <= 0 {
		job.giveUpAttempts = defaultGiveUpAttempts
	}
	return job, nil
}

type outboxRetentionJob struct {
	logg           *logger.Logger
	db             txRunner
	events         outboxEventPruner
	deadLetters    deadLetterPruner
	metrics        *metrics.CronJobMetrics
	eventRetention time.Duration
	dlqRetention   time.Duration
	giveUpAttempts int
	aggregates     []enums.OutboxAggregateType
	now            func() time.Time
}

// pruneResult is what one aggregate lost in a sweep.
type pruneResult struct {
	events      int64
	deadLetters int64
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

// Run prunes each aggregate in its own transaction so a failure on one leaves
// the others' progress in place.
func (j *outboxRetentionJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	eventCutoff := now.Add(-j.eventRetention)
	dlqCutoff := now.Add(-j.dlqRetention)

	var total int64
	for _, aggregate := range j.aggregates {
		result, err := j.prune(ctx, aggregate, eventCutoff, dlqCutoff)
		if err != nil {
			return fmt.Errorf("outbox retention for %s: %w", aggregate, err)
		}
		j.metrics.AddPruned(tableOutboxEvents, string(aggregate), result.events)
		j.metrics.AddPruned(tableOutboxDLQ, string(aggregate), result.deadLetters)
		total += result.events + result.deadLetters

		if result.events+result.deadLetters == 0 {
			continue
		}
		j.logg.Info(j.logg.WithFields(ctx, map[string]any{
			"aggregate":    string(aggregate),
			"events":       result.events,
			"dead_letters": result.deadLetters,
		}), "outbox.retention_pruned")
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"event_cutoff": eventCutoff,
		"dlq_cutoff":   dlqCutoff,
		"rows_deleted": total,
	}), "outbox.retention_completed")
	return nil
}

func (j *outboxRetentionJob) prune(ctx context.Context, aggregate enums.OutboxAggregateType, eventCutoff, dlqCutoff time.Time) (pruneResult, error) {
	var result pruneResult
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := j.events.DeletePublishedBefore(ctx, tx, aggregate, eventCutoff, j.giveUpAttempts)
		if err != nil {
			return err
		}
		result.events = rows
		if j.deadLetters == nil {
			return nil
		}
		rows, err = j.deadLetters.DeleteFailedBefore(ctx, tx, aggregate, dlqCutoff)
		if err != nil {
			return err
		}
		result.deadLetters = rows
		return nil
	})
	return result, err
}
