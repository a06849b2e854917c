package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CronJobMetrics records metadata for scheduled jobs.
type CronJobMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
	stale    prometheus.Gauge
	pruned   *prometheus.CounterVec
}

// NewCronJobMetrics registers the cron job metrics on reg.
func NewCronJobMetrics(reg prometheus.Registerer) *CronJobMetrics {
	if reg == nil {
		return &CronJobMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cron_job_duration_seconds",
		Help:    "Duration of cron jobs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cron_job_success_total",
		Help: "Successful cron job executions.",
	}, []string{"job"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cron_job_failure_total",
		Help: "Failed cron job executions.",
	}, []string{"job"})
	stale := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "time_entries_stale_open",
		Help: "Open time entries older than the stale threshold at the last sweep.",
	})
	pruned := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_rows_pruned_total",
		Help: "Outbox and dead-letter rows removed by retention, by aggregate.",
	}, []string{"table", "aggregate"})
	reg.MustRegister(duration, success, failure, stale, pruned)
	return &CronJobMetrics{
		duration: duration,
		success:  success,
		failure:  failure,
		stale:    stale,
		pruned:   pruned,
	}
}

func (c *CronJobMetrics) ObserveDuration(job string, duration time.Duration) {
	if c == nil || c.duration == nil {
		return
	}
	c.duration.WithLabelValues(normalizeLabel(job)).Observe(duration.Seconds())
}

func (c *CronJobMetrics) IncSuccess(job string) {
	if c == nil || c.success == nil {
		return
	}
	c.success.WithLabelValues(normalizeLabel(job)).Inc()
}

func (c *CronJobMetrics) IncFailure(job string) {
	if c == nil || c.failure == nil {
		return
	}
	c.failure.WithLabelValues(normalizeLabel(job)).Inc()
}

// SetStaleEntries records how many forgotten clock-ins the last sweep saw.
func (c *CronJobMetrics) SetStaleEntries(n int) {
	if c == nil || c.stale == nil {
		return
	}
	c.stale.Set(float64(n))
}

func (c *CronJobMetrics) AddPruned(table, aggregate string, rows int64) {
	if c == nil || c.pruned == nil || rows <= 0 {
		return
	}
	c.pruned.WithLabelValues(normalizeLabel(table), normalizeLabel(aggregate)).Add(float64(rows))
}
