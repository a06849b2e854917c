package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestPublisherMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPublisherMetrics(reg)
	m.ObserveBatch(250*time.Millisecond, nil)
	m.ObserveBatch(10*time.Millisecond, errors.New("boom"))
	m.IncPublished("jobs")
	m.IncPublished("jobs")
	m.IncFailed("vehicles")
	m.IncDeadLettered("")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "outbox_events_published_total", "topic", "jobs"); err != nil {
		t.Fatalf("fetch published: %v", err)
	} else if got != 2 {
		t.Fatalf("expected published=2, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "outbox_events_failed_total", "topic", "vehicles"); err != nil || got != 1 {
		t.Fatalf("expected failed=1, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "outbox_events_dead_lettered_total", "reason", "unknown"); err != nil || got != 1 {
		t.Fatalf("expected dead lettered under unknown, got %f (%v)", got, err)
	}
	if got, err := fetchHistogramSum(mfs, "outbox_batch_duration_seconds", "result", "ok"); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}
}

func TestWorkflowMetricsCountsTransitions(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWorkflowMetrics(reg)
	m.IncTransition("Scheduled", "Picking Up")
	m.IncReschedule("approve")
	m.IncVehicle("assign")
	m.IncClock("in")
	m.IncConflict("jobs")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "job_status_transitions_total", "to", "Picking Up"); err != nil || got != 1 {
		t.Fatalf("expected one transition, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "write_conflicts_total", "collection", "jobs"); err != nil || got != 1 {
		t.Fatalf("expected one conflict, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "clock_actions_total", "action", "in"); err != nil || got != 1 {
		t.Fatalf("expected one clock-in, got %f (%v)", got, err)
	}
}

func TestNilRecordersAreNoops(t *testing.T) {
	var p *PublisherMetrics
	p.IncPublished("jobs")
	p.ObserveBatch(time.Second, nil)
	w := NewWorkflowMetrics(nil)
	w.IncTransition("a", "b")
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
