package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// WorkflowMetrics counts domain writes made through the API.
type WorkflowMetrics struct {
	transitions *prometheus.CounterVec
	reschedules *prometheus.CounterVec
	vehicles    *prometheus.CounterVec
	clock       *prometheus.CounterVec
	conflicts   *prometheus.CounterVec
}

// NewWorkflowMetrics registers the workflow counters on reg. A nil registerer
// yields a no-op recorder.
func NewWorkflowMetrics(reg prometheus.Registerer) *WorkflowMetrics {
	if reg == nil {
		return &WorkflowMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "job_status_transitions_total",
		Help: "Job status changes by source and target status.",
	}, []string{"from", "to"})
	reschedules := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "job_reschedule_actions_total",
		Help: "Reschedule submissions and decisions.",
	}, []string{"action"})
	vehicles := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vehicle_assignment_actions_total",
		Help: "License plate assignments and releases.",
	}, []string{"action"})
	clock := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "clock_actions_total",
		Help: "Clock-ins and clock-outs.",
	}, []string{"action"})
	conflicts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "write_conflicts_total",
		Help: "Writes rejected because the document changed underneath them.",
	}, []string{"collection"})
	reg.MustRegister(transitions, reschedules, vehicles, clock, conflicts)
	return &WorkflowMetrics{
		transitions: transitions,
		reschedules: reschedules,
		vehicles:    vehicles,
		clock:       clock,
		conflicts:   conflicts,
	}
}

func (m *WorkflowMetrics) IncTransition(from, to string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to)).Inc()
}

func (m *WorkflowMetrics) IncReschedule(action string) {
	if m == nil || m.reschedules == nil {
		return
	}
	m.reschedules.WithLabelValues(normalizeLabel(action)).Inc()
}

func (m *WorkflowMetrics) IncVehicle(action string) {
	if m == nil || m.vehicles == nil {
		return
	}
	m.vehicles.WithLabelValues(normalizeLabel(action)).Inc()
}

func (m *WorkflowMetrics) IncClock(action string) {
	if m == nil || m.clock == nil {
		return
	}
	m.clock.WithLabelValues(normalizeLabel(action)).Inc()
}

func (m *WorkflowMetrics) IncConflict(collection string) {
	if m == nil || m.conflicts == nil {
		return
	}
	m.conflicts.WithLabelValues(normalizeLabel(collection)).Inc()
}
