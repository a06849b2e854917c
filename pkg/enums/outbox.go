package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type column of outbox_events.
type OutboxAggregateType string

const (
	AggregateJob          OutboxAggregateType = "job"
	AggregateLicensePlate OutboxAggregateType = "license_plate"
	AggregateTimeEntry    OutboxAggregateType = "time_entry"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateJob,
	AggregateLicensePlate,
	AggregateTimeEntry,
}

// IsValid reports whether the value matches a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// OutboxAggregateTypes lists every aggregate that emits outbox events.
func OutboxAggregateTypes() []OutboxAggregateType {
	out := make([]OutboxAggregateType, len(validAggregateTypes))
	copy(out, validAggregateTypes)
	return out
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type column of outbox_events.
type OutboxEventType string

const (
	EventJobStatusChanged       OutboxEventType = "job_status_changed"
	EventJobRescheduleRequested OutboxEventType = "job_reschedule_requested"
	EventJobRescheduleDecided   OutboxEventType = "job_reschedule_decided"
	EventPlateCreated           OutboxEventType = "plate_created"
	EventPlateAssigned          OutboxEventType = "plate_assigned"
	EventPlateReleased          OutboxEventType = "plate_released"
	EventClockedIn              OutboxEventType = "clocked_in"
	EventClockedOut             OutboxEventType = "clocked_out"
)

var validOutboxEventTypes = []OutboxEventType{
	EventJobStatusChanged,
	EventJobRescheduleRequested,
	EventJobRescheduleDecided,
	EventPlateCreated,
	EventPlateAssigned,
	EventPlateReleased,
	EventClockedIn,
	EventClockedOut,
}

// IsValid reports whether the value matches a known event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
