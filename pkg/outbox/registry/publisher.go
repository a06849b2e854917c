package registry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/qualitysquare/fieldops-backend/pkg/config"
	"github.com/qualitysquare/fieldops-backend/pkg/db/models"
	"github.com/qualitysquare/fieldops-backend/pkg/enums"
	"github.com/qualitysquare/fieldops-backend/pkg/outbox"
	"github.com/qualitysquare/fieldops-backend/pkg/outbox/payloads"
)

// EventDescriptor links an event type to its aggregate/topic/payload schema.
type EventDescriptor struct {
	EventType      enums.OutboxEventType
	AggregateType  enums.OutboxAggregateType
	Topic          string
	PayloadFactory func() interface{}
}

// ResolvedEvent is the result of decoding an outbox row.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    interface{}
}

// EventRegistry maps each supported event type to its descriptor.
type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

// NonRetryableError signals the dispatcher should stop retrying a row.
type NonRetryableError struct {
	Err error
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error {
	return e.Err
}

// NewEventRegistry builds the registry with the configured topic names.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	if cfg.JobsTopic == "" {
		return nil, fmt.Errorf("jobs topic is required")
	}
	if cfg.VehiclesTopic == "" {
		return nil, fmt.Errorf("vehicles topic is required")
	}
	if cfg.TimeclockTopic == "" {
		return nil, fmt.Errorf("timeclock topic is required")
	}

	reg := &EventRegistry{entries: make(map[enums.OutboxEventType]EventDescriptor)}

	for _, desc := range []EventDescriptor{
		{
			EventType:      enums.EventJobStatusChanged,
			AggregateType:  enums.AggregateJob,
			Topic:          cfg.JobsTopic,
			PayloadFactory: func() interface{} { return &payloads.JobStatusChangedEvent{} },
		},
		{
			EventType:      enums.EventJobRescheduleRequested,
			AggregateType:  enums.AggregateJob,
			Topic:          cfg.JobsTopic,
			PayloadFactory: func() interface{} { return &payloads.JobRescheduleRequestedEvent{} },
		},
		{
			EventType:      enums.EventJobRescheduleDecided,
			AggregateType:  enums.AggregateJob,
			Topic:          cfg.JobsTopic,
			PayloadFactory: func() interface{} { return &payloads.JobRescheduleDecidedEvent{} },
		},
		{
			EventType:      enums.EventPlateCreated,
			AggregateType:  enums.AggregateLicensePlate,
			Topic:          cfg.VehiclesTopic,
			PayloadFactory: func() interface{} { return &payloads.PlateCreatedEvent{} },
		},
		{
			EventType:      enums.EventPlateAssigned,
			AggregateType:  enums.AggregateLicensePlate,
			Topic:          cfg.VehiclesTopic,
			PayloadFactory: func() interface{} { return &payloads.PlateAssignedEvent{} },
		},
		{
			EventType:      enums.EventPlateReleased,
			AggregateType:  enums.AggregateLicensePlate,
			Topic:          cfg.VehiclesTopic,
			PayloadFactory: func() interface{} { return &payloads.PlateReleasedEvent{} },
		},
		{
			EventType:      enums.EventClockedIn,
			AggregateType:  enums.AggregateTimeEntry,
			Topic:          cfg.TimeclockTopic,
			PayloadFactory: func() interface{} { return &payloads.ClockEvent{} },
		},
		{
			EventType:      enums.EventClockedOut,
			AggregateType:  enums.AggregateTimeEntry,
			Topic:          cfg.TimeclockTopic,
			PayloadFactory: func() interface{} { return &payloads.ClockEvent{} },
		},
	} {
		reg.register(desc)
	}

	return reg, nil
}

func (r *EventRegistry) register(desc EventDescriptor) {
	if desc.PayloadFactory == nil {
		return
	}
	r.entries[desc.EventType] = desc
}

// Topics lists the distinct topics the registry publishes to.
func (r *EventRegistry) Topics() []string {
	seen := map[string]struct{}{}
	var out []string
	for _, desc := range r.entries {
		if _, ok := seen[desc.Topic]; ok {
			continue
		}
		seen[desc.Topic] = struct{}{}
		out = append(out, desc.Topic)
	}
	return out
}

// Resolve validates the row and decodes its typed payload.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	if !ok {
		return nil, NewNonRetryableError(fmt.Errorf("unsupported event type %s", event.EventType))
	}
	if desc.AggregateType != event.AggregateType {
		return nil, NewNonRetryableError(fmt.Errorf("aggregate mismatch: expected %s got %s", desc.AggregateType, event.AggregateType))
	}
	if strings.TrimSpace(event.AggregateID) == "" {
		return nil, NewNonRetryableError(fmt.Errorf("missing aggregate_id"))
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode envelope: %w", err))
	}

	trimmed := bytes.TrimSpace(envelope.Data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, NewNonRetryableError(fmt.Errorf("payload missing for %s", event.EventType))
	}

	payload := desc.PayloadFactory()
	if err := json.Unmarshal(envelope.Data, payload); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode %s payload: %w", event.EventType, err))
	}

	return &ResolvedEvent{
		Descriptor: desc,
		Envelope:   envelope,
		Payload:    payload,
	}, nil
}

// NewNonRetryableError wraps an error to signal no retries.
func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}
