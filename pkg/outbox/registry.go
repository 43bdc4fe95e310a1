package outbox

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// EventDescriptor links an event type to its aggregate, topic and payload schema.
type EventDescriptor struct {
	EventType      enums.OutboxEventType
	AggregateType  enums.OutboxAggregateType
	Topic          string
	PayloadFactory func() any
}

// ResolvedEvent is the result of decoding an outbox row.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   PayloadEnvelope
	Payload    any
}

// EventRegistry maps each supported event type to its descriptor.
type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

// NonRetryableError signals the publisher should stop retrying a row.
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

func NewNonRetryableError(err error) error {
	return NonRetryableError{Err: err}
}

// NewEventRegistry builds the registry with the configured topic names.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	orders := strings.TrimSpace(cfg.OrdersTopic)
	if orders == "" {
		return nil, errors.New("orders topic is required")
	}
	accounts := strings.TrimSpace(cfg.AccountsTopic)
	if accounts == "" {
		return nil, errors.New("accounts topic is required")
	}
	reg := &EventRegistry{entries: make(map[enums.OutboxEventType]EventDescriptor)}
	reg.register(EventDescriptor{
		EventType:      enums.EventOrderCreated,
		AggregateType:  enums.AggregateOrder,
		Topic:          orders,
		PayloadFactory: func() any { return &OrderCreatedEvent{} },
	})
	reg.register(EventDescriptor{
		EventType:      enums.EventPasswordResetRequested,
		AggregateType:  enums.AggregateCustomer,
		Topic:          accounts,
		PayloadFactory: func() any { return &PasswordResetRequestedEvent{} },
	})
	return reg, nil
}

func (r *EventRegistry) register(desc EventDescriptor) {
	r.entries[desc.EventType] = desc
}

// Descriptor returns the descriptor registered for eventType.
func (r *EventRegistry) Descriptor(eventType enums.OutboxEventType) (EventDescriptor, bool) {
	if r == nil {
		return EventDescriptor{}, false
	}
	desc, ok := r.entries[eventType]
	return desc, ok
}

// Resolve decodes the envelope and typed payload of an outbox row. Unknown
// types, mismatched aggregates and malformed payloads are non-retryable.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.Descriptor(event.EventType)
	if !ok {
		return nil, NewNonRetryableError(fmt.Errorf("unsupported event type %q", event.EventType))
	}
	if desc.AggregateType != event.AggregateType {
		return nil, NewNonRetryableError(fmt.Errorf("event %q expects aggregate %q, got %q", event.EventType, desc.AggregateType, event.AggregateType))
	}
	envelope, err := DecodeEnvelope(event.Payload)
	if err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode envelope: %w", err))
	}
	payload := desc.PayloadFactory()
	if err := json.Unmarshal(envelope.Data, payload); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode %s payload: %w", event.EventType, err))
	}
	return &ResolvedEvent{Descriptor: desc, Envelope: envelope, Payload: payload}, nil
}
