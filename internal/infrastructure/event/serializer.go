package event

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sync"

	"github.com/hardstock/backend/internal/domain/purchasing"
	"github.com/hardstock/backend/internal/domain/shared"
)

// EventSerializer handles JSON serialization of domain events.
// Deserialization requires the event type to have been registered.
type EventSerializer struct {
	mu       sync.RWMutex
	registry map[string]reflect.Type
}

// NewEventSerializer creates an empty serializer
func NewEventSerializer() *EventSerializer {
	return &EventSerializer{
		registry: make(map[string]reflect.Type),
	}
}

// NewPurchasingEventSerializer creates a serializer with all purchase
// order event types registered
func NewPurchasingEventSerializer() *EventSerializer {
	s := NewEventSerializer()
	s.Register(purchasing.EventTypePurchaseOrderCreated, &purchasing.PurchaseOrderCreatedEvent{})
	s.Register(purchasing.EventTypeGoodsReceived, &purchasing.GoodsReceivedEvent{})
	s.Register(purchasing.EventTypePaymentRecorded, &purchasing.PaymentRecordedEvent{})
	s.Register(purchasing.EventTypePurchaseOrderClosed, &purchasing.PurchaseOrderClosedEvent{})
	s.Register(purchasing.EventTypePurchaseOrderCancelled, &purchasing.PurchaseOrderCancelledEvent{})
	return s
}

// Register registers an event type for deserialization.
// eventType must match what EventType() returns on the event.
func (s *EventSerializer) Register(eventType string, eventInstance shared.DomainEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := reflect.TypeOf(eventInstance)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	s.registry[eventType] = t
}

// Serialize serializes a domain event to JSON
func (s *EventSerializer) Serialize(event shared.DomainEvent) ([]byte, error) {
	return json.Marshal(event)
}

// Deserialize decodes JSON into a new instance of the registered type
func (s *EventSerializer) Deserialize(eventType string, data []byte) (shared.DomainEvent, error) {
	s.mu.RLock()
	t, ok := s.registry[eventType]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown event type: %s", eventType)
	}

	eventPtr := reflect.New(t).Interface()
	if err := json.Unmarshal(data, eventPtr); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}

	event, ok := eventPtr.(shared.DomainEvent)
	if !ok {
		return nil, fmt.Errorf("deserialized object does not implement DomainEvent")
	}
	return event, nil
}

// IsRegistered checks if an event type is registered
func (s *EventSerializer) IsRegistered(eventType string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.registry[eventType]
	return ok
}
