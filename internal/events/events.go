package events

import (
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	EventBorrowingRequested = "borrowing_requested"
	EventBorrowingApproved  = "borrowing_approved"
	EventBorrowingDenied    = "borrowing_denied"
	EventBorrowingReturned  = "borrowing_returned"
	EventReturnApproved     = "return_approved"
	EventReturnDenied       = "return_denied"
	EventBookChanged        = "book_changed"
	EventUserDeleted        = "user_deleted"
)

// BorrowingEvents lists every event that changes a borrowing record.
var BorrowingEvents = []string{
	EventBorrowingRequested,
	EventBorrowingApproved,
	EventBorrowingDenied,
	EventBorrowingReturned,
	EventReturnApproved,
	EventReturnDenied,
}

// BorrowingEventPayload describes the borrowing touched by a lifecycle action.
type BorrowingEventPayload struct {
	BorrowingID int64   `json:"borrowing_id"`
	BookID      int64   `json:"book_id,omitempty"`
	MemberID    int64   `json:"member_id,omitempty"`
	Status      string  `json:"status,omitempty"`
	Fine        float64 `json:"fine,omitempty"`
}

// CatalogEventPayload describes a changed book or deleted user.
type CatalogEventPayload struct {
	BookID int64 `json:"book_id,omitempty"`
	UserID int64 `json:"user_id,omitempty"`
}

// Event represents a lightweight domain event.
type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// Decode unmarshals the JSON payload into v.
func (e *Event) Decode(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
	logger      *zerolog.Logger
}

// NewEventBus constructs an empty bus. Handler errors are logged, never returned to publishers.
func NewEventBus(logger *zerolog.Logger) *EventBus {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &EventBus{subscribers: make(map[string][]EventHandler), logger: logger}
}

// Subscribe registers a handler for one or more event types.
func (b *EventBus) Subscribe(handler EventHandler, eventTypes ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, t := range eventTypes {
		b.subscribers[t] = append(b.subscribers[t], handler)
	}
}

// Publish notifies subscribers synchronously in registration order.
func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		if err := handler(event); err != nil {
			b.logger.Warn().Err(err).Str("event", event.Type).Msg("Event handler failed")
		}
	}
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	b.Publish(&Event{Type: eventType, Payload: raw, CreatedAt: time.Now()})
	return nil
}
