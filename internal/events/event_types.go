package events

import (
	"time"

	"github.com/spec-kit/event-service/internal/domain"
)

// EventType enumerates supported domain event identifiers.
type EventType string

const (
	EventCreated               EventType = "event_created"
	EventUpdated               EventType = "event_updated"
	EventDeleted               EventType = "event_deleted"
	EventsImported             EventType = "events_imported"
	RegistrationCreated        EventType = "registration_created"
	RegistrationCancelled      EventType = "registration_cancelled"
	RegistrationStatusChanged  EventType = "registration_status_changed"
	RegistrationPaymentChanged EventType = "registration_payment_changed"
	UserRegistered             EventType = "user_registered"
	UserDeleted                EventType = "user_deleted"
	TableIngested              EventType = "table_ingested"
	TableDropped               EventType = "table_dropped"
)

// Event represents a domain event emitted by services after their
// transaction committed.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Subject   string    `json:"subject"`
	ActorID   string    `json:"actor_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload,omitempty"`
}

// RegistrationPayload accompanies registration events.
type RegistrationPayload struct {
	EventID        string                    `json:"event_id"`
	UserID         string                    `json:"user_id"`
	OldStatus      domain.RegistrationStatus `json:"old_status,omitempty"`
	NewStatus      domain.RegistrationStatus `json:"new_status,omitempty"`
	OldPayment     domain.PaymentStatus      `json:"old_payment,omitempty"`
	NewPayment     domain.PaymentStatus      `json:"new_payment,omitempty"`
	AvailableSlots int                       `json:"available_slots"`
}

// EventPayload accompanies event lifecycle events.
type EventPayload struct {
	Name           string             `json:"name"`
	Status         domain.EventStatus `json:"status"`
	Capacity       int                `json:"capacity"`
	AvailableSlots int                `json:"available_slots"`
}

// ImportPayload summarizes a spreadsheet ingestion.
type ImportPayload struct {
	File      string `json:"file"`
	Processed int    `json:"processed"`
	Created   int    `json:"created"`
	Skipped   int    `json:"skipped"`
}

// UserDeletedPayload summarizes what a user deletion touched.
type UserDeletedPayload struct {
	ReleasedSlots      int    `json:"released_slots"`
	DeletedRegs        int64  `json:"deleted_registrations"`
	ReassignedEvents   int64  `json:"reassigned_events"`
	ReassignedToUserID string `json:"reassigned_to"`
}
