package dto

import (
	"time"

	"github.com/spec-kit/event-service/internal/domain"
)

// RegisterRequest payload for signing up to an event.
type RegisterRequest struct {
	Notes *string `json:"notes"`
}

// RegistrationStatusRequest payload for the attendance state machine.
type RegistrationStatusRequest struct {
	Status domain.RegistrationStatus `json:"status"`
}

// PaymentStatusRequest payload for the payment state machine.
type PaymentStatusRequest struct {
	PaymentStatus domain.PaymentStatus `json:"paymentStatus"`
}

// RegistrationResponse is the API view of a registration.
type RegistrationResponse struct {
	ID            string                    `json:"id"`
	UserID        string                    `json:"userId"`
	EventID       string                    `json:"eventId"`
	Status        domain.RegistrationStatus `json:"status"`
	PaymentStatus domain.PaymentStatus      `json:"paymentStatus"`
	Notes         *string                   `json:"notes"`
	User          *CreatorResponse          `json:"user,omitempty"`
	Event         *EventResponse            `json:"event,omitempty"`
	CreatedAt     time.Time                 `json:"createdAt"`
	UpdatedAt     time.Time                 `json:"updatedAt"`
}

// NewRegistrationResponse converts a registration with whatever relations it carries.
func NewRegistrationResponse(reg *domain.Registration) RegistrationResponse {
	resp := RegistrationResponse{
		ID:            reg.ID,
		UserID:        reg.UserID,
		EventID:       reg.EventID,
		Status:        reg.Status,
		PaymentStatus: reg.PaymentStatus,
		Notes:         reg.Notes,
		CreatedAt:     reg.CreatedAt,
		UpdatedAt:     reg.UpdatedAt,
	}
	if reg.User != nil {
		resp.User = &CreatorResponse{ID: reg.User.ID, Name: reg.User.Name, Email: reg.User.Email}
	}
	if reg.Event != nil {
		event := NewEventResponse(reg.Event)
		resp.Event = &event
	}
	return resp
}

// NewRegistrationResponses converts a list of registrations.
func NewRegistrationResponses(list []domain.Registration) []RegistrationResponse {
	out := make([]RegistrationResponse, 0, len(list))
	for i := range list {
		out = append(out, NewRegistrationResponse(&list[i]))
	}
	return out
}
