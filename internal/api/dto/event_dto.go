package dto

import (
	"time"

	"github.com/spec-kit/event-service/internal/domain"
)

// CreateEventRequest payload. Date accepts RFC 3339 or any common date layout.
type CreateEventRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Date        string  `json:"date"`
	Time        *string `json:"time"`
	Location    *string `json:"location"`
	Capacity    int     `json:"capacity"`
	Price       float64 `json:"price"`
	Category    *string `json:"category"`
}

// UpdateEventRequest payload; absent fields are left untouched.
type UpdateEventRequest struct {
	Name        *string             `json:"name"`
	Description *string             `json:"description"`
	Date        *string             `json:"date"`
	Time        *string             `json:"time"`
	Location    *string             `json:"location"`
	Capacity    *int                `json:"capacity"`
	Price       *float64            `json:"price"`
	Category    *string             `json:"category"`
	Status      *domain.EventStatus `json:"status"`
}

// CreatorResponse identifies who created an event.
type CreatorResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// EventResponse is the API view of an event.
type EventResponse struct {
	ID             string             `json:"id"`
	Name           string             `json:"name"`
	Description    *string            `json:"description"`
	Date           time.Time          `json:"date"`
	Time           *string            `json:"time"`
	Location       *string            `json:"location"`
	Capacity       int                `json:"capacity"`
	AvailableSlots int                `json:"availableSlots"`
	Price          float64            `json:"price"`
	Category       *string            `json:"category"`
	Status         domain.EventStatus `json:"status"`
	CreatedBy      string             `json:"createdBy"`
	Creator        *CreatorResponse   `json:"creator,omitempty"`
	CreatedAt      time.Time          `json:"createdAt"`
	UpdatedAt      time.Time          `json:"updatedAt"`
}

// EventDetailResponse adds registrations for administrators.
type EventDetailResponse struct {
	EventResponse
	Registrations []RegistrationResponse `json:"registrations,omitempty"`
}

// NewEventResponse converts a domain event.
func NewEventResponse(event *domain.Event) EventResponse {
	resp := EventResponse{
		ID:             event.ID,
		Name:           event.Name,
		Description:    event.Description,
		Date:           event.Date,
		Time:           event.Time,
		Location:       event.Location,
		Capacity:       event.Capacity,
		AvailableSlots: event.AvailableSlots,
		Price:          event.Price,
		Category:       event.Category,
		Status:         event.Status,
		CreatedBy:      event.CreatedBy,
		CreatedAt:      event.CreatedAt,
		UpdatedAt:      event.UpdatedAt,
	}
	if event.Creator != nil {
		resp.Creator = &CreatorResponse{ID: event.Creator.ID, Name: event.Creator.Name, Email: event.Creator.Email}
	}
	return resp
}

// NewEventResponses converts a page of events.
func NewEventResponses(list []domain.Event) []EventResponse {
	out := make([]EventResponse, 0, len(list))
	for i := range list {
		out = append(out, NewEventResponse(&list[i]))
	}
	return out
}
