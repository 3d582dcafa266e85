package domain

import "time"

// EventStatus enumerates lifecycle states for events.
type EventStatus string

const (
	EventStatusActive    EventStatus = "active"
	EventStatusCancelled EventStatus = "cancelled"
	EventStatusCompleted EventStatus = "completed"
)

// Valid reports whether s is a known event status.
func (s EventStatus) Valid() bool {
	switch s {
	case EventStatusActive, EventStatusCancelled, EventStatusCompleted:
		return true
	}
	return false
}

// Event field bounds.
const (
	EventNameMinLen = 3
	EventNameMaxLen = 200
	MinCapacity     = 1
	MaxCapacity     = 10000
)

// Event is a scheduled happening with a bounded number of slots.
type Event struct {
	ID             string
	Name           string
	Description    *string
	Date           time.Time
	Time           *string
	Location       *string
	Capacity       int
	AvailableSlots int
	Price          float64
	Category       *string
	Status         EventStatus
	CreatedBy      string
	Creator        *UserSummary
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// RebaseAvailableSlots derives the free slots for a capacity from the number of
// live registrations, never from the previous counter value.
func RebaseAvailableSlots(capacity, liveRegistrations int) int {
	if free := capacity - liveRegistrations; free > 0 {
		return free
	}
	return 0
}

// CapacityInRange reports whether capacity is within the accepted bounds.
func CapacityInRange(capacity int) bool {
	return capacity >= MinCapacity && capacity <= MaxCapacity
}
