package domain

import "time"

// RegistrationStatus enumerates attendance states.
type RegistrationStatus string

const (
	RegistrationConfirmed RegistrationStatus = "confirmed"
	RegistrationCancelled RegistrationStatus = "cancelled"
	RegistrationAttended  RegistrationStatus = "attended"
)

// Valid reports whether s is a known registration status.
func (s RegistrationStatus) Valid() bool {
	switch s {
	case RegistrationConfirmed, RegistrationCancelled, RegistrationAttended:
		return true
	}
	return false
}

// Live reports whether a registration in this status holds a slot.
func (s RegistrationStatus) Live() bool {
	return s != RegistrationCancelled
}

// PaymentStatus enumerates payment states, tracked independently of attendance.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

// Valid reports whether s is a known payment status.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentPaid, PaymentRefunded:
		return true
	}
	return false
}

// Registration binds one user to one event.
type Registration struct {
	ID            string
	UserID        string
	EventID       string
	Status        RegistrationStatus
	PaymentStatus PaymentStatus
	Notes         *string
	User          *UserSummary
	Event         *Event
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

var statusTransitions = map[RegistrationStatus][]RegistrationStatus{
	RegistrationConfirmed: {RegistrationCancelled, RegistrationAttended},
	RegistrationCancelled: {},
	RegistrationAttended:  {},
}

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentPending:  {PaymentPaid},
	PaymentPaid:     {PaymentRefunded},
	PaymentRefunded: {},
}

// CanTransitionStatus reports whether current may move to next.
func CanTransitionStatus(current, next RegistrationStatus) bool {
	for _, candidate := range statusTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// CanTransitionPayment reports whether current may move to next.
func CanTransitionPayment(current, next PaymentStatus) bool {
	for _, candidate := range paymentTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}
