package service

import (
	"context"
	"errors"
	"sort"

	"github.com/spec-kit/event-service/internal/domain"
	"github.com/spec-kit/event-service/internal/repository"
	apperrors "github.com/spec-kit/event-service/pkg/util/errorutil"
)

// The functions in this file own every change to an event's slot counter.
// They expect tx to be a transactional store and lock the event row before
// touching registrations, so concurrent callers serialize per event.

// reserveSlot records a confirmed registration of userID for eventID and takes
// one slot from the event.
func reserveSlot(ctx context.Context, tx repository.Store, userID, eventID string, notes *string) (*domain.Registration, *domain.Event, error) {
	event, err := tx.Events().GetForUpdate(ctx, eventID)
	if err != nil {
		return nil, nil, storeError(err, "event")
	}
	if event.Status != domain.EventStatusActive {
		return nil, nil, apperrors.NewConflict("event is not open for registration",
			map[string]any{"status": event.Status})
	}

	if _, err := tx.Registrations().GetLive(ctx, userID, eventID); err == nil {
		return nil, nil, errAlreadyRegistered
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, nil, storeError(err, "registration")
	}

	reserved, err := tx.Events().ReserveSlot(ctx, eventID)
	if err != nil {
		return nil, nil, storeError(err, "event")
	}
	if !reserved {
		return nil, nil, apperrors.NewConflict("no slots available", map[string]any{"capacity": event.Capacity})
	}

	registration := &domain.Registration{
		UserID:        userID,
		EventID:       eventID,
		Status:        domain.RegistrationConfirmed,
		PaymentStatus: domain.PaymentPending,
		Notes:         notes,
	}
	if err := tx.Registrations().Create(ctx, registration); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, nil, errAlreadyRegistered
		}
		return nil, nil, storeError(err, "registration")
	}
	event.AvailableSlots--
	return registration, event, nil
}

// releaseSlot cancels a live registration and gives its slot back. The
// status change is a compare-and-set on the status the caller read.
func releaseSlot(ctx context.Context, tx repository.Store, registration *domain.Registration) (*domain.Event, error) {
	event, err := tx.Events().GetForUpdate(ctx, registration.EventID)
	if err != nil {
		return nil, storeError(err, "event")
	}

	moved, err := tx.Registrations().TransitionStatus(ctx, registration.ID, registration.Status, domain.RegistrationCancelled)
	if err != nil {
		return nil, storeError(err, "registration")
	}
	if !moved {
		return nil, errConcurrentTransition
	}

	released, err := tx.Events().ReleaseSlot(ctx, registration.EventID)
	if err != nil {
		return nil, storeError(err, "event")
	}
	if released {
		event.AvailableSlots++
	}
	registration.Status = domain.RegistrationCancelled
	return event, nil
}

// rebaseCapacity sets a new capacity and derives the free slots from the live
// registration count while the event row is locked.
func rebaseCapacity(ctx context.Context, tx repository.Store, eventID string, capacity int) (*domain.Event, error) {
	if !domain.CapacityInRange(capacity) {
		return nil, errCapacityRange(capacity)
	}
	event, err := tx.Events().GetForUpdate(ctx, eventID)
	if err != nil {
		return nil, storeError(err, "event")
	}
	live, err := tx.Registrations().CountLive(ctx, eventID)
	if err != nil {
		return nil, storeError(err, "registration")
	}

	available := domain.RebaseAvailableSlots(capacity, live)
	if err := tx.Events().SetAvailableSlots(ctx, eventID, capacity, available); err != nil {
		return nil, storeError(err, "event")
	}
	event.Capacity, event.AvailableSlots = capacity, available
	return event, nil
}

// releaseAllForUser cancels every live registration of userID, locking events
// in id order. It returns the number of slots given back.
func releaseAllForUser(ctx context.Context, tx repository.Store, userID string) (int, error) {
	live, err := tx.Registrations().ListLiveByUser(ctx, userID)
	if err != nil {
		return 0, storeError(err, "registration")
	}
	sort.Slice(live, func(i, j int) bool { return live[i].EventID < live[j].EventID })

	released := 0
	for i := range live {
		if _, err := releaseSlot(ctx, tx, &live[i]); err != nil {
			return released, err
		}
		released++
	}
	return released, nil
}

var (
	errAlreadyRegistered    = apperrors.NewConflict("already registered for this event", nil)
	errConcurrentTransition = apperrors.NewInvalidState("registration status changed concurrently", nil)
)

func errCapacityRange(capacity int) error {
	return apperrors.NewValidationError("capacity must be between 1 and 10000",
		map[string]any{"capacity": capacity, "min": domain.MinCapacity, "max": domain.MaxCapacity})
}
