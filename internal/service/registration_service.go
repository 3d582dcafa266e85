package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/event-service/internal/auth"
	"github.com/spec-kit/event-service/internal/domain"
	"github.com/spec-kit/event-service/internal/events"
	"github.com/spec-kit/event-service/internal/repository"
	apperrors "github.com/spec-kit/event-service/pkg/util/errorutil"
)

// RegistrationService coordinates sign-ups and the registration state machine.
type RegistrationService struct {
	deps Dependencies
}

// NewRegistrationService constructs the service.
func NewRegistrationService(deps Dependencies) *RegistrationService {
	return &RegistrationService{deps: deps}
}

// Register signs the caller up for an event.
func (s *RegistrationService) Register(ctx context.Context, actor *domain.Principal, eventID string, notes *string) (*domain.Registration, error) {
	if err := auth.Check(actor, domain.CapabilityUser); err != nil {
		return nil, err
	}
	notes = trimOptional(notes)

	var (
		registration *domain.Registration
		event        *domain.Event
	)
	err := s.deps.Store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		registration, event, err = reserveSlot(ctx, tx, actor.UserID, eventID, notes)
		return err
	})
	s.deps.Metrics.RecordRegistration("register", err)
	if err != nil {
		return nil, err
	}

	registration.Event = event
	s.deps.publish(ctx, events.Event{
		Type:    events.RegistrationCreated,
		Subject: registration.ID,
		ActorID: actor.UserID,
		Payload: events.RegistrationPayload{
			EventID:        event.ID,
			UserID:         actor.UserID,
			NewStatus:      registration.Status,
			AvailableSlots: event.AvailableSlots,
		},
	})
	return registration, nil
}

// Unregister cancels the caller's live registration for an event.
func (s *RegistrationService) Unregister(ctx context.Context, actor *domain.Principal, eventID string) error {
	if err := auth.Check(actor, domain.CapabilityUser); err != nil {
		return err
	}

	var (
		registration *domain.Registration
		event        *domain.Event
		previous     domain.RegistrationStatus
	)
	err := s.deps.Store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		registration, err = tx.Registrations().GetLive(ctx, actor.UserID, eventID)
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewNotFound("registration", map[string]any{"event_id": eventID})
		}
		if err != nil {
			return storeError(err, "registration")
		}
		previous = registration.Status
		if !domain.CanTransitionStatus(previous, domain.RegistrationCancelled) {
			return apperrors.NewInvalidState("registration can no longer be cancelled",
				map[string]any{"status": previous})
		}
		event, err = releaseSlot(ctx, tx, registration)
		return err
	})
	s.deps.Metrics.RecordRegistration("unregister", err)
	if err != nil {
		return err
	}

	s.publishCancelled(ctx, actor.UserID, registration, previous, event)
	return nil
}

// UpdateStatus moves a registration through the attendance state machine.
// Cancelling releases the slot in the same transaction.
func (s *RegistrationService) UpdateStatus(ctx context.Context, actor *domain.Principal, registrationID string, next domain.RegistrationStatus) (*domain.Registration, error) {
	if err := auth.Check(actor, domain.CapabilityAdmin); err != nil {
		return nil, err
	}
	if !next.Valid() {
		return nil, apperrors.NewValidationError("invalid registration status", map[string]any{"status": next})
	}

	var (
		registration *domain.Registration
		event        *domain.Event
		previous     domain.RegistrationStatus
	)
	err := s.deps.Store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		registration, err = tx.Registrations().GetByID(ctx, registrationID)
		if err != nil {
			return storeError(err, "registration")
		}
		previous = registration.Status
		if !domain.CanTransitionStatus(previous, next) {
			return apperrors.NewInvalidState("registration status transition not allowed",
				map[string]any{"from": previous, "to": next})
		}

		if next == domain.RegistrationCancelled {
			event, err = releaseSlot(ctx, tx, registration)
			return err
		}
		moved, err := tx.Registrations().TransitionStatus(ctx, registration.ID, previous, next)
		if err != nil {
			return storeError(err, "registration")
		}
		if !moved {
			return errConcurrentTransition
		}
		registration.Status = next
		return nil
	})
	s.deps.Metrics.RecordRegistration("status_"+string(next), err)
	if err != nil {
		return nil, err
	}

	if next == domain.RegistrationCancelled {
		s.publishCancelled(ctx, actor.UserID, registration, previous, event)
		return registration, nil
	}
	s.deps.publish(ctx, events.Event{
		Type:    events.RegistrationStatusChanged,
		Subject: registration.ID,
		ActorID: actor.UserID,
		Payload: events.RegistrationPayload{
			EventID:   registration.EventID,
			UserID:    registration.UserID,
			OldStatus: previous,
			NewStatus: next,
		},
	})
	return registration, nil
}

// UpdatePayment moves a registration through the payment state machine. It
// never touches the slot counter.
func (s *RegistrationService) UpdatePayment(ctx context.Context, actor *domain.Principal, registrationID string, next domain.PaymentStatus) (*domain.Registration, error) {
	if err := auth.Check(actor, domain.CapabilityAdmin); err != nil {
		return nil, err
	}
	if !next.Valid() {
		return nil, apperrors.NewValidationError("invalid payment status", map[string]any{"payment_status": next})
	}

	var (
		registration *domain.Registration
		previous     domain.PaymentStatus
	)
	err := s.deps.Store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		registration, err = tx.Registrations().GetByID(ctx, registrationID)
		if err != nil {
			return storeError(err, "registration")
		}
		previous = registration.PaymentStatus
		if !domain.CanTransitionPayment(previous, next) {
			return apperrors.NewInvalidState("payment status transition not allowed",
				map[string]any{"from": previous, "to": next})
		}
		moved, err := tx.Registrations().TransitionPayment(ctx, registration.ID, previous, next)
		if err != nil {
			return storeError(err, "registration")
		}
		if !moved {
			return apperrors.NewInvalidState("payment status changed concurrently", nil)
		}
		registration.PaymentStatus = next
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.deps.publish(ctx, events.Event{
		Type:    events.RegistrationPaymentChanged,
		Subject: registration.ID,
		ActorID: actor.UserID,
		Payload: events.RegistrationPayload{
			EventID:    registration.EventID,
			UserID:     registration.UserID,
			OldPayment: previous,
			NewPayment: next,
		},
	})
	return registration, nil
}

// ListMine returns the caller's registrations with their events.
func (s *RegistrationService) ListMine(ctx context.Context, actor *domain.Principal) ([]domain.Registration, error) {
	if err := auth.Check(actor, domain.CapabilityUser); err != nil {
		return nil, err
	}
	registrations, err := s.deps.Store.Registrations().ListByUser(ctx, actor.UserID)
	if err != nil {
		return nil, storeError(err, "registration")
	}
	return registrations, nil
}

// ListForEvent returns every registration of an event with its attendee.
func (s *RegistrationService) ListForEvent(ctx context.Context, actor *domain.Principal, eventID string) ([]domain.Registration, error) {
	if err := auth.Check(actor, domain.CapabilityAdmin); err != nil {
		return nil, err
	}
	if _, err := s.deps.Store.Events().GetByID(ctx, eventID); err != nil {
		return nil, storeError(err, "event")
	}
	registrations, err := s.deps.Store.Registrations().ListByEvent(ctx, eventID)
	if err != nil {
		return nil, storeError(err, "registration")
	}
	return registrations, nil
}

func (s *RegistrationService) publishCancelled(ctx context.Context, actorID string, registration *domain.Registration, previous domain.RegistrationStatus, event *domain.Event) {
	payload := events.RegistrationPayload{
		EventID:   registration.EventID,
		UserID:    registration.UserID,
		OldStatus: previous,
		NewStatus: domain.RegistrationCancelled,
	}
	if event != nil {
		payload.AvailableSlots = event.AvailableSlots
	}
	s.deps.logger().Debug("registration cancelled",
		zap.String("registration_id", registration.ID),
		zap.String("event_id", registration.EventID))
	s.deps.publish(ctx, events.Event{
		Type:    events.RegistrationCancelled,
		Subject: registration.ID,
		ActorID: actorID,
		Payload: payload,
	})
}

func trimOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
