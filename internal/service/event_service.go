package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spec-kit/event-service/internal/auth"
	"github.com/spec-kit/event-service/internal/domain"
	"github.com/spec-kit/event-service/internal/events"
	"github.com/spec-kit/event-service/internal/repository"
	apperrors "github.com/spec-kit/event-service/pkg/util/errorutil"
)

// Column widths enforced before writes reach the store.
const (
	maxLocationLen = 255
	maxCategoryLen = 100
	maxTimeLen     = 16
)

// StatusAll lists events regardless of status.
const StatusAll = "all"

// EventService coordinates event management.
type EventService struct {
	deps Dependencies
}

// EventInput describes a new event.
type EventInput struct {
	Name        string
	Description *string
	Date        time.Time
	Time        *string
	Location    *string
	Capacity    int
	Price       float64
	Category    *string
}

// EventUpdate carries the fields to change; nil fields are left untouched.
type EventUpdate struct {
	Name        *string
	Description *string
	Date        *time.Time
	Time        *string
	Location    *string
	Capacity    *int
	Price       *float64
	Category    *string
	Status      *domain.EventStatus
}

// EventListFilter narrows public listings. An empty Status means active.
type EventListFilter struct {
	Status   string
	Category *string
	Page     Page
}

// NewEventService constructs the service.
func NewEventService(deps Dependencies) *EventService {
	return &EventService{deps: deps}
}

// CreateEvent stores a new event owned by the caller with every slot free.
func (s *EventService) CreateEvent(ctx context.Context, actor *domain.Principal, input EventInput) (*domain.Event, error) {
	if err := auth.Check(actor, domain.CapabilityAdmin); err != nil {
		return nil, err
	}

	event := &domain.Event{
		Name:           strings.TrimSpace(input.Name),
		Description:    trimOptional(input.Description),
		Date:           input.Date,
		Time:           trimOptional(input.Time),
		Location:       trimOptional(input.Location),
		Capacity:       input.Capacity,
		AvailableSlots: input.Capacity,
		Price:          input.Price,
		Category:       trimOptional(input.Category),
		Status:         domain.EventStatusActive,
		CreatedBy:      actor.UserID,
	}
	if err := validateEvent(event, s.deps.now(), true); err != nil {
		return nil, err
	}
	if err := s.deps.Store.Events().Create(ctx, event); err != nil {
		return nil, storeError(err, "event")
	}

	created, err := s.deps.Store.Events().GetByID(ctx, event.ID)
	if err != nil {
		return nil, storeError(err, "event")
	}
	s.publishEvent(ctx, events.EventCreated, actor.UserID, created)
	return created, nil
}

// UpdateEvent applies a partial update. A new capacity rebases the free
// slots on the live registration count in the same transaction.
func (s *EventService) UpdateEvent(ctx context.Context, actor *domain.Principal, eventID string, update EventUpdate) (*domain.Event, error) {
	if err := auth.Check(actor, domain.CapabilityAdmin); err != nil {
		return nil, err
	}
	if update.Status != nil && !update.Status.Valid() {
		return nil, apperrors.NewValidationError("invalid event status", map[string]any{"status": *update.Status})
	}
	if update.Capacity != nil && !domain.CapacityInRange(*update.Capacity) {
		return nil, errCapacityRange(*update.Capacity)
	}

	err := s.deps.Store.WithinTx(ctx, func(tx repository.Store) error {
		event, err := tx.Events().GetForUpdate(ctx, eventID)
		if err != nil {
			return storeError(err, "event")
		}

		if update.Name != nil {
			event.Name = strings.TrimSpace(*update.Name)
		}
		if update.Description != nil {
			event.Description = trimOptional(update.Description)
		}
		if update.Time != nil {
			event.Time = trimOptional(update.Time)
		}
		if update.Location != nil {
			event.Location = trimOptional(update.Location)
		}
		if update.Price != nil {
			event.Price = *update.Price
		}
		if update.Category != nil {
			event.Category = trimOptional(update.Category)
		}
		if update.Status != nil {
			event.Status = *update.Status
		}
		if update.Date != nil {
			event.Date = *update.Date
		}
		if err := validateEvent(event, s.deps.now(), update.Date != nil); err != nil {
			return err
		}
		if err := tx.Events().Update(ctx, event); err != nil {
			return storeError(err, "event")
		}

		if update.Capacity != nil {
			if _, err := rebaseCapacity(ctx, tx, eventID, *update.Capacity); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.deps.Store.Events().GetByID(ctx, eventID)
	if err != nil {
		return nil, storeError(err, "event")
	}
	s.publishEvent(ctx, events.EventUpdated, actor.UserID, updated)
	return updated, nil
}

// SetCapacity changes an event's capacity and recomputes its free slots.
func (s *EventService) SetCapacity(ctx context.Context, actor *domain.Principal, eventID string, capacity int) (*domain.Event, error) {
	if err := auth.Check(actor, domain.CapabilityAdmin); err != nil {
		return nil, err
	}

	var event *domain.Event
	err := s.deps.Store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		event, err = rebaseCapacity(ctx, tx, eventID, capacity)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.EventUpdated, actor.UserID, event)
	return event, nil
}

// DeleteEvent removes an event after its registrations, atomically.
func (s *EventService) DeleteEvent(ctx context.Context, actor *domain.Principal, eventID string) error {
	if err := auth.Check(actor, domain.CapabilityAdmin); err != nil {
		return err
	}

	var event *domain.Event
	err := s.deps.Store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		event, err = tx.Events().GetForUpdate(ctx, eventID)
		if err != nil {
			return storeError(err, "event")
		}
		if _, err := tx.Registrations().DeleteByEvent(ctx, eventID); err != nil {
			return storeError(err, "registration")
		}
		return storeError(tx.Events().Delete(ctx, eventID), "event")
	})
	if err != nil {
		return err
	}
	s.publishEvent(ctx, events.EventDeleted, actor.UserID, event)
	return nil
}

// GetEvent returns one event. Admins also receive its registrations.
func (s *EventService) GetEvent(ctx context.Context, actor *domain.Principal, eventID string) (*domain.Event, []domain.Registration, error) {
	event, err := s.deps.Store.Events().GetByID(ctx, eventID)
	if err != nil {
		return nil, nil, storeError(err, "event")
	}
	if auth.Authorize(actor, domain.CapabilityAdmin) != auth.Allowed {
		return event, nil, nil
	}
	registrations, err := s.deps.Store.Registrations().ListByEvent(ctx, eventID)
	if err != nil {
		return nil, nil, storeError(err, "registration")
	}
	return event, registrations, nil
}

// ListEvents returns a page of events ordered by date.
func (s *EventService) ListEvents(ctx context.Context, filter EventListFilter) ([]domain.Event, Pagination, error) {
	page := filter.Page.normalize(DefaultPageSize)
	repoFilter := repository.EventFilter{
		Status:   domain.EventStatusActive,
		Category: trimOptional(filter.Category),
		Limit:    page.Limit,
		Offset:   page.offset(),
	}
	switch status := strings.ToLower(strings.TrimSpace(filter.Status)); status {
	case "":
	case StatusAll:
		repoFilter.Status = ""
	default:
		repoFilter.Status = domain.EventStatus(status)
		if !repoFilter.Status.Valid() {
			return nil, Pagination{}, apperrors.NewValidationError("invalid event status", map[string]any{"status": filter.Status})
		}
	}

	list, total, err := s.deps.Store.Events().List(ctx, repoFilter)
	if err != nil {
		return nil, Pagination{}, storeError(err, "event")
	}
	if list == nil {
		list = []domain.Event{}
	}
	return list, paginationFor(page, total), nil
}

// CompletePastEvents closes every active event whose date has passed. It is
// run by the background sweeper, not on behalf of a caller.
func (s *EventService) CompletePastEvents(ctx context.Context) (int64, error) {
	n, err := s.deps.Store.Events().CompletePast(ctx, s.deps.now())
	if err != nil {
		return 0, storeError(err, "event")
	}
	return n, nil
}

func (s *EventService) publishEvent(ctx context.Context, eventType events.EventType, actorID string, event *domain.Event) {
	s.deps.publish(ctx, events.Event{
		Type:    eventType,
		Subject: event.ID,
		ActorID: actorID,
		Payload: events.EventPayload{
			Name:           event.Name,
			Status:         event.Status,
			Capacity:       event.Capacity,
			AvailableSlots: event.AvailableSlots,
		},
	})
}

// validateEvent checks the stored fields of an event. The date must lie in
// the future only when requireFuture is set.
func validateEvent(event *domain.Event, now time.Time, requireFuture bool) error {
	fail := func(message, field string, value any) error {
		return apperrors.NewValidationError(message, map[string]any{field: value})
	}

	if n := utf8.RuneCountInString(event.Name); n < domain.EventNameMinLen || n > domain.EventNameMaxLen {
		return fail("name must be 3-200 characters", "name", event.Name)
	}
	if event.Date.IsZero() {
		return fail("date is required", "date", nil)
	}
	if requireFuture && !event.Date.After(now) {
		return fail("event date must be in the future", "date", event.Date)
	}
	if !domain.CapacityInRange(event.Capacity) {
		return errCapacityRange(event.Capacity)
	}
	if event.Price < 0 {
		return fail("price must not be negative", "price", event.Price)
	}
	if !event.Status.Valid() {
		return fail("invalid event status", "status", event.Status)
	}
	if tooLong(event.Time, maxTimeLen) {
		return fail("time must be at most 16 characters", "time", *event.Time)
	}
	if tooLong(event.Location, maxLocationLen) {
		return fail("location must be at most 255 characters", "location", *event.Location)
	}
	if tooLong(event.Category, maxCategoryLen) {
		return fail("category must be at most 100 characters", "category", *event.Category)
	}
	return nil
}

func tooLong(value *string, max int) bool {
	return value != nil && utf8.RuneCountInString(*value) > max
}
