package repository

import (
	"context"
	"errors"
	"time"

	"github.com/spec-kit/event-service/internal/domain"
)

var (
	// ErrNotFound is returned when a lookup or a targeted write matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a write violates a unique constraint.
	ErrDuplicate = errors.New("duplicate record")
	// ErrInvalidData is returned when the database rejects a value, such as
	// an out of range number or a NOT NULL or CHECK violation.
	ErrInvalidData = errors.New("invalid data")
)

// Store groups the repositories of one database handle. Inside WithinTx the
// repositories passed to fn all share the same transaction.
type Store interface {
	Users() UserRepository
	Events() EventRepository
	Registrations() RegistrationRepository
	Tables() TableRepository
	WithinTx(ctx context.Context, fn func(Store) error) error
	Ping(ctx context.Context) error
	Driver() string
}

// UserFilter narrows user listings.
type UserFilter struct {
	Role     *domain.Role
	IsActive *bool
	Limit    int
	Offset   int
}

// UserRepository defines persistence access for accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context, filter UserFilter) ([]domain.User, int, error)
	// LockAdmins locks every active admin row and returns how many there are.
	LockAdmins(ctx context.Context) (int, error)
	Stats(ctx context.Context) (domain.UserStats, error)
}

// EventFilter narrows event listings. An empty Status lists every status.
type EventFilter struct {
	Status   domain.EventStatus
	Category *string
	Limit    int
	Offset   int
}

// EventRepository defines persistence access for events and their slot counter.
type EventRepository interface {
	Create(ctx context.Context, event *domain.Event) error
	Update(ctx context.Context, event *domain.Event) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Event, error)
	// GetForUpdate reads the event holding its row lock until the transaction ends.
	GetForUpdate(ctx context.Context, id string) (*domain.Event, error)
	List(ctx context.Context, filter EventFilter) ([]domain.Event, int, error)
	// ReserveSlot decrements available slots by one when any are left.
	ReserveSlot(ctx context.Context, id string) (bool, error)
	// ReleaseSlot increments available slots by one, never above capacity.
	ReleaseSlot(ctx context.Context, id string) (bool, error)
	SetAvailableSlots(ctx context.Context, id string, capacity, available int) error
	ReassignCreator(ctx context.Context, fromUserID, toUserID string) (int64, error)
	// CompletePast marks active events dated before the cutoff as completed.
	CompletePast(ctx context.Context, before time.Time) (int64, error)
}

// RegistrationRepository defines persistence access for registrations.
type RegistrationRepository interface {
	Create(ctx context.Context, registration *domain.Registration) error
	GetByID(ctx context.Context, id string) (*domain.Registration, error)
	// GetLive returns the non-cancelled registration of a user for an event.
	GetLive(ctx context.Context, userID, eventID string) (*domain.Registration, error)
	// TransitionStatus moves the registration from one status to another and
	// reports false when the stored status no longer equals from.
	TransitionStatus(ctx context.Context, id string, from, to domain.RegistrationStatus) (bool, error)
	TransitionPayment(ctx context.Context, id string, from, to domain.PaymentStatus) (bool, error)
	CountLive(ctx context.Context, eventID string) (int, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Registration, error)
	ListByEvent(ctx context.Context, eventID string) ([]domain.Registration, error)
	ListLiveByUser(ctx context.Context, userID string) ([]domain.Registration, error)
	DeleteByEvent(ctx context.Context, eventID string) (int64, error)
	DeleteByUser(ctx context.Context, userID string) (int64, error)
	CountSince(ctx context.Context, since time.Time) (int, error)
}

// TableRepository manages tables created from uploaded spreadsheets.
type TableRepository interface {
	Exists(ctx context.Context, name string) (bool, error)
	Create(ctx context.Context, name string, columns []domain.ColumnSpec) error
	Insert(ctx context.Context, name string, columns []domain.ColumnSpec, records [][]any) (int64, error)
	Register(ctx context.Context, table *domain.IngestedTable) error
	List(ctx context.Context) ([]domain.IngestedTable, error)
	Get(ctx context.Context, name string) (*domain.IngestedTable, error)
	Read(ctx context.Context, name string, limit, offset int) (*domain.TablePage, error)
	Drop(ctx context.Context, name string) error
}
