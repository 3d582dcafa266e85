package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/event-service/internal/config"
	"github.com/spec-kit/event-service/internal/domain"
	"github.com/spec-kit/event-service/internal/events"
	"github.com/spec-kit/event-service/internal/observability"
	"github.com/spec-kit/event-service/internal/persistence"
	"github.com/spec-kit/event-service/internal/repository"
	apperrors "github.com/spec-kit/event-service/pkg/util/errorutil"
)

type fixture struct {
	ctx       context.Context
	store     repository.Store
	deps      Dependencies
	now       time.Time
	admin     *domain.Principal
	mu        sync.Mutex
	published []events.Event
}

// newFixture opens a migrated SQLite database in a temp dir with one admin.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	db, err := persistence.NewSQLite(ctx, config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "events.db")}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, persistence.RunSQLiteMigrations(ctx, db.DB, zap.NewNop()))

	f := &fixture{
		ctx:   ctx,
		store: repository.NewSQLiteStore(db.DB),
		now:   time.Now().UTC().Truncate(time.Second),
	}
	dispatcher := events.NewInMemoryDispatcher(zap.NewNop())
	for _, eventType := range []events.EventType{
		events.RegistrationCreated,
		events.RegistrationCancelled,
		events.UserDeleted,
		events.EventsImported,
		events.TableIngested,
	} {
		dispatcher.Subscribe(eventType, func(_ context.Context, e events.Event) error {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.published = append(f.published, e)
			return nil
		})
	}
	f.deps = Dependencies{
		Store:      f.store,
		Dispatcher: dispatcher,
		Metrics:    observability.NewMetrics(),
		Logger:     zap.NewNop(),
		Now:        func() time.Time { return f.now },
	}
	f.admin = f.createUser(t, "Admin", "admin@example.com", domain.RoleAdmin)
	return f
}

// withStore returns a copy of the dependencies using a different store.
func (f *fixture) withStore(store repository.Store) Dependencies {
	deps := f.deps
	deps.Store = store
	return deps
}

func (f *fixture) createUser(t *testing.T, name, email string, role domain.Role) *domain.Principal {
	t.Helper()
	user := &domain.User{Name: name, Email: email, PasswordHash: "unused", Role: role, IsActive: true}
	require.NoError(t, f.store.Users().Create(f.ctx, user))
	return &domain.Principal{UserID: user.ID, Role: role}
}

func (f *fixture) createUsers(t *testing.T, n int) []*domain.Principal {
	t.Helper()
	users := make([]*domain.Principal, n)
	for i := range users {
		users[i] = f.createUser(t, fmt.Sprintf("User %d", i), fmt.Sprintf("user%d@example.com", i), domain.RoleUser)
	}
	return users
}

func (f *fixture) createEvent(t *testing.T, capacity int) *domain.Event {
	t.Helper()
	event, err := NewEventService(f.deps).CreateEvent(f.ctx, f.admin, EventInput{
		Name:     "Go Meetup",
		Date:     f.now.Add(48 * time.Hour),
		Capacity: capacity,
	})
	require.NoError(t, err)
	return event
}

// publishedTypes lists the captured event types in publish order.
func (f *fixture) publishedTypes() []events.EventType {
	f.mu.Lock()
	defer f.mu.Unlock()
	types := make([]events.EventType, len(f.published))
	for i, e := range f.published {
		types[i] = e.Type
	}
	return types
}

func (f *fixture) slots(t *testing.T, eventID string) int {
	t.Helper()
	event, err := f.store.Events().GetByID(f.ctx, eventID)
	require.NoError(t, err)
	return event.AvailableSlots
}

func testConfig() config.Config {
	return config.Config{
		Auth: config.AuthConfig{
			JWTSecret:             "test-secret",
			AccessTokenTTLMinutes: 60,
			BcryptCost:            bcrypt.MinCost,
		},
	}
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, code), "want %s, got %v", code, err)
}

// faultyStore injects failures into the repositories of an otherwise real
// store, including inside transactions.
type faultyStore struct {
	repository.Store
	failRegistrationCreate bool
	failInsertAfter        int
	insertErr              error
}

func (s faultyStore) Registrations() repository.RegistrationRepository {
	if !s.failRegistrationCreate {
		return s.Store.Registrations()
	}
	return failingRegistrations{s.Store.Registrations()}
}

func (s faultyStore) Tables() repository.TableRepository {
	if s.failInsertAfter <= 0 {
		return s.Store.Tables()
	}
	insertErr := s.insertErr
	if insertErr == nil {
		insertErr = errInjected
	}
	return failingTables{TableRepository: s.Store.Tables(), after: s.failInsertAfter, err: insertErr}
}

func (s faultyStore) WithinTx(ctx context.Context, fn func(repository.Store) error) error {
	return s.Store.WithinTx(ctx, func(tx repository.Store) error {
		inner := s
		inner.Store = tx
		return fn(inner)
	})
}

var errInjected = errors.New("injected failure")

type failingRegistrations struct {
	repository.RegistrationRepository
}

func (failingRegistrations) Create(context.Context, *domain.Registration) error {
	return errInjected
}

// failingTables stores the first rows and then fails, like a constraint
// violation halfway through a batch.
type failingTables struct {
	repository.TableRepository
	after int
	err   error
}

func (t failingTables) Insert(ctx context.Context, name string, columns []domain.ColumnSpec, records [][]any) (int64, error) {
	if len(records) > t.after {
		records = records[:t.after]
	}
	if _, err := t.TableRepository.Insert(ctx, name, columns, records); err != nil {
		return 0, err
	}
	return 0, t.err
}

func TestPageNormalize(t *testing.T) {
	assert.Equal(t, Page{Page: 1, Limit: 10}, Page{}.normalize(10))
	assert.Equal(t, Page{Page: 3, Limit: MaxPageSize}, Page{Page: 3, Limit: 1000}.normalize(10))
	assert.Equal(t, 20, Page{Page: 3, Limit: 10}.offset())
	assert.Equal(t, Pagination{Total: 21, Page: 1, Limit: 10, TotalPages: 3}, paginationFor(Page{Page: 1, Limit: 10}, 21))
}

func TestStoreErrorMapping(t *testing.T) {
	assert.Nil(t, storeError(nil, "event"))
	assertCode(t, storeError(repository.ErrNotFound, "event"), apperrors.CodeNotFound)
	assertCode(t, storeError(fmt.Errorf("%w: email", repository.ErrDuplicate), "user"), apperrors.CodeConflict)
	assertCode(t, storeError(fmt.Errorf("%w: too long", repository.ErrInvalidData), "table"), apperrors.CodeValidation)
	assertCode(t, storeError(errors.New("boom"), "event"), apperrors.CodeInternal)

	conflict := apperrors.NewConflict("taken", nil)
	assert.Same(t, conflict, storeError(conflict, "event"))
}
