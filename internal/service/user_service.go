package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/event-service/internal/auth"
	"github.com/spec-kit/event-service/internal/config"
	"github.com/spec-kit/event-service/internal/domain"
	"github.com/spec-kit/event-service/internal/events"
	"github.com/spec-kit/event-service/internal/repository"
	apperrors "github.com/spec-kit/event-service/pkg/util/errorutil"
)

// recentWindow bounds the "recent registrations" statistic.
const recentWindow = 30 * 24 * time.Hour

var errLastAdmin = apperrors.NewConflict("cannot remove the last administrator", nil)

// UserService implements account administration.
type UserService struct {
	deps       Dependencies
	bcryptCost int
}

// UserListFilter narrows the account listing.
type UserListFilter struct {
	Role     *domain.Role
	IsActive *bool
	Page     Page
}

// UserUpdate carries the fields to change; nil fields are left untouched.
type UserUpdate struct {
	Name     *string
	Email    *string
	Password *string
	Role     *domain.Role
	IsActive *bool
}

// NewUserService constructs the service.
func NewUserService(cfg config.AuthConfig, deps Dependencies) *UserService {
	return &UserService{deps: deps, bcryptCost: cfg.BcryptCost}
}

// ListUsers returns a page of accounts, newest first.
func (s *UserService) ListUsers(ctx context.Context, actor *domain.Principal, filter UserListFilter) ([]domain.User, Pagination, error) {
	if err := auth.Check(actor, domain.CapabilityAdmin); err != nil {
		return nil, Pagination{}, err
	}
	if filter.Role != nil && !filter.Role.Valid() {
		return nil, Pagination{}, apperrors.NewValidationError("invalid role", map[string]any{"role": *filter.Role})
	}

	page := filter.Page.normalize(DefaultPageSize)
	users, total, err := s.deps.Store.Users().List(ctx, repository.UserFilter{
		Role:     filter.Role,
		IsActive: filter.IsActive,
		Limit:    page.Limit,
		Offset:   page.offset(),
	})
	if err != nil {
		return nil, Pagination{}, storeError(err, "user")
	}
	if users == nil {
		users = []domain.User{}
	}
	return users, paginationFor(page, total), nil
}

// GetUser returns one account with its registrations.
func (s *UserService) GetUser(ctx context.Context, actor *domain.Principal, userID string) (*domain.User, []domain.Registration, error) {
	if err := auth.Check(actor, domain.CapabilityAdmin); err != nil {
		return nil, nil, err
	}
	user, err := s.deps.Store.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, nil, storeError(err, "user")
	}
	registrations, err := s.deps.Store.Registrations().ListByUser(ctx, userID)
	if err != nil {
		return nil, nil, storeError(err, "registration")
	}
	return user, registrations, nil
}

// UpdateUser applies a partial update. Demoting or deactivating the only
// active administrator is refused.
func (s *UserService) UpdateUser(ctx context.Context, actor *domain.Principal, userID string, update UserUpdate) (*domain.User, error) {
	if err := auth.Check(actor, domain.CapabilityAdmin); err != nil {
		return nil, err
	}
	if update.Role != nil && !update.Role.Valid() {
		return nil, apperrors.NewValidationError("invalid role", map[string]any{"role": *update.Role})
	}

	var hash string
	if update.Password != nil {
		if err := validatePassword(*update.Password); err != nil {
			return nil, err
		}
		var err error
		if hash, err = auth.HashPassword(*update.Password, s.bcryptCost); err != nil {
			return nil, apperrors.NewInternalError(err)
		}
	}

	var user *domain.User
	err := s.deps.Store.WithinTx(ctx, func(tx repository.Store) error {
		// Lock the active administrators before reading the target so two
		// concurrent demotions cannot both see a second admin.
		var (
			admins int
			err    error
		)
		if update.Role != nil || update.IsActive != nil {
			if admins, err = tx.Users().LockAdmins(ctx); err != nil {
				return storeError(err, "user")
			}
		}

		user, err = tx.Users().GetByID(ctx, userID)
		if err != nil {
			return storeError(err, "user")
		}
		wasActiveAdmin := isActiveAdmin(user)

		if update.Name != nil {
			name := strings.TrimSpace(*update.Name)
			if err := validateUserName(name); err != nil {
				return err
			}
			user.Name = name
		}
		if update.Email != nil {
			email, err := normalizeEmail(*update.Email)
			if err != nil {
				return err
			}
			if email != user.Email {
				if _, err := tx.Users().GetByEmail(ctx, email); err == nil {
					return errEmailTaken
				} else if !errors.Is(err, repository.ErrNotFound) {
					return storeError(err, "user")
				}
			}
			user.Email = email
		}
		if update.Role != nil {
			user.Role = *update.Role
		}
		if update.IsActive != nil {
			user.IsActive = *update.IsActive
		}
		if hash != "" {
			user.PasswordHash = hash
		}

		if wasActiveAdmin && !isActiveAdmin(user) && admins <= 1 {
			return errLastAdmin
		}

		if err := tx.Users().Update(ctx, user); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return errEmailTaken
			}
			return storeError(err, "user")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// DeleteUser removes an account. Its live registrations give their slots
// back, its registrations are deleted and the events it created move to the
// acting administrator, all in one transaction.
func (s *UserService) DeleteUser(ctx context.Context, actor *domain.Principal, userID string) error {
	if err := auth.Check(actor, domain.CapabilityAdmin); err != nil {
		return err
	}
	if userID == actor.UserID {
		return apperrors.NewConflict("administrators cannot delete their own account", nil)
	}

	var summary events.UserDeletedPayload
	err := s.deps.Store.WithinTx(ctx, func(tx repository.Store) error {
		admins, err := tx.Users().LockAdmins(ctx)
		if err != nil {
			return storeError(err, "user")
		}
		user, err := tx.Users().GetByID(ctx, userID)
		if err != nil {
			return storeError(err, "user")
		}
		if isActiveAdmin(user) && admins <= 1 {
			return errLastAdmin
		}

		if summary.ReleasedSlots, err = releaseAllForUser(ctx, tx, userID); err != nil {
			return err
		}
		if summary.DeletedRegs, err = tx.Registrations().DeleteByUser(ctx, userID); err != nil {
			return storeError(err, "registration")
		}
		if summary.ReassignedEvents, err = tx.Events().ReassignCreator(ctx, userID, actor.UserID); err != nil {
			return storeError(err, "event")
		}
		summary.ReassignedToUserID = actor.UserID
		return storeError(tx.Users().Delete(ctx, userID), "user")
	})
	if err != nil {
		return err
	}

	s.deps.logger().Info("user deleted",
		zap.String("user_id", userID),
		zap.Int("released_slots", summary.ReleasedSlots),
		zap.Int64("reassigned_events", summary.ReassignedEvents))
	s.deps.publish(ctx, events.Event{
		Type:    events.UserDeleted,
		Subject: userID,
		ActorID: actor.UserID,
		Payload: summary,
	})
	return nil
}

// isActiveAdmin reports whether u can still sign in as an administrator.
func isActiveAdmin(u *domain.User) bool {
	return u.Role == domain.RoleAdmin && u.IsActive
}

// Stats aggregates account and registration counters.
func (s *UserService) Stats(ctx context.Context, actor *domain.Principal) (domain.UserStats, error) {
	if err := auth.Check(actor, domain.CapabilityAdmin); err != nil {
		return domain.UserStats{}, err
	}
	stats, err := s.deps.Store.Users().Stats(ctx)
	if err != nil {
		return domain.UserStats{}, storeError(err, "user")
	}
	stats.RecentRegistrations, err = s.deps.Store.Registrations().CountSince(ctx, s.deps.now().Add(-recentWindow))
	if err != nil {
		return domain.UserStats{}, storeError(err, "registration")
	}
	return stats, nil
}
