package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spec-kit/event-service/internal/auth"
	"github.com/spec-kit/event-service/internal/config"
	"github.com/spec-kit/event-service/internal/domain"
	"github.com/spec-kit/event-service/internal/events"
	"github.com/spec-kit/event-service/internal/repository"
	apperrors "github.com/spec-kit/event-service/pkg/util/errorutil"
)

// Account field bounds.
const (
	userNameMinLen    = 2
	userNameMaxLen    = 100
	maxPasswordLength = 72
)

var errInvalidCredentials = apperrors.NewUnauthorized("invalid credentials")

// TokenRevoker records logged-out tokens.
type TokenRevoker interface {
	Revoke(ctx context.Context, tokenID string, expires time.Time) error
}

// AuthService coordinates sign-up, login and logout flows.
type AuthService struct {
	deps       Dependencies
	tokenMgr   *auth.TokenManager
	revoker    TokenRevoker
	bcryptCost int
}

// SignUpInput describes a self-service account.
type SignUpInput struct {
	Name     string
	Email    string
	Password string
}

// Session is an account with a freshly issued access token.
type Session struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// NewAuthService builds the service. revoker may be nil, in which case
// logout only succeeds client side.
func NewAuthService(cfg config.Config, deps Dependencies, revoker TokenRevoker) *AuthService {
	return &AuthService{
		deps:       deps,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		revoker:    revoker,
		bcryptCost: cfg.Auth.BcryptCost,
	}
}

// RegisterUser creates a new end-user account and signs it in.
func (s *AuthService) RegisterUser(ctx context.Context, input SignUpInput) (*Session, error) {
	name := strings.TrimSpace(input.Name)
	if err := validateUserName(name); err != nil {
		return nil, err
	}
	email, err := normalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}
	if err := validatePassword(input.Password); err != nil {
		return nil, err
	}

	if _, err := s.deps.Store.Users().GetByEmail(ctx, email); err == nil {
		return nil, errEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, storeError(err, "user")
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		IsActive:     true,
	}
	if err := s.deps.Store.Users().Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, errEmailTaken
		}
		return nil, storeError(err, "user")
	}

	session, err := s.issue(user)
	if err != nil {
		return nil, err
	}
	s.deps.publish(ctx, events.Event{Type: events.UserRegistered, Subject: user.ID, ActorID: user.ID})
	return session, nil
}

// Login authenticates an account by email and password.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, apperrors.NewValidationError("email and password are required", nil)
	}

	user, err := s.deps.Store.Users().GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, errInvalidCredentials
	}
	if err != nil {
		return nil, storeError(err, "user")
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, errInvalidCredentials
	}
	if !user.IsActive {
		return nil, apperrors.NewUnauthorized("account is deactivated")
	}
	return s.issue(user)
}

// Profile returns the caller's account.
func (s *AuthService) Profile(ctx context.Context, actor *domain.Principal) (*domain.User, error) {
	if err := auth.Check(actor, domain.CapabilityUser); err != nil {
		return nil, err
	}
	user, err := s.deps.Store.Users().GetByID(ctx, actor.UserID)
	if err != nil {
		return nil, storeError(err, "user")
	}
	return user, nil
}

// Logout revokes the caller's token until it would have expired anyway.
func (s *AuthService) Logout(ctx context.Context, actor *domain.Principal) error {
	if err := auth.Check(actor, domain.CapabilityUser); err != nil {
		return err
	}
	if s.revoker == nil {
		s.deps.logger().Warn("token revocation disabled, logout is client side only",
			zap.String("user_id", actor.UserID))
		return nil
	}
	if err := s.revoker.Revoke(ctx, actor.TokenID, actor.Expires); err != nil {
		return apperrors.NewInternalError(err)
	}
	return nil
}

// SeedAdmin creates the configured administrator when no account uses its
// email yet. It reports whether an account was created.
func (s *AuthService) SeedAdmin(ctx context.Context, seed config.AdminSeedConfig) (bool, error) {
	email, err := normalizeEmail(seed.Email)
	if err != nil {
		return false, err
	}

	existing, err := s.deps.Store.Users().GetByEmail(ctx, email)
	if err == nil {
		if existing.Role != domain.RoleAdmin {
			s.deps.logger().Warn("seed admin email belongs to a non-admin account", zap.String("email", email))
		}
		return false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return false, storeError(err, "user")
	}

	if err := validatePassword(seed.Password); err != nil {
		return false, err
	}
	hash, err := auth.HashPassword(seed.Password, s.bcryptCost)
	if err != nil {
		return false, apperrors.NewInternalError(err)
	}
	name := strings.TrimSpace(seed.Name)
	if name == "" {
		name = "Administrator"
	}
	admin := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleAdmin,
		IsActive:     true,
	}
	if err := s.deps.Store.Users().Create(ctx, admin); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return false, nil
		}
		return false, storeError(err, "user")
	}
	s.deps.logger().Info("seeded administrator account", zap.String("email", email))
	return true, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) issue(user *domain.User) (*Session, error) {
	token, exp, err := s.tokenMgr.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &Session{User: user, Token: token, ExpiresAt: exp}, nil
}

var errEmailTaken = apperrors.NewConflict("email already registered", nil)

func validateUserName(name string) error {
	if n := utf8.RuneCountInString(name); n < userNameMinLen || n > userNameMaxLen {
		return apperrors.NewValidationError("name must be 2-100 characters", map[string]any{"name": name})
	}
	return nil
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", apperrors.NewValidationError("invalid email address", map[string]any{"email": raw})
	}
	return email, nil
}

func validatePassword(password string) error {
	if len(password) < auth.MinPasswordLength {
		return apperrors.NewValidationError("password must be at least 6 characters", nil)
	}
	if len(password) > maxPasswordLength {
		return apperrors.NewValidationError("password must be at most 72 bytes", nil)
	}
	return nil
}
