package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/event-service/internal/domain"
	"github.com/spec-kit/event-service/internal/repository"
	apperrors "github.com/spec-kit/event-service/pkg/util/errorutil"
)

func TestAuthorize(t *testing.T) {
	admin := &domain.Principal{UserID: "a", Role: domain.RoleAdmin}
	user := &domain.Principal{UserID: "u", Role: domain.RoleUser}

	tests := []struct {
		name      string
		principal *domain.Principal
		required  domain.Capability
		want      Decision
	}{
		{"anonymous reads", nil, domain.CapabilityAnonymous, Allowed},
		{"anonymous mutates", nil, domain.CapabilityUser, Unauthenticated},
		{"anonymous administers", nil, domain.CapabilityAdmin, Unauthenticated},
		{"user self service", user, domain.CapabilityUser, Allowed},
		{"user administers", user, domain.CapabilityAdmin, Forbidden},
		{"admin self service", admin, domain.CapabilityUser, Allowed},
		{"admin administers", admin, domain.CapabilityAdmin, Allowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Authorize(tt.principal, tt.required))
		})
	}

	assert.NoError(t, Allowed.Err())
	assert.True(t, apperrors.HasCode(Unauthenticated.Err(), apperrors.CodeUnauthorized))
	assert.True(t, apperrors.HasCode(Forbidden.Err(), apperrors.CodeForbidden))
}

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 60)
	token, expires, err := tm.GenerateToken("user-1", domain.RoleAdmin)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, 5*time.Second)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	principal := claims.Principal()
	assert.Equal(t, "user-1", principal.UserID)
	assert.Equal(t, domain.RoleAdmin, principal.Role)
	assert.NotEmpty(t, principal.TokenID)
	assert.WithinDuration(t, expires, principal.Expires, time.Second)

	_, err = NewTokenManager("other", 60).ParseToken(token)
	assert.Error(t, err)
}

func TestTokenExpired(t *testing.T) {
	tm := NewTokenManager("secret", 1)
	token, _, err := tm.GenerateToken("user-1", domain.RoleUser)
	require.NoError(t, err)

	tm.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = tm.ParseToken(token)
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter22", 4)
	require.NoError(t, err)
	assert.NotEqual(t, "hunter22", hash)
	assert.NoError(t, ComparePassword(hash, "hunter22"))
	assert.Error(t, ComparePassword(hash, "hunter23"))
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRevocations(t *testing.T) {
	ctx := context.Background()
	mr, client := newRedis(t)
	revocations := NewRevocations(client)

	require.NoError(t, revocations.Revoke(ctx, "jti-1", time.Now().Add(time.Minute)))
	revoked, err := revocations.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = revocations.IsRevoked(ctx, "jti-2")
	require.NoError(t, err)
	assert.False(t, revoked)

	mr.FastForward(2 * time.Minute)
	revoked, err = revocations.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, revocations.Revoke(ctx, "jti-3", time.Now().Add(-time.Minute)))
	assert.False(t, mr.Exists(revokedKeyPrefix+"jti-3"))
}

type stubUsers map[string]*domain.User

func (s stubUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	if u, ok := s[id]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

func TestAuthMiddleware(t *testing.T) {
	ctx := context.Background()
	_, client := newRedis(t)
	revocations := NewRevocations(client)
	tm := NewTokenManager("secret", 60)
	users := stubUsers{
		"admin-1":  {ID: "admin-1", Role: domain.RoleAdmin, IsActive: true},
		"user-1":   {ID: "user-1", Role: domain.RoleUser, IsActive: true},
		"inactive": {ID: "inactive", Role: domain.RoleUser, IsActive: false},
	}
	mw := NewAuthMiddleware(tm, users, revocations, zap.NewNop())

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.SendStatus(apperrors.ToDomainError(err).HTTPStatus)
		},
	})
	app.Use(mw.Handle)
	app.Get("/public", func(c *fiber.Ctx) error {
		if PrincipalFromContext(c) == nil {
			return c.SendString("anonymous")
		}
		return c.SendString(PrincipalFromContext(c).UserID)
	})
	app.Get("/admin", RequireAdmin(), func(c *fiber.Ctx) error { return c.SendStatus(http.StatusOK) })
	app.Get("/me", RequireUser(), func(c *fiber.Ctx) error { return c.SendStatus(http.StatusOK) })

	bearer := func(userID string, role domain.Role) string {
		token, _, err := tm.GenerateToken(userID, role)
		require.NoError(t, err)
		return "Bearer " + token
	}
	do := func(path, authz string) int {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if authz != "" {
			req.Header.Set(fiber.HeaderAuthorization, authz)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusOK, do("/public", ""))
	assert.Equal(t, http.StatusUnauthorized, do("/me", ""))
	assert.Equal(t, http.StatusUnauthorized, do("/public", "Bearer not-a-token"))
	assert.Equal(t, http.StatusUnauthorized, do("/public", "Basic abc"))
	assert.Equal(t, http.StatusOK, do("/me", bearer("user-1", domain.RoleUser)))
	assert.Equal(t, http.StatusForbidden, do("/admin", bearer("user-1", domain.RoleUser)))
	assert.Equal(t, http.StatusOK, do("/admin", bearer("admin-1", domain.RoleAdmin)))
	assert.Equal(t, http.StatusUnauthorized, do("/me", bearer("missing", domain.RoleUser)))
	assert.Equal(t, http.StatusUnauthorized, do("/me", bearer("inactive", domain.RoleUser)))

	// the stored role wins over the role in the token
	assert.Equal(t, http.StatusForbidden, do("/admin", bearer("user-1", domain.RoleAdmin)))

	token, expires, err := tm.GenerateToken("user-1", domain.RoleUser)
	require.NoError(t, err)
	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	require.NoError(t, revocations.Revoke(ctx, claims.ID, expires))
	assert.Equal(t, http.StatusUnauthorized, do("/me", "Bearer "+token))
}
