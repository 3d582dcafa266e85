package service

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/event-service/internal/auth"
	"github.com/spec-kit/event-service/internal/config"
	"github.com/spec-kit/event-service/internal/domain"
	apperrors "github.com/spec-kit/event-service/pkg/util/errorutil"
)

func newAuthService(t *testing.T, f *fixture) (*AuthService, *auth.Revocations) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	revocations := auth.NewRevocations(client)
	return NewAuthService(testConfig(), f.deps, revocations), revocations
}

func TestRegisterUserAndLogin(t *testing.T) {
	f := newFixture(t)
	svc, _ := newAuthService(t, f)

	session, err := svc.RegisterUser(f.ctx, SignUpInput{Name: " Ada ", Email: " Ada@Example.com ", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "Ada", session.User.Name)
	assert.Equal(t, "ada@example.com", session.User.Email)
	assert.Equal(t, domain.RoleUser, session.User.Role)
	assert.NotEmpty(t, session.Token)

	claims, err := svc.TokenManager().ParseToken(session.Token)
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, claims.Subject)
	assert.Equal(t, domain.RoleUser, claims.Role)

	_, err = svc.RegisterUser(f.ctx, SignUpInput{Name: "Ada", Email: "ADA@example.com", Password: "secret1"})
	assertCode(t, err, apperrors.CodeConflict)

	login, err := svc.Login(f.ctx, "ADA@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, login.User.ID)

	_, err = svc.Login(f.ctx, "ada@example.com", "wrong-password")
	assertCode(t, err, apperrors.CodeUnauthorized)
	_, err = svc.Login(f.ctx, "nobody@example.com", "secret1")
	assertCode(t, err, apperrors.CodeUnauthorized)
	_, err = svc.Login(f.ctx, "", "")
	assertCode(t, err, apperrors.CodeValidation)
}

func TestRegisterUserValidation(t *testing.T) {
	f := newFixture(t)
	svc, _ := newAuthService(t, f)

	cases := map[string]SignUpInput{
		"short name":     {Name: "A", Email: "a@example.com", Password: "secret1"},
		"invalid email":  {Name: "Ada", Email: "not-an-email", Password: "secret1"},
		"display name":   {Name: "Ada", Email: "Ada <ada@example.com>", Password: "secret1"},
		"short password": {Name: "Ada", Email: "ada@example.com", Password: "12345"},
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.RegisterUser(f.ctx, input)
			assertCode(t, err, apperrors.CodeValidation)
		})
	}
}

func TestLoginRejectsDeactivatedAccount(t *testing.T) {
	f := newFixture(t)
	svc, _ := newAuthService(t, f)
	session, err := svc.RegisterUser(f.ctx, SignUpInput{Name: "Ada", Email: "ada@example.com", Password: "secret1"})
	require.NoError(t, err)

	inactive := false
	_, err = newUserService(f).UpdateUser(f.ctx, f.admin, session.User.ID, UserUpdate{IsActive: &inactive})
	require.NoError(t, err)

	_, err = svc.Login(f.ctx, "ada@example.com", "secret1")
	assertCode(t, err, apperrors.CodeUnauthorized)
}

func TestLogoutRevokesToken(t *testing.T) {
	f := newFixture(t)
	svc, revocations := newAuthService(t, f)
	session, err := svc.RegisterUser(f.ctx, SignUpInput{Name: "Ada", Email: "ada@example.com", Password: "secret1"})
	require.NoError(t, err)

	claims, err := svc.TokenManager().ParseToken(session.Token)
	require.NoError(t, err)
	principal := claims.Principal()

	profile, err := svc.Profile(f.ctx, principal)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", profile.Email)

	revoked, err := revocations.IsRevoked(f.ctx, principal.TokenID)
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, svc.Logout(f.ctx, principal))
	revoked, err = revocations.IsRevoked(f.ctx, principal.TokenID)
	require.NoError(t, err)
	assert.True(t, revoked)

	assertCode(t, svc.Logout(f.ctx, nil), apperrors.CodeUnauthorized)
}

func TestLogoutWithoutRevocationStore(t *testing.T) {
	f := newFixture(t)
	svc := NewAuthService(testConfig(), f.deps, nil)
	user := f.createUsers(t, 1)[0]
	assert.NoError(t, svc.Logout(f.ctx, user))
}

func TestSeedAdminIsIdempotent(t *testing.T) {
	f := newFixture(t)
	svc, _ := newAuthService(t, f)
	seed := config.AdminSeedConfig{Name: "Root", Email: "Root@Example.com", Password: "admin123"}

	created, err := svc.SeedAdmin(f.ctx, seed)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = svc.SeedAdmin(f.ctx, seed)
	require.NoError(t, err)
	assert.False(t, created)

	session, err := svc.Login(f.ctx, "root@example.com", "admin123")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, session.User.Role)

	_, err = svc.SeedAdmin(f.ctx, config.AdminSeedConfig{Email: "fresh@example.com", Password: "123"})
	assertCode(t, err, apperrors.CodeValidation)
}
