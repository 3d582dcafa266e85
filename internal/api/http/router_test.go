package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	nethttp "net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/event-service/internal/api/http/handlers"
	"github.com/spec-kit/event-service/internal/auth"
	"github.com/spec-kit/event-service/internal/config"
	"github.com/spec-kit/event-service/internal/events"
	"github.com/spec-kit/event-service/internal/observability"
	"github.com/spec-kit/event-service/internal/persistence"
	"github.com/spec-kit/event-service/internal/ratelimit"
	"github.com/spec-kit/event-service/internal/repository"
	"github.com/spec-kit/event-service/internal/service"
	apperrors "github.com/spec-kit/event-service/pkg/util/errorutil"
)

const (
	adminEmail    = "admin@example.com"
	adminPassword = "admin-secret"
)

type testServer struct {
	app *fiber.App
}

func newTestServer(t *testing.T, rateLimit int) *testServer {
	t.Helper()
	ctx := context.Background()
	logger := zap.NewNop()

	db, err := persistence.NewSQLite(ctx, config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "api.db")}, logger)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, persistence.RunSQLiteMigrations(ctx, db.DB, logger))
	store := repository.NewSQLiteStore(db.DB)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := config.Config{
		App:    config.AppConfig{Name: "event-service", Version: "test"},
		Auth:   config.AuthConfig{JWTSecret: "router-secret", AccessTokenTTLMinutes: 30, BcryptCost: bcrypt.MinCost},
		Upload: config.UploadConfig{MaxBytes: 1 << 20},
	}
	metrics := observability.NewMetrics()
	deps := service.Dependencies{
		Store:      store,
		Dispatcher: events.NewInMemoryDispatcher(logger),
		Metrics:    metrics,
		Logger:     logger,
	}
	revocations := auth.NewRevocations(client)
	authService := service.NewAuthService(cfg, deps, revocations)
	_, err = authService.SeedAdmin(ctx, config.AdminSeedConfig{Name: "Admin", Email: adminEmail, Password: adminPassword})
	require.NoError(t, err)

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logger)})
	RegisterMiddlewares(app, logger, metrics, 5*time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("event-service", "test", map[string]handlers.Pinger{"database": store}, nil),
		Auth:           handlers.NewAuthHandler(authService),
		Events:         handlers.NewEventsHandler(service.NewEventService(deps), service.NewRegistrationService(deps)),
		Users:          handlers.NewUsersHandler(service.NewUserService(cfg.Auth, deps)),
		Upload:         handlers.NewUploadHandler(service.NewIngestionService(deps), cfg.Upload.MaxBytes),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), store.Users(), revocations, logger),
		Limiter:        ratelimit.New(client, rateLimit, time.Minute, logger),
		Metrics:        metrics,
	})
	return &testServer{app: app}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	return s.send(t, req, token)
}

func (s *testServer) send(t *testing.T, req *nethttp.Request, token string) (int, map[string]any) {
	t.Helper()
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp.StatusCode, out
}

func (s *testServer) login(t *testing.T, email, password string) string {
	t.Helper()
	status, body := s.do(t, fiber.MethodPost, "/api/auth/login", "", map[string]string{"email": email, "password": password})
	require.Equal(t, fiber.StatusOK, status, body)
	return data(body)["token"].(string)
}

func data(body map[string]any) map[string]any {
	return body["data"].(map[string]any)
}

func TestEventRegistrationFlow(t *testing.T) {
	srv := newTestServer(t, 100)
	adminToken := srv.login(t, adminEmail, adminPassword)

	status, body := srv.do(t, fiber.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Ada", "email": "ada@example.com", "password": "password1",
	})
	require.Equal(t, fiber.StatusCreated, status, body)
	adaToken := data(body)["token"].(string)

	status, body = srv.do(t, fiber.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Bob", "email": "bob@example.com", "password": "password2",
	})
	require.Equal(t, fiber.StatusCreated, status, body)
	bobToken := data(body)["token"].(string)

	status, body = srv.do(t, fiber.MethodPost, "/api/events", adminToken, map[string]any{
		"name":     "Go Meetup",
		"date":     time.Now().Add(72 * time.Hour).UTC().Format(time.RFC3339),
		"capacity": 1,
		"price":    12.5,
	})
	require.Equal(t, fiber.StatusCreated, status, body)
	eventID := data(body)["id"].(string)
	assert.EqualValues(t, 1, data(body)["availableSlots"])

	status, body = srv.do(t, fiber.MethodGet, "/api/events", "", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["data"], 1)
	assert.EqualValues(t, 1, body["pagination"].(map[string]any)["total"])

	status, body = srv.do(t, fiber.MethodPost, "/api/events/"+eventID+"/register", adaToken, map[string]string{"notes": "front row"})
	require.Equal(t, fiber.StatusCreated, status, body)
	registrationID := data(body)["id"].(string)

	status, body = srv.do(t, fiber.MethodPost, "/api/events/"+eventID+"/register", bobToken, nil)
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, apperrors.CodeConflict, body["code"])

	status, body = srv.do(t, fiber.MethodGet, "/api/events/user/registrations", adaToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["data"], 1)

	status, body = srv.do(t, fiber.MethodGet, "/api/events/"+eventID, adminToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, data(body)["registrations"], 1)
	assert.EqualValues(t, 0, data(body)["availableSlots"])

	status, body = srv.do(t, fiber.MethodGet, "/api/events/"+eventID, "", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.NotContains(t, data(body), "registrations")

	status, body = srv.do(t, fiber.MethodPatch, "/api/registrations/"+registrationID+"/payment", adminToken, map[string]string{"paymentStatus": "paid"})
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Equal(t, "paid", data(body)["paymentStatus"])

	status, _ = srv.do(t, fiber.MethodDelete, "/api/events/"+eventID+"/register", adaToken, nil)
	require.Equal(t, fiber.StatusOK, status)

	status, body = srv.do(t, fiber.MethodPost, "/api/events/"+eventID+"/register", bobToken, nil)
	require.Equal(t, fiber.StatusCreated, status, body)
}

func TestAccessControl(t *testing.T) {
	srv := newTestServer(t, 100)
	adminToken := srv.login(t, adminEmail, adminPassword)
	_, body := srv.do(t, fiber.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Ada", "email": "ada@example.com", "password": "password1",
	})
	userToken := data(body)["token"].(string)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		status int
		code   string
	}{
		{"anonymous create event", fiber.MethodPost, "/api/events", "", fiber.StatusUnauthorized, apperrors.CodeUnauthorized},
		{"user lists accounts", fiber.MethodGet, "/api/users", userToken, fiber.StatusForbidden, apperrors.CodeForbidden},
		{"user reads tables", fiber.MethodGet, "/api/upload/tables", userToken, fiber.StatusForbidden, apperrors.CodeForbidden},
		{"garbage token", fiber.MethodGet, "/api/auth/profile", "not-a-token", fiber.StatusUnauthorized, apperrors.CodeUnauthorized},
		{"unknown route", fiber.MethodGet, "/api/nowhere", "", fiber.StatusNotFound, apperrors.CodeNotFound},
		{"missing event", fiber.MethodGet, "/api/events/00000000-0000-0000-0000-000000000000", "", fiber.StatusNotFound, apperrors.CodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := srv.do(t, tt.method, tt.path, tt.token, nil)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, body["code"])
		})
	}

	status, body := srv.do(t, fiber.MethodGet, "/api/users/stats/overview", adminToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 2, data(body)["totalUsers"])
}

func TestLogoutRevokesToken(t *testing.T) {
	srv := newTestServer(t, 100)
	token := srv.login(t, adminEmail, adminPassword)

	status, _ := srv.do(t, fiber.MethodGet, "/api/auth/profile", token, nil)
	require.Equal(t, fiber.StatusOK, status)

	status, _ = srv.do(t, fiber.MethodPost, "/api/auth/logout", token, nil)
	require.Equal(t, fiber.StatusOK, status)

	status, body := srv.do(t, fiber.MethodGet, "/api/auth/profile", token, nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, apperrors.CodeUnauthorized, body["code"])
}

func TestLoginRateLimited(t *testing.T) {
	srv := newTestServer(t, 2)
	creds := map[string]string{"email": adminEmail, "password": "wrong-password"}

	for i := 0; i < 2; i++ {
		status, _ := srv.do(t, fiber.MethodPost, "/api/auth/login", "", creds)
		assert.Equal(t, fiber.StatusUnauthorized, status)
	}
	status, body := srv.do(t, fiber.MethodPost, "/api/auth/login", "", creds)
	assert.Equal(t, fiber.StatusTooManyRequests, status)
	assert.Equal(t, apperrors.CodeRateLimited, body["code"])
}

func TestUploadTableLifecycle(t *testing.T) {
	srv := newTestServer(t, 100)
	token := srv.login(t, adminEmail, adminPassword)

	csv := "Product Name,Price,Stock\nWidget,9.99,10\nGadget,19.50,3\nSprocket,4.25,120\n"
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("file", "inventory.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(csv))
	require.NoError(t, err)
	require.NoError(t, form.WriteField("tableName", "inventory"))
	require.NoError(t, form.Close())

	req := httptest.NewRequest(fiber.MethodPost, "/api/upload/excel", &buf)
	req.Header.Set(fiber.HeaderContentType, form.FormDataContentType())
	status, body := srv.send(t, req, token)
	require.Equal(t, fiber.StatusCreated, status, body)
	table := data(body)["table"].(map[string]any)
	assert.Equal(t, "inventory", table["name"])
	assert.EqualValues(t, 3, table["rowCount"])

	status, body = srv.do(t, fiber.MethodGet, "/api/upload/tables/inventory?limit=2", token, nil)
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Len(t, data(body)["rows"], 2)
	assert.EqualValues(t, 3, body["pagination"].(map[string]any)["total"])

	status, _ = srv.do(t, fiber.MethodDelete, "/api/upload/tables/inventory", token, nil)
	require.Equal(t, fiber.StatusOK, status)

	status, body = srv.do(t, fiber.MethodGet, "/api/upload/tables", token, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Empty(t, body["data"])
}

func TestUploadRequiresFile(t *testing.T) {
	srv := newTestServer(t, 100)
	token := srv.login(t, adminEmail, adminPassword)

	status, body := srv.do(t, fiber.MethodPost, "/api/upload/excel", token, map[string]string{"tableName": "x"})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, apperrors.CodeValidation, body["code"])
}

func TestHealthAndMetrics(t *testing.T) {
	srv := newTestServer(t, 100)

	status, body := srv.do(t, fiber.MethodGet, "/health/ready", "", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "ok", data(body)["dependencies"].(map[string]any)["database"])

	req := httptest.NewRequest(fiber.MethodGet, "/metrics", nil)
	resp, err := srv.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "# TYPE")
}
