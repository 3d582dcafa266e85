package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/event-service/internal/api/http/handlers"
	"github.com/spec-kit/event-service/internal/auth"
	"github.com/spec-kit/event-service/internal/observability"
	"github.com/spec-kit/event-service/internal/ratelimit"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Events         *handlers.EventsHandler
	Users          *handlers.UsersHandler
	Upload         *handlers.UploadHandler
	AuthMiddleware *auth.AuthMiddleware
	Limiter        *ratelimit.Limiter
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Metrics.Registry(), promhttp.HandlerOpts{})))
	}

	api := app.Group("/api", cfg.AuthMiddleware.Handle)

	authGroup := api.Group("/auth")
	authGroup.Post("/register", cfg.Limiter.Middleware("register"), cfg.Auth.Register)
	authGroup.Post("/login", cfg.Limiter.Middleware("login"), cfg.Auth.Login)
	authGroup.Get("/profile", auth.RequireUser(), cfg.Auth.Profile)
	authGroup.Post("/logout", auth.RequireUser(), cfg.Auth.Logout)

	events := api.Group("/events")
	events.Get("/", cfg.Events.List)
	events.Get("/user/registrations", auth.RequireUser(), cfg.Events.MyRegistrations)
	events.Post("/complete-past", auth.RequireAdmin(), cfg.Events.CompletePast)
	events.Get("/:id", cfg.Events.Get)
	events.Post("/", auth.RequireAdmin(), cfg.Events.Create)
	events.Put("/:id", auth.RequireAdmin(), cfg.Events.Update)
	events.Delete("/:id", auth.RequireAdmin(), cfg.Events.Delete)
	events.Post("/:id/register", auth.RequireUser(), cfg.Events.Register)
	events.Delete("/:id/register", auth.RequireUser(), cfg.Events.Unregister)
	events.Get("/:id/registrations", auth.RequireAdmin(), cfg.Events.Registrations)

	registrations := api.Group("/registrations", auth.RequireAdmin())
	registrations.Patch("/:id/status", cfg.Events.UpdateStatus)
	registrations.Patch("/:id/payment", cfg.Events.UpdatePayment)

	users := api.Group("/users", auth.RequireAdmin())
	users.Get("/", cfg.Users.List)
	users.Get("/stats/overview", cfg.Users.Stats)
	users.Get("/:id", cfg.Users.Get)
	users.Put("/:id", cfg.Users.Update)
	users.Delete("/:id", cfg.Users.Delete)

	upload := api.Group("/upload", auth.RequireAdmin())
	upload.Post("/excel", cfg.Limiter.Middleware("upload"), cfg.Upload.Excel)
	upload.Get("/tables", cfg.Upload.ListTables)
	upload.Get("/tables/:tableName", cfg.Upload.ReadTable)
	upload.Delete("/tables/:tableName", cfg.Upload.DropTable)
}
