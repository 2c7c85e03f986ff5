package http

import (
	nethttp "net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/opsdeck/ticket-triage/internal/api/http/handlers"
	"github.com/opsdeck/ticket-triage/internal/domain"
	"github.com/opsdeck/ticket-triage/internal/identity"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health   *handlers.HealthHandler
	Tickets  *handlers.TicketsHandler
	Users    *handlers.UsersHandler
	Identity *identity.IdentityMiddleware
	Metrics  nethttp.Handler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics))

	api := app.Group("/api", cfg.Identity.Handle)

	tickets := api.Group("/tickets")
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Get("/my", cfg.Tickets.MyTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Post("/:id/triage/retry",
		identity.RequireRole(domain.UserRoleModerator, domain.UserRoleAdmin),
		cfg.Tickets.RetryTriage)

	users := api.Group("/users", identity.RequireRole(domain.UserRoleAdmin))
	users.Get("/", cfg.Users.ListUsers)
	users.Put("/:id", cfg.Users.UpdateUser)
}
