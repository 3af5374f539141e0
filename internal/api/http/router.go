package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/helpdesk-sla/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-sla/internal/auth"
	"github.com/spec-kit/helpdesk-sla/internal/domain"
	"github.com/spec-kit/helpdesk-sla/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	SLA            *handlers.SLAHandler
	Triggers       *handlers.TriggerHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Metrics.Registry(), promhttp.HandlerOpts{})))
	}

	api := app.Group("/api/v1")

	trigger := cfg.AuthMiddleware.Trigger
	api.Get("/sla/escalations/check", trigger, cfg.Triggers.CheckEscalations)
	api.Post("/sla/escalations/check", trigger, cfg.Triggers.CheckEscalations)
	api.Get("/automation/no-response/check", trigger, cfg.Triggers.CheckNoResponse)
	api.Post("/automation/no-response/check", trigger, cfg.Triggers.CheckNoResponse)

	authenticated := cfg.AuthMiddleware.Handle
	staffOnly := auth.RequireRole(domain.RoleAgent, domain.RoleAdmin)
	api.Get("/tickets/:id/sla", authenticated, cfg.SLA.GetStatus)
	api.Get("/tickets/:id/escalations", authenticated, cfg.SLA.ListEscalations)
	api.Post("/tickets/:id/sla/pause", authenticated, staffOnly, cfg.SLA.Pause)
	api.Post("/tickets/:id/sla/resume", authenticated, staffOnly, cfg.SLA.Resume)
}
