package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/openclass/lms-api/internal/config"
	"github.com/openclass/lms-api/internal/handler"
	"github.com/openclass/lms-api/internal/middleware"
	"github.com/openclass/lms-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	CourseHandler       *handler.CourseHandler
	AssignmentHandler   *handler.AssignmentHandler
	ForumHandler        *handler.ForumHandler
	TicketHandler       *handler.TicketHandler
	NotificationHandler *handler.NotificationHandler
	ChatHandler         *handler.ChatHandler
	DashboardHandler    *handler.DashboardHandler
	JWTMiddleware       fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	app.Get("/metrics", observability.MetricsHandler())

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.CourseHandler != nil {
		courses := app.Group("/api/v1/courses", jwtMiddleware)
		deps.CourseHandler.Register(courses)
	}

	if deps.AssignmentHandler != nil {
		assignments := app.Group("/api/v1/assignments", jwtMiddleware)
		deps.AssignmentHandler.Register(assignments)
	}

	if deps.ForumHandler != nil {
		forum := app.Group("/api/v1/forum", jwtMiddleware)
		deps.ForumHandler.Register(forum)
	}

	if deps.TicketHandler != nil {
		tickets := app.Group("/api/v1/tickets", jwtMiddleware)
		deps.TicketHandler.Register(tickets)
	}

	if deps.NotificationHandler != nil {
		notifications := app.Group("/api/v1/notifications", jwtMiddleware)
		deps.NotificationHandler.Register(notifications)
	}

	if deps.ChatHandler != nil {
		chat := app.Group("/api/v1/chat", jwtMiddleware)
		deps.ChatHandler.Register(chat)
	}

	if deps.DashboardHandler != nil {
		dashboard := app.Group("/api/v1/dashboard", jwtMiddleware,
			middleware.RateLimit("dashboard", 30, time.Minute))
		deps.DashboardHandler.Register(dashboard)
	}
}
