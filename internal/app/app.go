// Package app wires repositories, services and handlers into the Fiber application.
package app

import (
	"time"

	"librarian/internal/config"
	"librarian/internal/handlers"
	"librarian/internal/middleware"
	"librarian/internal/repositories"
	"librarian/internal/security"
	"librarian/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Deps are the collaborators NewApp needs. Publisher and Registry are optional.
type Deps struct {
	Config    *config.Config
	DB        *gorm.DB
	Logger    zerolog.Logger
	Publisher services.EventPublisher
	// Registry receives the HTTP metrics; nil disables them together with /metrics.
	Registry *prometheus.Registry
	// AccessLog enables Fiber's request logger.
	AccessLog bool
}

// NewApp builds the HTTP application.
func NewApp(deps Deps) *fiber.App {
	userRepo := repositories.NewGORMUserRepository(deps.DB)
	bookRepo := repositories.NewGORMBookRepository(deps.DB)

	authService := services.NewAuthService(userRepo, security.NewPasswordHasher(deps.Config.BcryptCost), deps.Config.JWTSecret)
	bookService := services.NewBookService(bookRepo, deps.Publisher, deps.Logger)

	app := fiber.New(fiber.Config{
		AppName:      "librarian",
		ErrorHandler: handlers.ErrorHandler(deps.Logger),
	})

	if deps.AccessLog {
		app.Use(fiberlogger.New())
	}
	if deps.Registry != nil {
		app.Use(middleware.NewMetrics(deps.Registry).Handler())
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{})))
	}
	// panics become 500s
	app.Use(recover.New())

	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("Hello from librarian!")
	})
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	api := app.Group("/api")
	handlers.NewAuthHandler(authService).RegisterRoutes(api)
	handlers.NewBookHandler(bookService, authService).RegisterRoutes(api)

	return app
}
