package web

import (
	"github.com/donorpilot/donorpilot/pkg/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

// NewApp builds the fiber application with all automation routes mounted.
func NewApp(automationService *services.Automation) *fiber.App {
	handlers := NewAPIHandlers(automationService, validator.New())

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get("/health", handlers.HealthCheck)

	a := app.Group("/automations")
	a.Get("/", handlers.GetAutomations)
	a.Post("/", handlers.CreateAutomation)
	a.Get("/:id", handlers.GetAutomation)
	a.Patch("/:id", handlers.UpdateAutomation)
	a.Delete("/:id", handlers.DeleteAutomation)
	a.Post("/:id/activate", handlers.ActivateAutomation)
	a.Post("/:id/pause", handlers.PauseAutomation)
	a.Get("/:id/executions", handlers.GetAutomationExecutions)

	return app
}
