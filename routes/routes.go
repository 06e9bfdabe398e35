package routes

import (
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"gorm.io/gorm"

	controller "promopilot/controllers"
	"promopilot/engine"
	"promopilot/middleware"
)

func SetupRoutes(app *fiber.App, db *gorm.DB, orchestrator *engine.Orchestrator) {
	// Initialize controllers with their respective loggers
	triggerController := controller.NewTriggerController(orchestrator, log.New(os.Stdout, "TRIGGER: ", log.LstdFlags))
	automationController := controller.NewAutomationController(db, log.New(os.Stdout, "AUTOMATION: ", log.LstdFlags))

	// Setup health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Machine-to-machine trigger endpoint, shared-secret auth
	trigger := app.Group("/api/v1/automations/trigger",
		middleware.TriggerAuth(),
		middleware.TriggerRateLimiter(),
		logger.New(logger.Config{
			Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
		}))
	trigger.Post("/", triggerController.HandleTrigger)

	// Automation rule API, user session auth
	api := app.Group("/api/v1", middleware.Protected(), logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	automation := api.Group("/automations")
	automation.Post("/", automationController.CreateAutomation)
	automation.Get("/", automationController.GetAutomations)
	automation.Get("/:id", automationController.GetAutomation)
	automation.Put("/:id", automationController.UpdateAutomation)
	automation.Post("/:id/toggle", automationController.ToggleAutomation)
	automation.Delete("/:id", automationController.DeleteAutomation)
	automation.Get("/:id/logs", automationController.GetAutomationLogs)

	// Setup 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "Not Found",
			"message": "The requested resource was not found",
		})
	})

	log.Println("Routes initialized successfully")
}
