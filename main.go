package main

import (
	"context"
	"log"
	"os"

	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"

	"promopilot/config"
	"promopilot/engine"
	"promopilot/routes"
	"promopilot/utils"
	"promopilot/worker"
)

func main() {
	logger := log.New(os.Stdout, "PROMOPILOT: ", log.Ldate|log.Ltime|log.Lshortfile)

	// Load configuration
	if err := config.LoadConfig(); err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize Sentry when a DSN is configured
	if config.AppConfig.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         config.AppConfig.SentryDSN,
			Environment: config.AppConfig.Environment,
		}); err != nil {
			logger.Printf("Sentry initialization failed: %v", err)
		}
	}

	// Initialize database connection
	if err := config.ConnectDB(); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	// Optional redis client for the scheduler lock
	var redisClient *redis.Client
	if config.AppConfig.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     config.AppConfig.Redis.Address,
			Password: config.AppConfig.Redis.Password,
			DB:       config.AppConfig.Redis.DB,
		})
	}

	// Wire the trigger engine and its collaborators
	dispatcher := &engine.Dispatcher{
		DB:         config.DB,
		Ledger:     engine.NewSendLedger(config.DB),
		Credits:    engine.NewCreditLedger(config.DB),
		Email:      utils.NewMailer(),
		SMS:        utils.NewSMSClient(),
		Compositor: utils.NewCompositorClient(),
		Media:      utils.NewMediaStoreClient(),
		Costs: engine.CostTable{
			Email: config.AppConfig.EmailCreditCost,
			SMS:   config.AppConfig.SMSCreditCost,
			MMS:   config.AppConfig.MMSCreditCost,
		},
		Logger: log.New(os.Stdout, "DISPATCH: ", log.LstdFlags),
	}
	orchestrator := &engine.Orchestrator{
		DB:         config.DB,
		Resolver:   engine.NewContactResolver(config.DB),
		Dispatcher: dispatcher,
		Holidays:   utils.NewHolidayCalendar(config.DB),
		Activity:   utils.NewActivityClient(),
		Logger:     log.New(os.Stdout, "ORCHESTRATOR: ", log.LstdFlags),
		LogError:   utils.LogError,
	}

	// Initialize and start the scheduled trigger worker
	automationWorker := worker.NewAutomationWorker(
		orchestrator,
		config.AppConfig.TriggerInterval,
		redisClient,
		log.New(os.Stdout, "WORKER: ", log.LstdFlags),
	)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go automationWorker.Start(ctx)

	// Create Fiber app
	app := fiber.New()

	// Setup routes
	routes.SetupRoutes(app, config.DB, orchestrator)

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "running",
			"version": "1.0.0",
		})
	})

	// Start server
	logger.Printf("Server starting on port %s", config.AppConfig.ServerPort)
	if err := app.Listen(":" + config.AppConfig.ServerPort); err != nil {
		logger.Fatalf("Failed to start server: %v", err)
	}
}
