package main

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/streadway/amqp"

	"catalogadmin/internal/backend"
	"catalogadmin/internal/handlers"
	"catalogadmin/internal/notify"
	"catalogadmin/internal/repositories"
	"catalogadmin/internal/services"
	"catalogadmin/pkg/rabbitmq"
)

func main() {
	// --- Configuration ---
	viper.SetDefault("APP_PORT", ":8080")
	viper.SetDefault("CATALOG_API_URL", "http://localhost:3000/api/products")
	viper.SetDefault("IMAGE_ORIGIN", "http://localhost:3000")
	viper.SetDefault("RABBITMQ_URL", "")
	viper.SetDefault("EMBEDDED_BACKEND", false)
	viper.SetDefault("OFFLINE_REPO", false)
	viper.SetDefault("DATABASE_URL", "")
	viper.SetDefault("UPLOAD_DIR", "./uploads")
	viper.AutomaticEnv()

	appPort := viper.GetString("APP_PORT")

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// --- Initialize Fiber App ---
	app := fiber.New()
	app.Use(logger.New())

	// --- Optional embedded catalog backend for local development ---
	// When enabled, the admin serves its own backend and talks to itself
	// over the loopback interface.
	if viper.GetBool("EMBEDDED_BACKEND") {
		stub, err := backend.New(backend.Config{
			DatabaseURL: viper.GetString("DATABASE_URL"),
			UploadDir:   viper.GetString("UPLOAD_DIR"),
		}, log)
		if err != nil {
			log.Fatalf("Failed to initialize embedded catalog backend: %v", err)
		}
		stub.RegisterRoutes(app.Group("/api"))
		app.Static("/uploads", viper.GetString("UPLOAD_DIR"))
		viper.Set("CATALOG_API_URL", "http://localhost"+appPort+"/api/products")
		viper.Set("IMAGE_ORIGIN", "http://localhost"+appPort)
	}

	// --- Initialize RabbitMQ Client (optional) ---
	var mqPublisher services.EventPublisher
	if mqURL := viper.GetString("RABBITMQ_URL"); mqURL != "" {
		mqClient, err := rabbitmq.NewClient(rabbitmq.Config{URL: mqURL})
		if err != nil {
			log.Fatalf("Failed to initialize RabbitMQ client: %v", err)
		}
		defer mqClient.Close()
		mqPublisher = mqClient

		// Audit consumer: every published mutation ends up in the log.
		if err := mqClient.ConsumeProductEvents(func(msg amqp.Delivery) error {
			log.WithField("event", string(msg.Body)).Info("product event")
			return nil
		}); err != nil {
			log.Errorf("Failed to start RabbitMQ consumer: %v", err)
		}
	}

	// --- Initialize collaborators, repository, view-models, handlers ---
	center := notify.NewCenter()
	var repo repositories.ProductRepository
	if viper.GetBool("OFFLINE_REPO") {
		// In-memory repository: no catalog backend needed, nothing survives
		// a restart.
		log.Warn("OFFLINE_REPO is set, using the in-memory product repository")
		repo = repositories.NewMockProductRepository()
	} else {
		repo = repositories.NewAPIProductRepository(
			viper.GetString("CATALOG_API_URL"),
			&http.Client{Timeout: 30 * time.Second},
			center,
			log,
		)
	}
	list := services.NewListView(repo, mqPublisher, log)
	handler := handlers.NewProductHandler(list, repo, mqPublisher, center, log, viper.GetString("IMAGE_ORIGIN"))
	handler.RegisterRoutes(app)

	// --- Health Check Endpoint ---
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// --- Start HTTP Server ---
	log.Infof("Starting server on port %s", appPort)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := app.Listen(appPort); err != nil {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	<-quit
	log.Info("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Errorf("Error during Fiber shutdown: %v", err)
	}
	log.Info("Server gracefully stopped")
}
