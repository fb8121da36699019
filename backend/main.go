package main

import (
	"log"

	"philosofium/backend/config"
	"philosofium/backend/middleware"
	"philosofium/backend/routes"
	"philosofium/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	// Initialize logger
	logger := utils.InitLogger()

	// Initialize database
	db, err := utils.InitDB(cfg)
	if err != nil {
		logger.Fatalf("Error initializing database: %v", err)
	}

	// Create Fiber app
	app := fiber.New()

	// Middleware
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	app.Use(middleware.LoggingMiddleware(logger))

	// Setup routes
	svc := routes.NewAssessmentService(db, cfg, logger)
	routes.SetupRoutes(app, db, cfg, svc)

	// Start server
	logger.Fatal(app.Listen(":" + cfg.ServerPort))
}
