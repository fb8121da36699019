package routes

import (
	"log"

	"philosofium/backend/assessment"
	"philosofium/backend/config"
	"philosofium/backend/controllers"
	"philosofium/backend/middleware"
	"philosofium/backend/repository"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// NewAssessmentService wires the assessment core to the gorm repositories.
func NewAssessmentService(db *gorm.DB, cfg *config.Config, logger *log.Logger, opts ...assessment.Option) *assessment.Service {
	base := []assessment.Option{
		assessment.WithLogger(logger),
		assessment.WithSubmitGrace(cfg.SubmitGrace),
	}
	return assessment.NewService(
		repository.NewCatalogRepository(db),
		repository.NewAttemptRepository(db),
		append(base, opts...)...,
	)
}

func SetupRoutes(app *fiber.App, db *gorm.DB, cfg *config.Config, svc *assessment.Service) {
	catalog := repository.NewCatalogRepository(db)

	// Auth routes
	authController := controllers.NewAuthController(db, cfg)
	app.Post("/api/auth/register", authController.Register)
	app.Post("/api/auth/login", authController.Login)

	// Middleware
	authMiddleware := middleware.AuthMiddleware(cfg)
	adminMiddleware := middleware.AdminMiddleware(cfg, db)

	// Progress routes
	progressController := controllers.NewProgressController(svc, cfg)
	app.Get("/api/progress/tests", authMiddleware, progressController.GetTestHistory)

	// Tests routes
	testsController := controllers.NewTestsController(svc, catalog, cfg)
	tests := app.Group("/api/tests", authMiddleware)
	tests.Get("/available", testsController.GetAvailableTests)
	tests.Get("/:id/eligibility", testsController.CheckEligibility)
	tests.Post("/:id/start", testsController.StartTest)
	tests.Get("/:id/session", testsController.GetActiveSession)
	tests.Get("/:id/questions", testsController.GetQuestions)

	attempts := app.Group("/api/attempts", authMiddleware)
	attempts.Get("/:id", testsController.GetAttemptResult)
	attempts.Post("/:id/submit", testsController.SubmitTest)

	// Admin routes for tests
	analyticsController := controllers.NewAnalyticsController(svc, cfg)
	adminTests := app.Group("/api/admin/tests", authMiddleware, adminMiddleware)
	adminTests.Post("/", testsController.CreateTest)
	adminTests.Put("/:id/settings", testsController.UpdateTestSettings)
	adminTests.Post("/:id/questions", testsController.AddQuestion)
	adminTests.Get("/:id/statistics", analyticsController.GetTestStatistics)

	adminAttempts := app.Group("/api/admin/attempts", authMiddleware, adminMiddleware)
	adminAttempts.Post("/sweep", testsController.SweepExpiredAttempts)
	adminAttempts.Post("/:id/abandon", testsController.AbandonAttempt)
}
