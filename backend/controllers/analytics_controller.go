package controllers

import (
	"philosofium/backend/assessment"
	"philosofium/backend/config"
	"philosofium/backend/utils"

	"github.com/gofiber/fiber/v2"
)

type AnalyticsController struct {
	Service *assessment.Service
	Cfg     *config.Config
}

func NewAnalyticsController(svc *assessment.Service, cfg *config.Config) *AnalyticsController {
	return &AnalyticsController{Service: svc, Cfg: cfg}
}

// GetTestStatistics возвращает сводную статистику по завершённым попыткам теста
func (ac *AnalyticsController) GetTestStatistics(c *fiber.Ctx) error {
	testID, err := paramID(c, "id")
	if err != nil {
		return utils.BadRequest(c, "Invalid test ID")
	}

	stats, err := ac.Service.Statistics(c.UserContext(), testID)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, stats)
}
