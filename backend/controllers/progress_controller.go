package controllers

import (
	"philosofium/backend/assessment"
	"philosofium/backend/config"
	"philosofium/backend/utils"

	"github.com/gofiber/fiber/v2"
)

type ProgressController struct {
	Service *assessment.Service
	Cfg     *config.Config
}

func NewProgressController(svc *assessment.Service, cfg *config.Config) *ProgressController {
	return &ProgressController{Service: svc, Cfg: cfg}
}

// GetTestHistory godoc
// @Summary Get user's test attempts
// @Description Returns the authenticated user's attempts, newest first
// @Tags progress
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} utils.PaginatedResponse
// @Failure 401 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /progress/tests [get]
func (pc *ProgressController) GetTestHistory(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, pc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	page := c.QueryInt("page", 1)
	pageSize := c.QueryInt("page_size", 20)
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	attempts, total, err := pc.Service.History(c.UserContext(), userID, page, pageSize)
	if err != nil {
		return utils.HandleError(c, err)
	}

	result := make([]fiber.Map, 0, len(attempts))
	for i := range attempts {
		result = append(result, attemptView(&attempts[i]))
	}
	return utils.Paginate(c, result, total, page, pageSize)
}
