package admin

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/lshigami/quizhub/internal/apperror"
	"github.com/lshigami/quizhub/internal/controller"
	"github.com/lshigami/quizhub/internal/service"
)

type AnalyticsController struct {
	analytics service.AnalyticsService
}

func NewAnalyticsController(analytics service.AnalyticsService) *AnalyticsController {
	return &AnalyticsController{analytics: analytics}
}

// Churn godoc
// @Summary (Admin) Churn report
// @Tags Admin - Analytics
// @Produce json
// @Security BearerAuth
// @Param inactive_days query int false "Days without activity that count as churned"
// @Success 200 {object} dto.ChurnReport
// @Failure 400 {object} dto.ErrorResponse
// @Router /admin/analytics/churn [get]
func (c *AnalyticsController) Churn(ctx *gin.Context) {
	days := 0
	if raw := ctx.Query("inactive_days"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			controller.RespondError(ctx, apperror.Validation("INVALID_INACTIVE_DAYS", "inactive_days must be a positive integer"))
			return
		}
		days = v
	}
	resp, err := c.analytics.Churn(ctx.Request.Context(), days)
	if err != nil {
		controller.RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, resp)
}
