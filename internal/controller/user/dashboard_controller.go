package user

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lshigami/quizhub/internal/controller"
	"github.com/lshigami/quizhub/internal/service"
)

type DashboardController struct {
	analytics   service.AnalyticsService
	suggestions service.SuggestionService
}

func NewDashboardController(analytics service.AnalyticsService, suggestions service.SuggestionService) *DashboardController {
	return &DashboardController{analytics: analytics, suggestions: suggestions}
}

// Dashboard godoc
// @Summary My progress summary
// @Tags Me
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.DashboardResponse
// @Router /me/dashboard [get]
func (c *DashboardController) Dashboard(ctx *gin.Context) {
	identity, ok := controller.IdentityFrom(ctx)
	if !ok {
		return
	}
	resp, err := c.analytics.Dashboard(ctx.Request.Context(), identity)
	if err != nil {
		controller.RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// Suggestions godoc
// @Summary Study suggestion
// @Description Generated from my results. Falls back to the last cached suggestion, then to default text.
// @Tags Me
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.SuggestionResponse
// @Router /me/suggestions [get]
func (c *DashboardController) Suggestions(ctx *gin.Context) {
	identity, ok := controller.IdentityFrom(ctx)
	if !ok {
		return
	}
	resp, err := c.suggestions.Suggest(ctx.Request.Context(), identity)
	if err != nil {
		controller.RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, resp)
}
