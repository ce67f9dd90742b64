package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lshigami/quizhub/internal/apperror"
	"github.com/lshigami/quizhub/internal/auth"
	"github.com/lshigami/quizhub/internal/dto"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// RespondError writes err as the JSON error body with the status its kind maps to.
func RespondError(ctx *gin.Context, err error) {
	status := apperror.HTTPStatus(err)
	appErr, ok := apperror.As(err)
	if !ok {
		log.Error().Err(err).Str("path", ctx.FullPath()).Msg("Unclassified error")
		ctx.JSON(status, dto.ErrorResponse{Code: "INTERNAL", Message: "internal server error"})
		return
	}
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", ctx.FullPath()).Msg("Request failed")
		// Storage and upstream details stay in the log.
		ctx.JSON(status, dto.ErrorResponse{Code: appErr.Code, Message: appErr.Message})
		return
	}
	ctx.JSON(status, dto.ErrorResponse{Code: appErr.Code, Message: appErr.Message, Details: appErr.Details})
}

// RespondBindError answers a request whose body or query failed to bind.
func RespondBindError(ctx *gin.Context, err error) {
	log.Warn().Err(err).Str("path", ctx.FullPath()).Msg("Failed to bind request")
	ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Code: "INVALID_REQUEST", Message: "Invalid request body", Details: []string{err.Error()}})
}

// IdentityFrom returns the caller set by the auth middleware, answering 401
// itself when there is none.
func IdentityFrom(ctx *gin.Context) (auth.Identity, bool) {
	identity, ok := auth.FromContext(ctx.Request.Context())
	if !ok {
		RespondError(ctx, apperror.Unauthenticated("authentication required"))
		return auth.Identity{}, false
	}
	return identity, true
}

type HealthController struct {
	db *gorm.DB
}

func NewHealthController(db *gorm.DB) *HealthController {
	return &HealthController{db: db}
}

// Health godoc
// @Summary Liveness and database check
// @Tags Health
// @Produce json
// @Success 200 {object} dto.HealthResponse
// @Failure 503 {object} dto.HealthResponse
// @Router /healthz [get]
func (c *HealthController) Health(ctx *gin.Context) {
	sqlDB, err := c.db.DB()
	if err == nil {
		pingCtx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
		defer cancel()
		err = sqlDB.PingContext(pingCtx)
	}
	if err != nil {
		log.Warn().Err(err).Msg("Health check: database unreachable")
		ctx.JSON(http.StatusServiceUnavailable, dto.HealthResponse{Status: "degraded"})
		return
	}
	ctx.JSON(http.StatusOK, dto.HealthResponse{Status: "ok"})
}
