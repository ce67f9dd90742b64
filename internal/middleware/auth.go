package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/lshigami/quizhub/internal/apperror"
	"github.com/lshigami/quizhub/internal/auth"
	"github.com/lshigami/quizhub/internal/dto"
	"github.com/lshigami/quizhub/internal/service"
	"github.com/rs/zerolog/log"
)

func abort(ctx *gin.Context, err error) {
	appErr, ok := apperror.As(err)
	if !ok {
		appErr = apperror.Internal("authentication failed", err)
	}
	ctx.AbortWithStatusJSON(apperror.HTTPStatus(appErr), dto.ErrorResponse{Code: appErr.Code, Message: appErr.Message})
}

// Authenticate verifies the bearer token, loads (or registers) the user and
// stores the request identity. The role always comes from the users table.
func Authenticate(verifier auth.TokenVerifier, users service.UserService) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		header := ctx.GetHeader("Authorization")
		scheme, raw, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(raw) == "" {
			abort(ctx, apperror.Unauthenticated("missing bearer token"))
			return
		}

		claims, userID, err := verifier.Verify(strings.TrimSpace(raw))
		if err != nil {
			log.Warn().Err(err).Str("path", ctx.FullPath()).Msg("Rejected bearer token")
			abort(ctx, apperror.Unauthenticated("invalid or expired token"))
			return
		}

		user, err := users.EnsureUser(ctx.Request.Context(), userID, claims.Email, claims.DisplayName())
		if err != nil {
			log.Error().Err(err).Str("userID", userID.String()).Msg("Could not resolve authenticated user")
			abort(ctx, err)
			return
		}

		identity := auth.Identity{UserID: user.ID, Email: user.Email, Role: user.Role}
		ctx.Request = ctx.Request.WithContext(auth.WithIdentity(ctx.Request.Context(), identity))
		ctx.Next()
	}
}

// RequireRole lets the request through only for callers holding role.
func RequireRole(role string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		identity, ok := auth.FromContext(ctx.Request.Context())
		if !ok {
			abort(ctx, apperror.Unauthenticated("authentication required"))
			return
		}
		if identity.Role != role {
			log.Warn().Str("userID", identity.UserID.String()).Str("path", ctx.FullPath()).Msg("Role check failed")
			ctx.AbortWithStatusJSON(http.StatusForbidden, dto.ErrorResponse{Code: "FORBIDDEN", Message: "insufficient permissions"})
			return
		}
		ctx.Next()
	}
}
