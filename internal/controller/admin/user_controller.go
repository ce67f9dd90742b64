package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lshigami/quizhub/internal/controller"
	"github.com/lshigami/quizhub/internal/dto"
	"github.com/lshigami/quizhub/internal/service"
)

type UserController struct {
	userService service.UserService
}

func NewUserController(userService service.UserService) *UserController {
	return &UserController{userService: userService}
}

// List godoc
// @Summary (Admin) List users
// @Tags Admin - Users
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} dto.UserListResponse
// @Router /admin/users [get]
func (c *UserController) List(ctx *gin.Context) {
	var page dto.PageQuery
	if err := ctx.ShouldBindQuery(&page); err != nil {
		controller.RespondBindError(ctx, err)
		return
	}
	resp, err := c.userService.ListUsers(ctx.Request.Context(), page)
	if err != nil {
		controller.RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// UpdateRole godoc
// @Summary (Admin) Change a user's role
// @Tags Admin - Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param role body dto.UpdateRoleRequest true "New role"
// @Success 200 {object} dto.UserResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /admin/users/{id}/role [put]
func (c *UserController) UpdateRole(ctx *gin.Context) {
	identity, ok := controller.IdentityFrom(ctx)
	if !ok {
		return
	}
	var req dto.UpdateRoleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		controller.RespondBindError(ctx, err)
		return
	}
	resp, err := c.userService.UpdateRole(ctx.Request.Context(), identity, ctx.Param("id"), req.Role)
	if err != nil {
		controller.RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, resp)
}
