package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"bookchain-backend/internal/domains/user/model"
	"bookchain-backend/internal/domains/user/service"
	"bookchain-backend/internal/shared/middleware"
	"bookchain-backend/internal/shared/response"
)

type UserHandler struct {
	userService service.UserService
}

func NewUserHandler(userService service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// Register creates an account
// POST /api/v1/auth/register
func (h *UserHandler) Register(c *gin.Context) {
	var req model.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	user, err := h.userService.Register(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrEmailTaken):
			response.Conflict(c, err.Error())
		case errors.Is(err, model.ErrAddressTaken):
			response.Conflict(c, err.Error())
		default:
			var userErr *model.UserError
			if errors.As(err, &userErr) {
				response.ErrorResponse(c, http.StatusBadRequest, userErr.Code, userErr.Message)
				return
			}
			response.BadRequest(c, err.Error())
		}
		return
	}

	response.Success(c, http.StatusCreated, user.ToResponse())
}

// Login authenticates and issues tokens
// POST /api/v1/auth/login
func (h *UserHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	result, err := h.userService.Login(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, model.ErrInvalidCredentials) || errors.Is(err, model.ErrAccountDisabled) {
			response.Unauthorized(c, "invalid credentials")
			return
		}
		response.InternalServerError(c, "login failed")
		return
	}

	response.Success(c, http.StatusOK, result)
}

// Me returns the authenticated account
// GET /api/v1/users/me
func (h *UserHandler) Me(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	user, err := h.userService.GetProfile(c.Request.Context(), principal.UserID)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			response.NotFound(c, "user not found")
			return
		}
		response.InternalServerError(c, "failed to load profile")
		return
	}

	response.Success(c, http.StatusOK, user.ToResponse())
}
