package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/ErlanBelekov/shop-backend/internal/domain"
	"github.com/gin-gonic/gin"
)

type profileService interface {
	Me(ctx context.Context, userID string) (*domain.User, error)
	UpdateProfile(ctx context.Context, userID string, name, phone *string) (*domain.User, error)
}

type MeHandler struct {
	users  profileService
	logger *slog.Logger
}

func NewMeHandler(users profileService, logger *slog.Logger) *MeHandler {
	return &MeHandler{users: users, logger: logger.With("component", "me_handler")}
}

type userResponse struct {
	User userView `json:"user"`
}

type updateMeRequest struct {
	Name  *string `json:"name"  binding:"omitempty,min=1,max=200"`
	Phone *string `json:"phone" binding:"omitempty,min=1,max=32"`
}

// GET /me
func (h *MeHandler) Get(c *gin.Context) {
	user, err := h.users.Me(c.Request.Context(), userIDFrom(c))
	if err != nil {
		respondDomainError(c, h.logger, "get me", err)
		return
	}
	c.JSON(http.StatusOK, userResponse{User: newUserView(user)})
}

// PATCH /me
func (h *MeHandler) Update(c *gin.Context) {
	var req updateMeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	user, err := h.users.UpdateProfile(c.Request.Context(), userIDFrom(c), req.Name, req.Phone)
	if err != nil {
		respondDomainError(c, h.logger, "update profile", err)
		return
	}
	c.JSON(http.StatusOK, userResponse{User: newUserView(user)})
}
