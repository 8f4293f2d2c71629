package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/ErlanBelekov/shop-backend/internal/domain"
	"github.com/ErlanBelekov/shop-backend/internal/usecase"
	"github.com/gin-gonic/gin"
)

type adminOrderService interface {
	AdminGet(ctx context.Context, orderID string) (*domain.Order, error)
	AdminList(ctx context.Context, filter usecase.OrderFilter, page usecase.PageRequest) (*usecase.Paged[*domain.Order], error)
	AdminSetStatus(ctx context.Context, orderID string, to domain.OrderStatus, note *string) (*domain.Order, error)
}

type adminUserService interface {
	AdminList(ctx context.Context, filter usecase.UserFilter, page usecase.PageRequest) (*usecase.Paged[*domain.User], error)
	SetActive(ctx context.Context, userID string, active bool) (*domain.User, error)
}

// AdminHandler serves the back-office surface. Requests reach it only
// after the admin key check.
type AdminHandler struct {
	orders adminOrderService
	users  adminUserService
	logger *slog.Logger
}

func NewAdminHandler(orders adminOrderService, users adminUserService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{orders: orders, users: users, logger: logger.With("component", "admin_handler")}
}

type adminOrdersQuery struct {
	pageQuery
	Status string `form:"status"`
	Email  string `form:"email" binding:"omitempty,max=320"`
}

type setStatusRequest struct {
	ToStatus string  `json:"toStatus" binding:"required"`
	Note     *string `json:"note"     binding:"omitempty,max=2000"`
}

type adminUsersQuery struct {
	pageQuery
	Query    string `form:"q"        binding:"omitempty,max=320"`
	IsActive *bool  `form:"isActive"`
}

type setActiveRequest struct {
	IsActive *bool `json:"isActive" binding:"required"`
}

// GET /admin/v1/orders
func (h *AdminHandler) ListOrders(c *gin.Context) {
	var q adminOrdersQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondValidation(c, err)
		return
	}
	filter := usecase.OrderFilter{Email: q.Email}
	if q.Status != "" {
		st, err := domain.ParseOrderStatus(q.Status)
		if err != nil {
			respondDomainError(c, h.logger, "admin list orders", err)
			return
		}
		filter.Status = st
	}

	page, err := h.orders.AdminList(c.Request.Context(), filter, q.request())
	if err != nil {
		respondDomainError(c, h.logger, "admin list orders", err)
		return
	}
	c.JSON(http.StatusOK, newPagedView(page, newOrderView))
}

// GET /admin/v1/orders/:id
func (h *AdminHandler) GetOrder(c *gin.Context) {
	id := c.Param("id")
	if !validID(id) {
		respondDomainError(c, h.logger, "admin get order", domain.ErrOrderNotFound)
		return
	}

	order, err := h.orders.AdminGet(c.Request.Context(), id)
	if err != nil {
		respondDomainError(c, h.logger, "admin get order", err)
		return
	}
	c.JSON(http.StatusOK, orderResponse{Order: newOrderView(order)})
}

// POST /admin/v1/orders/:id/status
func (h *AdminHandler) SetOrderStatus(c *gin.Context) {
	var req setStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}
	id := c.Param("id")
	if !validID(id) {
		respondDomainError(c, h.logger, "admin set order status", domain.ErrOrderNotFound)
		return
	}

	order, err := h.orders.AdminSetStatus(c.Request.Context(), id, domain.OrderStatus(req.ToStatus), req.Note)
	if err != nil {
		respondDomainError(c, h.logger, "admin set order status", err)
		return
	}
	h.logger.InfoContext(c.Request.Context(), "order status set by admin",
		"order_id", order.ID, "status", order.Status)
	c.JSON(http.StatusOK, orderResponse{Order: newOrderView(order)})
}

// GET /admin/v1/users
func (h *AdminHandler) ListUsers(c *gin.Context) {
	var q adminUsersQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondValidation(c, err)
		return
	}

	page, err := h.users.AdminList(c.Request.Context(), usecase.UserFilter{Query: q.Query, IsActive: q.IsActive}, q.request())
	if err != nil {
		respondDomainError(c, h.logger, "admin list users", err)
		return
	}
	c.JSON(http.StatusOK, newPagedView(page, newUserView))
}

// PATCH /admin/v1/users/:id
func (h *AdminHandler) UpdateUser(c *gin.Context) {
	var req setActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}
	id := c.Param("id")
	if !validID(id) {
		respondDomainError(c, h.logger, "admin update user", domain.ErrUserNotFound)
		return
	}

	user, err := h.users.SetActive(c.Request.Context(), id, *req.IsActive)
	if err != nil {
		respondDomainError(c, h.logger, "admin update user", err)
		return
	}
	c.JSON(http.StatusOK, userResponse{User: newUserView(user)})
}
