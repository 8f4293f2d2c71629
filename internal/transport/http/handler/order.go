package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ErlanBelekov/shop-backend/internal/domain"
	"github.com/ErlanBelekov/shop-backend/internal/usecase"
	"github.com/gin-gonic/gin"
)

type checkoutService interface {
	CreateOrderFromCart(ctx context.Context, in usecase.CheckoutInput) (*domain.Order, error)
}

type orderService interface {
	Get(ctx context.Context, userID, orderID string) (*domain.Order, error)
	List(ctx context.Context, userID string, page usecase.PageRequest) (*usecase.Paged[*domain.Order], error)
	Cancel(ctx context.Context, userID, orderID string) (*domain.Order, error)
	SimulatePayment(ctx context.Context, userID, orderID string) (*domain.Order, error)
}

type OrderHandler struct {
	checkout checkoutService
	orders   orderService
	logger   *slog.Logger
}

func NewOrderHandler(checkout checkoutService, orders orderService, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{checkout: checkout, orders: orders, logger: logger.With("component", "order_handler")}
}

type deliveryRequest struct {
	Method  string          `json:"method"  binding:"required,max=64"`
	Address json.RawMessage `json:"address" binding:"required"`
}

type contactRequest struct {
	Name  string `json:"name"  binding:"required,max=200"`
	Phone string `json:"phone" binding:"required,max=32"`
	Email string `json:"email" binding:"required,email"`
}

type createOrderRequest struct {
	Delivery deliveryRequest `json:"delivery"`
	Contact  contactRequest  `json:"contact"`
	Comment  *string         `json:"comment" binding:"omitempty,max=2000"`
}

type orderResponse struct {
	Order orderView `json:"order"`
}

// POST /me/orders
func (h *OrderHandler) Create(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	order, err := h.checkout.CreateOrderFromCart(c.Request.Context(), usecase.CheckoutInput{
		UserID:   userIDFrom(c),
		Delivery: domain.Delivery{Method: req.Delivery.Method, Address: req.Delivery.Address},
		Contact:  domain.Contact{Name: req.Contact.Name, Phone: req.Contact.Phone, Email: req.Contact.Email},
		Comment:  req.Comment,
	})
	if err != nil {
		respondDomainError(c, h.logger, "create order", err)
		return
	}
	c.JSON(http.StatusOK, orderResponse{Order: newOrderView(order)})
}

// GET /me/orders
func (h *OrderHandler) List(c *gin.Context) {
	var q pageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondValidation(c, err)
		return
	}

	page, err := h.orders.List(c.Request.Context(), userIDFrom(c), q.request())
	if err != nil {
		respondDomainError(c, h.logger, "list orders", err)
		return
	}
	c.JSON(http.StatusOK, newPagedView(page, newOrderView))
}

// GET /me/orders/:id
func (h *OrderHandler) Get(c *gin.Context) {
	id := c.Param("id")
	if !validID(id) {
		respondDomainError(c, h.logger, "get order", domain.ErrOrderNotFound)
		return
	}

	order, err := h.orders.Get(c.Request.Context(), userIDFrom(c), id)
	if err != nil {
		respondDomainError(c, h.logger, "get order", err)
		return
	}
	c.JSON(http.StatusOK, orderResponse{Order: newOrderView(order)})
}

// POST /me/orders/:id/cancel
func (h *OrderHandler) Cancel(c *gin.Context) {
	h.selfService(c, "cancel order", h.orders.Cancel)
}

// POST /me/orders/:id/simulate-payment
func (h *OrderHandler) SimulatePayment(c *gin.Context) {
	h.selfService(c, "simulate payment", h.orders.SimulatePayment)
}

// selfService answers a missing order with 400, not 404, matching the
// response of a refused transition.
func (h *OrderHandler) selfService(c *gin.Context, op string, fn func(ctx context.Context, userID, orderID string) (*domain.Order, error)) {
	id := c.Param("id")
	var (
		order *domain.Order
		err   = domain.ErrOrderNotFound
	)
	if validID(id) {
		order, err = fn(c.Request.Context(), userIDFrom(c), id)
	}
	if errors.Is(err, domain.ErrOrderNotFound) {
		respondError(c, http.StatusBadRequest, codeOrderNotFound, "Order not found", nil)
		return
	}
	if err != nil {
		respondDomainError(c, h.logger, op, err)
		return
	}
	c.JSON(http.StatusOK, orderResponse{Order: newOrderView(order)})
}
