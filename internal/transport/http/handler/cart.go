package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/ErlanBelekov/shop-backend/internal/domain"
	"github.com/ErlanBelekov/shop-backend/internal/usecase"
	"github.com/gin-gonic/gin"
)

type cartService interface {
	Get(ctx context.Context, userID string) (*domain.CartView, error)
	Merge(ctx context.Context, userID string, mode domain.MergeMode, items []domain.MergeItem) (*usecase.MergeResult, error)
	SetItem(ctx context.Context, userID, variantID string, qty int) (*domain.CartView, error)
	RemoveItem(ctx context.Context, userID, variantID string) (*domain.CartView, error)
	Clear(ctx context.Context, userID string) (*domain.CartView, error)
}

type CartHandler struct {
	carts  cartService
	logger *slog.Logger
}

func NewCartHandler(carts cartService, logger *slog.Logger) *CartHandler {
	return &CartHandler{carts: carts, logger: logger.With("component", "cart_handler")}
}

type cartResponse struct {
	Cart cartView `json:"cart"`
}

type mergeResponse struct {
	Cart          cartView           `json:"cart"`
	MergeWarnings []mergeWarningView `json:"mergeWarnings"`
}

type setQtyRequest struct {
	Qty int `json:"qty" binding:"min=1"`
}

// GET /me/cart
func (h *CartHandler) Get(c *gin.Context) {
	view, err := h.carts.Get(c.Request.Context(), userIDFrom(c))
	h.respondCart(c, "get cart", view, err)
}

// POST /me/cart/merge
func (h *CartHandler) Merge(c *gin.Context) {
	var req mergeCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}
	mode, err := domain.ParseMergeMode(req.Mode)
	if err != nil {
		respondDomainError(c, h.logger, "merge cart", err)
		return
	}

	res, err := h.carts.Merge(c.Request.Context(), userIDFrom(c), mode, req.items())
	if err != nil {
		respondDomainError(c, h.logger, "merge cart", err)
		return
	}
	c.JSON(http.StatusOK, mergeResponse{Cart: newCartView(res.Cart), MergeWarnings: newMergeWarnings(res.Warnings)})
}

// PUT /me/cart/items/:variantId
func (h *CartHandler) SetItem(c *gin.Context) {
	var req setQtyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}
	variantID := c.Param("variantId")
	if !validID(variantID) {
		respondDomainError(c, h.logger, "set cart item", domain.ErrVariantNotFound)
		return
	}

	view, err := h.carts.SetItem(c.Request.Context(), userIDFrom(c), variantID, req.Qty)
	h.respondCart(c, "set cart item", view, err)
}

// DELETE /me/cart/items/:variantId
func (h *CartHandler) RemoveItem(c *gin.Context) {
	variantID := c.Param("variantId")
	if !validID(variantID) {
		respondDomainError(c, h.logger, "remove cart item", domain.ErrVariantNotFound)
		return
	}

	view, err := h.carts.RemoveItem(c.Request.Context(), userIDFrom(c), variantID)
	h.respondCart(c, "remove cart item", view, err)
}

// POST /me/cart/clear
func (h *CartHandler) Clear(c *gin.Context) {
	view, err := h.carts.Clear(c.Request.Context(), userIDFrom(c))
	h.respondCart(c, "clear cart", view, err)
}

func (h *CartHandler) respondCart(c *gin.Context, op string, view *domain.CartView, err error) {
	if err != nil {
		respondDomainError(c, h.logger, op, err)
		return
	}
	c.JSON(http.StatusOK, cartResponse{Cart: newCartView(view)})
}
