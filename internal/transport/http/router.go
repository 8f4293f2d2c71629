package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/ErlanBelekov/shop-backend/internal/transport/http/handler"
	"github.com/ErlanBelekov/shop-backend/internal/transport/http/middleware"
	"github.com/gin-gonic/gin"

	sloggin "github.com/samber/slog-gin"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Auth   *handler.AuthHandler
	Me     *handler.MeHandler
	Cart   *handler.CartHandler
	Orders *handler.OrderHandler
	Admin  *handler.AdminHandler
}

type RouterConfig struct {
	AdminAPIKey        string
	EnableDevEndpoints bool
}

func NewRouter(logger *slog.Logger, h Handlers, authMW gin.HandlerFunc, cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Security())
	r.Use(sloggin.New(logger))
	r.Use(middleware.Metrics())

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"code": "NOT_FOUND", "message": "Route not found"}})
	})

	api := r.Group("/api/v1")

	auth := api.Group("/auth")
	auth.POST("/magic/request", h.Auth.RequestMagicLink)
	auth.POST("/magic/consume", h.Auth.ConsumeMagicLink)
	auth.POST("/refresh", h.Auth.Refresh)
	auth.POST("/logout", h.Auth.Logout)

	// Protected self-service routes
	me := api.Group("/me", authMW)
	me.GET("", h.Me.Get)
	me.PATCH("", h.Me.Update)

	cart := me.Group("/cart")
	cart.GET("", h.Cart.Get)
	cart.POST("/merge", h.Cart.Merge)
	cart.PUT("/items/:variantId", h.Cart.SetItem)
	cart.DELETE("/items/:variantId", h.Cart.RemoveItem)
	cart.POST("/clear", h.Cart.Clear)

	orders := me.Group("/orders")
	orders.POST("", h.Orders.Create)
	orders.GET("", h.Orders.List)
	orders.GET("/:id", h.Orders.Get)
	orders.POST("/:id/cancel", h.Orders.Cancel)
	if cfg.EnableDevEndpoints {
		orders.POST("/:id/simulate-payment", h.Orders.SimulatePayment)
	}

	admin := r.Group("/admin/v1", middleware.AdminKey(cfg.AdminAPIKey))
	admin.GET("/orders", h.Admin.ListOrders)
	admin.GET("/orders/:id", h.Admin.GetOrder)
	admin.POST("/orders/:id/status", h.Admin.SetOrderStatus)
	admin.GET("/users", h.Admin.ListUsers)
	admin.PATCH("/users/:id", h.Admin.UpdateUser)

	return r
}
