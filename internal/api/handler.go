package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"ecommerce-service/internal/apperr"
	"ecommerce-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pinger is a dependency checked by /ready
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler contains HTTP handlers
type Handler struct {
	carts      *service.CartService
	orders     *service.OrderService
	payments   *service.PaymentService
	reviews    *service.ReviewService
	adminToken string
	deps       map[string]Pinger
}

// NewHandler creates a new HTTP handler
func NewHandler(
	carts *service.CartService,
	orders *service.OrderService,
	payments *service.PaymentService,
	reviews *service.ReviewService,
	adminToken string,
) *Handler {
	return &Handler{
		carts:      carts,
		orders:     orders,
		payments:   payments,
		reviews:    reviews,
		adminToken: adminToken,
		deps:       map[string]Pinger{},
	}
}

// AddReadinessCheck registers a dependency reported by /ready
func (h *Handler) AddReadinessCheck(name string, p Pinger) {
	h.deps[name] = p
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	v1.GET("/products/:id/reviews", h.listProductReviews)

	user := v1.Group("", requireUser())
	{
		user.GET("/cart", h.getCart)
		user.GET("/cart/count", h.countCartItems)
		user.POST("/cart", h.addCartItem)
		user.PUT("/cart/:itemId", h.updateCartItem)
		user.DELETE("/cart/:itemId", h.removeCartItem)
		user.DELETE("/cart", h.clearCart)

		user.POST("/orders", h.createOrder)
		user.GET("/orders", h.listOrders)
		user.GET("/orders/:id", h.getOrder)
		user.POST("/orders/:id/cancel", h.cancelOrder)
		user.POST("/orders/:id/pay", h.payOrder)

		user.POST("/products/:id/reviews", h.createReview)
	}

	admin := v1.Group("/admin", requireAdmin(h.adminToken))
	{
		admin.GET("/orders", h.searchOrders)
		admin.GET("/orders/users/:userId", h.searchUserOrders)
		admin.GET("/orders/:id", h.adminGetOrder)
		admin.PATCH("/orders/:id/status", h.updateOrderStatus)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck reports ready only when every registered dependency answers
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failing := gin.H{}
	for name, dep := range h.deps {
		if err := dep.Ping(ctx); err != nil {
			failing[name] = err.Error()
		}
	}
	if len(failing) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "not ready",
			"failing": failing,
			"time":    time.Now().Unix(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// pathID parses a positive integer path parameter.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		respondError(c, apperr.BadRequest("invalid "+name))
		return 0, false
	}
	return id, true
}
