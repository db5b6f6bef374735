package api

import (
	"net/http"

	"ecommerce-service/internal/models"
	"ecommerce-service/internal/service"

	"github.com/gin-gonic/gin"
)

// createOrder handles order creation
func (h *Handler) createOrder(c *gin.Context) {
	var req service.CreateOrderRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	req.UserID = currentUser(c)
	req.IdempotencyKey = c.GetHeader(HeaderIdempotencyKey)

	order, err := h.orders.CreateOrder(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, newOrderView(*order))
}

func (h *Handler) listOrders(c *gin.Context) {
	var query service.OrderQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondBindError(c, err)
		return
	}

	page, err := h.orders.ListUserOrders(c.Request.Context(), currentUser(c), query)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.MapPage(page, newOrderView))
}

// getOrder handles get order by ID
func (h *Handler) getOrder(c *gin.Context) {
	orderID, ok := pathID(c, "id")
	if !ok {
		return
	}

	order, err := h.orders.GetOrder(c.Request.Context(), currentUser(c), orderID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newOrderView(*order))
}

func (h *Handler) cancelOrder(c *gin.Context) {
	orderID, ok := pathID(c, "id")
	if !ok {
		return
	}

	order, err := h.orders.CancelOrder(c.Request.Context(), currentUser(c), orderID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newOrderView(*order))
}

func (h *Handler) payOrder(c *gin.Context) {
	orderID, ok := pathID(c, "id")
	if !ok {
		return
	}

	order, err := h.payments.PayOrder(c.Request.Context(), currentUser(c), orderID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newOrderView(*order))
}
