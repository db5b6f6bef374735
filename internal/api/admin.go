package api

import (
	"net/http"

	"ecommerce-service/internal/apperr"
	"ecommerce-service/internal/models"
	"ecommerce-service/internal/service"

	"github.com/gin-gonic/gin"
)

// UpdateOrderStatusRequest is the body of an admin status change. Shipping
// fields are required only when moving an order to SHIPPED.
type UpdateOrderStatusRequest struct {
	Status           string `json:"status" binding:"required"`
	ShippingProvider string `json:"shipping_provider"`
	TrackingNumber   string `json:"tracking_number"`
}

func (h *Handler) searchOrders(c *gin.Context) {
	var query service.OrderQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondBindError(c, err)
		return
	}
	h.respondOrderPage(c, query)
}

func (h *Handler) searchUserOrders(c *gin.Context) {
	userID, ok := pathID(c, "userId")
	if !ok {
		return
	}
	var query service.OrderQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondBindError(c, err)
		return
	}
	query.UserID = userID
	h.respondOrderPage(c, query)
}

func (h *Handler) respondOrderPage(c *gin.Context, query service.OrderQuery) {
	page, err := h.orders.SearchOrders(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.MapPage(page, newOrderView))
}

func (h *Handler) adminGetOrder(c *gin.Context) {
	orderID, ok := pathID(c, "id")
	if !ok {
		return
	}

	order, err := h.orders.AdminGetOrder(c.Request.Context(), orderID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newOrderView(*order))
}

// updateOrderStatus moves an order along the admin edges of the lifecycle.
func (h *Handler) updateOrderStatus(c *gin.Context) {
	orderID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	target, err := models.ParseOrderStatus(req.Status)
	if err != nil {
		respondError(c, apperr.BadRequest(err.Error()))
		return
	}

	ctx := c.Request.Context()
	var order *models.Order
	switch target {
	case models.OrderStatusShipped:
		order, err = h.orders.ShipOrder(ctx, orderID, &service.ShipOrderRequest{
			ShippingProvider: req.ShippingProvider,
			TrackingNumber:   req.TrackingNumber,
		})
	case models.OrderStatusCompleted:
		order, err = h.orders.CompleteOrder(ctx, orderID)
	case models.OrderStatusCancelled:
		order, err = h.orders.AdminCancelOrder(ctx, orderID)
	default:
		err = apperr.BadRequest("status " + string(target) + " cannot be set by an administrator")
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newOrderView(*order))
}
