package api

import (
	"net/http"

	"ecommerce-service/internal/service"

	"github.com/gin-gonic/gin"
)

func (h *Handler) getCart(c *gin.Context) {
	cart, err := h.carts.GetCart(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newCartView(cart))
}

func (h *Handler) countCartItems(c *gin.Context) {
	count, err := h.carts.CountItems(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

func (h *Handler) addCartItem(c *gin.Context) {
	var req service.AddCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	cart, err := h.carts.AddItem(c.Request.Context(), currentUser(c), req.ProductID, req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newCartView(cart))
}

func (h *Handler) updateCartItem(c *gin.Context) {
	itemID, ok := pathID(c, "itemId")
	if !ok {
		return
	}
	var req service.UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	cart, err := h.carts.UpdateItemQuantity(c.Request.Context(), currentUser(c), itemID, req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newCartView(cart))
}

func (h *Handler) removeCartItem(c *gin.Context) {
	itemID, ok := pathID(c, "itemId")
	if !ok {
		return
	}

	cart, err := h.carts.RemoveItem(c.Request.Context(), currentUser(c), itemID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newCartView(cart))
}

func (h *Handler) clearCart(c *gin.Context) {
	cart, err := h.carts.ClearCart(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newCartView(cart))
}
