package api

import (
	"net/http"

	"ecommerce-service/internal/service"

	"github.com/gin-gonic/gin"
)

func (h *Handler) createReview(c *gin.Context) {
	productID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.CreateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	req.UserID = currentUser(c)
	req.ProductID = productID

	review, err := h.reviews.CreateReview(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, review)
}

func (h *Handler) listProductReviews(c *gin.Context) {
	productID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var query service.ReviewQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondBindError(c, err)
		return
	}

	page, err := h.reviews.ListProductReviews(c.Request.Context(), productID, query)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}
