package store

import (
	"context"
	"fmt"

	"ecommerce-service/internal/models"
)

// ReviewExists checks whether a user already reviewed a product
func (s *Store) ReviewExists(ctx context.Context, userID, productID int64) (bool, error) {
	var exists bool
	err := s.q(ctx).GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM product_reviews WHERE user_id = $1 AND product_id = $2)",
		userID, productID)
	if err != nil {
		return false, fmt.Errorf("failed to check review: %w", err)
	}
	return exists, nil
}

// CreateReview inserts a review; the (user, product) unique key maps to ErrDuplicate
func (s *Store) CreateReview(ctx context.Context, review *models.ProductReview) error {
	query := `
		INSERT INTO product_reviews (user_id, product_id, order_id, rating, comment)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	err := s.q(ctx).GetContext(ctx, review, query,
		review.UserID, review.ProductID, review.OrderID, review.Rating, review.Comment)
	if isPQCode(err, pqUniqueViolation) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to create review: %w", err)
	}
	return nil
}

// ListProductReviews retrieves one page of a product's reviews and the total count
func (s *Store) ListProductReviews(ctx context.Context, productID int64, req models.ReviewPageRequest) ([]models.ProductReview, int64, error) {
	var total int64
	if err := s.q(ctx).GetContext(ctx, &total,
		"SELECT COUNT(*) FROM product_reviews WHERE product_id = $1", productID); err != nil {
		return nil, 0, fmt.Errorf("failed to count reviews: %w", err)
	}

	offset, ok := models.PageOffset(req.Page, req.Size)
	if !ok || int64(offset) >= total {
		return []models.ProductReview{}, total, nil
	}

	// Only whitelisted column names reach the query text.
	column := "created_at"
	if req.SortBy == models.ReviewSortRating {
		column = "rating"
	}
	direction := "DESC"
	if req.Ascending {
		direction = "ASC"
	}

	reviews := []models.ProductReview{}
	query := fmt.Sprintf(`
		SELECT id, user_id, product_id, order_id, rating, comment, created_at, updated_at
		FROM product_reviews
		WHERE product_id = $1
		ORDER BY %s %s, id %s
		LIMIT $2 OFFSET $3`, column, direction, direction)
	if err := s.q(ctx).SelectContext(ctx, &reviews, query, productID, req.Size, offset); err != nil {
		return nil, 0, fmt.Errorf("failed to list reviews: %w", err)
	}

	return reviews, total, nil
}
