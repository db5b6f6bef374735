package memory

import (
	"context"
	"sort"

	"ecommerce-service/internal/models"
	"ecommerce-service/internal/store"
)

// ReviewExists checks whether a user already reviewed a product.
func (s *Store) ReviewExists(ctx context.Context, userID, productID int64) (bool, error) {
	defer s.lock(ctx)()
	for _, r := range s.st.reviews {
		if r.UserID == userID && r.ProductID == productID {
			return true, nil
		}
	}
	return false, nil
}

// CreateReview inserts a review; (user, product) is unique.
func (s *Store) CreateReview(ctx context.Context, review *models.ProductReview) error {
	defer s.lock(ctx)()
	for _, r := range s.st.reviews {
		if r.UserID == review.UserID && r.ProductID == review.ProductID {
			return store.ErrDuplicate
		}
	}
	now := s.now()
	review.ID = s.st.nextID()
	review.CreatedAt, review.UpdatedAt = now, now
	s.st.reviews[review.ID] = *review
	return nil
}

// ListProductReviews retrieves one page of a product's reviews and the total count.
func (s *Store) ListProductReviews(ctx context.Context, productID int64, req models.ReviewPageRequest) ([]models.ProductReview, int64, error) {
	defer s.lock(ctx)()

	matched := make([]models.ProductReview, 0)
	for _, r := range s.st.reviews {
		if r.ProductID == productID {
			matched = append(matched, r)
		}
	}

	less := func(a, b models.ProductReview) bool {
		if req.SortBy == models.ReviewSortRating && a.Rating != b.Rating {
			return a.Rating < b.Rating
		}
		if req.SortBy != models.ReviewSortRating && !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	}
	sort.Slice(matched, func(i, j int) bool {
		if req.Ascending {
			return less(matched[i], matched[j])
		}
		return less(matched[j], matched[i])
	})

	total := int64(len(matched))
	start, end := pageBounds(len(matched), req.Page, req.Size)
	return append([]models.ProductReview{}, matched[start:end]...), total, nil
}
