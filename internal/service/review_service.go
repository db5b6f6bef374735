package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"ecommerce-service/internal/apperr"
	"ecommerce-service/internal/models"
	"ecommerce-service/internal/store"
	"ecommerce-service/internal/util"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
)

// Review bounds
const (
	MinRating        = 0
	MaxRating        = 5
	MaxCommentLength = 500
)

// ReviewService admits a review only with proof of a completed purchase
type ReviewService struct {
	tx          UnitOfWork
	orders      OrderRepository
	reviews     ReviewRepository
	events      EventPublisher
	sanitizer   *bluemonday.Policy
	defaultSize int
	maxSize     int
	logger      *zap.Logger
}

// NewReviewService creates a new review service
func NewReviewService(tx UnitOfWork, orders OrderRepository, reviews ReviewRepository, events EventPublisher, defaultPageSize, maxPageSize int) *ReviewService {
	if defaultPageSize <= 0 {
		defaultPageSize = 10
	}
	if maxPageSize < defaultPageSize {
		maxPageSize = defaultPageSize
	}
	return &ReviewService{
		tx:          tx,
		orders:      orders,
		reviews:     reviews,
		events:      events,
		sanitizer:   bluemonday.StrictPolicy(),
		defaultSize: defaultPageSize,
		maxSize:     maxPageSize,
		logger:      util.GetLogger(),
	}
}

// CreateReviewRequest represents a request to review a purchased product
type CreateReviewRequest struct {
	UserID    int64  `json:"-"`
	ProductID int64  `json:"-"`
	OrderID   int64  `json:"order_id" binding:"required"`
	Rating    int    `json:"rating" binding:"min=0,max=5"`
	Comment   string `json:"comment" binding:"required,max=500"`
}

// ReviewQuery is the raw review listing request
type ReviewQuery struct {
	Page    int    `form:"page"`
	Size    int    `form:"size"`
	SortBy  string `form:"sortBy"`
	SortDir string `form:"sortDir"`
}

// CreateReview stores a review once the order belongs to the user, is
// COMPLETED and contains the product, and the user has not reviewed it yet.
func (s *ReviewService) CreateReview(ctx context.Context, req *CreateReviewRequest) (*models.ProductReview, error) {
	ctx, span := util.StartSpan(ctx, "ReviewService.CreateReview")
	defer span.End()

	// Markup is stripped before the length check.
	comment := strings.TrimSpace(s.sanitizer.Sanitize(req.Comment))
	if req.Rating < MinRating || req.Rating > MaxRating {
		return nil, apperr.BadRequest(fmt.Sprintf("rating must be between %d and %d", MinRating, MaxRating))
	}
	if comment == "" || utf8.RuneCountInString(comment) > MaxCommentLength {
		return nil, apperr.BadRequest(fmt.Sprintf("comment must be between 1 and %d characters", MaxCommentLength))
	}

	var review *models.ProductReview
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		order, err := s.orders.GetOrderForUser(ctx, req.OrderID, req.UserID)
		if err != nil {
			return notFoundOr(err, "order not found", "failed to get order")
		}
		if order.Status != models.OrderStatusCompleted {
			return apperr.Conflict(apperr.CodeOrderNotCompleted, "order is not completed yet")
		}
		if !order.ContainsProduct(req.ProductID) {
			return apperr.NotFound(fmt.Sprintf("product %d not found in order", req.ProductID))
		}

		exists, err := s.reviews.ReviewExists(ctx, req.UserID, req.ProductID)
		if err != nil {
			return fmt.Errorf("failed to check review: %w", err)
		}
		if exists {
			return apperr.Conflict(apperr.CodeDuplicateReview, "product already reviewed")
		}

		r := &models.ProductReview{
			UserID:    req.UserID,
			ProductID: req.ProductID,
			OrderID:   order.ID,
			Rating:    req.Rating,
			Comment:   comment,
		}
		err = s.reviews.CreateReview(ctx, r)
		if errors.Is(err, store.ErrDuplicate) {
			return apperr.Conflict(apperr.CodeDuplicateReview, "product already reviewed")
		}
		if err != nil {
			return fmt.Errorf("failed to create review: %w", err)
		}

		review = r
		return nil
	})
	if err != nil {
		util.ReviewsRejectedTotal.WithLabelValues(reviewRejection(err)).Inc()
		s.logger.Warn("Review rejected",
			zap.Int64("user_id", req.UserID),
			zap.Int64("product_id", req.ProductID),
			zap.Int64("order_id", req.OrderID),
			zap.Error(err))
		return nil, err
	}

	util.ReviewsCreatedTotal.Inc()
	s.logger.Info("Review created",
		zap.Int64("review_id", review.ID),
		zap.Int64("product_id", review.ProductID),
		zap.Int("rating", review.Rating))

	event := &models.ReviewCreatedEvent{
		BaseEvent: models.NewBaseEvent(models.EventTypeReviewCreated),
		ReviewID:  review.ID,
		UserID:    review.UserID,
		ProductID: review.ProductID,
		OrderID:   review.OrderID,
		Rating:    review.Rating,
	}
	if err := s.events.PublishReviewCreated(ctx, event); err != nil {
		util.EventsPublishFailedTotal.WithLabelValues(event.EventType).Inc()
		s.logger.Error("Failed to publish ReviewCreated event", zap.Int64("review_id", review.ID), zap.Error(err))
	}

	return review, nil
}

// ListProductReviews returns one page of a product's reviews. Unknown sort
// columns fall back to created_at and unknown directions to descending.
func (s *ReviewService) ListProductReviews(ctx context.Context, productID int64, query ReviewQuery) (models.Page[models.ProductReview], error) {
	ctx, span := util.StartSpan(ctx, "ReviewService.ListProductReviews")
	defer span.End()

	if query.Page < 0 {
		return models.Page[models.ProductReview]{}, apperr.BadRequest("page must not be negative")
	}
	if query.Size < 0 {
		return models.Page[models.ProductReview]{}, apperr.BadRequest("size must be positive")
	}

	req := models.ReviewPageRequest{
		Page:      query.Page,
		Size:      query.Size,
		SortBy:    models.ReviewSortCreatedAt,
		Ascending: strings.EqualFold(query.SortDir, "ASC"),
	}
	if req.Size == 0 {
		req.Size = s.defaultSize
	}
	if req.Size > s.maxSize {
		req.Size = s.maxSize
	}
	if _, ok := models.PageOffset(req.Page, req.Size); !ok {
		return models.Page[models.ProductReview]{}, apperr.BadRequest("page is out of range")
	}
	if strings.EqualFold(query.SortBy, models.ReviewSortRating) {
		req.SortBy = models.ReviewSortRating
	}

	reviews, total, err := s.reviews.ListProductReviews(ctx, productID, req)
	if err != nil {
		return models.Page[models.ProductReview]{}, fmt.Errorf("failed to list reviews: %w", err)
	}
	return models.NewPage(reviews, req.Page, req.Size, total), nil
}

func reviewRejection(err error) string {
	switch apperr.CodeOf(err) {
	case apperr.CodeNotFound:
		return "not_purchased"
	case apperr.CodeOrderNotCompleted:
		return "order_not_completed"
	case apperr.CodeDuplicateReview:
		return "duplicate"
	default:
		return "error"
	}
}
