package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"ecommerce-service/internal/apperr"
	"ecommerce-service/internal/models"
	"ecommerce-service/internal/store/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// completedOrder drives a fresh order for productID through to COMPLETED.
func (f *fixture) completedOrder(t *testing.T, productID int64) *models.Order {
	t.Helper()
	order := f.checkout(t, f.addToCart(t, productID, 1))
	_, err := f.payments.PayOrder(f.ctx, f.userID, order.ID)
	require.NoError(t, err)
	_, err = f.orders.ShipOrder(f.ctx, order.ID, &ShipOrderRequest{ShippingProvider: "SiCepat", TrackingNumber: "SC-1"})
	require.NoError(t, err)
	order, err = f.orders.CompleteOrder(f.ctx, order.ID)
	require.NoError(t, err)
	return order
}

func (f *fixture) review(productID, orderID int64) *CreateReviewRequest {
	return &CreateReviewRequest{UserID: f.userID, ProductID: productID, OrderID: orderID, Rating: 5, Comment: "Mantap, sesuai deskripsi"}
}

func TestCreateReviewAfterCompletedPurchase(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, 10, 1000)
	order := f.completedOrder(t, p.ID)

	review, err := f.reviews.CreateReview(f.ctx, f.review(p.ID, order.ID))
	require.NoError(t, err)
	assert.NotZero(t, review.ID)
	assert.Equal(t, order.ID, review.OrderID)

	require.Len(t, f.events.reviews, 1)
	assert.Equal(t, review.ID, f.events.reviews[0].ReviewID)
}

func TestReviewGateConditions(t *testing.T) {
	t.Run("order belongs to another user", func(t *testing.T) {
		f := newFixture(t)
		p := f.product(t, 10, 1000)
		order := f.completedOrder(t, p.ID)

		req := f.review(p.ID, order.ID)
		req.UserID = f.userID + 1
		_, err := f.reviews.CreateReview(f.ctx, req)
		assertKind(t, err, apperr.KindNotFound)
	})

	t.Run("order not completed", func(t *testing.T) {
		f := newFixture(t)
		p := f.product(t, 10, 1000)
		order := f.checkout(t, f.addToCart(t, p.ID, 1))
		_, err := f.payments.PayOrder(f.ctx, f.userID, order.ID)
		require.NoError(t, err)

		_, err = f.reviews.CreateReview(f.ctx, f.review(p.ID, order.ID))
		assertKind(t, err, apperr.KindConflict)
		assert.Equal(t, apperr.CodeOrderNotCompleted, apperr.CodeOf(err))
	})

	t.Run("product not in order", func(t *testing.T) {
		f := newFixture(t)
		p := f.product(t, 10, 1000)
		other := f.product(t, 10, 1000)
		order := f.completedOrder(t, p.ID)

		_, err := f.reviews.CreateReview(f.ctx, f.review(other.ID, order.ID))
		assertKind(t, err, apperr.KindNotFound)
	})

	t.Run("already reviewed", func(t *testing.T) {
		f := newFixture(t)
		p := f.product(t, 10, 1000)
		order := f.completedOrder(t, p.ID)
		_, err := f.reviews.CreateReview(f.ctx, f.review(p.ID, order.ID))
		require.NoError(t, err)

		again := f.completedOrder(t, p.ID)
		_, err = f.reviews.CreateReview(f.ctx, f.review(p.ID, again.ID))
		assertKind(t, err, apperr.KindConflict)
		assert.Equal(t, apperr.CodeDuplicateReview, apperr.CodeOf(err))
	})
}

func TestReviewAfterCancelFails(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, 10, 1000)
	order := f.checkout(t, f.addToCart(t, p.ID, 3))
	_, err := f.orders.CancelOrder(f.ctx, f.userID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, f.stock(t, p.ID))

	_, err = f.reviews.CreateReview(f.ctx, f.review(p.ID, order.ID))
	assertKind(t, err, apperr.KindConflict)
	assert.Equal(t, apperr.CodeOrderNotCompleted, apperr.CodeOf(err))
}

func TestReviewInputBounds(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, 10, 1000)
	order := f.completedOrder(t, p.ID)

	for _, mutate := range []func(*CreateReviewRequest){
		func(r *CreateReviewRequest) { r.Rating = -1 },
		func(r *CreateReviewRequest) { r.Rating = 6 },
		func(r *CreateReviewRequest) { r.Comment = "   " },
		func(r *CreateReviewRequest) { r.Comment = "<b> </b>" },
		func(r *CreateReviewRequest) { r.Comment = strings.Repeat("a", MaxCommentLength+1) },
	} {
		req := f.review(p.ID, order.ID)
		mutate(req)
		_, err := f.reviews.CreateReview(f.ctx, req)
		assertKind(t, err, apperr.KindBadRequest)
	}

	req := f.review(p.ID, order.ID)
	req.Rating = 0
	req.Comment = strings.Repeat("a", MaxCommentLength)
	_, err := f.reviews.CreateReview(f.ctx, req)
	require.NoError(t, err)
}

func TestReviewCommentMarkupStripped(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, 10, 1000)
	order := f.completedOrder(t, p.ID)

	req := f.review(p.ID, order.ID)
	req.Comment = "<b>Mantap</b> <a href=\"http://spam.example\">promo</a>"
	review, err := f.reviews.CreateReview(f.ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "Mantap promo", review.Comment)
}

func TestListProductReviews(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, 10, 1000)

	for i, rating := range []int{4, 2, 5} {
		f.userID = int64(100 + i)
		f.addressID = f.address(t, f.userID)
		order := f.completedOrder(t, p.ID)
		req := f.review(p.ID, order.ID)
		req.Rating = rating
		_, err := f.reviews.CreateReview(f.ctx, req)
		require.NoError(t, err)
	}

	page, err := f.reviews.ListProductReviews(f.ctx, p.ID, ReviewQuery{SortBy: "rating", SortDir: "asc"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.TotalElements)
	require.Len(t, page.Content, 3)
	assert.Equal(t, 2, page.Content[0].Rating)
	assert.Equal(t, 5, page.Content[2].Rating)

	page, err = f.reviews.ListProductReviews(f.ctx, p.ID, ReviewQuery{SortBy: "rating", SortDir: "sideways", Size: 2})
	require.NoError(t, err)
	require.Len(t, page.Content, 2)
	assert.Equal(t, 5, page.Content[0].Rating)
	assert.True(t, page.HasNextPage)

	page, err = f.reviews.ListProductReviews(f.ctx, p.ID+1, ReviewQuery{})
	require.NoError(t, err)
	assert.Empty(t, page.Content)
	assert.Zero(t, page.TotalPages)

	page, err = f.reviews.ListProductReviews(f.ctx, p.ID, ReviewQuery{Page: 1000})
	require.NoError(t, err)
	assert.Empty(t, page.Content)
	assert.Equal(t, int64(3), page.TotalElements)

	for _, q := range []ReviewQuery{{Page: -1}, {Page: math.MaxInt / 5, Size: 10}} {
		_, err = f.reviews.ListProductReviews(f.ctx, p.ID, q)
		assertKind(t, err, apperr.KindBadRequest)
	}
}

type brokenReviewLookup struct {
	*memory.Store
	err error
}

func (b brokenReviewLookup) ReviewExists(context.Context, int64, int64) (bool, error) {
	return false, b.err
}

func TestCreateReviewWrapsLookupError(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, 10, 1000)
	order := f.completedOrder(t, p.ID)

	lookupErr := errors.New("connection reset")
	reviews := NewReviewService(f.store, f.store, brokenReviewLookup{Store: f.store, err: lookupErr}, f.events, 10, 50)

	_, err := reviews.CreateReview(f.ctx, f.review(p.ID, order.ID))
	require.Error(t, err)
	assert.ErrorIs(t, err, lookupErr)
	assert.ErrorContains(t, err, "failed to check review")
	assert.Empty(t, f.events.reviews)
}
