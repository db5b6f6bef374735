package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ecommerce-service/internal/apperr"
	"ecommerce-service/internal/models"
	"ecommerce-service/internal/store"
	"ecommerce-service/internal/util"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// StockLedger is the only writer of product stock.
type StockLedger struct {
	tx       UnitOfWork
	products ProductRepository
	logger   *zap.Logger
}

// NewStockLedger creates a new stock ledger
func NewStockLedger(tx UnitOfWork, products ProductRepository) *StockLedger {
	return &StockLedger{
		tx:       tx,
		products: products,
		logger:   util.GetLogger(),
	}
}

// Reserve takes quantity units out of a product's stock and returns the
// product as it was before the decrement. The product row stays locked until
// the caller's transaction ends.
func (l *StockLedger) Reserve(ctx context.Context, productID int64, quantity int) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "StockLedger.Reserve",
		attribute.Int64("product.id", productID),
		attribute.Int("quantity", quantity))
	defer span.End()

	start := time.Now()
	defer func() {
		util.StockReserveLatency.Observe(time.Since(start).Seconds())
	}()

	if quantity < 1 {
		return nil, apperr.BadRequest("quantity must be at least 1")
	}

	var product *models.Product
	err := l.tx.RunInTx(ctx, func(ctx context.Context) error {
		p, err := l.products.GetProductForUpdate(ctx, productID)
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound(fmt.Sprintf("product %d not found", productID))
		}
		if err != nil {
			return fmt.Errorf("failed to lock product: %w", err)
		}

		if !p.IsQuantitySufficient(quantity) {
			return apperr.InsufficientStock(productID, quantity, p.StockQuantity)
		}

		err = l.products.AdjustStock(ctx, productID, -quantity)
		if errors.Is(err, store.ErrNegativeStock) {
			return apperr.InsufficientStock(productID, quantity, p.StockQuantity)
		}
		if err != nil {
			return fmt.Errorf("failed to decrement stock: %w", err)
		}

		product = p
		return nil
	})
	if err != nil {
		util.RecordError(span, err)
		reason := "error"
		if apperr.CodeOf(err) == apperr.CodeInsufficientStock {
			reason = "insufficient_stock"
		} else if apperr.KindOf(err) == apperr.KindNotFound {
			reason = "not_found"
		}
		util.StockReservationsFailed.WithLabelValues(reason).Inc()
		l.logger.Warn("Stock reservation refused",
			zap.Int64("product_id", productID),
			zap.Int("quantity", quantity),
			zap.Error(err))
		return nil, err
	}

	return product, nil
}

// Release returns quantity units to a product's stock. Restoring is always legal.
func (l *StockLedger) Release(ctx context.Context, productID int64, quantity int) error {
	ctx, span := util.StartSpan(ctx, "StockLedger.Release")
	defer span.End()

	err := l.products.AdjustStock(ctx, productID, quantity)
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound(fmt.Sprintf("product %d not found", productID))
	}
	if err != nil {
		return fmt.Errorf("failed to release stock for product %d: %w", productID, err)
	}

	util.StockReleasedTotal.Add(float64(quantity))
	return nil
}
