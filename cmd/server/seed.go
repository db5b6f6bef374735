package main

import (
	"context"
	"fmt"

	"ecommerce-service/internal/models"
	"ecommerce-service/internal/store/memory"
	"ecommerce-service/internal/util"

	"go.uber.org/zap"
)

// demoUserID owns the seeded address so the memory driver is usable out of the box.
const demoUserID = 1

var demoProducts = []models.Product{
	{Name: "Kopi Arabika Gayo 250g", PriceInRupiah: 85000, StockQuantity: 40},
	{Name: "Batik Tulis Pekalongan", PriceInRupiah: 450000, StockQuantity: 8},
	{Name: "Sambal Bawang 200ml", PriceInRupiah: 32000, StockQuantity: 120},
	{Name: "Tas Rotan Bali", PriceInRupiah: 275000, StockQuantity: 15},
}

func seedDemoData(ctx context.Context, db *memory.Store) error {
	for i := range demoProducts {
		p := demoProducts[i]
		if err := db.CreateProduct(ctx, &p); err != nil {
			return fmt.Errorf("failed to seed product %q: %w", p.Name, err)
		}
	}

	address := &models.Address{
		UserID:        demoUserID,
		RecipientName: "Demo User",
		PhoneNumber:   "081234567890",
		Street:        "Jl. Jend. Sudirman No. 1",
		City:          "Jakarta Selatan",
		Province:      "DKI Jakarta",
		PostalCode:    "12190",
	}
	if err := db.CreateAddress(ctx, address); err != nil {
		return fmt.Errorf("failed to seed address: %w", err)
	}

	util.GetLogger().Info("Seeded demo data",
		zap.Int("products", len(demoProducts)),
		zap.Int64("user_id", demoUserID),
		zap.Int64("address_id", address.ID))
	return nil
}
