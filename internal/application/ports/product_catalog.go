package ports

import (
	"context"

	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/domain/sale"
)

type ProductCatalog interface {
	// Snapshot returns domain errors.ErrProductNotFound for unknown products.
	Snapshot(ctx context.Context, productID string) (*sale.ProductSnapshot, error)
}
