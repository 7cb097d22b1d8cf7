package memory

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	domainErrors "github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/domain/errors"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/domain/sale"
)

// Catalog is a static product catalog keyed by product id.
type Catalog struct {
	mu       sync.RWMutex
	products map[string]sale.ProductSnapshot
}

func NewCatalog(products ...sale.ProductSnapshot) *Catalog {
	c := &Catalog{products: make(map[string]sale.ProductSnapshot, len(products))}
	for _, p := range products {
		c.products[p.ProductID] = p
	}
	return c
}

func (c *Catalog) Put(p sale.ProductSnapshot) {
	c.mu.Lock()
	c.products[p.ProductID] = p
	c.mu.Unlock()
}

func (c *Catalog) Snapshot(_ context.Context, productID string) (*sale.ProductSnapshot, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.products[productID]
	if !ok {
		return nil, domainErrors.ErrProductNotFound
	}
	return &p, nil
}

// UpsertProduct matches the persistent catalogs. The list price is not
// stored here; snapshots carry only what sales copy.
func (c *Catalog) UpsertProduct(_ context.Context, p sale.ProductSnapshot, _ decimal.Decimal) error {
	c.Put(p)
	return nil
}
