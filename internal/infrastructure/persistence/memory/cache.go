package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/application/ports"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/domain/sale"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/pkg/clock"
)

type listingEntry struct {
	sales     []*sale.Sale
	expiresAt time.Time
}

type offerKey struct {
	saleID  string
	offerID string
}

// Cache is the single-process stand-in for the Redis cache.
type Cache struct {
	mu       sync.Mutex
	clock    clock.Clock
	listings map[string]listingEntry
	hot      map[offerKey]int64
}

func NewCache(clk clock.Clock) *Cache {
	return &Cache{
		clock:    clk,
		listings: make(map[string]listingEntry),
		hot:      make(map[offerKey]int64),
	}
}

func (c *Cache) GetListing(_ context.Context, key string) ([]*sale.Sale, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.listings[key]
	if !ok {
		return nil, false, nil
	}
	if !c.clock.Now().Before(entry.expiresAt) {
		delete(c.listings, key)
		return nil, false, nil
	}
	return cloneSales(entry.sales), true, nil
}

func (c *Cache) SetListing(_ context.Context, key string, sales []*sale.Sale, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.listings[key] = listingEntry{
		sales:     cloneSales(sales),
		expiresAt: c.clock.Now().Add(ttl),
	}
	return nil
}

func (c *Cache) InvalidateListings(context.Context) error {
	c.mu.Lock()
	c.listings = make(map[string]listingEntry)
	c.mu.Unlock()
	return nil
}

func (c *Cache) RecordContention(_ context.Context, saleID, offerID string) error {
	c.mu.Lock()
	c.hot[offerKey{saleID: saleID, offerID: offerID}]++
	c.mu.Unlock()
	return nil
}

func (c *Cache) TopContended(_ context.Context, limit int) ([]ports.HotOffer, error) {
	c.mu.Lock()
	out := make([]ports.HotOffer, 0, len(c.hot))
	for key, n := range c.hot {
		out = append(out, ports.HotOffer{SaleID: key.saleID, OfferID: key.offerID, Contentions: n})
	}
	c.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Contentions != out[j].Contentions {
			return out[i].Contentions > out[j].Contentions
		}
		if out[i].SaleID != out[j].SaleID {
			return out[i].SaleID < out[j].SaleID
		}
		return out[i].OfferID < out[j].OfferID
	})
	if limit < 0 {
		limit = 0
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (c *Cache) Ping(context.Context) error { return nil }

func cloneSales(sales []*sale.Sale) []*sale.Sale {
	out := make([]*sale.Sale, len(sales))
	for i, s := range sales {
		out[i] = s.Clone()
	}
	return out
}
