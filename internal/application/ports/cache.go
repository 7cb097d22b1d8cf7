package ports

import (
	"context"
	"time"

	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/domain/sale"
)

// HotOffer is an offer ranked by how often reservations on it ran out of retries.
type HotOffer struct {
	SaleID      string `json:"sale_id"`
	OfferID     string `json:"offer_id"`
	Contentions int64  `json:"contentions"`
}

// Cache holds derived, disposable data. Nothing in it is authoritative:
// every miss or error falls back to the repository.
type Cache interface {
	GetListing(ctx context.Context, key string) ([]*sale.Sale, bool, error)
	SetListing(ctx context.Context, key string, sales []*sale.Sale, ttl time.Duration) error
	InvalidateListings(ctx context.Context) error

	RecordContention(ctx context.Context, saleID, offerID string) error
	TopContended(ctx context.Context, limit int) ([]HotOffer, error)

	Ping(ctx context.Context) error
}

// SaleIndex answers "definitely unknown" for sale ids. A positive answer may
// be a false positive and must be confirmed against the repository.
type SaleIndex interface {
	Add(ctx context.Context, saleID string) error
	Contains(ctx context.Context, saleID string) (bool, error)
}
