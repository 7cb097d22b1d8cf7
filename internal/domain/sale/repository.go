package sale

import (
	"context"
	"time"
)

type ListFilter struct {
	IncludeDeleted bool
	// EndsAfter keeps only sales whose EndsAt is strictly after the given time.
	EndsAfter *time.Time
}

// Repository is the sale catalog store. Counter mutations (RecordView,
// ReserveUnits) are atomic at the storage boundary and never bump Version.
type Repository interface {
	CreateSale(ctx context.Context, sale *Sale) error
	// GetSale also fills each offer's TopBuyerUnits from the buyer ledger.
	GetSale(ctx context.Context, id string) (*Sale, error)
	ListSales(ctx context.Context, filter ListFilter) ([]*Sale, error)

	// UpdateSale writes the admin-owned fields if the stored version equals
	// expectedVersion, and sets sale.Version to the new version. It never lets
	// an offer's TotalStock drop below the stored UnitsSold, nor its
	// MaxUnitsPerBuyer below any buyer's committed quantity.
	UpdateSale(ctx context.Context, sale *Sale, expectedVersion int64) error

	// DeleteSale hard-deletes a sale with no committed units.
	DeleteSale(ctx context.Context, id string) error
	SoftDeleteSale(ctx context.Context, id string, at time.Time) error

	RecordView(ctx context.Context, id string) error

	// ReserveUnits re-checks the phase, the stock guard and the buyer quota and
	// commits all counter increments as one unit, or nothing.
	ReserveUnits(ctx context.Context, req ReserveRequest) (*ReservationReceipt, error)
	BuyerTotal(ctx context.Context, saleID, offerID, buyerID string) (int, error)
}
