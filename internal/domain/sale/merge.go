package sale

import (
	domainErrors "github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/domain/errors"
)

// MergeAdminUpdate combines an admin-edited copy with the stored sale. Fields
// owned by the allocator (unitsSold, totalUnitsSold, totalViews) and creation
// metadata always come from stored. It fails with ErrVersionConflict when the
// edit would cut stock below committed units, set a per-buyer cap below
// stored.TopBuyerUnits, reprice an offer that has sold, or drop an offer that
// has sold.
func MergeAdminUpdate(stored, edited *Sale, expectedVersion int64) (*Sale, error) {
	if stored.Version != expectedVersion {
		return nil, domainErrors.ErrVersionConflict
	}

	next := edited.Clone()
	incoming := make(map[string]bool, len(next.Offers))
	for i := range next.Offers {
		o := &next.Offers[i]
		incoming[o.ID] = true

		current, exists := stored.FindOffer(o.ID)
		if !exists {
			o.UnitsSold = 0
			o.TopBuyerUnits = 0
			continue
		}
		o.UnitsSold = current.UnitsSold
		o.TopBuyerUnits = current.TopBuyerUnits
		if o.TotalStock < current.UnitsSold || o.MaxUnitsPerBuyer < current.TopBuyerUnits {
			return nil, domainErrors.ErrVersionConflict
		}
		if current.UnitsSold > 0 && (!o.OriginalPrice.Equal(current.OriginalPrice) || !o.SalePrice.Equal(current.SalePrice)) {
			return nil, domainErrors.ErrVersionConflict
		}
	}
	for _, o := range stored.Offers {
		if !incoming[o.ID] && o.UnitsSold > 0 {
			return nil, domainErrors.ErrVersionConflict
		}
	}

	next.TotalViews = stored.TotalViews
	next.TotalUnitsSold = stored.TotalUnitsSold
	next.CreatedAt = stored.CreatedAt
	next.CreatedBy = stored.CreatedBy
	next.DeletedAt = stored.DeletedAt
	next.Version = expectedVersion + 1
	return next, nil
}
