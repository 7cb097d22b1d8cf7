package sale

import (
	"errors"
	"testing"

	domainErrors "github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/domain/errors"
)

func storedWithSales(unitsSold int) *Sale {
	s := validSale()
	s.Version = 4
	s.TotalViews = 120
	s.TotalUnitsSold = int64(unitsSold)
	s.CreatedBy = "admin-1"
	s.Offers[0].UnitsSold = unitsSold
	s.Offers[0].TopBuyerUnits = min(unitsSold, s.Offers[0].MaxUnitsPerBuyer)
	return s
}

func TestMergeAdminUpdateKeepsCounters(t *testing.T) {
	stored := storedWithSales(4)
	edited := stored.Clone()
	edited.Title = "Renamed"
	edited.TotalViews = 0
	edited.TotalUnitsSold = 0
	edited.CreatedBy = "someone-else"
	edited.Offers[0].UnitsSold = 0
	edited.Offers[0].TotalStock = 20

	next, err := MergeAdminUpdate(stored, edited, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next.Title != "Renamed" || next.Version != 5 {
		t.Errorf("admin fields not applied: %+v", next)
	}
	if next.TotalViews != 120 || next.TotalUnitsSold != 4 || next.Offers[0].UnitsSold != 4 {
		t.Errorf("counters overwritten: views=%d units=%d offer=%d", next.TotalViews, next.TotalUnitsSold, next.Offers[0].UnitsSold)
	}
	if next.CreatedBy != "admin-1" {
		t.Errorf("CreatedBy = %q", next.CreatedBy)
	}
	if stored.Title == "Renamed" {
		t.Error("stored sale mutated")
	}
}

func TestMergeAdminUpdateConflicts(t *testing.T) {
	tests := []struct {
		name     string
		sold     int
		version  int64
		edit     func(s *Sale)
		conflict bool
	}{
		{"stale version", 0, 3, func(s *Sale) {}, true},
		{"stock below sold", 4, 4, func(s *Sale) { s.Offers[0].TotalStock = 3 }, true},
		{"stock equal to sold", 4, 4, func(s *Sale) { s.Offers[0].TotalStock = 4 }, false},
		{"cap below top buyer", 4, 4, func(s *Sale) { s.Offers[0].MaxUnitsPerBuyer = 2 }, true},
		{"cap raised above top buyer", 4, 4, func(s *Sale) { s.Offers[0].MaxUnitsPerBuyer = 5 }, false},
		{"reprice after sales", 1, 4, func(s *Sale) { s.Offers[0].SalePrice = price("700") }, true},
		{"reprice before sales", 0, 4, func(s *Sale) { s.Offers[0].SalePrice = price("700") }, false},
		{"drop sold offer", 2, 4, func(s *Sale) { s.Offers = nil }, true},
		{"drop unsold offer", 0, 4, func(s *Sale) { s.Offers = []Offer{validOffer("offer_2", "product-2")} }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stored := storedWithSales(tt.sold)
			edited := stored.Clone()
			tt.edit(edited)

			_, err := MergeAdminUpdate(stored, edited, tt.version)
			if got := errors.Is(err, domainErrors.ErrVersionConflict); got != tt.conflict {
				t.Errorf("conflict = %v (err %v), want %v", got, err, tt.conflict)
			}
		})
	}
}

func TestMergeAdminUpdateNewOfferStartsEmpty(t *testing.T) {
	stored := storedWithSales(0)
	edited := stored.Clone()
	added := validOffer("offer_2", "product-2")
	added.UnitsSold = 9
	edited.Offers = append(edited.Offers, added)

	next, err := MergeAdminUpdate(stored, edited, 4)
	if err != nil {
		t.Fatal(err)
	}
	if next.Offers[1].UnitsSold != 0 {
		t.Errorf("new offer UnitsSold = %d", next.Offers[1].UnitsSold)
	}
}
