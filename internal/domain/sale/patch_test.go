package sale

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	domainErrors "github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/domain/errors"
)

func intPtr(v int) *int { return &v }

func decPtr(s string) *decimal.Decimal {
	d := price(s)
	return &d
}

func violations(t *testing.T, err error) map[string]string {
	t.Helper()
	var vErr *domainErrors.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	return vErr.Fields()
}

func TestPatchUpdatesScheduleAndTitle(t *testing.T) {
	s := validSale()
	title := "Cyber Monday"
	ends := base.Add(6 * time.Hour)

	err := SalePatch{Title: &title, EndsAt: &ends}.Apply(s, base.Add(-time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Title != title || !s.EndsAt.Equal(ends) {
		t.Errorf("patch not applied: %+v", s)
	}
}

func TestPatchRevalidatesAfterApplying(t *testing.T) {
	s := validSale()
	ends := base.Add(-time.Hour)

	fields := violations(t, SalePatch{EndsAt: &ends}.Apply(s, base.Add(-2*time.Hour)))
	if _, ok := fields["endsAt"]; !ok {
		t.Errorf("expected endsAt violation, got %v", fields)
	}
}

func TestPatchStockCannotDropBelowUnitsSold(t *testing.T) {
	s := validSale()
	s.Offers[0].UnitsSold = 6

	patch := SalePatch{Offers: []OfferPatch{{ID: "offer_1", TotalStock: intPtr(5)}}}
	fields := violations(t, patch.Apply(s, base.Add(time.Minute)))
	if _, ok := fields["offers[offer_1].totalStock"]; !ok {
		t.Errorf("expected totalStock violation, got %v", fields)
	}

	ok := SalePatch{Offers: []OfferPatch{{ID: "offer_1", TotalStock: intPtr(6)}}}
	if err := ok.Apply(validSaleWithSold(6), base.Add(time.Minute)); err != nil {
		t.Errorf("stock equal to units sold should be accepted: %v", err)
	}
}

func TestPatchCapCannotDropBelowTopBuyer(t *testing.T) {
	s := validSaleWithSold(4)
	s.Offers[0].TopBuyerUnits = 3

	patch := SalePatch{Offers: []OfferPatch{{ID: "offer_1", MaxUnitsPerBuyer: intPtr(2)}}}
	fields := violations(t, patch.Apply(s, base.Add(time.Minute)))
	if _, ok := fields["offers[offer_1].maxUnitsPerBuyer"]; !ok {
		t.Errorf("expected maxUnitsPerBuyer violation, got %v", fields)
	}

	s = validSaleWithSold(4)
	s.Offers[0].TopBuyerUnits = 3
	ok := SalePatch{Offers: []OfferPatch{{ID: "offer_1", MaxUnitsPerBuyer: intPtr(3)}}}
	if err := ok.Apply(s, base.Add(time.Minute)); err != nil {
		t.Errorf("cap equal to the top buyer should be accepted: %v", err)
	}
	if s.Offers[0].MaxUnitsPerBuyer != 3 {
		t.Errorf("maxUnitsPerBuyer = %d, want 3", s.Offers[0].MaxUnitsPerBuyer)
	}
}

func validSaleWithSold(sold int) *Sale {
	s := validSale()
	s.Offers[0].UnitsSold = sold
	return s
}

func TestPatchRecomputesDiscount(t *testing.T) {
	s := validSale()

	patch := SalePatch{Offers: []OfferPatch{{ID: "offer_1", SalePrice: decPtr("500")}}}
	if err := patch.Apply(s, base.Add(-time.Hour)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Offers[0].DiscountPercentage != 50 {
		t.Errorf("DiscountPercentage = %d, want 50", s.Offers[0].DiscountPercentage)
	}
}

func TestPatchRejectsSuppliedDiscountMismatch(t *testing.T) {
	s := validSale()

	patch := SalePatch{Offers: []OfferPatch{{ID: "offer_1", SalePrice: decPtr("500"), DiscountPercentage: intPtr(40)}}}
	fields := violations(t, patch.Apply(s, base.Add(-time.Hour)))
	if _, ok := fields["offers[0].discountPercentage"]; !ok {
		t.Errorf("expected discount violation, got %v", fields)
	}
}

func TestPatchFreezesPricesAfterSales(t *testing.T) {
	s := validSaleWithSold(1)

	patch := SalePatch{Offers: []OfferPatch{{ID: "offer_1", SalePrice: decPtr("500")}}}
	fields := violations(t, patch.Apply(s, base.Add(time.Minute)))
	if _, ok := fields["offers[offer_1].salePrice"]; !ok {
		t.Errorf("expected price freeze violation, got %v", fields)
	}
}

func TestPatchOfferMembership(t *testing.T) {
	t.Run("add before start", func(t *testing.T) {
		s := validSale()
		patch := SalePatch{AddOffers: []Offer{validOffer("offer_2", "product-2")}}
		if err := patch.Apply(s, base.Add(-time.Minute)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(s.Offers) != 2 {
			t.Errorf("expected 2 offers, got %d", len(s.Offers))
		}
	})

	t.Run("add after start", func(t *testing.T) {
		s := validSale()
		patch := SalePatch{AddOffers: []Offer{validOffer("offer_2", "product-2")}}
		fields := violations(t, patch.Apply(s, base.Add(time.Minute)))
		if _, ok := fields["offers"]; !ok {
			t.Errorf("expected offers violation, got %v", fields)
		}
	})

	t.Run("remove sold offer", func(t *testing.T) {
		s := validSaleWithSold(2)
		s.Offers = append(s.Offers, validOffer("offer_2", "product-2"))
		patch := SalePatch{RemoveOffers: []string{"offer_1"}}
		fields := violations(t, patch.Apply(s, base.Add(time.Minute)))
		if _, ok := fields["offers[offer_1]"]; !ok {
			t.Errorf("expected removal violation, got %v", fields)
		}
	})

	t.Run("remove unsold offer", func(t *testing.T) {
		s := validSale()
		s.Offers = append(s.Offers, validOffer("offer_2", "product-2"))
		patch := SalePatch{RemoveOffers: []string{"offer_2"}}
		if err := patch.Apply(s, base.Add(time.Minute)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(s.Offers) != 1 || s.Offers[0].ID != "offer_1" {
			t.Errorf("unexpected offers after removal: %+v", s.Offers)
		}
	})

	t.Run("unknown offer", func(t *testing.T) {
		s := validSale()
		patch := SalePatch{Offers: []OfferPatch{{ID: "offer_x", TotalStock: intPtr(4)}}}
		fields := violations(t, patch.Apply(s, base))
		if _, ok := fields["offers[offer_x]"]; !ok {
			t.Errorf("expected unknown offer violation, got %v", fields)
		}
	})
}
