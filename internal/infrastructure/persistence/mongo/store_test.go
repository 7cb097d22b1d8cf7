package mongo

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/v2/bson"

	domainErrors "github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/domain/errors"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/domain/sale"
)

func TestSaleDocumentKeepsExactPrices(t *testing.T) {
	deleted := time.Date(2025, 11, 28, 15, 0, 0, 0, time.UTC)
	s := &sale.Sale{
		ID:       "sale_1",
		Title:    "Black Friday",
		StartsAt: time.Date(2025, 11, 28, 10, 0, 0, 0, time.UTC),
		EndsAt:   time.Date(2025, 11, 28, 14, 0, 0, 0, time.UTC),
		Offers: []sale.Offer{{
			ID:                 "offer_1",
			Product:            sale.ProductRef{ProductID: "product-1", MerchantID: "merchant-1"},
			OriginalPrice:      decimal.RequireFromString("1999.99"),
			SalePrice:          decimal.RequireFromString("1399.993"),
			DiscountPercentage: 30,
			TotalStock:         10,
			UnitsSold:          4,
			MaxUnitsPerBuyer:   2,
		}},
		TotalUnitsSold: 4,
		Version:        3,
		DeletedAt:      &deleted,
	}

	doc := toSaleDocument(s)
	if doc.Offers[0].SalePrice != "1399.993" {
		t.Errorf("SalePrice stored as %q", doc.Offers[0].SalePrice)
	}

	back, err := fromSaleDocument(doc)
	if err != nil {
		t.Fatal(err)
	}
	o := back.Offers[0]
	if !o.SalePrice.Equal(s.Offers[0].SalePrice) || !o.OriginalPrice.Equal(s.Offers[0].OriginalPrice) {
		t.Errorf("prices changed: %s / %s", o.OriginalPrice, o.SalePrice)
	}
	if o.UnitsSold != 4 || back.Version != 3 || back.DeletedAt == nil || !back.DeletedAt.Equal(deleted) {
		t.Errorf("sale changed: %+v", back)
	}
}

func TestFromSaleDocumentRejectsBadPrice(t *testing.T) {
	doc := &saleDocument{ID: "sale_1", Offers: []offerDocument{{ID: "offer_1", OriginalPrice: "abc", SalePrice: "1"}}}
	if _, err := fromSaleDocument(doc); err == nil {
		t.Fatal("expected error")
	}
}

func TestListFilter(t *testing.T) {
	now := time.Date(2025, 11, 28, 12, 0, 0, 0, time.UTC)

	live := listFilter(sale.ListFilter{EndsAfter: &now})
	if v, ok := live["deleted_at"]; !ok || v != nil {
		t.Errorf("live filter should exclude deleted sales: %v", live)
	}
	ends, ok := live["ends_at"].(bson.M)
	gt, _ := ends["$gt"].(time.Time)
	if !ok || !gt.Equal(now) {
		t.Errorf("ends_at filter = %v", live["ends_at"])
	}

	all := listFilter(sale.ListFilter{IncludeDeleted: true})
	if len(all) != 0 {
		t.Errorf("unfiltered listing should match everything: %v", all)
	}
}

func TestAllocationID(t *testing.T) {
	if got := allocationID("sale_1", "offer_1", "buyer-a"); got != "sale_1|offer_1|buyer-a" {
		t.Errorf("allocationID = %q", got)
	}
}

func TestClassifyPassesDomainErrors(t *testing.T) {
	if err := classify(domainErrors.ErrSaleNotActive); !errors.Is(err, domainErrors.ErrSaleNotActive) {
		t.Errorf("classify changed a domain error: %v", err)
	}
	if classify(nil) != nil {
		t.Error("classify(nil) should be nil")
	}
}
