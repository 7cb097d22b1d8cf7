package sale

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	domainErrors "github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/domain/errors"
)

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func validOffer(id, productID string) Offer {
	return Offer{
		ID:                 id,
		Product:            ProductRef{ProductID: productID, MerchantID: "merchant-1"},
		OriginalPrice:      price("1000"),
		SalePrice:          price("750"),
		DiscountPercentage: 25,
		TotalStock:         10,
		MaxUnitsPerBuyer:   3,
	}
}

func validSale() *Sale {
	return &Sale{
		ID:          "sale_1",
		Title:       "Black Friday",
		Description: "Verified merchants only",
		StartsAt:    base,
		EndsAt:      base.Add(4 * time.Hour),
		Offers:      []Offer{validOffer("offer_1", "product-1")},
	}
}

func TestDiscountPercentage(t *testing.T) {
	tests := []struct {
		original, sale string
		want           int
	}{
		{"1000", "750", 25},
		{"3", "2", 33},
		{"3", "1", 67},
		{"200", "199", 1},
		{"200", "201", -1},
		{"8", "7.9", 1},
		{"1000", "995", 1},
		{"1000", "985", 2},
	}

	for _, tt := range tests {
		got := DiscountPercentage(price(tt.original), price(tt.sale))
		if got != tt.want {
			t.Errorf("DiscountPercentage(%s, %s) = %d, want %d", tt.original, tt.sale, got, tt.want)
		}
	}
}

func TestValidateAcceptsValidSale(t *testing.T) {
	if err := Validate(validSale()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateReportsEveryViolation(t *testing.T) {
	s := validSale()
	s.Title = "  "
	s.EndsAt = s.StartsAt
	s.Offers[0].SalePrice = price("1200")
	s.Offers[0].TotalStock = 0
	s.Offers[0].MaxUnitsPerBuyer = 0
	s.Offers = append(s.Offers, validOffer("offer_2", "product-1"))

	err := Validate(s)
	var vErr *domainErrors.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	fields := vErr.Fields()
	for _, field := range []string{
		"title",
		"endsAt",
		"offers[0].salePrice",
		"offers[0].totalStock",
		"offers[0].maxUnitsPerBuyer",
		"offers[1].productId",
	} {
		if _, ok := fields[field]; !ok {
			t.Errorf("missing violation for %s (got %v)", field, fields)
		}
	}
}

func TestValidateRejectsDiscountMismatch(t *testing.T) {
	s := validSale()
	s.Offers[0].DiscountPercentage = 30

	var vErr *domainErrors.ValidationError
	if !errors.As(Validate(s), &vErr) {
		t.Fatal("expected validation error")
	}
	if _, ok := vErr.Fields()["offers[0].discountPercentage"]; !ok {
		t.Errorf("expected discount violation, got %v", vErr.Fields())
	}
}

func TestValidateRejectsOversoldOffer(t *testing.T) {
	s := validSale()
	s.Offers[0].UnitsSold = 11

	if err := Validate(s); !errors.Is(err, domainErrors.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestValidateRequiresOffers(t *testing.T) {
	s := validSale()
	s.Offers = nil

	var vErr *domainErrors.ValidationError
	if !errors.As(Validate(s), &vErr) {
		t.Fatal("expected validation error")
	}
	if _, ok := vErr.Fields()["offers"]; !ok {
		t.Errorf("expected offers violation, got %v", vErr.Fields())
	}
}
