package sale

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	domainErrors "github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/domain/errors"
)

const (
	maxTitleLength       = 200
	maxDescriptionLength = 4000
)

var hundred = decimal.NewFromInt(100)

// DiscountPercentage is round((original - sale) / original * 100), half away
// from zero. Callers must pass a positive original price.
func DiscountPercentage(original, salePrice decimal.Decimal) int {
	if !original.IsPositive() {
		return 0
	}
	return int(original.Sub(salePrice).Mul(hundred).Div(original).Round(0).IntPart())
}

// Validate checks every invariant of a sale and reports all violations at once.
func Validate(s *Sale) error {
	v := &domainErrors.ValidationError{}
	validateInto(v, s)
	return v.OrNil()
}

func validateInto(v *domainErrors.ValidationError, s *Sale) {
	title := strings.TrimSpace(s.Title)
	switch {
	case title == "":
		v.Add("title", "is required")
	case len(title) > maxTitleLength:
		v.Add("title", fmt.Sprintf("must be at most %d characters", maxTitleLength))
	}

	description := strings.TrimSpace(s.Description)
	switch {
	case description == "":
		v.Add("description", "is required")
	case len(description) > maxDescriptionLength:
		v.Add("description", fmt.Sprintf("must be at most %d characters", maxDescriptionLength))
	}

	if s.StartsAt.IsZero() {
		v.Add("startsAt", "is required")
	}
	if s.EndsAt.IsZero() {
		v.Add("endsAt", "is required")
	}
	if !s.StartsAt.IsZero() && !s.EndsAt.IsZero() && !s.StartsAt.Before(s.EndsAt) {
		v.Add("endsAt", "must be after startsAt")
	}

	if len(s.Offers) == 0 {
		v.Add("offers", "at least one offer is required")
	}

	seenIDs := make(map[string]bool, len(s.Offers))
	seenProducts := make(map[string]bool, len(s.Offers))
	for i := range s.Offers {
		validateOffer(v, fmt.Sprintf("offers[%d]", i), &s.Offers[i])

		o := &s.Offers[i]
		if o.ID != "" {
			if seenIDs[o.ID] {
				v.Add(fmt.Sprintf("offers[%d].id", i), "is duplicated")
			}
			seenIDs[o.ID] = true
		}
		if o.Product.ProductID != "" {
			if seenProducts[o.Product.ProductID] {
				v.Add(fmt.Sprintf("offers[%d].productId", i), "product already has an offer in this sale")
			}
			seenProducts[o.Product.ProductID] = true
		}
	}
}

func validateOffer(v *domainErrors.ValidationError, prefix string, o *Offer) {
	if o.Product.ProductID == "" {
		v.Add(prefix+".productId", "is required")
	}

	if !o.OriginalPrice.IsPositive() {
		v.Add(prefix+".originalPrice", "must be greater than zero")
	}
	if !o.SalePrice.IsPositive() {
		v.Add(prefix+".salePrice", "must be greater than zero")
	}
	if o.OriginalPrice.IsPositive() && o.SalePrice.IsPositive() {
		if !o.SalePrice.LessThan(o.OriginalPrice) {
			v.Add(prefix+".salePrice", "must be less than originalPrice")
		} else if expected := DiscountPercentage(o.OriginalPrice, o.SalePrice); o.DiscountPercentage != expected {
			v.Add(prefix+".discountPercentage", fmt.Sprintf("must be %d for the given prices", expected))
		}
	}

	if o.TotalStock <= 0 {
		v.Add(prefix+".totalStock", "must be greater than zero")
	}
	if o.UnitsSold < 0 {
		v.Add(prefix+".unitsSold", "cannot be negative")
	}
	if o.TotalStock > 0 && o.UnitsSold > o.TotalStock {
		v.Add(prefix+".totalStock", fmt.Sprintf("cannot be below units already sold (%d)", o.UnitsSold))
	}
	if o.MaxUnitsPerBuyer <= 0 {
		v.Add(prefix+".maxUnitsPerBuyer", "must be greater than zero")
	}
}
