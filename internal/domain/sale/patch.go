package sale

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	domainErrors "github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/domain/errors"
)

// OfferPatch edits an existing offer. Nil fields are left untouched.
type OfferPatch struct {
	ID                 string
	OriginalPrice      *decimal.Decimal
	SalePrice          *decimal.Decimal
	DiscountPercentage *int
	TotalStock         *int
	MaxUnitsPerBuyer   *int
}

func (p OfferPatch) changesPrice() bool {
	return p.OriginalPrice != nil || p.SalePrice != nil || p.DiscountPercentage != nil
}

// SalePatch is a partial update of the admin-owned fields of a sale.
// AddOffers must already carry ids and product snapshots.
type SalePatch struct {
	Title            *string
	Description      *string
	StartsAt         *time.Time
	EndsAt           *time.Time
	ManuallyDisabled *bool

	Offers       []OfferPatch
	AddOffers    []Offer
	RemoveOffers []string
}

func (p SalePatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.StartsAt == nil && p.EndsAt == nil &&
		p.ManuallyDisabled == nil && len(p.Offers) == 0 && len(p.AddOffers) == 0 && len(p.RemoveOffers) == 0
}

// Apply mutates s and then re-validates the whole sale. Every rule violation
// and every invariant violation is reported together.
func (p SalePatch) Apply(s *Sale, now time.Time) error {
	v := &domainErrors.ValidationError{}
	phase := EvaluatePhase(s, now)

	if p.Title != nil {
		s.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		s.Description = strings.TrimSpace(*p.Description)
	}
	if p.StartsAt != nil {
		s.StartsAt = p.StartsAt.UTC()
	}
	if p.EndsAt != nil {
		s.EndsAt = p.EndsAt.UTC()
	}
	if p.ManuallyDisabled != nil {
		s.ManuallyDisabled = *p.ManuallyDisabled
	}

	for _, op := range p.Offers {
		field := fmt.Sprintf("offers[%s]", op.ID)
		o, ok := s.FindOffer(op.ID)
		if !ok {
			v.Add(field, "offer not found in sale")
			continue
		}

		if op.changesPrice() && o.UnitsSold > 0 {
			v.Add(field+".salePrice", "prices cannot change after units were sold")
		} else {
			if op.OriginalPrice != nil {
				o.OriginalPrice = *op.OriginalPrice
			}
			if op.SalePrice != nil {
				o.SalePrice = *op.SalePrice
			}
			if op.DiscountPercentage != nil {
				o.DiscountPercentage = *op.DiscountPercentage
			} else if op.OriginalPrice != nil || op.SalePrice != nil {
				o.DiscountPercentage = DiscountPercentage(o.OriginalPrice, o.SalePrice)
			}
		}

		if op.TotalStock != nil {
			if *op.TotalStock < o.UnitsSold {
				v.Add(field+".totalStock", fmt.Sprintf("cannot be below units already sold (%d)", o.UnitsSold))
			} else {
				o.TotalStock = *op.TotalStock
			}
		}
		if op.MaxUnitsPerBuyer != nil {
			if *op.MaxUnitsPerBuyer < o.TopBuyerUnits {
				v.Add(field+".maxUnitsPerBuyer", fmt.Sprintf("cannot be below a buyer's committed quantity (%d)", o.TopBuyerUnits))
			} else {
				o.MaxUnitsPerBuyer = *op.MaxUnitsPerBuyer
			}
		}
	}

	for _, id := range p.RemoveOffers {
		field := fmt.Sprintf("offers[%s]", id)
		o, ok := s.FindOffer(id)
		switch {
		case !ok:
			v.Add(field, "offer not found in sale")
		case o.UnitsSold > 0:
			v.Add(field, "offer with sold units cannot be removed")
		default:
			s.Offers = removeOffer(s.Offers, id)
		}
	}

	if len(p.AddOffers) > 0 {
		if phase != PhaseScheduled {
			v.Add("offers", "offers can only be added before the sale starts")
		} else {
			for _, o := range p.AddOffers {
				o.UnitsSold = 0
				s.Offers = append(s.Offers, o)
			}
		}
	}

	validateInto(v, s)
	return v.OrNil()
}

func removeOffer(offers []Offer, id string) []Offer {
	out := offers[:0]
	for _, o := range offers {
		if o.ID != id {
			out = append(out, o)
		}
	}
	return out
}
