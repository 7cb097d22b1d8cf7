package sale

import (
	"time"

	"github.com/shopspring/decimal"
)

type ProductRef struct {
	ProductID  string `json:"product_id"`
	MerchantID string `json:"merchant_id"`
}

// ProductSnapshot is what the product catalog reports for a product at the
// moment an offer is created.
type ProductSnapshot struct {
	ProductID        string
	MerchantID       string
	Name             string
	Image            string
	MerchantLabel    string
	MerchantVerified bool
}

type Offer struct {
	ID            string
	Product       ProductRef
	ProductName   string
	ProductImage  string
	MerchantLabel string

	OriginalPrice      decimal.Decimal
	SalePrice          decimal.Decimal
	DiscountPercentage int

	TotalStock       int
	UnitsSold        int
	MaxUnitsPerBuyer int

	// TopBuyerUnits is the largest quantity any single buyer holds on this
	// offer. Stores fill it on GetSale; it is never written back.
	TopBuyerUnits int
}

func (o *Offer) RemainingStock() int {
	if o.UnitsSold >= o.TotalStock {
		return 0
	}
	return o.TotalStock - o.UnitsSold
}

func (o *Offer) SoldOut() bool {
	return o.UnitsSold >= o.TotalStock
}

// ApplySnapshot denormalizes the catalog data onto the offer.
func (o *Offer) ApplySnapshot(snap *ProductSnapshot) {
	o.Product = ProductRef{ProductID: snap.ProductID, MerchantID: snap.MerchantID}
	o.ProductName = snap.Name
	o.ProductImage = snap.Image
	o.MerchantLabel = snap.MerchantLabel
}

type Sale struct {
	ID               string
	Title            string
	Description      string
	StartsAt         time.Time
	EndsAt           time.Time
	ManuallyDisabled bool
	Offers           []Offer

	TotalViews     int64
	TotalUnitsSold int64

	CreatedBy string
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

func (s *Sale) FindOffer(offerID string) (*Offer, bool) {
	for i := range s.Offers {
		if s.Offers[i].ID == offerID {
			return &s.Offers[i], true
		}
	}
	return nil, false
}

func (s *Sale) IsDeleted() bool {
	return s.DeletedAt != nil
}

// CommittedUnits sums unitsSold across offers.
func (s *Sale) CommittedUnits() int {
	total := 0
	for _, o := range s.Offers {
		total += o.UnitsSold
	}
	return total
}

func (s *Sale) Clone() *Sale {
	clone := *s
	clone.Offers = make([]Offer, len(s.Offers))
	copy(clone.Offers, s.Offers)
	if s.DeletedAt != nil {
		deletedAt := *s.DeletedAt
		clone.DeletedAt = &deletedAt
	}
	return &clone
}
