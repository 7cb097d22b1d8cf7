package sale

import (
	"strings"
	"time"

	domainErrors "github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/domain/errors"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/domain/user"
)

type ReserveRequest struct {
	SaleID   string
	OfferID  string
	BuyerID  string
	Quantity int
	Now      time.Time
}

func (r ReserveRequest) Validate() error {
	v := &domainErrors.ValidationError{}
	if strings.TrimSpace(r.SaleID) == "" {
		v.Add("saleId", "is required")
	}
	if strings.TrimSpace(r.OfferID) == "" {
		v.Add("offerId", "is required")
	}
	if strings.TrimSpace(r.BuyerID) == "" {
		v.Add("buyerId", "is required")
	}
	if r.Quantity < 1 {
		v.Add("quantity", "must be at least 1")
	}
	return v.OrNil()
}

// ReservationReceipt is returned once units are committed to a buyer.
type ReservationReceipt struct {
	SaleID         string    `json:"sale_id"`
	OfferID        string    `json:"offer_id"`
	BuyerID        string    `json:"buyer_id"`
	Quantity       int       `json:"quantity"`
	UnitsSold      int       `json:"units_sold"`
	RemainingStock int       `json:"remaining_stock"`
	BuyerTotal     int       `json:"buyer_total"`
	BuyerRemaining int       `json:"buyer_remaining"`
	CommittedAt    time.Time `json:"committed_at"`
}

// Allocation is one row of the per-buyer ledger.
type Allocation struct {
	ID        string
	SaleID    string
	OfferID   string
	BuyerID   string
	Quantity  int
	UpdatedAt time.Time
}

// CheckReservation applies the stock guard and then the buyer's quota to a
// consistent snapshot of the offer and the buyer's committed total. On success
// the returned quota already includes quantity.
func CheckReservation(req ReserveRequest, o *Offer, buyerTotal int) (*user.Quota, error) {
	if o.UnitsSold+req.Quantity > o.TotalStock {
		return nil, &domainErrors.InsufficientStockError{Remaining: o.RemainingStock()}
	}
	quota := user.NewQuota(req.BuyerID, req.SaleID, req.OfferID, o.MaxUnitsPerBuyer, buyerTotal)
	if err := quota.Reserve(req.Quantity); err != nil {
		return nil, err
	}
	return quota, nil
}

func NewReceipt(req ReserveRequest, o *Offer, buyerTotal int) *ReservationReceipt {
	remaining := o.MaxUnitsPerBuyer - buyerTotal
	if remaining < 0 {
		remaining = 0
	}
	return &ReservationReceipt{
		SaleID:         req.SaleID,
		OfferID:        req.OfferID,
		BuyerID:        req.BuyerID,
		Quantity:       req.Quantity,
		UnitsSold:      o.UnitsSold,
		RemainingStock: o.RemainingStock(),
		BuyerTotal:     buyerTotal,
		BuyerRemaining: remaining,
		CommittedAt:    req.Now,
	}
}
