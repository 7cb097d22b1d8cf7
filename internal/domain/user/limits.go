package user

import (
	domainErrors "github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/domain/errors"
)

// Quota tracks how many units of one offer a buyer has committed.
type Quota struct {
	BuyerID  string
	SaleID   string
	OfferID  string
	MaxUnits int
	Reserved int
}

func NewQuota(buyerID, saleID, offerID string, maxUnits, reserved int) *Quota {
	return &Quota{
		BuyerID:  buyerID,
		SaleID:   saleID,
		OfferID:  offerID,
		MaxUnits: maxUnits,
		Reserved: reserved,
	}
}

func (q *Quota) Remaining() int {
	if q.Reserved >= q.MaxUnits {
		return 0
	}
	return q.MaxUnits - q.Reserved
}

func (q *Quota) CanReserve(count int) bool {
	return q.Reserved+count <= q.MaxUnits
}

func (q *Quota) Reserve(count int) error {
	if !q.CanReserve(count) {
		return &domainErrors.QuotaExceededError{Remaining: q.Remaining()}
	}

	q.Reserved += count
	return nil
}
