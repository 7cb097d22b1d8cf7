// Package memory is a mutex-guarded, in-process sale store. Every mutation
// runs inside one critical section, which makes ReserveUnits trivially
// atomic. Suitable for tests and single-node demos.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	domainErrors "github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/domain/errors"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/domain/sale"
)

type allocationKey struct {
	saleID  string
	offerID string
	buyerID string
}

type Store struct {
	mu          sync.RWMutex
	sales       map[string]*sale.Sale
	allocations map[allocationKey]*sale.Allocation
}

func NewStore() *Store {
	return &Store{
		sales:       make(map[string]*sale.Sale),
		allocations: make(map[allocationKey]*sale.Allocation),
	}
}

func (s *Store) CreateSale(_ context.Context, sl *sale.Sale) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sales[sl.ID]; exists {
		return domainErrors.NewValidationError("id", "sale already exists")
	}
	if sl.Version == 0 {
		sl.Version = 1
	}
	s.sales[sl.ID] = sl.Clone()
	return nil
}

func (s *Store) GetSale(_ context.Context, id string) (*sale.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.sales[id]
	if !ok || stored.IsDeleted() {
		return nil, domainErrors.ErrSaleNotFound
	}
	return s.withTopBuyers(stored), nil
}

// withTopBuyers returns a clone of stored with TopBuyerUnits filled from the
// ledger. Callers hold s.mu.
func (s *Store) withTopBuyers(stored *sale.Sale) *sale.Sale {
	out := stored.Clone()
	top := make(map[string]int, len(out.Offers))
	for key, a := range s.allocations {
		if key.saleID == stored.ID && a.Quantity > top[key.offerID] {
			top[key.offerID] = a.Quantity
		}
	}
	for i := range out.Offers {
		out.Offers[i].TopBuyerUnits = top[out.Offers[i].ID]
	}
	return out
}

func (s *Store) ListSales(_ context.Context, filter sale.ListFilter) ([]*sale.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*sale.Sale, 0, len(s.sales))
	for _, stored := range s.sales {
		if stored.IsDeleted() && !filter.IncludeDeleted {
			continue
		}
		if filter.EndsAfter != nil && !stored.EndsAt.After(*filter.EndsAfter) {
			continue
		}
		out = append(out, stored.Clone())
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].StartsAt.Equal(out[j].StartsAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartsAt.Before(out[j].StartsAt)
	})
	return out, nil
}

func (s *Store) UpdateSale(_ context.Context, sl *sale.Sale, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.sales[sl.ID]
	if !ok || stored.IsDeleted() {
		return domainErrors.ErrSaleNotFound
	}
	next, err := sale.MergeAdminUpdate(s.withTopBuyers(stored), sl, expectedVersion)
	if err != nil {
		return err
	}
	for i := range next.Offers {
		next.Offers[i].TopBuyerUnits = 0
	}

	s.sales[sl.ID] = next
	sl.Version = next.Version
	return nil
}

func (s *Store) DeleteSale(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.sales[id]
	if !ok || stored.IsDeleted() {
		return domainErrors.ErrSaleNotFound
	}
	if stored.TotalUnitsSold > 0 || stored.CommittedUnits() > 0 {
		return domainErrors.ErrSaleHasReservations
	}

	delete(s.sales, id)
	for key := range s.allocations {
		if key.saleID == id {
			delete(s.allocations, key)
		}
	}
	return nil
}

func (s *Store) SoftDeleteSale(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.sales[id]
	if !ok || stored.IsDeleted() {
		return domainErrors.ErrSaleNotFound
	}

	deletedAt := at.UTC()
	stored.DeletedAt = &deletedAt
	stored.ManuallyDisabled = true
	stored.UpdatedAt = deletedAt
	stored.Version++
	return nil
}

func (s *Store) RecordView(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.sales[id]
	if !ok || stored.IsDeleted() {
		return domainErrors.ErrSaleNotFound
	}
	stored.TotalViews++
	return nil
}

func (s *Store) ReserveUnits(_ context.Context, req sale.ReserveRequest) (*sale.ReservationReceipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.sales[req.SaleID]
	if !ok || stored.IsDeleted() {
		return nil, domainErrors.ErrSaleNotFound
	}
	offer, ok := stored.FindOffer(req.OfferID)
	if !ok {
		return nil, domainErrors.ErrOfferNotFound
	}
	if sale.EvaluatePhase(stored, req.Now) != sale.PhaseActive {
		return nil, domainErrors.ErrSaleNotActive
	}

	key := allocationKey{saleID: req.SaleID, offerID: req.OfferID, buyerID: req.BuyerID}
	allocation := s.allocations[key]
	reserved := 0
	if allocation != nil {
		reserved = allocation.Quantity
	}

	quota, err := sale.CheckReservation(req, offer, reserved)
	if err != nil {
		return nil, err
	}

	offer.UnitsSold += req.Quantity
	stored.TotalUnitsSold += int64(req.Quantity)
	if allocation == nil {
		allocation = &sale.Allocation{
			ID:      uuid.NewString(),
			SaleID:  req.SaleID,
			OfferID: req.OfferID,
			BuyerID: req.BuyerID,
		}
		s.allocations[key] = allocation
	}
	allocation.Quantity = quota.Reserved
	allocation.UpdatedAt = req.Now

	return sale.NewReceipt(req, offer, quota.Reserved), nil
}

func (s *Store) BuyerTotal(_ context.Context, saleID, offerID, buyerID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if a, ok := s.allocations[allocationKey{saleID: saleID, offerID: offerID, buyerID: buyerID}]; ok {
		return a.Quantity, nil
	}
	return 0, nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }
