// Package storetest is a conformance suite every sale.Repository
// implementation runs from its own tests.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	domainErrors "github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/domain/errors"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/domain/sale"
)

// Factory returns an empty store. Cleanup is registered through t.
type Factory func(t *testing.T) sale.Repository

var Now = time.Date(2025, 11, 28, 12, 0, 0, 0, time.UTC)

func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, store sale.Repository)
	}{
		{"CreateAndGet", testCreateAndGet},
		{"GetMissing", testGetMissing},
		{"StockAndQuotaScenario", testStockAndQuotaScenario},
		{"ReserveOutsideWindow", testReserveOutsideWindow},
		{"ReserveUnknownOffer", testReserveUnknownOffer},
		{"NoOversellUnderConcurrency", testNoOversell},
		{"NoQuotaBreachUnderConcurrency", testNoQuotaBreach},
		{"ConcurrentViews", testConcurrentViews},
		{"UpdateSaleVersioning", testUpdateSaleVersioning},
		{"UpdateSaleKeepsCounters", testUpdateSaleKeepsCounters},
		{"UpdateSaleKeepsBuyerCaps", testUpdateSaleKeepsBuyerCaps},
		{"DeleteSale", testDeleteSale},
		{"ListSales", testListSales},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newStore(t))
		})
	}
}

// NewSale builds a valid active sale (relative to Now) with one offer.
func NewSale(totalStock, maxPerBuyer int) *sale.Sale {
	return &sale.Sale{
		ID:          "sale_" + uuid.NewString(),
		Title:       "Flash sale",
		Description: "Limited stock",
		StartsAt:    Now.Add(-time.Hour),
		EndsAt:      Now.Add(time.Hour),
		Offers: []sale.Offer{{
			ID:                 "offer_" + uuid.NewString(),
			Product:            sale.ProductRef{ProductID: uuid.NewString(), MerchantID: "merchant-1"},
			ProductName:        "Kiondo Basket",
			ProductImage:       "https://picsum.photos/300/300",
			MerchantLabel:      "Gikomba Traders",
			OriginalPrice:      decimal.RequireFromString("1500.00"),
			SalePrice:          decimal.RequireFromString("999.50"),
			DiscountPercentage: sale.DiscountPercentage(decimal.RequireFromString("1500"), decimal.RequireFromString("999.5")),
			TotalStock:         totalStock,
			MaxUnitsPerBuyer:   maxPerBuyer,
		}},
		CreatedBy: "admin-1",
		CreatedAt: Now.Add(-2 * time.Hour),
		UpdatedAt: Now.Add(-2 * time.Hour),
	}
}

func mustCreate(t *testing.T, store sale.Repository, s *sale.Sale) {
	t.Helper()
	if err := store.CreateSale(context.Background(), s); err != nil {
		t.Fatalf("CreateSale: %v", err)
	}
}

func reserve(store sale.Repository, s *sale.Sale, buyer string, qty int) (*sale.ReservationReceipt, error) {
	return store.ReserveUnits(context.Background(), sale.ReserveRequest{
		SaleID:   s.ID,
		OfferID:  s.Offers[0].ID,
		BuyerID:  buyer,
		Quantity: qty,
		Now:      Now,
	})
}

func testCreateAndGet(t *testing.T, store sale.Repository) {
	s := NewSale(10, 3)
	mustCreate(t, store, s)

	got, err := store.GetSale(context.Background(), s.ID)
	if err != nil {
		t.Fatalf("GetSale: %v", err)
	}
	if got.Title != s.Title || !got.StartsAt.Equal(s.StartsAt) || !got.EndsAt.Equal(s.EndsAt) {
		t.Errorf("sale mismatch: %+v", got)
	}
	if got.Version < 1 {
		t.Errorf("Version = %d", got.Version)
	}
	if len(got.Offers) != 1 {
		t.Fatalf("offers = %d", len(got.Offers))
	}
	o := got.Offers[0]
	if !o.OriginalPrice.Equal(s.Offers[0].OriginalPrice) || !o.SalePrice.Equal(s.Offers[0].SalePrice) {
		t.Errorf("prices mismatch: %s / %s", o.OriginalPrice, o.SalePrice)
	}
	if o.DiscountPercentage != 33 || o.TotalStock != 10 || o.MaxUnitsPerBuyer != 3 || o.ProductName != "Kiondo Basket" {
		t.Errorf("offer mismatch: %+v", o)
	}
}

func testGetMissing(t *testing.T, store sale.Repository) {
	_, err := store.GetSale(context.Background(), "sale_missing")
	if !errors.Is(err, domainErrors.ErrSaleNotFound) {
		t.Fatalf("expected ErrSaleNotFound, got %v", err)
	}
}

func testStockAndQuotaScenario(t *testing.T, store sale.Repository) {
	s := NewSale(10, 3)
	mustCreate(t, store, s)

	if r, err := reserve(store, s, "buyer-a", 3); err != nil || r.UnitsSold != 3 {
		t.Fatalf("A reserves 3: %+v %v", r, err)
	}

	_, err := reserve(store, s, "buyer-a", 1)
	var quotaErr *domainErrors.QuotaExceededError
	if !errors.As(err, &quotaErr) || quotaErr.Remaining != 0 {
		t.Fatalf("A reserves 1: expected QuotaExceeded(0), got %v", err)
	}

	_, err = reserve(store, s, "buyer-b", 8)
	var stockErr *domainErrors.InsufficientStockError
	if !errors.As(err, &stockErr) || stockErr.Remaining != 7 {
		t.Fatalf("B reserves 8: expected InsufficientStock(7), got %v", err)
	}

	// Stock would allow 7, but B's quota is 3.
	_, err = reserve(store, s, "buyer-b", 7)
	if !errors.As(err, &quotaErr) || quotaErr.Remaining != 3 {
		t.Fatalf("B reserves 7: expected QuotaExceeded(3), got %v", err)
	}

	// Remaining 7 units go to B (3), D (3) and E (1).
	for _, fill := range []struct {
		buyer string
		qty   int
	}{{"buyer-b", 3}, {"buyer-d", 3}, {"buyer-e", 1}} {
		if _, err := reserve(store, s, fill.buyer, fill.qty); err != nil {
			t.Fatalf("%s reserves %d: %v", fill.buyer, fill.qty, err)
		}
	}

	_, err = reserve(store, s, "buyer-c", 1)
	if !errors.As(err, &stockErr) || stockErr.Remaining != 0 {
		t.Fatalf("C reserves 1: expected InsufficientStock(0), got %v", err)
	}

	got, err := store.GetSale(context.Background(), s.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Offers[0].UnitsSold != 10 || got.TotalUnitsSold != 10 {
		t.Errorf("unitsSold = %d, totalUnitsSold = %d", got.Offers[0].UnitsSold, got.TotalUnitsSold)
	}
	total, err := store.BuyerTotal(context.Background(), s.ID, s.Offers[0].ID, "buyer-a")
	if err != nil || total != 3 {
		t.Errorf("BuyerTotal(a) = %d, %v", total, err)
	}
}

func testReserveOutsideWindow(t *testing.T, store sale.Repository) {
	scheduled := NewSale(10, 3)
	scheduled.StartsAt = Now.Add(time.Hour)
	scheduled.EndsAt = Now.Add(2 * time.Hour)
	mustCreate(t, store, scheduled)

	if _, err := reserve(store, scheduled, "buyer-a", 1); !errors.Is(err, domainErrors.ErrSaleNotActive) {
		t.Errorf("scheduled: expected ErrSaleNotActive, got %v", err)
	}

	expired := NewSale(10, 3)
	expired.StartsAt = Now.Add(-2 * time.Hour)
	expired.EndsAt = Now
	mustCreate(t, store, expired)

	if _, err := reserve(store, expired, "buyer-a", 1); !errors.Is(err, domainErrors.ErrSaleNotActive) {
		t.Errorf("expired: expected ErrSaleNotActive, got %v", err)
	}

	disabled := NewSale(10, 3)
	disabled.ManuallyDisabled = true
	mustCreate(t, store, disabled)

	if _, err := reserve(store, disabled, "buyer-a", 1); !errors.Is(err, domainErrors.ErrSaleNotActive) {
		t.Errorf("disabled: expected ErrSaleNotActive, got %v", err)
	}
}

func testReserveUnknownOffer(t *testing.T, store sale.Repository) {
	s := NewSale(10, 3)
	mustCreate(t, store, s)

	_, err := store.ReserveUnits(context.Background(), sale.ReserveRequest{
		SaleID: s.ID, OfferID: "offer_missing", BuyerID: "buyer-a", Quantity: 1, Now: Now,
	})
	if !errors.Is(err, domainErrors.ErrOfferNotFound) {
		t.Fatalf("expected ErrOfferNotFound, got %v", err)
	}

	_, err = store.ReserveUnits(context.Background(), sale.ReserveRequest{
		SaleID: "sale_missing", OfferID: s.Offers[0].ID, BuyerID: "buyer-a", Quantity: 1, Now: Now,
	})
	if !errors.Is(err, domainErrors.ErrSaleNotFound) {
		t.Fatalf("expected ErrSaleNotFound, got %v", err)
	}
}

func testNoOversell(t *testing.T, store sale.Repository) {
	const stock = 20
	s := NewSale(stock, 1)
	mustCreate(t, store, s)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		failures  = map[string]int{}
	)
	for i := 0; i < 3*stock; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := reserve(store, s, fmt.Sprintf("buyer-%d", i), 1)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
				return
			}
			failures[domainErrors.Reason(err)]++
		}(i)
	}
	wg.Wait()

	if successes != stock {
		t.Errorf("successes = %d, want %d (failures %v)", successes, stock, failures)
	}
	if failures["insufficient_stock"] != 2*stock {
		t.Errorf("insufficient_stock = %d, want %d (failures %v)", failures["insufficient_stock"], 2*stock, failures)
	}

	got, err := store.GetSale(context.Background(), s.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Offers[0].UnitsSold != stock {
		t.Errorf("unitsSold = %d, want %d", got.Offers[0].UnitsSold, stock)
	}
}

func testNoQuotaBreach(t *testing.T, store sale.Repository) {
	s := NewSale(100, 3)
	mustCreate(t, store, s)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := reserve(store, s, "buyer-a", 1); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if successes != 3 {
		t.Errorf("successes = %d, want 3", successes)
	}
	total, err := store.BuyerTotal(context.Background(), s.ID, s.Offers[0].ID, "buyer-a")
	if err != nil || total != 3 {
		t.Errorf("BuyerTotal = %d, %v", total, err)
	}
}

func testConcurrentViews(t *testing.T, store sale.Repository) {
	s := NewSale(10, 3)
	mustCreate(t, store, s)
	before, _ := store.GetSale(context.Background(), s.ID)

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := store.RecordView(context.Background(), s.ID); err != nil {
				t.Errorf("RecordView: %v", err)
			}
		}()
	}
	wg.Wait()

	got, err := store.GetSale(context.Background(), s.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.TotalViews != 40 {
		t.Errorf("TotalViews = %d, want 40", got.TotalViews)
	}
	if got.Version != before.Version {
		t.Errorf("views bumped version from %d to %d", before.Version, got.Version)
	}

	if err := store.RecordView(context.Background(), "sale_missing"); !errors.Is(err, domainErrors.ErrSaleNotFound) {
		t.Errorf("expected ErrSaleNotFound, got %v", err)
	}
}

func testUpdateSaleVersioning(t *testing.T, store sale.Repository) {
	ctx := context.Background()
	s := NewSale(10, 3)
	mustCreate(t, store, s)

	first, _ := store.GetSale(ctx, s.ID)
	second, _ := store.GetSale(ctx, s.ID)

	first.Title = "Updated once"
	if err := store.UpdateSale(ctx, first, first.Version); err != nil {
		t.Fatalf("UpdateSale: %v", err)
	}
	if first.Version != second.Version+1 {
		t.Errorf("version not bumped: %d", first.Version)
	}

	second.Title = "Stale write"
	if err := store.UpdateSale(ctx, second, second.Version); !errors.Is(err, domainErrors.ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}

	got, _ := store.GetSale(ctx, s.ID)
	if got.Title != "Updated once" {
		t.Errorf("Title = %q", got.Title)
	}
}

func testUpdateSaleKeepsCounters(t *testing.T, store sale.Repository) {
	ctx := context.Background()
	s := NewSale(10, 3)
	mustCreate(t, store, s)

	stale, _ := store.GetSale(ctx, s.ID)
	if _, err := reserve(store, s, "buyer-a", 2); err != nil {
		t.Fatal(err)
	}
	if err := store.RecordView(ctx, s.ID); err != nil {
		t.Fatal(err)
	}

	stale.Offers[0].TotalStock = 12
	stale.Offers[0].MaxUnitsPerBuyer = 4
	if err := store.UpdateSale(ctx, stale, stale.Version); err != nil {
		t.Fatalf("UpdateSale: %v", err)
	}

	got, _ := store.GetSale(ctx, s.ID)
	o := got.Offers[0]
	if o.UnitsSold != 2 || o.TotalStock != 12 || o.MaxUnitsPerBuyer != 4 {
		t.Errorf("offer after update: %+v", o)
	}
	if got.TotalUnitsSold != 2 || got.TotalViews != 1 {
		t.Errorf("counters lost: units=%d views=%d", got.TotalUnitsSold, got.TotalViews)
	}

	// Stock below what the allocator has already committed must not be written.
	got.Offers[0].TotalStock = 1
	if err := store.UpdateSale(ctx, got, got.Version); !errors.Is(err, domainErrors.ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}
}

func testUpdateSaleKeepsBuyerCaps(t *testing.T, store sale.Repository) {
	ctx := context.Background()
	s := NewSale(10, 3)
	mustCreate(t, store, s)

	if _, err := reserve(store, s, "buyer-a", 3); err != nil {
		t.Fatal(err)
	}
	if _, err := reserve(store, s, "buyer-b", 1); err != nil {
		t.Fatal(err)
	}

	got, err := store.GetSale(ctx, s.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Offers[0].TopBuyerUnits != 3 {
		t.Fatalf("TopBuyerUnits = %d, want 3", got.Offers[0].TopBuyerUnits)
	}

	// A stale copy that never saw buyer-a's reservation still cannot cut the cap.
	got.Offers[0].TopBuyerUnits = 0
	got.Offers[0].MaxUnitsPerBuyer = 1
	if err := store.UpdateSale(ctx, got, got.Version); !errors.Is(err, domainErrors.ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}

	after, _ := store.GetSale(ctx, s.ID)
	if after.Offers[0].MaxUnitsPerBuyer != 3 {
		t.Errorf("MaxUnitsPerBuyer = %d after rejected update", after.Offers[0].MaxUnitsPerBuyer)
	}

	after.Offers[0].MaxUnitsPerBuyer = 5
	if err := store.UpdateSale(ctx, after, after.Version); err != nil {
		t.Fatalf("raise cap: %v", err)
	}
	if _, err := reserve(store, s, "buyer-a", 2); err != nil {
		t.Fatalf("reserve under raised cap: %v", err)
	}
}

func testDeleteSale(t *testing.T, store sale.Repository) {
	ctx := context.Background()

	unsold := NewSale(10, 3)
	mustCreate(t, store, unsold)
	if err := store.DeleteSale(ctx, unsold.ID); err != nil {
		t.Fatalf("DeleteSale: %v", err)
	}
	if _, err := store.GetSale(ctx, unsold.ID); !errors.Is(err, domainErrors.ErrSaleNotFound) {
		t.Fatalf("deleted sale still readable: %v", err)
	}

	sold := NewSale(10, 3)
	mustCreate(t, store, sold)
	if _, err := reserve(store, sold, "buyer-a", 2); err != nil {
		t.Fatal(err)
	}
	if err := store.DeleteSale(ctx, sold.ID); !errors.Is(err, domainErrors.ErrSaleHasReservations) {
		t.Fatalf("expected ErrSaleHasReservations, got %v", err)
	}

	if err := store.SoftDeleteSale(ctx, sold.ID, Now); err != nil {
		t.Fatalf("SoftDeleteSale: %v", err)
	}
	if _, err := store.GetSale(ctx, sold.ID); !errors.Is(err, domainErrors.ErrSaleNotFound) {
		t.Fatalf("soft-deleted sale still readable: %v", err)
	}
	if _, err := reserve(store, sold, "buyer-b", 1); !errors.Is(err, domainErrors.ErrSaleNotFound) {
		t.Fatalf("soft-deleted sale accepted a reservation: %v", err)
	}

	all, err := store.ListSales(ctx, sale.ListFilter{IncludeDeleted: true})
	if err != nil {
		t.Fatal(err)
	}
	var found *sale.Sale
	for _, s := range all {
		if s.ID == sold.ID {
			found = s
		}
	}
	if found == nil || found.TotalUnitsSold != 2 || !found.IsDeleted() {
		t.Fatalf("soft-deleted sale not retained for analytics: %+v", found)
	}
}

func testListSales(t *testing.T, store sale.Repository) {
	ctx := context.Background()

	late := NewSale(5, 1)
	late.StartsAt = Now.Add(2 * time.Hour)
	late.EndsAt = Now.Add(3 * time.Hour)
	early := NewSale(5, 1)
	early.StartsAt = Now.Add(-3 * time.Hour)
	early.EndsAt = Now.Add(time.Hour)
	ended := NewSale(5, 1)
	ended.StartsAt = Now.Add(-5 * time.Hour)
	ended.EndsAt = Now.Add(-4 * time.Hour)

	for _, s := range []*sale.Sale{late, ended, early} {
		mustCreate(t, store, s)
	}

	endsAfter := Now
	got, err := store.ListSales(ctx, sale.ListFilter{EndsAfter: &endsAfter})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != early.ID || got[1].ID != late.ID {
		ids := make([]string, 0, len(got))
		for _, s := range got {
			ids = append(ids, s.ID)
		}
		t.Fatalf("unexpected listing order: %v", ids)
	}
	if len(got[0].Offers) != 1 {
		t.Errorf("listing did not load offers")
	}

	all, err := store.ListSales(ctx, sale.ListFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 || all[0].ID != ended.ID {
		t.Errorf("unfiltered listing wrong: %d sales", len(all))
	}
}
