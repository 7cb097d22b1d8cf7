package use_cases

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	domainErrors "github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/domain/errors"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/domain/sale"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/infrastructure/persistence/memory"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/pkg/bloom"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/pkg/logger"
)

func TestReserveStockAndQuotaScenario(t *testing.T) {
	f := newFixture(t)
	s := f.createActiveSale(t)
	offerID := s.Offers[0].ID
	ctx := context.Background()

	steps := []struct {
		buyer         string
		quantity      int
		wantUnitsSold int
		wantErr       error
		wantRemaining int
	}{
		{buyer: "A", quantity: 3, wantUnitsSold: 3},
		{buyer: "A", quantity: 1, wantErr: domainErrors.ErrQuotaExceeded, wantRemaining: 0},
		{buyer: "B", quantity: 8, wantErr: domainErrors.ErrInsufficientStock, wantRemaining: 7},
		// Seven units are in stock, but B may hold at most three.
		{buyer: "B", quantity: 7, wantErr: domainErrors.ErrQuotaExceeded, wantRemaining: 3},
		{buyer: "B", quantity: 3, wantUnitsSold: 6},
		{buyer: "C", quantity: 3, wantUnitsSold: 9},
		{buyer: "D", quantity: 1, wantUnitsSold: 10},
		{buyer: "E", quantity: 1, wantErr: domainErrors.ErrInsufficientStock, wantRemaining: 0},
	}

	for i, step := range steps {
		receipt, err := f.reserve.Reserve(ctx, ReserveCommand{SaleID: s.ID, OfferID: offerID, BuyerID: step.buyer, Quantity: step.quantity})

		if step.wantErr == nil {
			if err != nil {
				t.Fatalf("step %d: unexpected error %v", i, err)
			}
			if receipt.UnitsSold != step.wantUnitsSold {
				t.Fatalf("step %d: unitsSold = %d, want %d", i, receipt.UnitsSold, step.wantUnitsSold)
			}
			continue
		}

		if !errors.Is(err, step.wantErr) {
			t.Fatalf("step %d: err = %v, want %v", i, err, step.wantErr)
		}
		var stock *domainErrors.InsufficientStockError
		var quota *domainErrors.QuotaExceededError
		switch {
		case errors.As(err, &stock):
			if stock.Remaining != step.wantRemaining {
				t.Errorf("step %d: stock remaining = %d, want %d", i, stock.Remaining, step.wantRemaining)
			}
		case errors.As(err, &quota):
			if quota.Remaining != step.wantRemaining {
				t.Errorf("step %d: quota remaining = %d, want %d", i, quota.Remaining, step.wantRemaining)
			}
		}
	}

	stored, err := f.store.GetSale(ctx, s.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.TotalUnitsSold != 10 || stored.Offers[0].UnitsSold != 10 {
		t.Errorf("totals = %d/%d, want 10/10", stored.TotalUnitsSold, stored.Offers[0].UnitsSold)
	}
}

func TestReserveOutsideActiveWindow(t *testing.T) {
	f := newFixture(t)
	scheduled := f.createSale(t, time.Hour, time.Hour)
	expired := f.createSale(t, -2*time.Hour, 2*time.Hour-time.Second)

	for name, s := range map[string]*sale.Sale{"scheduled": scheduled, "expired": expired} {
		t.Run(name, func(t *testing.T) {
			_, err := f.reserve.Reserve(context.Background(), ReserveCommand{SaleID: s.ID, OfferID: s.Offers[0].ID, BuyerID: "A", Quantity: 1})
			if !errors.Is(err, domainErrors.ErrSaleNotActive) {
				t.Errorf("err = %v, want ErrSaleNotActive", err)
			}
		})
	}
}

func TestReserveValidatesBeforeLookup(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		cmd  ReserveCommand
		want error
	}{
		{"zero quantity", ReserveCommand{SaleID: "missing", OfferID: "o", BuyerID: "A", Quantity: 0}, domainErrors.ErrValidation},
		{"no buyer", ReserveCommand{SaleID: "missing", OfferID: "o", Quantity: 1}, domainErrors.ErrValidation},
		{"unknown sale", ReserveCommand{SaleID: "missing", OfferID: "o", BuyerID: "A", Quantity: 1}, domainErrors.ErrSaleNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.reserve.Reserve(context.Background(), tt.cmd)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}

	s := f.createActiveSale(t)
	_, err := f.reserve.Reserve(context.Background(), ReserveCommand{SaleID: s.ID, OfferID: "nope", BuyerID: "A", Quantity: 1})
	if !errors.Is(err, domainErrors.ErrOfferNotFound) {
		t.Errorf("err = %v, want ErrOfferNotFound", err)
	}
}

func TestReserveNeverOversells(t *testing.T) {
	const stock = 20

	f := newFixture(t)
	s := f.createActiveSale(t, offerInput("prod-phone", stock, 1))
	offerID := s.Offers[0].ID

	var (
		wg           sync.WaitGroup
		mu           sync.Mutex
		successes    int
		insufficient int
	)
	for i := 0; i < 3*stock; i++ {
		wg.Add(1)
		go func(buyer string) {
			defer wg.Done()
			_, err := f.reserve.Reserve(context.Background(), ReserveCommand{SaleID: s.ID, OfferID: offerID, BuyerID: buyer, Quantity: 1})

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, domainErrors.ErrInsufficientStock):
				insufficient++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(fmt.Sprintf("buyer-%d", i))
	}
	wg.Wait()

	if successes != stock || insufficient != 2*stock {
		t.Errorf("successes = %d, insufficient = %d; want %d and %d", successes, insufficient, stock, 2*stock)
	}
}

func TestReserveNeverBreachesQuota(t *testing.T) {
	f := newFixture(t)
	s := f.createActiveSale(t, offerInput("prod-phone", 100, 5))
	offerID := s.Offers[0].ID

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.reserve.Reserve(context.Background(), ReserveCommand{SaleID: s.ID, OfferID: offerID, BuyerID: "greedy", Quantity: 1})
		}()
	}
	wg.Wait()

	total, err := f.store.BuyerTotal(context.Background(), s.ID, offerID, "greedy")
	if err != nil {
		t.Fatal(err)
	}
	if total != 5 {
		t.Errorf("buyer total = %d, want 5", total)
	}
}

// contendedStore fails ReserveUnits with ErrContention a fixed number of times.
type contendedStore struct {
	*memory.Store
	mu       sync.Mutex
	failures int
	calls    int
}

func (s *contendedStore) ReserveUnits(ctx context.Context, req sale.ReserveRequest) (*sale.ReservationReceipt, error) {
	s.mu.Lock()
	s.calls++
	fail := s.calls <= s.failures
	s.mu.Unlock()

	if fail {
		return nil, fmt.Errorf("%w: serialization failure", domainErrors.ErrContention)
	}
	return s.Store.ReserveUnits(ctx, req)
}

func TestReserveRetriesContention(t *testing.T) {
	f := newFixture(t)
	s := f.createActiveSale(t)

	store := &contendedStore{Store: f.store, failures: 2}
	var retries []int
	uc := NewReserveUseCase(store, f.cache, f.clock, logger.Nop(),
		WithRetryPolicy(RetryPolicy{Attempts: 3, BaseBackoff: time.Millisecond, MaxBackoff: 4 * time.Millisecond}),
		WithRetryHook(func(attempt int, _ error) { retries = append(retries, attempt) }),
	)
	uc.sleep = func(context.Context, time.Duration) error { return nil }

	receipt, err := uc.Reserve(context.Background(), ReserveCommand{SaleID: s.ID, OfferID: s.Offers[0].ID, BuyerID: "A", Quantity: 2})
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if receipt.UnitsSold != 2 {
		t.Errorf("unitsSold = %d, want 2", receipt.UnitsSold)
	}
	if len(retries) != 2 {
		t.Errorf("retries = %v, want two", retries)
	}
}

func TestReserveContentionExhaustion(t *testing.T) {
	f := newFixture(t)
	s := f.createActiveSale(t)
	offerID := s.Offers[0].ID

	store := &contendedStore{Store: f.store, failures: 1000}
	uc := NewReserveUseCase(store, f.cache, f.clock, logger.Nop(), WithRetryPolicy(RetryPolicy{Attempts: 4}))
	uc.sleep = func(context.Context, time.Duration) error { return nil }

	_, err := uc.Reserve(context.Background(), ReserveCommand{SaleID: s.ID, OfferID: offerID, BuyerID: "A", Quantity: 1})
	if !errors.Is(err, domainErrors.ErrContention) {
		t.Fatalf("err = %v, want ErrContention", err)
	}
	if store.calls != 4 {
		t.Errorf("store calls = %d, want 4", store.calls)
	}

	hot, err := f.cache.TopContended(context.Background(), 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(hot) != 1 || hot[0].OfferID != offerID || hot[0].Contentions != 1 {
		t.Errorf("hot offers = %+v", hot)
	}

	stored, _ := f.store.GetSale(context.Background(), s.ID)
	if stored.Offers[0].UnitsSold != 0 {
		t.Errorf("unitsSold = %d after failed attempts", stored.Offers[0].UnitsSold)
	}
}

func TestReserveConsultsSaleIndex(t *testing.T) {
	f := newFixture(t)
	s := f.createActiveSale(t)

	index := bloom.NewBloomFilterWithExpectedItems(1000, 0.01)
	uc := NewReserveUseCase(f.store, f.cache, f.clock, logger.Nop(), WithSaleIndex(index))

	_, err := uc.Reserve(context.Background(), ReserveCommand{SaleID: s.ID, OfferID: s.Offers[0].ID, BuyerID: "A", Quantity: 1})
	if !errors.Is(err, domainErrors.ErrSaleNotFound) {
		t.Fatalf("unindexed sale: err = %v, want ErrSaleNotFound", err)
	}

	if err := index.Add(context.Background(), s.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := uc.Reserve(context.Background(), ReserveCommand{SaleID: s.ID, OfferID: s.Offers[0].ID, BuyerID: "A", Quantity: 1}); err != nil {
		t.Fatalf("indexed sale: %v", err)
	}
}

func TestRetryPolicyBackoff(t *testing.T) {
	p := RetryPolicy{Attempts: 5, BaseBackoff: 10 * time.Millisecond, MaxBackoff: 40 * time.Millisecond}

	for attempt, step := range []time.Duration{10, 20, 40, 40, 40} {
		step *= time.Millisecond
		for i := 0; i < 20; i++ {
			d := p.Backoff(attempt)
			if d < step/2 || d > step {
				t.Fatalf("attempt %d: backoff %v outside [%v, %v]", attempt, d, step/2, step)
			}
		}
	}

	if d := (RetryPolicy{}).Backoff(3); d != 0 {
		t.Errorf("zero policy backoff = %v", d)
	}
}
