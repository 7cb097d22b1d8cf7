package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/domain/sale"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/infrastructure/persistence/memory"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/pkg/clock"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/pkg/logger"
)

func seedSale(t *testing.T, store *memory.Store, id string, start time.Time, views int) {
	t.Helper()

	s := &sale.Sale{
		ID:          id,
		Title:       "Sale " + id,
		Description: "desc",
		StartsAt:    start,
		EndsAt:      start.Add(time.Hour),
		Offers: []sale.Offer{{
			ID:                 id + "-offer",
			Product:            sale.ProductRef{ProductID: "p-" + id},
			OriginalPrice:      decimal.NewFromInt(10),
			SalePrice:          decimal.NewFromInt(8),
			DiscountPercentage: 20,
			TotalStock:         5,
			MaxUnitsPerBuyer:   5,
		}},
	}
	if err := store.CreateSale(context.Background(), s); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < views; i++ {
		if err := store.RecordView(context.Background(), id); err != nil {
			t.Fatal(err)
		}
	}
}

func TestRefresh(t *testing.T) {
	now := time.Date(2025, 11, 28, 12, 0, 0, 0, time.UTC)
	store := memory.NewStore()
	seedSale(t, store, "active", now.Add(-time.Minute), 3)
	seedSale(t, store, "upcoming", now.Add(time.Hour), 2)

	r := NewAnalyticsRefresher(store, clock.NewMockClock(now), logger.Nop(), time.Minute, 24*time.Hour)
	summary, err := r.Refresh(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if summary.TotalViews != 5 || summary.ActiveSales != 1 {
		t.Errorf("summary = %+v", summary)
	}
}

func TestStartStops(t *testing.T) {
	store := memory.NewStore()
	r := NewAnalyticsRefresher(store, clock.NewRealClock(), logger.Nop(), time.Hour, time.Hour)

	done := make(chan struct{})
	go func() {
		r.Start(context.Background())
		close(done)
	}()

	r.Stop()
	r.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("refresher did not stop")
	}
}
