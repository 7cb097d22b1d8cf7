package use_cases

import (
	"context"
	"errors"
	"testing"
	"time"

	domainErrors "github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/domain/errors"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/domain/sale"
)

func TestViewSale(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	scheduled := f.createSale(t, time.Hour, 2*time.Hour)

	view, err := f.queries.View(ctx, scheduled.ID)
	if err != nil {
		t.Fatal(err)
	}
	if view.Phase != sale.PhaseScheduled {
		t.Errorf("phase = %s, want scheduled", view.Phase)
	}
	if view.StartsIn.TotalSeconds != 3600 || view.RemainingTime.TotalSeconds != 3*3600 {
		t.Errorf("countdowns = %+v / %+v", view.StartsIn, view.RemainingTime)
	}
	if view.Offers[0].Sellable || view.Offers[0].RemainingStock != 10 {
		t.Errorf("offer view = %+v", view.Offers[0])
	}
	if view.TotalViews != 1 {
		t.Errorf("views = %d, want 1", view.TotalViews)
	}

	f.clock.Advance(3*time.Hour + time.Second)
	view, err = f.queries.View(ctx, scheduled.ID)
	if err != nil {
		t.Fatal(err)
	}
	if view.Phase != sale.PhaseExpired || !view.RemainingTime.Expired || view.RemainingTime.TotalSeconds != 0 {
		t.Errorf("after end: phase %s countdown %+v", view.Phase, view.RemainingTime)
	}

	if _, err := f.queries.View(ctx, "missing"); !errors.Is(err, domainErrors.ErrSaleNotFound) {
		t.Errorf("missing sale: err = %v", err)
	}
}

func TestListSales(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	later := f.createSale(t, 2*time.Hour, time.Hour)
	active := f.createActiveSale(t)
	soon := f.createSale(t, time.Hour, time.Hour)
	f.createSale(t, -3*time.Hour, time.Hour) // expired

	disabled := true
	hidden := f.createActiveSale(t, offerInput("prod-case", 5, 1))
	if _, err := f.admin.UpdateSale(ctx, UpdateSaleInput{SaleID: hidden.ID, ManuallyDisabled: &disabled}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		phase string
		want  []string
	}{
		{ListPhaseAll, []string{active.ID, soon.ID, later.ID}},
		{ListPhaseActive, []string{active.ID}},
		{ListPhaseUpcoming, []string{soon.ID, later.ID}},
	}
	for _, tt := range tests {
		t.Run("phase="+tt.phase, func(t *testing.T) {
			views, err := f.queries.List(ctx, tt.phase)
			if err != nil {
				t.Fatal(err)
			}
			if len(views) != len(tt.want) {
				t.Fatalf("got %d sales, want %d", len(views), len(tt.want))
			}
			for i, id := range tt.want {
				if views[i].ID != id {
					t.Errorf("position %d = %s, want %s", i, views[i].ID, id)
				}
			}
		})
	}

	if _, err := f.queries.List(ctx, "expired"); !errors.Is(err, domainErrors.ErrValidation) {
		t.Errorf("bad phase: err = %v", err)
	}
}

func TestListSalesRecomputesPhaseFromCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s := f.createSale(t, time.Second, time.Hour)

	views, err := f.queries.List(ctx, ListPhaseUpcoming)
	if err != nil || len(views) != 1 {
		t.Fatalf("upcoming = %v, %v", views, err)
	}

	// Still inside the cache TTL, but the sale has started.
	f.clock.Advance(time.Second)
	views, err = f.queries.List(ctx, ListPhaseActive)
	if err != nil {
		t.Fatal(err)
	}
	if len(views) != 1 || views[0].ID != s.ID || views[0].Phase != sale.PhaseActive {
		t.Errorf("active = %+v", views)
	}
}
