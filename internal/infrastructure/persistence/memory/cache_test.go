package memory

import (
	"context"
	"testing"
	"time"

	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/domain/sale"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/pkg/clock"
)

func TestCacheListingExpires(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewMockClock(time.Date(2025, 11, 28, 12, 0, 0, 0, time.UTC))
	cache := NewCache(clk)

	if err := cache.SetListing(ctx, "active", []*sale.Sale{{ID: "sale_1"}}, 2*time.Second); err != nil {
		t.Fatal(err)
	}

	got, ok, _ := cache.GetListing(ctx, "active")
	if !ok || len(got) != 1 || got[0].ID != "sale_1" {
		t.Fatalf("GetListing = %v, %v", got, ok)
	}

	clk.Advance(2 * time.Second)
	if _, ok, _ := cache.GetListing(ctx, "active"); ok {
		t.Error("listing served after ttl")
	}
}

func TestCacheInvalidate(t *testing.T) {
	ctx := context.Background()
	cache := NewCache(clock.NewRealClock())

	cache.SetListing(ctx, "active", []*sale.Sale{{ID: "sale_1"}}, time.Minute)
	cache.SetListing(ctx, "upcoming", []*sale.Sale{{ID: "sale_2"}}, time.Minute)
	if err := cache.InvalidateListings(ctx); err != nil {
		t.Fatal(err)
	}

	for _, key := range []string{"active", "upcoming"} {
		if _, ok, _ := cache.GetListing(ctx, key); ok {
			t.Errorf("%s survived invalidation", key)
		}
	}
}

func TestCacheTopContended(t *testing.T) {
	ctx := context.Background()
	cache := NewCache(clock.NewRealClock())

	for i := 0; i < 3; i++ {
		cache.RecordContention(ctx, "sale_1", "offer_b")
	}
	cache.RecordContention(ctx, "sale_1", "offer_a")
	cache.RecordContention(ctx, "sale_2", "offer_c")

	top, err := cache.TopContended(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(top) != 2 {
		t.Fatalf("len = %d", len(top))
	}
	if top[0].OfferID != "offer_b" || top[0].Contentions != 3 {
		t.Errorf("top[0] = %+v", top[0])
	}
	if top[1].OfferID != "offer_a" {
		t.Errorf("ties should order by sale then offer id: %+v", top[1])
	}
}
