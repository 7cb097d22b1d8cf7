package use_cases

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/domain/errors"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/domain/sale"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/domain/user"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/infrastructure/persistence/memory"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/pkg/clock"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/pkg/generator"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/pkg/logger"
)

var baseTime = time.Date(2025, 11, 28, 12, 0, 0, 0, time.UTC)

type staticAuth struct {
	caller *user.Caller
}

func (a staticAuth) Caller(context.Context) (*user.Caller, error) {
	if a.caller == nil {
		return nil, errors.ErrUnauthorized
	}
	return a.caller, nil
}

type fixture struct {
	clock   *clock.MockClock
	store   *memory.Store
	catalog *memory.Catalog
	cache   *memory.Cache
	admin   *AdminUseCase
	queries *SaleQueryUseCase
	reserve *ReserveUseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	clk := clock.NewMockClock(baseTime)
	store := memory.NewStore()
	catalog := memory.NewCatalog(
		sale.ProductSnapshot{ProductID: "prod-phone", MerchantID: "m-1", Name: "Phone", MerchantLabel: "Verified Shop", MerchantVerified: true},
		sale.ProductSnapshot{ProductID: "prod-case", MerchantID: "m-1", Name: "Case", MerchantLabel: "Verified Shop", MerchantVerified: true},
		sale.ProductSnapshot{ProductID: "prod-grey", MerchantID: "m-2", Name: "Grey import", MerchantLabel: "Unverified", MerchantVerified: false},
	)
	cache := memory.NewCache(clk)
	log := logger.Nop()

	admin := NewAdminUseCase(store, catalog, cache, nil,
		staticAuth{caller: &user.Caller{ID: "admin-1", Role: user.RoleAdmin}},
		generator.NewSequenceGenerator(), clk, log)

	reserve := NewReserveUseCase(store, cache, clk, log)
	reserve.sleep = func(context.Context, time.Duration) error { return nil }

	return &fixture{
		clock:   clk,
		store:   store,
		catalog: catalog,
		cache:   cache,
		admin:   admin,
		queries: NewSaleQueryUseCase(store, cache, nil, clk, log, 2*time.Second),
		reserve: reserve,
	}
}

func offerInput(productID string, stock, maxPerBuyer int) OfferInput {
	return OfferInput{
		ProductID:        productID,
		OriginalPrice:    decimal.NewFromInt(100),
		SalePrice:        decimal.NewFromInt(75),
		TotalStock:       stock,
		MaxUnitsPerBuyer: maxPerBuyer,
	}
}

// createSale creates a sale running from startsIn to startsIn+duration
// relative to the fixture clock.
func (f *fixture) createSale(t *testing.T, startsIn, duration time.Duration, offers ...OfferInput) *sale.Sale {
	t.Helper()

	if len(offers) == 0 {
		offers = []OfferInput{offerInput("prod-phone", 10, 3)}
	}
	start := f.clock.Now().Add(startsIn)
	s, err := f.admin.CreateSale(context.Background(), CreateSaleInput{
		Title:       "Black Friday",
		Description: "Doorbusters",
		StartsAt:    start,
		EndsAt:      start.Add(duration),
		Offers:      offers,
	})
	if err != nil {
		t.Fatalf("CreateSale: %v", err)
	}
	return s
}

func (f *fixture) createActiveSale(t *testing.T, offers ...OfferInput) *sale.Sale {
	t.Helper()
	return f.createSale(t, -time.Minute, time.Hour, offers...)
}
