package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/application/commands"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/application/use_cases"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/config"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/domain/sale"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/domain/user"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/infrastructure/auth"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/infrastructure/http/handlers"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/infrastructure/http/server"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/infrastructure/persistence/memory"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/pkg/clock"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/pkg/generator"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/pkg/logger"
)

func startService(t *testing.T, stock, maxPerBuyer int) (*httptest.Server, *sale.Sale) {
	t.Helper()

	clk := clock.NewMockClock(time.Date(2025, 11, 28, 12, 0, 0, 0, time.UTC))
	log := logger.Nop()
	store := memory.NewStore()
	cache := memory.NewCache(clk)
	catalog := memory.NewCatalog(sale.ProductSnapshot{
		ProductID: "prod-tv", MerchantID: "m-1", Name: "Television", MerchantVerified: true,
	})

	admin := use_cases.NewAdminUseCase(store, catalog, cache, nil, auth.ContextAuth{}, generator.NewTypeIDGenerator(), clk, log)
	queries := use_cases.NewSaleQueryUseCase(store, cache, nil, clk, log, time.Second)
	reserve := use_cases.NewReserveUseCase(store, cache, clk, log)

	ctx := auth.WithCaller(context.Background(), &user.Caller{ID: "admin-1", Role: user.RoleAdmin})
	created, err := admin.CreateSale(ctx, use_cases.CreateSaleInput{
		Title:    "Midnight TVs",
		StartsAt: clk.Now().Add(-time.Minute),
		EndsAt:   clk.Now().Add(time.Hour),
		Offers: []use_cases.OfferInput{{
			ProductID:        "prod-tv",
			OriginalPrice:    decimal.NewFromInt(40000),
			SalePrice:        decimal.NewFromInt(30000),
			TotalStock:       stock,
			MaxUnitsPerBuyer: maxPerBuyer,
		}},
	})
	if err != nil {
		t.Fatalf("CreateSale: %v", err)
	}

	srv := server.NewServer(config.ServerConfig{Host: "127.0.0.1"}, server.Handlers{
		Health:  handlers.NewHealthHandler(store, nil, log),
		Sale:    handlers.NewSaleHandler(queries, log),
		Reserve: handlers.NewReserveHandler(commands.NewReserveHandler(reserve, log), log),
		Admin:   handlers.NewAdminHandler(admin, clk, 24, log),
		Auth:    func(next http.Handler) http.Handler { return next },
	}, log)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, created
}

func TestLoadTesterNeverOversells(t *testing.T) {
	ts, created := startService(t, 30, 2)

	tester := NewLoadTester(&LoadTestConfig{
		BaseURL:         ts.URL,
		SaleID:          created.ID,
		OfferID:         created.Offers[0].ID,
		ConcurrentUsers: 20,
		RequestsPerUser: 5,
		Quantity:        1,
	})

	metrics, err := tester.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if metrics.TotalRequests != 100 {
		t.Errorf("TotalRequests = %d, want 100", metrics.TotalRequests)
	}
	if metrics.Oversold {
		t.Errorf("oversold: %+v", metrics.StockAfter)
	}
	if !metrics.Consistent {
		t.Errorf("server sold %d, tester saw %d", metrics.StockAfter.UnitsSold, metrics.ReservedUnits)
	}
	if metrics.ReservedUnits != 30 {
		t.Errorf("ReservedUnits = %d, want 30", metrics.ReservedUnits)
	}
	if metrics.Outcomes["ok"] != 30 {
		t.Errorf("ok outcomes = %d, want 30", metrics.Outcomes["ok"])
	}

	var report bytes.Buffer
	metrics.PrintReport(&report)
	if !strings.Contains(report.String(), "Oversold: false") {
		t.Errorf("report missing stock summary:\n%s", report.String())
	}
}

func TestLoadTesterUnknownOffer(t *testing.T) {
	ts, created := startService(t, 5, 1)

	tester := NewLoadTester(&LoadTestConfig{
		BaseURL:         ts.URL,
		SaleID:          created.ID,
		OfferID:         "missing",
		ConcurrentUsers: 1,
		RequestsPerUser: 1,
		Quantity:        1,
	})
	if _, err := tester.Run(context.Background()); err == nil {
		t.Fatal("expected an error for an offer outside the sale")
	}
}

func TestCalculatePercentile(t *testing.T) {
	durations := make([]time.Duration, 0, 100)
	for i := 100; i >= 1; i-- {
		durations = append(durations, time.Duration(i)*time.Millisecond)
	}

	tests := []struct {
		percentile int
		want       time.Duration
	}{
		{50, 51 * time.Millisecond},
		{95, 96 * time.Millisecond},
		{99, 100 * time.Millisecond},
		{100, 100 * time.Millisecond},
	}
	for _, tt := range tests {
		if got := calculatePercentile(durations, tt.percentile); got != tt.want {
			t.Errorf("p%d = %v, want %v", tt.percentile, got, tt.want)
		}
	}

	if got := calculatePercentile(nil, 50); got != 0 {
		t.Errorf("empty p50 = %v, want 0", got)
	}
}
