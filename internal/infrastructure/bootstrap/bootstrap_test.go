package bootstrap

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/config"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/domain/sale"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/pkg/clock"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/pkg/logger"
)

func memoryConfig() *config.Config {
	cfg := config.Default()
	cfg.Database.Driver = config.DriverMemory
	cfg.Redis.Enabled = false
	return cfg
}

func TestOpenMemory(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 11, 28, 12, 0, 0, 0, time.UTC)

	infra, err := Open(ctx, memoryConfig(), clock.NewMockClock(now), logger.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer infra.Close()

	if infra.RedisEnabled {
		t.Error("RedisEnabled = true, want false")
	}
	if infra.CachePinger() != nil {
		t.Error("CachePinger should be nil without Redis")
	}

	snapshot := sale.ProductSnapshot{ProductID: "prod-1", MerchantID: "m-1", Name: "Kettle", MerchantVerified: true}
	if err := infra.Catalog.UpsertProduct(ctx, snapshot, decimal.NewFromInt(1500)); err != nil {
		t.Fatalf("UpsertProduct: %v", err)
	}
	got, err := infra.Catalog.Snapshot(ctx, "prod-1")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if got.Name != "Kettle" {
		t.Errorf("Name = %q, want Kettle", got.Name)
	}
}

func TestWarmIndex(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 11, 28, 12, 0, 0, 0, time.UTC)

	infra, err := Open(ctx, memoryConfig(), clock.NewMockClock(now), logger.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer infra.Close()

	for _, id := range []string{"sale-a", "sale-b"} {
		s := &sale.Sale{ID: id, Title: id, StartsAt: now, EndsAt: now.Add(time.Hour)}
		if err := infra.Sales.CreateSale(ctx, s); err != nil {
			t.Fatalf("CreateSale(%s): %v", id, err)
		}
	}

	n, err := infra.WarmIndex(ctx)
	if err != nil {
		t.Fatalf("WarmIndex: %v", err)
	}
	if n != 2 {
		t.Errorf("indexed %d sales, want 2", n)
	}

	for _, id := range []string{"sale-a", "sale-b"} {
		ok, err := infra.Index.Contains(ctx, id)
		if err != nil || !ok {
			t.Errorf("Contains(%s) = %v, %v; want true", id, ok, err)
		}
	}
}
