package main

import (
	"context"
	"testing"

	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/infrastructure/persistence/memory"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/pkg/generator"
)

func TestSeedProducts(t *testing.T) {
	ctx := context.Background()
	catalog := memory.NewCatalog()

	fixtures, err := seedProducts(ctx, catalog, generator.NewSeededItemGenerator(42), 8)
	if err != nil {
		t.Fatalf("seedProducts: %v", err)
	}
	if len(fixtures) != 6 {
		t.Fatalf("got %d verified fixtures, want 6", len(fixtures))
	}

	for _, f := range fixtures {
		snap, err := catalog.Snapshot(ctx, f.ProductID)
		if err != nil {
			t.Fatalf("Snapshot(%s): %v", f.ProductID, err)
		}
		if !snap.MerchantVerified {
			t.Errorf("product %s seeded with an unverified merchant", f.ProductID)
		}
		if snap.Name != f.Name {
			t.Errorf("Name = %q, want %q", snap.Name, f.Name)
		}
		if !f.Price.IsPositive() {
			t.Errorf("price %s is not positive", f.Price)
		}
	}
}

func TestSeedProductsAtLeastOne(t *testing.T) {
	fixtures, err := seedProducts(context.Background(), memory.NewCatalog(), generator.NewSeededItemGenerator(1), 0)
	if err != nil {
		t.Fatalf("seedProducts: %v", err)
	}
	if len(fixtures) != 1 {
		t.Errorf("got %d fixtures, want 1", len(fixtures))
	}
}
