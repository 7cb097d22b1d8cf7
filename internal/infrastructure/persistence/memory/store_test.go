package memory

import (
	"context"
	"errors"
	"testing"

	domainErrors "github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/domain/errors"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/domain/sale"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/infrastructure/persistence/storetest"
)

func TestStoreConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) sale.Repository {
		return NewStore()
	})
}

func TestGetSaleReturnsCopy(t *testing.T) {
	store := NewStore()
	s := storetest.NewSale(10, 3)
	if err := store.CreateSale(context.Background(), s); err != nil {
		t.Fatal(err)
	}

	got, _ := store.GetSale(context.Background(), s.ID)
	got.Offers[0].UnitsSold = 10

	again, _ := store.GetSale(context.Background(), s.ID)
	if again.Offers[0].UnitsSold != 0 {
		t.Error("mutating a returned sale leaked into the store")
	}
}

func TestCatalogSnapshot(t *testing.T) {
	catalog := NewCatalog(sale.ProductSnapshot{ProductID: "p1", Name: "Lantern", MerchantVerified: true})

	snap, err := catalog.Snapshot(context.Background(), "p1")
	if err != nil || snap.Name != "Lantern" {
		t.Fatalf("Snapshot = %+v, %v", snap, err)
	}
	if _, err := catalog.Snapshot(context.Background(), "p2"); !errors.Is(err, domainErrors.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}
