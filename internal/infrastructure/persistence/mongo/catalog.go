package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	domainErrors "github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/domain/errors"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/domain/sale"
)

// Catalog reads product snapshots from the products collection.
type Catalog struct {
	products *mongo.Collection
}

func NewCatalog(store *Store) *Catalog {
	return &Catalog{products: store.products}
}

func (c *Catalog) Snapshot(ctx context.Context, productID string) (*sale.ProductSnapshot, error) {
	var doc productDocument
	if err := c.products.FindOne(ctx, bson.M{"_id": productID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainErrors.ErrProductNotFound
		}
		return nil, fmt.Errorf("mongo: product snapshot: %w", err)
	}
	return &sale.ProductSnapshot{
		ProductID:        doc.ID,
		MerchantID:       doc.MerchantID,
		Name:             doc.Name,
		Image:            doc.Image,
		MerchantLabel:    doc.MerchantLabel,
		MerchantVerified: doc.MerchantVerified,
	}, nil
}

func (c *Catalog) UpsertProduct(ctx context.Context, p sale.ProductSnapshot, price decimal.Decimal) error {
	_, err := c.products.UpdateOne(ctx,
		bson.M{"_id": p.ProductID},
		bson.M{
			"$set": bson.M{
				"merchant_id":       p.MerchantID,
				"name":              p.Name,
				"image":             p.Image,
				"merchant_label":    p.MerchantLabel,
				"merchant_verified": p.MerchantVerified,
				"price":             price.String(),
			},
			"$setOnInsert": bson.M{"created_at": time.Now().UTC()},
		},
		options.UpdateOne().SetUpsert(true))
	return err
}
