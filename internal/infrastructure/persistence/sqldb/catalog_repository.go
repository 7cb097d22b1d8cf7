package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	domainErrors "github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/domain/errors"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/domain/sale"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/infrastructure/monitoring"
)

type productRow struct {
	ID               string          `db:"id"`
	MerchantID       string          `db:"merchant_id"`
	Name             string          `db:"name"`
	Image            string          `db:"image"`
	MerchantLabel    string          `db:"merchant_label"`
	MerchantVerified bool            `db:"merchant_verified"`
	Price            decimal.Decimal `db:"price"`
	CreatedAt        time.Time       `db:"created_at"`
}

// CatalogRepository is the product catalog offers snapshot their display
// fields from.
type CatalogRepository struct {
	db *sqlx.DB
}

func NewCatalogRepository(conn *Connection) *CatalogRepository {
	return &CatalogRepository{db: conn.db}
}

func (r *CatalogRepository) Snapshot(ctx context.Context, productID string) (*sale.ProductSnapshot, error) {
	var row productRow
	query := r.db.Rebind(`
		SELECT id, merchant_id, name, image, merchant_label, merchant_verified, price, created_at
		FROM products WHERE id = ?
	`)
	if err := monitoring.InstrumentGet(ctx, r.db, &row, "SELECT", "products", query, productID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainErrors.ErrProductNotFound
		}
		return nil, classify(err)
	}

	return &sale.ProductSnapshot{
		ProductID:        row.ID,
		MerchantID:       row.MerchantID,
		Name:             row.Name,
		Image:            row.Image,
		MerchantLabel:    row.MerchantLabel,
		MerchantVerified: row.MerchantVerified,
	}, nil
}

// UpsertProduct inserts or refreshes a catalog entry. Used by the seeder.
func (r *CatalogRepository) UpsertProduct(ctx context.Context, p sale.ProductSnapshot, price decimal.Decimal) error {
	_, err := monitoring.InstrumentExec(ctx, r.db, "UPSERT", "products", r.db.Rebind(`
		INSERT INTO products (id, merchant_id, name, image, merchant_label, merchant_verified, price, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE
		SET merchant_id = excluded.merchant_id, name = excluded.name, image = excluded.image,
			merchant_label = excluded.merchant_label, merchant_verified = excluded.merchant_verified,
			price = excluded.price
	`), p.ProductID, p.MerchantID, p.Name, p.Image, p.MerchantLabel, p.MerchantVerified, price, time.Now().UTC())
	return classify(err)
}
