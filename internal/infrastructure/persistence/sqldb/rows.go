package sqldb

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/domain/sale"
)

type saleRow struct {
	ID               string       `db:"id"`
	Title            string       `db:"title"`
	Description      string       `db:"description"`
	StartsAt         time.Time    `db:"starts_at"`
	EndsAt           time.Time    `db:"ends_at"`
	ManuallyDisabled bool         `db:"manually_disabled"`
	TotalViews       int64        `db:"total_views"`
	TotalUnitsSold   int64        `db:"total_units_sold"`
	CreatedBy        string       `db:"created_by"`
	Version          int64        `db:"version"`
	CreatedAt        time.Time    `db:"created_at"`
	UpdatedAt        time.Time    `db:"updated_at"`
	DeletedAt        sql.NullTime `db:"deleted_at"`
}

type offerRow struct {
	ID                 string          `db:"id"`
	SaleID             string          `db:"sale_id"`
	Position           int             `db:"position"`
	ProductID          string          `db:"product_id"`
	MerchantID         string          `db:"merchant_id"`
	ProductName        string          `db:"product_name"`
	ProductImage       string          `db:"product_image"`
	MerchantLabel      string          `db:"merchant_label"`
	OriginalPrice      decimal.Decimal `db:"original_price"`
	SalePrice          decimal.Decimal `db:"sale_price"`
	DiscountPercentage int             `db:"discount_percentage"`
	TotalStock         int             `db:"total_stock"`
	UnitsSold          int             `db:"units_sold"`
	MaxUnitsPerBuyer   int             `db:"max_units_per_buyer"`
	TopBuyerUnits      int             `db:"top_buyer_units"`
}

const saleColumns = `id, title, description, starts_at, ends_at, manually_disabled,
	total_views, total_units_sold, created_by, version, created_at, updated_at, deleted_at`

const offerColumns = `id, sale_id, position, product_id, merchant_id, product_name, product_image,
	merchant_label, original_price, sale_price, discount_percentage, total_stock, units_sold,
	max_units_per_buyer`

// topBuyerColumn is only selected where callers need TopBuyerUnits.
const topBuyerColumn = `(
	SELECT COALESCE(MAX(a.quantity), 0) FROM offer_buyer_allocations a
	WHERE a.sale_id = sale_offers.sale_id AND a.offer_id = sale_offers.id
) AS top_buyer_units`

func newSaleRow(s *sale.Sale) saleRow {
	row := saleRow{
		ID:               s.ID,
		Title:            s.Title,
		Description:      s.Description,
		StartsAt:         s.StartsAt.UTC(),
		EndsAt:           s.EndsAt.UTC(),
		ManuallyDisabled: s.ManuallyDisabled,
		TotalViews:       s.TotalViews,
		TotalUnitsSold:   s.TotalUnitsSold,
		CreatedBy:        s.CreatedBy,
		Version:          s.Version,
		CreatedAt:        s.CreatedAt.UTC(),
		UpdatedAt:        s.UpdatedAt.UTC(),
	}
	if s.DeletedAt != nil {
		row.DeletedAt = sql.NullTime{Time: s.DeletedAt.UTC(), Valid: true}
	}
	return row
}

func newOfferRow(saleID string, position int, o *sale.Offer) offerRow {
	return offerRow{
		ID:                 o.ID,
		SaleID:             saleID,
		Position:           position,
		ProductID:          o.Product.ProductID,
		MerchantID:         o.Product.MerchantID,
		ProductName:        o.ProductName,
		ProductImage:       o.ProductImage,
		MerchantLabel:      o.MerchantLabel,
		OriginalPrice:      o.OriginalPrice,
		SalePrice:          o.SalePrice,
		DiscountPercentage: o.DiscountPercentage,
		TotalStock:         o.TotalStock,
		UnitsSold:          o.UnitsSold,
		MaxUnitsPerBuyer:   o.MaxUnitsPerBuyer,
	}
}

func (r *saleRow) toDomain(offers []offerRow) *sale.Sale {
	s := &sale.Sale{
		ID:               r.ID,
		Title:            r.Title,
		Description:      r.Description,
		StartsAt:         r.StartsAt.UTC(),
		EndsAt:           r.EndsAt.UTC(),
		ManuallyDisabled: r.ManuallyDisabled,
		TotalViews:       r.TotalViews,
		TotalUnitsSold:   r.TotalUnitsSold,
		CreatedBy:        r.CreatedBy,
		Version:          r.Version,
		CreatedAt:        r.CreatedAt.UTC(),
		UpdatedAt:        r.UpdatedAt.UTC(),
		Offers:           make([]sale.Offer, 0, len(offers)),
	}
	if r.DeletedAt.Valid {
		deletedAt := r.DeletedAt.Time.UTC()
		s.DeletedAt = &deletedAt
	}
	for i := range offers {
		s.Offers = append(s.Offers, offers[i].toDomain())
	}
	return s
}

func (r *offerRow) toDomain() sale.Offer {
	return sale.Offer{
		ID:                 r.ID,
		Product:            sale.ProductRef{ProductID: r.ProductID, MerchantID: r.MerchantID},
		ProductName:        r.ProductName,
		ProductImage:       r.ProductImage,
		MerchantLabel:      r.MerchantLabel,
		OriginalPrice:      r.OriginalPrice,
		SalePrice:          r.SalePrice,
		DiscountPercentage: r.DiscountPercentage,
		TotalStock:         r.TotalStock,
		UnitsSold:          r.UnitsSold,
		MaxUnitsPerBuyer:   r.MaxUnitsPerBuyer,
		TopBuyerUnits:      r.TopBuyerUnits,
	}
}
