package mongo

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/domain/sale"
)

type saleDocument struct {
	ID               string          `bson:"_id"`
	Title            string          `bson:"title"`
	Description      string          `bson:"description"`
	StartsAt         time.Time       `bson:"starts_at"`
	EndsAt           time.Time       `bson:"ends_at"`
	ManuallyDisabled bool            `bson:"manually_disabled"`
	Offers           []offerDocument `bson:"offers"`
	TotalViews       int64           `bson:"total_views"`
	TotalUnitsSold   int64           `bson:"total_units_sold"`
	CreatedBy        string          `bson:"created_by"`
	Version          int64           `bson:"version"`
	CreatedAt        time.Time       `bson:"created_at"`
	UpdatedAt        time.Time       `bson:"updated_at"`
	DeletedAt        *time.Time      `bson:"deleted_at"`
}

// Prices are stored as decimal strings to keep them exact.
type offerDocument struct {
	ID                 string `bson:"id"`
	ProductID          string `bson:"product_id"`
	MerchantID         string `bson:"merchant_id"`
	ProductName        string `bson:"product_name"`
	ProductImage       string `bson:"product_image"`
	MerchantLabel      string `bson:"merchant_label"`
	OriginalPrice      string `bson:"original_price"`
	SalePrice          string `bson:"sale_price"`
	DiscountPercentage int    `bson:"discount_percentage"`
	TotalStock         int    `bson:"total_stock"`
	UnitsSold          int    `bson:"units_sold"`
	MaxUnitsPerBuyer   int    `bson:"max_units_per_buyer"`
}

type allocationDocument struct {
	ID        string    `bson:"_id"`
	SaleID    string    `bson:"sale_id"`
	OfferID   string    `bson:"offer_id"`
	BuyerID   string    `bson:"buyer_id"`
	Quantity  int       `bson:"quantity"`
	UpdatedAt time.Time `bson:"updated_at"`
}

type productDocument struct {
	ID               string    `bson:"_id"`
	MerchantID       string    `bson:"merchant_id"`
	Name             string    `bson:"name"`
	Image            string    `bson:"image"`
	MerchantLabel    string    `bson:"merchant_label"`
	MerchantVerified bool      `bson:"merchant_verified"`
	Price            string    `bson:"price"`
	CreatedAt        time.Time `bson:"created_at"`
}

func allocationID(saleID, offerID, buyerID string) string {
	return saleID + "|" + offerID + "|" + buyerID
}

func toSaleDocument(s *sale.Sale) *saleDocument {
	doc := &saleDocument{
		ID:               s.ID,
		Title:            s.Title,
		Description:      s.Description,
		StartsAt:         s.StartsAt.UTC(),
		EndsAt:           s.EndsAt.UTC(),
		ManuallyDisabled: s.ManuallyDisabled,
		Offers:           make([]offerDocument, len(s.Offers)),
		TotalViews:       s.TotalViews,
		TotalUnitsSold:   s.TotalUnitsSold,
		CreatedBy:        s.CreatedBy,
		Version:          s.Version,
		CreatedAt:        s.CreatedAt.UTC(),
		UpdatedAt:        s.UpdatedAt.UTC(),
	}
	if s.DeletedAt != nil {
		deletedAt := s.DeletedAt.UTC()
		doc.DeletedAt = &deletedAt
	}
	for i, o := range s.Offers {
		doc.Offers[i] = offerDocument{
			ID:                 o.ID,
			ProductID:          o.Product.ProductID,
			MerchantID:         o.Product.MerchantID,
			ProductName:        o.ProductName,
			ProductImage:       o.ProductImage,
			MerchantLabel:      o.MerchantLabel,
			OriginalPrice:      o.OriginalPrice.String(),
			SalePrice:          o.SalePrice.String(),
			DiscountPercentage: o.DiscountPercentage,
			TotalStock:         o.TotalStock,
			UnitsSold:          o.UnitsSold,
			MaxUnitsPerBuyer:   o.MaxUnitsPerBuyer,
		}
	}
	return doc
}

func fromSaleDocument(doc *saleDocument) (*sale.Sale, error) {
	s := &sale.Sale{
		ID:               doc.ID,
		Title:            doc.Title,
		Description:      doc.Description,
		StartsAt:         doc.StartsAt.UTC(),
		EndsAt:           doc.EndsAt.UTC(),
		ManuallyDisabled: doc.ManuallyDisabled,
		Offers:           make([]sale.Offer, len(doc.Offers)),
		TotalViews:       doc.TotalViews,
		TotalUnitsSold:   doc.TotalUnitsSold,
		CreatedBy:        doc.CreatedBy,
		Version:          doc.Version,
		CreatedAt:        doc.CreatedAt.UTC(),
		UpdatedAt:        doc.UpdatedAt.UTC(),
	}
	if doc.DeletedAt != nil {
		deletedAt := doc.DeletedAt.UTC()
		s.DeletedAt = &deletedAt
	}
	for i, o := range doc.Offers {
		original, err := decimal.NewFromString(o.OriginalPrice)
		if err != nil {
			return nil, err
		}
		salePrice, err := decimal.NewFromString(o.SalePrice)
		if err != nil {
			return nil, err
		}
		s.Offers[i] = sale.Offer{
			ID:                 o.ID,
			Product:            sale.ProductRef{ProductID: o.ProductID, MerchantID: o.MerchantID},
			ProductName:        o.ProductName,
			ProductImage:       o.ProductImage,
			MerchantLabel:      o.MerchantLabel,
			OriginalPrice:      original,
			SalePrice:          salePrice,
			DiscountPercentage: o.DiscountPercentage,
			TotalStock:         o.TotalStock,
			UnitsSold:          o.UnitsSold,
			MaxUnitsPerBuyer:   o.MaxUnitsPerBuyer,
		}
	}
	return s, nil
}
