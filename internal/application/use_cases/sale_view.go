package use_cases

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/domain/sale"
)

// SaleView is a sale projected at a point in time. Phase, countdowns and
// sellability are derived from now and never stored.
type SaleView struct {
	ID               string         `json:"id"`
	Title            string         `json:"title"`
	Description      string         `json:"description"`
	StartsAt         time.Time      `json:"starts_at"`
	EndsAt           time.Time      `json:"ends_at"`
	ManuallyDisabled bool           `json:"manually_disabled"`
	Phase            sale.Phase     `json:"phase"`
	RemainingTime    sale.Countdown `json:"remaining_time"`
	StartsIn         sale.Countdown `json:"starts_in"`
	Offers           []OfferView    `json:"offers"`

	TotalViews     int64 `json:"total_views"`
	TotalUnitsSold int64 `json:"total_units_sold"`

	CreatedBy string     `json:"created_by,omitempty"`
	Version   int64      `json:"version"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

type OfferView struct {
	ID                 string          `json:"id"`
	Product            sale.ProductRef `json:"product"`
	ProductName        string          `json:"product_name"`
	ProductImage       string          `json:"product_image,omitempty"`
	MerchantLabel      string          `json:"merchant_label,omitempty"`
	OriginalPrice      decimal.Decimal `json:"original_price"`
	SalePrice          decimal.Decimal `json:"sale_price"`
	DiscountPercentage int             `json:"discount_percentage"`
	TotalStock         int             `json:"total_stock"`
	UnitsSold          int             `json:"units_sold"`
	RemainingStock     int             `json:"remaining_stock"`
	MaxUnitsPerBuyer   int             `json:"max_units_per_buyer"`
	Sellable           bool            `json:"sellable"`
}

func NewSaleView(s *sale.Sale, now time.Time) SaleView {
	view := SaleView{
		ID:               s.ID,
		Title:            s.Title,
		Description:      s.Description,
		StartsAt:         s.StartsAt,
		EndsAt:           s.EndsAt,
		ManuallyDisabled: s.ManuallyDisabled,
		Phase:            sale.EvaluatePhase(s, now),
		RemainingTime:    sale.RemainingTime(s, now),
		StartsIn:         sale.StartsIn(s, now),
		Offers:           make([]OfferView, 0, len(s.Offers)),
		TotalViews:       s.TotalViews,
		TotalUnitsSold:   s.TotalUnitsSold,
		CreatedBy:        s.CreatedBy,
		Version:          s.Version,
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
		DeletedAt:        s.DeletedAt,
	}

	for i := range s.Offers {
		o := &s.Offers[i]
		view.Offers = append(view.Offers, OfferView{
			ID:                 o.ID,
			Product:            o.Product,
			ProductName:        o.ProductName,
			ProductImage:       o.ProductImage,
			MerchantLabel:      o.MerchantLabel,
			OriginalPrice:      o.OriginalPrice,
			SalePrice:          o.SalePrice,
			DiscountPercentage: o.DiscountPercentage,
			TotalStock:         o.TotalStock,
			UnitsSold:          o.UnitsSold,
			RemainingStock:     o.RemainingStock(),
			MaxUnitsPerBuyer:   o.MaxUnitsPerBuyer,
			Sellable:           sale.IsSellable(s, o, now),
		})
	}
	return view
}
