package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/application/commands"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/application/use_cases"
	domainErrors "github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/domain/errors"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/domain/sale"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/infrastructure/http/response"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/pkg/clock"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/pkg/logger"
)

type AdminHandler struct {
	admin          *use_cases.AdminUseCase
	createSale     *commands.CreateSaleHandler
	clock          clock.Clock
	analyticsHours int
	logger         *logger.Logger
}

func NewAdminHandler(
	admin *use_cases.AdminUseCase,
	clk clock.Clock,
	analyticsHours int,
	logger *logger.Logger,
) *AdminHandler {
	return &AdminHandler{
		admin:          admin,
		createSale:     commands.NewCreateSaleHandler(admin, logger),
		clock:          clk,
		analyticsHours: analyticsHours,
		logger:         logger,
	}
}

type OfferRequest struct {
	ProductID          string          `json:"product_id"`
	OriginalPrice      decimal.Decimal `json:"original_price"`
	SalePrice          decimal.Decimal `json:"sale_price"`
	DiscountPercentage *int            `json:"discount_percentage,omitempty"`
	TotalStock         int             `json:"total_stock"`
	MaxUnitsPerBuyer   int             `json:"max_units_per_buyer"`
}

func (o OfferRequest) toInput() use_cases.OfferInput {
	return use_cases.OfferInput{
		ProductID:          strings.TrimSpace(o.ProductID),
		OriginalPrice:      o.OriginalPrice,
		SalePrice:          o.SalePrice,
		DiscountPercentage: o.DiscountPercentage,
		TotalStock:         o.TotalStock,
		MaxUnitsPerBuyer:   o.MaxUnitsPerBuyer,
	}
}

type CreateSaleRequest struct {
	Title            string         `json:"title"`
	Description      string         `json:"description"`
	StartsAt         time.Time      `json:"starts_at"`
	EndsAt           time.Time      `json:"ends_at"`
	ManuallyDisabled bool           `json:"manually_disabled"`
	Offers           []OfferRequest `json:"offers"`
}

type OfferPatchRequest struct {
	ID                 string           `json:"id"`
	OriginalPrice      *decimal.Decimal `json:"original_price,omitempty"`
	SalePrice          *decimal.Decimal `json:"sale_price,omitempty"`
	DiscountPercentage *int             `json:"discount_percentage,omitempty"`
	TotalStock         *int             `json:"total_stock,omitempty"`
	MaxUnitsPerBuyer   *int             `json:"max_units_per_buyer,omitempty"`
}

type UpdateSaleRequest struct {
	Version          *int64              `json:"version,omitempty"`
	Title            *string             `json:"title,omitempty"`
	Description      *string             `json:"description,omitempty"`
	StartsAt         *time.Time          `json:"starts_at,omitempty"`
	EndsAt           *time.Time          `json:"ends_at,omitempty"`
	ManuallyDisabled *bool               `json:"manually_disabled,omitempty"`
	Offers           []OfferPatchRequest `json:"offers,omitempty"`
	AddOffers        []OfferRequest      `json:"add_offers,omitempty"`
	RemoveOffers     []string            `json:"remove_offers,omitempty"`
}

func (h *AdminHandler) HandleCreateSale(w http.ResponseWriter, r *http.Request) {
	var req CreateSaleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.WriteDomainError(w, err, h.logger)
		return
	}

	in := use_cases.CreateSaleInput{
		Title:            req.Title,
		Description:      req.Description,
		StartsAt:         req.StartsAt,
		EndsAt:           req.EndsAt,
		ManuallyDisabled: req.ManuallyDisabled,
		Offers:           make([]use_cases.OfferInput, 0, len(req.Offers)),
	}
	for _, o := range req.Offers {
		in.Offers = append(in.Offers, o.toInput())
	}

	created, err := h.createSale.Handle(r.Context(), in)
	if err != nil {
		response.WriteDomainError(w, err, h.logger)
		return
	}

	response.WriteCreated(w, use_cases.NewSaleView(created, h.clock.Now()), "Sale created successfully")
}

func (h *AdminHandler) HandleUpdateSale(w http.ResponseWriter, r *http.Request) {
	var req UpdateSaleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.WriteDomainError(w, err, h.logger)
		return
	}

	version := req.Version
	if ifMatch := strings.Trim(r.Header.Get("If-Match"), `" `); ifMatch != "" {
		v, err := strconv.ParseInt(strings.TrimPrefix(ifMatch, "W/"), 10, 64)
		if err != nil {
			response.WriteDomainError(w, domainErrors.NewValidationError("If-Match", "must be a sale version"), h.logger)
			return
		}
		version = &v
	}

	in := use_cases.UpdateSaleInput{
		SaleID:           chi.URLParam(r, "saleID"),
		ExpectedVersion:  version,
		Title:            req.Title,
		Description:      req.Description,
		StartsAt:         req.StartsAt,
		EndsAt:           req.EndsAt,
		ManuallyDisabled: req.ManuallyDisabled,
		RemoveOffers:     req.RemoveOffers,
	}
	for _, o := range req.Offers {
		in.Offers = append(in.Offers, sale.OfferPatch{
			ID:                 o.ID,
			OriginalPrice:      o.OriginalPrice,
			SalePrice:          o.SalePrice,
			DiscountPercentage: o.DiscountPercentage,
			TotalStock:         o.TotalStock,
			MaxUnitsPerBuyer:   o.MaxUnitsPerBuyer,
		})
	}
	for _, o := range req.AddOffers {
		in.AddOffers = append(in.AddOffers, o.toInput())
	}

	updated, err := h.admin.UpdateSale(r.Context(), in)
	if err != nil {
		response.WriteDomainError(w, err, h.logger)
		return
	}

	w.Header().Set("ETag", strconv.FormatInt(updated.Version, 10))
	response.WriteSuccess(w, use_cases.NewSaleView(updated, h.clock.Now()), "Sale updated successfully")
}

func (h *AdminHandler) HandleDeleteSale(w http.ResponseWriter, r *http.Request) {
	force, err := queryBool(r, "force")
	if err != nil {
		response.WriteDomainError(w, err, h.logger)
		return
	}

	if err := h.admin.DeleteSale(r.Context(), chi.URLParam(r, "saleID"), force); err != nil {
		response.WriteDomainError(w, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) HandleAnalytics(w http.ResponseWriter, r *http.Request) {
	hours, err := queryInt(r, "window_hours", h.analyticsHours)
	if err != nil {
		response.WriteDomainError(w, err, h.logger)
		return
	}

	summary, err := h.admin.Analytics(r.Context(), hours)
	if err != nil {
		response.WriteDomainError(w, err, h.logger)
		return
	}

	response.WriteSuccess(w, summary)
}

func (h *AdminHandler) HandleHotOffers(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		response.WriteDomainError(w, err, h.logger)
		return
	}

	offers, err := h.admin.HotOffers(r.Context(), limit)
	if err != nil {
		response.WriteDomainError(w, err, h.logger)
		return
	}

	response.WriteSuccess(w, offers)
}
