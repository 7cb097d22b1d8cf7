package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/application/use_cases"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/infrastructure/http/response"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/infrastructure/monitoring"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/pkg/logger"
)

type SaleHandler struct {
	queries *use_cases.SaleQueryUseCase
	log     *logger.Logger
}

func NewSaleHandler(queries *use_cases.SaleQueryUseCase, log *logger.Logger) *SaleHandler {
	return &SaleHandler{
		queries: queries,
		log:     log,
	}
}

func (h *SaleHandler) HandleGetSale(w http.ResponseWriter, r *http.Request) {
	saleID := chi.URLParam(r, "saleID")

	view, err := h.queries.View(r.Context(), saleID)
	if err != nil {
		response.WriteDomainError(w, err, h.log)
		return
	}

	monitoring.RecordSaleView()
	response.WriteSuccess(w, view)
}

func (h *SaleHandler) HandleListSales(w http.ResponseWriter, r *http.Request) {
	views, err := h.queries.List(r.Context(), r.URL.Query().Get("phase"))
	if err != nil {
		response.WriteDomainError(w, err, h.log)
		return
	}

	response.WriteSuccess(w, views)
}
