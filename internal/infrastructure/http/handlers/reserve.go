package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/application/commands"
	domainErrors "github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/domain/errors"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/infrastructure/http/response"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/infrastructure/monitoring"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/pkg/logger"
)

type ReserveHandler struct {
	command *commands.ReserveHandler
	log     *logger.Logger
}

func NewReserveHandler(command *commands.ReserveHandler, log *logger.Logger) *ReserveHandler {
	return &ReserveHandler{
		command: command,
		log:     log,
	}
}

// ReserveRequest accepts the buyer id as buyer_id or buyerId.
type ReserveRequest struct {
	BuyerID      string `json:"buyer_id"`
	BuyerIDCamel string `json:"buyerId"`
	Quantity     int    `json:"quantity"`
}

func (h *ReserveHandler) HandleReserve(w http.ResponseWriter, r *http.Request) {
	saleID := chi.URLParam(r, "saleID")
	offerID := chi.URLParam(r, "offerID")

	metrics := monitoring.NewReservationMetrics(saleID, offerID)
	metrics.RecordAttempt()

	var req ReserveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		metrics.RecordOutcome(0, err)
		response.WriteDomainError(w, err, h.log)
		return
	}
	buyerID := req.BuyerID
	if buyerID == "" {
		buyerID = req.BuyerIDCamel
	}

	receipt, err := h.command.Handle(r.Context(), commands.ReserveCommand{
		SaleID:   saleID,
		OfferID:  offerID,
		BuyerID:  buyerID,
		Quantity: req.Quantity,
	})
	metrics.RecordOutcome(req.Quantity, err)
	if err != nil {
		if !domainErrors.IsBusinessError(err) {
			h.log.Error("Reserve request failed", "error", err, "sale_id", saleID, "offer_id", offerID)
		}
		response.WriteDomainError(w, err, h.log)
		return
	}

	response.WriteCreated(w, receipt, "Units reserved")
}
