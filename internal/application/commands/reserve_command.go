package commands

import (
	"context"

	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/application/use_cases"
	domainErrors "github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/domain/errors"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/domain/sale"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/pkg/logger"
)

type ReserveCommand struct {
	SaleID   string
	OfferID  string
	BuyerID  string
	Quantity int
}

type ReserveHandler struct {
	reserveUseCase *use_cases.ReserveUseCase
	log            *logger.Logger
}

func NewReserveHandler(
	reserveUseCase *use_cases.ReserveUseCase,
	log *logger.Logger,
) *ReserveHandler {
	return &ReserveHandler{
		reserveUseCase: reserveUseCase,
		log:            log,
	}
}

func (h *ReserveHandler) Handle(ctx context.Context, cmd ReserveCommand) (*sale.ReservationReceipt, error) {
	h.log.Debug("Processing reserve request",
		"sale_id", cmd.SaleID,
		"offer_id", cmd.OfferID,
		"buyer_id", cmd.BuyerID,
		"quantity", cmd.Quantity,
	)

	receipt, err := h.reserveUseCase.Reserve(ctx, use_cases.ReserveCommand{
		SaleID:   cmd.SaleID,
		OfferID:  cmd.OfferID,
		BuyerID:  cmd.BuyerID,
		Quantity: cmd.Quantity,
	})
	if err != nil {
		if !domainErrors.IsBusinessError(err) {
			h.log.Error("Reserve failed", "error", err.Error(), "sale_id", cmd.SaleID, "offer_id", cmd.OfferID)
		}
		return nil, err
	}

	return receipt, nil
}
