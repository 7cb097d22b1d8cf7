package commands

import (
	"context"

	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/application/use_cases"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/domain/sale"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/pkg/logger"
)

// CreateSaleHandler is used by the seeder and by the admin HTTP handler.
type CreateSaleHandler struct {
	adminUseCase *use_cases.AdminUseCase
	log          *logger.Logger
}

func NewCreateSaleHandler(adminUseCase *use_cases.AdminUseCase, log *logger.Logger) *CreateSaleHandler {
	return &CreateSaleHandler{
		adminUseCase: adminUseCase,
		log:          log,
	}
}

func (h *CreateSaleHandler) Handle(ctx context.Context, cmd use_cases.CreateSaleInput) (*sale.Sale, error) {
	h.log.Info("Processing create sale request", "title", cmd.Title, "offers", len(cmd.Offers))

	created, err := h.adminUseCase.CreateSale(ctx, cmd)
	if err != nil {
		h.log.Warn("Create sale rejected", "error", err.Error(), "title", cmd.Title)
		return nil, err
	}

	h.log.Info("Create sale completed", "sale_id", created.ID, "version", created.Version)
	return created, nil
}
