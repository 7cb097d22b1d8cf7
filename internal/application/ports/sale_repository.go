package ports

import (
	"context"

	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/domain/sale"
)

type SaleRepository interface {
	sale.Repository

	Ping(ctx context.Context) error
	Close() error
}
