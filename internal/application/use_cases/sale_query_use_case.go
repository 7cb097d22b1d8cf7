package use_cases

import (
	"context"
	"time"

	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/application/ports"
	domainErrors "github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/domain/errors"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/domain/sale"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/pkg/clock"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/pkg/logger"
)

const (
	ListPhaseAll      = ""
	ListPhaseActive   = "active"
	ListPhaseUpcoming = "upcoming"

	storefrontListingKey = "storefront"
)

type SaleQueryUseCase struct {
	saleRepo   ports.SaleRepository
	cache      ports.Cache
	index      ports.SaleIndex
	clock      clock.Clock
	log        *logger.Logger
	listingTTL time.Duration
}

func NewSaleQueryUseCase(
	saleRepo ports.SaleRepository,
	cache ports.Cache,
	index ports.SaleIndex,
	clk clock.Clock,
	log *logger.Logger,
	listingTTL time.Duration,
) *SaleQueryUseCase {
	return &SaleQueryUseCase{
		saleRepo:   saleRepo,
		cache:      cache,
		index:      index,
		clock:      clk,
		log:        log,
		listingTTL: listingTTL,
	}
}

// View returns the sale as seen now and counts one storefront view.
func (uc *SaleQueryUseCase) View(ctx context.Context, saleID string) (*SaleView, error) {
	if saleID == "" {
		return nil, domainErrors.NewValidationError("saleId", "is required")
	}
	if uc.index != nil {
		known, err := uc.index.Contains(ctx, saleID)
		if err != nil {
			uc.log.Warn("Sale index lookup failed, falling back to store", "error", err, "sale_id", saleID)
		} else if !known {
			return nil, domainErrors.ErrSaleNotFound
		}
	}

	if err := uc.saleRepo.RecordView(ctx, saleID); err != nil {
		if !domainErrors.IsNotFound(err) {
			uc.log.Error("Failed to record sale view", "error", err, "sale_id", saleID)
		}
		return nil, err
	}

	s, err := uc.saleRepo.GetSale(ctx, saleID)
	if err != nil {
		return nil, err
	}

	view := NewSaleView(s, uc.clock.Now())
	return &view, nil
}

// List returns the storefront: sales that are active or upcoming, ordered by
// start time. phase narrows it to one of the two.
func (uc *SaleQueryUseCase) List(ctx context.Context, phase string) ([]SaleView, error) {
	switch phase {
	case ListPhaseAll, ListPhaseActive, ListPhaseUpcoming:
	default:
		return nil, domainErrors.NewValidationError("phase", "must be one of active, upcoming")
	}

	now := uc.clock.Now()
	sales, err := uc.storefront(ctx, now)
	if err != nil {
		return nil, err
	}

	views := make([]SaleView, 0, len(sales))
	for _, s := range sales {
		p := sale.EvaluatePhase(s, now)
		switch {
		case p == sale.PhaseActive && phase != ListPhaseUpcoming:
		case p == sale.PhaseScheduled && phase != ListPhaseActive:
		default:
			continue
		}
		views = append(views, NewSaleView(s, now))
	}
	return views, nil
}

// storefront serves the listing snapshot from the cache when it can. The
// snapshot may be a little stale; phases are always recomputed by the caller.
func (uc *SaleQueryUseCase) storefront(ctx context.Context, now time.Time) ([]*sale.Sale, error) {
	if uc.cache != nil && uc.listingTTL > 0 {
		cached, ok, err := uc.cache.GetListing(ctx, storefrontListingKey)
		if err != nil {
			uc.log.Warn("Listing cache read failed", "error", err)
		} else if ok {
			return cached, nil
		}
	}

	sales, err := uc.saleRepo.ListSales(ctx, sale.ListFilter{EndsAfter: &now})
	if err != nil {
		uc.log.Error("Failed to list sales", "error", err)
		return nil, err
	}

	if uc.cache != nil && uc.listingTTL > 0 {
		if err := uc.cache.SetListing(ctx, storefrontListingKey, sales, uc.listingTTL); err != nil {
			uc.log.Warn("Listing cache write failed", "error", err)
		}
	}
	return sales, nil
}
