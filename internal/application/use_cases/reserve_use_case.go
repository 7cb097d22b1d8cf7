package use_cases

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/application/ports"
	domainErrors "github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/domain/errors"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/domain/sale"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/pkg/clock"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/pkg/logger"
)

type ReserveCommand struct {
	SaleID   string
	OfferID  string
	BuyerID  string
	Quantity int
}

// ReserveUseCase is the offer allocator: the only path that moves stock.
type ReserveUseCase struct {
	saleRepo ports.SaleRepository
	cache    ports.Cache
	index    ports.SaleIndex
	clock    clock.Clock
	log      *logger.Logger
	tracer   trace.Tracer

	retry   RetryPolicy
	sleep   func(ctx context.Context, d time.Duration) error
	onRetry func(attempt int, err error)
}

type ReserveOption func(*ReserveUseCase)

func WithRetryPolicy(p RetryPolicy) ReserveOption {
	return func(uc *ReserveUseCase) { uc.retry = p }
}

// WithSaleIndex short-circuits reservations for ids the index has never seen.
func WithSaleIndex(index ports.SaleIndex) ReserveOption {
	return func(uc *ReserveUseCase) { uc.index = index }
}

// WithRetryHook is called before every retry, e.g. to count retries.
func WithRetryHook(fn func(attempt int, err error)) ReserveOption {
	return func(uc *ReserveUseCase) { uc.onRetry = fn }
}

func NewReserveUseCase(
	saleRepo ports.SaleRepository,
	cache ports.Cache,
	clk clock.Clock,
	log *logger.Logger,
	opts ...ReserveOption,
) *ReserveUseCase {
	uc := &ReserveUseCase{
		saleRepo: saleRepo,
		cache:    cache,
		clock:    clk,
		log:      log,
		tracer:   otel.Tracer("flashsale/allocator"),
		retry:    DefaultRetryPolicy(),
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(uc)
	}
	if uc.retry.Attempts < 1 {
		uc.retry.Attempts = 1
	}
	return uc
}

func (uc *ReserveUseCase) Reserve(ctx context.Context, cmd ReserveCommand) (*sale.ReservationReceipt, error) {
	ctx, span := uc.tracer.Start(ctx, "allocator.Reserve", trace.WithAttributes(
		attribute.String("sale.id", cmd.SaleID),
		attribute.String("offer.id", cmd.OfferID),
		attribute.Int("quantity", cmd.Quantity),
	))
	defer span.End()

	receipt, err := uc.reserve(ctx, cmd)
	if err != nil {
		span.SetAttributes(attribute.String("outcome", domainErrors.Reason(err)))
		if !domainErrors.IsBusinessError(err) {
			span.SetStatus(codes.Error, err.Error())
		}
		return nil, err
	}
	span.SetAttributes(attribute.String("outcome", "ok"))
	return receipt, nil
}

func (uc *ReserveUseCase) reserve(ctx context.Context, cmd ReserveCommand) (*sale.ReservationReceipt, error) {
	req := sale.ReserveRequest{
		SaleID:   cmd.SaleID,
		OfferID:  cmd.OfferID,
		BuyerID:  cmd.BuyerID,
		Quantity: cmd.Quantity,
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if uc.index != nil {
		known, err := uc.index.Contains(ctx, cmd.SaleID)
		if err != nil {
			uc.log.Warn("Sale index lookup failed, falling back to store", "error", err, "sale_id", cmd.SaleID)
		} else if !known {
			return nil, domainErrors.ErrSaleNotFound
		}
	}

	s, err := uc.saleRepo.GetSale(ctx, cmd.SaleID)
	if err != nil {
		return nil, err
	}
	if _, ok := s.FindOffer(cmd.OfferID); !ok {
		return nil, domainErrors.ErrOfferNotFound
	}
	// Advisory only: the store re-checks phase and stock under its own guard.
	// A sold-out offer in an active sale is left to the stock guard so the
	// caller learns remaining=0 rather than a phase error.
	if sale.EvaluatePhase(s, uc.clock.Now()) != sale.PhaseActive {
		return nil, domainErrors.ErrSaleNotActive
	}

	var lastErr error
	for attempt := 0; attempt < uc.retry.Attempts; attempt++ {
		req.Now = uc.clock.Now()

		receipt, err := uc.saleRepo.ReserveUnits(ctx, req)
		if err == nil {
			uc.log.Info("Units reserved",
				"sale_id", req.SaleID,
				"offer_id", req.OfferID,
				"buyer_id", req.BuyerID,
				"quantity", req.Quantity,
				"units_sold", receipt.UnitsSold,
				"attempt", attempt+1)
			return receipt, nil
		}

		if !errors.Is(err, domainErrors.ErrContention) {
			if domainErrors.IsBusinessError(err) {
				uc.log.Info("Reservation rejected",
					"sale_id", req.SaleID,
					"offer_id", req.OfferID,
					"buyer_id", req.BuyerID,
					"quantity", req.Quantity,
					"reason", domainErrors.Reason(err))
			} else {
				uc.log.Error("Reservation failed", "error", err, "sale_id", req.SaleID, "offer_id", req.OfferID)
			}
			return nil, err
		}

		lastErr = err
		if attempt == uc.retry.Attempts-1 {
			break
		}
		if uc.onRetry != nil {
			uc.onRetry(attempt+1, err)
		}
		uc.log.Debug("Reservation contended, retrying", "attempt", attempt+1, "sale_id", req.SaleID, "offer_id", req.OfferID)
		if err := uc.sleep(ctx, uc.retry.Backoff(attempt)); err != nil {
			return nil, err
		}
	}

	uc.log.Warn("Hot offer: reservation retries exhausted",
		"sale_id", req.SaleID,
		"offer_id", req.OfferID,
		"attempts", uc.retry.Attempts,
		"error", lastErr)
	if uc.cache != nil {
		if err := uc.cache.RecordContention(ctx, req.SaleID, req.OfferID); err != nil {
			uc.log.Warn("Failed to record hot offer", "error", err, "sale_id", req.SaleID, "offer_id", req.OfferID)
		}
	}
	return nil, domainErrors.ErrContention
}
