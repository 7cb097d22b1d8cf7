package use_cases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/application/ports"
	domainErrors "github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/domain/errors"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/domain/sale"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/domain/user"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/pkg/clock"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/pkg/generator"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/pkg/logger"
)

const (
	updateRetryAttempts = 3
	defaultHotOffers    = 10
	maxHotOffers        = 100
)

type OfferInput struct {
	ProductID          string
	OriginalPrice      decimal.Decimal
	SalePrice          decimal.Decimal
	DiscountPercentage *int
	TotalStock         int
	MaxUnitsPerBuyer   int
}

type CreateSaleInput struct {
	Title            string
	Description      string
	StartsAt         time.Time
	EndsAt           time.Time
	ManuallyDisabled bool
	Offers           []OfferInput
}

type UpdateSaleInput struct {
	SaleID string
	// ExpectedVersion pins the update to a version the client has seen. When
	// nil, concurrent admin edits are merged by retrying.
	ExpectedVersion *int64

	Title            *string
	Description      *string
	StartsAt         *time.Time
	EndsAt           *time.Time
	ManuallyDisabled *bool

	Offers       []sale.OfferPatch
	AddOffers    []OfferInput
	RemoveOffers []string
}

type AdminUseCase struct {
	saleRepo ports.SaleRepository
	catalog  ports.ProductCatalog
	cache    ports.Cache
	index    ports.SaleIndex
	auth     ports.AuthContext
	ids      generator.IDGenerator
	clock    clock.Clock
	log      *logger.Logger
}

func NewAdminUseCase(
	saleRepo ports.SaleRepository,
	catalog ports.ProductCatalog,
	cache ports.Cache,
	index ports.SaleIndex,
	auth ports.AuthContext,
	ids generator.IDGenerator,
	clk clock.Clock,
	log *logger.Logger,
) *AdminUseCase {
	return &AdminUseCase{
		saleRepo: saleRepo,
		catalog:  catalog,
		cache:    cache,
		index:    index,
		auth:     auth,
		ids:      ids,
		clock:    clk,
		log:      log,
	}
}

func (uc *AdminUseCase) authorize(ctx context.Context) (*user.Caller, error) {
	caller, err := uc.auth.Caller(ctx)
	if err != nil {
		return nil, err
	}
	if caller == nil {
		return nil, domainErrors.ErrUnauthorized
	}
	if !caller.IsAdmin() {
		return nil, domainErrors.ErrForbidden
	}
	return caller, nil
}

func (uc *AdminUseCase) CreateSale(ctx context.Context, in CreateSaleInput) (*sale.Sale, error) {
	caller, err := uc.authorize(ctx)
	if err != nil {
		return nil, err
	}

	now := uc.clock.Now().UTC()
	s := &sale.Sale{
		ID:               uc.ids.SaleID(),
		Title:            strings.TrimSpace(in.Title),
		Description:      strings.TrimSpace(in.Description),
		StartsAt:         in.StartsAt.UTC(),
		EndsAt:           in.EndsAt.UTC(),
		ManuallyDisabled: in.ManuallyDisabled,
		CreatedBy:        caller.ID,
		Version:          1,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	v := &domainErrors.ValidationError{}
	offers, err := uc.buildOffers(ctx, v, "offers", in.Offers)
	if err != nil {
		return nil, err
	}
	s.Offers = offers

	if err := sale.Validate(s); err != nil {
		var ve *domainErrors.ValidationError
		if errors.As(err, &ve) {
			v.Violations = append(v.Violations, ve.Violations...)
		}
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	if err := uc.saleRepo.CreateSale(ctx, s); err != nil {
		uc.log.Error("Failed to create sale", "error", err, "sale_id", s.ID)
		return nil, err
	}
	uc.afterWrite(ctx, s.ID, true)

	uc.log.Info("Sale created",
		"sale_id", s.ID,
		"created_by", caller.ID,
		"offers", len(s.Offers),
		"starts_at", s.StartsAt,
		"ends_at", s.EndsAt)
	return s, nil
}

// buildOffers resolves product snapshots and assigns ids. Catalog misses and
// unverified merchants become field violations; catalog failures are returned.
func (uc *AdminUseCase) buildOffers(ctx context.Context, v *domainErrors.ValidationError, field string, inputs []OfferInput) ([]sale.Offer, error) {
	offers := make([]sale.Offer, 0, len(inputs))
	for i, in := range inputs {
		prefix := fmt.Sprintf("%s[%d]", field, i)

		o := sale.Offer{
			ID:               uc.ids.OfferID(),
			Product:          sale.ProductRef{ProductID: in.ProductID},
			OriginalPrice:    in.OriginalPrice,
			SalePrice:        in.SalePrice,
			TotalStock:       in.TotalStock,
			MaxUnitsPerBuyer: in.MaxUnitsPerBuyer,
		}
		if in.DiscountPercentage != nil {
			o.DiscountPercentage = *in.DiscountPercentage
		} else {
			o.DiscountPercentage = sale.DiscountPercentage(in.OriginalPrice, in.SalePrice)
		}

		if in.ProductID != "" {
			snap, err := uc.catalog.Snapshot(ctx, in.ProductID)
			switch {
			case errors.Is(err, domainErrors.ErrProductNotFound):
				v.Add(prefix+".productId", "product not found")
			case err != nil:
				return nil, fmt.Errorf("resolve product %s: %w", in.ProductID, err)
			case !snap.MerchantVerified:
				v.Add(prefix+".productId", "merchant is not verified")
			default:
				o.ApplySnapshot(snap)
			}
		}
		offers = append(offers, o)
	}
	return offers, nil
}

func (uc *AdminUseCase) UpdateSale(ctx context.Context, in UpdateSaleInput) (*sale.Sale, error) {
	caller, err := uc.authorize(ctx)
	if err != nil {
		return nil, err
	}

	patch := sale.SalePatch{
		Title:            in.Title,
		Description:      in.Description,
		StartsAt:         in.StartsAt,
		EndsAt:           in.EndsAt,
		ManuallyDisabled: in.ManuallyDisabled,
		Offers:           in.Offers,
		RemoveOffers:     in.RemoveOffers,
	}
	if len(in.AddOffers) > 0 {
		v := &domainErrors.ValidationError{}
		added, err := uc.buildOffers(ctx, v, "addOffers", in.AddOffers)
		if err != nil {
			return nil, err
		}
		if err := v.OrNil(); err != nil {
			return nil, err
		}
		patch.AddOffers = added
	}
	if patch.IsEmpty() {
		return nil, domainErrors.NewValidationError("body", "no changes supplied")
	}

	for attempt := 1; ; attempt++ {
		stored, err := uc.saleRepo.GetSale(ctx, in.SaleID)
		if err != nil {
			return nil, err
		}
		if in.ExpectedVersion != nil && *in.ExpectedVersion != stored.Version {
			return nil, domainErrors.ErrVersionConflict
		}

		now := uc.clock.Now().UTC()
		edited := stored.Clone()
		if err := patch.Apply(edited, now); err != nil {
			return nil, err
		}
		edited.UpdatedAt = now

		err = uc.saleRepo.UpdateSale(ctx, edited, stored.Version)
		if err == nil {
			uc.afterWrite(ctx, edited.ID, false)
			uc.log.Info("Sale updated", "sale_id", edited.ID, "updated_by", caller.ID, "version", edited.Version)
			return edited, nil
		}

		pinnedConflict := in.ExpectedVersion != nil && errors.Is(err, domainErrors.ErrVersionConflict)
		retry := domainErrors.IsRetryable(err) && !pinnedConflict && attempt < updateRetryAttempts
		if !retry {
			if !domainErrors.IsBusinessError(err) && !errors.Is(err, domainErrors.ErrVersionConflict) {
				uc.log.Error("Failed to update sale", "error", err, "sale_id", in.SaleID)
			}
			return nil, err
		}
		uc.log.Debug("Sale changed concurrently, reapplying update", "sale_id", in.SaleID, "attempt", attempt)
	}
}

// DeleteSale removes a sale that never sold. A sale with committed units is
// kept for analytics: force disables and soft-deletes it instead.
func (uc *AdminUseCase) DeleteSale(ctx context.Context, saleID string, force bool) error {
	caller, err := uc.authorize(ctx)
	if err != nil {
		return err
	}

	stored, err := uc.saleRepo.GetSale(ctx, saleID)
	if err != nil {
		return err
	}

	if stored.TotalUnitsSold == 0 && stored.CommittedUnits() == 0 {
		err = uc.saleRepo.DeleteSale(ctx, saleID)
		if err == nil {
			uc.afterWrite(ctx, saleID, false)
			uc.log.Info("Sale deleted", "sale_id", saleID, "deleted_by", caller.ID)
			return nil
		}
		// A reservation committed between the read and the delete.
		if !errors.Is(err, domainErrors.ErrSaleHasReservations) {
			return err
		}
	}

	if !force {
		return domainErrors.ErrSaleHasReservations
	}

	if err := uc.saleRepo.SoftDeleteSale(ctx, saleID, uc.clock.Now()); err != nil {
		return err
	}
	uc.afterWrite(ctx, saleID, false)
	uc.log.Warn("Sale soft-deleted with committed units",
		"sale_id", saleID,
		"deleted_by", caller.ID,
		"total_units_sold", stored.TotalUnitsSold)
	return nil
}

// Analytics folds every sale, soft-deleted ones included, into one summary.
func (uc *AdminUseCase) Analytics(ctx context.Context, windowHours int) (*sale.AnalyticsSummary, error) {
	if _, err := uc.authorize(ctx); err != nil {
		return nil, err
	}
	if windowHours < 1 || windowHours > sale.MaxAnalyticsWindowHours {
		return nil, domainErrors.NewValidationError("window_hours",
			fmt.Sprintf("must be between 1 and %d", sale.MaxAnalyticsWindowHours))
	}

	sales, err := uc.saleRepo.ListSales(ctx, sale.ListFilter{IncludeDeleted: true})
	if err != nil {
		uc.log.Error("Failed to list sales for analytics", "error", err)
		return nil, err
	}

	summary := sale.Summarize(sales, uc.clock.Now(), time.Duration(windowHours)*time.Hour)
	return &summary, nil
}

func (uc *AdminUseCase) HotOffers(ctx context.Context, limit int) ([]ports.HotOffer, error) {
	if _, err := uc.authorize(ctx); err != nil {
		return nil, err
	}
	switch {
	case limit <= 0:
		limit = defaultHotOffers
	case limit > maxHotOffers:
		limit = maxHotOffers
	}
	if uc.cache == nil {
		return []ports.HotOffer{}, nil
	}
	return uc.cache.TopContended(ctx, limit)
}

func (uc *AdminUseCase) afterWrite(ctx context.Context, saleID string, created bool) {
	if created && uc.index != nil {
		if err := uc.index.Add(ctx, saleID); err != nil {
			uc.log.Warn("Failed to index sale id", "error", err, "sale_id", saleID)
		}
	}
	if uc.cache != nil {
		if err := uc.cache.InvalidateListings(ctx); err != nil {
			uc.log.Warn("Failed to invalidate listings", "error", err, "sale_id", saleID)
		}
	}
}
