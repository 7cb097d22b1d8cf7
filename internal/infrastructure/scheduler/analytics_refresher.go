// Package scheduler runs periodic read-only jobs. Nothing here writes sale
// state: phases are always derived from the clock at read time.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/application/ports"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/domain/sale"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/infrastructure/monitoring"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/pkg/clock"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/pkg/logger"
)

// AnalyticsRefresher recomputes the analytics summary into Prometheus gauges.
type AnalyticsRefresher struct {
	saleRepo ports.SaleRepository
	clock    clock.Clock
	logger   *logger.Logger
	interval time.Duration
	window   time.Duration

	stopChan chan struct{}
	stopOnce sync.Once
}

func NewAnalyticsRefresher(
	saleRepo ports.SaleRepository,
	clk clock.Clock,
	logger *logger.Logger,
	interval time.Duration,
	window time.Duration,
) *AnalyticsRefresher {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &AnalyticsRefresher{
		saleRepo: saleRepo,
		clock:    clk,
		logger:   logger,
		interval: interval,
		window:   window,
		stopChan: make(chan struct{}),
	}
}

func (r *AnalyticsRefresher) Start(ctx context.Context) {
	r.logger.Info("Starting analytics refresher", "interval", r.interval.String())

	if _, err := r.Refresh(ctx); err != nil {
		r.logger.Error("Failed to refresh analytics", "error", err)
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Analytics refresher stopped")
			return
		case <-r.stopChan:
			r.logger.Info("Analytics refresher stopped")
			return
		case <-ticker.C:
			if _, err := r.Refresh(ctx); err != nil {
				r.logger.Error("Failed to refresh analytics", "error", err)
			}
		}
	}
}

func (r *AnalyticsRefresher) Stop() {
	r.stopOnce.Do(func() { close(r.stopChan) })
}

// Refresh computes one summary and publishes it.
func (r *AnalyticsRefresher) Refresh(ctx context.Context) (sale.AnalyticsSummary, error) {
	sales, err := r.saleRepo.ListSales(ctx, sale.ListFilter{IncludeDeleted: true})
	if err != nil {
		return sale.AnalyticsSummary{}, err
	}

	now := r.clock.Now()
	summary := sale.Summarize(sales, now, r.window)
	monitoring.RecordAnalytics(summary, sales, now)

	r.logger.Debug("Analytics refreshed",
		"total_sales", summary.TotalSales,
		"total_views", summary.TotalViews,
		"active_sales", summary.ActiveSales,
		"recently_ended", summary.RecentlyEnded)
	return summary, nil
}
