package monitoring

import (
	"time"

	domainErrors "github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/domain/errors"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/domain/sale"
)

// ReservationMetrics tracks a single reservation request across its retries.
type ReservationMetrics struct {
	saleID  string
	offerID string
	start   time.Time
}

func NewReservationMetrics(saleID, offerID string) *ReservationMetrics {
	return &ReservationMetrics{
		saleID:  saleID,
		offerID: offerID,
		start:   time.Now(),
	}
}

func (m *ReservationMetrics) RecordAttempt() {
	ReservationAttemptsTotal.Inc()
}

// RecordAllocatorRetry matches the allocator's retry hook.
func RecordAllocatorRetry(int, error) {
	AllocatorRetriesTotal.Inc()
}

// RecordOutcome labels the request by the error reason, or "ok" on success.
func (m *ReservationMetrics) RecordOutcome(quantity int, err error) {
	ReservationDuration.Observe(time.Since(m.start).Seconds())
	ReservationOutcomesTotal.WithLabelValues(domainErrors.Reason(err)).Inc()
	if err == nil {
		ReservedUnitsTotal.Add(float64(quantity))
	}
}

// RecordAnalytics publishes a summary and the phase breakdown of sales.
func RecordAnalytics(summary sale.AnalyticsSummary, sales []*sale.Sale, now time.Time) {
	AnalyticsTotalViews.Set(float64(summary.TotalViews))

	counts := map[sale.Phase]int{
		sale.PhaseScheduled: 0,
		sale.PhaseActive:    0,
		sale.PhaseExpired:   0,
		sale.PhaseDisabled:  0,
	}
	for _, s := range sales {
		if s.IsDeleted() {
			continue
		}
		counts[sale.EvaluatePhase(s, now)]++
	}
	for phase, n := range counts {
		SalesByPhase.WithLabelValues(string(phase)).Set(float64(n))
	}
}
