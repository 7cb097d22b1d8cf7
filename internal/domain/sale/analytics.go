package sale

import "time"

const (
	DefaultAnalyticsWindow = 24 * time.Hour

	// MaxAnalyticsWindowHours is one leap year.
	MaxAnalyticsWindowHours = 24 * 366
)

type AnalyticsSummary struct {
	TotalSales    int64     `json:"total_sales"`
	TotalViews    int64     `json:"total_views"`
	ActiveSales   int       `json:"active_sales"`
	RecentlyEnded int       `json:"recently_ended"`
	WindowHours   int       `json:"window_hours"`
	GeneratedAt   time.Time `json:"generated_at"`
}

// Summarize folds the analytics counters of every sale. Soft-deleted sales
// still count towards totals; they are not counted as active or ended. A
// non-positive window means DefaultAnalyticsWindow.
func Summarize(sales []*Sale, now time.Time, window time.Duration) AnalyticsSummary {
	if window <= 0 {
		window = DefaultAnalyticsWindow
	}
	summary := AnalyticsSummary{
		WindowHours: int(window / time.Hour),
		GeneratedAt: now,
	}
	windowStart := now.Add(-window)

	for _, s := range sales {
		summary.TotalSales += s.TotalUnitsSold
		summary.TotalViews += s.TotalViews

		if s.IsDeleted() {
			continue
		}
		if EvaluatePhase(s, now) == PhaseActive {
			summary.ActiveSales++
		}
		if s.EndsAt.After(windowStart) && !s.EndsAt.After(now) {
			summary.RecentlyEnded++
		}
	}

	return summary
}
