package sale

import "time"

type Phase string

const (
	PhaseScheduled Phase = "scheduled"
	PhaseActive    Phase = "active"
	PhaseExpired   Phase = "expired"
	PhaseDisabled  Phase = "disabled"
)

// Countdown is a whole-second decomposition of a duration.
type Countdown struct {
	Days         int64 `json:"days"`
	Hours        int64 `json:"hours"`
	Minutes      int64 `json:"minutes"`
	Seconds      int64 `json:"seconds"`
	TotalSeconds int64 `json:"total_seconds"`
	Expired      bool  `json:"expired"`
}

// EvaluatePhase derives the phase from the schedule and now. Nothing about the
// phase is stored; the same inputs always give the same answer.
func EvaluatePhase(s *Sale, now time.Time) Phase {
	switch {
	case s.ManuallyDisabled || s.IsDeleted():
		return PhaseDisabled
	case now.Before(s.StartsAt):
		return PhaseScheduled
	case now.Before(s.EndsAt):
		return PhaseActive
	default:
		return PhaseExpired
	}
}

func RemainingTime(s *Sale, now time.Time) Countdown {
	c := decompose(s.EndsAt.Sub(now))
	phase := EvaluatePhase(s, now)
	c.Expired = phase == PhaseExpired || phase == PhaseDisabled
	return c
}

// StartsIn is the countdown to StartsAt; zero once the sale has started.
func StartsIn(s *Sale, now time.Time) Countdown {
	return decompose(s.StartsAt.Sub(now))
}

func IsSellable(s *Sale, o *Offer, now time.Time) bool {
	return EvaluatePhase(s, now) == PhaseActive && !o.SoldOut()
}

func decompose(d time.Duration) Countdown {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)

	return Countdown{
		Days:         total / 86400,
		Hours:        (total % 86400) / 3600,
		Minutes:      (total % 3600) / 60,
		Seconds:      total % 60,
		TotalSeconds: total,
	}
}
