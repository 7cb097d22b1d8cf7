package sale

import (
	"testing"
	"time"
)

var base = time.Date(2025, 11, 28, 12, 0, 0, 0, time.UTC)

func window(start, end time.Time) *Sale {
	return &Sale{ID: "sale_test", StartsAt: start, EndsAt: end}
}

func TestEvaluatePhase(t *testing.T) {
	s := window(base, base.Add(2*time.Hour))

	tests := []struct {
		name     string
		now      time.Time
		disabled bool
		want     Phase
	}{
		{"before start", base.Add(-time.Second), false, PhaseScheduled},
		{"at start", base, false, PhaseActive},
		{"mid sale", base.Add(time.Hour), false, PhaseActive},
		{"one ns before end", base.Add(2*time.Hour - time.Nanosecond), false, PhaseActive},
		{"at end", base.Add(2 * time.Hour), false, PhaseExpired},
		{"after end", base.Add(3 * time.Hour), false, PhaseExpired},
		{"disabled while active", base.Add(time.Hour), true, PhaseDisabled},
		{"disabled while scheduled", base.Add(-time.Hour), true, PhaseDisabled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s.ManuallyDisabled = tt.disabled
			if got := EvaluatePhase(s, tt.now); got != tt.want {
				t.Errorf("EvaluatePhase = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestEvaluatePhaseSoftDeleted(t *testing.T) {
	s := window(base, base.Add(time.Hour))
	deletedAt := base
	s.DeletedAt = &deletedAt

	if got := EvaluatePhase(s, base.Add(time.Minute)); got != PhaseDisabled {
		t.Errorf("deleted sale phase = %s", got)
	}
}

func TestEvaluatePhaseIsExclusiveAndDeterministic(t *testing.T) {
	s := window(base, base.Add(time.Hour))
	for offset := -2 * time.Hour; offset <= 2*time.Hour; offset += 7 * time.Minute {
		now := base.Add(offset)
		first := EvaluatePhase(s, now)
		if second := EvaluatePhase(s, now); first != second {
			t.Fatalf("non-deterministic phase at %v: %s vs %s", now, first, second)
		}

		active := !now.Before(s.StartsAt) && now.Before(s.EndsAt)
		if active != (first == PhaseActive) {
			t.Fatalf("phase %s disagrees with window at %v", first, now)
		}
	}
}

func TestRemainingTime(t *testing.T) {
	end := base.Add(26*time.Hour + 3*time.Minute + 4*time.Second + 900*time.Millisecond)
	s := window(base.Add(-time.Hour), end)

	got := RemainingTime(s, base)
	want := Countdown{Days: 1, Hours: 2, Minutes: 3, Seconds: 4, TotalSeconds: 93784, Expired: false}
	if got != want {
		t.Errorf("RemainingTime = %+v, want %+v", got, want)
	}
}

func TestRemainingTimeExpiredIsZero(t *testing.T) {
	s := window(base.Add(-2*time.Hour), base.Add(-time.Hour))

	got := RemainingTime(s, base)
	want := Countdown{Expired: true}
	if got != want {
		t.Errorf("RemainingTime = %+v, want %+v", got, want)
	}
}

func TestRemainingTimeDisabledIsFlaggedExpired(t *testing.T) {
	s := window(base.Add(-time.Hour), base.Add(time.Hour))
	s.ManuallyDisabled = true

	got := RemainingTime(s, base)
	if !got.Expired {
		t.Error("disabled sale should report expired countdown")
	}
	if got.TotalSeconds != 3600 {
		t.Errorf("TotalSeconds = %d", got.TotalSeconds)
	}
}

func TestRemainingTimeIsMonotone(t *testing.T) {
	s := window(base, base.Add(90*time.Minute))
	prev := RemainingTime(s, base.Add(-time.Minute)).TotalSeconds

	for now := base; now.Before(base.Add(2 * time.Hour)); now = now.Add(13 * time.Second) {
		cur := RemainingTime(s, now).TotalSeconds
		if cur > prev {
			t.Fatalf("countdown went up at %v: %d > %d", now, cur, prev)
		}
		if cur < 0 {
			t.Fatalf("negative countdown at %v", now)
		}
		prev = cur
	}
	if prev != 0 {
		t.Errorf("countdown not pinned at zero after end: %d", prev)
	}
}

func TestStartsIn(t *testing.T) {
	s := window(base.Add(75*time.Minute), base.Add(3*time.Hour))

	got := StartsIn(s, base)
	if got.Hours != 1 || got.Minutes != 15 || got.TotalSeconds != 4500 {
		t.Errorf("StartsIn = %+v", got)
	}
	if zero := StartsIn(s, base.Add(2*time.Hour)); zero.TotalSeconds != 0 {
		t.Errorf("StartsIn after start = %+v", zero)
	}
}

func TestIsSellable(t *testing.T) {
	s := window(base, base.Add(time.Hour))
	offer := &Offer{TotalStock: 5, UnitsSold: 4}

	if IsSellable(s, offer, base.Add(-time.Second)) {
		t.Error("scheduled sale must not be sellable")
	}
	if !IsSellable(s, offer, base) {
		t.Error("active sale with stock should be sellable")
	}

	offer.UnitsSold = 5
	if IsSellable(s, offer, base) {
		t.Error("sold-out offer must not be sellable")
	}
}
