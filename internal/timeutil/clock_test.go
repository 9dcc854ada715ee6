package timeutil

import (
	"testing"
	"time"
)

func TestRealClock_Now(t *testing.T) {
	clock := RealClock{}
	before := time.Now()
	now := clock.Now()
	after := time.Now()

	if now.Before(before) || now.After(after) {
		t.Errorf("Now() = %v, expected between %v and %v", now, before, after)
	}
}

func TestRealClock_Since(t *testing.T) {
	clock := RealClock{}
	past := time.Now().Add(-time.Second)
	d := clock.Since(past)

	if d < time.Second {
		t.Errorf("Since() returned %v, expected >= 1s", d)
	}
}

func TestMockClock_SetAndAdvance(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := NewMockClock(start)

	if got := clock.Now(); !got.Equal(start) {
		t.Errorf("Now() = %v, want %v", got, start)
	}
	if got := clock.Now(); !got.Equal(start) {
		t.Errorf("Now() should not move without a step, got %v", got)
	}

	clock.Advance(90 * time.Second)
	if d := clock.Since(start); d != 90*time.Second {
		t.Errorf("Since() = %v, want 90s", d)
	}

	later := start.Add(time.Hour)
	clock.Set(later)
	if got := clock.Now(); !got.Equal(later) {
		t.Errorf("Now() after Set = %v, want %v", got, later)
	}
}

func TestSteppingClock(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := NewSteppingClock(start, time.Second)

	first := clock.Now()
	second := clock.Now()
	if !first.Equal(start) {
		t.Errorf("First Now() = %v, want %v", first, start)
	}
	if second.Sub(first) != time.Second {
		t.Errorf("Step = %v, want 1s", second.Sub(first))
	}
	if d := clock.Since(first); d != 2*time.Second {
		t.Errorf("Since() = %v, want 2s", d)
	}
	if d := clock.Since(first); d != 2*time.Second {
		t.Errorf("Since() should not step the clock, got %v", d)
	}
}

var _ Clock = RealClock{}
var _ Clock = (*MockClock)(nil)
