package clock

import (
	"testing"
	"time"
)

func TestFixedClockOverride(t *testing.T) {
	defer OverrideClock(nil)

	now := time.Now()
	fixed := OverrideByFixed(now)

	if !NowUTC().Equal(now.UTC()) {
		t.Errorf("Override failed: %q != %q", NowUTC(), now.UTC())
	}

	fixed.Add(time.Hour)

	if !NowUTC().Equal(now.UTC().Add(time.Hour)) {
		t.Errorf("Time adjustment failed: %q != %q", NowUTC(), now.UTC().Add(time.Hour))
	}

	if Since(now.UTC()) != time.Hour {
		t.Errorf("Expected an hour since override, got %s", Since(now.UTC()))
	}
}

func TestOverrideResetUsesSystemTime(t *testing.T) {
	OverrideByFixed(time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC))
	OverrideClock(nil)

	if NowUTC().Year() == 2001 {
		t.Errorf("Expected system clock after reset, got %q", NowUTC())
	}
}
