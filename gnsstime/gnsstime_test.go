package gnsstime

import "testing"

// TestWeekRolloverAdjustmentRecoversSameWeek checks the trivial case where
// the constellation time is already within the reference's rollover window.
func TestWeekRolloverAdjustmentRecoversSameWeek(t *testing.T) {
	ref := Time{WN: 2190, TOW: 100000}
	// 10-bit GPS week resolution, 1024-week rollover period.
	truncated := Time{WN: 2190 % 1024, TOW: 200000}

	got := WeekRolloverAdjustment(truncated, ref, 10, Offset{})
	if got.WN != 2190 {
		t.Errorf("want WN 2190, got %d", got.WN)
	}
	if got.TOW != 200000 {
		t.Errorf("want TOW 200000, got %v", got.TOW)
	}
}

// TestWeekRolloverAdjustmentAcrossRollover checks that a truncated week
// number just past a rollover boundary resolves forward, not backward.
func TestWeekRolloverAdjustmentAcrossRollover(t *testing.T) {
	ref := Time{WN: 2047, TOW: 0} // last week before a 10-bit rollover (1024*2-1)
	truncated := Time{WN: 0, TOW: 0}

	got := WeekRolloverAdjustment(truncated, ref, 10, Offset{})
	if got.WN != 2048 {
		t.Errorf("want WN 2048 (next week after rollover), got %d", got.WN)
	}
}

// TestNormalizeBDS2TOWPassesThroughNormalValues checks ordinary tow values
// are untouched.
func TestNormalizeBDS2TOWPassesThroughNormalValues(t *testing.T) {
	if got := NormalizeBDS2TOW(100000); got != 100000 {
		t.Errorf("want 100000, got %d", got)
	}
}

// TestNormalizeBDS2TOWUnwrapsNearRollover checks the negative-offset quirk
// unwraps correctly near the top of the 30-bit field.
func TestNormalizeBDS2TOWUnwrapsNearRollover(t *testing.T) {
	const c2p30 = 1 << 30
	wrapped := uint32(c2p30 - 5000) // 5 seconds "before" the field rolls over
	got := NormalizeBDS2TOW(wrapped)
	want := uint32(604800000 + 1 - 5000)
	if got != want {
		t.Errorf("want %d, got %d", want, got)
	}
}
