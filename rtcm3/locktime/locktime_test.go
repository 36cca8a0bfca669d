package locktime

import "testing"

// TestFromLegacy7BitBreakpoints checks the table's segment boundaries,
// the values most likely to be off-by-one if the piecewise ranges are
// transcribed wrong.
func TestFromLegacy7BitBreakpoints(t *testing.T) {
	cases := []struct {
		lock uint8
		want uint32
	}{
		{0, 0},
		{23, 23},
		{24, 24},
		{47, 70},
		{48, 72},
		{126, 936},
		{127, 937},
	}
	for _, c := range cases {
		if got := FromLegacy7Bit(c.lock); got != c.want {
			t.Errorf("lock %d: want %d got %d", c.lock, c.want, got)
		}
	}
}

// TestFromMSM4BitZeroAndDoubling checks the zero case and that the value
// doubles with each nibble step, per DF402's table.
func TestFromMSM4BitZeroAndDoubling(t *testing.T) {
	if got := FromMSM4Bit(0); got != 0 {
		t.Errorf("lock 0: want 0 got %v", got)
	}
	first := FromMSM4Bit(1)
	second := FromMSM4Bit(2)
	if second != first*2 {
		t.Errorf("expected doubling: lock1=%v lock2=%v", first, second)
	}
}

// TestFromMSMExtendedSaturates checks the indicator saturates at its
// maximum value rather than overflowing.
func TestFromMSMExtendedSaturates(t *testing.T) {
	if got := FromMSMExtended(704); got != 67108864 {
		t.Errorf("lock 704: want 67108864 got %d", got)
	}
	if got := FromMSMExtended(1023); got != 67108864 {
		t.Errorf("lock 1023: want 67108864 got %d", got)
	}
}
