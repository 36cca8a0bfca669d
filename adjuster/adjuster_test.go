package adjuster

import (
	"math"
	"testing"

	"github.com/bitflux-nav/gnsswire/sbp"
	"github.com/bitflux-nav/gnsswire/sbp/unpack"
)

func approxEqual(a, b, tol float64) bool { return math.Abs(a-b) <= tol }

func obsAt(sat uint8, pMetres float64, lock, cn0 uint8, flags uint8) sbp.Observation {
	return sbp.Observation{
		SID: sbp.SignalID{Sat: sat, Code: uint8(sbp.CodeGPSL1CA)},
		P:   fromMetres(pMetres),
		Lock: lock, CN0: cn0, Flags: flags,
	}
}

// TestAdjustAppliesCorrectionDifference checks the core VRS arithmetic:
// P_out = P_base_obs + (P_vrs_corr - P_base_corr).
func TestAdjustAppliesCorrectionDifference(t *testing.T) {
	m := Matched{
		BaseObs:  unpack.Epoch{TOWms: 1000, Observations: []sbp.Observation{obsAt(5, 20000000, 9, 180, sbp.ObsFlagPRValid)}},
		BaseCorr: unpack.Epoch{TOWms: 1000, Observations: []sbp.Observation{obsAt(5, 20000010, 8, 170, sbp.ObsFlagPRValid)}},
		VRSCorr:  unpack.Epoch{TOWms: 1000, Observations: []sbp.Observation{obsAt(5, 20000030, 7, 160, sbp.ObsFlagPRValid)}},
	}

	out := Adjust(m)
	if len(out.Observations) != 1 {
		t.Fatalf("want 1 adjusted observation, got %d", len(out.Observations))
	}
	o := out.Observations[0]
	want := 20000000.0 + (20000030.0 - 20000010.0)
	if !approxEqual(toMetres(o.P), want, prLSB) {
		t.Errorf("want P=%.2f, got %.2f", want, toMetres(o.P))
	}
	if o.Lock != 7 {
		t.Errorf("want lock=min(9,8,7)=7, got %d", o.Lock)
	}
	if o.CN0 != 160 {
		t.Errorf("want cn0=min(180,170,160)=160, got %d", o.CN0)
	}
}

// TestAdjustDropsSignalsNotInAllThree checks a signal missing from any one
// stream is excluded from the output.
func TestAdjustDropsSignalsNotInAllThree(t *testing.T) {
	m := Matched{
		BaseObs:  unpack.Epoch{Observations: []sbp.Observation{obsAt(1, 1000, 1, 1, sbp.ObsFlagPRValid)}},
		BaseCorr: unpack.Epoch{Observations: []sbp.Observation{obsAt(1, 1000, 1, 1, sbp.ObsFlagPRValid)}},
		VRSCorr: unpack.Epoch{Observations: []sbp.Observation{
			obsAt(1, 1000, 1, 1, sbp.ObsFlagPRValid),
			obsAt(2, 2000, 1, 1, sbp.ObsFlagPRValid), // not in base obs/corr
		}},
	}

	out := Adjust(m)
	if len(out.Observations) != 1 {
		t.Fatalf("want 1 surviving observation, got %d", len(out.Observations))
	}
	if out.Observations[0].SID.Sat != 1 {
		t.Errorf("want satellite 1 to survive, got %d", out.Observations[0].SID.Sat)
	}
}

// TestAdjustRAIMFlagIsORed checks bit 7 (RAIM exclusion) is ORed across the
// three inputs while the validity bits (0-3) are ANDed.
func TestAdjustRAIMFlagIsORed(t *testing.T) {
	m := Matched{
		BaseObs:  unpack.Epoch{Observations: []sbp.Observation{obsAt(1, 1000, 1, 1, sbp.ObsFlagPRValid|sbp.ObsFlagCPValid)}},
		BaseCorr: unpack.Epoch{Observations: []sbp.Observation{obsAt(1, 1000, 1, 1, sbp.ObsFlagPRValid|sbp.ObsFlagRAIMExcluded)}},
		VRSCorr:  unpack.Epoch{Observations: []sbp.Observation{obsAt(1, 1000, 1, 1, sbp.ObsFlagPRValid)}},
	}

	out := Adjust(m)
	o := out.Observations[0]
	if o.Flags&sbp.ObsFlagRAIMExcluded == 0 {
		t.Errorf("want RAIM-excluded bit set, got flags=%08b", o.Flags)
	}
	if o.Flags&sbp.ObsFlagCPValid != 0 {
		t.Errorf("want CP-valid bit cleared (not present in all three), got flags=%08b", o.Flags)
	}
	if o.Flags&sbp.ObsFlagPRValid == 0 {
		t.Errorf("want PR-valid bit set (present in all three), got flags=%08b", o.Flags)
	}
}
