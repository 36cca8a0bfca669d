package msm

import (
	"testing"

	"github.com/bitflux-nav/gnsswire/bitstream"
)

// buildMessage assembles a two-satellite, two-signal MSM message with every
// cell populated, for use by the round-trip tests below.
func buildMessage(constellation string, variant int) *Message {
	h := Header{
		Constellation:      constellation,
		Variant:            variant,
		StationID:          4,
		EpochTime:          86400000,
		IssueOfDataStation: 1,
		SatelliteMask:      uint64(1)<<63 | uint64(1)<<61, // satellites 1 and 3
		SignalMask:         uint32(1)<<31 | uint32(1)<<30, // signals 1 and 2
	}
	h.Satellites = satellitesFromMask(h.SatelliteMask)
	h.Signals = signalsFromMask(h.SignalMask)
	present := [][]bool{{true, true}, {true, false}}
	h.CellMask = BuildCellMask(present)

	satCells := []SatelliteCell{
		{SatelliteID: 1, RoughRangeMillis: 20, RoughRangeMS1000: 512, ExtendedInfo: 7, RoughRangeRateMS: 150},
		{SatelliteID: 3, RoughRangeMillis: 21, RoughRangeMS1000: 3, ExtendedInfo: 2, RoughRangeRateMS: -25},
	}
	sigCells := []SignalCell{
		{SatelliteID: 1, SignalID: 1, FinePseudorange: 1000, FinePhaserange: -2000, LockTimeIndicator: 3, CNR: 45, FineRangeRate: 10},
		{SatelliteID: 1, SignalID: 2, FinePseudorange: -500, FinePhaserange: 1500, LockTimeIndicator: 2, CNR: 40, HalfCycleAmbiguity: true, FineRangeRate: -5},
		{SatelliteID: 3, SignalID: 1, FinePseudorange: 100, FinePhaserange: 200, LockTimeIndicator: 1, CNR: 30, FineRangeRate: 0},
	}
	return &Message{Header: h, SatCells: satCells, SigCells: sigCells}
}

// TestMSM7RoundTrip checks decode(encode(m)) == m for a full-resolution
// GPS MSM7 message, with full extended-resolution fields populated.
func TestMSM7RoundTrip(t *testing.T) {
	want := buildMessage("GPS", 7)
	// MSM7 carries the extended info and rough-rate fields and none of the
	// values above is a sentinel, so every satellite field decodes as valid.
	for i := range want.SatCells {
		want.SatCells[i].HasExtended = true
		want.SatCells[i].RoughRangeValid = true
		want.SatCells[i].RoughRateValid = true
	}

	encoded, err := Encode(want)
	if err != nil {
		t.Fatalf("encode error: %v", err)
	}
	got, err := Decode(encoded)
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}

	if got.Header.MessageType != 1077 {
		t.Errorf("message type: want 1077 got %d", got.Header.MessageType)
	}
	if len(got.SatCells) != len(want.SatCells) || len(got.SigCells) != len(want.SigCells) {
		t.Fatalf("cell counts: want %d/%d got %d/%d",
			len(want.SatCells), len(want.SigCells), len(got.SatCells), len(got.SigCells))
	}
	for i := range want.SatCells {
		if got.SatCells[i] != want.SatCells[i] {
			t.Errorf("sat cell %d: want %+v got %+v", i, want.SatCells[i], got.SatCells[i])
		}
	}
	for i := range want.SigCells {
		w, g := want.SigCells[i], got.SigCells[i]
		if w.FinePseudorange != g.FinePseudorange || w.FinePhaserange != g.FinePhaserange ||
			w.LockTimeIndicator != g.LockTimeIndicator || w.CNR != g.CNR ||
			w.HalfCycleAmbiguity != g.HalfCycleAmbiguity || w.FineRangeRate != g.FineRangeRate {
			t.Errorf("sig cell %d: want %+v got %+v", i, w, g)
		}
	}
}

// TestMSM5RoundTrip checks a GLONASS MSM5 message, covering the extended
// info byte and rough/fine range-rate fields MSM4 doesn't carry.
func TestMSM5RoundTrip(t *testing.T) {
	want := buildMessage("GLONASS", 5)
	encoded, err := Encode(want)
	if err != nil {
		t.Fatalf("encode error: %v", err)
	}
	got, err := Decode(encoded)
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if got.Header.MessageType != 1085 {
		t.Errorf("message type: want 1085 got %d", got.Header.MessageType)
	}
	if got.Header.Constellation != "GLONASS" {
		t.Errorf("constellation: got %s", got.Header.Constellation)
	}
}

// TestMSM4RoundTrip checks the standard-resolution variant, which lacks the
// rate/sat-info fields MSM5/7 carry.
func TestMSM4RoundTrip(t *testing.T) {
	want := buildMessage("BeiDou", 4)
	for i := range want.SatCells {
		want.SatCells[i].RoughRangeRateMS = 0
		want.SatCells[i].ExtendedInfo = 0
	}
	for i := range want.SigCells {
		want.SigCells[i].FineRangeRate = 0
	}

	encoded, err := Encode(want)
	if err != nil {
		t.Fatalf("encode error: %v", err)
	}
	got, err := Decode(encoded)
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if got.Header.MessageType != 1124 {
		t.Errorf("message type: want 1124 got %d", got.Header.MessageType)
	}
	for i := range want.SigCells {
		if got.SigCells[i].FinePseudorange != want.SigCells[i].FinePseudorange {
			t.Errorf("sig cell %d pseudorange mismatch: want %v got %v",
				i, want.SigCells[i].FinePseudorange, got.SigCells[i].FinePseudorange)
		}
	}
}

// TestMSM1RejectedAsUnsupported checks that MSM1-3 variants, which this
// codec deliberately does not implement, are rejected rather than
// misdecoded.
func TestMSM1RejectedAsUnsupported(t *testing.T) {
	w := bitstream.NewWriter()
	w.WriteU64(1071, 12) // GPS MSM1
	_, err := DecodeHeader(bitstream.NewReader(w.Bytes()))
	if err == nil {
		t.Fatalf("expected error decoding MSM1, got none")
	}
}

// TestCellMaskOverflowRejected checks that a cell count over MSM_MAX_CELLS
// is rejected rather than silently truncated.
func TestCellMaskOverflowRejected(t *testing.T) {
	h := Header{Constellation: "GPS", Variant: 7}
	// 9 satellites x 8 signals = 72 > 64 cells.
	var satMask uint64
	for i := uint(0); i < 9; i++ {
		satMask |= 1 << (63 - i)
	}
	var sigMask uint32
	for i := uint(0); i < 8; i++ {
		sigMask |= 1 << (31 - i)
	}
	h.SatelliteMask = satMask
	h.SignalMask = sigMask
	h.Satellites = satellitesFromMask(satMask)
	h.Signals = signalsFromMask(uint32(sigMask))

	w := bitstream.NewWriter()
	if err := EncodeHeader(w, &h); err != nil {
		t.Fatalf("unexpected encode error: %v", err)
	}
	// Append enough trailing zero bits to cover the cell mask so the
	// reader doesn't fail on EOF before reaching the cell-count check.
	for i := 0; i < 72; i++ {
		w.WriteBool(false)
	}

	_, err := DecodeHeader(bitstream.NewReader(w.Bytes()))
	if err == nil {
		t.Fatalf("expected error for oversized cell mask, got none")
	}
}
