package ssr

import "testing"

func approxEqual(a, b, tol float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= tol
}

// TestOrbitRoundTrip checks decode(encode(m)) == m for a GPS 1057 orbit
// correction message.
func TestOrbitRoundTrip(t *testing.T) {
	want := &OrbitMessage{
		Header: Header{MessageType: 1057, EpochTime: 345600, UpdateInterval: 2, IODSSR: 1, ProviderID: 5, SolutionID: 1},
		Corrections: []OrbitCorrection{
			{SatelliteID: 5, IODE: 45, DeltaRadialM: 0.01, DeltaAlongM: -0.02, DeltaCrossM: 0.015,
				DotDeltaRadialMS: 0.0001, DotDeltaAlongMS: -0.0002, DotDeltaCrossMS: 0.0003},
		},
	}
	encoded := EncodeOrbit(want)
	got, err := DecodeOrbit(encoded, 1057)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if got.Header.EpochTime != want.Header.EpochTime || len(got.Corrections) != 1 {
		t.Fatalf("header/count mismatch: %+v", got.Header)
	}
	c := got.Corrections[0]
	wc := want.Corrections[0]
	if c.SatelliteID != wc.SatelliteID || c.IODE != wc.IODE {
		t.Errorf("identity fields: got %+v", c)
	}
	if !approxEqual(c.DeltaRadialM, wc.DeltaRadialM, 0.1e-3) {
		t.Errorf("delta radial: want %v got %v", wc.DeltaRadialM, c.DeltaRadialM)
	}
}

// TestGalileoOrbitUsesWiderIODE checks the Galileo (1240) IODE field is
// read as 10 bits, not GPS's 8.
func TestGalileoOrbitUsesWiderIODE(t *testing.T) {
	want := &OrbitMessage{
		Header:      Header{MessageType: 1240, NumSatellites: 1},
		Corrections: []OrbitCorrection{{SatelliteID: 2, IODE: 900}},
	}
	encoded := EncodeOrbit(want)
	got, err := DecodeOrbit(encoded, 1240)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if got.Corrections[0].IODE != 900 {
		t.Errorf("want IODE 900, got %d", got.Corrections[0].IODE)
	}
}

// TestClockRoundTrip checks decode(encode(m)) == m for a 1058 message.
func TestClockRoundTrip(t *testing.T) {
	want := &ClockMessage{
		Header:      Header{MessageType: 1058, EpochTime: 100, ProviderID: 3},
		Corrections: []ClockCorrection{{SatelliteID: 10, C0M: 0.02, C1MS: -0.001, C2MS2: 0.0001}},
	}
	encoded := EncodeClock(want)
	got, err := DecodeClock(encoded)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if !approxEqual(got.Corrections[0].C0M, want.Corrections[0].C0M, 0.1e-3) {
		t.Errorf("C0: want %v got %v", want.Corrections[0].C0M, got.Corrections[0].C0M)
	}
}

// TestCombinedRoundTrip checks decode(encode(m)) == m for a 1060 message
// carrying interleaved orbit+clock corrections per satellite.
func TestCombinedRoundTrip(t *testing.T) {
	want := &CombinedMessage{
		Header: Header{MessageType: 1060, EpochTime: 50},
		Orbits: []OrbitCorrection{{SatelliteID: 7, IODE: 3, DeltaRadialM: 0.005}},
		Clocks: []ClockCorrection{{SatelliteID: 7, C0M: 0.001}},
	}
	encoded := EncodeCombined(want)
	got, err := DecodeCombined(encoded)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if len(got.Orbits) != 1 || len(got.Clocks) != 1 {
		t.Fatalf("count mismatch: %d orbits, %d clocks", len(got.Orbits), len(got.Clocks))
	}
	if got.Orbits[0].SatelliteID != 7 || got.Clocks[0].SatelliteID != 7 {
		t.Errorf("satellite id mismatch: %+v / %+v", got.Orbits[0], got.Clocks[0])
	}
}
