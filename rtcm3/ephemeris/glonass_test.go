package ephemeris

import "testing"

// TestGlonassRoundTrip checks decode(encode(m)) == m within quantisation
// for the sign-magnitude pos/vel/acc and clock fields.
func TestGlonassRoundTrip(t *testing.T) {
	want := &GlonassEphemeris{
		SatID:       25,
		FCN:         5,
		P1:          1,
		TkHours:     12,
		TkMinutes:   30,
		HealthBit:   false,
		Tb:          88,
		PosKM:       [3]float64{7000.123046875, -12000.0, 500.0},
		VelKMS:      [3]float64{1.5, -2.25, 0.125},
		AccKMS2:     [3]float64{0.0, 0.0, 0.0},
		GammaN:      1e-12,
		TauN:        -1e-4,
		DeltaTauN:   0,
		NT:          1234,
		NA:          500,
		TauC:        5e-9,
		N4:          7,
		TauGPS:      1e-8,
	}

	encoded := EncodeGlonass(want)
	got, err := DecodeGlonass(encoded)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}

	if got.SatID != want.SatID || got.FCN != want.FCN || got.Tb != want.Tb {
		t.Errorf("identity fields mismatch: got %+v", got)
	}
	for i := 0; i < 3; i++ {
		if !approxEqual(got.PosKM[i], want.PosKM[i], posField.scale) {
			t.Errorf("pos[%d] want %v got %v", i, want.PosKM[i], got.PosKM[i])
		}
		if !approxEqual(got.VelKMS[i], want.VelKMS[i], velField.scale) {
			t.Errorf("vel[%d] want %v got %v", i, want.VelKMS[i], got.VelKMS[i])
		}
	}
	if !approxEqual(got.TauN, want.TauN, pow2(-30)) {
		t.Errorf("TauN want %v got %v", want.TauN, got.TauN)
	}
}

// TestGlonassFCNRoundTrip checks the -7..+6 frequency-channel-number bias
// used on the wire.
func TestGlonassFCNRoundTrip(t *testing.T) {
	for _, fcn := range []int{-7, -1, 0, 6} {
		e := &GlonassEphemeris{FCN: fcn}
		encoded := EncodeGlonass(e)
		got, err := DecodeGlonass(encoded)
		if err != nil {
			t.Fatalf("fcn %d: unexpected error %v", fcn, err)
		}
		if got.FCN != fcn {
			t.Errorf("fcn %d: got %d", fcn, got.FCN)
		}
	}
}
