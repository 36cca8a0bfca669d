package sbp

import (
	"bytes"
	"testing"
)

// TestCRC16KnownVector checks the CRC16 table against the standard
// CRC-16/XMODEM test vector (poly 0x1021, init 0x0000): "123456789" yields
// 0x31C3.
func TestCRC16KnownVector(t *testing.T) {
	got := crc16([]byte("123456789"))
	if got != 0x31C3 {
		t.Errorf("want 0x31C3, got 0x%04X", got)
	}
}

// TestFrameRoundTrip checks decode(encode(f)) == f for an arbitrary frame.
func TestFrameRoundTrip(t *testing.T) {
	want := &Frame{MsgType: MsgLog, Sender: 42, Payload: []byte("hello")}
	encoded := Encode(want)

	got, n, err := Decode(encoded)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if n != len(encoded) {
		t.Errorf("want consumed %d bytes, got %d", len(encoded), n)
	}
	if got.MsgType != want.MsgType || got.Sender != want.Sender {
		t.Errorf("header mismatch: got %+v", got)
	}
	if !bytes.Equal(got.Payload, want.Payload) {
		t.Errorf("payload mismatch: want %q got %q", want.Payload, got.Payload)
	}
}

// TestFrameBadPreambleRejected checks a frame with the wrong leading byte
// is rejected rather than misparsed.
func TestFrameBadPreambleRejected(t *testing.T) {
	buf := Encode(&Frame{MsgType: MsgLog, Payload: []byte("x")})
	buf[0] = 0x00
	_, _, err := Decode(buf)
	if err == nil {
		t.Fatalf("expected error for bad preamble")
	}
}

// TestFrameCorruptedCRCRejected checks a flipped payload byte is caught by
// the CRC16 trailer.
func TestFrameCorruptedCRCRejected(t *testing.T) {
	buf := Encode(&Frame{MsgType: MsgLog, Payload: []byte("hello")})
	buf[7] ^= 0xFF
	_, _, err := Decode(buf)
	if err == nil {
		t.Fatalf("expected CRC mismatch error")
	}
}

// TestObsFrameRoundTrip checks one fragment's header and observation
// records survive an encode/decode cycle.
func TestObsFrameRoundTrip(t *testing.T) {
	h := EpochHeader{WN: 2300, TOWms: 123456, NsResidual: -500, NumObs: PackNumObs(1, 0)}
	obs := []Observation{
		{SID: SignalID{Sat: 5, Code: 0}, P: 7500000, LCycles: 1000, LFrac: 128,
			DHz: -30, DFrac: 64, CN0: 180, Lock: 9, Flags: ObsFlagPRValid | ObsFlagCPValid},
	}
	payload := EncodeObsFrame(h, obs)
	gotH, gotObs := DecodeObsFrame(payload)

	if gotH.WN != h.WN || gotH.TOWms != h.TOWms || gotH.NsResidual != h.NsResidual {
		t.Errorf("header mismatch: got %+v", gotH)
	}
	total, index := FrameCountAndIndex(gotH.NumObs)
	if total != 1 || index != 0 {
		t.Errorf("want total=1 index=0, got total=%d index=%d", total, index)
	}
	if len(gotObs) != 1 || gotObs[0] != obs[0] {
		t.Errorf("observation mismatch: got %+v", gotObs)
	}
}

// TestEphemerisGPSRoundTrip checks the Kepler ephemeris SBP codec preserves
// every field.
func TestEphemerisGPSRoundTrip(t *testing.T) {
	want := EphemerisGPS{
		SID: SignalID{Sat: 12}, TOE: EpochHeader{WN: 2300, TOWms: 50000},
		IODE: 7, IODC: 7, SqrtA: 5153.6, Ecc: 0.01, Af0: 1e-5,
	}
	got := DecodeEphemerisGPS(EncodeEphemerisGPS(want))
	if got.SID != want.SID || got.TOE.WN != want.TOE.WN || got.SqrtA != want.SqrtA {
		t.Errorf("mismatch: got %+v", got)
	}
}
