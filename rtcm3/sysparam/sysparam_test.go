package sysparam

import "testing"

// TestSystemParametersRoundTrip checks decode(encode(m)) == m for a 1013
// with an explicit (non-zero) message count.
func TestSystemParametersRoundTrip(t *testing.T) {
	want := &SystemParameters{
		StationID:   5,
		MJD:         59000,
		UTCSeconds:  43200,
		LeapSeconds: 18,
		Messages: []MessageEntry{
			{ID: 1005, SyncFlag: true, TransmissionIntervalS: 5.0},
			{ID: 1077, SyncFlag: false, TransmissionIntervalS: 1.0},
		},
	}
	encoded := Encode(want)
	got, err := Decode(encoded, uint(len(encoded))*8)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if got.StationID != want.StationID || got.LeapSeconds != want.LeapSeconds {
		t.Errorf("header mismatch: got %+v", got)
	}
	if len(got.Messages) != len(want.Messages) {
		t.Fatalf("message count: want %d got %d", len(want.Messages), len(got.Messages))
	}
	for i := range want.Messages {
		if got.Messages[i] != want.Messages[i] {
			t.Errorf("message %d: want %+v got %+v", i, want.Messages[i], got.Messages[i])
		}
	}
}

// TestSystemParametersZeroCountInference checks the DF053 quirk: a message
// count of zero is inferred from the payload's bit length.
func TestSystemParametersZeroCountInference(t *testing.T) {
	full := &SystemParameters{
		StationID: 1,
		Messages: []MessageEntry{
			{ID: 1001, TransmissionIntervalS: 1.0},
			{ID: 1002, TransmissionIntervalS: 1.0},
			{ID: 1003, TransmissionIntervalS: 1.0},
		},
	}
	encoded := Encode(full)

	// Zero out the 5-bit message-count field (bits 57-61) to simulate an
	// encoder relying on the quirk.
	truncated := make([]byte, len(encoded))
	copy(truncated, encoded)
	clearCountField(truncated)

	got, err := Decode(truncated, uint(len(truncated))*8)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if len(got.Messages) != 3 {
		t.Errorf("want 3 inferred messages, got %d", len(got.Messages))
	}
}

// TestUnicodeTextRoundTrip checks the 1029 string codec.
func TestUnicodeTextRoundTrip(t *testing.T) {
	want := &UnicodeText{
		StationID:  9,
		MJD:        59001,
		UTCSeconds: 3600,
		Text:       "base station maintenance window",
		CodeUnits:  32,
	}
	encoded := EncodeUnicodeText(want)
	got, err := DecodeUnicodeText(encoded)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if got.Text != want.Text || got.StationID != want.StationID {
		t.Errorf("want %+v got %+v", want, got)
	}
}

// clearCountField zeroes DF053 (bits 57..61, 0-indexed from the start of
// the payload: 12+12+16+17 = 57) in an encoded 1013 payload.
func clearCountField(buf []byte) {
	for bit := uint(57); bit < 62; bit++ {
		byteIdx := bit / 8
		shift := 7 - bit%8
		buf[byteIdx] &^= 1 << shift
	}
}
