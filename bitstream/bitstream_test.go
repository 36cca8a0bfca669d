package bitstream

import "testing"

// TestU64RoundTrip checks that writing then reading a set of unsigned
// fields of various widths reproduces the original values.
func TestU64RoundTrip(t *testing.T) {
	var testData = []struct {
		description string
		value       uint64
		width       uint
	}{
		{"1 bit set", 1, 1},
		{"1 bit clear", 0, 1},
		{"12 bit message type", 1077, 12},
		{"30 bit epoch time", 604799999, 30},
		{"64 bit max", 0xFFFFFFFFFFFFFFFF, 64},
	}

	for _, td := range testData {
		w := NewWriter()
		w.WriteU64(td.value, td.width)
		r := NewReader(w.Bytes())
		got, err := r.U64(td.width)
		if err != nil {
			t.Errorf("%s: unexpected error %v", td.description, err)
			continue
		}
		if got != td.value {
			t.Errorf("%s: want %d got %d", td.description, td.value, got)
		}
	}
}

// TestI64RoundTrip checks sign extension for two's complement fields.
func TestI64RoundTrip(t *testing.T) {
	var testData = []struct {
		description string
		value       int64
		width       uint
	}{
		{"positive", 5, 8},
		{"negative", -5, 8},
		{"min 8 bit", -128, 8},
		{"max 8 bit", 127, 8},
		{"38 bit ECEF-scale value", -123456789, 38},
	}

	for _, td := range testData {
		w := NewWriter()
		w.WriteI64(td.value, td.width)
		r := NewReader(w.Bytes())
		got, err := r.I64(td.width)
		if err != nil {
			t.Errorf("%s: unexpected error %v", td.description, err)
			continue
		}
		if got != td.value {
			t.Errorf("%s: want %d got %d", td.description, td.value, got)
		}
	}
}

// TestSignMagnitudeRoundTrip checks the GLONASS sign-magnitude encoding.
func TestSignMagnitudeRoundTrip(t *testing.T) {
	var testData = []struct {
		value int64
		width uint
	}{
		{0, 5},
		{7, 5},
		{-7, 5},
		{15, 5},
		{-15, 5},
	}

	for _, td := range testData {
		w := NewWriter()
		w.WriteSignMagnitude(td.value, td.width)
		r := NewReader(w.Bytes())
		got, err := r.SignMagnitude(td.width)
		if err != nil {
			t.Errorf("value %d: unexpected error %v", td.value, err)
			continue
		}
		if got != td.value {
			t.Errorf("value %d: got %d", td.value, got)
		}
	}
}

// TestReadPastEndFails checks that reading beyond the buffer fails with
// InvalidMessage rather than panicking.
func TestReadPastEndFails(t *testing.T) {
	r := NewReader([]byte{0xff})
	if _, err := r.U64(9); err == nil {
		t.Error("expected an error reading 9 bits from a 1 byte buffer")
	}
}

// TestMultipleFieldsPackSequentially checks that successive reads/writes
// walk the cursor forward correctly, matching the field-by-field decode
// pattern every RTCM3 message codec uses.
func TestMultipleFieldsPackSequentially(t *testing.T) {
	w := NewWriter()
	w.WriteU64(0xD3, 8)   // preamble
	w.WriteU64(0, 6)      // reserved
	w.WriteU64(123, 10)   // length
	w.WriteU64(1077, 12)  // message type
	w.WriteI64(-42, 16)   // signed payload field

	r := NewReader(w.Bytes())
	preamble, _ := r.U64(8)
	reserved, _ := r.U64(6)
	length, _ := r.U64(10)
	msgType, _ := r.U64(12)
	signed, _ := r.I64(16)

	if preamble != 0xD3 || reserved != 0 || length != 123 || msgType != 1077 || signed != -42 {
		t.Errorf("got preamble=%d reserved=%d length=%d type=%d signed=%d",
			preamble, reserved, length, msgType, signed)
	}
}
