package ubxsbp

import "testing"

func TestNextFrameRoundTrips(t *testing.T) {
	f := &Frame{Class: ClassNAV, ID: IDNavStatus, Payload: []byte{1, 2, 3, 4}}
	wire := Encode(f)

	got, consumed, err := NextFrame(wire)
	if err != nil {
		t.Fatalf("NextFrame: %v", err)
	}
	if consumed != len(wire) {
		t.Errorf("want %d bytes consumed, got %d", len(wire), consumed)
	}
	if got.Class != f.Class || got.ID != f.ID {
		t.Errorf("want class/id %d/%d, got %d/%d", f.Class, f.ID, got.Class, got.ID)
	}
	if string(got.Payload) != string(f.Payload) {
		t.Errorf("payload mismatch: got %v", got.Payload)
	}
}

func TestNextFrameRejectsBadChecksum(t *testing.T) {
	f := &Frame{Class: ClassNAV, ID: IDNavStatus, Payload: []byte{1, 2, 3, 4}}
	wire := Encode(f)
	wire[len(wire)-1] ^= 0xFF

	if _, _, err := NextFrame(wire); err == nil {
		t.Fatalf("want a checksum error, got nil")
	}
}

func TestNextFrameSkipsLeadingGarbage(t *testing.T) {
	f := &Frame{Class: ClassRXM, ID: IDRXMRawX, Payload: []byte{9, 9}}
	wire := append([]byte{0x00, 0x11, 0x22}, Encode(f)...)

	got, consumed, err := NextFrame(wire)
	if err != nil {
		t.Fatalf("NextFrame: %v", err)
	}
	if got.ID != IDRXMRawX {
		t.Errorf("want IDRXMRawX, got %#x", got.ID)
	}
	if consumed != len(wire) {
		t.Errorf("want all bytes consumed, got %d of %d", consumed, len(wire))
	}
}
