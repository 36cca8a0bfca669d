package proprietary

import (
	"bytes"
	"testing"

	"github.com/bitflux-nav/gnsswire/bitstream"
)

// TestSwiftWrapperRoundTrip checks decode(encode(m)) == m for a 4062
// envelope carrying an opaque SBP payload.
func TestSwiftWrapperRoundTrip(t *testing.T) {
	want := &SwiftWrapper{ProtocolVersion: 0, Payload: []byte{0x55, 0x01, 0x02, 0x00, 0x00, 0xAB, 0xCD}}
	encoded := EncodeSwiftWrapper(want)
	got, err := DecodeSwiftWrapper(encoded)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if got.Protocol != ProtocolWrappedSBP {
		t.Errorf("want ProtocolWrappedSBP, got %v", got.Protocol)
	}
	if !bytes.Equal(got.Payload, want.Payload) {
		t.Errorf("payload mismatch: want %x got %x", want.Payload, got.Payload)
	}
}

// TestSwiftWrapperUnknownProtocolRejected checks an unrecognised protocol
// version is rejected rather than silently misinterpreted.
func TestSwiftWrapperUnknownProtocolRejected(t *testing.T) {
	w := &SwiftWrapper{ProtocolVersion: 15}
	encoded := EncodeSwiftWrapper(w)
	_, err := DecodeSwiftWrapper(encoded)
	if err == nil {
		t.Fatalf("expected error for unknown protocol version")
	}
}

// TestNDFRoundTrip checks decode(encode(m)) == m for a 4075 message with
// one subframe.
func TestNDFRoundTrip(t *testing.T) {
	want := &NDF{
		StationID: 3,
		Frames: []NDFFrame{
			{SatelliteSystem: 1, SatelliteNumber: 12, SignalType: 2, EpochTimeMS: 86400000,
				ContinuousTracking: true, FrameDataBits: 40, Data: []uint32{0xDEADBEEF, 0xFF}},
		},
	}
	encoded := EncodeNDF(want)
	got, err := DecodeNDF(encoded)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if len(got.Frames) != 1 {
		t.Fatalf("want 1 frame, got %d", len(got.Frames))
	}
	f := got.Frames[0]
	if f.SatelliteNumber != 12 || f.EpochTimeMS != 86400000 || !f.ContinuousTracking {
		t.Errorf("frame mismatch: %+v", f)
	}
}

// TestNDFFrameDataSizeOverflowRejected checks MaxNDFFrameSizeBits is
// enforced: the wire field can represent values up to 4095, far beyond
// the 1024-bit maximum a single subframe is allowed to claim.
func TestNDFFrameDataSizeOverflowRejected(t *testing.T) {
	n := &NDF{Frames: []NDFFrame{{FrameDataBits: MaxNDFFrameSizeBits + 1}}}
	encoded := EncodeNDF(n)
	_, err := DecodeNDF(encoded)
	if err == nil {
		t.Fatalf("expected error for frame data size over maximum")
	}
}

// TestTeseoVEnvelopeDecodesSubType checks the dispatch sub-type is
// extracted while leaving the body opaque.
func TestTeseoVEnvelopeDecodesSubType(t *testing.T) {
	bw := bitstream.NewWriter()
	bw.WriteU64(999, 12)
	bw.WriteU64(7, 8)
	for _, b := range []byte{0x01, 0x02, 0x03} {
		bw.WriteU8(b, 8)
	}
	bw.PadToByte()

	got, err := DecodeTeseoV(bw.Bytes())
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if got.SubType != 7 {
		t.Errorf("want subtype 7, got %d", got.SubType)
	}
	if !bytes.Equal(got.Payload, []byte{0x01, 0x02, 0x03}) {
		t.Errorf("payload mismatch: got %x", got.Payload)
	}
}
