// Package ubxsbp translates u-blox UBX binary protocol frames into SBP
// messages: multi-GNSS raw measurements, broadcast navigation subframes,
// inertial and odometry samples, and the GNSS/local-clock offset NAV-STATUS
// carries.
package ubxsbp

import (
	"encoding/binary"
	"math"

	"github.com/bitflux-nav/gnsswire/wireerr"
)

// Sync1/Sync2 are the two bytes that open every UBX frame.
const (
	Sync1 = 0xB5
	Sync2 = 0x62
)

// Class/ID pairs for the message types this translator understands.
const (
	ClassNAV = 0x01
	ClassRXM = 0x02
	ClassESF = 0x10

	IDNavStatus = 0x03
	IDRXMRawX   = 0x15
	IDRXMSFRBX  = 0x13
	IDESFRaw    = 0x03
	IDESFMeas   = 0x02
)

// Frame is a single decoded UBX frame: class, ID and payload, with the
// leading sync bytes and trailing checksum already validated and stripped.
type Frame struct {
	Class   uint8
	ID      uint8
	Payload []byte
}

// checksum computes the two 8-bit Fletcher-like checksum bytes UBX uses,
// accumulated over class, ID, length and payload.
func checksum(buf []byte) (ckA, ckB uint8) {
	for _, b := range buf {
		ckA += b
		ckB += ckA
	}
	return ckA, ckB
}

// NextFrame scans buf for the next complete UBX frame starting at or after
// its first sync-byte pair, returning the frame and the number of bytes
// consumed (including anything skipped before the sync bytes). It returns
// wireerr.NeedMoreBytes if buf might contain a frame that simply hasn't
// fully arrived yet.
func NextFrame(buf []byte) (*Frame, int, error) {
	start := -1
	for i := 0; i+1 < len(buf); i++ {
		if buf[i] == Sync1 && buf[i+1] == Sync2 {
			start = i
			break
		}
	}
	if start < 0 {
		return nil, len(buf), wireerr.New(wireerr.NeedMoreBytes, "no UBX sync bytes found")
	}

	rest := buf[start:]
	const headerLen = 6 // sync1, sync2, class, id, len lo, len hi
	if len(rest) < headerLen {
		return nil, start, wireerr.New(wireerr.NeedMoreBytes, "header incomplete")
	}

	class := rest[2]
	id := rest[3]
	length := int(binary.LittleEndian.Uint16(rest[4:6]))
	total := headerLen + length + 2
	if len(rest) < total {
		return nil, start, wireerr.New(wireerr.NeedMoreBytes, "payload incomplete")
	}

	payload := rest[6 : 6+length]
	wantA, wantB := rest[6+length], rest[6+length+1]
	gotA, gotB := checksum(rest[2 : 6+length])
	if gotA != wantA || gotB != wantB {
		return nil, start + 1, wireerr.New(wireerr.CrcMismatch, "UBX checksum mismatch")
	}

	f := &Frame{Class: class, ID: id, Payload: append([]byte(nil), payload...)}
	return f, start + total, nil
}

// Encode serialises a frame back to wire bytes, recomputing the checksum.
func Encode(f *Frame) []byte {
	buf := make([]byte, 0, 6+len(f.Payload)+2)
	buf = append(buf, Sync1, Sync2, f.Class, f.ID)
	var lenBuf [2]byte
	binary.LittleEndian.PutUint16(lenBuf[:], uint16(len(f.Payload)))
	buf = append(buf, lenBuf[:]...)
	buf = append(buf, f.Payload...)
	ckA, ckB := checksum(buf[2:])
	return append(buf, ckA, ckB)
}

func u1(b []byte) uint8   { return b[0] }
func i1(b []byte) int8    { return int8(b[0]) }
func u2(b []byte) uint16  { return binary.LittleEndian.Uint16(b) }
func i2(b []byte) int16   { return int16(binary.LittleEndian.Uint16(b)) }
func u4(b []byte) uint32  { return binary.LittleEndian.Uint32(b) }
func i4(b []byte) int32   { return int32(binary.LittleEndian.Uint32(b)) }
func r4(b []byte) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(b)) }
func r8(b []byte) float64 { return math.Float64frombits(binary.LittleEndian.Uint64(b)) }
