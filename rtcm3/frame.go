// Package rtcm3 decodes and encodes RTCM 10403.x messages: the self-framing,
// bit-packed wire protocol used by GNSS reference-station networks.  The
// framing logic here follows the same length-prefix/CRC24Q shape as the
// rtcm package's ReadNextRTCM3MessageFrame/GetMessage pair, reworked around
// explicit byte-slice inputs (no embedded io.Reader state) so that the
// framer is a pure function from bytes to frame-or-NeedMoreBytes, matching
// this project's single-threaded, non-blocking core.
package rtcm3

import (
	"bytes"

	"github.com/bitflux-nav/gnsswire/wireerr"
	crc24q "github.com/goblimey/go-crc24q/crc24q"
)

// Preamble is the byte that starts every RTCM3 message frame.
const Preamble byte = 0xD3

// LeaderLengthBytes is the length of the frame leader (preamble + reserved +
// length) in bytes.
const LeaderLengthBytes = 3

// CRCLengthBytes is the length of the trailing CRC24Q in bytes.
const CRCLengthBytes = 3

// MaxPayloadLength is the largest payload the 10-bit length field can hold.
const MaxPayloadLength = 1023

// Frame is a fully framed, CRC-checked RTCM3 message: the message number
// plus its payload (the message number is also the first 12 bits of
// Payload, duplicated here for convenience).
type Frame struct {
	MessageType int
	Reserved    uint8 // the 6 reserved bits, preserved so an encoder can echo them
	Payload     []byte
	Raw         []byte // the whole frame including leader and CRC
}

// NextFrame scans buf for the next complete, CRC-valid RTCM3 frame.
//
// It returns the decoded frame, the number of bytes of buf that were
// consumed (so the caller can slice its input and call again), and an
// error. A wireerr.NeedMoreBytes error means the buffer doesn't (yet)
// contain a complete frame; the caller should wait for more data and retry
// with the same, or a longer, buffer. Any other decode failure
// (InvalidMessage, CrcMismatch) is recoverable: NextFrame has already
// resynchronised past the bad preamble, so the caller can simply call it
// again with the returned consumed count.
func NextFrame(buf []byte) (frame *Frame, consumed int, err error) {
	start := bytes.IndexByte(buf, Preamble)
	if start < 0 {
		return nil, len(buf), wireerr.New(wireerr.NeedMoreBytes, "no preamble found")
	}

	rest := buf[start:]
	if len(rest) < LeaderLengthBytes {
		return nil, start, wireerr.New(wireerr.NeedMoreBytes, "leader incomplete")
	}

	reserved := (rest[1] >> 2) & 0x3F
	length := (uint(rest[1]&0x3) << 8) | uint(rest[2])

	total := LeaderLengthBytes + int(length) + CRCLengthBytes
	if len(rest) < total {
		return nil, start, wireerr.New(wireerr.NeedMoreBytes, "payload/CRC incomplete")
	}

	frameBytes := rest[:total]
	if !CheckCRC(frameBytes) {
		// CRC mismatch: resync by skipping one byte past this preamble.
		return nil, start + 1, wireerr.New(wireerr.CrcMismatch, "CRC24Q check failed")
	}

	payload := frameBytes[LeaderLengthBytes : LeaderLengthBytes+int(length)]
	if len(payload) < 2 {
		return nil, start + 1, wireerr.New(wireerr.InvalidMessage, "payload too short for a message number")
	}
	messageType := int(payload[0])<<4 | int(payload[1])>>4

	f := &Frame{
		MessageType: messageType,
		Reserved:    reserved,
		Payload:     payload,
		Raw:         frameBytes,
	}
	return f, start + total, nil
}

// CheckCRC reports whether the trailing 24 bits of frame match the CRC24Q
// of the bytes that precede them.
func CheckCRC(frame []byte) bool {
	if len(frame) < LeaderLengthBytes+CRCLengthBytes {
		return false
	}
	body := frame[:len(frame)-CRCLengthBytes]
	want := crc24q.Hash(body)
	got := uint32(frame[len(frame)-3])<<16 | uint32(frame[len(frame)-2])<<8 | uint32(frame[len(frame)-1])
	return want == got
}

// Encode composes a complete RTCM3 frame from a payload that already starts
// with the 12-bit message number.
func Encode(payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadLength {
		return nil, wireerr.New(wireerr.InvalidMessage, "payload exceeds 1023 bytes")
	}
	frame := make([]byte, LeaderLengthBytes+len(payload)+CRCLengthBytes)
	frame[0] = Preamble
	length := uint16(len(payload))
	frame[1] = byte(length >> 8 & 0x3) // top 6 bits are reserved, left as zero
	frame[2] = byte(length)
	copy(frame[LeaderLengthBytes:], payload)

	crc := crc24q.Hash(frame[:LeaderLengthBytes+len(payload)])
	tail := frame[LeaderLengthBytes+len(payload):]
	tail[0] = byte(crc >> 16)
	tail[1] = byte(crc >> 8)
	tail[2] = byte(crc)
	return frame, nil
}
