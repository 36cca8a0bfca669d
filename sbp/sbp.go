// Package sbp implements Swift Binary Protocol framing: a preamble byte, a
// little-endian message-type/sender/length header, a payload, and a
// CRC-16/XMODEM trailer. The codecs for the individual message payloads
// (observations, ephemerides, log text, position solutions) live alongside
// the frame in this package since they share the same field-width
// conventions.
package sbp

import (
	"encoding/binary"

	"github.com/bitflux-nav/gnsswire/wireerr"
)

// Preamble is the single byte that opens every SBP frame.
const Preamble = 0x55

// Message type identifiers for the payloads this module understands.
const (
	MsgObs        = 0x004A // MSG_OBS: one epoch's worth of observations (possibly fragmented)
	MsgBasePosECEF = 0x0044
	MsgEphemerisGPS = 0x008A
	MsgEphemerisGlo = 0x008B
	MsgEphemerisGal = 0x0095
	MsgEphemerisBds = 0x0096
	MsgEphemerisQzss = 0x0097
	MsgLog        = 0x0401
	MsgPosLLH     = 0x0201
	MsgImuRaw     = 0x0900
	MsgImuAux     = 0x0901
	MsgOdometry   = 0x0903
	MsgGnssTimeOffset = 0x0905
	MsgSsrOrbitClock = 0x05DD
	// representative subset: TeseoV STGSV output only, not a full
	// tracking-channel feed.
	MsgSvAzEl           = 0x0099
	MsgMeasurementState = 0x009A
	MsgNavDataFrame     = 0x009B
)

// headerLen is the byte length of the SBP header after the preamble:
// 2 bytes msg type + 2 bytes sender id + 1 byte payload length.
const headerLen = 5

// Frame is a single decoded SBP frame: a header plus an opaque payload.
// Payload-specific codecs (EpochHeader, Observation, etc.) parse Payload
// further once the message type is known.
type Frame struct {
	MsgType  uint16
	Sender   uint16
	Payload  []byte
}

// Encode serialises f into a complete SBP frame: preamble, header, payload
// and CRC16 trailer.
func Encode(f *Frame) []byte {
	buf := make([]byte, 0, 1+headerLen+len(f.Payload)+2)
	buf = append(buf, Preamble)
	buf = appendU16(buf, f.MsgType)
	buf = appendU16(buf, f.Sender)
	buf = append(buf, byte(len(f.Payload)))
	buf = append(buf, f.Payload...)

	crc := crc16(buf[1:]) // CRC covers msg type, sender, length and payload — not the preamble
	buf = appendU16(buf, crc)
	return buf
}

// Decode parses a single SBP frame from the start of buf, returning the
// frame and the number of bytes consumed. It returns an error if buf is too
// short, the preamble byte is wrong, or the trailing CRC does not match.
func Decode(buf []byte) (*Frame, int, error) {
	if len(buf) < 1+headerLen+2 {
		return nil, 0, wireerr.New(wireerr.InvalidMessage, "frame shorter than minimum length")
	}
	if buf[0] != Preamble {
		return nil, 0, wireerr.New(wireerr.InvalidMessage, "bad preamble byte")
	}

	msgType := binary.LittleEndian.Uint16(buf[1:3])
	sender := binary.LittleEndian.Uint16(buf[3:5])
	payloadLen := int(buf[5])

	total := 1 + headerLen + payloadLen + 2
	if len(buf) < total {
		return nil, 0, wireerr.New(wireerr.InvalidMessage, "frame truncated before declared length")
	}

	payload := buf[6 : 6+payloadLen]
	wantCRC := binary.LittleEndian.Uint16(buf[6+payloadLen : 6+payloadLen+2])
	gotCRC := crc16(buf[1 : 6+payloadLen])
	if gotCRC != wantCRC {
		return nil, 0, wireerr.New(wireerr.CrcMismatch, "CRC16 mismatch")
	}

	f := &Frame{MsgType: msgType, Sender: sender, Payload: append([]byte(nil), payload...)}
	return f, total, nil
}

func appendU16(buf []byte, v uint16) []byte {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	return append(buf, tmp[:]...)
}
