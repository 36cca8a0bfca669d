// Package proprietary decodes the non-standard RTCM3 message types used to
// carry vendor-specific payloads inside an otherwise standard RTCM3 frame:
// 4062 (Swift Navigation's SBP wrapper), 4075 (Navigation Data Frame raw
// subframe capture) and 999 (ST Microelectronics TeseoV dispatch: the
// envelope and the STGSV sub-message are decoded, other sub-messages are
// left as opaque bytes).
package proprietary

import (
	"github.com/bitflux-nav/gnsswire/bitstream"
	"github.com/bitflux-nav/gnsswire/wireerr"
)

// MaxNDFFrames bounds the number of raw subframes an NDF message can carry.
const MaxNDFFrames = 63

// MaxNDFFrameSizeBits bounds a single subframe's bit length.
const MaxNDFFrameSizeBits = 1024

// Protocol identifies the payload wrapped inside a 4062 message.
type Protocol int

const (
	ProtocolUnknown Protocol = iota
	ProtocolWrappedSBP
	ProtocolWrappedSwiftRTCM
)

func protocolFromVersion(version uint8) Protocol {
	switch version {
	case 0:
		return ProtocolWrappedSBP
	case 1:
		return ProtocolWrappedSwiftRTCM
	default:
		return ProtocolUnknown
	}
}

// SwiftWrapper is a decoded message type 4062: an RTCM3 envelope around an
// embedded SBP (or Swift-internal RTCM) frame, used to multiplex Swift's
// proprietary corrections alongside standard RTCM3 traffic on the same
// stream.
type SwiftWrapper struct {
	ProtocolVersion uint8
	Protocol        Protocol
	Payload         []byte // the embedded frame, verbatim
}

// DecodeSwiftWrapper parses a 4062 payload. The embedded payload is
// returned verbatim; the caller re-parses it with the sbp package once the
// protocol is known to be SBP.
func DecodeSwiftWrapper(payload []byte) (*SwiftWrapper, error) {
	r := bitstream.NewReader(payload)
	messageType, err := r.U64(12)
	if err != nil {
		return nil, err
	}
	if messageType != 4062 {
		return nil, wireerr.New(wireerr.MessageTypeMismatch, "not a 4062 message")
	}

	version, err := r.U64(4)
	if err != nil {
		return nil, err
	}
	w := &SwiftWrapper{ProtocolVersion: uint8(version)}
	w.Protocol = protocolFromVersion(w.ProtocolVersion)
	if w.Protocol == ProtocolUnknown {
		return nil, wireerr.New(wireerr.UnsupportedCode, "unrecognised 4062 protocol version")
	}

	remaining := r.Remaining()
	buf := make([]byte, remaining/8)
	for i := range buf {
		b, err := r.U8(8)
		if err != nil {
			return nil, err
		}
		buf[i] = b
	}
	w.Payload = buf
	return w, nil
}

// EncodeSwiftWrapper serialises a SwiftWrapper back to wire bytes.
func EncodeSwiftWrapper(w *SwiftWrapper) []byte {
	bw := bitstream.NewWriter()
	bw.WriteU64(4062, 12)
	bw.WriteU64(uint64(w.ProtocolVersion), 4)
	for _, b := range w.Payload {
		bw.WriteU8(b, 8)
	}
	bw.PadToByte()
	return bw.Bytes()
}

// NDFFrame is one raw subframe captured in a 4075 message.
type NDFFrame struct {
	SatelliteSystem      uint
	SatelliteNumber      uint
	ExtendedSatInfo      uint
	SignalType           uint
	EpochTimeMS          uint32
	ContinuousTracking   bool
	FrameDataBits        uint
	Data                 []uint32 // packed 32-bit words, last word right-padded
}

// NDF is a decoded message type 4075 (Navigation Data Frame).
type NDF struct {
	StationID uint
	Frames    []NDFFrame
}

// DecodeNDF parses a 4075 payload.
func DecodeNDF(payload []byte) (*NDF, error) {
	r := bitstream.NewReader(payload)
	messageType, err := r.U64(12)
	if err != nil {
		return nil, err
	}
	if messageType != 4075 {
		return nil, wireerr.New(wireerr.MessageTypeMismatch, "not a 4075 message")
	}

	n := &NDF{}
	stationID, err := r.U64(12)
	if err != nil {
		return nil, err
	}
	n.StationID = uint(stationID)

	reserved, err := r.U64(2)
	if err != nil {
		return nil, err
	}
	if reserved != 0 {
		return nil, wireerr.New(wireerr.InvalidMessage, "nonzero reserved bits: unrecognised NDF format")
	}

	frameCount, err := r.U64(6)
	if err != nil {
		return nil, err
	}
	if frameCount > MaxNDFFrames {
		return nil, wireerr.New(wireerr.InvalidMessage, "frame count exceeds maximum")
	}

	n.Frames = make([]NDFFrame, frameCount)
	for i := range n.Frames {
		f := &n.Frames[i]

		satSys, err := r.U64(4)
		if err != nil {
			return nil, err
		}
		f.SatelliteSystem = uint(satSys)

		satNum, err := r.U64(6)
		if err != nil {
			return nil, err
		}
		f.SatelliteNumber = uint(satNum)

		extInfo, err := r.U64(4)
		if err != nil {
			return nil, err
		}
		f.ExtendedSatInfo = uint(extInfo)

		sigType, err := r.U64(5)
		if err != nil {
			return nil, err
		}
		f.SignalType = uint(sigType)

		epoch, err := r.U64(30)
		if err != nil {
			return nil, err
		}
		f.EpochTimeMS = uint32(epoch)

		tracking, err := r.Bool()
		if err != nil {
			return nil, err
		}
		f.ContinuousTracking = tracking

		dataBits, err := r.U64(12)
		if err != nil {
			return nil, err
		}
		f.FrameDataBits = uint(dataBits)
		if f.FrameDataBits > MaxNDFFrameSizeBits {
			return nil, wireerr.New(wireerr.InvalidMessage, "frame data size exceeds maximum")
		}

		remaining := f.FrameDataBits
		for remaining > 0 {
			chunk := uint(32)
			if remaining < 32 {
				chunk = remaining
			}
			word, err := r.U64(chunk)
			if err != nil {
				return nil, err
			}
			f.Data = append(f.Data, uint32(word))
			remaining -= chunk
		}
	}

	return n, nil
}

// EncodeNDF serialises an NDF back to wire bytes.
func EncodeNDF(n *NDF) []byte {
	w := bitstream.NewWriter()
	w.WriteU64(4075, 12)
	w.WriteU64(uint64(n.StationID), 12)
	w.WriteU64(0, 2)
	w.WriteU64(uint64(len(n.Frames)), 6)
	for _, f := range n.Frames {
		w.WriteU64(uint64(f.SatelliteSystem), 4)
		w.WriteU64(uint64(f.SatelliteNumber), 6)
		w.WriteU64(uint64(f.ExtendedSatInfo), 4)
		w.WriteU64(uint64(f.SignalType), 5)
		w.WriteU64(uint64(f.EpochTimeMS), 30)
		w.WriteBool(f.ContinuousTracking)
		w.WriteU64(uint64(f.FrameDataBits), 12)
		remaining := f.FrameDataBits
		for _, word := range f.Data {
			chunk := uint(32)
			if remaining < 32 {
				chunk = remaining
			}
			w.WriteU64(uint64(word), chunk)
			remaining -= chunk
		}
	}
	w.PadToByte()
	return w.Bytes()
}

// TeseoV sub-message type identifiers. The reference decoder dispatches on
// these but its header defining the numeric values wasn't part of the
// retrieved source; this assigns them in the order the reference decoder's
// switch checks them (restart, STGSV, aux), same convention this codec uses
// elsewhere when a wire constant's defining header is unavailable (ssr's
// message-type gaps get the same treatment).
const (
	TeseoVRestart uint = 0
	TeseoVSTGSV   uint = 1
	TeseoVAux     uint = 2
)

// TeseoV represents a message type 999 (ST Microelectronics TeseoV
// proprietary dispatch). Only the dispatch sub-type is decoded generically
// here; STGSV's own field layout has a dedicated decoder below, since it's
// the one sub-message this codec interprets rather than passing through.
type TeseoV struct {
	SubType uint
	Payload []byte
}

// teseoSatMaskBits is the width this codec uses for STGSV's active-satellite
// mask. The reference decoder widens this for BDS13 tracking (a 13-satellite
// variant); that distinction isn't modelled here, the same honest
// simplification this codec already makes for 1230's code-phase-bias table.
const teseoSatMaskBits = 32

// STGSV field-mask bits, in the order the reference decoder tests them.
const (
	stgsvFieldEl    = 1 << 0
	stgsvFieldAz    = 1 << 1
	stgsvFieldCN0B1 = 1 << 2
	stgsvFieldCN0B2 = 1 << 3
	stgsvFieldCN0B3 = 1 << 4
)

// STGSVSatellite is one satellite's worth of STGSV az/el/CN0 fields, present
// only where field_mask says so.
type STGSVSatellite struct {
	SatelliteID uint

	ElevationDeg  int8 // 8-bit signed, present if field_mask&stgsvFieldEl
	HasElevation  bool
	AzimuthDeg    uint16 // 9-bit unsigned, present if field_mask&stgsvFieldAz
	HasAzimuth    bool
	CN0B1, CN0B2, CN0B3 uint8
	HasCN0B1, HasCN0B2, HasCN0B3 bool
}

// STGSV is a decoded TeseoV STGSV (satellites-in-view) sub-message: a
// per-satellite az/el/CN0 snapshot, gated by a shared field mask and an
// active-satellite bitmask.
type STGSV struct {
	TowMS           uint32
	Constellation   uint
	FieldMask       uint
	MultipleMessage bool
	Satellites      []STGSVSatellite
}

// DecodeSTGSV parses a TeseoV STGSV sub-message payload (TeseoV.Payload when
// TeseoV.SubType == TeseoVSTGSV).
func DecodeSTGSV(payload []byte) (*STGSV, error) {
	r := bitstream.NewReader(payload)
	tow, err := r.U64(30)
	if err != nil {
		return nil, err
	}
	constellation, err := r.U64(4)
	if err != nil {
		return nil, err
	}
	satMask, err := r.U64(teseoSatMaskBits)
	if err != nil {
		return nil, err
	}
	fieldMask, err := r.U64(8)
	if err != nil {
		return nil, err
	}
	mul, err := r.Bool()
	if err != nil {
		return nil, err
	}

	g := &STGSV{
		TowMS:           uint32(tow),
		Constellation:   uint(constellation),
		FieldMask:       uint(fieldMask),
		MultipleMessage: mul,
	}

	for i := uint(0); i < teseoSatMaskBits; i++ {
		if satMask&(uint64(1)<<(teseoSatMaskBits-1-i)) == 0 {
			continue
		}
		sat := STGSVSatellite{SatelliteID: i}
		if fieldMask&stgsvFieldEl != 0 {
			el, err := r.I64(8)
			if err != nil {
				return nil, err
			}
			sat.ElevationDeg = int8(el)
			sat.HasElevation = true
		}
		if fieldMask&stgsvFieldAz != 0 {
			az, err := r.U64(9)
			if err != nil {
				return nil, err
			}
			sat.AzimuthDeg = uint16(az)
			sat.HasAzimuth = true
		}
		if fieldMask&stgsvFieldCN0B1 != 0 {
			v, err := r.U64(8)
			if err != nil {
				return nil, err
			}
			sat.CN0B1 = uint8(v)
			sat.HasCN0B1 = true
		}
		if fieldMask&stgsvFieldCN0B2 != 0 {
			v, err := r.U64(8)
			if err != nil {
				return nil, err
			}
			sat.CN0B2 = uint8(v)
			sat.HasCN0B2 = true
		}
		if fieldMask&stgsvFieldCN0B3 != 0 {
			v, err := r.U64(8)
			if err != nil {
				return nil, err
			}
			sat.CN0B3 = uint8(v)
			sat.HasCN0B3 = true
		}
		g.Satellites = append(g.Satellites, sat)
	}

	return g, nil
}

// DecodeTeseoV parses the 999 envelope, leaving the sub-message opaque.
func DecodeTeseoV(payload []byte) (*TeseoV, error) {
	r := bitstream.NewReader(payload)
	messageType, err := r.U64(12)
	if err != nil {
		return nil, err
	}
	if messageType != 999 {
		return nil, wireerr.New(wireerr.MessageTypeMismatch, "not a 999 message")
	}

	subType, err := r.U64(8)
	if err != nil {
		return nil, err
	}
	t := &TeseoV{SubType: uint(subType)}

	remaining := r.Remaining()
	buf := make([]byte, remaining/8)
	for i := range buf {
		b, err := r.U8(8)
		if err != nil {
			return nil, err
		}
		buf[i] = b
	}
	t.Payload = buf
	return t, nil
}
