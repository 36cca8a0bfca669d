// Package station decodes and encodes the RTCM3 station-descriptor message
// family: 1005/1006 (antenna reference point, optionally with height), 1033
// (receiver and antenna descriptor) and 1230 (GLONASS code-phase biases).
// The field layout and the 1005/1006 "ignored" bits are carried over from
// the legacy rtcm/type1005 and rtcm/type1006 packages.
package station

import (
	"fmt"

	"github.com/bitflux-nav/gnsswire/bitstream"
	"github.com/bitflux-nav/gnsswire/wireerr"
)

// ecefScale converts the wire's 0.0001 m LSB fields to metres.
const ecefScale = 0.0001

// ARP is a decoded message type 1005 or 1006 (the latter adds AntennaHeight
// and the HasHeight flag).
type ARP struct {
	MessageType         int
	StationID           uint
	ITRFRealisationYear uint
	GPSIndicator        bool
	GlonassIndicator    bool
	GalileoIndicator    bool
	ReferenceStation    bool
	AntennaRefXMM       int64 // ECEF X, 0.0001 m units
	SingleReceiver      bool
	AntennaRefYMM       int64
	Quarter             uint
	AntennaRefZMM       int64
	HasHeight           bool
	AntennaHeightMM     uint // only meaningful when HasHeight
}

// ECEF returns the antenna reference point in metres.
func (a *ARP) ECEF() (x, y, z float64) {
	return float64(a.AntennaRefXMM) * ecefScale,
		float64(a.AntennaRefYMM) * ecefScale,
		float64(a.AntennaRefZMM) * ecefScale
}

// Height returns the antenna height in metres (zero if HasHeight is false).
func (a *ARP) Height() float64 { return float64(a.AntennaHeightMM) * ecefScale }

// DecodeARP decodes a 1005 or 1006 payload (message number included).
func DecodeARP(payload []byte) (*ARP, error) {
	r := bitstream.NewReader(payload)
	messageType, err := r.U64(12)
	if err != nil {
		return nil, err
	}
	if messageType != 1005 && messageType != 1006 {
		return nil, wireerr.New(wireerr.MessageTypeMismatch,
			fmt.Sprintf("DecodeARP called on type %d", messageType))
	}

	a := &ARP{MessageType: int(messageType), HasHeight: messageType == 1006}

	stationID, err := r.U64(12)
	if err != nil {
		return nil, err
	}
	a.StationID = uint(stationID)

	itrf, err := r.U64(6)
	if err != nil {
		return nil, err
	}
	a.ITRFRealisationYear = uint(itrf)

	gps, err := r.Bool()
	if err != nil {
		return nil, err
	}
	a.GPSIndicator = gps

	glo, err := r.Bool()
	if err != nil {
		return nil, err
	}
	a.GlonassIndicator = glo

	gal, err := r.Bool()
	if err != nil {
		return nil, err
	}
	a.GalileoIndicator = gal

	refStation, err := r.Bool()
	if err != nil {
		return nil, err
	}
	a.ReferenceStation = refStation

	x, err := r.I64(38)
	if err != nil {
		return nil, err
	}
	a.AntennaRefXMM = x

	single, err := r.Bool()
	if err != nil {
		return nil, err
	}
	a.SingleReceiver = single

	y, err := r.I64(38)
	if err != nil {
		return nil, err
	}
	a.AntennaRefYMM = y

	quarter, err := r.U64(2)
	if err != nil {
		return nil, err
	}
	a.Quarter = uint(quarter)

	z, err := r.I64(38)
	if err != nil {
		return nil, err
	}
	a.AntennaRefZMM = z

	if a.HasHeight {
		height, err := r.U64(16)
		if err != nil {
			return nil, err
		}
		a.AntennaHeightMM = uint(height)
	}

	return a, nil
}

// EncodeARP re-encodes an ARP record as a 1005 or 1006 payload, selected by
// a.MessageType/a.HasHeight.
func EncodeARP(a *ARP) []byte {
	w := bitstream.NewWriter()
	messageType := uint64(1005)
	if a.HasHeight {
		messageType = 1006
	}
	w.WriteU64(messageType, 12)
	w.WriteU64(uint64(a.StationID), 12)
	w.WriteU64(uint64(a.ITRFRealisationYear), 6)
	w.WriteBool(a.GPSIndicator)
	w.WriteBool(a.GlonassIndicator)
	w.WriteBool(a.GalileoIndicator)
	w.WriteBool(a.ReferenceStation)
	w.WriteI64(a.AntennaRefXMM, 38)
	w.WriteBool(a.SingleReceiver)
	w.WriteI64(a.AntennaRefYMM, 38)
	w.WriteU64(uint64(a.Quarter), 2)
	w.WriteI64(a.AntennaRefZMM, 38)
	if a.HasHeight {
		w.WriteU64(uint64(a.AntennaHeightMM), 16)
	}
	return w.Bytes()
}

// Display renders an ARP record the way the legacy Message1005/1006
// Display methods do, as a short multi-line human-readable summary.
func (a *ARP) Display() string {
	x, y, z := a.ECEF()
	s := fmt.Sprintf("message type %d - station %d, ITRF realisation year %d\n",
		a.MessageType, a.StationID, a.ITRFRealisationYear)
	s += fmt.Sprintf("ECEF coords in metres (%.4f, %.4f, %.4f)\n", x, y, z)
	if a.HasHeight {
		s += fmt.Sprintf("antenna height %.4f\n", a.Height())
	}
	return s
}

// ReceiverAntenna is a decoded message type 1033: receiver and antenna
// descriptor strings plus serial numbers and firmware version.
type ReceiverAntenna struct {
	StationID           uint
	AntennaDescriptor   string
	AntennaSetupID      uint
	AntennaSerialNumber string
	ReceiverTypeDesc    string
	ReceiverFirmware    string
	ReceiverSerialNum   string
}

// decodeUTF8String reads an 8-bit length prefix followed by that many
// 8-bit characters, the RTCM3 variable-length string encoding used by
// 1007/1008/1029/1033.
func decodeUTF8String(r *bitstream.Reader) (string, error) {
	n, err := r.U64(8)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	for i := range buf {
		b, err := r.U64(8)
		if err != nil {
			return "", err
		}
		buf[i] = byte(b)
	}
	return string(buf), nil
}

func encodeUTF8String(w *bitstream.Writer, s string) {
	b := []byte(s)
	if len(b) > 255 {
		b = b[:255]
	}
	w.WriteU64(uint64(len(b)), 8)
	for _, c := range b {
		w.WriteU64(uint64(c), 8)
	}
}

// DecodeReceiverAntenna decodes a message type 1033 payload.
func DecodeReceiverAntenna(payload []byte) (*ReceiverAntenna, error) {
	r := bitstream.NewReader(payload)
	messageType, err := r.U64(12)
	if err != nil {
		return nil, err
	}
	if messageType != 1033 {
		return nil, wireerr.New(wireerr.MessageTypeMismatch, "not a 1033 message")
	}
	ra := &ReceiverAntenna{}
	stationID, err := r.U64(12)
	if err != nil {
		return nil, err
	}
	ra.StationID = uint(stationID)

	if ra.AntennaDescriptor, err = decodeUTF8String(r); err != nil {
		return nil, err
	}
	setupID, err := r.U64(8)
	if err != nil {
		return nil, err
	}
	ra.AntennaSetupID = uint(setupID)
	if ra.AntennaSerialNumber, err = decodeUTF8String(r); err != nil {
		return nil, err
	}
	if ra.ReceiverTypeDesc, err = decodeUTF8String(r); err != nil {
		return nil, err
	}
	if ra.ReceiverFirmware, err = decodeUTF8String(r); err != nil {
		return nil, err
	}
	if ra.ReceiverSerialNum, err = decodeUTF8String(r); err != nil {
		return nil, err
	}
	return ra, nil
}

// EncodeReceiverAntenna re-encodes a ReceiverAntenna as a 1033 payload.
func EncodeReceiverAntenna(ra *ReceiverAntenna) []byte {
	w := bitstream.NewWriter()
	w.WriteU64(1033, 12)
	w.WriteU64(uint64(ra.StationID), 12)
	encodeUTF8String(w, ra.AntennaDescriptor)
	w.WriteU64(uint64(ra.AntennaSetupID), 8)
	encodeUTF8String(w, ra.AntennaSerialNumber)
	encodeUTF8String(w, ra.ReceiverTypeDesc)
	encodeUTF8String(w, ra.ReceiverFirmware)
	encodeUTF8String(w, ra.ReceiverSerialNum)
	return w.Bytes()
}

// AntennaDescriptor is a decoded message type 1007 (descriptor and setup ID
// only) or 1008 (adds the antenna serial number).
type AntennaDescriptor struct {
	MessageType         int
	StationID           uint
	AntennaDescriptorStr string
	AntennaSetupID      uint
	HasSerialNumber     bool
	AntennaSerialNumber string // only meaningful when HasSerialNumber
}

// DecodeAntennaDescriptor decodes a 1007 or 1008 payload (message number
// included).
func DecodeAntennaDescriptor(payload []byte) (*AntennaDescriptor, error) {
	r := bitstream.NewReader(payload)
	messageType, err := r.U64(12)
	if err != nil {
		return nil, err
	}
	if messageType != 1007 && messageType != 1008 {
		return nil, wireerr.New(wireerr.MessageTypeMismatch,
			fmt.Sprintf("DecodeAntennaDescriptor called on type %d", messageType))
	}

	d := &AntennaDescriptor{MessageType: int(messageType), HasSerialNumber: messageType == 1008}

	stationID, err := r.U64(12)
	if err != nil {
		return nil, err
	}
	d.StationID = uint(stationID)

	if d.AntennaDescriptorStr, err = decodeUTF8String(r); err != nil {
		return nil, err
	}

	setupID, err := r.U64(8)
	if err != nil {
		return nil, err
	}
	d.AntennaSetupID = uint(setupID)

	if d.HasSerialNumber {
		if d.AntennaSerialNumber, err = decodeUTF8String(r); err != nil {
			return nil, err
		}
	}

	return d, nil
}

// EncodeAntennaDescriptor re-encodes an AntennaDescriptor as a 1007 or 1008
// payload, selected by d.MessageType/d.HasSerialNumber.
func EncodeAntennaDescriptor(d *AntennaDescriptor) []byte {
	w := bitstream.NewWriter()
	messageType := uint64(1007)
	if d.HasSerialNumber {
		messageType = 1008
	}
	w.WriteU64(messageType, 12)
	w.WriteU64(uint64(d.StationID), 12)
	encodeUTF8String(w, d.AntennaDescriptorStr)
	w.WriteU64(uint64(d.AntennaSetupID), 8)
	if d.HasSerialNumber {
		encodeUTF8String(w, d.AntennaSerialNumber)
	}
	return w.Bytes()
}

// GlonassCodePhaseBias is a decoded message type 1230: per-signal code-phase
// bias corrections for GLONASS, used to align GLONASS pseudoranges across
// receivers from different manufacturers.
type GlonassCodePhaseBias struct {
	StationID          uint
	AlignedWithCarrier bool
	SignalMask         uint8 // bit0=L1CA bit1=L1P bit2=L2CA bit3=L2P
	Biases             [4]int16 // 0.02 m units; only entries whose mask bit is set are valid
}

// DecodeGlonassCodePhaseBias decodes a 1230 payload.
func DecodeGlonassCodePhaseBias(payload []byte) (*GlonassCodePhaseBias, error) {
	r := bitstream.NewReader(payload)
	messageType, err := r.U64(12)
	if err != nil {
		return nil, err
	}
	if messageType != 1230 {
		return nil, wireerr.New(wireerr.MessageTypeMismatch, "not a 1230 message")
	}
	b := &GlonassCodePhaseBias{}
	stationID, err := r.U64(12)
	if err != nil {
		return nil, err
	}
	b.StationID = uint(stationID)
	aligned, err := r.Bool()
	if err != nil {
		return nil, err
	}
	b.AlignedWithCarrier = aligned
	if _, err := r.U64(3); err != nil { // reserved
		return nil, err
	}
	mask, err := r.U64(4)
	if err != nil {
		return nil, err
	}
	b.SignalMask = uint8(mask)
	for i := 0; i < 4; i++ {
		if mask&(1<<(3-i)) == 0 {
			continue
		}
		v, err := r.I64(16)
		if err != nil {
			return nil, err
		}
		b.Biases[i] = int16(v)
	}
	return b, nil
}
