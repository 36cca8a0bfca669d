// Package sysparam decodes the RTCM3 station-descriptive messages that
// aren't part of the observation/ephemeris families: 1013 (system
// parameters) and 1029 (Unicode text string).
package sysparam

import (
	"github.com/bitflux-nav/gnsswire/bitstream"
	"github.com/bitflux-nav/gnsswire/wireerr"
)

// minHeaderBits is the number of bits in a 1013 payload before the
// per-message entries begin (message type + station id + mjd + utc +
// message count + leap second).
const minHeaderBits = 12 + 12 + 16 + 17 + 5 + 8

// entryBits is the width of one (message id, sync flag, transmission
// interval) entry in a 1013 payload.
const entryBits = 12 + 1 + 16

// MessageEntry is one broadcast-schedule entry within a 1013 message.
type MessageEntry struct {
	ID                    uint
	SyncFlag              bool
	TransmissionIntervalS float64 // seconds, field unit is 0.1s
}

// SystemParameters is a decoded message type 1013.
type SystemParameters struct {
	StationID   uint
	MJD         uint // modified Julian day
	UTCSeconds  uint // seconds since UTC midnight
	LeapSeconds uint
	Messages    []MessageEntry
}

// Decode parses a 1013 payload. payloadBits is the exact bit length of the
// payload (excluding the CRC), needed for the DF053 quirk: some encoders
// write a message count of zero and expect the receiver to recover the
// true count from the remaining payload length (RTCM 10403.3 DF053 note).
func Decode(payload []byte, payloadBits uint) (*SystemParameters, error) {
	r := bitstream.NewReader(payload)
	messageType, err := r.U64(12)
	if err != nil {
		return nil, err
	}
	if messageType != 1013 {
		return nil, wireerr.New(wireerr.MessageTypeMismatch, "not a 1013 message")
	}

	sp := &SystemParameters{}
	stationID, err := r.U64(12)
	if err != nil {
		return nil, err
	}
	sp.StationID = uint(stationID)

	mjd, err := r.U64(16)
	if err != nil {
		return nil, err
	}
	sp.MJD = uint(mjd)

	utc, err := r.U64(17)
	if err != nil {
		return nil, err
	}
	sp.UTCSeconds = uint(utc)

	count, err := r.U64(5)
	if err != nil {
		return nil, err
	}

	leap, err := r.U64(8)
	if err != nil {
		return nil, err
	}
	sp.LeapSeconds = uint(leap)

	n := uint(count)
	if n == 0 && payloadBits > minHeaderBits {
		n = (payloadBits - minHeaderBits) / entryBits
	}

	sp.Messages = make([]MessageEntry, n)
	for i := range sp.Messages {
		id, err := r.U64(12)
		if err != nil {
			return nil, err
		}
		sp.Messages[i].ID = uint(id)

		sync, err := r.Bool()
		if err != nil {
			return nil, err
		}
		sp.Messages[i].SyncFlag = sync

		interval, err := r.U64(16)
		if err != nil {
			return nil, err
		}
		sp.Messages[i].TransmissionIntervalS = float64(interval) * 0.1
	}

	return sp, nil
}

// Encode serialises a SystemParameters back to wire bytes. It always writes
// an explicit, non-zero message count rather than relying on the DF053
// zero-means-infer-from-length quirk.
func Encode(sp *SystemParameters) []byte {
	w := bitstream.NewWriter()
	w.WriteU64(1013, 12)
	w.WriteU64(uint64(sp.StationID), 12)
	w.WriteU64(uint64(sp.MJD), 16)
	w.WriteU64(uint64(sp.UTCSeconds), 17)
	w.WriteU64(uint64(len(sp.Messages)), 5)
	w.WriteU64(uint64(sp.LeapSeconds), 8)
	for _, m := range sp.Messages {
		w.WriteU64(uint64(m.ID), 12)
		w.WriteBool(m.SyncFlag)
		w.WriteU64(uint64(m.TransmissionIntervalS/0.1+0.5), 16)
	}
	w.PadToByte()
	return w.Bytes()
}

// UnicodeText is a decoded message type 1029 (Unicode text string, used
// for free-form station log messages).
type UnicodeText struct {
	StationID   uint
	MJD         uint
	UTCSeconds  uint
	Text        string
	CodeUnits   uint // count of UTF-8 code units, carried separately from byte length
}

// DecodeUnicodeText parses a 1029 payload.
func DecodeUnicodeText(payload []byte) (*UnicodeText, error) {
	r := bitstream.NewReader(payload)
	messageType, err := r.U64(12)
	if err != nil {
		return nil, err
	}
	if messageType != 1029 {
		return nil, wireerr.New(wireerr.MessageTypeMismatch, "not a 1029 message")
	}

	u := &UnicodeText{}
	stationID, err := r.U64(12)
	if err != nil {
		return nil, err
	}
	u.StationID = uint(stationID)

	mjd, err := r.U64(16)
	if err != nil {
		return nil, err
	}
	u.MJD = uint(mjd)

	utc, err := r.U64(17)
	if err != nil {
		return nil, err
	}
	u.UTCSeconds = uint(utc)

	codeUnits, err := r.U64(7)
	if err != nil {
		return nil, err
	}
	u.CodeUnits = uint(codeUnits)

	byteLen, err := r.U64(8)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, byteLen)
	for i := range buf {
		b, err := r.U8(8)
		if err != nil {
			return nil, err
		}
		buf[i] = b
	}
	u.Text = string(buf)

	return u, nil
}

// EncodeUnicodeText serialises a UnicodeText back to wire bytes.
func EncodeUnicodeText(u *UnicodeText) []byte {
	w := bitstream.NewWriter()
	w.WriteU64(1029, 12)
	w.WriteU64(uint64(u.StationID), 12)
	w.WriteU64(uint64(u.MJD), 16)
	w.WriteU64(uint64(u.UTCSeconds), 17)
	textBytes := []byte(u.Text)
	w.WriteU64(uint64(u.CodeUnits), 7)
	w.WriteU64(uint64(len(textBytes)), 8)
	for _, b := range textBytes {
		w.WriteU8(b, 8)
	}
	w.PadToByte()
	return w.Bytes()
}
