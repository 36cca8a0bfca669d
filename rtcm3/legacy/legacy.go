// Package legacy decodes and encodes the pre-MSM RTCM3 observation
// messages: 1001-1004 (GPS) and 1009-1012 (GLONASS). These predate the
// Multiple Signal Message family and pack a fixed L1/L1+L2 field set per
// satellite rather than a variable satellite/signal mask.
package legacy

import (
	"github.com/bitflux-nav/gnsswire/bitstream"
	"github.com/bitflux-nav/gnsswire/rtcm3/locktime"
	"github.com/bitflux-nav/gnsswire/wireerr"
)

// RTCM_MAX_TOW_MS bounds a valid time-of-week value; anything above this is
// the result of a corrupted or rolled-over field.
const RTCM_MAX_TOW_MS = 604800000

// Sentinel "not available" values used by the legacy observable fields.
const (
	prL1Invalid    = 0x80000 // 24/25-bit unsigned pseudorange field
	cpDiffInvalid  = 1 << 19 // most negative value of the 20-bit phase-range-diff field
	prL2DiffInvalid = 1 << 13 // most negative value of the 14-bit L2 pseudorange-diff field
)

// Header is the fixed-format header shared by 1001-1004 and 1009-1012.
type Header struct {
	MessageType             int
	StationID               uint
	TowMS                   uint32 // GPS: time of week in ms; GLONASS: time of day in ms
	Synchronous             bool
	NumSatellites           uint
	DivergenceFreeSmoothing bool
	SmoothingInterval       uint
}

// L1Obs is the L1-band portion of a satellite's observation.
type L1Obs struct {
	Code            uint // 0 = C/A, 1 = P(Y)
	PseudorangeMS   uint32
	PhaseRangeDiff  int32
	LockTimeSeconds uint32
	PseudorangeValid bool
	PhaseRangeValid  bool
}

// L2Obs is the L2-band portion, carried only by 1003/1004 and 1011/1012.
type L2Obs struct {
	Code             uint // 2-bit code indicator
	PseudorangeDiff  int32
	PhaseRangeDiff   int32
	LockTimeSeconds  uint32
	PseudorangeValid bool
	PhaseRangeValid  bool
}

// Satellite is one satellite's worth of legacy observation fields. L2 is
// nil for 1001/1002/1009/1010 (L1-only messages).
type Satellite struct {
	SatelliteID uint
	FCN         int // GLONASS frequency channel number, -7..+6; unused for GPS
	L1          L1Obs
	L2          *L2Obs
	HasFullPR   bool // true for 1002/1004/1010/1012, which add full (ambiguity-resolved) PR
	FullPRMS    uint32
	CNR         float64 // only present on the "extended" (full PR) variants
	HasCNR      bool
}

// Message is a decoded legacy observation message.
type Message struct {
	Header     Header
	Satellites []Satellite
}

func isGlonass(messageType int) bool { return messageType == 1009 || messageType == 1010 || messageType == 1011 || messageType == 1012 }
func hasL2(messageType int) bool     { return messageType == 1003 || messageType == 1004 || messageType == 1011 || messageType == 1012 }
func hasFullPR(messageType int) bool {
	return messageType == 1002 || messageType == 1004 || messageType == 1010 || messageType == 1012
}

// Decode parses any of 1001-1004 or 1009-1012 from a payload.
func Decode(payload []byte) (*Message, error) {
	r := bitstream.NewReader(payload)
	messageType, err := r.U64(12)
	if err != nil {
		return nil, err
	}
	mt := int(messageType)
	if mt < 1001 || mt > 1012 || (mt > 1004 && mt < 1009) {
		return nil, wireerr.New(wireerr.MessageTypeMismatch, "not a legacy observation message type")
	}

	h := Header{MessageType: mt}
	stationID, err := r.U64(12)
	if err != nil {
		return nil, err
	}
	h.StationID = uint(stationID)

	towBits := uint(30)
	if isGlonass(mt) {
		towBits = 27
	}
	tow, err := r.U64(towBits)
	if err != nil {
		return nil, err
	}
	h.TowMS = uint32(tow)
	if h.TowMS > RTCM_MAX_TOW_MS {
		return nil, wireerr.New(wireerr.InvalidMessage, "time of week out of range")
	}

	sync, err := r.Bool()
	if err != nil {
		return nil, err
	}
	h.Synchronous = sync

	numSat, err := r.U64(5)
	if err != nil {
		return nil, err
	}
	h.NumSatellites = uint(numSat)

	divFree, err := r.Bool()
	if err != nil {
		return nil, err
	}
	h.DivergenceFreeSmoothing = divFree

	smooth, err := r.U64(3)
	if err != nil {
		return nil, err
	}
	h.SmoothingInterval = uint(smooth)

	sats := make([]Satellite, h.NumSatellites)
	glonass := isGlonass(mt)
	withL2 := hasL2(mt)
	withFullPR := hasFullPR(mt)

	for i := range sats {
		satID, err := r.U64(6)
		if err != nil {
			return nil, err
		}
		sats[i].SatelliteID = uint(satID)

		if glonass {
			fcn, err := r.U64(5)
			if err != nil {
				return nil, err
			}
			sats[i].FCN = int(fcn) - 7
		}

		code, err := r.U64(1)
		if err != nil {
			return nil, err
		}
		sats[i].L1.Code = uint(code)

		prBits := uint(24)
		if glonass {
			prBits = 25
		}
		pr, err := r.U64(prBits)
		if err != nil {
			return nil, err
		}
		sats[i].L1.PseudorangeMS = uint32(pr)
		sats[i].L1.PseudorangeValid = pr != prL1Invalid

		phrDiff, err := r.I64(20)
		if err != nil {
			return nil, err
		}
		sats[i].L1.PhaseRangeDiff = int32(phrDiff)
		sats[i].L1.PhaseRangeValid = phrDiff != -cpDiffInvalid

		lock, err := r.U64(7)
		if err != nil {
			return nil, err
		}
		sats[i].L1.LockTimeSeconds = locktime.FromLegacy7Bit(uint8(lock))

		if withFullPR {
			full, err := r.U64(8)
			if err != nil {
				return nil, err
			}
			sats[i].HasFullPR = true
			sats[i].FullPRMS = uint32(full)

			cnr, err := r.U64(8)
			if err != nil {
				return nil, err
			}
			if cnr != 0 {
				sats[i].CNR = 0.25 * float64(cnr)
				sats[i].HasCNR = true
			}
		}

		if withL2 {
			l2 := &L2Obs{}
			code2, err := r.U64(2)
			if err != nil {
				return nil, err
			}
			l2.Code = uint(code2)

			prDiff, err := r.I64(14)
			if err != nil {
				return nil, err
			}
			l2.PseudorangeDiff = int32(prDiff)
			l2.PseudorangeValid = prDiff != -prL2DiffInvalid

			phrDiff2, err := r.I64(20)
			if err != nil {
				return nil, err
			}
			l2.PhaseRangeDiff = int32(phrDiff2)
			l2.PhaseRangeValid = phrDiff2 != -cpDiffInvalid

			lock2, err := r.U64(7)
			if err != nil {
				return nil, err
			}
			l2.LockTimeSeconds = locktime.FromLegacy7Bit(uint8(lock2))

			if withFullPR {
				if _, err := r.U64(8); err != nil { // L2 CNR, present but unused here
					return nil, err
				}
			}
			sats[i].L2 = l2
		}
	}

	return &Message{Header: h, Satellites: sats}, nil
}

// Encode serialises a Message back to wire bytes.
func Encode(m *Message) []byte {
	w := bitstream.NewWriter()
	mt := m.Header.MessageType
	glonass := isGlonass(mt)
	withL2 := hasL2(mt)
	withFullPR := hasFullPR(mt)

	w.WriteU64(uint64(mt), 12)
	w.WriteU64(uint64(m.Header.StationID), 12)
	towBits := uint(30)
	if glonass {
		towBits = 27
	}
	w.WriteU64(uint64(m.Header.TowMS), towBits)
	w.WriteBool(m.Header.Synchronous)
	w.WriteU64(uint64(len(m.Satellites)), 5)
	w.WriteBool(m.Header.DivergenceFreeSmoothing)
	w.WriteU64(uint64(m.Header.SmoothingInterval), 3)

	for _, sat := range m.Satellites {
		w.WriteU64(uint64(sat.SatelliteID), 6)
		if glonass {
			w.WriteU64(uint64(sat.FCN+7), 5)
		}
		w.WriteU64(uint64(sat.L1.Code), 1)
		prBits := uint(24)
		if glonass {
			prBits = 25
		}
		w.WriteU64(uint64(sat.L1.PseudorangeMS), prBits)
		w.WriteI64(int64(sat.L1.PhaseRangeDiff), 20)
		w.WriteU64(uint64(locktime.ToLegacy7Bit(sat.L1.LockTimeSeconds)), 7)

		if withFullPR {
			w.WriteU64(uint64(sat.FullPRMS), 8)
			cnr := uint64(0)
			if sat.HasCNR {
				cnr = uint64(sat.CNR / 0.25)
			}
			w.WriteU64(cnr, 8)
		}

		if withL2 && sat.L2 != nil {
			w.WriteU64(uint64(sat.L2.Code), 2)
			w.WriteI64(int64(sat.L2.PseudorangeDiff), 14)
			w.WriteI64(int64(sat.L2.PhaseRangeDiff), 20)
			w.WriteU64(uint64(locktime.ToLegacy7Bit(sat.L2.LockTimeSeconds)), 7)
			if withFullPR {
				w.WriteU64(0, 8)
			}
		}
	}
	w.PadToByte()
	return w.Bytes()
}
