package sbp

import "encoding/binary"

// SignalID identifies a satellite/signal pair the way SBP observations do:
// a satellite number and a code from the canonical code table.
type SignalID struct {
	Sat  uint8
	Code uint8
}

// Observation is one signal's measurement within an epoch, using the units
// SBP wire messages use: pseudorange in 1/50 m, carrier phase split into
// whole cycles and a fractional byte, Doppler split into whole Hz and a
// fractional byte, CN0 in 1/4 dB-Hz, and a lock-time indicator.
type Observation struct {
	SID      SignalID
	P        uint32 // pseudorange, 0.02 m units
	LCycles  int32  // carrier phase, integer part in cycles
	LFrac    uint8  // carrier phase fractional part, units of 1/256 cycle
	DHz      int16  // Doppler, integer part in Hz
	DFrac    uint8  // Doppler fractional part, units of 1/256 Hz
	CN0      uint8  // 1/4 dB-Hz
	Lock     uint8
	Flags    uint8
}

// Observation flag bits, per the wire format's bit layout.
const (
	ObsFlagPRValid     = 1 << 0
	ObsFlagCPValid     = 1 << 1
	ObsFlagHalfCycle   = 1 << 2
	ObsFlagDopplerValid = 1 << 3
	ObsFlagRAIMExcluded = 1 << 7
)

// obsEncodedLen is the byte length of one packed Observation record: 2
// (sid) + 4 (P) + 4 (L integer) + 1 (L frac) + 2 (D integer) + 1 (D frac) +
// 1 (cn0) + 1 (lock) + 1 (flags).
const obsEncodedLen = 17

// headerEncodedLen is the byte length of an observation epoch header: 4
// (tow_ms) + 2 (wn) + 4 (ns_residual) + 1 (n_obs byte).
const headerEncodedLen = 11

// MaxObsPerFrame is the number of observations that fit in one SBP frame
// alongside the header, given the 255-byte payload ceiling:
// floor((255-headerEncodedLen)/obsEncodedLen) = 14.
const MaxObsPerFrame = (255 - headerEncodedLen) / obsEncodedLen

// EpochHeader carries the common time and sequencing fields shared by every
// fragment of one observation epoch.
type EpochHeader struct {
	WN         uint16
	TOWms      uint32
	NsResidual int32
	NumObs     uint8 // (total_frames << 4) | frame_index
}

// EncodeObsFrame packs one fragment's header and observations into an SBP
// MSG_OBS payload.
func EncodeObsFrame(h EpochHeader, obs []Observation) []byte {
	buf := make([]byte, 0, headerEncodedLen+len(obs)*obsEncodedLen)
	buf = appendU32(buf, h.TOWms)
	buf = appendU16(buf, h.WN)
	buf = appendU32(buf, uint32(h.NsResidual))
	buf = append(buf, h.NumObs)

	for _, o := range obs {
		buf = append(buf, o.SID.Sat, o.SID.Code)
		buf = appendU32(buf, o.P)
		buf = appendU32(buf, uint32(o.LCycles))
		buf = append(buf, o.LFrac)
		buf = appendU16(buf, uint16(o.DHz))
		buf = append(buf, o.DFrac, o.CN0, o.Lock, o.Flags)
	}
	return buf
}

// DecodeObsFrame unpacks one MSG_OBS payload into its header and
// observations.
func DecodeObsFrame(payload []byte) (EpochHeader, []Observation) {
	h := EpochHeader{
		TOWms:      binary.LittleEndian.Uint32(payload[0:4]),
		WN:         binary.LittleEndian.Uint16(payload[4:6]),
		NsResidual: int32(binary.LittleEndian.Uint32(payload[6:10])),
		NumObs:     payload[10],
	}

	body := payload[headerEncodedLen:]
	n := len(body) / obsEncodedLen
	obs := make([]Observation, n)
	for i := 0; i < n; i++ {
		b := body[i*obsEncodedLen : (i+1)*obsEncodedLen]
		obs[i] = Observation{
			SID:     SignalID{Sat: b[0], Code: b[1]},
			P:       binary.LittleEndian.Uint32(b[2:6]),
			LCycles: int32(binary.LittleEndian.Uint32(b[6:10])),
			LFrac:   b[10],
			DHz:     int16(binary.LittleEndian.Uint16(b[11:13])),
			DFrac:   b[13],
			CN0:     b[14],
			Lock:    b[15],
			Flags:   b[16],
		}
	}
	return h, obs
}

// FrameCountAndIndex splits a NumObs byte into the total fragment count and
// this fragment's zero-based index.
func FrameCountAndIndex(numObs uint8) (total, index int) {
	return int(numObs >> 4), int(numObs & 0x0F)
}

// PackNumObs builds the NumObs byte from a total fragment count and index.
func PackNumObs(total, index int) uint8 {
	return uint8(total<<4) | uint8(index&0x0F)
}

func appendU32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}
