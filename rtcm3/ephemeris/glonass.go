package ephemeris

import (
	"github.com/bitflux-nav/gnsswire/bitstream"
	"github.com/bitflux-nav/gnsswire/wireerr"
)

// GlonassEphemeris is the decoded, physically-scaled form of an RTCM3
// message type 1020: GLONASS's non-Keplerian pos/vel/acc broadcast
// ephemeris. Positions/velocities/accelerations and the clock terms are
// sign-magnitude on the wire, not two's complement.
type GlonassEphemeris struct {
	SatID              uint // slot number
	FCN                int  // frequency channel number, -7..+6
	AlmanacHealthValid bool
	P1                 uint
	TkHours, TkMinutes uint
	TkSeconds30        bool // true if the 30s bit is set
	HealthBit          bool
	P2                 bool
	Tb                 uint // quarter-hour index, Moscow time
	PosKM              [3]float64
	VelKMS             [3]float64
	AccKMS2            [3]float64
	P3                 bool
	GammaN             float64
	P                  uint
	LN3                bool
	TauN               float64
	DeltaTauN          float64
	EN                 uint
	P4                 bool
	FT                 uint
	NT                 uint
	M                  uint
	AdditionalDataAvail bool
	NA                 uint
	TauC               float64
	N4                 uint
	TauGPS             float64
	LN5                bool
}

// signMagField describes one of the nine sign-magnitude pos/vel/acc
// fields: bit width (including the sign bit) and scale.
type signMagField struct {
	bits  uint
	scale float64
}

var (
	posField = signMagField{27, pow2(-11)}
	velField = signMagField{24, pow2(-20)}
	accField = signMagField{5, pow2(-30)}
)

func readSignMag(r *bitstream.Reader, f signMagField) (float64, error) {
	v, err := r.SignMagnitude(f.bits)
	if err != nil {
		return 0, err
	}
	return float64(v) * f.scale, nil
}

func writeSignMag(w *bitstream.Writer, f signMagField, value float64) {
	w.WriteSignMagnitude(int64(value/f.scale), f.bits)
}

// DecodeGlonass decodes a message type 1020 payload.
func DecodeGlonass(payload []byte) (*GlonassEphemeris, error) {
	r := bitstream.NewReader(payload)
	messageType, err := r.U64(12)
	if err != nil {
		return nil, err
	}
	if messageType != 1020 {
		return nil, wireerr.New(wireerr.MessageTypeMismatch, "not a 1020 message")
	}

	e := &GlonassEphemeris{}

	satID, err := r.U64(6)
	if err != nil {
		return nil, err
	}
	e.SatID = uint(satID)

	fcnRaw, err := r.U64(5)
	if err != nil {
		return nil, err
	}
	e.FCN = int(fcnRaw) - 7

	almanacHealth, err := r.Bool()
	if err != nil {
		return nil, err
	}
	e.AlmanacHealthValid = almanacHealth

	p1, err := r.U64(2)
	if err != nil {
		return nil, err
	}
	e.P1 = uint(p1)

	tkH, err := r.U64(5)
	if err != nil {
		return nil, err
	}
	e.TkHours = uint(tkH)
	tkM, err := r.U64(6)
	if err != nil {
		return nil, err
	}
	e.TkMinutes = uint(tkM)
	tkS, err := r.Bool()
	if err != nil {
		return nil, err
	}
	e.TkSeconds30 = tkS

	health, err := r.Bool()
	if err != nil {
		return nil, err
	}
	e.HealthBit = health

	p2, err := r.Bool()
	if err != nil {
		return nil, err
	}
	e.P2 = p2

	tb, err := r.U64(7)
	if err != nil {
		return nil, err
	}
	e.Tb = uint(tb)

	for i := 0; i < 3; i++ {
		v, err := readSignMag(r, velField)
		if err != nil {
			return nil, err
		}
		e.VelKMS[i] = v
		p, err := readSignMag(r, posField)
		if err != nil {
			return nil, err
		}
		e.PosKM[i] = p
		a, err := readSignMag(r, accField)
		if err != nil {
			return nil, err
		}
		e.AccKMS2[i] = a
	}

	p3, err := r.Bool()
	if err != nil {
		return nil, err
	}
	e.P3 = p3

	gamma, err := r.SignMagnitude(11)
	if err != nil {
		return nil, err
	}
	e.GammaN = float64(gamma) * pow2(-40)

	p, err := r.U64(2)
	if err != nil {
		return nil, err
	}
	e.P = uint(p)

	ln3, err := r.Bool()
	if err != nil {
		return nil, err
	}
	e.LN3 = ln3

	tauN, err := r.SignMagnitude(22)
	if err != nil {
		return nil, err
	}
	e.TauN = float64(tauN) * pow2(-30)

	deltaTauN, err := r.SignMagnitude(5)
	if err != nil {
		return nil, err
	}
	e.DeltaTauN = float64(deltaTauN) * pow2(-30)

	en, err := r.U64(5)
	if err != nil {
		return nil, err
	}
	e.EN = uint(en)

	p4, err := r.Bool()
	if err != nil {
		return nil, err
	}
	e.P4 = p4

	ft, err := r.U64(4)
	if err != nil {
		return nil, err
	}
	e.FT = uint(ft)

	nt, err := r.U64(11)
	if err != nil {
		return nil, err
	}
	e.NT = uint(nt)

	m, err := r.U64(2)
	if err != nil {
		return nil, err
	}
	e.M = uint(m)

	additional, err := r.Bool()
	if err != nil {
		return nil, err
	}
	e.AdditionalDataAvail = additional

	na, err := r.U64(11)
	if err != nil {
		return nil, err
	}
	e.NA = uint(na)

	tauC, err := r.SignMagnitude(32)
	if err != nil {
		return nil, err
	}
	e.TauC = float64(tauC) * pow2(-31)

	n4, err := r.U64(5)
	if err != nil {
		return nil, err
	}
	e.N4 = uint(n4)

	tauGPS, err := r.SignMagnitude(22)
	if err != nil {
		return nil, err
	}
	e.TauGPS = float64(tauGPS) * pow2(-30)

	ln5, err := r.Bool()
	if err != nil {
		return nil, err
	}
	e.LN5 = ln5

	return e, nil
}

// EncodeGlonass re-encodes a GlonassEphemeris as a 1020 payload.
func EncodeGlonass(e *GlonassEphemeris) []byte {
	w := bitstream.NewWriter()
	w.WriteU64(1020, 12)
	w.WriteU64(uint64(e.SatID), 6)
	w.WriteU64(uint64(e.FCN+7), 5)
	w.WriteBool(e.AlmanacHealthValid)
	w.WriteU64(uint64(e.P1), 2)
	w.WriteU64(uint64(e.TkHours), 5)
	w.WriteU64(uint64(e.TkMinutes), 6)
	w.WriteBool(e.TkSeconds30)
	w.WriteBool(e.HealthBit)
	w.WriteBool(e.P2)
	w.WriteU64(uint64(e.Tb), 7)
	for i := 0; i < 3; i++ {
		writeSignMag(w, velField, e.VelKMS[i])
		writeSignMag(w, posField, e.PosKM[i])
		writeSignMag(w, accField, e.AccKMS2[i])
	}
	w.WriteBool(e.P3)
	w.WriteSignMagnitude(int64(e.GammaN/pow2(-40)), 11)
	w.WriteU64(uint64(e.P), 2)
	w.WriteBool(e.LN3)
	w.WriteSignMagnitude(int64(e.TauN/pow2(-30)), 22)
	w.WriteSignMagnitude(int64(e.DeltaTauN/pow2(-30)), 5)
	w.WriteU64(uint64(e.EN), 5)
	w.WriteBool(e.P4)
	w.WriteU64(uint64(e.FT), 4)
	w.WriteU64(uint64(e.NT), 11)
	w.WriteU64(uint64(e.M), 2)
	w.WriteBool(e.AdditionalDataAvail)
	w.WriteU64(uint64(e.NA), 11)
	w.WriteSignMagnitude(int64(e.TauC/pow2(-31)), 32)
	w.WriteU64(uint64(e.N4), 5)
	w.WriteSignMagnitude(int64(e.TauGPS/pow2(-30)), 22)
	w.WriteBool(e.LN5)
	w.PadToByte()
	return w.Bytes()
}

// MoscowTbToUTCOffsetHours is the fixed UTC-SU offset used to convert t_b
// (quarter-hour index in Moscow daylight time) to GPS time.
const MoscowTbToUTCOffsetHours = 3
