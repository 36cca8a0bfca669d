package sbp

import (
	"encoding/binary"
	"math"

	"github.com/bitflux-nav/gnsswire/gnsstime"
	"github.com/bitflux-nav/gnsswire/rtcm3/ephemeris"
)

func putF64(buf []byte, v float64) []byte {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], math.Float64bits(v))
	return append(buf, tmp[:]...)
}

func getF64(b []byte) float64 { return math.Float64frombits(binary.LittleEndian.Uint64(b)) }

// EphemerisGPS is the SBP rendering of a Keplerian ephemeris (used for GPS,
// Galileo, BeiDou and QZSS alike — the wire shape is the same set of
// physically-scaled doubles regardless of which constellation produced
// them, same as the decoded record in rtcm3/ephemeris).
type EphemerisGPS struct {
	SID           SignalID
	TOE           EpochHeader // only WN/TOWms fields are meaningful here
	URA           float64
	FitIntervalS  float64
	Valid         uint8
	HealthBits    uint8
	IODE, IODC    uint32
	SqrtA, Ecc, Inc0, OmegaDot, Omega0, W, M0, IncDot, Dn float64
	Cuc, Cus, Crc, Crs, Cic, Cis float64
	Af0, Af1, Af2 float64
	Tgd float64
}

// FromKepler builds the SBP ephemeris record for a decoded Keplerian
// ephemeris, carrying over every physically-scaled field unchanged.
func FromKepler(k *ephemeris.KeplerEphemeris) EphemerisGPS {
	return EphemerisGPS{
		SID:        SignalID{Sat: uint8(k.SatID)},
		TOE:        EpochHeader{WN: uint16(k.Week), TOWms: uint32(k.ToeSeconds * 1000)},
		URA:        float64(k.URA),
		HealthBits: uint8(k.Health),
		IODE:       uint32(k.IODE),
		IODC:       uint32(k.IODC),
		SqrtA:      k.SqrtA,
		Ecc:        k.Ecc,
		Inc0:       k.Inc0,
		OmegaDot:   k.OmegaDot,
		Omega0:     k.Omega0,
		W:          k.W,
		M0:         k.M0,
		IncDot:     k.IncDot,
		Dn:         k.Dn,
		Cuc:        k.Cuc,
		Cus:        k.Cus,
		Crc:        k.Crc,
		Crs:        k.Crs,
		Cic:        k.Cic,
		Cis:        k.Cis,
		Af0:        k.Af0,
		Af1:        k.Af1,
		Af2:        k.Af2,
		Tgd:        k.Tgd,
	}
}

// ToKepler rebuilds a Keplerian ephemeris record for constellation from its
// SBP rendering. SBP carries a single toe/week pair rather than separate
// toc/toe values, so ToCSeconds is approximated as equal to ToeSeconds — the
// two agree to within a few minutes in practice.
func (e EphemerisGPS) ToKepler(constellation string) *ephemeris.KeplerEphemeris {
	toeSeconds := float64(e.TOE.TOWms) / 1000
	return &ephemeris.KeplerEphemeris{
		Constellation: constellation,
		SatID:         uint(e.SID.Sat),
		Week:          uint(e.TOE.WN),
		IODE:          uint(e.IODE),
		IODC:          uint(e.IODC),
		TocSeconds:    toeSeconds,
		ToeSeconds:    toeSeconds,
		URA:           uint(e.URA),
		SqrtA:         e.SqrtA,
		Ecc:           e.Ecc,
		Inc0:          e.Inc0,
		OmegaDot:      e.OmegaDot,
		Omega0:        e.Omega0,
		W:             e.W,
		M0:            e.M0,
		IncDot:        e.IncDot,
		Dn:            e.Dn,
		Cuc:           e.Cuc,
		Cus:           e.Cus,
		Crc:           e.Crc,
		Crs:           e.Crs,
		Cic:           e.Cic,
		Cis:           e.Cis,
		Af0:           e.Af0,
		Af1:           e.Af1,
		Af2:           e.Af2,
		Tgd:           e.Tgd,
	}
}

// EncodeEphemerisGPS serialises an EphemerisGPS into an SBP payload.
func EncodeEphemerisGPS(e EphemerisGPS) []byte {
	buf := make([]byte, 0, 200)
	buf = append(buf, e.SID.Sat, e.SID.Code)
	buf = appendU32(buf, e.TOE.TOWms)
	buf = appendU16(buf, e.TOE.WN)
	buf = appendU32(buf, e.IODE)
	buf = appendU32(buf, e.IODC)
	buf = append(buf, e.Valid, e.HealthBits)
	for _, v := range []float64{
		e.URA, e.FitIntervalS, e.SqrtA, e.Ecc, e.Inc0, e.OmegaDot, e.Omega0,
		e.W, e.M0, e.IncDot, e.Dn, e.Cuc, e.Cus, e.Crc, e.Crs, e.Cic, e.Cis,
		e.Af0, e.Af1, e.Af2, e.Tgd,
	} {
		buf = putF64(buf, v)
	}
	return buf
}

// DecodeEphemerisGPS parses an SBP Keplerian ephemeris payload.
func DecodeEphemerisGPS(payload []byte) EphemerisGPS {
	e := EphemerisGPS{
		SID:        SignalID{Sat: payload[0], Code: payload[1]},
		TOE:        EpochHeader{TOWms: binary.LittleEndian.Uint32(payload[2:6]), WN: binary.LittleEndian.Uint16(payload[6:8])},
		IODE:       binary.LittleEndian.Uint32(payload[8:12]),
		IODC:       binary.LittleEndian.Uint32(payload[12:16]),
		Valid:      payload[16],
		HealthBits: payload[17],
	}
	fields := []*float64{
		&e.URA, &e.FitIntervalS, &e.SqrtA, &e.Ecc, &e.Inc0, &e.OmegaDot, &e.Omega0,
		&e.W, &e.M0, &e.IncDot, &e.Dn, &e.Cuc, &e.Cus, &e.Crc, &e.Crs, &e.Cic, &e.Cis,
		&e.Af0, &e.Af1, &e.Af2, &e.Tgd,
	}
	off := 18
	for _, f := range fields {
		*f = getF64(payload[off : off+8])
		off += 8
	}
	return e
}

// EphemerisGlo is the SBP rendering of a GLONASS ephemeris record. TOE
// carries the toe in absolute GPS time, the same scale every other
// ephemeris message uses; RTCM 1020's t_b field (a quarter-hour index into
// the Moscow-time broadcast day) is derived from TOE only at the RTCM wire
// boundary, where the leap-second count needed for that conversion is
// actually available.
type EphemerisGlo struct {
	SID     SignalID
	FCN     int8
	TOE     EpochHeader // only WN/TOWms fields are meaningful here
	Pos, Vel, Acc [3]float64
	GammaN, TauN, DeltaTauN float64
}

// FromGlonass builds the SBP ephemeris record for a decoded GLONASS
// ephemeris, resolving its Moscow-day t_b field into an absolute GPS toe
// against referenceTime (an absolute GPS time known to be within half a
// day of the broadcast) and leapSeconds (UTC behind GPS, in seconds).
func FromGlonass(g *ephemeris.GlonassEphemeris, referenceTime gnsstime.Time, leapSeconds int) EphemerisGlo {
	toe := gnsstime.ResolveGlonassTb(g.Tb, referenceTime, leapSeconds)
	return EphemerisGlo{
		SID:       SignalID{Sat: uint8(g.SatID)},
		FCN:       int8(g.FCN),
		TOE:       EpochHeader{WN: uint16(toe.WN), TOWms: uint32(toe.TOW * 1000)},
		Pos:       g.PosKM,
		Vel:       g.VelKMS,
		Acc:       g.AccKMS2,
		GammaN:    g.GammaN,
		TauN:      g.TauN,
		DeltaTauN: g.DeltaTauN,
	}
}

// ToGlonass rebuilds a GLONASS ephemeris record from its SBP rendering,
// deriving RTCM 1020's t_b field from TOE and leapSeconds (UTC behind GPS,
// in seconds), the inverse of FromGlonass's resolution step.
func (e EphemerisGlo) ToGlonass(leapSeconds int) *ephemeris.GlonassEphemeris {
	toe := gnsstime.Time{WN: int(e.TOE.WN), TOW: float64(e.TOE.TOWms) / 1000}
	return &ephemeris.GlonassEphemeris{
		SatID:     uint(e.SID.Sat),
		FCN:       int(e.FCN),
		Tb:        gnsstime.GlonassTb(toe, leapSeconds),
		PosKM:     e.Pos,
		VelKMS:    e.Vel,
		AccKMS2:   e.Acc,
		GammaN:    e.GammaN,
		TauN:      e.TauN,
		DeltaTauN: e.DeltaTauN,
	}
}

// EncodeEphemerisGlo serialises an EphemerisGlo into an SBP payload.
func EncodeEphemerisGlo(e EphemerisGlo) []byte {
	buf := make([]byte, 0, 120)
	buf = append(buf, e.SID.Sat, e.SID.Code, byte(e.FCN))
	buf = appendU32(buf, e.TOE.TOWms)
	buf = appendU16(buf, e.TOE.WN)
	for _, v := range [][3]float64{e.Pos, e.Vel, e.Acc} {
		for _, c := range v {
			buf = putF64(buf, c)
		}
	}
	buf = putF64(buf, e.GammaN)
	buf = putF64(buf, e.TauN)
	buf = putF64(buf, e.DeltaTauN)
	return buf
}

// DecodeEphemerisGlo parses an SBP GLONASS ephemeris payload.
func DecodeEphemerisGlo(payload []byte) EphemerisGlo {
	e := EphemerisGlo{
		SID: SignalID{Sat: payload[0], Code: payload[1]},
		FCN: int8(payload[2]),
		TOE: EpochHeader{TOWms: binary.LittleEndian.Uint32(payload[3:7]), WN: binary.LittleEndian.Uint16(payload[7:9])},
	}
	off := 9
	triples := []*[3]float64{&e.Pos, &e.Vel, &e.Acc}
	for _, t := range triples {
		for i := range t {
			t[i] = getF64(payload[off : off+8])
			off += 8
		}
	}
	e.GammaN = getF64(payload[off : off+8])
	off += 8
	e.TauN = getF64(payload[off : off+8])
	off += 8
	e.DeltaTauN = getF64(payload[off : off+8])
	return e
}
