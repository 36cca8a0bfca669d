// Package ephemeris decodes and encodes the RTCM3 Keplerian ephemeris
// messages (1019 GPS, 1042 BeiDou, 1044 QZSS, 1045/1046 Galileo) and the
// non-Keplerian GLONASS ephemeris (1020). Field widths and scale factors
// follow the RTCM3 message definitions; a per-constellation layout table
// drives both the decoder and the encoder, rather than hand-rolling four
// near-identical decode functions.
package ephemeris

import (
	"math"

	"github.com/bitflux-nav/gnsswire/bitstream"
	"github.com/bitflux-nav/gnsswire/wireerr"
)

// field describes one bit field of a Keplerian ephemeris message: its width
// on the wire, whether it's signed, and the scale that converts the raw
// integer to a physical unit (semicircles, seconds, metres, ...).
type field struct {
	bits   uint
	signed bool
	scale  float64
}

// kepLayout is the set of field widths/scales that differs by
// constellation. Field order on the wire is fixed (clock terms come before
// the orbit terms, toe sits between crs/cuc/cus/sqrtA and cic/cis/crc, etc.)
// and is shared by every constellation; only widths/scales and the presence of a
// second group-delay field (BeiDou's Tgd2) vary.
type kepLayout struct {
	satIDBits   uint
	weekBits    uint
	uraBits     uint
	codeL2Bits  uint // 0 if absent (Galileo/BeiDou have no "code on L2" field)
	iodcBits    uint
	iodeBits    uint
	tocScale    float64
	toeScale    float64
	af2, af1, af0 field
	crs, dn, m0, cuc, ecc, cus, sqrtA field
	cic, omega0, cis, i0, crc, w, omegaDot, iDot field
	tgd  field
	tgd2 *field // BeiDou only
	healthBits uint
}

// KeplerEphemeris is the decoded, physically-scaled form of a Keplerian
// ephemeris record, shared across GPS/Galileo/BeiDou/QZSS.
type KeplerEphemeris struct {
	Constellation string
	SatID         uint
	Week          uint // constellation-native, truncated width (see gnsstime.WeekRolloverAdjustment)
	URA           uint
	CodeOnL2      uint // GPS/QZSS only
	IODC          uint
	IODE          uint
	TocSeconds    float64
	ToeSeconds    float64
	Af2, Af1, Af0 float64
	Crs, Dn, M0, Cuc, Ecc, Cus, SqrtA float64
	Cic, Omega0, Cis, Inc0, Crc, W, OmegaDot, IncDot float64
	Tgd  float64
	Tgd2 float64 // BeiDou only
	HasTgd2 bool
	Health uint
	FitInterval bool
}

func gpsLayout() kepLayout {
	return kepLayout{
		satIDBits: 6, weekBits: 10, uraBits: 4, codeL2Bits: 2,
		iodcBits: 10, iodeBits: 8,
		tocScale: 16, toeScale: 16,
		af2: field{8, true, pow2(-55)}, af1: field{16, true, pow2(-43)}, af0: field{22, true, pow2(-31)},
		crs: field{16, true, pow2(-5)}, dn: field{16, true, pow2(-43)}, m0: field{32, true, pow2(-31)},
		cuc: field{16, true, pow2(-29)}, ecc: field{32, false, pow2(-33)}, cus: field{16, true, pow2(-29)},
		sqrtA: field{32, false, pow2(-19)},
		cic: field{16, true, pow2(-29)}, omega0: field{32, true, pow2(-31)}, cis: field{16, true, pow2(-29)},
		i0: field{32, true, pow2(-31)}, crc: field{16, true, pow2(-5)}, w: field{32, true, pow2(-31)},
		omegaDot: field{24, true, pow2(-43)}, iDot: field{14, true, pow2(-43)},
		tgd: field{8, true, pow2(-31)},
		healthBits: 6,
	}
}

func qzssLayout() kepLayout {
	l := gpsLayout()
	return l // QZSS 1044 shares GPS's field widths/scales per the ICD.
}

func galileoLayout() kepLayout {
	return kepLayout{
		satIDBits: 6, weekBits: 12, uraBits: 8, codeL2Bits: 0,
		iodcBits: 0, iodeBits: 10,
		tocScale: 60, toeScale: 60,
		af2: field{6, true, pow2(-59)}, af1: field{21, true, pow2(-46)}, af0: field{31, true, pow2(-34)},
		crs: field{16, true, pow2(-5)}, dn: field{16, true, pow2(-43)}, m0: field{32, true, pow2(-31)},
		cuc: field{16, true, pow2(-29)}, ecc: field{32, false, pow2(-33)}, cus: field{16, true, pow2(-29)},
		sqrtA: field{32, false, pow2(-19)},
		cic: field{16, true, pow2(-29)}, omega0: field{32, true, pow2(-31)}, cis: field{16, true, pow2(-29)},
		i0: field{32, true, pow2(-31)}, crc: field{16, true, pow2(-5)}, w: field{32, true, pow2(-31)},
		omegaDot: field{24, true, pow2(-43)}, iDot: field{14, true, pow2(-43)},
		tgd: field{10, true, pow2(-32)},
		healthBits: 6,
	}
}

func beidouLayout() kepLayout {
	tgd2 := field{10, true, 1e-10}
	return kepLayout{
		satIDBits: 6, weekBits: 13, uraBits: 4, codeL2Bits: 0,
		iodcBits: 5, iodeBits: 5,
		tocScale: 8, toeScale: 8,
		af2: field{11, true, pow2(-66)}, af1: field{22, true, pow2(-50)}, af0: field{24, true, pow2(-33)},
		crs: field{18, true, pow2(-6)}, dn: field{16, true, pow2(-43)}, m0: field{32, true, pow2(-31)},
		cuc: field{18, true, pow2(-31)}, ecc: field{32, false, pow2(-33)}, cus: field{18, true, pow2(-31)},
		sqrtA: field{32, false, pow2(-19)},
		cic: field{18, true, pow2(-31)}, omega0: field{32, true, pow2(-31)}, cis: field{18, true, pow2(-31)},
		i0: field{32, true, pow2(-31)}, crc: field{18, true, pow2(-6)}, w: field{32, true, pow2(-31)},
		omegaDot: field{24, true, pow2(-43)}, iDot: field{14, true, pow2(-43)},
		tgd: field{10, true, 1e-10}, tgd2: &tgd2,
		healthBits: 1,
	}
}

func pow2(exp int) float64 {
	if exp >= 0 {
		return float64(uint64(1) << uint(exp))
	}
	result := 1.0
	for i := 0; i < -exp; i++ {
		result /= 2
	}
	return result
}

func layoutFor(constellation string) (kepLayout, int, error) {
	switch constellation {
	case "GPS":
		return gpsLayout(), 1019, nil
	case "QZSS":
		return qzssLayout(), 1044, nil
	case "Galileo":
		return galileoLayout(), 1045, nil
	case "BeiDou":
		return beidouLayout(), 1042, nil
	default:
		return kepLayout{}, 0, wireerr.New(wireerr.InvalidMessage, "unsupported ephemeris constellation "+constellation)
	}
}

func readScaled(r *bitstream.Reader, f field) (float64, error) {
	if f.signed {
		v, err := r.I64(f.bits)
		if err != nil {
			return 0, err
		}
		return float64(v) * f.scale, nil
	}
	v, err := r.U64(f.bits)
	if err != nil {
		return 0, err
	}
	return float64(v) * f.scale, nil
}

func writeScaled(w *bitstream.Writer, f field, value float64) {
	if f.signed {
		w.WriteI64(int64(math.Round(value/f.scale)), f.bits)
		return
	}
	w.WriteU64(uint64(math.Round(value/f.scale)), f.bits)
}

// Decode decodes a Keplerian ephemeris payload (message number included) for
// the given constellation. The leading message number is skipped without
// being checked, so Galileo's two variants (1045 F/NAV, 1046 I/NAV), which
// share this layout, both decode with constellation "Galileo".
func Decode(payload []byte, constellation string) (*KeplerEphemeris, error) {
	layout, _, err := layoutFor(constellation)
	if err != nil {
		return nil, err
	}
	r := bitstream.NewReader(payload)
	if _, err := r.U64(12); err != nil { // message number, caller already routed on it
		return nil, err
	}

	e := &KeplerEphemeris{Constellation: constellation}

	satID, err := r.U64(layout.satIDBits)
	if err != nil {
		return nil, err
	}
	e.SatID = uint(satID)

	week, err := r.U64(layout.weekBits)
	if err != nil {
		return nil, err
	}
	e.Week = uint(week)

	ura, err := r.U64(layout.uraBits)
	if err != nil {
		return nil, err
	}
	e.URA = uint(ura)

	if layout.codeL2Bits > 0 {
		codeL2, err := r.U64(layout.codeL2Bits)
		if err != nil {
			return nil, err
		}
		e.CodeOnL2 = uint(codeL2)
	}

	iDot, err := readScaled(r, layout.iDot)
	if err != nil {
		return nil, err
	}
	e.IncDot = iDot

	if layout.iodcBits > 0 {
		iodc, err := r.U64(layout.iodcBits)
		if err != nil {
			return nil, err
		}
		e.IODC = uint(iodc)
	}
	iode, err := r.U64(layout.iodeBits)
	if err != nil {
		return nil, err
	}
	e.IODE = uint(iode)

	toc, err := r.U64(16)
	if err != nil {
		return nil, err
	}
	e.TocSeconds = float64(toc) * layout.tocScale

	for _, pair := range []struct {
		f   field
		dst *float64
	}{
		{layout.af2, &e.Af2}, {layout.af1, &e.Af1}, {layout.af0, &e.Af0},
		{layout.crs, &e.Crs}, {layout.dn, &e.Dn}, {layout.m0, &e.M0},
		{layout.cuc, &e.Cuc}, {layout.ecc, &e.Ecc}, {layout.cus, &e.Cus},
		{layout.sqrtA, &e.SqrtA},
	} {
		v, err := readScaled(r, pair.f)
		if err != nil {
			return nil, err
		}
		*pair.dst = v
	}

	toe, err := r.U64(16)
	if err != nil {
		return nil, err
	}
	e.ToeSeconds = float64(toe) * layout.toeScale

	for _, pair := range []struct {
		f   field
		dst *float64
	}{
		{layout.cic, &e.Cic}, {layout.omega0, &e.Omega0}, {layout.cis, &e.Cis},
		{layout.i0, &e.Inc0}, {layout.crc, &e.Crc}, {layout.w, &e.W},
		{layout.omegaDot, &e.OmegaDot},
	} {
		v, err := readScaled(r, pair.f)
		if err != nil {
			return nil, err
		}
		*pair.dst = v
	}

	tgd, err := readScaled(r, layout.tgd)
	if err != nil {
		return nil, err
	}
	e.Tgd = tgd

	if layout.tgd2 != nil {
		tgd2, err := readScaled(r, *layout.tgd2)
		if err != nil {
			return nil, err
		}
		e.Tgd2 = tgd2
		e.HasTgd2 = true
	}

	health, err := r.U64(layout.healthBits)
	if err != nil {
		return nil, err
	}
	e.Health = uint(health)

	return e, nil
}

// Encode re-encodes a KeplerEphemeris using messageType as the wire message
// number (1019/1042/1044/1045/1046).
func Encode(e *KeplerEphemeris, messageType int) ([]byte, error) {
	layout, _, err := layoutFor(e.Constellation)
	if err != nil {
		return nil, err
	}
	w := bitstream.NewWriter()
	w.WriteU64(uint64(messageType), 12)
	w.WriteU64(uint64(e.SatID), layout.satIDBits)
	w.WriteU64(uint64(e.Week), layout.weekBits)
	w.WriteU64(uint64(e.URA), layout.uraBits)
	if layout.codeL2Bits > 0 {
		w.WriteU64(uint64(e.CodeOnL2), layout.codeL2Bits)
	}
	writeScaled(w, layout.iDot, e.IncDot)
	if layout.iodcBits > 0 {
		w.WriteU64(uint64(e.IODC), layout.iodcBits)
	}
	w.WriteU64(uint64(e.IODE), layout.iodeBits)
	w.WriteU64(uint64(e.TocSeconds/layout.tocScale), 16)

	for _, pair := range []struct {
		f   field
		val float64
	}{
		{layout.af2, e.Af2}, {layout.af1, e.Af1}, {layout.af0, e.Af0},
		{layout.crs, e.Crs}, {layout.dn, e.Dn}, {layout.m0, e.M0},
		{layout.cuc, e.Cuc}, {layout.ecc, e.Ecc}, {layout.cus, e.Cus},
		{layout.sqrtA, e.SqrtA},
	} {
		writeScaled(w, pair.f, pair.val)
	}

	w.WriteU64(uint64(e.ToeSeconds/layout.toeScale), 16)

	for _, pair := range []struct {
		f   field
		val float64
	}{
		{layout.cic, e.Cic}, {layout.omega0, e.Omega0}, {layout.cis, e.Cis},
		{layout.i0, e.Inc0}, {layout.crc, e.Crc}, {layout.w, e.W},
		{layout.omegaDot, e.OmegaDot},
	} {
		writeScaled(w, pair.f, pair.val)
	}

	writeScaled(w, layout.tgd, e.Tgd)
	if layout.tgd2 != nil {
		writeScaled(w, *layout.tgd2, e.Tgd2)
	}
	w.WriteU64(uint64(e.Health), layout.healthBits)
	w.PadToByte()
	return w.Bytes(), nil
}
