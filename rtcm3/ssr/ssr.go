// Package ssr decodes and encodes a representative subset of the RTCM3
// State Space Representation correction messages: 1057/1240 (orbit
// corrections, GPS/Galileo), 1058 (GPS clock corrections) and 1060 (GPS
// combined orbit+clock corrections). The full SSR family spans dozens of
// near-identical per-constellation message types (1057-1066,
// 1240-1270...); this codec generalises the two correction shapes
// (orbit, clock) the same way the ephemeris codec generalises across
// constellations, rather than special-casing every message number.
package ssr

import (
	"github.com/bitflux-nav/gnsswire/bitstream"
	"github.com/bitflux-nav/gnsswire/wireerr"
)

// Header is the common SSR correction-message preamble.
type Header struct {
	MessageType        int
	EpochTime          uint // GPS: seconds of week; scaled per constellation elsewhere
	UpdateInterval     uint
	MultipleMessage    bool
	SatelliteRefDatum  bool // orbit messages only
	IODSSR             uint
	ProviderID         uint
	SolutionID         uint
	NumSatellites      uint
}

// OrbitCorrection is one satellite's orbit correction record.
type OrbitCorrection struct {
	SatelliteID       uint
	IODE              uint
	DeltaRadialM      float64
	DeltaAlongM       float64
	DeltaCrossM       float64
	DotDeltaRadialMS  float64
	DotDeltaAlongMS   float64
	DotDeltaCrossMS   float64
}

// ClockCorrection is one satellite's clock correction record.
type ClockCorrection struct {
	SatelliteID uint
	C0M         float64
	C1MS        float64
	C2MS2       float64
}

// OrbitMessage is a decoded 1057 (GPS) or 1240 (Galileo) message.
type OrbitMessage struct {
	Header      Header
	Corrections []OrbitCorrection
}

// ClockMessage is a decoded 1058 (GPS clock) message.
type ClockMessage struct {
	Header      Header
	Corrections []ClockCorrection
}

// CombinedMessage is a decoded 1060 (GPS combined orbit+clock) message.
type CombinedMessage struct {
	Header Header
	Orbits []OrbitCorrection
	Clocks []ClockCorrection
}

func decodeHeader(r *bitstream.Reader, messageType int, withRefDatum bool) (*Header, error) {
	mt, err := r.U64(12)
	if err != nil {
		return nil, err
	}
	if int(mt) != messageType {
		return nil, wireerr.New(wireerr.MessageTypeMismatch, "unexpected SSR message type")
	}
	h := &Header{MessageType: messageType}

	epoch, err := r.U64(20)
	if err != nil {
		return nil, err
	}
	h.EpochTime = uint(epoch)

	interval, err := r.U64(4)
	if err != nil {
		return nil, err
	}
	h.UpdateInterval = uint(interval)

	mm, err := r.Bool()
	if err != nil {
		return nil, err
	}
	h.MultipleMessage = mm

	if withRefDatum {
		refDatum, err := r.Bool()
		if err != nil {
			return nil, err
		}
		h.SatelliteRefDatum = refDatum
	}

	iod, err := r.U64(4)
	if err != nil {
		return nil, err
	}
	h.IODSSR = uint(iod)

	provider, err := r.U64(16)
	if err != nil {
		return nil, err
	}
	h.ProviderID = uint(provider)

	solution, err := r.U64(4)
	if err != nil {
		return nil, err
	}
	h.SolutionID = uint(solution)

	numSat, err := r.U64(6)
	if err != nil {
		return nil, err
	}
	h.NumSatellites = uint(numSat)

	return h, nil
}

func encodeHeader(w *bitstream.Writer, h *Header, withRefDatum bool, numSat int) {
	w.WriteU64(uint64(h.MessageType), 12)
	w.WriteU64(uint64(h.EpochTime), 20)
	w.WriteU64(uint64(h.UpdateInterval), 4)
	w.WriteBool(h.MultipleMessage)
	if withRefDatum {
		w.WriteBool(h.SatelliteRefDatum)
	}
	w.WriteU64(uint64(h.IODSSR), 4)
	w.WriteU64(uint64(h.ProviderID), 16)
	w.WriteU64(uint64(h.SolutionID), 4)
	w.WriteU64(uint64(numSat), 6)
}

func decodeOrbitCorrection(r *bitstream.Reader, iodeBits uint) (OrbitCorrection, error) {
	var c OrbitCorrection
	satID, err := r.U64(6)
	if err != nil {
		return c, err
	}
	c.SatelliteID = uint(satID)

	iode, err := r.U64(iodeBits)
	if err != nil {
		return c, err
	}
	c.IODE = uint(iode)

	radial, err := r.I64(22)
	if err != nil {
		return c, err
	}
	c.DeltaRadialM = float64(radial) * 0.1e-3

	along, err := r.I64(20)
	if err != nil {
		return c, err
	}
	c.DeltaAlongM = float64(along) * 0.4e-3

	cross, err := r.I64(20)
	if err != nil {
		return c, err
	}
	c.DeltaCrossM = float64(cross) * 0.4e-3

	dotRadial, err := r.I64(21)
	if err != nil {
		return c, err
	}
	c.DotDeltaRadialMS = float64(dotRadial) * 0.001e-3

	dotAlong, err := r.I64(19)
	if err != nil {
		return c, err
	}
	c.DotDeltaAlongMS = float64(dotAlong) * 0.004e-3

	dotCross, err := r.I64(19)
	if err != nil {
		return c, err
	}
	c.DotDeltaCrossMS = float64(dotCross) * 0.004e-3

	return c, nil
}

func encodeOrbitCorrection(w *bitstream.Writer, c OrbitCorrection, iodeBits uint) {
	w.WriteU64(uint64(c.SatelliteID), 6)
	w.WriteU64(uint64(c.IODE), iodeBits)
	w.WriteI64(int64(c.DeltaRadialM/0.1e-3), 22)
	w.WriteI64(int64(c.DeltaAlongM/0.4e-3), 20)
	w.WriteI64(int64(c.DeltaCrossM/0.4e-3), 20)
	w.WriteI64(int64(c.DotDeltaRadialMS/0.001e-3), 21)
	w.WriteI64(int64(c.DotDeltaAlongMS/0.004e-3), 19)
	w.WriteI64(int64(c.DotDeltaCrossMS/0.004e-3), 19)
}

func decodeClockCorrection(r *bitstream.Reader) (ClockCorrection, error) {
	var c ClockCorrection
	satID, err := r.U64(6)
	if err != nil {
		return c, err
	}
	c.SatelliteID = uint(satID)

	c0, err := r.I64(22)
	if err != nil {
		return c, err
	}
	c.C0M = float64(c0) * 0.1e-3

	c1, err := r.I64(21)
	if err != nil {
		return c, err
	}
	c.C1MS = float64(c1) * 0.001e-3

	c2, err := r.I64(27)
	if err != nil {
		return c, err
	}
	c.C2MS2 = float64(c2) * 0.00002e-3

	return c, nil
}

func encodeClockCorrection(w *bitstream.Writer, c ClockCorrection) {
	w.WriteU64(uint64(c.SatelliteID), 6)
	w.WriteI64(int64(c.C0M/0.1e-3), 22)
	w.WriteI64(int64(c.C1MS/0.001e-3), 21)
	w.WriteI64(int64(c.C2MS2/0.00002e-3), 27)
}

// iodeBitsFor returns the IODE field width, which RTCM SSR specifies as
// 8 bits for GPS and 10 bits for Galileo.
func iodeBitsFor(messageType int) uint {
	if messageType == 1240 {
		return 10
	}
	return 8
}

// DecodeOrbit parses a 1057 or 1240 payload.
func DecodeOrbit(payload []byte, messageType int) (*OrbitMessage, error) {
	r := bitstream.NewReader(payload)
	h, err := decodeHeader(r, messageType, true)
	if err != nil {
		return nil, err
	}
	corrections := make([]OrbitCorrection, h.NumSatellites)
	for i := range corrections {
		c, err := decodeOrbitCorrection(r, iodeBitsFor(messageType))
		if err != nil {
			return nil, err
		}
		corrections[i] = c
	}
	return &OrbitMessage{Header: *h, Corrections: corrections}, nil
}

// EncodeOrbit serialises an OrbitMessage back to wire bytes.
func EncodeOrbit(m *OrbitMessage) []byte {
	w := bitstream.NewWriter()
	encodeHeader(w, &m.Header, true, len(m.Corrections))
	for _, c := range m.Corrections {
		encodeOrbitCorrection(w, c, iodeBitsFor(m.Header.MessageType))
	}
	w.PadToByte()
	return w.Bytes()
}

// DecodeClock parses a 1058 payload.
func DecodeClock(payload []byte) (*ClockMessage, error) {
	r := bitstream.NewReader(payload)
	h, err := decodeHeader(r, 1058, false)
	if err != nil {
		return nil, err
	}
	corrections := make([]ClockCorrection, h.NumSatellites)
	for i := range corrections {
		c, err := decodeClockCorrection(r)
		if err != nil {
			return nil, err
		}
		corrections[i] = c
	}
	return &ClockMessage{Header: *h, Corrections: corrections}, nil
}

// EncodeClock serialises a ClockMessage back to wire bytes.
func EncodeClock(m *ClockMessage) []byte {
	w := bitstream.NewWriter()
	encodeHeader(w, &m.Header, false, len(m.Corrections))
	for _, c := range m.Corrections {
		encodeClockCorrection(w, c)
	}
	w.PadToByte()
	return w.Bytes()
}

// DecodeCombined parses a 1060 payload (orbit and clock corrections
// interleaved per-satellite, rather than in two separate blocks).
func DecodeCombined(payload []byte) (*CombinedMessage, error) {
	r := bitstream.NewReader(payload)
	h, err := decodeHeader(r, 1060, true)
	if err != nil {
		return nil, err
	}
	orbits := make([]OrbitCorrection, h.NumSatellites)
	clocks := make([]ClockCorrection, h.NumSatellites)
	for i := range orbits {
		o, err := decodeOrbitCorrection(r, iodeBitsFor(1060))
		if err != nil {
			return nil, err
		}
		orbits[i] = o
		c, err := decodeClockCorrection(r)
		if err != nil {
			return nil, err
		}
		clocks[i] = c
	}
	return &CombinedMessage{Header: *h, Orbits: orbits, Clocks: clocks}, nil
}

// EncodeCombined serialises a CombinedMessage back to wire bytes.
func EncodeCombined(m *CombinedMessage) []byte {
	w := bitstream.NewWriter()
	encodeHeader(w, &m.Header, true, len(m.Orbits))
	for i := range m.Orbits {
		encodeOrbitCorrection(w, m.Orbits[i], iodeBitsFor(1060))
		encodeClockCorrection(w, m.Clocks[i])
	}
	w.PadToByte()
	return w.Bytes()
}
