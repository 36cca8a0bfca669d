// Package msm decodes and encodes RTCM3 Multiple Signal Messages (MSM4-7;
// MSM1-3 message types are recognised and rejected as unsupported).
// A single generic codec handles every constellation block and variant:
// the wire layout only differs in which optional fields are present and how
// wide the fine-resolution fields are, both driven off the message type and
// variant through one shared layout table rather than per-type decoders.
package msm

import (
	"fmt"

	"github.com/bitflux-nav/gnsswire/bitstream"
	"github.com/bitflux-nav/gnsswire/gnsstime"
	"github.com/bitflux-nav/gnsswire/wireerr"
)

// MSM_MAX_CELLS bounds the satellite x signal cell table. A message whose
// cell mask would need more than this many bits is malformed.
const MSM_MAX_CELLS = 64

const (
	lenSatelliteMask = 64
	lenSignalMask    = 32
)

// Header is the portion of an MSM message common to every variant.
type Header struct {
	MessageType             int
	Constellation           string
	Variant                 int // 1..7
	StationID               uint
	EpochTime               uint
	GlonassDayOfWeek        uint // GLONASS only: 0 == Sunday
	MultipleMessage         bool
	IssueOfDataStation      uint
	SessionTransmissionTime uint
	ClockSteeringIndicator  uint
	ExternalClockIndicator  uint
	DivergenceFreeSmoothing bool
	SmoothingInterval       uint
	SatelliteMask           uint64
	SignalMask              uint32
	CellMask                uint64

	Satellites []uint
	Signals    []uint
}

// SatelliteCell holds the per-satellite fields that precede the signal
// cells on the wire: rough range, and for MSM5/MSM7 the extended
// GLONASS-FCN info byte and the rough phase range rate.
type SatelliteCell struct {
	SatelliteID      uint
	RoughRangeMillis uint  // whole milliseconds, 8 bits, 0xFF == invalid
	ExtendedInfo     uint  // 4 bits, MSM5/7 only, GLONASS FCN+7
	RoughRangeMS1000 uint  // rough range modulo 1ms, 10 bits, 1/1024 ms units
	RoughRangeRateMS int32 // m/s, MSM5/7 only, 14-bit signed, 0x2000 == invalid
	HasExtended      bool

	RoughRangeValid bool
	RoughRateValid  bool // only meaningful when HasExtended is true
}

// SignalCell holds the per-(satellite,signal) fine observables.
type SignalCell struct {
	SatelliteID    uint
	SignalID       uint
	FinePseudorange    int64 // signed, scale 2^-24 ms (MSM4/5) or 2^-29 ms (MSM6/7)
	FinePhaserange     int64 // signed, scale 2^-29 ms (MSM4/5) or 2^-31 ms (MSM6/7)
	LockTimeIndicator  uint
	HalfCycleAmbiguity bool
	CNR                uint // dBHz, scale 1/16 (MSM6/7) or whole (MSM4/5)
	FineRangeRate      int32 // m/s, MSM5/7 only, signed

	PseudorangeValid bool
	PhaserangeValid  bool
	RangeRateValid   bool
}

// Message is a fully decoded MSM payload.
type Message struct {
	Header     Header
	SatCells   []SatelliteCell
	SigCells   []SignalCell
}

// widths describes the variant-dependent field widths that differ between
// MSM4/5 (standard resolution) and MSM6/7 (extended resolution).
type widths struct {
	finePR   uint
	finePRextra uint // extra bits MSM6/7 add over MSM4/5, for sentinel shifting
	finePRbits uint
	finePhase uint
	lockBits  uint
	cnrBits   uint
	hasRate   bool
	hasSatInfo bool
}

func widthsFor(variant int) widths {
	switch variant {
	case 4:
		return widths{finePRbits: 15, finePhase: 22, lockBits: 4, cnrBits: 6}
	case 5:
		return widths{finePRbits: 15, finePhase: 22, lockBits: 4, cnrBits: 6, hasRate: true, hasSatInfo: true}
	case 6:
		return widths{finePRbits: 20, finePhase: 24, lockBits: 10, cnrBits: 10}
	case 7:
		return widths{finePRbits: 20, finePhase: 24, lockBits: 10, cnrBits: 10, hasRate: true, hasSatInfo: true}
	default:
		return widths{}
	}
}

// Sentinel values that flag a field as "not available"; the decoder
// preserves them as zero-value-with-invalid-flag rather than guessing. The
// signed fields' sentinels are the wire bit patterns 0x2000, 0x4000, ...
// read as two's complement, i.e. the most negative value of each width.
const (
	roughRangeInvalid = 0xFF
	roughRateInvalid  = -0x2000 // 0x2000, 14-bit field
	finePRInvalidMSM4 = -(1 << 14) // 0x4000, 15-bit field
	finePRInvalidMSM6 = -(1 << 19) // 0x80000, 20-bit field
	finePhaseInvalidMSM4 = -(1 << 21) // 0x200000, 22-bit field
	finePhaseInvalidMSM6 = -(1 << 23) // 0x800000, 24-bit field
	fineRateInvalid      = -0x4000    // 0x4000, 15-bit field
)

// VariantFromMessageType maps an MSM message type (1071..1137) to its
// constellation name and variant number 1-7.
func VariantFromMessageType(messageType int) (constellation string, variant int, err error) {
	if messageType < 1071 || messageType > 1137 {
		return "", 0, wireerr.New(wireerr.MessageTypeMismatch, "not an MSM message type")
	}
	base := (messageType / 10) * 10
	variant = messageType - base
	if variant < 1 || variant > 7 {
		return "", 0, wireerr.New(wireerr.UnsupportedCode, fmt.Sprintf("MSM variant %d out of range", variant))
	}
	switch base {
	case 1070:
		constellation = "GPS"
	case 1080:
		constellation = "GLONASS"
	case 1090:
		constellation = "Galileo"
	case 1100:
		constellation = "SBAS"
	case 1110:
		constellation = "QZSS"
	case 1120:
		constellation = "BeiDou"
	case 1130:
		constellation = "NavIC"
	default:
		return "", 0, wireerr.New(wireerr.UnsupportedCode, "unrecognised MSM constellation block")
	}
	return constellation, variant, nil
}

// messageTypeFor is the inverse of VariantFromMessageType.
func messageTypeFor(constellation string, variant int) (int, error) {
	var base int
	switch constellation {
	case "GPS":
		base = 1070
	case "GLONASS":
		base = 1080
	case "Galileo":
		base = 1090
	case "SBAS":
		base = 1100
	case "QZSS":
		base = 1110
	case "BeiDou":
		base = 1120
	case "NavIC":
		base = 1130
	default:
		return 0, wireerr.New(wireerr.UnsupportedCode, "unrecognised constellation "+constellation)
	}
	return base + variant, nil
}

func bitsSetBelow(mask uint64, width uint, position uint) []uint {
	items := make([]uint, 0)
	for n := uint(1); n <= width; n++ {
		bitPos := width - n
		if (mask>>bitPos)&1 == 1 {
			items = append(items, n)
		}
	}
	_ = position
	return items
}

func satellitesFromMask(mask uint64) []uint { return bitsSetBelow(mask, lenSatelliteMask, 0) }
func signalsFromMask(mask uint32) []uint    { return bitsSetBelow(uint64(mask), lenSignalMask, 0) }

// cellFlags expands the cell mask into a row-major (satellite x signal)
// slice of bools, satellite-major, matching the order the mask is packed
// in on the wire.
func cellFlags(cellMask uint64, numSat, numSig int) [][]bool {
	numCells := numSat * numSig
	cellNumber := 0
	rows := make([][]bool, numSat)
	for i := 0; i < numSat; i++ {
		row := make([]bool, numSig)
		for j := 0; j < numSig; j++ {
			cellNumber++
			bitPosition := numCells - cellNumber
			row[j] = (cellMask>>uint(bitPosition))&1 == 1
		}
		rows[i] = row
	}
	return rows
}

func packCellFlags(rows [][]bool) uint64 {
	numSat := len(rows)
	numSig := 0
	if numSat > 0 {
		numSig = len(rows[0])
	}
	numCells := numSat * numSig
	var mask uint64
	cellNumber := 0
	for i := 0; i < numSat; i++ {
		for j := 0; j < numSig; j++ {
			cellNumber++
			if rows[i][j] {
				bitPosition := numCells - cellNumber
				mask |= 1 << uint(bitPosition)
			}
		}
	}
	return mask
}

// DecodeHeader reads the common MSM header, leaving the reader positioned
// at the start of the satellite-data block.
func DecodeHeader(r *bitstream.Reader) (*Header, error) {
	messageType, err := r.U64(12)
	if err != nil {
		return nil, err
	}
	constellation, variant, err := VariantFromMessageType(int(messageType))
	if err != nil {
		return nil, err
	}

	if variant < 4 {
		return nil, wireerr.New(wireerr.UnsupportedCode, fmt.Sprintf("MSM%d not supported, only MSM4-MSM7", variant))
	}

	h := &Header{MessageType: int(messageType), Constellation: constellation, Variant: variant}

	stationID, err := r.U64(12)
	if err != nil {
		return nil, err
	}
	h.StationID = uint(stationID)

	switch constellation {
	case "GLONASS":
		dow, err := r.U64(3)
		if err != nil {
			return nil, err
		}
		h.GlonassDayOfWeek = uint(dow)
		todMS, err := r.U64(27)
		if err != nil {
			return nil, err
		}
		h.EpochTime = uint(todMS)
	case "BeiDou":
		raw, err := r.U64(30)
		if err != nil {
			return nil, err
		}
		h.EpochTime = uint(gnsstime.NormalizeBDS2TOW(uint32(raw)))
	default:
		epochTime, err := r.U64(30)
		if err != nil {
			return nil, err
		}
		h.EpochTime = uint(epochTime)
	}

	mm, err := r.Bool()
	if err != nil {
		return nil, err
	}
	h.MultipleMessage = mm

	iods, err := r.U64(3)
	if err != nil {
		return nil, err
	}
	h.IssueOfDataStation = uint(iods)

	if _, err := r.U64(7); err != nil { // reserved
		return nil, err
	}

	clkSteer, err := r.U64(2)
	if err != nil {
		return nil, err
	}
	h.ClockSteeringIndicator = uint(clkSteer)

	extClk, err := r.U64(2)
	if err != nil {
		return nil, err
	}
	h.ExternalClockIndicator = uint(extClk)

	smoothing, err := r.Bool()
	if err != nil {
		return nil, err
	}
	h.DivergenceFreeSmoothing = smoothing

	smoothInterval, err := r.U64(3)
	if err != nil {
		return nil, err
	}
	h.SmoothingInterval = uint(smoothInterval)

	satMask, err := r.U64(lenSatelliteMask)
	if err != nil {
		return nil, err
	}
	h.SatelliteMask = satMask
	h.Satellites = satellitesFromMask(satMask)

	sigMask, err := r.U32(lenSignalMask)
	if err != nil {
		return nil, err
	}
	h.SignalMask = sigMask
	h.Signals = signalsFromMask(sigMask)

	numCells := len(h.Satellites) * len(h.Signals)
	if numCells > MSM_MAX_CELLS {
		return nil, wireerr.New(wireerr.InvalidMessage, fmt.Sprintf("cell mask needs %d bits, max %d", numCells, MSM_MAX_CELLS))
	}
	cellMask, err := r.U64(uint(numCells))
	if err != nil {
		return nil, err
	}
	h.CellMask = cellMask

	return h, nil
}

// EncodeHeader writes the common MSM header.
func EncodeHeader(w *bitstream.Writer, h *Header) error {
	messageType, err := messageTypeFor(h.Constellation, h.Variant)
	if err != nil {
		return err
	}
	w.WriteU64(uint64(messageType), 12)
	w.WriteU64(uint64(h.StationID), 12)
	if h.Constellation == "GLONASS" {
		w.WriteU64(uint64(h.GlonassDayOfWeek), 3)
		w.WriteU64(uint64(h.EpochTime), 27)
	} else {
		w.WriteU64(uint64(h.EpochTime), 30)
	}
	w.WriteBool(h.MultipleMessage)
	w.WriteU64(uint64(h.IssueOfDataStation), 3)
	w.WriteU64(0, 7)
	w.WriteU64(uint64(h.ClockSteeringIndicator), 2)
	w.WriteU64(uint64(h.ExternalClockIndicator), 2)
	w.WriteBool(h.DivergenceFreeSmoothing)
	w.WriteU64(uint64(h.SmoothingInterval), 3)
	w.WriteU64(h.SatelliteMask, lenSatelliteMask)
	w.WriteU32(h.SignalMask, lenSignalMask)
	numCells := len(h.Satellites) * len(h.Signals)
	w.WriteU64(h.CellMask, uint(numCells))
	return nil
}

// Decode parses a complete MSM payload: header, satellite cells and signal
// cells, in the wire order: all satellites' rough-range
// fields first, then all signal cells, the same "column-major across
// satellites" order the wire format (and this package's satellite-cell
// decoder) uses rather than an interleaved per-satellite record.
func Decode(payload []byte) (*Message, error) {
	r := bitstream.NewReader(payload)
	h, err := DecodeHeader(r)
	if err != nil {
		return nil, err
	}
	wd := widthsFor(h.Variant)

	numSat := len(h.Satellites)
	satCells := make([]SatelliteCell, numSat)
	for i, satID := range h.Satellites {
		satCells[i].SatelliteID = satID
	}
	for i := range satCells {
		rough, err := r.U64(8)
		if err != nil {
			return nil, err
		}
		satCells[i].RoughRangeValid = rough != roughRangeInvalid
		if satCells[i].RoughRangeValid {
			satCells[i].RoughRangeMillis = uint(rough)
		}
	}
	if wd.hasSatInfo {
		for i := range satCells {
			info, err := r.U64(4)
			if err != nil {
				return nil, err
			}
			satCells[i].ExtendedInfo = uint(info)
			satCells[i].HasExtended = true
		}
	}
	for i := range satCells {
		frac, err := r.U64(10)
		if err != nil {
			return nil, err
		}
		satCells[i].RoughRangeMS1000 = uint(frac)
	}
	if wd.hasRate {
		for i := range satCells {
			rate, err := r.I64(14)
			if err != nil {
				return nil, err
			}
			satCells[i].RoughRateValid = rate != roughRateInvalid
			if satCells[i].RoughRateValid {
				satCells[i].RoughRangeRateMS = int32(rate)
			}
		}
	}

	cells := cellFlags(h.CellMask, numSat, len(h.Signals))
	type satSig struct {
		satID, sigID uint
	}
	var pairs []satSig
	for i, satID := range h.Satellites {
		for j, sigID := range h.Signals {
			if cells[i][j] {
				pairs = append(pairs, satSig{satID, sigID})
			}
		}
	}

	sigCells := make([]SignalCell, len(pairs))
	for i, p := range pairs {
		sigCells[i].SatelliteID = p.satID
		sigCells[i].SignalID = p.sigID
	}
	for i := range sigCells {
		pr, err := r.I64(wd.finePRbits)
		if err != nil {
			return nil, err
		}
		sigCells[i].PseudorangeValid = !isInvalidFinePR(pr, h.Variant)
		if sigCells[i].PseudorangeValid {
			sigCells[i].FinePseudorange = pr
		}
	}
	for i := range sigCells {
		cp, err := r.I64(wd.finePhase)
		if err != nil {
			return nil, err
		}
		sigCells[i].PhaserangeValid = !isInvalidFinePhase(cp, h.Variant)
		if sigCells[i].PhaserangeValid {
			sigCells[i].FinePhaserange = cp
		}
	}
	for i := range sigCells {
		lock, err := r.U64(wd.lockBits)
		if err != nil {
			return nil, err
		}
		sigCells[i].LockTimeIndicator = uint(lock)
	}
	for i := range sigCells {
		hc, err := r.Bool()
		if err != nil {
			return nil, err
		}
		sigCells[i].HalfCycleAmbiguity = hc
	}
	for i := range sigCells {
		cnr, err := r.U64(wd.cnrBits)
		if err != nil {
			return nil, err
		}
		sigCells[i].CNR = uint(cnr)
	}
	if wd.hasRate {
		for i := range sigCells {
			rate, err := r.I64(15)
			if err != nil {
				return nil, err
			}
			sigCells[i].RangeRateValid = rate != fineRateInvalid
			if sigCells[i].RangeRateValid {
				sigCells[i].FineRangeRate = int32(rate)
			}
		}
	}

	return &Message{Header: *h, SatCells: satCells, SigCells: sigCells}, nil
}

func isInvalidFinePR(v int64, variant int) bool {
	if variant == 6 || variant == 7 {
		return v == finePRInvalidMSM6
	}
	return v == finePRInvalidMSM4
}

func isInvalidFinePhase(v int64, variant int) bool {
	if variant == 6 || variant == 7 {
		return v == finePhaseInvalidMSM6
	}
	return v == finePhaseInvalidMSM4
}

// Encode serialises a Message back to wire bytes, mirroring Decode's field
// order exactly.
func Encode(m *Message) ([]byte, error) {
	w := bitstream.NewWriter()
	if err := EncodeHeader(w, &m.Header); err != nil {
		return nil, err
	}
	wd := widthsFor(m.Header.Variant)

	for _, c := range m.SatCells {
		w.WriteU64(uint64(c.RoughRangeMillis), 8)
	}
	if wd.hasSatInfo {
		for _, c := range m.SatCells {
			w.WriteU64(uint64(c.ExtendedInfo), 4)
		}
	}
	for _, c := range m.SatCells {
		w.WriteU64(uint64(c.RoughRangeMS1000), 10)
	}
	if wd.hasRate {
		for _, c := range m.SatCells {
			w.WriteI64(int64(c.RoughRangeRateMS), 14)
		}
	}

	for _, c := range m.SigCells {
		w.WriteI64(c.FinePseudorange, wd.finePRbits)
	}
	for _, c := range m.SigCells {
		w.WriteI64(c.FinePhaserange, wd.finePhase)
	}
	for _, c := range m.SigCells {
		w.WriteU64(uint64(c.LockTimeIndicator), wd.lockBits)
	}
	for _, c := range m.SigCells {
		w.WriteBool(c.HalfCycleAmbiguity)
	}
	for _, c := range m.SigCells {
		w.WriteU64(uint64(c.CNR), wd.cnrBits)
	}
	if wd.hasRate {
		for _, c := range m.SigCells {
			w.WriteI64(int64(c.FineRangeRate), 15)
		}
	}
	w.PadToByte()
	return w.Bytes(), nil
}

// BuildCellMask derives the wire cell mask from per-satellite signal
// presence, for callers constructing a Message to encode rather than
// round-tripping a decoded one.
func BuildCellMask(present [][]bool) uint64 {
	return packCellFlags(present)
}
