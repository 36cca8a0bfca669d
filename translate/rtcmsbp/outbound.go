package rtcmsbp

import (
	"github.com/bitflux-nav/gnsswire/rtcm3"
	"github.com/bitflux-nav/gnsswire/rtcm3/ephemeris"
	"github.com/bitflux-nav/gnsswire/rtcm3/legacy"
	"github.com/bitflux-nav/gnsswire/rtcm3/msm"
	"github.com/bitflux-nav/gnsswire/rtcm3/proprietary"
	"github.com/bitflux-nav/gnsswire/rtcm3/station"
	"github.com/bitflux-nav/gnsswire/sbp"
	"github.com/bitflux-nav/gnsswire/sbp/unpack"
)

// ObsMode selects which RTCM3 observation family Outbound emits.
type ObsMode int

const (
	// ObsModeMSM emits MSM4 messages (one per constellation present in the
	// epoch).
	ObsModeMSM ObsMode = iota
	// ObsModeLegacy emits 1004/1012, the pre-MSM GPS/GLONASS formats.
	ObsModeLegacy
)

// Outbound converts SBP frames back into RTCM3, the reverse of State. One
// Outbound per output station; not safe for concurrent use.
type Outbound struct {
	StationID uint
	Mode      ObsMode

	// LeapSeconds, if non-nil, is consulted first when a GLONASS
	// ephemeris needs a leap-second value. LeapSecondsFunc is consulted
	// next (e.g. a wrapper around a Unix-time-to-UTC-offset table). A
	// known absolute time alone is not enough to derive t_b; if neither
	// source has a leap-second count, GLONASS ephemeris emission is
	// suppressed.
	LeapSeconds     *int
	LeapSecondsFunc func() (int, bool)

	unpacker *unpack.Unpacker
	raw      []byte
}

// NewOutbound creates an Outbound that emits MSM4 observations by default.
func NewOutbound() *Outbound {
	o := &Outbound{Mode: ObsModeMSM}
	o.unpacker = unpack.New(func(e unpack.Epoch) { o.emitObsEpoch(e) })
	return o
}

func (o *Outbound) enqueue(frame []byte) { o.raw = append(o.raw, frame...) }

// HandleSBP dispatches one decoded SBP frame into the appropriate RTCM3
// output. Frame types this module doesn't translate are wrapped unchanged
// in a Swift proprietary envelope rather than dropped.
func (o *Outbound) HandleSBP(f *sbp.Frame) error {
	switch f.MsgType {
	case sbp.MsgBasePosECEF:
		return o.handleBasePosition(f.Payload)
	case sbp.MsgObs:
		h, obs := sbp.DecodeObsFrame(f.Payload)
		o.unpacker.Push(h, obs)
		return nil
	case sbp.MsgEphemerisGPS:
		return o.handleKeplerEphemeris(f.Payload, rtcm3.ConstellationGPS)
	case sbp.MsgEphemerisGal:
		return o.handleKeplerEphemeris(f.Payload, rtcm3.ConstellationGalileo)
	case sbp.MsgEphemerisBds:
		return o.handleKeplerEphemeris(f.Payload, rtcm3.ConstellationBeidou)
	case sbp.MsgEphemerisQzss:
		return o.handleKeplerEphemeris(f.Payload, rtcm3.ConstellationQZSS)
	case sbp.MsgEphemerisGlo:
		return o.handleGlonassEphemeris(f.Payload)
	default:
		return o.wrapUnknown(f)
	}
}

func (o *Outbound) handleBasePosition(payload []byte) error {
	pos := sbp.DecodeBasePositionECEF(payload)
	a := &station.ARP{
		StationID:     o.StationID,
		AntennaRefXMM: int64(pos.X / 0.0001),
		AntennaRefYMM: int64(pos.Y / 0.0001),
		AntennaRefZMM: int64(pos.Z / 0.0001),
	}
	frame, err := rtcm3.Encode(station.EncodeARP(a))
	if err != nil {
		return err
	}
	o.enqueue(frame)
	return nil
}

func rtcmTypeForKepler(constellation string) int {
	switch constellation {
	case rtcm3.ConstellationGalileo:
		return rtcm3.MessageTypeGalileoFNavEph
	case rtcm3.ConstellationBeidou:
		return rtcm3.MessageTypeBeidouEphemeris
	case rtcm3.ConstellationQZSS:
		return rtcm3.MessageTypeQZSSEphemeris
	default:
		return rtcm3.MessageTypeGPSEphemeris
	}
}

func (o *Outbound) handleKeplerEphemeris(payload []byte, constellation string) error {
	e := sbp.DecodeEphemerisGPS(payload)
	k := e.ToKepler(constellation)
	encoded, err := ephemeris.Encode(k, rtcmTypeForKepler(constellation))
	if err != nil {
		return err
	}
	frame, err := rtcm3.Encode(encoded)
	if err != nil {
		return err
	}
	o.enqueue(frame)
	return nil
}

func (o *Outbound) leapSeconds() (int, bool) {
	if o.LeapSeconds != nil {
		return *o.LeapSeconds, true
	}
	if o.LeapSecondsFunc != nil {
		return o.LeapSecondsFunc()
	}
	return 0, false
}

func (o *Outbound) handleGlonassEphemeris(payload []byte) error {
	leap, ok := o.leapSeconds()
	if !ok {
		return nil // t_b can't be derived from the toe without a leap-second value
	}
	e := sbp.DecodeEphemerisGlo(payload)
	g := e.ToGlonass(leap)
	encoded := ephemeris.EncodeGlonass(g)
	frame, err := rtcm3.Encode(encoded)
	if err != nil {
		return err
	}
	o.enqueue(frame)
	return nil
}

func (o *Outbound) wrapUnknown(f *sbp.Frame) error {
	raw := sbp.Encode(f)
	payload := proprietary.EncodeSwiftWrapper(&proprietary.SwiftWrapper{
		ProtocolVersion: 0, // ProtocolWrappedSBP
		Payload:         raw,
	})
	frame, err := rtcm3.Encode(payload)
	if err != nil {
		return err
	}
	o.enqueue(frame)
	return nil
}

// emitObsEpoch is the unpacker's completion callback: it encodes the
// reassembled epoch as either MSM4 (one message per constellation present)
// or legacy 1004/1012, per Mode.
func (o *Outbound) emitObsEpoch(e unpack.Epoch) {
	if o.Mode == ObsModeLegacy {
		o.emitLegacy(e)
		return
	}
	o.emitMSM(e)
}

// lightMSMillisPerMetre is the reciprocal of lightMSMetres: milliseconds of
// light travel time per metre, used to fold a pseudorange back into MSM's
// millisecond-scaled range fields.
const lightMSMillisPerMetre = 1 / lightMSMetres

func (o *Outbound) emitMSM(e unpack.Epoch) {
	byConstellation := map[string][]sbp.Observation{}
	for _, ob := range e.Observations {
		c := constellationForCode(sbp.Code(ob.SID.Code))
		byConstellation[c] = append(byConstellation[c], ob)
	}

	for constellation, obs := range byConstellation {
		if _, ok := rtcm3.MSMTypeFor(constellation, 4); !ok {
			continue
		}

		satSeen := map[uint]bool{}
		var satellites []uint
		cellsBySat := map[uint][]sbp.Observation{}
		for _, ob := range obs {
			sat := uint(ob.SID.Sat)
			if !satSeen[sat] {
				satSeen[sat] = true
				satellites = append(satellites, sat)
			}
			cellsBySat[sat] = append(cellsBySat[sat], ob)
		}

		signalSeen := map[uint]bool{}
		var signals []uint
		for _, ob := range obs {
			sig := uint(ob.SID.Code) + 1
			if !signalSeen[sig] {
				signalSeen[sig] = true
				signals = append(signals, sig)
			}
		}

		present := make([][]bool, len(satellites))
		satCells := make([]msm.SatelliteCell, len(satellites))
		var sigCells []msm.SignalCell
		for i, sat := range satellites {
			present[i] = make([]bool, len(signals))
			cells := cellsBySat[sat]
			if len(cells) > 0 {
				rangeMS := float64(cells[0].P) * 0.02 * lightMSMillisPerMetre
				whole := uint(rangeMS)
				satCells[i] = msm.SatelliteCell{
					SatelliteID:      sat,
					RoughRangeMillis: whole,
					RoughRangeMS1000: uint((rangeMS - float64(whole)) * 1024),
				}
			}
			for _, ob := range cells {
				for j, sig := range signals {
					if sig == uint(ob.SID.Code)+1 {
						present[i][j] = true
					}
				}
				sigCells = append(sigCells, msm.SignalCell{
					SatelliteID:       sat,
					SignalID:          uint(ob.SID.Code) + 1,
					LockTimeIndicator: uint(ob.Lock),
					CNR:               uint(ob.CN0) / 4,
					PseudorangeValid:  ob.Flags&sbp.ObsFlagPRValid != 0,
					PhaserangeValid:   ob.Flags&sbp.ObsFlagCPValid != 0,
				})
			}
		}

		var satMask uint64
		for _, sat := range satellites {
			satMask |= uint64(1) << (64 - sat)
		}
		var sigMask uint32
		for _, sig := range signals {
			sigMask |= uint32(1) << (32 - sig)
		}

		m := &msm.Message{
			Header: msm.Header{
				Constellation: constellation,
				Variant:       4,
				StationID:     o.StationID,
				EpochTime:     uint(e.TOWms),
				SatelliteMask: satMask,
				SignalMask:    sigMask,
				Satellites:    satellites,
				Signals:       signals,
				CellMask:      msm.BuildCellMask(present),
			},
			SatCells: satCells,
			SigCells: sigCells,
		}
		encoded, err := msm.Encode(m)
		if err != nil {
			continue // malformed cell table for this constellation; skip rather than emit garbage
		}
		frame, err := rtcm3.Encode(encoded)
		if err != nil {
			continue
		}
		o.enqueue(frame)
	}
}

func constellationForCode(c sbp.Code) string {
	switch {
	case c == sbp.CodeGLOL1CA || c == sbp.CodeGLOL2CA:
		return rtcm3.ConstellationGlonass
	case c == sbp.CodeGALE1B || c == sbp.CodeGALE1C:
		return rtcm3.ConstellationGalileo
	case c == sbp.CodeBDSB1I || c == sbp.CodeBDSB2I:
		return rtcm3.ConstellationBeidou
	default:
		return rtcm3.ConstellationGPS
	}
}

func (o *Outbound) emitLegacy(e unpack.Epoch) {
	messageType := rtcm3.MessageTypeGPSL1Full
	glonassObs := make([]sbp.Observation, 0)
	gpsObs := make([]sbp.Observation, 0)
	for _, ob := range e.Observations {
		if constellationForCode(sbp.Code(ob.SID.Code)) == rtcm3.ConstellationGlonass {
			glonassObs = append(glonassObs, ob)
		} else {
			gpsObs = append(gpsObs, ob)
		}
	}

	emit := func(messageType int, obs []sbp.Observation) {
		if len(obs) == 0 {
			return
		}
		sats := make([]legacy.Satellite, 0, len(obs))
		for _, ob := range obs {
			sats = append(sats, legacy.Satellite{
				SatelliteID: uint(ob.SID.Sat),
				L1: legacy.L1Obs{
					PseudorangeMS:    ob.P,
					LockTimeSeconds:  uint32(ob.Lock),
					PseudorangeValid: ob.Flags&sbp.ObsFlagPRValid != 0,
					PhaseRangeValid:  ob.Flags&sbp.ObsFlagCPValid != 0,
				},
			})
		}
		m := &legacy.Message{
			Header:     legacy.Header{MessageType: messageType, StationID: o.StationID, TowMS: e.TOWms, NumSatellites: uint(len(sats))},
			Satellites: sats,
		}
		encoded := legacy.Encode(m)
		frame, err := rtcm3.Encode(encoded)
		if err != nil {
			return
		}
		o.enqueue(frame)
	}

	emit(messageType, gpsObs)
	emit(rtcm3.MessageTypeGlonassL1L2, glonassObs)
}

// Drain returns and clears every RTCM3 byte produced since the last Drain
// call.
func (o *Outbound) Drain() []byte {
	out := o.raw
	o.raw = nil
	return out
}
