// Package rtcmsbp translates between RTCM3 frames and SBP messages,
// maintaining the per-constellation state (GLONASS FCN map, ephemeris
// assembly caches) the translation needs across calls.
package rtcmsbp

import (
	"fmt"

	"github.com/bitflux-nav/gnsswire/gnsstime"
	"github.com/bitflux-nav/gnsswire/rtcm3"
	"github.com/bitflux-nav/gnsswire/rtcm3/ephemeris"
	"github.com/bitflux-nav/gnsswire/rtcm3/legacy"
	"github.com/bitflux-nav/gnsswire/rtcm3/msm"
	"github.com/bitflux-nav/gnsswire/rtcm3/proprietary"
	"github.com/bitflux-nav/gnsswire/rtcm3/ssr"
	"github.com/bitflux-nav/gnsswire/rtcm3/station"
	"github.com/bitflux-nav/gnsswire/rtcm3/sysparam"
	"github.com/bitflux-nav/gnsswire/sbp"
	"github.com/bitflux-nav/gnsswire/sbp/pack"
	"github.com/bitflux-nav/gnsswire/timetruth"
	"github.com/google/uuid"
)

// msmLegacyLockoutMS is how long, after an MSM message arrives from a
// station, legacy observation messages (1002/1004/1010/1012) from the same
// station are suppressed — the two are mutually exclusive ways of saying
// the same thing, and a receiver occasionally sends both during a
// transition.
const msmLegacyLockoutMS = 5000

// gpsWeekBits is the truncated week-number width GPS and QZSS ephemerides
// broadcast (RTCM 1019/1044 DF076); both need WeekRolloverAdjustment
// against an absolute reference to recover the true week.
const gpsWeekBits = 10

// State holds everything a translator instance needs across RTCM frames
// from one station: the GLONASS FCN map, the packer it feeds SBP frames
// into, and the TimeTruth engine used to resolve week-number rollover. Not
// safe for concurrent use; one State per input stream.
type State struct {
	Sender  uint16
	Packer  *pack.Packer
	Time    *timetruth.Engine
	FCNByPRN map[uint]int

	// LeapSeconds, if non-nil, is consulted first when GLONASS's t_b field
	// needs converting into absolute GPS time. LeapSecondsFunc is
	// consulted next; if both are unset, GLONASS ephemerides are dropped
	// rather than emitted with a wrong toe.
	LeapSeconds     *int
	LeapSecondsFunc func() (int, bool)

	// id is a per-translator identity, useful for correlating log lines
	// across a fleet of translators; it has no protocol meaning.
	id uuid.UUID

	lastMSMStationMS map[uint]int64
	raw              []byte // buffered whole SBP frames pending the next Drain

	// ssrOrbits/ssrClocks hold a half-received SSR correction (orbit
	// arrived before clock, or vice versa) keyed by constellation,
	// satellite and IODSSR, until its other half arrives. 1060 (the
	// combined message) never touches this cache since it carries both
	// halves together. Galileo 1240 orbit halves are stored here too, but
	// no Galileo clock message is decoded, so they are never paired.
	ssrOrbits map[ssrKey]ssr.OrbitCorrection
	ssrClocks map[ssrKey]ssr.ClockCorrection

	// warned tracks which one-shot "unsupported/degraded" conditions have
	// already produced a log line, so a noisy condition (a missing FCN on
	// every epoch of a pass, say) is reported once rather than per frame.
	warned map[string]bool
}

// ssrKey identifies one satellite's SSR correction update across the two
// separate messages (orbit, clock) that might carry its two halves.
type ssrKey struct {
	constellation uint8
	satelliteID   uint
	iodssr        uint
}

// New creates a State. If t is nil, week-rollover-dependent GPS/GLONASS
// ephemerides and observations cannot be emitted until one is attached with
// SetTimeTruth.
func New(t *timetruth.Engine) *State {
	return &State{
		Packer:           pack.New(0),
		Time:             t,
		FCNByPRN:         map[uint]int{},
		lastMSMStationMS: map[uint]int64{},
		ssrOrbits:        map[ssrKey]ssr.OrbitCorrection{},
		ssrClocks:        map[ssrKey]ssr.ClockCorrection{},
		warned:           map[string]bool{},
		id:               uuid.New(),
	}
}

// warnOnce emits an SBP log line for condition, tagged with this
// translator's identity for cross-instance correlation, the first time
// condition is seen; later occurrences are silent.
func (s *State) warnOnce(condition, message string) {
	if s.warned[condition] {
		return
	}
	s.warned[condition] = true
	frame := sbp.Encode(&sbp.Frame{
		MsgType: sbp.MsgLog,
		Sender:  s.Sender,
		Payload: sbp.EncodeLog(sbp.LogMessage{Level: sbp.LogWarn, Text: "[" + s.id.String() + "] " + message}),
	})
	s.enqueue(frame)
}

// SetTimeTruth attaches (or replaces) the TimeTruth engine used for
// week-rollover resolution.
func (s *State) SetTimeTruth(t *timetruth.Engine) { s.Time = t }

// referenceTime returns the best available absolute time to resolve a
// truncated week number against, or false if none is available yet.
func (s *State) referenceTime() (gnsstime.Time, bool) {
	if s.Time == nil {
		return gnsstime.Time{}, false
	}
	est := s.Time.Query()
	if est.Confidence == timetruth.ConfidenceNone {
		return gnsstime.Time{}, false
	}
	return est.Time, true
}

// leapSeconds returns the current UTC-behind-GPS offset, or false if no
// source for it has been configured.
func (s *State) leapSeconds() (int, bool) {
	if s.LeapSeconds != nil {
		return *s.LeapSeconds, true
	}
	if s.LeapSecondsFunc != nil {
		return s.LeapSecondsFunc()
	}
	return 0, false
}

// HandleFrame dispatches one decoded RTCM3 frame into the appropriate SBP
// output, per message type. Messages this module doesn't translate (MSM1-3
// and message types with no case below) are silently ignored rather than
// erroring — an unrecognised message is not malformed input. A TeseoV
// sub-message of unrecognised type is dropped too, with a one-time warning
// log line.
func (s *State) HandleFrame(f *rtcm3.Frame) error {
	switch f.MessageType {
	case rtcm3.MessageTypeStationARP, rtcm3.MessageTypeStationARPAndHeight:
		return s.handleARP(f.Payload)
	case rtcm3.MessageTypeAntennaDescriptor, rtcm3.MessageTypeAntennaDescriptorExt:
		return s.handleAntennaDescriptor(f.Payload)
	case rtcm3.MessageTypeSystemParameters:
		return s.handleSystemParameters(f.Payload)
	case rtcm3.MessageTypeUnicodeText:
		return s.handleUnicodeText(f.Payload)
	case rtcm3.MessageTypeGPSEphemeris, rtcm3.MessageTypeBeidouEphemeris,
		rtcm3.MessageTypeQZSSEphemeris, rtcm3.MessageTypeGalileoFNavEph, rtcm3.MessageTypeGalileoINavEph:
		return s.handleKeplerEphemeris(f.MessageType, f.Payload)
	case rtcm3.MessageTypeGlonassEphemeris:
		return s.handleGlonassEphemeris(f.Payload)
	case rtcm3.MessageTypeGPSL1Full, rtcm3.MessageTypeGPSL1L2Full,
		rtcm3.MessageTypeGlonassL1, rtcm3.MessageTypeGlonassL1L2:
		return s.handleLegacyObs(f.MessageType, f.Payload)
	case rtcm3.MessageTypeSwiftProprietary:
		return s.handleSwiftWrapper(f.Payload)
	case rtcm3.MessageTypeNavDataFrame:
		return s.handleNavDataFrame(f.Payload)
	case rtcm3.MessageTypeTeseoV:
		return s.handleTeseoV(f.Payload)
	case rtcm3.MessageTypeGPSOrbitCorrection, rtcm3.MessageTypeGalileoOrbitCorrection:
		return s.handleSSROrbit(f.MessageType, f.Payload)
	case rtcm3.MessageTypeGPSClockCorrection:
		return s.handleSSRClock(f.Payload)
	case rtcm3.MessageTypeGPSCombinedCorrection:
		return s.handleSSRCombined(f.Payload)
	default:
		if info, ok := rtcm3.LookupMSM(f.MessageType); ok {
			if info.Variant < 4 {
				return nil // MSM1-3: compressed observations, not supported
			}
			return s.handleMSM(f.Payload)
		}
		return nil
	}
}

func (s *State) handleARP(payload []byte) error {
	a, err := station.DecodeARP(payload)
	if err != nil {
		return err
	}
	x, y, z := a.ECEF()
	if a.HasHeight {
		// Fold antenna height into the up component as a coarse
		// approximation; a full ENU projection needs the station's
		// latitude, which 1006 doesn't carry.
		z += a.Height()
	}
	frame := sbp.Encode(&sbp.Frame{
		MsgType: sbp.MsgBasePosECEF,
		Sender:  s.Sender,
		Payload: sbp.EncodeBasePositionECEF(sbp.BasePositionECEF{X: x, Y: y, Z: z}),
	})
	s.enqueue(frame)
	return nil
}

// handleAntennaDescriptor turns a 1007/1008 antenna descriptor into an
// informational log line; SBP has no dedicated antenna-metadata message, and
// the descriptor string is the kind of human-readable station detail this
// module already forwards as MsgLog for 1029 (handleUnicodeText).
func (s *State) handleAntennaDescriptor(payload []byte) error {
	d, err := station.DecodeAntennaDescriptor(payload)
	if err != nil {
		return err
	}
	text := fmt.Sprintf("station %d antenna %q setup %d", d.StationID, d.AntennaDescriptorStr, d.AntennaSetupID)
	if d.HasSerialNumber {
		text += fmt.Sprintf(" serial %q", d.AntennaSerialNumber)
	}
	frame := sbp.Encode(&sbp.Frame{MsgType: sbp.MsgLog, Sender: s.Sender, Payload: sbp.EncodeLog(sbp.LogMessage{Level: sbp.LogInfo, Text: text})})
	s.enqueue(frame)
	return nil
}

// enqueue buffers one complete SBP frame (position, log, ephemeris) that
// doesn't need fragmentation, separate from the packer's own observation
// FIFO until Drain collects both.
func (s *State) enqueue(frame []byte) {
	s.raw = append(s.raw, frame...)
}

func (s *State) handleSystemParameters(payload []byte) error {
	sp, err := sysparam.Decode(payload, uint(len(payload))*8)
	if err != nil {
		return err
	}
	if s.Time != nil {
		// DF051/DF052 (MJD/UTC seconds) don't carry a GPS week number
		// directly; treat UTC-seconds-of-day as an approximate TOW sample
		// for the RTCM1013 estimator, which only needs coarse agreement.
		s.Time.Push(timetruth.EstimatorRTCM1013, gnsstime.Time{TOW: float64(sp.UTCSeconds)})
	}
	return nil
}

func (s *State) handleUnicodeText(payload []byte) error {
	u, err := sysparam.DecodeUnicodeText(payload)
	if err != nil {
		return err
	}
	frame := sbp.Encode(&sbp.Frame{MsgType: sbp.MsgLog, Sender: s.Sender, Payload: sbp.EncodeLog(sbp.LogMessage{Level: sbp.LogInfo, Text: u.Text})})
	s.enqueue(frame)
	return nil
}

func (s *State) handleKeplerEphemeris(messageType int, payload []byte) error {
	constellation := constellationForEphemeris(messageType)
	k, err := ephemeris.Decode(payload, constellation)
	if err != nil {
		return err
	}

	if s.Time != nil {
		s.Time.PushEphemeris(timetruth.SourceLocal, constellation, k.SatID, gnsstime.Time{WN: int(k.Week), TOW: k.ToeSeconds})
	}

	// GPS and QZSS both truncate the week number to 10 bits (QZSS's
	// qzssLayout is GPS's verbatim); Galileo/BeiDou's wider week fields are
	// self-locating within the current epoch and may be emitted regardless.
	if constellation == rtcm3.ConstellationGPS || constellation == rtcm3.ConstellationQZSS {
		ref, ok := s.referenceTime()
		if !ok {
			return nil
		}
		resolved := gnsstime.WeekRolloverAdjustment(gnsstime.Time{WN: int(k.Week), TOW: k.ToeSeconds}, ref, gpsWeekBits, gnsstime.Offset{})
		k.Week = uint(resolved.WN)
	}

	e := sbp.FromKepler(k)
	frame := sbp.Encode(&sbp.Frame{MsgType: sbpEphemerisMsgType(constellation), Sender: s.Sender, Payload: sbp.EncodeEphemerisGPS(e)})
	s.enqueue(frame)
	return nil
}

func sbpEphemerisMsgType(constellation string) uint16 {
	switch constellation {
	case rtcm3.ConstellationGalileo:
		return sbp.MsgEphemerisGal
	case rtcm3.ConstellationBeidou:
		return sbp.MsgEphemerisBds
	case rtcm3.ConstellationQZSS:
		return sbp.MsgEphemerisQzss
	default:
		return sbp.MsgEphemerisGPS
	}
}

func constellationForEphemeris(messageType int) string {
	switch messageType {
	case rtcm3.MessageTypeBeidouEphemeris:
		return rtcm3.ConstellationBeidou
	case rtcm3.MessageTypeQZSSEphemeris:
		return rtcm3.ConstellationQZSS
	case rtcm3.MessageTypeGalileoFNavEph, rtcm3.MessageTypeGalileoINavEph:
		return rtcm3.ConstellationGalileo
	default:
		return rtcm3.ConstellationGPS
	}
}

func (s *State) handleGlonassEphemeris(payload []byte) error {
	g, err := ephemeris.DecodeGlonass(payload)
	if err != nil {
		return err
	}
	s.FCNByPRN[g.SatID] = g.FCN

	ref, ok := s.referenceTime()
	if !ok {
		return nil // GLONASS needs an absolute reference same as GPS
	}
	leap, ok := s.leapSeconds()
	if !ok {
		return nil // t_b can't be resolved into an absolute toe without it
	}

	e := sbp.FromGlonass(g, ref, leap)
	frame := sbp.Encode(&sbp.Frame{MsgType: sbp.MsgEphemerisGlo, Sender: s.Sender, Payload: sbp.EncodeEphemerisGlo(e)})
	s.enqueue(frame)
	return nil
}

func (s *State) handleLegacyObs(messageType int, payload []byte) error {
	m, err := legacy.Decode(payload)
	if err != nil {
		return err
	}
	if lastMSM, ok := s.lastMSMStationMS[m.Header.StationID]; ok {
		delta := int64(m.Header.TowMS) - lastMSM
		if delta >= 0 && delta < msmLegacyLockoutMS {
			return nil // suppressed: an MSM from this station arrived recently
		}
	}

	// 1001-1012 carry time-of-week only, no week number at all; without an
	// absolute reference the epoch can't be placed in an unambiguous week.
	ref, ok := s.referenceTime()
	if !ok {
		return nil
	}
	wn := resolveObsWeek(float64(m.Header.TowMS)/1000, ref)

	obs := make([]sbp.Observation, 0, len(m.Satellites))
	for _, sat := range m.Satellites {
		obs = append(obs, sbp.Observation{
			SID:   sbp.SignalID{Sat: uint8(sat.SatelliteID)},
			P:     sat.L1.PseudorangeMS, // already the wire's 0.02 m-LSB count, same unit as sbp.Observation.P
			Flags: validityFlags(sat.L1.PseudorangeValid, sat.L1.PhaseRangeValid),
			Lock:  uint8(sat.L1.LockTimeSeconds),
		})
	}
	h := sbp.EpochHeader{WN: wn, TOWms: m.Header.TowMS, NumObs: sbp.PackNumObs(1, 0)}
	return s.Packer.PackEpoch(s.Sender, h.WN, h.TOWms, obs)
}

// resolveObsWeek places an observation's bare time-of-week (no week field on
// the wire at all, equivalent to a zero-width truncation) into an absolute
// week number, the same rollover arithmetic the ephemeris path uses.
func resolveObsWeek(towSeconds float64, ref gnsstime.Time) uint16 {
	resolved := gnsstime.WeekRolloverAdjustment(gnsstime.Time{TOW: towSeconds}, ref, 0, gnsstime.Offset{})
	return uint16(resolved.WN)
}

func validityFlags(prValid, cpValid bool) uint8 {
	var f uint8
	if prValid {
		f |= sbp.ObsFlagPRValid
	}
	if cpValid {
		f |= sbp.ObsFlagCPValid
	}
	return f
}

// lightMSMetres is the distance light travels in one millisecond, the
// conversion factor from MSM's millisecond-scaled range fields to metres.
const lightMSMetres = 299792.458

func (s *State) handleMSM(payload []byte) error {
	m, err := msm.Decode(payload)
	if err != nil {
		return err
	}
	s.lastMSMStationMS[m.Header.StationID] = int64(m.Header.EpochTime)

	// MSM epoch time is bare time-of-week/time-of-day, same rollover
	// ambiguity as the legacy observation messages.
	ref, ok := s.referenceTime()
	if !ok {
		return nil
	}
	wn := resolveObsWeek(float64(m.Header.EpochTime)/1000, ref)

	satCellByID := make(map[uint]msm.SatelliteCell, len(m.SatCells))
	roughRangeMS := make(map[uint]float64, len(m.SatCells))
	for _, sc := range m.SatCells {
		satCellByID[sc.SatelliteID] = sc
		if !sc.RoughRangeValid {
			continue
		}
		roughRangeMS[sc.SatelliteID] = float64(sc.RoughRangeMillis) + float64(sc.RoughRangeMS1000)/1024
	}

	glonass := m.Header.Constellation == rtcm3.ConstellationGlonass

	// MSM4/5 carry fine pseudorange at 2^-24 ms and CNR in whole dB-Hz;
	// MSM6/7 carry 2^-29 ms and 1/16 dB-Hz. SBP's CN0 is in 0.25 dB-Hz.
	finePRScale := pow2msm(-24)
	highRes := m.Header.Variant >= 6
	if highRes {
		finePRScale = pow2msm(-29)
	}

	obs := make([]sbp.Observation, 0, len(m.SigCells))
	for _, sig := range m.SigCells {
		rangeMS, ok := roughRangeMS[sig.SatelliteID]
		if !ok {
			continue
		}

		if glonass {
			if _, known := s.FCNByPRN[sig.SatelliteID]; !known {
				sc := satCellByID[sig.SatelliteID]
				if sc.HasExtended {
					// MSM5/7 carry the FCN (biased by 7) in every satellite
					// cell; fall back to it until a 1020 ephemeris supplies
					// the authoritative value.
					s.FCNByPRN[sig.SatelliteID] = int(sc.ExtendedInfo) - 7
				} else {
					s.warnOnce("glonass-fcn-missing", "dropping GLONASS signal with no known FCN (MSM4/6, no 1020 seen yet)")
					continue
				}
			}
		}

		finePRMS := float64(sig.FinePseudorange) * finePRScale
		pseudorangeM := (rangeMS + finePRMS) * lightMSMetres
		cn0 := sig.CNR * 4
		if highRes {
			cn0 = sig.CNR / 4
		}

		obs = append(obs, sbp.Observation{
			SID:   sbp.SignalID{Sat: uint8(sig.SatelliteID), Code: uint8(sig.SignalID)},
			P:     uint32(pseudorangeM / 0.02),
			CN0:   uint8(cn0),
			Lock:  uint8(sig.LockTimeIndicator),
			Flags: validityFlags(sig.PseudorangeValid, sig.PhaserangeValid),
		})
	}
	h := sbp.EpochHeader{WN: wn, TOWms: uint32(m.Header.EpochTime), NumObs: sbp.PackNumObs(1, 0)}
	return s.Packer.PackEpoch(s.Sender, h.WN, h.TOWms, obs)
}

func pow2msm(exp int) float64 {
	if exp >= 0 {
		return float64(int64(1) << uint(exp))
	}
	return 1 / float64(int64(1)<<uint(-exp))
}

func (s *State) handleSwiftWrapper(payload []byte) error {
	w, err := proprietary.DecodeSwiftWrapper(payload)
	if err != nil {
		return err
	}
	if w.Protocol != proprietary.ProtocolWrappedSBP {
		return nil
	}
	s.raw = append(s.raw, w.Payload...)
	return nil
}

// handleNavDataFrame decodes a 4075 (Navigation Data Frame) message and
// forwards each captured subframe as a raw-frame SBP record
// (MsgNavDataFrame); the subframe bits are not decoded here. The message's satellite-system code table wasn't
// part of the retrieved source, so every frame is forwarded rather than
// filtering on a guessed "this value means SBAS" constant.
func (s *State) handleNavDataFrame(payload []byte) error {
	n, err := proprietary.DecodeNDF(payload)
	if err != nil {
		return err
	}
	for _, f := range n.Frames {
		rec := sbp.NavDataFrame{
			SatelliteSystem:    uint8(f.SatelliteSystem),
			SatelliteNumber:    uint8(f.SatelliteNumber),
			SignalType:         uint8(f.SignalType),
			EpochTimeMS:        f.EpochTimeMS,
			ContinuousTracking: f.ContinuousTracking,
			Data:               append([]uint32(nil), f.Data...),
		}
		s.enqueue(sbp.Encode(&sbp.Frame{MsgType: sbp.MsgNavDataFrame, Sender: s.Sender, Payload: sbp.EncodeNavDataFrame(rec)}))
	}
	return nil
}

func (s *State) handleTeseoV(payload []byte) error {
	t, err := proprietary.DecodeTeseoV(payload)
	if err != nil {
		return err
	}
	switch t.SubType {
	case proprietary.TeseoVSTGSV:
		return s.handleTeseoSTGSV(t.Payload)
	case proprietary.TeseoVRestart, proprietary.TeseoVAux:
		// No SBP equivalent for either; forward the sub-message envelope
		// unchanged so nothing is silently dropped.
		s.raw = append(s.raw, payload...)
		return nil
	default:
		s.warnOnce("teseov-subtype-unknown", "dropping TeseoV sub-message with unrecognised sub_type_id")
		return nil
	}
}

func (s *State) handleTeseoSTGSV(payload []byte) error {
	g, err := proprietary.DecodeSTGSV(payload)
	if err != nil {
		return err
	}

	azel := sbp.SvAzEl{Entries: make([]sbp.SvAzElEntry, 0, len(g.Satellites))}
	meas := sbp.MeasurementState{Entries: make([]sbp.MeasurementStateEntry, 0, len(g.Satellites))}
	for _, sat := range g.Satellites {
		var state uint8
		var az uint8
		var el int8
		if sat.HasElevation {
			state |= sbp.MeasStateHasElevation
			el = sat.ElevationDeg
		}
		if sat.HasAzimuth {
			state |= sbp.MeasStateHasAzimuth
			az = uint8(sat.AzimuthDeg / 2)
		}
		var cn0 uint8
		if sat.HasCN0B1 {
			state |= sbp.MeasStateHasCN0
			cn0 = sat.CN0B1
		}
		azel.Entries = append(azel.Entries, sbp.SvAzElEntry{Sat: uint8(sat.SatelliteID), Az: az, El: el})
		meas.Entries = append(meas.Entries, sbp.MeasurementStateEntry{Sat: uint8(sat.SatelliteID), CN0: cn0, State: state})
	}

	s.enqueue(sbp.Encode(&sbp.Frame{MsgType: sbp.MsgSvAzEl, Sender: s.Sender, Payload: sbp.EncodeSvAzEl(azel)}))
	s.enqueue(sbp.Encode(&sbp.Frame{MsgType: sbp.MsgMeasurementState, Sender: s.Sender, Payload: sbp.EncodeMeasurementState(meas)}))
	return nil
}

func ssrConstellationFor(messageType int) uint8 {
	if messageType == rtcm3.MessageTypeGalileoOrbitCorrection {
		return sbp.SsrConstellationGalileo
	}
	return sbp.SsrConstellationGPS
}

// handleSSROrbit decodes a 1057 (GPS) or 1240 (Galileo) orbit correction
// message and pairs each satellite's correction against a previously
// received clock correction, if one is already cached, emitting the
// combined SBP record once both halves are present.
func (s *State) handleSSROrbit(messageType int, payload []byte) error {
	m, err := ssr.DecodeOrbit(payload, messageType)
	if err != nil {
		return err
	}
	constellation := ssrConstellationFor(messageType)
	for _, c := range m.Corrections {
		key := ssrKey{constellation: constellation, satelliteID: c.SatelliteID, iodssr: m.Header.IODSSR}
		if clock, ok := s.ssrClocks[key]; ok {
			delete(s.ssrClocks, key)
			s.emitSSR(constellation, m.Header.EpochTime, m.Header.IODSSR, c, clock)
			continue
		}
		s.ssrOrbits[key] = c
	}
	return nil
}

// handleSSRClock decodes a 1058 (GPS) clock correction message, the
// counterpart to handleSSROrbit's orbit half.
func (s *State) handleSSRClock(payload []byte) error {
	m, err := ssr.DecodeClock(payload)
	if err != nil {
		return err
	}
	constellation := uint8(sbp.SsrConstellationGPS)
	for _, c := range m.Corrections {
		key := ssrKey{constellation: constellation, satelliteID: c.SatelliteID, iodssr: m.Header.IODSSR}
		if orbit, ok := s.ssrOrbits[key]; ok {
			delete(s.ssrOrbits, key)
			s.emitSSR(constellation, m.Header.EpochTime, m.Header.IODSSR, orbit, c)
			continue
		}
		s.ssrClocks[key] = c
	}
	return nil
}

// handleSSRCombined decodes a 1060 (GPS combined orbit+clock) message,
// which carries both halves per satellite already paired, needing no cache.
func (s *State) handleSSRCombined(payload []byte) error {
	m, err := ssr.DecodeCombined(payload)
	if err != nil {
		return err
	}
	constellation := uint8(sbp.SsrConstellationGPS)
	for i := range m.Orbits {
		s.emitSSR(constellation, m.Header.EpochTime, m.Header.IODSSR, m.Orbits[i], m.Clocks[i])
	}
	return nil
}

func (s *State) emitSSR(constellation uint8, epochTime, iodssr uint, orbit ssr.OrbitCorrection, clock ssr.ClockCorrection) {
	rec := sbp.SsrOrbitClock{
		ConstellationID:  constellation,
		SatelliteID:      uint8(orbit.SatelliteID),
		IODSSR:           uint8(iodssr),
		EpochTimeS:       uint32(epochTime),
		DeltaRadialM:     float32(orbit.DeltaRadialM),
		DeltaAlongM:      float32(orbit.DeltaAlongM),
		DeltaCrossM:      float32(orbit.DeltaCrossM),
		DotDeltaRadialMS: float32(orbit.DotDeltaRadialMS),
		DotDeltaAlongMS:  float32(orbit.DotDeltaAlongMS),
		DotDeltaCrossMS:  float32(orbit.DotDeltaCrossMS),
		C0M:              float32(clock.C0M),
		C1MS:             float32(clock.C1MS),
		C2MS2:            float32(clock.C2MS2),
	}
	frame := sbp.Encode(&sbp.Frame{MsgType: sbp.MsgSsrOrbitClock, Sender: s.Sender, Payload: sbp.EncodeSsrOrbitClock(rec)})
	s.enqueue(frame)
}

// Drain returns and clears every SBP byte produced since the last Drain
// call (both whole-frame pushes from handleARP/handleSystemParameters/etc.
// and whatever the observation packer fragmented).
func (s *State) Drain() []byte {
	out := append(s.raw, s.Packer.Drain()...)
	s.raw = nil
	return out
}
