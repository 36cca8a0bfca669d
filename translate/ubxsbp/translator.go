package ubxsbp

import (
	"encoding/binary"
	"math"

	"github.com/bitflux-nav/gnsswire/bitstream"
	"github.com/bitflux-nav/gnsswire/gnsstime"
	"github.com/bitflux-nav/gnsswire/rtcm3"
	"github.com/bitflux-nav/gnsswire/rtcm3/ephemeris"
	"github.com/bitflux-nav/gnsswire/sbp"
	"github.com/bitflux-nav/gnsswire/timetruth"
)

// u-blox gnssId values (UBX-RXM-SFRBX, UBX-RXM-RAWX).
const (
	gnssIDGPS     = 0
	gnssIDSBAS    = 1
	gnssIDGalileo = 2
	gnssIDBeiDou  = 3
	gnssIDQZSS    = 5
	gnssIDGlonass = 6
)

// State converts a stream of UBX frames into SBP frames: raw measurements,
// decoded broadcast ephemerides, inertial samples and odometry. One State
// per receiver; not safe for concurrent use.
type State struct {
	Sender uint16
	Time   *timetruth.Engine

	gps  map[uint8]*gpsSubframes
	imu  imuAccumulator
	raw  []byte
}

// New creates a State ready to accept UBX frames.
func New() *State {
	return &State{gps: make(map[uint8]*gpsSubframes)}
}

func (s *State) enqueue(frame []byte) { s.raw = append(s.raw, frame...) }

func (s *State) emit(msgType uint16, payload []byte) {
	s.enqueue(sbp.Encode(&sbp.Frame{MsgType: msgType, Sender: s.Sender, Payload: payload}))
}

// HandleFrame dispatches one decoded UBX frame to the appropriate decoder.
// Frame types this module doesn't understand are ignored rather than
// treated as an error — a receiver's output stream routinely carries
// messages (NAV-PVT, MON-HW, ...) this translator has no SBP equivalent
// for.
func (s *State) HandleFrame(f *Frame) error {
	switch {
	case f.Class == ClassRXM && f.ID == IDRXMRawX:
		return s.handleRXMRawX(f.Payload)
	case f.Class == ClassRXM && f.ID == IDRXMSFRBX:
		return s.handleRXMSFRBX(f.Payload)
	case f.Class == ClassESF && f.ID == IDESFRaw:
		return s.handleESFRaw(f.Payload)
	case f.Class == ClassESF && f.ID == IDESFMeas:
		return s.handleESFMeas(f.Payload)
	case f.Class == ClassNAV && f.ID == IDNavStatus:
		return s.handleNavStatus(f.Payload)
	default:
		return nil
	}
}

// Drain returns and clears every SBP byte produced since the last Drain
// call.
func (s *State) Drain() []byte {
	out := s.raw
	s.raw = nil
	return out
}

// handleRXMRawX decodes a raw multi-GNSS measurement epoch. Observations
// are emitted directly, one SBP MSG_OBS fragment at a time (RXM-RAWX
// already delivers a complete epoch in one UBX frame, so no reassembly is
// needed the way it is for MSM observations fragmented across satellites).
func (s *State) handleRXMRawX(payload []byte) error {
	if len(payload) < 16 {
		return nil
	}
	rcvTow := r8(payload[0:8])
	week := u2(payload[8:10])
	numMeas := int(u1(payload[11:12]))

	const blockLen = 32
	obs := make([]sbp.Observation, 0, numMeas)
	for i := 0; i < numMeas; i++ {
		b := payload[16+i*blockLen:]
		if len(b) < blockLen {
			break
		}
		pr := r8(b[0:8])
		trkStat := u1(b[30:31])
		if pr == 0 || trkStat&0x01 == 0 {
			continue // pseudorange not valid
		}
		cp := r8(b[8:16])
		doppler := r4(b[16:20])
		svID := u1(b[22:23])
		lockMS := u2(b[26:28])
		cn0 := u1(b[28:29])

		var flags uint8 = sbp.ObsFlagPRValid
		if trkStat&0x02 != 0 {
			flags |= sbp.ObsFlagCPValid
		}
		if trkStat&0x04 != 0 {
			flags |= sbp.ObsFlagHalfCycle
		}

		cycles := int32(math.Floor(cp))
		frac := uint8((cp - math.Floor(cp)) * 256)
		dHz := int16(doppler)
		dFrac := uint8((float64(doppler) - math.Floor(float64(doppler))) * 256)

		obs = append(obs, sbp.Observation{
			SID:     sbp.SignalID{Sat: svID, Code: uint8(sbp.CodeGPSL1CA)},
			P:       uint32(pr / 0.02),
			LCycles: cycles,
			LFrac:   frac,
			DHz:     dHz,
			DFrac:   dFrac,
			CN0:     cn0 * 4,
			Lock:    uint8(lockMS),
			Flags:   flags | sbp.ObsFlagDopplerValid,
		})
	}

	if s.Time != nil {
		s.Time.Push(timetruth.EstimatorObservation, gnsstime.Time{WN: int(week), TOW: rcvTow})
	}

	towMS := uint32(rcvTow * 1000)
	total := (len(obs) + sbp.MaxObsPerFrame - 1) / sbp.MaxObsPerFrame
	if total == 0 {
		total = 1
	}
	for frag := 0; frag < total; frag++ {
		lo := frag * sbp.MaxObsPerFrame
		hi := lo + sbp.MaxObsPerFrame
		if hi > len(obs) {
			hi = len(obs)
		}
		h := sbp.EpochHeader{WN: week, TOWms: towMS, NumObs: sbp.PackNumObs(total, frag)}
		s.emit(sbp.MsgObs, sbp.EncodeObsFrame(h, obs[lo:hi]))
	}
	return nil
}

// gpsSubframes accumulates the three 30-byte (240-bit) GPS/QZSS LNAV
// subframes that carry one broadcast ephemeris, keyed by subframe ID.
type gpsSubframes struct {
	sub      [3][]byte
	have     [3]bool
	constellation string
}

// handleRXMSFRBX accumulates one broadcast navigation subframe. GPS and
// QZSS share the LNAV format and get a full bit-exact ephemeris decode once
// subframes 1-3 have all arrived for a satellite; GLONASS, Galileo and
// BeiDou subframes use different message formats this translator does not
// decode, so they are ignored on arrival.
func (s *State) handleRXMSFRBX(payload []byte) error {
	if len(payload) < 8 {
		return nil
	}
	gnssID := u1(payload[0:1])
	svID := u1(payload[1:2])
	numWords := int(u1(payload[4:5]))
	if len(payload) < 8+numWords*4 {
		return nil
	}

	var constellation string
	switch gnssID {
	case gnssIDGPS:
		constellation = rtcm3.ConstellationGPS
	case gnssIDQZSS:
		constellation = rtcm3.ConstellationQZSS
	default:
		return nil // GLONASS/Galileo/BeiDou subframe formats are not decoded here
	}
	if numWords != 10 {
		return nil // not an LNAV subframe (CNAV, I/NAV, etc. use a different word count)
	}

	w := bitstream.NewWriter()
	for i := 0; i < 10; i++ {
		word := binary.LittleEndian.Uint32(payload[8+i*4 : 12+i*4])
		w.WriteU64(uint64(word>>6), 24)
	}
	buf := append([]byte(nil), w.Bytes()...)

	id, err := subframeID(buf)
	if err != nil || id < 1 || id > 3 {
		return nil
	}

	acc, ok := s.gps[svID]
	if !ok {
		acc = &gpsSubframes{constellation: constellation}
		s.gps[svID] = acc
	}
	acc.sub[id-1] = buf
	acc.have[id-1] = true

	if !(acc.have[0] && acc.have[1] && acc.have[2]) {
		return nil
	}

	combined := make([]byte, 0, 90)
	combined = append(combined, acc.sub[0]...)
	combined = append(combined, acc.sub[1]...)
	combined = append(combined, acc.sub[2]...)
	acc.have = [3]bool{}

	k, ok := decodeGPSEphemeris(combined, uint(svID), constellation)
	if !ok {
		return nil
	}

	if s.Time != nil {
		s.Time.PushEphemeris(timetruth.SourceLocal, constellation, uint(svID), gnsstime.Time{WN: int(k.Week), TOW: k.ToeSeconds})
	}

	e := sbp.FromKepler(k)
	msgType := uint16(sbp.MsgEphemerisGPS)
	if constellation == rtcm3.ConstellationQZSS {
		msgType = sbp.MsgEphemerisQzss
	}
	s.emit(msgType, sbp.EncodeEphemerisGPS(e))
	return nil
}

func subframeID(buf []byte) (int, error) {
	r := bitstream.NewReader(buf)
	if err := r.Skip(43); err != nil {
		return 0, err
	}
	v, err := r.U64(3)
	return int(v), err
}

// GPS LNAV scale factors, powers of two per ICD-GPS-200.
const (
	pow2n5  = 1.0 / 32
	pow2n19 = 1.0 / 524288
	pow2n29 = 1.0 / 536870912
	pow2n31 = 1.0 / 2147483648
	pow2n33 = 1.0 / 8589934592
	pow2n43 = 1.0 / 8796093022208
	pow2n55 = 1.0 / 36028797018963968
	sc2rad  = math.Pi
)

// decodeGPSEphemeris bit-decodes a full GPS/QZSS LNAV ephemeris from three
// concatenated 240-bit subframes (subframes 1, 2 and 3, in that order,
// parity bits already stripped by the receiver). It returns ok=false if the
// subframe IDs or the IODE/IODC cross-check don't line up, the same
// consistency check the reference decoder applies before trusting a
// reassembled ephemeris.
func decodeGPSEphemeris(buf []byte, satID uint, constellation string) (*ephemeris.KeplerEphemeris, bool) {
	r := bitstream.NewReader(buf)

	// Subframe 1: clock terms, health, IODC.
	r.Skip(24)
	tow1u, _ := r.U64(17)
	tow1 := float64(tow1u) * 6.0
	r.Skip(2)
	id1, _ := r.U64(3)
	r.Skip(2)
	week, _ := r.U64(10)
	codeL2, _ := r.U64(2)
	ura, _ := r.U64(4)
	health, _ := r.U64(6)
	iodc0, _ := r.U64(2)
	r.Skip(1 + 87)
	tgdRaw, _ := r.I64(8)
	iodc1, _ := r.U64(8)
	tocRaw, _ := r.U64(16)
	toc := float64(tocRaw) * 16.0
	af2Raw, _ := r.I64(8)
	af1Raw, _ := r.I64(16)
	af0Raw, _ := r.I64(22)

	// Subframe 2: Kepler terms, toe.
	r.Skip(264 - r.Pos())
	r.Skip(17 + 2)
	id2, _ := r.U64(3)
	r.Skip(2)
	iode2, _ := r.U64(8)
	crsRaw, _ := r.I64(16)
	dnRaw, _ := r.I64(16)
	m0Raw, _ := r.I64(32)
	cucRaw, _ := r.I64(16)
	eccRaw, _ := r.U64(32)
	cusRaw, _ := r.I64(16)
	sqrtARaw, _ := r.U64(32)
	toesRaw, _ := r.U64(16)
	toes := float64(toesRaw) * 16.0
	fitBit, _ := r.Bool()

	// Subframe 3: remaining Kepler terms, IODE cross-check.
	r.Skip(480 + 24 - r.Pos())
	r.Skip(17 + 2)
	id3, _ := r.U64(3)
	r.Skip(2)
	cicRaw, _ := r.I64(16)
	omega0Raw, _ := r.I64(32)
	cisRaw, _ := r.I64(16)
	i0Raw, _ := r.I64(32)
	crcRaw, _ := r.I64(16)
	wRaw, _ := r.I64(32)
	omegaDotRaw, _ := r.I64(24)
	iode3, _ := r.U64(8)
	idotRaw, _ := r.I64(14)

	iodc := (iodc0 << 8) + iodc1
	if id1 != 1 || id2 != 2 || id3 != 3 {
		return nil, false
	}
	if iode2 != iode3 || iode2 != (iodc&0xFF) {
		return nil, false
	}

	tgd := 0.0
	if tgdRaw != -128 {
		tgd = float64(tgdRaw) * pow2n31
	}

	// toe can fall in the following week relative to the HOW's tow1 (or the
	// preceding one, near a week rollover); nudge the truncated week field
	// by one in that case, same half-week window the reference decoder
	// checks.
	weekOut := week
	if toes < tow1-302400.0 {
		weekOut++
	} else if toes > tow1+302400.0 {
		weekOut--
	}
	weekOut &= 0x3FF // week is a 10-bit truncated field; keep the adjustment in range

	k := &ephemeris.KeplerEphemeris{
		Constellation: constellation,
		SatID:         satID,
		Week:          uint(weekOut),
		URA:           uint(ura),
		CodeOnL2:      uint(codeL2),
		IODC:          uint(iodc),
		IODE:          uint(iode2),
		TocSeconds:    toc,
		ToeSeconds:    toes,
		Af2:           float64(af2Raw) * pow2n55,
		Af1:           float64(af1Raw) * pow2n43,
		Af0:           float64(af0Raw) * pow2n31,
		Crs:           float64(crsRaw) * pow2n5,
		Dn:            float64(dnRaw) * pow2n43 * sc2rad,
		M0:            float64(m0Raw) * pow2n31 * sc2rad,
		Cuc:           float64(cucRaw) * pow2n29,
		Ecc:           float64(eccRaw) * pow2n33,
		Cus:           float64(cusRaw) * pow2n29,
		SqrtA:         float64(sqrtARaw) * pow2n19,
		Cic:           float64(cicRaw) * pow2n29,
		Omega0:        float64(omega0Raw) * pow2n31 * sc2rad,
		Cis:           float64(cisRaw) * pow2n29,
		Inc0:          float64(i0Raw) * pow2n31 * sc2rad,
		Crc:           float64(crcRaw) * pow2n5,
		W:             float64(wRaw) * pow2n31 * sc2rad,
		OmegaDot:      float64(omegaDotRaw) * pow2n43 * sc2rad,
		IncDot:        float64(idotRaw) * pow2n43 * sc2rad,
		Tgd:           tgd,
		Health:        uint(health),
		FitInterval:   !fitBit,
	}
	return k, true
}

// imuSensorTimeScale is u-blox M8L's IMU sample-time resolution: 39.0625
// microseconds per tick (1/25600 s).
const imuSensorTimeScale = 39.0625e-6

// imuAccumulator collects the six ESF-RAW data types (3 accelerometer axes,
// 3 gyroscope axes) that make up one IMU sample; ESF-RAW delivers them as
// a stream of individually-tagged 4-byte entries rather than one fixed
// record, so a sample is only complete once all six axes for the same
// sensor-time tick have arrived.
type imuAccumulator struct {
	tag              uint32
	haveAcc, haveGyr uint8 // bitmask over X=1,Y=2,Z=4
	acc, gyr         [3]int32
	auxCounter       int
}

// ESF-RAW data-type identifiers (UBX-ESF-RAW dataField top byte).
const (
	esfGyroZ  = 5
	esfAccelX = 6
	esfAccelY = 7
	esfAccelZ = 8
	esfGyroY  = 13
	esfGyroX  = 14
	esfTemp   = 12
)

// handleESFRaw decodes ESF-RAW inertial samples, emitting MSG_IMU_RAW once
// a complete 6-axis triple has accumulated for one sensor-time tick and
// MSG_IMU_AUX every 20 samples (IMU configuration changes far slower than
// the sample rate, so it isn't worth sending with every frame).
func (s *State) handleESFRaw(payload []byte) error {
	if len(payload) < 8 {
		return nil
	}
	for off := 4; off+8 <= len(payload); off += 8 {
		word := u4(payload[off : off+4])
		dataType := uint8(word >> 24)
		raw := int32(word & 0x00FFFFFF)
		if raw&0x00800000 != 0 {
			raw |= -0x01000000 // sign-extend the 24-bit two's complement field
		}
		sensorTime := u4(payload[off+4 : off+8])
		if sensorTime != s.imu.tag {
			s.imu.haveAcc, s.imu.haveGyr = 0, 0 // a new tick starts a new sample
		}
		s.imu.tag = sensorTime

		switch dataType {
		case esfAccelX:
			s.imu.acc[0] = raw
			s.imu.haveAcc |= 1
		case esfAccelY:
			s.imu.acc[1] = raw
			s.imu.haveAcc |= 2
		case esfAccelZ:
			s.imu.acc[2] = raw
			s.imu.haveAcc |= 4
		case esfGyroX:
			s.imu.gyr[0] = raw
			s.imu.haveGyr |= 1
		case esfGyroY:
			s.imu.gyr[1] = raw
			s.imu.haveGyr |= 2
		case esfGyroZ:
			s.imu.gyr[2] = raw
			s.imu.haveGyr |= 4
		case esfTemp:
			s.imu.auxCounter++
			if s.imu.auxCounter%20 == 0 {
				s.emit(sbp.MsgImuAux, sbp.EncodeImuAux(sbp.ImuAux{TempRaw: int16(raw)}))
			}
		}

		if s.imu.haveAcc == 0x07 && s.imu.haveGyr == 0x07 {
			s.emit(sbp.MsgImuRaw, sbp.EncodeImuRaw(sbp.ImuRaw{
				TimeTag: s.imu.tag,
				AccX:    int16(s.imu.acc[0]), AccY: int16(s.imu.acc[1]), AccZ: int16(s.imu.acc[2]),
				GyrX: int16(s.imu.gyr[0]), GyrY: int16(s.imu.gyr[1]), GyrZ: int16(s.imu.gyr[2]),
			}))
			s.imu.haveAcc, s.imu.haveGyr = 0, 0
		}
	}
	return nil
}

// ESF-MEAS data-type identifiers relevant to odometry.
const (
	esfSpeed    = 11
	esfWheeltick = 10
)

// handleESFMeas decodes ESF-MEAS odometry samples: either a direct speed
// reading or a wheel-tick counter (a 23-bit count with the direction in
// bit 23 of the 24-bit data field), and
// re-emits either as an SBP Odometry record.
func (s *State) handleESFMeas(payload []byte) error {
	if len(payload) < 8 {
		return nil
	}
	timeTag := u4(payload[0:4])
	numMeas := int((u2(payload[6:8]) >> 11) & 0x1F)
	for i := 0; i < numMeas; i++ {
		off := 8 + i*4
		if off+4 > len(payload) {
			break
		}
		word := u4(payload[off : off+4])
		dataType := uint8((word >> 24) & 0x3F)
		raw := int32(word & 0x00FFFFFF)

		switch dataType {
		case esfSpeed:
			if raw&0x00800000 != 0 {
				raw |= -0x01000000
			}
			s.emit(sbp.MsgOdometry, sbp.EncodeOdometry(sbp.Odometry{TimeTag: timeTag, Velocity: raw}))
		case esfWheeltick:
			direction := int32(1)
			if raw&0x00800000 != 0 {
				direction = -1
			}
			count := raw & 0x007FFFFF
			s.emit(sbp.MsgOdometry, sbp.EncodeOdometry(sbp.Odometry{TimeTag: timeTag, Velocity: direction * count}))
		}
	}
	return nil
}

// handleNavStatus emits the running offset between GNSS time and the
// receiver's local sensor clock, derived from NAV-STATUS's millisecond
// system-time-since-startup counter, so inertial and odometry samples
// (tagged in local sensor time) can later be placed on the GNSS time axis.
// Emitted only once a fix and the time-of-week are both valid, since the
// offset is meaningless otherwise.
func (s *State) handleNavStatus(payload []byte) error {
	if len(payload) < 16 {
		return nil
	}
	iTOW := u4(payload[0:4])
	flags := u1(payload[5:6])
	const (
		gpsFixOK = 1 << 0
		towSet   = 1 << 3
	)
	if flags&gpsFixOK == 0 || flags&towSet == 0 {
		return nil
	}

	if s.Time != nil {
		s.Time.Push(timetruth.EstimatorUBXLeap, gnsstime.Time{TOW: float64(iTOW) / 1000})
	}

	msss := u4(payload[12:16])
	offsetMS := int32(iTOW) - int32(msss)
	s.emit(sbp.MsgGnssTimeOffset, sbp.EncodeGnssTimeOffset(sbp.GnssTimeOffset{
		TOWms:      iTOW,
		NsResidual: offsetMS * 1000000,
		Flags:      1,
	}))
	return nil
}
