package sbp

import "encoding/binary"

// ImuRaw is one inertial sample: accelerometer and gyroscope axes at a
// sensor timestamp, in the sensor's native raw counts (scaling to physical
// units is a property of the IMU model and is carried separately in
// ImuAux).
type ImuRaw struct {
	TimeTag          uint32
	AccX, AccY, AccZ int16
	GyrX, GyrY, GyrZ int16
}

// EncodeImuRaw serialises an ImuRaw into an SBP MSG_IMU_RAW payload.
func EncodeImuRaw(m ImuRaw) []byte {
	buf := make([]byte, 0, 16)
	buf = appendU32(buf, m.TimeTag)
	for _, v := range []int16{m.AccX, m.AccY, m.AccZ, m.GyrX, m.GyrY, m.GyrZ} {
		buf = appendU16(buf, uint16(v))
	}
	return buf
}

// DecodeImuRaw parses an SBP MSG_IMU_RAW payload.
func DecodeImuRaw(payload []byte) ImuRaw {
	return ImuRaw{
		TimeTag: binary.LittleEndian.Uint32(payload[0:4]),
		AccX:    int16(binary.LittleEndian.Uint16(payload[4:6])),
		AccY:    int16(binary.LittleEndian.Uint16(payload[6:8])),
		AccZ:    int16(binary.LittleEndian.Uint16(payload[8:10])),
		GyrX:    int16(binary.LittleEndian.Uint16(payload[10:12])),
		GyrY:    int16(binary.LittleEndian.Uint16(payload[12:14])),
		GyrZ:    int16(binary.LittleEndian.Uint16(payload[14:16])),
	}
}

// ImuAux describes the IMU producing ImuRaw samples: a model identifier and
// a raw temperature reading, sent periodically rather than with every
// sample.
type ImuAux struct {
	IMUType uint8
	TempRaw int16
	IMUConf uint8
}

// EncodeImuAux serialises an ImuAux into an SBP MSG_IMU_AUX payload.
func EncodeImuAux(m ImuAux) []byte {
	buf := make([]byte, 0, 4)
	buf = append(buf, m.IMUType)
	buf = appendU16(buf, uint16(m.TempRaw))
	buf = append(buf, m.IMUConf)
	return buf
}

// DecodeImuAux parses an SBP MSG_IMU_AUX payload.
func DecodeImuAux(payload []byte) ImuAux {
	return ImuAux{
		IMUType: payload[0],
		TempRaw: int16(binary.LittleEndian.Uint16(payload[1:3])),
		IMUConf: payload[3],
	}
}

// Odometry is a wheel-derived speed or distance sample.
type Odometry struct {
	TimeTag  uint32
	Velocity int32 // mm/s, signed: negative for reverse travel
}

// EncodeOdometry serialises an Odometry into an SBP MSG_ODOMETRY payload.
func EncodeOdometry(m Odometry) []byte {
	buf := make([]byte, 0, 8)
	buf = appendU32(buf, m.TimeTag)
	buf = appendU32(buf, uint32(m.Velocity))
	return buf
}

// DecodeOdometry parses an SBP MSG_ODOMETRY payload.
func DecodeOdometry(payload []byte) Odometry {
	return Odometry{
		TimeTag:  binary.LittleEndian.Uint32(payload[0:4]),
		Velocity: int32(binary.LittleEndian.Uint32(payload[4:8])),
	}
}

// GnssTimeOffset is the running offset between GNSS time and a receiver's
// local sensor clock, used to timestamp inertial and odometry samples
// against GNSS time after the fact.
type GnssTimeOffset struct {
	WN         uint16
	TOWms      uint32
	NsResidual int32
	Flags      uint8
}

// EncodeGnssTimeOffset serialises a GnssTimeOffset into an SBP
// MSG_GNSS_TIME_OFFSET payload.
func EncodeGnssTimeOffset(m GnssTimeOffset) []byte {
	buf := make([]byte, 0, 11)
	buf = appendU16(buf, m.WN)
	buf = appendU32(buf, m.TOWms)
	buf = appendU32(buf, uint32(m.NsResidual))
	buf = append(buf, m.Flags)
	return buf
}

// DecodeGnssTimeOffset parses an SBP MSG_GNSS_TIME_OFFSET payload.
func DecodeGnssTimeOffset(payload []byte) GnssTimeOffset {
	return GnssTimeOffset{
		WN:         binary.LittleEndian.Uint16(payload[0:2]),
		TOWms:      binary.LittleEndian.Uint32(payload[2:6]),
		NsResidual: int32(binary.LittleEndian.Uint32(payload[6:10])),
		Flags:      payload[10],
	}
}
