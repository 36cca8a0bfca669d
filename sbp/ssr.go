package sbp

import (
	"encoding/binary"
	"math"
)

// Constellation codes for SsrOrbitClock.ConstellationID, matching the
// subset of RTCM3 SSR message types this module translates.
const (
	SsrConstellationGPS     = 0
	SsrConstellationGalileo = 1
)

// SsrOrbitClock is a decoded MSG_SSR_ORBIT_CLOCK: one satellite's paired
// orbit and clock correction. RTCM3 1060 carries this combined shape
// directly; 1057 (GPS orbit) and 1058 (GPS clock) carry the two halves in
// separate messages, which this module pairs up before emitting. Galileo
// 1240 orbit halves are cached, but no Galileo clock message is decoded, so
// they are never emitted.
type SsrOrbitClock struct {
	ConstellationID uint8
	SatelliteID     uint8
	IODSSR          uint8
	EpochTimeS      uint32

	DeltaRadialM     float32
	DeltaAlongM      float32
	DeltaCrossM      float32
	DotDeltaRadialMS float32
	DotDeltaAlongMS  float32
	DotDeltaCrossMS  float32

	C0M   float32
	C1MS  float32
	C2MS2 float32
}

// EncodeSsrOrbitClock serialises one paired correction record.
func EncodeSsrOrbitClock(c SsrOrbitClock) []byte {
	buf := make([]byte, 43)
	buf[0] = c.ConstellationID
	buf[1] = c.SatelliteID
	buf[2] = c.IODSSR
	binary.LittleEndian.PutUint32(buf[3:7], c.EpochTimeS)
	putF32(buf[7:11], c.DeltaRadialM)
	putF32(buf[11:15], c.DeltaAlongM)
	putF32(buf[15:19], c.DeltaCrossM)
	putF32(buf[19:23], c.DotDeltaRadialMS)
	putF32(buf[23:27], c.DotDeltaAlongMS)
	putF32(buf[27:31], c.DotDeltaCrossMS)
	putF32(buf[31:35], c.C0M)
	putF32(buf[35:39], c.C1MS)
	putF32(buf[39:43], c.C2MS2)
	return buf
}

// DecodeSsrOrbitClock parses an MSG_SSR_ORBIT_CLOCK payload.
func DecodeSsrOrbitClock(payload []byte) SsrOrbitClock {
	return SsrOrbitClock{
		ConstellationID:  payload[0],
		SatelliteID:      payload[1],
		IODSSR:           payload[2],
		EpochTimeS:       binary.LittleEndian.Uint32(payload[3:7]),
		DeltaRadialM:     getF32(payload[7:11]),
		DeltaAlongM:      getF32(payload[11:15]),
		DeltaCrossM:      getF32(payload[15:19]),
		DotDeltaRadialMS: getF32(payload[19:23]),
		DotDeltaAlongMS:  getF32(payload[23:27]),
		DotDeltaCrossMS:  getF32(payload[27:31]),
		C0M:              getF32(payload[31:35]),
		C1MS:             getF32(payload[35:39]),
		C2MS2:            getF32(payload[39:43]),
	}
}

func putF32(dst []byte, v float32) {
	binary.LittleEndian.PutUint32(dst, math.Float32bits(v))
}

func getF32(src []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(src))
}
