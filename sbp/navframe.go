package sbp

import "encoding/binary"

// NavDataFrame is the SBP rendering of one raw subframe captured by an RTCM
// 4075 (Navigation Data Frame) message: forwarded verbatim rather than
// interpreted, the same way this codec passes through any proprietary
// payload whose internal structure is out of scope.
type NavDataFrame struct {
	SatelliteSystem    uint8
	SatelliteNumber    uint8
	SignalType         uint8
	EpochTimeMS        uint32
	ContinuousTracking bool
	Data               []uint32
}

// EncodeNavDataFrame serialises a NavDataFrame into an SBP payload.
func EncodeNavDataFrame(f NavDataFrame) []byte {
	buf := make([]byte, 0, 8+len(f.Data)*4)
	buf = append(buf, f.SatelliteSystem, f.SatelliteNumber, f.SignalType)
	buf = appendU32(buf, f.EpochTimeMS)
	var tracking uint8
	if f.ContinuousTracking {
		tracking = 1
	}
	buf = append(buf, tracking, uint8(len(f.Data)))
	for _, w := range f.Data {
		buf = appendU32(buf, w)
	}
	return buf
}

// DecodeNavDataFrame parses an SBP NavDataFrame payload.
func DecodeNavDataFrame(payload []byte) NavDataFrame {
	f := NavDataFrame{
		SatelliteSystem:    payload[0],
		SatelliteNumber:    payload[1],
		SignalType:         payload[2],
		EpochTimeMS:        binary.LittleEndian.Uint32(payload[3:7]),
		ContinuousTracking: payload[7] != 0,
	}
	n := int(payload[8])
	f.Data = make([]uint32, n)
	for i := 0; i < n; i++ {
		off := 9 + i*4
		f.Data[i] = binary.LittleEndian.Uint32(payload[off : off+4])
	}
	return f
}
