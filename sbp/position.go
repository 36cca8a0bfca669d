package sbp

import (
	"encoding/binary"
	"math"
)

// BasePositionECEF is a decoded MSG_BASE_POS_ECEF: the reference station's
// fixed position, derived from RTCM 1005/1006 (antenna height folded into
// Z for 1006).
type BasePositionECEF struct {
	X, Y, Z float64 // metres, WGS-84 ECEF
}

// EncodeBasePositionECEF serialises a base position as three little-endian
// float64 values.
func EncodeBasePositionECEF(p BasePositionECEF) []byte {
	buf := make([]byte, 24)
	binary.LittleEndian.PutUint64(buf[0:8], math.Float64bits(p.X))
	binary.LittleEndian.PutUint64(buf[8:16], math.Float64bits(p.Y))
	binary.LittleEndian.PutUint64(buf[16:24], math.Float64bits(p.Z))
	return buf
}

// DecodeBasePositionECEF parses an MSG_BASE_POS_ECEF payload.
func DecodeBasePositionECEF(payload []byte) BasePositionECEF {
	return BasePositionECEF{
		X: math.Float64frombits(binary.LittleEndian.Uint64(payload[0:8])),
		Y: math.Float64frombits(binary.LittleEndian.Uint64(payload[8:16])),
		Z: math.Float64frombits(binary.LittleEndian.Uint64(payload[16:24])),
	}
}

// PosLLH is a decoded MSG_POS_LLH position solution.
type PosLLH struct {
	TOWms           uint32
	Lat, Lon, Height float64
	HAccuracy, VAccuracy float32
	NumSatellites   uint8
	Flags           uint8
}

// EncodePosLLH serialises a PosLLH record.
func EncodePosLLH(p PosLLH) []byte {
	buf := make([]byte, 0, 4+24+8+1+1)
	buf = appendU32(buf, p.TOWms)
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], math.Float64bits(p.Lat))
	buf = append(buf, tmp[:]...)
	binary.LittleEndian.PutUint64(tmp[:], math.Float64bits(p.Lon))
	buf = append(buf, tmp[:]...)
	binary.LittleEndian.PutUint64(tmp[:], math.Float64bits(p.Height))
	buf = append(buf, tmp[:]...)
	var tmp4 [4]byte
	binary.LittleEndian.PutUint32(tmp4[:], math.Float32bits(p.HAccuracy))
	buf = append(buf, tmp4[:]...)
	binary.LittleEndian.PutUint32(tmp4[:], math.Float32bits(p.VAccuracy))
	buf = append(buf, tmp4[:]...)
	buf = append(buf, p.NumSatellites, p.Flags)
	return buf
}

// DecodePosLLH parses an MSG_POS_LLH payload.
func DecodePosLLH(payload []byte) PosLLH {
	return PosLLH{
		TOWms:         binary.LittleEndian.Uint32(payload[0:4]),
		Lat:           math.Float64frombits(binary.LittleEndian.Uint64(payload[4:12])),
		Lon:           math.Float64frombits(binary.LittleEndian.Uint64(payload[12:20])),
		Height:        math.Float64frombits(binary.LittleEndian.Uint64(payload[20:28])),
		HAccuracy:     math.Float32frombits(binary.LittleEndian.Uint32(payload[28:32])),
		VAccuracy:     math.Float32frombits(binary.LittleEndian.Uint32(payload[32:36])),
		NumSatellites: payload[36],
		Flags:         payload[37],
	}
}
