package ubxsbp

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/bitflux-nav/gnsswire/bitstream"
	"github.com/bitflux-nav/gnsswire/rtcm3"
)

func putU16(b []byte, v uint16) { binary.LittleEndian.PutUint16(b, v) }
func putU32(b []byte, v uint32) { binary.LittleEndian.PutUint32(b, v) }
func putF32(b []byte, v float32) { binary.LittleEndian.PutUint32(b, math.Float32bits(v)) }
func putF64(b []byte, v float64) { binary.LittleEndian.PutUint64(b, math.Float64bits(v)) }

// buildGPSNavBuffer assembles a 90-byte (three 240-bit subframe) buffer in
// the same layout decodeGPSEphemeris reads, so the decoder can be exercised
// without needing a full RXM-SFRBX word-packing round trip.
func buildGPSNavBuffer(t *testing.T, iode uint64, week uint64) []byte {
	t.Helper()
	w := bitstream.NewWriter()

	// Subframe 1.
	w.WriteU64(0, 24)    // TLM word
	w.WriteU64(1000, 17) // tow1 (unused by the decoder beyond the half-week check)
	w.WriteU64(0, 2)
	w.WriteU64(1, 3) // id1
	w.WriteU64(0, 2)
	w.WriteU64(week, 10)
	w.WriteU64(0, 2) // codeL2
	w.WriteU64(0, 4) // ura
	w.WriteU64(0, 6) // health
	w.WriteU64(0, 2) // iodc0
	w.WriteU64(0, 1 +87)
	w.WriteI64(0, 8)     // tgd
	w.WriteU64(iode, 8)  // iodc1 (low byte must equal iode for the cross-check)
	w.WriteU64(100, 16)  // toc
	w.WriteI64(0, 8)     // af2
	w.WriteI64(0, 16)    // af1
	w.WriteI64(0, 22)    // af0
	w.WriteU64(0, 240-238)

	// Subframe 2.
	w.WriteU64(0, 24) // TLM word
	w.WriteU64(0, 17) // tow2
	w.WriteU64(0, 2)
	w.WriteU64(2, 3) // id2
	w.WriteU64(0, 2)
	w.WriteU64(iode, 8) // iode
	w.WriteI64(0, 16)   // crs
	w.WriteI64(0, 16)   // dn
	w.WriteI64(0, 32)   // m0
	w.WriteI64(0, 16)   // cuc
	w.WriteU64(1000000, 32) // ecc
	w.WriteI64(0, 16)       // cus
	w.WriteU64(2710000000, 32) // sqrtA
	w.WriteU64(100, 16)        // toes
	w.WriteBool(false)         // fit interval flag
	w.WriteU64(0, 240-233)

	// Subframe 3.
	w.WriteU64(0, 24) // TLM word
	w.WriteU64(0, 17) // tow3
	w.WriteU64(0, 2)
	w.WriteU64(3, 3) // id3
	w.WriteU64(0, 2)
	w.WriteI64(0, 16) // cic
	w.WriteI64(0, 32) // omega0
	w.WriteI64(0, 16) // cis
	w.WriteI64(0, 32) // i0
	w.WriteI64(0, 16) // crc
	w.WriteI64(0, 32) // w
	w.WriteI64(0, 24) // omegaDot
	w.WriteU64(iode, 8)
	w.WriteI64(0, 14) // idot

	return w.Bytes()
}

func TestDecodeGPSEphemerisRecoversFields(t *testing.T) {
	buf := buildGPSNavBuffer(t, 10, 142)
	if len(buf) != 90 {
		t.Fatalf("want a 90-byte buffer, got %d", len(buf))
	}

	k, ok := decodeGPSEphemeris(buf, 5, rtcm3.ConstellationGPS)
	if !ok {
		t.Fatalf("want decodeGPSEphemeris to succeed")
	}
	if k.SatID != 5 {
		t.Errorf("want SatID 5, got %d", k.SatID)
	}
	if k.IODE != 10 || k.IODC&0xFF != 10 {
		t.Errorf("want IODE/IODC low byte 10, got IODE=%d IODC=%d", k.IODE, k.IODC)
	}
	if k.Week != 142 {
		t.Errorf("want week 142 (no half-week adjustment expected), got %d", k.Week)
	}
	if k.ToeSeconds != 1600 {
		t.Errorf("want toe 1600s (100*16), got %v", k.ToeSeconds)
	}
}

func TestDecodeGPSEphemerisRejectsIODEMismatch(t *testing.T) {
	buf := buildGPSNavBuffer(t, 10, 142)
	// Corrupt subframe 3's IODE byte (bits 696-703, byte index 87 of 90) so
	// it disagrees with subframe 2's.
	buf[87] ^= 0xFF

	if _, ok := decodeGPSEphemeris(buf, 5, rtcm3.ConstellationGPS); ok {
		t.Fatalf("want decode to fail on an IODE mismatch")
	}
}

func TestHandleRXMRawXEmitsObservations(t *testing.T) {
	s := New()
	payload := make([]byte, 16+32)
	putF64(payload[0:8], 86400.5) // rcvTow
	putU16(payload[8:10], 2190)   // week
	payload[11] = 1               // numMeas

	block := payload[16:]
	putF64(block[0:8], 20000000.0)  // pseudorange
	putF64(block[8:16], 5000000.25) // carrier phase
	putF32(block[16:20], 100.5)     // doppler
	block[22] = 7                   // svID
	putU16(block[26:28], 500)       // lockTime ms
	block[28] = 40                  // cn0
	block[30] = 0x03                // trkStat: PR valid, CP valid

	if err := s.handleRXMRawX(payload); err != nil {
		t.Fatalf("handleRXMRawX: %v", err)
	}
	out := s.Drain()
	if len(out) == 0 {
		t.Fatalf("want an SBP observation frame emitted")
	}
}

func TestHandleESFRawAssemblesImuTriple(t *testing.T) {
	s := New()
	entries := []struct {
		dataType uint8
		value    int32
	}{
		{esfAccelX, 100}, {esfAccelY, 200}, {esfAccelZ, 300},
		{esfGyroX, 10}, {esfGyroY, 20}, {esfGyroZ, 30},
	}
	payload := make([]byte, 4)
	for _, e := range entries {
		word := (uint32(e.dataType) << 24) | (uint32(e.value) & 0x00FFFFFF)
		entry := make([]byte, 8)
		putU32(entry[0:4], word)
		putU32(entry[4:8], 1234)
		payload = append(payload, entry...)
	}

	if err := s.handleESFRaw(payload); err != nil {
		t.Fatalf("handleESFRaw: %v", err)
	}
	out := s.Drain()
	if len(out) == 0 {
		t.Fatalf("want an IMU sample emitted once all six axes arrive")
	}
}

func TestHandleESFMeasEmitsOdometry(t *testing.T) {
	s := New()
	payload := make([]byte, 8+4)
	putU32(payload[0:4], 5000) // time tag
	putU16(payload[6:8], uint16(1<<11))
	word := (uint32(esfSpeed) << 24) | 1500
	putU32(payload[8:12], word)

	if err := s.handleESFMeas(payload); err != nil {
		t.Fatalf("handleESFMeas: %v", err)
	}
	out := s.Drain()
	if len(out) == 0 {
		t.Fatalf("want an odometry sample emitted")
	}
}

func TestHandleNavStatusSuppressedWithoutFix(t *testing.T) {
	s := New()
	payload := make([]byte, 16)
	if err := s.handleNavStatus(payload); err != nil {
		t.Fatalf("handleNavStatus: %v", err)
	}
	if out := s.Drain(); len(out) != 0 {
		t.Fatalf("want no time offset emitted without a valid fix, got %d bytes", len(out))
	}
}

func TestHandleNavStatusEmitsOffsetWithFix(t *testing.T) {
	s := New()
	payload := make([]byte, 16)
	putU32(payload[0:4], 100000) // iTOW
	payload[5] = 0x01 | 0x08     // gpsFixOK | towSet
	putU32(payload[12:16], 99000) // msss

	if err := s.handleNavStatus(payload); err != nil {
		t.Fatalf("handleNavStatus: %v", err)
	}
	if out := s.Drain(); len(out) == 0 {
		t.Fatalf("want a time offset emitted with a valid fix")
	}
}
