package rtcmsbp

import (
	"testing"

	"github.com/bitflux-nav/gnsswire/gnsstime"
	"github.com/bitflux-nav/gnsswire/rtcm3"
	"github.com/bitflux-nav/gnsswire/rtcm3/ephemeris"
	"github.com/bitflux-nav/gnsswire/rtcm3/proprietary"
	"github.com/bitflux-nav/gnsswire/rtcm3/station"
	"github.com/bitflux-nav/gnsswire/sbp"
)

// TestOutboundBasePositionToARP checks a base-position-ECEF frame round
// trips into a station descriptor carrying the same ECEF coordinates.
func TestOutboundBasePositionToARP(t *testing.T) {
	o := NewOutbound()
	o.StationID = 42

	payload := sbp.EncodeBasePositionECEF(sbp.BasePositionECEF{X: 1000, Y: 2000, Z: 3000})
	if err := o.HandleSBP(&sbp.Frame{MsgType: sbp.MsgBasePosECEF, Payload: payload}); err != nil {
		t.Fatalf("HandleSBP: %v", err)
	}

	out := o.Drain()
	frame, _, err := rtcm3.NextFrame(out)
	if err != nil {
		t.Fatalf("NextFrame: %v", err)
	}
	if frame.MessageType != rtcm3.MessageTypeStationARP {
		t.Fatalf("want 1005 (no height present), got %d", frame.MessageType)
	}
	a, err := station.DecodeARP(frame.Payload)
	if err != nil {
		t.Fatalf("DecodeARP: %v", err)
	}
	x, y, z := a.ECEF()
	if !approxEqual(x, 1000, 0.001) || !approxEqual(y, 2000, 0.001) || !approxEqual(z, 3000, 0.001) {
		t.Errorf("want X=1000 Y=2000 Z=3000, got X=%v Y=%v Z=%v", x, y, z)
	}
	if a.StationID != 42 {
		t.Errorf("want station ID 42, got %d", a.StationID)
	}
}

// TestOutboundKeplerEphemerisRoutesByConstellation checks each SBP
// ephemeris message type is re-encoded as the matching RTCM3 message
// number.
func TestOutboundKeplerEphemerisRoutesByConstellation(t *testing.T) {
	cases := []struct {
		msgType uint16
		want    int
	}{
		{sbp.MsgEphemerisGPS, rtcm3.MessageTypeGPSEphemeris},
		{sbp.MsgEphemerisGal, rtcm3.MessageTypeGalileoFNavEph},
		{sbp.MsgEphemerisBds, rtcm3.MessageTypeBeidouEphemeris},
		{sbp.MsgEphemerisQzss, rtcm3.MessageTypeQZSSEphemeris},
	}

	for _, c := range cases {
		o := NewOutbound()
		e := sbp.EphemerisGPS{
			SID: sbp.SignalID{Sat: 5},
			TOE: sbp.EpochHeader{WN: 200, TOWms: 302400000},
			IODE: 10, IODC: 10, SqrtA: 5153.7, Ecc: 0.01,
		}
		payload := sbp.EncodeEphemerisGPS(e)

		if err := o.HandleSBP(&sbp.Frame{MsgType: c.msgType, Payload: payload}); err != nil {
			t.Fatalf("HandleSBP(%#x): %v", c.msgType, err)
		}
		out := o.Drain()
		frame, _, err := rtcm3.NextFrame(out)
		if err != nil {
			t.Fatalf("NextFrame: %v", err)
		}
		if frame.MessageType != c.want {
			t.Errorf("msg %#x: want RTCM type %d, got %d", c.msgType, c.want, frame.MessageType)
		}
	}
}

// TestOutboundGlonassSuppressedWithoutLeapSeconds checks a GLONASS
// ephemeris is withheld until a leap-second source is available, then
// emitted once LeapSeconds is set, with t_b correctly re-derived from the
// absolute toe and the configured leap-second count.
func TestOutboundGlonassSuppressedWithoutLeapSeconds(t *testing.T) {
	o := NewOutbound()
	e := sbp.EphemerisGlo{SID: sbp.SignalID{Sat: 3}, FCN: 2, TOE: sbp.EpochHeader{WN: 2300, TOWms: 43200000}}
	payload := sbp.EncodeEphemerisGlo(e)

	if err := o.HandleSBP(&sbp.Frame{MsgType: sbp.MsgEphemerisGlo, Payload: payload}); err != nil {
		t.Fatalf("HandleSBP: %v", err)
	}
	if out := o.Drain(); len(out) != 0 {
		t.Fatalf("want no GLONASS ephemeris emitted without a leap-second source, got %d bytes", len(out))
	}

	leap := 18
	o.LeapSeconds = &leap
	if err := o.HandleSBP(&sbp.Frame{MsgType: sbp.MsgEphemerisGlo, Payload: payload}); err != nil {
		t.Fatalf("HandleSBP: %v", err)
	}
	out := o.Drain()
	frame, _, err := rtcm3.NextFrame(out)
	if err != nil {
		t.Fatalf("NextFrame: %v", err)
	}
	if frame.MessageType != rtcm3.MessageTypeGlonassEphemeris {
		t.Errorf("want 1020, got %d", frame.MessageType)
	}
	g, err := ephemeris.DecodeGlonass(frame.Payload)
	if err != nil {
		t.Fatalf("DecodeGlonass: %v", err)
	}
	wantTb := gnsstime.GlonassTb(gnsstime.Time{WN: 2300, TOW: 43200}, leap)
	if g.Tb != wantTb {
		t.Errorf("want t_b %d derived from toe+leap seconds, got %d", wantTb, g.Tb)
	}
}

// TestOutboundUnknownTypeWrappedIn4062 checks a message type this module
// doesn't translate is forwarded as a Swift proprietary envelope rather
// than dropped.
func TestOutboundUnknownTypeWrappedIn4062(t *testing.T) {
	o := NewOutbound()
	embedded := &sbp.Frame{MsgType: 0x9999, Payload: []byte{1, 2, 3}}

	if err := o.HandleSBP(embedded); err != nil {
		t.Fatalf("HandleSBP: %v", err)
	}
	out := o.Drain()
	frame, _, err := rtcm3.NextFrame(out)
	if err != nil {
		t.Fatalf("NextFrame: %v", err)
	}
	if frame.MessageType != rtcm3.MessageTypeSwiftProprietary {
		t.Fatalf("want 4062, got %d", frame.MessageType)
	}
	w, err := proprietary.DecodeSwiftWrapper(frame.Payload)
	if err != nil {
		t.Fatalf("DecodeSwiftWrapper: %v", err)
	}
	got, _, err := sbp.Decode(w.Payload)
	if err != nil {
		t.Fatalf("sbp.Decode: %v", err)
	}
	if got.MsgType != 0x9999 {
		t.Errorf("want the embedded frame's message type preserved, got %#x", got.MsgType)
	}
}

// TestOutboundObsEpochBuffersThenEmitsMSM checks a single-fragment
// observation epoch produces an MSM4 message once reassembled.
func TestOutboundObsEpochBuffersThenEmitsMSM(t *testing.T) {
	o := NewOutbound()
	o.StationID = 9

	h := sbp.EpochHeader{WN: 2190, TOWms: 100000, NumObs: sbp.PackNumObs(1, 0)}
	obs := []sbp.Observation{
		{SID: sbp.SignalID{Sat: 1, Code: uint8(sbp.CodeGPSL1CA)}, P: 3981200, Flags: sbp.ObsFlagPRValid | sbp.ObsFlagCPValid, Lock: 5, CN0: 180},
	}
	payload := sbp.EncodeObsFrame(h, obs)

	if err := o.HandleSBP(&sbp.Frame{MsgType: sbp.MsgObs, Payload: payload}); err != nil {
		t.Fatalf("HandleSBP: %v", err)
	}

	out := o.Drain()
	if len(out) == 0 {
		t.Fatalf("want an MSM4 message emitted once the single-fragment epoch completes")
	}
	frame, _, err := rtcm3.NextFrame(out)
	if err != nil {
		t.Fatalf("NextFrame: %v", err)
	}
	info, ok := rtcm3.LookupMSM(frame.MessageType)
	if !ok || info.Variant != 4 || info.Constellation != rtcm3.ConstellationGPS {
		t.Errorf("want a GPS MSM4 message, got type %d", frame.MessageType)
	}
}

// TestOutboundObsEpochLegacyMode checks ObsModeLegacy emits 1002 instead of
// an MSM message for the same reassembled epoch.
func TestOutboundObsEpochLegacyMode(t *testing.T) {
	o := NewOutbound()
	o.Mode = ObsModeLegacy
	o.StationID = 9

	h := sbp.EpochHeader{WN: 2190, TOWms: 100000, NumObs: sbp.PackNumObs(1, 0)}
	obs := []sbp.Observation{
		{SID: sbp.SignalID{Sat: 1, Code: uint8(sbp.CodeGPSL1CA)}, P: 3981200, Flags: sbp.ObsFlagPRValid, Lock: 5},
	}
	payload := sbp.EncodeObsFrame(h, obs)

	if err := o.HandleSBP(&sbp.Frame{MsgType: sbp.MsgObs, Payload: payload}); err != nil {
		t.Fatalf("HandleSBP: %v", err)
	}
	out := o.Drain()
	frame, _, err := rtcm3.NextFrame(out)
	if err != nil {
		t.Fatalf("NextFrame: %v", err)
	}
	if frame.MessageType != rtcm3.MessageTypeGPSL1Full {
		t.Errorf("want 1002, got %d", frame.MessageType)
	}
}
