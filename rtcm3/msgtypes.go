package rtcm3

// Message type numbers, grouped by category.
const (
	// Legacy observations.
	MessageTypeGPSL1       = 1001
	MessageTypeGPSL1Full   = 1002
	MessageTypeGPSL1L2     = 1003
	MessageTypeGPSL1L2Full = 1004
	MessageTypeGlonassL1   = 1010
	MessageTypeGlonassL1L2 = 1012

	// Station descriptors.
	MessageTypeStationARP           = 1005
	MessageTypeStationARPAndHeight  = 1006
	MessageTypeAntennaDescriptor    = 1007
	MessageTypeAntennaDescriptorExt = 1008
	MessageTypeReceiverAntenna      = 1033
	MessageTypeGlonassCodePhaseBias = 1230

	// System parameters.
	MessageTypeSystemParameters = 1013
	MessageTypeUnicodeText      = 1029

	// Ephemerides.
	MessageTypeGPSEphemeris      = 1019
	MessageTypeGlonassEphemeris  = 1020
	MessageTypeBeidouEphemeris   = 1042
	MessageTypeQZSSEphemeris     = 1044
	MessageTypeGalileoFNavEph    = 1045
	MessageTypeGalileoINavEph    = 1046

	// SSR corrections (representative subset: GPS orbit/clock/combined, Galileo orbit).
	MessageTypeGPSOrbitCorrection     = 1057
	MessageTypeGPSClockCorrection     = 1058
	MessageTypeGPSCombinedCorrection  = 1060
	MessageTypeGalileoOrbitCorrection = 1240

	// Proprietary envelopes.
	MessageTypeSwiftProprietary = 4062
	MessageTypeNavDataFrame     = 4075
	MessageTypeTeseoV           = 999
)

// MSM message-number tables, indexed by constellation and MSM variant
// (1..7). Variant 1-3 (compressed observations) are recognised so that the
// translator can drop them deliberately rather than failing to parse them.
var msmTypesByConstellation = map[string][7]int{
	"GPS":     {1071, 1072, 1073, 1074, 1075, 1076, 1077},
	"GLONASS": {1081, 1082, 1083, 1084, 1085, 1086, 1087},
	"Galileo": {1091, 1092, 1093, 1094, 1095, 1096, 1097},
	"SBAS":    {1101, 1102, 1103, 1104, 1105, 1106, 1107},
	"QZSS":    {1111, 1112, 1113, 1114, 1115, 1116, 1117},
	"BeiDou":  {1121, 1122, 1123, 1124, 1125, 1126, 1127},
}

// MSMInfo describes an MSM message type: its constellation and variant
// number (1-7).
type MSMInfo struct {
	Constellation string
	Variant       int
}

var msmInfoByType = func() map[int]MSMInfo {
	m := make(map[int]MSMInfo)
	for constellation, types := range msmTypesByConstellation {
		for i, t := range types {
			m[t] = MSMInfo{Constellation: constellation, Variant: i + 1}
		}
	}
	return m
}()

// LookupMSM returns the constellation and variant (1-7) for an MSM message
// type, or ok=false if messageType isn't an MSM type at all.
func LookupMSM(messageType int) (info MSMInfo, ok bool) {
	info, ok = msmInfoByType[messageType]
	return info, ok
}

// MSMTypeFor is the inverse of LookupMSM: given a constellation and variant
// (1-7), it returns the message type number, if that combination exists.
func MSMTypeFor(constellation string, variant int) (int, bool) {
	types, ok := msmTypesByConstellation[constellation]
	if !ok || variant < 1 || variant > 7 {
		return 0, false
	}
	return types[variant-1], true
}

// IsMSM4Plus reports whether messageType is an MSM4, 5, 6 or 7 message -
// the variants this module can decode (MSM1-3 carry compressed
// observations and are out of scope for this translation layer).
func IsMSM4Plus(messageType int) bool {
	info, ok := LookupMSM(messageType)
	return ok && info.Variant >= 4
}

// Constellation names used throughout the codec.
const (
	ConstellationGPS     = "GPS"
	ConstellationGlonass = "GLONASS"
	ConstellationGalileo = "Galileo"
	ConstellationSBAS    = "SBAS"
	ConstellationQZSS    = "QZSS"
	ConstellationBeidou  = "BeiDou"
)
