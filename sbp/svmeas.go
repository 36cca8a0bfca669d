package sbp

// SvAzElEntry is one satellite's coarse pointing angle.
type SvAzElEntry struct {
	Sat uint8
	Az  uint8 // 2 degrees per LSB
	El  int8  // degrees
}

// SvAzEl is the SBP rendering of a TeseoV STGSV sub-message: a snapshot of
// every tracked satellite's azimuth/elevation.
type SvAzEl struct {
	Entries []SvAzElEntry
}

// EncodeSvAzEl serialises an SvAzEl into an SBP payload.
func EncodeSvAzEl(m SvAzEl) []byte {
	buf := make([]byte, 0, 1+len(m.Entries)*3)
	buf = append(buf, uint8(len(m.Entries)))
	for _, e := range m.Entries {
		buf = append(buf, e.Sat, e.Az, byte(e.El))
	}
	return buf
}

// DecodeSvAzEl parses an SBP SvAzEl payload.
func DecodeSvAzEl(payload []byte) SvAzEl {
	if len(payload) == 0 {
		return SvAzEl{}
	}
	n := int(payload[0])
	m := SvAzEl{Entries: make([]SvAzElEntry, n)}
	for i := 0; i < n; i++ {
		b := payload[1+i*3:]
		m.Entries[i] = SvAzElEntry{Sat: b[0], Az: b[1], El: int8(b[2])}
	}
	return m
}

// MeasurementState flag bits.
const (
	MeasStateHasElevation = 1 << 0
	MeasStateHasAzimuth   = 1 << 1
	MeasStateHasCN0       = 1 << 2
)

// MeasurementStateEntry is one satellite's tracking-channel summary: which
// STGSV fields were actually present for it and the primary band's CN0.
type MeasurementStateEntry struct {
	Sat   uint8
	CN0   uint8
	State uint8
}

// MeasurementState is the SBP rendering of a TeseoV STGSV sub-message's
// per-satellite field presence, the companion to SvAzEl.
type MeasurementState struct {
	Entries []MeasurementStateEntry
}

// EncodeMeasurementState serialises a MeasurementState into an SBP payload.
func EncodeMeasurementState(m MeasurementState) []byte {
	buf := make([]byte, 0, 1+len(m.Entries)*3)
	buf = append(buf, uint8(len(m.Entries)))
	for _, e := range m.Entries {
		buf = append(buf, e.Sat, e.CN0, e.State)
	}
	return buf
}

// DecodeMeasurementState parses an SBP MeasurementState payload.
func DecodeMeasurementState(payload []byte) MeasurementState {
	if len(payload) == 0 {
		return MeasurementState{}
	}
	n := int(payload[0])
	m := MeasurementState{Entries: make([]MeasurementStateEntry, n)}
	for i := 0; i < n; i++ {
		b := payload[1+i*3:]
		m.Entries[i] = MeasurementStateEntry{Sat: b[0], CN0: b[1], State: b[2]}
	}
	return m
}
