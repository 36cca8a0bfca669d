// Package gnsstime resolves the truncated week numbers broadcast in RTCM3
// ephemeris messages into absolute GPS time, and converts between the GPS,
// BeiDou and GLONASS time scales. RTCM3 ephemerides carry a week number
// modulo some constellation-specific resolution (10 bits for GPS, 13 for
// BeiDou, ...); recovering the absolute week requires a nearby reference
// time, the same rollover arithmetic the reference decoder applies.
package gnsstime

import "math"

const weekSeconds = 7 * 24 * 3600

// BDS_SECOND_TO_GPS_SECOND is BeiDou time's fixed offset from GPS time.
const BDS_SECOND_TO_GPS_SECOND = 14

// BDS_WEEK_TO_GPS_WEEK is the week-number offset between the BeiDou and GPS
// time scale epochs.
const BDS_WEEK_TO_GPS_WEEK = 1356

// MOSCOW_TO_UTC_OFFSET_HOURS is the fixed UTC offset GLONASS broadcast time
// (Moscow time) carries relative to UTC.
const MOSCOW_TO_UTC_OFFSET_HOURS = 3

// Time is a GPS-time-scale (week, time-of-week-in-seconds) pair.
type Time struct {
	WN  int
	TOW float64
}

func (t Time) toSeconds() float64 { return float64(t.WN)*weekSeconds + t.TOW }

func fromSeconds(total float64) Time {
	wn := int(total / weekSeconds)
	tow := total - float64(wn)*weekSeconds
	return Time{WN: wn, TOW: tow}
}

// Offset is a constant (week, time-of-week) shift between a constellation's
// time scale and GPS time, e.g. {WN: BDS_WEEK_TO_GPS_WEEK, TOW:
// BDS_SECOND_TO_GPS_SECOND} for BeiDou.
type Offset struct {
	WN  int
	TOW float64
}

// WeekRolloverAdjustment resolves a constellation-scale time whose week
// number is truncated to wnResolution bits into an absolute GPS time,
// using referenceTime (an absolute GPS time known to be within one
// rollover period of the true time, typically "now") and the constant
// constellationOffset from that constellation's epoch to the GPS epoch.
//
// This mirrors the reference decoder's rollover-period arithmetic: shift
// the reference time into the constellation's epoch, reduce its week
// modulo the rollover period, find the smallest non-negative delta to the
// truncated time, then shift back.
func WeekRolloverAdjustment(constellationTime Time, referenceTime Time, wnResolution uint, constellationOffset Offset) Time {
	rolloverPeriod := 1 << wnResolution
	rolloverPeriodSeconds := float64(rolloverPeriod) * weekSeconds
	offsetSeconds := float64(constellationOffset.WN)*weekSeconds + constellationOffset.TOW

	absoluteReference := fromSeconds(referenceTime.toSeconds() - offsetSeconds)

	reference := absoluteReference
	reference.WN = absoluteReference.WN % rolloverPeriod

	delta := constellationTime.toSeconds() - reference.toSeconds()
	if delta < 0 {
		delta += rolloverPeriodSeconds
	}

	adjusted := fromSeconds(absoluteReference.toSeconds() + delta + offsetSeconds)
	return adjusted
}

// NormalizeBDS2TOW unwraps a 30-bit BeiDou MSM epoch time field that some
// base stations (notably Septentrio) emit with a small negative offset
// rather than the positive value the field format expects, per the
// reference decoder's normalize_bds2_tow quirk.
func NormalizeBDS2TOW(towMS uint32) uint32 {
	const c2p30 = 1 << 30
	const rtcmMaxTowMS = 604800000
	if towMS >= c2p30-BDS_SECOND_TO_GPS_SECOND*1000 {
		negativeTowMS := uint32(c2p30) - towMS
		return rtcmMaxTowMS + 1 - negativeTowMS
	}
	return towMS
}

// glonassDaySeconds is the width of the Moscow-time broadcast day that
// RTCM 1020's t_b field indexes into.
const glonassDaySeconds = 24 * 3600

// glonassQuarterHourSeconds is the LSB of the t_b field.
const glonassQuarterHourSeconds = 15 * 60

// moscowOffsetSeconds returns the constant shift from GPS time to Moscow
// broadcast time: Moscow = GPS + offset. leapSeconds is UTC behind GPS
// (currently 18s), and Moscow is UTC+3h with no further leap adjustment.
func moscowOffsetSeconds(leapSeconds int) float64 {
	return MOSCOW_TO_UTC_OFFSET_HOURS*3600 - float64(leapSeconds)
}

// ResolveGlonassTb resolves RTCM 1020's t_b field (a quarter-hour index
// into the current Moscow-time broadcast day) into an absolute GPS time.
// referenceTime is an absolute GPS time known to be within half a day of
// the broadcast, used to pick which day's boundary the index falls in,
// the same disambiguation WeekRolloverAdjustment performs at week
// granularity. leapSeconds is UTC behind GPS, in seconds.
func ResolveGlonassTb(tb uint, referenceTime Time, leapSeconds int) Time {
	offset := moscowOffsetSeconds(leapSeconds)
	refMoscow := referenceTime.toSeconds() + offset
	dayStart := math.Floor(refMoscow/glonassDaySeconds) * glonassDaySeconds

	best := dayStart + float64(tb)*glonassQuarterHourSeconds
	for _, candidate := range []float64{best - glonassDaySeconds, best + glonassDaySeconds} {
		if math.Abs(candidate-refMoscow) < math.Abs(best-refMoscow) {
			best = candidate
		}
	}
	return fromSeconds(best - offset)
}

// GlonassTb derives RTCM 1020's t_b field (a quarter-hour index into the
// Moscow-time day containing t) from an absolute GPS time, the inverse of
// ResolveGlonassTb.
func GlonassTb(t Time, leapSeconds int) uint {
	moscow := t.toSeconds() + moscowOffsetSeconds(leapSeconds)
	secOfDay := math.Mod(moscow, glonassDaySeconds)
	if secOfDay < 0 {
		secOfDay += glonassDaySeconds
	}
	const quartersPerDay = glonassDaySeconds / glonassQuarterHourSeconds
	idx := uint(secOfDay/glonassQuarterHourSeconds+0.5) % quartersPerDay
	return idx
}

// GLOCurveFitIntervalSeconds maps the 1-bit GLONASS curve fit flag (P1-style
// 2-bit field in some broadcasts, here taking the simplified 0/1 form) to a
// fit interval in seconds.
func GLOCurveFitIntervalSeconds(p1 uint) uint32 {
	switch p1 {
	case 1:
		return (30 + 10) * 60
	case 2:
		return (45 + 10) * 60
	default:
		return (60 + 10) * 60
	}
}
