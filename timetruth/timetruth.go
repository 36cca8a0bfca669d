// Package timetruth resolves the current GNSS time from several
// independent, partially-trustworthy sources: observed pseudoranges,
// decoded ephemerides, RTCM 1013 system parameters and UBX leap-second
// announcements. Each source pushes samples into its own small estimator;
// a query corroborates whatever estimators currently have something to say
// and returns the best available time, tagged with a confidence level so a
// caller can decide whether to trust it.
package timetruth

import (
	"math"
	"sort"
	"sync"

	"github.com/bitflux-nav/gnsswire/gnsstime"
	"github.com/bitflux-nav/gnsswire/wireerr"
)

// WeekSeconds is the number of seconds in a GPS week, used to validate a
// time-of-week value.
const WeekSeconds = 7 * 24 * 3600

const weekMS = int64(WeekSeconds) * 1000

// EstimatorKind identifies which source produced a time estimate.
type EstimatorKind int

const (
	EstimatorObservation EstimatorKind = iota
	EstimatorEphemeris
	EstimatorRTCM1013
	EstimatorUBXLeap
)

func (k EstimatorKind) String() string {
	switch k {
	case EstimatorObservation:
		return "observation"
	case EstimatorEphemeris:
		return "ephemeris"
	case EstimatorRTCM1013:
		return "rtcm_1013"
	case EstimatorUBXLeap:
		return "ubx_leap"
	default:
		return "unknown"
	}
}

// priority ranks each estimator kind's inherent trustworthiness when more
// than one currently has something to say: ephemeris-derived time comes
// from the satellites' own broadcast clocks and outranks the single-sample
// 1013/UBX trackers, which in turn outrank a raw observation timestamp
// that a free-running receiver clock can offset.
func (k EstimatorKind) priority() int {
	switch k {
	case EstimatorEphemeris:
		return 3
	case EstimatorRTCM1013, EstimatorUBXLeap:
		return 2
	case EstimatorObservation:
		return 1
	default:
		return 0
	}
}

// TimeTruthSource distinguishes which producer a given estimator handle
// belongs to: the stream this process is itself decoding (Local), or a
// peer translator's corroborating opinion fed in out of band (Remote). Only
// Local is exercised by this module's own command-line tools; Remote exists
// so a fleet of translators could one day share a single TimeTruth by
// cross-feeding each other's estimates through RequestEstimator/PushFrom.
type TimeTruthSource int

const (
	SourceLocal TimeTruthSource = iota
	SourceRemote
)

func (s TimeTruthSource) String() string {
	if s == SourceRemote {
		return "remote"
	}
	return "local"
}

// Confidence ranks how much an estimate should be trusted. Unlike the
// earlier single-writer-wins scheme, it is recomputed on every query from
// whichever estimators currently agree with each other, not fixed per
// estimator kind.
type Confidence int

const (
	ConfidenceNone Confidence = iota
	ConfidenceBad
	ConfidenceGood
	ConfidenceBest
)

func (c Confidence) String() string {
	switch c {
	case ConfidenceNone:
		return "none"
	case ConfidenceBad:
		return "bad"
	case ConfidenceGood:
		return "good"
	case ConfidenceBest:
		return "best"
	default:
		return "unknown"
	}
}

// Estimate is a single time-truth estimate from one source.
type Estimate struct {
	Kind       EstimatorKind
	Time       gnsstime.Time
	Confidence Confidence
}

// estimatorHandle identifies one producer's private estimator: the
// (source, kind) pair RequestEstimator enforces single ownership of.
type estimatorHandle struct {
	source TimeTruthSource
	kind   EstimatorKind
}

// candidate is one estimator's current opinion, tagged with the kind and
// source it came from, ready to be corroborated against every other
// estimator's candidate at query time.
type candidate struct {
	handle estimatorHandle
	time   gnsstime.Time
	hasWN  bool
	seq    uint64 // push order, used to break ties within a priority tier
}

const observationToleranceMS = 5000
const observationMismatchLimit = 5

// observationEstimator implements the ObservationTimeEstimator state
// machine: it tracks the latest accepted time-of-week and a mismatch
// counter, jumping straight to a new value only after enough consecutive
// disagreement to call it a discontinuity rather than noise.
type observationEstimator struct {
	haveTOW    bool
	towMS      int64
	mismatches int
	seq        uint64
}

func (o *observationEstimator) push(towMS int64, seq uint64) {
	o.seq = seq
	if !o.haveTOW {
		o.towMS = towMS
		o.haveTOW = true
		return
	}
	if absInt64(towMS-o.towMS) <= observationToleranceMS {
		o.towMS = towMS
		o.mismatches = 0
		return
	}
	o.mismatches++
	if o.mismatches >= observationMismatchLimit {
		o.towMS = towMS
		o.mismatches = 0
	}
}

func (o *observationEstimator) estimate() (gnsstime.Time, bool, bool) {
	if !o.haveTOW {
		return gnsstime.Time{}, false, false
	}
	return gnsstime.Time{TOW: float64(o.towMS) / 1000}, false, true
}

const ephemerisMinEntries = 6
const ephemerisPoolWindowMS = int64(4 * 3600 * 1000)
const ephemerisMaxIQRMS = int64(8 * 3600 * 1000)

// ephemerisEstimator implements the EphemerisTimeEstimator state machine:
// per constellation, the most recently decoded time-of-week (not absolute
// time — a raw week number off the wire can still be truncated at the
// point this gets pushed, before translator.go's own rollover correction
// runs) for each satellite. get_estimate anchors on its own pool's median
// toe rather than an externally supplied reference, so a single stray
// push (itself potentially the bad sample this estimator exists to guard
// against) can't drag the pooling window away from the corroborating
// majority. It quartile-filters the pool around that anchor to reject a
// lone outlier skewing the result, and reports the pooled center — the
// same robust-statistics approach the reference decoder applies. The
// absolute week number isn't resolved here; it's taken from whichever
// other estimator supplied the reference, the same way the pooled toe
// corroborates rather than replaces it.
type ephemerisEstimator struct {
	byConstellation map[string]map[uint]int64 // constellation -> satID -> toe time-of-week in ms
	seq             uint64
	syntheticSatID  uint // used by the generic Push path, which has no satID of its own
}

func newEphemerisEstimator() *ephemerisEstimator {
	return &ephemerisEstimator{byConstellation: map[string]map[uint]int64{}}
}

func (e *ephemerisEstimator) push(constellation string, satID uint, t gnsstime.Time, seq uint64) {
	e.seq = seq
	m, ok := e.byConstellation[constellation]
	if !ok {
		m = map[uint]int64{}
		e.byConstellation[constellation] = m
	}
	m[satID] = int64(t.TOW * 1000)
}

// quartileIndices returns the lower and upper bracket index pairs for the
// 25th and 75th percentile of a sorted pool of n samples, using linear
// interpolation between closest ranks. The upper pair mirrors the lower
// pair around the middle by construction (loLow+hiHigh == loHigh+hiLow ==
// n-1), so when a position lands exactly on a sample (n-1 a multiple of 4,
// so the 25th-percentile position is an integer index) both indices of that
// pair are equal — the "average" of a
// single sample with itself.
func quartileIndices(n int) (loLow, loHigh, hiLow, hiHigh int) {
	loPos := 0.25 * float64(n-1)
	loLow = int(math.Floor(loPos))
	loHigh = int(math.Ceil(loPos))
	hiLow = n - 1 - loHigh
	hiHigh = n - 1 - loLow
	return
}

// estimate pools every qualifying constellation's satellite toe values
// around the pool's own median, quartile-filters it and reports its
// center. The resolved week number, when reported at all, is borrowed from
// candidateWN/haveWN rather than derived from the pool: the pool only ever
// carries bare times-of-week.
func (e *ephemerisEstimator) estimate(candidateWN int, haveWN bool) (gnsstime.Time, bool, bool) {
	var all []int64
	for _, m := range e.byConstellation {
		if len(m) < ephemerisMinEntries {
			continue
		}
		for _, towMS := range m {
			all = append(all, towMS)
		}
	}
	if len(all) == 0 {
		return gnsstime.Time{}, false, false
	}
	sort.Slice(all, func(i, j int) bool { return all[i] < all[j] })
	anchor := all[len(all)/2]

	var pool []int64
	for _, towMS := range all {
		diff := towMS - anchor
		if diff > weekMS/2 {
			diff -= weekMS
		} else if diff < -weekMS/2 {
			diff += weekMS
		}
		if absInt64(diff) <= ephemerisPoolWindowMS {
			pool = append(pool, towMS)
		}
	}

	loLow, loHigh, hiLow, hiHigh := quartileIndices(len(pool))
	q1 := (pool[loLow] + pool[loHigh]) / 2
	q3 := (pool[hiLow] + pool[hiHigh]) / 2
	if q3-q1 > ephemerisMaxIQRMS {
		return gnsstime.Time{}, false, false
	}

	center := (q1 + q3) / 2
	if !haveWN {
		return gnsstime.Time{TOW: float64(center) / 1000}, false, true
	}
	return gnsstime.Time{WN: candidateWN, TOW: float64(center) / 1000}, true, true
}

const sampleToleranceMS = 60000

// sampleEstimator implements the Rtcm1013TimeEstimator/UbxLeapTimeEstimator
// state machine: a single most-recent (wn, tow) sample, only offered back
// when the candidate TOW it's being corroborated against is still close
// enough to be plausibly the same epoch.
type sampleEstimator struct {
	have  bool
	time  gnsstime.Time
	hasWN bool
	seq   uint64
}

func (s *sampleEstimator) push(t gnsstime.Time, hasWN bool, seq uint64) {
	s.have = true
	s.time = t
	s.hasWN = hasWN
	s.seq = seq
}

func (s *sampleEstimator) estimate(candidateTowMS int64) (gnsstime.Time, bool, bool) {
	if !s.have {
		return gnsstime.Time{}, false, false
	}
	if absInt64(candidateTowMS-int64(s.time.TOW*1000)) >= sampleToleranceMS {
		return gnsstime.Time{}, false, false
	}
	return s.time, s.hasWN, true
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// Engine holds the estimator pool and the per-kind shadow cache, refreshed
// by single-writer Push calls and read by any number of concurrent Query
// calls.
type Engine struct {
	*sync.RWMutex

	requested map[estimatorHandle]bool

	observation *observationEstimator
	ephemeris   *ephemerisEstimator
	rtcm1013    *sampleEstimator
	ubxLeap     *sampleEstimator

	// cache shadows the last successful candidate per kind, supplied to a
	// query when that kind's live estimator can't currently produce one
	// (TimeTruthCache in the estimator-cluster design).
	cache map[EstimatorKind]candidate

	nextSeq uint64
	history []Estimate // bounded ring of recent pushes, most recent last
	maxHistory int
}

// New creates an Engine with no estimate yet (Query returns ConfidenceNone
// until the first Push).
func New() *Engine {
	var mu sync.RWMutex
	return &Engine{
		RWMutex:     &mu,
		requested:   map[estimatorHandle]bool{},
		observation: &observationEstimator{},
		ephemeris:   newEphemerisEstimator(),
		rtcm1013:    &sampleEstimator{},
		ubxLeap:     &sampleEstimator{},
		cache:       map[EstimatorKind]candidate{},
		maxHistory:  32,
	}
}

// RequestEstimator registers source as the sole producer for kind. A
// second request for the same (source, kind) pair fails — the estimator
// cluster's single-writer guarantee — but Push/PushEphemeris work without
// ever calling this; it only matters to a caller that wants the guarantee
// enforced explicitly (e.g. a supervisor handing out estimator handles to
// a fleet of worker goroutines).
func (e *Engine) RequestEstimator(source TimeTruthSource, kind EstimatorKind) error {
	e.Lock()
	defer e.Unlock()
	h := estimatorHandle{source: source, kind: kind}
	if e.requested[h] {
		return wireerr.New(wireerr.ConfigError, "estimator already requested for this (source, kind) pair")
	}
	e.requested[h] = true
	return nil
}

// Push records a new sample from kind, sourced locally (the stream this
// process is itself decoding). It's the simple entry point every existing
// translator uses. For EstimatorEphemeris, which needs a (constellation,
// satellite) key to build its per-satellite toe table, Push assigns each
// call a private synthetic satellite slot so repeated generic pushes still
// accumulate toward the pool-size threshold; a caller that actually knows
// the satellite and constellation should use PushEphemeris instead.
func (e *Engine) Push(kind EstimatorKind, t gnsstime.Time) error {
	return e.PushFrom(SourceLocal, kind, t)
}

// PushFrom is Push with an explicit source tag. Each estimator kind is a
// singleton shared across whatever source feeds it, so the tag doesn't
// change how the sample is stored today; it exists so a caller can already
// register per-source ownership through RequestEstimator ahead of a future
// per-source estimator pool.
func (e *Engine) PushFrom(source TimeTruthSource, kind EstimatorKind, t gnsstime.Time) error {
	if t.TOW < 0 || t.TOW >= WeekSeconds {
		return wireerr.New(wireerr.InvalidMessage, "time of week out of range")
	}

	e.Lock()
	defer e.Unlock()
	e.nextSeq++
	seq := e.nextSeq

	switch kind {
	case EstimatorEphemeris:
		e.ephemeris.syntheticSatID++
		e.ephemeris.push("", e.ephemeris.syntheticSatID, t, seq)
	case EstimatorRTCM1013:
		e.rtcm1013.push(t, t.WN != 0, seq)
	case EstimatorUBXLeap:
		e.ubxLeap.push(t, t.WN != 0, seq)
	default:
		e.observation.push(int64(t.TOW*1000), seq)
	}

	e.history = append(e.history, Estimate{Kind: kind, Time: t})
	if len(e.history) > e.maxHistory {
		e.history = e.history[len(e.history)-e.maxHistory:]
	}

	return nil
}

// PushEphemeris records a decoded ephemeris's toe against its own
// satellite, within its own constellation's pool — the precise form of
// evidence EphemerisTimeEstimator corroborates against: at least six
// distinct satellites' toe values clustering within a plausible window of
// each other. source is accepted for the same forward-compatibility reason
// as PushFrom; the ephemeris pool itself is shared across sources.
func (e *Engine) PushEphemeris(source TimeTruthSource, constellation string, satID uint, t gnsstime.Time) error {
	if t.TOW < 0 || t.TOW >= WeekSeconds {
		return wireerr.New(wireerr.InvalidMessage, "time of week out of range")
	}
	e.Lock()
	defer e.Unlock()
	e.nextSeq++
	e.ephemeris.push(constellation, satID, t, e.nextSeq)
	e.history = append(e.history, Estimate{Kind: EstimatorEphemeris, Time: t})
	if len(e.history) > e.maxHistory {
		e.history = e.history[len(e.history)-e.maxHistory:]
	}
	return nil
}

// candidateTowMS picks the anchor time-of-week (and, if available, week
// number) the sample estimators' get_estimate is corroborated against:
// whichever of rtcm1013/ubxLeap/observation pushed most recently, since
// that's closest to "now". The ephemeris pool doesn't participate here —
// it anchors on its own pool median instead, so a single stray ephemeris
// push can't skew what every other estimator is compared against.
func (e *Engine) candidateTowMS() (towMS int64, wn int, haveWN bool, ok bool) {
	var bestSeq uint64
	consider := func(t int64, w int, hw, candOK bool, seq uint64) {
		if !candOK {
			return
		}
		if !ok || seq > bestSeq {
			towMS, wn, haveWN, ok, bestSeq = t, w, hw, true, seq
		}
	}
	if t, hasWN, estOK := e.observation.estimate(); estOK {
		consider(int64(t.TOW*1000), t.WN, hasWN, true, e.observation.seq)
	}
	if e.rtcm1013.have {
		consider(int64(e.rtcm1013.time.TOW*1000), e.rtcm1013.time.WN, e.rtcm1013.hasWN, true, e.rtcm1013.seq)
	}
	if e.ubxLeap.have {
		consider(int64(e.ubxLeap.time.TOW*1000), e.ubxLeap.time.WN, e.ubxLeap.hasWN, true, e.ubxLeap.seq)
	}
	return
}

// Query returns the current best estimate: it re-derives each estimator's
// live opinion (falling back to the cached last-good one per kind when an
// estimator can't currently produce a fresh sample), corroborates them
// against each other, and reports the richest surviving candidate's time
// tagged with the corroboration-derived confidence.
func (e *Engine) Query() Estimate {
	e.Lock()
	defer e.Unlock()

	candidateTow, candidateWN, haveCandidateWN, haveCandidateTow := e.candidateTowMS()

	var candidates []candidate
	offer := func(kind EstimatorKind, t gnsstime.Time, hasWN, ok bool, seq uint64) {
		h := estimatorHandle{source: SourceLocal, kind: kind}
		if ok {
			c := candidate{handle: h, time: t, hasWN: hasWN, seq: seq}
			candidates = append(candidates, c)
			e.cache[kind] = c
			return
		}
		if cached, found := e.cache[kind]; found {
			candidates = append(candidates, cached)
		}
	}

	if t, hasWN, ok := e.observation.estimate(); ok || haveCandidateTow {
		offer(EstimatorObservation, t, hasWN, ok, e.observation.seq)
	}
	if t, hasWN, ok := e.ephemeris.estimate(candidateWN, haveCandidateWN); ok || e.ephemeris.seq > 0 {
		offer(EstimatorEphemeris, t, hasWN, ok, e.ephemeris.seq)
	}
	if haveCandidateTow {
		t, hasWN, ok := e.rtcm1013.estimate(candidateTow)
		offer(EstimatorRTCM1013, t, hasWN, ok, e.rtcm1013.seq)
		t, hasWN, ok = e.ubxLeap.estimate(candidateTow)
		offer(EstimatorUBXLeap, t, hasWN, ok, e.ubxLeap.seq)
	}

	if len(candidates) == 0 {
		return Estimate{}
	}

	confidence := corroborate(candidates)

	best := candidates[0]
	for _, c := range candidates[1:] {
		bp, cp := best.handle.kind.priority(), c.handle.kind.priority()
		if cp > bp || (cp == bp && c.seq > best.seq) {
			best = c
		}
	}

	return Estimate{Kind: best.handle.kind, Time: best.time, Confidence: confidence}
}

// agree reports whether two candidates' times are close enough to count as
// corroborating: time-of-week within 10s (wrapping at the week boundary),
// and, when both carry a week number, within 6h of absolute time too.
func agree(a, b candidate) bool {
	diff := int64(a.time.TOW*1000) - int64(b.time.TOW*1000)
	if diff > weekMS/2 {
		diff -= weekMS
	} else if diff < -weekMS/2 {
		diff += weekMS
	}
	if absInt64(diff) > 10000 {
		return false
	}
	if a.hasWN && b.hasWN {
		absA := int64(a.time.WN)*weekMS + int64(a.time.TOW*1000)
		absB := int64(b.time.WN)*weekMS + int64(b.time.TOW*1000)
		if absInt64(absA-absB) > int64(6*3600*1000) {
			return false
		}
	}
	return true
}

// corroborate implements the confidence ladder: with a single candidate
// there's no ambiguity to corroborate, so it stands alone at Best. With
// several, unanimous pairwise agreement is Best, at least one agreeing pair
// is Good, and no agreeing pair at all is Bad. Every candidate here is tagged
// SourceLocal by this module's own wiring (nothing currently calls
// PushFrom/PushEphemeris with SourceRemote), which collapses the
// documented cross-source-vs-same-source distinction down to this
// same-source ladder; a deployment that does feed in a Remote source would
// see genuine cross-source corroboration lift Bad/Good results the way the
// design intends.
func corroborate(candidates []candidate) Confidence {
	if len(candidates) == 1 {
		return ConfidenceBest
	}
	agreeing := 0
	pairs := 0
	for i := 0; i < len(candidates); i++ {
		for j := i + 1; j < len(candidates); j++ {
			pairs++
			if agree(candidates[i], candidates[j]) {
				agreeing++
			}
		}
	}
	switch {
	case pairs > 0 && agreeing == pairs:
		return ConfidenceBest
	case agreeing > 0:
		return ConfidenceGood
	default:
		return ConfidenceBad
	}
}

// History returns a copy of the recent estimates pushed to the engine,
// oldest first, for diagnostics.
func (e *Engine) History() []Estimate {
	e.RLock()
	defer e.RUnlock()
	out := make([]Estimate, len(e.history))
	copy(out, e.history)
	return out
}

// Reset clears the engine back to its initial, no-estimate state.
func (e *Engine) Reset() {
	e.Lock()
	defer e.Unlock()
	e.observation = &observationEstimator{}
	e.ephemeris = newEphemerisEstimator()
	e.rtcm1013 = &sampleEstimator{}
	e.ubxLeap = &sampleEstimator{}
	e.cache = map[EstimatorKind]candidate{}
	e.requested = map[estimatorHandle]bool{}
	e.nextSeq = 0
	e.history = nil
}
