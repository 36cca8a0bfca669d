// Package adjuster combines a base station's raw observations, the base
// station's correction stream and a virtual reference station's correction
// stream into a single corrected epoch: the message matcher pairs up
// same-timestamp epochs from the three streams, and the epoch adjuster does
// the per-signal arithmetic.
package adjuster

import (
	"github.com/bitflux-nav/gnsswire/sbp/unpack"
)

// StreamType identifies which of the three input streams an epoch came
// from.
type StreamType int

const (
	StreamBaseObs StreamType = iota
	StreamBaseCorr
	StreamVRSCorr
)

// defaultMaxBuckets is the matcher's FIFO depth.
const defaultMaxBuckets = 16

type bucket struct {
	timeMS  int64
	streams map[StreamType]unpack.Epoch
}

// Matcher buffers epochs from the three streams keyed by timestamp and
// reports once all three have arrived for the same time. It is not safe
// for concurrent use.
type Matcher struct {
	maxBuckets int
	buckets    []*bucket // oldest first
	DuplicateLog func(stream StreamType, timeMS int64)
}

// New creates a Matcher with the given FIFO depth; a non-positive value
// selects the default of 16.
func New(maxBuckets int) *Matcher {
	if maxBuckets <= 0 {
		maxBuckets = defaultMaxBuckets
	}
	return &Matcher{maxBuckets: maxBuckets}
}

func epochTimeMS(e unpack.Epoch) int64 {
	return int64(e.WN)*int64(7*24*3600*1000) + int64(e.TOWms)
}

func (m *Matcher) bucketFor(timeMS int64) *bucket {
	for _, b := range m.buckets {
		if b.timeMS == timeMS {
			return b
		}
	}
	b := &bucket{timeMS: timeMS, streams: map[StreamType]unpack.Epoch{}}
	m.buckets = append(m.buckets, b)
	if len(m.buckets) > m.maxBuckets {
		m.buckets = m.buckets[len(m.buckets)-m.maxBuckets:]
	}
	return b
}

// Add stores epoch under stream, keyed by its timestamp. A duplicate
// (timestamp, stream) pair is dropped and reported via DuplicateLog.
func (m *Matcher) Add(stream StreamType, epoch unpack.Epoch) {
	timeMS := epochTimeMS(epoch)
	b := m.bucketFor(timeMS)
	if _, exists := b.streams[stream]; exists {
		if m.DuplicateLog != nil {
			m.DuplicateLog(stream, timeMS)
		}
		return
	}
	b.streams[stream] = epoch
}

// Matched is one fully-paired set of same-timestamp epochs.
type Matched struct {
	BaseObs  unpack.Epoch
	BaseCorr unpack.Epoch
	VRSCorr  unpack.Epoch
}

// FindMatch scans buckets oldest-to-newest and returns the first one
// containing all three streams, deleting that bucket and every older one
// (those never completed and are garbage).
func (m *Matcher) FindMatch() (Matched, bool) {
	for i, b := range m.buckets {
		if len(b.streams) == 3 {
			matched := Matched{
				BaseObs:  b.streams[StreamBaseObs],
				BaseCorr: b.streams[StreamBaseCorr],
				VRSCorr:  b.streams[StreamVRSCorr],
			}
			m.buckets = m.buckets[i+1:]
			return matched, true
		}
	}
	return Matched{}, false
}
