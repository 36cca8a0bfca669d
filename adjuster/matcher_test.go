package adjuster

import (
	"testing"

	"github.com/bitflux-nav/gnsswire/sbp/unpack"
)

// TestFindMatchWaitsForAllThreeStreams checks no match is reported until
// all three streams have an epoch at the same timestamp.
func TestFindMatchWaitsForAllThreeStreams(t *testing.T) {
	m := New(0)
	e := unpack.Epoch{TOWms: 1000}
	m.Add(StreamBaseObs, e)
	m.Add(StreamBaseCorr, e)

	if _, ok := m.FindMatch(); ok {
		t.Fatalf("want no match with only 2 of 3 streams present")
	}

	m.Add(StreamVRSCorr, e)
	if _, ok := m.FindMatch(); !ok {
		t.Fatalf("want a match once all 3 streams arrive")
	}
}

// TestFindMatchGarbageCollectsOlderBuckets checks that matching a bucket
// discards every older, never-completed bucket too.
func TestFindMatchGarbageCollectsOlderBuckets(t *testing.T) {
	m := New(0)
	stale := unpack.Epoch{TOWms: 1000}
	m.Add(StreamBaseObs, stale) // never completes

	complete := unpack.Epoch{TOWms: 2000}
	m.Add(StreamBaseObs, complete)
	m.Add(StreamBaseCorr, complete)
	m.Add(StreamVRSCorr, complete)

	matched, ok := m.FindMatch()
	if !ok {
		t.Fatalf("want a match")
	}
	if matched.BaseObs.TOWms != 2000 {
		t.Errorf("want the complete bucket to match, got TOW %d", matched.BaseObs.TOWms)
	}
	if len(m.buckets) != 0 {
		t.Errorf("want stale bucket garbage-collected, got %d buckets remaining", len(m.buckets))
	}
}

// TestDuplicateStreamForSameTimestampDropped checks a second Add for the
// same (stream, timestamp) pair does not overwrite the first.
func TestDuplicateStreamForSameTimestampDropped(t *testing.T) {
	m := New(0)
	var duplicates int
	m.DuplicateLog = func(StreamType, int64) { duplicates++ }

	e := unpack.Epoch{TOWms: 1000, WN: 1}

	m.Add(StreamBaseObs, e)
	m.Add(StreamBaseObs, e) // same (stream, timestamp) pair again

	if duplicates != 1 {
		t.Errorf("want 1 duplicate logged, got %d", duplicates)
	}
}
