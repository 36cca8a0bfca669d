// Package unpack reassembles fragmented SBP observation messages into
// whole epochs, one state machine per stream.
package unpack

import (
	"github.com/bitflux-nav/gnsswire/sbp"
)

// Epoch is one finalised, fully reassembled set of observations for a
// single point in time.
type Epoch struct {
	WN           uint16
	TOWms        uint32
	Observations []sbp.Observation
}

// timeLess reports whether (wn, tow) a is strictly earlier than b.
func timeLess(wnA uint16, towA uint32, wnB uint16, towB uint32) bool {
	if wnA != wnB {
		return wnA < wnB
	}
	return towA < towB
}

// Unpacker holds one stream's in-progress epoch and emits finished epochs
// to onEpoch. It is not safe for concurrent use.
type Unpacker struct {
	onEpoch func(Epoch)

	haveCurrent bool
	wn          uint16
	tow         uint32
	seqSize     int
	seqIndex    int
	obs         []sbp.Observation

	// DroppedLog, if set, is called for messages the unpacker discarded
	// (stale fragments, sequence gaps) instead of silently swallowing them.
	DroppedLog func(reason string)
}

// New creates an Unpacker that calls onEpoch for each epoch it completes.
func New(onEpoch func(Epoch)) *Unpacker {
	return &Unpacker{onEpoch: onEpoch}
}

func (u *Unpacker) log(reason string) {
	if u.DroppedLog != nil {
		u.DroppedLog(reason)
	}
}

// emit finalises the in-progress epoch: drops PR-invalid and
// RAIM-excluded observations, then hands the result to onEpoch.
func (u *Unpacker) emit() {
	if !u.haveCurrent {
		return
	}
	kept := make([]sbp.Observation, 0, len(u.obs))
	for _, o := range u.obs {
		if o.Flags&sbp.ObsFlagPRValid == 0 {
			continue
		}
		if o.Flags&sbp.ObsFlagRAIMExcluded != 0 {
			continue
		}
		kept = append(kept, o)
	}
	u.onEpoch(Epoch{WN: u.wn, TOWms: u.tow, Observations: kept})
	u.haveCurrent = false
	u.obs = nil
}

func (u *Unpacker) startNew(h sbp.EpochHeader, obs []sbp.Observation) {
	total, index := sbp.FrameCountAndIndex(h.NumObs)
	u.haveCurrent = true
	u.wn = h.WN
	u.tow = h.TOWms
	u.seqSize = total
	u.seqIndex = index
	u.obs = append([]sbp.Observation(nil), obs...)
	if index == total-1 {
		u.emit()
	}
}

// Push feeds one received MSG_OBS fragment (already decoded) into the
// unpacker.
func (u *Unpacker) Push(h sbp.EpochHeader, obs []sbp.Observation) {
	total, index := sbp.FrameCountAndIndex(h.NumObs)

	if !u.haveCurrent {
		u.startNew(h, obs)
		return
	}

	if timeLess(u.wn, u.tow, h.WN, h.TOWms) {
		u.emit()
		u.startNew(h, obs)
		return
	}
	if timeLess(h.WN, h.TOWms, u.wn, u.tow) {
		u.log("stale fragment for already-advanced epoch")
		return
	}

	// Same timestamp as the in-progress epoch.
	switch {
	case index == u.seqIndex+1:
		u.obs = append(u.obs, obs...)
		u.seqIndex = index
	case index > u.seqIndex+1:
		u.log("sequence gap in observation fragments")
		u.obs = append(u.obs, obs...)
		u.seqIndex = index
	default: // index <= u.seqIndex: a restart of the same epoch
		u.emit()
		u.startNew(h, obs)
		return
	}

	if u.seqIndex == total-1 && total == u.seqSize {
		u.emit()
	}
}
