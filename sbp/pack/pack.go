// Package pack fragments observation epochs into SBP frames and queues
// them onto a bounded output FIFO.
package pack

import (
	"github.com/bitflux-nav/gnsswire/sbp"
	"github.com/bitflux-nav/gnsswire/wireerr"
)

// MaxFramesPerEpoch bounds how many fragments one epoch may split into
// (14 observations per frame, giving 210 observations per epoch).
const MaxFramesPerEpoch = 15

// MaxObservationsPerEpoch is the most observations a single epoch can carry.
const MaxObservationsPerEpoch = MaxFramesPerEpoch * sbp.MaxObsPerFrame

// defaultMaxBytes bounds the FIFO to roughly 32 full epochs' worth of
// frames by default.
const defaultMaxBytes = 32 * MaxFramesPerEpoch * 255

// Packer fragments observation epochs (and paired base-position records)
// into SBP frames and appends them to a bounded byte FIFO. It is not safe
// for concurrent use.
type Packer struct {
	fifo       []byte
	maxBytes   int
	DroppedLog func(reason string)
}

// New creates a Packer whose FIFO is bounded to maxBytes; a non-positive
// value selects the default capacity.
func New(maxBytes int) *Packer {
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	return &Packer{maxBytes: maxBytes}
}

func (p *Packer) enqueue(buf []byte) {
	p.fifo = append(p.fifo, buf...)
	if overflow := len(p.fifo) - p.maxBytes; overflow > 0 {
		if p.DroppedLog != nil {
			p.DroppedLog("output FIFO full, dropping oldest bytes")
		}
		p.fifo = p.fifo[overflow:]
	}
}

// PackEpoch fragments obs (at most MaxObservationsPerEpoch) into SBP MSG_OBS
// frames and enqueues them. It returns InvalidMessage if obs is too large to
// fragment within MaxFramesPerEpoch.
func (p *Packer) PackEpoch(sender uint16, wn uint16, towMs uint32, obs []sbp.Observation) error {
	if len(obs) > MaxObservationsPerEpoch {
		return wireerr.New(wireerr.InvalidMessage, "epoch has more observations than an SBP epoch can carry")
	}

	total := (len(obs) + sbp.MaxObsPerFrame - 1) / sbp.MaxObsPerFrame
	if total == 0 {
		total = 1
	}

	for i := 0; i < total; i++ {
		start := i * sbp.MaxObsPerFrame
		end := start + sbp.MaxObsPerFrame
		if end > len(obs) {
			end = len(obs)
		}
		h := sbp.EpochHeader{WN: wn, TOWms: towMs, NumObs: sbp.PackNumObs(total, i)}
		payload := sbp.EncodeObsFrame(h, obs[start:end])
		frame := sbp.Encode(&sbp.Frame{MsgType: sbp.MsgObs, Sender: sender, Payload: payload})
		p.enqueue(frame)
	}
	return nil
}

// PackBasePositionAndEpoch enqueues a base-position record immediately
// followed by an observation epoch for the same matched time, so a
// consumer reading the FIFO sequentially sees them as a pair.
func (p *Packer) PackBasePositionAndEpoch(sender uint16, pos sbp.BasePositionECEF, wn uint16, towMs uint32, obs []sbp.Observation) error {
	posFrame := sbp.Encode(&sbp.Frame{MsgType: sbp.MsgBasePosECEF, Sender: sender, Payload: sbp.EncodeBasePositionECEF(pos)})
	p.enqueue(posFrame)
	return p.PackEpoch(sender, wn, towMs, obs)
}

// Drain returns all bytes queued so far and empties the FIFO.
func (p *Packer) Drain() []byte {
	out := p.fifo
	p.fifo = nil
	return out
}

// Len reports how many bytes are currently queued.
func (p *Packer) Len() int { return len(p.fifo) }
