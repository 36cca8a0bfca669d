package adjuster

import (
	"github.com/bitflux-nav/gnsswire/sbp"
	"github.com/bitflux-nav/gnsswire/sbp/unpack"
)

// prLSB is the pseudorange quantisation step observations are re-rounded
// to after the correction arithmetic: 0.02 m, matching the P field's 1/50 m
// wire unit.
const prLSB = 0.02

type signalKey struct {
	sat  uint8
	code sbp.Code
}

func toMetres(p uint32) float64    { return float64(p) * prLSB }
func fromMetres(m float64) uint32  { return uint32(m/prLSB + 0.5) }

func toCycles(o sbp.Observation) float64 {
	return float64(o.LCycles) + float64(o.LFrac)/256
}

func fromCycles(cycles float64) (int32, uint8) {
	whole := int32(cycles)
	frac := cycles - float64(whole)
	fracByte := int32(frac*256 + 0.5)
	if fracByte >= 256 {
		fracByte -= 256
		whole++
	}
	if fracByte < 0 {
		fracByte += 256
		whole--
	}
	return whole, uint8(fracByte)
}

func toHz(o sbp.Observation) float64 {
	return float64(o.DHz) + float64(o.DFrac)/256
}

func fromHz(hz float64) (int16, uint8) {
	whole := int16(hz)
	frac := hz - float64(whole)
	fracByte := int32(frac*256 + 0.5)
	if fracByte >= 256 {
		fracByte -= 256
		whole++
	}
	if fracByte < 0 {
		fracByte += 256
		whole--
	}
	return whole, uint8(fracByte)
}

func minU8(a, b, c uint8) uint8 {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}

func index(e unpack.Epoch) map[signalKey]sbp.Observation {
	m := make(map[signalKey]sbp.Observation, len(e.Observations))
	for _, o := range e.Observations {
		m[signalKey{sat: o.SID.Sat, code: sbp.Canonicalize(sbp.Code(o.SID.Code))}] = o
	}
	return m
}

// Adjust computes the VRS-corrected epoch from a matched triple: for every
// signal present in all three streams, the base observation is shifted by
// the difference between the VRS and base correction streams.
func Adjust(m Matched) unpack.Epoch {
	baseObs := index(m.BaseObs)
	baseCorr := index(m.BaseCorr)
	vrsCorr := index(m.VRSCorr)

	out := unpack.Epoch{WN: m.VRSCorr.WN, TOWms: m.VRSCorr.TOWms}

	for key, vc := range vrsCorr {
		bo, ok := baseObs[key]
		if !ok {
			continue
		}
		bc, ok := baseCorr[key]
		if !ok {
			continue
		}

		pOut := toMetres(bo.P) + (toMetres(vc.P) - toMetres(bc.P))
		lOut := toCycles(bo) + (toCycles(vc) - toCycles(bc))
		dOut := toHz(bo) + (toHz(vc) - toHz(bc))

		lWhole, lFrac := fromCycles(lOut)
		dWhole, dFrac := fromHz(dOut)

		out.Observations = append(out.Observations, sbp.Observation{
			SID:     sbp.SignalID{Sat: key.sat, Code: uint8(key.code)},
			P:       fromMetres(pOut),
			LCycles: lWhole,
			LFrac:   lFrac,
			DHz:     dWhole,
			DFrac:   dFrac,
			Lock:    minU8(bo.Lock, bc.Lock, vc.Lock),
			CN0:     minU8(bo.CN0, bc.CN0, vc.CN0),
			Flags:   (bo.Flags & bc.Flags & vc.Flags & 0x0F) | ((bo.Flags | bc.Flags | vc.Flags) & sbp.ObsFlagRAIMExcluded),
		})
	}

	return out
}
