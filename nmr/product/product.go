// Package product declares the named data products of the NMR engine and
// the static dependency table between them.
//
// The table is built once at package initialisation and never mutated.
// Each entry names its prerequisites, its granularity and the set of kinds
// that become stale when it changes.
package product

import (
	"math/bits"
	"strings"
)

// Kind identifies one computation stage.
type Kind uint8

const (
	RawData Kind = iota
	Steps
	ChunkSet
	ChunkAverage
	ChunkAmplitude
	DFTInput
	DFT
	Grid
	Amplitude
	FilterRange
	PhasePrep
	PhaseCorr
	Envelope
	RealEnvelope
	EvalChunkAverage
	EvalAmplitude
	EvalPhaseReal
	EvalPhaseAmplitude
	Evaluation

	// NumKinds is the number of declared kinds.
	NumKinds
)

// Mask is a set of kinds, one bit per kind.
type Mask uint32

// Bit returns the singleton mask of k.
func (k Kind) Bit() Mask { return 1 << k }

// String returns the kind name.
func (k Kind) String() string {
	if k < NumKinds {
		return table[k].Name
	}
	return "unknown"
}

// Valid reports whether k is a declared kind.
func (k Kind) Valid() bool { return k < NumKinds }

// Has reports whether m contains k.
func (m Mask) Has(k Kind) bool { return m&k.Bit() != 0 }

// Len returns the number of kinds in m.
func (m Mask) Len() int { return bits.OnesCount32(uint32(m)) }

// Kinds returns the kinds of m in ascending order.
func (m Mask) Kinds() []Kind {
	out := make([]Kind, 0, m.Len())
	for k := Kind(0); k < NumKinds; k++ {
		if m.Has(k) {
			out = append(out, k)
		}
	}
	return out
}

// String lists the kind names of m.
func (m Mask) String() string {
	ks := m.Kinds()
	names := make([]string, len(ks))
	for i, k := range ks {
		names[i] = k.String()
	}
	return "{" + strings.Join(names, ",") + "}"
}

// All is the mask of every declared kind.
const All Mask = 1<<NumKinds - 1

// Granularity tells whether a producer can be restricted to one step.
type Granularity uint8

const (
	// Collective producers always compute every step at once.
	Collective Granularity = iota
	// PerStep producers may be invoked for a single step.
	PerStep
)

// Spec is one row of the dependency table.
type Spec struct {
	Name        string
	Requires    Mask
	Granularity Granularity
	Invalidates Mask
}

// Lookup returns the table row of k.
func Lookup(k Kind) Spec { return table[k] }

// IsCollective reports whether k is produced for all steps at once.
func IsCollective(k Kind) bool { return table[k].Granularity == Collective }

// Requires returns the prerequisite kinds of k.
func Requires(k Kind) Mask { return table[k].Requires }

// Invalidates returns k and every kind that depends on it, directly or
// transitively.
func Invalidates(k Kind) Mask { return k.Bit() | table[k].Invalidates }

const (
	evalAll  = 1<<EvalChunkAverage | 1<<EvalAmplitude | 1<<EvalPhaseReal | 1<<EvalPhaseAmplitude
	phaseOut = 1<<PhaseCorr | 1<<RealEnvelope | 1<<EvalPhaseReal | 1<<EvalPhaseAmplitude | 1<<Evaluation
	ampOut   = 1<<Amplitude | 1<<Envelope | 1<<EvalAmplitude | 1<<Evaluation
	dftOut   = 1<<DFT | ampOut | 1<<PhasePrep | phaseOut
	rangeOut = 1<<FilterRange | 1<<Envelope | 1<<RealEnvelope | 1<<EvalAmplitude |
		1<<EvalPhaseReal | 1<<EvalPhaseAmplitude | 1<<Evaluation
	chunkOut = 1<<ChunkAverage | 1<<ChunkAmplitude | 1<<EvalChunkAverage | 1<<DFTInput | dftOut | 1<<Evaluation
)

var table = [NumKinds]Spec{
	RawData: {
		Name:        "raw-data",
		Granularity: Collective,
		Invalidates: All &^ (1 << RawData),
	},
	Steps: {
		Name:        "steps",
		Requires:    1 << RawData,
		Granularity: Collective,
		Invalidates: All &^ (1<<RawData | 1<<Steps),
	},
	ChunkSet: {
		Name:        "chunk-set",
		Requires:    1 << Steps,
		Granularity: Collective,
		Invalidates: chunkOut,
	},
	ChunkAverage: {
		Name:        "chunk-average",
		Requires:    1 << ChunkSet,
		Granularity: PerStep,
		Invalidates: chunkOut &^ (1 << ChunkAverage),
	},
	ChunkAmplitude: {
		Name:        "chunk-amplitude",
		Requires:    1 << ChunkAverage,
		Granularity: PerStep,
		Invalidates: 1<<EvalChunkAverage | 1<<Evaluation,
	},
	DFTInput: {
		Name:        "dft-input",
		Requires:    1 << ChunkAverage,
		Granularity: PerStep,
		Invalidates: dftOut,
	},
	DFT: {
		Name:        "dft",
		Requires:    1 << DFTInput,
		Granularity: Collective,
		Invalidates: dftOut &^ (1 << DFT),
	},
	Grid: {
		Name:        "grid",
		Requires:    1 << Steps,
		Granularity: PerStep,
		Invalidates: rangeOut,
	},
	Amplitude: {
		Name:        "amplitude",
		Requires:    1 << DFT,
		Granularity: PerStep,
		Invalidates: ampOut &^ (1 << Amplitude),
	},
	FilterRange: {
		Name:        "filter-range",
		Requires:    1 << Grid,
		Granularity: PerStep,
		Invalidates: rangeOut &^ (1 << FilterRange),
	},
	PhasePrep: {
		Name:        "phase-prep",
		Requires:    1 << DFT,
		Granularity: Collective,
		Invalidates: phaseOut,
	},
	PhaseCorr: {
		Name:        "phase-corr",
		Requires:    1 << PhasePrep,
		Granularity: PerStep,
		Invalidates: phaseOut &^ (1 << PhaseCorr),
	},
	Envelope: {
		Name:        "envelope",
		Requires:    1<<Amplitude | 1<<FilterRange,
		Granularity: Collective,
	},
	RealEnvelope: {
		Name:        "real-envelope",
		Requires:    1<<PhaseCorr | 1<<FilterRange,
		Granularity: Collective,
	},
	EvalChunkAverage: {
		Name:        "eval-chunk-average",
		Requires:    1 << ChunkAmplitude,
		Granularity: PerStep,
		Invalidates: 1 << Evaluation,
	},
	EvalAmplitude: {
		Name:        "eval-amplitude",
		Requires:    1<<Amplitude | 1<<FilterRange,
		Granularity: PerStep,
		Invalidates: 1 << Evaluation,
	},
	EvalPhaseReal: {
		Name:        "eval-phase-real",
		Requires:    1<<PhaseCorr | 1<<FilterRange,
		Granularity: PerStep,
		Invalidates: 1 << Evaluation,
	},
	EvalPhaseAmplitude: {
		Name:        "eval-phase-amplitude",
		Requires:    1<<PhaseCorr | 1<<FilterRange,
		Granularity: PerStep,
		Invalidates: 1 << Evaluation,
	},
	Evaluation: {
		Name:        "evaluation",
		Requires:    evalAll,
		Granularity: PerStep,
	},
}
