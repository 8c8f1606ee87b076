package engine

import (
	"fmt"
	"math"

	vecmath "github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-nmr/dsp/core"
	"github.com/cwbudde/algo-nmr/dsp/interp"
	"github.com/cwbudde/algo-nmr/dsp/spectrum"
	"github.com/cwbudde/algo-nmr/dsp/transform"
	"github.com/cwbudde/algo-nmr/nmr"
	"github.com/cwbudde/algo-nmr/nmr/chunk"
	"github.com/cwbudde/algo-nmr/nmr/envelope"
	"github.com/cwbudde/algo-nmr/nmr/eval"
	"github.com/cwbudde/algo-nmr/nmr/graph"
	"github.com/cwbudde/algo-nmr/nmr/params"
	"github.com/cwbudde/algo-nmr/nmr/phase"
	"github.com/cwbudde/algo-nmr/nmr/product"
)

func (e *Engine) producers() graph.Producers {
	var p graph.Producers
	p[product.RawData] = e.loadRaw
	p[product.Steps] = e.makeSteps
	p[product.ChunkSet] = e.detectChunks
	p[product.ChunkAverage] = e.perStep(e.averageChunks)
	p[product.ChunkAmplitude] = e.perStep(e.chunkAmplitude)
	p[product.DFTInput] = e.perStep(e.dftInput)
	p[product.DFT] = e.transform
	p[product.Grid] = e.perStep(e.grid)
	p[product.Amplitude] = e.perStep(e.amplitude)
	p[product.FilterRange] = e.perStep(e.filterRange)
	p[product.PhasePrep] = e.preparePhase
	p[product.PhaseCorr] = e.perStep(e.correctPhase)
	p[product.Envelope] = e.envelope
	p[product.RealEnvelope] = e.realEnvelope
	p[product.EvalChunkAverage] = e.perStep(e.evalChunkAverage)
	p[product.EvalAmplitude] = e.perStep(e.evalAmplitude)
	p[product.EvalPhaseReal] = e.perStep(e.evalPhaseReal)
	p[product.EvalPhaseAmplitude] = e.perStep(e.evalPhaseAmplitude)
	p[product.Evaluation] = e.perStep(e.evaluation)
	return p
}

// perStep runs f for one step, or for every step on [nmr.AllSteps].
func (e *Engine) perStep(f func(s int) error) graph.Producer {
	return func(step int) error {
		if step != nmr.AllSteps {
			return f(step)
		}
		for s := range e.steps {
			if err := f(s); err != nil {
				return err
			}
		}
		return nil
	}
}

func (e *Engine) frame(buf []complex128, s int) []complex128 {
	n := e.params.Proc().DFTLength
	if len(buf) < (s+1)*n {
		return nil
	}
	return buf[s*n : (s+1)*n]
}

// window returns the processing window clipped to the chunk length.
func (e *Engine) window() (start, end int) {
	p := e.params.Proc()
	l := e.chunks.MaxLen()
	start = min(p.ProcStart, l)
	end = max(min(p.ProcEnd, l), start)
	return start, end
}

func (e *Engine) sampleRate() float64 {
	if e.acq == nil {
		return 0
	}
	return e.acq.SampleRate
}

func (e *Engine) loadRaw(int) error {
	a, err := e.loader.Load()
	if err != nil {
		return fmt.Errorf("engine: load acquisition: %w", err)
	}
	if a == nil {
		return fmt.Errorf("engine: loader returned no acquisition: %w", nmr.StatusIO)
	}
	if err := a.Validate(); err != nil {
		return fmt.Errorf("engine: %w", err)
	}

	e.acq = a
	e.logger.Info("acquisition loaded", "steps", len(a.Steps), "pairs", a.Pairs(), "sample_rate", a.SampleRate)
	return nil
}

func (e *Engine) makeSteps(int) error {
	n := len(e.acq.Steps)
	if n != len(e.steps) {
		e.steps = make([]stepData, n)
		e.graph.Resize(n)
		// A new step count starts from default per-step parameters.
		e.params.SetLimits(params.Limits{})
		e.dftIn, e.dftOut = nil, nil
		e.corrected = correctedStore{}
	}
	for i := range e.steps {
		e.steps[i].value = e.acq.Steps[i].Value
	}

	l := e.params.Limits()
	l.Steps = n
	l.SampleRate = e.acq.SampleRate
	e.params.SetLimits(l)
	e.params.CheckAll()
	return nil
}

func (e *Engine) detectChunks(int) error {
	var raws [][]int32
	for i := range e.steps {
		if e.params.Step(i).Flag.ContributesToChunks() {
			raws = append(raws, e.acq.Step(i))
		}
	}

	e.chunks = chunk.Detect(chunk.Mask(raws, e.acq.FilterSkip))
	e.logger.Info("chunks detected", "count", len(e.chunks), "length", e.chunks.MaxLen())

	l := e.params.Limits()
	l.ChunkCount = len(e.chunks)
	l.ChunkLength = e.chunks.MaxLen()
	e.params.SetLimits(l)
	e.params.CheckAll()
	return nil
}

func (e *Engine) averageChunks(s int) error {
	st := &e.steps[s]
	n := e.chunks.MaxLen()
	st.avg = core.EnsureLen(st.avg, n)
	if n == 0 || len(e.chunks) == 0 {
		return nil
	}

	raw := e.acq.Step(s)
	pairs := len(raw) / 2
	sumRe, sumIm := make([]float64, n), make([]float64, n)
	re, im := make([]float64, n), make([]float64, n)

	p := e.params.Proc()
	first := min(p.FirstChunk, len(e.chunks)-1)
	last := max(min(p.LastChunk, len(e.chunks)-1), first)
	for _, c := range e.chunks[first : last+1] {
		core.Zero(re)
		core.Zero(im)
		for i := range c.Length {
			if j := c.Offset + i; j < pairs {
				re[i] = float64(raw[2*j])
				im[i] = float64(raw[2*j+1])
			}
		}
		vecmath.AddBlockInPlace(sumRe, re)
		vecmath.AddBlockInPlace(sumIm, im)
	}

	scale := 1 / float64(last-first+1)
	vecmath.ScaleBlockInPlace(sumRe, scale)
	vecmath.ScaleBlockInPlace(sumIm, scale)
	for i := range st.avg {
		st.avg[i] = complex(sumRe[i], sumIm[i])
	}
	return nil
}

func (e *Engine) chunkAmplitude(s int) error {
	st := &e.steps[s]
	st.avgAmp = core.EnsureLen(st.avgAmp, len(st.avg))
	spectrum.MagnitudeInto(st.avgAmp, st.avg)
	return nil
}

// ensureFrames sizes buf for every step at the current DFT length.
func (e *Engine) ensureFrames(buf []complex128, what string) ([]complex128, bool, error) {
	total := len(e.steps) * e.params.Proc().DFTLength
	if total > e.maxBuf {
		return buf, false, fmt.Errorf("engine: %s buffer of %d values exceeds %d: %w",
			what, total, e.maxBuf, nmr.StatusAlloc)
	}
	if len(buf) == total {
		return buf, false, nil
	}
	return make([]complex128, total), true, nil
}

func (e *Engine) dftInput(s int) error {
	buf, resized, err := e.ensureFrames(e.dftIn, "dft input")
	if err != nil {
		return err
	}
	e.dftIn = buf
	if resized {
		// Frames of the other steps are gone.
		e.graph.MarkDirty(product.DFTInput, nmr.AllSteps)
	}

	in := e.frame(e.dftIn, s)
	core.Zero(in)
	start, end := e.window()
	copy(in, e.steps[s].avg[start:end])

	if e.params.Proc().ScaleFirstPoint && len(in) > 0 {
		in[0] *= 0.5
	}
	return nil
}

func (e *Engine) transform(int) error {
	n := e.params.Proc().DFTLength
	buf, _, err := e.ensureFrames(e.dftOut, "dft output")
	if err != nil {
		return err
	}
	e.dftOut = buf

	if e.batch == nil || e.batch.Len() != n {
		b, err := transform.NewBatch(n)
		if err != nil {
			return fmt.Errorf("engine: %w: %w", nmr.StatusAlloc, err)
		}
		e.batch = b
	}
	if err := e.batch.Forward(e.dftOut, e.dftIn); err != nil {
		return fmt.Errorf("engine: dft: %w", err)
	}

	start, end := e.window()
	scale := complex(1/float64(max(end-start, 1)), 0)
	for i := range e.dftOut {
		e.dftOut[i] *= scale
	}
	for s := range e.steps {
		spectrum.Shift(e.frame(e.dftOut, s))
	}
	return nil
}

func (e *Engine) grid(s int) error {
	n := e.params.Proc().DFTLength
	sr := e.sampleRate()
	center := 0.0
	if e.acq.FrequencyStepped {
		center = e.steps[s].value
	}

	df := sr / float64(n)
	e.steps[s].grid = interp.Grid{
		Start: center - float64(n/2)*df,
		Step:  df,
		Len:   n,
	}
	return nil
}

func (e *Engine) amplitude(s int) error {
	st := &e.steps[s]
	spec := e.frame(e.dftOut, s)
	st.amp = core.EnsureLen(st.amp, len(spec))
	spectrum.MagnitudeInto(st.amp, spec)
	return nil
}

func (e *Engine) filterRange(s int) error {
	st := &e.steps[s]
	g := st.grid
	if g.Step <= 0 || g.Len == 0 {
		st.lo, st.hi = 0, g.Len
		return nil
	}

	// Bins within half the filter width of the center bin, inclusive.
	half := e.params.Proc().FilterWidth / 2
	bins := int(math.Min(math.Floor(half/g.Step+1e-9), float64(g.Len)))
	mid := g.Len / 2
	st.lo = max(mid-bins, 0)
	st.hi = min(mid+bins+1, g.Len)
	return nil
}

// preparePhase computes every step's correction, resolving automatic
// zero-order values, and picks the corrected store mode.
func (e *Engine) preparePhase(int) error {
	sr := e.sampleRate()
	p := e.params.Proc()
	start, end := e.window()

	tau := func(s int) float64 {
		st := e.params.Step(s)
		return phase.Delay(st.Phase1, st.Ref1 == params.RefAbsolute, p.ProcStart, sr)
	}

	var (
		together    complex128
		hasTogether bool
	)
	for s := range e.steps {
		switch e.params.Step(s).Mode0 {
		case params.ModeAuto:
			sum := phase.VectorSum(e.frame(e.dftOut, s), sr, tau(s))
			e.params.SetAutoPhase0(s, phase.AutoPhase0(sum))
		case params.ModeAllTogether:
			together += phase.VectorSum(e.frame(e.dftOut, s), sr, tau(s))
			hasTogether = true
		}
	}

	pilot := e.params.Pilot()
	for s := range e.steps {
		switch e.params.Step(s).Mode0 {
		case params.ModeAllTogether:
			if hasTogether {
				e.params.SetAutoPhase0(s, phase.AutoPhase0(together))
			}
		case params.ModeFollowPilot:
			if pilot >= 0 {
				e.params.SetAutoPhase0(s, e.params.Step(pilot).Phase0)
			}
		}
	}

	needed := false
	for s := range e.steps {
		c := phase.Correction{
			Phase0:     e.params.Step(s).Phase0,
			Tau:        tau(s),
			SampleRate: sr,
		}
		if p.RemoveOffset {
			if in := e.frame(e.dftIn, s); len(in) > 0 {
				c.Offset = phase.Offset(in[0], end-start)
			}
		}
		e.steps[s].corr = c
		needed = needed || !c.IsIdentity()
	}

	var switched bool
	if needed {
		switched = e.corrected.own(len(e.dftOut))
	} else {
		switched = e.corrected.borrow()
	}
	if switched {
		e.graph.MarkDirty(product.PhaseCorr, nmr.AllSteps)
		e.logger.Debug("corrected store switched", "mode", e.corrected.mode.String())
	}
	return nil
}

func (e *Engine) correctPhase(s int) error {
	st := &e.steps[s]
	src := e.frame(e.dftOut, s)
	dst := e.frame(e.corrected.frames(e.dftOut), s)

	if e.corrected.mode == owned {
		phase.Apply(dst, src, st.corr)
	}

	if st.corr.Offset != 0 {
		st.corrAmp = core.EnsureLen(st.corrAmp, len(dst))
		spectrum.MagnitudeInto(st.corrAmp, dst)
	} else {
		// Rotation keeps the magnitude.
		if err := e.graph.Check(product.Amplitude, s); err != nil {
			return err
		}
		st.corrAmp = st.amp
	}

	st.corrReal = core.EnsureLen(st.corrReal, len(dst))
	for j, x := range dst {
		st.corrReal[j] = real(x)
	}
	return nil
}

func (e *Engine) curves(values func(st *stepData) []float64) []envelope.Curve {
	out := make([]envelope.Curve, len(e.steps))
	for s := range e.steps {
		st := &e.steps[s]
		out[s] = envelope.Curve{
			Grid:     st.grid,
			Lo:       st.lo,
			Hi:       st.hi,
			Values:   values(st),
			Eligible: e.params.Step(s).Flag.EnvelopeEligible(),
		}
	}
	return out
}

func (e *Engine) envelope(int) error {
	e.env = envelope.Synthesize(e.curves(func(st *stepData) []float64 { return st.amp }))
	return nil
}

func (e *Engine) realEnvelope(int) error {
	e.realEnv = envelope.Synthesize(e.curves(func(st *stepData) []float64 { return st.corrReal }))
	return nil
}

func (e *Engine) evalChunkAverage(s int) error {
	start, end := e.window()
	st := &e.steps[s]
	st.summary.ChunkAverage = eval.ChunkAverageOf(st.avgAmp, start, end, e.sampleRate())
	return nil
}

func (e *Engine) evalAmplitude(s int) error {
	st := &e.steps[s]
	st.summary.Amplitude = eval.AmplitudeOf(st.amp, st.lo, st.hi)
	return nil
}

func (e *Engine) evalPhaseReal(s int) error {
	st := &e.steps[s]
	st.summary.PhaseReal = eval.PhaseRealOf(st.corrReal, st.lo, st.hi)
	return nil
}

func (e *Engine) evalPhaseAmplitude(s int) error {
	st := &e.steps[s]
	st.summary.PhaseAmplitude = eval.PhaseAmplitudeOf(st.corrAmp, st.lo, st.hi)
	return nil
}

func (e *Engine) evaluation(s int) error {
	e.logger.Debug("evaluation ready", "step", s, "amplitude_max", e.steps[s].summary.Amplitude.Max)
	return nil
}
