// Package engine wires the NMR processing stages into a lazily evaluated,
// dependency-tracked pipeline.
//
// Callers request a product kind for a step; the engine recomputes only
// what parameter changes or reloads invalidated since the last request.
package engine

import (
	"fmt"
	"log/slog"

	"github.com/cwbudde/algo-nmr/dsp/interp"
	"github.com/cwbudde/algo-nmr/dsp/transform"
	"github.com/cwbudde/algo-nmr/nmr"
	"github.com/cwbudde/algo-nmr/nmr/acq"
	"github.com/cwbudde/algo-nmr/nmr/chunk"
	"github.com/cwbudde/algo-nmr/nmr/diag"
	"github.com/cwbudde/algo-nmr/nmr/envelope"
	"github.com/cwbudde/algo-nmr/nmr/eval"
	"github.com/cwbudde/algo-nmr/nmr/graph"
	"github.com/cwbudde/algo-nmr/nmr/params"
	"github.com/cwbudde/algo-nmr/nmr/phase"
	"github.com/cwbudde/algo-nmr/nmr/product"
)

// stepData holds the derived products of one step.
type stepData struct {
	value float64

	avg    []complex128 // chunk average
	avgAmp []float64
	amp    []float64 // |DFT|
	grid   interp.Grid
	lo, hi int // filter range

	corr     phase.Correction
	corrAmp  []float64 // aliases amp unless an offset is removed
	corrReal []float64

	summary eval.Summary
}

// Engine processes one acquisition.
//
// An Engine is not safe for concurrent use; producers run synchronously
// inside the calling goroutine.
type Engine struct {
	loader   acq.Loader
	reporter diag.Reporter
	observer Observer
	logger   *slog.Logger
	maxBuf   int

	graph  *graph.Graph
	params *params.Store

	acq    *acq.Acquisition
	steps  []stepData
	chunks chunk.Set
	batch  *transform.Batch

	dftIn     []complex128 // steps × DFT length, unshifted time domain
	dftOut    []complex128 // steps × DFT length, shifted spectra
	corrected correctedStore

	env     []envelope.Point
	realEnv []envelope.Point
}

// New creates an engine reading from loader and reporting failures to
// reporter. Nothing is loaded until the first request.
func New(loader acq.Loader, reporter diag.Reporter, opts ...Option) (*Engine, error) {
	if loader == nil {
		return nil, fmt.Errorf("engine: nil loader: %w", nmr.StatusMissingCollaborator)
	}
	if reporter == nil {
		return nil, fmt.Errorf("engine: nil reporter: %w", nmr.StatusMissingCollaborator)
	}

	cfg := ApplyOptions(opts...)
	e := &Engine{
		loader:   loader,
		reporter: reporter,
		observer: cfg.Observer,
		logger:   cfg.Logger,
		maxBuf:   cfg.MaxBufferLen,
	}

	g, err := graph.New(e.producers(),
		graph.WithLogger(e.logger),
		graph.WithDirtyFunc(e.productsChanged),
	)
	if err != nil {
		return nil, err
	}
	e.graph = g
	e.params = params.NewStore(g, e.paramChanged)

	return e, nil
}

func (e *Engine) productsChanged(mask product.Mask, step int) {
	if e.observer != nil {
		e.observer.ProductsChanged(mask, step)
	}
}

func (e *Engine) paramChanged(id params.ID, step int) {
	e.logger.Debug("parameter changed", "param", id.String(), "step", step)
	if e.observer != nil {
		e.observer.ParamChanged(id, step)
	}
}

// fail reports err and returns it.
func (e *Engine) fail(err error, activity string) error {
	if err != nil {
		e.logger.Warn("engine request failed", "activity", activity, diag.StatusAttr(err))
		diag.Report(e.reporter, err, activity)
	}
	return err
}

// Check brings kind k up to date for step. [nmr.AllSteps] addresses every
// step.
func (e *Engine) Check(k product.Kind, step int) error {
	return e.fail(e.graph.Check(k, step), "check "+k.String())
}

// MarkDirty invalidates k and every dependent kind for step.
func (e *Engine) MarkDirty(k product.Kind, step int) {
	e.graph.MarkDirty(k, step)
}

// IsClean reports whether k is up to date for step.
func (e *Engine) IsClean(k product.Kind, step int) bool {
	return e.graph.IsClean(k, step)
}

// Reload invalidates the acquisition; the next request loads it again.
func (e *Engine) Reload() {
	e.graph.MarkDirty(product.RawData, nmr.AllSteps)
}

// Free releases the acquisition and every derived buffer. Parameters are
// kept; the next request reloads.
func (e *Engine) Free() {
	e.acq = nil
	e.chunks = nil
	e.batch = nil
	e.dftIn, e.dftOut = nil, nil
	e.corrected = correctedStore{}
	e.env, e.realEnv = nil, nil
	for i := range e.steps {
		e.steps[i] = stepData{value: e.steps[i].value}
	}
	e.graph.Reset()
	e.logger.Debug("buffers released")
}

// limits brings the step and chunk layout up to date so that parameters
// are coerced against the current acquisition.
func (e *Engine) limits() error {
	return e.graph.Check(product.ChunkSet, nmr.AllSteps)
}

// resolvePhase0 brings computed zero-order phases up to date before they
// are read. Manual steps keep what was set.
func (e *Engine) resolvePhase0(step int) error {
	auto := false
	for s := range e.params.Steps() {
		if step == nmr.AllSteps || s == step {
			auto = auto || e.params.Step(s).Mode0.Automatic()
		}
	}
	if !auto {
		return nil
	}
	return e.graph.Check(product.PhasePrep, nmr.AllSteps)
}

// Param returns the value of parameter id for step. Computed zero-order
// phases are resolved first.
func (e *Engine) Param(id params.ID, step int) (any, error) {
	v, err := e.param(id, step)
	return v, e.fail(err, "get "+id.String())
}

func (e *Engine) param(id params.ID, step int) (any, error) {
	if err := e.limits(); err != nil {
		return nil, err
	}
	if id == params.PhaseCorr0 {
		if err := e.resolvePhase0(step); err != nil {
			return nil, err
		}
	}
	return e.params.Get(id, step)
}

// SetParam coerces and stores v, returning the stored value.
func (e *Engine) SetParam(id params.ID, v any, step int) (any, error) {
	if err := e.limits(); err != nil {
		return nil, e.fail(err, "set "+id.String())
	}
	got, err := e.params.Set(id, v, step)
	return got, e.fail(err, "set "+id.String())
}

// CheckParam re-coerces parameter id against the current acquisition.
func (e *Engine) CheckParam(id params.ID, step int) error {
	if err := e.limits(); err != nil {
		return e.fail(err, "check "+id.String())
	}
	return e.fail(e.params.Check(id, step), "check "+id.String())
}

// SetStepFlag sets the usability flag of step.
func (e *Engine) SetStepFlag(step int, f nmr.StepFlag) error {
	_, err := e.SetParam(params.StepFlag, f, step)
	return err
}

// Steps returns the number of steps, loading the acquisition if needed.
func (e *Engine) Steps() (int, error) {
	if err := e.Check(product.Steps, nmr.AllSteps); err != nil {
		return 0, err
	}
	return len(e.steps), nil
}

// StepValue returns the independent variable of step.
func (e *Engine) StepValue(step int) (float64, error) {
	if err := e.request(product.Steps, step); err != nil {
		return 0, err
	}
	return e.steps[step].value, nil
}

// Acquisition returns the loaded acquisition.
func (e *Engine) Acquisition() (*acq.Acquisition, error) {
	if err := e.Check(product.RawData, nmr.AllSteps); err != nil {
		return nil, err
	}
	return e.acq, nil
}

// ChunkSet returns the detected chunk layout.
func (e *Engine) ChunkSet() (chunk.Set, error) {
	if err := e.Check(product.ChunkSet, nmr.AllSteps); err != nil {
		return nil, err
	}
	return e.chunks, nil
}

// checkStep validates step and checks k for it without reporting.
func (e *Engine) checkStep(k product.Kind, step int) error {
	if err := e.graph.Check(product.Steps, nmr.AllSteps); err != nil {
		return err
	}
	if !nmr.InRange(step, len(e.steps)) {
		return fmt.Errorf("engine: step %d out of range [0,%d): %w",
			step, len(e.steps), nmr.StatusInvalidParam)
	}
	return e.graph.Check(k, step)
}

// request is checkStep for the public accessors, which report failures.
func (e *Engine) request(k product.Kind, step int) error {
	return e.fail(e.checkStep(k, step), "check "+k.String())
}

// ChunkAverage returns the averaged chunk of step.
func (e *Engine) ChunkAverage(step int) ([]complex128, error) {
	if err := e.request(product.ChunkAverage, step); err != nil {
		return nil, err
	}
	return e.steps[step].avg, nil
}

// DFT returns the shifted, 1/L normalized spectrum of step. The slice
// aliases the engine's transform buffer.
func (e *Engine) DFT(step int) ([]complex128, error) {
	if err := e.request(product.DFT, step); err != nil {
		return nil, err
	}
	return e.frame(e.dftOut, step), nil
}

// Corrected returns the phase-corrected spectrum of step. While no step
// needs a correction it aliases the DFT output.
func (e *Engine) Corrected(step int) ([]complex128, error) {
	if err := e.request(product.PhaseCorr, step); err != nil {
		return nil, err
	}
	return e.frame(e.corrected.frames(e.dftOut), step), nil
}

// Amplitude returns the spectral amplitude of step.
func (e *Engine) Amplitude(step int) ([]float64, error) {
	if err := e.request(product.Amplitude, step); err != nil {
		return nil, err
	}
	return e.steps[step].amp, nil
}

// Grid returns the frequency axis of step.
func (e *Engine) Grid(step int) (interp.Grid, error) {
	if err := e.request(product.Grid, step); err != nil {
		return interp.Grid{}, err
	}
	return e.steps[step].grid, nil
}

// FilterRange returns the bin range [lo, hi) inside the filter width.
func (e *Engine) FilterRange(step int) (lo, hi int, err error) {
	if err := e.request(product.FilterRange, step); err != nil {
		return 0, 0, err
	}
	return e.steps[step].lo, e.steps[step].hi, nil
}

// Envelope returns the amplitude envelope over all eligible steps.
func (e *Engine) Envelope() ([]envelope.Point, error) {
	if err := e.Check(product.Envelope, nmr.AllSteps); err != nil {
		return nil, err
	}
	return e.env, nil
}

// RealEnvelope returns the envelope of the phase-corrected real parts.
func (e *Engine) RealEnvelope() ([]envelope.Point, error) {
	if err := e.Check(product.RealEnvelope, nmr.AllSteps); err != nil {
		return nil, err
	}
	return e.realEnv, nil
}

// Evaluation returns the scalar metrics of step.
func (e *Engine) Evaluation(step int) (eval.Summary, error) {
	if err := e.request(product.Evaluation, step); err != nil {
		return eval.Summary{}, err
	}
	return e.steps[step].summary, nil
}
