package engine

import (
	"fmt"
	"io"
	"strings"

	"github.com/cwbudde/algo-nmr/nmr"
	"github.com/cwbudde/algo-nmr/nmr/paramfile"
	"github.com/cwbudde/algo-nmr/nmr/params"
)

// loadOrder applies bounds before the values they bound, then once more so
// that a range can move in either direction.
var loadOrder = []params.ID{
	params.LastChunk, params.ProcEnd,
	params.FirstChunk, params.ProcStart,
	params.LastChunk, params.ProcEnd,
	params.DFTLength, params.FilterWidth,
	params.ScaleFirstPoint, params.RemoveOffset,
	params.StepFlag, params.Phase1Ref, params.PhaseCorr1,
	params.PhaseCorr0, params.Phase0Mode,
}

// SaveView writes every parameter as "key= value". Per-step parameters are
// written as a space-separated list with one value per step, with computed
// zero-order phases brought up to date. Parameters still following their
// automatic default are omitted.
func (e *Engine) SaveView(w io.Writer) error {
	return e.fail(e.saveView(w), "save view")
}

func (e *Engine) saveView(w io.Writer) error {
	if err := e.limits(); err != nil {
		return err
	}
	if err := e.resolvePhase0(nmr.AllSteps); err != nil {
		return err
	}

	var f paramfile.File
	for id := params.ID(0); id < params.NumIDs; id++ {
		if e.params.Auto(id) {
			continue
		}
		if !id.PerStep() {
			v, err := e.params.Get(id, nmr.AllSteps)
			if err != nil {
				return err
			}
			f.Set(id.String(), params.FormatValue(v))
			continue
		}

		vals := make([]string, e.params.Steps())
		for s := range vals {
			v, err := e.params.Get(id, s)
			if err != nil {
				return err
			}
			vals[s] = params.FormatValue(v)
		}
		f.Set(id.String(), strings.Join(vals, " "))
	}
	return f.Write(w)
}

// LoadView reads parameters written by [Engine.SaveView]. A per-step
// parameter with a single value applies to every step; extra values beyond
// the step count are ignored. Unknown keys are skipped.
func (e *Engine) LoadView(r io.Reader) error {
	return e.fail(e.loadView(r), "load view")
}

func (e *Engine) loadView(r io.Reader) error {
	f, err := paramfile.Read(r)
	if err != nil {
		return err
	}
	if err := e.limits(); err != nil {
		return err
	}

	for _, entry := range f.Entries {
		if _, ok := params.ParseID(entry.Key); !ok {
			e.logger.Debug("view key ignored", "key", entry.Key)
		}
	}

	for _, id := range loadOrder {
		fields, ok := f.Fields(id.String())
		if !ok || len(fields) == 0 {
			continue
		}
		if err := e.loadParam(id, fields); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) loadParam(id params.ID, fields []string) error {
	if !id.PerStep() || len(fields) == 1 {
		v, err := params.ParseValue(id, fields[0])
		if err != nil {
			return err
		}
		_, err = e.params.Set(id, v, nmr.AllSteps)
		return err
	}

	for s := range min(len(fields), e.params.Steps()) {
		v, err := params.ParseValue(id, fields[s])
		if err != nil {
			return fmt.Errorf("engine: step %d: %w", s, err)
		}
		if _, err := e.params.Set(id, v, s); err != nil {
			return err
		}
	}
	return nil
}
