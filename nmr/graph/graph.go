// Package graph drives lazy, dependency-tracked recomputation of the NMR
// data products declared in package product.
//
// Every kind has a clean bit for the all-steps scope and one per step.
// [Graph.Check] recomputes a kind only when its bit is dirty, after first
// checking its prerequisites. [Graph.MarkDirty] clears the bit of a kind
// and of every kind that depends on it.
//
// A Graph is not safe for concurrent use.
package graph

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/cwbudde/algo-nmr/nmr"
	"github.com/cwbudde/algo-nmr/nmr/product"
)

// Producer computes one kind for step, or for every step when step is
// [nmr.AllSteps]. It must be idempotent.
type Producer func(step int) error

// Producers maps every kind to its producer.
type Producers [product.NumKinds]Producer

// DirtyFunc is called with the kinds whose bits went from clean to dirty.
type DirtyFunc func(changed product.Mask, step int)

// Option configures a Graph.
type Option func(*Graph)

// WithLogger sets the logger used for per-producer debug records.
func WithLogger(l *slog.Logger) Option {
	return func(g *Graph) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithDirtyFunc installs a change notification hook.
func WithDirtyFunc(f DirtyFunc) Option {
	return func(g *Graph) { g.onDirty = f }
}

// Graph holds the clean bits of every product kind.
type Graph struct {
	producers Producers
	global    product.Mask
	perStep   []product.Mask
	onDirty   DirtyFunc
	logger    *slog.Logger
}

var perStepKinds = func() product.Mask {
	var m product.Mask
	for k := product.Kind(0); k < product.NumKinds; k++ {
		if !product.IsCollective(k) {
			m |= k.Bit()
		}
	}
	return m
}()

// New creates a graph with every bit dirty. Every kind needs a producer.
func New(p Producers, opts ...Option) (*Graph, error) {
	for k, f := range p {
		if f == nil {
			return nil, fmt.Errorf("graph: no producer for %v: %w", product.Kind(k), nmr.StatusMissingCollaborator)
		}
	}

	g := &Graph{
		producers: p,
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g, nil
}

// Steps returns the number of per-step slots.
func (g *Graph) Steps() int { return len(g.perStep) }

// Resize sets the number of steps. Every per-step bit, and the global bit
// of every per-step kind, becomes dirty.
func (g *Graph) Resize(n int) {
	if n < 0 {
		n = 0
	}
	g.perStep = make([]product.Mask, n)
	g.global &^= perStepKinds
}

// Reset marks every bit dirty without notification.
func (g *Graph) Reset() {
	g.global = 0
	clear(g.perStep)
}

// IsClean reports whether k is clean for step. Collective kinds and
// out-of-range steps are looked up in the all-steps scope.
func (g *Graph) IsClean(k product.Kind, step int) bool {
	if !k.Valid() {
		return false
	}
	step = g.effectiveStep(k, step)
	if step == nmr.AllSteps {
		return g.global.Has(k)
	}
	return g.perStep[step].Has(k)
}

// Clean returns the mask of kinds clean for step.
func (g *Graph) Clean(step int) product.Mask {
	var m product.Mask
	for k := product.Kind(0); k < product.NumKinds; k++ {
		if g.IsClean(k, step) {
			m |= k.Bit()
		}
	}
	return m
}

func (g *Graph) effectiveStep(k product.Kind, step int) int {
	if product.IsCollective(k) || !nmr.InRange(step, len(g.perStep)) {
		return nmr.AllSteps
	}
	return step
}

// Check brings k up to date for step, recomputing prerequisites first.
//
// A producer error leaves k dirty and is returned unchanged.
func (g *Graph) Check(k product.Kind, step int) error {
	if !k.Valid() {
		return fmt.Errorf("graph: unknown kind %d: %w", k, nmr.StatusInvalidParam)
	}

	step = g.effectiveStep(k, step)
	if g.IsClean(k, step) {
		return nil
	}

	for _, r := range product.Requires(k).Kinds() {
		if err := g.Check(r, step); err != nil {
			return err
		}
	}

	// A prerequisite may have changed the step count.
	step = g.effectiveStep(k, step)

	// Per-step kinds that are partially clean only recompute the dirty steps.
	if step == nmr.AllSteps && !product.IsCollective(k) {
		if dirty := g.dirtySteps(k); len(dirty) < len(g.perStep) {
			for _, s := range dirty {
				if err := g.produce(k, s); err != nil {
					return err
				}
			}
			return nil
		}
	}

	return g.produce(k, step)
}

func (g *Graph) produce(k product.Kind, step int) error {
	start := time.Now()
	if err := g.producers[k](step); err != nil {
		g.logger.Debug("producer failed", "kind", k.String(), "step", step, "err", err)
		return err
	}
	g.logger.Debug("produced", "kind", k.String(), "step", step, "elapsed", time.Since(start))

	g.markClean(k, step)
	return nil
}

func (g *Graph) dirtySteps(k product.Kind) []int {
	var out []int
	for i, m := range g.perStep {
		if !m.Has(k) {
			out = append(out, i)
		}
	}
	return out
}

func (g *Graph) markClean(k product.Kind, step int) {
	if step == nmr.AllSteps {
		g.global |= k.Bit()
		for i := range g.perStep {
			g.perStep[i] |= k.Bit()
		}
		return
	}

	g.perStep[step] |= k.Bit()
	for _, m := range g.perStep {
		if !m.Has(k) {
			return
		}
	}
	g.global |= k.Bit()
}

// MarkDirty clears the bits of k and of every kind depending on it.
// A single step clears that step's bits and the all-steps bits; an
// out-of-range step is treated as all steps.
func (g *Graph) MarkDirty(k product.Kind, step int) {
	if !k.Valid() {
		return
	}

	m := product.Invalidates(k)
	var changed product.Mask

	if !nmr.InRange(step, len(g.perStep)) {
		step = nmr.AllSteps
		changed = g.global & m
		for i := range g.perStep {
			changed |= g.perStep[i] & m
			g.perStep[i] &^= m
		}
	} else {
		changed = (g.global | g.perStep[step]) & m
		g.perStep[step] &^= m
	}
	g.global &^= m

	if changed != 0 && g.onDirty != nil {
		g.onDirty(changed, step)
	}
}
