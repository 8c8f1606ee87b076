// Package params validates and stores the NMR processing parameters.
//
// Every setter coerces its input into the legal range instead of rejecting
// it. When a stored value actually changes, the product kinds that depend
// on it are marked dirty and the change hook is called. Only structurally
// invalid requests (unknown id, wrong value type, step out of range) fail,
// with [nmr.StatusInvalidParam].
package params

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-nmr/dsp/core"
	"github.com/cwbudde/algo-nmr/nmr"
	"github.com/cwbudde/algo-nmr/nmr/product"
)

const (
	// Phase0Modulus is one full turn in milli-degrees.
	Phase0Modulus = 360000
	// MaxPhase1 bounds the first-order delay in nanoseconds.
	MaxPhase1 = 2_000_000_000
	// MaxDFTLength bounds the zero-padded transform length.
	MaxDFTLength = 1 << 22
	// MinFilterWidth is the narrowest frequency filter in Hz.
	MinFilterWidth = 1.0

	unbounded = math.MaxInt32
)

// Limits are the acquisition-derived bounds used for coercion.
// Zero values mean "not known yet" and disable the corresponding bound.
type Limits struct {
	Steps       int
	ChunkCount  int
	ChunkLength int
	SampleRate  float64
}

// Invalidator receives dirty marks for product kinds.
type Invalidator interface {
	MarkDirty(k product.Kind, step int)
}

// ChangeFunc is called after a stored value changed.
type ChangeFunc func(id ID, step int)

// Proc holds the process-wide parameters.
type Proc struct {
	FirstChunk      int
	LastChunk       int
	ProcStart       int
	ProcEnd         int
	DFTLength       int
	FilterWidth     float64
	ScaleFirstPoint bool
	RemoveOffset    bool
}

// Unpadded returns the length of the processing window.
func (p Proc) Unpadded() int { return p.ProcEnd - p.ProcStart }

// Step holds the per-step parameters.
type Step struct {
	Phase0 int64 // milli-degrees in [0, Phase0Modulus)
	Mode0  ZeroOrderMode
	Phase1 int64 // nanoseconds
	Ref1   FirstOrderRef
	Flag   nmr.StepFlag
}

// Store holds and validates the parameters.
//
// A Store is not safe for concurrent use.
type Store struct {
	inv        Invalidator
	onChange   ChangeFunc
	limits     Limits
	proc       Proc
	dftAuto    bool
	filterAuto bool
	lastAuto   bool
	endAuto    bool
	steps      []Step
}

type nopInvalidator struct{}

func (nopInvalidator) MarkDirty(product.Kind, int) {}

// NewStore creates a store with default values. inv and onChange may be nil.
func NewStore(inv Invalidator, onChange ChangeFunc) *Store {
	if inv == nil {
		inv = nopInvalidator{}
	}
	return &Store{
		inv:      inv,
		onChange: onChange,
		proc: Proc{
			LastChunk: unbounded,
			ProcEnd:   unbounded,
		},
		dftAuto:    true,
		filterAuto: true,
		lastAuto:   true,
		endAuto:    true,
	}
}

// Limits returns the current coercion bounds.
func (s *Store) Limits() Limits { return s.limits }

// SetLimits replaces the coercion bounds and resizes the per-step table.
// Existing steps keep their values. Call [Store.CheckAll] afterwards to
// re-coerce stored values.
func (s *Store) SetLimits(l Limits) {
	if l.Steps < 0 {
		l.Steps = 0
	}
	s.limits = l

	switch {
	case l.Steps < len(s.steps):
		s.steps = s.steps[:l.Steps]
	case l.Steps > len(s.steps):
		s.steps = append(s.steps, make([]Step, l.Steps-len(s.steps))...)
	}
}

// Auto reports whether id still follows its automatic default: the last
// chunk, the chunk length, the next power of two of the window or the
// sample rate. An explicit Set ends it.
func (s *Store) Auto(id ID) bool {
	switch id {
	case LastChunk:
		return s.lastAuto
	case ProcEnd:
		return s.endAuto
	case DFTLength:
		return s.dftAuto
	case FilterWidth:
		return s.filterAuto
	}
	return false
}

// Proc returns the process-wide parameters.
func (s *Store) Proc() Proc { return s.proc }

// Steps returns the number of per-step entries.
func (s *Store) Steps() int { return len(s.steps) }

// Step returns the parameters of step i. i must be in range.
func (s *Store) Step(i int) Step { return s.steps[i] }

// Pilot returns the pilot step while a follow-pilot family exists, or -1.
func (s *Store) Pilot() int {
	if !s.hasFollowers() {
		return -1
	}
	for i, st := range s.steps {
		if st.Mode0 == ModeAuto {
			return i
		}
	}
	return -1
}

func (s *Store) hasFollowers() bool {
	for _, st := range s.steps {
		if st.Mode0 == ModeFollowPilot {
			return true
		}
	}
	return false
}

func (s *Store) changed(id ID, step int, dirties product.Mask) {
	for _, k := range dirties.Kinds() {
		s.inv.MarkDirty(k, step)
	}
	if s.onChange != nil {
		s.onChange(id, step)
	}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("params: %s: %w", fmt.Sprintf(format, args...), nmr.StatusInvalidParam)
}

// Get returns the stored value of id. Per-step ids need a step in range.
func (s *Store) Get(id ID, step int) (any, error) {
	if !id.Valid() {
		return nil, invalid("unknown id %d", id)
	}

	if !id.PerStep() {
		switch id {
		case FilterWidth:
			return s.proc.FilterWidth, nil
		case ScaleFirstPoint:
			return s.proc.ScaleFirstPoint, nil
		case RemoveOffset:
			return s.proc.RemoveOffset, nil
		default:
			return s.procInt(id), nil
		}
	}

	if !nmr.InRange(step, len(s.steps)) {
		return nil, invalid("%v: step %d out of range [0,%d)", id, step, len(s.steps))
	}

	st := s.steps[step]
	switch id {
	case PhaseCorr0:
		return st.Phase0, nil
	case Phase0Mode:
		return st.Mode0, nil
	case PhaseCorr1:
		return st.Phase1, nil
	case Phase1Ref:
		return st.Ref1, nil
	default:
		return st.Flag, nil
	}
}

// Set coerces v, stores it and returns the stored value.
//
// Per-step ids accept [nmr.AllSteps] to set every step.
func (s *Store) Set(id ID, v any, step int) (any, error) {
	if !id.Valid() {
		return nil, invalid("unknown id %d", id)
	}

	if !id.PerStep() {
		return s.setProc(id, v)
	}

	if step == nmr.AllSteps && len(s.steps) > 0 {
		var last any
		for i := range s.steps {
			got, err := s.setStep(id, v, i)
			if err != nil {
				return nil, err
			}
			last = got
		}
		return last, nil
	}

	if !nmr.InRange(step, len(s.steps)) {
		return nil, invalid("%v: step %d out of range [0,%d)", id, step, len(s.steps))
	}
	return s.setStep(id, v, step)
}

func (s *Store) procInt(id ID) int {
	switch id {
	case FirstChunk:
		return s.proc.FirstChunk
	case LastChunk:
		return s.proc.LastChunk
	case ProcStart:
		return s.proc.ProcStart
	case ProcEnd:
		return s.proc.ProcEnd
	default:
		return s.proc.DFTLength
	}
}

func (s *Store) setProcInt(id ID, v int) {
	switch id {
	case FirstChunk:
		s.proc.FirstChunk = v
	case LastChunk:
		s.proc.LastChunk = v
	case ProcStart:
		s.proc.ProcStart = v
	case ProcEnd:
		s.proc.ProcEnd = v
	default:
		s.proc.DFTLength = v
	}
}

func (s *Store) setProc(id ID, v any) (any, error) {
	switch infos[id].kind {
	case kindInt:
		n, ok := toInt(v)
		if !ok {
			return nil, invalid("%v: want integer, got %T", id, v)
		}
		switch id {
		case LastChunk:
			s.lastAuto = false
		case ProcEnd:
			s.endAuto = false
		case DFTLength:
			// Zero or less returns to the automatic power of two.
			s.dftAuto = n <= 0
		}
		s.storeProcInt(id, s.coerceInt(id, clampToInt(n)))
		if id == ProcStart || id == ProcEnd {
			s.checkProcInt(DFTLength)
		}
		return s.procInt(id), nil

	case kindFloat:
		f, ok := toFloat(v)
		if !ok {
			return nil, invalid("%v: want number, got %T", id, v)
		}
		s.filterAuto = false
		s.storeFilterWidth(s.coerceFilterWidth(f))
		return s.proc.FilterWidth, nil

	default:
		b, ok := v.(bool)
		if !ok {
			return nil, invalid("%v: want bool, got %T", id, v)
		}
		s.setExclusive(id, b)
		if id == ScaleFirstPoint {
			return s.proc.ScaleFirstPoint, nil
		}
		return s.proc.RemoveOffset, nil
	}
}

func (s *Store) storeProcInt(id ID, v int) {
	if v == s.procInt(id) {
		return
	}
	s.setProcInt(id, v)
	s.changed(id, nmr.AllSteps, infos[id].dirties)
}

func (s *Store) storeFilterWidth(f float64) {
	if f == s.proc.FilterWidth {
		return
	}
	s.proc.FilterWidth = f
	s.changed(FilterWidth, nmr.AllSteps, infos[FilterWidth].dirties)
}

// setExclusive stores one of the mutually exclusive first-point options,
// clearing the other when it is switched on.
func (s *Store) setExclusive(id ID, on bool) {
	self, other, otherID := &s.proc.ScaleFirstPoint, &s.proc.RemoveOffset, RemoveOffset
	if id == RemoveOffset {
		self, other, otherID = &s.proc.RemoveOffset, &s.proc.ScaleFirstPoint, ScaleFirstPoint
	}

	if on && *other {
		*other = false
		s.changed(otherID, nmr.AllSteps, infos[otherID].dirties)
	}
	if *self != on {
		*self = on
		s.changed(id, nmr.AllSteps, infos[id].dirties)
	}
}

func (s *Store) unpadded() int {
	if s.limits.ChunkLength <= 0 {
		return 1
	}
	return max(s.proc.Unpadded(), 1)
}

func (s *Store) coerceInt(id ID, v int) int {
	switch id {
	case FirstChunk:
		hi := s.proc.LastChunk
		if s.limits.ChunkCount > 0 {
			hi = min(hi, s.limits.ChunkCount-1)
		}
		return core.ClampInt(v, 0, max(hi, 0))

	case LastChunk:
		hi := unbounded
		if s.limits.ChunkCount > 0 {
			hi = s.limits.ChunkCount - 1
		}
		if s.lastAuto {
			return hi
		}
		lo := min(s.proc.FirstChunk, hi)
		return min(max(v, lo), hi)

	case ProcStart:
		hi := s.proc.ProcEnd - 1
		if s.limits.ChunkLength > 0 {
			hi = min(hi, s.limits.ChunkLength-1)
		}
		return core.ClampInt(v, 0, max(hi, 0))

	case ProcEnd:
		hi := unbounded
		if s.limits.ChunkLength > 0 {
			hi = s.limits.ChunkLength
		}
		if s.endAuto {
			return hi
		}
		lo := min(s.proc.ProcStart+1, hi)
		return min(max(v, lo), hi)

	default:
		lo := min(s.unpadded(), MaxDFTLength)
		if s.dftAuto {
			return min(core.NextPowerOf2(lo), MaxDFTLength)
		}
		return core.ClampInt(v, lo, MaxDFTLength)
	}
}

func (s *Store) coerceFilterWidth(f float64) float64 {
	if s.filterAuto {
		f = s.limits.SampleRate
	}
	return math.Max(core.Finite(f), MinFilterWidth)
}

func (s *Store) checkProcInt(id ID) {
	s.storeProcInt(id, s.coerceInt(id, s.procInt(id)))
}

// Check re-coerces the stored value of id against the current limits.
// It is idempotent.
func (s *Store) Check(id ID, step int) error {
	if !id.Valid() {
		return invalid("unknown id %d", id)
	}

	if !id.PerStep() {
		switch infos[id].kind {
		case kindInt:
			s.checkProcInt(id)
		case kindFloat:
			s.storeFilterWidth(s.coerceFilterWidth(s.proc.FilterWidth))
		}
		return nil
	}

	if step != nmr.AllSteps && !nmr.InRange(step, len(s.steps)) {
		return invalid("%v: step %d out of range [0,%d)", id, step, len(s.steps))
	}

	switch id {
	case Phase0Mode:
		s.repairModes()
		return nil
	case PhaseCorr0, PhaseCorr1:
		lo, hi := 0, len(s.steps)
		if step != nmr.AllSteps {
			lo, hi = step, step+1
		}
		for i := lo; i < hi; i++ {
			st := s.steps[i]
			if _, err := s.setStep(id, pickInt(id, st), i); err != nil {
				return err
			}
		}
	}
	return nil
}

func pickInt(id ID, st Step) int64 {
	if id == PhaseCorr0 {
		return st.Phase0
	}
	return st.Phase1
}

// CheckAll re-coerces every parameter, in dependency order.
func (s *Store) CheckAll() {
	for id := ID(0); id < NumIDs; id++ {
		_ = s.Check(id, nmr.AllSteps)
	}
}

// SetAutoPhase0 stores a computed zero-order value. It does not mark any
// product dirty: it is called by the producer that owns the value.
func (s *Store) SetAutoPhase0(step int, mdeg int64) {
	if !nmr.InRange(step, len(s.steps)) {
		return
	}
	v := core.Mod(mdeg, Phase0Modulus)
	if s.steps[step].Phase0 == v {
		return
	}
	s.steps[step].Phase0 = v
	if s.onChange != nil {
		s.onChange(PhaseCorr0, step)
	}
}

func (s *Store) setStep(id ID, v any, step int) (any, error) {
	st := &s.steps[step]

	switch id {
	case PhaseCorr0, PhaseCorr1:
		n, ok := toInt(v)
		if !ok {
			return nil, invalid("%v: want integer, got %T", id, v)
		}
		field := &st.Phase0
		scope := step
		if id == PhaseCorr0 {
			n = core.Mod(n, Phase0Modulus)
		} else {
			field = &st.Phase1
			n = min(max(n, -MaxPhase1), MaxPhase1)
			scope = nmr.AllSteps
		}
		if *field != n {
			*field = n
			s.changed(id, scope, infos[id].dirties)
		}
		return n, nil

	case Phase1Ref:
		r, ok := v.(FirstOrderRef)
		if !ok || !r.Valid() {
			return nil, invalid("%v: want FirstOrderRef, got %T(%v)", id, v, v)
		}
		if st.Ref1 != r {
			st.Ref1 = r
			s.changed(id, nmr.AllSteps, infos[id].dirties)
		}
		return r, nil

	case Phase0Mode:
		m, ok := v.(ZeroOrderMode)
		if !ok || !m.Valid() {
			return nil, invalid("%v: want ZeroOrderMode, got %T(%v)", id, v, v)
		}
		s.applyMode(step, m)
		return s.steps[step].Mode0, nil

	default:
		f, ok := v.(nmr.StepFlag)
		if !ok || !f.Valid() {
			return nil, invalid("%v: want StepFlag, got %T(%v)", id, v, v)
		}
		old := st.Flag
		if old == f {
			return f, nil
		}
		st.Flag = f

		var dirties product.Mask
		if old.ContributesToChunks() != f.ContributesToChunks() {
			dirties |= product.ChunkSet.Bit()
		}
		if old.EnvelopeEligible() != f.EnvelopeEligible() {
			dirties |= product.Envelope.Bit() | product.RealEnvelope.Bit()
		}
		s.changed(id, nmr.AllSteps, dirties)
		return f, nil
	}
}

// applyMode runs the zero-order mode state machine for one request.
//
// Invariants kept: FollowPilot and AllTogether never coexist; while any
// step follows, every other step follows except exactly one Auto pilot.
func (s *Store) applyMode(step int, m ZeroOrderMode) {
	before := s.modes()

	switch m {
	case ModeFollowPilot:
		pilot := s.Pilot()
		if pilot < 0 || pilot == step {
			pilot = step
			for i := range s.steps {
				if i != step {
					pilot = i
					break
				}
			}
		}
		for i := range s.steps {
			s.steps[i].Mode0 = ModeFollowPilot
		}
		s.steps[pilot].Mode0 = ModeAuto

	case ModeAllTogether:
		s.dissolveFollowers()
		s.steps[step].Mode0 = ModeAllTogether

	case ModeAuto:
		if s.hasFollowers() {
			for i := range s.steps {
				s.steps[i].Mode0 = ModeFollowPilot
			}
		}
		s.steps[step].Mode0 = ModeAuto

	default:
		s.dissolveFollowers()
		s.steps[step].Mode0 = ModeManual
	}

	s.notifyModes(before)
}

func (s *Store) dissolveFollowers() {
	for i := range s.steps {
		if s.steps[i].Mode0 == ModeFollowPilot {
			s.steps[i].Mode0 = ModeManual
		}
	}
}

// repairModes restores the mode invariants after the step table changed.
func (s *Store) repairModes() {
	if !s.hasFollowers() {
		return
	}
	before := s.modes()

	together := false
	for _, st := range s.steps {
		together = together || st.Mode0 == ModeAllTogether
	}
	if together {
		s.dissolveFollowers()
		s.notifyModes(before)
		return
	}

	pilot := s.Pilot()
	if pilot < 0 {
		pilot = 0
	}
	for i := range s.steps {
		s.steps[i].Mode0 = ModeFollowPilot
	}
	s.steps[pilot].Mode0 = ModeAuto
	s.notifyModes(before)
}

func (s *Store) modes() []ZeroOrderMode {
	out := make([]ZeroOrderMode, len(s.steps))
	for i, st := range s.steps {
		out[i] = st.Mode0
	}
	return out
}

func (s *Store) notifyModes(before []ZeroOrderMode) {
	changedStep, n := nmr.AllSteps, 0
	for i, st := range s.steps {
		if i < len(before) && before[i] == st.Mode0 {
			continue
		}
		changedStep = i
		n++
	}
	if n == 0 {
		return
	}
	if n > 1 {
		changedStep = nmr.AllSteps
	}
	if s.onChange != nil {
		s.onChange(Phase0Mode, changedStep)
	}
	s.inv.MarkDirty(product.PhasePrep, nmr.AllSteps)
}

func toInt(v any) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case float32:
		return roundFinite(float64(x)), true
	case float64:
		return roundFinite(x), true
	}
	return 0, false
}

func roundFinite(f float64) int64 {
	f = core.Finite(f)
	f = core.Clamp(math.Round(f), math.MinInt64/2, math.MaxInt64/2)
	return int64(f)
}

func clampToInt(n int64) int {
	return int(min(max(n, math.MinInt32), math.MaxInt32))
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	}
	return 0, false
}
