package engine

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"math/cmplx"
	"strings"
	"syscall"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/cwbudde/algo-nmr/internal/testutil"
	"github.com/cwbudde/algo-nmr/nmr"
	"github.com/cwbudde/algo-nmr/nmr/acq"
	"github.com/cwbudde/algo-nmr/nmr/chunk"
	"github.com/cwbudde/algo-nmr/nmr/params"
	"github.com/cwbudde/algo-nmr/nmr/product"
)

var testEcho = testutil.Echo{
	Samples:   1024,
	Offset:    100,
	Period:    200,
	Length:    128,
	Count:     4,
	Amplitude: 1000,
	FreqHz:    50e3,
	Rate:      1e6,
}

var testChunks = chunk.Set{
	{Offset: 100, Length: 128},
	{Offset: 300, Length: 128},
	{Offset: 500, Length: 128},
	{Offset: 700, Length: 128},
}

// newTestAcquisition builds steps echo trains of growing amplitude.
func newTestAcquisition(steps int) *acq.Acquisition {
	var raw []int32
	values := make([]float64, steps)
	for i := range steps {
		e := testEcho
		e.Amplitude *= float64(i + 1)
		e.PhaseRad = 0.3 * float64(i)
		raw = append(raw, e.Train()...)
		values[i] = 10 * float64(i)
	}
	return &acq.Acquisition{
		Raw:        raw,
		Steps:      acq.UniformSteps(len(raw)/2, values),
		SampleRate: testEcho.Rate,
	}
}

type report struct {
	code     int
	text     string
	activity string
}

type spyReporter struct {
	reports []report
}

func (r *spyReporter) ReportCode(code int, activity string) {
	r.reports = append(r.reports, report{code: code, activity: activity})
}

func (r *spyReporter) ReportText(desc, activity string) {
	r.reports = append(r.reports, report{text: desc, activity: activity})
}

type countingLoader struct {
	a     *acq.Acquisition
	err   error
	loads int
}

func (l *countingLoader) Load() (*acq.Acquisition, error) {
	l.loads++
	return l.a, l.err
}

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *countingLoader, *spyReporter) {
	t.Helper()
	loader := &countingLoader{a: newTestAcquisition(3)}
	rep := &spyReporter{}
	e, err := New(loader, rep, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e, loader, rep
}

func mustSet(t *testing.T, e *Engine, id params.ID, v any, step int) any {
	t.Helper()
	got, err := e.SetParam(id, v, step)
	if err != nil {
		t.Fatalf("SetParam(%v, %v, %d): %v", id, v, step, err)
	}
	return got
}

func mustParam(t *testing.T, e *Engine, id params.ID, step int) any {
	t.Helper()
	got, err := e.Param(id, step)
	if err != nil {
		t.Fatalf("Param(%v, %d): %v", id, step, err)
	}
	return got
}

func TestNewRequiresCollaborators(t *testing.T) {
	loader := acq.LoaderFunc(func() (*acq.Acquisition, error) { return newTestAcquisition(1), nil })

	if _, err := New(nil, &spyReporter{}); !errors.Is(err, nmr.StatusMissingCollaborator) {
		t.Fatalf("nil loader err=%v want missing collaborator", err)
	}
	if _, err := New(loader, nil); !errors.Is(err, nmr.StatusMissingCollaborator) {
		t.Fatalf("nil reporter err=%v want missing collaborator", err)
	}
}

func TestNothingLoadedUntilRequested(t *testing.T) {
	e, loader, _ := newTestEngine(t)
	if loader.loads != 0 {
		t.Fatalf("loads=%d want=0", loader.loads)
	}

	n, err := e.Steps()
	if err != nil {
		t.Fatalf("Steps: %v", err)
	}
	if n != 3 {
		t.Fatalf("steps=%d want=3", n)
	}
	if v, _ := e.StepValue(2); v != 20 {
		t.Fatalf("step value=%v want=20", v)
	}
}

func TestChunkDetectionEndToEnd(t *testing.T) {
	e, _, _ := newTestEngine(t)

	got, err := e.ChunkSet()
	if err != nil {
		t.Fatalf("ChunkSet: %v", err)
	}
	if diff := cmp.Diff(testChunks, got); diff != "" {
		t.Fatalf("chunks mismatch (-want +got):\n%s", diff)
	}

	if v := mustParam(t, e, params.LastChunk, nmr.AllSteps); v != 3 {
		t.Fatalf("LastChunk=%v want=3", v)
	}
	if v := mustParam(t, e, params.ProcEnd, nmr.AllSteps); v != 128 {
		t.Fatalf("ProcEnd=%v want=128", v)
	}
	if v := mustParam(t, e, params.DFTLength, nmr.AllSteps); v != 128 {
		t.Fatalf("DFTLength=%v want=128", v)
	}
}

func TestChunkAverageOfIdenticalEchoes(t *testing.T) {
	e, loader, _ := newTestEngine(t)

	avg, err := e.ChunkAverage(1)
	if err != nil {
		t.Fatalf("ChunkAverage: %v", err)
	}
	if len(avg) != testEcho.Length {
		t.Fatalf("len=%d want=%d", len(avg), testEcho.Length)
	}

	raw := loader.a.Step(1)
	for i, x := range avg {
		j := testEcho.Offset + i
		want := complex(float64(raw[2*j]), float64(raw[2*j+1]))
		if x != want {
			t.Fatalf("avg[%d]=%v want=%v", i, x, want)
		}
	}
}

func TestChunkRangeLimitsAverage(t *testing.T) {
	e, loader, _ := newTestEngine(t)
	// Scale the third echo of step 0 so that averages differ by range.
	raw := loader.a.Raw
	for i := range testEcho.Length {
		j := 500 + i
		raw[2*j] *= 5
		raw[2*j+1] *= 5
	}

	mustSet(t, e, params.FirstChunk, 2, nmr.AllSteps)
	mustSet(t, e, params.LastChunk, 2, nmr.AllSteps)
	avg, err := e.ChunkAverage(0)
	if err != nil {
		t.Fatalf("ChunkAverage: %v", err)
	}
	mid := testEcho.Length / 2
	if want := complex(float64(raw[2*(500+mid)]), float64(raw[2*(500+mid)+1])); avg[mid] != want {
		t.Fatalf("avg[%d]=%v want=%v", mid, avg[mid], want)
	}
}

func TestDFTOfWindowedEcho(t *testing.T) {
	e, _, _ := newTestEngine(t)

	amp, err := e.Amplitude(0)
	if err != nil {
		t.Fatalf("Amplitude: %v", err)
	}
	g, err := e.Grid(0)
	if err != nil {
		t.Fatalf("Grid: %v", err)
	}
	if len(amp) != 128 || g.Len != 128 {
		t.Fatalf("len(amp)=%d grid=%d want=128", len(amp), g.Len)
	}
	testutil.RequireFinite(t, amp)
	if want := -64 * testEcho.Rate / 128; g.Start != want {
		t.Fatalf("grid start=%v want=%v", g.Start, want)
	}

	peak := 0
	for j := range amp {
		if amp[j] > amp[peak] {
			peak = j
		}
	}
	if f := g.At(peak); math.Abs(f-testEcho.FreqHz) > g.Step {
		t.Fatalf("peak at %v Hz want %v Hz", f, testEcho.FreqHz)
	}
}

func TestCorrectedAliasesDFTWithoutCorrection(t *testing.T) {
	e, _, _ := newTestEngine(t)

	dft, err := e.DFT(0)
	if err != nil {
		t.Fatalf("DFT: %v", err)
	}
	corr, err := e.Corrected(0)
	if err != nil {
		t.Fatalf("Corrected: %v", err)
	}
	if &corr[0] != &dft[0] {
		t.Fatal("corrected spectrum does not alias the DFT output")
	}
}

func TestPhaseChangeSwitchesToOwnedStore(t *testing.T) {
	e, _, _ := newTestEngine(t)
	if _, err := e.Corrected(0); err != nil {
		t.Fatalf("Corrected: %v", err)
	}

	mustSet(t, e, params.PhaseCorr0, int64(90000), 1)

	dft1, _ := e.DFT(1)
	corr1, err := e.Corrected(1)
	if err != nil {
		t.Fatalf("Corrected: %v", err)
	}
	if &corr1[0] == &dft1[0] {
		t.Fatal("corrected spectrum still aliases the DFT output")
	}
	want := make([]complex128, len(dft1))
	for j, x := range dft1 {
		want[j] = x * complex(0, 1)
	}
	testutil.RequireComplexNearlyEqual(t, corr1, want, 1e-9)

	// Uncorrected steps are copied.
	dft0, _ := e.DFT(0)
	corr0, _ := e.Corrected(0)
	testutil.RequireComplexNearlyEqual(t, corr0, dft0, 0)

	mustSet(t, e, params.PhaseCorr0, int64(0), 1)
	corr1, _ = e.Corrected(1)
	if &corr1[0] != &dft1[0] {
		t.Fatal("identity correction did not return to the borrowed store")
	}
}

func TestAutoPhaseMakesVectorSumReal(t *testing.T) {
	e, _, _ := newTestEngine(t)
	// Start inside the echo so the first sample carries its phase.
	mustSet(t, e, params.ProcStart, 32, nmr.AllSteps)
	mustSet(t, e, params.Phase0Mode, params.ModeAuto, 2)

	corr, err := e.Corrected(2)
	if err != nil {
		t.Fatalf("Corrected: %v", err)
	}
	var sum complex128
	for _, x := range corr {
		sum += x
	}
	if real(sum) <= 0 || math.Abs(imag(sum)) > 1e-4*cmplx.Abs(sum) {
		t.Fatalf("vector sum=%v want positive real", sum)
	}
	if v := mustParam(t, e, params.PhaseCorr0, 2); v == int64(0) {
		t.Fatal("automatic zero-order phase was not stored")
	}
}

func TestAutoPhaseIsResolvedOnRead(t *testing.T) {
	e, _, _ := newTestEngine(t)
	mustSet(t, e, params.ProcStart, 32, nmr.AllSteps)
	mustSet(t, e, params.Phase0Mode, params.ModeAuto, 2)

	got := mustParam(t, e, params.PhaseCorr0, 2)
	if got == int64(0) {
		t.Fatal("automatic zero-order phase read before it was computed")
	}
	if _, err := e.Corrected(2); err != nil {
		t.Fatalf("Corrected: %v", err)
	}
	if again := mustParam(t, e, params.PhaseCorr0, 2); again != got {
		t.Fatalf("PhaseCorr0=%v after Corrected, read %v before", again, got)
	}

	mustSet(t, e, params.Phase0Mode, params.ModeAuto, 0)
	var view bytes.Buffer
	if err := e.SaveView(&view); err != nil {
		t.Fatalf("SaveView: %v", err)
	}
	p0 := mustParam(t, e, params.PhaseCorr0, 0)
	if p0 == int64(0) {
		t.Fatal("step 0 phase not computed")
	}
	want := fmt.Sprintf("PhaseCorr0= %v 0 %v\n", p0, got)
	if !strings.Contains(view.String(), want) {
		t.Fatalf("view lacks %q:\n%s", want, view.String())
	}
}

func TestRemoveOffsetMatchesScaledFirstPoint(t *testing.T) {
	scaled, _, _ := newTestEngine(t)
	mustSet(t, scaled, params.ScaleFirstPoint, true, nmr.AllSteps)
	want, err := scaled.DFT(1)
	if err != nil {
		t.Fatalf("DFT: %v", err)
	}

	e, _, _ := newTestEngine(t)
	mustSet(t, e, params.RemoveOffset, true, nmr.AllSteps)
	got, err := e.Corrected(1)
	if err != nil {
		t.Fatalf("Corrected: %v", err)
	}
	testutil.RequireComplexNearlyEqual(t, got, want, 1e-9)

	abs := make([]float64, len(got))
	for j, x := range got {
		abs[j] = cmplx.Abs(x)
	}
	testutil.RequireSliceNearlyEqual(t, e.steps[1].corrAmp, abs, 1e-9)
}

func TestFilterWidthChangeKeepsChunks(t *testing.T) {
	e, _, _ := newTestEngine(t)
	if err := e.Check(product.Evaluation, nmr.AllSteps); err != nil {
		t.Fatalf("Check: %v", err)
	}
	if err := e.Check(product.Envelope, nmr.AllSteps); err != nil {
		t.Fatalf("Check: %v", err)
	}

	mustSet(t, e, params.FilterWidth, 1e5, nmr.AllSteps)

	for _, k := range []product.Kind{product.ChunkSet, product.ChunkAverage, product.DFT, product.Amplitude} {
		if !e.IsClean(k, nmr.AllSteps) {
			t.Fatalf("%v dirty after filter width change", k)
		}
	}
	for _, k := range []product.Kind{product.FilterRange, product.Envelope, product.EvalAmplitude, product.Evaluation} {
		if e.IsClean(k, nmr.AllSteps) {
			t.Fatalf("%v clean after filter width change", k)
		}
	}

	lo, hi, err := e.FilterRange(0)
	if err != nil {
		t.Fatalf("FilterRange: %v", err)
	}
	// 1e5 Hz at 7812.5 Hz per bin: 6 bins on each side of the center.
	if lo != 58 || hi != 71 {
		t.Fatalf("range=[%d,%d) want=[58,71)", lo, hi)
	}
}

func TestDFTLengthCoercion(t *testing.T) {
	e, _, _ := newTestEngine(t)
	if err := e.Check(product.DFT, nmr.AllSteps); err != nil {
		t.Fatalf("Check: %v", err)
	}

	if got := mustSet(t, e, params.DFTLength, 100, nmr.AllSteps); got != 128 {
		t.Fatalf("DFTLength=%v want=128", got)
	}
	if !e.IsClean(product.DFT, nmr.AllSteps) {
		t.Fatal("unchanged DFT length dirtied the DFT")
	}

	if got := mustSet(t, e, params.DFTLength, 1<<30, nmr.AllSteps); got != params.MaxDFTLength {
		t.Fatalf("DFTLength=%v want=%d", got, params.MaxDFTLength)
	}
	if got := mustSet(t, e, params.DFTLength, 200, nmr.AllSteps); got != 200 {
		t.Fatalf("DFTLength=%v want=200", got)
	}
	for range 2 {
		if err := e.CheckParam(params.DFTLength, nmr.AllSteps); err != nil {
			t.Fatalf("CheckParam: %v", err)
		}
		if got := mustParam(t, e, params.DFTLength, nmr.AllSteps); got != 200 {
			t.Fatalf("DFTLength=%v want=200", got)
		}
	}

	dft, err := e.DFT(2)
	if err != nil {
		t.Fatalf("DFT: %v", err)
	}
	if len(dft) != 200 {
		t.Fatalf("len=%d want=200", len(dft))
	}
}

func TestBufferLimitReportsAllocation(t *testing.T) {
	e, _, rep := newTestEngine(t, WithMaxBufferLen(256))

	_, err := e.DFT(0)
	if !errors.Is(err, nmr.StatusAlloc) {
		t.Fatalf("err=%v want allocation failure", err)
	}
	if len(rep.reports) != 1 {
		t.Fatalf("reports=%d want=1", len(rep.reports))
	}
}

func TestLoaderErrorIsReported(t *testing.T) {
	e, loader, rep := newTestEngine(t)
	loader.err = errors.Join(nmr.StatusIOOpen, syscall.ENOENT)

	_, err := e.Steps()
	if !errors.Is(err, nmr.StatusIOOpen) {
		t.Fatalf("err=%v want open failure", err)
	}
	want := []report{{code: int(syscall.ENOENT), activity: "check steps"}}
	if diff := cmp.Diff(want, rep.reports, cmp.AllowUnexported(report{})); diff != "" {
		t.Fatalf("reports mismatch (-want +got):\n%s", diff)
	}

	loader.err = errors.New("tape jammed")
	rep.reports = nil
	if _, err := e.ChunkSet(); err == nil {
		t.Fatal("expected error")
	}
	if len(rep.reports) != 1 || !strings.Contains(rep.reports[0].text, "tape jammed") {
		t.Fatalf("reports=%+v want text report", rep.reports)
	}
}

func TestInvalidAcquisitionRejected(t *testing.T) {
	a := newTestAcquisition(1)
	a.SampleRate = 0
	e, err := New(acq.LoaderFunc(func() (*acq.Acquisition, error) { return a, nil }), &spyReporter{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := e.Steps(); !errors.Is(err, nmr.StatusInvalidParam) {
		t.Fatalf("err=%v want invalid parameter", err)
	}
}

func TestStepOutOfRange(t *testing.T) {
	e, _, rep := newTestEngine(t)
	if _, err := e.DFT(3); !errors.Is(err, nmr.StatusInvalidParam) {
		t.Fatalf("err=%v want invalid parameter", err)
	}
	if _, err := e.SetParam(params.PhaseCorr0, int64(1), 7); !errors.Is(err, nmr.StatusInvalidParam) {
		t.Fatalf("err=%v want invalid parameter", err)
	}
	if len(rep.reports) != 2 {
		t.Fatalf("reports=%d want=2", len(rep.reports))
	}
}

func TestReloadAndFree(t *testing.T) {
	e, loader, _ := newTestEngine(t)
	if err := e.Check(product.Evaluation, nmr.AllSteps); err != nil {
		t.Fatalf("Check: %v", err)
	}
	if err := e.Check(product.Evaluation, nmr.AllSteps); err != nil {
		t.Fatalf("Check: %v", err)
	}
	if loader.loads != 1 {
		t.Fatalf("loads=%d want=1", loader.loads)
	}

	mustSet(t, e, params.FilterWidth, 2e5, nmr.AllSteps)
	e.Reload()
	if e.IsClean(product.ChunkSet, nmr.AllSteps) {
		t.Fatal("chunk set clean after reload")
	}
	if _, err := e.Steps(); err != nil {
		t.Fatalf("Steps: %v", err)
	}
	if loader.loads != 2 {
		t.Fatalf("loads=%d want=2", loader.loads)
	}

	e.Free()
	if e.IsClean(product.RawData, nmr.AllSteps) {
		t.Fatal("raw data clean after free")
	}
	if _, err := e.Evaluation(0); err != nil {
		t.Fatalf("Evaluation: %v", err)
	}
	if loader.loads != 3 {
		t.Fatalf("loads=%d want=3", loader.loads)
	}
	if v := mustParam(t, e, params.FilterWidth, nmr.AllSteps); v != 2e5 {
		t.Fatalf("FilterWidth=%v want=2e5", v)
	}
}

func TestReloadRangeFollowsNewChunkCount(t *testing.T) {
	e, loader, _ := newTestEngine(t)
	short := testEcho
	short.Count = 2
	var raw []int32
	for range 3 {
		raw = append(raw, short.Train()...)
	}
	loader.a = &acq.Acquisition{
		Raw:        raw,
		Steps:      acq.UniformSteps(len(raw)/2, []float64{0, 10, 20}),
		SampleRate: testEcho.Rate,
	}
	if v := mustParam(t, e, params.LastChunk, nmr.AllSteps); v != 1 {
		t.Fatalf("LastChunk=%v want=1", v)
	}

	loader.a = newTestAcquisition(3)
	e.Reload()
	chunks, err := e.ChunkSet()
	if err != nil {
		t.Fatalf("ChunkSet: %v", err)
	}
	if len(chunks) != 4 {
		t.Fatalf("chunks=%d want=4", len(chunks))
	}
	if v := mustParam(t, e, params.LastChunk, nmr.AllSteps); v != 3 {
		t.Fatalf("LastChunk=%v want=3 after reload", v)
	}

	mustSet(t, e, params.LastChunk, 1, nmr.AllSteps)
	e.Reload()
	if v := mustParam(t, e, params.LastChunk, nmr.AllSteps); v != 1 {
		t.Fatalf("explicit LastChunk=%v want=1 after reload", v)
	}
}

func TestStepCountChangeResetsStepParams(t *testing.T) {
	e, loader, _ := newTestEngine(t)
	mustSet(t, e, params.PhaseCorr0, int64(1000), 2)

	loader.a = newTestAcquisition(2)
	e.Reload()
	if n, _ := e.Steps(); n != 2 {
		t.Fatalf("steps=%d want=2", n)
	}
	for s := range 2 {
		if v := mustParam(t, e, params.PhaseCorr0, s); v != int64(0) {
			t.Fatalf("PhaseCorr0[%d]=%v want=0", s, v)
		}
	}
}

func TestEnvelopeIsPointwiseMaximum(t *testing.T) {
	e, _, _ := newTestEngine(t)
	mustSet(t, e, params.StepFlag, nmr.StepNoEnvelope, 2)

	env, err := e.Envelope()
	if err != nil {
		t.Fatalf("Envelope: %v", err)
	}
	lo, hi, _ := e.FilterRange(0)
	if len(env) != hi-lo {
		t.Fatalf("points=%d want=%d", len(env), hi-lo)
	}
	a0, _ := e.Amplitude(0)
	a1, _ := e.Amplitude(1)
	for i, p := range env {
		if want := math.Max(a0[lo+i], a1[lo+i]); p.Value != want {
			t.Fatalf("env[%d]=%v want=%v", i, p.Value, want)
		}
	}

	mustSet(t, e, params.StepFlag, nmr.StepOK, 2)
	if e.IsClean(product.Envelope, nmr.AllSteps) {
		t.Fatal("envelope clean after eligibility change")
	}
	if !e.IsClean(product.ChunkSet, nmr.AllSteps) {
		t.Fatal("chunk set dirtied by eligibility change")
	}
}

func TestEvaluation(t *testing.T) {
	e, _, _ := newTestEngine(t)

	s0, err := e.Evaluation(0)
	if err != nil {
		t.Fatalf("Evaluation: %v", err)
	}
	s2, err := e.Evaluation(2)
	if err != nil {
		t.Fatalf("Evaluation: %v", err)
	}
	if s0.Amplitude.Max <= 0 || s2.Amplitude.Max <= 2*s0.Amplitude.Max {
		t.Fatalf("amplitude max %v, %v: want growth with step amplitude", s0.Amplitude.Max, s2.Amplitude.Max)
	}
	if s0.ChunkAverage.Max <= 0 {
		t.Fatalf("chunk average max=%v want > 0", s0.ChunkAverage.Max)
	}
}

type spyObserver struct {
	products []product.Mask
	params   []params.ID
}

func (o *spyObserver) ProductsChanged(mask product.Mask, step int) {
	o.products = append(o.products, mask)
}

func (o *spyObserver) ParamChanged(id params.ID, step int) {
	o.params = append(o.params, id)
}

func TestObserverNotifications(t *testing.T) {
	obs := &spyObserver{}
	e, _, _ := newTestEngine(t, WithObserver(obs))
	if _, err := e.Envelope(); err != nil {
		t.Fatalf("Envelope: %v", err)
	}
	obs.products, obs.params = nil, nil

	mustSet(t, e, params.FilterWidth, 1e5, nmr.AllSteps)
	if diff := cmp.Diff([]params.ID{params.FilterWidth}, obs.params); diff != "" {
		t.Fatalf("params mismatch (-want +got):\n%s", diff)
	}
	if len(obs.products) != 1 || !obs.products[0].Has(product.Envelope) {
		t.Fatalf("products=%v want one notification including envelope", obs.products)
	}

	// Nothing clean left to invalidate.
	obs.products = nil
	mustSet(t, e, params.FilterWidth, 2e5, nmr.AllSteps)
	if len(obs.products) != 0 {
		t.Fatalf("products=%v want none", obs.products)
	}
}
