package engine

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cwbudde/algo-nmr/dsp/spectrum"
	"github.com/cwbudde/algo-nmr/nmr"
	"github.com/cwbudde/algo-nmr/nmr/envelope"
	"github.com/cwbudde/algo-nmr/nmr/paramfile"
	"github.com/cwbudde/algo-nmr/nmr/product"
)

// DataType selects the data written by [Engine.Export].
type DataType uint8

const (
	ChunkAverage DataType = iota
	Spectrum
	PhaseCorrected
	Envelope
	RealEnvelope
	Evaluation
)

var dataTypeNames = [...]string{
	"chunk-average", "spectrum", "phase-corrected", "envelope", "real-envelope", "evaluation",
}

func (d DataType) String() string {
	if int(d) < len(dataTypeNames) {
		return dataTypeNames[d]
	}
	return "unknown"
}

// ParseDataType looks a data type up by name.
func ParseDataType(name string) (DataType, error) {
	for i, n := range dataTypeNames {
		if strings.EqualFold(n, name) {
			return DataType(i), nil
		}
	}
	return 0, fmt.Errorf("engine: unknown data type %q: %w", name, nmr.StatusInvalidParam)
}

// DataTypes returns every data type name.
func DataTypes() []string { return dataTypeNames[:] }

// Export writes data type d of step to w: a "key= value" header, a '#'
// column line and tab-separated rows. Envelopes and the evaluation table
// ignore step. Empty data is reported as [nmr.StatusStale].
func (e *Engine) Export(w io.Writer, d DataType, step int) error {
	return e.fail(e.export(w, d, step), "export "+d.String())
}

type table struct {
	header  paramfile.File
	columns []string
	rows    [][]float64
}

func (e *Engine) export(w io.Writer, d DataType, step int) error {
	var (
		t   table
		err error
	)
	switch d {
	case ChunkAverage:
		t, err = e.chunkAverageTable(step)
	case Spectrum:
		t, err = e.spectrumTable(step, false)
	case PhaseCorrected:
		t, err = e.spectrumTable(step, true)
	case Envelope:
		t, err = e.envelopeTable(false)
	case RealEnvelope:
		t, err = e.envelopeTable(true)
	case Evaluation:
		t, err = e.evaluationTable()
	default:
		return fmt.Errorf("engine: unknown data type %d: %w", d, nmr.StatusInvalidParam)
	}
	if err != nil {
		return err
	}
	if len(t.rows) == 0 {
		return fmt.Errorf("engine: %v has no data: %w", d, nmr.StatusStale)
	}

	t.header.Entries = append([]paramfile.Entry{{Key: "DataType", Value: d.String()}}, t.header.Entries...)
	return t.write(w)
}

func (t *table) write(w io.Writer) error {
	if err := t.header.Write(w); err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	bw.WriteString("# " + strings.Join(t.columns, "\t") + "\n")
	buf := make([]byte, 0, 32)
	for _, row := range t.rows {
		for i, v := range row {
			if i > 0 {
				bw.WriteByte('\t')
			}
			buf = strconv.AppendFloat(buf[:0], v, 'g', -1, 64)
			bw.Write(buf)
		}
		bw.WriteByte('\n')
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("engine: export: %w: %w", nmr.StatusIO, err)
	}
	return nil
}

func (e *Engine) stepHeader(t *table, step int) {
	t.header.Setf("Step", "%d", step)
	t.header.Set("StepValue", strconv.FormatFloat(e.steps[step].value, 'g', -1, 64))
	t.header.Set("SampleRate", strconv.FormatFloat(e.sampleRate(), 'g', -1, 64))
}

func (e *Engine) chunkAverageTable(step int) (table, error) {
	if err := e.checkStep(product.ChunkAmplitude, step); err != nil {
		return table{}, err
	}
	st := &e.steps[step]

	var t table
	e.stepHeader(&t, step)
	t.header.Setf("Chunks", "%d", len(e.chunks))
	t.columns = []string{"time", "re", "im", "amplitude"}

	sr := e.sampleRate()
	for i, x := range st.avg {
		tm := e.acq.TimeOffset
		if sr > 0 {
			tm += float64(i) / sr
		}
		t.rows = append(t.rows, []float64{tm, real(x), imag(x), st.avgAmp[i]})
	}
	return t, nil
}

func (e *Engine) spectrumTable(step int, corrected bool) (table, error) {
	k := product.Amplitude
	if corrected {
		k = product.PhaseCorr
	}
	if err := e.checkStep(k, step); err != nil {
		return table{}, err
	}
	if err := e.graph.Check(product.Grid, step); err != nil {
		return table{}, err
	}

	st := &e.steps[step]
	spec, amp := e.frame(e.dftOut, step), st.amp
	if corrected {
		spec, amp = e.frame(e.corrected.frames(e.dftOut), step), st.corrAmp
	}

	var t table
	e.stepHeader(&t, step)
	t.header.Setf("DFTLength", "%d", len(spec))
	if corrected {
		t.header.Setf("PhaseCorr0", "%d", st.corr.Phase0)
		t.header.Set("Tau", strconv.FormatFloat(st.corr.Tau, 'g', -1, 64))
	}
	t.columns = []string{"frequency", "re", "im", "amplitude", "phase"}
	ph := spectrum.Phase(spec)
	for j, x := range spec {
		t.rows = append(t.rows, []float64{st.grid.At(j), real(x), imag(x), amp[j], ph[j]})
	}
	return t, nil
}

func (e *Engine) envelopeTable(realPart bool) (table, error) {
	k, pts := product.Envelope, &e.env
	if realPart {
		k, pts = product.RealEnvelope, &e.realEnv
	}
	if err := e.graph.Check(k, nmr.AllSteps); err != nil {
		return table{}, err
	}

	var t table
	t.header.Setf("Points", "%d", len(*pts))
	t.columns = []string{"frequency", "value"}
	t.rows = pointRows(*pts)
	return t, nil
}

func pointRows(pts []envelope.Point) [][]float64 {
	rows := make([][]float64, len(pts))
	for i, p := range pts {
		rows[i] = []float64{p.Freq, p.Value}
	}
	return rows
}

func (e *Engine) evaluationTable() (table, error) {
	if err := e.graph.Check(product.Evaluation, nmr.AllSteps); err != nil {
		return table{}, err
	}
	n := len(e.steps)

	var t table
	t.header.Setf("Steps", "%d", n)
	t.columns = []string{
		"value", "chunk_max", "chunk_integral",
		"amp_max", "amp_max_freq", "amp_mean",
		"real_extremum", "real_mean",
		"corr_amp_max", "corr_amp_mean",
	}
	for s := range n {
		st := &e.steps[s]
		ev := st.summary
		maxFreq := 0.0
		if ev.Amplitude.MaxIndex >= 0 {
			maxFreq = st.grid.At(ev.Amplitude.MaxIndex)
		}
		t.rows = append(t.rows, []float64{
			st.value, ev.ChunkAverage.Max, ev.ChunkAverage.Integral,
			ev.Amplitude.Max, maxFreq, ev.Amplitude.Mean,
			ev.PhaseReal.Extremum, ev.PhaseReal.Mean,
			ev.PhaseAmplitude.Max, ev.PhaseAmplitude.Mean,
		})
	}
	return t, nil
}
