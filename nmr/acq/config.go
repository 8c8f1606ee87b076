package acq

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/cwbudde/algo-nmr/nmr"
)

// StepConfig is one explicit step window.
type StepConfig struct {
	Offset int     `yaml:"offset"`
	Length int     `yaml:"length"`
	Value  float64 `yaml:"value"`
}

// Description is the YAML description of a raw acquisition file.
//
// Steps are either listed explicitly or derived by splitting the file into
// len(Values) equal parts.
type Description struct {
	RawFile          string       `yaml:"raw_file"`
	ByteOrder        string       `yaml:"byte_order"` // "little" or "big"
	Stride           int          `yaml:"stride"`     // int32 words per sample pair
	SampleRate       float64      `yaml:"sample_rate"`
	FilterSkip       int          `yaml:"filter_skip"`
	TimeOffset       float64      `yaml:"time_offset"`
	FrequencyStepped bool         `yaml:"frequency_stepped"`
	Values           []float64    `yaml:"values"`
	Steps            []StepConfig `yaml:"steps"`

	// dir resolves a relative RawFile.
	dir string
}

// ParseDescription decodes and validates a YAML description. Defaults are
// applied for byte order and stride.
func ParseDescription(data []byte) (*Description, error) {
	var d Description
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("acq: parse description: %w: %w", nmr.StatusInvalidParam, err)
	}

	if d.ByteOrder == "" {
		d.ByteOrder = "little"
	}
	if d.Stride == 0 {
		d.Stride = 2
	}

	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// LoadDescription reads a YAML description from path. A relative raw file
// is resolved against the directory of path.
func LoadDescription(path string) (*Description, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("acq: read description: %w: %w", nmr.StatusIOOpen, err)
	}

	d, err := ParseDescription(data)
	if err != nil {
		return nil, err
	}
	d.dir = filepath.Dir(path)
	return d, nil
}

// Validate checks the description values.
func (d *Description) Validate() error {
	if d.RawFile == "" {
		return fmt.Errorf("acq: raw_file is required: %w", nmr.StatusInvalidParam)
	}
	if d.ByteOrder != "little" && d.ByteOrder != "big" {
		return fmt.Errorf("acq: byte_order must be little or big, got %q: %w", d.ByteOrder, nmr.StatusInvalidParam)
	}
	if d.Stride < 2 {
		return fmt.Errorf("acq: stride must be at least 2, got %d: %w", d.Stride, nmr.StatusInvalidParam)
	}
	if d.SampleRate <= 0 {
		return fmt.Errorf("acq: sample_rate must be positive, got %v: %w", d.SampleRate, nmr.StatusInvalidParam)
	}
	if d.FilterSkip < 0 {
		return fmt.Errorf("acq: filter_skip must be non-negative, got %d: %w", d.FilterSkip, nmr.StatusInvalidParam)
	}
	if len(d.Values) > 0 && len(d.Steps) > 0 {
		return fmt.Errorf("acq: values and steps are mutually exclusive: %w", nmr.StatusInvalidParam)
	}
	if len(d.Values) == 0 && len(d.Steps) == 0 {
		return fmt.Errorf("acq: either values or steps is required: %w", nmr.StatusInvalidParam)
	}
	return nil
}

// Path returns the raw file path, resolved against the description's
// directory.
func (d *Description) Path() string {
	if filepath.IsAbs(d.RawFile) || d.dir == "" {
		return d.RawFile
	}
	return filepath.Join(d.dir, d.RawFile)
}

func (d *Description) stepWindows(pairs int) []StepWindow {
	if len(d.Steps) == 0 {
		return UniformSteps(pairs, d.Values)
	}
	out := make([]StepWindow, len(d.Steps))
	for i, s := range d.Steps {
		out[i] = StepWindow(s)
	}
	return out
}
