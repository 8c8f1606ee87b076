package acq

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/cwbudde/algo-nmr/nmr"
)

// RawFileLoader loads an acquisition from a raw interleaved int32 file
// described by a [Description].
type RawFileLoader struct {
	Desc *Description
}

// NewRawFileLoader returns a loader for d.
func NewRawFileLoader(d *Description) *RawFileLoader {
	return &RawFileLoader{Desc: d}
}

// Load reads and decodes the raw file.
func (l *RawFileLoader) Load() (a *Acquisition, err error) {
	if l.Desc == nil {
		return nil, fmt.Errorf("acq: no description: %w", nmr.StatusMissingCollaborator)
	}

	f, err := os.Open(l.Desc.Path())
	if err != nil {
		return nil, fmt.Errorf("acq: %w: %w", nmr.StatusIOOpen, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			a, err = nil, fmt.Errorf("acq: %w: %w", nmr.StatusIOClose, cerr)
		}
	}()

	return Decode(f, l.Desc)
}

// Decode decodes interleaved int32 sample pairs from r.
func Decode(r io.Reader, d *Description) (*Acquisition, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("acq: read: %w: %w", nmr.StatusIO, err)
	}

	frame := 4 * d.Stride
	if len(data)%frame != 0 {
		return nil, fmt.Errorf("acq: %d bytes is not a multiple of the %d byte sample pair: %w",
			len(data), frame, nmr.StatusIOWrongSize)
	}

	var order binary.ByteOrder = binary.LittleEndian
	if d.ByteOrder == "big" {
		order = binary.BigEndian
	}

	pairs := len(data) / frame
	raw := make([]int32, 2*pairs)
	for i := range pairs {
		b := data[i*frame:]
		raw[2*i] = int32(order.Uint32(b))
		raw[2*i+1] = int32(order.Uint32(b[4:]))
	}

	a := &Acquisition{
		Raw:              raw,
		Steps:            d.stepWindows(pairs),
		SampleRate:       d.SampleRate,
		FilterSkip:       d.FilterSkip,
		TimeOffset:       d.TimeOffset,
		FrequencyStepped: d.FrequencyStepped,
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}
