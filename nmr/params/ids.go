package params

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cwbudde/algo-nmr/nmr"
	"github.com/cwbudde/algo-nmr/nmr/product"
)

// ID identifies one processing parameter.
type ID uint8

const (
	FirstChunk ID = iota
	LastChunk
	ProcStart
	ProcEnd
	DFTLength
	FilterWidth
	ScaleFirstPoint
	RemoveOffset
	PhaseCorr0
	Phase0Mode
	PhaseCorr1
	Phase1Ref
	StepFlag

	// NumIDs is the number of declared parameters.
	NumIDs
)

type valueKind uint8

const (
	kindInt valueKind = iota
	kindInt64
	kindFloat
	kindBool
	kindMode0
	kindRef1
	kindFlag
)

type info struct {
	name    string
	perStep bool
	kind    valueKind
	dirties product.Mask
}

var infos = [NumIDs]info{
	FirstChunk:      {name: "FirstChunk", kind: kindInt, dirties: product.ChunkAverage.Bit()},
	LastChunk:       {name: "LastChunk", kind: kindInt, dirties: product.ChunkAverage.Bit()},
	ProcStart:       {name: "ProcStart", kind: kindInt, dirties: product.DFTInput.Bit() | product.EvalChunkAverage.Bit()},
	ProcEnd:         {name: "ProcEnd", kind: kindInt, dirties: product.DFTInput.Bit() | product.EvalChunkAverage.Bit()},
	DFTLength:       {name: "DFTLength", kind: kindInt, dirties: product.DFTInput.Bit() | product.Grid.Bit()},
	FilterWidth:     {name: "FilterWidth", kind: kindFloat, dirties: product.FilterRange.Bit()},
	ScaleFirstPoint: {name: "ScaleFirstPoint", kind: kindBool, dirties: product.DFTInput.Bit()},
	RemoveOffset:    {name: "RemoveOffset", kind: kindBool, dirties: product.PhasePrep.Bit()},
	PhaseCorr0:      {name: "PhaseCorr0", perStep: true, kind: kindInt64, dirties: product.PhasePrep.Bit()},
	Phase0Mode:      {name: "Phase0Mode", perStep: true, kind: kindMode0, dirties: product.PhasePrep.Bit()},
	PhaseCorr1:      {name: "PhaseCorr1", perStep: true, kind: kindInt64, dirties: product.PhasePrep.Bit()},
	Phase1Ref:       {name: "Phase1Ref", perStep: true, kind: kindRef1, dirties: product.PhasePrep.Bit()},
	StepFlag:        {name: "StepFlag", perStep: true, kind: kindFlag},
}

// String returns the parameter name used in parameter files.
func (id ID) String() string {
	if id < NumIDs {
		return infos[id].name
	}
	return "unknown"
}

// Valid reports whether id is declared.
func (id ID) Valid() bool { return id < NumIDs }

// PerStep reports whether the parameter holds one value per step.
func (id ID) PerStep() bool { return id < NumIDs && infos[id].perStep }

// Dirties returns the product kinds invalidated when the parameter changes.
// StepFlag is resolved dynamically and reports an empty mask.
func (id ID) Dirties() product.Mask {
	if id < NumIDs {
		return infos[id].dirties
	}
	return 0
}

// ParseID looks a parameter up by name.
func ParseID(name string) (ID, bool) {
	for id := ID(0); id < NumIDs; id++ {
		if strings.EqualFold(infos[id].name, name) {
			return id, true
		}
	}
	return 0, false
}

// FormatValue renders a parameter value for a parameter file.
func FormatValue(v any) string {
	switch x := v.(type) {
	case bool:
		if x {
			return "1"
		}
		return "0"
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case ZeroOrderMode:
		return strconv.Itoa(int(x))
	case FirstOrderRef:
		return strconv.Itoa(int(x))
	case nmr.StepFlag:
		return strconv.Itoa(int(x))
	default:
		return fmt.Sprint(x)
	}
}

// ParseValue converts parameter-file text into a value accepted by
// [Store.Set] for id.
func ParseValue(id ID, text string) (any, error) {
	if !id.Valid() {
		return nil, fmt.Errorf("params: unknown id %d: %w", id, nmr.StatusInvalidParam)
	}

	text = strings.TrimSpace(text)
	switch infos[id].kind {
	case kindFloat:
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, fmt.Errorf("params: %v=%q: %w", id, text, nmr.StatusInvalidParam)
		}
		return f, nil
	case kindBool:
		switch text {
		case "1", "true", "yes":
			return true, nil
		case "0", "false", "no":
			return false, nil
		}
		return nil, fmt.Errorf("params: %v=%q: %w", id, text, nmr.StatusInvalidParam)
	}

	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("params: %v=%q: %w", id, text, nmr.StatusInvalidParam)
	}

	switch infos[id].kind {
	case kindInt:
		return int(n), nil
	case kindMode0:
		return ZeroOrderMode(n), nil
	case kindRef1:
		return FirstOrderRef(n), nil
	case kindFlag:
		return nmr.StepFlag(n), nil
	default:
		return n, nil
	}
}
