package core

import (
	"fmt"
	"math"
	"math/cmplx"

	jsoniter "github.com/json-iterator/go"
	"github.com/tidwall/pretty"
	"go.uber.org/zap"
)

type Validation int // Validation status of a calibrated parameter value.
type Counts map[string]uint32

var jsonIter = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	NONE Validation = iota // Not validated yet. All the values written by experiments start in this status.
	PASS                   // Validated and usable.
	FAIL                   // Validated and rejected. Excluded from effective-value lookups.
)

func (v Validation) String() string {
	switch v {
	case NONE:
		return "none"
	case PASS:
		return "pass"
	case FAIL:
		return "fail"
	default:
		return "unknown"
	}
}

func ToValidation(s string) (Validation, error) {
	switch s {
	case "none":
		return NONE, nil
	case "pass":
		return PASS, nil
	case "fail":
		return FAIL, nil
	default:
		return 0, NewInvalidStatusError(fmt.Sprintf("validation status %s is not a valid string", s))
	}
}

func (c Counts) String() string {
	st, err := jsonIter.Marshal(c)
	if err != nil {
		zap.L().Error("Failed to marshal core.Counts")
		return ""
	}
	return string(st)
}

type ParamKind int

const (
	FloatKind ParamKind = iota
	ComplexKind
	StringKind
)

// ParamValue is a calibration parameter value. Exactly one of the kinds is
// set; lookups that expect a number fail loudly on a string value.
type ParamValue struct {
	kind ParamKind
	num  float64
	cval complex128
	str  string
}

func FloatValue(v float64) ParamValue {
	return ParamValue{kind: FloatKind, num: v}
}

func ComplexValue(v complex128) ParamValue {
	return ParamValue{kind: ComplexKind, cval: v}
}

func StringValue(v string) ParamValue {
	return ParamValue{kind: StringKind, str: v}
}

func (p ParamValue) Kind() ParamKind {
	return p.kind
}

func (p ParamValue) Float() (float64, error) {
	switch p.kind {
	case FloatKind:
		return p.num, nil
	case ComplexKind:
		if imag(p.cval) == 0 {
			return real(p.cval), nil
		}
		return 0, fmt.Errorf("complex value %v has no float representation", p.cval)
	default:
		return 0, fmt.Errorf("string value %q has no float representation", p.str)
	}
}

func (p ParamValue) Complex() (complex128, error) {
	switch p.kind {
	case FloatKind:
		return complex(p.num, 0), nil
	case ComplexKind:
		return p.cval, nil
	default:
		return 0, fmt.Errorf("string value %q has no complex representation", p.str)
	}
}

func (p ParamValue) Text() (string, error) {
	if p.kind != StringKind {
		return "", fmt.Errorf("value %s is not a string", p.String())
	}
	return p.str, nil
}

// Int truncates a float value. Used for the duration coercion on read.
func (p ParamValue) Int() (int, error) {
	f, err := p.Float()
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

func (p ParamValue) String() string {
	switch p.kind {
	case FloatKind:
		return fmt.Sprintf("%g", p.num)
	case ComplexKind:
		return fmt.Sprintf("%g", p.cval)
	default:
		return p.str
	}
}

// CombineAmpPhase converts an (amp, phase) pair into a single complex
// amplitude amp*exp(i*phase).
func CombineAmpPhase(amp, phase float64) complex128 {
	return complex(amp, 0) * cmplx.Exp(complex(0, phase))
}

type MeasLevel int // Measurement level requested from the execution backend.

const (
	RAW        MeasLevel = iota // Raw time traces. Not supported by the processing chain.
	KERNELED                    // Complex IQ points after the system kernel.
	CLASSIFIED                  // Discriminated bit strings, returned as counts.
)

func (m MeasLevel) String() string {
	switch m {
	case RAW:
		return "raw"
	case KERNELED:
		return "kerneled"
	case CLASSIFIED:
		return "classified"
	default:
		return "unknown"
	}
}

type MeasReturn int // Shot aggregation requested from the execution backend.

const (
	AVERAGE MeasReturn = iota // One averaged record per memory slot.
	SINGLE                    // One record per shot. Required for discrimination.
)

func (m MeasReturn) String() string {
	switch m {
	case AVERAGE:
		return "average"
	case SINGLE:
		return "single"
	default:
		return "unknown"
	}
}

// ProgramResult is the raw outcome of a single program in a batch. Exactly
// one of the fields is filled depending on the requested meas level/return.
type ProgramResult struct {
	Counts    Counts         `json:"counts,omitempty"`
	Memory    [][]complex128 `json:"memory,omitempty"`     // [shot][slot], KERNELED + SINGLE
	AvgMemory []complex128   `json:"avg_memory,omitempty"` // [slot], KERNELED + AVERAGE
}

// RawResult holds the per-program outcomes of one backend submission,
// indexable by program position.
type RawResult struct {
	JobID   string           `json:"job_id"`
	Shots   int              `json:"shots"`
	Results []*ProgramResult `json:"results"`
}

func (r *RawResult) Get(index int) (*ProgramResult, error) {
	if index < 0 || index >= len(r.Results) {
		return nil, fmt.Errorf("program index %d is out of range (batch size %d)", index, len(r.Results))
	}
	return r.Results[index], nil
}

func (r *RawResult) ToString() string {
	st, err := jsonIter.Marshal(r)
	if err != nil {
		zap.L().Error("Failed to marshal core.RawResult")
		return ""
	}
	st = pretty.Pretty(st)
	return string(st)
}

// AlmostEqual reports approximate float equality used across analysis code.
func AlmostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}
