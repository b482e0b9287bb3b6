package workflow

import (
	"fmt"
	"strings"

	"github.com/oqtopus-team/calibration-engine/core"
)

type NodeKind int

const (
	KindRoot NodeKind = iota
	KindKernel
	KindDiscriminator
	KindIQData
	KindCounts
)

func (k NodeKind) String() string {
	switch k {
	case KindRoot:
		return "root"
	case KindKernel:
		return "kernel"
	case KindDiscriminator:
		return "discriminator"
	case KindIQData:
		return "iq_data"
	case KindCounts:
		return "counts"
	default:
		return "unknown"
	}
}

// Frame is the data flowing through a chain for one program, already
// marginalized onto the measured classical bits.
type Frame struct {
	Counts core.Counts
	IQ     [][]complex128 // [shot][slot]
	AvgIQ  []complex128   // [slot]
	Shots  int
	Bits   int     // width of the marginal register
	Y      float64 // scalar outcome, set by a terminal node
	Done   bool
}

// Node is one processing step. Its kind constrains where in a chain it may
// appear.
type Node interface {
	Kind() NodeKind
	Name() string
	Process(f *Frame) error
}

// SystemKernel marks that the hardware integration kernel applies. The data
// already arrives kerneled, so processing is a passthrough.
type SystemKernel struct{}

func (SystemKernel) Kind() NodeKind { return KindKernel }
func (SystemKernel) Name() string   { return "system_kernel" }
func (SystemKernel) Process(f *Frame) error {
	return nil
}

// SystemDiscriminator turns single-shot IQ points into counts. Hardware
// discrimination leaves counts in place; otherwise a real-axis threshold
// classifies each slot.
type SystemDiscriminator struct {
	Threshold float64
}

func (SystemDiscriminator) Kind() NodeKind { return KindDiscriminator }
func (SystemDiscriminator) Name() string   { return "system_discriminator" }
func (d SystemDiscriminator) Process(f *Frame) error {
	if f.Counts != nil {
		return nil
	}
	if f.IQ == nil {
		return core.NewChainError("discriminator needs single-shot memory or counts")
	}
	counts := make(core.Counts)
	for _, shot := range f.IQ {
		var b strings.Builder
		for i := len(shot) - 1; i >= 0; i-- {
			if real(shot[i]) > d.Threshold {
				b.WriteByte('1')
			} else {
				b.WriteByte('0')
			}
		}
		counts[b.String()]++
	}
	f.Counts = counts
	f.IQ = nil
	return nil
}

// RealNumbers projects the averaged IQ point of the first marginal slot onto
// the real axis.
type RealNumbers struct {
	Scale float64
}

func (RealNumbers) Kind() NodeKind { return KindIQData }
func (RealNumbers) Name() string   { return "real_numbers" }
func (n RealNumbers) Process(f *Frame) error {
	v, err := avgPoint(f)
	if err != nil {
		return err
	}
	f.Y = real(v) * scaleOrOne(n.Scale)
	f.Done = true
	return nil
}

// ImagNumbers projects the averaged IQ point of the first marginal slot onto
// the imaginary axis.
type ImagNumbers struct {
	Scale float64
}

func (ImagNumbers) Kind() NodeKind { return KindIQData }
func (ImagNumbers) Name() string   { return "imag_numbers" }
func (n ImagNumbers) Process(f *Frame) error {
	v, err := avgPoint(f)
	if err != nil {
		return err
	}
	f.Y = imag(v) * scaleOrOne(n.Scale)
	f.Done = true
	return nil
}

// Population reduces counts to the excited-state fraction of the marginal
// register.
type Population struct{}

func (Population) Kind() NodeKind { return KindCounts }
func (Population) Name() string   { return "population" }
func (Population) Process(f *Frame) error {
	if f.Counts == nil {
		return core.NewChainError("population needs counts")
	}
	if f.Bits <= 0 {
		return core.NewChainError("population needs a non-empty register")
	}
	var total, excited uint64
	for key, count := range f.Counts {
		total += uint64(count)
		excited += uint64(count) * uint64(strings.Count(key, "1"))
	}
	if total == 0 {
		return core.NewChainError("population needs at least one shot")
	}
	f.Y = float64(excited) / (float64(total) * float64(f.Bits))
	f.Done = true
	return nil
}

func avgPoint(f *Frame) (complex128, error) {
	if len(f.AvgIQ) > 0 {
		return f.AvgIQ[0], nil
	}
	if len(f.IQ) > 0 {
		var sum complex128
		for _, shot := range f.IQ {
			if len(shot) == 0 {
				return 0, core.NewChainError("memory record has no slots")
			}
			sum += shot[0]
		}
		return sum / complex(float64(len(f.IQ)), 0), nil
	}
	return 0, core.NewChainError("iq projection needs kerneled memory")
}

func scaleOrOne(s float64) float64 {
	if s == 0 {
		return 1
	}
	return s
}

func kindName(n Node) string {
	return fmt.Sprintf("%s(%s)", n.Name(), n.Kind())
}
