package pulse

import (
	"fmt"
	"sort"
)

// Parametric waveform shapes understood by the device. Durations are sample
// counts and never symbolic.
const (
	ShapeGaus     = "gaus"
	ShapeGausSq   = "gaus_sq"
	ShapeDrag     = "drag"
	ShapeConstant = "constant"
)

// shapeArgs lists the operands each shape requires beyond duration.
var shapeArgs = map[string][]string{
	ShapeGaus:     {"amp", "sigma"},
	ShapeGausSq:   {"amp", "sigma", "width"},
	ShapeDrag:     {"amp", "sigma", "beta"},
	ShapeConstant: {"amp"},
}

func KnownShape(shape string) bool {
	_, ok := shapeArgs[shape]
	return ok
}

// ShapeArgNames returns the operand names of a shape in a stable order.
func ShapeArgNames(shape string) ([]string, error) {
	args, ok := shapeArgs[shape]
	if !ok {
		return nil, fmt.Errorf("pulse shape %s is unknown", shape)
	}
	out := make([]string, len(args))
	copy(out, args)
	return out, nil
}

// Waveform is a parametric envelope played on one channel.
type Waveform struct {
	Name     string
	Shape    string
	Duration int
	Args     map[string]Arg
}

func NewWaveform(name, shape string, duration int, args map[string]Arg) (*Waveform, error) {
	required, ok := shapeArgs[shape]
	if !ok {
		return nil, fmt.Errorf("pulse shape %s is unknown", shape)
	}
	if duration < 0 {
		return nil, fmt.Errorf("pulse %s has negative duration %d", name, duration)
	}
	for _, arg := range required {
		if _, ok := args[arg]; !ok {
			return nil, fmt.Errorf("pulse %s of shape %s is missing operand %s", name, shape, arg)
		}
	}
	for arg := range args {
		if !contains(required, arg) {
			return nil, fmt.Errorf("pulse %s of shape %s does not take operand %s", name, shape, arg)
		}
	}
	copied := make(map[string]Arg, len(args))
	for k, v := range args {
		copied[k] = v
	}
	return &Waveform{Name: name, Shape: shape, Duration: duration, Args: copied}, nil
}

func (w *Waveform) Parameters() []*Parameter {
	keys := make([]string, 0, len(w.Args))
	for k := range w.Args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var params []*Parameter
	for _, k := range keys {
		if p := w.Args[k].Param(); p != nil {
			params = append(params, p)
		}
	}
	return params
}

func (w *Waveform) bind(bindings map[string]complex128) *Waveform {
	args := make(map[string]Arg, len(w.Args))
	for k, v := range w.Args {
		args[k] = v.bind(bindings)
	}
	return &Waveform{Name: w.Name, Shape: w.Shape, Duration: w.Duration, Args: args}
}

func contains(list []string, s string) bool {
	for _, c := range list {
		if c == s {
			return true
		}
	}
	return false
}
