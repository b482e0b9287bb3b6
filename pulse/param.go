package pulse

import "fmt"

// Parameter is a symbolic placeholder inside a pulse program. Two parameters
// with the same name are interchangeable for binding purposes.
type Parameter struct {
	Name string
}

func NewParameter(name string) *Parameter {
	return &Parameter{Name: name}
}

// Arg is one operand of a waveform or frame instruction. It is either a
// concrete complex value or a reference to an unbound Parameter.
type Arg struct {
	param *Parameter
	cval  complex128
}

func Const(v complex128) Arg {
	return Arg{cval: v}
}

func ConstFloat(v float64) Arg {
	return Arg{cval: complex(v, 0)}
}

func Ref(p *Parameter) Arg {
	return Arg{param: p}
}

func (a Arg) Free() bool {
	return a.param != nil
}

func (a Arg) Param() *Parameter {
	return a.param
}

func (a Arg) Value() (complex128, error) {
	if a.param != nil {
		return 0, fmt.Errorf("parameter %s is unbound", a.param.Name)
	}
	return a.cval, nil
}

func (a Arg) String() string {
	if a.param != nil {
		return a.param.Name
	}
	if imag(a.cval) == 0 {
		return fmt.Sprintf("%g", real(a.cval))
	}
	return fmt.Sprintf("%g", a.cval)
}

// bind returns the bound form of the arg when its parameter name is in the
// bindings, and the arg unchanged otherwise.
func (a Arg) bind(bindings map[string]complex128) Arg {
	if a.param == nil {
		return a
	}
	if v, ok := bindings[a.param.Name]; ok {
		return Arg{cval: v}
	}
	return a
}
