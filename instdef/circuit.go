package instdef

import (
	"fmt"

	"github.com/oqtopus-team/calibration-engine/common"
	"github.com/oqtopus-team/calibration-engine/compiler"
	"github.com/oqtopus-team/calibration-engine/core"
	"github.com/oqtopus-team/calibration-engine/pulse"
)

// Gate is a named gate-level instruction applied to a qubit tuple.
type Gate struct {
	Name   string
	Qubits []int
}

type CircuitInstKind int

const (
	GateInst CircuitInstKind = iota
	BarrierInst
	MeasureInst
)

// CircuitInst is one element of a gate-level circuit.
type CircuitInst struct {
	Kind  CircuitInstKind
	Gate  Gate // GateInst
	Qubit int  // MeasureInst
	Clbit int  // MeasureInst
}

// Circuit is a gate-level program carrying the pulse calibrations of its
// custom gates.
type Circuit struct {
	Name         string
	Qubits       []int
	Insts        []CircuitInst
	Calibrations map[string]*pulse.Schedule
}

func NewCircuit(name string, qubits []int) *Circuit {
	return &Circuit{
		Name:         name,
		Qubits:       append([]int(nil), qubits...),
		Calibrations: make(map[string]*pulse.Schedule),
	}
}

func (c *Circuit) AppendGate(g Gate) {
	c.Insts = append(c.Insts, CircuitInst{Kind: GateInst, Gate: g})
}

func (c *Circuit) Barrier() {
	c.Insts = append(c.Insts, CircuitInst{Kind: BarrierInst})
}

func (c *Circuit) Measure(qubit, clbit int) {
	c.Insts = append(c.Insts, CircuitInst{Kind: MeasureInst, Qubit: qubit, Clbit: clbit})
}

// AddCalibration attaches the schedule implementing a gate.
func (c *Circuit) AddCalibration(g Gate, sched *pulse.Schedule) {
	c.Calibrations[calKey(g)] = sched
}

func (c *Circuit) Calibration(g Gate) (*pulse.Schedule, bool) {
	sched, ok := c.Calibrations[calKey(g)]
	return sched, ok
}

// RegisterMap returns the qubit to classical bit mapping of the measure
// instructions.
func (c *Circuit) RegisterMap() map[int]int {
	out := make(map[int]int)
	for _, inst := range c.Insts {
		if inst.Kind == MeasureInst {
			out[inst.Qubit] = inst.Clbit
		}
	}
	return out
}

// Parameters lists the unbound parameters across all calibrations.
func (c *Circuit) Parameters() []*pulse.Parameter {
	seen := make(map[string]bool)
	var out []*pulse.Parameter
	for _, sched := range c.Calibrations {
		for _, p := range sched.Parameters() {
			if !seen[p.Name] {
				seen[p.Name] = true
				out = append(out, p)
			}
		}
	}
	return out
}

// AssignParameters binds parameters in every calibration, returning a copy.
func (c *Circuit) AssignParameters(bindings map[string]complex128) *Circuit {
	out := NewCircuit(c.Name, c.Qubits)
	out.Insts = append([]CircuitInst(nil), c.Insts...)
	for k, sched := range c.Calibrations {
		out.Calibrations[k] = sched.AssignParameters(bindings)
	}
	return out
}

func (c *Circuit) ProgramName() string {
	return c.Name
}

func (c *Circuit) ProgramQubits() []int {
	return append([]int(nil), c.Qubits...)
}

func calKey(g Gate) string {
	return fmt.Sprintf("%s:%s", g.Name, common.JoinInts(g.Qubits, "_"))
}

// GetCircuit wraps the schedule of an instruction into a one-gate circuit
// with the schedule attached as the gate calibration.
func (r *Registry) GetCircuit(gate string, qubits []int, free []string) (*Circuit, error) {
	return r.GetCircuitInGroup(gate, qubits, free, "")
}

// GetCircuitInGroup is GetCircuit binding values from a named calibration
// group.
func (r *Registry) GetCircuitInGroup(gate string, qubits []int, free []string, group string) (*Circuit, error) {
	sched, err := r.GetScheduleInGroup(gate, qubits, free, group)
	if err != nil {
		return nil, err
	}
	circ := NewCircuit(gate, qubits)
	g := Gate{Name: gate, Qubits: append([]int(nil), qubits...)}
	circ.AppendGate(g)
	circ.AddCalibration(g, sched)
	return circ, nil
}

// checkShapes rejects definitions whose pulse tokens name unknown shapes.
func checkShapes(block *compiler.ScheduleBlock) error {
	for _, node := range block.Children {
		switch n := node.(type) {
		case *compiler.ScheduleBlock:
			if err := checkShapes(n); err != nil {
				return err
			}
		case *compiler.PulseNode:
			if !pulse.KnownShape(n.Shape) {
				return core.NewUnknownShapeError(
					fmt.Sprintf("pulse shape %s is unknown", n.Shape))
			}
		}
	}
	return nil
}
