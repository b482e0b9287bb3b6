package builder

import (
	"fmt"

	"github.com/oqtopus-team/calibration-engine/core"
	"github.com/oqtopus-team/calibration-engine/instdef"
	"github.com/oqtopus-team/calibration-engine/pulse"
)

// Builder assembles a calibration circuit gate by gate. Errors stick to the
// builder instead of aborting the assembly, so Finalize always appends the
// measurement tail and reports the first failure afterwards.
type Builder struct {
	name      string
	qubits    []int
	reg       *instdef.Registry
	basis     []string
	circ      *instdef.Circuit
	err       error
	finalized bool
}

// New starts a circuit on the given qubits. measBasis optionally names one
// basis-change instruction per qubit, applied before measurement; an empty
// entry measures in the computational basis.
func New(name string, qubits []int, reg *instdef.Registry, measBasis []string) (*Builder, error) {
	if len(qubits) == 0 {
		return nil, core.NewConfigError(fmt.Sprintf("circuit %s has no qubits", name))
	}
	if len(measBasis) != 0 && len(measBasis) != len(qubits) {
		return nil, core.NewConfigError(
			fmt.Sprintf("circuit %s has %d qubits but %d measurement basis entries",
				name, len(qubits), len(measBasis)))
	}
	return &Builder{
		name:   name,
		qubits: append([]int(nil), qubits...),
		reg:    reg,
		basis:  append([]string(nil), measBasis...),
		circ:   instdef.NewCircuit(name, qubits),
	}, nil
}

// AtomicGate appends a registered instruction with its resolved calibration.
// Parameters qualified in free stay symbolic in the attached schedule.
func (b *Builder) AtomicGate(gate string, qubits []int, free []string) *Builder {
	if b.err != nil || b.finalized {
		return b
	}
	sched, err := b.reg.GetSchedule(gate, qubits, free)
	if err != nil {
		b.err = err
		return b
	}
	b.appendCalibrated(gate, qubits, sched)
	return b
}

// Err returns the first failure of the assembly so far.
func (b *Builder) Err() error {
	return b.err
}

// Finalize appends the barrier, the basis-change gates and the measurements,
// then returns the finished circuit. The tail is appended even when an
// earlier gate failed, and the first failure wins.
func (b *Builder) Finalize() (*instdef.Circuit, error) {
	if b.finalized {
		return nil, core.NewConfigError(fmt.Sprintf("circuit %s is already finalized", b.name))
	}
	b.finalized = true

	b.circ.Barrier()
	for i, q := range b.qubits {
		if len(b.basis) == 0 || b.basis[i] == "" {
			continue
		}
		sched, err := b.reg.GetSchedule(b.basis[i], []int{q}, nil)
		if err != nil {
			if b.err == nil {
				b.err = err
			}
			continue
		}
		b.appendCalibrated(b.basis[i], []int{q}, sched)
	}
	for i, q := range b.qubits {
		b.circ.Measure(q, i)
	}

	if b.err != nil {
		return nil, b.err
	}
	return b.circ, nil
}

func (b *Builder) appendCalibrated(gate string, qubits []int, sched *pulse.Schedule) {
	g := instdef.Gate{Name: gate, Qubits: append([]int(nil), qubits...)}
	b.circ.AppendGate(g)
	b.circ.AddCalibration(g, sched)
}
