package pulse

import (
	"fmt"
	"sort"
)

// Instruction is a single timed operation on one channel.
type Instruction interface {
	Channel() Channel
	Duration() int
	Parameters() []*Parameter
	bind(bindings map[string]complex128) Instruction
	String() string
}

type Play struct {
	Wf *Waveform
	Ch Channel
}

func (p *Play) Channel() Channel          { return p.Ch }
func (p *Play) Duration() int             { return p.Wf.Duration }
func (p *Play) Parameters() []*Parameter  { return p.Wf.Parameters() }
func (p *Play) bind(b map[string]complex128) Instruction {
	return &Play{Wf: p.Wf.bind(b), Ch: p.Ch}
}
func (p *Play) String() string {
	return fmt.Sprintf("play(%s, %s, %s)", p.Wf.Name, p.Wf.Shape, p.Ch)
}

type ShiftPhase struct {
	Phase Arg
	Ch    Channel
}

func (s *ShiftPhase) Channel() Channel { return s.Ch }
func (s *ShiftPhase) Duration() int    { return 0 }
func (s *ShiftPhase) Parameters() []*Parameter {
	if p := s.Phase.Param(); p != nil {
		return []*Parameter{p}
	}
	return nil
}
func (s *ShiftPhase) bind(b map[string]complex128) Instruction {
	return &ShiftPhase{Phase: s.Phase.bind(b), Ch: s.Ch}
}
func (s *ShiftPhase) String() string {
	return fmt.Sprintf("shift_phase(%s, %s)", s.Phase, s.Ch)
}

type ShiftFrequency struct {
	Freq Arg
	Ch   Channel
}

func (s *ShiftFrequency) Channel() Channel { return s.Ch }
func (s *ShiftFrequency) Duration() int    { return 0 }
func (s *ShiftFrequency) Parameters() []*Parameter {
	if p := s.Freq.Param(); p != nil {
		return []*Parameter{p}
	}
	return nil
}
func (s *ShiftFrequency) bind(b map[string]complex128) Instruction {
	return &ShiftFrequency{Freq: s.Freq.bind(b), Ch: s.Ch}
}
func (s *ShiftFrequency) String() string {
	return fmt.Sprintf("shift_frequency(%s, %s)", s.Freq, s.Ch)
}

type Delay struct {
	Dur int
	Ch  Channel
}

func (d *Delay) Channel() Channel                          { return d.Ch }
func (d *Delay) Duration() int                             { return d.Dur }
func (d *Delay) Parameters() []*Parameter                  { return nil }
func (d *Delay) bind(map[string]complex128) Instruction    { return d }
func (d *Delay) String() string {
	return fmt.Sprintf("delay(%d, %s)", d.Dur, d.Ch)
}

type timedInstruction struct {
	T0   int
	Inst Instruction
}

// Schedule is a list of instructions with explicit start times.
type Schedule struct {
	Name  string
	insts []timedInstruction
}

func NewSchedule(name string) *Schedule {
	return &Schedule{Name: name}
}

// Play appends the waveform at the current stop time of the channel.
func (s *Schedule) Play(wf *Waveform, ch Channel) *Schedule {
	s.insts = append(s.insts, timedInstruction{T0: s.ChannelDuration(ch), Inst: &Play{Wf: wf, Ch: ch}})
	return s
}

func (s *Schedule) ShiftPhase(phase Arg, ch Channel) *Schedule {
	s.insts = append(s.insts, timedInstruction{T0: s.ChannelDuration(ch), Inst: &ShiftPhase{Phase: phase, Ch: ch}})
	return s
}

func (s *Schedule) ShiftFrequency(freq Arg, ch Channel) *Schedule {
	s.insts = append(s.insts, timedInstruction{T0: s.ChannelDuration(ch), Inst: &ShiftFrequency{Freq: freq, Ch: ch}})
	return s
}

func (s *Schedule) Delay(dur int, ch Channel) *Schedule {
	s.insts = append(s.insts, timedInstruction{T0: s.ChannelDuration(ch), Inst: &Delay{Dur: dur, Ch: ch}})
	return s
}

// InsertAt places an instruction at an explicit start time.
func (s *Schedule) InsertAt(t0 int, inst Instruction) error {
	if t0 < 0 {
		return fmt.Errorf("start time %d is negative", t0)
	}
	s.insts = append(s.insts, timedInstruction{T0: t0, Inst: inst})
	return nil
}

// Duration returns the stop time of the last instruction.
func (s *Schedule) Duration() int {
	max := 0
	for _, ti := range s.insts {
		if stop := ti.T0 + ti.Inst.Duration(); stop > max {
			max = stop
		}
	}
	return max
}

// ChannelDuration returns the stop time of the last instruction on a channel.
func (s *Schedule) ChannelDuration(ch Channel) int {
	max := 0
	for _, ti := range s.insts {
		if ti.Inst.Channel() != ch {
			continue
		}
		if stop := ti.T0 + ti.Inst.Duration(); stop > max {
			max = stop
		}
	}
	return max
}

func (s *Schedule) Empty() bool {
	return len(s.insts) == 0
}

func (s *Schedule) Instructions() []Instruction {
	sorted := make([]timedInstruction, len(s.insts))
	copy(sorted, s.insts)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].T0 < sorted[j].T0 })
	out := make([]Instruction, len(sorted))
	for i, ti := range sorted {
		out[i] = ti.Inst
	}
	return out
}

// StartTime returns the start time of the first instruction on a channel
// along with whether the channel appears at all.
func (s *Schedule) StartTime(ch Channel) (int, bool) {
	min, found := 0, false
	for _, ti := range s.insts {
		if ti.Inst.Channel() != ch {
			continue
		}
		if !found || ti.T0 < min {
			min = ti.T0
			found = true
		}
	}
	return min, found
}

func (s *Schedule) Channels() []Channel {
	seen := make(map[Channel]bool)
	var chans []Channel
	for _, ti := range s.insts {
		ch := ti.Inst.Channel()
		if !seen[ch] {
			seen[ch] = true
			chans = append(chans, ch)
		}
	}
	sort.Slice(chans, func(i, j int) bool {
		if chans[i].Kind != chans[j].Kind {
			return chans[i].Kind < chans[j].Kind
		}
		return chans[i].Index < chans[j].Index
	})
	return chans
}

// Qubits lists the qubit indices of the qubit-mapped channels.
func (s *Schedule) Qubits() []int {
	seen := make(map[int]bool)
	var qubits []int
	for _, ch := range s.Channels() {
		if !ch.QubitMapped() || seen[ch.Index] {
			continue
		}
		seen[ch.Index] = true
		qubits = append(qubits, ch.Index)
	}
	sort.Ints(qubits)
	return qubits
}

// Parameters lists the unbound parameters, deduplicated by name and sorted.
func (s *Schedule) Parameters() []*Parameter {
	seen := make(map[string]*Parameter)
	for _, ti := range s.insts {
		for _, p := range ti.Inst.Parameters() {
			if _, ok := seen[p.Name]; !ok {
				seen[p.Name] = p
			}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]*Parameter, len(names))
	for i, name := range names {
		out[i] = seen[name]
	}
	return out
}

// AssignParameters returns a copy with every parameter named in bindings
// replaced by its value. Parameters not named stay symbolic.
func (s *Schedule) AssignParameters(bindings map[string]complex128) *Schedule {
	out := &Schedule{Name: s.Name, insts: make([]timedInstruction, len(s.insts))}
	for i, ti := range s.insts {
		out.insts[i] = timedInstruction{T0: ti.T0, Inst: ti.Inst.bind(bindings)}
	}
	return out
}

func (s *Schedule) shifted(dt int) *Schedule {
	out := &Schedule{Name: s.Name, insts: make([]timedInstruction, len(s.insts))}
	for i, ti := range s.insts {
		out.insts[i] = timedInstruction{T0: ti.T0 + dt, Inst: ti.Inst}
	}
	return out
}

// Merge overlays another schedule at an absolute offset.
func (s *Schedule) Merge(other *Schedule, offset int) error {
	if offset < 0 {
		return fmt.Errorf("offset %d is negative", offset)
	}
	for _, ti := range other.insts {
		s.insts = append(s.insts, timedInstruction{T0: ti.T0 + offset, Inst: ti.Inst})
	}
	return nil
}

// Append places another schedule after everything already scheduled.
func (s *Schedule) Append(other *Schedule) {
	_ = s.Merge(other, s.Duration())
}

func (s *Schedule) String() string {
	out := fmt.Sprintf("schedule %s (duration %d):", s.Name, s.Duration())
	sorted := make([]timedInstruction, len(s.insts))
	copy(sorted, s.insts)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].T0 < sorted[j].T0 })
	for _, ti := range sorted {
		out += fmt.Sprintf("\n  t=%d %s", ti.T0, ti.Inst)
	}
	return out
}

// ProgramName makes a schedule directly runnable on a backend.
func (s *Schedule) ProgramName() string {
	return s.Name
}

func (s *Schedule) ProgramQubits() []int {
	return s.Qubits()
}
