package compiler

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/oqtopus-team/calibration-engine/core"
	"github.com/oqtopus-team/calibration-engine/paramstore"
	"github.com/oqtopus-team/calibration-engine/pulse"
	"github.com/oqtopus-team/calibration-engine/scope"
)

// ReferenceResolver resolves a reference token to the schedule of another
// registered instruction. The instruction registry implements this.
type ReferenceResolver interface {
	ResolveReference(name string, qubits []int, free []string) (*pulse.Schedule, error)
}

// Compiler turns pulse program sources into schedules, binding calibrated
// parameter values from the store by scope and calibration group.
type Compiler struct {
	store  *paramstore.Store
	scopes *scope.Resolver
	refs   ReferenceResolver
	group  string
}

func New(store *paramstore.Store, scopes *scope.Resolver) *Compiler {
	return &Compiler{store: store, scopes: scopes}
}

// SetReferenceResolver wires the registry used for reference tokens. Set
// after construction to break the registry/compiler dependency loop.
func (c *Compiler) SetReferenceResolver(r ReferenceResolver) {
	c.refs = r
}

// SetGroup selects the calibration group values are bound from. The empty
// group is the default group.
func (c *Compiler) SetGroup(group string) {
	c.group = group
}

// Compile builds the schedule of one pulse program. Parameters named in free
// (qualified as "pulse.channel.operand") stay symbolic; everything else must
// be calibrated in the scope of the owning gate.
func (c *Compiler) Compile(name, source, gate string, free []string) (*pulse.Schedule, error) {
	tokens, err := Tokenize(source)
	if err != nil {
		return nil, err
	}
	root, err := Parse(tokens)
	if err != nil {
		return nil, err
	}
	sched, err := c.visitBlock(name, root, gate, free)
	if err != nil {
		zap.L().Error(fmt.Sprintf("failed to compile program %s/reason:%s", name, err))
		return nil, err
	}
	return sched, nil
}

func (c *Compiler) visitBlock(name string, block *ScheduleBlock, gate string, free []string) (*pulse.Schedule, error) {
	children := make([]*pulse.Schedule, 0, len(block.Children))
	for i, node := range block.Children {
		var child *pulse.Schedule
		var err error
		switch n := node.(type) {
		case *ScheduleBlock:
			child, err = c.visitBlock(fmt.Sprintf("%s.%d", name, i), n, gate, free)
		case *PulseNode:
			child, err = c.visitPulse(n, gate, free)
		case *RefNode:
			child, err = c.visitReference(n, free)
		case *FrameNode:
			err = core.NewNotSupportedError(
				fmt.Sprintf("frame instruction $%s is not implemented", n.Name))
		default:
			err = core.NewParseError(fmt.Sprintf("unknown node %T", node))
		}
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	return pulse.Join(name, block.Alignment, children...)
}

func (c *Compiler) visitPulse(n *PulseNode, gate string, free []string) (*pulse.Schedule, error) {
	if !pulse.KnownShape(n.Shape) {
		return nil, core.NewUnknownShapeError(fmt.Sprintf("pulse shape %s is unknown", n.Shape))
	}
	qubits, err := c.scopes.ChannelQubits(n.Channel)
	if err != nil {
		return nil, err
	}
	scopeID, err := c.scopes.Resolve(gate, qubits)
	if err != nil {
		return nil, err
	}

	for _, f := range free {
		if f == qualifyFree(n.Name, n.Channel, paramstore.KeyDuration) ||
			f == qualifyFree(n.Name, n.Channel, "width") {
			return nil, core.NewNotSupportedError(
				fmt.Sprintf("parameter %s cannot be left free", f))
		}
	}

	duration, err := c.intParam(scopeID, n.Name, paramstore.KeyDuration)
	if err != nil {
		return nil, err
	}

	argNames, err := pulse.ShapeArgNames(n.Shape)
	if err != nil {
		return nil, core.NewUnknownShapeError(err.Error())
	}
	args := make(map[string]pulse.Arg, len(argNames))
	for _, argName := range argNames {
		if containsString(free, qualifyFree(n.Name, n.Channel, argName)) {
			args[argName] = pulse.Ref(pulse.NewParameter(qualifyFree(n.Name, n.Channel, argName)))
			continue
		}
		var arg pulse.Arg
		switch argName {
		case "amp":
			v, err := c.ampParam(scopeID, n.Name)
			if err != nil {
				return nil, err
			}
			arg = pulse.Const(v)
		case "width":
			w, err := c.intParam(scopeID, n.Name, "width")
			if err != nil {
				return nil, err
			}
			arg = pulse.ConstFloat(float64(w))
		default:
			v, err := c.store.GetInGroup(scopeID, qualify(n.Name, argName), c.group)
			if err != nil {
				return nil, err
			}
			cv, err := v.Complex()
			if err != nil {
				return nil, err
			}
			arg = pulse.Const(cv)
		}
		args[argName] = arg
	}

	for _, f := range free {
		pulseName, channel, argName, ok := splitFree(f)
		if !ok || pulseName != n.Name || channel != n.Channel.String() {
			continue
		}
		if _, taken := args[argName]; !taken {
			return nil, core.NewNotSupportedError(
				fmt.Sprintf("parameter %s is not an operand of pulse %s", f, n.Name))
		}
	}

	wf, err := pulse.NewWaveform(n.Name, n.Shape, duration, args)
	if err != nil {
		return nil, err
	}
	sched := pulse.NewSchedule(n.Name)
	sched.Play(wf, n.Channel)
	return sched, nil
}

func (c *Compiler) visitReference(n *RefNode, free []string) (*pulse.Schedule, error) {
	if c.refs == nil {
		return nil, core.NewConfigError(
			fmt.Sprintf("reference %%%s cannot be resolved without a registry", n.Name))
	}
	return c.refs.ResolveReference(n.Name, n.Qubits, free)
}

// ampParam combines the stored amp and phase of a pulse into one complex
// amplitude. A missing phase means no rotation.
func (c *Compiler) ampParam(scopeID, pulseName string) (complex128, error) {
	ampVal, err := c.store.GetInGroup(scopeID, qualify(pulseName, "amp"), c.group)
	if err != nil {
		return 0, err
	}
	phaseVal, err := c.store.GetInGroup(scopeID, qualify(pulseName, "phase"), c.group)
	if err != nil {
		if core.IsKind(err, core.ErrScope) {
			return ampVal.Complex()
		}
		return 0, err
	}
	amp, err := ampVal.Float()
	if err != nil {
		return 0, err
	}
	phase, err := phaseVal.Float()
	if err != nil {
		return 0, err
	}
	return core.CombineAmpPhase(amp, phase), nil
}

func (c *Compiler) intParam(scopeID, pulseName, key string) (int, error) {
	v, err := c.store.GetInGroup(scopeID, qualify(pulseName, key), c.group)
	if err != nil {
		return 0, err
	}
	return v.Int()
}

// qualify builds the store key of a pulse operand. Stored parameter names do
// not carry the channel; free-parameter names do, so two same-named pulses on
// different channels can be freed independently.
func qualify(pulseName, argName string) string {
	return fmt.Sprintf("%s.%s", pulseName, argName)
}

func qualifyFree(pulseName string, ch pulse.Channel, argName string) string {
	return fmt.Sprintf("%s.%s.%s", pulseName, ch, argName)
}

func splitFree(name string) (string, string, string, bool) {
	parts := strings.Split(name, ".")
	if len(parts) != 3 {
		return "", "", "", false
	}
	return parts[0], parts[1], parts[2], true
}

func containsString(list []string, s string) bool {
	for _, c := range list {
		if c == s {
			return true
		}
	}
	return false
}
