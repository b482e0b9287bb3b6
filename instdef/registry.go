package instdef

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/oqtopus-team/calibration-engine/common"
	"github.com/oqtopus-team/calibration-engine/compiler"
	"github.com/oqtopus-team/calibration-engine/core"
	"github.com/oqtopus-team/calibration-engine/paramstore"
	"github.com/oqtopus-team/calibration-engine/pulse"
	"github.com/oqtopus-team/calibration-engine/scope"
)

// Reference names another registered instruction on a qubit tuple.
type Reference struct {
	Name   string
	Qubits []int
}

func (r Reference) String() string {
	return fmt.Sprintf("%s(%s)", r.Name, common.JoinInts(r.Qubits, ","))
}

// Template is the definition of one instruction: either a leaf pulse program
// source or a composite of references grouped by barriers. Exactly one of
// Source and Groups is set.
type Template struct {
	Source string
	Groups [][]Reference
}

func (t Template) Composite() bool {
	return t.Groups != nil
}

type instKey struct {
	gate   string
	qubits string
}

func newInstKey(gate string, qubits []int) instKey {
	return instKey{gate: gate, qubits: common.JoinInts(qubits, "_")}
}

// Registry holds the instruction definitions of a device and resolves them
// to schedules with calibrated parameters bound from the store.
type Registry struct {
	mu     sync.RWMutex
	defs   map[instKey]Template
	store  *paramstore.Store
	scopes *scope.Resolver
}

func NewRegistry(store *paramstore.Store, scopes *scope.Resolver) *Registry {
	return &Registry{
		defs:   make(map[instKey]Template),
		store:  store,
		scopes: scopes,
	}
}

// DefinePulse registers a leaf instruction in the default calibration group
// and writes the given parameter values into the store under the resolved
// scope. Missing values may arrive later.
func (r *Registry) DefinePulse(gate string, qubits []int, source string, params map[string]float64) error {
	return r.DefinePulseInGroup(gate, qubits, source, params, "")
}

// DefinePulseInGroup is DefinePulse for a named calibration group. The
// source must parse and all its pulse shapes must be known.
func (r *Registry) DefinePulseInGroup(gate string, qubits []int, source string, params map[string]float64, group string) error {
	tokens, err := compiler.Tokenize(source)
	if err != nil {
		return err
	}
	root, err := compiler.Parse(tokens)
	if err != nil {
		return err
	}
	if err := checkShapes(root); err != nil {
		return err
	}
	if len(params) > 0 {
		scopeID, err := r.scopes.Resolve(gate, qubits)
		if err != nil {
			return err
		}
		for name, val := range params {
			if _, err := r.store.Set(paramstore.Record{
				Scope: scopeID,
				Name:  name,
				Value: core.FloatValue(val),
				Group: group,
			}); err != nil {
				return err
			}
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	key := newInstKey(gate, qubits)
	if _, exists := r.defs[key]; exists {
		zap.L().Info(fmt.Sprintf("redefining instruction %s on qubits %s",
			gate, common.JoinInts(qubits, ",")))
	}
	r.defs[key] = Template{Source: source}
	return nil
}

// AddCompositeInstruction registers an instruction assembled from existing
// ones. Groups are separated by barriers: references inside one group start
// together, groups play in order.
func (r *Registry) AddCompositeInstruction(gate string, qubits []int, groups [][]Reference) error {
	if len(groups) == 0 {
		return core.NewConfigError(fmt.Sprintf("composite instruction %s has no references", gate))
	}
	for _, group := range groups {
		if len(group) == 0 {
			return core.NewConfigError(fmt.Sprintf("composite instruction %s has an empty group", gate))
		}
	}
	copied := make([][]Reference, len(groups))
	for i, group := range groups {
		copied[i] = append([]Reference(nil), group...)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defs[newInstKey(gate, qubits)] = Template{Groups: copied}
	return nil
}

// Defined reports whether an instruction is registered for a qubit tuple.
func (r *Registry) Defined(gate string, qubits []int) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.defs[newInstKey(gate, qubits)]
	return ok
}

// GetSchedule resolves an instruction to a schedule with values bound from
// the default calibration group. Parameters qualified in free stay symbolic.
// Composite definitions resolve recursively; a reference chain that revisits
// an instruction fails with a cycle error.
func (r *Registry) GetSchedule(gate string, qubits []int, free []string) (*pulse.Schedule, error) {
	return r.GetScheduleInGroup(gate, qubits, free, "")
}

// GetScheduleInGroup is GetSchedule binding values from a named calibration
// group.
func (r *Registry) GetScheduleInGroup(gate string, qubits []int, free []string, group string) (*pulse.Schedule, error) {
	sess := &session{reg: r, visited: make(map[instKey]bool), group: group}
	return sess.resolve(gate, qubits, free)
}

// session threads the visited set and calibration group of one resolution
// through the reference callbacks of the compiler.
type session struct {
	reg     *Registry
	visited map[instKey]bool
	group   string
}

func (s *session) ResolveReference(name string, qubits []int, free []string) (*pulse.Schedule, error) {
	return s.resolve(name, qubits, free)
}

func (s *session) resolve(gate string, qubits []int, free []string) (*pulse.Schedule, error) {
	key := newInstKey(gate, qubits)
	if s.visited[key] {
		return nil, core.NewCycleError(
			fmt.Sprintf("instruction %s on qubits %s is part of a reference cycle",
				gate, common.JoinInts(qubits, ",")))
	}
	s.visited[key] = true
	defer delete(s.visited, key)

	s.reg.mu.RLock()
	tmpl, ok := s.reg.defs[key]
	s.reg.mu.RUnlock()
	if !ok {
		return nil, core.NewConfigError(
			fmt.Sprintf("instruction %s is not defined on qubits %s",
				gate, common.JoinInts(qubits, ",")))
	}

	if !tmpl.Composite() {
		comp := compiler.New(s.reg.store, s.reg.scopes)
		comp.SetReferenceResolver(s)
		comp.SetGroup(s.group)
		return comp.Compile(gate, tmpl.Source, gate, free)
	}

	groupScheds := make([]*pulse.Schedule, 0, len(tmpl.Groups))
	for i, group := range tmpl.Groups {
		members := make([]*pulse.Schedule, 0, len(group))
		for _, ref := range group {
			sched, err := s.resolve(ref.Name, ref.Qubits, free)
			if err != nil {
				return nil, err
			}
			members = append(members, sched)
		}
		groupSched, err := pulse.Join(fmt.Sprintf("%s.%d", gate, i), pulse.AlignLeft, members...)
		if err != nil {
			return nil, err
		}
		groupScheds = append(groupScheds, groupSched)
	}
	return pulse.Join(gate, pulse.AlignSequential, groupScheds...)
}
