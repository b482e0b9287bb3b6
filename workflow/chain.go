package workflow

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/oqtopus-team/calibration-engine/core"
)

// allowedPrev lists which kind may directly precede each node kind. The
// first node of a chain follows the implicit root.
var allowedPrev = map[NodeKind][]NodeKind{
	KindKernel:        {KindRoot},
	KindDiscriminator: {KindKernel},
	KindIQData:        {KindKernel},
	KindCounts:        {KindDiscriminator},
}

// Chain is an ordered, type-checked pipeline turning one program result into
// a scalar outcome. The first implicit step marginalizes the result onto the
// measured register.
type Chain struct {
	nodes      []Node
	singleShot bool
}

func NewChain(nodes ...Node) (*Chain, error) {
	c := &Chain{}
	for _, n := range nodes {
		if err := c.Append(n); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Append adds a node, rejecting orders the data formats cannot support.
func (c *Chain) Append(n Node) error {
	prev := KindRoot
	if len(c.nodes) > 0 {
		prev = c.nodes[len(c.nodes)-1].Kind()
	}
	for _, ok := range allowedPrev[n.Kind()] {
		if prev == ok {
			c.nodes = append(c.nodes, n)
			return nil
		}
	}
	return core.NewChainError(
		fmt.Sprintf("node %s cannot follow a node of kind %s", kindName(n), prev))
}

func (c *Chain) Nodes() []Node {
	return append([]Node(nil), c.nodes...)
}

// MeasLevel negotiates the measurement level to request from the backend.
// A chain without a kernel would need raw traces, which no backend serves.
func (c *Chain) MeasLevel() (core.MeasLevel, error) {
	hasKernel := false
	for _, n := range c.nodes {
		switch n.Kind() {
		case KindDiscriminator:
			return core.CLASSIFIED, nil
		case KindKernel:
			hasKernel = true
		}
	}
	if hasKernel {
		return core.KERNELED, nil
	}
	return 0, core.NewUnsupportedLevel("raw measurement level is not supported")
}

// DisableAveraging requests per-shot data even when no node needs it, for
// chains whose consumer wants the shot distribution.
func (c *Chain) DisableAveraging() {
	c.singleShot = true
}

// MeasReturn negotiates shot aggregation: discrimination needs single shots,
// and a caller may have disabled averaging outright.
func (c *Chain) MeasReturn() core.MeasReturn {
	if c.singleShot {
		return core.SINGLE
	}
	for _, n := range c.nodes {
		if n.Kind() == KindDiscriminator {
			return core.SINGLE
		}
	}
	return core.AVERAGE
}

// Format runs one program result through the chain and returns the scalar
// outcome.
func (c *Chain) Format(result *core.ProgramResult, md *core.Metadata, shots int) (float64, error) {
	if len(c.nodes) == 0 {
		return 0, core.NewChainError("chain has no nodes")
	}
	frame, err := marginalize(result, md, shots)
	if err != nil {
		return 0, err
	}
	for _, n := range c.nodes {
		if err := n.Process(frame); err != nil {
			zap.L().Error(fmt.Sprintf("failed to process node %s/reason:%s", n.Name(), err))
			return 0, err
		}
	}
	if !frame.Done {
		return 0, core.NewChainError("chain has no terminal node")
	}
	return frame.Y, nil
}

// marginalize restricts a program result to the classical bits named in the
// metadata register map.
func marginalize(result *core.ProgramResult, md *core.Metadata, shots int) (*Frame, error) {
	if len(md.RegisterMap) == 0 {
		return nil, core.NewChainError(
			fmt.Sprintf("metadata of %s has no register map", md.Name))
	}
	clbits := make([]int, 0, len(md.RegisterMap))
	for _, clbit := range md.RegisterMap {
		clbits = append(clbits, clbit)
	}
	sort.Ints(clbits)

	frame := &Frame{Shots: shots, Bits: len(clbits)}
	switch {
	case result.Counts != nil:
		counts := make(core.Counts)
		for key, count := range result.Counts {
			marginal, err := marginalKey(key, clbits)
			if err != nil {
				return nil, err
			}
			counts[marginal] += count
		}
		frame.Counts = counts
	case result.Memory != nil:
		frame.IQ = make([][]complex128, len(result.Memory))
		for i, shot := range result.Memory {
			slots, err := selectSlots(shot, clbits)
			if err != nil {
				return nil, err
			}
			frame.IQ[i] = slots
		}
	case result.AvgMemory != nil:
		slots, err := selectSlots(result.AvgMemory, clbits)
		if err != nil {
			return nil, err
		}
		frame.AvgIQ = slots
	default:
		return nil, core.NewChainError("program result carries no data")
	}
	return frame, nil
}

// marginalKey keeps the named classical bits of a bit string. Bit 0 is the
// rightmost character.
func marginalKey(key string, clbits []int) (string, error) {
	var b strings.Builder
	for i := len(clbits) - 1; i >= 0; i-- {
		pos := len(key) - 1 - clbits[i]
		if pos < 0 || pos >= len(key) {
			return "", core.NewChainError(
				fmt.Sprintf("classical bit %d is outside outcome %q", clbits[i], key))
		}
		b.WriteByte(key[pos])
	}
	return b.String(), nil
}

func selectSlots(slots []complex128, clbits []int) ([]complex128, error) {
	out := make([]complex128, len(clbits))
	for i, clbit := range clbits {
		if clbit < 0 || clbit >= len(slots) {
			return nil, core.NewChainError(
				fmt.Sprintf("classical bit %d is outside memory of %d slot(s)", clbit, len(slots)))
		}
		out[i] = slots[clbit]
	}
	return out, nil
}
