package compiler

import (
	"fmt"

	"github.com/oqtopus-team/calibration-engine/core"
	"github.com/oqtopus-team/calibration-engine/pulse"
)

// Node is one element of the parsed program tree.
type Node interface {
	nodeTag()
}

// ScheduleBlock groups child nodes under one alignment context.
type ScheduleBlock struct {
	Alignment pulse.Alignment
	Children  []Node
}

// PulseNode plays a named parametric pulse on a channel.
type PulseNode struct {
	Name    string
	Channel pulse.Channel
	Shape   string
}

// RefNode calls another registered schedule on a qubit tuple.
type RefNode struct {
	Name   string
	Qubits []int
}

// FrameNode is a frame-change instruction. Parsed for forward compatibility,
// rejected at interpretation.
type FrameNode struct {
	Name    string
	Channel pulse.Channel
	Operand string
}

func (*ScheduleBlock) nodeTag() {}
func (*PulseNode) nodeTag()     {}
func (*RefNode) nodeTag()       {}
func (*FrameNode) nodeTag()     {}

// Parse turns token stream into a block tree. The implicit root block aligns
// its children left.
func Parse(tokens []Token) (*ScheduleBlock, error) {
	root := &ScheduleBlock{Alignment: pulse.AlignLeft}
	stack := []*ScheduleBlock{root}

	for _, tok := range tokens {
		top := stack[len(stack)-1]
		switch tok.Kind {
		case TokenContextEnter:
			align, err := pulse.ParseAlignment(tok.Groups[0])
			if err != nil {
				return nil, core.NewParseError(err.Error())
			}
			block := &ScheduleBlock{Alignment: align}
			top.Children = append(top.Children, block)
			stack = append(stack, block)
		case TokenContextExit:
			if len(stack) == 1 {
				return nil, core.NewParseError(
					fmt.Sprintf("unbalanced context exit at position %d", tok.Pos))
			}
			stack = stack[:len(stack)-1]
		case TokenPulse:
			ch, err := pulse.ParseChannel(tok.Groups[1])
			if err != nil {
				return nil, core.NewParseError(err.Error())
			}
			top.Children = append(top.Children, &PulseNode{
				Name:    tok.Groups[0],
				Channel: ch,
				Shape:   tok.Groups[2],
			})
		case TokenReference:
			qubits, err := referenceQubits(tok.Groups[1])
			if err != nil {
				return nil, err
			}
			top.Children = append(top.Children, &RefNode{
				Name:   tok.Groups[0],
				Qubits: qubits,
			})
		case TokenFrame:
			ch, err := pulse.ParseChannel(tok.Groups[1])
			if err != nil {
				return nil, core.NewParseError(err.Error())
			}
			top.Children = append(top.Children, &FrameNode{
				Name:    tok.Groups[0],
				Channel: ch,
				Operand: tok.Groups[2],
			})
		}
	}
	if len(stack) != 1 {
		return nil, core.NewParseError(
			fmt.Sprintf("%d context block(s) left unclosed", len(stack)-1))
	}
	return root, nil
}
