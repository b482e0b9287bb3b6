package compiler

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/oqtopus-team/calibration-engine/common"
	"github.com/oqtopus-team/calibration-engine/core"
)

type TokenKind int

const (
	TokenContextEnter TokenKind = iota
	TokenContextExit
	TokenPulse
	TokenReference
	TokenFrame
)

func (k TokenKind) String() string {
	switch k {
	case TokenContextEnter:
		return "context_enter"
	case TokenContextExit:
		return "context_exit"
	case TokenPulse:
		return "pulse"
	case TokenReference:
		return "reference"
	case TokenFrame:
		return "frame"
	default:
		return "unknown"
	}
}

// Token is one lexeme of a pulse program source. Groups holds the submatches
// of the token pattern, without the full match.
type Token struct {
	Kind   TokenKind
	Pos    int
	Groups []string
}

type tokenSpec struct {
	kind    TokenKind
	pattern *regexp.Regexp
}

// The pulse and reference tokens share the % sigil but stay disjoint: pulse
// operands start with a channel letter, reference operands are digit lists.
var tokenSpecs = []tokenSpec{
	{kind: TokenContextEnter, pattern: regexp.MustCompile(`^\[(left|right|seq)\]\{`)},
	{kind: TokenContextExit, pattern: regexp.MustCompile(`^\}`)},
	{kind: TokenPulse, pattern: regexp.MustCompile(`^%([a-zA-Z_]\w*)\(([duma][0-9]+),([a-z_]+)\)`)},
	{kind: TokenReference, pattern: regexp.MustCompile(`^%([a-zA-Z_]\w*)\(([0-9]+(?:,[0-9]+)*)\)`)},
	{kind: TokenFrame, pattern: regexp.MustCompile(`^\$([a-zA-Z_]\w*)\(([duma][0-9]+),([^)]*)\)`)},
}

// Tokenize splits a program source into tokens, skipping whitespace. Any
// text no token spec accepts fails with its position.
func Tokenize(source string) ([]Token, error) {
	var tokens []Token
	pos := 0
	for pos < len(source) {
		rest := source[pos:]
		trimmed := strings.TrimLeft(rest, " \t\r\n")
		pos += len(rest) - len(trimmed)
		if pos >= len(source) {
			break
		}
		matched := false
		for _, spec := range tokenSpecs {
			m := spec.pattern.FindStringSubmatch(source[pos:])
			if m == nil {
				continue
			}
			tokens = append(tokens, Token{Kind: spec.kind, Pos: pos, Groups: m[1:]})
			pos += len(m[0])
			matched = true
			break
		}
		if !matched {
			return nil, core.NewParseError(
				fmt.Sprintf("unexpected input at position %d: %q", pos, snippet(source[pos:])))
		}
	}
	return tokens, nil
}

func snippet(s string) string {
	if len(s) > 16 {
		return s[:16]
	}
	return s
}

// referenceQubits parses the operand of a reference token.
func referenceQubits(operand string) ([]int, error) {
	qubits, err := common.ParseInts(operand, ",")
	if err != nil {
		return nil, core.NewParseError(fmt.Sprintf("bad reference qubits %q", operand))
	}
	return qubits, nil
}
