package core

// The fatal conditions of the framework are distinguishable by kind so that
// embedding code can react to configuration mistakes without string matching.

type ErrKind int

const (
	ErrParse ErrKind = iota
	ErrChain
	ErrUnknownShape
	ErrInvalidStatus
	ErrIndexRange
	ErrUnsupportedLevel
	ErrNotSupported
	ErrScope
	ErrCycle
	ErrConfig
)

func (k ErrKind) String() string {
	switch k {
	case ErrParse:
		return "parse"
	case ErrChain:
		return "chain"
	case ErrUnknownShape:
		return "unknown_shape"
	case ErrInvalidStatus:
		return "invalid_status"
	case ErrIndexRange:
		return "index_range"
	case ErrUnsupportedLevel:
		return "unsupported_level"
	case ErrNotSupported:
		return "not_supported"
	case ErrScope:
		return "scope"
	case ErrCycle:
		return "cycle"
	case ErrConfig:
		return "config"
	default:
		return "unknown"
	}
}

type CalError struct {
	Kind ErrKind
	Msg  string
}

func (e *CalError) Error() string {
	return e.Msg
}

func newCalError(kind ErrKind, msg string) *CalError {
	return &CalError{Kind: kind, Msg: msg}
}

func NewParseError(msg string) *CalError          { return newCalError(ErrParse, msg) }
func NewChainError(msg string) *CalError          { return newCalError(ErrChain, msg) }
func NewUnknownShapeError(msg string) *CalError   { return newCalError(ErrUnknownShape, msg) }
func NewInvalidStatusError(msg string) *CalError  { return newCalError(ErrInvalidStatus, msg) }
func NewIndexRangeError(msg string) *CalError     { return newCalError(ErrIndexRange, msg) }
func NewUnsupportedLevel(msg string) *CalError    { return newCalError(ErrUnsupportedLevel, msg) }
func NewNotSupportedError(msg string) *CalError   { return newCalError(ErrNotSupported, msg) }
func NewScopeError(msg string) *CalError          { return newCalError(ErrScope, msg) }
func NewCycleError(msg string) *CalError          { return newCalError(ErrCycle, msg) }
func NewConfigError(msg string) *CalError         { return newCalError(ErrConfig, msg) }

// IsKind reports whether err is a CalError of the given kind.
func IsKind(err error, kind ErrKind) bool {
	ce, ok := err.(*CalError)
	return ok && ce.Kind == kind
}
