package pulse

import (
	"fmt"
	"regexp"
	"strconv"
)

type ChannelKind int

const (
	DriveChannel ChannelKind = iota
	ControlChannel
	MeasureChannel
	AcquireChannel
)

func (k ChannelKind) Prefix() string {
	switch k {
	case DriveChannel:
		return "d"
	case ControlChannel:
		return "u"
	case MeasureChannel:
		return "m"
	case AcquireChannel:
		return "a"
	default:
		return "?"
	}
}

// Channel identifies one control line of the device. Drive, measure and
// acquire channels map one-to-one to qubits by index; control channels do not.
type Channel struct {
	Kind  ChannelKind
	Index int
}

var channelPattern = regexp.MustCompile(`^([duma])([0-9]+)$`)

func ParseChannel(label string) (Channel, error) {
	m := channelPattern.FindStringSubmatch(label)
	if m == nil {
		return Channel{}, fmt.Errorf("%q is not a channel label", label)
	}
	index, err := strconv.Atoi(m[2])
	if err != nil {
		return Channel{}, err
	}
	var kind ChannelKind
	switch m[1] {
	case "d":
		kind = DriveChannel
	case "u":
		kind = ControlChannel
	case "m":
		kind = MeasureChannel
	case "a":
		kind = AcquireChannel
	}
	return Channel{Kind: kind, Index: index}, nil
}

func (c Channel) String() string {
	return fmt.Sprintf("%s%d", c.Kind.Prefix(), c.Index)
}

// QubitMapped reports whether the channel index is a qubit index.
func (c Channel) QubitMapped() bool {
	return c.Kind != ControlChannel
}
