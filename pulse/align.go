package pulse

import "fmt"

// Alignment controls how sibling schedules inside a block are laid out in
// time.
type Alignment int

const (
	AlignLeft Alignment = iota
	AlignRight
	AlignSequential
)

func (a Alignment) String() string {
	switch a {
	case AlignLeft:
		return "left"
	case AlignRight:
		return "right"
	case AlignSequential:
		return "seq"
	default:
		return "unknown"
	}
}

func ParseAlignment(s string) (Alignment, error) {
	switch s {
	case "left":
		return AlignLeft, nil
	case "right":
		return AlignRight, nil
	case "seq":
		return AlignSequential, nil
	default:
		return 0, fmt.Errorf("alignment %q is not one of left, right, seq", s)
	}
}

// Join lays out child schedules into one schedule. Left overlays all children
// at time zero, right shifts each child so they stop together, and sequential
// plays them one after another.
func Join(name string, align Alignment, children ...*Schedule) (*Schedule, error) {
	out := NewSchedule(name)
	switch align {
	case AlignLeft:
		for _, child := range children {
			if err := out.Merge(child, 0); err != nil {
				return nil, err
			}
		}
	case AlignRight:
		max := 0
		for _, child := range children {
			if d := child.Duration(); d > max {
				max = d
			}
		}
		for _, child := range children {
			if err := out.Merge(child, max-child.Duration()); err != nil {
				return nil, err
			}
		}
	case AlignSequential:
		for _, child := range children {
			out.Append(child)
		}
	default:
		return nil, fmt.Errorf("alignment %d is not supported", align)
	}
	return out, nil
}
