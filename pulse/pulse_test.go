//go:build unit
// +build unit

package pulse

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseChannel(t *testing.T) {
	tests := []struct {
		name         string
		in           string
		want         Channel
		wantErrorMsg string
	}{
		{
			name: "drive channel",
			in:   "d0",
			want: Channel{Kind: DriveChannel, Index: 0},
		},
		{
			name: "control channel",
			in:   "u12",
			want: Channel{Kind: ControlChannel, Index: 12},
		},
		{
			name: "measure channel",
			in:   "m3",
			want: Channel{Kind: MeasureChannel, Index: 3},
		},
		{
			name: "acquire channel",
			in:   "a1",
			want: Channel{Kind: AcquireChannel, Index: 1},
		},
		{
			name:         "unknown prefix",
			in:           "x0",
			wantErrorMsg: "\"x0\" is not a channel label",
		},
		{
			name:         "missing index",
			in:           "d",
			wantErrorMsg: "\"d\" is not a channel label",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, gotError := ParseChannel(tt.in)
			if tt.wantErrorMsg == "" {
				assert.Nil(t, gotError)
				assert.Equal(t, tt.want, got)
				assert.Equal(t, tt.in, got.String())
			} else {
				assert.EqualError(t, gotError, tt.wantErrorMsg)
			}
		})
	}
}

func TestNewWaveform(t *testing.T) {
	tests := []struct {
		name         string
		shape        string
		duration     int
		args         map[string]Arg
		wantErrorMsg string
	}{
		{
			name:     "gaus",
			shape:    ShapeGaus,
			duration: 160,
			args: map[string]Arg{
				"amp":   ConstFloat(0.1),
				"sigma": ConstFloat(40),
			},
		},
		{
			name:     "drag with free amp",
			shape:    ShapeDrag,
			duration: 160,
			args: map[string]Arg{
				"amp":   Ref(NewParameter("amp")),
				"sigma": ConstFloat(40),
				"beta":  ConstFloat(0.5),
			},
		},
		{
			name:         "unknown shape",
			shape:        "triangle",
			duration:     160,
			args:         map[string]Arg{},
			wantErrorMsg: "pulse shape triangle is unknown",
		},
		{
			name:     "missing operand",
			shape:    ShapeGausSq,
			duration: 160,
			args: map[string]Arg{
				"amp":   ConstFloat(0.1),
				"sigma": ConstFloat(40),
			},
			wantErrorMsg: "pulse xp of shape gaus_sq is missing operand width",
		},
		{
			name:     "extra operand",
			shape:    ShapeConstant,
			duration: 160,
			args: map[string]Arg{
				"amp":  ConstFloat(0.1),
				"beta": ConstFloat(1),
			},
			wantErrorMsg: "pulse xp of shape constant does not take operand beta",
		},
		{
			name:     "negative duration",
			shape:    ShapeConstant,
			duration: -1,
			args: map[string]Arg{
				"amp": ConstFloat(0.1),
			},
			wantErrorMsg: "pulse xp has negative duration -1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, gotError := NewWaveform("xp", tt.shape, tt.duration, tt.args)
			if tt.wantErrorMsg == "" {
				assert.Nil(t, gotError)
				assert.Equal(t, tt.shape, got.Shape)
				assert.Equal(t, tt.duration, got.Duration)
			} else {
				assert.EqualError(t, gotError, tt.wantErrorMsg)
			}
		})
	}
}

func mustWaveform(t *testing.T, name string, duration int, amp Arg) *Waveform {
	t.Helper()
	wf, err := NewWaveform(name, ShapeGaus, duration, map[string]Arg{
		"amp":   amp,
		"sigma": ConstFloat(40),
	})
	assert.Nil(t, err)
	return wf
}

func TestScheduleDurations(t *testing.T) {
	d0 := Channel{Kind: DriveChannel, Index: 0}
	d1 := Channel{Kind: DriveChannel, Index: 1}
	sched := NewSchedule("xp")
	sched.Play(mustWaveform(t, "p0", 160, ConstFloat(0.1)), d0)
	sched.ShiftPhase(ConstFloat(1.57), d0)
	sched.Play(mustWaveform(t, "p1", 100, ConstFloat(0.2)), d1)
	sched.Play(mustWaveform(t, "p2", 160, ConstFloat(0.1)), d0)

	assert.Equal(t, 320, sched.Duration())
	assert.Equal(t, 320, sched.ChannelDuration(d0))
	assert.Equal(t, 100, sched.ChannelDuration(d1))
	assert.Equal(t, []Channel{d0, d1}, sched.Channels())
	assert.Equal(t, []int{0, 1}, sched.Qubits())
}

func TestScheduleQubitsSkipControlChannels(t *testing.T) {
	sched := NewSchedule("cr")
	sched.Play(mustWaveform(t, "cr90p", 160, ConstFloat(0.1)), Channel{Kind: ControlChannel, Index: 0})
	sched.Play(mustWaveform(t, "p0", 160, ConstFloat(0.1)), Channel{Kind: DriveChannel, Index: 1})

	assert.Equal(t, []int{1}, sched.Qubits())
}

func TestJoinAlignments(t *testing.T) {
	d0 := Channel{Kind: DriveChannel, Index: 0}
	d1 := Channel{Kind: DriveChannel, Index: 1}
	short := NewSchedule("short")
	short.Play(mustWaveform(t, "s", 100, ConstFloat(0.1)), d0)
	long := NewSchedule("long")
	long.Play(mustWaveform(t, "l", 160, ConstFloat(0.1)), d1)

	left, err := Join("block", AlignLeft, short, long)
	assert.Nil(t, err)
	assert.Equal(t, 160, left.Duration())
	start, found := left.StartTime(d0)
	assert.True(t, found)
	assert.Equal(t, 0, start)

	right, err := Join("block", AlignRight, short, long)
	assert.Nil(t, err)
	assert.Equal(t, 160, right.Duration())
	start, found = right.StartTime(d0)
	assert.True(t, found)
	assert.Equal(t, 60, start)

	seq, err := Join("block", AlignSequential, short, long)
	assert.Nil(t, err)
	assert.Equal(t, 260, seq.Duration())
	start, found = seq.StartTime(d1)
	assert.True(t, found)
	assert.Equal(t, 100, start)
}

func TestParseAlignment(t *testing.T) {
	for _, in := range []string{"left", "right", "seq"} {
		a, err := ParseAlignment(in)
		assert.Nil(t, err)
		assert.Equal(t, in, a.String())
	}
	_, err := ParseAlignment("center")
	assert.EqualError(t, err, "alignment \"center\" is not one of left, right, seq")
}

func TestScheduleParameters(t *testing.T) {
	d0 := Channel{Kind: DriveChannel, Index: 0}
	amp := NewParameter("amp")
	phase := NewParameter("phase")
	sched := NewSchedule("xp")
	sched.Play(mustWaveform(t, "p0", 160, Ref(amp)), d0)
	sched.ShiftPhase(Ref(phase), d0)
	sched.Play(mustWaveform(t, "p1", 160, Ref(amp)), d0)

	params := sched.Parameters()
	assert.Equal(t, 2, len(params))
	assert.Equal(t, "amp", params[0].Name)
	assert.Equal(t, "phase", params[1].Name)
}

func TestAssignParameters(t *testing.T) {
	d0 := Channel{Kind: DriveChannel, Index: 0}
	amp := NewParameter("amp")
	sched := NewSchedule("xp")
	sched.Play(mustWaveform(t, "p0", 160, Ref(amp)), d0)
	sched.ShiftPhase(Ref(NewParameter("phase")), d0)

	bound := sched.AssignParameters(map[string]complex128{"amp": complex(0.08, 0)})

	// original stays symbolic
	assert.Equal(t, 2, len(sched.Parameters()))

	params := bound.Parameters()
	assert.Equal(t, 1, len(params))
	assert.Equal(t, "phase", params[0].Name)

	play := bound.Instructions()[0].(*Play)
	v, err := play.Wf.Args["amp"].Value()
	assert.Nil(t, err)
	assert.Equal(t, complex(0.08, 0), v)
}
