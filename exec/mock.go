package exec

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/oqtopus-team/calibration-engine/core"
)

const MockMaxShots int = 10000

// MockBackend is a deterministic in-process backend. Prob maps a program to
// the excited-state probability of its qubits; the returned counts and IQ
// points realize that probability exactly, with no sampling noise.
type MockBackend struct {
	Prob func(core.RunnableProgram) float64

	maxShots int
}

func NewMockBackend(prob func(core.RunnableProgram) float64) *MockBackend {
	return &MockBackend{Prob: prob}
}

func (m *MockBackend) Setup(conf *core.Conf) error {
	m.maxShots = MockMaxShots
	if conf != nil && conf.MaxShots > 0 {
		m.maxShots = conf.MaxShots
	}
	if m.Prob == nil {
		m.Prob = func(core.RunnableProgram) float64 { return 0.5 }
	}
	return nil
}

func (m *MockBackend) MaxShots() int {
	return m.maxShots
}

func (m *MockBackend) TearDown() {}

func (m *MockBackend) Submit(ctx context.Context, req *core.RunRequest) (*core.RawResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.Shots <= 0 || req.Shots > m.maxShots {
		return nil, fmt.Errorf("shots %d is outside (0, %d]", req.Shots, m.maxShots)
	}
	if req.MeasLevel == core.RAW {
		return nil, core.NewUnsupportedLevel("raw measurement level is not supported")
	}
	raw := &core.RawResult{
		JobID: uuid.NewString(),
		Shots: req.Shots,
	}
	for _, prog := range req.Programs {
		p := clampProb(m.Prob(prog))
		result, err := m.realize(prog, p, req)
		if err != nil {
			return nil, err
		}
		raw.Results = append(raw.Results, result)
	}
	zap.L().Debug(fmt.Sprintf("mock backend executed %d program(s) as job %s",
		len(req.Programs), raw.JobID))
	return raw, nil
}

func (m *MockBackend) realize(prog core.RunnableProgram, p float64, req *core.RunRequest) (*core.ProgramResult, error) {
	slots := len(prog.ProgramQubits())
	if slots == 0 {
		return nil, fmt.Errorf("program %s addresses no qubits", prog.ProgramName())
	}
	excited := int(math.Round(p * float64(req.Shots)))

	switch req.MeasLevel {
	case core.CLASSIFIED:
		ones := strings.Repeat("1", slots)
		zeros := strings.Repeat("0", slots)
		counts := core.Counts{}
		if excited > 0 {
			counts[ones] = uint32(excited)
		}
		if req.Shots-excited > 0 {
			counts[zeros] = uint32(req.Shots - excited)
		}
		return &core.ProgramResult{Counts: counts}, nil
	case core.KERNELED:
		point := complex(2*p-1, 0)
		if req.MeasReturn == core.AVERAGE {
			avg := make([]complex128, slots)
			for i := range avg {
				avg[i] = point
			}
			return &core.ProgramResult{AvgMemory: avg}, nil
		}
		memory := make([][]complex128, req.Shots)
		for shot := range memory {
			record := make([]complex128, slots)
			v := complex(-1, 0)
			if shot < excited {
				v = complex(1, 0)
			}
			for i := range record {
				record[i] = v
			}
			memory[shot] = record
		}
		return &core.ProgramResult{Memory: memory}, nil
	default:
		return nil, core.NewUnsupportedLevel(
			fmt.Sprintf("measurement level %s is not supported", req.MeasLevel))
	}
}

func clampProb(p float64) float64 {
	return math.Max(0, math.Min(1, p))
}
