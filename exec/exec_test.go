//go:build unit
// +build unit

package exec

import (
	"context"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/oqtopus-team/calibration-engine/analysis"
	"github.com/oqtopus-team/calibration-engine/common"
	"github.com/oqtopus-team/calibration-engine/core"
	"github.com/oqtopus-team/calibration-engine/paramstore"
	"github.com/oqtopus-team/calibration-engine/workflow"
)

type fakeProgram struct {
	name   string
	qubits []int
}

func (f fakeProgram) ProgramName() string   { return f.name }
func (f fakeProgram) ProgramQubits() []int  { return f.qubits }

func setupMock(t *testing.T, prob func(core.RunnableProgram) float64) *MockBackend {
	t.Helper()
	m := NewMockBackend(prob)
	conf, err := core.NewConf()
	assert.Nil(t, err)
	assert.Nil(t, m.Setup(conf))
	return m
}

func TestMockBackendClassified(t *testing.T) {
	m := setupMock(t, func(core.RunnableProgram) float64 { return 0.75 })

	raw, err := m.Submit(context.Background(), &core.RunRequest{
		Programs:   []core.RunnableProgram{fakeProgram{name: "p0", qubits: []int{0}}},
		Shots:      1000,
		MeasLevel:  core.CLASSIFIED,
		MeasReturn: core.SINGLE,
	})
	assert.Nil(t, err)
	assert.Equal(t, 1000, raw.Shots)
	assert.NotEmpty(t, raw.JobID)

	result, err := raw.Get(0)
	assert.Nil(t, err)
	assert.Equal(t, uint32(750), result.Counts["1"])
	assert.Equal(t, uint32(250), result.Counts["0"])
}

func TestMockBackendDeterministic(t *testing.T) {
	req := &core.RunRequest{
		Programs:   []core.RunnableProgram{fakeProgram{name: "p0", qubits: []int{0}}},
		Shots:      100,
		MeasLevel:  core.KERNELED,
		MeasReturn: core.AVERAGE,
	}
	m := setupMock(t, func(core.RunnableProgram) float64 { return 0.3 })

	first, err := m.Submit(context.Background(), req)
	assert.Nil(t, err)
	second, err := m.Submit(context.Background(), req)
	assert.Nil(t, err)

	assert.Equal(t, first.Results, second.Results)
	r, err := first.Get(0)
	assert.Nil(t, err)
	assert.True(t, core.AlmostEqual(real(r.AvgMemory[0]), -0.4, 1e-12))
}

func TestMockBackendSingleShotMemory(t *testing.T) {
	m := setupMock(t, func(core.RunnableProgram) float64 { return 0.5 })

	raw, err := m.Submit(context.Background(), &core.RunRequest{
		Programs:   []core.RunnableProgram{fakeProgram{name: "p0", qubits: []int{0, 1}}},
		Shots:      4,
		MeasLevel:  core.KERNELED,
		MeasReturn: core.SINGLE,
	})
	assert.Nil(t, err)
	result, err := raw.Get(0)
	assert.Nil(t, err)
	assert.Equal(t, 4, len(result.Memory))
	assert.Equal(t, 2, len(result.Memory[0]))
	assert.Equal(t, complex(1.0, 0), result.Memory[0][0])
	assert.Equal(t, complex(-1.0, 0), result.Memory[3][0])
}

func TestMockBackendRejects(t *testing.T) {
	m := setupMock(t, nil)

	_, err := m.Submit(context.Background(), &core.RunRequest{
		Programs:  []core.RunnableProgram{fakeProgram{name: "p0", qubits: []int{0}}},
		Shots:     0,
		MeasLevel: core.CLASSIFIED,
	})
	assert.EqualError(t, err, "shots 0 is outside (0, 100000]")

	_, err = m.Submit(context.Background(), &core.RunRequest{
		Programs:  []core.RunnableProgram{fakeProgram{name: "p0", qubits: []int{0}}},
		Shots:     100,
		MeasLevel: core.RAW,
	})
	assert.EqualError(t, err, "raw measurement level is not supported")
	assert.True(t, core.IsKind(err, core.ErrUnsupportedLevel))
}

// rabiSweep is an amplitude scan over opaque programs whose names carry the
// sweep index.
func rabiSweep(t *testing.T, name string, amps []float64) *Experiment {
	t.Helper()
	chain, err := workflow.NewChain(
		workflow.SystemKernel{}, workflow.SystemDiscriminator{}, workflow.Population{})
	assert.Nil(t, err)
	return &Experiment{
		Name:  name,
		XKey:  "amp",
		Shots: 1000,
		Chain: chain,
		Model: analysis.CosineModel{},
		Generate: func(expID string) ([]core.RunnableProgram, []*core.Metadata, error) {
			programs := make([]core.RunnableProgram, 0, len(amps))
			mds := make([]*core.Metadata, 0, len(amps))
			for i, amp := range amps {
				programs = append(programs, fakeProgram{
					name:   fmt.Sprintf("%s_%03d", name, i),
					qubits: []int{0},
				})
				mds = append(mds, &core.Metadata{
					Name:        name,
					XValues:     map[string]float64{"amp": amp},
					RegisterMap: map[int]int{0: 0},
				})
			}
			return programs, mds, nil
		},
	}
}

func rabiProb(amps []float64, piAmps map[string]float64) func(core.RunnableProgram) float64 {
	return func(prog core.RunnableProgram) float64 {
		for name, piAmp := range piAmps {
			if !strings.HasPrefix(prog.ProgramName(), name+"_") {
				continue
			}
			var i int
			if _, err := fmt.Sscanf(prog.ProgramName(), name+"_%d", &i); err != nil {
				return 0
			}
			return 0.5 - 0.5*math.Cos(math.Pi*amps[i]/piAmp)
		}
		return 0
	}
}

func TestRunManyDrainsQueueInOrder(t *testing.T) {
	amps := common.Linspace(0, 0.3, 61)
	backend := setupMock(t, rabiProb(amps, map[string]float64{"a": 0.08, "b": 0.075}))
	runner, err := NewRunner(backend, paramstore.NewStore())
	assert.Nil(t, err)

	exps := []*Experiment{
		rabiSweep(t, "a", amps),
		{Name: "bad"},
		rabiSweep(t, "b", amps),
	}
	reports, err := runner.RunMany(context.Background(), exps)
	assert.NotNil(t, err)
	assert.Contains(t, err.Error(), "experiment bad is underspecified")
	assert.Equal(t, 3, len(reports))
	assert.Nil(t, reports[1])
	assert.Equal(t, 0, runner.queue.Len())

	for i, wantFreq := range map[int]float64{0: 1 / (2 * 0.08), 2: 1 / (2 * 0.075)} {
		report := reports[i]
		assert.NotNil(t, report)
		result := report.Results["default"]
		assert.NotNil(t, result)
		assert.True(t, core.AlmostEqual(result.Params[1], wantFreq, 1e-2),
			"freq %g of report %d", result.Params[1], i)
	}
	assert.NotEqual(t, reports[0].ExpID, reports[2].ExpID)
}

func TestRunnerPublishesResults(t *testing.T) {
	amps := common.Linspace(0, 0.3, 61)
	backend := setupMock(t, rabiProb(amps, map[string]float64{"a": 0.08}))
	runner, err := NewRunner(backend, paramstore.NewStore())
	assert.Nil(t, err)

	observer := make(core.ResultChan, 1)
	runner.PublishResults(observer)

	report, err := runner.Run(context.Background(), rabiSweep(t, "a", amps))
	assert.Nil(t, err)

	raw := <-observer
	assert.Equal(t, report.JobID, raw.JobID)
	assert.Equal(t, 1000, raw.Shots)
}

func TestRunStampsGroupOnWriteBack(t *testing.T) {
	amps := common.Linspace(0, 0.3, 61)
	backend := setupMock(t, rabiProb(amps, map[string]float64{"a": 0.08}))
	store := paramstore.NewStore()
	runner, err := NewRunner(backend, store)
	assert.Nil(t, err)

	exp := rabiSweep(t, "a", amps)
	exp.Group = "nightly"
	exp.Updates = func(results map[string]*analysis.FitResult) ([]paramstore.Record, error) {
		return []paramstore.Record{
			{Scope: "ab12cd", Name: "xp.amp", Value: core.FloatValue(results["default"].Params[1])},
		}, nil
	}
	report, err := runner.Run(context.Background(), exp)
	assert.Nil(t, err)
	assert.Equal(t, 1, len(report.RecordIndices))

	rec, err := store.GetRecord(report.RecordIndices[0])
	assert.Nil(t, err)
	assert.Equal(t, "nightly", rec.Group)
	assert.Equal(t, report.ExpID, rec.ExpID)

	// the nightly record stays invisible to default-group lookups
	_, err = store.Get("ab12cd", "xp.amp")
	assert.True(t, core.IsKind(err, core.ErrScope))
}

func TestBatchQueueFIFO(t *testing.T) {
	q := NewBatchQueue(2)

	assert.Nil(t, q.Enqueue(&Batch{ExpID: "a"}))
	assert.Nil(t, q.Enqueue(&Batch{ExpID: "b"}))
	assert.Equal(t, 2, q.Len())

	err := q.Enqueue(&Batch{ExpID: "c"})
	assert.EqualError(t, err, "batch queue is full (max 2)")

	first, err := q.Dequeue()
	assert.Nil(t, err)
	assert.Equal(t, "a", first.ExpID)
	second, err := q.Dequeue()
	assert.Nil(t, err)
	assert.Equal(t, "b", second.ExpID)
	assert.Equal(t, 0, q.Len())
}
