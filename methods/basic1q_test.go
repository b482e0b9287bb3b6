//go:build unit
// +build unit

package methods

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/oqtopus-team/calibration-engine/common"
	"github.com/oqtopus-team/calibration-engine/core"
	"github.com/oqtopus-team/calibration-engine/exec"
	"github.com/oqtopus-team/calibration-engine/instdef"
	"github.com/oqtopus-team/calibration-engine/paramstore"
	"github.com/oqtopus-team/calibration-engine/scope"
)

type fixture struct {
	store  *paramstore.Store
	scopes *scope.Resolver
	reg    *instdef.Registry
	basic  *Basic1Q
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	scopes := scope.NewResolver(core.NewChannelSetting())
	store := paramstore.NewStore()
	reg := instdef.NewRegistry(store, scopes)
	return &fixture{
		store:  store,
		scopes: scopes,
		reg:    reg,
		basic:  NewBasic1Q(store, scopes, reg),
	}
}

func newRunner(t *testing.T, prob func(core.RunnableProgram) float64, store *paramstore.Store) *exec.Runner {
	t.Helper()
	backend := exec.NewMockBackend(prob)
	conf, err := core.NewConf()
	assert.Nil(t, err)
	assert.Nil(t, backend.Setup(conf))
	runner, err := exec.NewRunner(backend, store)
	assert.Nil(t, err)
	return runner
}

func TestRoughAmplitudeRequiresDefinition(t *testing.T) {
	f := newFixture(t)
	_, err := f.basic.RoughAmplitude(0, []float64{0.1}, 100)
	assert.EqualError(t, err, "instruction xp is not defined on qubits 0")
	assert.True(t, core.IsKind(err, core.ErrConfig))
}

func TestRoughAmplitudeCalibratesPiPulse(t *testing.T) {
	f := newFixture(t)
	assert.Nil(t, f.reg.DefinePulse("xp", []int{0}, "%xp(d0,gaus)", map[string]float64{
		"xp.duration": 160,
		"xp.sigma":    40,
	}))

	amps := common.Linspace(0, 0.3, 61)
	// a qubit whose pi rotation sits at amp 0.08
	piAmp := 0.08
	prob := func(prog core.RunnableProgram) float64 {
		var q, i int
		_, err := fmt.Sscanf(prog.ProgramName(), RoughAmplitudeName+"_q%d_%d", &q, &i)
		assert.Nil(t, err)
		return 0.5 - 0.5*math.Cos(math.Pi*amps[i]/piAmp)
	}
	runner := newRunner(t, prob, f.store)

	experiment, err := f.basic.RoughAmplitude(0, amps, 1000)
	assert.Nil(t, err)
	report, err := runner.Run(context.Background(), experiment)
	assert.Nil(t, err)
	assert.NotEmpty(t, report.ExpID)
	assert.NotNil(t, report.Results["default"])
	assert.Equal(t, 1, len(report.RecordIndices))

	// the calibrated amp lands in the store, scoped to xp on q0
	scopeID, err := f.scopes.Resolve("xp", []int{0})
	assert.Nil(t, err)
	got, err := f.store.Get(scopeID, "xp.amp")
	assert.Nil(t, err)
	fitted, err := got.Float()
	assert.Nil(t, err)
	assert.True(t, core.AlmostEqual(fitted, piAmp, 1e-3), "amp %g", fitted)

	// the next compiled schedule picks up the calibrated amp
	sched, err := f.reg.GetSchedule("xp", []int{0}, nil)
	assert.Nil(t, err)
	assert.Equal(t, 0, len(sched.Parameters()))
	assert.Equal(t, 160, sched.Duration())

	rec, err := f.store.GetRecord(report.RecordIndices[0])
	assert.Nil(t, err)
	assert.Equal(t, report.ExpID, rec.ExpID)
	assert.Equal(t, core.NONE, rec.Validation)
}

func TestRoughSpectroscopyFindsResonance(t *testing.T) {
	f := newFixture(t)
	assert.Nil(t, f.reg.DefinePulse("spec", []int{0}, "%spec(d0,gaus)", map[string]float64{
		"spec.duration": 640,
		"spec.amp":      0.01,
		"spec.sigma":    160,
	}))

	offsets := common.Linspace(-1e7, 1e7, 41)
	center, width := 1.5e6, 2e6
	prob := func(prog core.RunnableProgram) float64 {
		var q, i int
		_, err := fmt.Sscanf(prog.ProgramName(), RoughSpectroscopyName+"_q%d_%d", &q, &i)
		assert.Nil(t, err)
		d := offsets[i] - center
		return 0.5 + 0.4*math.Exp(-d*d/(2*width*width))
	}
	runner := newRunner(t, prob, f.store)

	experiment, err := f.basic.RoughSpectroscopy(0, offsets, 1000)
	assert.Nil(t, err)
	report, err := runner.Run(context.Background(), experiment)
	assert.Nil(t, err)

	result := report.Results["default"]
	assert.NotNil(t, result)
	assert.True(t, core.AlmostEqual(result.Params[1], center, 1e5),
		"center %g", result.Params[1])

	scopeID, err := f.scopes.Resolve("spec", []int{0})
	assert.Nil(t, err)
	got, err := f.store.Get(scopeID, "freq")
	assert.Nil(t, err)
	fitted, err := got.Float()
	assert.Nil(t, err)
	assert.True(t, core.AlmostEqual(fitted, center, 1e5))
}

func TestRoughSpectroscopyRequiresDefinition(t *testing.T) {
	f := newFixture(t)
	_, err := f.basic.RoughSpectroscopy(0, []float64{0}, 100)
	assert.EqualError(t, err, "instruction spec is not defined on qubits 0")
}
