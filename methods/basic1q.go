package methods

import (
	"fmt"

	"github.com/oqtopus-team/calibration-engine/analysis"
	"github.com/oqtopus-team/calibration-engine/core"
	"github.com/oqtopus-team/calibration-engine/exec"
	"github.com/oqtopus-team/calibration-engine/instdef"
	"github.com/oqtopus-team/calibration-engine/paramstore"
	"github.com/oqtopus-team/calibration-engine/pulse"
	"github.com/oqtopus-team/calibration-engine/scope"
	"github.com/oqtopus-team/calibration-engine/workflow"
)

const (
	RoughAmplitudeName    = "rough_amplitude"
	RoughSpectroscopyName = "rough_spectroscopy"

	// xpGate is the single-qubit pi rotation calibrated by the amplitude scan.
	xpGate = "xp"
	// specGate is the weak probe pulse swept by the spectroscopy scan.
	specGate = "spec"
)

// Basic1Q builds the standard single-qubit calibration experiments on top of
// a registry of defined instructions.
type Basic1Q struct {
	store  *paramstore.Store
	scopes *scope.Resolver
	reg    *instdef.Registry
}

func NewBasic1Q(store *paramstore.Store, scopes *scope.Resolver, reg *instdef.Registry) *Basic1Q {
	return &Basic1Q{store: store, scopes: scopes, reg: reg}
}

// RoughAmplitude scans the xp pulse amplitude and fits the resulting Rabi
// oscillation. The written amp is the half-period of the fitted cosine, the
// amplitude of a pi rotation.
func (b *Basic1Q) RoughAmplitude(qubit int, amps []float64, shots int) (*exec.Experiment, error) {
	if !b.reg.Defined(xpGate, []int{qubit}) {
		return nil, core.NewConfigError(
			fmt.Sprintf("instruction %s is not defined on qubits %d", xpGate, qubit))
	}
	chain, err := workflow.NewChain(
		workflow.SystemKernel{},
		workflow.SystemDiscriminator{},
		workflow.Population{},
	)
	if err != nil {
		return nil, err
	}
	model := analysis.CosineModel{}
	freeAmp := fmt.Sprintf("%s.d%d.amp", xpGate, qubit)

	return &exec.Experiment{
		Name:  RoughAmplitudeName,
		XKey:  "amp",
		Shots: shots,
		Chain: chain,
		Model: model,
		Generate: func(expID string) ([]core.RunnableProgram, []*core.Metadata, error) {
			template, err := b.reg.GetSchedule(xpGate, []int{qubit}, []string{freeAmp})
			if err != nil {
				return nil, nil, err
			}
			programs := make([]core.RunnableProgram, 0, len(amps))
			mds := make([]*core.Metadata, 0, len(amps))
			for i, amp := range amps {
				bound := template.AssignParameters(map[string]complex128{
					freeAmp: complex(amp, 0),
				})
				bound.Name = fmt.Sprintf("%s_q%d_%03d", RoughAmplitudeName, qubit, i)
				programs = append(programs, bound)
				mds = append(mds, &core.Metadata{
					Name:              RoughAmplitudeName,
					PulseScheduleName: xpGate,
					XValues:           map[string]float64{"amp": amp},
					ExpID:             expID,
					Qubits:            []int{qubit},
					RegisterMap:       map[int]int{qubit: 0},
				})
			}
			return programs, mds, nil
		},
		Updates: func(results map[string]*analysis.FitResult) ([]paramstore.Record, error) {
			piAmp, err := analysis.PeriodFraction(0.5, results["default"], model)
			if err != nil {
				return nil, err
			}
			scopeID, err := b.scopes.Resolve(xpGate, []int{qubit})
			if err != nil {
				return nil, err
			}
			return []paramstore.Record{
				{Scope: scopeID, Name: fmt.Sprintf("%s.amp", xpGate), Value: core.FloatValue(piAmp)},
			}, nil
		},
	}, nil
}

// RoughSpectroscopy scans a frequency offset on the drive channel around the
// configured drive frequency and fits the resonance line. The written freq
// is the fitted offset of the line center.
func (b *Basic1Q) RoughSpectroscopy(qubit int, freqOffsets []float64, shots int) (*exec.Experiment, error) {
	if !b.reg.Defined(specGate, []int{qubit}) {
		return nil, core.NewConfigError(
			fmt.Sprintf("instruction %s is not defined on qubits %d", specGate, qubit))
	}
	chain, err := workflow.NewChain(
		workflow.SystemKernel{},
		workflow.RealNumbers{},
	)
	if err != nil {
		return nil, err
	}
	model := analysis.GaussianModel{}
	drive := pulse.Channel{Kind: pulse.DriveChannel, Index: qubit}

	return &exec.Experiment{
		Name:  RoughSpectroscopyName,
		XKey:  "freq",
		Shots: shots,
		Chain: chain,
		Model: model,
		Generate: func(expID string) ([]core.RunnableProgram, []*core.Metadata, error) {
			probe, err := b.reg.GetSchedule(specGate, []int{qubit}, nil)
			if err != nil {
				return nil, nil, err
			}
			programs := make([]core.RunnableProgram, 0, len(freqOffsets))
			mds := make([]*core.Metadata, 0, len(freqOffsets))
			for i, offset := range freqOffsets {
				sched := pulse.NewSchedule(
					fmt.Sprintf("%s_q%d_%03d", RoughSpectroscopyName, qubit, i))
				sched.ShiftFrequency(pulse.ConstFloat(offset), drive)
				sched.Append(probe)
				programs = append(programs, sched)
				mds = append(mds, &core.Metadata{
					Name:              RoughSpectroscopyName,
					PulseScheduleName: specGate,
					XValues:           map[string]float64{"freq": offset},
					ExpID:             expID,
					Qubits:            []int{qubit},
					RegisterMap:       map[int]int{qubit: 0},
				})
			}
			return programs, mds, nil
		},
		Updates: func(results map[string]*analysis.FitResult) ([]paramstore.Record, error) {
			result := results["default"]
			if result == nil {
				return nil, core.NewNotSupportedError("resonance fit failed")
			}
			scopeID, err := b.scopes.Resolve(specGate, []int{qubit})
			if err != nil {
				return nil, err
			}
			return []paramstore.Record{
				{Scope: scopeID, Name: "freq", Value: core.FloatValue(result.Params[1])},
			}, nil
		},
	}, nil
}
