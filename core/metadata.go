package core

import (
	"github.com/mohae/deepcopy"
	"go.uber.org/zap"
)

// Metadata ties a submitted program to its calibration analysis. It is the
// join key between raw backend results and the fitting stage.
type Metadata struct {
	Name              string             `json:"name"`
	PulseScheduleName string             `json:"pulse_schedule_name"`
	XValues           map[string]float64 `json:"x_values"`
	Series            string             `json:"series"`
	ExpID             string             `json:"exp_id"`
	Qubits            []int              `json:"qubits"`
	RegisterMap       map[int]int        `json:"register_map"` // qubit index -> classical bit index
}

func (m *Metadata) Clone() *Metadata {
	return deepcopy.Copy(m).(*Metadata)
}

func (m *Metadata) String() string {
	st, err := jsonIter.Marshal(m)
	if err != nil {
		zap.L().Error("Failed to marshal core.Metadata")
		return ""
	}
	return string(st)
}

// ToDict exports the subset of fields persisted alongside each program.
func (m *Metadata) ToDict() map[string]interface{} {
	return map[string]interface{}{
		"name":                m.Name,
		"series":              m.Series,
		"x_values":            m.XValues,
		"pulse_schedule_name": m.PulseScheduleName,
	}
}
