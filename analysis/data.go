package analysis

import (
	"fmt"
	"sort"

	"github.com/oqtopus-team/calibration-engine/core"
)

// Outcome is one processed program result joined with its metadata.
type Outcome struct {
	Metadata *core.Metadata
	Y        float64
}

// DataVector groups outcomes into per-series sorted (x, y) arrays keyed by
// the swept parameter.
type DataVector struct {
	XKey string
	X    map[string][]float64
	Y    map[string][]float64
}

const defaultSeries = "default"

// CreateDataVector joins outcomes on their x value and series label. Every
// outcome must carry the swept parameter in its metadata.
func CreateDataVector(xKey string, outcomes []Outcome) (*DataVector, error) {
	type point struct {
		x, y float64
	}
	bySeries := make(map[string][]point)
	for _, o := range outcomes {
		x, ok := o.Metadata.XValues[xKey]
		if !ok {
			return nil, fmt.Errorf("outcome of %s has no x value %q", o.Metadata.Name, xKey)
		}
		series := o.Metadata.Series
		if series == "" {
			series = defaultSeries
		}
		bySeries[series] = append(bySeries[series], point{x: x, y: o.Y})
	}
	if len(bySeries) == 0 {
		return nil, fmt.Errorf("no outcomes to vectorize for %q", xKey)
	}

	dv := &DataVector{
		XKey: xKey,
		X:    make(map[string][]float64, len(bySeries)),
		Y:    make(map[string][]float64, len(bySeries)),
	}
	for series, points := range bySeries {
		sort.SliceStable(points, func(i, j int) bool { return points[i].x < points[j].x })
		xs := make([]float64, len(points))
		ys := make([]float64, len(points))
		for i, p := range points {
			xs[i] = p.x
			ys[i] = p.y
		}
		dv.X[series] = xs
		dv.Y[series] = ys
	}
	return dv, nil
}

// Aligned returns the shared x grid and the per-series y arrays. Series
// swept over different grids cannot be fitted together.
func (dv *DataVector) Aligned() ([]float64, map[string][]float64, error) {
	var ref []float64
	var refSeries string
	for series, xs := range dv.X {
		if ref == nil {
			ref = xs
			refSeries = series
			continue
		}
		if len(xs) != len(ref) {
			return nil, nil, fmt.Errorf("series %s and %s have different sweep lengths", series, refSeries)
		}
		for i := range xs {
			if xs[i] != ref[i] {
				return nil, nil, fmt.Errorf("series %s and %s are swept over different grids", series, refSeries)
			}
		}
	}
	return ref, dv.Y, nil
}
