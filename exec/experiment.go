package exec

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/oqtopus-team/calibration-engine/analysis"
	"github.com/oqtopus-team/calibration-engine/core"
	"github.com/oqtopus-team/calibration-engine/paramstore"
	"github.com/oqtopus-team/calibration-engine/workflow"
)

// Experiment describes one calibration run: how to generate the swept
// programs, how to process their results, what to fit, and which parameters
// to write back.
type Experiment struct {
	Name  string
	XKey  string
	Shots int
	Chain *workflow.Chain
	Model analysis.Model

	// Group is the calibration group written-back records belong to. Empty
	// means the default group.
	Group string

	// Generate produces the program batch and per-program metadata carrying
	// the swept x values.
	Generate func(expID string) ([]core.RunnableProgram, []*core.Metadata, error)

	// Updates maps the fit results to parameter records. Optional; an
	// experiment without updates only reports.
	Updates func(results map[string]*analysis.FitResult) ([]paramstore.Record, error)
}

// Report is the outcome of one experiment run.
type Report struct {
	ExpID         string
	JobID         string
	Results       map[string]*analysis.FitResult
	RecordIndices []int
}

// Runner executes experiments against a backend and writes calibrated values
// back to the store.
type Runner struct {
	backend core.Backend
	store   *paramstore.Store
	queue   *BatchQueue
	engine  *analysis.Engine
	metrics *Metrics
	results core.ResultChan
}

func NewRunner(backend core.Backend, store *paramstore.Store) (*Runner, error) {
	metrics, err := NewMetrics()
	if err != nil {
		return nil, err
	}
	return &Runner{
		backend: backend,
		store:   store,
		queue:   NewBatchQueue(0),
		engine:  analysis.NewEngine(),
		metrics: metrics,
	}, nil
}

// PublishResults wires an observer channel that receives every raw result.
// The observer must drain the channel; submission blocks until it does.
func (r *Runner) PublishResults(ch core.ResultChan) {
	r.results = ch
}

// Run executes a single experiment.
func (r *Runner) Run(ctx context.Context, exp *Experiment) (*Report, error) {
	reports, err := r.RunMany(ctx, []*Experiment{exp})
	if err != nil {
		return nil, err
	}
	return reports[0], nil
}

// RunMany enqueues the batches of several experiments, then drains the queue
// in arrival order. A failed experiment leaves a nil report in its slot; the
// combined error names every failure.
func (r *Runner) RunMany(ctx context.Context, exps []*Experiment) ([]*Report, error) {
	reports := make([]*Report, len(exps))
	slots := make(map[string]int, len(exps))
	var runErr error
	enqueued := 0
	for i, exp := range exps {
		batch, err := r.prepare(exp)
		if err != nil {
			runErr = multierr.Append(runErr, err)
			continue
		}
		if err := r.queue.Enqueue(batch); err != nil {
			runErr = multierr.Append(runErr, err)
			continue
		}
		slots[batch.ExpID] = i
		enqueued++
	}

	for n := 0; n < enqueued; n++ {
		batch, err := r.queue.DequeueOrWait()
		if err != nil {
			runErr = multierr.Append(runErr, err)
			break
		}
		report, err := r.process(ctx, batch)
		if err != nil {
			runErr = multierr.Append(runErr, err)
			continue
		}
		reports[slots[batch.ExpID]] = report
	}
	return reports, runErr
}

// prepare validates an experiment, generates its programs and wraps them
// into a queueable batch.
func (r *Runner) prepare(exp *Experiment) (*Batch, error) {
	if exp.Chain == nil || exp.Model == nil || exp.Generate == nil {
		return nil, core.NewConfigError(fmt.Sprintf("experiment %s is underspecified", exp.Name))
	}
	if exp.Shots <= 0 {
		return nil, core.NewConfigError(fmt.Sprintf("experiment %s has no shots", exp.Name))
	}

	level, err := exp.Chain.MeasLevel()
	if err != nil {
		return nil, err
	}
	ret := exp.Chain.MeasReturn()

	expID := uuid.NewString()
	programs, mds, err := exp.Generate(expID)
	if err != nil {
		return nil, err
	}
	if len(programs) != len(mds) {
		return nil, core.NewConfigError(
			fmt.Sprintf("experiment %s generated %d programs with %d metadata entries",
				exp.Name, len(programs), len(mds)))
	}
	for _, md := range mds {
		if md.ExpID == "" {
			md.ExpID = expID
		}
	}

	return &Batch{
		Req: &core.RunRequest{
			Programs:   programs,
			Shots:      exp.Shots,
			MeasLevel:  level,
			MeasReturn: ret,
		},
		Metadata: mds,
		ExpID:    expID,
		exp:      exp,
	}, nil
}

// process submits a batch, formats and fits its results, and applies the
// write-back of the owning experiment.
func (r *Runner) process(ctx context.Context, batch *Batch) (*Report, error) {
	exp := batch.exp

	raw, err := r.backend.Submit(ctx, batch.Req)
	if err != nil {
		zap.L().Error(fmt.Sprintf("failed to submit batch of %s/reason:%s", exp.Name, err))
		return nil, err
	}
	r.metrics.AddBatch(ctx)
	if r.results != nil {
		select {
		case r.results <- raw:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	outcomes := make([]analysis.Outcome, 0, len(batch.Metadata))
	var formatErr error
	for i, md := range batch.Metadata {
		result, err := raw.Get(i)
		if err != nil {
			formatErr = multierr.Append(formatErr, err)
			continue
		}
		y, err := exp.Chain.Format(result, md, raw.Shots)
		if err != nil {
			formatErr = multierr.Append(formatErr, err)
			continue
		}
		outcomes = append(outcomes, analysis.Outcome{Metadata: md, Y: y})
	}
	if formatErr != nil {
		zap.L().Error(fmt.Sprintf("failed to format result(s) of %s/reason:%s", exp.Name, formatErr))
		return nil, formatErr
	}

	dv, err := analysis.CreateDataVector(exp.XKey, outcomes)
	if err != nil {
		return nil, err
	}
	x, ySeries, err := dv.Aligned()
	if err != nil {
		return nil, err
	}
	results, err := r.engine.Run(x, ySeries, exp.Model)
	if err != nil {
		return nil, err
	}
	var failed int64
	for _, result := range results {
		if result == nil {
			failed++
		}
	}
	r.metrics.AddFailedFits(ctx, failed)

	report := &Report{ExpID: batch.ExpID, JobID: raw.JobID, Results: results}
	if exp.Updates != nil && failed == 0 {
		records, err := exp.Updates(results)
		if err != nil {
			return nil, err
		}
		for _, rec := range records {
			rec.ExpID = batch.ExpID
			if rec.Group == "" {
				rec.Group = exp.Group
			}
			index, err := r.store.Set(rec)
			if err != nil {
				return nil, err
			}
			report.RecordIndices = append(report.RecordIndices, index)
		}
	}
	return report, nil
}
