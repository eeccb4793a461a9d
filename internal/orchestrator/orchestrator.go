// Package orchestrator drives the run pipeline: generate the timestamp
// sequence once, then for each timestamp resolve variables, format them,
// expand templates, write the namelist, and build the execution descriptor.
// Timestamps are independent (disjoint variable mappings and output paths),
// so they run on a bounded worker pool; results are reported in timestamp
// order and one timestamp's failure never aborts the rest.
package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/c-hydro/shybox/internal/execdesc"
	"github.com/c-hydro/shybox/internal/expand"
	"github.com/c-hydro/shybox/internal/namelist"
	"github.com/c-hydro/shybox/internal/resolver"
	"github.com/c-hydro/shybox/internal/store"
	"github.com/c-hydro/shybox/internal/timeseq"
	"github.com/c-hydro/shybox/pkg/descriptor"
	"github.com/c-hydro/shybox/pkg/model"
)

// Orchestrator owns the descriptor for the duration of one run.
type Orchestrator struct {
	doc            *descriptor.Document
	descriptorPath string
	logger         *slog.Logger
	env            map[string]string
	workers        int
	runTime        *time.Time
	store          store.Store
}

// Option configures optional Orchestrator dependencies.
type Option func(*Orchestrator)

// WithEnvironment injects the process environment consulted by the
// descriptor's environment lut entries.
func WithEnvironment(env map[string]string) Option {
	return func(o *Orchestrator) {
		o.env = env
	}
}

// WithWorkers bounds the timestamp worker pool. Zero or negative means
// sequential processing.
func WithWorkers(n int) Option {
	return func(o *Orchestrator) {
		o.workers = n
	}
}

// WithRunTime overrides the descriptor's start bound with a command-line
// run time, which takes precedence over the document value.
func WithRunTime(t time.Time) Option {
	return func(o *Orchestrator) {
		o.runTime = &t
	}
}

// WithStore persists the run and its configuration records for provenance.
func WithStore(st store.Store) Option {
	return func(o *Orchestrator) {
		o.store = st
	}
}

// WithDescriptorPath records where the descriptor was loaded from.
func WithDescriptorPath(path string) Option {
	return func(o *Orchestrator) {
		o.descriptorPath = path
	}
}

// New creates an Orchestrator for one descriptor.
func New(doc *descriptor.Document, logger *slog.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		doc:     doc,
		logger:  logger.With("component", "orchestrator"),
		env:     map[string]string{},
		workers: 1,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes the whole pipeline and returns the run record and the
// per-timestamp report, ordered by sequence position. The returned error is
// non-nil only for run-level failures (bad time spec, storage); individual
// timestamp failures are carried in the report.
func (o *Orchestrator) Run(ctx context.Context) (*model.Run, *model.Report, error) {
	run := &model.Run{
		ID:             uuid.NewString(),
		DescriptorPath: o.descriptorPath,
		State:          model.RunStateLoaded,
		CreatedAt:      time.Now().UTC(),
	}

	spec, err := o.timeSpec()
	if err != nil {
		return run, nil, err
	}
	sequence, err := spec.Generate()
	if err != nil {
		return run, nil, err
	}
	run.State = model.RunStateTimeResolved
	o.logger.Info("time sequence resolved", "run_id", run.ID, "timestamps", len(sequence))

	if o.store != nil {
		if err := o.store.CreateRun(ctx, run); err != nil {
			return run, nil, err
		}
	}

	run.State = model.RunStateRunning
	report := &model.Report{RunID: run.ID, Results: make([]model.StepResult, len(sequence))}

	pool := newWorkerSlots(o.workers)
	var wg sync.WaitGroup
	for i, ts := range sequence {
		if !pool.acquire(ctx) {
			break
		}
		wg.Add(1)
		go func(i int, ts time.Time) {
			defer wg.Done()
			defer pool.release()
			report.Results[i] = o.processTimestamp(ts, spec, sequence)
		}(i, ts)
	}
	wg.Wait()

	// Report in timestamp order regardless of worker completion order.
	for _, res := range report.Results {
		if res.State == model.StepStateFailed {
			o.logger.Error("timestamp failed",
				"timestamp", res.Timestamp.Format("2006-01-02 15:04"),
				"kind", res.ErrorKind.String(), "error", res.Error)
		} else {
			o.logger.Info("timestamp processed",
				"timestamp", res.Timestamp.Format("2006-01-02 15:04"),
				"state", res.State.String(), "namelist", res.NamelistPath)
		}
	}

	report.Summarize(run)
	now := time.Now().UTC()
	run.CompletedAt = &now

	if o.store != nil {
		for i := range report.Results {
			if err := o.store.CreateStepResult(ctx, run.ID, &report.Results[i]); err != nil {
				return run, report, err
			}
		}
		if err := o.store.UpdateRun(ctx, run); err != nil {
			return run, report, err
		}
	}

	o.logger.Info("run complete", "run_id", run.ID, "state", run.State.String(),
		"succeeded", run.Succeeded, "failed", run.Failed, "skipped", run.Skipped)
	return run, report, nil
}

// timeSpec normalizes the descriptor time block, applying the command-line
// run time and the deferred {time_end} bound where needed.
// TimeSequence resolves the descriptor time block and generates the
// timestamp sequence without processing any timestamp.
func (o *Orchestrator) TimeSequence() ([]time.Time, error) {
	spec, err := o.timeSpec()
	if err != nil {
		return nil, err
	}
	return spec.Generate()
}

func (o *Orchestrator) timeSpec() (timeseq.Spec, error) {
	spec, err := timeseq.FromBlock(o.doc.Time)
	if err != nil {
		return timeseq.Spec{}, err
	}
	if o.runTime != nil {
		spec = spec.WithStart(*o.runTime)
	}
	if spec.Start == nil {
		if t, ok := o.boundFromLut("time_start"); ok {
			spec = spec.WithStart(t)
		} else if t, ok := o.boundFromLut("time_run"); ok {
			spec = spec.WithStart(t)
		}
	}
	// A null end bound is deferred until variable resolution supplies a
	// concrete time_end; generation is re-entrant over the completed spec.
	if spec.End == nil && spec.Period == 0 {
		if t, ok := o.boundFromLut("time_end"); ok {
			spec = spec.WithEnd(t)
		}
	}
	if spec.Start == nil {
		return timeseq.Spec{}, model.ErrInvalidTimeSpec(
			"no concrete start: not in the time block, the variables, or the command line")
	}
	return spec, nil
}

// boundFromLut resolves a single time bound from the lut sources by
// priority, ignoring placeholders and null entries.
func (o *Orchestrator) boundFromLut(name string) (time.Time, bool) {
	for _, source := range o.doc.Settings.Priority {
		raw, ok := o.doc.Settings.Variables.Lut[source][name]
		if !ok || raw == nil {
			continue
		}
		s, ok := raw.(string)
		if !ok {
			continue
		}
		if source == resolver.EnvironmentSource {
			if v, found := o.env[s]; found {
				s = v
			}
		}
		if len(expand.References(s)) > 0 {
			continue
		}
		if t, err := timeseq.ParseTimestamp(s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// processTimestamp runs the per-timestamp pipeline. Each invocation owns its
// variable mapping and output paths exclusively.
func (o *Orchestrator) processTimestamp(ts time.Time, spec timeseq.Spec, sequence []time.Time) model.StepResult {
	res := model.StepResult{Timestamp: ts, State: model.StepStatePending}

	fail := func(err error) model.StepResult {
		res.State = model.StepStateFailed
		res.ErrorKind = model.KindOf(err)
		res.Error = err.Error()
		var verr *model.ValidationError
		if errors.As(err, &verr) {
			res.Error = verr.Error()
		}
		return res
	}

	r := resolver.New(o.doc.Settings.Variables, o.doc.Settings.Priority, o.logger,
		resolver.WithEnvironment(o.env))
	vars, err := r.Resolve(o.timeContext(ts, spec, sequence))
	if err != nil {
		return fail(err)
	}
	// Resolve covers the formatting and expansion stages: types are coerced
	// and placeholders substituted during the graph pass.
	res.State = model.StepStateExpanded

	if o.doc.Namelist != nil {
		gen := namelist.New(o.logger, o.doc.Settings.Flags.UpdateNamelist)
		nmlRes, err := gen.Generate(o.doc.Namelist, vars, ts)
		if err != nil {
			return fail(err)
		}
		res.NamelistPath = nmlRes.Path
		res.NamelistSkipped = nmlRes.Skipped
	}
	res.State = model.StepStateNamelistWritten

	if o.doc.Executable != nil {
		builder := execdesc.New(o.logger, o.doc.Settings.Flags.UpdateExecution)
		desc, err := builder.Build(o.doc.Executable, vars, ts)
		if err != nil {
			return fail(err)
		}
		res.Descriptor = desc
	}
	res.State = model.StepStateDescriptorBuilt

	record, err := o.buildRecord(vars, ts)
	if err != nil {
		return fail(err)
	}
	res.Record = record
	res.State = model.StepStateEmitted
	return res
}

// timeContext assembles the per-timestamp variables stamped into the
// resolution context: the iteration timestamp, the sequence bounds, the
// restart time, and the normalized period/frequency/rounding values.
func (o *Orchestrator) timeContext(ts time.Time, spec timeseq.Spec, sequence []time.Time) map[string]any {
	ctx := map[string]any{
		"time_run":       ts,
		"time_restart":   spec.Restart(ts),
		"time_period":    len(sequence),
		"time_frequency": spec.Frequency.Seconds(),
		"time_rounding":  spec.Rounding.Short(),
	}
	if len(sequence) > 0 {
		first, last := sequence[0], sequence[len(sequence)-1]
		if last.Before(first) {
			first, last = last, first
		}
		ctx["time_start"] = first
		ctx["time_end"] = last
	}
	return ctx
}

// buildRecord copies the resolved variables and appends the descriptor's
// literal pass-through fields; string pass-throughs holding placeholders are
// expanded against the variables.
func (o *Orchestrator) buildRecord(vars map[string]any, ts time.Time) (model.ConfigurationRecord, error) {
	record := make(model.ConfigurationRecord, len(vars)+len(o.doc.Configuration))
	for k, v := range vars {
		record[k] = v
	}
	for k, v := range o.doc.Configuration {
		s, ok := v.(string)
		if !ok {
			record[k] = v
			continue
		}
		expanded, err := expand.Braces(s, vars)
		if err != nil {
			return nil, err
		}
		record[k] = expand.DateTokens(expanded, ts)
	}
	return record, nil
}
