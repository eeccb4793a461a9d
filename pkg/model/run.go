package model

import "time"

// RunState represents the lifecycle state of a whole run.
type RunState string

const (
	RunStateLoaded       RunState = "LOADED"
	RunStateTimeResolved RunState = "TIME_RESOLVED"
	RunStateRunning      RunState = "RUNNING"
	RunStateDone         RunState = "DONE"
	RunStateFailed       RunState = "FAILED"
)

// String returns the string representation of the run state.
func (s RunState) String() string {
	return string(s)
}

// IsTerminal returns true if the run is in a final state.
func (s RunState) IsTerminal() bool {
	return s == RunStateDone || s == RunStateFailed
}

// StepState represents the per-timestamp pipeline state.
type StepState string

const (
	StepStatePending         StepState = "PENDING"
	StepStateExpanded        StepState = "EXPANDED"
	StepStateNamelistWritten StepState = "NAMELIST_WRITTEN"
	StepStateDescriptorBuilt StepState = "DESCRIPTOR_BUILT"
	StepStateEmitted         StepState = "EMITTED"
	StepStateFailed          StepState = "FAILED"
)

// String returns the string representation of the step state.
func (s StepState) String() string {
	return string(s)
}

// Run is one orchestrated pass over a workflow descriptor.
type Run struct {
	ID             string     `json:"id"`
	DescriptorPath string     `json:"descriptor_path"`
	State          RunState   `json:"state"`
	Timestamps     int        `json:"timestamps"`
	Succeeded      int        `json:"succeeded"`
	Failed         int        `json:"failed"`
	Skipped        int        `json:"skipped"`
	CreatedAt      time.Time  `json:"created_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

// StepResult is the outcome of one timestamp's pipeline.
type StepResult struct {
	Timestamp       time.Time            `json:"timestamp"`
	State           StepState            `json:"state"`
	ErrorKind       ErrorKind            `json:"error_kind,omitempty"`
	Error           string               `json:"error,omitempty"`
	NamelistPath    string               `json:"namelist_path,omitempty"`
	NamelistSkipped bool                 `json:"namelist_skipped,omitempty"`
	Descriptor      *ExecutionDescriptor `json:"descriptor,omitempty"`
	Record          ConfigurationRecord  `json:"record,omitempty"`
}

// Report aggregates the per-timestamp outcomes of one run, in timestamp order.
type Report struct {
	RunID   string       `json:"run_id"`
	Results []StepResult `json:"results"`
}

// Summarize counts terminal step states into the run record.
func (r *Report) Summarize(run *Run) {
	run.Timestamps = len(r.Results)
	run.Succeeded, run.Failed, run.Skipped = 0, 0, 0
	for _, res := range r.Results {
		switch {
		case res.State == StepStateFailed:
			run.Failed++
		case res.NamelistSkipped:
			run.Skipped++
			run.Succeeded++
		default:
			run.Succeeded++
		}
	}
	if run.Failed > 0 {
		run.State = RunStateFailed
	} else {
		run.State = RunStateDone
	}
}

// Failures returns the failed step results.
func (r *Report) Failures() []StepResult {
	var out []StepResult
	for _, res := range r.Results {
		if res.State == StepStateFailed {
			out = append(out, res)
		}
	}
	return out
}
