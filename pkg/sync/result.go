package sync

import (
	"fmt"
	"strings"
	"time"

	"github.com/agentstation/lithic/pkg/errors"
)

// State is a source's position in the run.
type State string

// Source states. A source moves forward through pending, cloned, generated
// and normalized, then ends published or verified. Failed is reachable from
// any non-terminal state and is itself terminal.
const (
	StatePending    State = "pending"
	StateCloned     State = "cloned"
	StateGenerated  State = "generated"
	StateNormalized State = "normalized"
	StatePublished  State = "published"
	StateVerified   State = "verified"
	StateFailed     State = "failed"
)

var next = map[State][]State{
	StatePending:    {StateCloned},
	StateCloned:     {StateGenerated},
	StateGenerated:  {StateNormalized},
	StateNormalized: {StatePublished, StateVerified},
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StatePublished || s == StateVerified || s == StateFailed
}

// CanTransition reports whether from may move to to.
func CanTransition(from, to State) bool {
	if from.Terminal() {
		return false
	}
	if to == StateFailed {
		return true
	}
	for _, s := range next[from] {
		if s == to {
			return true
		}
	}
	return false
}

// SourceResult tracks one source through a run.
type SourceResult struct {
	Name   string
	Input  string
	Repo   string
	Branch string
	Output string

	State State
	// Stage is the state the source was leaving when it failed.
	Stage string
	Err   error

	RepoPath   string // checkout used
	ScratchDir string // root of the source's generated output
	Duration   time.Duration
}

// Transition moves the source to state to.
func (r *SourceResult) Transition(to State) error {
	if !CanTransition(r.State, to) {
		return fmt.Errorf("source %s: invalid transition %s -> %s", r.Name, r.State, to)
	}
	r.State = to
	return nil
}

// Fail records err and moves the source to StateFailed.
func (r *SourceResult) Fail(stage string, err error) {
	if r.State.Terminal() {
		return
	}
	r.Stage = stage
	r.Err = err
	r.State = StateFailed
}

// UnitResult is the reconcile outcome for one output location.
type UnitResult struct {
	Output  string
	Sources []string
	Outcome string
	Files   int
}

// Result represents the complete result of a run.
type Result struct {
	Mode     Mode
	Sources  []*SourceResult
	Units    []UnitResult
	Findings []*errors.ReconciliationError

	StartedAt time.Time
	Duration  time.Duration
}

// Count returns how many sources are in state s.
func (r *Result) Count(s State) int {
	n := 0
	for _, src := range r.Sources {
		if src.State == s {
			n++
		}
	}
	return n
}

// Failed returns the sources that failed.
func (r *Result) Failed() []*SourceResult {
	var out []*SourceResult
	for _, src := range r.Sources {
		if src.State == StateFailed {
			out = append(out, src)
		}
	}
	return out
}

// Succeeded reports whether every source finished and reconciliation found nothing.
func (r *Result) Succeeded() bool {
	return len(r.Failed()) == 0 && len(r.Findings) == 0
}

// Errors returns every individual failure: source errors first, then findings.
func (r *Result) Errors() []error {
	var errs []error
	for _, src := range r.Failed() {
		errs = append(errs, errors.NewSourceError(src.Name, src.Stage, src.Err))
	}
	for _, f := range r.Findings {
		errs = append(errs, f)
	}
	return errs
}

// Summary returns a human-readable summary of the run.
func (r *Result) Summary() string {
	done := StateVerified
	if r.Mode == ModePublish {
		done = StatePublished
	}

	parts := []string{fmt.Sprintf("%d/%d sources %s", r.Count(done), len(r.Sources), done)}
	if n := r.Count(StateFailed); n > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", n))
	}
	if n := len(r.Findings); n > 0 {
		parts = append(parts, fmt.Sprintf("%d reconciliation errors", n))
	}
	return strings.Join(parts, ", ")
}
