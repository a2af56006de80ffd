package reconcile

import (
	"path/filepath"
	"strings"

	"github.com/agentstation/lithic/pkg/constants"
	"github.com/agentstation/lithic/pkg/errors"
)

// Outcome is the result of reconciling one unit.
type Outcome string

// Unit outcomes.
const (
	OutcomePublished Outcome = "published"
	OutcomeVerified  Outcome = "verified"
	OutcomeDrift     Outcome = "drift"
	OutcomeWithheld  Outcome = "withheld"
	OutcomeFailed    Outcome = "failed"
)

// UnitReport describes what happened to one unit.
type UnitReport struct {
	Output  string
	Sources []string
	Outcome Outcome
	// Files is the number of generated files published or compared.
	Files  int
	Errors []*errors.ReconciliationError
}

// Report is the outcome of a publish or verify pass.
type Report struct {
	Units  []UnitReport
	Errors []*errors.ReconciliationError
}

func (r *Report) add(ur UnitReport) {
	r.Units = append(r.Units, ur)
	r.Errors = append(r.Errors, ur.Errors...)
}

// OK reports whether the pass found nothing wrong.
func (r *Report) OK() bool {
	return len(r.Errors) == 0
}

// Err joins every finding, or returns nil.
func (r *Report) Err() error {
	if r.OK() {
		return nil
	}
	errs := make([]error, len(r.Errors))
	for i, e := range r.Errors {
		errs[i] = e
	}
	return errors.Join(errs...)
}

// Unit returns the report for output, if any.
func (r *Report) Unit(output string) (UnitReport, bool) {
	output = filepath.Clean(output)
	for _, u := range r.Units {
		if u.Output == output {
			return u, true
		}
	}
	return UnitReport{}, false
}

// Reconciler publishes or verifies units against a module root.
type Reconciler struct {
	root         string
	contextLines int
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithContextLines sets the number of context lines in drift diffs.
func WithContextLines(n int) Option {
	return func(r *Reconciler) {
		if n >= 0 {
			r.contextLines = n
		}
	}
}

// New creates a Reconciler for the module tree at root.
func New(root string, opts ...Option) *Reconciler {
	if root == "" {
		root = "."
	}
	r := &Reconciler{root: root, contextLines: constants.DiffContextLines}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Root returns the module root.
func (r *Reconciler) Root() string {
	return r.root
}

func (r *Reconciler) location(output string) string {
	return filepath.Join(r.root, output)
}

func incomplete(u Unit) *errors.ReconciliationError {
	return &errors.ReconciliationError{
		Kind:    errors.KindIncomplete,
		Output:  u.Output,
		Sources: u.Failed,
	}
}

// nested returns the locations of other units that live inside u, relative
// to u. Their files belong to those units, not to u.
func nested(u Unit, units []Unit) map[string]bool {
	inner := make(map[string]bool)
	prefix := u.Output + string(filepath.Separator)
	for _, o := range units {
		if strings.HasPrefix(o.Output, prefix) {
			rel, _ := filepath.Rel(u.Output, o.Output)
			inner[filepath.ToSlash(rel)] = true
		}
	}
	return inner
}
