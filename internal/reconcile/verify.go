package reconcile

import (
	"bytes"
	"context"
	"os"
	"path"
	"path/filepath"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/agentstation/lithic/pkg/errors"
	"github.com/agentstation/lithic/pkg/logging"
)

// Verify checks that each unit's output location holds exactly the files
// its sources generated, byte for byte.
//
// For every unit the set of files on disk is captured before any
// comparison. Each generated file is compared with the file at the same
// relative path: a difference is drift, an absent file is missing. Files
// left in the captured set afterwards were not produced by this run and are
// reported as extra. A unit with failed sources is verified for the sources
// that succeeded and also reported as incomplete.
func (r *Reconciler) Verify(ctx context.Context, units []Unit) *Report {
	report := &Report{}
	for _, u := range units {
		if err := ctx.Err(); err != nil {
			report.add(UnitReport{
				Output:  u.Output,
				Sources: u.Sources(),
				Outcome: OutcomeFailed,
				Errors:  []*errors.ReconciliationError{{Kind: errors.KindIO, Output: u.Output, Err: err}},
			})
			continue
		}
		report.add(r.verifyUnit(ctx, u, units))
	}
	return report
}

func (r *Reconciler) verifyUnit(ctx context.Context, u Unit, units []Unit) UnitReport {
	log := logging.FromContext(ctx).With().Str(logging.FieldOutput, u.Output).Logger()
	ur := UnitReport{Output: u.Output, Sources: u.Sources(), Outcome: OutcomeVerified}
	fail := func(e *errors.ReconciliationError) {
		log.Error().Msg(e.Error())
		ur.Errors = append(ur.Errors, e)
	}

	dst := r.location(u.Output)
	onDisk, err := listFiles(dst, nested(u, units))
	if err != nil {
		fail(&errors.ReconciliationError{Kind: errors.KindIO, Output: u.Output, Err: err})
		ur.Outcome = OutcomeFailed
		return ur
	}
	remaining := make(map[string]bool, len(onDisk))
	for _, f := range onDisk {
		remaining[f] = true
	}

	for _, res := range u.Results {
		generated, err := listFiles(res.Dir, nil)
		if err != nil {
			fail(&errors.ReconciliationError{Kind: errors.KindIO, Output: u.Output, Sources: []string{res.Source}, Err: err})
			continue
		}
		for _, rel := range generated {
			ur.Files++
			finding := r.compare(u.Output, res, rel)
			if finding != nil {
				fail(finding)
			} else {
				log.Debug().Str(logging.FieldPath, rel).Msg("Schema is up to date")
			}
			if finding == nil || finding.Kind == errors.KindDrift {
				delete(remaining, rel)
			}
		}
	}

	for _, f := range onDisk {
		if remaining[f] {
			fail(&errors.ReconciliationError{Kind: errors.KindExtra, Output: u.Output, Path: f})
		}
	}

	// Failed sources are reported, but the members that succeeded still
	// count as verified when their files match.
	if len(ur.Errors) > 0 {
		ur.Outcome = OutcomeDrift
	}
	if !u.Complete() {
		fail(incomplete(u))
	}
	return ur
}

// compare checks one generated file against its on-disk counterpart.
func (r *Reconciler) compare(output string, res Result, rel string) *errors.ReconciliationError {
	genPath := filepath.Join(res.Dir, filepath.FromSlash(rel))
	diskPath := filepath.Join(r.location(output), filepath.FromSlash(rel))

	want, err := os.ReadFile(genPath)
	if err != nil {
		return &errors.ReconciliationError{Kind: errors.KindIO, Output: output, Path: rel, Sources: []string{res.Source}, Err: errors.WrapIO("read", genPath, err)}
	}
	got, err := os.ReadFile(diskPath)
	if err != nil {
		if os.IsNotExist(err) {
			return &errors.ReconciliationError{Kind: errors.KindMissing, Output: output, Path: rel, Sources: []string{res.Source}}
		}
		return &errors.ReconciliationError{Kind: errors.KindIO, Output: output, Path: rel, Sources: []string{res.Source}, Err: errors.WrapIO("read", diskPath, err)}
	}
	if bytes.Equal(want, got) {
		return nil
	}

	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(want)),
		B:        difflib.SplitLines(string(got)),
		FromFile: path.Join("generated", output, rel),
		ToFile:   path.Join(filepath.ToSlash(output), rel),
		Context:  r.contextLines,
	})
	if err != nil {
		diff = ""
	}
	return &errors.ReconciliationError{
		Kind:    errors.KindDrift,
		Output:  output,
		Path:    rel,
		Diff:    diff,
		Sources: []string{res.Source},
	}
}
