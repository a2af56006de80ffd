package reconcile

import (
	"context"
	"os"
	"path/filepath"

	"github.com/agentstation/lithic/pkg/constants"
	"github.com/agentstation/lithic/pkg/errors"
	"github.com/agentstation/lithic/pkg/logging"
)

// Publish replaces each unit's output location with its generated trees.
//
// It runs in two phases over the whole batch. The clear phase removes every
// output location; the populate phase then assembles each unit in a staging
// directory beside its location and renames it into place. No unit is
// populated before every location has been cleared, so sources sharing a
// location never erase each other's files.
//
// A unit with failed sources is still published from the sources that
// succeeded and reported as incomplete. A unit in which every source failed
// has nothing to publish and is withheld; its current tree, including one
// nested inside another unit's location, is left untouched.
func (r *Reconciler) Publish(ctx context.Context, units []Unit) *Report {
	log := logging.FromContext(ctx)
	report := &Report{}

	reports := make([]UnitReport, len(units))
	ready := make([]bool, len(units))
	var held []Unit
	for i, u := range units {
		reports[i] = UnitReport{Output: u.Output, Sources: u.Sources()}
		if !u.Complete() {
			reports[i].Errors = append(reports[i].Errors, incomplete(u))
			log.Warn().
				Str(logging.FieldOutput, u.Output).
				Strs("failed", u.Failed).
				Msg("Publishing output without its failed sources")
		}
		if len(u.Results) == 0 {
			reports[i].Outcome = OutcomeWithheld
			held = append(held, u)
			continue
		}
		ready[i] = true
	}

	// Phase 1: clear.
	for i, u := range units {
		if !ready[i] {
			continue
		}
		dst := r.location(u.Output)
		log.Info().Str(logging.FieldOutput, u.Output).Msg("Deleting output")
		err := clearExcept(dst, nested(u, held))
		if err == nil {
			err = removeAll(dst + constants.StagingSuffix)
		}
		if err != nil {
			ready[i] = false
			reports[i].Outcome = OutcomeFailed
			reports[i].Errors = append(reports[i].Errors, publishErr(u, err))
		}
	}

	// Phase 2: populate.
	for i, u := range units {
		if !ready[i] {
			continue
		}
		if err := ctx.Err(); err != nil {
			reports[i].Outcome = OutcomeFailed
			reports[i].Errors = append(reports[i].Errors, publishErr(u, err))
			continue
		}
		n, err := r.populate(ctx, u)
		reports[i].Files = n
		if err != nil {
			reports[i].Outcome = OutcomeFailed
			reports[i].Errors = append(reports[i].Errors, publishErr(u, err))
			continue
		}
		reports[i].Outcome = OutcomePublished
	}

	for _, ur := range reports {
		report.add(ur)
	}
	return report
}

// populate assembles u in a staging directory and moves it into place.
func (r *Reconciler) populate(ctx context.Context, u Unit) (int, error) {
	dst := r.location(u.Output)
	staging := dst + constants.StagingSuffix

	if err := os.MkdirAll(staging, constants.DirPermissions); err != nil {
		return 0, errors.WrapIO("create", staging, err)
	}
	defer os.RemoveAll(staging)

	for _, res := range u.Results {
		logging.FromContext(ctx).Info().
			Str(logging.FieldSource, res.Source).
			Str(logging.FieldOutput, u.Output).
			Str(logging.FieldPath, res.Dir).
			Msg("Copying generated schema")
		if err := copyTree(res.Dir, staging); err != nil {
			return 0, err
		}
	}

	files, err := listFiles(staging, nil)
	if err != nil {
		return 0, err
	}

	if err := os.MkdirAll(filepath.Dir(dst), constants.DirPermissions); err != nil {
		return 0, errors.WrapIO("create", filepath.Dir(dst), err)
	}

	// The location may already exist when it holds a withheld nested unit or
	// is nested inside a unit populated earlier in this pass; merge into it.
	if exists(dst) {
		return len(files), copyTree(staging, dst)
	}
	if err := os.Rename(staging, dst); err != nil {
		return 0, errors.WrapIO("rename", dst, err)
	}
	return len(files), nil
}

func removeAll(paths ...string) error {
	for _, p := range paths {
		if err := os.RemoveAll(p); err != nil {
			return errors.WrapIO("delete", p, err)
		}
	}
	return nil
}

func publishErr(u Unit, err error) *errors.ReconciliationError {
	return &errors.ReconciliationError{
		Kind:    errors.KindPublish,
		Output:  u.Output,
		Sources: u.Sources(),
		Err:     err,
	}
}
