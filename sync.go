package lithic

import (
	"context"
	"path/filepath"

	"github.com/agentstation/lithic/internal/reconcile"
	"github.com/agentstation/lithic/pkg/config"
	"github.com/agentstation/lithic/pkg/errors"
	"github.com/agentstation/lithic/pkg/logging"
	pkgsync "github.com/agentstation/lithic/pkg/sync"
)

// Sync runs every source in cfg and reconciles the results with the module
// tree. One source failing never stops the others; the returned error is an
// *errors.RunFailure listing every failure once the whole run is done.
func (l *Lithic) Sync(ctx context.Context, cfg *config.LithicConfig, opts ...pkgsync.Option) (*pkgsync.Result, error) {
	// Step 0: Set context
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg == nil {
		return nil, errors.NewConfigError("", "no configuration", nil)
	}

	// Step 1: Parse and validate options
	options := pkgsync.Defaults().Apply(opts...)
	if err := options.Validate(); err != nil {
		return nil, err
	}

	// Step 2: Setup context with timeout and logger
	var cancel context.CancelFunc
	if options.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, options.Timeout)
	} else {
		cancel = func() {}
	}
	defer cancel()

	if l.logger() != nil {
		ctx = logging.WithLogger(ctx, l.logger())
	}
	ctx = logging.WithField(ctx, logging.FieldMode, options.Mode.String())
	logger := logging.FromContext(ctx)

	// Step 3: Resolve every source against the defaults
	resolved := cfg.Resolve()
	result := &pkgsync.Result{Mode: options.Mode, StartedAt: l.now()}
	for _, r := range resolved {
		result.Sources = append(result.Sources, &pkgsync.SourceResult{
			Name:   r.Name(),
			Input:  r.Input,
			Repo:   r.Repo,
			Branch: r.Branch,
			Output: r.Output(),
			State:  pkgsync.StatePending,
		})
	}
	logger.Info().Int("sources", len(resolved)).Int("jobs", options.Jobs).Msg("Starting sync")

	// Step 4: Clone, generate and format each source
	cache := l.newCache()
	defer cache.Close()
	l.process(ctx, cache, resolved, result.Sources, options.Jobs)

	// Step 5: Stop before touching the tree if the run was cut short
	if err := ctx.Err(); err != nil {
		result.Duration = l.now().Sub(result.StartedAt)
		failures := append(result.Errors(), errors.Join(errors.ErrCanceled, err))
		logger.Error().Err(err).Msg("Sync interrupted before reconciliation")
		return result, errors.NewRunFailure(failures)
	}

	// Step 6: Reconcile all output locations at a single join point
	units := plan(result.Sources)
	var report *reconcile.Report
	if options.Mode == pkgsync.ModePublish {
		report = l.reconciler.Publish(ctx, units)
	} else {
		report = l.reconciler.Verify(ctx, units)
	}
	apply(result, report, options.Mode)

	// Step 7: Summarize
	result.Duration = l.now().Sub(result.StartedAt)
	failures := result.Errors()
	for _, f := range result.Failed() {
		logger.Error().
			Err(f.Err).
			Str(logging.FieldSource, f.Name).
			Str("stage", f.Stage).
			Msg("Source failed")
	}

	event := logger.Info()
	if len(failures) > 0 {
		event = logger.Error()
	}
	event.
		Int("failed", len(result.Failed())).
		Int("findings", len(result.Findings)).
		Dur("duration", result.Duration).
		Msg(result.Summary())

	return result, errors.NewRunFailure(failures)
}

// plan builds reconciliation units from the processed sources.
func plan(sources []*pkgsync.SourceResult) []reconcile.Unit {
	var results []reconcile.Result
	var failed []reconcile.Failure
	for _, src := range sources {
		switch src.State {
		case pkgsync.StateNormalized:
			results = append(results, reconcile.Result{
				Source: src.Name,
				Output: src.Output,
				Dir:    filepath.Join(src.ScratchDir, src.Output),
			})
		case pkgsync.StateFailed:
			failed = append(failed, reconcile.Failure{Source: src.Name, Output: src.Output})
		}
	}
	return reconcile.Plan(results, failed)
}

// apply copies the report into result and moves sources whose unit came
// through cleanly to their final state.
func apply(result *pkgsync.Result, report *reconcile.Report, mode pkgsync.Mode) {
	result.Findings = report.Errors

	final, want := pkgsync.StateVerified, reconcile.OutcomeVerified
	if mode == pkgsync.ModePublish {
		final, want = pkgsync.StatePublished, reconcile.OutcomePublished
	}

	for _, ur := range report.Units {
		result.Units = append(result.Units, pkgsync.UnitResult{
			Output:  ur.Output,
			Sources: ur.Sources,
			Outcome: string(ur.Outcome),
			Files:   ur.Files,
		})
		if ur.Outcome != want {
			continue
		}
		for _, src := range result.Sources {
			if src.Output == ur.Output && src.State == pkgsync.StateNormalized {
				_ = src.Transition(final)
			}
		}
	}
}
