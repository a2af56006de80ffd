package lithic

import (
	"context"
	"os"
	"path/filepath"

	"github.com/sourcegraph/conc/pool"

	"github.com/agentstation/lithic/internal/repocache"
	"github.com/agentstation/lithic/pkg/config"
	"github.com/agentstation/lithic/pkg/errors"
	"github.com/agentstation/lithic/pkg/logging"
	pkgsync "github.com/agentstation/lithic/pkg/sync"
)

// Stage names recorded on failed sources.
const (
	stageClone    = "clone"
	stageGenerate = "generate"
	stageFormat   = "format"
)

// process runs every source through clone, generate and format with at most
// jobs sources in flight. Each source writes only to its own SourceResult.
func (l *Lithic) process(ctx context.Context, cache *repocache.Cache, resolved []config.Resolved, results []*pkgsync.SourceResult, jobs int) {
	p := pool.New().WithMaxGoroutines(jobs)
	for i := range resolved {
		r, sr := resolved[i], results[i]
		p.Go(func() {
			l.processSource(ctx, cache, r, sr)
		})
	}
	p.Wait()
}

// processSource moves one source from pending to normalized, or to failed.
func (l *Lithic) processSource(ctx context.Context, cache *repocache.Cache, r config.Resolved, sr *pkgsync.SourceResult) {
	ctx = logging.WithSource(ctx, sr.Name)
	ctx = logging.WithRepo(ctx, r.Repo, r.Branch)
	ctx = logging.WithOutput(ctx, sr.Output)
	logger := logging.FromContext(ctx)

	start := l.now()
	defer func() { sr.Duration = l.now().Sub(start) }()

	fail := func(stage string, err error) {
		logger.Error().Err(err).Str("stage", stage).Msgf("Error processing %s", r.Input)
		sr.Fail(stage, err)
	}
	advance := func(to pkgsync.State) {
		if err := sr.Transition(to); err != nil {
			logger.Error().Err(err).Msg("Unexpected state transition")
			return
		}
		logger.Debug().Str(logging.FieldState, string(to)).Msg("State changed")
	}

	if err := ctx.Err(); err != nil {
		fail(stageClone, errors.Join(errors.ErrCanceled, err))
		return
	}

	// Clone
	repoPath, err := cache.Clone(ctx, r.Repo, r.Branch)
	if err != nil {
		fail(stageClone, err)
		return
	}
	sr.RepoPath = repoPath
	advance(pkgsync.StateCloned)

	// Generate
	input := filepath.Join(repoPath, filepath.FromSlash(r.Input))
	if _, err := os.Stat(input); err != nil {
		fail(stageGenerate, errors.NewGenerationError(sr.Name, nil, errors.NewNotFoundError("input", r.Input)))
		return
	}
	scratch, err := l.workspace.Create("gen", sr.Name)
	if err != nil {
		fail(stageGenerate, errors.NewGenerationError(sr.Name, nil, err))
		return
	}
	sr.ScratchDir = scratch
	if err := l.generator.Generate(ctx, r, repoPath, filepath.Join(scratch, sr.Output)); err != nil {
		fail(stageGenerate, err)
		return
	}
	advance(pkgsync.StateGenerated)

	// Format the whole scratch root so the marker is formatted with the modules.
	if err := l.normalizer.Normalize(ctx, scratch); err != nil {
		fail(stageFormat, err)
		return
	}
	advance(pkgsync.StateNormalized)
}
