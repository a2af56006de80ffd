// Package lithic keeps generated schema modules in sync with their upstream
// sources.
//
// For each configured source Lithic clones the source repository, runs the
// schema generator against the source's input, and formats the result. It
// then either publishes the generated modules into the local tree or
// verifies that the tree already matches them.
//
//	l, err := lithic.New(lithic.WithRoot("."))
//	cfg, err := config.Load("lithic.yaml")
//	result, err := l.Sync(ctx, cfg, sync.WithPublish(true))
package lithic

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/lithic/internal/generator"
	"github.com/agentstation/lithic/internal/normalizer"
	"github.com/agentstation/lithic/internal/reconcile"
	"github.com/agentstation/lithic/internal/repocache"
	"github.com/agentstation/lithic/internal/workspace"
)

// Lithic runs the schema synchronization pipeline.
type Lithic struct {
	settings *settings

	workspace  *workspace.Manager
	generator  *generator.Generator
	normalizer *normalizer.Normalizer
	reconciler *reconcile.Reconciler
}

// New creates a Lithic instance with the given options.
func New(opts ...Option) (*Lithic, error) {
	l := &Lithic{settings: defaults()}
	if err := l.options(opts...); err != nil {
		return nil, fmt.Errorf("applying options: %w", err)
	}
	c := l.settings

	genOpts := []generator.Option{
		generator.WithCommand(c.generatorCmd),
		generator.WithHeader(c.header),
		generator.WithPackageMarker(c.packageMarker),
		generator.WithTimeout(c.generateTimeout),
	}
	normOpts := []normalizer.Option{
		normalizer.WithCommand(c.formatterCmd),
		normalizer.WithTimeout(c.formatTimeout),
	}
	if c.runner != nil {
		genOpts = append(genOpts, generator.WithRunner(c.runner))
		normOpts = append(normOpts, normalizer.WithRunner(c.runner))
	}

	var err error
	if l.generator, err = generator.New(genOpts...); err != nil {
		return nil, fmt.Errorf("creating generator: %w", err)
	}
	if l.normalizer, err = normalizer.New(normOpts...); err != nil {
		return nil, fmt.Errorf("creating formatter: %w", err)
	}

	l.workspace = workspace.NewManager(c.scratchDir)
	l.reconciler = reconcile.New(c.root)
	return l, nil
}

// Root returns the module root outputs are published to.
func (l *Lithic) Root() string {
	return l.reconciler.Root()
}

// ScratchDirs lists every scratch directory created so far. They are not
// removed automatically.
func (l *Lithic) ScratchDirs() []string {
	return l.workspace.Created()
}

func (l *Lithic) newCache() *repocache.Cache {
	c := l.settings
	return repocache.New(c.cloner, l.workspace.Create,
		repocache.WithClock(c.now),
		repocache.WithHost(c.gitHost),
		repocache.WithTimeout(c.cloneTimeout),
	)
}

func (l *Lithic) logger() *zerolog.Logger {
	return l.settings.logger
}

func (l *Lithic) now() time.Time {
	return l.settings.now()
}
