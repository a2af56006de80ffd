// Package repocache clones (repo, branch) pairs into scratch directories at
// most once per run. The memo lives for the lifetime of a Cache; create one
// at the start of a run and Close it at the end.
package repocache

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/agentstation/lithic/pkg/constants"
	"github.com/agentstation/lithic/pkg/errors"
	"github.com/agentstation/lithic/pkg/logging"
)

// Cloner checks out branch of the repository at url into dest. An empty
// branch means the remote's default branch.
type Cloner interface {
	Clone(ctx context.Context, url, branch, dest string) error
}

// ScratchFunc creates a fresh scratch directory.
type ScratchFunc func(kind, suffix string) (string, error)

// Entry records one memoized clone attempt.
type Entry struct {
	Repo     string
	Branch   string
	URL      string
	Path     string
	ClonedAt time.Time
	Err      error
}

type key struct {
	repo   string
	branch string
}

func (k key) String() string {
	return k.repo + "\x00" + k.branch
}

// Cache is a keyed memo of clones. It is safe for concurrent use.
type Cache struct {
	cloner  Cloner
	scratch ScratchFunc
	host    string
	timeout time.Duration
	now     func() time.Time

	group singleflight.Group

	mu      sync.Mutex
	entries map[key]*Entry
	order   []key
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock sets the clock used to stamp entries.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithHost sets the host bare owner/name identifiers are cloned from.
func WithHost(host string) Option {
	return func(c *Cache) {
		if host != "" {
			c.host = host
		}
	}
}

// WithTimeout bounds each clone. Zero disables the limit.
func WithTimeout(d time.Duration) Option {
	return func(c *Cache) {
		c.timeout = d
	}
}

// New creates an empty cache.
func New(cloner Cloner, scratch ScratchFunc, opts ...Option) *Cache {
	c := &Cache{
		cloner:  cloner,
		scratch: scratch,
		host:    constants.DefaultGitHost,
		timeout: constants.CloneTimeout,
		now:     time.Now,
		entries: make(map[key]*Entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Clone returns the local checkout of repo at branch, cloning it on first
// request. Concurrent callers for the same pair share one clone, and a failed
// clone is remembered so the pair is not attempted again.
func (c *Cache) Clone(ctx context.Context, repo, branch string) (string, error) {
	k := key{repo: repo, branch: branch}
	if e, ok := c.lookup(k); ok {
		return e.Path, e.Err
	}

	v, _, _ := c.group.Do(k.String(), func() (any, error) {
		if e, ok := c.lookup(k); ok {
			return e, nil
		}
		e := c.clone(ctx, k)
		c.mu.Lock()
		c.entries[k] = e
		c.order = append(c.order, k)
		c.mu.Unlock()
		return e, nil
	})

	e := v.(*Entry)
	return e.Path, e.Err
}

func (c *Cache) lookup(k key) (*Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[k]
	return e, ok
}

func (c *Cache) clone(ctx context.Context, k key) *Entry {
	e := &Entry{Repo: k.repo, Branch: k.branch, URL: RepoURL(c.host, k.repo)}
	log := logging.FromContext(ctx).With().
		Str(logging.FieldRepo, k.repo).
		Str(logging.FieldBranch, k.branch).
		Logger()

	dir, err := c.scratch("clone", "")
	if err != nil {
		e.Err = errors.NewCloneError(k.repo, k.branch, err)
		return e
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	log.Info().Str("url", e.URL).Str(logging.FieldPath, dir).Msg("Cloning repository")
	if err := c.cloner.Clone(ctx, e.URL, k.branch, dir); err != nil {
		if stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = errors.Join(errors.NewTimeoutError("clone", c.timeout.String(), err.Error()), err)
		}
		e.Err = errors.NewCloneError(k.repo, k.branch, err)
		log.Error().Err(err).Msg("Clone failed")
		return e
	}

	e.Path = dir
	e.ClonedAt = c.now()
	log.Debug().Str(logging.FieldPath, dir).Msg("Repository cloned")
	return e
}

// Entries returns every memoized attempt in the order it was made.
func (c *Cache) Entries() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Entry, 0, len(c.order))
	for _, k := range c.order {
		out = append(out, *c.entries[k])
	}
	return out
}

// Close discards the memo. Checkouts stay on disk.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[key]*Entry)
	c.order = nil
}
