package repocache

import (
	"context"
	"io"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport/http"

	"github.com/agentstation/lithic/pkg/logging"
)

// GitCloner clones with go-git. SSH URLs authenticate through the running
// ssh-agent; HTTPS URLs use Token when it is set.
type GitCloner struct {
	// Token is sent as HTTP basic auth password for https remotes.
	Token string

	// Depth limits history. Zero clones everything.
	Depth int

	// Progress receives go-git's sideband output when non-nil.
	Progress io.Writer
}

// Clone implements Cloner.
func (g *GitCloner) Clone(ctx context.Context, url, branch, dest string) error {
	opts := &git.CloneOptions{
		URL:      url,
		Depth:    g.Depth,
		Progress: g.Progress,
	}
	if branch != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(branch)
		opts.SingleBranch = true
	}
	if g.Token != "" && isHTTP(url) {
		opts.Auth = &http.BasicAuth{
			Username: "token",
			Password: g.Token,
		}
	}

	repo, err := git.PlainCloneContext(ctx, dest, false, opts)
	if err != nil {
		return err
	}

	if ref, err := repo.Head(); err == nil {
		logging.FromContext(ctx).Debug().
			Str("commit", ref.Hash().String()[:8]).
			Str(logging.FieldPath, dest).
			Msg("Checked out")
	}
	return nil
}
