package delegate

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
)

// Cloner fetches a workflow repository into a local scratch directory.
// The interface exists so Delegator tests never touch the network.
type Cloner interface {
	Clone(ctx context.Context, repoURL, branch, dir, token string) error
}

// GitCloner is the real Cloner, backed by go-git: a shallow (depth 1)
// clone of the requested branch, with basic-auth credentials attached when
// a token is supplied rather than embedded in the URL.
type GitCloner struct{}

// NewGitCloner returns the production Cloner.
func NewGitCloner() GitCloner { return GitCloner{} }

func (GitCloner) Clone(ctx context.Context, repoURL, branch, dir, token string) error {
	opts := &git.CloneOptions{
		URL:           repoURL,
		Depth:         1,
		SingleBranch:  true,
		ReferenceName: plumbing.NewBranchReferenceName(branch),
	}
	if token != "" {
		opts.Auth = &http.BasicAuth{
			Username: "x-oauth-basic",
			Password: token,
		}
	}
	if _, err := git.PlainCloneContext(ctx, dir, false, opts); err != nil {
		return fmt.Errorf("delegate: failed to clone %s@%s: %w", redactRepoURL(repoURL), branch, err)
	}
	return nil
}

// redactRepoURL strips embedded userinfo before a repo URL ever reaches a
// log line or error message.
func redactRepoURL(repoURL string) string {
	if idx := strings.Index(repoURL, "@"); idx != -1 {
		if schemeIdx := strings.Index(repoURL, "://"); schemeIdx != -1 && schemeIdx < idx {
			return repoURL[:schemeIdx+3] + "***@" + repoURL[idx+1:]
		}
	}
	return repoURL
}
