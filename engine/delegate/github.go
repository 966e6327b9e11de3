package delegate

import (
	"context"
	"fmt"
	"regexp"

	"github.com/google/go-github/v74/github"
	"golang.org/x/oauth2"
)

// BranchChecker performs an optional preflight check that a repo/branch
// pair exists before a clone is attempted, turning a slow clone-then-fail
// into an early, explicit DelegationError.
type BranchChecker interface {
	BranchExists(ctx context.Context, repoURL, branch, token string) (bool, error)
}

// GitHubBranchChecker implements BranchChecker against the GitHub REST API
// for github.com repository URLs; it reports ok for any URL it doesn't
// recognize as a GitHub remote, so non-GitHub repos skip the preflight
// instead of failing it.
type GitHubBranchChecker struct{}

// NewGitHubBranchChecker returns the production BranchChecker.
func NewGitHubBranchChecker() GitHubBranchChecker { return GitHubBranchChecker{} }

var githubRepoPattern = regexp.MustCompile(`github\.com[/:]([\w.-]+)/([\w.-]+?)(?:\.git)?/?$`)

func (GitHubBranchChecker) BranchExists(ctx context.Context, repoURL, branch, token string) (bool, error) {
	match := githubRepoPattern.FindStringSubmatch(repoURL)
	if match == nil {
		return true, nil
	}
	owner, name := match[1], match[2]

	client := github.NewClient(nil)
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		client = github.NewClient(oauth2.NewClient(ctx, ts))
	}

	_, _, err := client.Repositories.GetBranch(ctx, owner, name, branch, 1)
	if err != nil {
		return false, fmt.Errorf("delegate: branch preflight failed for %s/%s@%s: %w", owner, name, branch, err)
	}
	return true, nil
}
