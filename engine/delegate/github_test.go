package delegate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_GitHubBranchChecker_BranchExists(t *testing.T) {
	t.Run("Should skip the preflight for a non-GitHub remote", func(t *testing.T) {
		checker := NewGitHubBranchChecker()
		ok, err := checker.BranchExists(context.Background(), "https://gitlab.com/acme/repo.git", "main", "")
		require.NoError(t, err)
		assert.True(t, ok)
	})
}
