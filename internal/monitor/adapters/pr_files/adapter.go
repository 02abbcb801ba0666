package prfiles

import (
	"context"
	"fmt"

	"github.com/google/go-github/v68/github"

	"github.com/nathantilsley/pr-sentry/internal/monitor/domain"
)

// Adapter implements ports.FileChangesPort by querying the GitHub API
// for files changed in a pull request.
type Adapter struct {
	client *github.Client
}

// New creates a new PR files adapter.
func New(client *github.Client) *Adapter {
	return &Adapter{client: client}
}

// GetChangedFiles returns the files modified in the PR, following
// pagination until the last page.
func (a *Adapter) GetChangedFiles(ctx context.Context, owner, repo string, prNumber int) ([]domain.FileChange, error) {
	var changed []domain.FileChange
	opts := &github.ListOptions{
		PerPage: 100,
	}

	for {
		files, resp, err := a.client.PullRequests.ListFiles(ctx, owner, repo, prNumber, opts)
		if err != nil {
			return nil, fmt.Errorf("listing PR files: %w", err)
		}

		for _, file := range files {
			changed = append(changed, domain.FileChange{
				Filename:  file.GetFilename(),
				Status:    file.GetStatus(),
				Additions: file.GetAdditions(),
				Deletions: file.GetDeletions(),
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return changed, nil
}
