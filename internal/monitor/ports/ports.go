// Package ports declares the boundaries between the pull request monitor
// and its collaborators.
package ports

import (
	"context"
	"time"

	"github.com/nathantilsley/pr-sentry/internal/monitor/domain"
	"github.com/nathantilsley/pr-sentry/internal/signal"
)

// PrMonitor exposes the observed state of one pull request. All signals are
// read-only to consumers; only the implementation writes them, typically
// as a side effect of Refresh.
type PrMonitor interface {
	// PR is the latest snapshot, nil until the first successful fetch.
	PR() signal.Readable[*domain.DetailedPullRequest]
	// Loading is true while a fetch is in flight.
	Loading() signal.Readable[bool]
	// Err is the last failure, nil when the last refresh succeeded.
	Err() signal.Readable[error]
	// LastFetch is the time of the last successful fetch, zero if none.
	LastFetch() signal.Readable[time.Time]
	// Refresh fetches the pull request again and returns once the attempt
	// is over. The returned error is the value published on Err.
	Refresh(ctx context.Context) error
}

// PullRequestFetcher loads a full pull request snapshot from the code host.
type PullRequestFetcher interface {
	FetchPullRequest(ctx context.Context, ref domain.PRRef) (*domain.DetailedPullRequest, error)
}

// FileChangesPort lists the files touched by a pull request.
type FileChangesPort interface {
	GetChangedFiles(ctx context.Context, owner, repo string, prNumber int) ([]domain.FileChange, error)
}

// TextDiffPort renders a human-readable diff of two texts. It returns an
// empty string when they are identical.
type TextDiffPort interface {
	ComputeDiff(baseName, headName string, base, head []byte) string
}
