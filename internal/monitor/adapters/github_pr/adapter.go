// Package githubpr fetches detailed pull request snapshots from GitHub.
package githubpr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"

	"github.com/google/go-github/v68/github"

	"github.com/nathantilsley/pr-sentry/internal/monitor/domain"
	"github.com/nathantilsley/pr-sentry/internal/monitor/ports"
)

var _ ports.PullRequestFetcher = (*Adapter)(nil)

// Adapter implements ports.PullRequestFetcher with the GitHub REST API.
type Adapter struct {
	client *github.Client
	files  ports.FileChangesPort
}

// New creates a fetcher. files may be nil, in which case snapshots carry
// the file count but not the file list.
func New(client *github.Client, files ports.FileChangesPort) *Adapter {
	return &Adapter{client: client, files: files}
}

// FetchPullRequest loads the pull request and, when configured, its changed
// files. Failures are returned as *domain.FetchError.
func (a *Adapter) FetchPullRequest(ctx context.Context, ref domain.PRRef) (*domain.DetailedPullRequest, error) {
	pr, _, err := a.client.PullRequests.Get(ctx, ref.Owner, ref.Repo, ref.Number)
	if err != nil {
		return nil, classify(ref, fmt.Errorf("getting pull request: %w", err))
	}

	detailed := toDomain(pr)

	if a.files != nil {
		files, err := a.files.GetChangedFiles(ctx, ref.Owner, ref.Repo, ref.Number)
		if err != nil {
			return nil, classify(ref, err)
		}
		detailed.Files = files
	}

	return detailed, nil
}

func toDomain(pr *github.PullRequest) *domain.DetailedPullRequest {
	detailed := &domain.DetailedPullRequest{
		Number:         pr.GetNumber(),
		Title:          pr.GetTitle(),
		Body:           pr.GetBody(),
		State:          pr.GetState(),
		Draft:          pr.GetDraft(),
		Merged:         pr.GetMerged(),
		MergeableState: pr.GetMergeableState(),
		Author:         pr.GetUser().GetLogin(),
		SourceBranch:   pr.GetHead().GetRef(),
		TargetBranch:   pr.GetBase().GetRef(),
		HeadSHA:        pr.GetHead().GetSHA(),
		HTMLURL:        pr.GetHTMLURL(),
		Additions:      pr.GetAdditions(),
		Deletions:      pr.GetDeletions(),
		ChangedFiles:   pr.GetChangedFiles(),
		Commits:        pr.GetCommits(),
		CreatedAt:      pr.GetCreatedAt().Time,
		UpdatedAt:      pr.GetUpdatedAt().Time,
		MergedAt:       pr.GetMergedAt().Time,
		ClosedAt:       pr.GetClosedAt().Time,
	}

	for _, label := range pr.Labels {
		detailed.Labels = append(detailed.Labels, label.GetName())
	}
	for _, reviewer := range pr.RequestedReviewers {
		detailed.RequestedReviewers = append(detailed.RequestedReviewers, reviewer.GetLogin())
	}

	return detailed
}

// classify maps go-github and transport errors onto domain error kinds.
func classify(ref domain.PRRef, err error) error {
	return domain.NewFetchError(kindOf(err), ref, err)
}

func kindOf(err error) domain.ErrorKind {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return domain.ErrorKindCanceled
	}

	var rateErr *github.RateLimitError
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &rateErr) || errors.As(err, &abuseErr) {
		return domain.ErrorKindRateLimited
	}

	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		switch code := respErr.Response.StatusCode; {
		case code == http.StatusNotFound:
			return domain.ErrorKindNotFound
		case code == http.StatusUnauthorized, code == http.StatusForbidden:
			return domain.ErrorKindUnauthorized
		case code == http.StatusTooManyRequests:
			return domain.ErrorKindRateLimited
		case code >= http.StatusInternalServerError:
			return domain.ErrorKindNetwork
		}
		return domain.ErrorKindUnknown
	}

	var urlErr *url.Error
	var netErr net.Error
	if errors.As(err, &urlErr) || errors.As(err, &netErr) {
		return domain.ErrorKindNetwork
	}

	return domain.ErrorKindUnknown
}
