package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// PRRef identifies a pull request on the code host.
type PRRef struct {
	Owner  string
	Repo   string
	Number int
}

// String formats the ref as owner/repo#number.
func (r PRRef) String() string {
	return fmt.Sprintf("%s/%s#%d", r.Owner, r.Repo, r.Number)
}

var prURLPattern = regexp.MustCompile(`github\.com/([^/]+)/([^/]+)/pull/(\d+)(?:/.*)?$`)

// ParsePRURL extracts owner, repo, and PR number from a GitHub PR URL.
// Handles formats:
//   - https://github.com/owner/repo/pull/123
//   - https://github.com/owner/repo/pull/123/changes
//   - https://github.com/owner/repo/pull/123/files
func ParsePRURL(url string) (PRRef, error) {
	matches := prURLPattern.FindStringSubmatch(url)
	if len(matches) != 4 {
		return PRRef{}, fmt.Errorf(
			"invalid PR URL format, expected: https://github.com/owner/repo/pull/123, got: %s",
			url,
		)
	}

	number, err := strconv.Atoi(matches[3])
	if err != nil {
		return PRRef{}, fmt.Errorf("invalid PR number: %w", err)
	}
	if number <= 0 {
		return PRRef{}, fmt.Errorf("invalid PR number: %d", number)
	}

	return PRRef{Owner: matches[1], Repo: matches[2], Number: number}, nil
}

// FileChange is one file touched by a pull request.
type FileChange struct {
	Filename  string
	Status    string // added, removed, modified, renamed, ...
	Additions int
	Deletions int
}

// DetailedPullRequest is the most recently observed state of a pull request.
// Consumers must treat it as read-only; monitors publish a fresh value on
// every successful fetch.
type DetailedPullRequest struct {
	Number         int
	Title          string
	Body           string
	State          string // open or closed
	Draft          bool
	Merged         bool
	MergeableState string
	Author         string
	SourceBranch   string
	TargetBranch   string
	HeadSHA        string
	HTMLURL        string

	Additions    int
	Deletions    int
	ChangedFiles int
	Commits      int

	Labels             []string
	RequestedReviewers []string
	Files              []FileChange

	CreatedAt time.Time
	UpdatedAt time.Time
	MergedAt  time.Time // zero unless merged
	ClosedAt  time.Time // zero unless closed
}

// Status summarizes the lifecycle position of the pull request.
func (pr *DetailedPullRequest) Status() string {
	switch {
	case pr.Merged:
		return "merged"
	case pr.State == "closed":
		return "closed"
	case pr.Draft:
		return "draft"
	default:
		return "open"
	}
}
