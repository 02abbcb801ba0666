package cli

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/nathantilsley/pr-sentry/internal/monitor/domain"
)

// printer serializes writes from signal callbacks and the change handler,
// which may run on different goroutines.
type printer struct {
	mu  sync.Mutex
	out io.Writer
}

func newPrinter(out io.Writer) *printer {
	return &printer{out: out}
}

func (p *printer) printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	//nolint:errcheck // Terminal output, nothing to do on failure
	fmt.Fprintf(p.out, format, args...)
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}

// formatSummary renders the headline facts of a snapshot.
func formatSummary(pr *domain.DetailedPullRequest) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "#%d %s [%s]\n", pr.Number, pr.Title, pr.Status())
	fmt.Fprintf(&sb, "  %s wants to merge %s into %s\n", pr.Author, pr.SourceBranch, pr.TargetBranch)
	fmt.Fprintf(&sb, "  head %s, %d commits, %d files, +%d -%d\n",
		shortSHA(pr.HeadSHA), pr.Commits, pr.ChangedFiles, pr.Additions, pr.Deletions)
	if pr.MergeableState != "" {
		fmt.Fprintf(&sb, "  mergeable: %s\n", pr.MergeableState)
	}
	if len(pr.Labels) > 0 {
		fmt.Fprintf(&sb, "  labels: %s\n", strings.Join(pr.Labels, ", "))
	}
	if len(pr.RequestedReviewers) > 0 {
		fmt.Fprintf(&sb, "  reviewers: %s\n", strings.Join(pr.RequestedReviewers, ", "))
	}
	if pr.HTMLURL != "" {
		fmt.Fprintf(&sb, "  %s\n", pr.HTMLURL)
	}
	return sb.String()
}

// formatFiles lists changed files with their line counts.
func formatFiles(files []domain.FileChange) string {
	var sb strings.Builder
	for _, f := range files {
		fmt.Fprintf(&sb, "  %-9s %s (+%d -%d)\n", f.Status, f.Filename, f.Additions, f.Deletions)
	}
	return sb.String()
}

// formatReport renders a change report for the watch stream.
func formatReport(r domain.ChangeReport) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s changed at %s\n", r.Ref, r.ObservedAt.Format("15:04:05"))
	for _, c := range r.Changes {
		fmt.Fprintf(&sb, "  %s\n", c)
	}
	if r.BodyDiff != "" {
		for _, line := range strings.Split(r.BodyDiff, "\n") {
			fmt.Fprintf(&sb, "    %s\n", line)
		}
	}
	return sb.String()
}
