package domain

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// Change is a single field that differs between two snapshots.
type Change struct {
	Field string
	Old   string
	New   string
}

func (c Change) String() string {
	return fmt.Sprintf("%s: %q -> %q", c.Field, c.Old, c.New)
}

// DescribeChanges lists the fields that differ between prev and next, in a
// fixed field order. A nil prev is a first observation and yields nothing;
// a nil next yields nothing as well.
//
// The body is only reported as changed; callers wanting the content diff
// should run prev.Body and next.Body through a text differ.
func DescribeChanges(prev, next *DetailedPullRequest) []Change {
	if prev == nil || next == nil {
		return nil
	}

	var changes []Change
	add := func(field, oldVal, newVal string) {
		if oldVal != newVal {
			changes = append(changes, Change{Field: field, Old: oldVal, New: newVal})
		}
	}

	add("status", prev.Status(), next.Status())
	add("title", prev.Title, next.Title)
	if prev.Body != next.Body {
		changes = append(changes, Change{Field: "body", Old: summarize(prev.Body), New: summarize(next.Body)})
	}
	add("head_sha", prev.HeadSHA, next.HeadSHA)
	add("target_branch", prev.TargetBranch, next.TargetBranch)
	add("mergeable_state", prev.MergeableState, next.MergeableState)
	add("commits", strconv.Itoa(prev.Commits), strconv.Itoa(next.Commits))
	add("changed_files", strconv.Itoa(prev.ChangedFiles), strconv.Itoa(next.ChangedFiles))
	add("additions", strconv.Itoa(prev.Additions), strconv.Itoa(next.Additions))
	add("deletions", strconv.Itoa(prev.Deletions), strconv.Itoa(next.Deletions))
	add("labels", joinSorted(prev.Labels), joinSorted(next.Labels))
	add("reviewers", joinSorted(prev.RequestedReviewers), joinSorted(next.RequestedReviewers))
	add("updated_at", formatTime(prev.UpdatedAt), formatTime(next.UpdatedAt))

	return changes
}

// HasField reports whether changes include field.
func HasField(changes []Change, field string) bool {
	return slices.ContainsFunc(changes, func(c Change) bool { return c.Field == field })
}

// FormatChanges renders changes one per line, or "no changes".
func FormatChanges(changes []Change) string {
	if len(changes) == 0 {
		return "no changes"
	}
	lines := make([]string, 0, len(changes))
	for _, c := range changes {
		lines = append(lines, c.String())
	}
	return strings.Join(lines, "\n")
}

// FormatDiffLabel creates a display name for one side of a body diff.
// Example: "acme/app#12 body (abc1234)"
func FormatDiffLabel(ref PRRef, sha string) string {
	if len(sha) > 7 {
		sha = sha[:7]
	}
	return ref.String() + " body (" + sha + ")"
}

func joinSorted(values []string) string {
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	return strings.Join(sorted, ",")
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// summarize shortens a body to its first line for change listings.
func summarize(body string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(body), "\n")
	if utf8.RuneCountInString(line) > 60 {
		return string([]rune(line)[:57]) + "..."
	}
	return line
}

// ChangeReport describes what a refresh observed compared to the previous
// snapshot.
type ChangeReport struct {
	Ref        PRRef
	Changes    []Change
	BodyDiff   string // unified diff of the description, empty if unchanged
	ObservedAt time.Time
}
