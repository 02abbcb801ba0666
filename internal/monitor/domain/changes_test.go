package domain

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePR() *DetailedPullRequest {
	return &DetailedPullRequest{
		Number:       12,
		Title:        "Add retries",
		Body:         "Adds retries to the fetcher.\n\nDetails follow.",
		State:        "open",
		HeadSHA:      "aaaaaaaaaaaa",
		TargetBranch: "main",
		Commits:      1,
		Labels:       []string{"b", "a"},
		UpdatedAt:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestDescribeChanges_FirstObservation(t *testing.T) {
	assert.Nil(t, DescribeChanges(nil, samplePR()))
	assert.Nil(t, DescribeChanges(samplePR(), nil))
}

func TestDescribeChanges_Identical(t *testing.T) {
	assert.Empty(t, DescribeChanges(samplePR(), samplePR()))
}

func TestDescribeChanges_LabelOrderIgnored(t *testing.T) {
	next := samplePR()
	next.Labels = []string{"a", "b"}
	assert.Empty(t, DescribeChanges(samplePR(), next))
}

func TestDescribeChanges_FieldOrder(t *testing.T) {
	prev := samplePR()
	next := samplePR()
	next.Merged = true
	next.State = "closed"
	next.HeadSHA = "bbbbbbbbbbbb"
	next.Body = "Rewritten description"
	next.Commits = 2

	changes := DescribeChanges(prev, next)
	require.Len(t, changes, 4)

	assert.Equal(t, Change{Field: "status", Old: "open", New: "merged"}, changes[0])
	assert.Equal(t, Change{Field: "body", Old: "Adds retries to the fetcher.", New: "Rewritten description"}, changes[1])
	assert.Equal(t, "head_sha", changes[2].Field)
	assert.Equal(t, Change{Field: "commits", Old: "1", New: "2"}, changes[3])
	assert.True(t, HasField(changes, "body"))
	assert.False(t, HasField(changes, "title"))
}

func TestDescribeChanges_LongBodyKeepsRunes(t *testing.T) {
	prev := samplePR()
	next := samplePR()
	next.Body = strings.Repeat("é", 70) + "\nsecond line"

	changes := DescribeChanges(prev, next)
	require.Len(t, changes, 1)

	assert.Equal(t, strings.Repeat("é", 57)+"...", changes[0].New)
	assert.True(t, utf8.ValidString(changes[0].New))

	next.Body = strings.Repeat("é", 60)
	assert.Equal(t, next.Body, DescribeChanges(prev, next)[0].New, "60 runes fit without truncation")
}

func TestFormatChanges(t *testing.T) {
	assert.Equal(t, "no changes", FormatChanges(nil))
	assert.Equal(t,
		"title: \"a\" -> \"b\"\ncommits: \"1\" -> \"2\"",
		FormatChanges([]Change{{Field: "title", Old: "a", New: "b"}, {Field: "commits", Old: "1", New: "2"}}),
	)
}

func TestFormatDiffLabel(t *testing.T) {
	assert.Equal(t, "acme/app#12 body (abc1234)", FormatDiffLabel(testRef, "abc1234def"))
	assert.Equal(t, "acme/app#12 body (abc)", FormatDiffLabel(testRef, "abc"))
}

func TestStatus(t *testing.T) {
	pr := samplePR()
	assert.Equal(t, "open", pr.Status())
	pr.Draft = true
	assert.Equal(t, "draft", pr.Status())
	pr.State = "closed"
	assert.Equal(t, "closed", pr.Status())
	pr.Merged = true
	assert.Equal(t, "merged", pr.Status())
}

func TestParsePRURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    PRRef
		wantErr bool
	}{
		{name: "plain", url: "https://github.com/acme/app/pull/12", want: testRef},
		{name: "files tab", url: "https://github.com/acme/app/pull/12/files", want: testRef},
		{name: "http", url: "http://github.com/acme/app/pull/12/changes", want: testRef},
		{name: "issue url", url: "https://github.com/acme/app/issues/12", wantErr: true},
		{name: "zero", url: "https://github.com/acme/app/pull/0", wantErr: true},
		{name: "empty", url: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePRURL(tt.url)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
