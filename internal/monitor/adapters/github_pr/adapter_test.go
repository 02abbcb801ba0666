package githubpr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/google/go-github/v68/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	prfiles "github.com/nathantilsley/pr-sentry/internal/monitor/adapters/pr_files"
	"github.com/nathantilsley/pr-sentry/internal/monitor/domain"
)

var testRef = domain.PRRef{Owner: "acme", Repo: "app", Number: 7}

const pullJSON = `{
  "number": 7,
  "title": "Add retries",
  "body": "Retries transient failures.",
  "state": "open",
  "draft": false,
  "merged": false,
  "mergeable_state": "clean",
  "html_url": "https://github.com/acme/app/pull/7",
  "user": {"login": "octocat"},
  "head": {"ref": "feat/retries", "sha": "0123456789abcdef"},
  "base": {"ref": "main", "sha": "fedcba9876543210"},
  "additions": 40,
  "deletions": 2,
  "changed_files": 1,
  "commits": 3,
  "labels": [{"name": "enhancement"}],
  "requested_reviewers": [{"login": "hubot"}],
  "created_at": "2026-01-02T03:04:05Z",
  "updated_at": "2026-01-03T03:04:05Z"
}`

func newTestClient(t *testing.T, handler http.Handler) *github.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := github.NewClient(nil)
	base, err := url.Parse(srv.URL + "/")
	require.NoError(t, err)
	client.BaseURL = base
	return client
}

func TestAdapter_FetchPullRequest(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/app/pulls/7", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, pullJSON)
	})
	mux.HandleFunc("/repos/acme/app/pulls/7/files", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[{"filename":"fetch.go","status":"modified","additions":40,"deletions":2}]`)
	})

	client := newTestClient(t, mux)
	adapter := New(client, prfiles.New(client))

	pr, err := adapter.FetchPullRequest(context.Background(), testRef)
	require.NoError(t, err)

	assert.Equal(t, &domain.DetailedPullRequest{
		Number:             7,
		Title:              "Add retries",
		Body:               "Retries transient failures.",
		State:              "open",
		MergeableState:     "clean",
		Author:             "octocat",
		SourceBranch:       "feat/retries",
		TargetBranch:       "main",
		HeadSHA:            "0123456789abcdef",
		HTMLURL:            "https://github.com/acme/app/pull/7",
		Additions:          40,
		Deletions:          2,
		ChangedFiles:       1,
		Commits:            3,
		Labels:             []string{"enhancement"},
		RequestedReviewers: []string{"hubot"},
		Files:              []domain.FileChange{{Filename: "fetch.go", Status: "modified", Additions: 40, Deletions: 2}},
		CreatedAt:          time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		UpdatedAt:          time.Date(2026, 1, 3, 3, 4, 5, 0, time.UTC),
	}, pr)
}

func TestAdapter_FetchPullRequest_WithoutFiles(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/app/pulls/7", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, pullJSON)
	})

	adapter := New(newTestClient(t, mux), nil)
	pr, err := adapter.FetchPullRequest(context.Background(), testRef)
	require.NoError(t, err)
	assert.Nil(t, pr.Files)
	assert.Equal(t, 1, pr.ChangedFiles)
}

func TestAdapter_FetchPullRequest_ErrorKinds(t *testing.T) {
	tests := []struct {
		name   string
		status int
		header map[string]string
		want   domain.ErrorKind
	}{
		{name: "not found", status: http.StatusNotFound, want: domain.ErrorKindNotFound},
		{name: "unauthorized", status: http.StatusUnauthorized, want: domain.ErrorKindUnauthorized},
		{name: "forbidden", status: http.StatusForbidden, want: domain.ErrorKindUnauthorized},
		{name: "server error", status: http.StatusBadGateway, want: domain.ErrorKindNetwork},
		{name: "unprocessable", status: http.StatusUnprocessableEntity, want: domain.ErrorKindUnknown},
		{
			name:   "rate limited",
			status: http.StatusForbidden,
			header: map[string]string{
				"X-RateLimit-Limit":     "60",
				"X-RateLimit-Remaining": "0",
				"X-RateLimit-Reset":     fmt.Sprint(time.Now().Add(time.Hour).Unix()),
			},
			want: domain.ErrorKindRateLimited,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("/repos/acme/app/pulls/7", func(w http.ResponseWriter, _ *http.Request) {
				for k, v := range tt.header {
					w.Header().Set(k, v)
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				fmt.Fprint(w, `{"message":"nope"}`)
			})

			adapter := New(newTestClient(t, mux), nil)
			_, err := adapter.FetchPullRequest(context.Background(), testRef)
			require.Error(t, err)

			var fetchErr *domain.FetchError
			require.ErrorAs(t, err, &fetchErr)
			assert.Equal(t, tt.want, fetchErr.Kind)
			assert.Equal(t, testRef, fetchErr.Ref)
		})
	}
}

func TestAdapter_FetchPullRequest_FilesError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/app/pulls/7", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, pullJSON)
	})
	mux.HandleFunc("/repos/acme/app/pulls/7/files", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message":"Not Found"}`)
	})

	client := newTestClient(t, mux)
	_, err := New(client, prfiles.New(client)).FetchPullRequest(context.Background(), testRef)
	assert.True(t, domain.IsNotFound(err))
}

func TestKindOf_Transport(t *testing.T) {
	assert.Equal(t, domain.ErrorKindCanceled, kindOf(context.Canceled))
	assert.Equal(t, domain.ErrorKindNetwork, kindOf(&url.Error{Op: "Get", URL: "x", Err: errors.New("refused")}))
	assert.Equal(t, domain.ErrorKindUnknown, kindOf(errors.New("boom")))
}

func TestAdapter_FetchPullRequest_Canceled(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/app/pulls/7", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, pullJSON)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(newTestClient(t, mux), nil).FetchPullRequest(ctx, testRef)
	assert.Equal(t, domain.ErrorKindCanceled, domain.KindOf(err))
}
