// Package app wires the pull request monitor: it drives a fetcher, publishes
// the results on reactive signals, and exposes the monitor to scoped
// consumers.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/singleflight"

	"github.com/nathantilsley/pr-sentry/internal/monitor/domain"
	"github.com/nathantilsley/pr-sentry/internal/monitor/ports"
	"github.com/nathantilsley/pr-sentry/internal/signal"
)

var (
	// ErrClosed is returned when starting a monitor that was closed.
	ErrClosed = errors.New("monitor closed")
	// ErrStarted is returned when starting a monitor that already polls.
	ErrStarted = errors.New("monitor already started")
)

const refreshKey = "refresh"

var (
	_ ports.PrMonitor = (*Monitor)(nil)
	_ io.Closer       = (*Monitor)(nil)
)

// Monitor implements ports.PrMonitor on top of a PullRequestFetcher.
type Monitor struct {
	fetcher     ports.PullRequestFetcher
	ref         domain.PRRef
	logger      *slog.Logger
	now         func() time.Time
	maxAttempts int
	retryDelay  time.Duration
	bodyDiffer  ports.TextDiffPort
	onChange    func(domain.ChangeReport)

	pr        *signal.Writable[*domain.DetailedPullRequest]
	loading   *signal.Writable[bool]
	err       *signal.Writable[error]
	lastFetch *signal.Writable[time.Time]

	group singleflight.Group

	// ctx bounds every fetch, whoever asked for it; cancel is called by
	// Close.
	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	scheduler *cron.Cron
	closed    bool
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithLogger sets the logger. The default discards output.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Monitor) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) {
		if now != nil {
			m.now = now
		}
	}
}

// WithRetry makes a refresh try up to maxAttempts times, waiting delay
// between attempts, as long as the failure is retryable.
func WithRetry(maxAttempts int, delay time.Duration) Option {
	return func(m *Monitor) {
		if maxAttempts > 0 {
			m.maxAttempts = maxAttempts
		}
		if delay >= 0 {
			m.retryDelay = delay
		}
	}
}

// WithBodyDiffer renders description changes into ChangeReport.BodyDiff.
func WithBodyDiffer(differ ports.TextDiffPort) Option {
	return func(m *Monitor) {
		m.bodyDiffer = differ
	}
}

// WithChangeHandler registers fn to receive a report whenever a successful
// refresh observes a different snapshot than the previous one.
func WithChangeHandler(fn func(domain.ChangeReport)) Option {
	return func(m *Monitor) {
		m.onChange = fn
	}
}

// New creates a monitor for ref. Nothing is fetched until Refresh or Start.
func New(fetcher ports.PullRequestFetcher, ref domain.PRRef, opts ...Option) *Monitor {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Monitor{
		fetcher:     fetcher,
		ref:         ref,
		logger:      slog.New(slog.DiscardHandler),
		now:         time.Now,
		maxAttempts: 1,
		pr:          signal.NewWritable[*domain.DetailedPullRequest](nil),
		loading:     signal.NewWritable(false),
		err:         signal.NewWritable[error](nil),
		lastFetch:   signal.NewWritable(time.Time{}),
		ctx:         ctx,
		cancel:      cancel,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Ref returns the monitored pull request.
func (m *Monitor) Ref() domain.PRRef { return m.ref }

// PR implements ports.PrMonitor.
func (m *Monitor) PR() signal.Readable[*domain.DetailedPullRequest] { return m.pr.Readonly() }

// Loading implements ports.PrMonitor.
func (m *Monitor) Loading() signal.Readable[bool] { return m.loading.Readonly() }

// Err implements ports.PrMonitor.
func (m *Monitor) Err() signal.Readable[error] { return m.err.Readonly() }

// LastFetch implements ports.PrMonitor.
func (m *Monitor) LastFetch() signal.Readable[time.Time] { return m.lastFetch.Readonly() }

// Refresh fetches the pull request and publishes the outcome.
//
// Calls that overlap an in-flight refresh wait for it and share its result
// instead of fetching again. On success the snapshot is replaced, Err is
// cleared and LastFetch advances. On failure the previous snapshot is kept
// and Err holds a *domain.FetchError.
//
// ctx only bounds how long this caller waits: if it ends first, Refresh
// returns ctx.Err() and the shared fetch carries on for the other callers,
// publishing its outcome as usual. The fetch itself stops when the monitor
// is closed.
func (m *Monitor) Refresh(ctx context.Context) error {
	ch := m.group.DoChan(refreshKey, func() (any, error) {
		return nil, m.refresh(m.ctx)
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Monitor) refresh(ctx context.Context) error {
	m.loading.Set(true)
	defer m.loading.Set(false)

	next, err := m.fetchWithRetry(ctx)
	if err != nil {
		var fetchErr *domain.FetchError
		if !errors.As(err, &fetchErr) {
			err = domain.NewFetchError(domain.KindOf(err), m.ref, err)
		}
		m.err.Set(err)
		m.logger.Warn("refreshing pull request failed",
			"pr", m.ref.String(),
			"kind", domain.KindOf(err).String(),
			"error", err,
		)
		return err
	}

	prev := m.pr.Get()
	observedAt := m.now()
	m.pr.Set(next)
	m.err.Set(nil)
	m.lastFetch.Set(observedAt)

	m.report(prev, next, observedAt)
	return nil
}

func (m *Monitor) fetchWithRetry(ctx context.Context) (*domain.DetailedPullRequest, error) {
	var (
		pr      *domain.DetailedPullRequest
		attempt int
	)
	err := retry.Do(ctx, m.backoff(), func(ctx context.Context) error {
		attempt++
		next, err := m.fetcher.FetchPullRequest(ctx, m.ref)
		if err == nil && next == nil {
			err = domain.NewNotFoundError(m.ref)
		}
		if err != nil {
			if !domain.IsRetryable(err) {
				return err
			}
			if attempt < m.maxAttempts {
				m.logger.Debug("retrying pull request fetch",
					"pr", m.ref.String(),
					"attempt", attempt,
					"error", err,
				)
			}
			return retry.RetryableError(err)
		}
		pr = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pr, nil
}

// backoff waits retryDelay between attempts, at most maxAttempts in total.
func (m *Monitor) backoff() retry.Backoff {
	var b retry.Backoff
	if m.retryDelay > 0 {
		b = retry.NewConstant(m.retryDelay)
	} else {
		b = retry.BackoffFunc(func() (time.Duration, bool) { return 0, false })
	}
	return retry.WithMaxRetries(uint64(m.maxAttempts-1), b)
}

func (m *Monitor) report(prev, next *domain.DetailedPullRequest, observedAt time.Time) {
	changes := domain.DescribeChanges(prev, next)
	if len(changes) == 0 {
		return
	}

	report := domain.ChangeReport{
		Ref:        m.ref,
		Changes:    changes,
		ObservedAt: observedAt,
	}
	if m.bodyDiffer != nil && domain.HasField(changes, "body") {
		report.BodyDiff = m.bodyDiffer.ComputeDiff(
			domain.FormatDiffLabel(m.ref, prev.HeadSHA),
			domain.FormatDiffLabel(m.ref, next.HeadSHA),
			[]byte(prev.Body),
			[]byte(next.Body),
		)
	}

	fields := make([]string, 0, len(changes))
	for _, c := range changes {
		fields = append(fields, c.Field)
	}
	m.logger.Info("pull request changed",
		"pr", m.ref.String(),
		"fields", strings.Join(fields, ","),
	)

	if m.onChange != nil {
		m.onChange(report)
	}
}

// Start refreshes the pull request on schedule, a cron expression such as
// "@every 1m" or "*/5 * * * *". An empty schedule disables polling.
func (m *Monitor) Start(schedule string) error {
	if strings.TrimSpace(schedule) == "" {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	if m.scheduler != nil {
		return ErrStarted
	}

	c := cron.New()
	if _, err := c.AddFunc(schedule, m.scheduledRefresh); err != nil {
		return fmt.Errorf("parsing schedule %q: %w", schedule, err)
	}
	c.Start()
	m.scheduler = c

	m.logger.Debug("polling pull request", "pr", m.ref.String(), "schedule", schedule)
	return nil
}

func (m *Monitor) scheduledRefresh() {
	//nolint:errcheck // Failure is published on Err and logged by refresh
	_ = m.Refresh(m.ctx)
}

// Close stops polling and cancels any fetch in progress, waiting for a
// running scheduled refresh to return. Close is idempotent.
func (m *Monitor) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	scheduler := m.scheduler
	m.scheduler = nil
	m.mu.Unlock()

	m.cancel()
	if scheduler != nil {
		<-scheduler.Stop().Done()
	}
	return nil
}
