package cli

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nathantilsley/pr-sentry/internal/monitor/app"
	"github.com/nathantilsley/pr-sentry/internal/monitor/domain"
	"github.com/nathantilsley/pr-sentry/internal/scope"
)

// statusView renders the monitor registered by an enclosing scope. It
// prints the first snapshot in full and every new error; later snapshots
// are covered by change reports.
type statusView struct {
	out    *printer
	logger *slog.Logger

	mu      sync.Mutex
	shown   bool
	lastErr error
	unsubs  []func()
}

func newStatusView(s *scope.Scope, out *printer, logger *slog.Logger) (*statusView, error) {
	monitor, ok := app.GetPrMonitorStore(s)
	if !ok {
		return nil, fmt.Errorf("status view: prMonitor: %w", scope.ErrNotRegistered)
	}

	v := &statusView{out: out, logger: logger}
	v.unsubs = append(v.unsubs,
		monitor.PR().Subscribe(v.onSnapshot),
		monitor.Err().Subscribe(v.onError),
		monitor.Loading().Subscribe(func(loading bool) {
			v.logger.Debug("monitor loading", "loading", loading)
		}),
		monitor.LastFetch().Subscribe(func(at time.Time) {
			if !at.IsZero() {
				v.logger.Debug("pull request fetched", "at", at.Format(time.RFC3339))
			}
		}),
	)
	s.OnDestroy(v.close)
	return v, nil
}

func (v *statusView) onSnapshot(pr *domain.DetailedPullRequest) {
	if pr == nil {
		return
	}
	v.mu.Lock()
	first := !v.shown
	v.shown = true
	v.mu.Unlock()

	if first {
		v.out.printf("%s", formatSummary(pr))
	}
}

func (v *statusView) onError(err error) {
	v.mu.Lock()
	prev := v.lastErr
	v.lastErr = err
	v.mu.Unlock()

	switch {
	case err != nil:
		v.out.printf("refresh failed (%s): %v\n", domain.KindOf(err), err)
	case prev != nil:
		v.out.printf("recovered\n")
	}
}

func (v *statusView) close() {
	for _, unsubscribe := range v.unsubs {
		unsubscribe()
	}
}
