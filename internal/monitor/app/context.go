package app

import (
	"github.com/nathantilsley/pr-sentry/internal/monitor/ports"
	"github.com/nathantilsley/pr-sentry/internal/scope"
)

// GetPrMonitorStore returns the monitor registered by the nearest enclosing
// scope. CreatePrMonitorStore registers a monitor (or nil, to hide an
// ancestor's) for a scope and returns it; a registered *Monitor is closed
// when that scope is destroyed.
var GetPrMonitorStore, CreatePrMonitorStore = scope.BuildContextStore[ports.PrMonitor]("prMonitor")
