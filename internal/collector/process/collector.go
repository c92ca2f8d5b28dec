// Package process implements C2: the variant process collector. It selects
// the most precise backend available at start time (kernel tracepoints via
// eBPF, falling back to /proc polling) behind a single capability
// interface.
package process

import (
	"context"
	"fmt"

	"github.com/tuai/tuaid/pkg/model"
)

// EventKind discriminates a ProcessEvent.
type EventKind string

const (
	EventSpawn  EventKind = "spawn"
	EventExit   EventKind = "exit"
	EventUpdate EventKind = "update"
)

// ProcessEvent is delivered on a Collector's push channel. Only the
// kernel-tracepoint backend delivers these promptly; the polling backend
// never sends on this channel (spec.md §4.2) — its consumers must diff
// consecutive Snapshot() calls themselves, which is exactly what the
// tracker (C6) does.
type ProcessEvent struct {
	Kind    EventKind
	Process model.ProcessRecord
}

// Collector is the shared capability interface spec.md §4.2 describes:
// {start, stop, is_running, snapshot, [subscribe]}.
type Collector interface {
	Start(ctx context.Context) error
	Stop() error
	IsRunning() bool
	Snapshot() ([]model.ProcessRecord, error)
	Subscribe() (<-chan ProcessEvent, func())
	Backend() string
}

// NewCollector selects the most precise backend available, preferring the
// kernel-tracepoint backend and falling back to polling on any start
// error. If every backend fails to start, it returns
// model.ErrBackendUnavailable.
func NewCollector(opts Options) (Collector, error) {
	candidates := []func() Collector{
		func() Collector { return newEBPFBackend(opts) },
		func() Collector { return newPollingBackend(opts) },
	}

	var lastErr error
	for _, make := range candidates {
		c := make()
		if err := c.Start(context.Background()); err != nil {
			lastErr = err
			continue
		}
		return c, nil
	}
	if lastErr == nil {
		lastErr = model.ErrBackendUnavailable
	}
	return nil, fmt.Errorf("%w: %v", model.ErrBackendUnavailable, lastErr)
}

// Options configures collector construction.
type Options struct {
	// EBPFObjectPath overrides the location of the precompiled BPF object
	// the kernel-tracepoint backend loads. Empty means the platform
	// default.
	EBPFObjectPath string
}
