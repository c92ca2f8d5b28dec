//go:build !linux

package process

import (
	"context"
	"fmt"

	"github.com/tuai/tuaid/pkg/model"
)

// ebpfBackend is unavailable on non-Linux hosts: kernel tracepoints are a
// Linux-only concept. Start always fails so NewCollector falls back to the
// polling backend, per spec.md §4.2.
type ebpfBackend struct{}

func newEBPFBackend(Options) *ebpfBackend { return &ebpfBackend{} }

func (b *ebpfBackend) Start(context.Context) error {
	return fmt.Errorf("%w: ebpf backend requires linux", model.ErrNotSupported)
}

func (b *ebpfBackend) Stop() error { return nil }

func (b *ebpfBackend) IsRunning() bool { return false }

func (b *ebpfBackend) Snapshot() ([]model.ProcessRecord, error) {
	return nil, fmt.Errorf("%w: ebpf backend requires linux", model.ErrNotSupported)
}

func (b *ebpfBackend) Subscribe() (<-chan ProcessEvent, func()) {
	ch := make(chan ProcessEvent)
	return ch, func() {}
}

func (b *ebpfBackend) Backend() string { return "ebpf" }
