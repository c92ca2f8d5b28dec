package process

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	gopsprocess "github.com/shirou/gopsutil/v3/process"

	"github.com/tuai/tuaid/pkg/model"
)

// pollingBackend always starts successfully: it is the fallback-of-last-
// resort backend described in spec.md §4.2. snapshot() walks the host
// process table fresh on every call; it never pushes events (consumers
// diff consecutive snapshots themselves).
type pollingBackend struct {
	running atomic.Bool

	mu   sync.Mutex
	subs map[chan ProcessEvent]struct{}
}

func newPollingBackend(_ Options) *pollingBackend {
	return &pollingBackend{subs: make(map[chan ProcessEvent]struct{})}
}

func (b *pollingBackend) Backend() string { return "polling" }

func (b *pollingBackend) Start(_ context.Context) error {
	b.running.Store(true)
	return nil
}

func (b *pollingBackend) Stop() error {
	b.running.Store(false)
	return nil
}

func (b *pollingBackend) IsRunning() bool { return b.running.Load() }

// Subscribe returns a channel that the polling backend never writes to
// (spec.md §4.2: "events are not delivered through the push channel by
// this backend"), plus a cancel func that unregisters it, for interface
// symmetry with the eBPF backend.
func (b *pollingBackend) Subscribe() (<-chan ProcessEvent, func()) {
	ch := make(chan ProcessEvent)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	cancel := func() {
		b.mu.Lock()
		delete(b.subs, ch)
		b.mu.Unlock()
	}
	return ch, cancel
}

// Snapshot enumerates every process currently visible to the host, using
// gopsutil for cross-platform field resolution (username, start time,
// working directory).
func (b *pollingBackend) Snapshot() ([]model.ProcessRecord, error) {
	pids, err := gopsprocess.Pids()
	if err != nil {
		return nil, fmt.Errorf("%w: list pids: %v", model.ErrCollectionFailed, err)
	}

	out := make([]model.ProcessRecord, 0, len(pids))
	for _, pid := range pids {
		if pid <= 0 {
			continue
		}
		rec, err := readProcess(pid)
		if err != nil {
			// Per-record failures are expected on racy reads (the process
			// may have exited between Pids() and here); absorb silently.
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func readProcess(pid int32) (model.ProcessRecord, error) {
	p, err := gopsprocess.NewProcess(pid)
	if err != nil {
		return model.ProcessRecord{}, err
	}

	name, _ := p.Name()
	cmdlineSlice, _ := p.CmdlineSlice()
	exe, _ := p.Exe()
	cwd, _ := p.Cwd()
	username, _ := p.Username()
	ppid, _ := p.Ppid()
	createMs, err := p.CreateTime()
	if err != nil {
		return model.ProcessRecord{}, err
	}

	rec := model.ProcessRecord{
		PID:       uint32(pid),
		Name:      name,
		ExePath:   exe,
		Cwd:       cwd,
		User:      username,
		StartTime: time.UnixMilli(createMs).UTC(),
	}
	if len(cmdlineSlice) > 0 {
		rec.Cmdline = joinCmdline(cmdlineSlice)
	}
	if ppid > 0 {
		rec.PPID = uint32(ppid)
		rec.HasPPID = true
	}
	return rec, nil
}

func joinCmdline(parts []string) string {
	out := parts[0]
	for _, p := range parts[1:] {
		out += " " + p
	}
	return out
}
