//go:build linux

package process

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cilium/ebpf"
	"github.com/cilium/ebpf/link"
	"github.com/cilium/ebpf/ringbuf"

	"github.com/tuai/tuaid/pkg/model"
)

// defaultEBPFObjectPath is where the precompiled sched_process_exec /
// sched_process_exit tracepoint program is expected to live. It is built
// out-of-band (bpf2go or clang) and shipped alongside the daemon; tuaid
// itself never compiles BPF C at runtime.
const defaultEBPFObjectPath = "/usr/local/share/tuaid/process_tracepoints.bpf.o"

// execEvent mirrors the fixed-size record the BPF program writes into the
// ring buffer map named "events".
type execEvent struct {
	PID      uint32
	PPID     uint32
	EventTyp uint8
	_        [3]byte // padding to keep Comm 4-byte aligned
	Comm     [16]byte
}

const (
	bpfEventExec = 1
	bpfEventExit = 2
)

// ebpfBackend attaches to sched:sched_process_exec / sched:sched_process_exit
// tracepoints and maintains its own pid->ProcessRecord cache, seeded by one
// full /proc scan at Start, updated from the ring-buffer stream
// thereafter (spec.md §4.2, backend 1).
type ebpfBackend struct {
	objPath string

	running atomic.Bool
	coll    *ebpf.Collection
	execLnk link.Link
	exitLnk link.Link
	reader  *ringbuf.Reader

	mu    sync.RWMutex
	cache map[uint32]model.ProcessRecord

	subMu sync.Mutex
	subs  map[chan ProcessEvent]struct{}

	cancel context.CancelFunc
}

func newEBPFBackend(opts Options) *ebpfBackend {
	path := opts.EBPFObjectPath
	if path == "" {
		path = defaultEBPFObjectPath
	}
	return &ebpfBackend{
		objPath: path,
		cache:   make(map[uint32]model.ProcessRecord),
		subs:    make(map[chan ProcessEvent]struct{}),
	}
}

func (b *ebpfBackend) Backend() string { return "ebpf" }

func (b *ebpfBackend) Start(ctx context.Context) error {
	if _, err := os.Stat(b.objPath); err != nil {
		return fmt.Errorf("%w: ebpf object %s: %v", model.ErrNotSupported, b.objPath, err)
	}

	spec, err := ebpf.LoadCollectionSpec(b.objPath)
	if err != nil {
		return fmt.Errorf("%w: load collection spec: %v", model.ErrNotSupported, err)
	}

	coll, err := ebpf.NewCollection(spec)
	if err != nil {
		return fmt.Errorf("%w: load collection: %v", model.ErrPermissionDenied, err)
	}

	execProg := coll.Programs["trace_sched_process_exec"]
	exitProg := coll.Programs["trace_sched_process_exit"]
	eventsMap := coll.Maps["events"]
	if execProg == nil || exitProg == nil || eventsMap == nil {
		coll.Close()
		return fmt.Errorf("%w: ebpf object missing expected programs/maps", model.ErrNotSupported)
	}

	execLnk, err := link.Tracepoint("sched", "sched_process_exec", execProg, nil)
	if err != nil {
		coll.Close()
		return fmt.Errorf("%w: attach exec tracepoint: %v", model.ErrPermissionDenied, err)
	}
	exitLnk, err := link.Tracepoint("sched", "sched_process_exit", exitProg, nil)
	if err != nil {
		execLnk.Close()
		coll.Close()
		return fmt.Errorf("%w: attach exit tracepoint: %v", model.ErrPermissionDenied, err)
	}

	reader, err := ringbuf.NewReader(eventsMap)
	if err != nil {
		exitLnk.Close()
		execLnk.Close()
		coll.Close()
		return fmt.Errorf("%w: open ring buffer: %v", model.ErrNotSupported, err)
	}

	// Seed the cache with a full scan so early snapshot() calls don't race
	// an empty cache before the first tracepoint fires.
	seed, err := newPollingBackend(Options{}).Snapshot()
	if err != nil {
		reader.Close()
		exitLnk.Close()
		execLnk.Close()
		coll.Close()
		return fmt.Errorf("%w: initial scan: %v", model.ErrCollectionFailed, err)
	}

	b.coll, b.execLnk, b.exitLnk, b.reader = coll, execLnk, exitLnk, reader
	b.mu.Lock()
	for _, p := range seed {
		b.cache[p.PID] = p
	}
	b.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	b.running.Store(true)
	go b.consume(runCtx)
	return nil
}

func (b *ebpfBackend) consume(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		record, err := b.reader.Read()
		if err != nil {
			if b.running.Load() {
				continue
			}
			return
		}

		var ev execEvent
		if err := binary.Read(bytes.NewReader(record.RawSample), binary.LittleEndian, &ev); err != nil {
			continue // malformed record: absorbed silently per spec.md §7
		}

		name := string(bytes.TrimRight(ev.Comm[:], "\x00"))
		now := time.Now().UTC()

		switch ev.EventTyp {
		case bpfEventExec:
			rec := model.ProcessRecord{
				PID:       ev.PID,
				PPID:      ev.PPID,
				HasPPID:   ev.PPID > 0,
				Name:      name,
				StartTime: now,
			}
			b.mu.Lock()
			b.cache[ev.PID] = rec
			b.mu.Unlock()
			b.broadcast(ProcessEvent{Kind: EventSpawn, Process: rec})

		case bpfEventExit:
			b.mu.Lock()
			rec, ok := b.cache[ev.PID]
			if ok {
				rec.EndTime = now
				rec.HasEndTime = true
				delete(b.cache, ev.PID)
			}
			b.mu.Unlock()
			if ok {
				b.broadcast(ProcessEvent{Kind: EventExit, Process: rec})
			}
		}
	}
}

func (b *ebpfBackend) broadcast(ev ProcessEvent) {
	b.subMu.Lock()
	defer b.subMu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- ev:
		default:
			// slow subscriber: drop rather than block the reader goroutine;
			// it is expected to rely on Lagged detection at the bus layer.
		}
	}
}

func (b *ebpfBackend) Stop() error {
	if !b.running.CompareAndSwap(true, false) {
		return nil
	}
	if b.cancel != nil {
		b.cancel()
	}
	if b.reader != nil {
		b.reader.Close()
	}
	if b.exitLnk != nil {
		b.exitLnk.Close()
	}
	if b.execLnk != nil {
		b.execLnk.Close()
	}
	if b.coll != nil {
		b.coll.Close()
	}
	return nil
}

func (b *ebpfBackend) IsRunning() bool { return b.running.Load() }

func (b *ebpfBackend) Snapshot() ([]model.ProcessRecord, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]model.ProcessRecord, 0, len(b.cache))
	for _, p := range b.cache {
		out = append(out, p)
	}
	return out, nil
}

func (b *ebpfBackend) Subscribe() (<-chan ProcessEvent, func()) {
	ch := make(chan ProcessEvent, 64)
	b.subMu.Lock()
	b.subs[ch] = struct{}{}
	b.subMu.Unlock()
	cancel := func() {
		b.subMu.Lock()
		delete(b.subs, ch)
		b.subMu.Unlock()
	}
	return ch, cancel
}
