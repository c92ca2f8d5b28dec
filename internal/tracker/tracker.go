// Package tracker implements C6: the agent tracking state machine. It is
// the hub the rest of the daemon hangs off of — it owns the dedup sets,
// applies the signature matcher to new processes, walks parent pointers to
// find root agents, consults the protection policy on file access, and
// publishes the resulting Event stream on the bus it owns.
package tracker

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/tuai/tuaid/internal/eventbus"
	"github.com/tuai/tuaid/internal/protection"
	"github.com/tuai/tuaid/internal/signature"
	"github.com/tuai/tuaid/pkg/model"
)

// Store is the persistence surface the tracker writes through on every
// reconcile. Implemented by internal/store.Store; kept as a narrow
// interface here so this package never imports the storage driver.
type Store interface {
	InsertProcess(model.ProcessRecord) error
	UpdateProcessExit(id string, endTime time.Time) error
	InsertConnection(model.ConnectionRecord) error
	InsertFileOp(model.FileOpRecord) error
}

// AlertSink receives protection alerts as a side channel alongside the
// ProtectedAccess event published on the bus. Best-effort: a sink error
// never rolls back the event (spec.md §4.6 failure semantics).
type AlertSink interface {
	OnAlert(model.ProtectionAlert)
}

// Tracker owns tracked_pids, known_processes, known_connections, and
// known_files, guarded by one read-write lock per spec.md §5's
// shared-resource policy.
type Tracker struct {
	mu sync.RWMutex

	trackedPids      map[uint32]struct{}
	knownProcesses   map[uint32]model.ProcessRecord
	knownConnections map[model.ConnDedupKey]struct{}
	knownFiles       map[model.FileDedupKey]struct{}

	registry *signature.Registry
	policy   *protection.Policy
	bus      *eventbus.Hub
	store    Store
	sink     AlertSink
	log      *slog.Logger

	processesTracked atomic.Uint64
	eventsTotal      atomic.Uint64
}

func New(registry *signature.Registry, policy *protection.Policy, bus *eventbus.Hub, store Store, sink AlertSink, log *slog.Logger) *Tracker {
	if log == nil {
		log = slog.Default()
	}
	return &Tracker{
		trackedPids:      make(map[uint32]struct{}),
		knownProcesses:   make(map[uint32]model.ProcessRecord),
		knownConnections: make(map[model.ConnDedupKey]struct{}),
		knownFiles:       make(map[model.FileDedupKey]struct{}),
		registry:         registry,
		policy:           policy,
		bus:              bus,
		store:            store,
		sink:             sink,
		log:              log.With("component", "tracker"),
	}
}

// InitialScan seeds known_processes/tracked_pids from the first snapshot
// and emits one RootAgent event per root (spec.md §4.6 "Initial scan").
func (t *Tracker) InitialScan(processes []model.ProcessRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()

	ppid := make(map[uint32]uint32, len(processes))
	hasParent := make(map[uint32]bool, len(processes))
	for _, p := range processes {
		t.knownProcesses[p.PID] = p
		ppid[p.PID] = p.PPID
		hasParent[p.PID] = p.HasPPID

		label, matched := t.registry.Match(p)
		if matched {
			p.AgentLabel = label
			t.knownProcesses[p.PID] = p
			t.trackedPids[p.PID] = struct{}{}
			t.processesTracked.Add(1)
		}
	}

	childCount := make(map[uint32]int)
	for pid := range t.trackedPids {
		if root := t.findRoot(pid, ppid, hasParent); root != pid {
			childCount[root]++
		}
	}

	for pid := range t.trackedPids {
		if !t.isRoot(pid, ppid, hasParent) {
			continue
		}
		rec := t.knownProcesses[pid]
		t.publishLocked(model.Event{
			ID:          uuid.NewString(),
			Kind:        model.EventRootAgent,
			Timestamp:   time.Now().UTC(),
			PID:         pid,
			DisplayName: displayName(rec),
			AgentLabel:  rec.AgentLabel,
			Severity:    model.SeverityInfo,
			Process:     &rec,
			ChildCount:  childCount[pid],
		})
		t.persistProcessLocked(rec)
	}
}

// isRoot reports whether pid has no tracked ancestor.
func (t *Tracker) isRoot(pid uint32, ppid map[uint32]uint32, hasParent map[uint32]bool) bool {
	return t.findRoot(pid, ppid, hasParent) == pid
}

// findRoot walks parent pointers until it finds the highest tracked
// ancestor, or returns pid itself if no ancestor is tracked.
func (t *Tracker) findRoot(pid uint32, ppid map[uint32]uint32, hasParent map[uint32]bool) uint32 {
	current := pid
	for {
		if !hasParent[current] {
			return current
		}
		parent := ppid[current]
		if _, ok := t.trackedPids[parent]; !ok {
			return current
		}
		current = parent
	}
}

// Reconcile runs one full tick: processes, then connections, then files, in
// that order (spec.md §4.6 and the ordering guarantee in §5).
func (t *Tracker) Reconcile(processes []model.ProcessRecord, connections []model.ConnectionRecord, fileOps []model.FileOpRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.reconcileProcessesLocked(processes)
	t.reconcileConnectionsLocked(connections)
	t.reconcileFilesLocked(fileOps)
}

func (t *Tracker) reconcileProcessesLocked(processes []model.ProcessRecord) {
	current := make(map[uint32]struct{}, len(processes))

	for _, p := range processes {
		current[p.PID] = struct{}{}

		if prev, known := t.knownProcesses[p.PID]; known {
			if prev.Key().Equal(p.Key()) {
				continue // same (pid, start_time) identity already reconciled
			}
			// pid reused within a single tick: the old identity never showed
			// up as absent before this new one took its slot. Retire it
			// first so the new process starts from a clean tracked state.
			t.retireProcessIdentityLocked(p.PID, prev)
		}

		label, isAgent := t.registry.Match(p)
		_, parentTracked := t.trackedPids[p.PPID]
		parentTracked = parentTracked && p.HasPPID

		if isAgent {
			p.AgentLabel = label
			t.trackedPids[p.PID] = struct{}{}
			t.processesTracked.Add(1)
		}
		_, alreadyTracked := t.trackedPids[p.PID]

		if isAgent || parentTracked || alreadyTracked {
			t.publishLocked(model.Event{
				ID:          uuid.NewString(),
				Kind:        model.EventProcessSpawn,
				Timestamp:   time.Now().UTC(),
				PID:         p.PID,
				DisplayName: displayName(p),
				AgentLabel:  p.AgentLabel,
				Severity:    model.SeverityInfo,
				Process:     &p,
			})
		}

		t.knownProcesses[p.PID] = p
		t.persistProcessLocked(p)
	}

	for pid, prev := range t.knownProcesses {
		if _, stillPresent := current[pid]; stillPresent {
			continue
		}
		t.retireProcessIdentityLocked(pid, prev)
		delete(t.knownProcesses, pid)
	}
}

// retireProcessIdentityLocked untracks pid's previous (pid, start_time)
// identity if it was tracked: emits a ProcessExit event, persists the exit
// time, and clears the tracked-slot so a differently-identified process
// later assigned the same pid is never spuriously treated as
// already-tracked (spec.md §3's TrackedSet invariant, §4.6 "Pid reuse").
// Callers are responsible for updating knownProcesses themselves.
func (t *Tracker) retireProcessIdentityLocked(pid uint32, prev model.ProcessRecord) {
	if _, wasTracked := t.trackedPids[pid]; !wasTracked {
		return
	}
	now := time.Now().UTC()
	prev.EndTime = now
	prev.HasEndTime = true
	t.publishLocked(model.Event{
		ID:          uuid.NewString(),
		Kind:        model.EventProcessExit,
		Timestamp:   now,
		PID:         pid,
		DisplayName: displayName(prev),
		AgentLabel:  prev.AgentLabel,
		Severity:    model.SeverityWarning,
		Process:     &prev,
	})
	delete(t.trackedPids, pid)
	if t.store != nil && prev.ID != "" {
		if err := t.store.UpdateProcessExit(prev.ID, now); err != nil {
			t.log.Warn("update process exit failed", "pid", pid, "error", err)
		}
	}
}

func (t *Tracker) reconcileConnectionsLocked(connections []model.ConnectionRecord) {
	for _, c := range connections {
		if _, tracked := t.trackedPids[c.PID]; !tracked {
			continue
		}
		if !c.HasRemote || c.RemoteAddr == "" || c.RemotePort == 0 {
			continue
		}
		key := c.DedupKey()
		if _, seen := t.knownConnections[key]; seen {
			continue
		}
		t.knownConnections[key] = struct{}{}

		t.publishLocked(model.Event{
			ID:          uuid.NewString(),
			Kind:        model.EventNetwork,
			Timestamp:   time.Now().UTC(),
			PID:         c.PID,
			DisplayName: displayName(t.knownProcesses[c.PID]),
			AgentLabel:  t.knownProcesses[c.PID].AgentLabel,
			Severity:    model.SeverityInfo,
			Connection:  &c,
		})

		if t.store != nil {
			if err := t.store.InsertConnection(c); err != nil {
				t.log.Warn("insert connection failed", "pid", c.PID, "error", err)
			}
		}
	}
}

func (t *Tracker) reconcileFilesLocked(fileOps []model.FileOpRecord) {
	for _, f := range fileOps {
		if _, tracked := t.trackedPids[f.PID]; !tracked {
			continue
		}
		key := f.DedupKey()
		if _, seen := t.knownFiles[key]; seen {
			continue
		}
		t.knownFiles[key] = struct{}{}

		proc := t.knownProcesses[f.PID]
		if t.policy != nil && t.policy.IsProtected(f.Path) {
			sev := t.policy.Severity()
			t.publishLocked(model.Event{
				ID:          uuid.NewString(),
				Kind:        model.EventProtectedAccess,
				Timestamp:   time.Now().UTC(),
				PID:         f.PID,
				DisplayName: displayName(proc),
				AgentLabel:  proc.AgentLabel,
				Severity:    sev,
				FileOp:      &f,
			})
			if t.sink != nil {
				t.sink.OnAlert(model.ProtectionAlert{
					Timestamp:   time.Now().UTC(),
					PID:         f.PID,
					DisplayName: displayName(proc),
					Path:        f.Path,
					Operation:   f.Operation,
					Severity:    sev,
					Blocked:     false,
					Signature:   proc.AgentLabel,
				})
			}
		} else {
			t.publishLocked(model.Event{
				ID:          uuid.NewString(),
				Kind:        fileOpEventKind(f.Operation),
				Timestamp:   time.Now().UTC(),
				PID:         f.PID,
				DisplayName: displayName(proc),
				AgentLabel:  proc.AgentLabel,
				Severity:    model.SeverityInfo,
				FileOp:      &f,
			})
		}

		if t.store != nil {
			if err := t.store.InsertFileOp(f); err != nil {
				t.log.Warn("insert file op failed", "pid", f.PID, "error", err)
			}
		}
	}
}

func fileOpEventKind(op model.FileOp) model.EventKind {
	switch op {
	case model.FileOpRead:
		return model.EventFileRead
	case model.FileOpWrite:
		return model.EventFileWrite
	case model.FileOpCreate:
		return model.EventFileCreate
	case model.FileOpDelete:
		return model.EventFileDelete
	default:
		return model.EventFileOpen
	}
}

func (t *Tracker) publishLocked(ev model.Event) {
	t.eventsTotal.Add(1)
	if t.bus != nil {
		t.bus.Publish(ev)
	}
}

func (t *Tracker) persistProcessLocked(p model.ProcessRecord) {
	if t.store == nil {
		return
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if err := t.store.InsertProcess(p); err != nil {
		t.log.Warn("insert process failed", "pid", p.PID, "error", err)
	}
}

// displayName normalizes a raw process name per spec.md §4.6: a bare
// version string (all ASCII digits and dots) prefers the first cmdline
// token's basename; otherwise the matched agent label, else the raw name.
func displayName(p model.ProcessRecord) string {
	if isBareVersionString(p.Name) && p.Cmdline != "" {
		first := strings.Fields(p.Cmdline)[0]
		if idx := strings.LastIndexByte(first, '/'); idx >= 0 {
			first = first[idx+1:]
		}
		return first
	}
	if p.AgentLabel != "" {
		return p.AgentLabel
	}
	return p.Name
}

func isBareVersionString(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if !unicode.IsDigit(r) && r != '.' {
			return false
		}
	}
	return true
}

// TrackedPids returns a snapshot of the currently tracked pid set.
func (t *Tracker) TrackedPids() []uint32 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]uint32, 0, len(t.trackedPids))
	for pid := range t.trackedPids {
		out = append(out, pid)
	}
	return out
}

// KnownProcess returns the cached record for pid, if any.
func (t *Tracker) KnownProcess(pid uint32) (model.ProcessRecord, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.knownProcesses[pid]
	return p, ok
}

// Agents returns every currently tracked process, projected through
// known_processes, in the shape the RPC and TUI layers read.
func (t *Tracker) Agents() []model.ProcessRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]model.ProcessRecord, 0, len(t.trackedPids))
	for pid := range t.trackedPids {
		if p, ok := t.knownProcesses[pid]; ok {
			out = append(out, p)
		}
	}
	return out
}

// Counts returns the cumulative counters Status() reports.
func (t *Tracker) Counts() (processesTracked, eventsTotal uint64) {
	return t.processesTracked.Load(), t.eventsTotal.Load()
}

// Subscribe exposes the owned event bus to consumers (RPC watch streams,
// the TUI); the bus is never reachable except through the tracker that
// owns it, avoiding an upward pointer from bus to tracker.
func (t *Tracker) Subscribe(ctx context.Context) *eventbus.Handle {
	return t.bus.Subscribe(ctx)
}
