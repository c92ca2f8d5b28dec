package tracker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuai/tuaid/internal/eventbus"
	"github.com/tuai/tuaid/internal/protection"
	"github.com/tuai/tuaid/internal/signature"
	"github.com/tuai/tuaid/pkg/model"
)

func newTestTracker(t *testing.T) (*Tracker, *eventbus.Hub) {
	t.Helper()
	reg := signature.NewRegistry()
	require.NoError(t, reg.Load(signature.Defaults()))
	pol := protection.Default()
	bus := eventbus.NewHub()
	return New(reg, pol, bus, nil, nil, nil), bus
}

func drain(t *testing.T, handle *eventbus.Handle, n int) []model.Event {
	t.Helper()
	out := make([]model.Event, 0, n)
	for i := 0; i < n; i++ {
		ev, skipped, ok := tryNext(handle, time.Second)
		require.True(t, ok)
		require.Zero(t, skipped)
		out = append(out, ev)
	}
	return out
}

// tryNext runs handle.Next() in a goroutine and reports ok=false if nothing
// arrives within timeout, since Handle.Next() has no context parameter of
// its own to bound an individual call.
func tryNext(handle *eventbus.Handle, timeout time.Duration) (model.Event, uint64, bool) {
	type result struct {
		ev      model.Event
		skipped uint64
		ok      bool
	}
	ch := make(chan result, 1)
	go func() {
		ev, skipped, ok := handle.Next()
		ch <- result{ev, skipped, ok}
	}()
	select {
	case r := <-ch:
		return r.ev, r.skipped, r.ok
	case <-time.After(timeout):
		return model.Event{}, 0, false
	}
}

func TestE1SignatureMatchTracksAndSpawns(t *testing.T) {
	tr, _ := newTestTracker(t)
	handle := tr.Subscribe(context.Background())
	defer handle.Close()

	claude := model.ProcessRecord{PID: 4242, Name: "claude", StartTime: time.Now()}
	tr.Reconcile([]model.ProcessRecord{claude}, nil, nil)

	evs := drain(t, handle, 1)
	assert.Equal(t, model.EventProcessSpawn, evs[0].Kind)
	assert.Contains(t, tr.TrackedPids(), uint32(4242))
}

func TestE2ConnectionDedupEmitsOnce(t *testing.T) {
	tr, _ := newTestTracker(t)
	handle := tr.Subscribe(context.Background())
	defer handle.Close()

	claude := model.ProcessRecord{PID: 4242, Name: "claude", StartTime: time.Now()}
	tr.Reconcile([]model.ProcessRecord{claude}, nil, nil)
	drain(t, handle, 1)

	conn := model.ConnectionRecord{
		PID: 4242, Protocol: model.ProtocolTCP,
		RemoteAddr: "api.anthropic.com", RemotePort: 443, HasRemote: true,
		State: model.ConnEstablished,
	}
	tr.Reconcile([]model.ProcessRecord{claude}, []model.ConnectionRecord{conn}, nil)
	tr.Reconcile([]model.ProcessRecord{claude}, []model.ConnectionRecord{conn}, nil)

	evs := drain(t, handle, 1)
	assert.Equal(t, model.EventNetwork, evs[0].Kind)

	_, _, ok := tryNext(handle, 50*time.Millisecond)
	assert.False(t, ok, "expected no second Network event for the same connection")
}

func TestE3ProtectedFileAccessEmitsCriticalAlert(t *testing.T) {
	tr, _ := newTestTracker(t)
	handle := tr.Subscribe(context.Background())
	defer handle.Close()

	claude := model.ProcessRecord{PID: 4242, Name: "claude", StartTime: time.Now()}
	tr.Reconcile([]model.ProcessRecord{claude}, nil, nil)
	drain(t, handle, 1)

	op := model.FileOpRecord{PID: 4242, Operation: model.FileOpRead, Path: "/etc/passwd"}
	tr.Reconcile([]model.ProcessRecord{claude}, nil, []model.FileOpRecord{op})

	evs := drain(t, handle, 1)
	assert.Equal(t, model.EventProtectedAccess, evs[0].Kind)
	assert.Equal(t, model.SeverityCritical, evs[0].Severity)
}

func TestE4ChildSpawnNotPromotedSecondHop(t *testing.T) {
	tr, _ := newTestTracker(t)
	handle := tr.Subscribe(context.Background())
	defer handle.Close()

	claude := model.ProcessRecord{PID: 4242, Name: "claude", StartTime: time.Now()}
	tr.Reconcile([]model.ProcessRecord{claude}, nil, nil)
	drain(t, handle, 1)

	child := model.ProcessRecord{PID: 5001, PPID: 4242, HasPPID: true, Name: "bash", StartTime: time.Now()}
	tr.Reconcile([]model.ProcessRecord{claude, child}, nil, nil)

	evs := drain(t, handle, 1)
	assert.Equal(t, model.EventProcessSpawn, evs[0].Kind)
	assert.Equal(t, uint32(5001), evs[0].PID)
	assert.NotContains(t, tr.TrackedPids(), uint32(5001), "property 3: no second-hop promotion")
}

func TestE5ProcessExitUntracksAndIgnoresLateFileOps(t *testing.T) {
	tr, _ := newTestTracker(t)
	handle := tr.Subscribe(context.Background())
	defer handle.Close()

	claude := model.ProcessRecord{PID: 4242, Name: "claude", StartTime: time.Now()}
	tr.Reconcile([]model.ProcessRecord{claude}, nil, nil)
	drain(t, handle, 1)

	tr.Reconcile(nil, nil, nil)
	evs := drain(t, handle, 1)
	assert.Equal(t, model.EventProcessExit, evs[0].Kind)
	assert.NotContains(t, tr.TrackedPids(), uint32(4242))

	op := model.FileOpRecord{PID: 4242, Operation: model.FileOpRead, Path: "/etc/passwd"}
	tr.Reconcile(nil, nil, []model.FileOpRecord{op})

	_, _, ok := tryNext(handle, 50*time.Millisecond)
	assert.False(t, ok, "file op on an untracked pid must be ignored")
}

func TestInitialScanEmitsOneRootAgentEventWithChildCount(t *testing.T) {
	tr, _ := newTestTracker(t)
	handle := tr.Subscribe(context.Background())
	defer handle.Close()

	root := model.ProcessRecord{PID: 10, Name: "claude", StartTime: time.Now()}
	child := model.ProcessRecord{PID: 11, PPID: 10, HasPPID: true, Name: "claude", StartTime: time.Now()}
	grandchild := model.ProcessRecord{PID: 12, PPID: 11, HasPPID: true, Name: "claude", StartTime: time.Now()}

	tr.InitialScan([]model.ProcessRecord{root, child, grandchild})

	evs := drain(t, handle, 1)
	assert.Equal(t, model.EventRootAgent, evs[0].Kind)
	assert.Equal(t, uint32(10), evs[0].PID)
	assert.Equal(t, 2, evs[0].ChildCount)
}

func TestDisplayNameNormalizesBareVersionString(t *testing.T) {
	p := model.ProcessRecord{Name: "14.2.1", Cmdline: "/usr/bin/node /usr/lib/claude/cli.js"}
	assert.Equal(t, "node", displayName(p))
}
