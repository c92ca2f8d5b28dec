package process

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPollingBackendLifecycle(t *testing.T) {
	b := newPollingBackend(Options{})
	assert.False(t, b.IsRunning())
	require.NoError(t, b.Start(context.Background()))
	assert.True(t, b.IsRunning())
	assert.Equal(t, "polling", b.Backend())
	require.NoError(t, b.Stop())
	assert.False(t, b.IsRunning())
}

func TestPollingBackendSnapshotIncludesSelf(t *testing.T) {
	b := newPollingBackend(Options{})
	require.NoError(t, b.Start(context.Background()))
	defer b.Stop()

	procs, err := b.Snapshot()
	require.NoError(t, err)

	self := uint32(os.Getpid())
	found := false
	for _, p := range procs {
		if p.PID == self {
			found = true
			assert.NotZero(t, p.StartTime)
			break
		}
	}
	assert.True(t, found, "snapshot should include the current test process")
}

func TestPollingBackendSubscribeNeverDelivers(t *testing.T) {
	b := newPollingBackend(Options{})
	ch, cancel := b.Subscribe()
	defer cancel()

	select {
	case <-ch:
		t.Fatal("polling backend must not push events on its subscribe channel")
	default:
	}
}
