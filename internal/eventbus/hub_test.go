package eventbus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuai/tuaid/pkg/model"
)

func TestHubRoutesByKind(t *testing.T) {
	h := NewHub()
	handle := h.Subscribe(context.Background())
	defer handle.Close()

	h.Publish(model.Event{Kind: model.EventProcessSpawn, PID: 1})
	h.Publish(model.Event{Kind: model.EventNetwork, PID: 1})

	seen := map[model.EventKind]bool{}
	for i := 0; i < 2; i++ {
		ev, skipped, ok := handle.Next()
		require.True(t, ok)
		require.Zero(t, skipped)
		seen[ev.Kind] = true
	}
	assert.True(t, seen[model.EventProcessSpawn])
	assert.True(t, seen[model.EventNetwork])
}

func TestHubCloseUnblocksNext(t *testing.T) {
	h := NewHub()
	handle := h.Subscribe(context.Background())

	done := make(chan struct{})
	go func() {
		_, _, ok := handle.Next()
		assert.False(t, ok)
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	handle.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Next() did not unblock after Close()")
	}
}
