package rpcserver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuai/tuaid/internal/eventbus"
	"github.com/tuai/tuaid/internal/signature"
	"github.com/tuai/tuaid/pkg/model"
)

type fakeTracker struct {
	agents  []model.ProcessRecord
	bus     *eventbus.Hub
	tracked uint64
	events  uint64
}

func (f *fakeTracker) Agents() []model.ProcessRecord { return f.agents }
func (f *fakeTracker) Subscribe(ctx context.Context) *eventbus.Handle {
	return f.bus.Subscribe(ctx)
}
func (f *fakeTracker) Counts() (uint64, uint64) { return f.tracked, f.events }

func TestStatusReturnsCounters(t *testing.T) {
	ft := &fakeTracker{bus: eventbus.NewHub(), tracked: 3, events: 10}
	reg := signature.NewRegistry()
	srv := New(ft, reg, nil, nil, "linux", false, nil)

	resp, err := srv.Status(context.Background(), &StatusRequest{})
	require.NoError(t, err)
	assert.True(t, resp.Running)
	assert.Equal(t, uint64(3), resp.ProcessesTracked)
	assert.Equal(t, uint64(10), resp.EventsTotal)
}

func TestGetAgentSignaturesProjectsFields(t *testing.T) {
	reg := signature.NewRegistry()
	require.NoError(t, reg.Load(signature.Defaults()))
	ft := &fakeTracker{bus: eventbus.NewHub()}
	srv := New(ft, reg, nil, nil, "linux", false, nil)

	resp, err := srv.GetAgentSignatures(context.Background(), &GetAgentSignaturesRequest{})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Signatures)
	for _, sig := range resp.Signatures {
		assert.NotEmpty(t, sig.Name)
	}
}

func TestQueryProcessesWithoutStoreIsUnavailable(t *testing.T) {
	ft := &fakeTracker{bus: eventbus.NewHub()}
	reg := signature.NewRegistry()
	srv := New(ft, reg, nil, nil, "linux", false, nil)

	_, err := srv.QueryProcesses(context.Background(), &QueryProcessesRequest{})
	assert.Error(t, err)
}

func TestLabelAllowed(t *testing.T) {
	assert.True(t, labelAllowed("claude_code", nil))
	assert.True(t, labelAllowed("claude_code", []string{"claude_code"}))
	assert.False(t, labelAllowed("cursor", []string{"claude_code"}))
}

type recordingStream struct {
	ctx  context.Context
	sent []interface{}
}

func (r *recordingStream) Context() context.Context  { return r.ctx }
func (r *recordingStream) SendMsg(m interface{}) error {
	r.sent = append(r.sent, m)
	return nil
}

func TestWatchProcessesEmitsExistingThenLive(t *testing.T) {
	bus := eventbus.NewHub()
	ft := &fakeTracker{
		bus:    bus,
		agents: []model.ProcessRecord{{PID: 1, Name: "claude", AgentLabel: "claude_code"}},
	}
	reg := signature.NewRegistry()
	srv := New(ft, reg, nil, nil, "linux", false, nil)

	ctx, cancel := context.WithCancel(context.Background())
	stream := &recordingStream{ctx: ctx}

	done := make(chan error, 1)
	go func() { done <- srv.watchProcesses(&WatchProcessesRequest{IncludeExisting: true}, stream) }()

	time.Sleep(20 * time.Millisecond)
	bus.Publish(model.Event{Kind: model.EventProcessSpawn, PID: 2, DisplayName: "cursor"})
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watchProcesses did not return after context cancellation")
	}

	require.GreaterOrEqual(t, len(stream.sent), 2)
	first := stream.sent[0].(*WatchProcessesEvent)
	assert.Equal(t, uint32(1), first.PID)
	second := stream.sent[1].(*WatchProcessesEvent)
	assert.Equal(t, uint32(2), second.PID)
}
