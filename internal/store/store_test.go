package store

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuai/tuaid/pkg/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestInsertProcessUpsertKeepsNonNullAgentLabel(t *testing.T) {
	s := newTestStore(t)

	p := model.ProcessRecord{ID: "p1", PID: 100, Name: "claude", StartTime: time.Now(), AgentLabel: "claude_code"}
	require.NoError(t, s.InsertProcess(p))

	// a later upsert without an agent label must not clear the first one
	p.AgentLabel = ""
	require.NoError(t, s.InsertProcess(p))

	res, err := s.QueryProcesses(ProcessQuery{Limit: 10})
	require.NoError(t, err)
	require.Len(t, res.Processes, 1)
	assert.Equal(t, "claude_code", res.Processes[0].AgentLabel)
}

func TestUpdateProcessExit(t *testing.T) {
	s := newTestStore(t)
	p := model.ProcessRecord{ID: "p1", PID: 100, Name: "claude", StartTime: time.Now()}
	require.NoError(t, s.InsertProcess(p))

	end := time.Now().Add(time.Minute)
	require.NoError(t, s.UpdateProcessExit("p1", end))

	res, err := s.QueryProcesses(ProcessQuery{Limit: 10})
	require.NoError(t, err)
	require.Len(t, res.Processes, 1)
	assert.True(t, res.Processes[0].HasEndTime)
}

func TestQueryProcessesHasMore(t *testing.T) {
	s := newTestStore(t)
	for i := 0; i < 150; i++ {
		p := model.ProcessRecord{ID: fmt.Sprintf("p%d", i), PID: uint32(i), Name: "x", StartTime: time.Now()}
		require.NoError(t, s.InsertProcess(p))
	}

	res, err := s.QueryProcesses(ProcessQuery{Limit: 100, Offset: 0})
	require.NoError(t, err)
	assert.Len(t, res.Processes, 100)
	assert.True(t, res.HasMore)
	assert.Equal(t, 150, res.TotalCount)
}

func TestQueryProcessesFiltersByAgentLabel(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.InsertProcess(model.ProcessRecord{ID: "a", PID: 1, Name: "claude", StartTime: time.Now(), AgentLabel: "claude_code"}))
	require.NoError(t, s.InsertProcess(model.ProcessRecord{ID: "b", PID: 2, Name: "cursor", StartTime: time.Now(), AgentLabel: "cursor"}))

	res, err := s.QueryProcesses(ProcessQuery{AgentLabels: []string{"claude_code"}, Limit: 10})
	require.NoError(t, err)
	require.Len(t, res.Processes, 1)
	assert.Equal(t, "claude_code", res.Processes[0].AgentLabel)
}

func TestCleanupOldDataRespectsRetention(t *testing.T) {
	s := newTestStore(t)

	old := model.FileOpRecord{ID: "f1", PID: 1, Operation: model.FileOpRead, Path: "/tmp/x", Timestamp: time.Now().Add(-48 * time.Hour)}
	fresh := model.FileOpRecord{ID: "f2", PID: 1, Operation: model.FileOpRead, Path: "/tmp/y", Timestamp: time.Now()}
	require.NoError(t, s.InsertFileOp(old))
	require.NoError(t, s.InsertFileOp(fresh))

	require.NoError(t, s.CleanupOldData(24*time.Hour))

	var count int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM file_ops").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestCleanupOldDataKeepsRunningProcesses(t *testing.T) {
	s := newTestStore(t)
	old := model.ProcessRecord{ID: "p1", PID: 1, Name: "claude", StartTime: time.Now().Add(-48 * time.Hour)}
	require.NoError(t, s.InsertProcess(old)) // no end_time: still running

	require.NoError(t, s.CleanupOldData(24*time.Hour))

	res, err := s.QueryProcesses(ProcessQuery{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, res.Processes, 1, "running processes are never trimmed regardless of age")
}

func TestProcessCountAndTotalEventCount(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.InsertProcess(model.ProcessRecord{ID: "p1", PID: 1, Name: "claude", StartTime: time.Now()}))
	require.NoError(t, s.InsertFileOp(model.FileOpRecord{ID: "f1", PID: 1, Operation: model.FileOpRead, Path: "/tmp/x", Timestamp: time.Now()}))

	n, err := s.ProcessCount()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	total, err := s.TotalEventCount()
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}
