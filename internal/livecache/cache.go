// Package livecache holds the most recent per-pid connection and file-op
// snapshots the collectors produced, backing QueryConnections/QueryFileOps
// (spec.md §4.9: those two RPCs read live state, not the persistent store).
package livecache

import (
	"sort"
	"sync"

	"github.com/tuai/tuaid/pkg/model"
)

// Cache is safe for concurrent use: one writer (the poll loop) and many
// readers (RPC handlers, the TUI).
type Cache struct {
	mu          sync.RWMutex
	connections map[uint32][]model.ConnectionRecord
	fileOps     map[uint32][]model.FileOpRecord
}

func New() *Cache {
	return &Cache{
		connections: make(map[uint32][]model.ConnectionRecord),
		fileOps:     make(map[uint32][]model.FileOpRecord),
	}
}

// SetConnections replaces the full connection snapshot, re-bucketing by pid.
func (c *Cache) SetConnections(conns []model.ConnectionRecord) {
	byPid := make(map[uint32][]model.ConnectionRecord)
	for _, rec := range conns {
		byPid[rec.PID] = append(byPid[rec.PID], rec)
	}
	c.mu.Lock()
	c.connections = byPid
	c.mu.Unlock()
}

// SetFileOps replaces the full file-op snapshot, re-bucketing by pid.
func (c *Cache) SetFileOps(ops []model.FileOpRecord) {
	byPid := make(map[uint32][]model.FileOpRecord)
	for _, rec := range ops {
		byPid[rec.PID] = append(byPid[rec.PID], rec)
	}
	c.mu.Lock()
	c.fileOps = byPid
	c.mu.Unlock()
}

// Connections returns up to limit connection records for pid (a limit of 0
// means "all"). A pid of 0 returns the connections of every pid in the
// snapshot, sorted by ObservedAt, oldest first.
func (c *Cache) Connections(pid uint32, limit int) []model.ConnectionRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []model.ConnectionRecord
	if pid == 0 {
		for _, recs := range c.connections {
			out = append(out, recs...)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ObservedAt.Before(out[j].ObservedAt) })
	} else {
		out = append(out, c.connections[pid]...)
	}
	return capSlice(out, limit)
}

// FileOps returns up to limit file-op records for pid (0 = every pid).
func (c *Cache) FileOps(pid uint32, limit int) []model.FileOpRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []model.FileOpRecord
	if pid == 0 {
		for _, recs := range c.fileOps {
			out = append(out, recs...)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	} else {
		out = append(out, c.fileOps[pid]...)
	}
	return capSlice(out, limit)
}

func capSlice[T any](s []T, limit int) []T {
	if limit <= 0 || limit >= len(s) {
		return s
	}
	return s[:limit]
}
