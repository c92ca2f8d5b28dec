// Package store implements C8: the persisted event store. It is backed by
// modernc.org/sqlite, a pure-Go SQLite driver — chosen so tuaid never needs
// cgo to produce a static, easily distributed binary.
package store

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tuai/tuaid/pkg/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS processes (
	id TEXT PRIMARY KEY,
	pid INTEGER NOT NULL,
	ppid INTEGER,
	name TEXT NOT NULL,
	cmdline TEXT,
	exe_path TEXT,
	cwd TEXT,
	user TEXT,
	start_time INTEGER NOT NULL,
	end_time INTEGER,
	agent_label TEXT
);
CREATE INDEX IF NOT EXISTS idx_processes_agent_label ON processes(agent_label);
CREATE INDEX IF NOT EXISTS idx_processes_start_time ON processes(start_time);
CREATE INDEX IF NOT EXISTS idx_processes_pid ON processes(pid);

CREATE TABLE IF NOT EXISTS connections (
	id TEXT PRIMARY KEY,
	pid INTEGER NOT NULL,
	protocol TEXT NOT NULL,
	local_addr TEXT,
	local_port INTEGER,
	remote_addr TEXT,
	remote_port INTEGER,
	state TEXT,
	endpoint_class TEXT,
	timestamp INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_connections_remote_addr ON connections(remote_addr);
CREATE INDEX IF NOT EXISTS idx_connections_timestamp ON connections(timestamp);
CREATE INDEX IF NOT EXISTS idx_connections_pid ON connections(pid);

CREATE TABLE IF NOT EXISTS file_ops (
	id TEXT PRIMARY KEY,
	pid INTEGER NOT NULL,
	operation TEXT NOT NULL,
	path TEXT NOT NULL,
	secondary_path TEXT,
	path_class TEXT,
	timestamp INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_file_ops_path ON file_ops(path);
CREATE INDEX IF NOT EXISTS idx_file_ops_timestamp ON file_ops(timestamp);
CREATE INDEX IF NOT EXISTS idx_file_ops_pid ON file_ops(pid);
`

// Store wraps a *sql.DB behind a single-writer mutex, matching the column
// store's concurrent-mutation constraints (spec.md §5 shared-resource
// policy). Readers share the same lock; query rates are low enough that
// this is not a bottleneck in practice.
type Store struct {
	mu sync.Mutex
	db *sql.DB
}

// Open creates (if necessary) and opens the SQLite database at path,
// applying the schema idempotently.
func Open(path string) (*Store, error) {
	dsn := path
	if dsn != ":memory:" {
		dsn += "?_pragma=journal_mode(WAL)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", model.ErrStorage, path, err)
	}
	db.SetMaxOpenConns(1) // the pure-Go driver serializes writers anyway

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: apply schema: %v", model.ErrStorage, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// InsertProcess upserts on id, taking the non-null agent_label and
// preserving any previously recorded end_time unless the caller provides
// one (spec.md §4.8).
func (s *Store) InsertProcess(p model.ProcessRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var endTime interface{}
	if p.HasEndTime {
		endTime = p.EndTime.UnixMilli()
	}
	var ppid interface{}
	if p.HasPPID {
		ppid = p.PPID
	}

	_, err := s.db.Exec(`
		INSERT INTO processes (id, pid, ppid, name, cmdline, exe_path, cwd, user, start_time, end_time, agent_label)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			end_time = COALESCE(excluded.end_time, processes.end_time),
			agent_label = COALESCE(NULLIF(excluded.agent_label, ''), processes.agent_label)
	`, p.ID, p.PID, ppid, p.Name, p.Cmdline, p.ExePath, p.Cwd, p.User, p.StartTime.UnixMilli(), endTime, p.AgentLabel)
	if err != nil {
		return fmt.Errorf("%w: insert process: %v", model.ErrStorage, err)
	}
	return nil
}

// UpdateProcessExit sets end_time for the process with the given internal
// id.
func (s *Store) UpdateProcessExit(id string, endTime time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`UPDATE processes SET end_time = ? WHERE id = ?`, endTime.UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("%w: update process exit: %v", model.ErrStorage, err)
	}
	return nil
}

func (s *Store) InsertConnection(c model.ConnectionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := c.ID
	if id == "" {
		id = fmt.Sprintf("%d-%s-%d-%d", c.PID, c.RemoteAddr, c.RemotePort, c.ObservedAt.UnixNano())
	}
	ts := c.ObservedAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	_, err := s.db.Exec(`
		INSERT INTO connections (id, pid, protocol, local_addr, local_port, remote_addr, remote_port, state, endpoint_class, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, id, c.PID, string(c.Protocol), c.LocalAddr, c.LocalPort, c.RemoteAddr, c.RemotePort, string(c.State), string(c.Endpoint), ts.UnixMilli())
	if err != nil {
		return fmt.Errorf("%w: insert connection: %v", model.ErrStorage, err)
	}
	return nil
}

func (s *Store) InsertFileOp(f model.FileOpRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := f.ID
	if id == "" {
		id = fmt.Sprintf("%d-%s-%d", f.PID, f.Path, time.Now().UnixNano())
	}
	ts := f.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	_, err := s.db.Exec(`
		INSERT INTO file_ops (id, pid, operation, path, secondary_path, path_class, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, id, f.PID, string(f.Operation), f.Path, f.SecondaryPath, string(f.PathClass), ts.UnixMilli())
	if err != nil {
		return fmt.Errorf("%w: insert file op: %v", model.ErrStorage, err)
	}
	return nil
}

// ProcessQuery filters QueryProcesses.
type ProcessQuery struct {
	StartTimeMs *int64
	EndTimeMs   *int64
	AgentLabels []string
	Limit       int
	Offset      int
}

// ProcessQueryResult carries has_more/total_count alongside the page.
type ProcessQueryResult struct {
	Processes  []model.ProcessRecord
	HasMore    bool
	TotalCount int
}

// QueryProcesses mirrors spec.md §4.9's QueryProcesses(...): a zero limit is
// replaced by 100; has_more is true iff the underlying set exceeds
// offset+limit.
func (s *Store) QueryProcesses(q ProcessQuery) (ProcessQueryResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	limit := q.Limit
	if limit == 0 {
		limit = 100
	}

	where := "WHERE 1=1"
	args := []interface{}{}
	if q.StartTimeMs != nil {
		where += " AND start_time >= ?"
		args = append(args, *q.StartTimeMs)
	}
	if q.EndTimeMs != nil {
		where += " AND start_time <= ?"
		args = append(args, *q.EndTimeMs)
	}
	if len(q.AgentLabels) > 0 {
		placeholders := ""
		for i, label := range q.AgentLabels {
			if i > 0 {
				placeholders += ","
			}
			placeholders += "?"
			args = append(args, label)
		}
		where += fmt.Sprintf(" AND agent_label IN (%s)", placeholders)
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM processes " + where
	if err := s.db.QueryRow(countQuery, args...).Scan(&total); err != nil {
		return ProcessQueryResult{}, fmt.Errorf("%w: count processes: %v", model.ErrStorage, err)
	}

	pageArgs := append(append([]interface{}{}, args...), limit+1, q.Offset)
	rows, err := s.db.Query(
		"SELECT id, pid, ppid, name, cmdline, exe_path, cwd, user, start_time, end_time, agent_label FROM processes "+where+
			" ORDER BY start_time DESC LIMIT ? OFFSET ?", pageArgs...)
	if err != nil {
		return ProcessQueryResult{}, fmt.Errorf("%w: query processes: %v", model.ErrStorage, err)
	}
	defer rows.Close()

	var out []model.ProcessRecord
	for rows.Next() {
		var (
			p                  model.ProcessRecord
			ppid               sql.NullInt64
			cmdline, exe, cwd  sql.NullString
			user, agentLabel   sql.NullString
			startMs            int64
			endMs              sql.NullInt64
		)
		if err := rows.Scan(&p.ID, &p.PID, &ppid, &p.Name, &cmdline, &exe, &cwd, &user, &startMs, &endMs, &agentLabel); err != nil {
			return ProcessQueryResult{}, fmt.Errorf("%w: scan process row: %v", model.ErrStorage, err)
		}
		p.Cmdline, p.ExePath, p.Cwd, p.User, p.AgentLabel = cmdline.String, exe.String, cwd.String, user.String, agentLabel.String
		p.StartTime = time.UnixMilli(startMs).UTC()
		if ppid.Valid {
			p.PPID = uint32(ppid.Int64)
			p.HasPPID = true
		}
		if endMs.Valid {
			p.EndTime = time.UnixMilli(endMs.Int64).UTC()
			p.HasEndTime = true
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return ProcessQueryResult{}, fmt.Errorf("%w: iterate process rows: %v", model.ErrStorage, err)
	}

	hasMore := len(out) > limit
	if hasMore {
		out = out[:limit]
	}
	return ProcessQueryResult{Processes: out, HasMore: hasMore, TotalCount: total}, nil
}

// ProcessCount returns the total number of processes ever recorded.
func (s *Store) ProcessCount() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM processes").Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: count processes: %v", model.ErrStorage, err)
	}
	return n, nil
}

// TotalEventCount sums rows across all three tables, used for the Status
// RPC's cumulative events count.
func (s *Store) TotalEventCount() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	err := s.db.QueryRow(`
		SELECT
			(SELECT COUNT(*) FROM processes) +
			(SELECT COUNT(*) FROM connections) +
			(SELECT COUNT(*) FROM file_ops)
	`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("%w: total event count: %v", model.ErrStorage, err)
	}
	return n, nil
}

// CleanupOldData removes file_ops/connections older than retention, and
// processes that both started before the cutoff and have already exited
// (spec.md §4.8, property 6).
func (s *Store) CleanupOldData(retention time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-retention).UnixMilli()

	if _, err := s.db.Exec("DELETE FROM file_ops WHERE timestamp < ?", cutoff); err != nil {
		return fmt.Errorf("%w: cleanup file_ops: %v", model.ErrStorage, err)
	}
	if _, err := s.db.Exec("DELETE FROM connections WHERE timestamp < ?", cutoff); err != nil {
		return fmt.Errorf("%w: cleanup connections: %v", model.ErrStorage, err)
	}
	if _, err := s.db.Exec("DELETE FROM processes WHERE start_time < ? AND end_time IS NOT NULL", cutoff); err != nil {
		return fmt.Errorf("%w: cleanup processes: %v", model.ErrStorage, err)
	}
	return nil
}

// QueryConnectionsByPID returns the most recent connections recorded for a
// pid, newest first.
func (s *Store) QueryConnectionsByPID(pid uint32, limit int) ([]model.ConnectionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit == 0 {
		limit = 100
	}
	rows, err := s.db.Query(`
		SELECT id, pid, protocol, local_addr, local_port, remote_addr, remote_port, state, endpoint_class, timestamp
		FROM connections WHERE pid = ? ORDER BY timestamp DESC LIMIT ?
	`, pid, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: query connections by pid: %v", model.ErrStorage, err)
	}
	defer rows.Close()

	var out []model.ConnectionRecord
	for rows.Next() {
		var c model.ConnectionRecord
		var localAddr, remoteAddr sql.NullString
		var localPort, remotePort sql.NullInt64
		var ts int64
		var protocol, state, endpoint string
		if err := rows.Scan(&c.ID, &c.PID, &protocol, &localAddr, &localPort, &remoteAddr, &remotePort, &state, &endpoint, &ts); err != nil {
			return nil, fmt.Errorf("%w: scan connection row: %v", model.ErrStorage, err)
		}
		c.Protocol = model.Protocol(protocol)
		c.State = model.ConnState(state)
		c.Endpoint = model.EndpointClass(endpoint)
		c.ObservedAt = time.UnixMilli(ts).UTC()
		if localAddr.Valid {
			c.LocalAddr = localAddr.String
			c.LocalPort = uint16(localPort.Int64)
			c.HasLocal = true
		}
		if remoteAddr.Valid && remoteAddr.String != "" {
			c.RemoteAddr = remoteAddr.String
			c.RemotePort = uint16(remotePort.Int64)
			c.HasRemote = true
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
