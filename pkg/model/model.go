// Package model holds the record, signature, and event types shared by
// every tuaid component. It imports nothing from internal/ so any package
// can depend on it without creating cycles.
package model

import "time"

// Severity is the alert/event severity scale used across the system.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityAlert    Severity = "alert"
	SeverityCritical Severity = "critical"
)

// Protocol identifies the transport of a ConnectionRecord.
type Protocol string

const (
	ProtocolTCP  Protocol = "tcp"
	ProtocolUDP  Protocol = "udp"
	ProtocolUnix Protocol = "unix"
)

// ConnState is the observed state of a ConnectionRecord.
type ConnState string

const (
	ConnConnecting ConnState = "connecting"
	ConnEstablished ConnState = "established"
	ConnListen     ConnState = "listen"
	ConnTimeWait   ConnState = "time-wait"
	ConnCloseWait  ConnState = "close-wait"
	ConnClosed     ConnState = "closed"
	ConnUnknown    ConnState = "unknown"
)

// FileOp is the operation kind recorded by the file collector.
type FileOp string

const (
	FileOpOpen   FileOp = "open"
	FileOpRead   FileOp = "read"
	FileOpWrite  FileOp = "write"
	FileOpCreate FileOp = "create"
	FileOpDelete FileOp = "delete"
	FileOpRename FileOp = "rename"
)

// EndpointClass labels a remote network peer for presentation only; it
// never gates tracking.
type EndpointClass string

const (
	EndpointLLMAPI           EndpointClass = "llm-api"
	EndpointLocalLLM         EndpointClass = "local-llm"
	EndpointCodeForge        EndpointClass = "code-forge"
	EndpointPackageRegistry  EndpointClass = "package-registry"
	EndpointTelemetry        EndpointClass = "telemetry"
	EndpointLocalhost        EndpointClass = "localhost"
	EndpointUnknown          EndpointClass = "unknown"
)

// PathClass labels a file path for presentation only.
type PathClass string

const (
	PathSourceCode     PathClass = "source-code"
	PathConfig         PathClass = "config"
	PathDocumentation  PathClass = "documentation"
	PathVersionControl PathClass = "version-control"
	PathLockFile       PathClass = "lock-file"
	PathBuildArtifact  PathClass = "build-artifact"
	PathOther          PathClass = "other"
)

// ProcessRecord mirrors spec.md §3's ProcessRecord.
type ProcessRecord struct {
	ID         string
	PID        uint32
	PPID       uint32 // 0 means "no parent"
	HasPPID    bool
	Name       string
	Cmdline    string
	ExePath    string
	Cwd        string
	User       string
	UID        int64
	GID        int64
	HasUID     bool
	StartTime  time.Time
	EndTime    time.Time
	HasEndTime bool
	AgentLabel string
}

// Key identifies a process by the (pid, start_time) pair tracker code must
// use when deciding whether a pid "still exists" across reconcile ticks
// (pid-reuse safety, spec.md §4.6).
func (p ProcessRecord) Key() ProcessKey {
	return ProcessKey{PID: p.PID, StartTime: p.StartTime}
}

// ProcessKey is the pid-reuse-safe identity of a process.
type ProcessKey struct {
	PID       uint32
	StartTime time.Time
}

// Equal compares two ProcessKeys using time.Time.Equal rather than ==,
// since StartTime values read from different sources (e.g. a collector
// snapshot vs. a previously stored record) can carry different monotonic
// clock readings for the same instant.
func (k ProcessKey) Equal(other ProcessKey) bool {
	return k.PID == other.PID && k.StartTime.Equal(other.StartTime)
}

// ConnectionRecord mirrors spec.md §3's ConnectionRecord.
type ConnectionRecord struct {
	ID          string
	PID         uint32
	Protocol    Protocol
	LocalAddr   string
	LocalPort   uint16
	HasLocal    bool
	RemoteAddr  string
	RemotePort  uint16
	HasRemote   bool
	State       ConnState
	ObservedAt  time.Time
	Endpoint    EndpointClass
}

// DedupKey is the (pid, remote_addr, remote_port) key used to detect "new
// connection" events (spec.md §3).
func (c ConnectionRecord) DedupKey() ConnDedupKey {
	return ConnDedupKey{PID: c.PID, RemoteAddr: c.RemoteAddr, RemotePort: c.RemotePort}
}

// ConnDedupKey is the dedup key for connection events.
type ConnDedupKey struct {
	PID        uint32
	RemoteAddr string
	RemotePort uint16
}

// FileOpRecord mirrors spec.md §3's FileOpRecord.
type FileOpRecord struct {
	ID            string
	PID           uint32
	Operation     FileOp
	Path          string
	SecondaryPath string
	Timestamp     time.Time
	PathClass     PathClass
}

// DedupKey is the (pid, path) key used to detect "new file" events.
func (f FileOpRecord) DedupKey() FileDedupKey {
	return FileDedupKey{PID: f.PID, Path: f.Path}
}

// FileDedupKey is the dedup key for file events.
type FileDedupKey struct {
	PID  uint32
	Path string
}

// CommandPattern is a single regex rule, kept as its own type (mirrors the
// original roea-common CommandPattern shape).
type CommandPattern struct {
	Regex string `yaml:"regex"`
}

// DetectionRules mirrors spec.md §3's AgentSignature.detection_rules tuple.
type DetectionRules struct {
	ProcessNames    []string         `yaml:"process_names"`
	CommandPatterns []CommandPattern `yaml:"command_patterns"`
	ExePatterns     []CommandPattern `yaml:"exe_patterns"`
	ParentHints     []string         `yaml:"parent_hints"`
}

// NetworkEndpoints mirrors spec.md §3's expected-endpoints tuple.
type NetworkEndpoints struct {
	Expected             []string `yaml:"expected"`
	SuspiciousIfNotInList bool    `yaml:"suspicious_if_not_in_list"`
}

// AgentSignature mirrors spec.md §3's AgentSignature.
type AgentSignature struct {
	Name                 string           `yaml:"name"`
	DisplayName          string           `yaml:"display_name"`
	Icon                 string           `yaml:"icon,omitempty"`
	Detection            DetectionRules   `yaml:"detection"`
	ChildProcessTracking bool             `yaml:"child_process_tracking"`
	NetworkEndpoints     NetworkEndpoints `yaml:"network_endpoints"`
}

// ProtectionRule mirrors spec.md §3's ProtectionRule.
type ProtectionRule struct {
	Files            []string `yaml:"files"`
	Directories      []string `yaml:"directories"`
	Patterns         []string `yaml:"patterns"`
	IncludeDefaults  bool     `yaml:"include_defaults"`
	AlertSeverity    Severity `yaml:"alert_severity"`
	PreventionMode   bool     `yaml:"prevention_mode"`
	LogFile          string   `yaml:"log_file,omitempty"`
}

// ProtectionAlert mirrors spec.md §3's ProtectionAlert.
type ProtectionAlert struct {
	Timestamp   time.Time
	PID         uint32
	DisplayName string
	Path        string
	Operation   FileOp
	Severity    Severity
	Blocked     bool
	Signature   string
}

// EventKind discriminates the Event envelope published on the bus (C7).
type EventKind string

const (
	EventProcessSpawn   EventKind = "ProcessSpawn"
	EventProcessExit    EventKind = "ProcessExit"
	EventNetwork        EventKind = "Network"
	EventFileOpen       EventKind = "FileOpen"
	EventFileRead       EventKind = "FileRead"
	EventFileWrite      EventKind = "FileWrite"
	EventFileCreate     EventKind = "FileCreate"
	EventFileDelete     EventKind = "FileDelete"
	EventProtectedAccess EventKind = "ProtectedAccess"
	EventRootAgent      EventKind = "RootAgent" // initial-scan informational event
)

// Event is the typed envelope broadcast on the event bus and persisted to
// the event store.
type Event struct {
	ID          string
	Kind        EventKind
	Timestamp   time.Time
	PID         uint32
	DisplayName string
	AgentLabel  string
	Severity    Severity

	// Populated depending on Kind.
	Process    *ProcessRecord
	Connection *ConnectionRecord
	FileOp     *FileOpRecord
	ChildCount int // EventRootAgent only
}
