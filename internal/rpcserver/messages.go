package rpcserver

import "github.com/tuai/tuaid/pkg/model"

// Message shapes carry exactly the fields spec.md §4.9 names. JSON tags are
// stable wire names; unknown fields round-trip losslessly through
// encoding/json's default "ignore extras on decode, omit zero extras on
// encode" behavior is NOT sufficient for full losslessness, so every
// producer here is the only producer of these types — there is no
// intermediate hop that could drop a field.

type StatusRequest struct{}

type StatusResponse struct {
	Running             bool   `json:"running"`
	Platform             string `json:"platform"`
	ElevatedPrivileges   bool   `json:"elevated_privileges"`
	UptimeSeconds        int64  `json:"uptime_seconds"`
	ProcessesTracked     uint64 `json:"processes_tracked"`
	EventsTotal          uint64 `json:"events_total"`
}

type GetAgentSignaturesRequest struct{}

type AgentSignatureView struct {
	Name                 string   `json:"name"`
	DisplayName          string   `json:"display_name"`
	Icon                 string   `json:"icon,omitempty"`
	ExpectedEndpoints    []string `json:"expected_endpoints"`
	ChildProcessTracking bool     `json:"child_process_tracking"`
}

type GetAgentSignaturesResponse struct {
	Signatures []AgentSignatureView `json:"signatures"`
}

type QueryProcessesRequest struct {
	StartTimeMs *int64   `json:"start_time_ms,omitempty"`
	EndTimeMs   *int64   `json:"end_time_ms,omitempty"`
	AgentLabels []string `json:"agent_labels,omitempty"`
	Limit       int      `json:"limit"`
	Offset      int      `json:"offset"`
}

type QueryProcessesResponse struct {
	Processes  []model.ProcessRecord `json:"processes"`
	HasMore    bool                  `json:"has_more"`
	TotalCount int                   `json:"total_count"`
}

type QueryConnectionsRequest struct {
	PID   uint32 `json:"pid,omitempty"`
	Limit int    `json:"limit"`
}

type QueryConnectionsResponse struct {
	Connections []model.ConnectionRecord `json:"connections"`
}

type QueryFileOpsRequest struct {
	PID   uint32 `json:"pid,omitempty"`
	Limit int    `json:"limit"`
}

type QueryFileOpsResponse struct {
	FileOps []model.FileOpRecord `json:"file_ops"`
}

type WatchProcessesRequest struct {
	IncludeExisting bool     `json:"include_existing"`
	AgentLabels     []string `json:"agent_labels,omitempty"`
}

// WatchProcessesEvent is the per-message payload the streaming handler
// sends: a process-shaped view of the underlying Event envelope.
type WatchProcessesEvent struct {
	Kind        string             `json:"kind"`
	TimestampMs int64              `json:"timestamp_ms"`
	PID         uint32             `json:"pid"`
	DisplayName string             `json:"display_name"`
	AgentLabel  string             `json:"agent_label"`
	Process     *model.ProcessRecord `json:"process,omitempty"`
}
