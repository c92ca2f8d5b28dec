// Package rpcserver implements C9: the RPC surface. It runs on
// google.golang.org/grpc but carries plain Go structs instead of
// protoc-generated messages, via the hand-registered ServiceDesc in
// service.go and the JSON codec in codec.go.
package rpcserver

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/tuai/tuaid/internal/eventbus"
	"github.com/tuai/tuaid/internal/signature"
	"github.com/tuai/tuaid/internal/store"
	"github.com/tuai/tuaid/pkg/model"
)

// Tracker is the narrow read surface the RPC handlers need; satisfied by
// *tracker.Tracker. Declared here (rather than importing internal/tracker
// directly) only to keep the dependency direction obvious — the concrete
// type is still *tracker.Tracker in practice.
type Tracker interface {
	Agents() []model.ProcessRecord
	Subscribe(ctx context.Context) *eventbus.Handle
	Counts() (processesTracked, eventsTotal uint64)
}

// LiveSnapshot backs QueryConnections/QueryFileOps, which read current
// in-memory state rather than the persistent store (spec.md §4.9).
type LiveSnapshot interface {
	Connections(pid uint32, limit int) []model.ConnectionRecord
	FileOps(pid uint32, limit int) []model.FileOpRecord
}

// Server implements the five unary handlers and the streaming watch
// handler registered in the ServiceDesc.
type Server struct {
	tracker   Tracker
	registry  *signature.Registry
	store     *store.Store
	live      LiveSnapshot
	startedAt time.Time
	platform  string
	elevated  bool
	log       *slog.Logger
}

func New(tr Tracker, registry *signature.Registry, st *store.Store, live LiveSnapshot, platform string, elevated bool, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		tracker:   tr,
		registry:  registry,
		store:     st,
		live:      live,
		startedAt: time.Now(),
		platform:  platform,
		elevated:  elevated,
		log:       log.With("component", "rpcserver"),
	}
}

func (s *Server) Status(ctx context.Context, _ *StatusRequest) (*StatusResponse, error) {
	tracked, events := s.tracker.Counts()
	return &StatusResponse{
		Running:            true,
		Platform:           s.platform,
		ElevatedPrivileges: s.elevated,
		UptimeSeconds:      int64(time.Since(s.startedAt).Seconds()),
		ProcessesTracked:   tracked,
		EventsTotal:        events,
	}, nil
}

func (s *Server) GetAgentSignatures(ctx context.Context, _ *GetAgentSignaturesRequest) (*GetAgentSignaturesResponse, error) {
	sigs := s.registry.Signatures()
	views := make([]AgentSignatureView, 0, len(sigs))
	for _, sig := range sigs {
		views = append(views, AgentSignatureView{
			Name:                 sig.Name,
			DisplayName:          sig.DisplayName,
			Icon:                 sig.Icon,
			ExpectedEndpoints:    sig.NetworkEndpoints.Expected,
			ChildProcessTracking: sig.ChildProcessTracking,
		})
	}
	return &GetAgentSignaturesResponse{Signatures: views}, nil
}

func (s *Server) QueryProcesses(ctx context.Context, req *QueryProcessesRequest) (*QueryProcessesResponse, error) {
	if s.store == nil {
		return nil, status.Error(codes.Unavailable, "event store not configured")
	}
	res, err := s.store.QueryProcesses(store.ProcessQuery{
		StartTimeMs: req.StartTimeMs,
		EndTimeMs:   req.EndTimeMs,
		AgentLabels: req.AgentLabels,
		Limit:       req.Limit,
		Offset:      req.Offset,
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "query processes: %v", err)
	}
	return &QueryProcessesResponse{Processes: res.Processes, HasMore: res.HasMore, TotalCount: res.TotalCount}, nil
}

// QueryConnections and QueryFileOps read the live snapshot only, per
// spec.md §4.9 — they deliberately do not reach into the store.
func (s *Server) QueryConnections(ctx context.Context, req *QueryConnectionsRequest) (*QueryConnectionsResponse, error) {
	if s.live == nil {
		return &QueryConnectionsResponse{}, nil
	}
	return &QueryConnectionsResponse{Connections: s.live.Connections(req.PID, req.Limit)}, nil
}

func (s *Server) QueryFileOps(ctx context.Context, req *QueryFileOpsRequest) (*QueryFileOpsResponse, error) {
	if s.live == nil {
		return &QueryFileOpsResponse{}, nil
	}
	return &QueryFileOpsResponse{FileOps: s.live.FileOps(req.PID, req.Limit)}, nil
}

// watchStream is the subset of grpc.ServerStream the WatchProcesses
// handler needs; satisfied by the grpc.ServerStream the hand-written
// dispatcher in service.go hands it.
type watchStream interface {
	Context() context.Context
	SendMsg(m interface{}) error
}

func (s *Server) watchProcesses(req *WatchProcessesRequest, stream watchStream) error {
	ctx := stream.Context()

	if req.IncludeExisting {
		now := time.Now().UTC()
		for _, p := range s.tracker.Agents() {
			if !labelAllowed(p.AgentLabel, req.AgentLabels) {
				continue
			}
			proc := p
			ev := WatchProcessesEvent{
				Kind:        string(model.EventProcessSpawn),
				TimestampMs: now.UnixMilli(),
				PID:         p.PID,
				DisplayName: p.Name,
				AgentLabel:  p.AgentLabel,
				Process:     &proc,
			}
			if err := stream.SendMsg(&ev); err != nil {
				return err
			}
		}
	}

	handle := s.tracker.Subscribe(ctx)
	defer handle.Close()

	for {
		ev, skipped, ok := handle.Next()
		if !ok {
			return nil // client disconnected or server shutting down
		}
		if skipped > 0 {
			// spec.md §4.9: a lagging watch stream terminates; the client
			// may reconnect.
			return status.Errorf(codes.ResourceExhausted, "watch stream fell behind and was terminated: %d events dropped", skipped)
		}
		if !labelAllowed(ev.AgentLabel, req.AgentLabels) {
			continue
		}

		out := WatchProcessesEvent{
			Kind:        string(ev.Kind),
			TimestampMs: ev.Timestamp.UnixMilli(),
			PID:         ev.PID,
			DisplayName: ev.DisplayName,
			AgentLabel:  ev.AgentLabel,
			Process:     ev.Process,
		}
		if err := stream.SendMsg(&out); err != nil {
			return err
		}
	}
}

func labelAllowed(label string, allow []string) bool {
	if len(allow) == 0 {
		return true
	}
	for _, a := range allow {
		if a == label {
			return true
		}
	}
	return false
}
