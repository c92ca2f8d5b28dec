// Package network implements C3: the polling-only socket collector. It
// joins /proc/net/{tcp,tcp6,udp,udp6,unix} rows to owning pids via each
// process's /proc/<pid>/fd table, and labels remote peers with an
// informational endpoint class.
package network

import (
	"fmt"
	"sync/atomic"

	"github.com/tuai/tuaid/pkg/model"
)

const (
	pathTCP  = "/proc/net/tcp"
	pathTCP6 = "/proc/net/tcp6"
	pathUDP  = "/proc/net/udp"
	pathUDP6 = "/proc/net/udp6"
	pathUnix = "/proc/net/unix"
)

// Collector walks the host's socket tables on demand. There is no push
// variant: consumers (the tracker) diff consecutive Collect() results.
type Collector struct {
	running atomic.Bool
}

func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) Start() error {
	c.running.Store(true)
	return nil
}

func (c *Collector) Stop() error {
	c.running.Store(false)
	return nil
}

func (c *Collector) IsRunning() bool { return c.running.Load() }

// Collect returns every socket currently owned by a known process, with
// protocol, state, and endpoint classification filled in.
func (c *Collector) Collect() ([]model.ConnectionRecord, error) {
	inodeToPID, err := buildInodeToPID()
	if err != nil {
		return nil, fmt.Errorf("%w: build inode map: %v", model.ErrCollectionFailed, err)
	}

	var entries []socketEntry
	tcpEntries, err := parseProcNetFile(pathTCP, model.ProtocolTCP, model.ConnUnknown)
	if err != nil {
		return nil, err
	}
	tcp6Entries, err := parseProcNetFile(pathTCP6, model.ProtocolTCP, model.ConnUnknown)
	if err != nil {
		return nil, err
	}
	udpEntries, err := parseProcNetFile(pathUDP, model.ProtocolUDP, model.ConnEstablished)
	if err != nil {
		return nil, err
	}
	udp6Entries, err := parseProcNetFile(pathUDP6, model.ProtocolUDP, model.ConnEstablished)
	if err != nil {
		return nil, err
	}
	unixEntries, err := parseUnixSockets(pathUnix)
	if err != nil {
		return nil, err
	}
	entries = append(entries, tcpEntries...)
	entries = append(entries, tcp6Entries...)
	entries = append(entries, udpEntries...)
	entries = append(entries, udp6Entries...)
	entries = append(entries, unixEntries...)

	out := make([]model.ConnectionRecord, 0, len(entries))
	for _, e := range entries {
		pid, ok := inodeToPID[e.inode]
		if !ok {
			continue // socket not owned by any process we could scan
		}

		rec := model.ConnectionRecord{
			PID:      pid,
			Protocol: e.protocol,
			State:    e.state,
		}
		if e.protocol != model.ProtocolUnix && isBoundAddr(e.localAddr, e.localPort) {
			rec.LocalAddr = e.localAddr
			rec.LocalPort = e.localPort
			rec.HasLocal = true
		}
		if isBoundAddr(e.remoteAddr, e.remotePort) {
			rec.RemoteAddr = e.remoteAddr
			rec.RemotePort = e.remotePort
			rec.HasRemote = true
			rec.Endpoint = ClassifyEndpoint(e.remoteAddr, e.remotePort)
		} else {
			rec.Endpoint = model.EndpointUnknown
		}
		out = append(out, rec)
	}
	return out, nil
}

// isBoundAddr reports whether addr/port identify a real endpoint rather
// than the unspecified wildcard (0.0.0.0, ::) or port 0, which spec.md
// §4.3 normalises to "no address" on both the local and remote side.
func isBoundAddr(addr string, port uint16) bool {
	if addr == "" || addr == "0.0.0.0" || addr == "::" {
		return false
	}
	return port != 0
}
