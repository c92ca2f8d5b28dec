// Package file implements C4: the open-file collector. For each pid it
// walks /proc/<pid>/fd, resolves the descriptor target, filters out
// non-regular-file targets, and — where /proc exposes fdinfo — classifies
// the access as read or write from the kernel's open-flags field.
package file

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/tuai/tuaid/pkg/model"
)

// DefaultNoiseSubstrings are path fragments the collector drops by default;
// operator configurable via Options.NoiseSubstrings.
var DefaultNoiseSubstrings = []string{
	"node_modules/",
	"/target/",
	"/.git/",
	"/dist/",
	"/build/",
	".cache/",
	"/tmp/",
	"/__pycache__/",
}

// Options configures collector construction.
type Options struct {
	// NoiseSubstrings overrides DefaultNoiseSubstrings when non-nil.
	NoiseSubstrings []string
}

// Collector walks open file descriptors on demand. There is no push
// variant: consumers diff consecutive Collect() results per pid.
type Collector struct {
	running atomic.Bool
	noise   []string
}

func NewCollector(opts Options) *Collector {
	noise := opts.NoiseSubstrings
	if noise == nil {
		noise = DefaultNoiseSubstrings
	}
	return &Collector{noise: noise}
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

// Collect enumerates open regular-file descriptors across every pid
// currently visible under /proc.
func (c *Collector) Collect() ([]model.FileOpRecord, error) {
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return nil, fmt.Errorf("%w: read /proc: %v", model.ErrCollectionFailed, err)
	}

	var out []model.FileOpRecord
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		pid64, err := strconv.ParseUint(e.Name(), 10, 32)
		if err != nil {
			continue
		}
		recs, err := c.OpenFilesForPID(uint32(pid64))
		if err != nil {
			continue // pid likely exited mid-scan; absorbed silently
		}
		out = append(out, recs...)
	}
	return out, nil
}

// OpenFilesForPID mirrors spec.md §4.4's open_files_for_pid(pid) operation.
func (c *Collector) OpenFilesForPID(pid uint32) ([]model.FileOpRecord, error) {
	fdDir := fmt.Sprintf("/proc/%d/fd", pid)
	fds, err := os.ReadDir(fdDir)
	if err != nil {
		return nil, err
	}

	var out []model.FileOpRecord
	for _, fd := range fds {
		target, err := os.Readlink(fdDir + "/" + fd.Name())
		if err != nil {
			continue
		}
		if !isRegularFileTarget(target) {
			continue
		}
		if c.isNoise(target) {
			continue
		}

		op := model.FileOpOpen
		if mode, ok := readAccessMode(pid, fd.Name()); ok {
			op = mode
		}

		out = append(out, model.FileOpRecord{
			PID:       pid,
			Operation: op,
			Path:      target,
			PathClass: ClassifyPath(target),
		})
	}
	return out, nil
}

// isRegularFileTarget filters out sockets, pipes, anonymous inodes, device
// files, and pseudo-filesystem paths that /proc/<pid>/fd can point at.
func isRegularFileTarget(target string) bool {
	if strings.HasPrefix(target, "socket:[") || strings.HasPrefix(target, "pipe:[") {
		return false
	}
	if strings.HasPrefix(target, "anon_inode:") {
		return false
	}
	if strings.HasPrefix(target, "/proc/") || strings.HasPrefix(target, "/sys/") || strings.HasPrefix(target, "/dev/") {
		return false
	}
	return strings.HasPrefix(target, "/")
}

func (c *Collector) isNoise(path string) bool {
	for _, n := range c.noise {
		if strings.Contains(path, n) {
			return true
		}
	}
	return false
}

// readAccessMode reads /proc/<pid>/fdinfo/<fd> and decodes the "flags:"
// field's access-mode bits (O_RDONLY=0, O_WRONLY=1, O_RDWR=2) into a
// FileOp. Returns ok=false where the environment doesn't expose fdinfo
// (permission denied, fd gone), letting the caller fall back to "open".
func readAccessMode(pid uint32, fd string) (model.FileOp, bool) {
	path := fmt.Sprintf("/proc/%d/fdinfo/%s", pid, fd)
	f, err := os.Open(path)
	if err != nil {
		return "", false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "flags:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return "", false
		}
		flags, err := strconv.ParseInt(fields[1], 8, 64)
		if err != nil {
			return "", false
		}
		switch flags & 0x3 {
		case 0:
			return model.FileOpRead, true
		case 1:
			return model.FileOpWrite, true
		case 2:
			return model.FileOpWrite, true // O_RDWR: treat as a write-capable handle
		}
	}
	return "", false
}
