package network

import (
	"os"
	"strconv"
	"strings"
)

// buildInodeToPID walks /proc/<pid>/fd for every pid currently visible and
// returns a socket-inode -> pid map, resolving "socket:[<inode>]" symlink
// targets. Per-pid failures (permission denied, pid exited mid-scan) are
// absorbed silently; this is a best-effort correlation pass run once per
// collection tick.
func buildInodeToPID() (map[string]uint32, error) {
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return nil, err
	}

	out := make(map[string]uint32)
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		pid64, err := strconv.ParseUint(e.Name(), 10, 32)
		if err != nil {
			continue
		}
		pid := uint32(pid64)

		fdDir := "/proc/" + e.Name() + "/fd"
		fds, err := os.ReadDir(fdDir)
		if err != nil {
			continue
		}
		for _, fd := range fds {
			target, err := os.Readlink(fdDir + "/" + fd.Name())
			if err != nil {
				continue
			}
			if inode, ok := socketInode(target); ok {
				out[inode] = pid
			}
		}
	}
	return out, nil
}

func socketInode(target string) (string, bool) {
	if !strings.HasPrefix(target, "socket:[") || !strings.HasSuffix(target, "]") {
		return "", false
	}
	return target[len("socket:[") : len(target)-1], true
}
