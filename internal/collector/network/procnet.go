package network

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/tuai/tuaid/pkg/model"
)

// tcpStateFromHex maps /proc/net/tcp's hex state column to a ConnState.
// Values follow include/net/tcp_states.h; anything unlisted collapses to
// connecting, matching the original's permissive default.
func tcpStateFromHex(h string) model.ConnState {
	switch strings.ToUpper(h) {
	case "01":
		return model.ConnEstablished
	case "02":
		return model.ConnConnecting
	case "0A":
		return model.ConnListen
	case "06":
		return model.ConnTimeWait
	case "08":
		return model.ConnCloseWait
	case "07":
		return model.ConnClosed
	default:
		return model.ConnConnecting
	}
}

// socketEntry is one parsed row of /proc/net/{tcp,tcp6,udp,udp6}.
type socketEntry struct {
	inode      string
	localAddr  string
	localPort  uint16
	remoteAddr string
	remotePort uint16
	state      model.ConnState
	protocol   model.Protocol
}

func parseProcNetFile(path string, protocol model.Protocol, defaultState model.ConnState) ([]socketEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: open %s: %v", model.ErrCollectionFailed, path, err)
	}
	defer f.Close()

	var out []socketEntry
	scanner := bufio.NewScanner(f)
	first := true
	for scanner.Scan() {
		if first {
			first = false
			continue // header row
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) < 10 {
			continue
		}
		localAddr, localPort, err := splitHexAddr(fields[1])
		if err != nil {
			continue
		}
		remoteAddr, remotePort, err := splitHexAddr(fields[2])
		if err != nil {
			continue
		}
		inode := fields[9]

		entry := socketEntry{
			inode:      inode,
			localAddr:  localAddr,
			localPort:  localPort,
			remoteAddr: remoteAddr,
			remotePort: remotePort,
			protocol:   protocol,
			state:      defaultState,
		}
		if protocol == model.ProtocolTCP {
			entry.state = tcpStateFromHex(fields[3])
		}
		out = append(out, entry)
	}
	if err := scanner.Err(); err != nil && err != io.EOF {
		return nil, fmt.Errorf("%w: scan %s: %v", model.ErrCollectionFailed, path, err)
	}
	return out, nil
}

// splitHexAddr decodes a "<hex-addr>:<hex-port>" field from /proc/net/tcp
// style files into a dotted/colon address and decimal port. Supports both
// IPv4 (8 hex chars) and IPv6 (32 hex chars) forms.
func splitHexAddr(field string) (string, uint16, error) {
	parts := strings.SplitN(field, ":", 2)
	if len(parts) != 2 {
		return "", 0, fmt.Errorf("malformed addr field %q", field)
	}
	addrHex, portHex := parts[0], parts[1]

	portN, err := strconv.ParseUint(portHex, 16, 16)
	if err != nil {
		return "", 0, err
	}

	raw, err := hex.DecodeString(addrHex)
	if err != nil {
		return "", 0, err
	}

	ip := decodeLittleEndianIP(raw)
	return ip.String(), uint16(portN), nil
}

// decodeLittleEndianIP reverses the little-endian word order /proc/net uses
// for address bytes.
func decodeLittleEndianIP(raw []byte) net.IP {
	out := make([]byte, len(raw))
	if len(raw) == 4 {
		for i := 0; i < 4; i++ {
			out[i] = raw[3-i]
		}
		return net.IP(out)
	}
	// IPv6: reverse in 4-byte little-endian words, per-word.
	for w := 0; w < len(raw)/4; w++ {
		for i := 0; i < 4; i++ {
			out[w*4+i] = raw[w*4+3-i]
		}
	}
	return net.IP(out)
}

// parseUnixSockets extracts inode->path entries from /proc/net/unix; tuaid
// surfaces these as Unix-domain connections with no remote port.
func parseUnixSockets(path string) ([]socketEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: open %s: %v", model.ErrCollectionFailed, path, err)
	}
	defer f.Close()

	var out []socketEntry
	scanner := bufio.NewScanner(f)
	first := true
	for scanner.Scan() {
		if first {
			first = false
			continue
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) < 7 {
			continue
		}
		inode := fields[6]
		localAddr := ""
		if len(fields) >= 8 {
			localAddr = fields[7]
		}
		out = append(out, socketEntry{
			inode:     inode,
			localAddr: localAddr,
			protocol:  model.ProtocolUnix,
			state:     model.ConnEstablished,
		})
	}
	return out, scanner.Err()
}
