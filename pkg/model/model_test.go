package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProcessRecordKey(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	p1 := ProcessRecord{PID: 100, StartTime: start}
	p2 := ProcessRecord{PID: 100, StartTime: start}
	p3 := ProcessRecord{PID: 100, StartTime: start.Add(time.Second)}

	assert.Equal(t, p1.Key(), p2.Key(), "same pid+start_time must compare equal")
	assert.NotEqual(t, p1.Key(), p3.Key(), "a recycled pid with a different start time is a different identity")
}

func TestConnectionDedupKey(t *testing.T) {
	c := ConnectionRecord{PID: 42, RemoteAddr: "api.anthropic.com", RemotePort: 443}
	assert.Equal(t, ConnDedupKey{PID: 42, RemoteAddr: "api.anthropic.com", RemotePort: 443}, c.DedupKey())
}

func TestFileOpDedupKey(t *testing.T) {
	f := FileOpRecord{PID: 42, Path: "/etc/passwd"}
	assert.Equal(t, FileDedupKey{PID: 42, Path: "/etc/passwd"}, f.DedupKey())
}
