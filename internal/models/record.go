package models

import (
	"fmt"
	"strings"
	"time"
)

// Process identifies which side of the simulation produced a log line.
type Process int

const (
	// ProcessClient is the game client log stream.
	ProcessClient Process = iota + 1
	// ProcessServer is the authoritative server log stream.
	ProcessServer
)

// String returns the lower-case process name used in configs and metrics labels.
func (p Process) String() string {
	switch p {
	case ProcessClient:
		return "client"
	case ProcessServer:
		return "server"
	default:
		return "unknown"
	}
}

// ParseProcess maps "client"/"server" (case-insensitive) to a Process.
func ParseProcess(value string) (Process, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "client":
		return ProcessClient, nil
	case "server":
		return ProcessServer, nil
	default:
		return 0, fmt.Errorf("unknown process %q", value)
	}
}

// LogRecord is one logical log entry: a header line plus any continuation lines.
type LogRecord struct {
	Timestamp time.Time
	Level     string
	Process   Process
	// Body holds the message text with the header stripped; continuation lines are joined with "\n".
	Body string
	// Line is the 1-based line number of the header in the source file.
	Line int
}
