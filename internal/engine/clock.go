package engine

import (
	"time"

	"github.com/miradorstack/reconcile-timeline/internal/models"
)

// ClockOffset is the fixed amount the server clock runs ahead of the client clock.
type ClockOffset struct {
	Hours   float64
	Seconds float64
}

// Duration converts the offset to a time.Duration.
func (o ClockOffset) Duration() time.Duration {
	return time.Duration(o.Hours*float64(time.Hour) + o.Seconds*float64(time.Second))
}

// ClockAligner moves server timestamps onto the client time axis. There is no drift correction;
// the offset is assumed constant for the session.
type ClockAligner struct {
	offset time.Duration
}

// NewClockAligner constructs an aligner for offset.
func NewClockAligner(offset ClockOffset) *ClockAligner {
	return &ClockAligner{offset: offset.Duration()}
}

// Align returns ts unchanged for client records and ts minus the offset for server records.
func (a *ClockAligner) Align(ts time.Time, process models.Process) time.Time {
	if process != models.ProcessServer {
		return ts
	}
	return ts.Add(-a.offset)
}

// Offset returns the configured server offset.
func (a *ClockAligner) Offset() time.Duration { return a.offset }
