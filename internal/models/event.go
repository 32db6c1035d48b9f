package models

import (
	"strconv"
	"time"
)

// Event is a classified, clock-aligned log record.
type Event struct {
	Kind      EventKind
	Timestamp time.Time
	Rank      float64
	// RawMessage is the originating record body, unchanged.
	RawMessage string
}

// Point returns the event's plotted coordinate.
func (e Event) Point() Point {
	return Point{Time: e.Timestamp, Rank: e.Rank}
}

// CorrelationKey links a client input to its server-side effects. The zero value is NoKey,
// which is distinct from a valid key of 0.
type CorrelationKey struct {
	value uint64
	valid bool
}

// NoKey marks a message without a correlation marker.
var NoKey = CorrelationKey{}

// KeyOf wraps a parsed marker value.
func KeyOf(v uint64) CorrelationKey {
	return CorrelationKey{value: v, valid: true}
}

// Valid reports whether the key carries a value.
func (k CorrelationKey) Valid() bool { return k.valid }

// Value returns the key and whether it is valid.
func (k CorrelationKey) Value() (uint64, bool) { return k.value, k.valid }

// Matches reports whether both keys are valid and equal.
func (k CorrelationKey) Matches(other CorrelationKey) bool {
	return k.valid && other.valid && k.value == other.value
}

func (k CorrelationKey) String() string {
	if !k.valid {
		return "none"
	}
	return strconv.FormatUint(k.value, 10)
}
